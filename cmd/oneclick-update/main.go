package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/doesdev/oneclick-update/internal/config"
	"github.com/doesdev/oneclick-update/internal/metrics"
	"github.com/doesdev/oneclick-update/internal/server"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var version = "dev"

func setupLogger() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return log
}

func run(log *logrus.Logger) error {
	cfg, err := config.NewServerConfigFromEnv()
	if err != nil {
		return err
	}
	cfg.Version = version

	if !cfg.DisableMetrics && cfg.ProjectID != "" {
		log.Println("starting metrics exporter...")
		exporter, mErr := metrics.NewExporter(cfg)
		if mErr != nil {
			return mErr
		}
		defer exporter.Flush()
	}

	log.Printf("serving releases for %s", cfg.Repo)
	srv := &http.Server{
		Addr:    cfg.GetServerAddr(),
		Handler: server.New(log, cfg.CreateGitHubClient(), cfg, nil),
	}
	go func() {
		log.Printf("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Error(err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	log.Println("stopping server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); errors.Is(err, context.DeadlineExceeded) {
		log.Println("closing server...")
		if closeErr := srv.Close(); closeErr != nil {
			return closeErr
		}
	} else if err != nil {
		return err
	}
	log.Println("server stopped!")
	return nil
}

func main() {
	log := setupLogger()
	cmd := &cobra.Command{
		Use:     "oneclick-update",
		Short:   "Serve one-click update and download resolution for GitHub releases",
		Version: version,
		Args:    cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(log); err != nil {
				log.Errorf("ERROR: %v", err)
				os.Exit(1)
			}
		},
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
