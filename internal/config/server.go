package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/go-github/v59/github"
	"github.com/kelseyhightower/envconfig"
	"golang.org/x/oauth2"
)

type ServerConfig struct {
	Stage           string        `envconfig:"STAGE" default:"dev"`
	ProjectID       string        `envconfig:"GOOGLE_CLOUD_PROJECT_ID"`
	Port            string        `envconfig:"PORT" default:"8080"`
	BindAddress     string        `envconfig:"BIND_ADDRESS"`
	Account         string        `envconfig:"GITHUB_ACCOUNT"`
	Project         string        `envconfig:"GITHUB_PROJECT"`
	Repo            string        `envconfig:"GITHUB_REPO"`
	Token           string        `envconfig:"GITHUB_OAUTH_TOKEN"`
	ServerURL       string        `envconfig:"SERVER_URL"`
	RefreshInterval time.Duration `envconfig:"REFRESH_INTERVAL" default:"15m"`
	DisableMetrics  bool          `envconfig:"DISABLE_METRICS"`
	Version         string
}

func NewServerConfigFromEnv() (*ServerConfig, error) {
	var sCfg ServerConfig
	err := envconfig.Process("", &sCfg)
	if err != nil {
		return nil, err
	}
	if err := sCfg.Normalize(); err != nil {
		return nil, err
	}
	return &sCfg, nil
}

// Normalize derives the repository identifier from its parts and strips a
// full GitHub URL down to owner/name. A missing repository is fatal before
// serving begins.
func (s *ServerConfig) Normalize() error {
	s.ServerURL = strings.TrimSpace(s.ServerURL)
	s.Token = strings.TrimSpace(s.Token)
	s.Account = strings.TrimSpace(s.Account)
	s.Project = strings.TrimSpace(s.Project)
	s.Repo = strings.TrimSpace(s.Repo)

	if s.Repo == "" {
		if s.Account == "" || s.Project == "" {
			return fmt.Errorf("repo is required")
		}
		s.Repo = s.Account + "/" + s.Project
	}

	if i := strings.Index(s.Repo, "github.com/"); i >= 0 {
		s.Repo = s.Repo[i+len("github.com/"):]
	}
	s.Repo = strings.TrimSuffix(s.Repo, "/")
	return nil
}

func (s *ServerConfig) GetServerAddr() string {
	return s.BindAddress + ":" + s.Port
}

func (s *ServerConfig) CreateGitHubClient() *github.Client {
	if s.Token == "" {
		return github.NewClient(nil)
	}
	oauthClient := oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(&oauth2.Token{AccessToken: s.Token}))
	return github.NewClient(oauthClient)
}
