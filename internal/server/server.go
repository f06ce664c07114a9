package server

import (
	"net/http"
	"time"

	"github.com/doesdev/oneclick-update/internal/cache"
	"github.com/doesdev/oneclick-update/internal/config"
	"github.com/doesdev/oneclick-update/internal/events"
	"github.com/doesdev/oneclick-update/internal/resolve"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/go-github/v59/github"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

type Server struct {
	router    chi.Router
	log       *logrus.Logger
	ghClient  *github.Client
	config    *config.ServerConfig
	store     *cache.Store
	resolver  *resolve.Resolver
	downloads *events.Publisher
	// serializes upstream refreshes so one request repopulates the cache
	ghSemaphore *semaphore.Weighted
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{
		"service": "oneclick-update",
		"stage":   s.config.Stage,
		"version": s.config.Version,
	})
}

// Downloads exposes the publisher of resolved download events.
func (s *Server) Downloads() *events.Publisher {
	return s.downloads
}

// New builds the resolver server. platformFilters registers custom
// per-platform asset filters; they take priority over the built-in
// filters for the same platform name and extend the valid platform set.
func New(log *logrus.Logger, ghClient *github.Client, serverCfg *config.ServerConfig, platformFilters map[string]resolve.Filter) *Server {
	router := chi.NewRouter()
	server := &Server{
		router:      router,
		log:         log,
		ghClient:    ghClient,
		config:      serverCfg,
		store:       cache.NewStore(serverCfg.RefreshInterval),
		resolver:    resolve.New(platformFilters),
		downloads:   events.NewPublisher(),
		ghSemaphore: semaphore.NewWeighted(1),
	}
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(server.logMiddleware)
	router.Use(server.recoverMiddleware)
	router.Use(middleware.Timeout(time.Minute))

	// every path outside the action roots is a no-content response
	router.NotFound(server.noContentHandler)
	router.MethodNotAllowed(server.noContentHandler)

	router.Get("/", server.indexHandler)
	router.Get("/download", server.handleAction)
	router.Get("/download/*", server.handleAction)
	router.Get("/update", server.handleAction)
	router.Get("/update/*", server.handleAction)

	return server
}
