package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/profile"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/session"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/pkg/types"
)

// Config holds server configuration.
type Config struct {
	Hostname     string
	Port         int
	EnableCORS   bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Hostname:     "127.0.0.1",
		Port:         8080,
		EnableCORS:   true,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // No write timeout for SSE
	}
}

// FromAppConfig builds a server Config, overlaying the app config's server
// section on the defaults.
func FromAppConfig(appConfig *types.Config) *Config {
	cfg := DefaultConfig()
	if appConfig == nil || appConfig.Server == nil {
		return cfg
	}
	if appConfig.Server.Hostname != "" {
		cfg.Hostname = appConfig.Server.Hostname
	}
	if appConfig.Server.Port != 0 {
		cfg.Port = appConfig.Server.Port
	}
	return cfg
}

// Server is the HTTP server.
type Server struct {
	config   *Config
	router   *chi.Mux
	httpSrv  *http.Server
	sessions *session.Manager
	profiles *profile.Registry

	mu        sync.RWMutex
	appConfig *types.Config
}

// New creates a new Server instance.
func New(cfg *Config, appConfig *types.Config, sessions *session.Manager, profiles *profile.Registry) *Server {
	s := &Server{
		config:    cfg,
		router:    chi.NewRouter(),
		appConfig: appConfig,
		sessions:  sessions,
		profiles:  profiles,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// SetConfig swaps the application config after a reload. The profile
// registry is updated separately by its owner.
func (s *Server) SetConfig(appConfig *types.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appConfig = appConfig
}

// promptVariables returns the config-declared prompt variables bound into
// every new session.
func (s *Server) promptVariables() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.appConfig == nil {
		return nil
	}
	return s.appConfig.PromptVariables
}

// setupMiddleware configures middleware for the server.
func (s *Server) setupMiddleware() {
	// Request ID
	s.router.Use(middleware.RequestID)

	// Logging
	s.router.Use(middleware.Logger)

	// Recover from panics
	s.router.Use(middleware.Recoverer)

	// Real IP
	s.router.Use(middleware.RealIP)

	// CORS
	if s.config.EnableCORS {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"Link", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
}

// Addr returns the address the server listens on.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.config.Hostname, s.config.Port)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:         s.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// health reports server liveness.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UnixMilli(),
	})
}
