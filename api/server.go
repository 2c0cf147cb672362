// Package api provides the HTTP boundary of userhub: routing, middleware,
// and the mapping from service errors to response statuses.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/identkit/userhub/pkg/config"
	"github.com/identkit/userhub/pkg/interfaces"
	"github.com/identkit/userhub/pkg/users"
)

// Server is the API server instance. The guard only needs the token
// service; everything else flows through the identity service.
type Server struct {
	cfg     *config.Config
	logger  interfaces.Logger
	svc     *users.Service
	tokens  *users.TokenService
	router  *gin.Engine
	server  *http.Server
	version string
}

// NewServer assembles the router with its middleware and routes.
func NewServer(cfg *config.Config, logger interfaces.Logger, svc *users.Service, tokens *users.TokenService, version string) *Server {
	if cfg.Log.Level == "warn" || cfg.Log.Level == "error" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		svc:     svc,
		tokens:  tokens,
		router:  gin.New(),
		version: version,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.requestIDMiddleware())
	s.router.Use(s.loggingMiddleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = s.cfg.Server.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.AllowCredentials = false
	if len(corsConfig.AllowOrigins) == 1 && corsConfig.AllowOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowOrigins = nil
	}
	s.router.Use(cors.New(corsConfig))
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)

	auth := s.router.Group("/auth")
	{
		auth.POST("/login", s.login)
	}

	// Every user route sits behind the guard.
	protected := s.router.Group("/users")
	protected.Use(s.authMiddleware())
	{
		protected.POST("", s.createUser)
		protected.GET("", s.listUsers)
		protected.GET("/me", s.getCurrentUser)
		protected.GET("/:id", s.getUser)
		protected.PUT("/:id", s.updateUser)
		protected.DELETE("/:id", s.deleteUser)
	}
}

// Start runs the server until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting API server", map[string]interface{}{
		"addr": s.cfg.Addr(),
		"mode": gin.Mode(),
	})

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// Handler exposes the router, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
