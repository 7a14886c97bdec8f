// Package httpapi exposes the accounts service as a JSON HTTP API.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/avezhnov/ctfdeck/internal/logging"
	"github.com/avezhnov/ctfdeck/internal/server/config"
	"github.com/avezhnov/ctfdeck/internal/server/ratelimit"
	"github.com/avezhnov/ctfdeck/internal/server/services"
)

// Server wraps the gin engine and the underlying http.Server so the app can
// run it under a context and shut it down gracefully.
type Server struct {
	httpServer *http.Server
	logger     logging.Logger
}

// NewServer wires the routes and middleware and returns a Server bound to
// the configured address.
func NewServer(cfg *config.Config, users *services.UserService, limiter ratelimit.Limiter, logger logging.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	h := &handler{
		users:   users,
		limiter: limiter,
		secret:  []byte(cfg.SecretKey),
		logger:  logger.With("module", "httpapi"),
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(h.logger))

	router.GET("/health", h.health)
	router.GET("/activate", h.activate)

	api := router.Group("/api")
	{
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/register", h.register)
			authRoutes.POST("/activate", h.activate)
			authRoutes.POST("/login", h.login)
			authRoutes.POST("/logout", h.logout)
			authRoutes.POST("/refresh", h.refresh)
			authRoutes.POST("/password/reset", h.requestPasswordReset)
			authRoutes.POST("/password/reset/confirm", h.resetPassword)
			authRoutes.POST("/password/change", h.authRequired(), h.changePassword)
		}

		user := api.Group("/user", h.authRequired())
		{
			user.GET("", h.profile)
			user.PATCH("", h.updateProfile)
		}
	}

	return &Server{
		httpServer: &http.Server{
			Addr:    cfg.EndpointAddrHTTP,
			Handler: router,
		},
		logger: logger,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	s.logger.Info(ctx, "http server listening", "addr", s.httpServer.Addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info(ctx, "shutting down http server")
	return s.httpServer.Shutdown(shutdownCtx)
}
