// Package server is the VM debug HTTP surface: health, prometheus metrics,
// VM and module stats, and endpoints that push commands through the bus.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tech-paws/vm/internal/auth"
	"github.com/tech-paws/vm/internal/observability"
	"github.com/tech-paws/vm/internal/vm"
)

const shutdownTimeout = 5 * time.Second

// Options configures the debug server. An empty CorsOrigins allows the local
// web dev origin only. When Token is set, routes that push commands require
// it as a bearer token.
type Options struct {
	CorsOrigins []string
	Token       string
}

type Server struct {
	vm       *vm.VM
	logger   zerolog.Logger
	router   *gin.Engine
	push     gin.HandlerFunc
	appeared time.Time
}

func New(v *vm.VM, logger zerolog.Logger, opts Options) *Server {
	observability.RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(logger))
	r.Use(observability.RequestMetricsMiddleware(v.Name()))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(opts.CorsOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		vm:       v,
		logger:   logger,
		router:   r,
		push:     func(c *gin.Context) { c.Next() },
		appeared: time.Now(),
	}
	if opts.Token != "" {
		s.push = auth.Middleware(auth.StaticToken{Token: opts.Token})
	}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("debug server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
