package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Options struct {
	Addr          string
	ExposeMetrics bool
	// RateLimit в формате ulule ("120-M"); пустая строка отключает ограничение.
	RateLimit string
}

type Server struct {
	srv    *http.Server
	engine *gin.Engine
}

// New собирает gin-движок с /health, /metrics и общими middleware.
// Маршруты API навешивает routes.
func New(opts Options, log *slog.Logger, routes ...func(gin.IRouter)) (*Server, error) {
	engine := gin.New()
	engine.Use(gin.Recovery(), RequestID(), AccessLog(log))

	engine.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	if opts.ExposeMetrics {
		engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	api := engine.Group("/api")
	if opts.RateLimit != "" {
		rl, err := RateLimit(opts.RateLimit)
		if err != nil {
			return nil, err
		}
		api.Use(rl)
	}
	for _, r := range routes {
		r(api)
	}

	return &Server{
		engine: engine,
		srv: &http.Server{
			Addr:              opts.Addr,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
