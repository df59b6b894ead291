package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// RegisterHandlerFn receives the /api and /auth route groups.
type RegisterHandlerFn func(api, auth *gin.RouterGroup)

type Server struct {
	engine   *gin.Engine
	srv      *http.Server
	listener net.Listener
}

// NewServer binds addr and builds the router. Use ":0" for a random port.
func NewServer(addr string, registerHandlerFn RegisterHandlerFn) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)

	logger := zap.L().Named("http")

	engine := gin.New()
	engine.Use(
		ginzap.Ginzap(logger, time.RFC3339, true),
		ginzap.RecoveryWithZap(logger, true),
	)
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "not found"})
	})

	registerHandlerFn(engine.Group("/api"), engine.Group("/auth"))

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}

	return &Server{
		engine:   engine,
		listener: listener,
		srv: &http.Server{
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// URL returns the base URL of the bound listener.
func (s *Server) URL() string {
	return "http://" + s.listener.Addr().String()
}

// Handler returns the router, for use with httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until ctx is done or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		zap.S().Named("server").Infow("server started", "url", s.URL())
		errCh <- s.srv.Serve(s.listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Stop(stopCtx)
	}
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	zap.S().Named("server").Infow("server stopped", "url", s.URL())
	return nil
}
