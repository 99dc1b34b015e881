// Package server exposes the orchestration core over HTTP: a streaming chat
// endpoint, the human-approval resume endpoint, document upload with
// reindexing, and liveness/metrics.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"servicedesk/internal/desk"
	"servicedesk/internal/logging"
	"servicedesk/internal/rag"
)

// Deps are the collaborators the HTTP layer exposes.
type Deps struct {
	Orchestrator   *desk.Orchestrator
	Indexer        *rag.Indexer
	AllowedOrigins []string
}

// Server wraps the gin engine and the underlying http.Server.
type Server struct {
	engine *gin.Engine
	http   *http.Server
	logger logging.Logger
}

// New builds the router and all handlers.
func New(addr string, deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(deps.AllowedOrigins) == 0 || (len(deps.AllowedOrigins) == 1 && deps.AllowedOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = deps.AllowedOrigins
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	engine.Use(cors.New(corsConfig))

	h := &handlers{
		orchestrator: deps.Orchestrator,
		indexer:      deps.Indexer,
		logger:       logging.NewComponentLogger("HTTP"),
	}

	engine.GET("/health", h.handleHealth)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.POST("/chat", h.handleChat)
	engine.POST("/approve/:thread_id", h.handleApprove)
	engine.POST("/upload", h.handleUpload)

	return &Server{
		engine: engine,
		http: &http.Server{
			Addr:              addr,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logging.NewComponentLogger("Server"),
	}
}

// Engine returns the gin engine, used by handler tests.
func (s *Server) Engine() *gin.Engine { return s.engine }

// Run serves until ctx is cancelled, then drains with a graceful shutdown.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("listening on %s", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
