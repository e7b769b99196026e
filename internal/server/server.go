package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samvad-hq/samvad-briefing/internal/briefing"
	"github.com/samvad-hq/samvad-briefing/internal/logger"
)

const shutdownTimeout = 5 * time.Second

// StatusSource exposes the cycle status.
type StatusSource interface {
	GetStatus() briefing.Status
}

// SeenCounter reports the size of the seen store.
type SeenCounter interface {
	Count(ctx context.Context) (int, error)
}

// Schedule describes the daily briefing times.
type Schedule interface {
	Times() []string
	Next() time.Time
}

// Deps groups what the HTTP endpoints report on.
type Deps struct {
	State    StatusSource
	Seen     SeenCounter
	Schedule Schedule
}

// NewRouter constructs a Gin engine with the health and status routes.
func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/status", func(c *gin.Context) {
		resp := gin.H{}
		if deps.State != nil {
			resp["briefing"] = deps.State.GetStatus()
		}
		if deps.Schedule != nil {
			resp["briefing_times"] = deps.Schedule.Times()
			if next := deps.Schedule.Next(); !next.IsZero() {
				resp["next_briefing_at"] = next
			}
		}
		if deps.Seen != nil {
			n, err := deps.Seen.Count(c.Request.Context())
			if err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "seen store unavailable: " + err.Error()})
				return
			}
			resp["seen_articles"] = n
		}
		c.JSON(http.StatusOK, resp)
	})
	return r
}

// Server serves the router until its context is cancelled.
type Server struct {
	httpServer *http.Server
	log        logger.Logger
}

// New builds a server listening on addr.
func New(addr string, deps Deps, log logger.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(deps),
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: logger.Ensure(log),
	}
}

// Run listens until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.InfoObj("http server listening", "http_meta", map[string]any{"addr": s.httpServer.Addr})
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
