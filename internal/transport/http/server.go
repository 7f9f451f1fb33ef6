// Package synchttp exposes the sync session over HTTP: series JSON, control
// endpoints for granularity/viewport, the websocket primitive stream, and the
// echarts snapshot page.
package synchttp

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"chartsync/internal/chart"
	"chartsync/internal/logger"
	"chartsync/internal/series"
	"chartsync/internal/store/synclog"
)

type Server struct {
	addr   string
	router *gin.Engine
}

type ServerConfig struct {
	Addr      string
	Session   *series.Session
	Hub       *chart.Broadcaster
	SyncLog   *synclog.Store // optional
	EnablePNG bool
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Session == nil {
		return nil, errors.New("sync http server requires a session")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9991"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.GET("/series", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"symbol":      cfg.Session.Symbol(),
			"granularity": cfg.Session.Active(),
			"buckets":     cfg.Session.Snapshot(),
		})
	})
	api.POST("/granularity", func(c *gin.Context) {
		var body struct {
			Granularity string `json:"granularity"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		g, ok := series.ParseGranularity(body.Granularity)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown granularity", "supported": series.Granularities()})
			return
		}
		cfg.Session.RequestSwitch(g)
		c.JSON(http.StatusAccepted, gin.H{"granularity": g})
	})
	api.POST("/viewport", func(c *gin.Context) {
		var body struct {
			Width int `json:"width"`
		}
		if err := c.ShouldBindJSON(&body); err != nil || body.Width <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "width must be a positive integer"})
			return
		}
		cfg.Session.OnResize(body.Width)
		c.Status(http.StatusAccepted)
	})
	if cfg.SyncLog != nil {
		api.GET("/events", func(c *gin.Context) {
			limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
			events, err := cfg.SyncLog.Recent(limit)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"events": events})
		})
	}

	if cfg.Hub != nil {
		router.GET("/ws", func(c *gin.Context) {
			cfg.Hub.Handle(c.Writer, c.Request)
		})
	}

	router.GET("/chart", func(c *gin.Context) {
		html, err := chart.RenderHTML(snapshotInput(cfg.Session))
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", html)
	})
	if cfg.EnablePNG {
		router.GET("/chart.png", func(c *gin.Context) {
			png, err := chart.RenderPNG(c.Request.Context(), snapshotInput(cfg.Session))
			if err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
				return
			}
			c.Data(http.StatusOK, "image/png", png)
		})
	}

	return &Server{addr: cfg.Addr, router: router}, nil
}

func snapshotInput(s *series.Session) chart.SnapshotInput {
	return chart.SnapshotInput{
		Symbol:      s.Symbol(),
		Granularity: string(s.Active()),
		Candles:     s.Snapshot(),
	}
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Start serves until ctx is canceled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		c.Next()
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s",
			method, path, c.Writer.Status(), c.ClientIP(), time.Since(start))
	}
}
