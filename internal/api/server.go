// Package api exposes a small read-only status server: health, the armed
// setups, the alert budget and recent alert history. There is no mutating
// endpoint; all state changes go through the scheduled jobs.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"liquidity-matrix-bot/config"
	"liquidity-matrix-bot/internal/bot"
	"liquidity-matrix-bot/internal/database"
)

// Server is the HTTP status server.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	cfg        config.ServerConfig
	engine     *bot.Engine
	repo       *database.Repository // nil when Postgres is disabled
	logger     zerolog.Logger
	startedAt  time.Time
}

// NewServer builds the router. repo may be nil; the history endpoint then
// reports the store as unavailable.
func NewServer(cfg config.ServerConfig, engine *bot.Engine, repo *database.Repository, logger zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if cfg.AllowedOrigins == "" || cfg.AllowedOrigins == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = strings.Split(cfg.AllowedOrigins, ",")
	}
	corsConfig.AllowMethods = []string{"GET", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type"}
	router.Use(cors.New(corsConfig))

	server := &Server{
		router:    router,
		cfg:       cfg,
		engine:    engine,
		repo:      repo,
		logger:    logger.With().Str("component", "api").Logger(),
		startedAt: time.Now(),
	}

	server.setupRoutes()

	return server
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	{
		api.GET("/status", s.handleStatus)
		api.GET("/setups", s.handleSetups)
		api.GET("/budget", s.handleBudget)
		api.GET("/alerts", s.handleAlerts)
	}
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info().Str("addr", addr).Msg("status server listening")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("status server: %w", err)
	}

	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	dbStatus := "disabled"
	if s.repo != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.repo.HealthCheck(ctx); err != nil {
			dbStatus = "unhealthy"
		} else {
			dbStatus = "healthy"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"database": dbStatus,
		"uptime":   time.Since(s.startedAt).Round(time.Second).String(),
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	cycle := s.engine.LastCycle()
	tr := s.engine.Tracker()

	c.JSON(http.StatusOK, gin.H{
		"session_window": tr.SessionWindow(),
		"in_session":     cycle.InSession,
		"last_cycle":     cycle.Time,
		"scanned":        cycle.Scanned,
		"skipped":        cycle.Skipped,
		"armed":          cycle.Armed,
	})
}

func (s *Server) handleSetups(c *gin.Context) {
	setups := s.engine.Tracker().ArmedSetups()

	c.JSON(http.StatusOK, gin.H{
		"count":  len(setups),
		"setups": setups,
	})
}

func (s *Server) handleBudget(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Tracker().Budget())
}

func (s *Server) handleAlerts(c *gin.Context) {
	if s.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "alert history store disabled"})
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 200 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 200"})
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	alerts, err := s.repo.GetRecentPlanAlerts(ctx, limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load alert history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load alert history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":  len(alerts),
		"alerts": alerts,
	})
}
