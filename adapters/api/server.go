package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"goreg/domain/core"
	"goreg/domain/trial"
	"goreg/internal/engine"
	"goreg/internal/logging"
)

// Server exposes the engine's query and lifecycle operations over HTTP and
// streams live trials/status via SSE. This is the interface boundary only:
// no dashboard or rendering lives here.
type Server struct {
	engine *engine.Engine
	hub    *SSEHub
	log    *logging.Logger
	http   *http.Server

	unsubTrial  func()
	unsubStatus func()
}

// NewServer wires the HTTP surface around an engine
func NewServer(eng *engine.Engine, port string, log *logging.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		engine: eng,
		hub:    NewSSEHub(log),
		log:    log,
	}

	s.unsubTrial = eng.OnTrial(func(t trial.Trial) {
		s.hub.Broadcast(StreamEvent{Type: "trial", Data: t, Timestamp: time.Now()})
	})
	s.unsubStatus = eng.OnStatus(func(status trial.EngineStatus) {
		s.hub.Broadcast(StreamEvent{Type: "status", Data: status, Timestamp: time.Now()})
	})

	router := gin.New()
	router.Use(gin.Recovery())

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/status", s.handleStatus)
		apiGroup.GET("/config", s.handleConfig)
		apiGroup.GET("/trials/recent", s.handleRecentTrials)
		apiGroup.GET("/statistics/live", s.handleLiveStatistics)
		apiGroup.GET("/calibration/latest", s.handleLatestCalibration)
		apiGroup.GET("/calibration/history", s.handleCalibrationHistory)
		apiGroup.POST("/calibration/run", s.handleRunCalibration)
		apiGroup.POST("/engine/start", s.handleStart)
		apiGroup.POST("/engine/stop", s.handleStop)
		apiGroup.POST("/engine/session", s.handleUpdateSession)
		apiGroup.PATCH("/engine/config", s.handleUpdateConfig)
		apiGroup.GET("/stream", s.hub.HandleSSE)
	}

	s.http = &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}
	return s
}

// Handler exposes the route tree, primarily for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves until the context is cancelled
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP surface listening on %s", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.unsubTrial()
		s.unsubStatus()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Status())
}

func (s *Server) handleConfig(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Config())
}

func (s *Server) handleRecentTrials(c *gin.Context) {
	count := 100
	if v := c.Query("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "count must be a positive integer"})
			return
		}
		count = n
	}
	c.JSON(http.StatusOK, gin.H{"trials": s.engine.RecentTrials(count)})
}

func (s *Server) handleLiveStatistics(c *gin.Context) {
	report, err := s.engine.LiveStatistics()
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleLatestCalibration(c *gin.Context) {
	result, ok := s.engine.LastCalibration()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no calibration has been run"})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleCalibrationHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"calibrations": s.engine.CalibrationHistory()})
}

func (s *Server) handleRunCalibration(c *gin.Context) {
	var req struct {
		TrialCount int `json:"trial_count"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.engine.RunCalibration(req.TrialCount)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, core.ErrEngineRunning) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleStart(c *gin.Context) {
	var req struct {
		SessionID string `json:"session_id"`
		Mode      string `json:"mode"`
		Intention string `json:"intention"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Mode == "" {
		req.Mode = string(trial.ModeContinuous)
	}
	if req.Intention == "" {
		req.Intention = string(trial.IntentionNone)
	}

	var sessionID core.SessionID
	if req.SessionID != "" {
		parsed, err := core.ParseSessionID(req.SessionID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		sessionID = parsed
	}

	if err := s.engine.StartContinuous(sessionID, trial.Mode(req.Mode), trial.Intention(req.Intention)); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.engine.Status())
}

func (s *Server) handleStop(c *gin.Context) {
	s.engine.StopContinuous()
	c.JSON(http.StatusOK, s.engine.Status())
}

func (s *Server) handleUpdateSession(c *gin.Context) {
	var req struct {
		SessionID string `json:"session_id" binding:"required"`
		Intention string `json:"intention" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessionID, err := core.ParseSessionID(req.SessionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.engine.UpdateSession(sessionID, trial.Intention(req.Intention)); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.engine.Status())
}

func (s *Server) handleUpdateConfig(c *gin.Context) {
	var patch trial.ConfigPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.engine.UpdateConfig(patch); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.engine.Config())
}
