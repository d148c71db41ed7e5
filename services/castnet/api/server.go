// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package api serves a computed analysis over HTTP.
//
// # Routes
//
//   - GET /v1/health
//   - GET /v1/graph/stats
//   - GET /v1/centrality?top=10&by=degree_centrality
//   - GET /v1/actors/:id/similar?n=10&metric=cosine
//   - GET /metrics
//
// The analysis is immutable once served, so handlers need no locking.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/castnet/pkg/logging"
	"github.com/AleutianAI/castnet/services/castnet/graph"
	"github.com/AleutianAI/castnet/services/castnet/pipeline"
	"github.com/AleutianAI/castnet/services/castnet/similarity"
	"github.com/AleutianAI/castnet/services/castnet/telemetry"
)

const (
	// DefaultTop is the number of actors returned by /v1/centrality.
	DefaultTop = 10

	// DefaultNeighbors is the number of actors returned by the similarity route.
	DefaultNeighbors = 10

	// MaxLimit caps the top and n query parameters.
	MaxLimit = 1000

	shutdownTimeout = 10 * time.Second
)

// Server serves one Analysis.
type Server struct {
	analysis *pipeline.Analysis
	logger   *logging.Logger
	router   *gin.Engine
}

// NewServer creates a Server and registers its routes. A nil analysis is
// allowed; data routes then answer 503.
func NewServer(analysis *pipeline.Analysis, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Default()
	}
	s := &Server{analysis: analysis, logger: logger}
	s.initRouter()
	return s
}

// Router returns the gin engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run listens on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("report API listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	s.logger.Info("report API stopped")
	return nil
}

func (s *Server) initRouter() {
	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(otelgin.Middleware("castnet"))
	s.router.Use(s.requestLog())

	v1 := s.router.Group("/v1")
	v1.GET("/health", s.health)

	data := v1.Group("", s.requireAnalysis())
	data.GET("/graph/stats", s.graphStats)
	data.GET("/centrality", s.centrality)
	data.GET("/actors/:id/similar", s.similar)

	s.router.GET("/metrics", gin.WrapH(telemetry.MetricsHandler()))
}

// requestLog logs each request at debug level.
func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		)
	}
}

func (s *Server) requireAnalysis() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.analysis == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "no analysis loaded"})
			return
		}
		c.Next()
	}
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) health(c *gin.Context) {
	resp := gin.H{"status": "ok", "ready": s.analysis != nil}
	if s.analysis != nil {
		resp["run_id"] = s.analysis.RunID
	}
	c.JSON(http.StatusOK, resp)
}

// GraphStats describes the served graph.
type GraphStats struct {
	RunID             string    `json:"run_id"`
	Records           int       `json:"records"`
	Nodes             int       `json:"nodes"`
	Edges             int       `json:"edges"`
	RetainedNodes     int       `json:"retained_nodes"`
	Components        int       `json:"components"`
	Pivots            int       `json:"pivots"`
	Exact             bool      `json:"exact"`
	FullGraphFallback bool      `json:"full_graph_fallback"`
	Truncated         bool      `json:"truncated"`
	SelfPairsSkipped  int       `json:"self_pairs_skipped"`
	CreatedAt         time.Time `json:"created_at"`
}

func (s *Server) graphStats(c *gin.Context) {
	a := s.analysis
	g := a.Build.Graph
	c.JSON(http.StatusOK, GraphStats{
		RunID:             a.RunID,
		Records:           a.Records,
		Nodes:             g.NodeCount(),
		Edges:             g.EdgeCount(),
		RetainedNodes:     a.Centrality.RetainedNodes,
		Components:        a.Centrality.Components,
		Pivots:            a.Centrality.Pivots,
		Exact:             a.Centrality.Exact,
		FullGraphFallback: a.Centrality.FullGraphFallback,
		Truncated:         a.Build.Incomplete,
		SelfPairsSkipped:  a.Build.Stats.SelfPairsSkipped,
		CreatedAt:         a.CreatedAt,
	})
}

// ActorScore is one row of the centrality response.
type ActorScore struct {
	ActorID               string  `json:"actor_id"`
	ActorName             string  `json:"actor_name"`
	DegreeCentrality      float64 `json:"degree_centrality"`
	BetweennessCentrality float64 `json:"betweenness_centrality"`
	Degree                int     `json:"degree"`
}

// CentralityResponse is the body of /v1/centrality.
type CentralityResponse struct {
	By     string       `json:"by"`
	Actors []ActorScore `json:"actors"`
}

func (s *Server) centrality(c *gin.Context) {
	top, err := limitParam(c, "top", DefaultTop)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	by, err := graph.ParseField(c.DefaultQuery("by", graph.FieldDegreeCentrality.String()))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	records := graph.TopK(s.analysis.Centrality.Records, top, by)
	resp := CentralityResponse{By: by.String(), Actors: make([]ActorScore, len(records))}
	for i, r := range records {
		resp.Actors[i] = ActorScore{
			ActorID:               r.ActorID,
			ActorName:             r.ActorName,
			DegreeCentrality:      r.DegreeCentrality,
			BetweennessCentrality: r.BetweennessCentrality,
			Degree:                r.Degree,
		}
	}
	c.JSON(http.StatusOK, resp)
}

// SimilarActor is one row of the similarity response.
type SimilarActor struct {
	ActorID   string  `json:"actor_id"`
	ActorName string  `json:"actor_name"`
	Distance  float64 `json:"distance"`
}

// SimilarResponse is the body of /v1/actors/:id/similar.
type SimilarResponse struct {
	ActorID string         `json:"actor_id"`
	Metric  string         `json:"metric"`
	Actors  []SimilarActor `json:"actors"`
}

func (s *Server) similar(c *gin.Context) {
	id := c.Param("id")
	n, err := limitParam(c, "n", DefaultNeighbors)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	metric, err := similarity.ParseMetric(c.Query("metric"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	neighbors, err := s.analysis.Similarity.Nearest(id, n, metric)
	if errors.Is(err, similarity.ErrActorNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := SimilarResponse{ActorID: id, Metric: metric.String(), Actors: make([]SimilarActor, len(neighbors))}
	for i, nb := range neighbors {
		resp.Actors[i] = SimilarActor{ActorID: nb.ActorID, ActorName: nb.ActorName, Distance: nb.Distance}
	}
	c.JSON(http.StatusOK, resp)
}

// limitParam parses a positive integer query parameter capped at MaxLimit.
func limitParam(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return min(n, MaxLimit), nil
}
