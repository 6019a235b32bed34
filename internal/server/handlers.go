package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"kgmicrobe/kgreason/internal/reason"
)

type queryRequest struct {
	Query   string            `json:"query" binding:"required"`
	Options map[string]string `json:"options"`
}

type batchRequest struct {
	Queries []queryRequest `json:"queries" binding:"required,min=1,max=256,dive"`
}

// statusFor maps a result to the HTTP status of a single-query response
func statusFor(res reason.Result) int {
	if res.Success {
		return http.StatusOK
	}
	switch res.ErrorKind {
	case reason.Malformed, reason.UnknownQuery:
		return http.StatusBadRequest
	case reason.NotFound:
		return http.StatusNotFound
	case reason.ExceedsLimit:
		return http.StatusUnprocessableEntity
	case reason.GraphUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, reason.Result{
			Error:     "invalid request body: " + err.Error(),
			ErrorKind: reason.Malformed,
		})
		return
	}

	res := s.engine.Run(c.Request.Context(), req.Query, req.Options)
	c.JSON(statusFor(res), res)
}

// handleBatch runs queries concurrently and answers 200 with results in request order
func (s *Server) handleBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	ctx := c.Request.Context()
	results := make([]reason.Result, len(req.Queries))
	var g errgroup.Group
	g.SetLimit(8)
	for i, q := range req.Queries {
		g.Go(func() error {
			results[i] = s.engine.Run(ctx, q.Query, q.Options)
			return nil
		})
	}
	_ = g.Wait()

	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *Server) handleQueryTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"query_types": reason.Kinds})
}

func (s *Server) handlePredicates(c *gin.Context) {
	stats, err := s.store.PredicateStats(c.Request.Context())
	if err != nil {
		s.logger.Error("reading predicate index", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"predicates": stats, "count": len(stats)})
}

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.store.Stats(c.Request.Context())
	if err != nil {
		s.logger.Error("reading table stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.store.Conn().PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
