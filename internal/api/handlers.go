// Package api serves the indexer status and rebuild endpoints.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MasterGowen/open-discussions/infrastructure/logger"
	"github.com/MasterGowen/open-discussions/internal/indexing"
	"github.com/MasterGowen/open-discussions/internal/tasks"
)

// StatusReader reports the index lifecycle state.
type StatusReader interface {
	Status(ctx context.Context) (*indexing.Status, error)
	CountDocuments(ctx context.Context, alias string) (int, error)
}

// QueueInspector reports task queue depths.
type QueueInspector interface {
	QueueDepths(ctx context.Context) (map[tasks.Priority]int64, error)
}

// StatusResponse is the body of GET /api/v1/index/status.
type StatusResponse struct {
	*indexing.Status

	Documents int              `json:"documents"`
	Queues    map[string]int64 `json:"queues,omitempty"`
}

// RebuildRequest is the optional body of POST /api/v1/index/rebuild.
type RebuildRequest struct {
	Priority string `json:"priority"`
}

// Handler handles HTTP requests for the indexer API.
type Handler struct {
	status     StatusReader
	queues     QueueInspector
	dispatcher tasks.Dispatcher
	log        logger.Logger
}

// NewHandler creates a Handler. queues may be nil.
func NewHandler(status StatusReader, queues QueueInspector, dispatcher tasks.Dispatcher, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{status: status, queues: queues, dispatcher: dispatcher, log: log}
}

// requestLog returns the request-scoped logger set by the server
// middleware, falling back to the handler's logger.
func (h *Handler) requestLog(c *gin.Context) logger.Logger {
	if l, ok := logger.Lookup(c.Request.Context()); ok {
		return l
	}
	return h.log
}

// GetStatus handles GET /api/v1/index/status.
func (h *Handler) GetStatus(c *gin.Context) {
	ctx := c.Request.Context()
	log := h.requestLog(c)

	status, err := h.status.Status(ctx)
	if err != nil {
		log.Error("Failed to read index status", logger.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	resp := StatusResponse{Status: status}
	if len(status.DefaultIndices) > 0 {
		if resp.Documents, err = h.status.CountDocuments(ctx, status.DefaultAlias); err != nil {
			log.Warn("Failed to count documents", logger.Error(err))
		}
	}

	if h.queues != nil {
		depths, depthErr := h.queues.QueueDepths(ctx)
		if depthErr != nil {
			log.Warn("Failed to read queue depths", logger.Error(depthErr))
		}
		resp.Queues = make(map[string]int64, len(depths))
		for priority, depth := range depths {
			resp.Queues[priority.String()] = depth
		}
	}

	c.JSON(http.StatusOK, resp)
}

// Rebuild handles POST /api/v1/index/rebuild. The rebuild runs on a worker.
func (h *Handler) Rebuild(c *gin.Context) {
	log := h.requestLog(c)
	var req RebuildRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := tasks.RecreateIndex()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if req.Priority != "" {
		if task.Priority, err = tasks.ParsePriority(req.Priority); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	if err = h.dispatcher.Dispatch(c.Request.Context(), task); err != nil {
		log.Error("Failed to enqueue rebuild", logger.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	log.Info("Rebuild enqueued", logger.String("priority", task.Priority.String()))
	c.JSON(http.StatusAccepted, gin.H{
		"task":     task.Name,
		"priority": task.Priority.String(),
	})
}
