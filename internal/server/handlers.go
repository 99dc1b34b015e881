package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"servicedesk/internal/desk"
	sderrors "servicedesk/internal/errors"
	"servicedesk/internal/llm"
	"servicedesk/internal/logging"
	"servicedesk/internal/rag"
)

// eventBuffer bounds per-client event queues. A consumer that stops reading
// loses events past this bound rather than stalling the run.
const eventBuffer = 256

var uploadDomains = map[string]bool{"hr": true, "it": true, "finance": true}

type handlers struct {
	orchestrator *desk.Orchestrator
	indexer      *rag.Indexer
	logger       logging.Logger
}

type chatRequest struct {
	Message  string `json:"message" binding:"required"`
	ThreadID string `json:"thread_id"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
	APIKey   string `json:"api_key"`
}

func (h *handlers) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// handleChat runs one conversation turn and streams progress as SSE. The run
// executes on a context detached from the request: a disconnecting caller
// never aborts the state machine, it only stops receiving events.
func (h *handlers) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	threadID := strings.TrimSpace(req.ThreadID)
	if threadID == "" {
		threadID = uuid.NewString()
	}
	override := llm.Override{Provider: req.Provider, Model: req.Model, APIKey: req.APIKey}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	events := make(chan desk.Event, eventBuffer)
	emit := desk.EmitterFunc(func(e desk.Event) {
		select {
		case events <- e:
		default:
			// Consumer fell behind or detached; delivery is best-effort.
		}
	})

	runCtx := context.WithoutCancel(c.Request.Context())
	go func() {
		defer close(events)
		if _, err := h.orchestrator.Run(runCtx, threadID, req.Message, override, emit); err != nil {
			h.logger.Warn("run for thread %s ended with error: %v", threadID, err)
		}
	}()

	// Initial status frame before any orchestrator event.
	h.writeEvent(c, desk.Event{
		Type:     desk.EventStatus,
		Node:     "init",
		ThreadID: threadID,
		Provider: req.Provider,
		Model:    req.Model,
	})

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	clientGone := false
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if clientGone {
				continue // drain so the emitter's buffer frees up
			}
			if !h.writeEvent(c, event) {
				clientGone = true
			}
		case <-heartbeat.C:
			if clientGone {
				continue
			}
			if _, err := fmt.Fprint(c.Writer, ": heartbeat\n\n"); err != nil {
				clientGone = true
				continue
			}
			c.Writer.Flush()
		}
	}
}

// writeEvent writes one SSE frame and reports whether the client is still
// reachable.
func (h *handlers) writeEvent(c *gin.Context, event desk.Event) bool {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("serialize event %s: %v", event.Type, err)
		return true
	}
	if _, err := fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
		return false
	}
	c.Writer.Flush()
	return true
}

func (h *handlers) handleApprove(c *gin.Context) {
	threadID := c.Param("thread_id")

	result, err := h.orchestrator.Resume(c.Request.Context(), threadID)
	if err != nil {
		if errors.Is(err, sderrors.ErrNotPaused) {
			c.JSON(http.StatusConflict, gin.H{"error": "thread is not paused for approval"})
			return
		}
		h.logger.Error("resume %s: %v", threadID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "resume failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "resumed",
		"thread_id":  result.ThreadID,
		"response":   result.Response,
		"ticket_id":  result.TicketID,
		"escalation": result.Escalated,
	})
}

// handleUpload stores a document under the domain's docs directory and
// triggers a reindex of that domain's retrieval corpus.
func (h *handlers) handleUpload(c *gin.Context) {
	domain := strings.ToLower(strings.TrimSpace(c.PostForm("domain")))
	if !uploadDomains[domain] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "domain must be one of hr, it, finance"})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	dir := h.indexer.DocsDir(domain)
	if err := os.MkdirAll(dir, 0755); err != nil {
		h.logger.Error("create docs dir: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store document"})
		return
	}
	dest := filepath.Join(dir, filepath.Base(file.Filename))
	if err := c.SaveUploadedFile(file, dest); err != nil {
		h.logger.Error("save upload: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store document"})
		return
	}

	stats, err := h.indexer.Reindex(c.Request.Context(), domain)
	if err != nil {
		h.logger.Error("reindex %s: %v", domain, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reindex failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "indexed",
		"domain": domain,
		"files":  stats.Files,
		"chunks": stats.Chunks,
	})
}

