package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/clockd/internal/queue"
	"github.com/your-org/clockd/internal/storage"
)

type SystemHandler struct {
	db       *storage.PostgresStore
	minio    *storage.MinIOStore
	producer *queue.Producer
}

func NewSystemHandler(db *storage.PostgresStore, minio *storage.MinIOStore, producer *queue.Producer) *SystemHandler {
	return &SystemHandler{db: db, minio: minio, producer: producer}
}

func (h *SystemHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz checks every downstream dependency and reports which ones failed.
func (h *SystemHandler) Readyz(c *gin.Context) {
	ctx := c.Request.Context()
	failures := gin.H{}

	if err := h.db.Ping(ctx); err != nil {
		failures["postgres"] = err.Error()
	}
	if h.minio != nil {
		if err := h.minio.Ping(ctx); err != nil {
			failures["minio"] = err.Error()
		}
	}
	if h.producer != nil {
		if err := h.producer.Ping(); err != nil {
			failures["nats"] = err.Error()
		}
	}

	if len(failures) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "failures": failures})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
