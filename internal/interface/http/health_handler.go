package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-user-registry/internal/domain/repository"
	"github.com/oksasatya/go-user-registry/pkg/response"
)

type HealthHandler struct {
	Store repository.Store
}

func NewHealthHandler(store repository.Store) *HealthHandler {
	return &HealthHandler{Store: store}
}

// Health answers 503 while the store does not respond to a ping.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.Store.Ping(ctx); err != nil {
		response.Error[any](c, http.StatusServiceUnavailable, "store unavailable", err.Error())
		return
	}
	response.Success(c, http.StatusOK, gin.H{"store": "ok"}, "healthy", nil)
}
