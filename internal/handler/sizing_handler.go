package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/droppit-app/service-booking/internal/application"
	"github.com/droppit-app/service-booking/internal/auth"
	"github.com/droppit-app/service-booking/internal/middleware"
	"github.com/droppit-app/service-booking/internal/response"
)

// SizingHandler serves the advisory package-size suggestion.
type SizingHandler struct {
	service *application.SizingService
}

// NewSizingHandler creates a new SizingHandler.
func NewSizingHandler(service *application.SizingService) *SizingHandler {
	return &SizingHandler{service: service}
}

// RegisterRoutes registers the sizing route on the given router group.
func (h *SizingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	sizing := r.Group("/api/v1/sizing")
	sizing.Use(middleware.AuthMiddleware(jwtManager))
	{
		sizing.POST("/suggest", h.Suggest)
	}
}

// Suggest handles POST /api/v1/sizing/suggest. The hint is advisory and never
// fails: model errors degrade to a static fallback.
func (h *SizingHandler) Suggest(c *gin.Context) {
	var req struct {
		Description string `json:"description" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	size := h.service.Suggest(c.Request.Context(), req.Description)
	response.Success(c, gin.H{"suggested_size": size})
}
