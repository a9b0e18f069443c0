package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/droppit-app/service-booking/internal/application"
	"github.com/droppit-app/service-booking/internal/auth"
	"github.com/droppit-app/service-booking/internal/domain/user"
	"github.com/droppit-app/service-booking/internal/middleware"
	"github.com/droppit-app/service-booking/internal/response"
)

// AdminHandler handles the admin dashboard endpoints.
type AdminHandler struct {
	bookings *application.BookingService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(bookings *application.BookingService) *AdminHandler {
	return &AdminHandler{bookings: bookings}
}

// RegisterRoutes registers all admin routes on the given router group.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	admin := r.Group("/api/v1/admin")
	admin.Use(middleware.AuthMiddleware(jwtManager), middleware.RequireRole(user.RoleAdmin))
	{
		admin.GET("/bookings", h.ListBookings)
		admin.GET("/stats/bookings", h.BookingStats)
		admin.POST("/bookings/:id/status", h.OverrideStatus)
		admin.POST("/bookings/:id/reset", h.ResetBooking)
	}
}

// ListBookings handles GET /api/v1/admin/bookings.
func (h *AdminHandler) ListBookings(c *gin.Context) {
	page, limit := parsePagination(c)

	items, total, err := h.bookings.ListAllBookings(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, items, total, page, limit)
}

// BookingStats handles GET /api/v1/admin/stats/bookings.
func (h *AdminHandler) BookingStats(c *gin.Context) {
	stats, err := h.bookings.GetBookingStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}

// OverrideStatus handles POST /api/v1/admin/bookings/:id/status. Admins may
// force any status transition.
func (h *AdminHandler) OverrideStatus(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.bookings.UpdateBooking(c.Request.Context(), actor, bookingID, application.UpdateBookingRequest{
		Status: &req.Status,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ResetBooking handles POST /api/v1/admin/bookings/:id/reset. The booking
// returns to the open pool with no courier assigned.
func (h *AdminHandler) ResetBooking(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return
	}

	result, err := h.bookings.ResetBooking(c.Request.Context(), actor, bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
