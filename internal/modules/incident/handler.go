package incident

import (
	"net/http"
	"strconv"

	"hotelengine/internal/middleware"
	"hotelengine/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes expects an authenticated group; every route is staff-only.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	staff := rg.Group("", middleware.StaffOnly())
	{
		staff.POST("/incidents", h.Report)
		staff.GET("/incidents", h.List)
		staff.POST("/incidents/:id/resolve", h.Resolve)
		staff.DELETE("/incidents/:id", h.Delete)
		staff.POST("/rooms/:id/devices/restock", h.Restock)
	}
}

func (h *Handler) Report(c *gin.Context) {
	var req ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	inc, err := h.service.Report(c.Request.Context(), middleware.ActorFrom(c), req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"incident": inc})
}

func (h *Handler) List(c *gin.Context) {
	bookingID, err := strconv.ParseInt(c.Query("booking_id"), 10, 64)
	if err != nil || bookingID <= 0 {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "booking_id is required")
		return
	}
	out, err := h.service.ListByBooking(c.Request.Context(), bookingID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"incidents": out})
}

func (h *Handler) Resolve(c *gin.Context) {
	id, ok := pathID(c, "Invalid incident ID")
	if !ok {
		return
	}
	inc, err := h.service.Resolve(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"incident": inc})
}

type deleteRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := pathID(c, "Invalid incident ID")
	if !ok {
		return
	}
	var req deleteRequest
	_ = c.ShouldBindJSON(&req)
	if req.Reason == "" {
		req.Reason = c.Query("reason")
	}
	if err := h.service.Delete(c.Request.Context(), middleware.ActorFrom(c), id, req.Reason); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

func (h *Handler) Restock(c *gin.Context) {
	roomID, ok := pathID(c, "Invalid room ID")
	if !ok {
		return
	}
	var req RestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	dev, err := h.service.RestockDevice(c.Request.Context(), middleware.ActorFrom(c), roomID, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"device": dev})
}

func pathID(c *gin.Context, msg string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", msg)
		return 0, false
	}
	return id, true
}
