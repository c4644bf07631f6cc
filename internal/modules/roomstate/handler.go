package roomstate

import (
	"net/http"
	"strconv"

	"hotelengine/internal/domain"
	"hotelengine/internal/middleware"
	"hotelengine/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handler struct {
	guard *Guard
	db    *gorm.DB
}

func NewHandler(guard *Guard, db *gorm.DB) *Handler {
	return &Handler{guard: guard, db: db}
}

// RegisterRoutes expects an authenticated group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/rooms/:id/clean", middleware.StaffOnly(), h.MarkClean)
	rg.PATCH("/rooms/:id/status", middleware.ManagerOnly(), h.SetStatus)
}

type setStatusRequest struct {
	Status domain.RoomStatus `json:"status" binding:"required"`
	Force  bool              `json:"force"`
	Reason string            `json:"reason"`
}

func (h *Handler) MarkClean(c *gin.Context) {
	roomID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid room ID")
		return
	}

	change, err := h.guard.MarkClean(c.Request.Context(), h.db, roomID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"changed": change != nil, "change": change})
}

func (h *Handler) SetStatus(c *gin.Context) {
	roomID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid room ID")
		return
	}

	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	reason := req.Reason
	if reason == "" {
		reason = "manual override"
	}
	change, err := h.guard.Set(c.Request.Context(), h.db, roomID, req.Status, Options{Force: req.Force, Reason: reason})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"changed": change != nil, "change": change})
}
