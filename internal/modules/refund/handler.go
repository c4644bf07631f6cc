package refund

import (
	"net/http"
	"strconv"

	"hotelengine/internal/domain"
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

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/refund-requests", h.Create)
	staff := rg.Group("/refund-requests", middleware.StaffOnly())
	{
		staff.GET("", h.List)
		staff.POST("/:id/approve", h.Approve)
		staff.POST("/:id/reject", h.Reject)
		staff.POST("/:id/complete", h.Complete)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	rr, err := h.service.Create(c.Request.Context(), middleware.ActorFrom(c), req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, rr)
}

func (h *Handler) List(c *gin.Context) {
	bookingID, _ := strconv.ParseInt(c.Query("booking_id"), 10, 64)
	out, err := h.service.List(c.Request.Context(), ListFilter{
		Status:    domain.RefundStatus(c.Query("status")),
		BookingID: bookingID,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"refund_requests": out})
}

func (h *Handler) Approve(c *gin.Context) {
	id, ok := requestID(c)
	if !ok {
		return
	}
	rr, err := h.service.Approve(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, rr)
}

type rejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (h *Handler) Reject(c *gin.Context) {
	id, ok := requestID(c)
	if !ok {
		return
	}
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Reason is required")
		return
	}
	rr, err := h.service.Reject(c.Request.Context(), middleware.ActorFrom(c), id, req.Reason)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, rr)
}

func (h *Handler) Complete(c *gin.Context) {
	id, ok := requestID(c)
	if !ok {
		return
	}
	rr, err := h.service.Complete(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, rr)
}

func requestID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid refund request ID")
		return 0, false
	}
	return id, true
}
