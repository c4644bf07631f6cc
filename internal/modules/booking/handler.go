package booking

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

// RegisterPublicRoutes serves guests who may or may not be signed in; pair it with
// middleware.OptionalJWTAuth.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/bookings", h.CreateBooking)
}

// RegisterRoutes expects an authenticated group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/bookings/:id", h.GetBooking)
	rg.GET("/bookings/:id/ledger", h.GetLedger)
	rg.POST("/bookings/:id/cancel", h.Cancel)
	rg.POST("/bookings/:id/items/:itemId/cancel", h.CancelItem)
	rg.POST("/bookings/:id/services", h.AddService)
	rg.POST("/bookings/:id/discount", h.ApplyDiscount)

	staff := rg.Group("/bookings", middleware.StaffOnly())
	{
		staff.POST("/:id/check-in", h.CheckIn)
		staff.POST("/:id/check-out", h.CheckOut)
		staff.POST("/:id/no-show", h.NoShow)
		staff.PATCH("/:id/admin", h.AdminUpdate)
	}
}

func (h *Handler) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	b, err := h.service.Create(c.Request.Context(), middleware.ActorFrom(c), req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"booking": b})
}

func (h *Handler) GetBooking(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	b, err := h.service.Get(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": b})
}

func (h *Handler) GetLedger(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	l, err := h.service.Ledger(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, l)
}

func (h *Handler) CheckIn(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	b, err := h.service.CheckIn(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": b})
}

func (h *Handler) CheckOut(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	b, err := h.service.CheckOut(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": b})
}

func (h *Handler) NoShow(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	b, err := h.service.NoShow(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": b})
}

func (h *Handler) AdminUpdate(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	var req AdminUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	b, err := h.service.AdminUpdate(c.Request.Context(), middleware.ActorFrom(c), id, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": b})
}

func (h *Handler) Cancel(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	// body is optional
	var req CancelRequest
	_ = c.ShouldBindJSON(&req)

	b, err := h.service.Cancel(c.Request.Context(), middleware.ActorFrom(c), id, req.Reason)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": b, "refund_amount": b.RefundAmount})
}

func (h *Handler) CancelItem(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	itemID, err := strconv.ParseInt(c.Param("itemId"), 10, 64)
	if err != nil || itemID <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid item ID")
		return
	}
	var req CancelRequest
	_ = c.ShouldBindJSON(&req)

	b, err := h.service.CancelItem(c.Request.Context(), middleware.ActorFrom(c), id, itemID, req.Reason)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": b})
}

func (h *Handler) AddService(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	var req AddServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	line, err := h.service.AddService(c.Request.Context(), middleware.ActorFrom(c), id, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"service": line})
}

func (h *Handler) ApplyDiscount(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	var req ApplyDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Code is required")
		return
	}
	b, err := h.service.ApplyDiscount(c.Request.Context(), middleware.ActorFrom(c), id, req.Code)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": b})
}

func bookingID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid booking ID")
		return 0, false
	}
	return id, true
}
