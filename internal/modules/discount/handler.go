package discount

import (
	"net/http"

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

// RegisterPublicRoutes mounts the code check; identity is optional there.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/discounts/check", h.Check)
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/discounts", middleware.StaffOnly(), h.List)
	rg.GET("/discounts/:code", middleware.StaffOnly(), h.Get)
	rg.POST("/discounts", middleware.ManagerOnly(), h.Create)
}

type checkRequest struct {
	Code  string `json:"code" binding:"required"`
	Total int64  `json:"total" binding:"gte=0"`
}

func (h *Handler) Check(c *gin.Context) {
	var req checkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	res, err := h.service.CheckCode(c.Request.Context(), req.Code, req.Total, middleware.ActorFrom(c).UserID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) List(c *gin.Context) {
	codes, err := h.service.List(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"discounts": codes})
}

func (h *Handler) Get(c *gin.Context) {
	dc, err := h.service.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, dc)
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	dc, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, dc)
}
