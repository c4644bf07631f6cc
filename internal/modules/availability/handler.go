package availability

import (
	"net/http"
	"time"

	"hotelengine/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	finder *Finder
}

func NewHandler(finder *Finder) *Handler {
	return &Handler{finder: finder}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/rooms/available", h.ListAvailable)
}

type availableQuery struct {
	CheckIn    string `form:"check_in" binding:"required"`
	CheckOut   string `form:"check_out" binding:"required"`
	Adults     int    `form:"adults"`
	Children   int    `form:"children"`
	Infants    int    `form:"infants"`
	RoomTypeID int64  `form:"room_type_id"`
	FloorID    int64  `form:"floor_id"`
}

func (h *Handler) ListAvailable(c *gin.Context) {
	var req availableQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "check_in and check_out are required")
		return
	}

	checkIn, err1 := time.Parse(time.DateOnly, req.CheckIn)
	checkOut, err2 := time.Parse(time.DateOnly, req.CheckOut)
	if err1 != nil || err2 != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Dates must be YYYY-MM-DD")
		return
	}
	iv, err := NewInterval(checkIn, checkOut)
	if err != nil {
		response.FromError(c, err)
		return
	}
	if req.Adults == 0 {
		req.Adults = 1
	}

	rooms, err := h.finder.FindAvailableRooms(c.Request.Context(), Query{
		Interval:   iv,
		Guests:     Guests{Adults: req.Adults, Children: req.Children, Infants: req.Infants},
		RoomTypeID: req.RoomTypeID,
		FloorID:    req.FloorID,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"check_in":  iv.Start.Format(time.DateOnly),
		"check_out": iv.End.Format(time.DateOnly),
		"nights":    iv.Nights(),
		"count":     len(rooms),
		"rooms":     rooms,
	})
}
