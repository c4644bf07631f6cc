package roomfeed

import (
	"net/http"

	"hotelengine/internal/domain"
	"hotelengine/internal/pkg/jwt"
	"hotelengine/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	hub      *Hub
	jwt      *jwt.Service
	upgrader websocket.Upgrader
	log      *logrus.Logger
}

// NewHandler accepts connections from allowedOrigins; an empty list allows any origin.
func NewHandler(hub *Hub, jwtService *jwt.Service, allowedOrigins []string, log *logrus.Logger) *Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &Handler{
		hub: hub,
		jwt: jwtService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin]
			},
		},
		log: log,
	}
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/ws/rooms", h.Serve)
}

// Serve upgrades staff clients. Browsers cannot set headers on a websocket handshake so the
// token comes in the query string.
func (h *Handler) Serve(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Token is required")
		return
	}
	claims, err := h.jwt.ValidateToken(token)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token")
		return
	}
	actor := domain.Actor{UserID: claims.UserID, Role: domain.UserRole(claims.Role)}
	if !actor.IsStaff() {
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Access denied: insufficient permissions")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("room feed upgrade failed")
		return
	}
	h.log.WithField("user_id", actor.UserID).Info("room feed connected")
	h.hub.Serve(conn, actor.UserID)
	h.log.WithField("user_id", actor.UserID).Info("room feed disconnected")
}
