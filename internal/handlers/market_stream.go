package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	iauth "github.com/dmfesta/tradeacademy/internal/auth"
	"github.com/dmfesta/tradeacademy/internal/realtime"
	"github.com/dmfesta/tradeacademy/pkg/errors"
	"github.com/dmfesta/tradeacademy/pkg/response"
)

// MarketStreamHandler upgrades HTTP connections into the market ticker feed.
type MarketStreamHandler struct {
	hub      *realtime.Hub
	jwt      *iauth.JWTService
	upgrader websocket.Upgrader
}

// NewMarketStreamHandler constructs a MarketStreamHandler.
func NewMarketStreamHandler(hub *realtime.Hub, jwt *iauth.JWTService) *MarketStreamHandler {
	return &MarketStreamHandler{
		hub: hub,
		jwt: jwt,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Stream authenticates the caller and attaches the connection to the hub.
// Browsers cannot set Authorization headers on websocket dials, so the token
// is also accepted as a query parameter.
func (h *MarketStreamHandler) Stream(c *gin.Context) {
	if h.jwt == nil || h.hub == nil {
		response.Error(c, errors.ErrNotFound)
		return
	}

	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		authz := c.GetHeader("Authorization")
		if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			token = strings.TrimSpace(authz[7:])
		}
	}
	if token == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	claims, err := h.jwt.ValidateAccessToken(token)
	if err != nil || strings.TrimSpace(claims.UserID) == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}

	h.hub.Serve(conn)
}
