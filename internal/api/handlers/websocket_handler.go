package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"artmarket/internal/domain"
	ws "artmarket/internal/infrastructure/websocket"
	"artmarket/internal/services"
	"artmarket/pkg/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler subscribes a client to live bid updates for one listing.
type WebSocketHandler struct {
	listings    *services.ListingService
	connManager domain.ConnectionManager
	log         logger.Logger
}

func NewWebSocketHandler(listings *services.ListingService,
	connManager domain.ConnectionManager, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		listings:    listings,
		connManager: connManager,
		log:         log,
	}
}

func (h *WebSocketHandler) Subscribe(c echo.Context) error {
	listingID := c.Param("id")
	user := currentUser(c)

	listing, err := h.listings.Get(c.Request().Context(), listingID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if listing.Status.Terminal() || !time.Now().Before(listing.EndTime) {
		return c.JSON(http.StatusGone, map[string]string{"error": "auction has ended"})
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return err
	}

	wsConn := ws.NewConnection(conn, user.ID, listingID, h.log)
	if err := h.connManager.RegisterConnection(user.ID, listingID, wsConn); err != nil {
		h.log.Error("Failed to register connection", "error", err)
		conn.Close()
		return nil
	}

	// Keep reading until the client goes away; inbound frames are ignored,
	// the channel is broadcast-only.
	go func() {
		defer func() {
			h.connManager.UnregisterConnection(user.ID, listingID)
			wsConn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	return nil
}
