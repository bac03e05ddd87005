package websocket

import (
	"sync"

	"github.com/gorilla/websocket"

	"artmarket/pkg/logger"
)

// Connection wraps a gorilla websocket. Writes are serialized; gorilla
// permits at most one concurrent writer per connection.
type Connection struct {
	conn      *websocket.Conn
	userID    string
	listingID string
	writeMu   sync.Mutex
	closed    bool
	log       logger.Logger
}

func NewConnection(conn *websocket.Conn, userID, listingID string, log logger.Logger) *Connection {
	return &Connection{
		conn:      conn,
		userID:    userID,
		listingID: listingID,
		log:       log,
	}
}

func (c *Connection) Send(message interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed {
		return websocket.ErrCloseSent
	}

	switch msg := message.(type) {
	case []byte:
		return c.conn.WriteMessage(websocket.TextMessage, msg)
	default:
		return c.conn.WriteJSON(msg)
	}
}

func (c *Connection) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

func (c *Connection) UserID() string    { return c.userID }
func (c *Connection) ListingID() string { return c.listingID }
