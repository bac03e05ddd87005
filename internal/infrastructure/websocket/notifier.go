package websocket

import (
	"context"

	"artmarket/internal/domain"
)

// Notifier adapts the connection manager to the broadcast capability the
// event listener depends on.
type Notifier struct {
	connManager domain.ConnectionManager
}

func NewNotifier(connManager domain.ConnectionManager) *Notifier {
	return &Notifier{connManager: connManager}
}

func (n *Notifier) BroadcastToListing(ctx context.Context, listingID string, message interface{}) error {
	return n.connManager.BroadcastToListing(listingID, message)
}
