package websocket

import (
	"encoding/json"
	"sync"

	"artmarket/internal/domain"
	"artmarket/pkg/logger"
)

// InMemoryConnectionManager tracks listing subscriptions per user. Delivery
// is fire-and-forget: a failed send is logged and the fan-out continues, and
// clients that miss an event recover state through the read endpoints.
type InMemoryConnectionManager struct {
	connections map[string]map[string]domain.WebSocketConnection // listingID -> userID -> connection
	mutex       sync.RWMutex
	log         logger.Logger
}

func NewConnectionManager(log logger.Logger) *InMemoryConnectionManager {
	return &InMemoryConnectionManager{
		connections: make(map[string]map[string]domain.WebSocketConnection),
		log:         log,
	}
}

func (cm *InMemoryConnectionManager) RegisterConnection(userID, listingID string, conn domain.WebSocketConnection) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if cm.connections[listingID] == nil {
		cm.connections[listingID] = make(map[string]domain.WebSocketConnection)
	}
	// A reconnect replaces the previous subscription for the same user.
	if prev, ok := cm.connections[listingID][userID]; ok {
		prev.Close()
	}
	cm.connections[listingID][userID] = conn

	cm.log.Info("Connection registered", "user_id", userID, "listing_id", listingID)
	return nil
}

func (cm *InMemoryConnectionManager) UnregisterConnection(userID, listingID string) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if listingConns, exists := cm.connections[listingID]; exists {
		delete(listingConns, userID)
		if len(listingConns) == 0 {
			delete(cm.connections, listingID)
		}
	}

	cm.log.Info("Connection unregistered", "user_id", userID, "listing_id", listingID)
	return nil
}

func (cm *InMemoryConnectionManager) BroadcastToListing(listingID string, message interface{}) error {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	for _, conn := range cm.connectionsFor(listingID) {
		if err := conn.Send(messageBytes); err != nil {
			cm.log.Error("Failed to send message", "user_id", conn.UserID(),
				"listing_id", listingID, "error", err)
			// Continue to other connections
		}
	}

	return nil
}

func (cm *InMemoryConnectionManager) CloseAndUnregisterConnections(listingID string) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if listingConns, exists := cm.connections[listingID]; exists {
		for userID, conn := range listingConns {
			if err := conn.Close(); err != nil {
				cm.log.Error("Failed to close connection", "user_id", userID,
					"listing_id", listingID, "error", err)
			}
		}
		delete(cm.connections, listingID)
	}

	cm.log.Info("Connections closed for listing", "listing_id", listingID)
	return nil
}

func (cm *InMemoryConnectionManager) connectionsFor(listingID string) []domain.WebSocketConnection {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	var connections []domain.WebSocketConnection
	for _, conn := range cm.connections[listingID] {
		connections = append(connections, conn)
	}
	return connections
}
