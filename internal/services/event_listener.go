package services

import (
	"context"
	"fmt"

	"artmarket/internal/domain"
	"artmarket/pkg/logger"
	"artmarket/pkg/money"
)

// EventListener bridges the notification channel to websocket subscribers.
type EventListener struct {
	broadcaster domain.ListingBroadcaster
	connManager domain.ConnectionManager
	log         logger.Logger
}

func NewEventListener(connManager domain.ConnectionManager,
	broadcaster domain.ListingBroadcaster, log logger.Logger) *EventListener {
	return &EventListener{
		broadcaster: broadcaster,
		connManager: connManager,
		log:         log,
	}
}

func (el *EventListener) Start(ctx context.Context, subscriber domain.EventSubscriber) error {
	el.log.Info("Starting event listener")
	return subscriber.Subscribe(ctx, el.handleEvent)
}

func (el *EventListener) handleEvent(event *domain.Event) error {
	el.log.Debug("Handling event", "type", event.Type, "listing_id", event.ListingID)

	switch event.Type {
	case domain.EventNewBid:
		return el.handleNewBid(event)
	case domain.EventAuctionClosed:
		return el.handleAuctionClosed(event)
	}

	return fmt.Errorf("unknown event type %q", event.Type)
}

func (el *EventListener) handleNewBid(event *domain.Event) error {
	if event.Bid == nil {
		return fmt.Errorf("new bid event for listing %s has no bid", event.ListingID)
	}
	return el.broadcaster.BroadcastToListing(context.Background(), event.ListingID, map[string]interface{}{
		"type":          "bid_update",
		"listing_id":    event.ListingID,
		"current_price": money.String(event.Bid.Amount),
		"bidder_id":     event.Bid.BidderID,
		"timestamp":     event.Timestamp,
	})
}

func (el *EventListener) handleAuctionClosed(event *domain.Event) error {
	if err := el.broadcaster.BroadcastToListing(context.Background(), event.ListingID, map[string]interface{}{
		"type":       "auction_closed",
		"listing_id": event.ListingID,
		"status":     event.Status,
		"timestamp":  event.Timestamp,
	}); err != nil {
		el.log.Error("Failed to broadcast close event", "listing_id", event.ListingID, "error", err)
		return err
	}

	if err := el.connManager.CloseAndUnregisterConnections(event.ListingID); err != nil {
		el.log.Error("Failed to finalize connections for listing",
			"listing_id", event.ListingID, "error", err)
		return err
	}
	return nil
}
