package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"artmarket/internal/domain"
	"artmarket/pkg/logger"
)

// BidService runs the bid acceptance protocol: validate against a fresh
// listing snapshot, commit bid and price as one unit, notify subscribers.
type BidService struct {
	listings   domain.ListingRepository
	bids       domain.BidRepository
	priceCache domain.PriceCache
	eventPub   domain.EventPublisher
	log        logger.Logger
}

func NewBidService(
	listings domain.ListingRepository,
	bids domain.BidRepository,
	priceCache domain.PriceCache,
	eventPub domain.EventPublisher,
	log logger.Logger,
) *BidService {
	return &BidService{
		listings:   listings,
		bids:       bids,
		priceCache: priceCache,
		eventPub:   eventPub,
		log:        log,
	}
}

// PlaceBid validates and commits a single bid. Validation failures leave no
// state behind and are safe to retry with a corrected amount.
//
// Serialization per listing comes from the repository's conditional commit:
// when a concurrent bid lands between our read and our write, the commit
// reports a stale snapshot and the whole sequence re-runs against the fresh
// price. Each retry either commits or fails validation outright, and the
// price only moves up, so the loop terminates.
func (s *BidService) PlaceBid(ctx context.Context, listingID, bidderID string, amount decimal.Decimal) (*domain.Bid, error) {
	s.log.Info("Placing bid", "listing_id", listingID, "bidder_id", bidderID,
		"amount", amount.StringFixed(2))

	// Cheap rejection off the price mirror. The mirror only ever moves up
	// and the end time never changes, so it can reject a losing bid early
	// but never a winning one. Once the cached end time has passed the
	// snapshot below decides, so an ended auction reports closed rather
	// than too-low.
	if point, err := s.priceCache.Get(ctx, listingID); err == nil && point != nil {
		if time.Now().Before(point.EndTime) && amount.LessThanOrEqual(point.Price) {
			return nil, &domain.BidTooLowError{ListingID: listingID, CurrentPrice: point.Price}
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		listing, err := s.listings.Get(ctx, listingID)
		if err != nil {
			return nil, err
		}

		// Status alone lags true expiry by up to one reconciler interval,
		// so the wall clock is checked here as well.
		now := time.Now()
		if listing.Status != domain.ListingActive || !now.Before(listing.EndTime) {
			return nil, &domain.AuctionClosedError{ListingID: listingID, Status: listing.Status}
		}

		if amount.LessThanOrEqual(listing.CurrentPrice) {
			return nil, &domain.BidTooLowError{ListingID: listingID, CurrentPrice: listing.CurrentPrice}
		}

		bid := &domain.Bid{
			ID:        newID("bid"),
			ListingID: listingID,
			BidderID:  bidderID,
			Amount:    amount,
			CreatedAt: now,
		}

		err = s.listings.CommitBid(ctx, listing, bid)
		if errors.Is(err, domain.ErrStaleSnapshot) {
			s.log.Debug("Bid commit lost the race, revalidating", "listing_id", listingID)
			continue
		}
		if err != nil {
			return nil, err
		}

		s.afterCommit(ctx, listingID, bid)
		return bid, nil
	}
}

// afterCommit refreshes the price mirror and notifies subscribers. Both are
// best-effort; the bid is already durable.
func (s *BidService) afterCommit(ctx context.Context, listingID string, bid *domain.Bid) {
	if err := s.priceCache.RaiseTo(ctx, listingID, bid.Amount); err != nil {
		s.log.Warn("Failed to refresh price cache", "listing_id", listingID, "error", err)
	}

	event := &domain.Event{
		Type:      domain.EventNewBid,
		ListingID: listingID,
		Bid:       bid,
		Timestamp: bid.CreatedAt,
	}
	if err := s.eventPub.Publish(ctx, event); err != nil {
		s.log.Warn("Failed to publish bid event", "listing_id", listingID, "error", err)
	}
}

// BidsForListing returns the bid history newest-first in commit order.
func (s *BidService) BidsForListing(ctx context.Context, listingID string) ([]*domain.Bid, error) {
	if _, err := s.listings.Get(ctx, listingID); err != nil {
		return nil, err
	}
	return s.bids.ListForListing(ctx, listingID)
}

// BidsForBidder returns everything a user has bid on, newest-first.
func (s *BidService) BidsForBidder(ctx context.Context, bidderID string) ([]*domain.Bid, error) {
	return s.bids.ListForBidder(ctx, bidderID)
}
