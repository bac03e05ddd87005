package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"artmarket/internal/domain"
	"artmarket/pkg/logger"
)

// ExpirationReconciler sweeps listings whose end time has passed while still
// ACTIVE and moves them to SOLD or EXPIRED. Readers never pay for a live
// time-plus-status fixup; every stale listing converges within one interval.
type ExpirationReconciler struct {
	listings   domain.ListingRepository
	bids       domain.BidRepository
	priceCache domain.PriceCache
	eventPub   domain.EventPublisher
	leader     domain.LeaderElection
	instanceID string
	interval   time.Duration
	cron       *cron.Cron
	log        logger.Logger
}

func NewExpirationReconciler(
	listings domain.ListingRepository,
	bids domain.BidRepository,
	priceCache domain.PriceCache,
	eventPub domain.EventPublisher,
	leader domain.LeaderElection,
	instanceID string,
	interval time.Duration,
	log logger.Logger,
) *ExpirationReconciler {
	return &ExpirationReconciler{
		listings:   listings,
		bids:       bids,
		priceCache: priceCache,
		eventPub:   eventPub,
		leader:     leader,
		instanceID: instanceID,
		interval:   interval,
		cron:       cron.New(cron.WithSeconds()),
		log:        log,
	}
}

func (r *ExpirationReconciler) Start(ctx context.Context) error {
	r.log.Info("Starting expiration reconciler", "interval", r.interval)

	_, err := r.cron.AddFunc(fmt.Sprintf("@every %s", r.interval), func() {
		isLeader, err := r.leader.IsLeader(ctx, r.instanceID)
		if err != nil {
			r.log.Error("Leader check failed, skipping sweep", "error", err)
			return
		}
		if !isLeader {
			return
		}
		if _, err := r.Sweep(ctx); err != nil {
			r.log.Error("Sweep failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	r.cron.Start()
	return nil
}

func (r *ExpirationReconciler) Stop() error {
	r.log.Info("Stopping expiration reconciler")
	r.cron.Stop()
	return nil
}

// Sweep runs one reconciliation pass and returns how many listings it
// transitioned. Failures are isolated per listing: one bad row never stalls
// the rest, and anything skipped is picked up on the next interval. Running
// the sweep twice back to back transitions nothing the second time.
func (r *ExpirationReconciler) Sweep(ctx context.Context) (int, error) {
	expired, err := r.listings.ListExpiredActive(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to query expired listings: %w", err)
	}

	transitioned := 0
	for _, listing := range expired {
		if err := r.closeOut(ctx, listing); err != nil {
			r.log.Error("Failed to close out listing", "listing_id", listing.ID, "error", err)
			continue
		}
		transitioned++
	}

	if transitioned > 0 {
		r.log.Info("Sweep complete", "transitioned", transitioned, "candidates", len(expired))
	}
	return transitioned, nil
}

func (r *ExpirationReconciler) closeOut(ctx context.Context, listing *domain.Listing) error {
	count, err := r.bids.CountForListing(ctx, listing.ID)
	if err != nil {
		return err
	}

	// The winning price is whatever the listing already carries; the
	// reconciler moves status only, never price.
	target := domain.ListingExpired
	if count > 0 {
		target = domain.ListingSold
	}

	if err := r.listings.UpdateStatus(ctx, listing.ID, target); err != nil {
		return err
	}

	if err := r.priceCache.Remove(ctx, listing.ID); err != nil {
		r.log.Warn("Failed to drop price cache entry", "listing_id", listing.ID, "error", err)
	}

	event := &domain.Event{
		Type:      domain.EventAuctionClosed,
		ListingID: listing.ID,
		Status:    target.String(),
		Timestamp: time.Now(),
	}
	if err := r.eventPub.Publish(ctx, event); err != nil {
		r.log.Warn("Failed to publish close event", "listing_id", listing.ID, "error", err)
	}

	r.log.Info("Listing closed out", "listing_id", listing.ID,
		"status", target.String(), "bids", count)
	return nil
}
