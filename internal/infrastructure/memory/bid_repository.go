package memory

import (
	"context"
	"sort"
	"sync"

	"artmarket/internal/domain"
)

type BidRepository struct {
	mu        sync.RWMutex
	byListing map[string][]*domain.Bid // append order = commit order
	users     *UserRepository
}

func NewBidRepository(users *UserRepository) *BidRepository {
	return &BidRepository{
		byListing: make(map[string][]*domain.Bid),
		users:     users,
	}
}

func (r *BidRepository) Append(ctx context.Context, bid *domain.Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *bid
	r.byListing[bid.ListingID] = append(r.byListing[bid.ListingID], &clone)
	return nil
}

func (r *BidRepository) ListForListing(ctx context.Context, listingID string) ([]*domain.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bids := r.byListing[listingID]
	out := make([]*domain.Bid, 0, len(bids))
	for i := len(bids) - 1; i >= 0; i-- { // newest-first by commit order
		out = append(out, r.annotated(bids[i]))
	}
	return out, nil
}

func (r *BidRepository) ListForBidder(ctx context.Context, bidderID string) ([]*domain.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Bid
	for _, bids := range r.byListing {
		for i := len(bids) - 1; i >= 0; i-- {
			if bids[i].BidderID == bidderID {
				out = append(out, r.annotated(bids[i]))
			}
		}
	}
	sortBidsNewestFirst(out)
	return out, nil
}

func (r *BidRepository) CountForListing(ctx context.Context, listingID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return int64(len(r.byListing[listingID])), nil
}

func (r *BidRepository) CountAll(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total int64
	for _, bids := range r.byListing {
		total += int64(len(bids))
	}
	return total, nil
}

func (r *BidRepository) DeleteForListing(ctx context.Context, listingID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.byListing, listingID)
	return nil
}

func (r *BidRepository) DeleteForBidder(ctx context.Context, bidderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for listingID, bids := range r.byListing {
		kept := bids[:0]
		for _, bid := range bids {
			if bid.BidderID != bidderID {
				kept = append(kept, bid)
			}
		}
		if len(kept) == 0 {
			delete(r.byListing, listingID)
		} else {
			r.byListing[listingID] = kept
		}
	}
	return nil
}

func (r *BidRepository) annotated(bid *domain.Bid) *domain.Bid {
	clone := *bid
	if r.users != nil {
		if bidder, err := r.users.Get(context.Background(), bid.BidderID); err == nil {
			clone.BidderName = bidder.DisplayName
		}
	}
	return &clone
}

func sortBidsNewestFirst(bids []*domain.Bid) {
	// Stable keeps commit order within a listing when timestamps tie.
	sort.SliceStable(bids, func(i, j int) bool {
		return bids[i].CreatedAt.After(bids[j].CreatedAt)
	})
}
