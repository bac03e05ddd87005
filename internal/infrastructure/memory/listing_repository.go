// Package memory provides concurrency-safe in-process implementations of the
// repository and collaborator interfaces. They back the "memory" storage
// driver for local development and serve as fakes in tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"artmarket/internal/domain"
)

type ListingRepository struct {
	mu       sync.RWMutex
	listings map[string]*domain.Listing
	bids     *BidRepository
	users    *UserRepository
}

// NewListingRepository shares the bid store so CommitBid can append the bid
// and move the price under one lock, and the user store so reads can join
// owner display names.
func NewListingRepository(bids *BidRepository, users *UserRepository) *ListingRepository {
	return &ListingRepository{
		listings: make(map[string]*domain.Listing),
		bids:     bids,
		users:    users,
	}
}

func (r *ListingRepository) Create(ctx context.Context, listing *domain.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *listing
	r.listings[listing.ID] = &clone
	return nil
}

func (r *ListingRepository) Get(ctx context.Context, id string) (*domain.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	listing, ok := r.listings[id]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "listing", ID: id}
	}
	return r.withOwnerName(listing), nil
}

func (r *ListingRepository) List(ctx context.Context, filter domain.ListingFilter) ([]*domain.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.ToLower(filter.SearchText)
	var out []*domain.Listing
	for _, listing := range r.listings {
		if !listing.IsActive {
			continue
		}
		if filter.Category != "" && listing.Category != filter.Category {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(listing.Title), search) &&
			!strings.Contains(strings.ToLower(listing.Description), search) {
			continue
		}
		out = append(out, r.withOwnerName(listing))
	}
	sortNewestFirst(out)
	return out, nil
}

func (r *ListingRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Listing
	for _, listing := range r.listings {
		if listing.OwnerID == ownerID {
			out = append(out, r.withOwnerName(listing))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (r *ListingRepository) ListExpiredActive(ctx context.Context, now time.Time) ([]*domain.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Listing
	for _, listing := range r.listings {
		if listing.Status == domain.ListingActive && listing.EndTime.Before(now) {
			out = append(out, r.withOwnerName(listing))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndTime.Before(out[j].EndTime) })
	return out, nil
}

func (r *ListingRepository) UpdatePrice(ctx context.Context, id string, newPrice decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	listing, ok := r.listings[id]
	if !ok {
		return &domain.NotFoundError{Kind: "listing", ID: id}
	}
	listing.CurrentPrice = newPrice
	listing.UpdatedAt = time.Now()
	return nil
}

func (r *ListingRepository) UpdateStatus(ctx context.Context, id string, status domain.ListingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	listing, ok := r.listings[id]
	if !ok {
		return &domain.NotFoundError{Kind: "listing", ID: id}
	}
	if !listing.Status.CanTransitionTo(status) {
		return &domain.InvalidTransitionError{ListingID: id, From: listing.Status, To: status}
	}
	listing.Status = status
	listing.UpdatedAt = time.Now()
	return nil
}

func (r *ListingRepository) SetActive(ctx context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	listing, ok := r.listings[id]
	if !ok {
		return &domain.NotFoundError{Kind: "listing", ID: id}
	}
	listing.IsActive = active
	listing.UpdatedAt = time.Now()
	return nil
}

func (r *ListingRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.listings[id]; !ok {
		return &domain.NotFoundError{Kind: "listing", ID: id}
	}
	r.bids.DeleteForListing(context.Background(), id)
	delete(r.listings, id)
	return nil
}

// CommitBid serializes the append + price move under the repository lock and
// re-checks the caller's snapshot, mirroring the SQL driver's conditional
// update.
func (r *ListingRepository) CommitBid(ctx context.Context, snapshot *domain.Listing, bid *domain.Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	listing, ok := r.listings[snapshot.ID]
	if !ok {
		return &domain.NotFoundError{Kind: "listing", ID: snapshot.ID}
	}
	if listing.Status != domain.ListingActive || !listing.CurrentPrice.Equal(snapshot.CurrentPrice) {
		return domain.ErrStaleSnapshot
	}

	if err := r.bids.Append(ctx, bid); err != nil {
		return err
	}
	listing.CurrentPrice = bid.Amount
	listing.UpdatedAt = time.Now()
	return nil
}

func (r *ListingRepository) AggregateStats(ctx context.Context) (map[domain.ListingStatus]int64, decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[domain.ListingStatus]int64)
	revenue := decimal.Zero
	for _, listing := range r.listings {
		counts[listing.Status]++
		if listing.Status == domain.ListingSold {
			revenue = revenue.Add(listing.CurrentPrice)
		}
	}
	return counts, revenue, nil
}

func (r *ListingRepository) withOwnerName(listing *domain.Listing) *domain.Listing {
	clone := *listing
	if r.users != nil {
		if owner, err := r.users.Get(context.Background(), listing.OwnerID); err == nil {
			clone.OwnerName = owner.DisplayName
		}
	}
	return &clone
}

func sortNewestFirst(listings []*domain.Listing) {
	sort.Slice(listings, func(i, j int) bool {
		return listings[i].CreatedAt.After(listings[j].CreatedAt)
	})
}
