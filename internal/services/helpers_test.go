package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"artmarket/internal/domain"
	"artmarket/internal/infrastructure/memory"
	"artmarket/pkg/logger"
)

// testEnv wires the services against the in-process driver.
type testEnv struct {
	users    *memory.UserRepository
	bids     *memory.BidRepository
	listings *memory.ListingRepository
	cache    *memory.PriceCache
	bus      *memory.EventBus
	assets   *memory.AssetStore
}

func newTestEnv() *testEnv {
	users := memory.NewUserRepository()
	bids := memory.NewBidRepository(users)
	return &testEnv{
		users:    users,
		bids:     bids,
		listings: memory.NewListingRepository(bids, users),
		cache:    memory.NewPriceCache(),
		bus:      memory.NewEventBus(),
		assets:   memory.NewAssetStore(),
	}
}

func (e *testEnv) bidService() *BidService {
	return NewBidService(e.listings, e.bids, e.cache, e.bus, logger.Nop{})
}

func (e *testEnv) listingService() *ListingService {
	return NewListingService(e.listings, e.bids, e.assets, e.cache, logger.Nop{})
}

func (e *testEnv) reconciler() *ExpirationReconciler {
	return NewExpirationReconciler(e.listings, e.bids, e.cache, e.bus,
		memory.LeaderElection{}, "test-instance", time.Second, logger.Nop{})
}

func (e *testEnv) accountService(identity domain.IdentityProvider) *AccountService {
	return NewAccountService(e.users, e.listings, e.bids, e.assets, e.cache,
		identity, logger.Nop{})
}

// seedListing inserts a listing directly into the repository, bypassing the
// service so tests control every field.
func (e *testEnv) seedListing(id, ownerID string, status domain.ListingStatus,
	price string, endTime time.Time) *domain.Listing {

	p := decimal.RequireFromString(price)
	listing := &domain.Listing{
		ID:            id,
		Title:         "Listing " + id,
		StartingPrice: p,
		CurrentPrice:  p,
		Status:        status,
		IsActive:      true,
		EndTime:       endTime,
		OwnerID:       ownerID,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	if err := e.listings.Create(context.Background(), listing); err != nil {
		panic(err)
	}
	return listing
}

func (e *testEnv) seedUser(id string, role domain.UserRole) *domain.User {
	user := &domain.User{
		ID:          id,
		Email:       id + "@example.com",
		DisplayName: "User " + id,
		Role:        role,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := e.users.Upsert(context.Background(), user); err != nil {
		panic(err)
	}
	if role != domain.RoleBidder {
		if err := e.users.UpdateRole(context.Background(), id, role); err != nil {
			panic(err)
		}
	}
	user.Role = role
	return user
}

func (e *testEnv) eventsOfType(t domain.EventType) []*domain.Event {
	var out []*domain.Event
	for _, event := range e.bus.Published() {
		if event.Type == t {
			out = append(out, event)
		}
	}
	return out
}
