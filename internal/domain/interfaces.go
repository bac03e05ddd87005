package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Repository interfaces. The listing row is the source of truth for the
// current price; readers never re-derive it from bid history.
type ListingRepository interface {
	Create(ctx context.Context, listing *Listing) error
	Get(ctx context.Context, id string) (*Listing, error)
	List(ctx context.Context, filter ListingFilter) ([]*Listing, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Listing, error)
	ListExpiredActive(ctx context.Context, now time.Time) ([]*Listing, error)
	UpdatePrice(ctx context.Context, id string, newPrice decimal.Decimal) error
	UpdateStatus(ctx context.Context, id string, status ListingStatus) error
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error

	// CommitBid appends the bid and moves the current price to the bid
	// amount as a single unit of work, conditional on the price still being
	// what the caller read. Returns ErrStaleSnapshot when a concurrent
	// commit got there first.
	CommitBid(ctx context.Context, listing *Listing, bid *Bid) error

	// AggregateStats returns listing counts per status and realized revenue
	// (closing prices of SOLD listings).
	AggregateStats(ctx context.Context) (map[ListingStatus]int64, decimal.Decimal, error)
}

type BidRepository interface {
	Append(ctx context.Context, bid *Bid) error
	ListForListing(ctx context.Context, listingID string) ([]*Bid, error)
	ListForBidder(ctx context.Context, bidderID string) ([]*Bid, error)
	CountForListing(ctx context.Context, listingID string) (int64, error)
	CountAll(ctx context.Context) (int64, error)
	DeleteForListing(ctx context.Context, listingID string) error
	DeleteForBidder(ctx context.Context, bidderID string) error
}

type UserRepository interface {
	Upsert(ctx context.Context, user *User) error
	Get(ctx context.Context, id string) (*User, error)
	UpdateRole(ctx context.Context, id string, role UserRole) error
	Delete(ctx context.Context, id string) error
}

// PricePoint is one listing's mirror entry: the last seen price and the
// auction end time. The end time never changes after creation, so a cached
// copy is always safe to check.
type PricePoint struct {
	Price   decimal.Decimal
	EndTime time.Time
}

// PriceCache mirrors each active listing's current price for cheap rejection
// of obviously losing bids. The repository row stays authoritative; the cache
// only ever moves up, and once the cached end time has passed the caller must
// fall back to the repository so an ended auction reports closed, not
// too-low.
type PriceCache interface {
	Initialize(ctx context.Context, listingID string, price decimal.Decimal, endTime time.Time) error
	RaiseTo(ctx context.Context, listingID string, price decimal.Decimal) error
	// Get returns nil on a cache miss.
	Get(ctx context.Context, listingID string) (*PricePoint, error)
	Remove(ctx context.Context, listingID string) error
}

// External collaborators.

type IdentityProvider interface {
	Resolve(ctx context.Context, token string) (*Identity, error)
}

type AssetStore interface {
	// Store persists raw image bytes and returns the reference the core
	// keeps. Listing creation fails closed without a stored asset.
	Store(ctx context.Context, raw []byte, contentType string) (*StoredAsset, error)
	// Release is best-effort; deletion proceeds even when it fails.
	Release(ctx context.Context, externalID string) error
}

// Notification interfaces.

type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
}

type EventSubscriber interface {
	Subscribe(ctx context.Context, handler EventHandler) error
}

type EventHandler func(event *Event) error

type ListingBroadcaster interface {
	BroadcastToListing(ctx context.Context, listingID string, message interface{}) error
}

// Leader election gates the periodic reconciler sweep when multiple instances
// run against the same store.
type LeaderElection interface {
	BecomeLeader(ctx context.Context, instanceID string) (bool, error)
	IsLeader(ctx context.Context, instanceID string) (bool, error)
	ReleaseLeadership(ctx context.Context, instanceID string) error
}

// WebSocket interfaces.

type WebSocketConnection interface {
	Send(message interface{}) error
	Close() error
	UserID() string
	ListingID() string
}

type ConnectionManager interface {
	RegisterConnection(userID, listingID string, conn WebSocketConnection) error
	UnregisterConnection(userID, listingID string) error
	BroadcastToListing(listingID string, message interface{}) error
	CloseAndUnregisterConnections(listingID string) error
}
