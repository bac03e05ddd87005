package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Listing struct {
	ID              string
	Title           string
	Description     string
	Category        string
	ImageRef        string
	ImageExternalID string
	StartingPrice   decimal.Decimal
	CurrentPrice    decimal.Decimal
	Status          ListingStatus
	// IsActive is the owner/admin visibility switch. It is independent of
	// Status: a listing can be ACTIVE but hidden, or visible but EXPIRED.
	IsActive     bool
	AuctionStart *time.Time
	EndTime      time.Time
	OwnerID      string
	OwnerName    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type ListingStatus int

const (
	ListingPending ListingStatus = iota
	ListingActive
	ListingSold
	ListingExpired
)

func (s ListingStatus) String() string {
	switch s {
	case ListingPending:
		return "pending"
	case ListingActive:
		return "active"
	case ListingSold:
		return "sold"
	case ListingExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// CanTransitionTo reports whether the lifecycle allows moving to next.
// Transitions only run forward: PENDING -> ACTIVE -> {SOLD, EXPIRED}.
// SOLD and EXPIRED are terminal.
func (s ListingStatus) CanTransitionTo(next ListingStatus) bool {
	switch s {
	case ListingPending:
		return next == ListingActive
	case ListingActive:
		return next == ListingSold || next == ListingExpired
	default:
		return false
	}
}

func (s ListingStatus) Terminal() bool {
	return s == ListingSold || s == ListingExpired
}

// Bid is immutable once committed. It holds only back-references by id.
// Tagged because bids travel inside published events.
type Bid struct {
	ID         string          `json:"id"`
	ListingID  string          `json:"listing_id"`
	BidderID   string          `json:"bidder_id"`
	BidderName string          `json:"bidder_name,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	CreatedAt  time.Time       `json:"created_at"`
}

type User struct {
	ID          string
	Email       string
	DisplayName string
	Role        UserRole
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type UserRole string

const (
	RoleBidder UserRole = "bidder"
	RoleArtist UserRole = "artist"
	RoleAdmin  UserRole = "admin"
)

func ParseRole(s string) (UserRole, bool) {
	switch UserRole(s) {
	case RoleBidder, RoleArtist, RoleAdmin:
		return UserRole(s), true
	}
	return "", false
}

// Identity is what the external identity provider resolves a token to.
type Identity struct {
	ID          string
	Email       string
	DisplayName string
}

// StoredAsset is the asset store's receipt for an uploaded image. The core
// persists only the reference and the external id.
type StoredAsset struct {
	Reference  string
	ExternalID string
}

type EventType string

const (
	EventNewBid        EventType = "NEW_BID"
	EventAuctionClosed EventType = "AUCTION_CLOSED"
)

// Event is the fire-and-forget notification published after a bid commits or
// an auction closes. At-most-once delivery; readers recover via repositories.
type Event struct {
	Type      EventType `json:"type"`
	ListingID string    `json:"listing_id"`
	Bid       *Bid      `json:"bid,omitempty"`
	Status    string    `json:"status,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ListingFilter narrows the public listing feed. Zero values mean "no filter".
type ListingFilter struct {
	Category   string
	SearchText string
}

// Stats is the admin dashboard aggregate. Revenue counts realized sales only:
// the closing price of SOLD listings, not the sum of historical bids.
type Stats struct {
	ListingsByStatus map[string]int64 `json:"listings_by_status"`
	TotalBids        int64            `json:"total_bids"`
	Revenue          string           `json:"revenue"`
}
