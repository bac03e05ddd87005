package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Sentinels for errors.Is matching. The typed errors below carry the detail a
// caller needs to react (current price, blocking listings, current status).
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrAuctionClosed     = errors.New("auction closed")
	ErrBidTooLow         = errors.New("bid too low")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrConflict          = errors.New("conflict")

	// ErrStaleSnapshot signals that a conditional commit lost the race
	// against a concurrent writer. Internal to the bid path; callers retry
	// against a fresh snapshot, it never surfaces past the service.
	ErrStaleSnapshot = errors.New("stale listing snapshot")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// AuctionClosedError carries the listing's current status so the caller can
// refresh its view.
type AuctionClosedError struct {
	ListingID string
	Status    ListingStatus
}

func (e *AuctionClosedError) Error() string {
	return fmt.Sprintf("auction closed for listing %s (status %s)", e.ListingID, e.Status)
}

func (e *AuctionClosedError) Is(target error) bool { return target == ErrAuctionClosed }

// BidTooLowError carries the price the bid had to exceed so the caller can
// resubmit.
type BidTooLowError struct {
	ListingID    string
	CurrentPrice decimal.Decimal
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("bid on listing %s must exceed %s", e.ListingID, e.CurrentPrice.StringFixed(2))
}

func (e *BidTooLowError) Is(target error) bool { return target == ErrBidTooLow }

type InvalidTransitionError struct {
	ListingID string
	From      ListingStatus
	To        ListingStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("listing %s: cannot transition %s -> %s", e.ListingID, e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// ConflictError blocks a deletion and names every listing standing in the way.
type ConflictError struct {
	BlockingListings []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("deletion blocked by active bid-upon listings: %s",
		strings.Join(e.BlockingListings, ", "))
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }
