package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"artmarket/internal/domain"
	"artmarket/pkg/logger"
	"artmarket/pkg/money"
)

// respondError maps the domain error taxonomy onto HTTP statuses and attaches
// the detail the caller needs to react.
func respondError(c echo.Context, log logger.Logger, err error) error {
	var (
		validationErr *domain.ValidationError
		notFoundErr   *domain.NotFoundError
		closedErr     *domain.AuctionClosedError
		tooLowErr     *domain.BidTooLowError
		transitionErr *domain.InvalidTransitionError
		conflictErr   *domain.ConflictError
	)

	switch {
	case errors.As(err, &validationErr):
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": validationErr.Error(),
			"field": validationErr.Field,
		})
	case errors.As(err, &notFoundErr):
		return c.JSON(http.StatusNotFound, map[string]string{"error": notFoundErr.Error()})
	case errors.As(err, &closedErr):
		return c.JSON(http.StatusGone, map[string]string{
			"error":  closedErr.Error(),
			"status": closedErr.Status.String(),
		})
	case errors.As(err, &tooLowErr):
		return c.JSON(http.StatusConflict, map[string]string{
			"error":         tooLowErr.Error(),
			"current_price": money.String(tooLowErr.CurrentPrice),
		})
	case errors.As(err, &transitionErr):
		// A caller or reconciler bug; worth a warning, not a silent 500.
		log.Warn("Invalid status transition attempted", "error", transitionErr)
		return c.JSON(http.StatusConflict, map[string]string{"error": transitionErr.Error()})
	case errors.As(err, &conflictErr):
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"error":             conflictErr.Error(),
			"blocking_listings": conflictErr.BlockingListings,
		})
	default:
		log.Error("Request failed", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

type listingResponse struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Category      string     `json:"category"`
	ImageRef      string     `json:"image_ref"`
	StartingPrice string     `json:"starting_price"`
	CurrentPrice  string     `json:"current_price"`
	Status        string     `json:"status"`
	IsActive      bool       `json:"is_active"`
	AuctionStart  *time.Time `json:"auction_start,omitempty"`
	EndTime       time.Time  `json:"end_time"`
	OwnerID       string     `json:"owner_id"`
	OwnerName     string     `json:"owner_name,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func toListingResponse(listing *domain.Listing) listingResponse {
	return listingResponse{
		ID:            listing.ID,
		Title:         listing.Title,
		Description:   listing.Description,
		Category:      listing.Category,
		ImageRef:      listing.ImageRef,
		StartingPrice: money.String(listing.StartingPrice),
		CurrentPrice:  money.String(listing.CurrentPrice),
		Status:        listing.Status.String(),
		IsActive:      listing.IsActive,
		AuctionStart:  listing.AuctionStart,
		EndTime:       listing.EndTime,
		OwnerID:       listing.OwnerID,
		OwnerName:     listing.OwnerName,
		CreatedAt:     listing.CreatedAt,
		UpdatedAt:     listing.UpdatedAt,
	}
}

func toListingResponses(listings []*domain.Listing) []listingResponse {
	out := make([]listingResponse, 0, len(listings))
	for _, listing := range listings {
		out = append(out, toListingResponse(listing))
	}
	return out
}

type bidResponse struct {
	ID         string    `json:"id"`
	ListingID  string    `json:"listing_id"`
	BidderID   string    `json:"bidder_id"`
	BidderName string    `json:"bidder_name,omitempty"`
	Amount     string    `json:"amount"`
	CreatedAt  time.Time `json:"created_at"`
}

func toBidResponse(bid *domain.Bid) bidResponse {
	return bidResponse{
		ID:         bid.ID,
		ListingID:  bid.ListingID,
		BidderID:   bid.BidderID,
		BidderName: bid.BidderName,
		Amount:     money.String(bid.Amount),
		CreatedAt:  bid.CreatedAt,
	}
}

func toBidResponses(bids []*domain.Bid) []bidResponse {
	out := make([]bidResponse, 0, len(bids))
	for _, bid := range bids {
		out = append(out, toBidResponse(bid))
	}
	return out
}
