package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"artmarket/internal/domain"
	"artmarket/pkg/logger"
)

type ListingService struct {
	listings   domain.ListingRepository
	bids       domain.BidRepository
	assets     domain.AssetStore
	priceCache domain.PriceCache
	log        logger.Logger
}

func NewListingService(
	listings domain.ListingRepository,
	bids domain.BidRepository,
	assets domain.AssetStore,
	priceCache domain.PriceCache,
	log logger.Logger,
) *ListingService {
	return &ListingService{
		listings:   listings,
		bids:       bids,
		assets:     assets,
		priceCache: priceCache,
		log:        log,
	}
}

type CreateListingInput struct {
	OwnerID       string
	Title         string
	Description   string
	Category      string
	StartingPrice decimal.Decimal
	AuctionStart  *time.Time
	EndTime       time.Time
	Image         []byte
	ImageType     string
}

// Create validates the input, stores the image (fail closed: no listing
// without a stored asset) and opens the auction.
func (s *ListingService) Create(ctx context.Context, in CreateListingInput) (*domain.Listing, error) {
	if in.Title == "" {
		return nil, &domain.ValidationError{Field: "title", Reason: "required"}
	}
	if !in.StartingPrice.IsPositive() {
		return nil, &domain.ValidationError{Field: "starting_price", Reason: "must be greater than zero"}
	}
	now := time.Now()
	if !in.EndTime.After(now) {
		return nil, &domain.ValidationError{Field: "end_time", Reason: "must be in the future"}
	}
	if len(in.Image) == 0 {
		return nil, &domain.ValidationError{Field: "image", Reason: "required"}
	}

	asset, err := s.assets.Store(ctx, in.Image, in.ImageType)
	if err != nil {
		return nil, err
	}

	listing := &domain.Listing{
		ID:              newID("lst"),
		Title:           in.Title,
		Description:     in.Description,
		Category:        in.Category,
		ImageRef:        asset.Reference,
		ImageExternalID: asset.ExternalID,
		StartingPrice:   in.StartingPrice,
		CurrentPrice:    in.StartingPrice,
		Status:          domain.ListingActive,
		IsActive:        true,
		AuctionStart:    in.AuctionStart,
		EndTime:         in.EndTime,
		OwnerID:         in.OwnerID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.listings.Create(ctx, listing); err != nil {
		// Creation failed after the asset landed; try to give it back.
		if relErr := s.assets.Release(ctx, asset.ExternalID); relErr != nil {
			s.log.Warn("Failed to release asset after create failure",
				"external_id", asset.ExternalID, "error", relErr)
		}
		return nil, err
	}

	if err := s.priceCache.Initialize(ctx, listing.ID, listing.StartingPrice, listing.EndTime); err != nil {
		s.log.Warn("Failed to seed price cache", "listing_id", listing.ID, "error", err)
	}

	s.log.Info("Listing created", "listing_id", listing.ID, "owner_id", in.OwnerID,
		"end_time", in.EndTime)
	return listing, nil
}

func (s *ListingService) Get(ctx context.Context, id string) (*domain.Listing, error) {
	return s.listings.Get(ctx, id)
}

func (s *ListingService) List(ctx context.Context, filter domain.ListingFilter) ([]*domain.Listing, error) {
	return s.listings.List(ctx, filter)
}

func (s *ListingService) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Listing, error) {
	return s.listings.ListByOwner(ctx, ownerID)
}

// Hide and Unhide flip the visibility flag only; the auction lifecycle is
// untouched.
func (s *ListingService) Hide(ctx context.Context, id string, actor *domain.User) error {
	if err := s.authorizeOwner(ctx, id, actor); err != nil {
		return err
	}
	return s.listings.SetActive(ctx, id, false)
}

func (s *ListingService) Unhide(ctx context.Context, id string, actor *domain.User) error {
	if err := s.authorizeOwner(ctx, id, actor); err != nil {
		return err
	}
	return s.listings.SetActive(ctx, id, true)
}

// Delete removes a listing and its bids. Owners may delete only while the
// auction is ACTIVE, unexpired and bid-free; admins force through the bid
// check. The asset release is best-effort and never blocks the deletion.
func (s *ListingService) Delete(ctx context.Context, id string, actor *domain.User) error {
	listing, err := s.listings.Get(ctx, id)
	if err != nil {
		return err
	}

	admin := actor.Role == domain.RoleAdmin
	if !admin && listing.OwnerID != actor.ID {
		return &domain.NotFoundError{Kind: "listing", ID: id}
	}

	if !admin {
		if listing.Status != domain.ListingActive || !listing.EndTime.After(time.Now()) {
			return &domain.ConflictError{BlockingListings: []string{id}}
		}
		count, err := s.bids.CountForListing(ctx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return &domain.ConflictError{BlockingListings: []string{id}}
		}
	}

	// Repository delete cascades bids before the listing row goes.
	if err := s.listings.Delete(ctx, id); err != nil {
		return err
	}

	if err := s.priceCache.Remove(ctx, id); err != nil {
		s.log.Warn("Failed to drop price cache entry", "listing_id", id, "error", err)
	}
	if err := s.assets.Release(ctx, listing.ImageExternalID); err != nil {
		s.log.Warn("Asset release failed, needs manual cleanup",
			"listing_id", id, "external_id", listing.ImageExternalID, "error", err)
	}

	s.log.Info("Listing deleted", "listing_id", id, "actor_id", actor.ID, "admin", admin)
	return nil
}

func (s *ListingService) authorizeOwner(ctx context.Context, id string, actor *domain.User) error {
	listing, err := s.listings.Get(ctx, id)
	if err != nil {
		return err
	}
	if actor.Role != domain.RoleAdmin && listing.OwnerID != actor.ID {
		return &domain.NotFoundError{Kind: "listing", ID: id}
	}
	return nil
}
