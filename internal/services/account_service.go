package services

import (
	"context"
	"time"

	"artmarket/internal/domain"
	"artmarket/pkg/logger"
)

// AccountService resolves identities into the local user cache and performs
// the account deletion cascade.
type AccountService struct {
	users      domain.UserRepository
	listings   domain.ListingRepository
	bids       domain.BidRepository
	assets     domain.AssetStore
	priceCache domain.PriceCache
	identity   domain.IdentityProvider
	log        logger.Logger
}

func NewAccountService(
	users domain.UserRepository,
	listings domain.ListingRepository,
	bids domain.BidRepository,
	assets domain.AssetStore,
	priceCache domain.PriceCache,
	identity domain.IdentityProvider,
	log logger.Logger,
) *AccountService {
	return &AccountService{
		users:      users,
		listings:   listings,
		bids:       bids,
		assets:     assets,
		priceCache: priceCache,
		identity:   identity,
		log:        log,
	}
}

// ResolveCaller turns an authentication token into a locally cached user.
// New users default to the bidder role.
func (s *AccountService) ResolveCaller(ctx context.Context, token string) (*domain.User, error) {
	ident, err := s.identity.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.users.Upsert(ctx, &domain.User{
		ID:          ident.ID,
		Email:       ident.Email,
		DisplayName: ident.DisplayName,
		Role:        domain.RoleBidder,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		return nil, err
	}

	return s.users.Get(ctx, ident.ID)
}

func (s *AccountService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.users.Get(ctx, id)
}

func (s *AccountService) SetRole(ctx context.Context, id string, role domain.UserRole) error {
	return s.users.UpdateRole(ctx, id, role)
}

// DeleteAccount tears down everything a user owns. Unless forced, the whole
// operation aborts with ConflictError while any owned listing is ACTIVE,
// unexpired and bid-upon; no partial deletion happens in that case.
//
// Deletion order keeps references intact at every step, so a crash
// mid-cascade can never leave a bid pointing at a deleted listing or a
// listing pointing at a deleted owner: bids placed by the user, then bids on
// the user's listings, then the listings, then the user record.
func (s *AccountService) DeleteAccount(ctx context.Context, userID string, force bool) error {
	if _, err := s.users.Get(ctx, userID); err != nil {
		return err
	}

	owned, err := s.listings.ListByOwner(ctx, userID)
	if err != nil {
		return err
	}

	if !force {
		now := time.Now()
		var blocking []string
		for _, listing := range owned {
			if listing.Status != domain.ListingActive || !listing.EndTime.After(now) {
				continue
			}
			count, err := s.bids.CountForListing(ctx, listing.ID)
			if err != nil {
				return err
			}
			if count > 0 {
				blocking = append(blocking, listing.ID)
			}
		}
		if len(blocking) > 0 {
			return &domain.ConflictError{BlockingListings: blocking}
		}
	}

	if err := s.bids.DeleteForBidder(ctx, userID); err != nil {
		return err
	}

	for _, listing := range owned {
		if err := s.bids.DeleteForListing(ctx, listing.ID); err != nil {
			return err
		}
		if err := s.listings.Delete(ctx, listing.ID); err != nil {
			return err
		}
		if err := s.priceCache.Remove(ctx, listing.ID); err != nil {
			s.log.Warn("Failed to drop price cache entry", "listing_id", listing.ID, "error", err)
		}
		if err := s.assets.Release(ctx, listing.ImageExternalID); err != nil {
			s.log.Warn("Asset release failed, needs manual cleanup",
				"listing_id", listing.ID, "external_id", listing.ImageExternalID, "error", err)
		}
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}

	s.log.Info("Account deleted", "user_id", userID, "listings", len(owned), "force", force)
	return nil
}

// Stats aggregates the admin dashboard numbers. Revenue counts realized
// sales only.
func (s *AccountService) Stats(ctx context.Context) (*domain.Stats, error) {
	counts, revenue, err := s.listings.AggregateStats(ctx)
	if err != nil {
		return nil, err
	}
	totalBids, err := s.bids.CountAll(ctx)
	if err != nil {
		return nil, err
	}

	byStatus := make(map[string]int64, len(counts))
	for status, count := range counts {
		byStatus[status.String()] = count
	}
	return &domain.Stats{
		ListingsByStatus: byStatus,
		TotalBids:        totalBids,
		Revenue:          revenue.StringFixed(2),
	}, nil
}
