package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"artmarket/internal/domain"
)

func validCreateInput(ownerID string) CreateListingInput {
	return CreateListingInput{
		OwnerID:       ownerID,
		Title:         "Sunset in Oils",
		Description:   "Original oil on canvas",
		Category:      "painting",
		StartingPrice: decimal.RequireFromString("120.00"),
		EndTime:       time.Now().Add(48 * time.Hour),
		Image:         []byte("fake image bytes"),
		ImageType:     "image/jpeg",
	}
}

func TestCreateListing_HappyPath(t *testing.T) {
	env := newTestEnv()
	svc := env.listingService()

	listing, err := svc.Create(context.Background(), validCreateInput("usr_artist"))
	require.NoError(t, err)
	require.NotNil(t, listing)

	assert.NotEmpty(t, listing.ID)
	assert.Equal(t, domain.ListingActive, listing.Status)
	assert.True(t, listing.IsActive)
	assert.True(t, listing.CurrentPrice.Equal(listing.StartingPrice))
	assert.True(t, env.assets.Has(listing.ImageExternalID))

	point, err := env.cache.Get(context.Background(), listing.ID)
	require.NoError(t, err)
	require.NotNil(t, point)
	assert.True(t, point.Price.Equal(listing.StartingPrice))
	assert.True(t, point.EndTime.Equal(listing.EndTime))
}

func TestCreateListing_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateListingInput)
		field  string
	}{
		{"missing title", func(in *CreateListingInput) { in.Title = "" }, "title"},
		{"zero starting price", func(in *CreateListingInput) {
			in.StartingPrice = decimal.Zero
		}, "starting_price"},
		{"negative starting price", func(in *CreateListingInput) {
			in.StartingPrice = decimal.RequireFromString("-5.00")
		}, "starting_price"},
		{"end time in the past", func(in *CreateListingInput) {
			in.EndTime = time.Now().Add(-time.Hour)
		}, "end_time"},
		{"missing image", func(in *CreateListingInput) { in.Image = nil }, "image"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			in := validCreateInput("usr_artist")
			tt.mutate(&in)

			_, err := env.listingService().Create(context.Background(), in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrValidation))

			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestCreateListing_FailsClosedWhenAssetStoreDown(t *testing.T) {
	env := newTestEnv()
	env.assets.FailStore = true

	_, err := env.listingService().Create(context.Background(), validCreateInput("usr_artist"))
	require.Error(t, err)

	listings, err := env.listings.List(context.Background(), domain.ListingFilter{})
	require.NoError(t, err)
	assert.Empty(t, listings)
}

func TestDeleteListing_OwnerWithoutBids(t *testing.T) {
	env := newTestEnv()
	owner := env.seedUser("usr_artist", domain.RoleArtist)
	listing, err := env.listingService().Create(context.Background(),
		validCreateInput(owner.ID))
	require.NoError(t, err)

	require.NoError(t, env.listingService().Delete(context.Background(), listing.ID, owner))

	_, err = env.listings.Get(context.Background(), listing.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.False(t, env.assets.Has(listing.ImageExternalID))

	point, err := env.cache.Get(context.Background(), listing.ID)
	require.NoError(t, err)
	assert.Nil(t, point)
}

func TestDeleteListing_BlockedByBids(t *testing.T) {
	env := newTestEnv()
	owner := env.seedUser("usr_artist", domain.RoleArtist)
	env.seedListing("lst_1", owner.ID, domain.ListingActive, "100.00",
		time.Now().Add(time.Hour))

	_, err := env.bidService().PlaceBid(context.Background(), "lst_1", "usr_buyer",
		decimal.RequireFromString("110.00"))
	require.NoError(t, err)

	err = env.listingService().Delete(context.Background(), "lst_1", owner)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))

	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"lst_1"}, conflict.BlockingListings)

	// Nothing was deleted.
	_, err = env.listings.Get(context.Background(), "lst_1")
	require.NoError(t, err)
	count, err := env.bids.CountForListing(context.Background(), "lst_1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestDeleteListing_BlockedOnceClosed(t *testing.T) {
	env := newTestEnv()
	owner := env.seedUser("usr_artist", domain.RoleArtist)
	env.seedListing("lst_1", owner.ID, domain.ListingSold, "100.00",
		time.Now().Add(-time.Hour))

	err := env.listingService().Delete(context.Background(), "lst_1", owner)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestDeleteListing_StrangerSeesNotFound(t *testing.T) {
	env := newTestEnv()
	env.seedUser("usr_artist", domain.RoleArtist)
	stranger := env.seedUser("usr_other", domain.RoleArtist)
	env.seedListing("lst_1", "usr_artist", domain.ListingActive, "100.00",
		time.Now().Add(time.Hour))

	err := env.listingService().Delete(context.Background(), "lst_1", stranger)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestDeleteListing_AdminForcesThroughBids(t *testing.T) {
	env := newTestEnv()
	env.seedUser("usr_artist", domain.RoleArtist)
	admin := env.seedUser("usr_admin", domain.RoleAdmin)
	env.seedListing("lst_1", "usr_artist", domain.ListingActive, "100.00",
		time.Now().Add(time.Hour))

	_, err := env.bidService().PlaceBid(context.Background(), "lst_1", "usr_buyer",
		decimal.RequireFromString("110.00"))
	require.NoError(t, err)

	require.NoError(t, env.listingService().Delete(context.Background(), "lst_1", admin))

	_, err = env.listings.Get(context.Background(), "lst_1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	count, err := env.bids.CountForListing(context.Background(), "lst_1")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestHideUnhide(t *testing.T) {
	env := newTestEnv()
	owner := env.seedUser("usr_artist", domain.RoleArtist)
	stranger := env.seedUser("usr_other", domain.RoleBidder)
	env.seedListing("lst_1", owner.ID, domain.ListingActive, "100.00",
		time.Now().Add(time.Hour))
	svc := env.listingService()

	require.NoError(t, svc.Hide(context.Background(), "lst_1", owner))

	// Hidden listings disappear from the public index but bidding still works;
	// visibility and lifecycle are independent.
	listings, err := svc.List(context.Background(), domain.ListingFilter{})
	require.NoError(t, err)
	assert.Empty(t, listings)

	_, err = env.bidService().PlaceBid(context.Background(), "lst_1", "usr_buyer",
		decimal.RequireFromString("110.00"))
	require.NoError(t, err)

	err = svc.Unhide(context.Background(), "lst_1", stranger)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	require.NoError(t, svc.Unhide(context.Background(), "lst_1", owner))
	listings, err = svc.List(context.Background(), domain.ListingFilter{})
	require.NoError(t, err)
	assert.Len(t, listings, 1)
}
