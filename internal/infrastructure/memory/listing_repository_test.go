package memory

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

func newListingFixture() (*ListingRepository, *BidRepository, *UserRepository) {
	users := NewUserRepository()
	bids := NewBidRepository(users)
	return NewListingRepository(bids, users), bids, users
}

func seedListing(t *testing.T, repo *ListingRepository, id string,
	status domain.ListingStatus, price string) *domain.Listing {
	t.Helper()
	p := decimal.RequireFromString(price)
	listing := &domain.Listing{
		ID:            id,
		Title:         "Listing " + id,
		StartingPrice: p,
		CurrentPrice:  p,
		Status:        status,
		IsActive:      true,
		EndTime:       time.Now().Add(time.Hour),
		OwnerID:       "usr_owner",
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	require.NoError(t, repo.Create(context.Background(), listing))
	return listing
}

func TestCommitBid_RejectsStaleSnapshot(t *testing.T) {
	repo, bids, _ := newListingFixture()
	snapshot := seedListing(t, repo, "lst_1", domain.ListingActive, "100.00")

	first := &domain.Bid{
		ID: "bid_1", ListingID: "lst_1", BidderID: "usr_a",
		Amount: decimal.RequireFromString("110.00"), CreatedAt: time.Now(),
	}
	require.NoError(t, repo.CommitBid(context.Background(), snapshot, first))

	// The second caller still holds the price-100 snapshot.
	second := &domain.Bid{
		ID: "bid_2", ListingID: "lst_1", BidderID: "usr_b",
		Amount: decimal.RequireFromString("105.00"), CreatedAt: time.Now(),
	}
	err := repo.CommitBid(context.Background(), snapshot, second)
	assert.True(t, errors.Is(err, domain.ErrStaleSnapshot))

	count, err := bids.CountForListing(context.Background(), "lst_1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	listing, err := repo.Get(context.Background(), "lst_1")
	require.NoError(t, err)
	assert.True(t, listing.CurrentPrice.Equal(first.Amount))
}

func TestCommitBid_RejectsClosedListing(t *testing.T) {
	repo, _, _ := newListingFixture()
	snapshot := seedListing(t, repo, "lst_1", domain.ListingActive, "100.00")
	require.NoError(t, repo.UpdateStatus(context.Background(), "lst_1", domain.ListingSold))

	bid := &domain.Bid{
		ID: "bid_1", ListingID: "lst_1", BidderID: "usr_a",
		Amount: decimal.RequireFromString("110.00"), CreatedAt: time.Now(),
	}
	err := repo.CommitBid(context.Background(), snapshot, bid)
	assert.True(t, errors.Is(err, domain.ErrStaleSnapshot))
}

// UpdatePrice is the administrative correction path; bid commits go through
// CommitBid instead.
func TestUpdatePrice(t *testing.T) {
	repo, _, _ := newListingFixture()
	seedListing(t, repo, "lst_1", domain.ListingActive, "100.00")

	require.NoError(t, repo.UpdatePrice(context.Background(), "lst_1",
		decimal.RequireFromString("175.00")))

	listing, err := repo.Get(context.Background(), "lst_1")
	require.NoError(t, err)
	assert.True(t, listing.CurrentPrice.Equal(decimal.RequireFromString("175.00")))
	// The starting price records where the auction opened; corrections leave it.
	assert.True(t, listing.StartingPrice.Equal(decimal.RequireFromString("100.00")))

	err = repo.UpdatePrice(context.Background(), "lst_missing",
		decimal.RequireFromString("10.00"))
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestUpdateStatus_ForwardOnly(t *testing.T) {
	tests := []struct {
		name string
		from domain.ListingStatus
		to   domain.ListingStatus
		ok   bool
	}{
		{"pending to active", domain.ListingPending, domain.ListingActive, true},
		{"active to sold", domain.ListingActive, domain.ListingSold, true},
		{"active to expired", domain.ListingActive, domain.ListingExpired, true},
		{"pending to sold", domain.ListingPending, domain.ListingSold, false},
		{"sold to active", domain.ListingSold, domain.ListingActive, false},
		{"expired to sold", domain.ListingExpired, domain.ListingSold, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, _, _ := newListingFixture()
			seedListing(t, repo, "lst_1", tt.from, "100.00")

			err := repo.UpdateStatus(context.Background(), "lst_1", tt.to)
			if tt.ok {
				require.NoError(t, err)
				listing, err := repo.Get(context.Background(), "lst_1")
				require.NoError(t, err)
				assert.Equal(t, tt.to, listing.Status)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidTransition))

			var iterr *domain.InvalidTransitionError
			require.ErrorAs(t, err, &iterr)
			assert.Equal(t, tt.from, iterr.From)
			assert.Equal(t, tt.to, iterr.To)
		})
	}
}

func TestDelete_CascadesBids(t *testing.T) {
	repo, bids, _ := newListingFixture()
	snapshot := seedListing(t, repo, "lst_1", domain.ListingActive, "100.00")
	require.NoError(t, repo.CommitBid(context.Background(), snapshot, &domain.Bid{
		ID: "bid_1", ListingID: "lst_1", BidderID: "usr_a",
		Amount: decimal.RequireFromString("110.00"), CreatedAt: time.Now(),
	}))

	require.NoError(t, repo.Delete(context.Background(), "lst_1"))

	_, err := repo.Get(context.Background(), "lst_1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	count, err := bids.CountForListing(context.Background(), "lst_1")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestList_FiltersAndJoinsOwnerName(t *testing.T) {
	repo, _, users := newListingFixture()
	require.NoError(t, users.Upsert(context.Background(), &domain.User{
		ID: "usr_owner", Email: "owner@example.com", DisplayName: "The Owner",
		Role: domain.RoleArtist,
	}))

	a := seedListing(t, repo, "lst_a", domain.ListingActive, "10.00")
	a.Category = "painting"
	require.NoError(t, repo.Create(context.Background(), a))
	b := seedListing(t, repo, "lst_b", domain.ListingActive, "10.00")
	b.Title = "Bronze Figure"
	b.Category = "sculpture"
	require.NoError(t, repo.Create(context.Background(), b))
	seedListing(t, repo, "lst_hidden", domain.ListingActive, "10.00")
	require.NoError(t, repo.SetActive(context.Background(), "lst_hidden", false))

	all, err := repo.List(context.Background(), domain.ListingFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, listing := range all {
		assert.Equal(t, "The Owner", listing.OwnerName)
	}

	byCategory, err := repo.List(context.Background(), domain.ListingFilter{Category: "sculpture"})
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, "lst_b", byCategory[0].ID)

	bySearch, err := repo.List(context.Background(), domain.ListingFilter{SearchText: "bronze"})
	require.NoError(t, err)
	require.Len(t, bySearch, 1)
	assert.Equal(t, "lst_b", bySearch[0].ID)
}

func TestListExpiredActive(t *testing.T) {
	repo, _, _ := newListingFixture()

	past := seedListing(t, repo, "lst_past", domain.ListingActive, "10.00")
	past.EndTime = time.Now().Add(-time.Minute)
	require.NoError(t, repo.Create(context.Background(), past))

	pastSold := seedListing(t, repo, "lst_sold", domain.ListingSold, "10.00")
	pastSold.EndTime = time.Now().Add(-time.Minute)
	require.NoError(t, repo.Create(context.Background(), pastSold))

	seedListing(t, repo, "lst_future", domain.ListingActive, "10.00")

	expired, err := repo.ListExpiredActive(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "lst_past", expired[0].ID)
}

func TestBidListing_NewestFirstInCommitOrder(t *testing.T) {
	repo, bids, _ := newListingFixture()
	listing := seedListing(t, repo, "lst_1", domain.ListingActive, "100.00")

	// Same timestamp on purpose: ordering must come from commit order, not
	// the clock.
	now := time.Now()
	for i, amount := range []string{"110.00", "120.00", "130.00"} {
		snapshot, err := repo.Get(context.Background(), listing.ID)
		require.NoError(t, err)
		require.NoError(t, repo.CommitBid(context.Background(), snapshot, &domain.Bid{
			ID:        []string{"bid_1", "bid_2", "bid_3"}[i],
			ListingID: "lst_1",
			BidderID:  "usr_a",
			Amount:    decimal.RequireFromString(amount),
			CreatedAt: now,
		}))
	}

	history, err := bids.ListForListing(context.Background(), "lst_1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "bid_3", history[0].ID)
	assert.Equal(t, "bid_2", history[1].ID)
	assert.Equal(t, "bid_1", history[2].ID)
}
