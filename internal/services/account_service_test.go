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

type staticIdentity struct {
	ident *domain.Identity
	err   error
}

func (s *staticIdentity) Resolve(ctx context.Context, token string) (*domain.Identity, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.ident, nil
}

func TestResolveCaller_CreatesBidderOnFirstSight(t *testing.T) {
	env := newTestEnv()
	svc := env.accountService(&staticIdentity{ident: &domain.Identity{
		ID:          "usr_new",
		Email:       "new@example.com",
		DisplayName: "New User",
	}})

	user, err := svc.ResolveCaller(context.Background(), "token")
	require.NoError(t, err)
	assert.Equal(t, "usr_new", user.ID)
	assert.Equal(t, domain.RoleBidder, user.Role)
}

func TestResolveCaller_KeepsAssignedRole(t *testing.T) {
	env := newTestEnv()
	svc := env.accountService(&staticIdentity{ident: &domain.Identity{
		ID:          "usr_1",
		Email:       "one@example.com",
		DisplayName: "One",
	}})

	_, err := svc.ResolveCaller(context.Background(), "token")
	require.NoError(t, err)
	require.NoError(t, svc.SetRole(context.Background(), "usr_1", domain.RoleArtist))

	// A later resolve refreshes profile fields but never resets the role.
	user, err := svc.ResolveCaller(context.Background(), "token")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleArtist, user.Role)
}

func TestResolveCaller_IdentityFailure(t *testing.T) {
	env := newTestEnv()
	svc := env.accountService(&staticIdentity{err: errors.New("provider down")})

	_, err := svc.ResolveCaller(context.Background(), "token")
	require.Error(t, err)
}

// cascadeFixture: the seller owns two listings, one with a bid from the
// buyer; the seller has also bid on someone else's listing.
func cascadeFixture(t *testing.T, env *testEnv) {
	t.Helper()
	env.seedUser("usr_seller", domain.RoleArtist)
	env.seedUser("usr_buyer", domain.RoleBidder)
	env.seedUser("usr_third", domain.RoleArtist)

	env.seedListing("lst_own_bid", "usr_seller", domain.ListingActive, "100.00",
		time.Now().Add(time.Hour))
	env.seedListing("lst_own_quiet", "usr_seller", domain.ListingActive, "50.00",
		time.Now().Add(time.Hour))
	env.seedListing("lst_other", "usr_third", domain.ListingActive, "80.00",
		time.Now().Add(time.Hour))

	svc := env.bidService()
	_, err := svc.PlaceBid(context.Background(), "lst_own_bid", "usr_buyer",
		decimal.RequireFromString("120.00"))
	require.NoError(t, err)
	_, err = svc.PlaceBid(context.Background(), "lst_other", "usr_seller",
		decimal.RequireFromString("90.00"))
	require.NoError(t, err)
}

func TestDeleteAccount_BlockedByActiveBidUponListing(t *testing.T) {
	env := newTestEnv()
	cascadeFixture(t, env)
	svc := env.accountService(&staticIdentity{})

	err := svc.DeleteAccount(context.Background(), "usr_seller", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))

	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"lst_own_bid"}, conflict.BlockingListings)

	// The refusal is all-or-nothing: everything is still there.
	_, err = env.users.Get(context.Background(), "usr_seller")
	require.NoError(t, err)
	_, err = env.listings.Get(context.Background(), "lst_own_quiet")
	require.NoError(t, err)
	total, err := env.bids.CountAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestDeleteAccount_ForcedCascade(t *testing.T) {
	env := newTestEnv()
	cascadeFixture(t, env)
	svc := env.accountService(&staticIdentity{})

	require.NoError(t, svc.DeleteAccount(context.Background(), "usr_seller", true))

	_, err := env.users.Get(context.Background(), "usr_seller")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	for _, id := range []string{"lst_own_bid", "lst_own_quiet"} {
		_, err := env.listings.Get(context.Background(), id)
		assert.True(t, errors.Is(err, domain.ErrNotFound), id)
	}

	// The seller's bid on someone else's listing is gone; the listing and
	// everyone else's bids survive.
	_, err = env.listings.Get(context.Background(), "lst_other")
	require.NoError(t, err)
	bids, err := env.bids.ListForBidder(context.Background(), "usr_seller")
	require.NoError(t, err)
	assert.Empty(t, bids)

	listing, err := env.listings.Get(context.Background(), "lst_other")
	require.NoError(t, err)
	assert.True(t, listing.CurrentPrice.Equal(decimal.RequireFromString("90.00")))
}

func TestDeleteAccount_ClosedListingsNeverBlock(t *testing.T) {
	env := newTestEnv()
	env.seedUser("usr_seller", domain.RoleArtist)
	env.seedListing("lst_sold", "usr_seller", domain.ListingSold, "300.00",
		time.Now().Add(-time.Hour))
	require.NoError(t, env.bids.Append(context.Background(), &domain.Bid{
		ID:        "bid_1",
		ListingID: "lst_sold",
		BidderID:  "usr_buyer",
		Amount:    decimal.RequireFromString("300.00"),
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}))

	svc := env.accountService(&staticIdentity{})
	require.NoError(t, svc.DeleteAccount(context.Background(), "usr_seller", false))

	_, err := env.users.Get(context.Background(), "usr_seller")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestDeleteAccount_UnknownUser(t *testing.T) {
	env := newTestEnv()
	svc := env.accountService(&staticIdentity{})

	err := svc.DeleteAccount(context.Background(), "usr_ghost", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestStats(t *testing.T) {
	env := newTestEnv()
	env.seedListing("lst_a", "usr_seller", domain.ListingSold, "300.00",
		time.Now().Add(-time.Hour))
	env.seedListing("lst_b", "usr_seller", domain.ListingSold, "200.50",
		time.Now().Add(-time.Hour))
	env.seedListing("lst_c", "usr_seller", domain.ListingExpired, "999.00",
		time.Now().Add(-time.Hour))
	env.seedListing("lst_d", "usr_seller", domain.ListingActive, "10.00",
		time.Now().Add(time.Hour))
	require.NoError(t, env.bids.Append(context.Background(), &domain.Bid{
		ID: "bid_1", ListingID: "lst_a", BidderID: "usr_buyer",
		Amount: decimal.RequireFromString("300.00"), CreatedAt: time.Now(),
	}))

	stats, err := env.accountService(&staticIdentity{}).Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats.ListingsByStatus["sold"])
	assert.Equal(t, int64(1), stats.ListingsByStatus["expired"])
	assert.Equal(t, int64(1), stats.ListingsByStatus["active"])
	assert.Equal(t, int64(1), stats.TotalBids)
	// Revenue counts sold closing prices only; expired listings contribute
	// nothing no matter their price.
	assert.Equal(t, "500.50", stats.Revenue)
}
