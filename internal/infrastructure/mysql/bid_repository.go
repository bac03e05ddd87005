package mysql

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"artmarket/internal/domain"
)

type MySQLBidRepository struct {
	db *sql.DB
}

func NewMySQLBidRepository(db *sql.DB) *MySQLBidRepository {
	return &MySQLBidRepository{db: db}
}

func (r *MySQLBidRepository) Append(ctx context.Context, bid *domain.Bid) error {
	query := `
        INSERT INTO bids (id, listing_id, bidder_id, amount, created_at)
        VALUES (?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		bid.ID, bid.ListingID, bid.BidderID, bid.Amount.StringFixed(2), bid.CreatedAt)
	return err
}

// ListForListing returns the history newest-first by the insert sequence, so
// read-back order is exactly commit order even when timestamps tie.
func (r *MySQLBidRepository) ListForListing(ctx context.Context, listingID string) ([]*domain.Bid, error) {
	query := `
        SELECT b.id, b.listing_id, b.bidder_id, u.display_name, b.amount, b.created_at
        FROM bids b LEFT JOIN users u ON u.id = b.bidder_id
        WHERE b.listing_id = ?
        ORDER BY b.seq DESC
    `
	return r.queryBids(ctx, query, listingID)
}

func (r *MySQLBidRepository) ListForBidder(ctx context.Context, bidderID string) ([]*domain.Bid, error) {
	query := `
        SELECT b.id, b.listing_id, b.bidder_id, u.display_name, b.amount, b.created_at
        FROM bids b LEFT JOIN users u ON u.id = b.bidder_id
        WHERE b.bidder_id = ?
        ORDER BY b.seq DESC
    `
	return r.queryBids(ctx, query, bidderID)
}

// CountForListing counts the same rows ListForListing returns. There is no
// separate counter to drift.
func (r *MySQLBidRepository) CountForListing(ctx context.Context, listingID string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bids WHERE listing_id = ?`, listingID).Scan(&count)
	return count, err
}

func (r *MySQLBidRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bids`).Scan(&count)
	return count, err
}

func (r *MySQLBidRepository) DeleteForListing(ctx context.Context, listingID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM bids WHERE listing_id = ?`, listingID)
	return err
}

func (r *MySQLBidRepository) DeleteForBidder(ctx context.Context, bidderID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM bids WHERE bidder_id = ?`, bidderID)
	return err
}

func (r *MySQLBidRepository) queryBids(ctx context.Context, query string, args ...interface{}) ([]*domain.Bid, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []*domain.Bid
	for rows.Next() {
		var (
			bid        domain.Bid
			amount     string
			bidderName sql.NullString
		)
		if err := rows.Scan(&bid.ID, &bid.ListingID, &bid.BidderID,
			&bidderName, &amount, &bid.CreatedAt); err != nil {
			return nil, err
		}
		bid.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, err
		}
		if bidderName.Valid {
			bid.BidderName = bidderName.String
		}
		bids = append(bids, &bid)
	}
	return bids, rows.Err()
}
