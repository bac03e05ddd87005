package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"artmarket/internal/domain"

	_ "github.com/go-sql-driver/mysql"
)

type MySQLListingRepository struct {
	db *sql.DB
}

func NewMySQLListingRepository(db *sql.DB) *MySQLListingRepository {
	return &MySQLListingRepository{db: db}
}

const listingColumns = `l.id, l.title, l.description, l.category, l.image_ref, l.image_external_id,
        l.starting_price, l.current_price, l.status, l.is_active, l.auction_start, l.end_time,
        l.owner_id, u.display_name, l.created_at, l.updated_at`

func (r *MySQLListingRepository) Create(ctx context.Context, listing *domain.Listing) error {
	query := `
        INSERT INTO listings (id, title, description, category, image_ref, image_external_id,
            starting_price, current_price, status, is_active, auction_start, end_time,
            owner_id, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		listing.ID, listing.Title, listing.Description, listing.Category,
		listing.ImageRef, listing.ImageExternalID,
		listing.StartingPrice.StringFixed(2), listing.CurrentPrice.StringFixed(2),
		int(listing.Status), listing.IsActive, listing.AuctionStart, listing.EndTime,
		listing.OwnerID, listing.CreatedAt, listing.UpdatedAt)
	return err
}

func (r *MySQLListingRepository) Get(ctx context.Context, id string) (*domain.Listing, error) {
	query := `
        SELECT ` + listingColumns + `
        FROM listings l LEFT JOIN users u ON u.id = l.owner_id
        WHERE l.id = ?
    `
	listing, err := scanListing(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.NotFoundError{Kind: "listing", ID: id}
		}
		return nil, err
	}
	return listing, nil
}

func (r *MySQLListingRepository) List(ctx context.Context, filter domain.ListingFilter) ([]*domain.Listing, error) {
	query := `
        SELECT ` + listingColumns + `
        FROM listings l LEFT JOIN users u ON u.id = l.owner_id
        WHERE l.is_active = TRUE
    `
	args := []interface{}{}
	if filter.Category != "" {
		query += " AND l.category = ?"
		args = append(args, filter.Category)
	}
	if filter.SearchText != "" {
		query += " AND (LOWER(l.title) LIKE ? OR LOWER(l.description) LIKE ?)"
		pattern := "%" + toLowerPattern(filter.SearchText) + "%"
		args = append(args, pattern, pattern)
	}
	query += " ORDER BY l.created_at DESC"

	return r.queryListings(ctx, query, args...)
}

func (r *MySQLListingRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Listing, error) {
	query := `
        SELECT ` + listingColumns + `
        FROM listings l LEFT JOIN users u ON u.id = l.owner_id
        WHERE l.owner_id = ?
        ORDER BY l.created_at DESC
    `
	return r.queryListings(ctx, query, ownerID)
}

func (r *MySQLListingRepository) ListExpiredActive(ctx context.Context, now time.Time) ([]*domain.Listing, error) {
	query := `
        SELECT ` + listingColumns + `
        FROM listings l LEFT JOIN users u ON u.id = l.owner_id
        WHERE l.status = ? AND l.end_time < ?
        ORDER BY l.end_time ASC
    `
	return r.queryListings(ctx, query, int(domain.ListingActive), now)
}

func (r *MySQLListingRepository) UpdatePrice(ctx context.Context, id string, newPrice decimal.Decimal) error {
	query := `UPDATE listings SET current_price = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, newPrice.StringFixed(2), time.Now(), id)
	if err != nil {
		return err
	}
	return requireRow(res, "listing", id)
}

func (r *MySQLListingRepository) UpdateStatus(ctx context.Context, id string, status domain.ListingStatus) error {
	// The transition guard runs inside the same statement: the row only
	// moves when its current status is a legal predecessor of the target.
	query := `UPDATE listings SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
	var from domain.ListingStatus
	switch status {
	case domain.ListingActive:
		from = domain.ListingPending
	case domain.ListingSold, domain.ListingExpired:
		from = domain.ListingActive
	default:
		return &domain.InvalidTransitionError{ListingID: id, To: status}
	}

	res, err := r.db.ExecContext(ctx, query, int(status), time.Now(), id, int(from))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		current, getErr := r.Get(ctx, id)
		if getErr != nil {
			return getErr
		}
		return &domain.InvalidTransitionError{ListingID: id, From: current.Status, To: status}
	}
	return nil
}

func (r *MySQLListingRepository) SetActive(ctx context.Context, id string, active bool) error {
	query := `UPDATE listings SET is_active = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, active, time.Now(), id)
	if err != nil {
		return err
	}
	return requireRow(res, "listing", id)
}

func (r *MySQLListingRepository) Delete(ctx context.Context, id string) error {
	// Bids never outlive the listing they reference; remove them in the
	// same transaction.
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM bids WHERE listing_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM listings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := requireRow(res, "listing", id); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *MySQLListingRepository) CommitBid(ctx context.Context, listing *domain.Listing, bid *domain.Bid) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Conditional update is the serialization point: it only lands when the
	// price is still the one the caller validated against.
	res, err := tx.ExecContext(ctx, `
        UPDATE listings SET current_price = ?, updated_at = ?
        WHERE id = ? AND status = ? AND current_price = ?
    `, bid.Amount.StringFixed(2), time.Now(), listing.ID,
		int(domain.ListingActive), listing.CurrentPrice.StringFixed(2))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrStaleSnapshot
	}

	if _, err := tx.ExecContext(ctx, `
        INSERT INTO bids (id, listing_id, bidder_id, amount, created_at)
        VALUES (?, ?, ?, ?, ?)
    `, bid.ID, bid.ListingID, bid.BidderID, bid.Amount.StringFixed(2), bid.CreatedAt); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *MySQLListingRepository) AggregateStats(ctx context.Context) (map[domain.ListingStatus]int64, decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM listings GROUP BY status`)
	if err != nil {
		return nil, decimal.Zero, err
	}
	defer rows.Close()

	counts := make(map[domain.ListingStatus]int64)
	for rows.Next() {
		var (
			status int
			count  int64
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, decimal.Zero, err
		}
		counts[domain.ListingStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, decimal.Zero, err
	}

	var revenueStr string
	err = r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(current_price), 0) FROM listings WHERE status = ?`,
		int(domain.ListingSold)).Scan(&revenueStr)
	if err != nil {
		return nil, decimal.Zero, err
	}
	revenue, err := decimal.NewFromString(revenueStr)
	if err != nil {
		return nil, decimal.Zero, err
	}
	return counts, revenue, nil
}

func (r *MySQLListingRepository) queryListings(ctx context.Context, query string, args ...interface{}) ([]*domain.Listing, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []*domain.Listing
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, listing)
	}
	return listings, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanListing(row rowScanner) (*domain.Listing, error) {
	var (
		listing      domain.Listing
		starting     string
		current      string
		status       int
		ownerName    sql.NullString
		auctionStart sql.NullTime
	)
	err := row.Scan(&listing.ID, &listing.Title, &listing.Description, &listing.Category,
		&listing.ImageRef, &listing.ImageExternalID, &starting, &current, &status,
		&listing.IsActive, &auctionStart, &listing.EndTime,
		&listing.OwnerID, &ownerName, &listing.CreatedAt, &listing.UpdatedAt)
	if err != nil {
		return nil, err
	}

	listing.StartingPrice, err = decimal.NewFromString(starting)
	if err != nil {
		return nil, fmt.Errorf("listing %s: bad starting price %q: %w", listing.ID, starting, err)
	}
	listing.CurrentPrice, err = decimal.NewFromString(current)
	if err != nil {
		return nil, fmt.Errorf("listing %s: bad current price %q: %w", listing.ID, current, err)
	}
	listing.Status = domain.ListingStatus(status)
	if ownerName.Valid {
		listing.OwnerName = ownerName.String
	}
	if auctionStart.Valid {
		t := auctionStart.Time
		listing.AuctionStart = &t
	}
	return &listing, nil
}

func toLowerPattern(s string) string {
	// LIKE wildcards in user input are treated literally.
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

func requireRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &domain.NotFoundError{Kind: kind, ID: id}
	}
	return nil
}
