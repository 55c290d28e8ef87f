package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/cesargomez89/archivebackup/internal/domain"
)

// ReplaceReviews deletes the stored reviews of an item and inserts the given set.
func (u *UnitOfWork) ReplaceReviews(ctx context.Context, identifier string, reviews []*domain.Review) (int, error) {
	if _, err := u.tx.ExecContext(ctx, `DELETE FROM archive_item_reviews WHERE item_identifier = ?`, identifier); err != nil {
		return 0, fmt.Errorf("failed to clear reviews for %s: %w", identifier, err)
	}

	query := `INSERT INTO archive_item_reviews (
		item_identifier, review_body, review_title, reviewer, review_date, create_date, stars, reviewer_itemname, created_at
	) VALUES (
		:item_identifier, :review_body, :review_title, :reviewer, :review_date, :create_date, :stars, :reviewer_itemname, :created_at
	)`
	for _, r := range reviews {
		r.ItemIdentifier = identifier
		if _, err := sqlx.NamedExecContext(ctx, u.tx, query, r); err != nil {
			return 0, classify(fmt.Errorf("failed to insert review for %s: %w", identifier, err))
		}
	}
	return len(reviews), nil
}

func (db *DB) ListReviews(ctx context.Context, identifier string) ([]*domain.Review, error) {
	var reviews []*domain.Review
	err := db.SelectContext(ctx, &reviews, `SELECT id, item_identifier, review_body, review_title, reviewer,
		review_date, create_date, stars, reviewer_itemname, created_at
		FROM archive_item_reviews WHERE item_identifier = ? ORDER BY id ASC`, identifier)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews for %s: %w", identifier, err)
	}
	return reviews, nil
}

// UpsertStats keeps at most one stats row per item.
func (u *UnitOfWork) UpsertStats(ctx context.Context, identifier string, stats *domain.Stats) error {
	stats.ItemIdentifier = identifier
	query := `INSERT INTO archive_item_stats (
		item_identifier, avg_rating, num_reviews, stars, downloads, downloads_week, downloads_month, last_updated
	) VALUES (
		:item_identifier, :avg_rating, :num_reviews, :stars, :downloads, :downloads_week, :downloads_month, :last_updated
	) ON CONFLICT(item_identifier) DO UPDATE SET
		avg_rating = excluded.avg_rating, num_reviews = excluded.num_reviews, stars = excluded.stars,
		downloads = excluded.downloads, downloads_week = excluded.downloads_week,
		downloads_month = excluded.downloads_month, last_updated = excluded.last_updated`
	if _, err := sqlx.NamedExecContext(ctx, u.tx, query, stats); err != nil {
		return classify(fmt.Errorf("failed to upsert stats for %s: %w", identifier, err))
	}
	return nil
}

// FindStats returns nil, nil when the item has no stats row.
func (db *DB) FindStats(ctx context.Context, identifier string) (*domain.Stats, error) {
	stats := &domain.Stats{}
	err := db.GetContext(ctx, stats, `SELECT id, item_identifier, avg_rating, num_reviews, stars, downloads,
		downloads_week, downloads_month, last_updated FROM archive_item_stats WHERE item_identifier = ?`, identifier)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find stats for %s: %w", identifier, err)
	}
	return stats, nil
}
