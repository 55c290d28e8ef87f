package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cesargomez89/archivebackup/internal/domain"
)

const itemColumns = `i.id, i.identifier, i.created, i.d1, i.d2, i.dir, i.files_count, i.item_last_updated,
	i.item_size, i.server, i.uniq, i.workable_servers, i.metadata, i.title, i.creator, i.date, i.venue,
	i.year, i.collection, i.avg_rating, i.num_reviews, i.is_backed_up, i.backup_date, i.created_at, i.updated_at`

// ItemSummary is an Item with file counters and stats joined in.
type ItemSummary struct {
	domain.Item
	StatsAvgRating  *float64 `db:"stats_avg_rating"`
	StatsNumReviews *int64   `db:"stats_num_reviews"`
	TotalFiles      int      `db:"total_files"`
	DownloadedFiles int      `db:"downloaded_files"`
}

// Rating prefers the normalized metadata value and falls back to the stats row.
func (s *ItemSummary) Rating() *float64 {
	if s.AvgRating != nil {
		return s.AvgRating
	}
	return s.StatsAvgRating
}

func (s *ItemSummary) ReviewCount() *int64 {
	if s.NumReviews != nil {
		return s.NumReviews
	}
	return s.StatsNumReviews
}

// ItemFilter narrows ListItems. Empty fields are ignored.
// In substring mode every filter is a LIKE over the stored metadata JSON;
// in structured mode the normalized columns are used.
type ItemFilter struct {
	SearchTerm string
	Venue      string
	MinRating  string
	StartYear  string
	EndYear    string
	Creator    string
	Structured bool
}

func (f ItemFilter) where() (string, []interface{}) {
	var conds []string
	var args []interface{}

	like := func(col, pattern string) {
		conds = append(conds, col+" LIKE ?")
		args = append(args, pattern)
	}

	if !f.Structured {
		if f.SearchTerm != "" {
			like("i.metadata", "%"+f.SearchTerm+"%")
		}
		if f.Venue != "" {
			like("i.metadata", "%"+f.Venue+"%")
		}
		if f.MinRating != "" {
			like("i.metadata", `%"avg_rating":"`+f.MinRating+`%`)
		}
		if f.StartYear != "" {
			like("i.metadata", `%"year":"`+f.StartYear+`%`)
		}
		if f.EndYear != "" {
			like("i.metadata", `%"year":"`+f.EndYear+`%`)
		}
		if f.Creator != "" {
			like("i.metadata", "%"+f.Creator+"%")
		}
	} else {
		if f.SearchTerm != "" {
			p := "%" + f.SearchTerm + "%"
			conds = append(conds, "(i.title LIKE ? OR i.creator LIKE ? OR i.venue LIKE ? OR i.identifier LIKE ?)")
			args = append(args, p, p, p, p)
		}
		if f.Venue != "" {
			like("i.venue", "%"+f.Venue+"%")
		}
		if r, err := strconv.ParseFloat(f.MinRating, 64); err == nil {
			conds = append(conds, "COALESCE(i.avg_rating, s.avg_rating) >= ?")
			args = append(args, r)
		}
		if y, err := strconv.Atoi(f.StartYear); err == nil {
			conds = append(conds, "(i.year != '' AND CAST(i.year AS INTEGER) >= ?)")
			args = append(args, y)
		}
		if y, err := strconv.Atoi(f.EndYear); err == nil {
			conds = append(conds, "(i.year != '' AND CAST(i.year AS INTEGER) <= ?)")
			args = append(args, y)
		}
		if f.Creator != "" {
			like("i.creator", "%"+f.Creator+"%")
		}
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func findItem(ctx context.Context, q sqlx.QueryerContext, identifier string) (*domain.Item, error) {
	item := &domain.Item{}
	err := sqlx.GetContext(ctx, q, item, `SELECT `+itemColumns+` FROM archive_items i WHERE i.identifier = ?`, identifier)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find item %s: %w", identifier, err)
	}
	return item, nil
}

// FindItem returns nil, nil when the identifier is unknown.
func (db *DB) FindItem(ctx context.Context, identifier string) (*domain.Item, error) {
	return findItem(ctx, db.DB, identifier)
}

func (u *UnitOfWork) FindItem(ctx context.Context, identifier string) (*domain.Item, error) {
	return findItem(ctx, u.tx, identifier)
}

// UpsertItem creates the item or overwrites every remote-origin column of an
// existing one, leaving local bookkeeping alone. It reports whether a row was created.
func (u *UnitOfWork) UpsertItem(ctx context.Context, item *domain.Item) (bool, error) {
	existing, err := findItem(ctx, u.tx, item.Identifier)
	if err != nil {
		return false, err
	}

	if existing == nil {
		query := `INSERT INTO archive_items (
			identifier, created, d1, d2, dir, files_count, item_last_updated, item_size, server, uniq,
			workable_servers, metadata, title, creator, date, venue, year, collection, avg_rating, num_reviews,
			is_backed_up, backup_date, created_at, updated_at
		) VALUES (
			:identifier, :created, :d1, :d2, :dir, :files_count, :item_last_updated, :item_size, :server, :uniq,
			:workable_servers, :metadata, :title, :creator, :date, :venue, :year, :collection, :avg_rating, :num_reviews,
			:is_backed_up, :backup_date, :created_at, :updated_at
		)`
		res, err := sqlx.NamedExecContext(ctx, u.tx, query, item)
		if err != nil {
			return false, classify(fmt.Errorf("failed to insert item %s: %w", item.Identifier, err))
		}
		if id, err := res.LastInsertId(); err == nil {
			item.ID = id
		}
		return true, nil
	}

	query := `UPDATE archive_items SET
		created = :created, d1 = :d1, d2 = :d2, dir = :dir, files_count = :files_count,
		item_last_updated = :item_last_updated, item_size = :item_size, server = :server, uniq = :uniq,
		workable_servers = :workable_servers, metadata = :metadata, title = :title, creator = :creator,
		date = :date, venue = :venue, year = :year, collection = :collection, avg_rating = :avg_rating,
		num_reviews = :num_reviews, updated_at = :updated_at
		WHERE identifier = :identifier`
	if _, err := sqlx.NamedExecContext(ctx, u.tx, query, item); err != nil {
		return false, classify(fmt.Errorf("failed to update item %s: %w", item.Identifier, err))
	}

	item.ID = existing.ID
	item.CreatedAt = existing.CreatedAt
	item.IsBackedUp = existing.IsBackedUp
	item.BackupDate = existing.BackupDate
	return false, nil
}

// MarkItemBackedUp sets is_backed_up and backup_date.
func (u *UnitOfWork) MarkItemBackedUp(ctx context.Context, identifier string, at time.Time) error {
	res, err := u.tx.ExecContext(ctx,
		`UPDATE archive_items SET is_backed_up = 1, backup_date = ?, updated_at = ? WHERE identifier = ?`,
		at, at, identifier)
	if err != nil {
		return classify(fmt.Errorf("failed to mark item %s backed up: %w", identifier, err))
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotBackedUp, identifier)
	}
	return nil
}

const summaryQuery = `SELECT ` + itemColumns + `,
	s.avg_rating AS stats_avg_rating,
	s.num_reviews AS stats_num_reviews,
	(SELECT COUNT(*) FROM archive_files f WHERE f.item_identifier = i.identifier) AS total_files,
	(SELECT COUNT(*) FROM archive_files f WHERE f.item_identifier = i.identifier AND f.is_downloaded = 1) AS downloaded_files
	FROM archive_items i
	LEFT JOIN archive_item_stats s ON s.item_identifier = i.identifier`

// ListItems returns one page of items, newest first, and the total match count.
func (db *DB) ListItems(ctx context.Context, page, perPage int, filter ItemFilter) ([]*ItemSummary, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}

	where, args := filter.where()

	var total int
	countQuery := `SELECT COUNT(*) FROM archive_items i LEFT JOIN archive_item_stats s ON s.item_identifier = i.identifier` + where
	if err := db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count items: %w", err)
	}

	query := summaryQuery + where + ` ORDER BY i.created_at DESC, i.id DESC LIMIT ? OFFSET ?`
	pageArgs := append(append([]interface{}{}, args...), perPage, (page-1)*perPage)

	var items []*ItemSummary
	if err := db.SelectContext(ctx, &items, query, pageArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to list items: %w", err)
	}
	return items, total, nil
}

// ItemIdentifiers reports which of the given identifiers are stored locally.
func (db *DB) ItemIdentifiers(ctx context.Context, identifiers []string) (map[string]bool, error) {
	found := make(map[string]bool, len(identifiers))
	if len(identifiers) == 0 {
		return found, nil
	}

	query, args, err := sqlx.In(`SELECT identifier FROM archive_items WHERE identifier IN (?)`, identifiers)
	if err != nil {
		return nil, err
	}

	var rows []string
	if err := db.SelectContext(ctx, &rows, db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to look up identifiers: %w", err)
	}
	for _, id := range rows {
		found[id] = true
	}
	return found, nil
}
