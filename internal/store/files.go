package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cesargomez89/archivebackup/internal/domain"
)

const fileColumns = `id, item_identifier, name, source, format, mtime, size, md5, crc32, sha1, length,
	height, width, track, album, artist, title, bitrate, creator, private, rotation, summation,
	has_artwork, local_path, is_downloaded, download_date, created_at, updated_at`

const insertFile = `INSERT INTO archive_files (
	item_identifier, name, source, format, mtime, size, md5, crc32, sha1, length, height, width,
	track, album, artist, title, bitrate, creator, private, rotation, summation,
	has_artwork, local_path, is_downloaded, download_date, created_at, updated_at
) VALUES (
	:item_identifier, :name, :source, :format, :mtime, :size, :md5, :crc32, :sha1, :length, :height, :width,
	:track, :album, :artist, :title, :bitrate, :creator, :private, :rotation, :summation,
	:has_artwork, :local_path, :is_downloaded, :download_date, :created_at, :updated_at
)`

// Tag-derived columns keep their local value when the listing leaves them blank.
const remoteFileUpdate = `
	source = excluded.source, format = excluded.format, mtime = excluded.mtime, size = excluded.size,
	md5 = excluded.md5, crc32 = excluded.crc32, sha1 = excluded.sha1, length = excluded.length,
	height = excluded.height, width = excluded.width,
	track = CASE WHEN excluded.track != '' THEN excluded.track ELSE archive_files.track END,
	album = CASE WHEN excluded.album != '' THEN excluded.album ELSE archive_files.album END,
	artist = CASE WHEN excluded.artist != '' THEN excluded.artist ELSE archive_files.artist END,
	title = CASE WHEN excluded.title != '' THEN excluded.title ELSE archive_files.title END,
	bitrate = excluded.bitrate, creator = excluded.creator, private = excluded.private,
	rotation = excluded.rotation, summation = excluded.summation, updated_at = excluded.updated_at`

func findFile(ctx context.Context, q sqlx.QueryerContext, identifier, name string) (*domain.File, error) {
	file := &domain.File{}
	err := sqlx.GetContext(ctx, q, file,
		`SELECT `+fileColumns+` FROM archive_files WHERE item_identifier = ? AND name = ?`, identifier, name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find file %s/%s: %w", identifier, name, err)
	}
	return file, nil
}

// FindFile returns nil, nil when no record exists.
func (db *DB) FindFile(ctx context.Context, identifier, name string) (*domain.File, error) {
	return findFile(ctx, db.DB, identifier, name)
}

func (u *UnitOfWork) FindFile(ctx context.Context, identifier, name string) (*domain.File, error) {
	return findFile(ctx, u.tx, identifier, name)
}

// UpsertFile writes every column of the record, local state included.
func (u *UnitOfWork) UpsertFile(ctx context.Context, file *domain.File) error {
	query := insertFile + ` ON CONFLICT(item_identifier, name) DO UPDATE SET` + remoteFileUpdate + `,
		has_artwork = excluded.has_artwork, local_path = excluded.local_path,
		is_downloaded = excluded.is_downloaded, download_date = excluded.download_date`
	if _, err := sqlx.NamedExecContext(ctx, u.tx, query, file); err != nil {
		return classify(fmt.Errorf("failed to upsert file %s/%s: %w", file.ItemIdentifier, file.Name, err))
	}
	return nil
}

// SyncFiles upserts the remote listing of an item without touching local download state.
func (u *UnitOfWork) SyncFiles(ctx context.Context, files []*domain.File) error {
	query := insertFile + ` ON CONFLICT(item_identifier, name) DO UPDATE SET` + remoteFileUpdate
	for _, file := range files {
		if _, err := sqlx.NamedExecContext(ctx, u.tx, query, file); err != nil {
			return classify(fmt.Errorf("failed to sync file %s/%s: %w", file.ItemIdentifier, file.Name, err))
		}
	}
	return nil
}

// DemoteMissingFiles clears is_downloaded on rows of identifier whose name is
// not in names. The local_path is kept. It returns the number of rows changed.
func (u *UnitOfWork) DemoteMissingFiles(ctx context.Context, identifier string, names []string) (int64, error) {
	query := `UPDATE archive_files SET is_downloaded = 0, download_date = NULL, updated_at = ?
		WHERE item_identifier = ? AND is_downloaded = 1`
	args := []interface{}{time.Now().UTC(), identifier}

	if len(names) > 0 {
		q, inArgs, err := sqlx.In(query+` AND name NOT IN (?)`, append(args, names)...)
		if err != nil {
			return 0, err
		}
		query, args = u.tx.Rebind(q), inArgs
	}

	res, err := u.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, classify(fmt.Errorf("failed to demote files of %s: %w", identifier, err))
	}
	return res.RowsAffected()
}

func (db *DB) ListFiles(ctx context.Context, identifier string) ([]*domain.File, error) {
	var files []*domain.File
	err := db.SelectContext(ctx, &files,
		`SELECT `+fileColumns+` FROM archive_files WHERE item_identifier = ? ORDER BY id ASC`, identifier)
	if err != nil {
		return nil, fmt.Errorf("failed to list files for %s: %w", identifier, err)
	}
	return files, nil
}

// FileCounts reports total and downloaded files for an item.
func (db *DB) FileCounts(ctx context.Context, identifier string) (total, downloaded int, err error) {
	var row struct {
		Total      int `db:"total"`
		Downloaded int `db:"downloaded"`
	}
	err = db.GetContext(ctx, &row, `SELECT COUNT(*) AS total, COALESCE(SUM(is_downloaded), 0) AS downloaded
		FROM archive_files WHERE item_identifier = ?`, identifier)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count files for %s: %w", identifier, err)
	}
	return row.Total, row.Downloaded, nil
}
