package store

const Schema = `
CREATE TABLE IF NOT EXISTS archive_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	identifier TEXT UNIQUE NOT NULL,

	-- Remote document
	created INTEGER NOT NULL DEFAULT 0,
	d1 TEXT NOT NULL DEFAULT '',
	d2 TEXT NOT NULL DEFAULT '',
	dir TEXT NOT NULL DEFAULT '',
	files_count INTEGER NOT NULL DEFAULT 0,
	item_last_updated INTEGER NOT NULL DEFAULT 0,
	item_size INTEGER NOT NULL DEFAULT 0,
	server TEXT NOT NULL DEFAULT '',
	uniq INTEGER NOT NULL DEFAULT 0,
	workable_servers TEXT NOT NULL DEFAULT '[]',  -- JSON array
	metadata TEXT,  -- verbatim remote metadata object

	-- Normalized at ingest
	title TEXT NOT NULL DEFAULT '',
	creator TEXT NOT NULL DEFAULT '',
	date TEXT NOT NULL DEFAULT '',
	venue TEXT NOT NULL DEFAULT '',
	year TEXT NOT NULL DEFAULT '',
	collection TEXT NOT NULL DEFAULT '[]',  -- JSON array
	avg_rating REAL,
	num_reviews INTEGER,

	-- Local bookkeeping
	is_backed_up BOOLEAN NOT NULL DEFAULT 0,
	backup_date DATETIME,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_archive_items_created ON archive_items(created_at);
CREATE INDEX IF NOT EXISTS idx_archive_items_year ON archive_items(year);

CREATE TABLE IF NOT EXISTS archive_files (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	item_identifier TEXT NOT NULL REFERENCES archive_items(identifier) ON DELETE CASCADE,
	name TEXT NOT NULL,

	-- Remote listing
	source TEXT NOT NULL DEFAULT '',
	format TEXT NOT NULL DEFAULT '',
	mtime TEXT NOT NULL DEFAULT '',
	size TEXT NOT NULL DEFAULT '',
	md5 TEXT NOT NULL DEFAULT '',
	crc32 TEXT NOT NULL DEFAULT '',
	sha1 TEXT NOT NULL DEFAULT '',
	length TEXT NOT NULL DEFAULT '',
	height TEXT NOT NULL DEFAULT '',
	width TEXT NOT NULL DEFAULT '',
	track TEXT NOT NULL DEFAULT '',
	album TEXT NOT NULL DEFAULT '',
	artist TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL DEFAULT '',
	bitrate TEXT NOT NULL DEFAULT '',
	creator TEXT NOT NULL DEFAULT '',
	private BOOLEAN NOT NULL DEFAULT 0,
	rotation TEXT NOT NULL DEFAULT '',
	summation TEXT NOT NULL DEFAULT '',

	-- Local state
	has_artwork BOOLEAN NOT NULL DEFAULT 0,
	local_path TEXT NOT NULL DEFAULT '',
	is_downloaded BOOLEAN NOT NULL DEFAULT 0,
	download_date DATETIME,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,

	UNIQUE(item_identifier, name)
);

CREATE INDEX IF NOT EXISTS idx_archive_files_item ON archive_files(item_identifier);

CREATE TABLE IF NOT EXISTS archive_item_stats (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	item_identifier TEXT UNIQUE NOT NULL REFERENCES archive_items(identifier) ON DELETE CASCADE,
	avg_rating REAL,
	num_reviews INTEGER,
	stars TEXT,  -- JSON as returned by the search endpoint
	downloads INTEGER,
	downloads_week INTEGER,
	downloads_month INTEGER,
	last_updated DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS archive_item_reviews (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	item_identifier TEXT NOT NULL REFERENCES archive_items(identifier) ON DELETE CASCADE,
	review_body TEXT NOT NULL DEFAULT '',
	review_title TEXT NOT NULL DEFAULT '',
	reviewer TEXT NOT NULL DEFAULT '',
	review_date TEXT NOT NULL DEFAULT '',
	create_date TEXT NOT NULL DEFAULT '',
	stars TEXT NOT NULL DEFAULT '',
	reviewer_itemname TEXT NOT NULL DEFAULT '',
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_archive_item_reviews_item ON archive_item_reviews(item_identifier);

-- Jobs are kept for identifiers that never made it into archive_items
CREATE TABLE IF NOT EXISTS backup_jobs (
	id TEXT PRIMARY KEY,
	identifier TEXT NOT NULL,
	job_type TEXT NOT NULL,
	status TEXT NOT NULL,
	progress REAL NOT NULL DEFAULT 0,
	started_at DATETIME,
	completed_at DATETIME,
	error_message TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_backup_jobs_identifier ON backup_jobs(identifier);
CREATE INDEX IF NOT EXISTS idx_backup_jobs_created ON backup_jobs(created_at);

CREATE TABLE IF NOT EXISTS cache (
	key TEXT PRIMARY KEY,
	data BLOB,
	expires_at DATETIME
);
`
