// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package myrient

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store is the catalog's persistence interface. SQLiteStore is the only
// implementation, but code that only needs to read or write FileRecords
// depends on this interface so it can be faked in tests.
type Store interface {
	// UpsertDiscovery records a freshly-crawled file. If the URL is
	// already cataloged, its classification fields are refreshed but its
	// download-state fields (Status, LocalPath, BytesDownloaded,
	// DownloadAttempts, ErrorMessage, CompletedAt, Checksum, ...) are left
	// untouched, and inserted is false.
	UpsertDiscovery(ctx context.Context, f FileRecord) (inserted bool, err error)

	// UpdateDownloadState persists f's download-state fields (Status,
	// BytesDownloaded, DownloadAttempts, ErrorMessage, CompletedAt,
	// Checksum, ChecksumType, AverageDownloadSpeed, IsSpeedLimited,
	// LocalPath) keyed by f.URL.
	UpdateDownloadState(ctx context.Context, f FileRecord) error

	// Get returns the cataloged record for url, or ErrNotFound.
	Get(ctx context.Context, url string) (FileRecord, error)

	// List returns records matching filter, most recently added first.
	List(ctx context.Context, filter ListFilter) ([]FileRecord, error)

	// Stats aggregates the whole catalog.
	Stats(ctx context.Context) (CatalogStats, error)

	// SearchByNameSubstring returns files whose name contains query
	// (case-insensitive), most recently added first, limited to limit
	// (0 = unlimited). This is a plain substring lookup for callers that
	// want a direct catalog query instead of Searcher's scored strategies.
	SearchByNameSubstring(ctx context.Context, query string, limit int) ([]FileRecord, error)

	// DistinctConsoles returns every distinct non-empty console value in
	// the catalog, alphabetically sorted.
	DistinctConsoles(ctx context.Context) ([]string, error)

	// DistinctCollections returns every distinct collection present in
	// the catalog, alphabetically sorted.
	DistinctCollections(ctx context.Context) ([]Collection, error)

	// GamesByCollection returns files belonging to collection, most
	// recently added first, limited to limit (0 = unlimited).
	GamesByCollection(ctx context.Context, collection Collection, limit int) ([]FileRecord, error)

	// Close releases the underlying database handle.
	Close() error
}

// SQLiteStore is a Store backed by a pure-Go SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS game_files (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	url TEXT UNIQUE NOT NULL,
	name TEXT NOT NULL,
	size INTEGER,
	parent_path TEXT NOT NULL,
	file_type TEXT NOT NULL,
	console TEXT,
	region TEXT,
	collection TEXT DEFAULT 'Unknown',
	collection_update_frequency TEXT,
	file_format TEXT,
	requires_conversion INTEGER DEFAULT 0,
	is_torrentzipped INTEGER DEFAULT 0,
	torrentzip_crc32 TEXT,
	checksum TEXT,
	checksum_type TEXT,
	last_modified TEXT,
	etag TEXT,
	is_recent_upload INTEGER DEFAULT 0,
	status TEXT CHECK(status IN ('pending','downloading','completed','failed','paused')) DEFAULT 'pending',
	local_path TEXT,
	bytes_downloaded INTEGER DEFAULT 0,
	download_attempts INTEGER DEFAULT 0,
	error_message TEXT,
	added_at TEXT NOT NULL,
	completed_at TEXT,
	average_download_speed REAL,
	is_speed_limited INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS download_sessions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	url TEXT NOT NULL,
	started_at TEXT NOT NULL,
	ended_at TEXT,
	bytes_transferred INTEGER DEFAULT 0,
	average_speed REAL DEFAULT 0,
	outcome TEXT
);

CREATE INDEX IF NOT EXISTS idx_status ON game_files(status);
CREATE INDEX IF NOT EXISTS idx_console ON game_files(console);
CREATE INDEX IF NOT EXISTS idx_name ON game_files(name);
CREATE INDEX IF NOT EXISTS idx_parent_path ON game_files(parent_path);
CREATE INDEX IF NOT EXISTS idx_collection ON game_files(collection);
CREATE INDEX IF NOT EXISTS idx_file_format ON game_files(file_format);
`

// OpenSQLiteStore opens (creating if necessary) the SQLite database at
// path and ensures its schema exists.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &CatalogError{Op: "open", Err: err}
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers anyway

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, &CatalogError{Op: "migrate", Err: err}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertDiscovery(ctx context.Context, f FileRecord) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO game_files (
			url, name, size, parent_path, file_type, console, region,
			collection, collection_update_frequency, file_format,
			requires_conversion, is_torrentzipped, torrentzip_crc32,
			last_modified, etag, status, added_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO NOTHING
	`,
		f.URL, f.Name, f.Size, f.ParentPath, f.FileType, nullIfEmpty(f.Console), nullIfEmpty(f.Region),
		string(f.Collection), nullIfEmpty(f.CollectionUpdateFrequency), nullIfEmpty(string(f.FileFormat)),
		boolToInt(f.RequiresConversion), boolToInt(f.IsTorrentZipped), nullIfEmpty(f.TorrentZipCRC32),
		nullIfEmpty(f.LastModified), nullIfEmpty(f.ETag), string(StatusPending), f.AddedAt.Format(time.RFC3339),
	)
	if err != nil {
		return false, &CatalogError{Op: "upsert", URL: f.URL, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, &CatalogError{Op: "upsert", URL: f.URL, Err: err}
	}
	if n == 1 {
		return true, nil
	}

	// Already cataloged: refresh classification/metadata only, preserving
	// every download-state field (status, bytes_downloaded, attempts, ...).
	_, err = s.db.ExecContext(ctx, `
		UPDATE game_files SET
			name=?, size=?, parent_path=?, file_type=?, console=?, region=?,
			collection=?, collection_update_frequency=?, file_format=?,
			requires_conversion=?, is_torrentzipped=?, torrentzip_crc32=?,
			last_modified=?, etag=?
		WHERE url=?
	`,
		f.Name, f.Size, f.ParentPath, f.FileType, nullIfEmpty(f.Console), nullIfEmpty(f.Region),
		string(f.Collection), nullIfEmpty(f.CollectionUpdateFrequency), nullIfEmpty(string(f.FileFormat)),
		boolToInt(f.RequiresConversion), boolToInt(f.IsTorrentZipped), nullIfEmpty(f.TorrentZipCRC32),
		nullIfEmpty(f.LastModified), nullIfEmpty(f.ETag), f.URL,
	)
	if err != nil {
		return false, &CatalogError{Op: "upsert", URL: f.URL, Err: err}
	}
	return false, nil
}

func (s *SQLiteStore) UpdateDownloadState(ctx context.Context, f FileRecord) error {
	var completedAt any
	if f.CompletedAt != nil {
		completedAt = f.CompletedAt.Format(time.RFC3339)
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE game_files SET
			status=?, local_path=?, bytes_downloaded=?, download_attempts=?,
			error_message=?, checksum=?, checksum_type=?, completed_at=?,
			average_download_speed=?, is_speed_limited=?
		WHERE url=?
	`,
		string(f.Status), nullIfEmpty(f.LocalPath), f.BytesDownloaded, f.DownloadAttempts,
		nullIfEmpty(f.ErrorMessage), nullIfEmpty(f.Checksum), nullIfEmpty(f.ChecksumType), completedAt,
		f.AverageDownloadSpeed, boolToInt(f.IsSpeedLimited), f.URL,
	)
	if err != nil {
		return &CatalogError{Op: "update", URL: f.URL, Err: err}
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, url string) (FileRecord, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" WHERE url = ?", url)
	f, err := scanFileRecord(row)
	if err == sql.ErrNoRows {
		return FileRecord{}, ErrNotFound
	}
	if err != nil {
		return FileRecord{}, &CatalogError{Op: "get", URL: url, Err: err}
	}
	return f, nil
}

const selectColumns = `SELECT
	url, name, size, parent_path, file_type, console, region,
	collection, collection_update_frequency, file_format,
	requires_conversion, is_torrentzipped, torrentzip_crc32,
	checksum, checksum_type, last_modified, etag, is_recent_upload,
	status, local_path, bytes_downloaded, download_attempts, error_message,
	added_at, completed_at, average_download_speed, is_speed_limited
	FROM game_files`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFileRecord(row rowScanner) (FileRecord, error) {
	var f FileRecord
	var console, region, collectionFreq, fileFormat, crc32, checksum, checksumType sql.NullString
	var lastModified, etag, localPath, errMsg, completedAt sql.NullString
	var avgSpeed sql.NullFloat64
	var requiresConv, isTZ, isRecent, isSpeedLimited int
	var addedAt string
	var collection string

	if err := row.Scan(
		&f.URL, &f.Name, &f.Size, &f.ParentPath, &f.FileType, &console, &region,
		&collection, &collectionFreq, &fileFormat,
		&requiresConv, &isTZ, &crc32,
		&checksum, &checksumType, &lastModified, &etag, &isRecent,
		&f.Status, &localPath, &f.BytesDownloaded, &f.DownloadAttempts, &errMsg,
		&addedAt, &completedAt, &avgSpeed, &isSpeedLimited,
	); err != nil {
		return FileRecord{}, err
	}

	f.Console = console.String
	f.Region = region.String
	f.Collection = Collection(collection)
	f.CollectionUpdateFrequency = collectionFreq.String
	f.FileFormat = FileFormat(fileFormat.String)
	f.RequiresConversion = requiresConv != 0
	f.IsTorrentZipped = isTZ != 0
	f.TorrentZipCRC32 = crc32.String
	f.Checksum = checksum.String
	f.ChecksumType = checksumType.String
	f.LastModified = lastModified.String
	f.ETag = etag.String
	f.IsRecentUpload = isRecent != 0
	f.LocalPath = localPath.String
	f.ErrorMessage = errMsg.String
	f.AverageDownloadSpeed = avgSpeed.Float64
	f.IsSpeedLimited = isSpeedLimited != 0

	if t, err := time.Parse(time.RFC3339, addedAt); err == nil {
		f.AddedAt = t
	}
	if completedAt.Valid && completedAt.String != "" {
		if t, err := time.Parse(time.RFC3339, completedAt.String); err == nil {
			f.CompletedAt = &t
		}
	}

	return f, nil
}

func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]FileRecord, error) {
	query := selectColumns + " WHERE 1=1"
	var args []any

	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if filter.Console != "" {
		query += " AND console = ?"
		args = append(args, filter.Console)
	}
	if filter.Collection != "" {
		query += " AND collection = ?"
		args = append(args, string(filter.Collection))
	}

	query += " ORDER BY added_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &CatalogError{Op: "list", Err: err}
	}
	defer rows.Close()

	var out []FileRecord
	for rows.Next() {
		f, err := scanFileRecord(rows)
		if err != nil {
			return nil, &CatalogError{Op: "list", Err: err}
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SearchByNameSubstring(ctx context.Context, query string, limit int) ([]FileRecord, error) {
	q := selectColumns + " WHERE name LIKE ? ESCAPE '\\' ORDER BY added_at DESC"
	args := []any{"%" + escapeLike(query) + "%"}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, &CatalogError{Op: "search_by_name_substring", Err: err}
	}
	defer rows.Close()

	var out []FileRecord
	for rows.Next() {
		f, err := scanFileRecord(rows)
		if err != nil {
			return nil, &CatalogError{Op: "search_by_name_substring", Err: err}
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DistinctConsoles(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT console FROM game_files
		WHERE console IS NOT NULL AND console != ''
		ORDER BY console ASC
	`)
	if err != nil {
		return nil, &CatalogError{Op: "distinct_consoles", Err: err}
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var console string
		if err := rows.Scan(&console); err != nil {
			return nil, &CatalogError{Op: "distinct_consoles", Err: err}
		}
		out = append(out, console)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DistinctCollections(ctx context.Context) ([]Collection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT collection FROM game_files
		WHERE collection IS NOT NULL AND collection != ''
		ORDER BY collection ASC
	`)
	if err != nil {
		return nil, &CatalogError{Op: "distinct_collections", Err: err}
	}
	defer rows.Close()

	var out []Collection
	for rows.Next() {
		var collection string
		if err := rows.Scan(&collection); err != nil {
			return nil, &CatalogError{Op: "distinct_collections", Err: err}
		}
		out = append(out, Collection(collection))
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GamesByCollection(ctx context.Context, collection Collection, limit int) ([]FileRecord, error) {
	q := selectColumns + " WHERE collection = ? ORDER BY added_at DESC"
	args := []any{string(collection)}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, &CatalogError{Op: "games_by_collection", Err: err}
	}
	defer rows.Close()

	var out []FileRecord
	for rows.Next() {
		f, err := scanFileRecord(rows)
		if err != nil {
			return nil, &CatalogError{Op: "games_by_collection", Err: err}
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// escapeLike escapes the LIKE wildcard characters in a user-supplied
// substring so query text like "100%" or "under_score" is matched
// literally rather than as a pattern.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func (s *SQLiteStore) Stats(ctx context.Context) (CatalogStats, error) {
	stats := CatalogStats{
		StatusCounts:  make(map[DownloadStatus]int64),
		ConsoleCounts: make(map[string]int64),
	}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM game_files GROUP BY status`)
	if err != nil {
		return stats, &CatalogError{Op: "stats", Err: err}
	}
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			rows.Close()
			return stats, &CatalogError{Op: "stats", Err: err}
		}
		stats.StatusCounts[DownloadStatus(status)] = count
	}
	rows.Close()

	row := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size), 0), COALESCE(SUM(bytes_downloaded), 0) FROM game_files WHERE size IS NOT NULL`)
	if err := row.Scan(&stats.TotalSize, &stats.DownloadedBytes); err != nil {
		return stats, &CatalogError{Op: "stats", Err: err}
	}

	rows, err = s.db.QueryContext(ctx, `SELECT console, COUNT(*) FROM game_files WHERE console IS NOT NULL GROUP BY console ORDER BY COUNT(*) DESC`)
	if err != nil {
		return stats, &CatalogError{Op: "stats", Err: err}
	}
	defer rows.Close()
	for rows.Next() {
		var console string
		var count int64
		if err := rows.Scan(&console, &count); err != nil {
			return stats, &CatalogError{Op: "stats", Err: err}
		}
		stats.ConsoleCounts[console] = count
	}
	return stats, rows.Err()
}

// RecordSession inserts one download_sessions row. The Downloader calls
// it once per DownloadOne, at the final "completed" or "failed" outcome.
func (s *SQLiteStore) RecordSession(ctx context.Context, sess DownloadSession) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO download_sessions (url, started_at, ended_at, bytes_transferred, average_speed, outcome)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sess.URL, sess.StartedAt.Format(time.RFC3339), sess.EndedAt.Format(time.RFC3339),
		sess.BytesTransferred, sess.AverageSpeed, sess.Outcome)
	if err != nil {
		return &CatalogError{Op: "record_session", URL: sess.URL, Err: err}
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
