// ABOUTME: SQLite storage implementation using modernc.org/sqlite (pure Go)
// ABOUTME: Persists feed records, seen key sets and stored items, one transaction per state save

package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harper/feedwatch/internal/models"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const feedColumns = `id, name, display_name, url, outputs, ttl, owner, private,
	etag, last_modified, last_check_at, last_loaded_at, last_error, error_expires_at,
	item_count, created_at`

// NewSQLiteStore creates a new SQLite storage instance.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the database tables if they don't exist.
func (s *SQLiteStore) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS feeds (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT UNIQUE NOT NULL,
			name TEXT NOT NULL UNIQUE COLLATE NOCASE,
			display_name TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL,
			outputs TEXT NOT NULL DEFAULT '',
			ttl INTEGER NOT NULL,
			owner TEXT NOT NULL DEFAULT '',
			private INTEGER NOT NULL DEFAULT 0,
			etag TEXT,
			last_modified TEXT,
			last_check_at TIMESTAMP,
			last_loaded_at TIMESTAMP,
			last_error TEXT NOT NULL DEFAULT '',
			error_expires_at TIMESTAMP,
			item_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		);

		CREATE TABLE IF NOT EXISTS feed_seen (
			feed_id TEXT NOT NULL REFERENCES feeds(id) ON DELETE CASCADE,
			unique_key TEXT NOT NULL,
			PRIMARY KEY (feed_id, unique_key)
		);

		CREATE TABLE IF NOT EXISTS feed_seen_dated (
			feed_id TEXT NOT NULL REFERENCES feeds(id) ON DELETE CASCADE,
			compound_key TEXT NOT NULL,
			PRIMARY KEY (feed_id, compound_key)
		);

		CREATE TABLE IF NOT EXISTS feed_items (
			feed_id TEXT NOT NULL REFERENCES feeds(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			published_ms INTEGER NOT NULL DEFAULT 0,
			guid TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			link TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			updated INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (feed_id, position)
		);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateFeed stores a new feed and its retained state.
func (s *SQLiteStore) CreateFeed(feed *models.Feed) error {
	return s.inTx(func(tx *sql.Tx) error {
		query := `INSERT INTO feeds (` + feedColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		_, err := tx.Exec(query,
			feed.ID, feed.Name, feed.DisplayName, feed.URL, strings.Join(feed.Outputs, " "),
			feed.TTL, feed.Owner, boolToInt(feed.Private), feed.ETag, feed.LastModified,
			timeToSQL(feed.LastCheck), timeToSQL(feed.LastLoaded), feed.LastError,
			timeToSQL(feed.ErrorExpires), feed.ItemCount, feed.CreatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("insert feed: %w", err)
		}
		return writeState(tx, feed)
	})
}

// GetFeed retrieves a feed by ID.
func (s *SQLiteStore) GetFeed(id string) (*models.Feed, error) {
	row := s.db.QueryRow(`SELECT `+feedColumns+` FROM feeds WHERE id = ?`, id)
	return s.loadFeed(row, id)
}

// GetFeedByName finds a feed by name, ignoring case.
func (s *SQLiteStore) GetFeedByName(name string) (*models.Feed, error) {
	row := s.db.QueryRow(`SELECT `+feedColumns+` FROM feeds WHERE name = ? COLLATE NOCASE`, name)
	return s.loadFeed(row, name)
}

func (s *SQLiteStore) loadFeed(row *sql.Row, ref string) (*models.Feed, error) {
	feed, err := scanFeed(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	if err != nil {
		return nil, err
	}
	if err := readState(s.db, feed); err != nil {
		return nil, err
	}
	return feed, nil
}

// ListFeeds returns all feeds in the order they were added.
func (s *SQLiteStore) ListFeeds() ([]*models.Feed, error) {
	rows, err := s.db.Query(`SELECT ` + feedColumns + ` FROM feeds ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query feeds: %w", err)
	}

	var feeds []*models.Feed
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		feeds = append(feeds, feed)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate feeds: %w", err)
	}
	rows.Close()

	for _, feed := range feeds {
		if err := readState(s.db, feed); err != nil {
			return nil, err
		}
	}
	return feeds, nil
}

// UpdateFeed saves the feed record.
func (s *SQLiteStore) UpdateFeed(feed *models.Feed) error {
	return updateFeed(s.db, feed)
}

// SaveFeedState saves the record and replaces the retained state in one transaction.
func (s *SQLiteStore) SaveFeedState(feed *models.Feed) error {
	return s.inTx(func(tx *sql.Tx) error {
		if err := updateFeed(tx, feed); err != nil {
			return err
		}
		for _, table := range []string{"feed_seen", "feed_seen_dated", "feed_items"} {
			if _, err := tx.Exec(`DELETE FROM `+table+` WHERE feed_id = ?`, feed.ID); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return writeState(tx, feed)
	})
}

// DeleteFeed removes a feed; retained state goes with it via cascade.
func (s *SQLiteStore) DeleteFeed(id string) error {
	result, err := s.db.Exec("DELETE FROM feeds WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete feed: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *SQLiteStore) inTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func updateFeed(q querier, feed *models.Feed) error {
	query := `
		UPDATE feeds SET
			name = ?, display_name = ?, url = ?, outputs = ?, ttl = ?, owner = ?, private = ?,
			etag = ?, last_modified = ?, last_check_at = ?, last_loaded_at = ?,
			last_error = ?, error_expires_at = ?, item_count = ?
		WHERE id = ?
	`
	result, err := q.Exec(query,
		feed.Name, feed.DisplayName, feed.URL, strings.Join(feed.Outputs, " "), feed.TTL,
		feed.Owner, boolToInt(feed.Private), feed.ETag, feed.LastModified,
		timeToSQL(feed.LastCheck), timeToSQL(feed.LastLoaded), feed.LastError,
		timeToSQL(feed.ErrorExpires), feed.ItemCount, feed.ID,
	)
	if err != nil {
		return fmt.Errorf("update feed: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, feed.ID)
	}
	return nil
}

func writeState(q querier, feed *models.Feed) error {
	for _, key := range feed.State.Seen.Sorted() {
		if _, err := q.Exec(`INSERT INTO feed_seen (feed_id, unique_key) VALUES (?, ?)`, feed.ID, key); err != nil {
			return fmt.Errorf("insert seen key: %w", err)
		}
	}
	for _, key := range feed.State.SeenDated.Sorted() {
		if _, err := q.Exec(`INSERT INTO feed_seen_dated (feed_id, compound_key) VALUES (?, ?)`, feed.ID, key); err != nil {
			return fmt.Errorf("insert seen pair: %w", err)
		}
	}
	for i, item := range feed.State.Items {
		_, err := q.Exec(`
			INSERT INTO feed_items (feed_id, position, published_ms, guid, title, link, description, updated)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			feed.ID, i, item.Date, item.GUID, item.Title, item.Link, item.Description, boolToInt(item.Updated),
		)
		if err != nil {
			return fmt.Errorf("insert stored item: %w", err)
		}
	}
	return nil
}

func readState(q querier, feed *models.Feed) error {
	state := models.NewRetainedState()

	if err := readKeys(q, `SELECT unique_key FROM feed_seen WHERE feed_id = ?`, feed.ID, state.Seen); err != nil {
		return fmt.Errorf("load seen keys: %w", err)
	}
	if err := readKeys(q, `SELECT compound_key FROM feed_seen_dated WHERE feed_id = ?`, feed.ID, state.SeenDated); err != nil {
		return fmt.Errorf("load seen pairs: %w", err)
	}

	rows, err := q.Query(`
		SELECT published_ms, guid, title, link, description, updated
		FROM feed_items WHERE feed_id = ? ORDER BY position`, feed.ID)
	if err != nil {
		return fmt.Errorf("load stored items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var item models.Item
		var updated int
		if err := rows.Scan(&item.Date, &item.GUID, &item.Title, &item.Link, &item.Description, &updated); err != nil {
			return fmt.Errorf("scan stored item: %w", err)
		}
		item.Updated = updated != 0
		state.Items = append(state.Items, item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate stored items: %w", err)
	}

	feed.State = state
	return nil
}

func readKeys(q querier, query, feedID string, into models.KeySet) error {
	rows, err := q.Query(query, feedID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return err
		}
		into.Add(key)
	}
	return rows.Err()
}

func scanFeed(row rowScanner) (*models.Feed, error) {
	var feed models.Feed
	var outputs string
	var private int
	var lastCheck, lastLoaded, errorExpires sql.NullTime
	if err := row.Scan(
		&feed.ID, &feed.Name, &feed.DisplayName, &feed.URL, &outputs, &feed.TTL,
		&feed.Owner, &private, &feed.ETag, &feed.LastModified, &lastCheck, &lastLoaded,
		&feed.LastError, &errorExpires, &feed.ItemCount, &feed.CreatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan feed: %w", err)
	}
	feed.Outputs = strings.Fields(outputs)
	feed.Private = private != 0
	feed.LastCheck = nullTime(lastCheck)
	feed.LastLoaded = nullTime(lastLoaded)
	feed.ErrorExpires = nullTime(errorExpires)
	return &feed, nil
}

func nullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func timeToSQL(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
