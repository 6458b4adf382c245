package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"spacetraveling/blog"
)

// MemoryDSN is an in-process database that disappears with the process.
const MemoryDSN = "file:spacetraveling?mode=memory&cache=shared"

// ErrNotFound is returned when a snapshot entry is missing or older than the
// requested age.
var ErrNotFound = errors.New("not found")

// Stats summarizes the snapshot contents.
type Stats struct {
	Pages int
	Posts int
}

// DB wraps the SQLite database holding rendered-page snapshots.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// NewDB opens the database at path and initializes the schema.
func NewDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A shared-cache memory database lives only while a connection is open.
	conn.SetMaxIdleConns(1)

	db := &DB{conn: conn, now: time.Now}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS pages (
		cursor TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		fetched_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS posts (
		uid TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		fetched_at DATETIME NOT NULL
	);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// SavePage stores a listing page under the cursor that addresses it. The
// first page is stored under the empty cursor.
func (db *DB) SavePage(ctx context.Context, cursor string, page *blog.Page) error {
	payload, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("marshal page: %w", err)
	}

	query := `
	INSERT INTO pages (cursor, payload, fetched_at) VALUES (?, ?, ?)
	ON CONFLICT(cursor) DO UPDATE SET
		payload = excluded.payload,
		fetched_at = excluded.fetched_at
	`
	_, err = db.conn.ExecContext(ctx, query, cursor, string(payload), db.now())
	return err
}

// GetPage returns the page stored under cursor if it is younger than maxAge.
// A maxAge <= 0 accepts entries of any age.
func (db *DB) GetPage(ctx context.Context, cursor string, maxAge time.Duration) (*blog.Page, error) {
	payload, err := db.lookup(ctx, `SELECT payload, fetched_at FROM pages WHERE cursor = ?`, cursor, maxAge)
	if err != nil {
		return nil, err
	}

	var page blog.Page
	if err := json.Unmarshal([]byte(payload), &page); err != nil {
		return nil, fmt.Errorf("unmarshal page: %w", err)
	}
	return &page, nil
}

// IsNextPage reports whether cursor is the next_page of a stored page,
// regardless of that page's age.
func (db *DB) IsNextPage(ctx context.Context, cursor string) (bool, error) {
	if cursor == "" {
		return false, nil
	}
	var one int
	err := db.conn.QueryRowContext(ctx,
		`SELECT 1 FROM pages WHERE json_extract(payload, '$.next_page') = ? LIMIT 1`, cursor,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SavePost stores a post detail keyed by its UID.
func (db *DB) SavePost(ctx context.Context, post *blog.PostDetail) error {
	payload, err := json.Marshal(post)
	if err != nil {
		return fmt.Errorf("marshal post: %w", err)
	}

	query := `
	INSERT INTO posts (uid, payload, fetched_at) VALUES (?, ?, ?)
	ON CONFLICT(uid) DO UPDATE SET
		payload = excluded.payload,
		fetched_at = excluded.fetched_at
	`
	_, err = db.conn.ExecContext(ctx, query, post.UID, string(payload), db.now())
	return err
}

// GetPost returns the post stored under uid if it is younger than maxAge.
func (db *DB) GetPost(ctx context.Context, uid string, maxAge time.Duration) (*blog.PostDetail, error) {
	payload, err := db.lookup(ctx, `SELECT payload, fetched_at FROM posts WHERE uid = ?`, uid, maxAge)
	if err != nil {
		return nil, err
	}

	var post blog.PostDetail
	if err := json.Unmarshal([]byte(payload), &post); err != nil {
		return nil, fmt.Errorf("unmarshal post: %w", err)
	}
	return &post, nil
}

// Purge removes every snapshot entry.
func (db *DB) Purge(ctx context.Context) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM pages`); err != nil {
		return fmt.Errorf("purge pages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM posts`); err != nil {
		return fmt.Errorf("purge posts: %w", err)
	}
	return tx.Commit()
}

// Stats returns the number of stored pages and posts.
func (db *DB) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM pages`).Scan(&s.Pages); err != nil {
		return Stats{}, err
	}
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&s.Posts); err != nil {
		return Stats{}, err
	}
	return s, nil
}

func (db *DB) lookup(ctx context.Context, query, key string, maxAge time.Duration) (string, error) {
	var payload string
	var fetchedAt time.Time

	err := db.conn.QueryRowContext(ctx, query, key).Scan(&payload, &fetchedAt)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}

	if maxAge > 0 && db.now().Sub(fetchedAt) > maxAge {
		return "", ErrNotFound
	}
	return payload, nil
}
