// Agora - Threaded Discussion Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

// Package store implements the durable post store on SQLite
// (modernc.org/sqlite, pure Go, no cgo).
//
// Post ids are assigned here, in insertion order, inside a transaction
// that also validates the parent linkage - so the model invariants
// (a root post has id == thread id; a reply's parent is an earlier post
// in the same thread) hold by construction for every row.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/tomtom215/agora/internal/metrics"
	"github.com/tomtom215/agora/internal/models"
)

// Store errors surfaced to the write path.
var (
	ErrPostNotFound   = errors.New("post not found")
	ErrParentNotFound = errors.New("parent post not found")
	ErrParentNuked    = errors.New("cannot reply to a nuked post")
	ErrThreadLocked   = errors.New("thread is locked")
)

// Store is a SQLite-backed post store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database at path.
// Pass ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty database path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// The writer is effectively single-threaded; one connection avoids
	// SQLITE_BUSY churn and keeps :memory: databases coherent.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}

	schema := `
CREATE TABLE IF NOT EXISTS posts (
	id        INTEGER PRIMARY KEY,
	thread_id INTEGER NOT NULL,
	parent_id INTEGER REFERENCES posts(id),
	author    TEXT    NOT NULL,
	body      TEXT    NOT NULL,
	posted_at TEXT    NOT NULL,
	flags     TEXT    NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_posts_thread ON posts(thread_id);
CREATE INDEX IF NOT EXISTS idx_posts_parent ON posts(parent_id);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database still answers queries.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreatePost inserts a post. A nil parentID starts a new thread: the new
// post becomes its own root (thread id == post id). Otherwise the post is
// a reply; the parent must exist, must not be nuked, and its thread's
// root must not be locked.
func (s *Store) CreatePost(ctx context.Context, parentID *int64, author, body string) (*models.Post, error) {
	start := time.Now()
	post, err := s.createPost(ctx, parentID, author, body)
	metrics.RecordStoreQuery("create_post", time.Since(start), err)
	return post, err
}

func (s *Store) createPost(ctx context.Context, parentID *int64, author, body string) (*models.Post, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var nextID int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) + 1 FROM posts`).Scan(&nextID); err != nil {
		return nil, fmt.Errorf("next id: %w", err)
	}

	threadID := nextID
	if parentID != nil {
		parent, err := getPostTx(ctx, tx, *parentID)
		if errors.Is(err, ErrPostNotFound) {
			return nil, ErrParentNotFound
		}
		if err != nil {
			return nil, err
		}
		if parent.Nuked() {
			return nil, ErrParentNuked
		}
		if parent.ID != parent.ThreadID {
			root, err := getPostTx(ctx, tx, parent.ThreadID)
			if err == nil && root.Flags.Has(models.FlagLocked) {
				return nil, ErrThreadLocked
			}
		} else if parent.Flags.Has(models.FlagLocked) {
			return nil, ErrThreadLocked
		}
		threadID = parent.ThreadID
	}

	post := &models.Post{
		ID:       nextID,
		ThreadID: threadID,
		ParentID: parentID,
		Author:   author,
		Body:     body,
		PostedAt: time.Now().UTC(),
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO posts (id, thread_id, parent_id, author, body, posted_at, flags)
		 VALUES (?, ?, ?, ?, ?, ?, '[]')`,
		post.ID, post.ThreadID, post.ParentID, post.Author, post.Body,
		post.PostedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return post, nil
}

// GetPost returns one post by id, or ErrPostNotFound.
func (s *Store) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	start := time.Now()
	row := s.db.QueryRowContext(ctx,
		`SELECT id, thread_id, parent_id, author, body, posted_at, flags FROM posts WHERE id = ?`, id)
	post, err := scanPost(row)
	metrics.RecordStoreQuery("get_post", time.Since(start), ignoreNotFound(err))
	return post, err
}

// GetPostsByThreadIDs returns every post belonging to the given threads,
// ordered by id. Unknown thread ids are simply absent from the result -
// never an error.
func (s *Store) GetPostsByThreadIDs(ctx context.Context, ids []int64) ([]*models.Post, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	start := time.Now()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, thread_id, parent_id, author, body, posted_at, flags
		 FROM posts WHERE thread_id IN (`+placeholders+`) ORDER BY id`, args...)
	if err != nil {
		metrics.RecordStoreQuery("get_posts_by_thread", time.Since(start), err)
		return nil, fmt.Errorf("query threads: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			metrics.RecordStoreQuery("get_posts_by_thread", time.Since(start), err)
			return nil, err
		}
		posts = append(posts, post)
	}
	err = rows.Err()
	metrics.RecordStoreQuery("get_posts_by_thread", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("iterate threads: %w", err)
	}
	return posts, nil
}

// SetFlag adds a moderation flag to a post. The returned bool reports
// whether the stored flag set actually changed.
func (s *Store) SetFlag(ctx context.Context, postID int64, flag models.ModerationFlag) (*models.Post, bool, error) {
	return s.updateFlags(ctx, "set_flag", postID, func(flags models.FlagSet) models.FlagSet {
		return flags.Add(flag)
	})
}

// ClearFlag removes a moderation flag from a post.
func (s *Store) ClearFlag(ctx context.Context, postID int64, flag models.ModerationFlag) (*models.Post, bool, error) {
	return s.updateFlags(ctx, "clear_flag", postID, func(flags models.FlagSet) models.FlagSet {
		return flags.Remove(flag)
	})
}

func (s *Store) updateFlags(ctx context.Context, op string, postID int64, update func(models.FlagSet) models.FlagSet) (*models.Post, bool, error) {
	start := time.Now()
	post, changed, err := s.updateFlagsTx(ctx, postID, update)
	metrics.RecordStoreQuery(op, time.Since(start), ignoreNotFound(err))
	return post, changed, err
}

func (s *Store) updateFlagsTx(ctx context.Context, postID int64, update func(models.FlagSet) models.FlagSet) (*models.Post, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	post, err := getPostTx(ctx, tx, postID)
	if err != nil {
		return nil, false, err
	}

	before := len(post.Flags)
	updated := update(post.Flags)
	changed := len(updated) != before
	post.Flags = updated

	if changed {
		raw, err := json.Marshal(post.Flags)
		if err != nil {
			return nil, false, fmt.Errorf("marshal flags: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE posts SET flags = ? WHERE id = ?`, string(raw), postID); err != nil {
			return nil, false, fmt.Errorf("update flags: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit: %w", err)
	}
	return post, changed, nil
}

// ListRecentThreads returns root posts newest-first. A before id of 0
// starts from the newest; otherwise only roots with id < before are
// returned, enabling cursor pagination.
func (s *Store) ListRecentThreads(ctx context.Context, limit int, before int64) ([]*models.Post, error) {
	if limit <= 0 {
		limit = 20
	}
	if before <= 0 {
		before = int64(1) << 62
	}
	start := time.Now()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, thread_id, parent_id, author, body, posted_at, flags
		 FROM posts WHERE id = thread_id AND id < ? ORDER BY id DESC LIMIT ?`, before, limit)
	if err != nil {
		metrics.RecordStoreQuery("list_recent_threads", time.Since(start), err)
		return nil, fmt.Errorf("query recent threads: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var roots []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			metrics.RecordStoreQuery("list_recent_threads", time.Since(start), err)
			return nil, err
		}
		roots = append(roots, post)
	}
	err = rows.Err()
	metrics.RecordStoreQuery("list_recent_threads", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("iterate recent threads: %w", err)
	}
	return roots, nil
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPost(sc scanner) (*models.Post, error) {
	var (
		post     models.Post
		parentID sql.NullInt64
		postedAt string
		flagsRaw string
	)
	err := sc.Scan(&post.ID, &post.ThreadID, &parentID, &post.Author, &post.Body, &postedAt, &flagsRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan post: %w", err)
	}

	if parentID.Valid {
		v := parentID.Int64
		post.ParentID = &v
	}
	post.PostedAt, err = time.Parse(time.RFC3339Nano, postedAt)
	if err != nil {
		return nil, fmt.Errorf("parse posted_at %q: %w", postedAt, err)
	}
	if err := json.Unmarshal([]byte(flagsRaw), &post.Flags); err != nil {
		return nil, fmt.Errorf("parse flags %q: %w", flagsRaw, err)
	}
	return &post, nil
}

func getPostTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Post, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT id, thread_id, parent_id, author, body, posted_at, flags FROM posts WHERE id = ?`, id)
	return scanPost(row)
}

// ignoreNotFound keeps expected lookup misses out of the error metrics.
func ignoreNotFound(err error) error {
	if errors.Is(err, ErrPostNotFound) {
		return nil
	}
	return err
}
