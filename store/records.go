// Package store persists run outcomes in SQLite. The record table is the
// source of truth for which keywords produced publishable articles and
// feeds the internal-link catalog back into later runs.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"medscribe/config"
	"medscribe/types"
)

// Record statuses. Published means the article went straight to the CMS;
// review means quality fell below the threshold and a human gates it.
const (
	StatusPublished = "published"
	StatusReview    = "review"
)

// Record is one persisted run outcome.
type Record struct {
	ID              int64
	Keyword         string
	Title           string
	Slug            string
	Body            string
	MetaDescription string
	QualityScore    float64
	Iterations      int
	TokensUsed      int
	Status          string
	ExternalID      string
	CreatedAt       time.Time
}

// Store wraps the SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// New opens (or creates) the article database at path. An empty path
// defaults to ./data/medscribe.db.
func New(path string) (*Store, error) {
	if path == "" {
		path = filepath.Join("data", "medscribe.db")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	// WAL mode so the status API can read while a run writes.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS articles (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			keyword          TEXT NOT NULL,
			title            TEXT NOT NULL,
			slug             TEXT NOT NULL UNIQUE,
			body             TEXT NOT NULL,
			meta_description TEXT NOT NULL DEFAULT '',
			quality_score    REAL NOT NULL DEFAULT 0,
			iterations       INTEGER NOT NULL DEFAULT 0,
			tokens_used      INTEGER NOT NULL DEFAULT 0,
			status           TEXT NOT NULL,
			external_id      TEXT NOT NULL DEFAULT '',
			created_at       DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Save records a finished article. Articles at or above the quality
// threshold are stored as published; everything else goes to review.
// The returned record carries the assigned status.
func (s *Store) Save(ctx context.Context, keyword string, article types.FinalArticle, externalID string) (Record, error) {
	status := StatusReview
	if article.QualityScore >= config.QualityThreshold && !article.Degraded {
		status = StatusPublished
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO articles
			(keyword, title, slug, body, meta_description, quality_score, iterations, tokens_used, status, external_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		keyword, article.Title, article.Slug, article.Body, article.MetaDescription,
		article.QualityScore, article.Iterations, article.TokensUsed, status, externalID)
	if err != nil {
		return Record{}, fmt.Errorf("saving article %s: %w", article.Slug, err)
	}

	id, _ := res.LastInsertId()
	return Record{
		ID:              id,
		Keyword:         keyword,
		Title:           article.Title,
		Slug:            article.Slug,
		Body:            article.Body,
		MetaDescription: article.MetaDescription,
		QualityScore:    article.QualityScore,
		Iterations:      article.Iterations,
		TokensUsed:      article.TokensUsed,
		Status:          status,
		ExternalID:      externalID,
	}, nil
}

// BySlug fetches one record. Returns sql.ErrNoRows when absent.
func (s *Store) BySlug(ctx context.Context, slug string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, keyword, title, slug, body, meta_description,
		       quality_score, iterations, tokens_used, status, external_id, created_at
		FROM articles WHERE slug = ?`, slug)

	var r Record
	err := row.Scan(&r.ID, &r.Keyword, &r.Title, &r.Slug, &r.Body, &r.MetaDescription,
		&r.QualityScore, &r.Iterations, &r.TokensUsed, &r.Status, &r.ExternalID, &r.CreatedAt)
	if err != nil {
		return Record{}, err
	}
	return r, nil
}

// Catalog lists published articles as internal-link targets for the
// finalizer, newest first.
func (s *Store) Catalog(ctx context.Context, limit int) ([]types.CatalogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT title, slug FROM articles
		WHERE status = ? ORDER BY created_at DESC LIMIT ?`,
		StatusPublished, limit)
	if err != nil {
		return nil, fmt.Errorf("listing catalog: %w", err)
	}
	defer rows.Close()

	var entries []types.CatalogEntry
	for rows.Next() {
		var e types.CatalogEntry
		if err := rows.Scan(&e.Title, &e.Slug); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Exists reports whether a slug is already taken.
func (s *Store) Exists(ctx context.Context, slug string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM articles WHERE slug = ?`, slug).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
