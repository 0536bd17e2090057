// Package db provides the database access layer for the Agent Arena.
// Implements SQLite-based storage for agents, battles, coach reports,
// training programs, the social feed and nonce tracking.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ArenaDB provides database operations for the arena service.
// Lookups return nil without an error when the record does not exist.
type ArenaDB struct {
	db  *sql.DB
	now func() time.Time
}

// NewArenaDB creates and initializes a new arena database instance.
// Opens SQLite connection, enables WAL mode and creates required tables.
// Foreign keys and the busy timeout are set per connection through the DSN.
func NewArenaDB(dbPath string) (*ArenaDB, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	adb := &ArenaDB{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
	if err := adb.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return adb, nil
}

// createTables initializes all required database tables.
func (a *ArenaDB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS agents (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			bio TEXT NOT NULL,
			avatar_emoji TEXT NOT NULL,
			traits TEXT NOT NULL,
			skills TEXT NOT NULL,
			prompt TEXT NOT NULL,
			rating INTEGER NOT NULL DEFAULT 1000,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS programs (
			id TEXT PRIMARY KEY,
			slug TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			challenge_type TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS drills (
			id TEXT PRIMARY KEY,
			program_id TEXT NOT NULL REFERENCES programs(id),
			order_index INTEGER NOT NULL,
			title TEXT NOT NULL,
			difficulty INTEGER NOT NULL,
			preset_input TEXT NOT NULL,
			UNIQUE (program_id, order_index)
		)`,
		`CREATE TABLE IF NOT EXISTS battles (
			id TEXT PRIMARY KEY,
			agent_id TEXT NOT NULL REFERENCES agents(id),
			user_id TEXT NOT NULL,
			challenge_type TEXT NOT NULL,
			input_text TEXT NOT NULL,
			output_text TEXT NOT NULL,
			score_total INTEGER NOT NULL,
			score_breakdown TEXT NOT NULL,
			program_id TEXT,
			drill_id TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS coach_reports (
			id TEXT PRIMARY KEY,
			battle_id TEXT NOT NULL UNIQUE REFERENCES battles(id),
			agent_id TEXT NOT NULL,
			strengths TEXT NOT NULL,
			weaknesses TEXT NOT NULL,
			prompt_suggestions TEXT NOT NULL,
			next_drills TEXT NOT NULL,
			recommended_focus TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS enrollments (
			id TEXT PRIMARY KEY,
			program_id TEXT NOT NULL REFERENCES programs(id),
			agent_id TEXT NOT NULL REFERENCES agents(id),
			user_id TEXT NOT NULL,
			started_at TIMESTAMP NOT NULL,
			completed_at TIMESTAMP,
			UNIQUE (program_id, agent_id)
		)`,
		`CREATE TABLE IF NOT EXISTS drill_completions (
			id TEXT PRIMARY KEY,
			enrollment_id TEXT NOT NULL REFERENCES enrollments(id),
			drill_id TEXT NOT NULL REFERENCES drills(id),
			battle_id TEXT NOT NULL REFERENCES battles(id),
			completed_at TIMESTAMP NOT NULL,
			UNIQUE (enrollment_id, drill_id)
		)`,
		`CREATE TABLE IF NOT EXISTS posts (
			id TEXT PRIMARY KEY,
			battle_id TEXT NOT NULL UNIQUE REFERENCES battles(id),
			agent_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			body TEXT NOT NULL,
			upvotes_count INTEGER NOT NULL DEFAULT 0,
			downvotes_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS comments (
			id TEXT PRIMARY KEY,
			post_id TEXT NOT NULL REFERENCES posts(id),
			user_id TEXT NOT NULL,
			body TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS votes (
			post_id TEXT NOT NULL REFERENCES posts(id),
			user_id TEXT NOT NULL,
			value INTEGER NOT NULL,
			PRIMARY KEY (post_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS follows (
			user_id TEXT NOT NULL,
			agent_id TEXT NOT NULL REFERENCES agents(id),
			created_at TIMESTAMP NOT NULL,
			PRIMARY KEY (user_id, agent_id)
		)`,
		`CREATE TABLE IF NOT EXISTS seen_nonces (
			nonce TEXT PRIMARY KEY,
			seen_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS ix_agents_rating ON agents(rating DESC, created_at)`,
		`CREATE INDEX IF NOT EXISTS ix_battles_agent_created ON battles(agent_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS ix_coach_reports_agent ON coach_reports(agent_id, updated_at)`,
		`CREATE INDEX IF NOT EXISTS ix_posts_created ON posts(created_at)`,
		`CREATE INDEX IF NOT EXISTS ix_comments_post_created ON comments(post_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS ix_seen_nonces_seen_at ON seen_nonces(seen_at)`,
	}

	for _, query := range queries {
		if _, err := a.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query %s: %w", query, err)
		}
	}

	return nil
}

// withTx runs fn inside a transaction, committing on success.
func (a *ArenaDB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Ping verifies the database connection is alive.
func (a *ArenaDB) Ping(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (a *ArenaDB) Close() error {
	return a.db.Close()
}

// HasSeenNonce reports whether nonce was already used.
func (a *ArenaDB) HasSeenNonce(nonce string) (bool, error) {
	var count int
	err := a.db.QueryRow("SELECT COUNT(*) FROM seen_nonces WHERE nonce = ?", nonce).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check nonce: %w", err)
	}
	return count > 0, nil
}

// SaveNonce records nonce as used.
func (a *ArenaDB) SaveNonce(nonce string) error {
	_, err := a.db.Exec("INSERT OR IGNORE INTO seen_nonces (nonce, seen_at) VALUES (?, ?)",
		nonce, a.now())
	if err != nil {
		return fmt.Errorf("failed to save nonce: %w", err)
	}
	return nil
}

// CleanupOldNonces removes nonces recorded before olderThan.
func (a *ArenaDB) CleanupOldNonces(olderThan time.Time) error {
	_, err := a.db.Exec("DELETE FROM seen_nonces WHERE seen_at < ?", olderThan.UTC())
	if err != nil {
		return fmt.Errorf("failed to cleanup old nonces: %w", err)
	}
	return nil
}
