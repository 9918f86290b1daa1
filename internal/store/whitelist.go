package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danyaalu/whitelist-bot/internal/domain"
)

var (
	ErrNotFound = errors.New("whitelist entry not found")
	ErrExists   = errors.New("whitelist entry already exists")
)

// Entry records that a chat user is whitelisted on one server.
type Entry struct {
	UserID     int64
	ServerID   string
	Platform   domain.Platform
	Username   string
	ExternalID string
	CreatedAt  time.Time
}

// Whitelist is the entry repository.
type Whitelist struct {
	db  *sql.DB
	now func() time.Time
}

func NewWhitelist(d *DB) *Whitelist {
	return &Whitelist{db: d.db, now: time.Now}
}

func (w *Whitelist) Get(ctx context.Context, userID int64, serverID string) (Entry, error) {
	row := w.db.QueryRowContext(ctx,
		`SELECT user_id, server_id, platform, username, external_id, created_at
		 FROM whitelist_entries WHERE user_id = ? AND server_id = ?`, userID, serverID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get whitelist entry: %w", err)
	}
	return e, nil
}

// Add stores a new entry. Call only after the server confirmed the add.
func (w *Whitelist) Add(ctx context.Context, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = w.now().UTC()
	}
	_, err := w.db.ExecContext(ctx,
		`INSERT INTO whitelist_entries (user_id, server_id, platform, username, external_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.UserID, e.ServerID, string(e.Platform), e.Username, e.ExternalID, e.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrExists
		}
		return fmt.Errorf("add whitelist entry: %w", err)
	}
	return nil
}

func (w *Whitelist) Remove(ctx context.Context, userID int64, serverID string) error {
	res, err := w.db.ExecContext(ctx,
		`DELETE FROM whitelist_entries WHERE user_id = ? AND server_id = ?`, userID, serverID)
	if err != nil {
		return fmt.Errorf("remove whitelist entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove whitelist entry: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByUser returns a user's entries ordered by server id.
func (w *Whitelist) ListByUser(ctx context.Context, userID int64) ([]Entry, error) {
	rows, err := w.db.QueryContext(ctx,
		`SELECT user_id, server_id, platform, username, external_id, created_at
		 FROM whitelist_entries WHERE user_id = ? ORDER BY server_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list whitelist entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("list whitelist entries: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		e        Entry
		platform string
	)
	if err := s.Scan(&e.UserID, &e.ServerID, &platform, &e.Username, &e.ExternalID, &e.CreatedAt); err != nil {
		return Entry{}, err
	}
	e.Platform = domain.Platform(platform)
	return e, nil
}
