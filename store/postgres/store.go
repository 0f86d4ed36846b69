// Copyright (C) 2025 meshkv
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package postgres provides a durable DataStore backed by PostgreSQL, for
// nodes that need their accepted items to survive a restart.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meshkv/dht/dhtid"
	"github.com/meshkv/dht/identity"
	"github.com/meshkv/dht/store"
)

// Config holds the PostgreSQL connection parameters.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// Store implements store.DataStore for PostgreSQL. Each item's value is
// kept as its signed, JSON-encoded form so the full signature chain is
// recoverable on read without any re-derivation.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore opens a connection pool against cfg and verifies it is
// reachable. The caller is responsible for ensuring the "items" table
// (schema below) exists.
//
//	CREATE TABLE items (
//		key         TEXT PRIMARY KEY,
//		value       JSONB NOT NULL,
//		updated_at  TIMESTAMPTZ NOT NULL,
//		accessed_at TIMESTAMPTZ
//	);
func NewStore(ctx context.Context, cfg *Config) (*Store, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("store/postgres: create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store/postgres: ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Get(ctx context.Context, key dhtid.ID) (store.Item, error) {
	query := `SELECT value, updated_at, accessed_at FROM items WHERE key = $1`

	var (
		raw        []byte
		updatedAt  time.Time
		accessedAt *time.Time
	)
	err := s.pool.QueryRow(ctx, query, key.Hex()).Scan(&raw, &updatedAt, &accessedAt)
	if err == pgx.ErrNoRows {
		return store.Item{}, store.ErrNotFound
	}
	if err != nil {
		return store.Item{}, fmt.Errorf("store/postgres: get item: %w", err)
	}

	var value identity.Item
	if err := json.Unmarshal(raw, &value); err != nil {
		return store.Item{}, fmt.Errorf("store/postgres: decode item: %w", err)
	}

	item := store.Item{Key: key, Value: value, UpdatedAt: updatedAt}
	if accessedAt != nil {
		item.AccessedAt = *accessedAt
	}
	return item, nil
}

func (s *Store) Set(ctx context.Context, key dhtid.ID, value identity.Item) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("store/postgres: encode item: %w", err)
	}

	query := `
		INSERT INTO items (key, value, updated_at, accessed_at)
		VALUES ($1, $2, $3, NULL)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`
	_, err = s.pool.Exec(ctx, query, key.Hex(), raw, time.Now())
	if err != nil {
		return fmt.Errorf("store/postgres: set item: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key dhtid.ID) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM items WHERE key = $1`, key.Hex())
	if err != nil {
		return fmt.Errorf("store/postgres: delete item: %w", err)
	}
	if result.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Touch(ctx context.Context, key dhtid.ID) error {
	result, err := s.pool.Exec(ctx, `UPDATE items SET accessed_at = $1 WHERE key = $2`, time.Now(), key.Hex())
	if err != nil {
		return fmt.Errorf("store/postgres: touch item: %w", err)
	}
	if result.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Keys(ctx context.Context) ([]dhtid.ID, error) {
	rows, err := s.pool.Query(ctx, `SELECT key FROM items ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("store/postgres: list keys: %w", err)
	}
	defer rows.Close()

	var keys []dhtid.ID
	for rows.Next() {
		var hex string
		if err := rows.Scan(&hex); err != nil {
			return nil, fmt.Errorf("store/postgres: scan key: %w", err)
		}
		id, err := dhtid.FromHex(hex)
		if err != nil {
			return nil, fmt.Errorf("store/postgres: decode key: %w", err)
		}
		keys = append(keys, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store/postgres: iterate keys: %w", err)
	}
	return keys, nil
}

func (s *Store) Len(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM items`).Scan(&count); err != nil {
		return 0, fmt.Errorf("store/postgres: count items: %w", err)
	}
	return count, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping verifies the connection pool can still reach the database, for
// use by health.DataStoreHealthCheck's reachability check.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

var _ store.DataStore = (*Store)(nil)
