// (c) Siemens AG 2025
//
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// The servers table; single-row statements are atomic in SQLite, so no
// explicit transactions are needed for the Store contract.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS servers (
    id            TEXT PRIMARY KEY,
    name          TEXT NOT NULL,
    slug          TEXT NOT NULL UNIQUE,
    world_name    TEXT NOT NULL,
    password      TEXT NOT NULL,
    base_port     INTEGER NOT NULL,
    desired_state TEXT NOT NULL,
    container_ref TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMP NOT NULL,
    updated_at    TIMESTAMP NOT NULL
);`

// SQLite is a [Store] persisting server definitions in a SQLite database
// file, surviving panel restarts; the port pool is rebuilt from it at every
// process start.
type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (creating as necessary) the SQLite database at the
// specified path and ensures the servers table exists.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("cannot open server database: %w", err)
	}
	// A single connection sidesteps SQLITE_BUSY on concurrent writers; the
	// store's callers serialize per server anyway, not globally.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot create servers table: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error { return s.db.Close() }

const serverColumns = `id, name, slug, world_name, password, base_port,
	desired_state, container_ref, created_at, updated_at`

func scanServer(row interface{ Scan(...any) error }) (Server, error) {
	var srv Server
	var state string
	err := row.Scan(&srv.ID, &srv.Name, &srv.Slug, &srv.WorldName, &srv.Password,
		&srv.BasePort, &state, &srv.ContainerRef, &srv.CreatedAt, &srv.UpdatedAt)
	if err != nil {
		return Server{}, err
	}
	srv.DesiredState = DesiredState(state)
	return srv, nil
}

// Get returns the record with the specified id, or [ErrNotFound].
func (s *SQLite) Get(ctx context.Context, id string) (Server, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+serverColumns+` FROM servers WHERE id = ?`, id)
	srv, err := scanServer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Server{}, ErrNotFound
	}
	return srv, err
}

// GetBySlug returns the record with the specified slug, or [ErrNotFound].
func (s *SQLite) GetBySlug(ctx context.Context, slug string) (Server, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+serverColumns+` FROM servers WHERE slug = ?`, slug)
	srv, err := scanServer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Server{}, ErrNotFound
	}
	return srv, err
}

// List returns all records, oldest first.
func (s *SQLite) List(ctx context.Context) ([]Server, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+serverColumns+` FROM servers ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var servers []Server
	for rows.Next() {
		srv, err := scanServer(rows)
		if err != nil {
			return nil, err
		}
		servers = append(servers, srv)
	}
	return servers, rows.Err()
}

// Create persists a new record, or reports [ErrDuplicate] when the id or
// slug is already taken.
func (s *SQLite) Create(ctx context.Context, srv Server) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO servers (`+serverColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		srv.ID, srv.Name, srv.Slug, srv.WorldName, srv.Password, srv.BasePort,
		string(srv.DesiredState), srv.ContainerRef, srv.CreatedAt, srv.UpdatedAt)
	if isConstraintViolation(err) {
		return ErrDuplicate
	}
	return err
}

// Update atomically replaces the record with the same id, or reports
// [ErrNotFound].
func (s *SQLite) Update(ctx context.Context, srv Server) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE servers SET name=?, slug=?, world_name=?, password=?,
		    base_port=?, desired_state=?, container_ref=?, updated_at=?
		 WHERE id=?`,
		srv.Name, srv.Slug, srv.WorldName, srv.Password, srv.BasePort,
		string(srv.DesiredState), srv.ContainerRef, srv.UpdatedAt, srv.ID)
	if isConstraintViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the record with the specified id, or reports [ErrNotFound].
func (s *SQLite) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM servers WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func isConstraintViolation(err error) bool {
	var serr sqlite3.Error
	return errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint
}
