// Package store persists cloud variables in a SQL database. The driver is
// chosen by name: "sqlite3" (default), "mysql" or "postgres".
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const DefaultDriver = "sqlite3"

var ErrNotFound = errors.New("cloud variable not found")

type Store struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

// Open connects, pings and creates the cloud variable table if needed.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	if driver == "" {
		driver = DefaultDriver
	}
	switch driver {
	case "sqlite3", "mysql", "postgres":
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection: %w", err)
	}
	if driver == "sqlite3" {
		// one connection keeps ":memory:" databases alive and serialises writers
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, driver: driver, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	slog.Info("cloud store opened", slog.String("driver", driver))
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS cloud_variables (
	name VARCHAR(255) NOT NULL PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at BIGINT NOT NULL
)`)
	if err != nil {
		return fmt.Errorf("failed to create cloud_variables: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders for drivers that number them.
func (s *Store) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func (s *Store) upsertQuery() string {
	if s.driver == "mysql" {
		return `INSERT INTO cloud_variables (name, value, updated_at) VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE value = VALUES(value), updated_at = VALUES(updated_at)`
	}
	return s.rebind(`INSERT INTO cloud_variables (name, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT (name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`)
}

func (s *Store) Get(ctx context.Context, name string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT value FROM cloud_variables WHERE name = ?`), name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("query failed: %w", err)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, name, value string) error {
	if _, err := s.db.ExecContext(ctx, s.upsertQuery(), name, value, s.now().UnixMilli()); err != nil {
		return fmt.Errorf("exec failed: %w", err)
	}
	return nil
}

// SetAll writes every pair in one transaction.
func (s *Store) SetAll(ctx context.Context, values map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, s.upsertQuery())
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare: %w", err)
	}
	defer stmt.Close()

	ts := s.now().UnixMilli()
	for name, value := range values {
		if _, err := stmt.ExecContext(ctx, name, value, ts); err != nil {
			tx.Rollback()
			return fmt.Errorf("exec failed for %s: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM cloud_variables WHERE name = ?`), name)
	if err != nil {
		return fmt.Errorf("exec failed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

// All returns every stored variable.
func (s *Store) All(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, value FROM cloud_variables ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	values := map[string]string{}
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		values[name] = value
	}
	return values, rows.Err()
}
