package simulator

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Store backs the simulated device database. Rows are stored as JSON
// documents in one sqlite table per logical table, so seed data can
// mirror any of the host's table schemas without per-table DDL.
type Store struct {
	db *sql.DB
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// OpenStore opens the store at the given sqlite DSN. Use ":memory:" for
// a throwaway in-memory store.
func OpenStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	// SQLite doesn't support multiple writers, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) ensureTable(ctx context.Context, table string) error {
	if !tableNamePattern.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %q (id TEXT PRIMARY KEY, doc TEXT NOT NULL)`, table))
	if err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}

// Seed inserts or replaces rows in a table. Each row must carry a string
// "id" field.
func (s *Store) Seed(ctx context.Context, table string, rows []map[string]any) error {
	if err := s.ensureTable(ctx, table); err != nil {
		return err
	}
	for _, row := range rows {
		id, ok := row["id"].(string)
		if !ok || id == "" {
			return fmt.Errorf("seed row in %s is missing a string id", table)
		}
		doc, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("encode seed row %s/%s: %w", table, id, err)
		}
		_, err = s.db.ExecContext(ctx, fmt.Sprintf(
			`INSERT OR REPLACE INTO %q (id, doc) VALUES (?, ?)`, table), id, string(doc))
		if err != nil {
			return fmt.Errorf("seed %s/%s: %w", table, id, err)
		}
	}
	return nil
}

// All returns every row document in a table.
func (s *Store) All(ctx context.Context, table string) ([]json.RawMessage, error) {
	if err := s.ensureTable(ctx, table); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT doc FROM %q ORDER BY id`, table))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	out := make([]json.RawMessage, 0)
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		out = append(out, json.RawMessage(doc))
	}
	return out, rows.Err()
}

// Get returns one row document by ID, or nil when absent.
func (s *Store) Get(ctx context.Context, table, id string) (json.RawMessage, error) {
	if err := s.ensureTable(ctx, table); err != nil {
		return nil, err
	}
	var doc string
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT doc FROM %q WHERE id = ?`, table), id).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", table, id, err)
	}
	return json.RawMessage(doc), nil
}

// Count returns the number of rows in a table.
func (s *Store) Count(ctx context.Context, table string) (int64, error) {
	if err := s.ensureTable(ctx, table); err != nil {
		return 0, err
	}
	var count int64
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %q`, table)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return count, nil
}

// Call dispatches one generic table method, matching the device
// database's RPC surface.
func (s *Store) Call(ctx context.Context, table, method string, args []any) (any, error) {
	switch method {
	case "all":
		return s.All(ctx, table)
	case "get":
		if len(args) < 1 {
			return nil, fmt.Errorf("%s.get requires an id argument", table)
		}
		id, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("%s.get id must be a string", table)
		}
		return s.Get(ctx, table, id)
	case "count":
		return s.Count(ctx, table)
	default:
		return nil, fmt.Errorf("unknown method %s.%s", table, method)
	}
}
