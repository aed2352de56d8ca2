package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLite stores every document as a JSON blob in a single table keyed by
// (collection, id).
type SQLite struct {
	db *sql.DB
}

func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// Reasonable pragmas for an app server
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA synchronous=NORMAL;
		PRAGMA foreign_keys=ON;
	`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// ApplyMigrations ensures schema exists
func (s *SQLite) ApplyMigrations(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	fields TEXT NOT NULL,
	PRIMARY KEY (collection, id)
);
	`)
	return err
}

func (s *SQLite) Add(ctx context.Context, collection string, fields Fields) (string, error) {
	if err := checkCollection(collection); err != nil {
		return "", err
	}
	body, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode fields: %w", err)
	}
	id := uuid.NewString()
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, fields)
		VALUES (?, ?, ?)
	`, collection, id, string(body)); err != nil {
		return "", err
	}
	return id, nil
}

// Create relies on the (collection, id) primary key to detect a taken path.
func (s *SQLite) Create(ctx context.Context, docPath string, fields Fields) error {
	collection, id, err := SplitDocPath(docPath)
	if err != nil {
		return err
	}
	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, fields)
		VALUES (?, ?, ?)
		ON CONFLICT (collection, id) DO NOTHING
	`, collection, id, string(body))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, docPath string) (Document, error) {
	collection, id, err := SplitDocPath(docPath)
	if err != nil {
		return Document{}, err
	}
	var body string
	err = s.db.QueryRowContext(ctx, `
		SELECT fields FROM documents WHERE collection = ? AND id = ?
	`, collection, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	f, err := decodeFields(body)
	if err != nil {
		return Document{}, fmt.Errorf("decode %s: %w", docPath, err)
	}
	return Document{ID: id, Fields: f}, nil
}

func (s *SQLite) List(ctx context.Context, collection string) ([]Document, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, fields
		FROM documents
		WHERE collection = ?
		ORDER BY rowid ASC
	`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		var (
			id   string
			body string
		)
		if err := rows.Scan(&id, &body); err != nil {
			return nil, err
		}
		f, err := decodeFields(body)
		if err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", collection, id, err)
		}
		out = append(out, Document{ID: id, Fields: f})
	}
	return out, rows.Err()
}

// Update reads, merges and writes back inside one transaction.
func (s *SQLite) Update(ctx context.Context, docPath string, fields Fields) error {
	collection, id, err := SplitDocPath(docPath)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var body string
	err = tx.QueryRowContext(ctx, `
		SELECT fields FROM documents WHERE collection = ? AND id = ?
	`, collection, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	cur, err := decodeFields(body)
	if err != nil {
		return fmt.Errorf("decode %s: %w", docPath, err)
	}
	for k, v := range fields {
		cur[k] = v
	}
	merged, err := json.Marshal(cur)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE documents SET fields = ? WHERE collection = ? AND id = ?
	`, string(merged), collection, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLite) Delete(ctx context.Context, docPath string) error {
	collection, id, err := SplitDocPath(docPath)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		DELETE FROM documents WHERE collection = ? AND id = ?
	`, collection, id)
	return err
}

func decodeFields(body string) (Fields, error) {
	f := Fields{}
	if err := json.Unmarshal([]byte(body), &f); err != nil {
		return nil, err
	}
	return f, nil
}

// Helper to build DSN like: file:/absolute/path?_pragma=busy_timeout(5000)
func SQLiteFileDSN(path string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return "file:" + filepath.ToSlash(abs) + "?_pragma=busy_timeout(5000)", nil
}
