package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	// dirPermissions is the permission mode for the store directory.
	dirPermissions = 0750

	// filePermissions is the permission mode for the database file.
	filePermissions = 0600

	// busyTimeout is the maximum time to wait for a database lock.
	busyTimeout = 5 * time.Second
)

// ErrNoCredentials indicates no credentials have been saved yet.
var ErrNoCredentials = errors.New("credentials: not found")

// Credentials is a saved hub connection.
type Credentials struct {
	Endpoint  string
	Token     string
	UpdatedAt time.Time
}

// Provider defines the interface for credential persistence.
type Provider interface {
	Load(ctx context.Context) (*Credentials, error)
	Save(ctx context.Context, creds *Credentials) error
	Clear(ctx context.Context) error
}

// SQLiteStore implements Provider using a single-row SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// Open creates the store at the given path, creating the directory and
// schema as needed.
//
// Parameters:
//   - path: Filesystem path to the SQLite database file
//
// Returns:
//   - *SQLiteStore: Ready store
//   - error: If the file or schema cannot be created
func Open(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return nil, fmt.Errorf("creating credentials directory: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_synchronous=NORMAL",
		path, busyTimeout.Milliseconds())

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening credentials store: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close() //nolint:errcheck // open already failed
		return nil, fmt.Errorf("creating credentials schema: %w", err)
	}

	if err := os.Chmod(path, filePermissions); err != nil {
		db.Close() //nolint:errcheck // open already failed
		return nil, fmt.Errorf("setting credentials file permissions: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// The id = 1 check pins the table to one row.
const schema = `
CREATE TABLE IF NOT EXISTS credentials (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	endpoint   TEXT NOT NULL,
	token      TEXT NOT NULL,
	updated_at TEXT NOT NULL
);`

// Load returns the saved credentials, or ErrNoCredentials.
func (s *SQLiteStore) Load(ctx context.Context) (*Credentials, error) {
	var creds Credentials
	var updatedAt string

	err := s.db.QueryRowContext(ctx,
		`SELECT endpoint, token, updated_at FROM credentials WHERE id = 1`,
	).Scan(&creds.Endpoint, &creds.Token, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoCredentials
		}
		return nil, fmt.Errorf("loading credentials: %w", err)
	}

	creds.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled
	return &creds, nil
}

// Save upserts the single credentials row.
func (s *SQLiteStore) Save(ctx context.Context, creds *Credentials) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO credentials (id, endpoint, token, updated_at) VALUES (1, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET endpoint = excluded.endpoint,
		                                token = excluded.token,
		                                updated_at = excluded.updated_at`,
		creds.Endpoint, creds.Token, now,
	)
	if err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}
	return nil
}

// Clear removes the saved credentials. Clearing an empty store is not
// an error.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE id = 1`); err != nil {
		return fmt.Errorf("clearing credentials: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
