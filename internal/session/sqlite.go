package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"impact-registration/internal/logger"
)

// SQLStore persists credentials in a single key/value table
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// OpenSQLite opens (creating if needed) the credential database at path
func OpenSQLite(ctx context.Context, path string) (*sql.DB, *SQLStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open session database: %w", err)
	}
	// sqlite allows one writer at a time
	db.SetMaxOpenConns(1)

	store := NewSQLStore(db)
	if err := store.CreateTables(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, store, nil
}

// CreateTables creates the credentials table
func (s *SQLStore) CreateTables(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS credentials (
		cred_key TEXT PRIMARY KEY,
		token TEXT NOT NULL,
		updated_on DATETIME NOT NULL
	)`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create credentials table: %w", err)
	}
	return nil
}

func (s *SQLStore) Read(ctx context.Context, key string) (string, error) {
	query := `SELECT token FROM credentials WHERE cred_key = ?`
	logger.StoreCall("SELECT", key)

	var token string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		logger.StoreResult("SELECT", 0, nil)
		return "", ErrNoCredential
	}
	logger.StoreResult("SELECT", 1, err)
	if err != nil {
		return "", fmt.Errorf("failed to read credential: %w", err)
	}
	return token, nil
}

func (s *SQLStore) Write(ctx context.Context, key, token string) error {
	query := `INSERT INTO credentials (cred_key, token, updated_on) VALUES (?, ?, ?)
	          ON CONFLICT(cred_key) DO UPDATE SET token = excluded.token, updated_on = excluded.updated_on`
	logger.StoreCall("UPSERT", key)

	result, err := s.db.ExecContext(ctx, query, key, token, time.Now().UTC())
	if err != nil {
		logger.StoreResult("UPSERT", 0, err)
		return fmt.Errorf("failed to write credential: %w", err)
	}
	rows, _ := result.RowsAffected()
	logger.StoreResult("UPSERT", rows, nil)
	return nil
}

func (s *SQLStore) Clear(ctx context.Context, key string) error {
	query := `DELETE FROM credentials WHERE cred_key = ?`
	logger.StoreCall("DELETE", key)

	result, err := s.db.ExecContext(ctx, query, key)
	if err != nil {
		logger.StoreResult("DELETE", 0, err)
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	rows, _ := result.RowsAffected()
	logger.StoreResult("DELETE", rows, nil)
	return nil
}
