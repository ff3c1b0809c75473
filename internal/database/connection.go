// Package database owns the SQLCipher file backing every account record.
package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/amirk1998/secure-bank/pkg/errors"
)

type Config struct {
	Path          string
	EncryptionKey string
	MaxOpenConns  int
	MaxIdleConns  int
	MaxLifetime   time.Duration
	MaxIdleTime   time.Duration
}

// DefaultConfig returns pool settings suited to a single SQLCipher file.
func DefaultConfig(path, key string) Config {
	return Config{
		Path:          path,
		EncryptionKey: key,
		MaxOpenConns:  4,
		MaxIdleConns:  4,
		MaxLifetime:   time.Hour,
		MaxIdleTime:   15 * time.Minute,
	}
}

// Applied once per connection after the key is accepted.
var connectionPragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA secure_delete = ON",
	"PRAGMA synchronous = FULL",
	"PRAGMA temp_store = MEMORY",
}

func dsn(cfg Config) string {
	q := url.Values{}
	q.Set("_pragma_key", cfg.EncryptionKey)
	q.Set("_pragma_cipher_page_size", "4096")
	q.Set("_pragma_kdf_iter", "256000")
	q.Set("_journal_mode", "WAL")
	q.Set("_busy_timeout", "5000")
	q.Set("_foreign_keys", "ON")
	return "file:" + cfg.Path + "?" + q.Encode()
}

// Connect opens the encrypted account store. A wrong key surfaces as
// errors.ErrInvalidKey rather than a generic I/O failure.
func Connect(cfg Config) (*sql.DB, error) {
	if cfg.EncryptionKey == "" {
		return nil, errors.ErrInvalidKey
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrDatabaseConnection, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MaxLifetime)
	db.SetConnMaxIdleTime(cfg.MaxIdleTime)

	// SQLCipher only checks the key once a page is read.
	var tables int
	if err := db.QueryRow("SELECT count(*) FROM sqlite_master").Scan(&tables); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidKey, err)
	}

	for _, pragma := range connectionPragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	if err := os.Chmod(cfg.Path, 0600); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set file permissions: %w", err)
	}

	return db, nil
}
