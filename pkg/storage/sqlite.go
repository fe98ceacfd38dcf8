// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey.
//
// go-passkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	uid         TEXT    NOT NULL UNIQUE,
	username    TEXT    NOT NULL UNIQUE,
	email       TEXT    NOT NULL UNIQUE,
	name        TEXT    NOT NULL DEFAULT '',
	created_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS credentials (
	credential_id    BLOB    PRIMARY KEY,
	user_uid         TEXT    NOT NULL REFERENCES users(uid) ON DELETE CASCADE,
	public_key       BLOB    NOT NULL,
	credential_json  TEXT    NOT NULL,
	created_at       INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_credentials_user_uid ON credentials(user_uid);
`

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// fromMillis restores millisecond precision and keeps UTC normalization.
func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// SQLiteStore implements UserStore and CredentialStore over a single SQLite
// file, so the account row and its credentials share the same transaction
// and visibility boundaries.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens the store and applies the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Ping reports database connectivity, used by the readiness probe.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the underlying database.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// isUniqueViolation detects SQLite unique constraint failures.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

// CreateUser inserts a new account row.
func (s *SQLiteStore) CreateUser(ctx context.Context, user User) (User, error) {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO users (uid, username, email, name, created_at)
VALUES (?, ?, ?, ?, ?)`,
		user.UID, user.Username, user.Email, user.Name, toMillis(user.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrConflict
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *SQLiteStore) getUser(ctx context.Context, where string, arg any) (User, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT uid, username, email, name, created_at
FROM users WHERE `+where, arg)

	var user User
	var createdAt int64
	if err := row.Scan(&user.UID, &user.Username, &user.Email, &user.Name, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("scan user: %w", err)
	}
	user.CreatedAt = fromMillis(createdAt)
	return user, nil
}

// GetUserByUID retrieves an account by its external identifier.
func (s *SQLiteStore) GetUserByUID(ctx context.Context, uid string) (User, error) {
	return s.getUser(ctx, "uid = ?", uid)
}

// GetUserByUsername retrieves an account by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return s.getUser(ctx, "username = ?", username)
}

// DeleteUser removes an account row and its credentials in one transaction.
func (s *SQLiteStore) DeleteUser(ctx context.Context, uid string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM credentials WHERE user_uid = ?`, uid); err != nil {
		return fmt.Errorf("delete credentials: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE uid = ?`, uid)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// CreateCredential stores a new credential in a single statement.
func (s *SQLiteStore) CreateCredential(ctx context.Context, cred Credential) error {
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO credentials (credential_id, user_uid, public_key, credential_json, created_at)
VALUES (?, ?, ?, ?, ?)`,
		cred.ID, cred.UserUID, cred.PublicKey, cred.CredentialJSON, toMillis(cred.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCredential
		}
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

// GetCredential retrieves a credential by its id.
func (s *SQLiteStore) GetCredential(ctx context.Context, credentialID []byte) (Credential, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT credential_id, user_uid, public_key, credential_json, created_at
FROM credentials WHERE credential_id = ?`, credentialID)

	var cred Credential
	var createdAt int64
	if err := row.Scan(&cred.ID, &cred.UserUID, &cred.PublicKey, &cred.CredentialJSON, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return Credential{}, ErrCredentialNotFound
		}
		return Credential{}, fmt.Errorf("scan credential: %w", err)
	}
	cred.CreatedAt = fromMillis(createdAt)
	return cred, nil
}

// ListCredentialsByUser retrieves all credentials owned by an account.
func (s *SQLiteStore) ListCredentialsByUser(ctx context.Context, uid string) ([]Credential, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT credential_id, user_uid, public_key, credential_json, created_at
FROM credentials WHERE user_uid = ? ORDER BY created_at`, uid)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	creds := make([]Credential, 0)
	for rows.Next() {
		var cred Credential
		var createdAt int64
		if err := rows.Scan(&cred.ID, &cred.UserUID, &cred.PublicKey, &cred.CredentialJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		cred.CreatedAt = fromMillis(createdAt)
		creds = append(creds, cred)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	return creds, nil
}

var _ UserStore = (*SQLiteStore)(nil)
var _ CredentialStore = (*SQLiteStore)(nil)
