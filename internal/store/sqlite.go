package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3" // SQLite driver
)

var (
	ErrUsernameTaken = errors.New("username already exists")
	ErrUserNotFound  = errors.New("user not found")
	ErrNoFields      = errors.New("no fields to update")
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        username TEXT UNIQUE NOT NULL,
        password_hash TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );
    `
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return s.migrateLocationColumns()
}

// migrateLocationColumns adds state_id and district_id to directories
// created before users carried a home location.
func (s *SQLiteStore) migrateLocationColumns() error {
	rows, err := s.db.Query("PRAGMA table_info(users)")
	if err != nil {
		return fmt.Errorf("failed to read users table info: %w", err)
	}
	defer rows.Close()

	missing := map[string]bool{"state_id": true, "district_id": true}
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return fmt.Errorf("failed to scan users table info: %w", err)
		}
		delete(missing, name)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate users table info: %w", err)
	}
	rows.Close()

	for _, column := range []string{"state_id", "district_id"} {
		if !missing[column] {
			continue
		}
		if _, err := s.db.Exec("ALTER TABLE users ADD COLUMN " + column + " INTEGER"); err != nil {
			return fmt.Errorf("failed to add %s column: %w", column, err)
		}
	}
	return nil
}

// User methods
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var (
		user       User
		stateID    sql.NullInt64
		districtID sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, state_id, district_id, created_at FROM users WHERE username = ?", username,
	).Scan(&user.ID, &user.Username, &user.PasswordHash, &stateID, &districtID, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	user.StateID = int(stateID.Int64)
	user.DistrictID = int(districtID.Int64)
	return &user, nil
}

func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string, stateID, districtID int) (*User, error) {
	now := time.Now()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, state_id, district_id, created_at) VALUES (?, ?, ?, ?, ?)",
		username, passwordHash, stateID, districtID, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	id, _ := res.LastInsertId()
	return &User{
		ID:           id,
		Username:     username,
		PasswordHash: passwordHash,
		StateID:      stateID,
		DistrictID:   districtID,
		CreatedAt:    now,
	}, nil
}

// UpdateUser applies the non-nil fields of update to the named user.
func (s *SQLiteStore) UpdateUser(ctx context.Context, username string, update UserUpdate) error {
	if update.IsEmpty() {
		return ErrNoFields
	}

	var (
		sets []string
		args []any
	)
	if update.PasswordHash != nil {
		sets = append(sets, "password_hash = ?")
		args = append(args, *update.PasswordHash)
	}
	if update.StateID != nil {
		sets = append(sets, "state_id = ?")
		args = append(args, *update.StateID)
	}
	if update.DistrictID != nil {
		sets = append(sets, "district_id = ?")
		args = append(args, *update.DistrictID)
	}
	args = append(args, username)

	query := "UPDATE users SET " + strings.Join(sets, ", ") + " WHERE username = ?"
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to execute user update: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *SQLiteStore) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
