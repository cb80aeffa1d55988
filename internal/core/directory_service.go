package core

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"agrisahayak.in/agri-sahayak/internal/auth"
	"agrisahayak.in/agri-sahayak/internal/store"
)

const (
	defaultUsername   = "admin"
	defaultPassword   = "password"
	defaultStateID    = 8   // Uttar Pradesh
	defaultDistrictID = 104 // Kanpur Nagar

	// maxPasswordBytes is the longest input bcrypt accepts.
	maxPasswordBytes = 72
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingFields      = errors.New("missing required fields")
	ErrPasswordTooLong    = errors.New("password is longer than 72 bytes")
)

// UserRepository is the persistence the directory needs. *store.SQLiteStore
// implements it.
type UserRepository interface {
	GetUserByUsername(ctx context.Context, username string) (*store.User, error)
	CreateUser(ctx context.Context, username, passwordHash string, stateID, districtID int) (*store.User, error)
	UpdateUser(ctx context.Context, username string, update store.UserUpdate) error
	CountUsers(ctx context.Context) (int, error)
}

// ProfileChange carries the optional fields of a profile update.
type ProfileChange struct {
	Password   *string
	StateID    *int
	DistrictID *int
}

type DirectoryService struct {
	users  UserRepository
	logger *zap.Logger

	// dummyHash is compared against when the username does not exist so
	// that both failure paths cost one bcrypt comparison.
	dummyHash string
}

func NewDirectoryService(users UserRepository, logger *zap.Logger) (*DirectoryService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dummy, err := auth.HashPassword("agri-sahayak-dummy")
	if err != nil {
		return nil, err
	}
	return &DirectoryService{users: users, logger: logger, dummyHash: dummy}, nil
}

func (s *DirectoryService) Signup(ctx context.Context, username, password string, stateID, districtID int) (*store.User, error) {
	if username == "" || password == "" {
		return nil, ErrMissingFields
	}
	if len(password) > maxPasswordBytes {
		return nil, ErrPasswordTooLong
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.CreateUser(ctx, username, hash, stateID, districtID)
	if err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.logger.Info("user created", zap.String("username", username))
	return user, nil
}

// Authenticate checks credentials. Unknown users and wrong passwords both
// yield ErrInvalidCredentials.
func (s *DirectoryService) Authenticate(ctx context.Context, username, password string) (*store.User, error) {
	if username == "" || password == "" {
		return nil, ErrMissingFields
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		auth.CheckPasswordHash(password, s.dummyHash)
		return nil, ErrInvalidCredentials
	}
	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *DirectoryService) GetUser(ctx context.Context, username string) (*store.User, error) {
	if username == "" {
		return nil, ErrMissingFields
	}
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return nil, store.ErrUserNotFound
	}
	return user, nil
}

// UpdateUser applies a partial profile change. An unknown user is reported
// before an empty change. The password is rehashed only when present.
func (s *DirectoryService) UpdateUser(ctx context.Context, username string, change ProfileChange) error {
	if username == "" {
		return ErrMissingFields
	}
	if _, err := s.GetUser(ctx, username); err != nil {
		return err
	}

	update := store.UserUpdate{
		StateID:    change.StateID,
		DistrictID: change.DistrictID,
	}
	if change.Password != nil && *change.Password != "" {
		if len(*change.Password) > maxPasswordBytes {
			return ErrPasswordTooLong
		}
		hash, err := auth.HashPassword(*change.Password)
		if err != nil {
			return err
		}
		update.PasswordHash = &hash
	}
	if update.IsEmpty() {
		return store.ErrNoFields
	}

	if err := s.users.UpdateUser(ctx, username, update); err != nil {
		if errors.Is(err, store.ErrUserNotFound) || errors.Is(err, store.ErrNoFields) {
			return err
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	s.logger.Info("user updated", zap.String("username", username))
	return nil
}

// SeedDefaultUser creates the admin account on an empty directory.
func (s *DirectoryService) SeedDefaultUser(ctx context.Context) error {
	n, err := s.users.CountUsers(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := s.Signup(ctx, defaultUsername, defaultPassword, defaultStateID, defaultDistrictID); err != nil {
		return fmt.Errorf("failed to seed default user: %w", err)
	}
	s.logger.Warn("default admin user created; change its password", zap.String("username", defaultUsername))
	return nil
}
