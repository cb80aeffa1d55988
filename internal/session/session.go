// Package session tracks who is signed in on this client. Identity is a
// bare username persisted in a TokenStore; it is trusted optimistically on
// startup and then confirmed or revoked by a directory lookup.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"agrisahayak.in/agri-sahayak/internal/client"
	"agrisahayak.in/agri-sahayak/internal/prefs"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrNoFieldsToUpdate   = errors.New("no fields to update")
	ErrNotAuthenticated   = errors.New("not signed in")
	ErrProfileUnavailable = errors.New("profile could not be verified")
)

// Directory is the remote user directory. *client.Client implements it.
type Directory interface {
	Login(ctx context.Context, username, password string) error
	Signup(ctx context.Context, req client.SignupRequest) error
	User(ctx context.Context, username string) (*client.User, error)
	Update(ctx context.Context, req client.UpdateRequest) error
}

// TokenStore persists the identity token. *prefs.File implements it.
type TokenStore interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(key string) error
}

type Status int

const (
	// Anonymous covers both "never signed in" and a revoked session.
	Anonymous Status = iota
	// Unverified means a username is trusted but its profile is not loaded.
	Unverified
	Verified
)

func (s Status) String() string {
	switch s {
	case Unverified:
		return "unverified"
	case Verified:
		return "verified"
	default:
		return "anonymous"
	}
}

type Profile struct {
	Username   string
	StateID    int
	DistrictID int
}

type State struct {
	Status  Status
	Profile Profile
}

func (s State) IsAuthenticated() bool {
	return s.Status != Anonymous
}

// ProfileUpdate holds the fields to change; nil means unchanged.
type ProfileUpdate struct {
	Password   *string
	StateID    *int
	DistrictID *int
}

func (u ProfileUpdate) empty() bool {
	return u.Password == nil && u.StateID == nil && u.DistrictID == nil
}

type Manager struct {
	dir    Directory
	tokens TokenStore
	logger *zap.Logger

	mu        sync.RWMutex
	state     State
	gen       uint64
	observers []func(State)
}

func NewManager(dir Directory, tokens TokenStore, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{dir: dir, tokens: tokens, logger: logger}
}

// OnChange registers fn to be called after every state transition.
func (m *Manager) OnChange(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Manager) IsAuthenticated() bool {
	return m.State().IsAuthenticated()
}

// Profile returns the verified profile.
func (m *Manager) Profile() (Profile, bool) {
	s := m.State()
	return s.Profile, s.Status == Verified
}

func (m *Manager) Username() string {
	return m.State().Profile.Username
}

// Restore reads the persisted token and verifies it before returning.
func (m *Manager) Restore(ctx context.Context) {
	username, gen, ok := m.beginRestore()
	if !ok {
		return
	}
	m.verify(ctx, username, gen)
}

// RestoreAsync is Restore with verification on a goroutine. The returned
// channel is closed once the session is verified or revoked.
func (m *Manager) RestoreAsync(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	username, gen, ok := m.beginRestore()
	if !ok {
		close(done)
		return done
	}
	go func() {
		defer close(done)
		m.verify(ctx, username, gen)
	}()
	return done
}

func (m *Manager) beginRestore() (string, uint64, bool) {
	username, ok := m.tokens.Get(prefs.KeyAuth)
	if !ok || username == "" {
		return "", 0, false
	}
	gen := m.transition(State{Status: Unverified, Profile: Profile{Username: username}})
	return username, gen, true
}

// verify loads the profile for username. Any failure revokes the session,
// unless another transition happened in the meantime.
func (m *Manager) verify(ctx context.Context, username string, gen uint64) bool {
	user, err := m.dir.User(ctx, username)
	if err != nil {
		m.logger.Warn("session verification failed, signing out",
			zap.String("username", username), zap.Error(err))
		m.mu.RLock()
		current := m.gen == gen
		m.mu.RUnlock()
		if current {
			m.Logout()
		}
		return false
	}

	m.transitionIf(gen, State{Status: Verified, Profile: Profile{
		Username:   user.Username,
		StateID:    user.StateID,
		DistrictID: user.DistrictID,
	}})
	return true
}

// Login checks credentials, persists the token, then loads the profile.
// Unknown users and wrong passwords both yield ErrInvalidCredentials and
// leave the current session untouched.
func (m *Manager) Login(ctx context.Context, username, password string) error {
	if err := m.dir.Login(ctx, username, password); err != nil {
		if errors.Is(err, client.ErrInvalidCredentials) || errors.Is(err, client.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("login failed: %w", err)
	}

	// Switching identity passes through Anonymous so observers drop the
	// previous user's data.
	if cur := m.State(); cur.IsAuthenticated() && cur.Profile.Username != username {
		m.Logout()
	}

	if err := m.tokens.Set(prefs.KeyAuth, username); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	gen := m.transition(State{Status: Unverified, Profile: Profile{Username: username}})

	if !m.verify(ctx, username, gen) {
		return ErrProfileUnavailable
	}
	return nil
}

// Signup creates an account. It does not sign in.
func (m *Manager) Signup(ctx context.Context, username, password string, stateID, districtID int) error {
	err := m.dir.Signup(ctx, client.SignupRequest{
		Username:   username,
		Password:   password,
		StateID:    stateID,
		DistrictID: districtID,
	})
	if err != nil {
		if errors.Is(err, client.ErrConflict) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("signup failed: %w", err)
	}
	return nil
}

// Logout forgets the identity. Cached data is left to the caller.
func (m *Manager) Logout() {
	if err := m.tokens.Delete(prefs.KeyAuth); err != nil {
		m.logger.Warn("failed to delete session token", zap.Error(err))
	}
	m.transition(State{Status: Anonymous})
}

// UpdateProfile sends the given fields to the directory and, on success,
// applies them to the in-memory profile without re-reading it.
func (m *Manager) UpdateProfile(ctx context.Context, u ProfileUpdate) error {
	if u.empty() {
		return ErrNoFieldsToUpdate
	}

	m.mu.RLock()
	state, gen := m.state, m.gen
	m.mu.RUnlock()
	if !state.IsAuthenticated() {
		return ErrNotAuthenticated
	}

	err := m.dir.Update(ctx, client.UpdateRequest{
		Username:   state.Profile.Username,
		Password:   u.Password,
		StateID:    u.StateID,
		DistrictID: u.DistrictID,
	})
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}

	if u.StateID != nil {
		state.Profile.StateID = *u.StateID
	}
	if u.DistrictID != nil {
		state.Profile.DistrictID = *u.DistrictID
	}
	m.transitionIf(gen, state)
	return nil
}

func (m *Manager) transition(s State) uint64 {
	m.mu.Lock()
	m.gen++
	gen := m.gen
	m.state = s
	observers := slices.Clone(m.observers)
	m.mu.Unlock()

	for _, fn := range observers {
		fn(s)
	}
	return gen
}

// transitionIf applies s only if no other transition happened since gen.
// It does not advance gen, so an in-flight verify stays valid.
func (m *Manager) transitionIf(gen uint64, s State) {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	m.state = s
	observers := slices.Clone(m.observers)
	m.mu.Unlock()

	for _, fn := range observers {
		fn(s)
	}
}
