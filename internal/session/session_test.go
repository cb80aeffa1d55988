package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"agrisahayak.in/agri-sahayak/internal/client"
	"agrisahayak.in/agri-sahayak/internal/prefs"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type memTokens struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemTokens() *memTokens { return &memTokens{values: map[string]string{}} }

func (t *memTokens) Get(key string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.values[key]
	return v, ok
}

func (t *memTokens) Set(key, value string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.values[key] = value
	return nil
}

func (t *memTokens) Delete(key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.values, key)
	return nil
}

type fakeUser struct {
	password string
	client.User
}

// fakeDirectory mimics the server's status-code behaviour.
type fakeDirectory struct {
	mu          sync.Mutex
	users       map[string]*fakeUser
	userLookups int
	userErr     error
	updateErr   error
	lastUpdate  *client.UpdateRequest
	block       chan struct{}
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{users: map[string]*fakeUser{}}
}

func (d *fakeDirectory) Login(_ context.Context, username, password string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[username]
	if !ok || u.password != password {
		return &client.StatusError{StatusCode: http.StatusUnauthorized, Message: "Invalid credentials"}
	}
	return nil
}

func (d *fakeDirectory) Signup(_ context.Context, req client.SignupRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.users[req.Username]; ok {
		return &client.StatusError{StatusCode: http.StatusConflict}
	}
	d.users[req.Username] = &fakeUser{
		password: req.Password,
		User:     client.User{Username: req.Username, StateID: req.StateID, DistrictID: req.DistrictID},
	}
	return nil
}

func (d *fakeDirectory) User(ctx context.Context, username string) (*client.User, error) {
	if d.block != nil {
		select {
		case <-d.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.userLookups++
	if d.userErr != nil {
		return nil, d.userErr
	}
	u, ok := d.users[username]
	if !ok {
		return nil, &client.StatusError{StatusCode: http.StatusNotFound}
	}
	cp := u.User
	return &cp, nil
}

func (d *fakeDirectory) Update(_ context.Context, req client.UpdateRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastUpdate = &req
	if d.updateErr != nil {
		return d.updateErr
	}
	u, ok := d.users[req.Username]
	if !ok {
		return &client.StatusError{StatusCode: http.StatusNotFound}
	}
	if req.StateID != nil {
		u.StateID = *req.StateID
	}
	if req.DistrictID != nil {
		u.DistrictID = *req.DistrictID
	}
	return nil
}

func (d *fakeDirectory) lookups() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.userLookups
}

func TestSignupThenLogin(t *testing.T) {
	dir := newFakeDirectory()
	tokens := newMemTokens()
	m := NewManager(dir, tokens, nil)
	ctx := context.Background()

	require.NoError(t, m.Signup(ctx, "ravi", "pass123", 8, 104))
	assert.False(t, m.IsAuthenticated(), "signup does not sign in")

	err := m.Login(ctx, "ravi", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.False(t, m.IsAuthenticated())
	_, ok := tokens.Get(prefs.KeyAuth)
	assert.False(t, ok)

	require.NoError(t, m.Login(ctx, "ravi", "pass123"))
	p, ok := m.Profile()
	require.True(t, ok)
	assert.Equal(t, Profile{Username: "ravi", StateID: 8, DistrictID: 104}, p)
	token, _ := tokens.Get(prefs.KeyAuth)
	assert.Equal(t, "ravi", token)
}

func TestLogin_UnknownUserIsInvalidCredentials(t *testing.T) {
	m := NewManager(newFakeDirectory(), newMemTokens(), nil)
	err := m.Login(context.Background(), "nobody", "x")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, Anonymous, m.State().Status)
}

func TestLogin_TransportFailureIsNotCredentials(t *testing.T) {
	dir := &failingLogin{fakeDirectory: newFakeDirectory(), err: errors.New("connection refused")}
	m := NewManager(dir, newMemTokens(), nil)

	err := m.Login(context.Background(), "ravi", "pass123")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

type failingLogin struct {
	*fakeDirectory
	err error
}

func (f *failingLogin) Login(context.Context, string, string) error { return f.err }

func TestSignup_Conflict(t *testing.T) {
	m := NewManager(newFakeDirectory(), newMemTokens(), nil)
	ctx := context.Background()
	require.NoError(t, m.Signup(ctx, "ravi", "pass123", 8, 104))
	assert.ErrorIs(t, m.Signup(ctx, "ravi", "other", 1, 1), ErrUsernameTaken)
}

func TestRestore_Verified(t *testing.T) {
	dir := newFakeDirectory()
	require.NoError(t, dir.Signup(context.Background(), client.SignupRequest{Username: "ravi", Password: "p", StateID: 8, DistrictID: 104}))
	tokens := newMemTokens()
	tokens.Set(prefs.KeyAuth, "ravi")

	m := NewManager(dir, tokens, nil)
	var seen []Status
	m.OnChange(func(s State) { seen = append(seen, s.Status) })

	m.Restore(context.Background())
	assert.Equal(t, []Status{Unverified, Verified}, seen)
	p, ok := m.Profile()
	require.True(t, ok)
	assert.Equal(t, 104, p.DistrictID)
}

func TestRestore_UnknownUserRevokes(t *testing.T) {
	tokens := newMemTokens()
	tokens.Set(prefs.KeyAuth, "ghost")
	m := NewManager(newFakeDirectory(), tokens, nil)

	m.Restore(context.Background())
	assert.Equal(t, Anonymous, m.State().Status)
	_, ok := tokens.Get(prefs.KeyAuth)
	assert.False(t, ok, "token must be deleted")
}

func TestRestore_LookupFailureRevokes(t *testing.T) {
	dir := newFakeDirectory()
	dir.userErr = errors.New("timeout")
	tokens := newMemTokens()
	tokens.Set(prefs.KeyAuth, "ravi")
	m := NewManager(dir, tokens, nil)

	m.Restore(context.Background())
	assert.False(t, m.IsAuthenticated())
}

func TestRestore_NoToken(t *testing.T) {
	dir := newFakeDirectory()
	m := NewManager(dir, newMemTokens(), nil)
	m.Restore(context.Background())
	<-m.RestoreAsync(context.Background())
	assert.Equal(t, Anonymous, m.State().Status)
	assert.Zero(t, dir.lookups())
}

func TestRestoreAsync_OptimisticThenVerified(t *testing.T) {
	dir := newFakeDirectory()
	require.NoError(t, dir.Signup(context.Background(), client.SignupRequest{Username: "ravi", Password: "p", StateID: 8, DistrictID: 104}))
	dir.block = make(chan struct{})
	tokens := newMemTokens()
	tokens.Set(prefs.KeyAuth, "ravi")
	m := NewManager(dir, tokens, nil)

	done := m.RestoreAsync(context.Background())
	assert.True(t, m.IsAuthenticated(), "trusted before verification")
	assert.Equal(t, Unverified, m.State().Status)
	_, ok := m.Profile()
	assert.False(t, ok)

	close(dir.block)
	<-done
	assert.Equal(t, Verified, m.State().Status)
}

func TestRestoreAsync_LogoutWinsOverLateVerification(t *testing.T) {
	dir := newFakeDirectory()
	require.NoError(t, dir.Signup(context.Background(), client.SignupRequest{Username: "ravi", Password: "p", StateID: 8, DistrictID: 104}))
	dir.block = make(chan struct{})
	tokens := newMemTokens()
	tokens.Set(prefs.KeyAuth, "ravi")
	m := NewManager(dir, tokens, nil)

	done := m.RestoreAsync(context.Background())
	m.Logout()
	close(dir.block)
	<-done

	assert.Equal(t, Anonymous, m.State().Status)
}

func TestUpdateProfile_AppliesWithoutReread(t *testing.T) {
	dir := newFakeDirectory()
	m := NewManager(dir, newMemTokens(), nil)
	ctx := context.Background()
	require.NoError(t, m.Signup(ctx, "ravi", "pass123", 8, 104))
	require.NoError(t, m.Login(ctx, "ravi", "pass123"))
	before := dir.lookups()

	state := 9
	require.NoError(t, m.UpdateProfile(ctx, ProfileUpdate{StateID: &state}))

	p, ok := m.Profile()
	require.True(t, ok)
	assert.Equal(t, 9, p.StateID)
	assert.Equal(t, 104, p.DistrictID)
	assert.Equal(t, before, dir.lookups(), "no directory read after update")
	require.NotNil(t, dir.lastUpdate)
	assert.Nil(t, dir.lastUpdate.Password)
	assert.Nil(t, dir.lastUpdate.DistrictID)
}

func TestUpdateProfile_Errors(t *testing.T) {
	dir := newFakeDirectory()
	m := NewManager(dir, newMemTokens(), nil)
	ctx := context.Background()

	assert.ErrorIs(t, m.UpdateProfile(ctx, ProfileUpdate{}), ErrNoFieldsToUpdate)
	assert.Nil(t, dir.lastUpdate, "validated before any call")

	state := 9
	assert.ErrorIs(t, m.UpdateProfile(ctx, ProfileUpdate{StateID: &state}), ErrNotAuthenticated)

	require.NoError(t, m.Signup(ctx, "ravi", "pass123", 8, 104))
	require.NoError(t, m.Login(ctx, "ravi", "pass123"))
	dir.updateErr = errors.New("server down")
	assert.Error(t, m.UpdateProfile(ctx, ProfileUpdate{StateID: &state}))
	p, _ := m.Profile()
	assert.Equal(t, 8, p.StateID, "failed update leaves state unchanged")
}

func TestLogout(t *testing.T) {
	dir := newFakeDirectory()
	tokens := newMemTokens()
	m := NewManager(dir, tokens, nil)
	ctx := context.Background()
	require.NoError(t, m.Signup(ctx, "ravi", "pass123", 8, 104))
	require.NoError(t, m.Login(ctx, "ravi", "pass123"))

	var last State
	m.OnChange(func(s State) { last = s })
	m.Logout()

	assert.Equal(t, Anonymous, last.Status)
	assert.Empty(t, m.Username())
	_, ok := tokens.Get(prefs.KeyAuth)
	assert.False(t, ok)
}

func TestLogin_SwitchingUserPassesThroughAnonymous(t *testing.T) {
	dir := newFakeDirectory()
	m := NewManager(dir, newMemTokens(), nil)
	ctx := context.Background()
	require.NoError(t, m.Signup(ctx, "ravi", "pass123", 8, 104))
	require.NoError(t, m.Signup(ctx, "sita", "pass123", 9, 200))
	require.NoError(t, m.Login(ctx, "ravi", "pass123"))

	var first, second []Status
	m.OnChange(func(s State) { first = append(first, s.Status) })
	m.OnChange(func(s State) { second = append(second, s.Status) })

	require.Error(t, m.Login(ctx, "sita", "wrong"))
	assert.Empty(t, first, "failed login keeps the current session")
	assert.Equal(t, "ravi", m.Username())

	require.NoError(t, m.Login(ctx, "sita", "pass123"))
	assert.Equal(t, []Status{Anonymous, Unverified, Verified}, first)
	assert.Equal(t, first, second, "every observer sees every transition")
	p, ok := m.Profile()
	require.True(t, ok)
	assert.Equal(t, 200, p.DistrictID)

	first = nil
	require.NoError(t, m.Login(ctx, "sita", "pass123"))
	assert.Equal(t, []Status{Unverified, Verified}, first, "same user is not signed out")
}
