package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrisahayak.in/agri-sahayak/internal/api"
	"agrisahayak.in/agri-sahayak/internal/core"
	"agrisahayak.in/agri-sahayak/internal/store"
)

type echoBackend struct{}

func (echoBackend) Answer(_ context.Context, req *core.QueryRequest) (json.RawMessage, error) {
	return json.Marshal(core.QueryResponse{Response: "echo: " + req.Query, Mode: "test"})
}

func jsonDecode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func newServer(t *testing.T) *Client {
	t.Helper()
	db, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ds, err := core.NewDirectoryService(db, nil)
	require.NoError(t, err)
	h := api.NewAPIHandler(ds, core.NewQueryService(echoBackend{}, nil), db, nil)
	srv := httptest.NewServer(api.NewRouter(h, []string{"*"}))
	t.Cleanup(srv.Close)

	return New(srv.URL, 5*time.Second, nil)
}

func TestClient_AgainstServer(t *testing.T) {
	c := newServer(t)
	ctx := context.Background()

	require.NoError(t, c.Signup(ctx, SignupRequest{Username: "ravi", Password: "pass123", StateID: 8, DistrictID: 104}))
	assert.ErrorIs(t, c.Signup(ctx, SignupRequest{Username: "ravi", Password: "x", StateID: 1, DistrictID: 1}), ErrConflict)

	assert.ErrorIs(t, c.Login(ctx, "ravi", "wrong"), ErrInvalidCredentials)
	assert.ErrorIs(t, c.Login(ctx, "nobody", "pass123"), ErrInvalidCredentials)
	require.NoError(t, c.Login(ctx, "ravi", "pass123"))

	user, err := c.User(ctx, "ravi")
	require.NoError(t, err)
	assert.Equal(t, User{Username: "ravi", StateID: 8, DistrictID: 104}, *user)

	_, err = c.User(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, c.Update(ctx, UpdateRequest{Username: "ravi"}), ErrValidation)

	resp, err := c.Query(ctx, QueryRequest{Query: "hello", Language: "en", StateID: 8, DistrictIDs: []int{104}})
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", resp.Response)
}
