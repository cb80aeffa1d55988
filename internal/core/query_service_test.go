package core

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	calls int
	resp  json.RawMessage
	err   error
}

func (s *stubBackend) Answer(context.Context, *QueryRequest) (json.RawMessage, error) {
	s.calls++
	return s.resp, s.err
}

func TestQueryService_RequiresQuery(t *testing.T) {
	backend := &stubBackend{}
	svc := NewQueryService(backend, nil)

	_, err := svc.Query(context.Background(), &QueryRequest{})
	assert.ErrorIs(t, err, ErrMissingQuery)
	assert.Zero(t, backend.calls)
}

func TestQueryService_PassesBackendErrorThrough(t *testing.T) {
	backend := &stubBackend{err: &BackendError{StatusCode: http.StatusBadGateway}}
	svc := NewQueryService(backend, nil)

	_, err := svc.Query(context.Background(), &QueryRequest{Query: "rain?"})
	var be *BackendError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, http.StatusBadGateway, be.StatusCode)
}

func TestHTTPBackend_ForwardsForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "when to sow wheat?", r.FormValue("query"))
		assert.Equal(t, "hi", r.FormValue("language"))
		assert.Equal(t, "[104]", r.FormValue("districtId"))

		f, hdr, err := r.FormFile("image")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "leaf.png", hdr.Filename)
		assert.Equal(t, []byte("png-bytes"), data)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response":"November","mode":"agents"}`))
	}))
	defer srv.Close()

	b := NewHTTPBackend(srv.URL, 5*time.Second)
	fields := url.Values{}
	fields.Set("query", "when to sow wheat?")
	fields.Set("language", "hi")
	fields.Set("districtId", "[104]")

	resp, err := b.Answer(context.Background(), &QueryRequest{
		Query:  "when to sow wheat?",
		Fields: fields,
		Image:  &Image{Filename: "leaf.png", ContentType: "image/png", Data: []byte("png-bytes")},
	})
	require.NoError(t, err)

	var out QueryResponse
	require.NoError(t, json.Unmarshal(resp, &out))
	assert.Equal(t, "November", out.Response)
	assert.Equal(t, "agents", out.Mode)
}

func TestHTTPBackend_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewHTTPBackend(srv.URL, 5*time.Second).Answer(context.Background(), &QueryRequest{Query: "q"})
	var be *BackendError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, http.StatusServiceUnavailable, be.StatusCode)
	assert.Contains(t, be.Body, "model overloaded")
}

func TestBuildPrompt(t *testing.T) {
	fields := url.Values{}
	fields.Set("latitude", "26.4499")
	fields.Set("longitude", "80.3319")
	fields.Set("stateId", "8")
	fields.Set("districtId", "[104]")

	p := buildPrompt(&QueryRequest{Query: "pest on cotton", Language: "te", Fields: fields})
	assert.Contains(t, p, "Answer in Telugu.")
	assert.Contains(t, p, "latitude 26.4499")
	assert.Contains(t, p, "district ids: [104]")
	assert.Contains(t, p, "Question: pest on cotton")

	p = buildPrompt(&QueryRequest{Query: "q", Language: "xx"})
	assert.Contains(t, p, "Answer in English.")
}
