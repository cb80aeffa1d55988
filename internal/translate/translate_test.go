package translate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTranslate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/get", r.URL.Path)
		assert.Equal(t, "Good morning", r.URL.Query().Get("q"))
		assert.Equal(t, "en|hi", r.URL.Query().Get("langpair"))
		w.Write([]byte(`{"responseData":{"translatedText":"सुप्रभात"},"responseStatus":200}`))
	}))
	defer srv.Close()

	got := NewClient(srv.URL, time.Second, nil).Translate(context.Background(), "Good morning", "en-US", "hi-IN")
	assert.Equal(t, "सुप्रभात", got)
}

func TestTranslate_SameLanguageSkipsCall(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	got := NewClient(srv.URL, time.Second, nil).Translate(context.Background(), "hello", "en", "en-GB")
	assert.Equal(t, "hello", got)
	assert.Zero(t, calls.Load())
}

func TestTranslate_FallsBackOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, nil)
	assert.Equal(t, "hello", c.Translate(context.Background(), "hello", "en", "ta"))

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer bad.Close()
	assert.Equal(t, "hello", NewClient(bad.URL, time.Second, nil).Translate(context.Background(), "hello", "en", "ta"))
}
