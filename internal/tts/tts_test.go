package tts

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestDetectLanguage(t *testing.T) {
	tests := map[string]string{
		"गेहूं की बुवाई नवंबर में करें":                      "hi",
		"ਕਣਕ ਦੀ ਬਿਜਾਈ":                                       "pa",
		"వరి పంటకు నీరు పెట్టండి":                            "te",
		"நெல் பயிருக்கு தண்ணீர்":                             "ta",
		"Irrigate the wheat tomorrow.":                       "en",
		"":                                                   "en",
		"!!! ...":                                            "en",
		"Use 50 kg urea प्रति acre in the month of November": "en",
	}
	for text, want := range tests {
		assert.Equal(t, want, DetectLanguage(text), text)
	}
}

func TestLanguageID(t *testing.T) {
	assert.Equal(t, 81, LanguageID("hi"))
	assert.Equal(t, 148, LanguageID("pa"))
	assert.Equal(t, 101, LanguageID("mr"))
	assert.Equal(t, 129, LanguageID("te"))
	assert.Equal(t, 125, LanguageID("ta"))
	assert.Equal(t, 1, LanguageID("en"))
}

type fakeCamb struct {
	statusCalls atomic.Int32
	statuses    []string
}

func (f *fakeCamb) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /apis/tts", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		w.Write([]byte(`{"task_id":"task-1"}`))
	})
	mux.HandleFunc("GET /apis/tts/task-1", func(w http.ResponseWriter, r *http.Request) {
		n := int(f.statusCalls.Add(1)) - 1
		status := "PENDING"
		if n < len(f.statuses) {
			status = f.statuses[n]
		}
		if status == "SUCCESS" {
			w.Write([]byte(`{"status":"SUCCESS","run_id":42}`))
			return
		}
		w.Write([]byte(`{"status":"` + status + `"}`))
	})
	mux.HandleFunc("GET /apis/tts-result/42", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("RIFF-audio"))
	})
	return mux
}

func newTestClient(url string, attempts int) *Client {
	return NewClient(Options{
		BaseURL:      url + "/apis",
		APIKey:       "secret",
		VoiceID:      20305,
		MaxAttempts:  attempts,
		PollInterval: time.Millisecond,
		Timeout:      time.Second,
	}, nil)
}

func TestSynthesize(t *testing.T) {
	fake := &fakeCamb{statuses: []string{"PENDING", "SUCCESS"}}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	audio, err := newTestClient(srv.URL, 5).Synthesize(context.Background(), "नमस्ते किसान", "")
	require.NoError(t, err)
	assert.Equal(t, []byte("RIFF-audio"), audio)
	assert.Equal(t, int32(2), fake.statusCalls.Load())
}

func TestSynthesize_SkipsEnglish(t *testing.T) {
	_, err := newTestClient("http://127.0.0.1:1", 1).Synthesize(context.Background(), "hello", "en")
	assert.ErrorIs(t, err, ErrSkipped)
}

func TestPoll_TimesOutAfterMaxAttempts(t *testing.T) {
	fake := &fakeCamb{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	res, err := newTestClient(srv.URL, 3).Poll(context.Background(), "task-1")
	assert.ErrorIs(t, err, ErrTimedOut)
	assert.Equal(t, TimedOut, res.Outcome)
	assert.Equal(t, int32(3), fake.statusCalls.Load(), "exactly MaxAttempts status checks")
}

func TestPoll_Failed(t *testing.T) {
	fake := &fakeCamb{statuses: []string{"PENDING", "FAILED"}}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	res, err := newTestClient(srv.URL, 10).Poll(context.Background(), "task-1")
	assert.ErrorIs(t, err, ErrTaskFailed)
	assert.Equal(t, Failed, res.Outcome)
}

func TestPoll_StatusErrorsCountAsAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 4).Poll(context.Background(), "task-1")
	assert.ErrorIs(t, err, ErrTimedOut)
	assert.Contains(t, err.Error(), "overloaded")
	assert.Equal(t, int32(4), calls.Load())
}

func TestPoll_ContextCancelled(t *testing.T) {
	fake := &fakeCamb{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL + "/apis", MaxAttempts: 1000, PollInterval: time.Hour}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res, err := c.Poll(ctx, "task-1")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, TimedOut, res.Outcome)
}

type stubSynth struct {
	audio []byte
	err   error
}

func (s stubSynth) Synthesize(context.Context, string, string) ([]byte, error) { return s.audio, s.err }

func TestSpeaker(t *testing.T) {
	dir := t.TempDir()
	path, err := NewSpeaker(stubSynth{audio: []byte("wav")}, dir).Speak(context.Background(), "x", "hi")
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("wav"), data)

	_, err = NewSpeaker(stubSynth{err: ErrSkipped}, dir).Speak(context.Background(), "x", "en")
	assert.ErrorIs(t, err, ErrSkipped)
}
