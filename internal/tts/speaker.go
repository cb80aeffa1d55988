package tts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Synthesizer produces audio for text.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, lang string) ([]byte, error)
}

// Speaker saves synthesized answers as audio files so the terminal user
// can play them.
type Speaker struct {
	synth Synthesizer
	dir   string
}

func NewSpeaker(synth Synthesizer, dir string) *Speaker {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "agri-sahayak-audio")
	}
	return &Speaker{synth: synth, dir: dir}
}

// Speak returns the path of the written audio file.
func (s *Speaker) Speak(ctx context.Context, text, lang string) (string, error) {
	audio, err := s.synth.Synthesize(ctx, text, lang)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create audio dir: %w", err)
	}
	path := filepath.Join(s.dir, uuid.NewString()+".wav")
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		return "", fmt.Errorf("write audio: %w", err)
	}
	return path, nil
}
