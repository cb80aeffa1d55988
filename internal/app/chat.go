package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"agrisahayak.in/agri-sahayak/internal/cache"
	"agrisahayak.in/agri-sahayak/internal/client"
	"agrisahayak.in/agri-sahayak/internal/tts"
)

const (
	sorryMessage      = "Sorry, I could not get an answer right now. Please try again."
	noResponseMessage = "No response received"
	speechBudget      = 2 * time.Minute
)

var ErrEmptyMessage = errors.New("message is empty")

type ChatView struct {
	app *App
}

// Send posts a question and records both sides in the transcript. A
// question needs text; an image alone is rejected. On failure the
// transcript gets an apology in the user's language and the error is
// returned alongside it. A blank answer is recorded as such and not spoken.
func (v *ChatView) Send(ctx context.Context, text, imagePath string) (cache.Message, error) {
	a := v.app
	if err := a.requireSession(); err != nil {
		return cache.Message{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return cache.Message{}, ErrEmptyMessage
	}
	ctx, cancel := a.scope(ctx)
	defer cancel()

	a.deps.Cache.AppendMessage(cache.NewMessage(cache.RoleUser, text, imagePath))

	lang := a.Language()
	loc, _ := a.location(ctx)
	stateID, districtID := a.region()

	resp, err := a.deps.Query.Query(ctx, client.QueryRequest{
		Query:       text,
		Language:    lang,
		Latitude:    loc.Latitude,
		Longitude:   loc.Longitude,
		StateID:     stateID,
		DistrictIDs: []int{districtID},
		ImagePath:   imagePath,
	})
	if err != nil {
		a.logger.Warn("query failed", zap.Error(err))
		msg := cache.NewMessage(cache.RoleAssistant, a.translate(ctx, sorryMessage, lang), "")
		a.deps.Cache.AppendMessage(msg)
		return msg, err
	}

	answer := strings.TrimSpace(resp.Response)
	if answer == "" {
		msg := cache.NewMessage(cache.RoleAssistant, noResponseMessage, "")
		a.deps.Cache.AppendMessage(msg)
		return msg, nil
	}
	msg := cache.NewMessage(cache.RoleAssistant, resp.Response, "")
	a.deps.Cache.AppendMessage(msg)
	v.speak(resp.Response, lang)
	return msg, nil
}

func (v *ChatView) Messages() []cache.Message {
	return v.app.deps.Cache.Messages()
}

func (v *ChatView) Clear() {
	v.app.deps.Cache.ClearNamespace(cache.NamespaceChat)
}

// speak synthesizes text in the background. Failures are logged only.
func (v *ChatView) speak(text, lang string) {
	a := v.app
	if a.deps.Speaker == nil || lang == DefaultLanguage {
		return
	}

	ctx, cancel := a.scope(context.Background())
	a.speech.Add(1)
	go func() {
		defer a.speech.Done()
		defer cancel()
		ctx, stop := context.WithTimeout(ctx, speechBudget)
		defer stop()

		path, err := a.deps.Speaker.Speak(ctx, text, lang)
		if err != nil {
			if !errors.Is(err, tts.ErrSkipped) {
				a.logger.Debug("speech synthesis failed", zap.Error(err))
			}
			return
		}
		if a.deps.OnAudio != nil {
			a.deps.OnAudio(path)
		}
	}()
}
