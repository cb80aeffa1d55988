package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const (
	geminiMode = "gemini"

	agriSystemInstruction = "You are Agri Sahayak, an assistant for Indian farmers. " +
		"Give practical advice on crops, soil, pests, irrigation, weather and market prices. " +
		"Keep answers short and concrete. If you are not sure, say so. " +
		"Always answer in the language the user asks for."
)

var languageNames = map[string]string{
	"en": "English",
	"hi": "Hindi",
	"mr": "Marathi",
	"pa": "Punjabi",
	"te": "Telugu",
	"ta": "Tamil",
}

// GeminiBackend answers queries directly with a Gemini model. It is used
// when no inference service is configured.
type GeminiBackend struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

func NewGeminiBackend(ctx context.Context, apiKey, model string, logger *zap.Logger) (*GeminiBackend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiBackend{client: client, model: model, logger: logger}, nil
}

func (b *GeminiBackend) Close() {
	if b.client != nil {
		if err := b.client.Close(); err != nil {
			b.logger.Warn("error closing GenAI client", zap.Error(err))
		}
	}
}

func (b *GeminiBackend) Answer(ctx context.Context, req *QueryRequest) (json.RawMessage, error) {
	model := b.client.GenerativeModel(b.model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(agriSystemInstruction)},
	}

	parts := []genai.Part{genai.Text(buildPrompt(req))}
	if req.Image != nil && len(req.Image.Data) > 0 {
		parts = append(parts, genai.ImageData(imageFormat(req.Image.ContentType), req.Image.Data))
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}

	answer := QueryResponse{Mode: geminiMode, AgentsUsed: []string{geminiMode}}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		b.logger.Warn("gemini response was empty")
		answer.Response = "I'm sorry, I couldn't generate a response at this time. Please try again."
		return json.Marshal(answer)
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	answer.Response = text.String()
	if answer.Response == "" {
		answer.Response = "I received an empty response, please try rephrasing your question."
	}
	return json.Marshal(answer)
}

func buildPrompt(req *QueryRequest) string {
	var b strings.Builder
	lang := languageNames[req.Language]
	if lang == "" {
		lang = languageNames["en"]
	}
	fmt.Fprintf(&b, "Answer in %s.\n", lang)

	if req.Fields != nil {
		lat, lon := req.Fields.Get("latitude"), req.Fields.Get("longitude")
		if lat != "" && lon != "" {
			fmt.Fprintf(&b, "Farmer location: latitude %s, longitude %s.\n", lat, lon)
		}
		if s := req.Fields.Get("stateId"); s != "" {
			fmt.Fprintf(&b, "State id: %s, district ids: %s.\n", s, req.Fields.Get("districtId"))
		}
	}
	if req.Image != nil {
		b.WriteString("An image of the crop or field is attached.\n")
	}
	fmt.Fprintf(&b, "Question: %s", req.Query)
	return b.String()
}

func imageFormat(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	case "image/heic":
		return "heic"
	default:
		return "jpeg"
	}
}
