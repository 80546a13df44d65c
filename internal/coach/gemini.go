package coach

import (
	"context"
	"fmt"
	"strings"

	"backend-ridermate/internal/profile"
	"backend-ridermate/internal/ride"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const DefaultModel = "gemini-2.5-flash"

// Gemini is the Assistant backed by Google's Gemini API. One client is shared
// by all requests.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Close() error {
	return g.client.Close()
}

func (g *Gemini) Summarize(ctx context.Context, stats ride.CoachStats, p profile.Profile) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(0.7)
	return generate(ctx, model, summaryPrompt(stats, p))
}

func (g *Gemini) Chat(ctx context.Context, message string, stats ride.CoachStats, p profile.Profile, history []string) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(chatInstruction(stats, p))},
	}
	return generate(ctx, model, chatPrompt(message, history))
}

// generate returns the concatenated text parts of the first candidate. An
// empty string with a nil error means the model answered with no text.
func generate(ctx context.Context, model *genai.GenerativeModel, prompt string) (string, error) {
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}

	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			out.WriteString(string(text))
		}
	}
	return strings.TrimSpace(out.String()), nil
}
