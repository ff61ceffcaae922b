package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiResponder answers prompts with a Gemini model.
type GeminiResponder struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiResponder creates a client for apiKey. An empty model name selects DefaultGeminiModel.
func NewGeminiResponder(ctx context.Context, apiKey, modelName string) (*GeminiResponder, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini: missing api key")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.4)
	return &GeminiResponder{client: client, model: model}, nil
}

// Close cleans up the Gemini client resources.
func (g *GeminiResponder) Close() error {
	return g.client.Close()
}

func (g *GeminiResponder) Respond(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}
	return responseText(resp)
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}
	var parts []string
	for _, part := range resp.Candidates[0].Content.Parts {
		txt, ok := part.(genai.Text)
		if !ok || strings.TrimSpace(string(txt)) == "" {
			continue
		}
		parts = append(parts, string(txt))
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}
	return strings.TrimSpace(strings.Join(parts, "\n")), nil
}
