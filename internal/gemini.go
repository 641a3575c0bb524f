package internal

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"
)

// contentGenerator is the slice of the genai models API Gemini uses
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini completes prompts with Google's Gemini API
type Gemini struct {
	apiKey     string
	model      string
	models     contentGenerator
	clientOnce sync.Once
	clientErr  error
}

// NewGemini creates a Gemini completer; the client is built on first use
func NewGemini(apiKey, model string) *Gemini {
	return &Gemini{apiKey: apiKey, model: model}
}

func (g *Gemini) ensureClient(ctx context.Context) error {
	g.clientOnce.Do(func() {
		if g.models != nil {
			return
		}
		if g.apiKey == "" {
			g.clientErr = ValidateGeminiAPIKey("")
			return
		}
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  g.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			g.clientErr = fmt.Errorf("create client: %w", err)
			return
		}
		g.models = client.Models
	})
	return g.clientErr
}

// Complete implements Completer. maxTokens is not forwarded: 2.5 models think
// before answering and thinking tokens count against MaxOutputTokens, so a cap
// sized for the answer can leave no room for it. The prompt carries the length.
func (g *Gemini) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if err := g.ensureClient(ctx); err != nil {
		return "", err
	}

	result, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response from Gemini")
	}

	candidate := result.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonMaxTokens {
		return "", fmt.Errorf("gemini response truncated: output token limit reached")
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil && !part.Thought && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("gemini returned no text (finish reason %q)", candidate.FinishReason)
	}
	return sb.String(), nil
}
