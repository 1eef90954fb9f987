package generative

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/shafin2/skillsphere-backend/internal/generative"
	"google.golang.org/genai"
)

const defaultModel = "gemini-2.0-flash"

type generateFunc func(ctx context.Context, prompt string) (string, error)

type GeminiGenerator struct {
	apiKey string
	model  string

	generate generateFunc

	once      sync.Once
	client    *genai.Client
	clientErr error
}

func NewGeminiGenerator(apiKey, model string) *GeminiGenerator {
	model = strings.TrimSpace(model)
	if model == "" {
		model = defaultModel
	}
	g := &GeminiGenerator{apiKey: apiKey, model: model}
	g.generate = g.generateWithGemini
	return g
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("prompt is empty")
	}
	text, err := g.generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("gemini %s: %w", g.model, err)
	}
	return strings.TrimSpace(text), nil
}

func (g *GeminiGenerator) generateWithGemini(ctx context.Context, prompt string) (string, error) {
	g.once.Do(func() {
		g.client, g.clientErr = genai.NewClient(context.WithoutCancel(ctx), &genai.ClientConfig{
			APIKey:  g.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
	})
	if g.clientErr != nil {
		return "", g.clientErr
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// DisabledGenerator is used when no Gemini API key is configured.
type DisabledGenerator struct{}

func (DisabledGenerator) Generate(context.Context, string) (string, error) {
	return "", generative.ErrDisabled
}
