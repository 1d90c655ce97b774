package advice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

const systemPrompt = `You are a navigation assistant for blind and low-vision pedestrians.
Give short spoken guidance: the action first (stop, turn left, turn right, proceed), then the reason.
Never invent obstacles that are not listed. Keep the answer under 80 words and avoid markdown.`

// GeminiConfig - параметры вызова модели
type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int32
	Timeout     time.Duration
}

// GeminiGenerator формирует совет через Gemini
type GeminiGenerator struct {
	client *genai.Client
	cfg    GeminiConfig
}

func NewGeminiGenerator(ctx context.Context, cfg GeminiConfig) (*GeminiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 200
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiGenerator{client: client, cfg: cfg}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, summaries []string, userContext string) (Advice, error) {
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleModel),
		Temperature:       genai.Ptr(g.cfg.Temperature),
		MaxOutputTokens:   g.cfg.MaxTokens,
	}

	resp, err := g.client.Models.GenerateContent(
		ctx,
		g.cfg.Model,
		[]*genai.Content{genai.NewContentFromText(BuildPrompt(summaries, userContext), genai.RoleUser)},
		config,
	)
	if err != nil {
		return Advice{}, fmt.Errorf("failed to generate content: %w", err)
	}

	text := strings.TrimSpace(strings.ReplaceAll(resp.Text(), "*", ""))
	if text == "" {
		return Advice{}, ErrEmptyResponse
	}

	return Advice{
		AdviceType: TypeGenerated,
		AdviceText: text,
		Confidence: "high",
		Timestamp:  time.Now(),
		ModelUsed:  g.cfg.Model,
	}, nil
}
