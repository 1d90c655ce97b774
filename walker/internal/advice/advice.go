package advice

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

const (
	TypeGenerated = "api_generated"
	TypeFallback  = "fallback"

	ModelFallback = "fallback"
)

// Advice - голосовой совет по сводкам кадров
type Advice struct {
	AdviceType string    `json:"advice_type"`
	AdviceText string    `json:"advice_text"`
	Confidence string    `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
	ModelUsed  string    `json:"model_used"`
}

// Generator формирует совет по сводкам сцены и контексту пользователя
type Generator interface {
	Generate(ctx context.Context, summaries []string, userContext string) (Advice, error)
}

var ErrEmptyResponse = errors.New("empty model response")

// BuildPrompt собирает подсказку для языковой модели
func BuildPrompt(summaries []string, userContext string) string {
	var b strings.Builder
	b.WriteString("You are a professional blind navigation assistant. Please provide safe, specific, and actionable advice for blind users based on the following video analysis summaries:\n")
	for i, s := range summaries {
		fmt.Fprintf(&b, "Frame %d: %s\n", i+1, s)
	}
	if userContext != "" {
		fmt.Fprintf(&b, "\nUser Context: %s\n", userContext)
	}
	b.WriteString("\nPlease provide in clear and concise language:\n")
	b.WriteString("1. Primary action recommendation (e.g., stop, turn left, turn right, proceed, etc.)\n")
	b.WriteString("2. Specific safety reminders\n")
	b.WriteString("3. Navigation instructions\n")
	b.WriteString("4. Important notes and warnings\n")
	return b.String()
}

// FallbackGenerator отвечает фиксированным текстом и не возвращает ошибок
type FallbackGenerator struct {
	now func() time.Time
}

func NewFallbackGenerator() *FallbackGenerator {
	return &FallbackGenerator{now: time.Now}
}

func (f *FallbackGenerator) Generate(_ context.Context, summaries []string, _ string) (Advice, error) {
	text := "Obstacles detected, please proceed with caution and be aware of your surroundings."
	if len(summaries) == 0 {
		text = "No obstacles detected, path is relatively safe, please proceed normally."
	}

	now := time.Now
	if f != nil && f.now != nil {
		now = f.now
	}

	return Advice{
		AdviceType: TypeFallback,
		AdviceText: text,
		Confidence: "low",
		Timestamp:  now(),
		ModelUsed:  ModelFallback,
	}, nil
}

type fallbackChain struct {
	primary  Generator
	fallback Generator
}

// WithFallback переключается на fallback, если primary вернул ошибку.
// При nil primary всегда используется fallback.
func WithFallback(primary, fallback Generator) Generator {
	return &fallbackChain{primary: primary, fallback: fallback}
}

func (c *fallbackChain) Generate(ctx context.Context, summaries []string, userContext string) (Advice, error) {
	if c.primary != nil {
		a, err := c.primary.Generate(ctx, summaries, userContext)
		if err == nil {
			return a, nil
		}
		log.Printf("[WARN] [ADVICE] Primary generator failed, using fallback: %v", err)
	}
	return c.fallback.Generate(ctx, summaries, userContext)
}
