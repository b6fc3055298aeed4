package vision

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Analyzer adapts the model client to the narration loop. Scene analysis
// never fails from the caller's point of view: errors come back as "".
type Analyzer struct {
	client *Client
	logger *slog.Logger
}

func NewAnalyzer(client *Client, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		client: client,
		logger: logger.With("component", "vision-analyzer"),
	}
}

func (a *Analyzer) Analyze(ctx context.Context, img Image, tagNames []string) string {
	start := time.Now()
	text, err := a.client.Describe(ctx, img, tagNames)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			a.logger.Warn("scene analysis failed", "error", err, "image_bytes", len(img.Data))
		}
		return ""
	}

	a.logger.Debug("scene analysis complete",
		"latency_ms", time.Since(start).Milliseconds(),
		"tags", len(tagNames),
		"description_len", len(text))
	return text
}

func (a *Analyzer) Ask(ctx context.Context, img Image, question string) (string, error) {
	text, err := a.client.Answer(ctx, img, question)
	if errors.Is(err, ErrInvalidImage) {
		return "I can't see the image clearly.", nil
	}
	if err != nil {
		a.logger.Warn("question answering failed", "error", err)
		return "", err
	}
	return text, nil
}
