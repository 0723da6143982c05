// Package inference holds the backends that implement utils.InferenceService.
package inference

import (
	"context"
	"fmt"

	"github.com/HugeFrog24/media-scorer/config"
	"github.com/HugeFrog24/media-scorer/utils"
)

func New(ctx context.Context, cfg *config.Config) (utils.InferenceService, error) {
	switch cfg.Backend {
	case config.BackendGemini:
		client, err := NewGeminiClient(ctx, cfg.APIKey, cfg.BaseURL, cfg.Model)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.BackendOpenAI:
		return NewOpenAIClient(cfg.APIKey, cfg.BaseURL, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
