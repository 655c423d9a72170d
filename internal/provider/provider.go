// Package provider selects the image generation backend from configuration.
package provider

import (
	"fmt"
	"log/slog"
	"net/http"

	"festpost/internal/config"
	"festpost/internal/gemini"
	"festpost/internal/imagegen"
	"festpost/internal/openai"
	"festpost/internal/replicate"
)

func New(cfg config.Config, httpClient *http.Client, logger *slog.Logger) (imagegen.Provider, error) {
	switch cfg.ImageProvider {
	case config.ProviderReplicate:
		return replicate.New(replicate.Options{
			APIToken:     cfg.ReplicateAPIToken,
			BaseURL:      cfg.ReplicateBaseURL,
			Model:        cfg.ReplicateModel,
			PollInterval: cfg.ReplicatePollInterval,
			HTTPClient:   httpClient,
			Logger:       logger,
		}), nil
	case config.ProviderGemini:
		return gemini.New(gemini.Options{
			APIKey:     cfg.GeminiAPIKey,
			BaseURL:    cfg.GeminiBaseURL,
			APIVersion: cfg.GeminiAPIVersion,
			Model:      cfg.GeminiImageModel,
			HTTPClient: httpClient,
			Logger:     logger,
		}), nil
	case config.ProviderOpenAI:
		p, err := openai.New(openai.Options{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			Model:      cfg.OpenAIImageModel,
			HTTPClient: httpClient,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, fmt.Errorf("unknown image provider %q", cfg.ImageProvider)
}
