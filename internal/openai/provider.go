// Package openai generates posters through the OpenAI Images API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"festpost/internal/imagegen"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = goopenai.CreateImageModelDallE3
)

type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// Provider is safe for concurrent use.
type Provider struct {
	client *goopenai.Client
	model  string
}

func New(opts Options) (*Provider, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("openai: API key is required")
	}

	cfg := goopenai.DefaultConfig(opts.APIKey)
	cfg.BaseURL = DefaultBaseURL
	if baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"); baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}

	return &Provider{
		client: goopenai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

func (p *Provider) Name() string {
	return "openai"
}

func (p *Provider) Model() string {
	return p.model
}

func (p *Provider) Generate(ctx context.Context, req imagegen.Request) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", errors.New("openai: prompt cannot be empty")
	}

	imgReq := goopenai.ImageRequest{
		Prompt: req.Prompt,
		Model:  p.model,
		N:      1,
		Size:   sizeFor(p.model, req.Width, req.Height),
	}
	switch {
	case p.model == goopenai.CreateImageModelDallE3:
		imgReq.Quality = "hd"
		imgReq.ResponseFormat = goopenai.CreateImageResponseFormatURL
	case isGPTImage(p.model):
		imgReq.Quality = "high"
	default:
		imgReq.ResponseFormat = goopenai.CreateImageResponseFormatURL
	}

	resp, err := p.client.CreateImage(ctx, imgReq)
	if err != nil {
		return "", fmt.Errorf("openai: image generation failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return "", errors.New("openai: returned empty data array")
	}

	first := resp.Data[0]
	switch {
	case first.URL != "":
		return first.URL, nil
	case first.B64JSON != "":
		return "data:image/png;base64," + first.B64JSON, nil
	}
	return "", errors.New("openai: returned empty image")
}

// sizeFor maps resolved dimensions onto the closest size the model accepts.
func sizeFor(model string, width, height int) string {
	landscape, portrait := goopenai.CreateImageSize1792x1024, goopenai.CreateImageSize1024x1792
	if isGPTImage(model) {
		landscape, portrait = "1536x1024", "1024x1536"
	}

	switch {
	case width > height:
		return landscape
	case height > width:
		return portrait
	}
	return goopenai.CreateImageSize1024x1024
}

func isGPTImage(model string) bool {
	return strings.HasPrefix(model, "gpt-image")
}

var _ imagegen.Provider = (*Provider)(nil)
