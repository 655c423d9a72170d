// Package imagegen defines the contract between poster generation and the
// text-to-image providers.
package imagegen

import "context"

type Request struct {
	Prompt      string
	AspectRatio string
	Width       int
	Height      int
}

// Provider produces one image for a prompt and returns a URL to it. The URL
// may be a data URL for providers that answer with inline bytes.
type Provider interface {
	Generate(ctx context.Context, req Request) (string, error)
	Name() string
}
