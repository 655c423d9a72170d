package poster

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"festpost/internal/catalog"
	"festpost/internal/imagegen"
	"festpost/internal/store"
)

type Options struct {
	Catalog        *catalog.Catalog
	Provider       imagegen.Provider
	Store          *store.Store
	Logger         *slog.Logger
	MaxPromptRunes int

	// NewID and Now default to uuid.NewString and time.Now.
	NewID func() string
	Now   func() time.Time
}

type Service struct {
	catalog   *catalog.Catalog
	assembler *Assembler
	provider  imagegen.Provider
	store     *store.Store
	logger    *slog.Logger
	newID     func() string
	now       func() time.Time
}

func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		catalog:   opts.Catalog,
		assembler: NewAssembler(opts.Catalog, opts.MaxPromptRunes),
		provider:  opts.Provider,
		store:     opts.Store,
		logger:    logger,
		newID:     newID,
		now:       now,
	}
}

func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

// Generate assembles the prompt, calls the provider once and stores the
// result. Nothing is stored when any step fails.
func (s *Service) Generate(ctx context.Context, req Request) (store.Record, error) {
	req = req.Normalize(s.catalog)

	prompt, err := s.assembler.Assemble(req)
	if err != nil {
		return store.Record{}, err
	}

	dims := s.catalog.Dimensions(req.AspectRatio)
	start := time.Now()

	url, err := s.provider.Generate(ctx, imagegen.Request{
		Prompt:      prompt,
		AspectRatio: dims.ID,
		Width:       dims.Width,
		Height:      dims.Height,
	})
	if err != nil {
		s.logger.Error("image generation failed",
			"provider", s.provider.Name(),
			"festival", req.Festival,
			"err", err,
		)
		return store.Record{}, &GenerationError{Provider: s.provider.Name(), Err: err}
	}
	if url == "" {
		return store.Record{}, &GenerationError{Provider: s.provider.Name(), Err: fmt.Errorf("%s returned an empty image url", s.provider.Name())}
	}

	rec := store.Record{
		ID:           s.newID(),
		URL:          url,
		Prompt:       prompt,
		BusinessName: req.BusinessName,
		Tagline:      req.Tagline,
		Festival:     req.Festival,
		Style:        req.Style,
		AspectRatio:  req.AspectRatio,
		Width:        dims.Width,
		Height:       dims.Height,
		Provider:     s.provider.Name(),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.Put(rec); err != nil {
		return store.Record{}, fmt.Errorf("store record: %w", err)
	}

	s.logger.Info("image generated",
		"id", rec.ID,
		"provider", rec.Provider,
		"festival", rec.Festival,
		"style", rec.Style,
		"aspect_ratio", rec.AspectRatio,
		"dur_ms", time.Since(start).Milliseconds(),
	)
	return rec, nil
}

func (s *Service) Get(id string) (store.Record, error) {
	rec, ok := s.store.Get(id)
	if !ok {
		return store.Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *Service) List() []store.Record {
	return s.store.List()
}
