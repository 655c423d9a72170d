package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"festpost/internal/catalog"
	"festpost/internal/poster"
	"festpost/internal/store"
)

const maxBodyBytes = 1 << 20

type Options struct {
	Service        *poster.Service
	Logger         *slog.Logger
	RequestTimeout time.Duration
	AllowedOrigins []string
	// Static, when set, is served under /app/.
	Static fs.FS
}

type Server struct {
	svc            *poster.Service
	logger         *slog.Logger
	requestTimeout time.Duration
	allowedOrigins []string
	static         fs.FS
}

type apiError struct {
	Detail string `json:"detail"`
}

type generateResponse struct {
	ImageID    string `json:"image_id"`
	ImageURL   string `json:"image_url"`
	PromptUsed string `json:"prompt_used"`
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Server{
		svc:            opts.Service,
		logger:         logger,
		requestTimeout: opts.RequestTimeout,
		allowedOrigins: opts.AllowedOrigins,
		static:         opts.Static,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /festivals", s.handleFestivals)
	mux.HandleFunc("GET /styles", s.handleStyles)
	mux.HandleFunc("GET /aspect-ratios", s.handleAspectRatios)
	mux.HandleFunc("POST /generate", s.handleGenerate)
	mux.HandleFunc("GET /images", s.handleListImages)
	mux.HandleFunc("GET /images/{id}", s.handleGetImage)

	if s.static != nil {
		mux.Handle("GET /app/", http.StripPrefix("/app/", http.FileServer(http.FS(s.static))))
	}

	return withLogging(withCORS(mux, s.allowedOrigins), s.logger)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "FestPost API - AI Image Generator",
		"status":  "running",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleFestivals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]catalog.Festival{
		"festivals": s.svc.Catalog().Festivals(),
	})
}

func (s *Server) handleStyles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"default": s.svc.Catalog().DefaultStyle(),
		"styles":  s.svc.Catalog().Styles(),
	})
}

func (s *Server) handleAspectRatios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"default":       s.svc.Catalog().DefaultAspectRatio(),
		"aspect_ratios": s.svc.Catalog().AspectRatios(),
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req poster.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Detail: "invalid request body: " + err.Error()})
		return
	}

	ctx := r.Context()
	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}

	rec, err := s.svc.Generate(ctx, req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, generateResponse{
		ImageID:    rec.ID,
		ImageURL:   rec.URL,
		PromptUsed: rec.Prompt,
	})
}

func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	rec, err := s.svc.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleListImages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]store.Record{
		"images": s.svc.List(),
	})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var verr *poster.ValidationError
	var gerr *poster.GenerationError

	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, apiError{Detail: verr.Error()})
	case errors.Is(err, poster.ErrNotFound):
		writeJSON(w, http.StatusNotFound, apiError{Detail: "Image not found"})
	case errors.As(err, &gerr):
		writeJSON(w, http.StatusInternalServerError, apiError{Detail: "Error generating image: " + gerr.Err.Error()})
	default:
		s.logger.Error("request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, apiError{Detail: "Error generating image: " + err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
