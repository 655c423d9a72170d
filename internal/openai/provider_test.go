package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"festpost/internal/imagegen"
)

func TestNewRequiresAPIKey(t *testing.T) {
	p, err := New(Options{})
	if err == nil {
		t.Error("expected error for empty API key")
	}
	if p != nil {
		t.Error("expected nil provider")
	}
}

func TestGenerate(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/images/generations" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"created":1,"data":[{"url":"https://oaidalle.example/img.png"}]}`)
	}))
	defer srv.Close()

	p, err := New(Options{APIKey: "sk-test", BaseURL: srv.URL + "/v1", HTTPClient: srv.Client()})
	if err != nil {
		t.Fatal(err)
	}

	url, err := p.Generate(context.Background(), imagegen.Request{Prompt: "poster", AspectRatio: "9:16", Width: 576, Height: 1024})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if url != "https://oaidalle.example/img.png" {
		t.Errorf("url = %q", url)
	}

	want := map[string]any{
		"prompt":          "poster",
		"model":           "dall-e-3",
		"n":               float64(1),
		"size":            "1024x1792",
		"quality":         "hd",
		"response_format": "url",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("request[%s] = %v, want %v", k, got[k], v)
		}
	}
}

func TestGenerateBase64(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"created":1,"data":[{"b64_json":"AAAA"}]}`)
	}))
	defer srv.Close()

	p, err := New(Options{APIKey: "sk-test", BaseURL: srv.URL, Model: "gpt-image-1", HTTPClient: srv.Client()})
	if err != nil {
		t.Fatal(err)
	}
	url, err := p.Generate(context.Background(), imagegen.Request{Prompt: "poster", Width: 1024, Height: 1024})
	if err != nil {
		t.Fatal(err)
	}
	if url != "data:image/png;base64,AAAA" {
		t.Errorf("url = %q", url)
	}
}

func TestGenerateAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"Your request was rejected by the safety system","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	p, err := New(Options{APIKey: "sk-test", BaseURL: srv.URL, HTTPClient: srv.Client()})
	if err != nil {
		t.Fatal(err)
	}
	_, err = p.Generate(context.Background(), imagegen.Request{Prompt: "poster"})
	if err == nil || !strings.Contains(err.Error(), "safety system") {
		t.Errorf("error = %v", err)
	}
}

func TestSizeFor(t *testing.T) {
	tests := []struct {
		model         string
		width, height int
		want          string
	}{
		{"dall-e-3", 1024, 1024, "1024x1024"},
		{"dall-e-3", 1024, 576, "1792x1024"},
		{"dall-e-3", 1024, 1280, "1024x1792"},
		{"gpt-image-1", 1024, 576, "1536x1024"},
		{"gpt-image-1", 576, 1024, "1024x1536"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_%dx%d", tt.model, tt.width, tt.height), func(t *testing.T) {
			if got := sizeFor(tt.model, tt.width, tt.height); got != tt.want {
				t.Errorf("sizeFor() = %q, want %q", got, tt.want)
			}
		})
	}
}
