package replicate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"festpost/internal/imagegen"
)

func newTestClient(srv *httptest.Server, model string) *Client {
	return New(Options{
		APIToken:     "r8_test",
		BaseURL:      srv.URL,
		Model:        model,
		PollInterval: time.Millisecond,
		HTTPClient:   srv.Client(),
	})
}

func TestGenerateSendsFluxInput(t *testing.T) {
	var gotPath, gotAuth, gotPrefer string
	var gotBody struct {
		Input map[string]any `json:"input"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotPrefer = r.Header.Get("Prefer")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id":"p1","status":"succeeded","output":["https://replicate.delivery/out-0.png"]}`)
	}))
	defer srv.Close()

	url, err := newTestClient(srv, "").Generate(context.Background(), imagegen.Request{
		Prompt:      "a poster",
		AspectRatio: "9:16",
		Width:       576,
		Height:      1024,
	})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if url != "https://replicate.delivery/out-0.png" {
		t.Errorf("url = %q", url)
	}

	if gotPath != "/v1/models/black-forest-labs/flux-schnell/predictions" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer r8_test" {
		t.Errorf("authorization = %q", gotAuth)
	}
	if gotPrefer != "wait" {
		t.Errorf("prefer = %q", gotPrefer)
	}

	want := map[string]any{
		"prompt":         "a poster",
		"num_outputs":    float64(1),
		"aspect_ratio":   "9:16",
		"output_format":  "png",
		"output_quality": float64(100),
	}
	for k, v := range want {
		if gotBody.Input[k] != v {
			t.Errorf("input[%s] = %v, want %v", k, gotBody.Input[k], v)
		}
	}
	if _, ok := gotBody.Input["width"]; ok {
		t.Error("width must not be sent to flux-schnell")
	}
}

func TestGeneratePollsUntilDone(t *testing.T) {
	var polls int32
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost:
			fmt.Fprintf(w, `{"id":"p2","status":"starting","urls":{"get":"%s/v1/predictions/p2"}}`, srv.URL)
		case r.URL.Path == "/v1/predictions/p2":
			if atomic.AddInt32(&polls, 1) < 3 {
				fmt.Fprintf(w, `{"id":"p2","status":"processing","urls":{"get":"%s/v1/predictions/p2"}}`, srv.URL)
				return
			}
			fmt.Fprint(w, `{"id":"p2","status":"succeeded","output":"https://replicate.delivery/single.png"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	url, err := newTestClient(srv, "").Generate(context.Background(), imagegen.Request{Prompt: "x", AspectRatio: "1:1"})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if url != "https://replicate.delivery/single.png" {
		t.Errorf("url = %q", url)
	}
	if polls != 3 {
		t.Errorf("polled %d times, want 3", polls)
	}
}

func TestGenerateVersionedModel(t *testing.T) {
	var gotPath, gotVersion string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotVersion, _ = body["version"].(string)
		fmt.Fprint(w, `{"id":"p3","status":"succeeded","output":["u"]}`)
	}))
	defer srv.Close()

	if _, err := newTestClient(srv, "acme/poster:abc123").Generate(context.Background(), imagegen.Request{Prompt: "x"}); err != nil {
		t.Fatal(err)
	}
	if gotPath != "/v1/predictions" || gotVersion != "abc123" {
		t.Errorf("path = %q, version = %q", gotPath, gotVersion)
	}
}

func TestGenerateFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"detail":"Invalid token"}`, "Invalid token"},
		{"quota", http.StatusPaymentRequired, `{"detail":"Monthly spend limit reached"}`, "spend limit"},
		{"prediction failed", http.StatusCreated, `{"id":"p","status":"failed","error":"NSFW content detected"}`, "NSFW content detected"},
		{"canceled", http.StatusCreated, `{"id":"p","status":"canceled"}`, "canceled"},
		{"empty output", http.StatusCreated, `{"id":"p","status":"succeeded","output":[]}`, "no output"},
		{"null output", http.StatusCreated, `{"id":"p","status":"succeeded","output":null}`, "no output"},
		{"bad json", http.StatusCreated, `not json`, "decode response"},
		{"pending without url", http.StatusCreated, `{"id":"p","status":"processing"}`, "no polling url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			_, err := newTestClient(srv, "").Generate(context.Background(), imagegen.Request{Prompt: "x", AspectRatio: "1:1"})
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestRunHonoursContext(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"id":"p","status":"processing","urls":{"get":"%s/v1/predictions/p"}}`, srv.URL)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestClient(srv, "").Run(ctx, Input{Prompt: "x"})
	if err == nil {
		t.Fatal("expected context error")
	}
}

func TestRunRejectsEmptyPrompt(t *testing.T) {
	c := New(Options{HTTPClient: http.DefaultClient})
	if _, err := c.Run(context.Background(), Input{Prompt: "  "}); err == nil {
		t.Error("expected error for empty prompt")
	}
}

func TestFirstOutput(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{`"https://a/b.png"`, "https://a/b.png", false},
		{`["https://a/1.png","https://a/2.png"]`, "https://a/1.png", false},
		{`[]`, "", true},
		{`""`, "", true},
		{``, "", true},
		{`{"url":"x"}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := FirstOutput(json.RawMessage(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("FirstOutput(%s) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("FirstOutput(%s) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseModel(t *testing.T) {
	if _, _, _, err := parseModel("flux-schnell"); err == nil {
		t.Error("expected error for model without owner")
	}
	owner, name, version, err := parseModel("black-forest-labs/flux-schnell")
	if err != nil || owner != "black-forest-labs" || name != "flux-schnell" || version != "" {
		t.Errorf("parseModel() = %q %q %q %v", owner, name, version, err)
	}
}
