package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"festpost/internal/imagegen"
)

const (
	DefaultBaseURL = "https://api.replicate.com"
	DefaultModel   = "black-forest-labs/flux-schnell"
)

const (
	statusStarting   = "starting"
	statusProcessing = "processing"
	statusSucceeded  = "succeeded"
	statusFailed     = "failed"
	statusCanceled   = "canceled"
)

type Options struct {
	APIToken     string
	BaseURL      string
	Model        string
	PollInterval time.Duration
	HTTPClient   *http.Client
	Logger       *slog.Logger
}

type Client struct {
	apiToken     string
	baseURL      string
	model        string
	pollInterval time.Duration
	httpClient   *http.Client
	logger       *slog.Logger
}

func New(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}

	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = time.Second
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		apiToken:     opts.APIToken,
		baseURL:      baseURL,
		model:        model,
		pollInterval: pollInterval,
		httpClient:   opts.HTTPClient,
		logger:       logger,
	}
}

// Input mirrors the flux-schnell input schema.
type Input struct {
	Prompt        string `json:"prompt"`
	NumOutputs    int    `json:"num_outputs"`
	AspectRatio   string `json:"aspect_ratio"`
	OutputFormat  string `json:"output_format"`
	OutputQuality int    `json:"output_quality"`
}

type Prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  any             `json:"error"`
	URLs   struct {
		Get    string `json:"get"`
		Cancel string `json:"cancel"`
	} `json:"urls"`
}

func (p Prediction) terminal() bool {
	switch p.Status {
	case statusSucceeded, statusFailed, statusCanceled:
		return true
	}
	return false
}

func (c *Client) Name() string {
	return "replicate"
}

func (c *Client) Generate(ctx context.Context, req imagegen.Request) (string, error) {
	pred, err := c.Run(ctx, Input{
		Prompt:        req.Prompt,
		NumOutputs:    1,
		AspectRatio:   req.AspectRatio,
		OutputFormat:  "png",
		OutputQuality: 100,
	})
	if err != nil {
		return "", err
	}
	return FirstOutput(pred.Output)
}

// Run creates a prediction and waits for it to reach a terminal state.
func (c *Client) Run(ctx context.Context, input Input) (Prediction, error) {
	if strings.TrimSpace(input.Prompt) == "" {
		return Prediction{}, errors.New("prompt is empty")
	}

	pred, err := c.create(ctx, input)
	if err != nil {
		return Prediction{}, err
	}

	for !pred.terminal() {
		if pred.URLs.Get == "" {
			return Prediction{}, fmt.Errorf("prediction %s is %s and has no polling url", pred.ID, pred.Status)
		}

		c.logger.Debug("replicate prediction pending", "id", pred.ID, "status", pred.Status)

		select {
		case <-ctx.Done():
			return Prediction{}, ctx.Err()
		case <-time.After(c.pollInterval):
		}

		pred, err = c.get(ctx, pred.URLs.Get)
		if err != nil {
			return Prediction{}, err
		}
	}

	switch pred.Status {
	case statusFailed:
		return Prediction{}, fmt.Errorf("prediction %s failed: %s", pred.ID, errorMessage(pred.Error))
	case statusCanceled:
		return Prediction{}, fmt.Errorf("prediction %s was canceled", pred.ID)
	}
	return pred, nil
}

func (c *Client) create(ctx context.Context, input Input) (Prediction, error) {
	owner, name, version, err := parseModel(c.model)
	if err != nil {
		return Prediction{}, err
	}

	payload := map[string]any{"input": input}
	url := fmt.Sprintf("%s/v1/models/%s/%s/predictions", c.baseURL, owner, name)
	if version != "" {
		payload["version"] = version
		url = c.baseURL + "/v1/predictions"
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Prediction{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Prediction{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("prefer", "wait")

	return c.do(httpReq)
}

func (c *Client) get(ctx context.Context, url string) (Prediction, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Prediction{}, fmt.Errorf("create request: %w", err)
	}
	return c.do(httpReq)
}

func (c *Client) do(httpReq *http.Request) (Prediction, error) {
	if c.httpClient == nil {
		return Prediction{}, errors.New("http client is nil")
	}
	httpReq.Header.Set("authorization", "Bearer "+c.apiToken)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Prediction{}, fmt.Errorf("request: %w", err)
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return Prediction{}, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode >= 400 {
		return Prediction{}, fmt.Errorf("replicate API %s: %s", httpResp.Status, strings.TrimSpace(string(rawBody)))
	}

	var pred Prediction
	if err := json.Unmarshal(rawBody, &pred); err != nil {
		return Prediction{}, fmt.Errorf("decode response: %w", err)
	}
	return pred, nil
}

// FirstOutput accepts either a single value or a list of values and returns
// the first one.
func FirstOutput(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", errors.New("prediction returned no output")
	}

	var single string
	if err := json.Unmarshal(trimmed, &single); err == nil {
		if single == "" {
			return "", errors.New("prediction returned an empty output")
		}
		return single, nil
	}

	var list []string
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return "", fmt.Errorf("unexpected output shape: %s", truncate(string(trimmed), 200))
	}
	if len(list) == 0 || list[0] == "" {
		return "", errors.New("prediction returned no output")
	}
	return list[0], nil
}

func parseModel(model string) (owner, name, version string, err error) {
	ref := model
	if i := strings.IndexByte(ref, ':'); i >= 0 {
		ref, version = ref[:i], ref[i+1:]
	}
	parts := strings.Split(ref, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", "", fmt.Errorf("invalid model %q, want owner/name[:version]", model)
	}
	return parts[0], parts[1], version, nil
}

func errorMessage(v any) string {
	switch e := v.(type) {
	case nil:
		return "unknown error"
	case string:
		return e
	default:
		b, _ := json.Marshal(e)
		return string(b)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ imagegen.Provider = (*Client)(nil)
