package siliconflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"promo-studio-bot/internal/product"
	"promo-studio-bot/internal/prompts"
)

const (
	defaultBaseURL     = "https://api.siliconflow.cn/v1"
	defaultVisionModel = "Pro/Qwen/Qwen2.5-VL-7B-Instruct"
	defaultTextModel   = "Pro/Qwen/Qwen2.5-7B-Instruct"
	defaultImageModel  = "Kwai-Kolors/Kolors"
	defaultImageSize   = "1024x1024"
	defaultCallTimeout = 90 * time.Second

	maxTokens         = 2048
	temperature       = 0.8
	inferenceSteps    = 20
	guidanceScale     = 7.5
	maxErrorBodyBytes = 2048
)

type Options struct {
	APIKey      string
	BaseURL     string
	VisionModel string
	TextModel   string
	ImageModel  string
	ImageSize   string
	CallTimeout time.Duration
	HTTPClient  *http.Client
	Logger      *slog.Logger
}

type Client struct {
	apiKey      string
	baseURL     string
	visionModel string
	textModel   string
	imageModel  string
	imageSize   string
	callTimeout time.Duration
	httpClient  *http.Client
	logger      *slog.Logger
}

func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	callTimeout := opts.CallTimeout
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}

	return &Client{
		apiKey:      strings.TrimSpace(opts.APIKey),
		baseURL:     strings.TrimRight(orDefault(opts.BaseURL, defaultBaseURL), "/"),
		visionModel: orDefault(opts.VisionModel, defaultVisionModel),
		textModel:   orDefault(opts.TextModel, defaultTextModel),
		imageModel:  orDefault(opts.ImageModel, defaultImageModel),
		imageSize:   orDefault(opts.ImageSize, defaultImageSize),
		callTimeout: callTimeout,
		httpClient:  httpClient,
		logger:      logger,
	}
}

func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// GenerateCopy returns the raw model output for the copy prompt. With a photo it
// tries the vision model first; any failure there, including accept rejecting the
// reply, is followed by exactly one text-only attempt.
func (c *Client) GenerateCopy(ctx context.Context, p product.Product, accept func(content string) error) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	if p.HasPhoto() {
		content, err := c.complete(ctx, c.visionModel, []message{
			{Role: "system", Content: prompts.SystemPrompt},
			{Role: "user", Content: []contentPart{
				{Type: "image_url", ImageURL: &imageURL{URL: p.PhotoDataURL()}},
				{Type: "text", Text: prompts.VisionUserPrompt(p)},
			}},
		})
		if err == nil && accept != nil {
			err = accept(content)
		}
		if err == nil {
			return content, nil
		}
		c.logger.Warn("vision model failed, falling back to text model", "model", c.visionModel, "kind", KindOf(err), "err", err)
	}

	return c.complete(ctx, c.textModel, []message{
		{Role: "system", Content: prompts.SystemPrompt},
		{Role: "user", Content: prompts.TextUserPrompt(p)},
	})
}

// GenerateImage requests one image for the style and returns its URL.
func (c *Client) GenerateImage(ctx context.Context, p product.Product, v product.CopyVariant, style int) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	req := imageRequest{
		Model:             c.imageModel,
		Prompt:            prompts.ImagePrompt(p, v, style),
		ImageSize:         c.imageSize,
		BatchSize:         1,
		NumInferenceSteps: inferenceSteps,
		GuidanceScale:     guidanceScale,
	}

	var resp imageResponse
	if err := c.post(ctx, "/images/generations", req, &resp); err != nil {
		return "", err
	}

	if len(resp.Images) == 0 || strings.TrimSpace(resp.Images[0].URL) == "" {
		return "", fmt.Errorf("%w: missing images[0].url", ErrMalformedResponse)
	}
	return strings.TrimSpace(resp.Images[0].URL), nil
}

func (c *Client) complete(ctx context.Context, model string, messages []message) (string, error) {
	req := chatRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	var resp chatResponse
	if err := c.post(ctx, "/chat/completions", req, &resp); err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == nil {
		return "", fmt.Errorf("%w: missing choices[0].message.content", ErrMalformedResponse)
	}
	content := strings.TrimSpace(*resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: empty message content", ErrMalformedResponse)
	}
	return content, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("authorization", "Bearer "+c.apiKey)

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return &TransportError{Err: fmt.Errorf("read response: %w", err)}
	}

	c.logger.Debug("siliconflow call", "path", path, "status", httpResp.StatusCode, "dur_ms", time.Since(start).Milliseconds())

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return &StatusError{Code: httpResp.StatusCode, Body: truncate(strings.TrimSpace(string(rawBody)), maxErrorBodyBytes)}
	}

	if err := json.Unmarshal(rawBody, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

type message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type imageRequest struct {
	Model             string  `json:"model"`
	Prompt            string  `json:"prompt"`
	ImageSize         string  `json:"image_size"`
	BatchSize         int     `json:"batch_size"`
	NumInferenceSteps int     `json:"num_inference_steps"`
	GuidanceScale     float64 `json:"guidance_scale"`
}

type imageResponse struct {
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
}

func orDefault(value, fallback string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return fallback
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
