// Package assist drafts blog content with a chat-completion model. Results
// are returned to the editor for review and never stored.
package assist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sashabaranov/go-openai"
)

const (
	DefaultModel   = openai.GPT4oMini
	defaultTimeout = 90 * time.Second
)

var (
	// ErrNotConfigured is returned by New without an API key.
	ErrNotConfigured = errors.New("assist: no API key configured")
	// ErrInvalidRequest wraps request validation failures.
	ErrInvalidRequest = errors.New("assist: invalid request")
	// ErrMalformedResponse is returned when the reply holds no usable JSON.
	ErrMalformedResponse = errors.New("assist: malformed model response")
)

// Client calls the chat-completion API.
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
	timeout     time.Duration
	logger      *slog.Logger
	requests    *prometheus.CounterVec

	baseURL    string
	httpClient *http.Client
	registerer prometheus.Registerer
}

// Option configures a Client.
type Option func(*Client)

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds each generation call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the client's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithRegisterer sets where request counters are registered
// (default prometheus.DefaultRegisterer).
func WithRegisterer(r prometheus.Registerer) Option {
	return func(c *Client) { c.registerer = r }
}

// New creates a client for apiKey.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	c := &Client{
		model:       DefaultModel,
		temperature: 0.7,
		timeout:     defaultTimeout,
		logger:      slog.Default(),
		registerer:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(c)
	}

	cfg := openai.DefaultConfig(apiKey)
	if c.baseURL != "" {
		cfg.BaseURL = c.baseURL
	}
	if c.httpClient != nil {
		cfg.HTTPClient = c.httpClient
	}
	c.api = openai.NewClientWithConfig(cfg)

	requests, err := registerCounter(c.registerer)
	if err != nil {
		return nil, err
	}
	c.requests = requests
	return c, nil
}

func registerCounter(r prometheus.Registerer) (*prometheus.CounterVec, error) {
	cv := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "corpsite",
		Subsystem: "assist",
		Name:      "requests_total",
		Help:      "Content-assist generation requests by kind and outcome.",
	}, []string{"kind", "outcome"})
	if err := r.Register(cv); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("register assist metrics: %w", err)
	}
	return cv, nil
}

// complete sends one system+user exchange and decodes the JSON reply into out.
func (c *Client) complete(ctx context.Context, kind, system, user string, out any) (err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		switch {
		case errors.Is(err, ErrMalformedResponse):
			outcome = "malformed"
		case err != nil:
			outcome = "error"
		}
		c.requests.WithLabelValues(kind, outcome).Inc()
		c.logger.Info("assist request", "kind", kind, "model", c.model, "outcome", outcome, "duration", time.Since(start))
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: c.temperature,
	})
	if err != nil {
		return fmt.Errorf("assist: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("%w: no choices", ErrMalformedResponse)
	}

	raw := ExtractJSON(resp.Choices[0].Message.Content)
	if raw == "" {
		return fmt.Errorf("%w: no JSON object in reply", ErrMalformedResponse)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
