// Package generation wraps the text-generation backend: one blocking call
// per draft, bounded by a timeout, retried with exponential backoff, and
// guarded by a circuit breaker.
package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/coltonheil/email-automation/config"
	"github.com/coltonheil/email-automation/pkg/metrics"
)

const DefaultModel = "gpt-4o-mini"

// 重试参数：3 次尝试，1s 起步，指数退避，60s 封顶
const (
	initialBackoff = time.Second
	maxBackoff     = 60 * time.Second
)

// Error wraps a backend failure with its retry history.
type Error struct {
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("generation failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Result is one successful generation call.
type Result struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
	CostUSD          float64
	Latency          time.Duration
}

type Client struct {
	api         *openai.Client
	model       string
	maxTokens   int
	timeout     time.Duration
	maxAttempts int
	breaker     *gobreaker.CircuitBreaker
	logger      *zap.Logger
}

func NewClient(cfg config.GenerationConfig, logger *zap.Logger) *Client {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}

	settings := gobreaker.Settings{
		Name:        "generation-backend",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
	}

	return &Client{
		api:         openai.NewClientWithConfig(apiCfg),
		model:       model,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		maxAttempts: cfg.MaxAttempts,
		breaker:     gobreaker.NewCircuitBreaker(settings),
		logger:      logger,
	}
}

// Model reports the configured backend model.
func (c *Client) Model() string { return c.model }

// Complete runs one prompt through the backend with retry and breaker
// protection. On exhausted retries the returned error is a *Error; the
// caller treats it as a per-email failure, not a fatal run failure.
func (c *Client) Complete(ctx context.Context, prompt string) (*Result, error) {
	var lastErr error
	backoff := initialBackoff

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		result, err := c.completeOnce(ctx, prompt)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if errors.Is(err, context.Canceled) || errors.Is(err, gobreaker.ErrOpenState) {
			break
		}

		c.logger.Warn("generation attempt failed",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)

		if attempt == c.maxAttempts {
			break
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, &Error{Attempts: attempt, Err: ctx.Err()}
		case <-timer.C:
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}

	return nil, &Error{Attempts: c.maxAttempts, Err: lastErr}
}

func (c *Client) completeOnce(ctx context.Context, prompt string) (*Result, error) {
	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := c.breaker.Execute(func() (interface{}, error) {
		return c.api.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
			Model:     c.model,
			MaxTokens: c.maxTokens,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
		})
	})
	latency := time.Since(start)

	if err != nil {
		metrics.RecordGenerationLatency(c.model, "failed", latency)
		return nil, err
	}

	resp := raw.(openai.ChatCompletionResponse)
	if len(resp.Choices) == 0 {
		metrics.RecordGenerationLatency(c.model, "failed", latency)
		return nil, errors.New("empty completion response")
	}

	metrics.RecordGenerationLatency(c.model, "success", latency)
	metrics.AddGenerationTokens(c.model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	return &Result{
		Text:             resp.Choices[0].Message.Content,
		Model:            c.model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		CostUSD:          CalculateCost(c.model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens),
		Latency:          latency,
	}, nil
}
