package generator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"
)

const (
	maxAttempts       = 3
	rateLimitWaitUnit = 2000 * time.Millisecond
	transientWait     = 1000 * time.Millisecond
)

type completionInvoker interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client generates story text using a remote completion service
type Client struct {
	client  completionInvoker
	model   string
	timeout time.Duration
	timer   backoff.Timer
}

// NewClient creates a story generator client
// url points to an OpenAI compatible completion API
func NewClient(url, key, model string) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("no completion service key")
	}
	if model == "" {
		return nil, fmt.Errorf("no model")
	}
	cfg := openai.DefaultConfig(key)
	if url != "" {
		cfg.BaseURL = url
	}
	res := &Client{}
	res.client = openai.NewClientWithConfig(cfg)
	res.model = model
	res.timeout = time.Second * 60
	return res, nil
}

// Generate returns story text for the topic/doubt pair, trimmed
// makes up to 3 attempts, waits 2^attempt * 2s after a rate limited call,
// 1s after other failures
func (c *Client) Generate(ctx context.Context, topic, doubt, complexity string) (string, error) {
	var last error
	bo := &retryBackOff{rateLimited: func() bool { return isRateLimited(last) }}
	res, err := backoff.RetryNotifyWithTimerAndData(func() (string, error) {
		text, err := c.invoke(ctx, topic, doubt, complexity)
		if err != nil {
			last = err
			return "", err
		}
		return text, nil
	}, bo, func(err error, d time.Duration) {
		goapp.Log.Warn().Err(err).Dur("wait", d).Int("attempt", bo.attempt).Msg("story generation attempt failed")
	}, c.timer)
	if err != nil {
		return "", &ExhaustedError{attempts: maxAttempts, err: last}
	}
	return res, nil
}

func (c *Client) invoke(ctx context.Context, topic, doubt, complexity string) (string, error) {
	ctx, cancelF := context.WithTimeout(ctx, c.timeout)
	defer cancelF()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(topic, doubt, complexity)},
		},
		Temperature: 0.7,
		MaxTokens:   500,
		TopP:        0.9,
	})
	if err != nil {
		return "", fmt.Errorf("can't call completion service: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// retryBackOff stops after maxAttempts calls
// wait duration depends on the last failure kind
type retryBackOff struct {
	attempt     int
	rateLimited func() bool
}

func (b *retryBackOff) Reset() {
	b.attempt = 0
}

func (b *retryBackOff) NextBackOff() time.Duration {
	b.attempt++
	if b.attempt >= maxAttempts {
		return backoff.Stop
	}
	if b.rateLimited() {
		return time.Duration(1<<b.attempt) * rateLimitWaitUnit
	}
	return transientWait
}

func isRateLimited(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}

// ExhaustedError indicates all generation attempts failed
type ExhaustedError struct {
	attempts int
	err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("story generation failed after %d attempts: %v", e.attempts, e.err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.err
}
