package oracle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultMaxTokens bounds reply length for both providers.
const DefaultMaxTokens = 1024

// AnthropicClient calls the Messages API.
type AnthropicClient struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicClient creates a client. SDK retries are disabled; Guarded retries.
// A nil httpClient uses the SDK default.
func NewAnthropicClient(apiKey, model, baseURL string, maxTokens int, httpClient *http.Client) *AnthropicClient {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	return &AnthropicClient{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: int64(maxTokens),
	}
}

// Invoke sends prompt as a single user message and joins the text blocks of the reply.
func (c *AnthropicClient) Invoke(ctx context.Context, prompt string, timeout time.Duration) (string, error) {
	return invokeWithin(ctx, prompt, timeout, c.complete)
}

func (c *AnthropicClient) complete(ctx context.Context, prompt string) (string, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String(), nil
}

// anthropicRetryable reports 429 and 5xx API errors.
func anthropicRetryable(err error) (retryable, matched bool) {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return false, false
	}
	return isRetryableStatus(apiErr.StatusCode), true
}
