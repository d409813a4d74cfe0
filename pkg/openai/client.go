// Package openai is a generator.Completer over the OpenAI chat completions
// API (or any OpenAI-compatible endpoint).
package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"redditbots/pkg/generator"
)

const (
	DefaultModel   = "gpt-4o-mini"
	requestTimeout = 120 * time.Second
)

type Client struct {
	client sdk.Client
	model  string
}

// NewClient creates a client for apiKey. baseURL may be empty for the
// official endpoint. The SDK's own retries are disabled.
func NewClient(apiKey, model, baseURL string) *Client {
	if model == "" {
		model = DefaultModel
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Client{
		client: sdk.NewClient(opts...),
		model:  model,
	}
}

// Complete sends the prompt as a single user message.
func (c *Client) Complete(ctx context.Context, req generator.Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	params := sdk.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []sdk.ChatCompletionMessageParamUnion{
			sdk.UserMessage(req.Prompt),
		},
		Temperature: sdk.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = sdk.Int(int64(req.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai %s: %w", c.model, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai %s: empty response", c.model)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

var _ generator.Completer = (*Client)(nil)
