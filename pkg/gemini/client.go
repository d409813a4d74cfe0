// Package gemini is a generator.Completer over the Google Gemini API.
package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"redditbots/pkg/generator"
)

const (
	DefaultModel   = "gemini-2.0-flash"
	requestTimeout = 120 * time.Second
)

type Client struct {
	client *genai.Client
	model  string
}

// NewClient creates a Gemini API client. baseURL may be empty.
func NewClient(ctx context.Context, apiKey, model, baseURL string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = DefaultModel
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Client{client: client, model: model}, nil
}

// Complete runs a single-turn generateContent call.
func (c *Client) Complete(ctx context.Context, req generator.Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	temperature := float32(req.Temperature)
	cfg := &genai.GenerateContentConfig{Temperature: &temperature}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini %s: %w", c.model, err)
	}
	if len(resp.Candidates) == 0 {
		if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
			return "", fmt.Errorf("gemini %s: prompt blocked: %s", c.model, fb.BlockReason)
		}
		return "", fmt.Errorf("gemini %s: no candidates", c.model)
	}
	return strings.TrimSpace(resp.Text()), nil
}

var _ generator.Completer = (*Client)(nil)
