// Package search exposes web research to agents through the Perplexity
// chat completions API, which is OpenAI-compatible.
package search

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hivecast/hivecast/tool"
)

const (
	// DefaultBaseURL is the Perplexity API root.
	DefaultBaseURL = "https://api.perplexity.ai"

	// DefaultModel is Perplexity's online search model.
	DefaultModel = "sonar"

	maxAnswerTokens = 2000
)

const systemPrompt = "You are a helpful assistant that provides information and the latest news " +
	"on a given topic. The information you provide will be used for forecasting purposes, " +
	"so it should be up to date, relevant and accurate."

// Options configures the Perplexity client.
type Options struct {
	APIKey  string
	BaseURL string // "" selects DefaultBaseURL
	Model   string // "" selects DefaultModel
}

// Client answers research queries via Perplexity. Safe for concurrent use.
type Client struct {
	api   openai.Client
	model string
}

// NewClient builds a Client.
func NewClient(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("search: API key is required")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	return &Client{
		api:   openai.NewClient(option.WithAPIKey(opts.APIKey), option.WithBaseURL(opts.BaseURL)),
		model: opts.Model,
	}, nil
}

// Query asks Perplexity one question and returns the answer text.
func (c *Client) Query(ctx context.Context, query string) (string, error) {
	completion, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(query),
		},
		MaxTokens: openai.Int(maxAnswerTokens),
	})
	if err != nil {
		return "", fmt.Errorf("search: query perplexity: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("search: empty response")
	}
	return completion.Choices[0].Message.Content, nil
}

// NewTool wraps the client as the query_perplexity tool.
func NewTool(c *Client) tool.Tool {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query_text": map[string]any{
				"type":        "string",
				"description": "The query text to search for.",
			},
		},
		"required": []string{"query_text"},
	}
	return tool.NewFunctionTool(
		"query_perplexity",
		"Query Perplexity for up-to-date information and news articles.",
		schema,
		func(ctx context.Context, args map[string]any) (string, error) {
			query, _ := args["query_text"].(string)
			if query == "" {
				return "", fmt.Errorf("query_text is required")
			}
			return c.Query(ctx, query)
		})
}
