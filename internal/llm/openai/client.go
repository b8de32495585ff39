package openai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"content-analyzer/internal/llm"
)

const defaultModel = "gpt-4o-mini"

// Client implements llm.Completer against any OpenAI-compatible chat
// completions endpoint.
type Client struct {
	api   *goopenai.Client
	model string
}

// NewClient builds a client. An empty baseURL targets api.openai.com.
func NewClient(apiKey, baseURL, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &Client{api: goopenai.NewClientWithConfig(cfg), model: model}, nil
}

func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: req.Prompt},
		},
	})
	if err != nil {
		return "", wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: %w: no choices", llm.ErrMalformedResponse)
	}
	log.Printf("llm response provider=openai model=%s prompt_tokens=%d completion_tokens=%d",
		c.model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", fmt.Errorf("openai: %w", llm.ErrEmptyAnswer)
	}
	return answer, nil
}

func wrapError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return &llm.StatusError{Provider: "openai", StatusCode: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return &llm.StatusError{Provider: "openai", StatusCode: reqErr.HTTPStatusCode, Err: err}
	}
	return fmt.Errorf("openai request: %w", err)
}

var _ llm.Completer = (*Client)(nil)
