package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"content-analyzer/internal/llm"
)

const (
	DefaultModelID   = "us.anthropic.claude-3-5-haiku-20241022-v1:0"
	anthropicVersion = "bedrock-2023-05-31"
)

// API is the subset of the Bedrock Runtime client used here.
type API interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Client implements llm.Completer with Anthropic models hosted on Bedrock.
type Client struct {
	api     API
	modelID string
}

func New(ctx context.Context, region, modelID string) (*Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if strings.TrimSpace(region) != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewWithClient(bedrockruntime.NewFromConfig(cfg), modelID), nil
}

func NewWithClient(api API, modelID string) *Client {
	if strings.TrimSpace(modelID) == "" {
		modelID = DefaultModelID
	}
	return &Client{api: api, modelID: modelID}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type invokeRequest struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	Temperature      float64   `json:"temperature"`
	Messages         []message `json:"messages"`
}

type invokeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	body, err := json.Marshal(invokeRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        req.MaxTokens,
		Temperature:      req.Temperature,
		Messages:         []message{{Role: "user", Content: req.Prompt}},
	})
	if err != nil {
		return "", err
	}

	out, err := c.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", wrapError(err)
	}
	return extractAnswer(out.Body)
}

// extractAnswer reads content[0].text from the Anthropic messages envelope.
func extractAnswer(raw []byte) (string, error) {
	var resp invokeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("bedrock: %w: %v", llm.ErrMalformedResponse, err)
	}
	if len(resp.Content) == 0 {
		return "", fmt.Errorf("bedrock: %w: no content blocks", llm.ErrMalformedResponse)
	}
	answer := strings.TrimSpace(resp.Content[0].Text)
	if answer == "" {
		return "", fmt.Errorf("bedrock: %w", llm.ErrEmptyAnswer)
	}
	return answer, nil
}

func wrapError(err error) error {
	var withStatus interface{ HTTPStatusCode() int }
	if errors.As(err, &withStatus) && withStatus.HTTPStatusCode() > 0 {
		return &llm.StatusError{Provider: "bedrock", StatusCode: withStatus.HTTPStatusCode(), Err: err}
	}
	return fmt.Errorf("bedrock invoke: %w", err)
}

var _ llm.Completer = (*Client)(nil)
