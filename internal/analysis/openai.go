package analysis

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"docsweep/internal/logger"
)

// OpenAIConfig holds the settings of the OpenAI backend.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // empty for the public API
	Model   string
}

// OpenAIClient analyzes text with a chat completion in JSON mode.
type OpenAIClient struct {
	client *openai.Client
	model  string
	log    zerolog.Logger
}

// NewOpenAIClient creates an OpenAI backed analyzer.
func NewOpenAIClient(cfg OpenAIConfig, httpClient *http.Client) *OpenAIClient {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if httpClient != nil {
		clientConfig.HTTPClient = httpClient
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
		log:    logger.WithComponent("analysis").With().Str("backend", "openai").Logger(),
	}
}

// Analyze asks for the metadata of an extracted text. The message content goes
// through the same payload parse as the Gemini answer.
func (c *OpenAIClient) Analyze(ctx context.Context, text string) (*Result, error) {
	const op = "Analyze"

	c.log.Debug().
		Str("model", c.model).
		Int("text_length", len(text)).
		Msg("Sending chat completion request")

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: Prompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.1,
	})
	if err != nil {
		analysisErr := newAnalysisError(op, ErrRequest, err, "chat completion")
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			analysisErr.StatusCode = apiErr.HTTPStatusCode
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) {
			analysisErr.StatusCode = reqErr.HTTPStatusCode
		}
		return nil, analysisErr
	}

	if len(resp.Choices) == 0 {
		return nil, newAnalysisError(op, ErrMalformedEnvelope, nil, "no response choices")
	}

	result, err := parsePayload(op, resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	c.log.Debug().
		Str("suggested_name", string(result.SuggestedName)).
		Int("total_tokens", resp.Usage.TotalTokens).
		Msg("Analysis received")

	return result, nil
}
