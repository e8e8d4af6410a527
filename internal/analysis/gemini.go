// Package analysis sends extracted document text to a content-understanding service
// and turns its answer into organisation metadata.
//
// The Gemini answer arrives as JSON text nested inside a JSON envelope, so parsing
// happens in two typed stages: the envelope first (ErrMalformedEnvelope), then the
// embedded payload (ErrMalformedPayload). Transport failures are ErrRequest. All of
// them match ErrAnalysis.
package analysis

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"docsweep/internal/logger"
)

// DefaultGeminiURL is the public Generative Language API root.
const DefaultGeminiURL = "https://generativelanguage.googleapis.com"

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-1.5-pro"

// maxErrorBody bounds how much of a failed response is kept for diagnostics.
const maxErrorBody = 2048

// GeminiConfig holds the settings of the Gemini backend.
type GeminiConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// GeminiClient calls the generateContent endpoint.
type GeminiClient struct {
	config     GeminiConfig
	httpClient *http.Client
	log        zerolog.Logger
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

// generateResponse keeps pointers so that absent structure can be told apart from
// empty values during envelope validation.
type generateResponse struct {
	Candidates []struct {
		Content *struct {
			Parts []struct {
				Text *string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// NewGeminiClient creates a Gemini backed analyzer.
func NewGeminiClient(cfg GeminiConfig, httpClient *http.Client) *GeminiClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGeminiURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &GeminiClient{
		config:     cfg,
		httpClient: httpClient,
		log:        logger.WithComponent("analysis").With().Str("backend", "gemini").Logger(),
	}
}

// Analyze asks for the metadata of an extracted text.
func (c *GeminiClient) Analyze(ctx context.Context, text string) (*Result, error) {
	const op = "Analyze"

	req := generateRequest{
		Contents: []content{{Parts: []part{{Text: textPrompt(text)}}}},
	}
	return c.generate(ctx, op, req)
}

// AnalyzeInline sends the raw document alongside the prompt and lets the service read it.
func (c *GeminiClient) AnalyzeInline(ctx context.Context, mimeType string, data []byte) (*Result, error) {
	const op = "AnalyzeInline"

	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	req := generateRequest{
		Contents: []content{{Parts: []part{
			{Text: InlinePrompt},
			{InlineData: &inlineData{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(data)}},
		}}},
	}
	return c.generate(ctx, op, req)
}

func (c *GeminiClient) generate(ctx context.Context, op string, req generateRequest) (*Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, newAnalysisError(op, ErrRequest, err, "encode request")
	}

	endpoint := fmt.Sprintf("%s/v1/models/%s:generateContent?key=%s",
		c.config.BaseURL, url.PathEscape(c.config.Model), url.QueryEscape(c.config.APIKey))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, newAnalysisError(op, ErrRequest, err, "build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	c.log.Debug().
		Str("model", c.config.Model).
		Int("request_bytes", len(body)).
		Msg("Sending generateContent request")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// The URL carries the key; keep it out of the error text.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, newAnalysisError(op, ErrRequest, err, "send request")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newAnalysisError(op, ErrRequest, err, "read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		analysisErr := newAnalysisError(op, ErrRequest, nil, truncate(string(raw), maxErrorBody))
		analysisErr.StatusCode = resp.StatusCode
		return nil, analysisErr
	}

	text, err := envelopeText(op, raw)
	if err != nil {
		return nil, err
	}

	result, err := parsePayload(op, text)
	if err != nil {
		return nil, err
	}

	c.log.Debug().
		Str("suggested_name", string(result.SuggestedName)).
		Str("category", string(result.Category)).
		Int("tags", len(result.Tags)).
		Msg("Analysis received")

	return result, nil
}

// envelopeText is the first parse stage: it locates candidates[0].content.parts[0].text.
func envelopeText(op string, raw []byte) (string, error) {
	var envelope generateResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return "", newAnalysisError(op, ErrMalformedEnvelope, err, "response is not JSON")
	}

	if len(envelope.Candidates) == 0 {
		details := "no candidates"
		if envelope.PromptFeedback != nil && envelope.PromptFeedback.BlockReason != "" {
			details += ", prompt blocked: " + envelope.PromptFeedback.BlockReason
		}
		return "", newAnalysisError(op, ErrMalformedEnvelope, nil, details)
	}

	candidate := envelope.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		details := "first candidate has no content parts"
		if candidate.FinishReason != "" {
			details += ", finish reason " + candidate.FinishReason
		}
		return "", newAnalysisError(op, ErrMalformedEnvelope, nil, details)
	}

	text := candidate.Content.Parts[0].Text
	if text == nil {
		return "", newAnalysisError(op, ErrMalformedEnvelope, nil, "first part has no text")
	}
	return *text, nil
}
