package ocr

import (
	"context"
	"fmt"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"docsweep/internal/logger"
)

// DocumentAIConfig holds configuration for a Document AI OCR processor.
type DocumentAIConfig struct {
	// ProjectID is the Google Cloud project ID where Document AI is enabled.
	ProjectID string

	// Location is the processing location (e.g., "us", "eu").
	// Should match where your Document AI processor is created.
	Location string

	// ProcessorID is the Document AI OCR processor ID.
	ProcessorID string

	// Timeout is the maximum time to wait for one image.
	// Default: 60 seconds.
	Timeout time.Duration
}

// DocumentAIRecognizer implements Recognizer with a Document AI "Document OCR" processor.
type DocumentAIRecognizer struct {
	client *documentai.DocumentProcessorClient
	config DocumentAIConfig
	log    zerolog.Logger
}

// NewDocumentAIRecognizer creates a recognizer backed by Document AI.
func NewDocumentAIRecognizer(ctx context.Context, config DocumentAIConfig, creds Credentials) (*DocumentAIRecognizer, error) {
	const op = "NewDocumentAIRecognizer"

	if config.ProjectID == "" || config.ProcessorID == "" {
		return nil, wrapError(BackendDocumentAI, op, ErrMissingConfiguration, "project and processor id are required")
	}
	if config.Location == "" {
		config.Location = "us"
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	clientOptions := creds.ClientOptions()

	// Non-US processors live behind a regional endpoint.
	if config.Location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", config.Location)
		clientOptions = append(clientOptions, option.WithEndpoint(endpoint))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, clientOptions...)
	if err != nil {
		return nil, wrapError(BackendDocumentAI, op, err, fmt.Sprintf("failed to create Document AI client for location: %s", config.Location))
	}

	return &DocumentAIRecognizer{
		client: client,
		config: config,
		log:    logger.WithComponent("ocr-document-ai"),
	}, nil
}

// Recognize sends one PNG image to the processor and returns the document text.
func (p *DocumentAIRecognizer) Recognize(ctx context.Context, image []byte, language string) (string, error) {
	const op = "Recognize"

	if len(image) > MaxImageSizeBytes {
		return "", wrapError(BackendDocumentAI, op, ErrImageTooLarge, fmt.Sprintf("image size: %d bytes", len(image)))
	}

	processCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	req := &documentaipb.ProcessRequest{
		Name: p.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  image,
				MimeType: sniffImageType(image),
			},
		},
	}
	if language != "" {
		req.ProcessOptions = &documentaipb.ProcessOptions{
			OcrConfig: &documentaipb.OcrConfig{
				Hints: &documentaipb.OcrConfig_Hints{LanguageHints: []string{language}},
			},
		}
	}

	resp, err := p.client.ProcessDocument(processCtx, req)
	if err != nil {
		return "", p.handleProcessingError(op, err)
	}
	if resp.GetDocument() == nil {
		return "", wrapError(BackendDocumentAI, op, ErrOCRFailed, "no document in response")
	}

	text := resp.GetDocument().GetText()
	p.log.Debug().
		Int("image_bytes", len(image)).
		Int("text_length", len(text)).
		Msg("Image recognized")

	return text, nil
}

// Close closes the underlying Document AI client.
func (p *DocumentAIRecognizer) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

// processorName constructs the full processor name for Document AI API.
func (p *DocumentAIRecognizer) processorName() string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		p.config.ProjectID, p.config.Location, p.config.ProcessorID)
}

// handleProcessingError converts Document AI errors to OCR errors.
func (p *DocumentAIRecognizer) handleProcessingError(op string, err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "PERMISSION_DENIED"):
		return wrapError(BackendDocumentAI, op, ErrOCRFailed, "insufficient permissions for Document AI")
	case strings.Contains(errStr, "NOT_FOUND"):
		return wrapError(BackendDocumentAI, op, ErrMissingConfiguration, fmt.Sprintf("processor not found: %s", p.config.ProcessorID))
	case strings.Contains(errStr, "context deadline exceeded"):
		return wrapError(BackendDocumentAI, op, context.DeadlineExceeded, "processing timeout")
	case strings.Contains(errStr, "context canceled"):
		return wrapError(BackendDocumentAI, op, context.Canceled, "processing was canceled")
	default:
		return wrapError(BackendDocumentAI, op, ErrOCRFailed, fmt.Sprintf("Document AI error: %v", err))
	}
}

// sniffImageType recognizes the raster formats the renderer and the drive produce.
func sniffImageType(data []byte) string {
	switch {
	case len(data) >= 8 && string(data[:8]) == "\x89PNG\r\n\x1a\n":
		return "image/png"
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return "image/jpeg"
	case len(data) >= 4 && (string(data[:4]) == "II*\x00" || string(data[:4]) == "MM\x00*"):
		return "image/tiff"
	case len(data) >= 6 && (string(data[:6]) == "GIF87a" || string(data[:6]) == "GIF89a"):
		return "image/gif"
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return "image/webp"
	case len(data) >= 2 && string(data[:2]) == "BM":
		return "image/bmp"
	default:
		return "image/png"
	}
}
