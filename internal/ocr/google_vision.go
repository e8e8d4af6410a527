package ocr

import (
	"context"
	"fmt"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/rs/zerolog"

	"docsweep/internal/logger"
)

// GoogleVisionRecognizer implements Recognizer using Google Cloud Vision API.
type GoogleVisionRecognizer struct {
	client *vision.ImageAnnotatorClient
	log    zerolog.Logger
}

// NewGoogleVisionRecognizer creates a Vision-backed recognizer.
func NewGoogleVisionRecognizer(ctx context.Context, creds Credentials) (*GoogleVisionRecognizer, error) {
	const op = "NewGoogleVisionRecognizer"

	client, err := vision.NewImageAnnotatorClient(ctx, creds.ClientOptions()...)
	if err != nil {
		return nil, wrapError(BackendVision, op, err, "failed to create Vision client")
	}

	return NewGoogleVisionRecognizerWithClient(client), nil
}

// NewGoogleVisionRecognizerWithClient creates a recognizer with an explicit client (for testing).
func NewGoogleVisionRecognizerWithClient(client *vision.ImageAnnotatorClient) *GoogleVisionRecognizer {
	return &GoogleVisionRecognizer{
		client: client,
		log:    logger.WithComponent("ocr-vision"),
	}
}

// Recognize runs document text detection on one image.
func (g *GoogleVisionRecognizer) Recognize(ctx context.Context, image []byte, language string) (string, error) {
	const op = "Recognize"

	if len(image) > MaxImageSizeBytes {
		return "", wrapError(BackendVision, op, ErrImageTooLarge, fmt.Sprintf("image size: %d bytes", len(image)))
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: image},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
				ImageContext: imageContext(language),
			},
		},
	}

	resp, err := g.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return "", wrapError(BackendVision, op, ErrOCRFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}

	text, err := textFromVisionResponse(resp)
	if err != nil {
		return "", wrapError(BackendVision, op, err, "failed to process Vision API response")
	}

	g.log.Debug().
		Int("image_bytes", len(image)).
		Int("text_length", len(text)).
		Msg("Image recognized")

	return text, nil
}

// Close closes the underlying Vision client.
func (g *GoogleVisionRecognizer) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func imageContext(language string) *visionpb.ImageContext {
	if language == "" {
		return nil
	}
	return &visionpb.ImageContext{LanguageHints: []string{language}}
}

// textFromVisionResponse pulls the full text annotation out of a batch response.
func textFromVisionResponse(resp *visionpb.BatchAnnotateImagesResponse) (string, error) {
	if resp == nil || len(resp.Responses) == 0 {
		return "", fmt.Errorf("%w: no response from Vision API", ErrOCRFailed)
	}

	imageResp := resp.Responses[0]
	if imageResp.GetError() != nil && imageResp.GetError().GetCode() != 0 {
		return "", fmt.Errorf("%w: Vision API error: %s", ErrOCRFailed, imageResp.GetError().GetMessage())
	}

	return imageResp.GetFullTextAnnotation().GetText(), nil
}
