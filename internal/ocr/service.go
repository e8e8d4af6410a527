// Package ocr provides the two capabilities text extraction needs from the outside
// world: rasterizing PDF pages and recognizing text in an image.
//
// Rasterization uses MuPDF through go-fitz. Recognition is backed by Google Cloud
// Vision (document text detection) or, alternatively, a Document AI OCR processor.
//
// Cloud Vision API Limitations:
//   - Maximum inline image size: 20MB
//   - Language hints are BCP-47 codes ("pt", "en", ...)
//
// Implementation Details:
//   - Pages are rendered to PNG at a fixed resolution (300 DPI by default)
//   - Each page is recognized independently, so a blank page yields empty text
//     instead of failing the document
package ocr

import (
	"context"

	"google.golang.org/api/option"
)

const (
	// MaxImageSizeBytes is the maximum inline image size for synchronous recognition (20MB)
	MaxImageSizeBytes = 20 * 1024 * 1024

	// DefaultDPI is the rasterization resolution used for scanned documents.
	DefaultDPI = 300.0
)

// Recognizer extracts text from a single image.
type Recognizer interface {
	// Recognize returns the text found in image, hinting the backend with language.
	// A blank image yields an empty string and no error.
	Recognize(ctx context.Context, image []byte, language string) (string, error)
}

// PageRenderer rasterizes paginated documents.
type PageRenderer interface {
	// RenderPages returns one PNG image per page, in page order.
	RenderPages(ctx context.Context, document []byte, dpi float64) ([][]byte, error)
}

// Credentials selects how Google clients authenticate. Empty values fall back to
// Application Default Credentials.
type Credentials struct {
	JSON string // Inline service account JSON
	File string // Path to a service account JSON file
}

// ClientOptions converts the credentials into Google API client options.
func (c Credentials) ClientOptions() []option.ClientOption {
	switch {
	case c.JSON != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(c.JSON))}
	case c.File != "":
		return []option.ClientOption{option.WithCredentialsFile(c.File)}
	default:
		return nil
	}
}
