package ocr

import (
	"errors"
	"fmt"
)

// Common OCR processing errors
var (
	// ErrImageTooLarge is returned when an image exceeds the maximum request size.
	// Google Cloud Vision API has a 20MB limit for inline content.
	ErrImageTooLarge = errors.New("image size exceeds the maximum limit (20MB)")

	// ErrInvalidPDF is returned when the provided data cannot be opened as a PDF document.
	ErrInvalidPDF = errors.New("invalid or corrupted PDF document")

	// ErrRenderFailed is returned when a PDF page cannot be rasterized.
	ErrRenderFailed = errors.New("page rendering failed")

	// ErrOCRFailed is returned when the OCR backend fails to process an image.
	ErrOCRFailed = errors.New("OCR processing failed")

	// ErrMissingConfiguration is returned when a backend is selected without the
	// project/processor settings it needs.
	ErrMissingConfiguration = errors.New("missing OCR backend configuration")
)

// Backend names the engine that produced an OCRError.
type Backend string

const (
	BackendVision     Backend = "vision"
	BackendDocumentAI Backend = "documentai"
	BackendMuPDF      Backend = "mupdf"
)

// OCRError records which engine failed, in which call, and why.
type OCRError struct {
	Backend Backend
	Op      string // e.g. "Recognize", "RenderPages"
	Err     error
	Details string
}

func (e *OCRError) Error() string {
	prefix := "ocr"
	if e.Backend != "" {
		prefix = fmt.Sprintf("ocr[%s]", e.Backend)
	}
	if e.Details != "" {
		return fmt.Sprintf("%s: %s: %s: %v", prefix, e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", prefix, e.Op, e.Err)
}

func (e *OCRError) Unwrap() error {
	return e.Err
}

// Is lets sentinels and context errors match through the wrapper.
func (e *OCRError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// wrapError attaches backend and operation to err. An error that already carries
// them is returned unchanged, so the innermost context wins.
func wrapError(backend Backend, op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var ocrErr *OCRError
	if errors.As(err, &ocrErr) {
		return err
	}

	return &OCRError{Backend: backend, Op: op, Err: err, Details: details}
}
