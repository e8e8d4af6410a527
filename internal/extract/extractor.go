// Package extract turns a downloaded file into text by routing on its declared
// content type: paginated documents are rasterized and recognized page by page,
// images are recognized directly, and everything else is decoded as UTF-8.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"docsweep/internal/logger"
	"docsweep/internal/ocr"
)

// ErrExtract marks rendering or recognition failures. Undecodable content is never an error.
var ErrExtract = errors.New("text extraction failed")

// pageSeparator follows every page's text: one blank line.
const pageSeparator = "\n\n"

// binarySniffLen is how much of a payload is inspected for NUL bytes.
const binarySniffLen = 8 * 1024

// ExtractError carries the file and the step that failed.
type ExtractError struct {
	File string
	Step string // "render", "ocr"
	Page int    // 1-based page number, 0 when not page specific
	Err  error
}

// Error implements the error interface.
func (e *ExtractError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("extract: %s of %s page %d failed: %v", e.Step, e.File, e.Page, e.Err)
	}
	return fmt.Sprintf("extract: %s of %s failed: %v", e.Step, e.File, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ExtractError) Unwrap() error {
	return e.Err
}

// Is matches ErrExtract; the cause is reached through Unwrap.
func (e *ExtractError) Is(target error) bool {
	return target == ErrExtract
}

// Options tunes OCR dispatch.
type Options struct {
	Language string  // OCR language hint, e.g. "pt"
	DPI      float64 // Rasterization resolution for paginated documents
}

// Extractor dispatches on content type.
type Extractor struct {
	renderer   ocr.PageRenderer
	recognizer ocr.Recognizer
	opts       Options
	log        zerolog.Logger
}

// NewExtractor creates an extractor over the given OCR capabilities.
func NewExtractor(renderer ocr.PageRenderer, recognizer ocr.Recognizer, opts Options) *Extractor {
	if opts.DPI <= 0 {
		opts.DPI = ocr.DefaultDPI
	}
	return &Extractor{
		renderer:   renderer,
		recognizer: recognizer,
		opts:       opts,
		log:        logger.WithComponent("extract"),
	}
}

// Extract returns the text of one file. name is only used for the placeholder and errors.
func (e *Extractor) Extract(ctx context.Context, name, contentType string, data []byte) (string, error) {
	mediaType := normalizeMediaType(contentType)

	switch {
	case isPaginated(mediaType):
		return e.extractPages(ctx, name, data)
	case strings.HasPrefix(mediaType, "image/"):
		text, err := e.recognizer.Recognize(ctx, data, e.opts.Language)
		if err != nil {
			return "", &ExtractError{File: name, Step: "ocr", Err: err}
		}
		return text, nil
	default:
		return e.decode(name, data), nil
	}
}

// extractPages renders and recognizes every page, in order, each followed by a blank line.
func (e *Extractor) extractPages(ctx context.Context, name string, data []byte) (string, error) {
	pages, err := e.renderer.RenderPages(ctx, data, e.opts.DPI)
	if err != nil {
		return "", &ExtractError{File: name, Step: "render", Err: err}
	}

	var text strings.Builder
	for i, page := range pages {
		pageText, err := e.recognizer.Recognize(ctx, page, e.opts.Language)
		if err != nil {
			return "", &ExtractError{File: name, Step: "ocr", Page: i + 1, Err: err}
		}
		text.WriteString(pageText)
		text.WriteString(pageSeparator)
	}

	e.log.Debug().
		Str("file", name).
		Int("pages", len(pages)).
		Int("text_length", text.Len()).
		Msg("Paginated document recognized")

	return text.String(), nil
}

// decode is best effort: invalid sequences become U+FFFD, a BOM selects UTF-16 when
// present. Payloads that are clearly not text yield the placeholder.
func (e *Extractor) decode(name string, data []byte) string {
	if len(data) == 0 || looksBinary(data) {
		return Placeholder(name)
	}

	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	decoded, _, err := transform.Bytes(decoder, data)
	if err != nil {
		e.log.Warn().
			Err(err).
			Str("file", name).
			Msg("Content could not be decoded, using placeholder")
		return Placeholder(name)
	}
	return string(decoded)
}

// Placeholder is the text analyzed when a file's content cannot be decoded.
func Placeholder(name string) string {
	return fmt.Sprintf("[%s] Conteúdo não reconhecido.", name)
}

func normalizeMediaType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType
}

func isPaginated(mediaType string) bool {
	return mediaType == "application/pdf" || mediaType == "application/x-pdf"
}

// looksBinary reports a NUL byte near the start of data, unless a UTF-16 BOM explains it.
func looksBinary(data []byte) bool {
	if bytes.HasPrefix(data, []byte{0xFF, 0xFE}) || bytes.HasPrefix(data, []byte{0xFE, 0xFF}) {
		return false
	}
	sample := data
	if len(sample) > binarySniffLen {
		sample = sample[:binarySniffLen]
	}
	return bytes.IndexByte(sample, 0) >= 0
}
