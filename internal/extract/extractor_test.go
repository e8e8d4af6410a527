package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

type fakeRenderer struct {
	pages  [][]byte
	err    error
	gotDPI float64
	called int
}

func (f *fakeRenderer) RenderPages(ctx context.Context, document []byte, dpi float64) ([][]byte, error) {
	f.called++
	f.gotDPI = dpi
	return f.pages, f.err
}

// fakeRecognizer answers "OCR(<image>)" and fails for images listed in failOn.
type fakeRecognizer struct {
	failOn    map[string]bool
	languages []string
	images    []string
}

func (f *fakeRecognizer) Recognize(ctx context.Context, image []byte, language string) (string, error) {
	f.languages = append(f.languages, language)
	f.images = append(f.images, string(image))
	if f.failOn[string(image)] {
		return "", fmt.Errorf("recognizer exploded on %s", image)
	}
	return "OCR(" + string(image) + ")", nil
}

func TestExtractPaginatedDocumentConcatenatesPagesInOrder(t *testing.T) {
	renderer := &fakeRenderer{pages: [][]byte{[]byte("p1"), []byte("p2"), []byte("p3")}}
	recognizer := &fakeRecognizer{}
	e := NewExtractor(renderer, recognizer, Options{Language: "pt", DPI: 300})

	text, err := e.Extract(context.Background(), "scan.pdf", "application/pdf", []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	want := "OCR(p1)\n\nOCR(p2)\n\nOCR(p3)\n\n"
	if text != want {
		t.Errorf("Extract() = %q, want %q", text, want)
	}
	if renderer.gotDPI != 300 {
		t.Errorf("rendered at %v DPI, want 300", renderer.gotDPI)
	}
	for _, lang := range recognizer.languages {
		if lang != "pt" {
			t.Errorf("recognized with language %q, want pt", lang)
		}
	}
}

func TestExtractDefaultsDPI(t *testing.T) {
	renderer := &fakeRenderer{}
	e := NewExtractor(renderer, &fakeRecognizer{}, Options{})

	if _, err := e.Extract(context.Background(), "a.pdf", "application/pdf; qs=0.9", nil); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if renderer.gotDPI != 300 {
		t.Errorf("default DPI = %v, want 300", renderer.gotDPI)
	}
}

func TestExtractImageRunsOCRDirectly(t *testing.T) {
	renderer := &fakeRenderer{}
	recognizer := &fakeRecognizer{}
	e := NewExtractor(renderer, recognizer, Options{Language: "pt"})

	text, err := e.Extract(context.Background(), "photo.jpg", "image/jpeg", []byte("jpegbytes"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "OCR(jpegbytes)" {
		t.Errorf("Extract() = %q", text)
	}
	if renderer.called != 0 {
		t.Error("images must not be rasterized")
	}
}

func TestExtractDecodesOtherContent(t *testing.T) {
	e := NewExtractor(&fakeRenderer{}, &fakeRecognizer{}, Options{})

	tests := []struct {
		name        string
		contentType string
		data        []byte
		want        string
	}{
		{"plain utf8", "text/plain", []byte("Olá, mundo"), "Olá, mundo"},
		{"invalid sequence replaced", "text/csv", []byte("a\xffb"), "a�b"},
		{"utf8 bom stripped", "text/plain", []byte("\xEF\xBB\xBFata"), "ata"},
		{"utf16 bom decoded", "text/plain", []byte{0xFF, 0xFE, 'o', 0, 'i', 0}, "oi"},
		{"unknown type", "", []byte("notes"), "notes"},
		{"empty payload", "text/plain", nil, "[notes.txt] Conteúdo não reconhecido."},
		{"binary payload", "application/zip", []byte("PK\x03\x04\x00\x00"), "[notes.txt] Conteúdo não reconhecido."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Extract(context.Background(), "notes.txt", tt.contentType, tt.data)
			if err != nil {
				t.Fatalf("Extract() must not fail for decodable content: %v", err)
			}
			if got != tt.want {
				t.Errorf("Extract() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractFailures(t *testing.T) {
	t.Run("render failure", func(t *testing.T) {
		e := NewExtractor(&fakeRenderer{err: errors.New("corrupt")}, &fakeRecognizer{}, Options{})
		_, err := e.Extract(context.Background(), "bad.pdf", "application/pdf", []byte("x"))
		assertExtractError(t, err, "render", 0)
	})

	t.Run("page ocr failure", func(t *testing.T) {
		renderer := &fakeRenderer{pages: [][]byte{[]byte("p1"), []byte("p2")}}
		e := NewExtractor(renderer, &fakeRecognizer{failOn: map[string]bool{"p2": true}}, Options{})
		_, err := e.Extract(context.Background(), "bad.pdf", "application/pdf", []byte("x"))
		assertExtractError(t, err, "ocr", 2)
	})

	t.Run("image ocr failure", func(t *testing.T) {
		e := NewExtractor(&fakeRenderer{}, &fakeRecognizer{failOn: map[string]bool{"img": true}}, Options{})
		_, err := e.Extract(context.Background(), "bad.png", "image/png", []byte("img"))
		assertExtractError(t, err, "ocr", 0)
	})
}

func assertExtractError(t *testing.T, err error, step string, page int) {
	t.Helper()
	if !errors.Is(err, ErrExtract) {
		t.Fatalf("expected ErrExtract, got %v", err)
	}
	var extractErr *ExtractError
	if !errors.As(err, &extractErr) {
		t.Fatalf("expected *ExtractError, got %T", err)
	}
	if extractErr.Step != step || extractErr.Page != page {
		t.Errorf("step/page = %s/%d, want %s/%d", extractErr.Step, extractErr.Page, step, page)
	}
	if !strings.Contains(err.Error(), extractErr.File) {
		t.Errorf("error %q does not name the file", err)
	}
}
