package parser

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"
)

// ErrExtraction is returned when a document cannot be read or holds no text
var ErrExtraction = errors.New("failed to extract text from document")

// Extractor pulls raw text out of a document on disk
type Extractor interface {
	ExtractText(filePath string) (string, error)
}

// PDFExtractor extracts plain text from every page of a PDF, in page order
type PDFExtractor struct{}

func (PDFExtractor) ExtractText(filePath string) (text string, err error) {
	// the pdf reader panics on some malformed xref tables
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: %s: malformed pdf: %v", ErrExtraction, filePath, r)
		}
	}()

	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrExtraction, filePath, err)
	}

	var pages []string
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("%w: %s page %d: %v", ErrExtraction, filePath, i, err)
		}
		pages = append(pages, pageText)
	}
	log.Debug().Str("file", filePath).Int("pages", numPages).Msg("Extracted pdf text")

	return strings.Join(pages, "\n"), nil
}

// CleanText normalizes carriage returns to newlines and nothing else
func CleanText(text string) string {
	return strings.ReplaceAll(text, "\r", "\n")
}

// Reader turns a document into an ordered list of chunks
type Reader struct {
	Extractor Extractor
	Splitter  Splitter
}

func NewReader(extractor Extractor, splitter Splitter) *Reader {
	if extractor == nil {
		extractor = PDFExtractor{}
	}
	return &Reader{Extractor: extractor, Splitter: splitter}
}

// ReadPDF extracts, cleans and splits the document at filePath
func (r *Reader) ReadPDF(filePath string) ([]string, error) {
	raw, err := r.Extractor.ExtractText(filePath)
	if err != nil {
		if errors.Is(err, ErrExtraction) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	return r.SplitText(raw)
}

// SplitText cleans and splits already extracted text
func (r *Reader) SplitText(text string) ([]string, error) {
	chunks, err := r.Splitter.SplitText(CleanText(text))
	if err != nil {
		return nil, fmt.Errorf("failed to split text: %w", err)
	}
	return chunks, nil
}
