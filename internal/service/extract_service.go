package service

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// ExtractService turns uploaded statement files into plain text.
// CSV/TXT content is passed through as-is (the model does the parsing),
// PDFs go through go-fitz text extraction.
type ExtractService struct {
	logger *zap.Logger
}

func NewExtractService(logger *zap.Logger) *ExtractService {
	return &ExtractService{logger: logger}
}

// ExtractText extracts plain text from an uploaded file based on its
// extension. Supported formats: .csv, .txt, .pdf. Extraction failures
// surface as user-facing errors, there is no retry.
func (s *ExtractService) ExtractText(fileName string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))

	var text string
	var err error

	switch ext {
	case ".csv", ".txt":
		text = decodeText(data)
	case ".pdf":
		text, err = s.extractTextFromPDF(data)
		if err != nil {
			return "", fmt.Errorf("failed to extract text from PDF: %w", err)
		}
	default:
		return "", fmt.Errorf("unsupported file format: %s (supported: csv, txt, pdf)", ext)
	}

	text = strings.TrimSpace(sanitizeUTF8(text))
	if text == "" {
		return "", fmt.Errorf("could not read file contents: %s", fileName)
	}

	s.logger.Info("Text extraction completed",
		zap.String("file", fileName),
		zap.String("format", ext),
		zap.Int("text_length", len(text)),
	)
	return text, nil
}

// extractTextFromPDF extracts text from all pages using the go-fitz library.
func (s *ExtractService) extractTextFromPDF(data []byte) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	var textBuilder strings.Builder
	for i := 0; i < doc.NumPage(); i++ {
		pageText, err := doc.Text(i)
		if err != nil {
			s.logger.Warn("Failed to extract text from page",
				zap.Int("page", i+1),
				zap.Error(err),
			)
			continue
		}
		if pageText != "" {
			textBuilder.WriteString(pageText)
			textBuilder.WriteString("\n")
		}
	}

	text := strings.TrimSpace(textBuilder.String())
	if text == "" {
		return "", fmt.Errorf("no text found in PDF")
	}
	return text, nil
}

// decodeText interprets raw bytes as UTF-8, falling back to a Latin-1
// reading when the content is not valid UTF-8.
func decodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}

	var sb strings.Builder
	sb.Grow(len(data))
	for _, b := range data {
		sb.WriteRune(rune(b))
	}
	return sb.String()
}

// sanitizeUTF8 removes invalid UTF-8 sequences so the text can be sent to
// the model and rendered safely.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}

	var result strings.Builder
	result.Grow(len(s))
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError && size == 1 {
			s = s[1:]
			continue
		}
		result.WriteRune(r)
		s = s[size:]
	}
	return result.String()
}
