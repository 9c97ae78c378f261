package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/otiai10/gosseract/v2"
	"go.uber.org/zap"
)

type OCRService struct {
	logger *zap.Logger
}

// NewOCRService creates the text extraction service: go-fitz for PDF
// text layers, tesseract for scanned images.
func NewOCRService(logger *zap.Logger) *OCRService {
	return &OCRService{
		logger: logger,
	}
}

// ExtractText extracts text from an invoice file.
// Supported formats: .jpg, .jpeg, .png, .pdf
func (s *OCRService) ExtractText(ctx context.Context, filePath string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filePath))

	var (
		text string
		err  error
	)
	switch ext {
	case ".pdf":
		text, err = s.extractTextFromPDF(filePath)
	case ".jpg", ".jpeg", ".png":
		text, err = s.extractTextFromImage(filePath)
	default:
		return "", fmt.Errorf("unsupported file format: %s (supported: jpg, jpeg, png, pdf)", ext)
	}
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("no text extracted from %s", filePath)
	}

	s.logger.Info("OCR extraction completed",
		zap.String("file", filePath),
		zap.String("method", extractionMethod(ext)),
		zap.Int("text_length", len(text)),
	)

	return text, nil
}

// extractTextFromPDF extracts text from PDF using go-fitz library
func (s *OCRService) extractTextFromPDF(pdfPath string) (string, error) {
	doc, err := fitz.New(pdfPath)
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
				zap.String("file", pdfPath),
				zap.Error(err),
			)
			continue
		}

		if pageText != "" {
			textBuilder.WriteString(pageText)
			textBuilder.WriteString("\n") // Add newline between pages
		}
	}

	text := strings.TrimSpace(textBuilder.String())
	if text == "" {
		return "", fmt.Errorf("no text found in PDF")
	}

	return text, nil
}

// extractTextFromImage runs tesseract over a scanned invoice image.
func (s *OCRService) extractTextFromImage(imagePath string) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage("spa", "eng"); err != nil {
		s.logger.Warn("Failed to set OCR languages, using default", zap.Error(err))
	}
	if err := client.SetImage(imagePath); err != nil {
		return "", fmt.Errorf("failed to load image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("failed to run OCR: %w", err)
	}

	return text, nil
}

func extractionMethod(ext string) string {
	if ext == ".pdf" {
		return "go-fitz"
	}
	return "tesseract"
}
