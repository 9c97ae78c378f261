package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"facturex/internal/models"

	"go.uber.org/zap"
)

// DocumentRenderer produces the PDF bytes for one document. The export
// pipeline treats any error as a per-document failure and keeps going.
type DocumentRenderer interface {
	Render(ctx context.Context, doc *models.Document) ([]byte, error)
}

// FileRenderer reads the stored original file of a document from the
// upload directory.
type FileRenderer struct {
	uploadDir string
	logger    *zap.Logger
}

func NewFileRenderer(uploadDir string, logger *zap.Logger) *FileRenderer {
	// Create upload directory if it doesn't exist
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		logger.Error("Failed to create upload directory", zap.Error(err))
	}

	return &FileRenderer{
		uploadDir: uploadDir,
		logger:    logger,
	}
}

func (r *FileRenderer) Render(ctx context.Context, doc *models.Document) ([]byte, error) {
	if doc.StoragePath == "" {
		return nil, fmt.Errorf("document %s has no stored file", doc.Number)
	}

	path := filepath.Join(r.uploadDir, filepath.Base(doc.StoragePath))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stored file: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("stored file for document %s is empty", doc.Number)
	}

	return data, nil
}
