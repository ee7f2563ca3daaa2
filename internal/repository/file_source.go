package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"AgriPrice/internal/domain/models"
	domrepo "AgriPrice/internal/domain/repository"
)

// FileSource loads rows from a local CSV or XLSX export.
type FileSource struct {
	path     string
	sheet    string
	encoding string
}

var _ domrepo.RowSource = (*FileSource)(nil)

type FileOption func(*FileSource)

// WithSheet selects a workbook sheet (default: first sheet).
func WithSheet(sheet string) FileOption {
	return func(s *FileSource) { s.sheet = sheet }
}

// WithEncoding forces a CSV encoding (auto, utf-8, cp949).
func WithEncoding(enc string) FileOption {
	return func(s *FileSource) { s.encoding = enc }
}

func NewFileSource(path string, opts ...FileOption) *FileSource {
	s := &FileSource{path: path, encoding: EncodingAuto}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *FileSource) Name() string { return "file:" + filepath.Base(s.path) }

func (s *FileSource) Load(ctx context.Context) (*models.LoadBatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read dataset file: %w", err)
	}
	records, err := readTable(data, s.sheet, s.encoding)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name(), err)
	}
	return decodeTable(s.Name(), records)
}
