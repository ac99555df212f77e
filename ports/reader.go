package ports

import (
	"context"
	"io"

	"mcspec/domain/dataset"
)

// ReaderPort turns an uploaded file into a profiled dataset
type ReaderPort interface {
	// Read parses the file at path; the format is chosen by extension
	Read(ctx context.Context, path string) (*dataset.Dataset, error)
	// ReadFrom parses an upload stream named filename
	ReadFrom(ctx context.Context, filename string, r io.Reader) (*dataset.Dataset, error)
}
