// Package extract merges the metadata sources of an asset: embedded
// metadata read by an Extractor, Google Takeout sidecar JSON, dates found in
// file names, and the file's own modification time.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/SecurityWorks/ente/internal/client/models"
	"github.com/SecurityWorks/ente/internal/client/reader"
)

// ParsedMetadata is what an Extractor finds inside an asset. Zero and nil
// values mean unknown.
type ParsedMetadata struct {
	Width        int
	Height       int
	CreationDate *models.ParsedMetadataDate
	Location     *models.Location
	// Duration of a video in seconds.
	Duration *float64
}

// Extractor reads embedded metadata (Exif, QuickTime atoms, ...) from an
// asset. Implementations backed by native parsers plug in here.
type Extractor interface {
	Extract(ctx context.Context, item models.UploadItem, fileType models.FileType) (*ParsedMetadata, error)
}

// DimensionsExtractor only decodes the image header to learn the pixel
// dimensions. It knows nothing about videos.
type DimensionsExtractor struct{}

func (DimensionsExtractor) Extract(ctx context.Context, item models.UploadItem, fileType models.FileType) (*ParsedMetadata, error) {
	if fileType != models.FileTypeImage {
		return &ParsedMetadata{}, nil
	}

	s, err := reader.Open(item)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	head, err := s.Next()
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(head))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return &ParsedMetadata{}, nil
		}
		return nil, fmt.Errorf("decode image header: %w", err)
	}
	return &ParsedMetadata{Width: cfg.Width, Height: cfg.Height}, nil
}
