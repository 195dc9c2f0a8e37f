package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"sync"

	"github.com/SecurityWorks/ente/internal/client/models"
	"github.com/SecurityWorks/ente/internal/client/reader"
	"golang.org/x/image/draw"
)

const (
	DefaultThumbnailDimension = 720
	DefaultThumbnailQuality   = 85

	// Sources above this size are not decoded for a thumbnail.
	maxThumbnailSource = 64 * 1024 * 1024

	// Images declaring more pixels than this are not decoded.
	maxThumbnailPixels = 50_000_000
)

var ErrNoThumbnail = errors.New("no thumbnail for this asset")

// Thumbnailer renders the preview image stored next to an asset. Returning
// an error makes the pipeline fall back to the static placeholder.
type Thumbnailer interface {
	Generate(ctx context.Context, item models.UploadItem, fileType models.FileType) ([]byte, error)
}

// ImageThumbnailer decodes the formats the standard library knows (JPEG,
// PNG, GIF) and writes a JPEG whose longer side is at most MaxDimension.
// Everything else gets ErrNoThumbnail.
type ImageThumbnailer struct {
	MaxDimension int
	Quality      int
}

func NewImageThumbnailer() *ImageThumbnailer {
	return &ImageThumbnailer{MaxDimension: DefaultThumbnailDimension, Quality: DefaultThumbnailQuality}
}

func (t *ImageThumbnailer) Generate(ctx context.Context, item models.UploadItem, fileType models.FileType) ([]byte, error) {
	if fileType != models.FileTypeImage {
		return nil, ErrNoThumbnail
	}

	s, err := reader.Open(item)
	if err != nil {
		return nil, err
	}
	if s.Size > maxThumbnailSource {
		_ = s.Close()
		return nil, ErrNoThumbnail
	}
	data, err := reader.ReadAll(s)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoThumbnail, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > maxThumbnailPixels {
		return nil, fmt.Errorf("%w: %dx%d image", ErrNoThumbnail, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoThumbnail, err)
	}

	w, h := fit(img.Bounds().Dx(), img.Bounds().Dy(), t.MaxDimension)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, downscale(img, w, h), &jpeg.Options{Quality: t.Quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// fit returns the size of a w x h image scaled so its longer side is at most
// limit. Images already small enough keep their size.
func fit(w, h, limit int) (int, int) {
	if w <= limit && h <= limit {
		return w, h
	}
	if w >= h {
		return limit, clampMin(h * limit / w)
	}
	return clampMin(w * limit / h), limit
}

func clampMin(v int) int {
	if v < 1 {
		return 1
	}
	return v
}

// downscale resamples src to w x h.
func downscale(src image.Image, w, h int) image.Image {
	b := src.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return src
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// StaticThumbnail is the placeholder stored for assets without a rendered
// preview.
var StaticThumbnail = sync.OnceValue(func() []byte {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		panic(err)
	}
	return buf.Bytes()
})
