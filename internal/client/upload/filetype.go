package upload

import (
	"bytes"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/SecurityWorks/ente/internal/client/models"
	"github.com/SecurityWorks/ente/internal/common"
)

var extensionTypes = map[string]models.FileType{
	".jpg": models.FileTypeImage, ".jpeg": models.FileTypeImage, ".png": models.FileTypeImage,
	".gif": models.FileTypeImage, ".webp": models.FileTypeImage, ".bmp": models.FileTypeImage,
	".heic": models.FileTypeImage, ".heif": models.FileTypeImage, ".avif": models.FileTypeImage,
	".tif": models.FileTypeImage, ".tiff": models.FileTypeImage, ".dng": models.FileTypeImage,
	".cr2": models.FileTypeImage, ".nef": models.FileTypeImage, ".arw": models.FileTypeImage,

	".mp4": models.FileTypeVideo, ".mov": models.FileTypeVideo, ".m4v": models.FileTypeVideo,
	".avi": models.FileTypeVideo, ".mkv": models.FileTypeVideo, ".webm": models.FileTypeVideo,
	".3gp": models.FileTypeVideo, ".mts": models.FileTypeVideo, ".m2ts": models.FileTypeVideo,
	".wmv": models.FileTypeVideo, ".mpg": models.FileTypeVideo, ".mpeg": models.FileTypeVideo,
}

// ISO BMFF brands of still images. Any other ftyp brand is taken as video.
var imageBrands = map[string]bool{
	"heic": true, "heix": true, "heim": true, "heis": true,
	"mif1": true, "msf1": true, "avif": true, "avis": true,
}

// TypeFromExtension looks at the file name only.
func TypeFromExtension(name string) (models.FileType, bool) {
	t, ok := extensionTypes[strings.ToLower(filepath.Ext(name))]
	return t, ok
}

// Sniff classifies content by its first bytes. It fails with
// common.ErrUnsupportedFileType for anything that is neither an image nor a
// video.
func Sniff(head []byte) (models.FileType, error) {
	if len(head) >= 12 && bytes.Equal(head[4:8], []byte("ftyp")) {
		if imageBrands[string(head[8:12])] {
			return models.FileTypeImage, nil
		}
		return models.FileTypeVideo, nil
	}

	ct := http.DetectContentType(head)
	switch {
	case strings.HasPrefix(ct, "image/"):
		return models.FileTypeImage, nil
	case strings.HasPrefix(ct, "video/"):
		return models.FileTypeVideo, nil
	}
	return models.FileTypeOther, common.ErrUnsupportedFileType
}

// DetectFileType tries the extension first and sniffs head otherwise.
func DetectFileType(name string, head []byte) (models.FileType, error) {
	if t, ok := TypeFromExtension(name); ok {
		return t, nil
	}
	return Sniff(head)
}
