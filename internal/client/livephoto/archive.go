package livephoto

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
)

const (
	imageEntry = "image"
	videoEntry = "video"
)

// Encode packs both components into one zip payload with entries
// "image.<ext>" and "video.<ext>", which is how live photos are stored.
func Encode(imageName string, image []byte, videoName string, video []byte, modified time.Time) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, e := range []struct {
		name string
		data []byte
	}{
		{imageEntry + filepath.Ext(imageName), image},
		{videoEntry + filepath.Ext(videoName), video},
	} {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.name, Method: zip.Store, Modified: modified})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(e.data); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decoded is the content of a live photo payload.
type Decoded struct {
	ImageExt string
	Image    []byte
	VideoExt string
	Video    []byte
}

func Decode(payload []byte) (*Decoded, error) {
	zr, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return nil, fmt.Errorf("live photo archive: %w", err)
	}

	d := &Decoded{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, err
		}

		ext := filepath.Ext(f.Name)
		switch strings.TrimSuffix(f.Name, ext) {
		case imageEntry:
			d.ImageExt, d.Image = ext, data
		case videoEntry:
			d.VideoExt, d.Video = ext, data
		}
	}

	if d.Image == nil || d.Video == nil {
		return nil, fmt.Errorf("live photo archive is missing a component")
	}
	return d, nil
}
