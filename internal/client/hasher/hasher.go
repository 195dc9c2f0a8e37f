// Package hasher computes the content identity used for dedup.
package hasher

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/SecurityWorks/ente/internal/client/models"
	"github.com/SecurityWorks/ente/internal/client/reader"
	"github.com/SecurityWorks/ente/internal/common"
	"golang.org/x/crypto/blake2b"
)

// Hash feeds every chunk of s through BLAKE2b-512 and returns the digest in
// standard base64. Cancellation is checked between chunks.
func Hash(ctx context.Context, s *reader.Stream) (string, error) {
	defer s.Close()

	h, err := blake2b.New512(nil)
	if err != nil {
		return "", err
	}

	for {
		if ctx.Err() != nil {
			return "", common.ErrUploadCancelled
		}
		chunk, err := s.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("hash: %w", err)
		}
		h.Write(chunk)
	}

	return base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}

// HashItem opens item and hashes it. Live photos hash each component and
// return the image:video composite.
func HashItem(ctx context.Context, item models.UploadItem) (string, error) {
	if lp, ok := item.(*models.LivePhotoItem); ok {
		img, vid, err := HashLivePhoto(ctx, lp)
		if err != nil {
			return "", err
		}
		return LivePhotoHash(img, vid), nil
	}

	s, err := reader.Open(item)
	if err != nil {
		return "", err
	}
	return Hash(ctx, s)
}

// HashLivePhoto hashes the two components independently.
func HashLivePhoto(ctx context.Context, lp *models.LivePhotoItem) (imageHash, videoHash string, err error) {
	imageHash, err = HashItem(ctx, lp.Image)
	if err != nil {
		return "", "", fmt.Errorf("image: %w", err)
	}
	videoHash, err = HashItem(ctx, lp.Video)
	if err != nil {
		return "", "", fmt.Errorf("video: %w", err)
	}
	return imageHash, videoHash, nil
}

// LivePhotoHash joins component hashes in the cross-client format.
func LivePhotoHash(imageHash, videoHash string) string {
	return imageHash + ":" + videoHash
}

// Matches reports whether a and b describe the same content: same file
// type, same title and an equal, non-empty content identity.
func Matches(a, b *models.Metadata) bool {
	if a.FileType != b.FileType || a.Title != b.Title {
		return false
	}
	ha, hb := a.ContentIdentity(), b.ContentIdentity()
	return ha != "" && ha == hb
}
