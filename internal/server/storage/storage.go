// Package storage mints upload targets for encrypted objects and inspects
// what clients uploaded. S3Store talks to any S3-compatible service;
// LocalStore keeps objects on disk behind the backend's own HTTP endpoints.
package storage

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/SecurityWorks/ente/internal/common"
)

// ObjectStore is what the file service needs from object storage.
type ObjectStore interface {
	// PutURL returns a pre-signed URL accepting one PUT of key.
	PutURL(ctx context.Context, key string) (string, error)
	// StartMultipart begins a multipart upload of key in partCount parts.
	StartMultipart(ctx context.Context, key string, partCount int) (*Multipart, error)
	// CompleteMultipart assembles the parts, listed in order with the ETags
	// returned by their PUTs.
	CompleteMultipart(ctx context.Context, key, uploadID string, parts []Part) error
	// Size returns the stored size of key, or common.ErrorNotFound.
	Size(ctx context.Context, key string) (int64, error)
}

// Multipart is a started multipart upload.
type Multipart struct {
	UploadID string
	PartURLs []string
}

// Part is one element of an S3 CompleteMultipartUpload body.
type Part struct {
	Number int    `xml:"PartNumber"`
	ETag   string `xml:"ETag"`
}

type completeMultipartUpload struct {
	XMLName xml.Name `xml:"CompleteMultipartUpload"`
	Parts   []Part   `xml:"Part"`
}

// maxCompleteBody bounds the XML accepted by ParseComplete.
const maxCompleteBody = 1 << 20

// ParseComplete decodes a CompleteMultipartUpload body. Parts must be
// numbered 1..n in order and carry an ETag.
func ParseComplete(r io.Reader) ([]Part, error) {
	var body completeMultipartUpload
	if err := xml.NewDecoder(io.LimitReader(r, maxCompleteBody)).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: complete body: %v", common.ErrInvalidArgument, err)
	}
	if len(body.Parts) == 0 {
		return nil, fmt.Errorf("%w: no parts", common.ErrInvalidArgument)
	}
	for i, p := range body.Parts {
		if p.Number != i+1 {
			return nil, fmt.Errorf("%w: part %d listed at position %d", common.ErrInvalidArgument, p.Number, i+1)
		}
		if strings.Trim(p.ETag, `"`) == "" {
			return nil, fmt.Errorf("%w: part %d has no etag", common.ErrInvalidArgument, p.Number)
		}
	}
	return body.Parts, nil
}
