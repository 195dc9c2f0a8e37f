// Package transport moves encrypted payloads to pre-signed object storage
// targets: single PUTs for small payloads, ordered multipart uploads for
// long streams, both under a shared retrier.
package transport

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/SecurityWorks/ente/internal/client/models"
	"github.com/SecurityWorks/ente/internal/common"
	"github.com/SecurityWorks/ente/internal/logging"
	"github.com/SecurityWorks/ente/internal/netx"
)

// ChunkStream is an encrypted chunk stream of known length.
type ChunkStream interface {
	Next() ([]byte, error)
	ChunkCount() int
}

// CompletedPart is one element of an S3 CompleteMultipartUpload body.
type CompletedPart struct {
	PartNumber int    `xml:"PartNumber"`
	ETag       string `xml:"ETag"`
}

type completeMultipartUpload struct {
	XMLName xml.Name        `xml:"CompleteMultipartUpload"`
	Parts   []CompletedPart `xml:"Part"`
}

// Uploaded describes a stored object.
type Uploaded struct {
	ObjectKey string
	Size      int64
	// Parts is the number of multipart parts, 0 for a single PUT.
	Parts int
}

type Uploader struct {
	pool          *URLPool
	urls          URLSource
	retrier       *Retrier
	client        *http.Client
	chunksPerPart int
	log           logging.Logger
}

type Option func(*Uploader)

// WithChunksPerPart overrides common.MultipartChunksPerPart.
func WithChunksPerPart(n int) Option {
	return func(u *Uploader) { u.chunksPerPart = n }
}

func WithHTTPClient(c *http.Client) Option {
	return func(u *Uploader) { u.client = c }
}

func NewUploader(pool *URLPool, urls URLSource, retrier *Retrier, log logging.Logger, opts ...Option) *Uploader {
	u := &Uploader{
		pool:          pool,
		urls:          urls,
		retrier:       retrier,
		client:        http.DefaultClient,
		chunksPerPart: common.MultipartChunksPerPart,
		log:           log.With("module", "transport"),
	}
	for _, o := range opts {
		o(u)
	}
	return u
}

// UploadBytes stores an in-memory payload with a single PUT.
func (u *Uploader) UploadBytes(ctx context.Context, data []byte, progress *Progress) (*Uploaded, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.ErrUploadCancelled
	}

	target, err := u.pool.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get upload url: %w", err)
	}

	err = u.retrier.Do(ctx, "put object", func(ctx context.Context) error {
		_, err := netx.UploadToPresignedURL(ctx, u.client, target.URL, data)
		return err
	})
	if err != nil {
		return nil, err
	}

	progress.Update(1, 1)
	return &Uploaded{ObjectKey: target.ObjectKey, Size: int64(len(data))}, nil
}

// UploadStream stores an encrypted stream. Streams shorter than one part go
// out as a single PUT; longer ones as a multipart upload whose parts are sent
// strictly in order. Cancellation is honored between chunks and parts, and a
// cancelled multipart upload is never completed.
func (u *Uploader) UploadStream(ctx context.Context, src ChunkStream, progress *Progress) (*Uploaded, error) {
	n := src.ChunkCount()
	if n < u.chunksPerPart {
		data, err := u.readChunks(ctx, src, n)
		if err != nil {
			return nil, err
		}
		if err := expectEOF(src); err != nil {
			return nil, err
		}
		return u.UploadBytes(ctx, data, progress)
	}
	return u.uploadMultipart(ctx, src, progress)
}

// PartCount is the number of parts of an n chunk stream.
func PartCount(n, chunksPerPart int) int {
	return (n + chunksPerPart - 1) / chunksPerPart
}

func (u *Uploader) uploadMultipart(ctx context.Context, src ChunkStream, progress *Progress) (*Uploaded, error) {
	n := src.ChunkCount()
	parts := PartCount(n, u.chunksPerPart)

	var set *models.MultipartUploadURLs
	err := u.retrier.Do(ctx, "get multipart urls", func(ctx context.Context) error {
		var err error
		set, err = u.urls.GetMultipartUploadURLs(ctx, parts)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(set.PartURLs) != parts {
		return nil, fmt.Errorf("backend returned %d part urls, want %d", len(set.PartURLs), parts)
	}

	log := u.log.With("object_key", set.ObjectKey, "parts", parts)
	log.Debug(ctx, "multipart upload started")

	completed := make([]CompletedPart, 0, parts)
	var size int64
	for i := 0; i < parts; i++ {
		if ctx.Err() != nil {
			log.Info(ctx, "multipart upload cancelled", "next_part", i+1)
			return nil, common.ErrUploadCancelled
		}

		want := u.chunksPerPart
		if rest := n - i*u.chunksPerPart; rest < want {
			want = rest
		}
		data, err := u.readChunks(ctx, src, want)
		if err != nil {
			return nil, err
		}

		var etag string
		err = u.retrier.Do(ctx, fmt.Sprintf("put part %d", i+1), func(ctx context.Context) error {
			var err error
			etag, err = netx.UploadToPresignedURL(ctx, u.client, set.PartURLs[i], data)
			return err
		})
		if err != nil {
			return nil, err
		}

		completed = append(completed, CompletedPart{PartNumber: i + 1, ETag: etag})
		size += int64(len(data))
		progress.Update(i+1, parts)
	}

	if err := expectEOF(src); err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, common.ErrUploadCancelled
	}

	body := completeMultipartUpload{Parts: completed}
	err = u.retrier.Do(ctx, "complete multipart", func(ctx context.Context) error {
		return netx.PostXML(ctx, u.client, set.CompleteURL, body)
	})
	if err != nil {
		return nil, err
	}

	log.Debug(ctx, "multipart upload completed", "size", size)
	return &Uploaded{ObjectKey: set.ObjectKey, Size: size, Parts: parts}, nil
}

func (u *Uploader) readChunks(ctx context.Context, src ChunkStream, n int) ([]byte, error) {
	var buf bytes.Buffer
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			return nil, common.ErrUploadCancelled
		}
		c, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("stream ended early: %w", common.ErrChunkCountMismatch)
		}
		if err != nil {
			return nil, err
		}
		buf.Write(c)
	}
	return buf.Bytes(), nil
}

func expectEOF(src ChunkStream) error {
	_, err := src.Next()
	if err == nil {
		return fmt.Errorf("stream longer than %d chunks: %w", src.ChunkCount(), common.ErrChunkCountMismatch)
	}
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
