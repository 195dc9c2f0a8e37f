// Package reader turns upload items into fixed-size chunk streams.
package reader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/SecurityWorks/ente/internal/client/models"
	"github.com/SecurityWorks/ente/internal/common"
	"github.com/klauspost/compress/zip"
)

// ChunkSize is the read grain. Every chunk but the last is exactly this long.
const ChunkSize = common.EncryptionChunkSize

var ErrLivePhotoItem = errors.New("live photo items are read per component")

// Stream yields the chunks of one source. It is single use: once exhausted
// it keeps returning io.EOF and a fresh Stream has to be opened.
type Stream struct {
	ChunkCount   int
	Size         int64
	LastModified time.Time

	r         io.Reader
	closer    io.Closer
	chunkSize int
	emitted   int
	read      int64
	done      bool
}

// ChunkCountFor returns ceil(size/chunkSize).
func ChunkCountFor(size int64, chunkSize int) int {
	return int((size + int64(chunkSize) - 1) / int64(chunkSize))
}

// NewStream wraps r, declared to hold size bytes, with the default grain.
func NewStream(r io.Reader, size int64, lastModified time.Time) *Stream {
	return NewStreamSize(r, size, lastModified, ChunkSize)
}

// NewStreamSize is NewStream with an explicit grain.
func NewStreamSize(r io.Reader, size int64, lastModified time.Time, chunkSize int) *Stream {
	s := &Stream{
		ChunkCount:   ChunkCountFor(size, chunkSize),
		Size:         size,
		LastModified: lastModified,
		r:            r,
		chunkSize:    chunkSize,
	}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// Open acquires the source of item and returns a stream over it.
func Open(item models.UploadItem) (*Stream, error) {
	switch it := item.(type) {
	case *models.BufferItem:
		return NewStream(bytes.NewReader(it.Data), int64(len(it.Data)), it.LastModified), nil

	case *models.PathItem:
		f, err := os.Open(it.Path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", it.Path, err)
		}
		fi, err := f.Stat()
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("stat %s: %w", it.Path, err)
		}
		return NewStream(f, fi.Size(), fi.ModTime()), nil

	case *models.ZipEntryItem:
		return openZipEntry(it)

	case *models.LivePhotoItem:
		return nil, ErrLivePhotoItem

	default:
		return nil, fmt.Errorf("unknown upload item %T", item)
	}
}

type zipEntryReader struct {
	io.ReadCloser
	archive *zip.ReadCloser
}

func (z *zipEntryReader) Close() error {
	err := z.ReadCloser.Close()
	if cerr := z.archive.Close(); err == nil {
		err = cerr
	}
	return err
}

func openZipEntry(it *models.ZipEntryItem) (*Stream, error) {
	archive, err := zip.OpenReader(it.ArchivePath)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", it.ArchivePath, err)
	}
	for _, f := range archive.File {
		if f.Name != it.EntryName {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			_ = archive.Close()
			return nil, fmt.Errorf("open entry %s: %w", it.EntryName, err)
		}
		r := &zipEntryReader{ReadCloser: rc, archive: archive}
		return NewStream(r, int64(f.UncompressedSize64), f.Modified), nil
	}
	_ = archive.Close()
	return nil, fmt.Errorf("entry %s not found in %s: %w", it.EntryName, it.ArchivePath, os.ErrNotExist)
}

// Next returns the next chunk or io.EOF. A source that yields fewer or more
// bytes than its declared Size fails with common.ErrChunkCountMismatch.
func (s *Stream) Next() ([]byte, error) {
	if s.done {
		return nil, io.EOF
	}

	if s.emitted == s.ChunkCount {
		s.done = true
		var probe [1]byte
		n, err := io.ReadFull(s.r, probe[:])
		_ = s.Close()
		if n > 0 {
			return nil, fmt.Errorf("source longer than %d chunks: %w", s.ChunkCount, common.ErrChunkCountMismatch)
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		return nil, io.EOF
	}

	buf := make([]byte, s.chunkSize)
	n, err := io.ReadFull(s.r, buf)
	last := s.emitted == s.ChunkCount-1

	switch {
	case err == nil:
	case errors.Is(err, io.ErrUnexpectedEOF) && last:
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		s.done = true
		_ = s.Close()
		return nil, fmt.Errorf("source ended at chunk %d of %d: %w", s.emitted+1, s.ChunkCount, common.ErrChunkCountMismatch)
	default:
		s.done = true
		_ = s.Close()
		return nil, err
	}

	s.emitted++
	s.read += int64(n)
	if last && s.read != s.Size {
		s.done = true
		_ = s.Close()
		return nil, fmt.Errorf("source holds %d bytes, declared %d: %w", s.read, s.Size, common.ErrChunkCountMismatch)
	}
	return buf[:n], nil
}

// Close releases the underlying source. It is safe to call more than once.
func (s *Stream) Close() error {
	if s.closer == nil {
		return nil
	}
	c := s.closer
	s.closer = nil
	return c.Close()
}

// ReadAll drains s into memory.
func ReadAll(s *Stream) ([]byte, error) {
	defer s.Close()
	out := make([]byte, 0, s.Size)
	for {
		chunk, err := s.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
	}
}
