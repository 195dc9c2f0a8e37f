package cryptox

import (
	"errors"
	"fmt"
	"io"

	"github.com/SecurityWorks/ente/internal/common"
)

// ChunkSource yields plaintext chunks and io.EOF once exhausted.
type ChunkSource interface {
	Next() ([]byte, error)
}

// ChunkEncryptor encrypts a ChunkSource chunk by chunk, tagging the declared
// last chunk as final. An empty source still produces one (empty) final
// chunk, so every stream is terminated.
type ChunkEncryptor struct {
	src        ChunkSource
	stream     *PushStream
	header     []byte
	chunkCount int
	total      int
	emitted    int
}

func NewChunkEncryptor(src ChunkSource, chunkCount int, key []byte) (*ChunkEncryptor, error) {
	if chunkCount < 0 {
		return nil, fmt.Errorf("negative chunk count %d", chunkCount)
	}
	ps, header, err := NewPushStream(key)
	if err != nil {
		return nil, err
	}
	return &ChunkEncryptor{
		src:        src,
		stream:     ps,
		header:     header,
		chunkCount: chunkCount,
		total:      EncryptedChunkCount(chunkCount),
	}, nil
}

// EncryptedChunkCount is the number of ciphertext chunks for a plaintext
// of chunkCount chunks.
func EncryptedChunkCount(chunkCount int) int {
	if chunkCount == 0 {
		return 1
	}
	return chunkCount
}

func (e *ChunkEncryptor) Header() []byte {
	return e.header
}

// ChunkCount reports how many encrypted chunks Next will return.
func (e *ChunkEncryptor) ChunkCount() int {
	return e.total
}

// Next returns the next encrypted chunk, or io.EOF after the final one. A
// source that ends early or keeps producing past the declared count fails
// with common.ErrChunkCountMismatch.
func (e *ChunkEncryptor) Next() ([]byte, error) {
	if e.emitted == e.total {
		if _, err := e.src.Next(); err == nil {
			return nil, fmt.Errorf("source longer than %d chunks: %w", e.chunkCount, common.ErrChunkCountMismatch)
		} else if !errors.Is(err, io.EOF) {
			return nil, err
		}
		return nil, io.EOF
	}

	var chunk []byte
	if e.chunkCount > 0 {
		c, err := e.src.Next()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("source ended after %d of %d chunks: %w", e.emitted, e.chunkCount, common.ErrChunkCountMismatch)
		}
		if err != nil {
			return nil, err
		}
		chunk = c
	}

	out, err := e.stream.Push(chunk, e.emitted == e.total-1)
	if err != nil {
		return nil, err
	}
	e.emitted++
	return out, nil
}

// DecryptStream decrypts a concatenated ciphertext stream produced with
// chunkSize plaintext chunks. A stream missing its final tag is rejected.
func DecryptStream(ciphertext, header, key []byte, chunkSize int) ([]byte, error) {
	ps, err := NewPullStream(key, header)
	if err != nil {
		return nil, err
	}

	step := chunkSize + ABytes
	out := make([]byte, 0, len(ciphertext))
	for off := 0; off < len(ciphertext); off += step {
		end := off + step
		if end > len(ciphertext) {
			end = len(ciphertext)
		}
		plain, final, err := ps.Pull(ciphertext[off:end])
		if err != nil {
			return nil, err
		}
		out = append(out, plain...)
		if final {
			if end != len(ciphertext) {
				return nil, errors.New("data after final chunk")
			}
			return out, nil
		}
	}
	return nil, errors.New("stream truncated before final chunk")
}
