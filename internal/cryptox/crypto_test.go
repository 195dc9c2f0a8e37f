package cryptox

import (
	"bytes"
	"encoding/hex"
	"errors"
	"io"
	"testing"

	"github.com/SecurityWorks/ente/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sliceSource struct {
	chunks [][]byte
	i      int
}

func (s *sliceSource) Next() ([]byte, error) {
	if s.i >= len(s.chunks) {
		return nil, io.EOF
	}
	c := s.chunks[s.i]
	s.i++
	return c, nil
}

func split(data []byte, size int) [][]byte {
	var out [][]byte
	for len(data) > 0 {
		n := size
		if len(data) < n {
			n = len(data)
		}
		out = append(out, data[:n])
		data = data[n:]
	}
	return out
}

func encryptAll(t *testing.T, enc *ChunkEncryptor) []byte {
	t.Helper()
	var buf bytes.Buffer
	for {
		c, err := enc.Next()
		if errors.Is(err, io.EOF) {
			return buf.Bytes()
		}
		require.NoError(t, err)
		buf.Write(c)
	}
}

func TestStreamRoundTrip(t *testing.T) {
	const chunkSize = 64
	key := GenerateKey()

	sizes := []struct {
		name string
		size int
	}{
		{"empty", 0},
		{"one byte", 1},
		{"exactly one chunk", chunkSize},
		{"multiple chunks", 3*chunkSize + 17},
		{"chunk aligned", 4 * chunkSize},
	}

	for _, tt := range sizes {
		t.Run(tt.name, func(t *testing.T) {
			plain := common.GenerateRandByteArray(tt.size)
			chunks := split(plain, chunkSize)

			enc, err := NewChunkEncryptor(&sliceSource{chunks: chunks}, len(chunks), key)
			require.NoError(t, err)
			assert.Equal(t, EncryptedChunkCount(len(chunks)), enc.ChunkCount())

			ct := encryptAll(t, enc)
			assert.Len(t, ct, tt.size+enc.ChunkCount()*ABytes)

			got, err := DecryptStream(ct, enc.Header(), key, chunkSize)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(plain, got))
		})
	}
}

func TestChunkEncryptor_CountMismatch(t *testing.T) {
	key := GenerateKey()
	chunks := [][]byte{{1}, {2}, {3}}

	t.Run("too few", func(t *testing.T) {
		enc, err := NewChunkEncryptor(&sliceSource{chunks: chunks}, 4, key)
		require.NoError(t, err)
		for i := 0; i < 3; i++ {
			_, err := enc.Next()
			require.NoError(t, err)
		}
		_, err = enc.Next()
		require.ErrorIs(t, err, common.ErrChunkCountMismatch)
	})

	t.Run("too many", func(t *testing.T) {
		enc, err := NewChunkEncryptor(&sliceSource{chunks: chunks}, 2, key)
		require.NoError(t, err)
		for i := 0; i < 2; i++ {
			_, err := enc.Next()
			require.NoError(t, err)
		}
		_, err = enc.Next()
		require.ErrorIs(t, err, common.ErrChunkCountMismatch)
	})
}

func TestPullStream_DetectsTamperingAndTruncation(t *testing.T) {
	key := GenerateKey()
	ps, header, err := NewPushStream(key)
	require.NoError(t, err)

	c1, err := ps.Push([]byte("first"), false)
	require.NoError(t, err)
	c2, err := ps.Push([]byte("second"), true)
	require.NoError(t, err)

	_, err = ps.Push([]byte("late"), false)
	require.ErrorIs(t, err, ErrStreamFinished)

	t.Run("tampered", func(t *testing.T) {
		bad := append([]byte(nil), c1...)
		bad[3] ^= 0xff
		pull, err := NewPullStream(key, header)
		require.NoError(t, err)
		_, _, err = pull.Pull(bad)
		require.ErrorIs(t, err, ErrStreamAuth)
	})

	t.Run("reordered", func(t *testing.T) {
		pull, err := NewPullStream(key, header)
		require.NoError(t, err)
		_, _, err = pull.Pull(c2)
		require.ErrorIs(t, err, ErrStreamAuth)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := DecryptStream(c1, header, key, 64)
		require.Error(t, err)
	})

	t.Run("in order", func(t *testing.T) {
		pull, err := NewPullStream(key, header)
		require.NoError(t, err)
		m1, final, err := pull.Pull(c1)
		require.NoError(t, err)
		assert.False(t, final)
		assert.Equal(t, "first", string(m1))
		m2, final, err := pull.Pull(c2)
		require.NoError(t, err)
		assert.True(t, final)
		assert.Equal(t, "second", string(m2))
	})
}

func TestStreamState_Rekey(t *testing.T) {
	key := GenerateKey()
	header := common.GenerateRandByteArray(HeaderBytes)

	push, err := newStreamState(key, header)
	require.NoError(t, err)
	before := push.key
	push.rekey()
	assert.NotEqual(t, before, push.key)
	assert.Equal(t, byte(1), push.nonce[0])
}

// Ciphertexts produced by libsodium's crypto_secretstream_xchacha20poly1305
// for key 00..1f and header 40..57.
var libsodiumStream = []struct {
	tag        byte
	plain      string
	ciphertext string
}{
	{TagMessage, "first chunk", "0da5f1329a7ff8cb211f0dc8ad8d8d314d6d2bad06ec1fcf560aedf4"},
	{TagRekey, "second chunk, rekey", "4b75a64de589d85cfb25e52eb3f21d012938ec7e2a2f38524ca106eee28bcad1e961b139"},
	{TagFinal, "last", "425dcbb05fc659093285372e4ecd510b266bffe94e"},
}

func libsodiumKeyAndHeader() ([]byte, []byte) {
	key := make([]byte, KeyBytes)
	for i := range key {
		key[i] = byte(i)
	}
	header := make([]byte, HeaderBytes)
	for i := range header {
		header[i] = byte(0x40 + i)
	}
	return key, header
}

func TestPushStream_MatchesLibsodium(t *testing.T) {
	key, header := libsodiumKeyAndHeader()
	st, err := newStreamState(key, header)
	require.NoError(t, err)
	push := &PushStream{state: st}

	for _, v := range libsodiumStream {
		out, err := push.push([]byte(v.plain), v.tag)
		require.NoError(t, err)
		assert.Equal(t, v.ciphertext, hex.EncodeToString(out), "tag %d", v.tag)
	}

	_, err = push.Push([]byte("more"), false)
	require.ErrorIs(t, err, ErrStreamFinished)
}

func TestPullStream_OpensLibsodium(t *testing.T) {
	key, header := libsodiumKeyAndHeader()
	pull, err := NewPullStream(key, header)
	require.NoError(t, err)

	for i, v := range libsodiumStream {
		in, err := hex.DecodeString(v.ciphertext)
		require.NoError(t, err)

		plain, final, err := pull.Pull(in)
		require.NoError(t, err)
		assert.Equal(t, v.plain, string(plain))
		assert.Equal(t, i == len(libsodiumStream)-1, final)
	}
}

func TestBlobAndJSON(t *testing.T) {
	key := GenerateKey()

	ct, header, err := EncryptBlob([]byte("thumbnail bytes"), key)
	require.NoError(t, err)
	assert.Len(t, header, HeaderBytes)

	plain, err := DecryptBlob(ct, header, key)
	require.NoError(t, err)
	assert.Equal(t, "thumbnail bytes", string(plain))

	_, err = DecryptBlob(ct, header, GenerateKey())
	require.Error(t, err)

	enc, err := EncryptJSON(map[string]any{"caption": "beach"}, key)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, DecryptJSON(enc.Data, enc.Header, key, &out))
	assert.Equal(t, "beach", out["caption"])

	require.Error(t, DecryptJSON("!!", enc.Header, key, &out))
}

func TestKeys(t *testing.T) {
	master := DeriveMasterKey([]byte("correct horse"), []byte("0123456789abcdef"))
	require.Len(t, master, KeyBytes)
	assert.Equal(t, master, DeriveMasterKey([]byte("correct horse"), []byte("0123456789abcdef")))

	ring := NewKeyRing(master)
	fileKey := GenerateKey()

	sealed, nonce, err := ring.WrapFileKey(7, fileKey)
	require.NoError(t, err)

	got, err := ring.UnwrapFileKey(7, sealed, nonce)
	require.NoError(t, err)
	assert.Equal(t, fileKey, got)

	_, err = ring.UnwrapFileKey(8, sealed, nonce)
	require.ErrorIs(t, err, ErrKeyUnwrap)

	k7, err := DeriveCollectionKey(master, 7)
	require.NoError(t, err)
	k8, err := DeriveCollectionKey(master, 8)
	require.NoError(t, err)
	assert.NotEqual(t, k7, k8)
}

func TestMakeVerifier(t *testing.T) {
	a := DeriveMasterKey([]byte("one"), []byte("0123456789abcdef"))
	b := DeriveMasterKey([]byte("two"), []byte("0123456789abcdef"))

	assert.Len(t, MakeVerifier(a), KeyBytes)
	assert.Equal(t, MakeVerifier(a), MakeVerifier(a))
	assert.NotEqual(t, MakeVerifier(a), MakeVerifier(b))
	assert.NotEqual(t, a, MakeVerifier(a))
}
