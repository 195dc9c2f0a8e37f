package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/poly1305"
)

// Wire constants of the XChaCha20-Poly1305 secret stream. The framing is
// byte-compatible with libsodium's crypto_secretstream_xchacha20poly1305,
// which other clients decrypt with.
const (
	KeyBytes    = chacha20.KeySize
	HeaderBytes = 24
	// ABytes is the per-chunk overhead: one encrypted tag byte plus the MAC.
	ABytes = 1 + poly1305.TagSize
)

// Tags carried in the first byte of every encrypted chunk.
const (
	TagMessage byte = 0x00
	TagPush    byte = 0x01
	TagRekey   byte = 0x02
	TagFinal   byte = TagPush | TagRekey
)

const (
	streamBlockSize = 64
	counterBytes    = 4
	inonceBytes     = 8
)

var (
	ErrStreamFinished = errors.New("secretstream: stream already finalized")
	ErrStreamAuth     = errors.New("secretstream: message forged or corrupted")
	ErrStreamTooShort = errors.New("secretstream: ciphertext shorter than overhead")
	ErrInvalidKey     = errors.New("secretstream: invalid key length")
	ErrInvalidHeader  = errors.New("secretstream: invalid header length")
)

// streamState is the cipher state threaded through a stream. The nonce is
// a 32-bit little-endian counter followed by the 64-bit inonce.
type streamState struct {
	key   [KeyBytes]byte
	nonce [chacha20.NonceSize]byte
}

func newStreamState(key, header []byte) (*streamState, error) {
	if len(key) != KeyBytes {
		return nil, ErrInvalidKey
	}
	if len(header) != HeaderBytes {
		return nil, ErrInvalidHeader
	}

	subkey, err := chacha20.HChaCha20(key, header[:16])
	if err != nil {
		return nil, err
	}

	st := &streamState{}
	copy(st.key[:], subkey)
	st.resetCounter()
	copy(st.nonce[counterBytes:], header[16:])
	return st, nil
}

func (s *streamState) resetCounter() {
	for i := 0; i < counterBytes; i++ {
		s.nonce[i] = 0
	}
	s.nonce[0] = 1
}

func (s *streamState) cipher(counter uint32) *chacha20.Cipher {
	c, err := chacha20.NewUnauthenticatedCipher(s.key[:], s.nonce[:])
	if err != nil {
		// key and nonce sizes are fixed by the array types
		panic(err)
	}
	if counter > 0 {
		c.SetCounter(counter)
	}
	return c
}

func (s *streamState) mac(tagBlock, c []byte) *poly1305.MAC {
	var polyKey [32]byte
	var block [streamBlockSize]byte
	s.cipher(0).XORKeyStream(block[:], block[:])
	copy(polyKey[:], block[:32])

	m := poly1305.New(&polyKey)
	// No associated data is used, so the ad and its padding are empty.
	m.Write(tagBlock)
	m.Write(c)

	var pad [16]byte
	m.Write(pad[:(len(c)+0x10-streamBlockSize)&0xf])

	var slen [8]byte
	binary.LittleEndian.PutUint64(slen[:], 0)
	m.Write(slen[:])
	binary.LittleEndian.PutUint64(slen[:], uint64(streamBlockSize+len(c)))
	m.Write(slen[:])
	return m
}

func (s *streamState) advance(mac []byte, tag byte) {
	for i := 0; i < inonceBytes; i++ {
		s.nonce[counterBytes+i] ^= mac[i]
	}

	counter := binary.LittleEndian.Uint32(s.nonce[:counterBytes]) + 1
	binary.LittleEndian.PutUint32(s.nonce[:counterBytes], counter)

	if tag&TagRekey != 0 || counter == 0 {
		s.rekey()
	}
}

func (s *streamState) rekey() {
	var buf [KeyBytes + inonceBytes]byte
	copy(buf[:KeyBytes], s.key[:])
	copy(buf[KeyBytes:], s.nonce[counterBytes:])
	s.cipher(0).XORKeyStream(buf[:], buf[:])
	copy(s.key[:], buf[:KeyBytes])
	copy(s.nonce[counterBytes:], buf[KeyBytes:])
	s.resetCounter()
}

// PushStream encrypts an ordered sequence of chunks. A PushStream belongs to
// exactly one stream and must not be used from multiple goroutines.
type PushStream struct {
	state    *streamState
	finished bool
}

// NewPushStream starts a stream under key and returns it together with the
// random header the decryptor needs. The header is not secret.
func NewPushStream(key []byte) (*PushStream, []byte, error) {
	header := make([]byte, HeaderBytes)
	if _, err := rand.Read(header); err != nil {
		return nil, nil, fmt.Errorf("secretstream header: %w", err)
	}
	st, err := newStreamState(key, header)
	if err != nil {
		return nil, nil, err
	}
	return &PushStream{state: st}, header, nil
}

// Push encrypts one chunk. final marks the last chunk of the stream so a
// decryptor can tell a complete stream from a truncated one.
func (p *PushStream) Push(chunk []byte, final bool) ([]byte, error) {
	tag := TagMessage
	if final {
		tag = TagFinal
	}
	return p.push(chunk, tag)
}

func (p *PushStream) push(chunk []byte, tag byte) ([]byte, error) {
	if p.finished {
		return nil, ErrStreamFinished
	}

	var block [streamBlockSize]byte
	block[0] = tag
	p.state.cipher(1).XORKeyStream(block[:], block[:])

	out := make([]byte, 1+len(chunk)+poly1305.TagSize)
	out[0] = block[0]
	c := out[1 : 1+len(chunk)]
	p.state.cipher(2).XORKeyStream(c, chunk)

	mac := p.state.mac(block[:], c).Sum(out[1+len(chunk) : 1+len(chunk)])
	p.state.advance(mac, tag)

	if tag == TagFinal {
		p.finished = true
	}
	return out, nil
}

// PullStream decrypts chunks produced by a PushStream, in order.
type PullStream struct {
	state    *streamState
	finished bool
}

func NewPullStream(key, header []byte) (*PullStream, error) {
	st, err := newStreamState(key, header)
	if err != nil {
		return nil, err
	}
	return &PullStream{state: st}, nil
}

// Pull authenticates and decrypts one chunk and reports whether it carried
// the final tag.
func (p *PullStream) Pull(in []byte) ([]byte, bool, error) {
	if p.finished {
		return nil, false, ErrStreamFinished
	}
	if len(in) < ABytes {
		return nil, false, ErrStreamTooShort
	}

	mlen := len(in) - ABytes

	var block [streamBlockSize]byte
	block[0] = in[0]
	p.state.cipher(1).XORKeyStream(block[:], block[:])
	tag := block[0]
	block[0] = in[0]

	c := in[1 : 1+mlen]
	expected := p.state.mac(block[:], c).Sum(nil)
	if subtle.ConstantTimeCompare(expected, in[1+mlen:]) != 1 {
		return nil, false, ErrStreamAuth
	}

	out := make([]byte, mlen)
	p.state.cipher(2).XORKeyStream(out, c)
	p.state.advance(expected, tag)

	final := tag == TagFinal
	if final {
		p.finished = true
	}
	return out, final, nil
}
