package cryptox

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/SecurityWorks/ente/internal/common"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	SaltBytes  = 16
	NonceBytes = 24
)

var ErrKeyUnwrap = errors.New("key unwrap failed")

// DeriveMasterKey stretches a passphrase into a 32-byte master key.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, KeyBytes)
}

// GenerateKey returns a fresh random 32-byte key.
func GenerateKey() []byte {
	return common.GenerateRandByteArray(KeyBytes)
}

// DeriveCollectionKey derives the key that wraps file keys of one
// collection from the master key.
func DeriveCollectionKey(masterKey []byte, collectionID int64) ([]byte, error) {
	info := []byte("ente-collection:" + strconv.FormatInt(collectionID, 10))
	r := hkdf.New(sha256.New, masterKey, nil, info)
	key := make([]byte, KeyBytes)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("hkdf: %w", err)
	}
	return key, nil
}

// MakeVerifier derives a value stored next to the salt so a wrong
// passphrase is rejected before any key is unwrapped.
func MakeVerifier(masterKey []byte) []byte {
	r := hkdf.New(sha256.New, masterKey, nil, []byte("ente-verifier"))
	v := make([]byte, KeyBytes)
	_, _ = io.ReadFull(r, v)
	return v
}

// WrapKey seals key under wrappingKey with a random nonce.
func WrapKey(key, wrappingKey []byte) (sealed, nonce []byte, err error) {
	if len(wrappingKey) != KeyBytes {
		return nil, nil, ErrInvalidKey
	}
	var k [KeyBytes]byte
	var n [NonceBytes]byte
	copy(k[:], wrappingKey)
	copy(n[:], common.GenerateRandByteArray(NonceBytes))
	return secretbox.Seal(nil, key, &n, &k), n[:], nil
}

func UnwrapKey(sealed, nonce, wrappingKey []byte) ([]byte, error) {
	if len(wrappingKey) != KeyBytes {
		return nil, ErrInvalidKey
	}
	if len(nonce) != NonceBytes {
		return nil, ErrKeyUnwrap
	}
	var k [KeyBytes]byte
	var n [NonceBytes]byte
	copy(k[:], wrappingKey)
	copy(n[:], nonce)
	key, ok := secretbox.Open(nil, sealed, &n, &k)
	if !ok {
		return nil, ErrKeyUnwrap
	}
	return key, nil
}

// KeyRing holds the master key of a session and hands out collection keys.
type KeyRing struct {
	master []byte
}

func NewKeyRing(masterKey []byte) *KeyRing {
	return &KeyRing{master: masterKey}
}

func (k *KeyRing) MasterKey() []byte {
	return k.master
}

// WrapFileKey seals a file key for the given collection.
func (k *KeyRing) WrapFileKey(collectionID int64, fileKey []byte) (sealed, nonce []byte, err error) {
	ck, err := DeriveCollectionKey(k.master, collectionID)
	if err != nil {
		return nil, nil, err
	}
	defer common.WipeByteArray(ck)
	return WrapKey(fileKey, ck)
}

// UnwrapFileKey opens a file key sealed for the given collection.
func (k *KeyRing) UnwrapFileKey(collectionID int64, sealed, nonce []byte) ([]byte, error) {
	ck, err := DeriveCollectionKey(k.master, collectionID)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(ck)
	return UnwrapKey(sealed, nonce, ck)
}
