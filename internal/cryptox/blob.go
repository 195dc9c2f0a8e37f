package cryptox

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// EncryptBlob encrypts data in one call. The result is a single-chunk secret
// stream tagged final, so it is decryptable with the same construction used
// for file streams. It is meant for thumbnails and metadata JSON.
func EncryptBlob(data, key []byte) (ciphertext, header []byte, err error) {
	ps, header, err := NewPushStream(key)
	if err != nil {
		return nil, nil, err
	}
	ciphertext, err = ps.Push(data, true)
	if err != nil {
		return nil, nil, err
	}
	return ciphertext, header, nil
}

// DecryptBlob reverses EncryptBlob.
func DecryptBlob(ciphertext, header, key []byte) ([]byte, error) {
	ps, err := NewPullStream(key, header)
	if err != nil {
		return nil, err
	}
	plain, final, err := ps.Pull(ciphertext)
	if err != nil {
		return nil, err
	}
	if !final {
		return nil, errors.New("blob is not a complete stream")
	}
	return plain, nil
}

// EncryptedJSON is the base64 form of an encrypted JSON document, as sent to
// the backend for metadata.
type EncryptedJSON struct {
	Data   string
	Header string
}

// EncryptJSON serializes v to JSON and encrypts it with EncryptBlob.
func EncryptJSON(v any, key []byte) (*EncryptedJSON, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	ct, header, err := EncryptBlob(plaintext, key)
	if err != nil {
		return nil, err
	}
	return &EncryptedJSON{
		Data:   base64.StdEncoding.EncodeToString(ct),
		Header: base64.StdEncoding.EncodeToString(header),
	}, nil
}

// DecryptJSON decodes base64 data and header, decrypts, and unmarshals into v.
func DecryptJSON(data, header string, key []byte, v any) error {
	ct, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	h, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return fmt.Errorf("decode header: %w", err)
	}
	plain, err := DecryptBlob(ct, h, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(plain, v)
}
