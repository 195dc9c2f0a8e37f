// Package models defines the records the backend persists. Everything the
// client encrypts is stored as opaque bytes or base64 text.
package models

// Object is an uploaded encrypted blob.
type Object struct {
	Key    string
	Header []byte
	Size   int64
}

// Magic is one mutable metadata tier. Version is what the next update must
// present.
type Magic struct {
	Version int64
	Count   int
	Data    string
	Header  string
}

// File is an encrypted asset as seen from one collection. Everything except
// CollectionID and the key fields is shared by all collections the file is
// linked into.
type File struct {
	ID           int64
	OwnerID      string
	CollectionID int64

	EncryptedKey []byte
	KeyNonce     []byte

	File      Object
	Thumbnail Object

	MetadataData   string
	MetadataHeader string

	Magic       *Magic
	PublicMagic *Magic

	// UpdatedAt is the later of the file and link change times, in epoch
	// microseconds.
	UpdatedAt int64
}

// MagicTier selects the column set of UpdateMagic.
type MagicTier int

const (
	TierPrivate MagicTier = iota
	TierPublic
)

// MagicUpdate replaces one tier of a file. Version is the version the client
// read; the stored version becomes Version+1.
type MagicUpdate struct {
	FileID int64
	Magic  Magic
}
