// Package models defines the client-side data model of the upload pipeline:
// upload items, immutable metadata, the two magic metadata tiers and the
// file records cached from the backend.
package models

// ObjectAttributes locates an uploaded encrypted object.
type ObjectAttributes struct {
	ObjectKey        string
	DecryptionHeader []byte
	Size             int64
}

// File is a backend file record as seen from one collection, with its
// metadata decrypted.
type File struct {
	ID           int64
	OwnerID      string
	CollectionID int64

	// EncryptedKey is the file key sealed with the collection key.
	EncryptedKey []byte
	KeyNonce     []byte
	// Key is the decrypted file key. It is never persisted.
	Key []byte

	File      ObjectAttributes
	Thumbnail ObjectAttributes

	Metadata     Metadata
	PrivateMagic *MagicMetadata
	PublicMagic  *MagicMetadata

	// UpdatedAt is the backend change time in epoch microseconds.
	UpdatedAt int64
}

// DisplayMetadata merges the tiers of f for presentation. Mutable tiers win
// over the immutable one.
func (f *File) DisplayMetadata() Display {
	d := Display{
		Title:        f.Metadata.Title,
		CreationTime: f.Metadata.CreationTime,
		Visibility:   VisibilityVisible,
	}

	if f.PrivateMagic != nil {
		if v, ok := f.PrivateMagic.GetInt(KeyVisibility); ok {
			d.Visibility = Visibility(v)
		}
	}

	if f.PublicMagic != nil {
		if s, ok := f.PublicMagic.GetString(KeyEditedName); ok && s != "" {
			d.Title = s
		}
		if v, ok := f.PublicMagic.GetInt(KeyEditedTime); ok && v > 0 {
			d.CreationTime = v
		}
		d.Caption, _ = f.PublicMagic.GetString(KeyCaption)
		d.Width, _ = f.PublicMagic.GetInt(KeyWidth)
		d.Height, _ = f.PublicMagic.GetInt(KeyHeight)
	}
	return d
}

// Display is the merged, presentation-ready view of a file.
type Display struct {
	Title        string
	CreationTime int64
	Caption      string
	Width        int64
	Height       int64
	Visibility   Visibility
}

// UploadURL is a pre-signed single PUT target.
type UploadURL struct {
	ObjectKey string
	URL       string
}

// MultipartUploadURLs holds the part targets and the completion target of
// one multipart upload.
type MultipartUploadURLs struct {
	ObjectKey   string
	PartURLs    []string
	CompleteURL string
}
