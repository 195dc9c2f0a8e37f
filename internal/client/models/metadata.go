package models

// FileType tags the kind of asset.
type FileType int

const (
	FileTypeImage     FileType = 0
	FileTypeVideo     FileType = 1
	FileTypeLivePhoto FileType = 2
	FileTypeOther     FileType = 3
)

func (t FileType) String() string {
	switch t {
	case FileTypeImage:
		return "image"
	case FileTypeVideo:
		return "video"
	case FileTypeLivePhoto:
		return "livePhoto"
	default:
		return "other"
	}
}

// Metadata is fixed at upload time and never edited afterwards. Times are
// epoch microseconds.
type Metadata struct {
	FileType           FileType `json:"fileType"`
	Title              string   `json:"title"`
	CreationTime       int64    `json:"creationTime"`
	ModificationTime   int64    `json:"modificationTime"`
	Latitude           *float64 `json:"latitude,omitempty"`
	Longitude          *float64 `json:"longitude,omitempty"`
	Hash               string   `json:"hash,omitempty"`
	ImageHash          string   `json:"imageHash,omitempty"`
	VideoHash          string   `json:"videoHash,omitempty"`
	Duration           *int64   `json:"duration,omitempty"`
	HasStaticThumbnail bool     `json:"hasStaticThumbnail,omitempty"`
}

// ContentIdentity returns the dedup hash: Hash when set, otherwise the
// image:video composite of a live photo, otherwise "".
func (m *Metadata) ContentIdentity() string {
	if m.Hash != "" {
		return m.Hash
	}
	if m.ImageHash != "" && m.VideoHash != "" {
		return m.ImageHash + ":" + m.VideoHash
	}
	return ""
}

// Location is a GPS coordinate pair.
type Location struct {
	Latitude  float64
	Longitude float64
}
