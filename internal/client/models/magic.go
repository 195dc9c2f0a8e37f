package models

import "encoding/json"

// Visibility is stored in the private tier.
type Visibility int

const (
	VisibilityVisible  Visibility = 0
	VisibilityArchived Visibility = 1
	VisibilityHidden   Visibility = 2
)

// Private tier keys.
const (
	KeyVisibility = "visibility"
)

// Public tier keys.
const (
	KeyEditedTime   = "editedTime"
	KeyEditedName   = "editedName"
	KeyCaption      = "caption"
	KeyUploaderName = "uploaderName"
	KeyWidth        = "w"
	KeyHeight       = "h"
	KeyDateTime     = "dateTime"
	KeyOffsetTime   = "offsetTime"
	KeySkipProcess  = "sv"
)

// MagicTier selects one of the two mutable metadata tiers.
type MagicTier int

const (
	TierPrivate MagicTier = iota
	TierPublic
)

func (t MagicTier) String() string {
	if t == TierPublic {
		return "public"
	}
	return "private"
}

// MagicMetadata is a decrypted mutable tier. Provisional marks a value the
// client wrote itself and bumped locally; reconciliation replaces it.
type MagicMetadata struct {
	Version     int64
	Data        map[string]any
	Provisional bool
}

// Count is the number of keys carried by the tier.
func (m *MagicMetadata) Count() int {
	return len(m.Data)
}

func (m *MagicMetadata) GetString(key string) (string, bool) {
	v, ok := m.Data[key].(string)
	return v, ok
}

// GetInt reads a numeric key. JSON numbers decode as float64, values set in
// process may be any integer type.
func (m *MagicMetadata) GetInt(key string) (int64, bool) {
	switch v := m.Data[key].(type) {
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	case Visibility:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	default:
		return 0, false
	}
}

// Clone returns a deep enough copy for merge purposes.
func (m *MagicMetadata) Clone() *MagicMetadata {
	if m == nil {
		return nil
	}
	data := make(map[string]any, len(m.Data))
	for k, v := range m.Data {
		data[k] = v
	}
	return &MagicMetadata{Version: m.Version, Data: data, Provisional: m.Provisional}
}

// MagicMetadataEnvelope is the encrypted wire form of a tier.
type MagicMetadataEnvelope struct {
	Version int64  `json:"version"`
	Count   int    `json:"count"`
	Data    string `json:"data"`
	Header  string `json:"header"`
}

// UpdateMagicMetadataEntry is one element of a tier update request.
type UpdateMagicMetadataEntry struct {
	ID            int64                 `json:"id"`
	MagicMetadata MagicMetadataEnvelope `json:"magicMetadata"`
}
