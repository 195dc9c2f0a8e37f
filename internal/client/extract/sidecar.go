package extract

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/SecurityWorks/ente/internal/client/models"
)

// Sidecar holds the facts of a Google Takeout metadata JSON. Times are epoch
// microseconds.
type Sidecar struct {
	CreationTime     *int64
	ModificationTime *int64
	Location         *models.Location
	Description      string
}

type takeoutTime struct {
	Timestamp string `json:"timestamp"`
}

type takeoutGeo struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type takeoutJSON struct {
	Description      string       `json:"description"`
	PhotoTakenTime   *takeoutTime `json:"photoTakenTime"`
	CreationTime     *takeoutTime `json:"creationTime"`
	ModificationTime *takeoutTime `json:"modificationTime"`
	GeoData          *takeoutGeo  `json:"geoData"`
	GeoDataExif      *takeoutGeo  `json:"geoDataExif"`
}

// ParseSidecar decodes a Takeout JSON. The photo-taken time wins over the
// creation time, and geoData wins over geoDataExif; all-zero coordinates
// count as absent.
func ParseSidecar(data []byte) (*Sidecar, error) {
	var raw takeoutJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("sidecar json: %w", err)
	}

	s := &Sidecar{Description: raw.Description}

	if t := parseTakeoutTime(raw.PhotoTakenTime); t != nil {
		s.CreationTime = t
	} else {
		s.CreationTime = parseTakeoutTime(raw.CreationTime)
	}
	s.ModificationTime = parseTakeoutTime(raw.ModificationTime)

	for _, g := range []*takeoutGeo{raw.GeoData, raw.GeoDataExif} {
		if g != nil && (g.Latitude != 0 || g.Longitude != 0) {
			s.Location = &models.Location{Latitude: g.Latitude, Longitude: g.Longitude}
			break
		}
	}
	return s, nil
}

func parseTakeoutTime(t *takeoutTime) *int64 {
	if t == nil || t.Timestamp == "" {
		return nil
	}
	secs, err := strconv.ParseInt(t.Timestamp, 10, 64)
	if err != nil || secs <= 0 {
		return nil
	}
	us := secs * 1_000_000
	return &us
}

const (
	editedSuffix = "-edited"
	// Takeout truncates long file names to this many characters in the
	// name of the sidecar.
	clippedNameLength = 46
)

var numberedSuffix = regexp.MustCompile(`\(\d+\)$`)

// SidecarIndex maps sidecars to the assets they describe, per collection.
// It is safe for concurrent use.
type SidecarIndex struct {
	mu sync.RWMutex
	m  map[string]*Sidecar
}

func NewSidecarIndex() *SidecarIndex {
	return &SidecarIndex{m: make(map[string]*Sidecar)}
}

// Add registers the sidecar found in a file named jsonName.
func (x *SidecarIndex) Add(collectionID int64, jsonName string, s *Sidecar) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.m[keyForJSON(collectionID, jsonName)] = s
}

// Lookup finds the sidecar of the asset named fileName, trying the original
// name (without any "-edited" marker) and then the clipped name.
func (x *SidecarIndex) Lookup(collectionID int64, fileName string) *Sidecar {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if s, ok := x.m[keyForFile(collectionID, fileName)]; ok {
		return s
	}
	return x.m[clippedKeyForFile(collectionID, fileName)]
}

func (x *SidecarIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.m)
}

func keyForJSON(collectionID int64, jsonName string) string {
	title := strings.TrimSuffix(filepath.Base(jsonName), ".json")
	title = strings.TrimSuffix(title, ".supplemental-metadata")

	// "IMG.jpg(1).json" describes "IMG(1).jpg".
	if n := numberedSuffix.FindString(title); n != "" {
		title = strings.TrimSuffix(title, n)
		ext := filepath.Ext(title)
		return fmt.Sprintf("%d-%s%s%s", collectionID, strings.TrimSuffix(title, ext), n, ext)
	}
	return fmt.Sprintf("%d-%s", collectionID, title)
}

func keyForFile(collectionID int64, fileName string) string {
	ext := filepath.Ext(fileName)
	name := strings.TrimSuffix(fileName, ext)
	name = strings.TrimSuffix(name, editedSuffix)
	return fmt.Sprintf("%d-%s%s", collectionID, name, ext)
}

func clippedKeyForFile(collectionID int64, fileName string) string {
	r := []rune(fileName)
	if len(r) > clippedNameLength {
		r = r[:clippedNameLength]
	}
	return fmt.Sprintf("%d-%s", collectionID, string(r))
}
