// Package livephoto decides which image/video pairs form a live photo and
// packs a pair into the single payload that gets uploaded.
package livephoto

import (
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/SecurityWorks/ente/internal/client/models"
	"github.com/SecurityWorks/ente/internal/common"
)

// Policy holds the tunable thresholds of the pairing heuristic.
type Policy struct {
	// MaxAssetSize caps the size of each component.
	MaxAssetSize int64
	// Tolerance is the largest accepted gap between the creation times.
	Tolerance time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAssetSize: common.LivePhotoMaxAssetSize,
		Tolerance:    24 * time.Hour,
	}
}

// Candidate is what the pairer knows about one queued asset. Times are
// epoch microseconds; nil means unknown.
type Candidate struct {
	CollectionID int64
	Dir          string
	Name         string
	FileType     models.FileType
	Size         int64

	SidecarCreationTime   *int64
	ExtractedCreationTime *int64
}

func (c Candidate) creationTime() *int64 {
	if c.SidecarCreationTime != nil {
		return c.SidecarCreationTime
	}
	return c.ExtractedCreationTime
}

const (
	suffix3    = "_3"
	suffixHVEC = "_HVEC"
)

// Pair reports whether a and b are the two halves of one live photo.
func Pair(a, b Candidate, p Policy) bool {
	if a.CollectionID != b.CollectionID || a.Dir != b.Dir {
		return false
	}

	img, vid := a, b
	if img.FileType == models.FileTypeVideo {
		img, vid = vid, img
	}
	if img.FileType != models.FileTypeImage || vid.FileType != models.FileTypeVideo {
		return false
	}

	imgStem, imgExt := splitName(img.Name)
	vidStem, vidExt := splitName(vid.Name)
	if stripSuffix(imgStem, vidExt) != stripSuffix(vidStem, imgExt) {
		return false
	}

	if img.Size > p.MaxAssetSize || vid.Size > p.MaxAssetSize {
		return false
	}

	ti, tv := img.creationTime(), vid.creationTime()
	switch {
	case ti != nil && tv != nil:
		gap := *ti - *tv
		if gap < 0 {
			gap = -gap
		}
		if gap > p.Tolerance.Microseconds() {
			return false
		}
	case ti != nil || tv != nil:
		return false
	}

	return true
}

func splitName(name string) (stem, ext string) {
	ext = filepath.Ext(name)
	return strings.TrimSuffix(name, ext), ext
}

// stripSuffix removes one vendor suffix from stem: "_3", "_HVEC" in any
// case, or the other component's extension (".jpg" of "IMG.jpg.mp4").
func stripSuffix(stem, otherExt string) string {
	switch {
	case strings.HasSuffix(stem, suffix3):
		return strings.TrimSuffix(stem, suffix3)
	case hasSuffixFold(stem, suffixHVEC):
		return stem[:len(stem)-len(suffixHVEC)]
	case otherExt != "" && hasSuffixFold(stem, otherExt):
		return stem[:len(stem)-len(otherExt)]
	}
	return stem
}

func hasSuffixFold(s, suffix string) bool {
	return len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix)
}

// Cluster walks items in (collection, dir, name) order and pairs adjacent
// candidates. It returns the pairs as (image, video) and the rest unchanged.
func Cluster[T any](items []T, candidate func(T) Candidate, p Policy) (pairs [][2]T, singles []T) {
	sorted := make([]T, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := candidate(sorted[i]), candidate(sorted[j])
		if a.CollectionID != b.CollectionID {
			return a.CollectionID < b.CollectionID
		}
		if a.Dir != b.Dir {
			return a.Dir < b.Dir
		}
		return a.Name < b.Name
	})

	for i := 0; i < len(sorted); {
		if i+1 < len(sorted) {
			a, b := candidate(sorted[i]), candidate(sorted[i+1])
			if Pair(a, b, p) {
				if a.FileType == models.FileTypeImage {
					pairs = append(pairs, [2]T{sorted[i], sorted[i+1]})
				} else {
					pairs = append(pairs, [2]T{sorted[i+1], sorted[i]})
				}
				i += 2
				continue
			}
		}
		singles = append(singles, sorted[i])
		i++
	}
	return pairs, singles
}
