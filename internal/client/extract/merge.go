package extract

import (
	"math"
	"time"

	"github.com/SecurityWorks/ente/internal/client/models"
)

// Input collects the sources Merge chooses from. Parsed and Sidecar may be
// nil.
type Input struct {
	Title        string
	FileType     models.FileType
	LastModified time.Time
	Parsed       *ParsedMetadata
	Sidecar      *Sidecar
	// Location resolves file-name dates. Nil means time.Local.
	Location *time.Location
	Now      time.Time
}

// Merged is the immutable metadata of a new file plus the initial values of
// its public tier.
type Merged struct {
	Metadata    models.Metadata
	PublicMagic map[string]any
}

// Merge applies the precedence rules: sidecar first, then embedded
// metadata, then a date in the file name, then the modification time.
func Merge(in Input) Merged {
	md := models.Metadata{
		FileType:         in.FileType,
		Title:            in.Title,
		ModificationTime: in.LastModified.UnixMicro(),
	}
	pub := map[string]any{}

	p := in.Parsed
	if p == nil {
		p = &ParsedMetadata{}
	}

	switch {
	case in.Sidecar != nil && in.Sidecar.CreationTime != nil:
		md.CreationTime = *in.Sidecar.CreationTime
	case p.CreationDate != nil && p.CreationDate.Timestamp > 0:
		md.CreationTime = p.CreationDate.Timestamp
	default:
		now := in.Now
		if now.IsZero() {
			now = time.Now()
		}
		if t, ok := TimeFromFilename(in.Title, in.Location, now); ok {
			md.CreationTime = t.UnixMicro()
		} else {
			md.CreationTime = in.LastModified.UnixMicro()
		}
	}

	if in.Sidecar != nil && in.Sidecar.ModificationTime != nil {
		md.ModificationTime = *in.Sidecar.ModificationTime
	}

	loc := p.Location
	if in.Sidecar != nil && in.Sidecar.Location != nil {
		loc = in.Sidecar.Location
	}
	if loc != nil {
		lat, lng := loc.Latitude, loc.Longitude
		md.Latitude, md.Longitude = &lat, &lng
	}

	if p.Duration != nil && *p.Duration > 0 {
		d := int64(math.Ceil(*p.Duration))
		md.Duration = &d
	}

	if p.Width > 0 && p.Height > 0 {
		pub[models.KeyWidth] = p.Width
		pub[models.KeyHeight] = p.Height
	}
	if p.CreationDate != nil && p.CreationDate.DateTime != "" {
		pub[models.KeyDateTime] = p.CreationDate.DateTime
		if p.CreationDate.OffsetTime != "" {
			pub[models.KeyOffsetTime] = p.CreationDate.OffsetTime
		}
	}
	if in.Sidecar != nil && in.Sidecar.Description != "" {
		pub[models.KeyCaption] = in.Sidecar.Description
	}

	return Merged{Metadata: md, PublicMagic: pub}
}
