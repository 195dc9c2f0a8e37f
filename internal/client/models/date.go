package models

import (
	"fmt"
	"strings"
	"time"
)

// MetadataDateLayout is the local, offset-free date format of the public
// dateTime key.
const MetadataDateLayout = "2006-01-02T15:04:05.000"

// ParsedMetadataDate carries a local date/time, an optional UTC offset and
// a derived UTC timestamp in epoch microseconds. DateTime is canonical.
// Without an offset the Timestamp is only a best-effort anchor.
type ParsedMetadataDate struct {
	DateTime   string
	OffsetTime string
	Timestamp  int64
}

// NewParsedMetadataDate renders t. When withOffset is false the offset of t
// is treated as unknown and OffsetTime stays empty.
func NewParsedMetadataDate(t time.Time, withOffset bool) ParsedMetadataDate {
	d := ParsedMetadataDate{
		DateTime:  t.Format(MetadataDateLayout),
		Timestamp: t.UnixMicro(),
	}
	if withOffset {
		d.OffsetTime = FormatOffset(t)
	}
	return d
}

// ParseMetadataDate parses a local date/time and optional offset. A missing
// offset is resolved in loc, or time.Local when loc is nil.
func ParseMetadataDate(dateTime, offsetTime string, loc *time.Location) (ParsedMetadataDate, error) {
	if loc == nil {
		loc = time.Local
	}

	if offsetTime != "" {
		off, err := ParseOffset(offsetTime)
		if err != nil {
			return ParsedMetadataDate{}, err
		}
		loc = time.FixedZone("", off)
	}

	t, err := time.ParseInLocation(MetadataDateLayout, dateTime, loc)
	if err != nil {
		return ParsedMetadataDate{}, fmt.Errorf("parse date %q: %w", dateTime, err)
	}

	return ParsedMetadataDate{
		DateTime:   t.Format(MetadataDateLayout),
		OffsetTime: offsetTime,
		Timestamp:  t.UnixMicro(),
	}, nil
}

// FormatOffset renders the zone offset of t as "Z" or "±HH:mm".
func FormatOffset(t time.Time) string {
	_, off := t.Zone()
	if off == 0 {
		return "Z"
	}
	sign := '+'
	if off < 0 {
		sign = '-'
		off = -off
	}
	return fmt.Sprintf("%c%02d:%02d", sign, off/3600, (off%3600)/60)
}

// ParseOffset returns the offset in seconds of "Z" or "±HH:mm".
func ParseOffset(s string) (int, error) {
	if s == "Z" {
		return 0, nil
	}
	if len(s) != 6 || (s[0] != '+' && s[0] != '-') || s[3] != ':' {
		return 0, fmt.Errorf("invalid offset %q", s)
	}
	t, err := time.Parse("15:04", s[1:])
	if err != nil {
		return 0, fmt.Errorf("invalid offset %q", s)
	}
	off := t.Hour()*3600 + t.Minute()*60
	if strings.HasPrefix(s, "-") {
		off = -off
	}
	return off, nil
}
