package extract

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/SecurityWorks/ente/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const takeout = `{
  "title": "IMG_0001.jpg",
  "description": "Grandma's birthday",
  "creationTime": {"timestamp": "1600000500", "formatted": "..."},
  "photoTakenTime": {"timestamp": "1600000000", "formatted": "..."},
  "modificationTime": {"timestamp": "1600000900"},
  "geoData": {"latitude": 0.0, "longitude": 0.0, "altitude": 0.0},
  "geoDataExif": {"latitude": 48.8584, "longitude": 2.2945, "altitude": 0.0}
}`

func TestParseSidecar(t *testing.T) {
	s, err := ParseSidecar([]byte(takeout))
	require.NoError(t, err)

	require.NotNil(t, s.CreationTime)
	assert.EqualValues(t, 1600000000*1_000_000, *s.CreationTime)
	require.NotNil(t, s.ModificationTime)
	assert.EqualValues(t, 1600000900*1_000_000, *s.ModificationTime)
	require.NotNil(t, s.Location)
	assert.InDelta(t, 48.8584, s.Location.Latitude, 1e-9)
	assert.Equal(t, "Grandma's birthday", s.Description)

	fallback, err := ParseSidecar([]byte(`{"creationTime": {"timestamp": "42"}}`))
	require.NoError(t, err)
	assert.EqualValues(t, 42_000_000, *fallback.CreationTime)
	assert.Nil(t, fallback.Location)

	_, err = ParseSidecar([]byte(`{`))
	require.Error(t, err)
}

func TestSidecarIndex_Lookup(t *testing.T) {
	x := NewSidecarIndex()
	plain := &Sidecar{Description: "plain"}
	numbered := &Sidecar{Description: "numbered"}
	clipped := &Sidecar{Description: "clipped"}

	x.Add(1, "Takeout/IMG_0001.jpg.json", plain)
	x.Add(1, "IMG_0002.jpg(1).json", numbered)
	long := "a_really_long_file_name_that_google_truncates_in_json.jpg"
	x.Add(1, long[:46]+".json", clipped)

	assert.Same(t, plain, x.Lookup(1, "IMG_0001.jpg"))
	assert.Same(t, plain, x.Lookup(1, "IMG_0001-edited.jpg"))
	assert.Same(t, numbered, x.Lookup(1, "IMG_0002(1).jpg"))
	assert.Same(t, clipped, x.Lookup(1, long))
	assert.Nil(t, x.Lookup(2, "IMG_0001.jpg"), "collections are separate")
	assert.Equal(t, 3, x.Len())
}

func TestTimeFromFilename(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		want time.Time
		ok   bool
	}{
		{"PXL_20200715_200713876.jpg", time.Date(2020, 7, 15, 20, 7, 13, 0, time.UTC), true},
		{"IMG_20190101_123456.jpg", time.Date(2019, 1, 1, 12, 34, 56, 0, time.UTC), true},
		{"Screenshot_20181227-152914.png", time.Date(2018, 12, 27, 15, 29, 14, 0, time.UTC), true},
		{"signal-2019-10-08-121040.jpg", time.Date(2019, 10, 8, 12, 10, 40, 0, time.UTC), true},
		{"2019-10-08 12.10.40.jpg", time.Date(2019, 10, 8, 12, 10, 40, 0, time.UTC), true},
		{"IMG-20171218-WA0028.jpg", time.Date(2017, 12, 18, 0, 0, 0, 0, time.UTC), true},
		{"IMG_20191399_123456.jpg", time.Time{}, false},
		{"IMG_20990101_000000.jpg", time.Time{}, false},
		{"holiday.jpg", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := TimeFromFilename(tt.name, time.UTC, now)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.want.Equal(got), "got %v", got)
			}
		})
	}
}

func TestMerge_Precedence(t *testing.T) {
	lastModified := time.Date(2022, 5, 5, 5, 5, 5, 0, time.UTC)
	exifDate, err := models.ParseMetadataDate("2021-03-04T10:11:12.000", "+01:00", nil)
	require.NoError(t, err)
	duration := 2.2
	parsed := &ParsedMetadata{
		Width: 4032, Height: 3024,
		CreationDate: &exifDate,
		Location:     &models.Location{Latitude: 1, Longitude: 2},
		Duration:     &duration,
	}
	sidecar, err := ParseSidecar([]byte(takeout))
	require.NoError(t, err)

	t.Run("sidecar wins", func(t *testing.T) {
		m := Merge(Input{Title: "IMG_0001.jpg", FileType: models.FileTypeImage, LastModified: lastModified, Parsed: parsed, Sidecar: sidecar})
		assert.Equal(t, *sidecar.CreationTime, m.Metadata.CreationTime)
		assert.Equal(t, *sidecar.ModificationTime, m.Metadata.ModificationTime)
		assert.InDelta(t, 48.8584, *m.Metadata.Latitude, 1e-9)
		assert.EqualValues(t, 3, *m.Metadata.Duration)
		assert.Equal(t, "Grandma's birthday", m.PublicMagic[models.KeyCaption])
		assert.Equal(t, "2021-03-04T10:11:12.000", m.PublicMagic[models.KeyDateTime])
		assert.Equal(t, "+01:00", m.PublicMagic[models.KeyOffsetTime])
		assert.Equal(t, 4032, m.PublicMagic[models.KeyWidth])
	})

	t.Run("embedded metadata next", func(t *testing.T) {
		m := Merge(Input{Title: "IMG_0001.jpg", FileType: models.FileTypeImage, LastModified: lastModified, Parsed: parsed})
		assert.Equal(t, exifDate.Timestamp, m.Metadata.CreationTime)
		assert.Equal(t, lastModified.UnixMicro(), m.Metadata.ModificationTime)
		assert.InDelta(t, 1.0, *m.Metadata.Latitude, 1e-9)
		assert.NotContains(t, m.PublicMagic, models.KeyCaption)
	})

	t.Run("file name then modification time", func(t *testing.T) {
		m := Merge(Input{Title: "IMG_20190101_123456.jpg", LastModified: lastModified, Location: time.UTC, Now: lastModified})
		assert.Equal(t, time.Date(2019, 1, 1, 12, 34, 56, 0, time.UTC).UnixMicro(), m.Metadata.CreationTime)

		m = Merge(Input{Title: "holiday.jpg", LastModified: lastModified})
		assert.Equal(t, lastModified.UnixMicro(), m.Metadata.CreationTime)
		assert.Nil(t, m.Metadata.Latitude)
		assert.Empty(t, m.PublicMagic)
	})
}

func TestDimensionsExtractor(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 30, 20))))

	ex := DimensionsExtractor{}
	pm, err := ex.Extract(context.Background(), &models.BufferItem{FileName: "a.png", Data: buf.Bytes()}, models.FileTypeImage)
	require.NoError(t, err)
	assert.Equal(t, 30, pm.Width)
	assert.Equal(t, 20, pm.Height)

	pm, err = ex.Extract(context.Background(), &models.BufferItem{FileName: "a.heic", Data: []byte("ftypheic")}, models.FileTypeImage)
	require.NoError(t, err)
	assert.Zero(t, pm.Width)

	pm, err = ex.Extract(context.Background(), &models.BufferItem{FileName: "a.mp4"}, models.FileTypeVideo)
	require.NoError(t, err)
	assert.Zero(t, pm.Width)
}
