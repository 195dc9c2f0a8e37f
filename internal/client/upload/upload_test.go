package upload

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SecurityWorks/ente/internal/client/client"
	"github.com/SecurityWorks/ente/internal/client/livephoto"
	"github.com/SecurityWorks/ente/internal/client/models"
	"github.com/SecurityWorks/ente/internal/client/reader"
	"github.com/SecurityWorks/ente/internal/client/repositories/files"
	"github.com/SecurityWorks/ente/internal/client/transport"
	"github.com/SecurityWorks/ente/internal/common"
	"github.com/SecurityWorks/ente/internal/cryptox"
	"github.com/SecurityWorks/ente/internal/logging"
	"github.com/SecurityWorks/ente/internal/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/*************
 * Fakes
 *************/

// objectStore mimics pre-signed object storage.
type objectStore struct {
	*httptest.Server

	mu        sync.Mutex
	objects   map[string][]byte
	completed []string
	noETag    bool
}

func newObjectStore(t *testing.T) *objectStore {
	s := &objectStore{objects: map[string][]byte{}}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		switch r.Method {
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			s.objects[strings.TrimPrefix(r.URL.Path, "/obj/")] = body
			if !s.noETag {
				w.Header().Set("ETag", fmt.Sprintf("%q", r.URL.Path))
			}
		case http.MethodPost:
			s.completed = append(s.completed, r.URL.Path)
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *objectStore) object(key string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.objects[key]
}

func (s *objectStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

type fakeURLs struct {
	base string

	mu   sync.Mutex
	next int
}

func (f *fakeURLs) GetUploadURLs(ctx context.Context, count int) ([]models.UploadURL, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.UploadURL, 0, count)
	for i := 0; i < count; i++ {
		f.next++
		key := fmt.Sprintf("k%d", f.next)
		out = append(out, models.UploadURL{ObjectKey: key, URL: f.base + "/obj/" + key})
	}
	return out, nil
}

func (f *fakeURLs) GetMultipartUploadURLs(ctx context.Context, partCount int) (*models.MultipartUploadURLs, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	key := fmt.Sprintf("mp%d", f.next)
	set := &models.MultipartUploadURLs{ObjectKey: key, CompleteURL: f.base + "/complete/" + key}
	for i := 1; i <= partCount; i++ {
		set.PartURLs = append(set.PartURLs, fmt.Sprintf("%s/obj/%s.part%d", f.base, key, i))
	}
	return set, nil
}

type fakeAPI struct {
	mu sync.Mutex

	// inputs captured
	creates []*rpc.CreateFileRequest
	lastAdd *rpc.AddToCollectionRequest

	// outputs preset
	createErr error

	nextID  int64
	records map[int64]*rpc.FileRecord
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{records: map[int64]*rpc.FileRecord{}}
}

func (f *fakeAPI) CreateFile(ctx context.Context, req *rpc.CreateFileRequest) (*rpc.FileRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, req)
	if f.createErr != nil {
		return nil, f.createErr
	}

	f.nextID++
	rec := &rpc.FileRecord{
		ID:                 f.nextID,
		OwnerID:            "u1",
		CollectionID:       req.CollectionID,
		EncryptedKey:       req.EncryptedKey,
		KeyDecryptionNonce: req.KeyDecryptionNonce,
		File:               req.File,
		Thumbnail:          req.Thumbnail,
		Metadata:           req.Metadata,
		PubMagicMetadata:   req.PubMagicMetadata,
		UpdationTime:       time.Now().UnixMicro(),
	}
	f.records[rec.ID] = rec
	return rec, nil
}

func (f *fakeAPI) AddToCollection(ctx context.Context, req *rpc.AddToCollectionRequest) (*rpc.FileRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastAdd = req

	src, ok := f.records[req.FileID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	rec := *src
	rec.CollectionID = req.CollectionID
	rec.EncryptedKey = req.EncryptedKey
	rec.KeyDecryptionNonce = req.KeyDecryptionNonce
	return &rec, nil
}

func (f *fakeAPI) createCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.creates)
}

/*************
 * Helpers
 *************/

type env struct {
	store *objectStore
	api   *fakeAPI
	index *files.SQLiteRepository
	keys  *cryptox.KeyRing
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return &env{
		store: newObjectStore(t),
		api:   newFakeAPI(),
		index: files.NewSQLiteRepository(db),
		keys:  cryptox.NewKeyRing(cryptox.GenerateKey()),
	}
}

func (e *env) pipeline(opts []transport.Option, popts ...Option) *Pipeline {
	urls := &fakeURLs{base: e.store.URL}
	log := logging.Discard()
	retrier := transport.NewRetrier([]time.Duration{time.Millisecond}, log)
	uploader := transport.NewUploader(transport.NewURLPool(urls, 4), urls, retrier, log, opts...)
	return NewPipeline(e.api, uploader, retrier, e.index, e.keys, log, popts...)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// pngDeclaring returns a 1x1 PNG whose header claims w x h pixels.
func pngDeclaring(t *testing.T, w, h uint32) []byte {
	t.Helper()
	data := pngBytes(t, 1, 1)
	// signature, IHDR length and type, then width and height
	binary.BigEndian.PutUint32(data[16:], w)
	binary.BigEndian.PutUint32(data[20:], h)
	binary.BigEndian.PutUint32(data[29:], crc32.ChecksumIEEE(data[12:29]))
	return data
}

var modified = time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC)

/*************
 * File type and thumbnails
 *************/

func TestDetectFileType(t *testing.T) {
	ftyp := func(brand string) []byte {
		return append([]byte{0, 0, 0, 0x18, 'f', 't', 'y', 'p'}, []byte(brand)...)
	}

	tests := []struct {
		name    string
		file    string
		head    []byte
		want    models.FileType
		wantErr error
	}{
		{name: "extension image", file: "IMG_1.JPG", want: models.FileTypeImage},
		{name: "extension video", file: "clip.mov", want: models.FileTypeVideo},
		{name: "sniffed png", file: "blob", head: pngBytes(t, 2, 2), want: models.FileTypeImage},
		{name: "heic brand", file: "blob", head: ftyp("heic"), want: models.FileTypeImage},
		{name: "mp4 brand", file: "blob", head: ftyp("isom"), want: models.FileTypeVideo},
		{name: "text", file: "notes.txt", head: []byte("hello world"), wantErr: common.ErrUnsupportedFileType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFileType(tt.file, tt.head)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFit(t *testing.T) {
	tests := []struct {
		w, h, limit int
		wantW       int
		wantH       int
	}{
		{100, 50, 720, 100, 50},
		{1440, 720, 720, 720, 360},
		{720, 1440, 720, 360, 720},
		{4000, 1, 720, 720, 1},
	}
	for _, tt := range tests {
		w, h := fit(tt.w, tt.h, tt.limit)
		assert.Equal(t, tt.wantW, w, "%dx%d", tt.w, tt.h)
		assert.Equal(t, tt.wantH, h, "%dx%d", tt.w, tt.h)
	}
}

func TestImageThumbnailer(t *testing.T) {
	th := &ImageThumbnailer{MaxDimension: 40, Quality: 80}

	t.Run("downscales", func(t *testing.T) {
		item := &models.BufferItem{FileName: "a.png", Data: pngBytes(t, 80, 20)}
		data, err := th.Generate(context.Background(), item, models.FileTypeImage)
		require.NoError(t, err)

		cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, 40, cfg.Width)
		assert.Equal(t, 10, cfg.Height)
	})

	t.Run("video", func(t *testing.T) {
		item := &models.BufferItem{FileName: "a.mp4", Data: []byte("movie")}
		_, err := th.Generate(context.Background(), item, models.FileTypeVideo)
		require.ErrorIs(t, err, ErrNoThumbnail)
	})

	t.Run("undecodable", func(t *testing.T) {
		item := &models.BufferItem{FileName: "a.heic", Data: []byte("not really")}
		_, err := th.Generate(context.Background(), item, models.FileTypeImage)
		require.ErrorIs(t, err, ErrNoThumbnail)
	})

	t.Run("too many pixels", func(t *testing.T) {
		data := pngDeclaring(t, 30000, 30000)
		cfg, err := png.DecodeConfig(bytes.NewReader(data))
		require.NoError(t, err)
		require.Equal(t, 30000, cfg.Width)

		item := &models.BufferItem{FileName: "huge.png", Data: data}
		_, err = th.Generate(context.Background(), item, models.FileTypeImage)
		require.ErrorIs(t, err, ErrNoThumbnail)
	})
}

func TestStaticThumbnailIsJPEG(t *testing.T) {
	_, err := jpeg.DecodeConfig(bytes.NewReader(StaticThumbnail()))
	require.NoError(t, err)
}

/*************
 * Pipeline
 *************/

func TestPipelineUploadsBuffer(t *testing.T) {
	e := newEnv(t)
	p := e.pipeline(nil, WithUploaderName("alice"))

	data := pngBytes(t, 30, 20)
	item := &models.BufferItem{FileName: "IMG_20230102_030405.png", Data: data, LastModified: modified}

	var seen []int
	res := p.Upload(context.Background(), Job{Item: item, CollectionID: 1}, func(pct int) { seen = append(seen, pct) })
	require.NoError(t, res.Err)
	assert.Equal(t, StatusUploaded, res.Status)
	require.NotNil(t, res.File)
	assert.Equal(t, 100, seen[len(seen)-1])

	f := res.File
	assert.Equal(t, "IMG_20230102_030405.png", f.Metadata.Title)
	assert.Equal(t, models.FileTypeImage, f.Metadata.FileType)
	assert.NotEmpty(t, f.Metadata.Hash)
	assert.False(t, f.Metadata.HasStaticThumbnail)
	assert.Equal(t, modified.UnixMicro(), f.Metadata.ModificationTime)

	require.NotNil(t, f.PublicMagic)
	assert.Equal(t, int64(0), f.PublicMagic.Version)
	w, _ := f.PublicMagic.GetInt(models.KeyWidth)
	h, _ := f.PublicMagic.GetInt(models.KeyHeight)
	assert.Equal(t, int64(30), w)
	assert.Equal(t, int64(20), h)
	name, _ := f.PublicMagic.GetString(models.KeyUploaderName)
	assert.Equal(t, "alice", name)

	// the stored object decrypts back to the original bytes
	ct := e.store.object(f.File.ObjectKey)
	require.NotEmpty(t, ct)
	plain, err := cryptox.DecryptStream(ct, f.File.DecryptionHeader, f.Key, reader.ChunkSize)
	require.NoError(t, err)
	assert.Equal(t, data, plain)

	thumb, err := cryptox.DecryptBlob(e.store.object(f.Thumbnail.ObjectKey), f.Thumbnail.DecryptionHeader, f.Key)
	require.NoError(t, err)
	_, err = jpeg.DecodeConfig(bytes.NewReader(thumb))
	require.NoError(t, err)

	// cached for later dedup
	cached, err := e.index.Get(context.Background(), f.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, f.Metadata, cached.Metadata)
	pub, err := e.index.GetMagic(context.Background(), f.ID, models.TierPublic)
	require.NoError(t, err)
	require.NotNil(t, pub)
	assert.False(t, pub.Provisional)
}

func TestPipelineStaticThumbnail(t *testing.T) {
	e := newEnv(t)
	p := e.pipeline(nil)

	item := &models.BufferItem{FileName: "clip.mp4", Data: []byte("not a real movie"), LastModified: modified}
	res := p.Upload(context.Background(), Job{Item: item, CollectionID: 1}, nil)
	require.NoError(t, res.Err)
	assert.Equal(t, StatusUploadedWithStaticThumbnail, res.Status)
	assert.True(t, res.File.Metadata.HasStaticThumbnail)
	assert.Equal(t, models.FileTypeVideo, res.File.Metadata.FileType)
}

// brokenIndex is a cache whose writes fail.
type brokenIndex struct {
	*files.SQLiteRepository
}

func (brokenIndex) Upsert(ctx context.Context, f *models.File) error {
	return errors.New("disk full")
}

func TestPipelineCacheFailureKeepsUpload(t *testing.T) {
	e := newEnv(t)
	urls := &fakeURLs{base: e.store.URL}
	log := logging.Discard()
	retrier := transport.NewRetrier([]time.Duration{time.Millisecond}, log)
	uploader := transport.NewUploader(transport.NewURLPool(urls, 4), urls, retrier, log)
	p := NewPipeline(e.api, uploader, retrier, brokenIndex{e.index}, e.keys, log)

	item := &models.BufferItem{FileName: "clip.mp4", Data: []byte("movie bytes"), LastModified: modified}
	res := p.Upload(context.Background(), Job{Item: item, CollectionID: 1}, nil)
	require.NoError(t, res.Err)
	assert.Equal(t, StatusUploadedWithStaticThumbnail, res.Status)
	require.NotNil(t, res.File)
	assert.Len(t, e.api.creates, 1)
}

func TestPipelineStreamsFilesFromDisk(t *testing.T) {
	e := newEnv(t)
	p := e.pipeline([]transport.Option{transport.WithChunksPerPart(1)})

	path := filepath.Join(t.TempDir(), "IMG_1.jpg")
	data := []byte("jpeg-ish bytes on disk")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	res := p.Upload(context.Background(), Job{Item: &models.PathItem{Path: path}, CollectionID: 1}, nil)
	require.NoError(t, res.Err)
	assert.Equal(t, StatusUploadedWithStaticThumbnail, res.Status)

	// one part was enough to trigger a multipart upload
	e.store.mu.Lock()
	completed := append([]string(nil), e.store.completed...)
	e.store.mu.Unlock()
	require.Len(t, completed, 1)
	assert.Equal(t, "/complete/"+res.File.File.ObjectKey, completed[0])

	part := e.store.object(res.File.File.ObjectKey + ".part1")
	plain, err := cryptox.DecryptStream(part, res.File.File.DecryptionHeader, res.File.Key, reader.ChunkSize)
	require.NoError(t, err)
	assert.Equal(t, data, plain)
}

func TestPipelineDedup(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	p := e.pipeline(nil)

	data := pngBytes(t, 4, 4)
	first := p.Upload(ctx, Job{Item: &models.BufferItem{FileName: "a.png", Data: data}, CollectionID: 1}, nil)
	require.Equal(t, StatusUploaded, first.Status)

	t.Run("same collection", func(t *testing.T) {
		res := p.Upload(ctx, Job{Item: &models.BufferItem{FileName: "a.png", Data: data}, CollectionID: 1}, nil)
		require.NoError(t, res.Err)
		assert.Equal(t, StatusAlreadyUploaded, res.Status)
		assert.Equal(t, first.File.ID, res.File.ID)
		assert.Equal(t, 1, e.api.createCount())
	})

	t.Run("other collection", func(t *testing.T) {
		res := p.Upload(ctx, Job{Item: &models.BufferItem{FileName: "a.png", Data: data}, CollectionID: 2}, nil)
		require.NoError(t, res.Err)
		assert.Equal(t, StatusAddedSymlink, res.Status)
		assert.Equal(t, 1, e.api.createCount())

		require.NotNil(t, e.api.lastAdd)
		assert.Equal(t, first.File.ID, e.api.lastAdd.FileID)
		assert.Equal(t, int64(2), e.api.lastAdd.CollectionID)

		key, err := e.keys.UnwrapFileKey(2, e.api.lastAdd.EncryptedKey, e.api.lastAdd.KeyDecryptionNonce)
		require.NoError(t, err)
		assert.Equal(t, first.File.Key, key)
		assert.Equal(t, int64(2), res.File.CollectionID)
	})

	t.Run("different title is not a duplicate", func(t *testing.T) {
		res := p.Upload(ctx, Job{Item: &models.BufferItem{FileName: "b.png", Data: data}, CollectionID: 1}, nil)
		require.NoError(t, res.Err)
		assert.Equal(t, StatusUploaded, res.Status)
		assert.Equal(t, 2, e.api.createCount())
	})
}

func TestPipelineFailures(t *testing.T) {
	pic := pngBytes(t, 2, 2)

	tests := []struct {
		name    string
		item    models.UploadItem
		setup   func(e *env)
		opts    []Option
		cancel  bool
		want    Status
		wantErr error
	}{
		{
			name:    "unsupported",
			item:    &models.BufferItem{FileName: "notes.txt", Data: []byte("plain text")},
			want:    StatusUnsupported,
			wantErr: common.ErrUnsupportedFileType,
		},
		{
			name:    "too large",
			item:    &models.BufferItem{FileName: "a.png", Data: pic},
			opts:    []Option{WithMaxFileSize(10)},
			want:    StatusTooLarge,
			wantErr: common.ErrFileTooLarge,
		},
		{
			name:    "missing etag",
			item:    &models.BufferItem{FileName: "a.png", Data: pic},
			setup:   func(e *env) { e.store.noETag = true },
			want:    StatusBlocked,
			wantErr: common.ErrMissingETag,
		},
		{
			name:    "quota",
			item:    &models.BufferItem{FileName: "a.png", Data: pic},
			setup:   func(e *env) { e.api.createErr = common.ErrStorageQuotaExceeded },
			want:    StatusLargerThanAvailableStorage,
			wantErr: common.ErrStorageQuotaExceeded,
		},
		{
			name:  "generic",
			item:  &models.BufferItem{FileName: "a.png", Data: pic},
			setup: func(e *env) { e.api.createErr = errors.New("boom") },
			want:  StatusFailed,
		},
		{
			name:    "cancelled",
			item:    &models.BufferItem{FileName: "a.png", Data: pic},
			cancel:  true,
			want:    StatusCancelled,
			wantErr: common.ErrUploadCancelled,
		},
		{
			name:    "missing file",
			item:    &models.PathItem{Path: filepath.Join(t.TempDir(), "gone.jpg")},
			want:    StatusFailed,
			wantErr: os.ErrNotExist,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			if tt.setup != nil {
				tt.setup(e)
			}
			p := e.pipeline(nil, tt.opts...)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if tt.cancel {
				cancel()
			}

			res := p.Upload(ctx, Job{Item: tt.item, CollectionID: 1}, nil)
			assert.Equal(t, tt.want, res.Status)
			require.Error(t, res.Err)
			if tt.wantErr != nil {
				require.ErrorIs(t, res.Err, tt.wantErr)
			}
			assert.Nil(t, res.File)
			assert.False(t, res.Status.Succeeded())

			if tt.cancel {
				assert.Zero(t, e.store.count())
			}
		})
	}
}

/*************
 * Manager
 *************/

func TestManagerPairsLivePhotosAndContinuesPastFailures(t *testing.T) {
	e := newEnv(t)
	m := NewManager(e.pipeline(nil), 2, livephoto.DefaultPolicy(), logging.Discard())

	img := pngBytes(t, 6, 6)
	jobs := []Job{
		{Item: &models.BufferItem{FileName: "IMG_1.jpg", Data: img, LastModified: modified}, CollectionID: 1},
		{Item: &models.BufferItem{FileName: "notes.txt", Data: []byte("text")}, CollectionID: 1},
		{Item: &models.BufferItem{FileName: "IMG_1.mov", Data: []byte("motion"), LastModified: modified}, CollectionID: 1},
		{Item: &models.BufferItem{FileName: "other.png", Data: pngBytes(t, 3, 3)}, CollectionID: 1},
	}

	var mu sync.Mutex
	progress := map[string]int{}
	results := m.Run(context.Background(), jobs, func(job Job, pct int) {
		mu.Lock()
		progress[job.Item.Name()] = pct
		mu.Unlock()
	})
	require.Len(t, results, 3)

	byName := map[string]Result{}
	for _, r := range results {
		byName[r.Job.Item.Name()] = r
	}

	live := byName["IMG_1.jpg"]
	require.NoError(t, live.Err)
	assert.Equal(t, StatusUploaded, live.Status)
	assert.IsType(t, &models.LivePhotoItem{}, live.Job.Item)
	assert.Equal(t, models.FileTypeLivePhoto, live.File.Metadata.FileType)
	assert.NotEmpty(t, live.File.Metadata.ImageHash)
	assert.NotEmpty(t, live.File.Metadata.VideoHash)
	assert.Empty(t, live.File.Metadata.Hash)

	// the stored payload is the zipped pair
	ct := e.store.object(live.File.File.ObjectKey)
	plain, err := cryptox.DecryptStream(ct, live.File.File.DecryptionHeader, live.File.Key, reader.ChunkSize)
	require.NoError(t, err)
	decoded, err := livephoto.Decode(plain)
	require.NoError(t, err)
	assert.Equal(t, img, decoded.Image)
	assert.Equal(t, []byte("motion"), decoded.Video)

	assert.Equal(t, StatusUnsupported, byName["notes.txt"].Status)
	assert.Equal(t, StatusUploaded, byName["other.png"].Status)

	assert.Equal(t, 100, progress["IMG_1.jpg"])
	assert.Equal(t, 100, progress["other.png"])
}

func TestManagerPairKeepsFoldersApart(t *testing.T) {
	e := newEnv(t)
	m := NewManager(e.pipeline(nil), 1, livephoto.DefaultPolicy(), logging.Discard())

	dir := t.TempDir()
	a, b := filepath.Join(dir, "a"), filepath.Join(dir, "b")
	require.NoError(t, os.MkdirAll(a, 0o700))
	require.NoError(t, os.MkdirAll(b, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(a, "IMG_2.jpg"), []byte("img"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(b, "IMG_2.mov"), []byte("vid"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(b, "IMG_3.heic"), []byte("img"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(b, "IMG_3_HVEC.mov"), []byte("vid"), 0o600))

	jobs := []Job{
		{Item: &models.PathItem{Path: filepath.Join(a, "IMG_2.jpg")}, CollectionID: 1},
		{Item: &models.PathItem{Path: filepath.Join(b, "IMG_2.mov")}, CollectionID: 1},
		{Item: &models.PathItem{Path: filepath.Join(b, "IMG_3.heic")}, CollectionID: 1},
		{Item: &models.PathItem{Path: filepath.Join(b, "IMG_3_HVEC.mov")}, CollectionID: 1},
	}

	out := m.Pair(context.Background(), jobs)
	require.Len(t, out, 3)

	lp, ok := out[0].Item.(*models.LivePhotoItem)
	require.True(t, ok)
	assert.Equal(t, "IMG_3.heic", lp.Image.Name())
	assert.Equal(t, "IMG_3_HVEC.mov", lp.Video.Name())
}
