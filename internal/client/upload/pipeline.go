// Package upload drives assets through the whole client pipeline: type and
// size checks, hashing and dedup, metadata extraction, thumbnail, chunked
// encryption, transport and the final file record. Every asset ends in
// exactly one Result; errors never escape the asset boundary.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/SecurityWorks/ente/internal/client/extract"
	"github.com/SecurityWorks/ente/internal/client/hasher"
	"github.com/SecurityWorks/ente/internal/client/livephoto"
	"github.com/SecurityWorks/ente/internal/client/magic"
	"github.com/SecurityWorks/ente/internal/client/models"
	"github.com/SecurityWorks/ente/internal/client/reader"
	"github.com/SecurityWorks/ente/internal/client/records"
	"github.com/SecurityWorks/ente/internal/client/repositories/files"
	"github.com/SecurityWorks/ente/internal/client/transport"
	"github.com/SecurityWorks/ente/internal/common"
	"github.com/SecurityWorks/ente/internal/cryptox"
	"github.com/SecurityWorks/ente/internal/logging"
	"github.com/SecurityWorks/ente/internal/rpc"
)

// API is the part of the backend the pipeline calls after the bytes are
// stored.
type API interface {
	CreateFile(ctx context.Context, req *rpc.CreateFileRequest) (*rpc.FileRecord, error)
	AddToCollection(ctx context.Context, req *rpc.AddToCollectionRequest) (*rpc.FileRecord, error)
}

type Pipeline struct {
	api      API
	uploader *transport.Uploader
	retrier  *transport.Retrier
	index    files.Repository
	keys     *cryptox.KeyRing
	log      logging.Logger

	extractor    extract.Extractor
	sidecars     *extract.SidecarIndex
	thumbnailer  Thumbnailer
	maxFileSize  int64
	uploaderName string
	location     *time.Location
	now          func() time.Time
}

type Option func(*Pipeline)

func WithExtractor(e extract.Extractor) Option {
	return func(p *Pipeline) { p.extractor = e }
}

// WithSidecars makes the pipeline consult Takeout sidecars for metadata.
func WithSidecars(x *extract.SidecarIndex) Option {
	return func(p *Pipeline) { p.sidecars = x }
}

func WithThumbnailer(t Thumbnailer) Option {
	return func(p *Pipeline) { p.thumbnailer = t }
}

// WithMaxFileSize overrides common.MaxFileSize.
func WithMaxFileSize(n int64) Option {
	return func(p *Pipeline) { p.maxFileSize = n }
}

// WithUploaderName records name in the public tier of every new file.
func WithUploaderName(name string) Option {
	return func(p *Pipeline) { p.uploaderName = name }
}

// WithLocation sets the zone used for dates without an offset.
func WithLocation(loc *time.Location) Option {
	return func(p *Pipeline) { p.location = loc }
}

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

func NewPipeline(api API, uploader *transport.Uploader, retrier *transport.Retrier, index files.Repository, keys *cryptox.KeyRing, log logging.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		api:         api,
		uploader:    uploader,
		retrier:     retrier,
		index:       index,
		keys:        keys,
		log:         log.With("module", "upload"),
		extractor:   extract.DimensionsExtractor{},
		thumbnailer: NewImageThumbnailer(),
		maxFileSize: common.MaxFileSize,
		location:    time.Local,
		now:         time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Upload runs one asset to its terminal state.
func (p *Pipeline) Upload(ctx context.Context, job Job, onProgress transport.ProgressFunc) Result {
	res := Result{Job: job}

	file, status, err := p.upload(ctx, job, transport.NewProgress(onProgress))
	if err != nil {
		res.Status, res.Err = classify(ctx, err), err
		if res.Status == StatusFailed {
			p.log.Error(ctx, "upload failed", "file", job.Item.Name(), "error", err)
		} else {
			p.log.Info(ctx, "upload stopped", "file", job.Item.Name(), "result", res.Status, "error", err)
		}
		return res
	}

	res.Status, res.File = status, file
	p.log.Info(ctx, "upload finished", "file", job.Item.Name(), "file_id", file.ID, "result", status)
	return res
}

func (p *Pipeline) upload(ctx context.Context, job Job, progress *transport.Progress) (*models.File, Status, error) {
	if ctx.Err() != nil {
		return nil, "", common.ErrUploadCancelled
	}
	name := job.Item.Name()

	fileType, err := p.detectType(job.Item)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", name, err)
	}

	size, lastModified, err := stat(job.Item)
	if err != nil {
		return nil, "", err
	}
	if size > p.maxFileSize {
		return nil, "", fmt.Errorf("%s is %d bytes: %w", name, size, common.ErrFileTooLarge)
	}

	merged, err := p.metadata(ctx, job, fileType, lastModified)
	if err != nil {
		return nil, "", err
	}
	md := merged.Metadata

	existing, status, err := p.dedup(ctx, job, &md)
	if err != nil {
		return nil, "", err
	}
	if existing != nil {
		progress.Done()
		return existing, status, nil
	}

	thumb, static := p.thumbnail(ctx, job.Item, fileType)
	md.HasStaticThumbnail = static

	fileKey := cryptox.GenerateKey()

	thumbObj, err := p.uploadThumbnail(ctx, thumb, fileKey)
	if err != nil {
		return nil, "", fmt.Errorf("thumbnail: %w", err)
	}
	fileObj, err := p.uploadFile(ctx, job.Item, fileKey, progress)
	if err != nil {
		return nil, "", err
	}

	f, err := p.createFile(ctx, job.CollectionID, fileKey, fileObj, thumbObj, md, merged.PublicMagic)
	if err != nil {
		return nil, "", err
	}

	progress.Done()
	if static {
		return f, StatusUploadedWithStaticThumbnail, nil
	}
	return f, StatusUploaded, nil
}

func (p *Pipeline) detectType(item models.UploadItem) (models.FileType, error) {
	if _, ok := item.(*models.LivePhotoItem); ok {
		return models.FileTypeLivePhoto, nil
	}
	if t, ok := TypeFromExtension(item.Name()); ok {
		return t, nil
	}

	s, err := reader.Open(item)
	if err != nil {
		return 0, err
	}
	defer s.Close()

	head, err := s.Next()
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, err
	}
	return Sniff(head)
}

// stat returns the total size and the modification time of item. A live
// photo reports the sum of its components and the time of its image.
func stat(item models.UploadItem) (int64, time.Time, error) {
	if lp, ok := item.(*models.LivePhotoItem); ok {
		is, it, err := stat(lp.Image)
		if err != nil {
			return 0, time.Time{}, err
		}
		vs, _, err := stat(lp.Video)
		if err != nil {
			return 0, time.Time{}, err
		}
		return is + vs, it, nil
	}

	s, err := reader.Open(item)
	if err != nil {
		return 0, time.Time{}, err
	}
	defer s.Close()
	return s.Size, s.LastModified, nil
}

func (p *Pipeline) metadata(ctx context.Context, job Job, fileType models.FileType, lastModified time.Time) (extract.Merged, error) {
	var hash, imageHash, videoHash string
	var err error

	source, sourceType := job.Item, fileType
	if lp, ok := job.Item.(*models.LivePhotoItem); ok {
		if imageHash, videoHash, err = hasher.HashLivePhoto(ctx, lp); err != nil {
			return extract.Merged{}, err
		}
		source, sourceType = lp.Image, models.FileTypeImage
	} else if hash, err = hasher.HashItem(ctx, job.Item); err != nil {
		return extract.Merged{}, err
	}

	parsed, err := p.extractor.Extract(ctx, source, sourceType)
	if err != nil {
		p.log.Warn(ctx, "metadata extraction failed", "file", job.Item.Name(), "error", err)
		parsed = nil
	}

	var sidecar *extract.Sidecar
	if p.sidecars != nil {
		sidecar = p.sidecars.Lookup(job.CollectionID, job.Item.Name())
	}

	merged := extract.Merge(extract.Input{
		Title:        job.Item.Name(),
		FileType:     fileType,
		LastModified: lastModified,
		Parsed:       parsed,
		Sidecar:      sidecar,
		Location:     p.location,
		Now:          p.now(),
	})
	merged.Metadata.Hash = hash
	merged.Metadata.ImageHash = imageHash
	merged.Metadata.VideoHash = videoHash
	if p.uploaderName != "" {
		merged.PublicMagic[models.KeyUploaderName] = p.uploaderName
	}
	return merged, nil
}

// dedup looks for a cached file with the same content. A match in the target
// collection ends the upload; a match elsewhere is linked into the target
// collection instead of being uploaded again.
func (p *Pipeline) dedup(ctx context.Context, job Job, md *models.Metadata) (*models.File, Status, error) {
	candidates, err := p.index.FindByHash(ctx, md.ContentIdentity())
	if err != nil {
		return nil, "", err
	}

	var other *models.File
	for _, c := range candidates {
		if !hasher.Matches(&c.Metadata, md) {
			continue
		}
		if c.CollectionID == job.CollectionID {
			return c, StatusAlreadyUploaded, nil
		}
		if other == nil {
			other = c
		}
	}
	if other == nil {
		return nil, "", nil
	}

	f, err := p.link(ctx, other, job.CollectionID)
	if err != nil {
		return nil, "", fmt.Errorf("add file %d to collection %d: %w", other.ID, job.CollectionID, err)
	}
	return f, StatusAddedSymlink, nil
}

func (p *Pipeline) link(ctx context.Context, src *models.File, collectionID int64) (*models.File, error) {
	key, err := p.keys.UnwrapFileKey(src.CollectionID, src.EncryptedKey, src.KeyNonce)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	wrapped, nonce, err := p.keys.WrapFileKey(collectionID, key)
	if err != nil {
		return nil, err
	}

	var rec *rpc.FileRecord
	err = p.retrier.Do(ctx, "add to collection", func(ctx context.Context) error {
		var err error
		rec, err = p.api.AddToCollection(ctx, &rpc.AddToCollectionRequest{
			FileID:             src.ID,
			CollectionID:       collectionID,
			EncryptedKey:       wrapped,
			KeyDecryptionNonce: nonce,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	f, err := records.Decrypt(rec, p.keys)
	if err != nil {
		return nil, err
	}
	p.remember(ctx, f)
	return f, nil
}

func (p *Pipeline) thumbnail(ctx context.Context, item models.UploadItem, fileType models.FileType) ([]byte, bool) {
	if lp, ok := item.(*models.LivePhotoItem); ok {
		item, fileType = lp.Image, models.FileTypeImage
	}
	data, err := p.thumbnailer.Generate(ctx, item, fileType)
	if err != nil || len(data) == 0 {
		p.log.Debug(ctx, "using static thumbnail", "file", item.Name(), "error", err)
		return StaticThumbnail(), true
	}
	return data, false
}

func (p *Pipeline) uploadThumbnail(ctx context.Context, thumb, key []byte) (models.ObjectAttributes, error) {
	ct, header, err := cryptox.EncryptBlob(thumb, key)
	if err != nil {
		return models.ObjectAttributes{}, err
	}
	up, err := p.uploader.UploadBytes(ctx, ct, nil)
	if err != nil {
		return models.ObjectAttributes{}, err
	}
	return models.ObjectAttributes{ObjectKey: up.ObjectKey, DecryptionHeader: header, Size: up.Size}, nil
}

// uploadFile encrypts the asset chunk by chunk. Payloads already in memory
// (buffers and live photo archives) go out as one PUT, files on disk are
// streamed and may become multipart uploads.
func (p *Pipeline) uploadFile(ctx context.Context, item models.UploadItem, key []byte, progress *transport.Progress) (models.ObjectAttributes, error) {
	var src *reader.Stream
	inMemory := true

	switch it := item.(type) {
	case *models.LivePhotoItem:
		payload, err := encodeLivePhoto(it)
		if err != nil {
			return models.ObjectAttributes{}, fmt.Errorf("live photo: %w", err)
		}
		src = reader.NewStream(bytes.NewReader(payload), int64(len(payload)), time.Time{})
	default:
		var err error
		if src, err = reader.Open(item); err != nil {
			return models.ObjectAttributes{}, err
		}
		_, isBuffer := item.(*models.BufferItem)
		inMemory = isBuffer
	}
	defer src.Close()

	enc, err := cryptox.NewChunkEncryptor(src, src.ChunkCount, key)
	if err != nil {
		return models.ObjectAttributes{}, err
	}

	var up *transport.Uploaded
	if inMemory {
		var data []byte
		if data, err = drain(ctx, enc); err != nil {
			return models.ObjectAttributes{}, err
		}
		up, err = p.uploader.UploadBytes(ctx, data, progress)
	} else {
		up, err = p.uploader.UploadStream(ctx, enc, progress)
	}
	if err != nil {
		return models.ObjectAttributes{}, err
	}
	return models.ObjectAttributes{ObjectKey: up.ObjectKey, DecryptionHeader: enc.Header(), Size: up.Size}, nil
}

func encodeLivePhoto(lp *models.LivePhotoItem) ([]byte, error) {
	img, err := readItem(lp.Image)
	if err != nil {
		return nil, fmt.Errorf("image: %w", err)
	}
	vid, err := readItem(lp.Video)
	if err != nil {
		return nil, fmt.Errorf("video: %w", err)
	}
	_, modified, err := stat(lp.Image)
	if err != nil {
		return nil, err
	}
	return livephoto.Encode(lp.Image.Name(), img, lp.Video.Name(), vid, modified)
}

func readItem(item models.UploadItem) ([]byte, error) {
	s, err := reader.Open(item)
	if err != nil {
		return nil, err
	}
	return reader.ReadAll(s)
}

// drain concatenates every encrypted chunk of enc.
func drain(ctx context.Context, enc *cryptox.ChunkEncryptor) ([]byte, error) {
	var out []byte
	for {
		if ctx.Err() != nil {
			return nil, common.ErrUploadCancelled
		}
		chunk, err := enc.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
	}
}

func (p *Pipeline) createFile(ctx context.Context, collectionID int64, fileKey []byte, fileObj, thumbObj models.ObjectAttributes, md models.Metadata, pub map[string]any) (*models.File, error) {
	encMD, err := cryptox.EncryptJSON(md, fileKey)
	if err != nil {
		return nil, fmt.Errorf("encrypt metadata: %w", err)
	}
	wrapped, nonce, err := p.keys.WrapFileKey(collectionID, fileKey)
	if err != nil {
		return nil, err
	}

	req := &rpc.CreateFileRequest{
		CollectionID:       collectionID,
		EncryptedKey:       wrapped,
		KeyDecryptionNonce: nonce,
		File:               records.ObjectToRPC(fileObj),
		Thumbnail:          records.ObjectToRPC(thumbObj),
		Metadata:           rpc.MetadataAttributes{EncryptedData: encMD.Data, DecryptionHeader: encMD.Header},
	}
	if len(pub) > 0 {
		env, err := magic.Seal(pub, 0, fileKey)
		if err != nil {
			return nil, fmt.Errorf("encrypt public magic metadata: %w", err)
		}
		req.PubMagicMetadata = &rpc.MagicMetadata{Version: env.Version, Count: env.Count, Data: env.Data, Header: env.Header}
	}

	var rec *rpc.FileRecord
	err = p.retrier.Do(ctx, "create file", func(ctx context.Context) error {
		var err error
		rec, err = p.api.CreateFile(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	f, err := records.Decrypt(rec, p.keys)
	if err != nil {
		return nil, err
	}
	p.remember(ctx, f)
	return f, nil
}

// remember caches f so later uploads of the same content dedup against it.
// The backend already holds f, so a cache failure is logged and the next
// sync repairs it.
func (p *Pipeline) remember(ctx context.Context, f *models.File) {
	if err := p.index.Upsert(ctx, f); err != nil {
		p.log.Warn(ctx, "caching uploaded file failed", "file_id", f.ID, "error", err)
		return
	}
	for tier, m := range map[models.MagicTier]*models.MagicMetadata{
		models.TierPrivate: f.PrivateMagic,
		models.TierPublic:  f.PublicMagic,
	} {
		if m == nil {
			continue
		}
		if err := p.index.PutMagic(ctx, f.ID, tier, m); err != nil {
			p.log.Warn(ctx, "caching magic metadata failed", "file_id", f.ID, "tier", tier, "error", err)
		}
	}
}
