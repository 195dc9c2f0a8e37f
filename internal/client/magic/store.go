// Package magic implements the interactive update path of the two mutable
// metadata tiers. Updates are written to the backend as whole-tier replaces
// guarded by the tier version, then cached locally as provisional values
// until a reconciliation sync brings the authoritative ones.
package magic

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/SecurityWorks/ente/internal/client/models"
	"github.com/SecurityWorks/ente/internal/common"
	"github.com/SecurityWorks/ente/internal/cryptox"
	"github.com/SecurityWorks/ente/internal/logging"
)

// Remote submits tier replaces. It must return common.ErrVersionConflict
// when the backend holds a different version.
type Remote interface {
	UpdateMagicMetadata(ctx context.Context, tier models.MagicTier, entries []models.UpdateMagicMetadataEntry) error
}

// Cache keeps the decrypted tiers known locally.
type Cache interface {
	// GetMagic returns nil, nil when nothing is cached.
	GetMagic(ctx context.Context, fileID int64, tier models.MagicTier) (*models.MagicMetadata, error)
	PutMagic(ctx context.Context, fileID int64, tier models.MagicTier, m *models.MagicMetadata) error
}

var ErrMissingFileKey = errors.New("file key not available")

type Store struct {
	remote Remote
	cache  Cache
	log    logging.Logger

	// Updates of one store are serialized so two writers never submit the
	// same base version.
	mu sync.Mutex
}

func NewStore(remote Remote, cache Cache, log logging.Logger) *Store {
	return &Store{remote: remote, cache: cache, log: log.With("module", "magic")}
}

func (s *Store) UpdatePrivate(ctx context.Context, file *models.File, updates map[string]any) (*models.MagicMetadata, error) {
	return s.update(ctx, file, models.TierPrivate, updates)
}

func (s *Store) UpdatePublic(ctx context.Context, file *models.File, updates map[string]any) (*models.MagicMetadata, error) {
	return s.update(ctx, file, models.TierPublic, updates)
}

// Current returns the tier as known locally: the cached value if any,
// otherwise the one carried by file, otherwise an empty tier at version 0.
func (s *Store) Current(ctx context.Context, file *models.File, tier models.MagicTier) (*models.MagicMetadata, error) {
	cached, err := s.cache.GetMagic(ctx, file.ID, tier)
	if err != nil {
		return nil, fmt.Errorf("read cached %s tier: %w", tier, err)
	}
	if cached != nil {
		return cached, nil
	}

	if m := tierOf(file, tier); m != nil {
		return m.Clone(), nil
	}
	return &models.MagicMetadata{Data: map[string]any{}}, nil
}

func (s *Store) update(ctx context.Context, file *models.File, tier models.MagicTier, updates map[string]any) (*models.MagicMetadata, error) {
	if len(file.Key) == 0 {
		return nil, ErrMissingFileKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.Current(ctx, file, tier)
	if err != nil {
		return nil, err
	}

	merged := Merge(current.Data, updates)

	envelope, err := Seal(merged, current.Version, file.Key)
	if err != nil {
		return nil, fmt.Errorf("seal %s tier: %w", tier, err)
	}

	entry := models.UpdateMagicMetadataEntry{ID: file.ID, MagicMetadata: *envelope}
	if err := s.remote.UpdateMagicMetadata(ctx, tier, []models.UpdateMagicMetadataEntry{entry}); err != nil {
		if errors.Is(err, common.ErrVersionConflict) {
			s.log.Warn(ctx, "magic metadata version conflict", "file_id", file.ID, "tier", tier.String(), "version", current.Version)
		}
		return nil, fmt.Errorf("update %s tier of file %d: %w", tier, file.ID, err)
	}

	provisional := &models.MagicMetadata{
		Version:     current.Version + 1,
		Data:        merged,
		Provisional: true,
	}
	if err := s.cache.PutMagic(ctx, file.ID, tier, provisional); err != nil {
		return nil, fmt.Errorf("cache %s tier: %w", tier, err)
	}
	setTier(file, tier, provisional.Clone())

	s.log.Debug(ctx, "magic metadata updated", "file_id", file.ID, "tier", tier.String(), "version", provisional.Version)
	return provisional, nil
}

// Reconcile installs authoritative tiers fetched from the backend. Whatever
// is cached, provisional or not, is replaced as a whole.
func (s *Store) Reconcile(ctx context.Context, files []*models.File) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range files {
		for _, tier := range []models.MagicTier{models.TierPrivate, models.TierPublic} {
			m := tierOf(f, tier).Clone()
			if m == nil {
				m = &models.MagicMetadata{Data: map[string]any{}}
			}
			m.Provisional = false
			if err := s.cache.PutMagic(ctx, f.ID, tier, m); err != nil {
				return fmt.Errorf("reconcile file %d: %w", f.ID, err)
			}
		}
	}
	return nil
}

// Merge shallow-merges updates over current. Updates win on collisions and
// nil values remove the key.
func Merge(current, updates map[string]any) map[string]any {
	out := make(map[string]any, len(current)+len(updates))
	for k, v := range current {
		out[k] = v
	}
	for k, v := range updates {
		out[k] = v
	}
	for k, v := range out {
		if v == nil {
			delete(out, k)
		}
	}
	return out
}

// Seal encrypts data into an envelope carrying version and the key count.
func Seal(data map[string]any, version int64, key []byte) (*models.MagicMetadataEnvelope, error) {
	enc, err := cryptox.EncryptJSON(data, key)
	if err != nil {
		return nil, err
	}
	return &models.MagicMetadataEnvelope{
		Version: version,
		Count:   len(data),
		Data:    enc.Data,
		Header:  enc.Header,
	}, nil
}

// Open decrypts an envelope.
func Open(env *models.MagicMetadataEnvelope, key []byte) (*models.MagicMetadata, error) {
	if env == nil || env.Data == "" {
		return nil, nil
	}
	data := map[string]any{}
	if err := cryptox.DecryptJSON(env.Data, env.Header, key, &data); err != nil {
		return nil, err
	}
	return &models.MagicMetadata{Version: env.Version, Data: data}, nil
}

func tierOf(f *models.File, tier models.MagicTier) *models.MagicMetadata {
	if tier == models.TierPublic {
		return f.PublicMagic
	}
	return f.PrivateMagic
}

func setTier(f *models.File, tier models.MagicTier, m *models.MagicMetadata) {
	if tier == models.TierPublic {
		f.PublicMagic = m
	} else {
		f.PrivateMagic = m
	}
}

func (s *Store) SetVisibility(ctx context.Context, file *models.File, v models.Visibility) (*models.MagicMetadata, error) {
	return s.UpdatePrivate(ctx, file, map[string]any{models.KeyVisibility: int(v)})
}

// SetCaption stores caption; an empty caption removes the key.
func (s *Store) SetCaption(ctx context.Context, file *models.File, caption string) (*models.MagicMetadata, error) {
	return s.UpdatePublic(ctx, file, map[string]any{models.KeyCaption: nilIfEmpty(caption)})
}

// SetEditedName overrides the display title; an empty name restores the
// original one.
func (s *Store) SetEditedName(ctx context.Context, file *models.File, name string) (*models.MagicMetadata, error) {
	return s.UpdatePublic(ctx, file, map[string]any{models.KeyEditedName: nilIfEmpty(name)})
}

// SetEditedDate overrides the creation time. The local date and offset are
// rewritten along with it so all three stay consistent.
func (s *Store) SetEditedDate(ctx context.Context, file *models.File, t time.Time) (*models.MagicMetadata, error) {
	d := models.NewParsedMetadataDate(t, true)
	return s.UpdatePublic(ctx, file, map[string]any{
		models.KeyEditedTime: d.Timestamp,
		models.KeyDateTime:   d.DateTime,
		models.KeyOffsetTime: d.OffsetTime,
	})
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
