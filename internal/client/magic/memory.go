package magic

import (
	"context"
	"sync"

	"github.com/SecurityWorks/ente/internal/client/models"
)

type memoryKey struct {
	fileID int64
	tier   models.MagicTier
}

// MemoryCache is a Cache kept in process memory.
type MemoryCache struct {
	mu sync.RWMutex
	m  map[memoryKey]*models.MagicMetadata
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{m: make(map[memoryKey]*models.MagicMetadata)}
}

func (c *MemoryCache) GetMagic(_ context.Context, fileID int64, tier models.MagicTier) (*models.MagicMetadata, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.m[memoryKey{fileID, tier}].Clone(), nil
}

func (c *MemoryCache) PutMagic(_ context.Context, fileID int64, tier models.MagicTier, m *models.MagicMetadata) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[memoryKey{fileID, tier}] = m.Clone()
	return nil
}
