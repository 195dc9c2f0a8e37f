package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/SecurityWorks/ente/internal/client/models"
	"github.com/SecurityWorks/ente/internal/common"
	"golang.org/x/sync/singleflight"
)

// URLSource hands out pre-signed upload targets.
type URLSource interface {
	GetUploadURLs(ctx context.Context, count int) ([]models.UploadURL, error)
	GetMultipartUploadURLs(ctx context.Context, partCount int) (*models.MultipartUploadURLs, error)
}

const (
	// DefaultPoolBatch is how many single PUT URLs one refill asks for.
	DefaultPoolBatch = 50

	// DefaultRefillTimeout bounds one shared refill request.
	DefaultRefillTimeout = 30 * time.Second
)

var errNoURLs = errors.New("backend returned no upload urls")

// URLPool caches single PUT URLs for one upload session. URLs are handed out
// last in, first out. Concurrent callers that find the pool empty share one
// refill request.
type URLPool struct {
	src          URLSource
	batch        int
	fetchTimeout time.Duration

	mu    sync.Mutex
	urls  []models.UploadURL
	seen  map[string]struct{}
	fatal error

	group singleflight.Group
}

func NewURLPool(src URLSource, batch int) *URLPool {
	if batch <= 0 {
		batch = DefaultPoolBatch
	}
	return &URLPool{src: src, batch: batch, fetchTimeout: DefaultRefillTimeout, seen: make(map[string]struct{})}
}

// Len is the number of cached URLs.
func (p *URLPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.urls)
}

// Prefetch makes sure at least n URLs are cached.
func (p *URLPool) Prefetch(ctx context.Context, n int) error {
	for {
		p.mu.Lock()
		have, fatal := len(p.urls), p.fatal
		p.mu.Unlock()
		if fatal != nil {
			return fatal
		}
		if have >= n {
			return nil
		}
		if err := p.refill(ctx, n-have, false); err != nil {
			return err
		}
	}
}

// Get pops a URL, refilling the pool when it is empty. A URL handed out is
// never returned to the pool.
func (p *URLPool) Get(ctx context.Context) (models.UploadURL, error) {
	for {
		p.mu.Lock()
		if p.fatal != nil {
			err := p.fatal
			p.mu.Unlock()
			return models.UploadURL{}, err
		}
		if n := len(p.urls); n > 0 {
			u := p.urls[n-1]
			p.urls = p.urls[:n-1]
			p.mu.Unlock()
			return u, nil
		}
		p.mu.Unlock()

		if err := p.refill(ctx, p.batch, true); err != nil {
			return models.UploadURL{}, err
		}
	}
}

// refill fetches at least one batch. With onlyIfEmpty a caller that lost the
// race against another refill does not fetch again.
func (p *URLPool) refill(ctx context.Context, want int, onlyIfEmpty bool) error {
	if want < p.batch {
		want = p.batch
	}

	// The shared fetch must not die with whichever waiter started it, but it
	// must not outlive its deadline either.
	base := context.WithoutCancel(ctx)
	ch := p.group.DoChan("refill", func() (any, error) {
		if onlyIfEmpty && p.Len() > 0 {
			return nil, nil
		}

		fetchCtx, cancel := context.WithTimeout(base, p.fetchTimeout)
		defer cancel()
		urls, err := p.src.GetUploadURLs(fetchCtx, want)
		if err != nil {
			return nil, fmt.Errorf("refill upload urls: %w", err)
		}
		if len(urls) == 0 {
			return nil, errNoURLs
		}
		return nil, p.add(urls)
	})

	select {
	case <-ctx.Done():
		return fmt.Errorf("refill upload urls: %w", common.ErrUploadCancelled)
	case res := <-ch:
		return res.Err
	}
}

func (p *URLPool) add(urls []models.UploadURL) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, u := range urls {
		for _, k := range []string{"url:" + u.URL, "key:" + u.ObjectKey} {
			if _, dup := p.seen[k]; dup {
				p.fatal = fmt.Errorf("%s: %w", k, common.ErrDuplicateUploadURL)
				p.urls = nil
				return p.fatal
			}
			p.seen[k] = struct{}{}
		}
	}
	p.urls = append(p.urls, urls...)
	return nil
}
