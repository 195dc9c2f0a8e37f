package transport

import (
	"math/rand/v2"
	"sync"
)

// ProgressFunc receives the percentage of one asset.
type ProgressFunc func(percent int)

// Progress scales upload progress of one asset into [0, ceiling], keeping
// ceiling..100 for finalization. The ceiling is drawn per asset from
// [95, 99]. A nil *Progress ignores all calls.
type Progress struct {
	mu      sync.Mutex
	fn      ProgressFunc
	ceiling int
	last    int
}

func NewProgress(fn ProgressFunc) *Progress {
	return &Progress{fn: fn, ceiling: 95 + rand.IntN(5), last: -1}
}

// Ceiling is the highest percentage reported before Done.
func (p *Progress) Ceiling() int {
	if p == nil {
		return 0
	}
	return p.ceiling
}

// Update reports done out of total units. Reports never go backwards.
func (p *Progress) Update(done, total int) {
	if p == nil || total <= 0 {
		return
	}
	if done > total {
		done = total
	}
	p.emit(p.ceiling * done / total)
}

// Done reports 100.
func (p *Progress) Done() {
	if p == nil {
		return
	}
	p.emit(100)
}

func (p *Progress) emit(percent int) {
	p.mu.Lock()
	if percent <= p.last {
		p.mu.Unlock()
		return
	}
	p.last = percent
	p.mu.Unlock()

	if p.fn != nil {
		p.fn(percent)
	}
}
