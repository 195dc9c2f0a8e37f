package upload

import (
	"context"
	"math"
	"runtime"

	"github.com/SecurityWorks/ente/internal/client/livephoto"
	"github.com/SecurityWorks/ente/internal/client/models"
	"github.com/SecurityWorks/ente/internal/logging"
	"golang.org/x/sync/errgroup"
)

// BatchProgressFunc receives the percentage of one job of a batch.
type BatchProgressFunc func(job Job, percent int)

// Manager uploads a batch: it pairs live photos first, then runs the
// resulting jobs on a bounded number of workers. A failed job never stops
// the others.
type Manager struct {
	pipeline    *Pipeline
	concurrency int
	policy      livephoto.Policy
	log         logging.Logger
}

func NewManager(p *Pipeline, concurrency int, policy livephoto.Policy, log logging.Logger) *Manager {
	if concurrency <= 0 {
		concurrency = min(4, runtime.NumCPU())
	}
	return &Manager{
		pipeline:    p,
		concurrency: concurrency,
		policy:      policy,
		log:         log.With("module", "upload-manager"),
	}
}

// Run uploads jobs and returns one Result per queued job, live photo pairs
// counting as one.
func (m *Manager) Run(ctx context.Context, jobs []Job, onProgress BatchProgressFunc) []Result {
	queue := m.Pair(ctx, jobs)
	results := make([]Result, len(queue))

	m.log.Info(ctx, "upload batch started", "jobs", len(jobs), "queued", len(queue), "workers", m.concurrency)

	var g errgroup.Group
	g.SetLimit(m.concurrency)
	for i, job := range queue {
		g.Go(func() error {
			results[i] = m.pipeline.Upload(ctx, job, func(percent int) {
				if onProgress != nil {
					onProgress(job, percent)
				}
			})
			return nil
		})
	}
	_ = g.Wait()

	counts := map[Status]int{}
	for _, r := range results {
		counts[r.Status]++
	}
	m.log.Info(ctx, "upload batch finished", "results", counts)
	return results
}

type queued struct {
	job       Job
	candidate livephoto.Candidate
}

// Pair replaces every image/video pair that forms a live photo with a single
// live photo job. Jobs that already are live photos pass through.
func (m *Manager) Pair(ctx context.Context, jobs []Job) []Job {
	items := make([]queued, 0, len(jobs))
	for _, j := range jobs {
		items = append(items, queued{job: j, candidate: m.candidate(ctx, j)})
	}

	pairs, singles := livephoto.Cluster(items, func(q queued) livephoto.Candidate { return q.candidate }, m.policy)

	out := make([]Job, 0, len(pairs)+len(singles))
	for _, pair := range pairs {
		img, vid := pair[0].job, pair[1].job
		m.log.Debug(ctx, "paired live photo", "image", img.Item.Name(), "video", vid.Item.Name())
		out = append(out, Job{
			Item:         &models.LivePhotoItem{Image: img.Item, Video: vid.Item},
			CollectionID: img.CollectionID,
		})
	}
	for _, s := range singles {
		out = append(out, s.job)
	}
	return out
}

// candidate describes j to the pairer. Anything that cannot be inspected is
// reported as FileTypeOther so it never pairs.
func (m *Manager) candidate(ctx context.Context, j Job) livephoto.Candidate {
	c := livephoto.Candidate{
		CollectionID: j.CollectionID,
		Dir:          models.Dir(j.Item),
		Name:         j.Item.Name(),
		FileType:     models.FileTypeOther,
		Size:         math.MaxInt64,
	}
	if _, ok := j.Item.(*models.LivePhotoItem); ok {
		return c
	}

	ft, err := m.pipeline.detectType(j.Item)
	if err != nil {
		return c
	}
	size, _, err := stat(j.Item)
	if err != nil {
		return c
	}
	c.FileType, c.Size = ft, size

	if m.pipeline.sidecars != nil {
		if s := m.pipeline.sidecars.Lookup(j.CollectionID, c.Name); s != nil {
			c.SidecarCreationTime = s.CreationTime
		}
	}
	if parsed, err := m.pipeline.extractor.Extract(ctx, j.Item, ft); err == nil && parsed != nil && parsed.CreationDate != nil {
		ts := parsed.CreationDate.Timestamp
		c.ExtractedCreationTime = &ts
	}
	return c
}
