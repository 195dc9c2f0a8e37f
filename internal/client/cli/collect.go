package cli

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/SecurityWorks/ente/internal/client/extract"
	"github.com/SecurityWorks/ente/internal/client/models"
	"github.com/SecurityWorks/ente/internal/client/upload"
	"github.com/klauspost/compress/zip"
)

// maxSidecarSize bounds the JSON files read into the sidecar index.
const maxSidecarSize = 1 << 20

// collector turns command line paths into upload jobs. Directories are
// walked, zip archives contribute their entries and Takeout JSON files
// feed the sidecar index instead of being uploaded.
type collector struct {
	app          *App
	collectionID int64
	jobs         []upload.Job
	sidecars     *extract.SidecarIndex
}

func newCollector(app *App, collectionID int64) *collector {
	return &collector{app: app, collectionID: collectionID, sidecars: extract.NewSidecarIndex()}
}

func (c *collector) add(ctx context.Context, p string) error {
	info, err := os.Stat(p)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return c.addFile(ctx, p)
	}

	return filepath.WalkDir(p, func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if hidden(d.Name()) && name != p {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		return c.addFile(ctx, name)
	})
}

func (c *collector) addFile(ctx context.Context, name string) error {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".zip":
		return c.addArchive(ctx, name)
	case ".json":
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		defer f.Close()
		c.addSidecar(ctx, filepath.Base(name), f)
		return nil
	}
	c.jobs = append(c.jobs, upload.Job{Item: &models.PathItem{Path: name}, CollectionID: c.collectionID})
	return nil
}

func (c *collector) addArchive(ctx context.Context, name string) error {
	zr, err := zip.OpenReader(name)
	if err != nil {
		return fmt.Errorf("open archive %s: %w", name, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.FileInfo().IsDir() || hidden(path.Base(f.Name)) {
			continue
		}
		if strings.EqualFold(path.Ext(f.Name), ".json") {
			rc, err := f.Open()
			if err != nil {
				return fmt.Errorf("open %s in %s: %w", f.Name, name, err)
			}
			c.addSidecar(ctx, path.Base(f.Name), rc)
			rc.Close()
			continue
		}
		c.jobs = append(c.jobs, upload.Job{
			Item:         &models.ZipEntryItem{ArchivePath: name, EntryName: f.Name},
			CollectionID: c.collectionID,
		})
	}
	return nil
}

// addSidecar indexes r when it parses as Takeout metadata. Other JSON
// files are ignored.
func (c *collector) addSidecar(ctx context.Context, name string, r io.Reader) {
	data, err := io.ReadAll(io.LimitReader(r, maxSidecarSize))
	if err != nil {
		c.app.log.Warn(ctx, "skipping unreadable json", "name", name, "error", err)
		return
	}
	s, err := extract.ParseSidecar(data)
	if err != nil {
		c.app.log.Debug(ctx, "not a takeout sidecar", "name", name, "error", err)
		return
	}
	c.sidecars.Add(c.collectionID, name, s)
}

// sortedJobs returns the jobs in name order, which keeps output stable.
func (c *collector) sortedJobs() []upload.Job {
	sort.SliceStable(c.jobs, func(i, j int) bool {
		return jobKey(c.jobs[i]) < jobKey(c.jobs[j])
	})
	return c.jobs
}

func jobKey(j upload.Job) string {
	return models.Dir(j.Item) + "/" + j.Item.Name()
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
