package models

import (
	"path/filepath"
	"time"
)

// UploadItem is a closed union over the shapes an asset can arrive in:
// *BufferItem, *PathItem, *ZipEntryItem and *LivePhotoItem. Consumers type
// switch on the concrete variant.
type UploadItem interface {
	// Name is the file name used as the display title.
	Name() string
	uploadItem()
}

// BufferItem is an asset already held in memory.
type BufferItem struct {
	FileName     string
	Data         []byte
	LastModified time.Time
}

// PathItem is a file on the local filesystem.
type PathItem struct {
	Path string
}

// ZipEntryItem is a file inside a zip archive on disk.
type ZipEntryItem struct {
	ArchivePath string
	EntryName   string
}

// LivePhotoItem pairs a still image with its motion video. Both components
// are plain (non live photo) items.
type LivePhotoItem struct {
	Image UploadItem
	Video UploadItem
}

func (b *BufferItem) Name() string   { return b.FileName }
func (p *PathItem) Name() string     { return filepath.Base(p.Path) }
func (z *ZipEntryItem) Name() string { return filepath.Base(z.EntryName) }

// Name of a live photo is the name of its image component.
func (l *LivePhotoItem) Name() string { return l.Image.Name() }

func (*BufferItem) uploadItem()    {}
func (*PathItem) uploadItem()      {}
func (*ZipEntryItem) uploadItem()  {}
func (*LivePhotoItem) uploadItem() {}

// Dir returns the directory context of an item, used to keep live photo
// pairing within one folder. Buffers have no directory.
func Dir(item UploadItem) string {
	switch it := item.(type) {
	case *PathItem:
		return filepath.Dir(it.Path)
	case *ZipEntryItem:
		return it.ArchivePath + "!" + filepath.Dir(it.EntryName)
	case *LivePhotoItem:
		return Dir(it.Image)
	default:
		return ""
	}
}
