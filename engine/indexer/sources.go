package indexer

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/snapseek/snapseek/pkg/logger"
)

var supportedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
}

// IndexDirectory walks root, ingesting every supported image file. The
// directory layout is treated as catalog structure: the first path segment
// under root becomes the subcategory hint. Unreadable files are counted as
// failed and do not abort the walk.
func (ix *Indexer) IndexDirectory(ctx context.Context, root string) (Stats, error) {
	log := logger.FromContext(ix.withLogFields(ctx))
	entries := make([]Entry, 0)
	failed := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if !supportedExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			log.Warn("skipping unreadable file", "path", path, "error", readErr)
			failed++
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		entries = append(entries, Entry{
			Data:        data,
			Filename:    filepath.Base(path),
			Category:    ix.cfg.Category,
			Subcategory: firstSegment(rel),
			RelPath:     filepath.ToSlash(rel),
		})
		return nil
	})
	if err != nil {
		return Stats{Failed: failed}, fmt.Errorf("indexer: walk %s: %w", root, err)
	}
	stats, err := ix.IndexBatch(ctx, entries)
	stats.Failed += failed
	return stats, err
}

func firstSegment(rel string) string {
	rel = filepath.ToSlash(rel)
	if idx := strings.IndexByte(rel, '/'); idx > 0 {
		return rel[:idx]
	}
	return ""
}

// imageSize reports "WxH" for decodable images and "" otherwise.
func imageSize(data []byte) string {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%dx%d", cfg.Width, cfg.Height)
}
