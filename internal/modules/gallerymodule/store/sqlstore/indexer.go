package sqlstore

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mantonx/gallery/internal/database"
	"github.com/mantonx/gallery/internal/logger"
	"github.com/mantonx/gallery/internal/modules/gallerymodule/types"
)

const upsertBatchSize = 200

// IndexResult summarizes one indexing run
type IndexResult struct {
	Scanned int `json:"scanned"`
	Images  int `json:"images"`
	Videos  int `json:"videos"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Indexer walks library roots and records every image and video it finds.
// A file's added_at is fixed the first time it is indexed; later runs only
// refresh its name, mime type and size.
type Indexer struct {
	db      *gorm.DB
	workers int
	ignore  []string
	logger  hclog.Logger
}

// NewIndexer creates an indexer. workers bounds concurrent content sniffing.
func NewIndexer(db *gorm.DB, workers int, ignore []string, l hclog.Logger) *Indexer {
	if workers <= 0 {
		workers = 4
	}
	return &Indexer{
		db:      db,
		workers: workers,
		ignore:  ignore,
		logger:  logger.OrNull(l).Named("indexer"),
	}
}

type detected struct {
	path    string
	kind    types.MediaKind
	mime    string
	size    int64
	modTime int64
}

// Index scans roots and upserts what it finds
func (ix *Indexer) Index(ctx context.Context, roots ...string) (*IndexResult, error) {
	result := &IndexResult{}

	var paths []string
	for _, root := range roots {
		found, err := ix.walk(ctx, root)
		if err != nil {
			return nil, err
		}
		paths = append(paths, found...)
	}
	result.Scanned = len(paths)

	var (
		mu    sync.Mutex
		found []detected
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.workers)
	for _, path := range paths {
		path := path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			d, ok, err := ix.detect(path)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				result.Failed++
				ix.logger.Debug("failed to sniff file", "path", path, "error", err)
			case !ok:
				result.Skipped++
			default:
				found = append(found, d)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(found, func(i, j int) bool { return found[i].path < found[j].path })

	var images []database.ImageRow
	var videos []database.VideoRow
	for _, d := range found {
		row := toRow(d)
		if d.kind == types.MediaKindImage {
			images = append(images, database.ImageRow{MediaRow: row})
		} else {
			videos = append(videos, database.VideoRow{MediaRow: row})
		}
	}
	result.Images = len(images)
	result.Videos = len(videos)

	err := ix.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(images) > 0 {
			if err := upsert(tx, &images); err != nil {
				return fmt.Errorf("failed to index images: %w", err)
			}
		}
		if len(videos) > 0 {
			if err := upsert(tx, &videos); err != nil {
				return fmt.Errorf("failed to index videos: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ix.logger.Info("library indexed", "roots", len(roots), "scanned", result.Scanned,
		"images", result.Images, "videos", result.Videos, "skipped", result.Skipped, "failed", result.Failed)
	return result, nil
}

func (ix *Indexer) walk(ctx context.Context, root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return err
			}
			ix.logger.Warn("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if ix.ignored(d.Name()) {
			if d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return paths, nil
}

func (ix *Indexer) ignored(name string) bool {
	for _, pattern := range ix.ignore {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// detect sniffs the file's content; ok is false for anything that is neither
// an image nor a video
func (ix *Indexer) detect(path string) (detected, bool, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return detected{}, false, err
	}

	mime := mt.String()
	var kind types.MediaKind
	switch {
	case types.MediaKindImage.Matches(mime):
		kind = types.MediaKindImage
	case types.MediaKindVideo.Matches(mime):
		kind = types.MediaKindVideo
	default:
		return detected{}, false, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return detected{}, false, err
	}
	return detected{
		path:    path,
		kind:    kind,
		mime:    mime,
		size:    info.Size(),
		modTime: info.ModTime().Unix(),
	}, true, nil
}

func toRow(d detected) database.MediaRow {
	name := filepath.Base(d.path)
	mime := d.mime
	return database.MediaRow{
		ID:          uuid.NewString(),
		Path:        d.path,
		DisplayName: &name,
		MimeType:    &mime,
		Size:        d.size,
		AddedAt:     d.modTime,
	}
}

// upsert inserts new rows; rows whose path is already indexed keep their id
// and added_at
func upsert(tx *gorm.DB, rows interface{}) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "path"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_name", "mime_type", "size", "updated_at"}),
	}).CreateInBatches(rows, upsertBatchSize).Error
}
