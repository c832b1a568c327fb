// Package engine produces pages of normalized media records from the image
// and video stores.
//
// A page is filled from the image store first. When the image store comes up
// short, the video store is queried at the same global offset and tops the
// page up. Recency order is exact within a store and only approximate across
// stores; the two timelines are never re-sorted against each other.
package engine

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/mantonx/gallery/internal/logger"
	galleryerrors "github.com/mantonx/gallery/internal/modules/gallerymodule/errors"
	"github.com/mantonx/gallery/internal/modules/gallerymodule/types"
)

// OffsetPolicy decides where the video cursor starts
type OffsetPolicy int

const (
	// SharedOffset applies page*pageSize to the video store unchanged
	SharedOffset OffsetPolicy = iota
	// StoreRelativeOffset subtracts the image store's row count first, so
	// videos continue where the images ran out
	StoreRelativeOffset
)

// ParseOffsetPolicy maps a config value to a policy
func ParseOffsetPolicy(s string) OffsetPolicy {
	if s == "store_relative" {
		return StoreRelativeOffset
	}
	return SharedOffset
}

// Observer receives load statistics
type Observer interface {
	ObserveRecords(store string, n int)
	ObserveSkipped(store string, n int)
	ObserveFailure(kind string)
	ObserveLatency(d time.Duration)
}

// Engine is the media query engine
type Engine struct {
	gate     types.AccessGate
	images   types.MediaStoreAccess
	videos   types.MediaStoreAccess
	prober   types.Prober
	policy   OffsetPolicy
	observer Observer
	logger   hclog.Logger
}

// Option configures an Engine
type Option func(*Engine)

// WithProber sets the locator probe. A nil prober disables probing.
func WithProber(p types.Prober) Option {
	return func(e *Engine) { e.prober = p }
}

// WithOffsetPolicy sets the video offset policy
func WithOffsetPolicy(p OffsetPolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithObserver attaches a statistics observer
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithLogger sets the logger
func WithLogger(l hclog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine over the two stores
func New(gate types.AccessGate, images, videos types.MediaStoreAccess, opts ...Option) *Engine {
	e := &Engine{
		gate:   gate,
		images: images,
		videos: videos,
		prober: FileProber{},
		policy: SharedOffset,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logger.OrNull(e.logger).Named("engine")
	return e
}

// determiner is implemented by gates that can report an undecided platform
type determiner interface {
	Determined() bool
}

// LoadPage returns page number page of size pageSize.
//
// A page past the end of the library is an empty success, except page 0,
// which fails with NoMediaFound.
func (e *Engine) LoadPage(ctx context.Context, page, pageSize int) (*types.Page, error) {
	start := time.Now()
	p, err := e.loadPage(ctx, page, pageSize)

	if e.observer != nil {
		e.observer.ObserveLatency(time.Since(start))
		if err == nil {
			e.observeRecords(p)
		} else {
			kind := galleryerrors.KindOf(err).String()
			if kind == "" {
				kind = "cancelled"
			}
			e.observer.ObserveFailure(kind)
		}
	}
	return p, err
}

func (e *Engine) loadPage(ctx context.Context, page, pageSize int) (*types.Page, error) {
	const op = "load_page"

	if page < 0 {
		return nil, galleryerrors.InvalidPage(op, page, pageSize)
	}
	if pageSize <= 0 {
		return nil, galleryerrors.InvalidPageSize(op, page, pageSize)
	}
	if err := e.checkAccess(op); err != nil {
		return nil, err
	}

	// an offset beyond int range is necessarily past the end
	if page > 0 && page > math.MaxInt/pageSize {
		return types.NewPage(page, pageSize, nil), nil
	}
	offset := page * pageSize

	records, err := e.collect(ctx, op, e.images, offset, pageSize)
	if err != nil {
		return nil, err
	}
	imagesFound := len(records)

	if imagesFound < pageSize {
		videoOffset, err := e.videoOffset(ctx, op, offset)
		if err != nil {
			return nil, err
		}
		videos, err := e.collect(ctx, op, e.videos, videoOffset, pageSize-imagesFound)
		if err != nil {
			return nil, err
		}
		records = append(records, videos...)
	}

	if len(records) == 0 && page == 0 {
		return nil, galleryerrors.NoMediaFound(op).WithPage(page, pageSize)
	}

	e.logger.Debug("page loaded", "page", page, "page_size", pageSize,
		"images", imagesFound, "videos", len(records)-imagesFound)
	return types.NewPage(page, pageSize, records), nil
}

// TotalCount returns the number of raw rows across both stores
func (e *Engine) TotalCount(ctx context.Context) (int, error) {
	const op = "total_count"

	if err := e.checkAccess(op); err != nil {
		return 0, err
	}

	total := 0
	for _, store := range []types.MediaStoreAccess{e.images, e.videos} {
		n, err := store.CountAll(ctx)
		if err != nil {
			return 0, e.storeError(ctx, op, store, err)
		}
		total += n
	}
	return total, nil
}

func (e *Engine) checkAccess(op string) error {
	if d, ok := e.gate.(determiner); ok && !d.Determined() {
		return galleryerrors.NotInitialized(op, nil)
	}
	if !e.gate.CheckAccess().CanQuery() {
		return galleryerrors.PermissionDenied(op)
	}
	return nil
}

func (e *Engine) videoOffset(ctx context.Context, op string, offset int) (int, error) {
	if e.policy != StoreRelativeOffset || offset == 0 {
		return offset, nil
	}

	n, err := e.images.CountAll(ctx)
	if err != nil {
		return 0, e.storeError(ctx, op, e.images, err)
	}
	if offset <= n {
		return 0, nil
	}
	return offset - n, nil
}

// collect reads up to limit valid rows from store starting at raw row offset.
// Invalid rows are skipped and do not count toward limit.
func (e *Engine) collect(ctx context.Context, op string, store types.MediaStoreAccess, offset, limit int) ([]types.MediaRecord, error) {
	kind := store.Kind()

	cur, err := store.QueryPage(ctx, offset)
	if err != nil {
		return nil, e.storeError(ctx, op, store, err)
	}
	defer func() {
		if cerr := cur.Close(); cerr != nil {
			e.logger.Warn("failed to close cursor", "store", kind, "error", cerr)
		}
	}()

	records := make([]types.MediaRecord, 0, limit)
	skipped := 0

	for len(records) < limit && cur.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, err := cur.Row()
		if err != nil {
			skipped++
			continue
		}

		rec, ok := e.normalize(ctx, kind, row)
		if !ok {
			skipped++
			continue
		}
		records = append(records, rec)
	}

	if err := cur.Err(); err != nil {
		return nil, e.storeError(ctx, op, store, err)
	}

	if skipped > 0 {
		e.logger.Debug("skipped invalid rows", "store", kind, "offset", offset, "skipped", skipped)
	}
	if e.observer != nil {
		e.observer.ObserveSkipped(string(kind), skipped)
	}
	return records, nil
}

// observeRecords counts the records of a successfully loaded page by kind
func (e *Engine) observeRecords(p *types.Page) {
	counts := make(map[types.MediaKind]int, 2)
	for _, r := range p.Records {
		counts[r.Kind]++
	}
	for kind, n := range counts {
		e.observer.ObserveRecords(string(kind), n)
	}
}

// normalize validates a raw row and converts it to a record
func (e *Engine) normalize(ctx context.Context, kind types.MediaKind, row types.RawRow) (types.MediaRecord, bool) {
	if row.ID == "" || row.DisplayName == nil || row.MimeType == nil {
		return types.MediaRecord{}, false
	}
	if !kind.Matches(*row.MimeType) {
		return types.MediaRecord{}, false
	}
	if e.prober != nil {
		if err := e.prober.Probe(ctx, row.Locator); err != nil {
			return types.MediaRecord{}, false
		}
	}

	return types.MediaRecord{
		ID:          row.ID,
		Locator:     row.Locator,
		Kind:        kind,
		AddedAt:     row.AddedAt,
		DisplayName: *row.DisplayName,
		MimeType:    *row.MimeType,
	}, true
}

// storeError classifies a store fault
func (e *Engine) storeError(ctx context.Context, op string, store types.MediaStoreAccess, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return ctxErr
	}
	if errors.Is(err, types.ErrStoreNotReady) {
		return galleryerrors.NotInitialized(op, err).WithStore(string(store.Kind()))
	}

	e.logger.Error("store access failed", "op", op, "store", store.Kind(), "error", err)
	return galleryerrors.StoreAccessFailure(op, err).WithStore(string(store.Kind()))
}
