// Package feed turns one-shot page loads into an incrementally growing list
// that a UI can extend on scroll.
package feed

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/singleflight"

	"github.com/mantonx/gallery/internal/logger"
	galleryerrors "github.com/mantonx/gallery/internal/modules/gallerymodule/errors"
	"github.com/mantonx/gallery/internal/modules/gallerymodule/types"
)

var (
	// ErrFeedClosed is returned by operations on a feed whose scope has ended
	ErrFeedClosed = errors.New("feed closed")
	// ErrLoadSuperseded is returned to callers waiting on a load that a
	// Refresh cancelled
	ErrLoadSuperseded = errors.New("load superseded by refresh")
)

// loadKey coalesces loads within one generation. A Refresh starts a new
// generation, so a load registered before it is never shared after it.
func loadKey(gen uint64) string {
	return "load:" + strconv.FormatUint(gen, 10)
}

// Feed accumulates pages for the lifetime of its scope
type Feed struct {
	loader   types.PageLoader
	pageSize int
	logger   hclog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	group  singleflight.Group

	mu         sync.Mutex
	pages      []*types.Page
	nextKey    *int
	prevKey    *int
	status     types.FeedStatus
	lastErr    error
	gen        uint64
	loadCancel context.CancelFunc
	started    bool
	closed     bool
	subs       map[*Subscription]struct{}
}

// Option configures a Feed
type Option func(*Feed)

// WithLogger sets the feed logger
func WithLogger(l hclog.Logger) Option {
	return func(f *Feed) { f.logger = l }
}

// NewFeed creates a feed bound to scope. When scope ends the feed closes.
func NewFeed(scope context.Context, loader types.PageLoader, pageSize int, opts ...Option) *Feed {
	if pageSize <= 0 {
		pageSize = types.DefaultPageSize
	}

	ctx, cancel := context.WithCancel(scope)
	f := &Feed{
		loader:   loader,
		pageSize: pageSize,
		ctx:      ctx,
		cancel:   cancel,
		nextKey:  intPtr(0),
		status:   types.FeedStatusLoading,
		subs:     make(map[*Subscription]struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = logger.OrNull(f.logger).Named("feed")

	go func() {
		<-ctx.Done()
		f.Close()
	}()
	return f
}

// PageSize returns the feed's page size
func (f *Feed) PageSize() int {
	return f.pageSize
}

// Subscribe registers a listener. The first subscription starts loading
// page 0; later ones receive the current state immediately.
func (f *Feed) Subscribe() *Subscription {
	sub := &Subscription{feed: f, ch: make(chan types.FeedSnapshot, 1)}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		close(sub.ch)
		return sub
	}
	f.subs[sub] = struct{}{}
	first := !f.started
	f.started = true
	if !first {
		sub.deliver(f.snapshotLocked())
	}
	f.mu.Unlock()

	if first {
		go func() {
			if err := f.fetch(f.ctx); err != nil {
				f.logger.Debug("initial load failed", "error", err)
			}
		}()
	}
	return sub
}

// LoadMore loads the next page and appends it. It is a no-op once the feed
// is exhausted. Concurrent calls share one load. The load runs under the
// feed's scope; ctx only bounds how long the caller waits for it.
func (f *Feed) LoadMore(ctx context.Context) error {
	return f.fetch(ctx)
}

// Refresh discards every page, cancels any in-flight load and reloads page 0
func (f *Feed) Refresh(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrFeedClosed
	}
	f.gen++
	if f.loadCancel != nil {
		f.loadCancel()
		f.loadCancel = nil
	}
	f.pages = nil
	f.nextKey = intPtr(0)
	f.prevKey = nil
	f.lastErr = nil
	f.started = true
	f.mu.Unlock()

	f.logger.Debug("feed refreshed")
	return f.fetch(ctx)
}

// Snapshot returns the current state
func (f *Feed) Snapshot() types.FeedSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

// Close ends the feed: the in-flight load is cancelled, pages are released
// and every subscription channel is closed. Close is idempotent.
func (f *Feed) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	f.gen++
	if f.loadCancel != nil {
		f.loadCancel()
		f.loadCancel = nil
	}
	f.pages = nil
	for sub := range f.subs {
		close(sub.ch)
		delete(f.subs, sub)
	}
	f.mu.Unlock()

	f.cancel()
	f.logger.Debug("feed closed")
}

func (f *Feed) fetch(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrFeedClosed
	}
	f.started = true
	if f.nextKey == nil {
		f.mu.Unlock()
		return nil
	}
	gen := f.gen
	f.mu.Unlock()

	ch := f.group.DoChan(loadKey(gen), func() (interface{}, error) {
		return nil, f.loadNext(gen)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// loadNext loads nextKey and folds the result into the feed state. A load
// registered before a Refresh or Close never touches the store.
func (f *Feed) loadNext(gen uint64) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrFeedClosed
	}
	if gen != f.gen {
		f.mu.Unlock()
		return ErrLoadSuperseded
	}
	if f.nextKey == nil {
		f.mu.Unlock()
		return nil
	}
	key := *f.nextKey
	ctx, cancel := context.WithCancel(f.ctx)
	f.loadCancel = cancel
	f.status = types.FeedStatusLoading
	f.publishLocked()
	f.mu.Unlock()

	page, err := f.loader.LoadPage(ctx, key, f.pageSize)
	cancel()

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrFeedClosed
	}
	if gen != f.gen {
		return ErrLoadSuperseded
	}
	f.loadCancel = nil

	switch {
	case err == nil:
		f.pages = append(f.pages, page)
		f.nextKey = page.NextKey()
		f.prevKey = page.PrevKey()
		f.status = types.FeedStatusSuccess
		f.lastErr = nil
		f.logger.Debug("page appended", "page", key, "records", page.Len(), "exhausted", f.nextKey == nil)
	case galleryerrors.Is(err, galleryerrors.KindNoMediaFound):
		f.nextKey = nil
		f.status = types.FeedStatusEmpty
		f.lastErr = err
	default:
		// pages and nextKey stay put so LoadMore retries the same key
		f.status = types.FeedStatusError
		f.lastErr = err
		f.logger.Warn("page load failed", "page", key, "kind", galleryerrors.KindOf(err), "error", err)
	}
	f.publishLocked()
	return err
}

func (f *Feed) snapshotLocked() types.FeedSnapshot {
	n := 0
	for _, p := range f.pages {
		n += p.Len()
	}
	records := make([]types.MediaRecord, 0, n)
	for _, p := range f.pages {
		records = append(records, p.Records...)
	}

	return types.FeedSnapshot{
		Status:  f.status,
		Records: records,
		Pages:   len(f.pages),
		NextKey: copyInt(f.nextKey),
		PrevKey: copyInt(f.prevKey),
		Err:     f.lastErr,
	}
}

func (f *Feed) publishLocked() {
	if len(f.subs) == 0 {
		return
	}
	snap := f.snapshotLocked()
	for sub := range f.subs {
		sub.deliver(snap)
	}
}

func (f *Feed) unsubscribe(sub *Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subs[sub]; !ok {
		return
	}
	delete(f.subs, sub)
	close(sub.ch)
}

// Subscription delivers feed state changes. Only the latest undelivered
// snapshot is kept; a slow reader skips intermediate states.
type Subscription struct {
	feed *Feed
	ch   chan types.FeedSnapshot
}

// Updates returns the snapshot channel. It is closed when the subscription
// or the feed is closed.
func (s *Subscription) Updates() <-chan types.FeedSnapshot {
	return s.ch
}

// Close stops delivery to this subscription
func (s *Subscription) Close() {
	s.feed.unsubscribe(s)
}

// deliver replaces any pending snapshot; callers hold the feed lock
func (s *Subscription) deliver(snap types.FeedSnapshot) {
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- snap:
	default:
	}
}

func intPtr(v int) *int {
	return &v
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	return intPtr(*p)
}
