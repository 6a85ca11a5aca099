// Package catalog reads the stored-business catalog page by page under a
// single active filter, and offers client-side search and sort over what has
// been loaded.
package catalog

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/egemenmermer/business-extractor/internal/engine/gateway"
	"github.com/egemenmermer/business-extractor/internal/logging"
	"github.com/egemenmermer/business-extractor/internal/model"
)

const DefaultPageSize = 50

// Snapshot is a copy of the loader state.
type Snapshot struct {
	Items     []model.Business
	Page      int
	HasMore   bool
	Filter    Filter
	Loading   bool
	LastError error
}

type Option func(*Loader)

func WithPageSize(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.size = n
		}
	}
}

func WithLogger(lg *zap.Logger) Option {
	return func(l *Loader) { l.logger = logging.OrNop(lg).Named("catalog") }
}

// Loader is safe for concurrent use. No lock is held across a fetch.
type Loader struct {
	src    Source
	size   int
	logger *zap.Logger

	mu      sync.Mutex
	gen     uint64
	items   []model.Business
	page    int
	hasMore bool
	filter  Filter
	loading bool
	lastErr error
}

func NewLoader(src Source, opts ...Option) *Loader {
	l := &Loader{
		src:    src,
		size:   DefaultPageSize,
		logger: zap.NewNop(),
		filter: NoFilter{},
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *Loader) PageSize() int {
	return l.size
}

func (l *Loader) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Snapshot{
		Items:     slices.Clone(l.items),
		Page:      l.page,
		HasMore:   l.hasMore,
		Filter:    l.filter,
		Loading:   l.loading,
		LastError: l.lastErr,
	}
}

// LoadFirstPage replaces the active filter with f and loads its page 0.
// Any fetch still in flight for the previous filter is discarded when it
// lands. Transient failures are recorded in LastError; only session failures
// are returned.
func (l *Loader) LoadFirstPage(ctx context.Context, f Filter) error {
	if f == nil {
		f = NoFilter{}
	}

	l.mu.Lock()
	l.gen++
	gen := l.gen
	l.filter = f
	l.items = nil
	l.page = 0
	l.hasMore = false
	l.loading = true
	l.lastErr = nil
	l.mu.Unlock()

	l.logger.Debug("load first page", zap.Stringer("filter", f))
	items, last, err := f.fetch(ctx, l.src, 0, l.size)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gen != gen {
		l.logger.Debug("discarding stale page", zap.Stringer("filter", f))
		return nil
	}
	l.loading = false
	if err != nil {
		return l.fail(f, 0, err)
	}
	l.items = items
	l.page = 0
	l.hasMore = !last
	return nil
}

// LoadNextPage appends the next page of the active filter. It reports
// whether a fetch was made: calls while a fetch is in flight, or after the
// last page, are dropped.
func (l *Loader) LoadNextPage(ctx context.Context) (bool, error) {
	l.mu.Lock()
	if l.loading || !l.hasMore {
		l.mu.Unlock()
		return false, nil
	}
	gen := l.gen
	f := l.filter
	next := l.page + 1
	l.loading = true
	l.mu.Unlock()

	items, last, err := f.fetch(ctx, l.src, next, l.size)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gen != gen {
		l.logger.Debug("discarding stale page", zap.Stringer("filter", f), zap.Int("page", next))
		return true, nil
	}
	l.loading = false
	if err != nil {
		return true, l.fail(f, next, err)
	}
	l.items = append(l.items, items...)
	l.page = next
	l.hasMore = !last
	return true, nil
}

// ClearFilters is LoadFirstPage(NoFilter{}).
func (l *Loader) ClearFilters(ctx context.Context) error {
	return l.LoadFirstPage(ctx, NoFilter{})
}

// Reload refetches page 0 of the active filter.
func (l *Loader) Reload(ctx context.Context) error {
	l.mu.Lock()
	f := l.filter
	l.mu.Unlock()
	return l.LoadFirstPage(ctx, f)
}

// fail records err. Caller holds l.mu.
func (l *Loader) fail(f Filter, page int, err error) error {
	l.lastErr = err
	l.logger.Warn("page fetch failed",
		zap.Stringer("filter", f),
		zap.Int("page", page),
		zap.Error(err),
	)
	if gateway.IsAuth(err) {
		return fmt.Errorf("loading %s page %d: %w", f, page, err)
	}
	return nil
}
