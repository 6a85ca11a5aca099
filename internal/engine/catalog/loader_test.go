package catalog

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egemenmermer/business-extractor/internal/engine/gateway"
	"github.com/egemenmermer/business-extractor/internal/model"
)

type call struct {
	endpoint string
	arg      string
	page     int
}

// fakeSource serves total synthetic records per endpoint. When gate is set,
// every fetch waits on it after being recorded.
type fakeSource struct {
	mu    sync.Mutex
	calls []call
	total int
	err   error
	gate  chan struct{}
	// entered receives one value per fetch that started.
	entered chan struct{}
}

func (f *fakeSource) record(endpoint, arg string, page int) error {
	f.mu.Lock()
	f.calls = append(f.calls, call{endpoint, arg, page})
	gate, entered, err := f.gate, f.entered, f.err
	f.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	return err
}

func (f *fakeSource) slice(prefix string, page, size int) []model.Business {
	var out []model.Business
	for i := page * size; i < (page+1)*size && i < f.total; i++ {
		out = append(out, model.Business{ID: fmt.Sprintf("%s-%d", prefix, i)})
	}
	return out
}

func (f *fakeSource) Businesses(_ context.Context, page, size int) ([]model.Business, error) {
	if err := f.record("all", "", page); err != nil {
		return nil, err
	}
	return f.slice("all", page, size), nil
}

func (f *fakeSource) BusinessesByCategory(_ context.Context, c string, page, size int) ([]model.Business, error) {
	if err := f.record("category", c, page); err != nil {
		return nil, err
	}
	return f.slice(c, page, size), nil
}

func (f *fakeSource) BusinessesByCity(_ context.Context, c string, page, size int) ([]model.Business, error) {
	if err := f.record("city", c, page); err != nil {
		return nil, err
	}
	return f.slice(c, page, size), nil
}

func (f *fakeSource) BusinessesByEmail(_ context.Context, has bool, page, size int) (model.Page, error) {
	if err := f.record("email", fmt.Sprint(has), page); err != nil {
		return model.Page{}, err
	}
	items := f.slice("email", page, size)
	return model.Page{Content: items, Last: (page+1)*size >= f.total}, nil
}

func (f *fakeSource) BusinessesByCountry(_ context.Context, c string, page, size int) (model.Page, error) {
	if err := f.record("country", c, page); err != nil {
		return model.Page{}, err
	}
	items := f.slice(c, page, size)
	return model.Page{Content: items, Last: (page+1)*size >= f.total}, nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeSource) lastCall() call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func TestFilterPrecedence(t *testing.T) {
	src := &fakeSource{total: 10}
	l := NewLoader(src)
	ctx := context.Background()

	require.NoError(t, l.LoadFirstPage(ctx, Category("cafe")))
	require.NoError(t, l.LoadFirstPage(ctx, City("Paris")))

	snap := l.Snapshot()
	assert.Equal(t, CityFilter{City: "Paris"}, snap.Filter)
	assert.Equal(t, call{"city", "Paris", 0}, src.lastCall())
	assert.Len(t, snap.Items, 10)
	assert.Equal(t, "Paris-0", snap.Items[0].ID)
}

func TestBlankFilterCollapsesToNone(t *testing.T) {
	assert.Equal(t, NoFilter{}, Category("  "))
	assert.Equal(t, NoFilter{}, City(""))
	assert.Equal(t, NoFilter{}, Country(" "))
	assert.Equal(t, EmailFilter{HasEmail: false}, Email(false))
}

func TestPagesAppendUntilShortPage(t *testing.T) {
	src := &fakeSource{total: 120}
	l := NewLoader(src)
	ctx := context.Background()

	require.NoError(t, l.ClearFilters(ctx))
	fetched, err := l.LoadNextPage(ctx)
	require.NoError(t, err)
	assert.True(t, fetched)

	snap := l.Snapshot()
	assert.Len(t, snap.Items, 100)
	assert.Equal(t, 1, snap.Page)
	assert.True(t, snap.HasMore)

	fetched, err = l.LoadNextPage(ctx)
	require.NoError(t, err)
	assert.True(t, fetched)
	snap = l.Snapshot()
	assert.Len(t, snap.Items, 120)
	assert.Equal(t, 2, snap.Page)
	assert.False(t, snap.HasMore, "a short page ends the list")

	calls := src.callCount()
	fetched, err = l.LoadNextPage(ctx)
	require.NoError(t, err)
	assert.False(t, fetched)
	assert.Equal(t, calls, src.callCount())
}

func TestPagedEndpointUsesLastFlag(t *testing.T) {
	src := &fakeSource{total: 100}
	l := NewLoader(src)
	ctx := context.Background()

	require.NoError(t, l.LoadFirstPage(ctx, Country("France")))
	assert.True(t, l.Snapshot().HasMore)

	_, err := l.LoadNextPage(ctx)
	require.NoError(t, err)
	snap := l.Snapshot()
	assert.Len(t, snap.Items, 100)
	assert.False(t, snap.HasMore, "full page flagged last")
	assert.Equal(t, call{"country", "France", 1}, src.lastCall())
}

func TestOverlappingNextPageIsDropped(t *testing.T) {
	src := &fakeSource{total: 500}
	l := NewLoader(src)
	ctx := context.Background()
	require.NoError(t, l.ClearFilters(ctx))

	src.mu.Lock()
	src.gate = make(chan struct{})
	src.entered = make(chan struct{}, 1)
	src.mu.Unlock()

	done := make(chan bool)
	go func() {
		fetched, _ := l.LoadNextPage(ctx)
		done <- fetched
	}()
	<-src.entered

	assert.True(t, l.Snapshot().Loading)
	fetched, err := l.LoadNextPage(ctx)
	require.NoError(t, err)
	assert.False(t, fetched, "second call while in flight is dropped")

	close(src.gate)
	assert.True(t, <-done)
	assert.Equal(t, 2, src.callCount(), "first page plus one next page")
	assert.False(t, l.Snapshot().Loading)
}

func TestStalePageIsDiscarded(t *testing.T) {
	src := &fakeSource{total: 500}
	l := NewLoader(src)
	ctx := context.Background()
	require.NoError(t, l.LoadFirstPage(ctx, Category("cafe")))

	gate := make(chan struct{})
	src.mu.Lock()
	src.gate = gate
	src.entered = make(chan struct{}, 1)
	src.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_, _ = l.LoadNextPage(ctx)
		close(done)
	}()
	<-src.entered

	// Swap the filter while the category page is still in flight.
	src.mu.Lock()
	src.gate = nil
	src.entered = nil
	src.mu.Unlock()
	require.NoError(t, l.LoadFirstPage(ctx, City("Paris")))

	close(gate)
	<-done

	snap := l.Snapshot()
	assert.Equal(t, CityFilter{City: "Paris"}, snap.Filter)
	assert.Equal(t, 0, snap.Page)
	assert.Len(t, snap.Items, 50)
	for _, b := range snap.Items {
		assert.Contains(t, b.ID, "Paris-")
	}
	assert.False(t, snap.Loading)
}

func TestTransientErrorIsRecorded(t *testing.T) {
	src := &fakeSource{total: 10, err: &gateway.FetchError{Op: "businesses", StatusCode: 503}}
	l := NewLoader(src)

	err := l.ClearFilters(context.Background())
	require.NoError(t, err)

	snap := l.Snapshot()
	assert.Error(t, snap.LastError)
	assert.False(t, snap.Loading)
	assert.False(t, snap.HasMore)
	assert.Empty(t, snap.Items)
}

func TestAuthErrorIsReturned(t *testing.T) {
	src := &fakeSource{total: 10, err: &gateway.AuthError{Op: "businesses", Reason: "server answered 401"}}
	l := NewLoader(src)

	err := l.LoadFirstPage(context.Background(), Email(true))
	require.Error(t, err)
	assert.True(t, gateway.IsAuth(err))
	assert.False(t, l.Snapshot().Loading)
}

func TestWithPageSize(t *testing.T) {
	src := &fakeSource{total: 25}
	l := NewLoader(src, WithPageSize(10), WithPageSize(0))
	assert.Equal(t, 10, l.PageSize())

	require.NoError(t, l.ClearFilters(context.Background()))
	assert.Len(t, l.Snapshot().Items, 10)
}

func TestReloadKeepsFilter(t *testing.T) {
	src := &fakeSource{total: 5}
	l := NewLoader(src)
	ctx := context.Background()

	require.NoError(t, l.LoadFirstPage(ctx, Email(false)))
	require.NoError(t, l.Reload(ctx))
	assert.Equal(t, call{"email", "false", 0}, src.lastCall())
	assert.Equal(t, 2, src.callCount())
}
