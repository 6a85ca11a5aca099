package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egemenmermer/business-extractor/internal/config"
	"github.com/egemenmermer/business-extractor/internal/engine/catalog"
	"github.com/egemenmermer/business-extractor/internal/engine/poller"
	"github.com/egemenmermer/business-extractor/internal/model"
)

type fakeAPI struct {
	unauthorized     atomic.Bool
	pollUnauthorized atomic.Bool
	searches         atomic.Int32
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if f.unauthorized.Load() {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if f.pollUnauthorized.Load() && (r.URL.Path == "/api/tasks" || r.URL.Path == "/api/results") {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	switch r.URL.Path {
	case "/api/search":
		f.searches.Add(1)
		_, _ = w.Write([]byte("job-7"))
	case "/api/tasks":
		_ = json.NewEncoder(w).Encode([]model.Task{
			{ID: "t1", Category: "cafe", Location: "Paris", Status: model.TaskCompleted, ProcessedItems: 2, TotalItems: 2},
		})
	case "/api/results":
		_ = json.NewEncoder(w).Encode(model.Results{
			Businesses: []model.Business{
				{ID: "b1", BusinessName: "Café Lumière", City: "Paris", Email: "a@b.fr"},
				{ID: "b2", BusinessName: "Le Zinc", City: "Paris"},
			},
			Total: 2,
		})
	case "/api/export":
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte("id\nb1\nb2\n"))
	default:
		http.NotFound(w, r)
	}
}

func newEngine(t *testing.T) (*Engine, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.APIURL = srv.URL + "/api"
	cfg.DataDir = t.TempDir()
	cfg.PollInterval = 100 * time.Millisecond

	e, err := New(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e, api
}

func selectPair(e *Engine, category, location string) {
	e.Selection().AddCategory(category)
	e.Selection().SelectCategory(category, true)
	e.Selection().AddLocation(location)
	e.Selection().SelectLocation(location, true)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.APIURL = ""
	_, err := New(cfg, nil)
	assert.Error(t, err)
}

func TestStartSearchRequiresSelection(t *testing.T) {
	e, api := newEngine(t)
	e.Selection().AddCategory("cafe")
	e.Selection().SelectCategory("cafe", true)
	e.Selection().AddLocation("Paris")

	_, err := e.StartSearch(context.Background())
	var ve *poller.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Zero(t, api.searches.Load())
	assert.Empty(t, e.Recent().List())
}

func TestStartSearchSaveAndReopen(t *testing.T) {
	e, _ := newEngine(t)
	selectPair(e, "cafe", "Paris")

	var updates atomic.Int32
	e.OnUpdate(func(poller.Snapshot) { updates.Add(1) })

	id, err := e.StartSearch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "job-7", id)

	snap := e.Poller().Snapshot()
	assert.Equal(t, poller.StateStopped, snap.State, "initial snapshot is already terminal")
	assert.Len(t, snap.Businesses, 2)
	assert.Positive(t, updates.Load())

	recent := e.Recent().List()
	require.Len(t, recent, 1)
	assert.Equal(t, "job-7", recent[0].JobID)
	assert.Equal(t, []string{"cafe"}, recent[0].Request.Categories)

	path := e.DefaultSnapshotPath(time.Date(2026, 10, 14, 7, 0, 0, 0, time.UTC))
	assert.Equal(t, "snapshot_20261014T070000.db", filepath.Base(path))

	n, err := e.Save(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, path, e.Recent().List()[0].Snapshot)

	loader, meta, err := e.OpenSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, "job-7", meta.JobID)
	assert.Equal(t, []string{"Paris"}, meta.Request.Locations)

	require.NoError(t, loader.LoadFirstPage(context.Background(), catalog.Email(true)))
	items := loader.Snapshot().Items
	require.Len(t, items, 1)
	assert.Equal(t, "b1", items[0].ID)
}

func TestSaveBeforeAnyJob(t *testing.T) {
	e, _ := newEngine(t)
	_, err := e.Save(context.Background(), filepath.Join(t.TempDir(), "x.db"))
	assert.ErrorIs(t, err, ErrNothingToSave)
}

func TestExportWritesFile(t *testing.T) {
	e, _ := newEngine(t)
	dir := t.TempDir()

	path, err := e.Export(context.Background(), "csv", dir)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.Regexp(t, `^business_export_\d{8}T\d{6}\.csv$`, filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "id\nb1\nb2\n", string(data))
}

func TestAuthErrorsFanOut(t *testing.T) {
	e, api := newEngine(t)
	api.unauthorized.Store(true)

	var calls atomic.Int32
	e.OnAuthError(func(error) { calls.Add(1) })
	e.OnAuthError(func(error) { calls.Add(1) })

	_, err := e.Export(context.Background(), "xlsx", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())

	selectPair(e, "cafe", "Paris")
	_, err = e.StartSearch(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(4), calls.Load(), "poller auth failures reach the same handlers")

	assert.False(t, e.NotifyAuth(os.ErrNotExist))
}

func TestPollAuthFailureReachesEngineHandlers(t *testing.T) {
	e, api := newEngine(t)
	api.pollUnauthorized.Store(true)

	got := make(chan error, 1)
	e.OnAuthError(func(err error) { got <- err })

	selectPair(e, "cafe", "Paris")
	id, err := e.StartSearch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "job-7", id)

	select {
	case err := <-got:
		assert.ErrorContains(t, err, "401")
	case <-time.After(2 * time.Second):
		t.Fatal("auth handler was not called")
	}
	assert.Equal(t, poller.StateIdle, e.Poller().Snapshot().State)
}
