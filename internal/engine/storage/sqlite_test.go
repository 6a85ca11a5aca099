package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egemenmermer/business-extractor/internal/model"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "snapshot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seed() []model.Business {
	return []model.Business{
		{ID: "1", BusinessName: "Café Lumière", Category: "cafe", City: "Paris", Country: "France", Email: "hi@lumiere.fr", Latitude: 48.85, Longitude: 2.35},
		{ID: "2", BusinessName: "Le Zinc", Category: "bar", City: "Paris", Country: "France"},
		{ID: "3", BusinessName: "Brew", Category: "cafe", City: "Lyon", Country: "France", Email: "brew@x.io"},
		{ID: "4", BusinessName: "Bodega", Category: "bar", City: "Madrid", Country: "Spain"},
		{ID: "", BusinessName: "no id"},
	}
}

func TestSaveBusinessesUpsertsByID(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	n, err := s.SaveBusinesses(ctx, seed())
	require.NoError(t, err)
	assert.Equal(t, 4, n, "records without id are skipped")

	_, err = s.SaveBusinesses(ctx, []model.Business{{ID: "2", BusinessName: "Le Zinc II", City: "Paris"}})
	require.NoError(t, err)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	all, err := s.AllBusinesses(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, model.Business{ID: "2", BusinessName: "Le Zinc II", City: "Paris"}, all[1], "record replaced wholesale")
	assert.Equal(t, seed()[0], all[0])
}

func TestCatalogQueries(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	_, err := s.SaveBusinesses(ctx, seed())
	require.NoError(t, err)

	page0, err := s.Businesses(ctx, 0, 3)
	require.NoError(t, err)
	assert.Len(t, page0, 3)
	page1, err := s.Businesses(ctx, 1, 3)
	require.NoError(t, err)
	require.Len(t, page1, 1)
	assert.Equal(t, "4", page1[0].ID)

	cafes, err := s.BusinessesByCategory(ctx, "cafe", 0, 50)
	require.NoError(t, err)
	assert.Len(t, cafes, 2)

	paris, err := s.BusinessesByCity(ctx, "Paris", 0, 50)
	require.NoError(t, err)
	assert.Len(t, paris, 2)

	withEmail, err := s.BusinessesByEmail(ctx, true, 0, 1)
	require.NoError(t, err)
	assert.Len(t, withEmail.Content, 1)
	assert.False(t, withEmail.Last)
	assert.Equal(t, 2, withEmail.TotalElements)
	assert.Equal(t, 2, withEmail.TotalPages)

	withoutEmail, err := s.BusinessesByEmail(ctx, false, 0, 50)
	require.NoError(t, err)
	assert.Len(t, withoutEmail.Content, 2)
	assert.True(t, withoutEmail.Last)

	france, err := s.BusinessesByCountry(ctx, "France", 1, 2)
	require.NoError(t, err)
	assert.Len(t, france.Content, 1)
	assert.True(t, france.Last)
}

func TestTasksAndMeta(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	tasks := []model.Task{
		{ID: "t1", Category: "cafe", Location: "Paris", Status: model.TaskCompleted, ProcessedItems: 5, TotalItems: 5},
		{ID: "t2", Category: "bar", Location: "Paris", Status: model.TaskFailed, Message: "quota"},
	}
	require.NoError(t, s.SaveTasks(ctx, "job-1", tasks))
	require.NoError(t, s.SaveTasks(ctx, "job-1", tasks[:1]))

	got, err := s.Tasks(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, tasks[:1], got)

	empty, err := s.LoadMeta(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty.JobID)

	saved := time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)
	req := model.SearchRequest{Categories: []string{"cafe"}, Locations: []string{"Paris"}}
	require.NoError(t, s.SaveMeta(ctx, Meta{JobID: "job-1", Request: req, SavedAt: saved}))

	m, err := s.LoadMeta(ctx)
	require.NoError(t, err)
	assert.Equal(t, Meta{JobID: "job-1", Request: req, SavedAt: saved}, m)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.db")
	s, err := NewStore(path)
	require.NoError(t, err)
	_, err = s.SaveBusinesses(context.Background(), seed())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := NewStore(path)
	require.NoError(t, err)
	defer s2.Close()
	n, err := s2.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, path, s2.Path())
}

func TestSummarize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.db")
	s, err := NewStore(path)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.SaveBusinesses(ctx, seed())
	require.NoError(t, err)
	require.NoError(t, s.SaveTasks(ctx, "job-7", []model.Task{
		{ID: "t1", Status: model.TaskCompleted},
		{ID: "t2", Status: model.TaskFailed},
	}))
	saved := time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveMeta(ctx, Meta{JobID: "job-7", SavedAt: saved}))
	require.NoError(t, s.Close())

	sum, err := Summarize(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "job-7", sum.JobID)
	assert.Equal(t, saved, sum.SavedAt)
	assert.Equal(t, 4, sum.Businesses)
	assert.Equal(t, 2, sum.Tasks)
}
