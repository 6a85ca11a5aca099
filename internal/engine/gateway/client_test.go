package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egemenmermer/business-extractor/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc, mutate ...func(*Options)) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	opts := Options{
		BaseURL:   srv.URL + "/api",
		Retries:   -1,
		RetryWait: time.Millisecond,
		RetryMax:  5 * time.Millisecond,
	}
	for _, m := range mutate {
		m(&opts)
	}
	c, err := NewClient(opts)
	require.NoError(t, err)
	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestSearchPostsPairsAndReturnsJobID(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bare id", "job-42"},
		{"quoted id", `"job-42"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/api/search", r.URL.Path)
				assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
				assert.NotEmpty(t, r.Header.Get(requestIDHeader))

				var got model.SearchRequest
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				assert.Equal(t, []string{"cafe", "bar"}, got.Categories)
				assert.Equal(t, []string{"Paris"}, got.Locations)

				_, _ = w.Write([]byte(tt.body))
			}, func(o *Options) { o.Token = "secret" })

			id, err := c.Search(context.Background(), model.SearchRequest{
				Categories: []string{"cafe", "bar"},
				Locations:  []string{"Paris"},
			})
			require.NoError(t, err)
			assert.Equal(t, "job-42", id)
		})
	}
}

func TestTasksDecodes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tasks", r.URL.Path)
		writeJSON(t, w, []model.Task{
			{ID: "1", Category: "cafe", Location: "Paris", Status: model.TaskProcessing, ProcessedItems: 3, TotalItems: 10},
		})
	})

	tasks, err := c.Tasks(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, model.TaskProcessing, tasks[0].Status)
	assert.InDelta(t, 0.3, tasks[0].Progress(), 1e-9)
}

func TestUnauthorizedIsAuthError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.Results(context.Background())
	require.Error(t, err)

	var ae *AuthError
	assert.True(t, errors.As(err, &ae))
	assert.True(t, IsAuth(err))
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestServerErrorIsFetchError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Tasks(context.Background())
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusBadGateway, fe.StatusCode)
	assert.False(t, IsAuth(err))
}

func TestMalformedBodyIsFetchError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	})

	_, err := c.Results(context.Background())
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Contains(t, err.Error(), "decoding body")
}

func TestGetRetriedButPostIsNot(t *testing.T) {
	var gets, posts atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			posts.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if gets.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(t, w, []model.Business{})
	}, func(o *Options) { o.Retries = 2 })

	_, err := c.Businesses(context.Background(), 0, 50)
	require.NoError(t, err)
	assert.Equal(t, int32(2), gets.Load())

	_, err = c.Search(context.Background(), model.SearchRequest{Categories: []string{"a"}, Locations: []string{"b"}})
	require.Error(t, err)
	assert.Equal(t, int32(1), posts.Load())
}

func TestPollEndpointsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, func(o *Options) { o.Retries = 3 })

	_, err := c.Tasks(context.Background())
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusServiceUnavailable, fe.StatusCode)
	assert.Equal(t, int32(1), calls.Load())

	_, err = c.Results(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCatalogEndpoints(t *testing.T) {
	type seen struct {
		path  string
		query map[string]string
	}
	var (
		mu  sync.Mutex
		got seen
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := map[string]string{}
		for k := range r.URL.Query() {
			q[k] = r.URL.Query().Get(k)
		}
		mu.Lock()
		got = seen{path: r.URL.Path, query: q}
		mu.Unlock()
		switch r.URL.Path {
		case "/api/businesses/filter/email", "/api/businesses/filter/country":
			writeJSON(t, w, model.Page{Content: []model.Business{{ID: "p1"}}, Last: true})
		default:
			writeJSON(t, w, []model.Business{{ID: "l1"}, {ID: "l2"}})
		}
	})
	last := func() seen {
		mu.Lock()
		defer mu.Unlock()
		return got
	}
	ctx := context.Background()

	items, err := c.Businesses(ctx, 2, 50)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, seen{"/api/businesses", map[string]string{"page": "2", "size": "50"}}, last())

	_, err = c.BusinessesByCategory(ctx, "cafe & bar", 0, 50)
	require.NoError(t, err)
	assert.Equal(t, "/api/businesses/category/cafe & bar", last().path)

	_, err = c.BusinessesByCity(ctx, "Paris", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, "/api/businesses/city/Paris", last().path)
	assert.Equal(t, "1", last().query["page"])

	page, err := c.BusinessesByEmail(ctx, false, 0, 50)
	require.NoError(t, err)
	assert.True(t, page.Last)
	assert.Equal(t, "false", last().query["hasEmail"])

	_, err = c.BusinessesByCountry(ctx, "France", 3, 50)
	require.NoError(t, err)
	assert.Equal(t, "France", last().query["country"])
	assert.Equal(t, "3", last().query["page"])
}

func TestExpiredTokenFailsWithoutRequest(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user",
		"exp": now.Add(-time.Minute).Unix(),
	}).SignedString([]byte("k"))
	require.NoError(t, err)

	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}, func(o *Options) {
		o.Token = token
		o.Now = func() time.Time { return now }
	})

	_, err = c.Tasks(context.Background())
	require.True(t, IsAuth(err))
	assert.Contains(t, err.Error(), "token expired")
	assert.Zero(t, calls.Load())
}

func TestOpaqueTokenIsSent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer not-a-jwt", r.Header.Get("Authorization"))
		writeJSON(t, w, []model.Task{})
	}, func(o *Options) { o.Token = "not-a-jwt" })

	_, err := c.Tasks(context.Background())
	require.NoError(t, err)
}

func TestExport(t *testing.T) {
	now := time.Date(2026, 10, 14, 9, 5, 7, 0, time.FixedZone("X", 2*3600))
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/export", r.URL.Path)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "csv", body["format"])
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte("id,name\n1,Cafe\n"))
	}, func(o *Options) { o.Now = func() time.Time { return now } })

	exp, err := c.Export(context.Background(), "CSV")
	require.NoError(t, err)
	assert.Equal(t, "business_export_20261014T070507.csv", exp.Filename)
	assert.Equal(t, "text/csv", exp.ContentType)
	assert.Equal(t, "id,name\n1,Cafe\n", string(exp.Data))

	_, err = c.Export(context.Background(), "pdf")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(Options{})
	require.Error(t, err)
}
