// Package app wires the engine modules together for the TUI and the
// headless commands.
package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/natefinch/atomic"
	"go.uber.org/zap"

	"github.com/egemenmermer/business-extractor/internal/config"
	"github.com/egemenmermer/business-extractor/internal/engine/catalog"
	"github.com/egemenmermer/business-extractor/internal/engine/gateway"
	"github.com/egemenmermer/business-extractor/internal/engine/poller"
	"github.com/egemenmermer/business-extractor/internal/engine/selection"
	"github.com/egemenmermer/business-extractor/internal/engine/storage"
	"github.com/egemenmermer/business-extractor/internal/logging"
	"github.com/egemenmermer/business-extractor/internal/model"
)

// ErrNothingToSave is returned by Save before any job produced data.
var ErrNothingToSave = errors.New("no job results to save")

type Engine struct {
	cfg    config.Config
	logger *zap.Logger

	gateway   *gateway.Client
	selection *selection.Store
	poller    *poller.Poller
	catalog   *catalog.Loader
	recent    *Recent

	mu       sync.Mutex
	onAuth   []func(error)
	onUpdate []func(poller.Snapshot)
	offline  *storage.Store
	lastReq  model.SearchRequest
}

func New(cfg config.Config, logger *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger = logging.OrNop(logger)

	gw, err := gateway.NewClient(gateway.Options{
		BaseURL:   cfg.APIURL,
		Token:     cfg.Token,
		Timeout:   cfg.Timeout,
		ChromeTLS: cfg.ChromeTLS,
		ProxyURL:  cfg.ProxyURL,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:       cfg,
		logger:    logger,
		gateway:   gw,
		selection: selection.New(),
		recent:    NewRecent(filepath.Join(cfg.DataDir, "recent.json")),
	}
	e.poller = poller.New(gw,
		poller.WithInterval(cfg.PollInterval),
		poller.WithLogger(logger),
		poller.WithAuthHandler(func(err error) { e.NotifyAuth(err) }),
		poller.WithOnUpdate(e.fanOutUpdate),
	)
	e.catalog = catalog.NewLoader(gw,
		catalog.WithPageSize(cfg.PageSize),
		catalog.WithLogger(logger),
	)
	return e, nil
}

func (e *Engine) Config() config.Config       { return e.cfg }
func (e *Engine) Logger() *zap.Logger         { return e.logger }
func (e *Engine) Selection() *selection.Store { return e.selection }
func (e *Engine) Poller() *poller.Poller      { return e.poller }
func (e *Engine) Catalog() *catalog.Loader    { return e.catalog }
func (e *Engine) Recent() *Recent             { return e.recent }

// OnAuthError registers fn to run whenever any module reports a rejected
// session.
func (e *Engine) OnAuthError(fn func(error)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onAuth = append(e.onAuth, fn)
}

// OnUpdate registers fn to receive every poller snapshot.
func (e *Engine) OnUpdate(fn func(poller.Snapshot)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onUpdate = append(e.onUpdate, fn)
}

// NotifyAuth fans err out to the auth handlers when it is a session
// failure, and reports whether it was.
func (e *Engine) NotifyAuth(err error) bool {
	if !gateway.IsAuth(err) {
		return false
	}
	e.mu.Lock()
	handlers := append([]func(error){}, e.onAuth...)
	e.mu.Unlock()

	e.logger.Warn("session rejected", zap.Error(err))
	for _, fn := range handlers {
		fn(err)
	}
	return true
}

func (e *Engine) fanOutUpdate(s poller.Snapshot) {
	e.mu.Lock()
	handlers := append([]func(poller.Snapshot){}, e.onUpdate...)
	e.mu.Unlock()
	for _, fn := range handlers {
		fn(s)
	}
}

// StartSearch submits the current selection and records it in the recent
// list.
func (e *Engine) StartSearch(ctx context.Context) (string, error) {
	req := e.selection.Request()
	id, err := e.poller.Submit(ctx, req.Categories, req.Locations)
	if err != nil {
		return "", err
	}
	e.mu.Lock()
	e.lastReq = req
	e.mu.Unlock()
	if err := e.recent.Add(RecentSearch{Request: req, JobID: id, SubmittedAt: time.Now()}); err != nil {
		e.logger.Warn("recording recent search", zap.Error(err))
	}
	return id, nil
}

// Export requests a server-side export and writes it to dir. It returns the
// written path.
func (e *Engine) Export(ctx context.Context, format, dir string) (string, error) {
	exp, err := e.gateway.Export(ctx, format)
	if err != nil {
		e.NotifyAuth(err)
		return "", err
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export dir: %w", err)
	}
	path := filepath.Join(dir, exp.Filename)
	if err := atomic.WriteFile(path, bytes.NewReader(exp.Data)); err != nil {
		return "", fmt.Errorf("writing export: %w", err)
	}
	e.logger.Info("export written", zap.String("path", path), zap.Int("bytes", len(exp.Data)))
	return path, nil
}

// DefaultSnapshotPath names a new snapshot file under the data dir.
func (e *Engine) DefaultSnapshotPath(now time.Time) string {
	return filepath.Join(e.cfg.SnapshotDir(), "snapshot_"+now.UTC().Format("20060102T150405")+".db")
}

// Save writes the current job snapshot to a SQLite file at path and returns
// the number of businesses written.
func (e *Engine) Save(ctx context.Context, path string) (int, error) {
	snap := e.poller.Snapshot()
	if snap.JobID == "" && len(snap.Businesses) == 0 {
		return 0, ErrNothingToSave
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("creating snapshot dir: %w", err)
	}

	store, err := storage.NewStore(path)
	if err != nil {
		return 0, fmt.Errorf("opening snapshot: %w", err)
	}
	defer store.Close()

	n, err := store.SaveBusinesses(ctx, snap.Businesses)
	if err != nil {
		return 0, err
	}
	if err := store.SaveTasks(ctx, snap.JobID, snap.Tasks); err != nil {
		return 0, err
	}
	e.mu.Lock()
	req := e.lastReq
	e.mu.Unlock()
	if err := store.SaveMeta(ctx, storage.Meta{
		JobID:   snap.JobID,
		Request: req,
		SavedAt: time.Now(),
	}); err != nil {
		return 0, err
	}

	if snap.JobID != "" {
		if err := e.recent.AttachSnapshot(snap.JobID, path); err != nil {
			e.logger.Warn("recording snapshot path", zap.Error(err))
		}
	}
	e.logger.Info("snapshot saved", zap.String("path", path), zap.Int("businesses", n))
	return n, nil
}

// OpenSnapshot returns a catalog loader over a saved snapshot. The previous
// snapshot, if any, is closed.
func (e *Engine) OpenSnapshot(path string) (*catalog.Loader, storage.Meta, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, storage.Meta{}, fmt.Errorf("opening snapshot: %w", err)
	}
	store, err := storage.NewStore(path)
	if err != nil {
		return nil, storage.Meta{}, fmt.Errorf("opening snapshot: %w", err)
	}
	meta, err := store.LoadMeta(context.Background())
	if err != nil {
		store.Close()
		return nil, storage.Meta{}, err
	}

	e.mu.Lock()
	prev := e.offline
	e.offline = store
	e.mu.Unlock()
	if prev != nil {
		prev.Close()
	}

	loader := catalog.NewLoader(store,
		catalog.WithPageSize(e.cfg.PageSize),
		catalog.WithLogger(e.logger.With(zap.String("snapshot", path))),
	)
	return loader, meta, nil
}

// Close stops polling and releases an open snapshot.
func (e *Engine) Close() error {
	e.poller.Stop()

	e.mu.Lock()
	store := e.offline
	e.offline = nil
	e.mu.Unlock()
	if store != nil {
		return store.Close()
	}
	return nil
}
