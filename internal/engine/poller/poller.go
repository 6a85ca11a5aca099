// Package poller tracks a submitted scrape job until every task is terminal.
//
// A Poller is a small state machine:
//
//	Idle --Submit--> Polling --all tasks terminal--> Stopped
//	                    |  \--auth failure / Stop--> Idle
//	                    \--Submit--> Polling (previous loop cancelled)
//
// Each tick fetches tasks and results concurrently and replaces both
// snapshots together, or neither when a fetch fails.
package poller

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/egemenmermer/business-extractor/internal/engine/gateway"
	"github.com/egemenmermer/business-extractor/internal/logging"
	"github.com/egemenmermer/business-extractor/internal/model"
)

const DefaultInterval = 2 * time.Second

type State int

const (
	StateIdle State = iota
	StatePolling
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Gateway is the subset of the API the poller needs.
type Gateway interface {
	Search(ctx context.Context, req model.SearchRequest) (string, error)
	Tasks(ctx context.Context) ([]model.Task, error)
	Results(ctx context.Context) (model.Results, error)
}

// ValidationError is returned by Submit when a selection is empty.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("poller: at least one %s is required", e.Field)
}

// Snapshot is a copy of the poller state; callers may keep it.
type Snapshot struct {
	State      State
	JobID      string
	Tasks      []model.Task
	Businesses []model.Business
	Total      int
	LastError  error
	UpdatedAt  time.Time
}

func (s Snapshot) Polling() bool {
	return s.State == StatePolling
}

type Option func(*Poller)

func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(p *Poller) { p.logger = logging.OrNop(l).Named("poller") }
}

// WithOnUpdate registers fn to receive a snapshot after every state change.
// fn runs on the polling goroutine; it must not block or call Stop.
func WithOnUpdate(fn func(Snapshot)) Option {
	return func(p *Poller) { p.onUpdate = fn }
}

// WithAuthHandler registers fn to be called once per auth failure, after the
// poller has gone Idle.
func WithAuthHandler(fn func(error)) Option {
	return func(p *Poller) { p.onAuth = fn }
}

type Poller struct {
	gw       Gateway
	interval time.Duration
	logger   *zap.Logger
	onUpdate func(Snapshot)
	onAuth   func(error)

	// submitMu serializes Submit and Stop.
	submitMu sync.Mutex

	mu         sync.Mutex
	state      State
	gen        uint64
	jobID      string
	tasks      []model.Task
	businesses []model.Business
	total      int
	lastErr    error
	updatedAt  time.Time
	cancel     context.CancelFunc
	done       chan struct{}
}

func New(gw Gateway, opts ...Option) *Poller {
	p := &Poller{
		gw:       gw,
		interval: DefaultInterval,
		logger:   zap.NewNop(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Interval is the tick period.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Submit starts a job for every category × location pair. A running loop is
// cancelled and awaited first. Only a failure of the search submission itself
// is returned; a failed initial snapshot is recorded in LastError and the
// loop retries it on the next tick.
func (p *Poller) Submit(ctx context.Context, categories, locations []string) (string, error) {
	if len(categories) == 0 {
		return "", &ValidationError{Field: "category"}
	}
	if len(locations) == 0 {
		return "", &ValidationError{Field: "location"}
	}

	out := p.submit(ctx, model.SearchRequest{
		Categories: slices.Clone(categories),
		Locations:  slices.Clone(locations),
	})
	if out.authErr != nil && p.onAuth != nil {
		p.onAuth(out.authErr)
	}
	return out.id, out.err
}

type submission struct {
	id      string
	authErr error
	err     error
}

func (p *Poller) submit(ctx context.Context, req model.SearchRequest) submission {
	p.submitMu.Lock()
	defer p.submitMu.Unlock()

	p.halt()

	p.mu.Lock()
	p.gen++
	gen := p.gen
	p.state = StatePolling
	p.jobID = ""
	p.tasks = nil
	p.businesses = nil
	p.total = 0
	p.lastErr = nil
	p.updatedAt = time.Time{}
	p.mu.Unlock()
	p.notify()

	id, err := p.gw.Search(ctx, req)
	if err != nil {
		p.mu.Lock()
		p.state = StateIdle
		p.lastErr = err
		p.mu.Unlock()
		p.notify()
		p.logger.Warn("search failed", zap.Error(err))

		out := submission{err: fmt.Errorf("submitting search: %w", err)}
		if gateway.IsAuth(err) {
			out.authErr = err
		}
		return out
	}

	p.mu.Lock()
	p.jobID = id
	p.mu.Unlock()
	p.logger.Info("job submitted",
		zap.String("job_id", id),
		zap.Int("pairs", req.Pairs()),
	)

	// cancel is published before the first tick so Stop can interrupt it.
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	more, authErr := p.tick(loopCtx, gen)
	if !more {
		p.mu.Lock()
		p.cancel = nil
		p.mu.Unlock()
		cancel()
		return submission{id: id, authErr: authErr}
	}

	done := make(chan struct{})
	p.mu.Lock()
	p.done = done
	p.mu.Unlock()

	go p.run(loopCtx, gen, done)
	return submission{id: id}
}

// Stop cancels polling and returns the poller to Idle. Collected tasks and
// businesses are kept.
func (p *Poller) Stop() {
	// Invalidate and cancel whatever is in flight, including a Submit still
	// waiting on its first snapshot, before queueing behind it.
	p.mu.Lock()
	p.gen++
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()

	p.submitMu.Lock()
	defer p.submitMu.Unlock()

	p.halt()

	p.mu.Lock()
	p.gen++
	changed := p.state != StateIdle
	p.state = StateIdle
	p.mu.Unlock()
	if changed {
		p.notify()
	}
}

// halt cancels the running loop, if any, and waits for it to exit.
func (p *Poller) halt() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if done != nil {
		<-done
	}
}

func (p *Poller) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{
		State:      p.state,
		JobID:      p.jobID,
		Tasks:      slices.Clone(p.tasks),
		Businesses: slices.Clone(p.businesses),
		Total:      p.total,
		LastError:  p.lastErr,
		UpdatedAt:  p.updatedAt,
	}
}

func (p *Poller) run(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		more, authErr := p.tick(ctx, gen)
		if authErr != nil && p.onAuth != nil {
			p.onAuth(authErr)
		}
		if !more {
			return
		}
		timer.Reset(p.interval)
	}
}

// tick fetches one snapshot and applies it. It reports whether polling
// should continue, and the error that ended the session, if any.
func (p *Poller) tick(ctx context.Context, gen uint64) (bool, error) {
	tasks, results, err := p.fetch(ctx)

	p.mu.Lock()
	if p.gen != gen || ctx.Err() != nil {
		p.mu.Unlock()
		return false, nil
	}

	if err != nil {
		p.lastErr = err
		if !gateway.IsAuth(err) {
			p.mu.Unlock()
			p.logger.Warn("poll failed", zap.Error(err))
			p.notify()
			return true, nil
		}
		p.state = StateIdle
		cancel := p.detach()
		p.mu.Unlock()
		cancel()

		p.logger.Warn("session rejected, polling stopped", zap.Error(err))
		p.notify()
		return false, err
	}

	p.tasks = tasks
	p.businesses = results.Businesses
	p.total = results.Total
	p.lastErr = nil
	p.updatedAt = time.Now()

	terminal := model.AllTerminal(tasks)
	cancel := func() {}
	if terminal {
		p.state = StateStopped
		cancel = p.detach()
	}
	p.mu.Unlock()
	cancel()

	if terminal {
		counts := model.CountByStatus(tasks)
		p.logger.Info("job finished",
			zap.Int("completed", counts[model.TaskCompleted]),
			zap.Int("failed", counts[model.TaskFailed]),
			zap.Int("businesses", len(results.Businesses)),
		)
	} else {
		p.logger.Debug("poll", zap.Int("tasks", len(tasks)), zap.Int("businesses", len(results.Businesses)))
	}
	p.notify()
	return !terminal, nil
}

// detach forgets the running loop so callbacks may call Stop or Submit
// without waiting on the loop that invoked them. Caller holds p.mu.
func (p *Poller) detach() context.CancelFunc {
	cancel := p.cancel
	p.cancel, p.done = nil, nil
	if cancel == nil {
		return func() {}
	}
	return cancel
}

func (p *Poller) fetch(ctx context.Context) ([]model.Task, model.Results, error) {
	var (
		tasks   []model.Task
		results model.Results
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := p.gw.Tasks(gctx)
		if err != nil {
			return fmt.Errorf("fetching tasks: %w", err)
		}
		tasks = t
		return nil
	})
	g.Go(func() error {
		r, err := p.gw.Results(gctx)
		if err != nil {
			return fmt.Errorf("fetching results: %w", err)
		}
		results = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, model.Results{}, err
	}
	return tasks, results, nil
}

func (p *Poller) notify() {
	if p.onUpdate != nil {
		p.onUpdate(p.Snapshot())
	}
}
