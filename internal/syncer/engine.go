// Package syncer reconciles the local cache with the remote sheet: pull on
// startup, debounced push after local edits, and an interval timer. Failures
// are never fatal to the dashboard — the app keeps working against the cache
// and failed writes queue for retry.
package syncer

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dkeller/fieldops/internal/remote"
	"github.com/dkeller/fieldops/internal/store"
	"github.com/dkeller/fieldops/internal/summary"
)

// Status is the engine's sync state. The engine is never left in
// StatusSyncing: the transition back to idle happens in a defer.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSyncing Status = "syncing"
)

const defaultDebounce = 2 * time.Second

// Engine owns all sync state. Construct one per process (or per test); no
// package-level state exists.
type Engine struct {
	store     *store.Store
	client    *remote.Client
	summaries *summary.Cache
	logger    *slog.Logger

	stateMu  sync.Mutex
	status   Status
	lastErr  error
	syncing  bool // guards against observer feedback during our own writes
	pendWO   map[string]struct{}
	pendProg map[string]struct{}

	debounceMu    sync.Mutex
	debounceDelay time.Duration
	debounceTimer *time.Timer

	intervalUnit time.Duration

	settingsCh  chan struct{}
	unsubscribe []func()
}

type Option func(*Engine)

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithDebounce shortens the quiescence window in tests.
func WithDebounce(d time.Duration) Option {
	return func(e *Engine) { e.debounceDelay = d }
}

// WithIntervalUnit shrinks the unit the interval setting is multiplied by in
// tests. The setting itself stays in minutes.
func WithIntervalUnit(d time.Duration) Option {
	return func(e *Engine) { e.intervalUnit = d }
}

// WithSummaryCache shares the summarizer cache so progress writes invalidate
// the entries the dashboard renders from.
func WithSummaryCache(c *summary.Cache) Option {
	return func(e *Engine) { e.summaries = c }
}

// New builds an engine and restores the pending-retry sets persisted by a
// previous run. Local mutations to work orders or progress arm the debounced
// auto-sync.
func New(s *store.Store, client *remote.Client, opts ...Option) *Engine {
	e := &Engine{
		store:         s,
		client:        client,
		summaries:     summary.NewCache(),
		logger:        slog.Default(),
		status:        StatusIdle,
		pendWO:        make(map[string]struct{}),
		pendProg:      make(map[string]struct{}),
		debounceDelay: defaultDebounce,
		intervalUnit:  time.Minute,
		settingsCh:    make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(e)
	}

	for _, id := range e.loadPending(store.PendingWorkOrder) {
		e.pendWO[id] = struct{}{}
	}
	for _, id := range e.loadPending(store.PendingProgress) {
		e.pendProg[id] = struct{}{}
	}

	e.unsubscribe = append(e.unsubscribe,
		s.OnChange(store.CollectionWorkOrders, e.scheduleSync),
		s.OnChange(store.CollectionProgress, e.scheduleSync),
		s.OnChange(store.CollectionSettings, e.settingsChanged),
	)
	return e
}

func (e *Engine) loadPending(kind store.PendingKind) []string {
	ids, err := e.store.ListPending(kind)
	if err != nil {
		e.logger.Warn("restore pending set failed", "kind", string(kind), "error", err)
		return nil
	}
	return ids
}

// Close detaches the engine from store notifications and stops any armed
// debounce timer.
func (e *Engine) Close() {
	for _, u := range e.unsubscribe {
		u()
	}
	e.debounceMu.Lock()
	if e.debounceTimer != nil {
		e.debounceTimer.Stop()
	}
	e.debounceMu.Unlock()
}

// Summaries exposes the shared summary cache.
func (e *Engine) Summaries() *summary.Cache { return e.summaries }

// Snapshot is a point-in-time view of the engine for the sync status panel.
type Snapshot struct {
	Status            Status
	LastSync          *time.Time
	PendingWorkOrders []string
	PendingProgress   []string
	LastError         error
}

// State returns the current snapshot. Pending ids come back sorted.
func (e *Engine) State() Snapshot {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	snap := Snapshot{Status: e.status, LastError: e.lastErr}
	for id := range e.pendWO {
		snap.PendingWorkOrders = append(snap.PendingWorkOrders, id)
	}
	for id := range e.pendProg {
		snap.PendingProgress = append(snap.PendingProgress, id)
	}
	sort.Strings(snap.PendingWorkOrders)
	sort.Strings(snap.PendingProgress)

	if last, err := e.store.LastSync(); err == nil {
		snap.LastSync = last
	}
	return snap
}

// tryBegin moves Idle -> Syncing; a false return means a sync is already in
// flight and the caller should no-op.
func (e *Engine) tryBegin() bool {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	if e.status == StatusSyncing {
		return false
	}
	e.status = StatusSyncing
	e.syncing = true
	return true
}

func (e *Engine) end(err error) {
	e.stateMu.Lock()
	e.status = StatusIdle
	e.syncing = false
	e.lastErr = err
	e.stateMu.Unlock()
}

func (e *Engine) isSyncing() bool {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.syncing
}

// Sync runs one full bidirectional pass: pull, then push. Pull always
// finishes (success or failure) before push starts. Overlapping calls no-op.
func (e *Engine) Sync(ctx context.Context) error {
	if !e.tryBegin() {
		return nil
	}

	var err error
	defer func() { e.end(err) }()

	pullErr := e.pull(ctx)
	pushErr := e.push(ctx)

	if pullErr != nil {
		err = pullErr
	} else {
		err = pushErr
	}
	return err
}

// scheduleSync arms (or re-arms) the debounce timer after a local mutation.
// The mutation is already durable locally; the timer only coalesces when the
// remote round trip happens. Writes made by the engine itself don't re-arm.
func (e *Engine) scheduleSync() {
	if e.isSyncing() {
		return
	}
	if !e.store.SyncEnabled() {
		return
	}

	e.debounceMu.Lock()
	defer e.debounceMu.Unlock()
	if e.debounceTimer != nil {
		e.debounceTimer.Stop()
	}
	e.debounceTimer = time.AfterFunc(e.debounceDelay, func() {
		if err := e.Sync(context.Background()); err != nil {
			e.logger.Warn("auto-sync failed", "error", err)
		}
	})
}

func (e *Engine) settingsChanged() {
	select {
	case e.settingsCh <- struct{}{}:
	default:
	}
}

// Run drives interval auto-sync until ctx is cancelled, re-reading the
// interval setting whenever settings change. Interval zero disables the
// timer.
func (e *Engine) Run(ctx context.Context) {
	for {
		var timerC <-chan time.Time
		var timer *time.Timer

		if e.store.SyncEnabled() {
			if iv := e.store.SyncIntervalMinutes(); iv > 0 {
				timer = time.NewTimer(time.Duration(iv) * e.intervalUnit)
				timerC = timer.C
			}
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-e.settingsCh:
			if timer != nil {
				timer.Stop()
			}
		case <-timerC:
			if err := e.Sync(ctx); err != nil {
				e.logger.Warn("interval sync failed", "error", err)
			}
		}
	}
}
