// Package monitor refreshes the stock of a fixed set of articles in the background
// and publishes each result set as a snapshot.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/domain/registers/stock"
	"stockledger/pkg/logger"
)

// DefaultInterval is the refresh period when none is configured.
const DefaultInterval = 60 * time.Second

// Reconciler computes the stock of one article.
type Reconciler interface {
	Reconcile(ctx context.Context, q stock.Query) (decimal.Decimal, error)
}

// Target is one watched (article, display unit, warehouse) triple.
type Target struct {
	ArticleID   int64  `json:"articleId"`
	UnitID      int64  `json:"unitId"`
	WarehouseID *int64 `json:"warehouseId,omitempty"`
}

func (t Target) query() stock.Query {
	return stock.Query{ArticleID: t.ArticleID, DisplayUnitID: t.UnitID, WarehouseID: t.WarehouseID}
}

func (t Target) String() string {
	if t.WarehouseID == nil {
		return fmt.Sprintf("%d:%d", t.ArticleID, t.UnitID)
	}
	return fmt.Sprintf("%d:%d:%d", t.ArticleID, t.UnitID, *t.WarehouseID)
}

// ParseTargets parses a comma list of article:unit[:warehouse].
func ParseTargets(s string) ([]Target, error) {
	var targets []Target
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.Split(item, ":")
		if len(parts) < 2 || len(parts) > 3 {
			return nil, apperror.NewValidation("watch target must be article:unit[:warehouse]").
				WithDetail("target", item)
		}
		ids := make([]int64, len(parts))
		for i, p := range parts {
			n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
			if err != nil || n <= 0 {
				return nil, apperror.NewValidation("watch target ids must be positive integers").
					WithDetail("target", item)
			}
			ids[i] = n
		}
		t := Target{ArticleID: ids[0], UnitID: ids[1]}
		if len(ids) == 3 {
			wh := ids[2]
			t.WarehouseID = &wh
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// Level is the result for one target within a snapshot.
type Level struct {
	Target   Target          `json:"target"`
	Quantity decimal.Decimal `json:"quantity"`
	Err      error           `json:"-"`
}

// Snapshot is one refresh of every target.
type Snapshot struct {
	RunID  uuid.UUID `json:"runId"`
	At     time.Time `json:"at"`
	Levels []Level   `json:"levels"`
	// Err joins the per-target errors; nil when every target succeeded.
	Err error `json:"-"`
}

// Config configures a Monitor.
type Config struct {
	Interval time.Duration
	Targets  []Target
}

// Monitor periodically reconciles its targets off the caller's goroutine.
//
// Snapshots are delivered on a channel holding one pending value. A consumer
// that falls behind sees the most recent snapshot; older undelivered ones are
// dropped and the refresh loop never blocks.
type Monitor struct {
	stock    Reconciler
	interval time.Duration
	targets  []Target
	out      chan Snapshot

	lifecycleMu sync.Mutex
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	started     bool
	stopped     bool
}

// New creates a monitor. A non-positive interval uses DefaultInterval.
func New(r Reconciler, cfg Config) *Monitor {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	targets := make([]Target, len(cfg.Targets))
	copy(targets, cfg.Targets)

	return &Monitor{
		stock:    r,
		interval: interval,
		targets:  targets,
		out:      make(chan Snapshot, 1),
	}
}

// Snapshots returns the delivery channel. It is closed by Stop.
func (m *Monitor) Snapshots() <-chan Snapshot {
	return m.out
}

// Start runs one refresh immediately and then one per interval until ctx ends or Stop is called.
func (m *Monitor) Start(ctx context.Context) error {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()

	if m.stopped {
		return errors.New("monitor: already stopped")
	}
	if m.started {
		return errors.New("monitor: already started")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.started = true

	m.wg.Add(1)
	go m.loop(loopCtx)

	logger.Info(ctx, "stock monitor started",
		"interval", m.interval,
		"targets", len(m.targets),
	)
	return nil
}

// Stop cancels the loop, waits for it and closes the snapshot channel.
// It is safe to call more than once.
func (m *Monitor) Stop() {
	m.lifecycleMu.Lock()
	if m.stopped {
		m.lifecycleMu.Unlock()
		return
	}
	m.stopped = true
	cancel := m.cancel
	m.cancel = nil
	m.lifecycleMu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
	close(m.out)
	logger.Info(context.Background(), "stock monitor stopped")
}

func (m *Monitor) loop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.publish(m.RunOnce(ctx))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := m.RunOnce(ctx)
			if ctx.Err() != nil {
				return
			}
			m.publish(snap)
		}
	}
}

// RunOnce reconciles every target synchronously.
func (m *Monitor) RunOnce(ctx context.Context) Snapshot {
	snap := Snapshot{
		RunID:  uuid.New(),
		At:     time.Now().UTC(),
		Levels: make([]Level, 0, len(m.targets)),
	}

	trace := appctx.NewTraceContext()
	trace.RequestID = snap.RunID.String()
	ctx = appctx.WithTrace(ctx, trace)

	var errs []error
	for _, t := range m.targets {
		qty, err := m.stock.Reconcile(ctx, t.query())
		if err != nil {
			err = fmt.Errorf("target %s: %w", t, err)
			errs = append(errs, err)
		}
		snap.Levels = append(snap.Levels, Level{Target: t, Quantity: qty, Err: err})
	}
	snap.Err = errors.Join(errs...)

	if snap.Err != nil {
		logger.Warn(ctx, "stock refresh completed with errors",
			"run_id", snap.RunID,
			"failed", len(errs),
			"error", snap.Err,
		)
	} else {
		logger.Debug(ctx, "stock refresh completed",
			"run_id", snap.RunID,
			"targets", len(snap.Levels),
		)
	}
	return snap
}

// publish delivers s, replacing an undelivered snapshot. Only the loop goroutine sends.
func (m *Monitor) publish(s Snapshot) {
	select {
	case m.out <- s:
		return
	default:
	}

	select {
	case <-m.out:
	default:
	}

	select {
	case m.out <- s:
	default:
	}
}
