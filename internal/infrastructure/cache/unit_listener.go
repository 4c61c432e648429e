package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"stockledger/pkg/logger"
)

// Invalidator drops cached units of one article.
type Invalidator interface {
	Invalidate(ctx context.Context, articleID int64) error
}

// UnitListener invalidates the unit cache on PostgreSQL NOTIFY.
// The payload is the article id whose units changed; a trigger on tb_unite
// is expected to send it. Without such a trigger the cache TTL still applies.
type UnitListener struct {
	pool    *pgxpool.Pool
	channel string
	target  Invalidator

	lifecycleMu sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	started     bool
}

// NewUnitListener creates a listener on channel.
func NewUnitListener(pool *pgxpool.Pool, channel string, target Invalidator) *UnitListener {
	return &UnitListener{pool: pool, channel: channel, target: target}
}

// Start begins listening. Calling Start twice is a no-op.
func (l *UnitListener) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if l.channel == "" {
		return fmt.Errorf("unit listener: empty channel")
	}

	l.lifecycleMu.Lock()
	defer l.lifecycleMu.Unlock()
	if l.started {
		return nil
	}
	l.ctx, l.cancel = context.WithCancel(ctx)
	l.started = true

	l.wg.Add(1)
	go l.listenLoop()
	logger.Info(l.ctx, "unit cache listener started", "channel", l.channel)
	return nil
}

// Stop cancels the listener and waits for it to exit.
func (l *UnitListener) Stop() {
	l.lifecycleMu.Lock()
	if !l.started {
		l.lifecycleMu.Unlock()
		return
	}
	cancel := l.cancel
	l.started = false
	l.cancel = nil
	l.lifecycleMu.Unlock()

	cancel()
	l.wg.Wait()
	logger.Info(context.Background(), "unit cache listener stopped")
}

func (l *UnitListener) listenLoop() {
	defer l.wg.Done()

	for {
		if l.ctx.Err() != nil {
			return
		}

		conn, err := l.pool.Acquire(l.ctx)
		if err != nil {
			logger.Error(l.ctx, "failed to acquire connection for LISTEN", "error", err)
			l.sleep(time.Second)
			continue
		}

		if _, err := conn.Exec(l.ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
			logger.Error(l.ctx, "failed to LISTEN", "channel", l.channel, "error", err)
			conn.Release()
			l.sleep(time.Second)
			continue
		}

		l.waitForNotifications(conn)
		conn.Release()
	}
}

func (l *UnitListener) waitForNotifications(conn *pgxpool.Conn) {
	for {
		ctx, cancel := context.WithTimeout(l.ctx, 30*time.Second)
		n, err := conn.Conn().WaitForNotification(ctx)
		idle := errors.Is(ctx.Err(), context.DeadlineExceeded)
		cancel()

		if err != nil {
			if l.ctx.Err() != nil {
				return
			}
			if idle {
				continue
			}
			logger.Warn(l.ctx, "LISTEN connection lost", "error", err)
			return
		}

		l.handle(l.ctx, n.Payload)
	}
}

func (l *UnitListener) handle(ctx context.Context, payload string) {
	articleID, err := parseArticlePayload(payload)
	if err != nil {
		logger.Warn(ctx, "ignoring unit notification", "payload", payload, "error", err)
		return
	}
	if err := l.target.Invalidate(ctx, articleID); err != nil {
		logger.Warn(ctx, "unit cache invalidation failed", "article_id", articleID, "error", err)
		return
	}
	logger.Debug(ctx, "unit cache invalidated", "article_id", articleID)
}

func (l *UnitListener) sleep(d time.Duration) {
	select {
	case <-l.ctx.Done():
	case <-time.After(d):
	}
}

func parseArticlePayload(payload string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(payload), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("payload is not an article id: %w", err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("article id must be positive, got %d", id)
	}
	return id, nil
}
