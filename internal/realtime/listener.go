package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ecolehub/vie-scolaire-api/pkg/jobs"
)

// RefreshFunc re-fetches the aggregates derived from one table. It receives
// the event so implementations can log what triggered the refresh; they must
// not try to apply the event incrementally.
type RefreshFunc func(ctx context.Context, event ChangeEvent) error

type refreshMetrics interface {
	RecordRefresh(table string)
	RecordRefreshFailure(table string)
}

// Listener subscribes to all rowchange channels and dispatches refreshes
// through a worker queue. The queue retries failed refreshes with a bounded
// delay; a refresh that keeps failing is dropped and the next event for the
// same table triggers it again.
type Listener struct {
	client  *redis.Client
	prefix  string
	queue   *jobs.Queue
	metrics refreshMetrics
	logger  *zap.Logger

	mu         sync.RWMutex
	refreshers map[string]RefreshFunc
}

// NewListener constructs a listener. Refreshers are registered per table
// before Start.
func NewListener(client *redis.Client, prefix string, queueCfg jobs.QueueConfig, metrics refreshMetrics, logger *zap.Logger) *Listener {
	if prefix == "" {
		prefix = "rowchange"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Listener{
		client:     client,
		prefix:     prefix,
		metrics:    metrics,
		logger:     logger,
		refreshers: make(map[string]RefreshFunc),
	}
	if queueCfg.Logger == nil {
		queueCfg.Logger = logger
	}
	if queueCfg.OnDrop == nil {
		queueCfg.OnDrop = func(job jobs.Job, _ error) {
			if l.metrics != nil {
				l.metrics.RecordRefreshFailure(job.Type)
			}
		}
	}
	l.queue = jobs.NewQueue("rowchange-refresh", l.handleJob, queueCfg)
	return l
}

// Register binds a refresh function to a table. Events for unregistered
// tables are ignored.
func (l *Listener) Register(table string, refresh RefreshFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refreshers[table] = refresh
}

// Start subscribes to <prefix>:* and consumes messages until the context is
// cancelled. A nil Redis client disables the bridge.
func (l *Listener) Start(ctx context.Context) {
	l.queue.Start(ctx)
	if l.client == nil {
		l.logger.Info("realtime bridge disabled, no redis client")
		return
	}
	go l.consume(ctx)
}

// Stop drains the refresh queue.
func (l *Listener) Stop() {
	l.queue.Stop()
}

// Dispatch enqueues a refresh for an event, bypassing Redis. Used by the
// consume loop and directly in tests.
func (l *Listener) Dispatch(event ChangeEvent) error {
	l.mu.RLock()
	_, known := l.refreshers[event.Table]
	l.mu.RUnlock()
	if !known {
		return nil
	}
	if l.metrics != nil {
		l.metrics.RecordRefresh(event.Table)
	}
	return l.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    event.Table,
		Payload: event,
	})
}

func (l *Listener) consume(ctx context.Context) {
	pubsub := l.client.PSubscribe(ctx, l.prefix+":*")
	defer pubsub.Close()

	l.logger.Info("realtime bridge listening", zap.String("pattern", l.prefix+":*"))
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				l.logger.Warn("skip malformed change event", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			if event.Table == "" {
				event.Table = strings.TrimPrefix(msg.Channel, l.prefix+":")
			}
			if err := l.Dispatch(event); err != nil {
				l.logger.Warn("dispatch refresh failed", zap.String("table", event.Table), zap.Error(err))
			}
		}
	}
}

func (l *Listener) handleJob(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(ChangeEvent)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}
	l.mu.RLock()
	refresh := l.refreshers[event.Table]
	l.mu.RUnlock()
	if refresh == nil {
		return nil
	}
	return refresh(ctx, event)
}
