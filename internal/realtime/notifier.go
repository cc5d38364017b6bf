package realtime

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Notifier publishes change events to per-table Redis channels named
// <prefix>:<table>. Publishing is fire-and-forget: a failed publish is logged
// and dropped, readers fall back to cache TTL expiry.
type Notifier struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewNotifier constructs a notifier. A nil client produces a no-op notifier.
func NewNotifier(client *redis.Client, prefix string, logger *zap.Logger) *Notifier {
	if prefix == "" {
		prefix = "rowchange"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{client: client, prefix: prefix, logger: logger}
}

// Publish emits a change signal for a table.
func (n *Notifier) Publish(ctx context.Context, table, eventType string) {
	if n == nil || n.client == nil {
		return
	}
	payload, err := json.Marshal(ChangeEvent{Table: table, EventType: eventType})
	if err != nil {
		n.logger.Error("marshal change event failed", zap.String("table", table), zap.Error(err))
		return
	}
	channel := n.prefix + ":" + table
	if err := n.client.Publish(ctx, channel, payload).Err(); err != nil {
		n.logger.Warn("publish change event failed", zap.String("channel", channel), zap.Error(err))
	}
}
