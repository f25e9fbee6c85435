// Package presence mirrors identity online/offline transitions into Redis so
// the rest of the platform can read who is connected without touching the
// chat process. The mirror is best-effort: a Redis failure is logged and the
// connection proceeds regardless.
package presence

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// onlineKey is the set of user ids with at least one live connection.
const onlineKey = "chat:online"

const opTimeout = 2 * time.Second

type Mirror struct {
	rdb *redis.Client
	log *zap.Logger
}

func NewMirror(addr string, log *zap.Logger) *Mirror {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	return &Mirror{rdb: rdb, log: log}
}

// UserOnline records the identity's first live connection.
func (m *Mirror) UserOnline(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := m.rdb.SAdd(ctx, onlineKey, userID).Err(); err != nil {
		m.log.Warn("presence add failed", zap.String("user", userID), zap.Error(err))
	}
}

// UserOffline records that the identity's last connection left.
func (m *Mirror) UserOffline(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := m.rdb.SRem(ctx, onlineKey, userID).Err(); err != nil {
		m.log.Warn("presence remove failed", zap.String("user", userID), zap.Error(err))
	}
}

// Online returns the user ids currently marked online.
func (m *Mirror) Online(ctx context.Context) ([]string, error) {
	return m.rdb.SMembers(ctx, onlineKey).Result()
}

func (m *Mirror) Close() error {
	return m.rdb.Close()
}
