// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultQueueName is the Redis list (queue) name for game action logs.
const DefaultQueueName = "forty_actions"

// GameActionRecord holds the minimal info needed by the historian worker.
type GameActionRecord struct {
	GameID        uuid.UUID              `json:"game_id"`
	ActionIndex   int                    `json:"action_index"`
	ActorPlayerID uuid.UUID              `json:"actor_player_id"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload"`
	Timestamp     int64                  `json:"timestamp"`
}

// EndsGame reports whether the action produced a winner.
func (r GameActionRecord) EndsGame() bool {
	if r.ActionType != "playCard" {
		return false
	}
	w, ok := r.ActionPayload["winner"].(string)
	return ok && w != ""
}

// ErrBadRecord marks a queue entry that could not be decoded. The entry is consumed.
var ErrBadRecord = errors.New("undecodable action record")

// Options configures the Redis connection.
type Options struct {
	Addr      string
	DB        int
	QueueName string
}

// Connect creates a Redis client and verifies it answers a PING.
func Connect(ctx context.Context, opts Options) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: opts.Addr,
		DB:   opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}
	return rdb, nil
}

// ActionQueue pushes committed game actions onto a Redis list for the historian.
type ActionQueue struct {
	rdb       redis.Cmdable
	queueName string
	logger    *logrus.Logger
	timeout   time.Duration
}

// NewActionQueue wraps a Redis client. An empty queue name falls back to DefaultQueueName.
func NewActionQueue(rdb redis.Cmdable, queueName string, logger *logrus.Logger) *ActionQueue {
	if queueName == "" {
		queueName = DefaultQueueName
	}
	return &ActionQueue{rdb: rdb, queueName: queueName, logger: logger, timeout: 2 * time.Second}
}

// PublishGameAction serializes the given record to JSON, then pushes it to the Redis queue.
func (q *ActionQueue) PublishGameAction(ctx context.Context, record GameActionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal GameActionRecord: %w", err)
	}
	if err := q.rdb.RPush(ctx, q.queueName, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", q.queueName, err)
	}
	return nil
}

// LogAction publishes asynchronously so game logic never waits on Redis.
func (q *ActionQueue) LogAction(rec GameActionRecord) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		defer cancel()
		if err := q.PublishGameAction(ctx, rec); err != nil && q.logger != nil {
			q.logger.WithFields(logrus.Fields{
				"game":   rec.GameID,
				"action": rec.ActionIndex,
			}).Warnf("publish game action: %v", err)
		}
	}()
}

// PopGameAction blocks up to timeout for the next record. ok is false when the wait timed out.
func (q *ActionQueue) PopGameAction(ctx context.Context, timeout time.Duration) (rec GameActionRecord, ok bool, err error) {
	res, err := q.rdb.BLPop(ctx, timeout, q.queueName).Result()
	if errors.Is(err, redis.Nil) {
		return rec, false, nil
	}
	if err != nil {
		return rec, false, fmt.Errorf("BLPop %s: %w", q.queueName, err)
	}
	// res[0] is the queue name and res[1] the payload
	if len(res) < 2 {
		return rec, false, nil
	}
	if err := json.Unmarshal([]byte(res[1]), &rec); err != nil {
		return rec, false, fmt.Errorf("%w: %v", ErrBadRecord, err)
	}
	return rec, true, nil
}
