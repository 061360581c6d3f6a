package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"solsentinel/internal/domain"
)

const (
	zsetKey = "enrichment:queue"
	hashKey = "enrichment:tasks"
)

// popScript atomically pops the lowest-scoring ready member: it looks up
// the single lowest score not exceeding the ready ceiling, removes it from
// both the sorted set and the task hash, and returns its serialized body.
// Doing this as one script avoids a race between two workers popping the
// same task between the ZRANGEBYSCORE read and the ZREM.
var popScript = redis.NewScript(`
local ready = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, 1)
if #ready == 0 then
	return false
end
local member = ready[1]
redis.call('ZREM', KEYS[1], member)
local data = redis.call('HGET', KEYS[2], member)
redis.call('HDEL', KEYS[2], member)
return data
`)

// RedisStore is the primary queue backing store: a sorted set orders tasks
// by SortScore, a parallel hash holds their serialized bodies keyed by
// dedup key.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr string) *RedisStore {
	return &RedisStore{client: redis.NewClient(&redis.Options{Addr: addr})}
}

// Ping verifies connectivity, wrapping failures in ErrUnavailable so Queue
// can decide to fall back.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Put(ctx context.Context, task domain.EnrichmentTask) error {
	data, err := marshalTask(task)
	if err != nil {
		return err
	}
	key := task.Key()
	score := float64(SortScore(task))

	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, zsetKey, redis.Z{Score: score, Member: key})
	pipe.HSet(ctx, hashKey, key, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: put task %s: %v", ErrUnavailable, key, err)
	}
	return nil
}

func (s *RedisStore) Pop(ctx context.Context, now time.Time) (*domain.EnrichmentTask, error) {
	ceiling := fmt.Sprintf("%d", maxReadyScore(now))
	res, err := popScript.Run(ctx, s.client, []string{zsetKey, hashKey}, ceiling).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: pop: %v", ErrUnavailable, err)
	}
	if b, ok := res.(bool); ok && !b {
		return nil, nil
	}
	data, ok := res.(string)
	if !ok {
		return nil, nil
	}
	task, err := unmarshalTask([]byte(data))
	if err != nil {
		return nil, err
	}

	// maxReadyScore's ceiling only bounds normal-priority PRE_SCAN tasks; a
	// migration task's priority term and a non-PRE_SCAN task's stage
	// bucket are zero, so popScript can surface one whose ScheduledAt is
	// still in the future. Put it back rather than honor a pop that skips
	// its grace period.
	if task.ScheduledAt.After(now.Add(readyGrace)) {
		if err := s.Put(ctx, task); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return &task, nil
}

func (s *RedisStore) Size(ctx context.Context) (int64, error) {
	n, err := s.client.ZCard(ctx, zsetKey).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: size: %v", ErrUnavailable, err)
	}
	return n, nil
}

func (s *RedisStore) All(ctx context.Context) ([]domain.EnrichmentTask, error) {
	raw, err := s.client.HGetAll(ctx, hashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: all: %v", ErrUnavailable, err)
	}
	out := make([]domain.EnrichmentTask, 0, len(raw))
	for _, v := range raw {
		task, err := unmarshalTask([]byte(v))
		if err != nil {
			continue
		}
		out = append(out, task)
	}
	return out, nil
}

func (s *RedisStore) PurgeStale(ctx context.Context, now time.Time) (int, error) {
	all, err := s.All(ctx)
	if err != nil {
		return 0, err
	}
	var removed int
	for _, task := range all {
		if task.ScheduledAt.Before(stalenessDeadline(task.Stage, now)) {
			key := task.Key()
			pipe := s.client.TxPipeline()
			pipe.ZRem(ctx, zsetKey, key)
			pipe.HDel(ctx, hashKey, key)
			if _, err := pipe.Exec(ctx); err != nil {
				return removed, fmt.Errorf("%w: purge %s: %v", ErrUnavailable, key, err)
			}
			removed++
		}
	}
	return removed, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
