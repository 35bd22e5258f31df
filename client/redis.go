package client

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/voc/session-api/config"
)

// hash fields of a stored entry
const (
	fieldValue = "value"
	fieldIndex = "index"
)

const lockRetryInterval = 50 * time.Millisecond

var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisClient stores every key as a hash holding the value and a
// modification counter used for compare-and-swap.
type RedisClient struct {
	client   redis.UniversalClient
	name     string
	lockTTL  time.Duration
	lockWait time.Duration
}

func NewRedisClient(conf config.RedisConfig, name string, lockWait time.Duration) (*RedisClient, error) {
	addrs := make([]string, 0, len(conf.Addrs))
	for _, addr := range conf.Addrs {
		if trimmed := strings.TrimSpace(addr); trimmed != "" {
			addrs = append(addrs, trimmed)
		}
	}
	if len(addrs) == 0 {
		return nil, errors.New("redis addr is required")
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:       addrs,
		Username:    conf.Username,
		Password:    conf.Password,
		DB:          conf.DB,
		DialTimeout: conf.DialTimeout,
		ClientName:  name,
		MaxRetries:  2,
	})
	return newRedisClient(client, name, conf.LockTTL, lockWait), nil
}

func newRedisClient(client redis.UniversalClient, name string, lockTTL, lockWait time.Duration) *RedisClient {
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return &RedisClient{
		client:   client,
		name:     name,
		lockTTL:  lockTTL,
		lockWait: lockWait,
	}
}

func (rc *RedisClient) Get(ctx context.Context, key string) (*Entry, error) {
	res, err := rc.client.HMGet(ctx, key, fieldValue, fieldIndex).Result()
	if err != nil {
		return nil, errors.Wrap(err, "redis get")
	}
	value, ok := res[0].(string)
	if !ok {
		return nil, ErrKeyNotFound
	}
	entry := &Entry{Key: key, Value: []byte(value)}
	if raw, ok := res[1].(string); ok {
		entry.Index, err = parseIndex(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "redis get %s", key)
		}
	}
	return entry, nil
}

func (rc *RedisClient) CompareAndSwap(ctx context.Context, key string, value []byte, index uint64) (bool, error) {
	swapped := false
	err := rc.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, key, fieldIndex).Uint64()
		if err != nil && err != redis.Nil {
			return err
		}
		if current != index {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fieldValue, value)
			pipe.HIncrBy(ctx, key, fieldIndex, 1)
			return nil
		})
		if err != nil {
			return err
		}
		swapped = true
		return nil
	}, key)
	if err == redis.TxFailedErr {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "redis cas")
	}
	return swapped, nil
}

// Lock polls SET NX until the key is free or the configured wait passes.
func (rc *RedisClient) Lock(ctx context.Context, key string) (Unlocker, error) {
	token := rc.name + "/" + ulid.Make().String()
	deadline := time.Now().Add(rc.lockWait)
	ticker := time.NewTicker(lockRetryInterval)
	defer ticker.Stop()
	for {
		ok, err := rc.client.SetNX(ctx, key, token, rc.lockTTL).Result()
		if err != nil {
			return nil, errors.Wrap(err, "redis lock")
		}
		if ok {
			return &redisLock{client: rc.client, key: key, token: token}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

type redisLock struct {
	client redis.UniversalClient
	key    string
	token  string
}

func (l *redisLock) Unlock() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	err := unlockScript.Run(ctx, l.client, []string{l.key}, l.token).Err()
	return errors.Wrap(err, "redis unlock")
}

func (rc *RedisClient) Ping(ctx context.Context) error {
	return errors.Wrap(rc.client.Ping(ctx).Err(), "redis ping")
}

func (rc *RedisClient) Close() error {
	return rc.client.Close()
}

func parseIndex(raw string) (uint64, error) {
	return strconv.ParseUint(raw, 10, 64)
}
