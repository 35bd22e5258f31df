package client

import (
	"context"
	"time"

	"github.com/hashicorp/consul/api"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/voc/session-api/config"
)

type ConsulClient struct {
	client     *api.Client
	name       string
	sessionTTL string
	lockWait   time.Duration
}

func NewConsulClient(conf config.ConsulConfig, name string, lockWait time.Duration) (*ConsulClient, error) {
	apiConf := api.DefaultConfig()
	if conf.Address != "" {
		apiConf.Address = conf.Address
	}
	if conf.Token != "" {
		apiConf.Token = conf.Token
	}
	apiConf.Datacenter = conf.Datacenter
	client, err := api.NewClient(apiConf)
	if err != nil {
		return nil, err
	}
	return &ConsulClient{
		client:     client,
		name:       name,
		sessionTTL: conf.SessionTTL,
		lockWait:   lockWait,
	}, nil
}

// helper method
func optsWithTimeout(parentCtx context.Context, timeout time.Duration) (*api.WriteOptions, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parentCtx, timeout)
	opts := &api.WriteOptions{}
	return opts.WithContext(ctx), cancel
}

func queryWithTimeout(parentCtx context.Context, timeout time.Duration) (*api.QueryOptions, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parentCtx, timeout)
	opts := &api.QueryOptions{RequireConsistent: true}
	return opts.WithContext(ctx), cancel
}

func (cc *ConsulClient) Get(ctx context.Context, key string) (*Entry, error) {
	opts, cancel := queryWithTimeout(ctx, time.Second*5)
	defer cancel()
	pair, _, err := cc.client.KV().Get(key, opts)
	if err != nil {
		return nil, errors.Wrap(err, "consul get")
	}
	if pair == nil {
		return nil, ErrKeyNotFound
	}
	return &Entry{Key: pair.Key, Value: pair.Value, Index: pair.ModifyIndex}, nil
}

func (cc *ConsulClient) CompareAndSwap(ctx context.Context, key string, value []byte, index uint64) (bool, error) {
	p := &api.KVPair{Key: key, Value: value, ModifyIndex: index}
	opts, cancel := optsWithTimeout(ctx, time.Second*5)
	defer cancel()
	ok, _, err := cc.client.KV().CAS(p, opts)
	if err != nil {
		return false, errors.Wrap(err, "consul cas")
	}
	return ok, nil
}

// Lock acquires key through a consul session owned by this instance.
func (cc *ConsulClient) Lock(ctx context.Context, key string) (Unlocker, error) {
	lock, err := cc.client.LockOpts(&api.LockOptions{
		Key:          key,
		Value:        []byte(cc.name),
		SessionName:  cc.name,
		SessionTTL:   cc.sessionTTL,
		LockWaitTime: cc.lockWait,
		LockTryOnce:  true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "consul lock")
	}

	stop := make(chan struct{})
	acquired := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			close(stop)
		case <-acquired:
		}
	}()
	lost, err := lock.Lock(stop)
	close(acquired)
	if err != nil {
		return nil, errors.Wrap(err, "consul lock")
	}
	if lost == nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrLockTimeout
	}
	return &consulLock{lock: lock, key: key}, nil
}

type consulLock struct {
	lock *api.Lock
	key  string
}

func (l *consulLock) Unlock() error {
	if err := l.lock.Unlock(); err != nil {
		return errors.Wrap(err, "consul unlock")
	}
	// remove the key unless another instance grabbed it meanwhile
	err := l.lock.Destroy()
	if err != nil && err != api.ErrLockInUse {
		log.Debug().Err(err).Str("key", l.key).Msg("consul: destroy lock")
	}
	return nil
}

func (cc *ConsulClient) Ping(ctx context.Context) error {
	leader, err := cc.client.Status().Leader()
	if err != nil {
		return errors.Wrap(err, "consul status")
	}
	if leader == "" {
		return errors.New("consul: no cluster leader")
	}
	return nil
}

func (cc *ConsulClient) Close() error {
	return nil
}
