package client

import (
	"context"
	"sync"
	"time"
)

// MemoryClient keeps everything in process. Used for tests and local runs.
type MemoryClient struct {
	mutex    sync.Mutex
	entries  map[string]*Entry
	locks    map[string]chan struct{}
	index    uint64
	lockWait time.Duration
}

func NewMemoryClient(lockWait time.Duration) *MemoryClient {
	return &MemoryClient{
		entries:  make(map[string]*Entry),
		locks:    make(map[string]chan struct{}),
		lockWait: lockWait,
	}
}

func (mc *MemoryClient) Get(ctx context.Context, key string) (*Entry, error) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()
	entry, ok := mc.entries[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return &Entry{
		Key:   entry.Key,
		Value: append([]byte(nil), entry.Value...),
		Index: entry.Index,
	}, nil
}

func (mc *MemoryClient) put(key string, value []byte) {
	mc.index++
	mc.entries[key] = &Entry{
		Key:   key,
		Value: append([]byte(nil), value...),
		Index: mc.index,
	}
}

func (mc *MemoryClient) CompareAndSwap(ctx context.Context, key string, value []byte, index uint64) (bool, error) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()
	var current uint64
	if entry, ok := mc.entries[key]; ok {
		current = entry.Index
	}
	if current != index {
		return false, nil
	}
	mc.put(key, value)
	return true, nil
}

func (mc *MemoryClient) Lock(ctx context.Context, key string) (Unlocker, error) {
	mc.mutex.Lock()
	sem, ok := mc.locks[key]
	if !ok {
		sem = make(chan struct{}, 1)
		mc.locks[key] = sem
	}
	mc.mutex.Unlock()

	timer := time.NewTimer(mc.lockWait)
	defer timer.Stop()
	select {
	case sem <- struct{}{}:
		return memoryLock(sem), nil
	case <-timer.C:
		return nil, ErrLockTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type memoryLock chan struct{}

func (l memoryLock) Unlock() error {
	<-l
	return nil
}

func (mc *MemoryClient) Ping(ctx context.Context) error {
	return nil
}

func (mc *MemoryClient) Close() error {
	return nil
}
