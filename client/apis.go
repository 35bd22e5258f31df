package client

import (
	"context"
	"errors"
)

var (
	ErrKeyNotFound = errors.New("key not found")
	ErrLockTimeout = errors.New("timed out waiting for lock")
)

// Entry is a stored value together with the index of its last modification.
type Entry struct {
	Key   string
	Value []byte
	Index uint64
}

type KVAPI interface {
	// Get returns ErrKeyNotFound if the key does not exist
	Get(ctx context.Context, key string) (*Entry, error)
	// CompareAndSwap writes value only if the key was last modified at index.
	// Index 0 requires the key to not exist yet.
	CompareAndSwap(ctx context.Context, key string, value []byte, index uint64) (bool, error)
}

type Unlocker interface {
	Unlock() error
}

type LockAPI interface {
	// Lock blocks until the key is held, the backend wait time passes
	// (ErrLockTimeout) or ctx is done.
	Lock(ctx context.Context, key string) (Unlocker, error)
}

type StoreAPI interface {
	KVAPI
	LockAPI
	Ping(ctx context.Context) error
	Close() error
}
