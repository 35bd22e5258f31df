package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/voc/session-api/client"
	"github.com/voc/session-api/errs"
	"gotest.tools/v3/assert"
)

// racingKV writes a competing update right before the first compare-and-swap
type racingKV struct {
	*client.MemoryClient
	race func()
	cas  int
}

func (r *racingKV) CompareAndSwap(ctx context.Context, key string, value []byte, index uint64) (bool, error) {
	r.cas++
	if r.race != nil {
		race := r.race
		r.race = nil
		race()
	}
	return r.MemoryClient.CompareAndSwap(ctx, key, value, index)
}

func newTestStore(t *testing.T, kv Backend) *Store {
	t.Helper()
	s := NewStore(kv, "live", 3)
	s.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestGetMissing(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, client.NewMemoryClient(time.Second))
	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, errs.ErrSessionNotFound)

	_, err = s.Update(context.Background(), "missing", func(*Session) error { return nil })
	assert.ErrorIs(t, err, errs.ErrSessionNotFound)
}

func TestCreateAndGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t, client.NewMemoryClient(time.Second))

	assert.NilError(t, s.Create(ctx, &Session{ID: "abc123"}))
	assert.ErrorIs(t, s.Create(ctx, &Session{ID: "abc123"}), errs.ErrConflict)

	sess, err := s.Get(ctx, "abc123")
	assert.NilError(t, err)
	assert.Equal(t, sess.ID, "abc123")
	assert.Assert(t, sess.Channel == nil)
	assert.Assert(t, sess.Ingest == nil)
	assert.Assert(t, !sess.Streaming.IsLive)

	var verr *errs.ValidationError
	assert.Assert(t, errors.As(s.Create(ctx, &Session{}), &verr))
}

func TestUpdateMergesConcurrentWrite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kv := &racingKV{MemoryClient: client.NewMemoryClient(time.Second)}
	s := newTestStore(t, kv)
	assert.NilError(t, s.Create(ctx, &Session{ID: "abc123"}))
	kv.cas = 0

	other := NewStore(kv.MemoryClient, "live", 1)
	kv.race = func() {
		_, err := other.Update(ctx, "abc123", func(sess *Session) error {
			sess.Recording = &Recording{IsRecording: true, ActionRef: "start-recording-abc123"}
			return nil
		})
		assert.NilError(t, err)
	}

	applied := 0
	sess, err := s.Update(ctx, "abc123", func(sess *Session) error {
		applied++
		sess.Streaming.IsLive = true
		return nil
	})
	assert.NilError(t, err)
	assert.Equal(t, applied, 2)
	assert.Equal(t, kv.cas, 2)
	assert.Assert(t, sess.Streaming.IsLive)
	assert.Assert(t, sess.Recording != nil)

	stored, err := s.Get(ctx, "abc123")
	assert.NilError(t, err)
	assert.Assert(t, stored.Streaming.IsLive)
	assert.Assert(t, stored.Recording.IsRecording)
	assert.Equal(t, stored.Recording.ActionRef, "start-recording-abc123")
	assert.Assert(t, stored.UpdatedAt.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)))
}

// alwaysLosingKV reports every compare-and-swap as lost
type alwaysLosingKV struct {
	*client.MemoryClient
}

func (alwaysLosingKV) CompareAndSwap(ctx context.Context, key string, value []byte, index uint64) (bool, error) {
	return false, nil
}

func TestUpdateGivesUp(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mem := client.NewMemoryClient(time.Second)
	assert.NilError(t, NewStore(mem, "live", 1).Create(ctx, &Session{ID: "abc123"}))

	s := newTestStore(t, alwaysLosingKV{mem})
	_, err := s.Update(ctx, "abc123", func(*Session) error { return nil })
	assert.ErrorIs(t, err, errs.ErrConflict)
}

func TestUpdateMutationErrorAborts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kv := &racingKV{MemoryClient: client.NewMemoryClient(time.Second)}
	s := newTestStore(t, kv)
	assert.NilError(t, s.Create(ctx, &Session{ID: "abc123"}))
	kv.cas = 0

	precondition := errs.Precondition("Encoding channel not found")
	_, err := s.Update(ctx, "abc123", func(*Session) error { return precondition })
	assert.ErrorIs(t, err, precondition)
	assert.Equal(t, kv.cas, 0)
}

// brokenKV fails every call
type brokenKV struct{}

var errBackend = errors.New("connection refused")

func (brokenKV) Get(context.Context, string) (*client.Entry, error) { return nil, errBackend }
func (brokenKV) CompareAndSwap(context.Context, string, []byte, uint64) (bool, error) {
	return false, errBackend
}
func (brokenKV) Ping(context.Context) error { return errBackend }

func TestStoreUnavailable(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, brokenKV{})
	_, err := s.Get(context.Background(), "abc123")
	assert.ErrorIs(t, err, errs.ErrStoreUnavailable)
	assert.ErrorIs(t, err, errBackend)
	assert.ErrorIs(t, s.Ping(context.Background()), errs.ErrStoreUnavailable)
}
