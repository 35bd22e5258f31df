package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/voc/session-api/client"
	"github.com/voc/session-api/errs"
)

type Backend interface {
	client.KVAPI
	Ping(ctx context.Context) error
}

// Store reads and writes one JSON record per session.
type Store struct {
	kv       Backend
	prefix   string
	attempts int
	now      func() time.Time
	log      zerolog.Logger
}

func NewStore(kv Backend, prefix string, attempts int) *Store {
	if attempts <= 0 {
		attempts = 1
	}
	return &Store{
		kv:       kv,
		prefix:   prefix,
		attempts: attempts,
		now:      time.Now,
		log:      log.With().Str("context", "store").Logger(),
	}
}

func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	sess, _, err := s.load(ctx, id)
	return sess, err
}

func (s *Store) load(ctx context.Context, id string) (*Session, uint64, error) {
	entry, err := s.kv.Get(ctx, client.SessionPath(s.prefix, id))
	if errors.Is(err, client.ErrKeyNotFound) {
		return nil, 0, errs.ErrSessionNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", errs.ErrStoreUnavailable, err)
	}
	var sess Session
	if err := json.Unmarshal(entry.Value, &sess); err != nil {
		return nil, 0, fmt.Errorf("decode session %s: %w", id, err)
	}
	sess.ID = id
	return &sess, entry.Index, nil
}

// Update applies mutate to the current record and writes it back if nobody
// else wrote in between, retrying on lost races. An error returned by mutate
// aborts the update and is returned as is.
func (s *Store) Update(ctx context.Context, id string, mutate func(*Session) error) (*Session, error) {
	key := client.SessionPath(s.prefix, id)
	for attempt := 1; attempt <= s.attempts; attempt++ {
		sess, index, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := mutate(sess); err != nil {
			return nil, err
		}
		sess.UpdatedAt = s.now().UTC()
		data, err := json.Marshal(sess)
		if err != nil {
			return nil, fmt.Errorf("encode session %s: %w", id, err)
		}
		ok, err := s.kv.CompareAndSwap(ctx, key, data, index)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errs.ErrStoreUnavailable, err)
		}
		if ok {
			return sess, nil
		}
		s.log.Debug().Str("session", id).Int("attempt", attempt).Msg("concurrent update, retrying")
	}
	return nil, errs.ErrConflict
}

// Create stores a new record, failing with errs.ErrConflict if the id is taken.
func (s *Store) Create(ctx context.Context, sess *Session) error {
	if sess.ID == "" {
		return errs.Validation("Missing sessionId")
	}
	sess.UpdatedAt = s.now().UTC()
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sess.ID, err)
	}
	ok, err := s.kv.CompareAndSwap(ctx, client.SessionPath(s.prefix, sess.ID), data, 0)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrStoreUnavailable, err)
	}
	if !ok {
		return errs.ErrConflict
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.kv.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrStoreUnavailable, err)
	}
	return nil
}
