package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/voc/session-api/encoder"
	"github.com/voc/session-api/ingest"
	"github.com/voc/session-api/session"
)

// Provisioner makes sure a session has an ingest and an encoding channel.
type Provisioner interface {
	Ensure(ctx context.Context, id string) (*session.Session, error)
}

// Controller starts and stops the channels of a session.
type Controller struct {
	store   *session.Store
	prov    Provisioner
	encoder encoder.Encoder
	ingest  ingest.Ingest
	now     func() time.Time
	log     zerolog.Logger
}

func New(store *session.Store, prov Provisioner, enc encoder.Encoder, ing ingest.Ingest) *Controller {
	return &Controller{
		store:   store,
		prov:    prov,
		encoder: enc,
		ingest:  ing,
		now:     time.Now,
		log:     log.With().Str("context", "stream").Logger(),
	}
}

// Start provisions missing channels, starts them and marks the session live.
func (c *Controller) Start(ctx context.Context, id string) (*session.Session, error) {
	sess, err := c.prov.Ensure(ctx, id)
	if err != nil {
		return nil, err
	}

	err = c.encoder.StartChannel(ctx, sess.Channel.ChannelRef)
	if errors.Is(err, encoder.ErrConflict) {
		c.log.Info().Str("session", id).Str("channel", sess.Channel.ChannelRef).Msg("encoding channel already running")
	} else if err != nil {
		return nil, fmt.Errorf("start encoding channel: %w", err)
	}

	if ref := sess.IngestChannelRef(); ref != "" {
		c.logIngest(c.ingest.StartChannel(ctx, ref), id, ref, "start ingest channel")
	}

	startedAt := c.now().UTC()
	return c.store.Update(ctx, id, func(s *session.Session) error {
		s.Streaming.IsLive = true
		s.Streaming.StartedAt = &startedAt
		return nil
	})
}

// Stop stops linked channels and marks the session offline. Without an
// encoding channel nothing was started, so no upstream is called even if an
// ingest exists. Recording state is left as is.
func (c *Controller) Stop(ctx context.Context, id string) (*session.Session, error) {
	sess, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if sess.Channel != nil {
		err := c.encoder.StopChannel(ctx, sess.Channel.ChannelRef)
		if errors.Is(err, encoder.ErrConflict) {
			c.log.Info().Str("session", id).Str("channel", sess.Channel.ChannelRef).Msg("encoding channel already stopped")
		} else if err != nil {
			return nil, fmt.Errorf("stop encoding channel: %w", err)
		}
		if ref := sess.IngestChannelRef(); ref != "" {
			c.logIngest(c.ingest.StopChannel(ctx, ref), id, ref, "stop ingest channel")
		}
	} else if sess.Ingest != nil {
		c.log.Info().Str("session", id).Msg("no encoding channel, leaving ingest untouched")
	}

	return c.store.Update(ctx, id, func(s *session.Session) error {
		s.Streaming.IsLive = false
		return nil
	})
}

// logIngest reports an ingest failure, which never fails the operation
func (c *Controller) logIngest(err error, id string, ref string, msg string) {
	switch {
	case err == nil:
	case errors.Is(err, ingest.ErrConflict):
		c.log.Info().Str("session", id).Str("ingest", ref).Msg(msg + ": already in requested state")
	case errors.Is(err, ingest.ErrNotFound):
		c.log.Warn().Str("session", id).Str("ingest", ref).Msg(msg + ": channel does not exist")
	default:
		c.log.Warn().Err(err).Str("session", id).Str("ingest", ref).Msg(msg)
	}
}
