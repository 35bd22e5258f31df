package provision

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/voc/session-api/client"
	"github.com/voc/session-api/config"
	"github.com/voc/session-api/encoder"
	"github.com/voc/session-api/errs"
	"github.com/voc/session-api/ingest"
	"github.com/voc/session-api/session"
)

// errAlreadyProvisioned aborts a write when the field appeared meanwhile
var errAlreadyProvisioned = errors.New("already provisioned")

// Provisioner creates the ingest and encoding channel of a session at most
// once. Creation is serialized per session through a store lock.
type Provisioner struct {
	store   *session.Store
	locks   client.LockAPI
	encoder encoder.Encoder
	ingest  ingest.Ingest
	conf    config.ProvisionConfig
	prefix  string
	log     zerolog.Logger
}

func New(store *session.Store, locks client.LockAPI, enc encoder.Encoder, ing ingest.Ingest, conf config.ProvisionConfig, prefix string) *Provisioner {
	return &Provisioner{
		store:   store,
		locks:   locks,
		encoder: enc,
		ingest:  ing,
		conf:    conf,
		prefix:  prefix,
		log:     log.With().Str("context", "provision").Logger(),
	}
}

func (p *Provisioner) lock(ctx context.Context, id string) (func(), error) {
	unlocker, err := p.locks.Lock(ctx, client.ProvisionLockPath(p.prefix, id))
	if err != nil {
		return nil, fmt.Errorf("provisioning lock: %w", err)
	}
	return func() {
		if err := unlocker.Unlock(); err != nil {
			p.log.Warn().Err(err).Str("session", id).Msg("release lock")
		}
	}, nil
}

// EnsureChannel returns the encoding channel of a session, creating input
// and channel if missing. The channel pushes to the given ingest, which must
// already exist.
func (p *Provisioner) EnsureChannel(ctx context.Context, id string, ing *session.Ingest) (*session.Channel, error) {
	sess, err := p.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !hasEndpoint(ing) {
		return nil, errs.Precondition("Ingest endpoint not found")
	}
	if sess.Channel != nil {
		return sess.Channel, nil
	}

	unlock, err := p.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return p.ensureChannel(ctx, id, ing)
}

// Ensure provisions ingest and channel of a session lacking a channel and
// returns the current record.
func (p *Provisioner) Ensure(ctx context.Context, id string) (*session.Session, error) {
	sess, err := p.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Channel != nil {
		return sess, nil
	}

	unlock, err := p.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	ing, err := p.ensureIngest(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := p.ensureChannel(ctx, id, ing); err != nil {
		return nil, err
	}
	return p.store.Get(ctx, id)
}

// ensureIngest must be called with the session lock held
func (p *Provisioner) ensureIngest(ctx context.Context, id string) (*session.Ingest, error) {
	sess, err := p.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Ingest != nil {
		return sess.Ingest, nil
	}

	channel, err := p.ingest.CreateChannel(ctx, ingest.ChannelRequest{
		Name:        p.resourceName("ingest", id),
		Type:        p.conf.IngestChannelType,
		LatencyMode: p.conf.IngestLatencyMode,
	})
	if err != nil {
		return nil, fmt.Errorf("create ingest channel: %w", err)
	}
	rec := &session.Ingest{
		Endpoint:    ingestURL(channel.IngestEndpoint),
		ChannelRef:  channel.Ref,
		PlaybackURL: channel.PlaybackURL,
	}
	p.log.Info().Str("session", id).Str("ingest", channel.Ref).Msg("created ingest channel")

	updated, err := p.store.Update(ctx, id, func(s *session.Session) error {
		if s.Ingest != nil {
			return errAlreadyProvisioned
		}
		s.Ingest = rec
		return nil
	})
	if errors.Is(err, errAlreadyProvisioned) {
		p.log.Warn().Str("session", id).Str("ingest", channel.Ref).Msg("orphaned ingest channel, session already has one")
		sess, err := p.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return sess.Ingest, nil
	}
	if err != nil {
		return nil, err
	}
	return updated.Ingest, nil
}

// ensureChannel must be called with the session lock held
func (p *Provisioner) ensureChannel(ctx context.Context, id string, ing *session.Ingest) (*session.Channel, error) {
	sess, err := p.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Channel != nil {
		return sess.Channel, nil
	}
	if !hasEndpoint(ing) {
		return nil, errs.Precondition("Ingest endpoint not found")
	}

	input, err := p.encoder.CreateInput(ctx, p.inputRequest(id))
	if err != nil {
		return nil, fmt.Errorf("create input: %w", err)
	}
	channel, err := p.encoder.CreateChannel(ctx, p.channelRequest(id, input.ID, ing.Endpoint))
	if err != nil {
		p.log.Warn().Str("session", id).Str("input", input.ID).Msg("input left without channel")
		return nil, fmt.Errorf("create channel: %w", err)
	}
	rec := &session.Channel{
		ChannelRef: channel.ID,
		InputRef:   input.ID,
		PushURL:    input.PushURL(),
	}
	p.log.Info().Str("session", id).Str("channel", channel.ID).Str("input", input.ID).Msg("created encoding channel")

	updated, err := p.store.Update(ctx, id, func(s *session.Session) error {
		if s.Channel != nil {
			return errAlreadyProvisioned
		}
		s.Channel = rec
		return nil
	})
	if errors.Is(err, errAlreadyProvisioned) {
		p.log.Warn().Str("session", id).Str("channel", channel.ID).Str("input", input.ID).Msg("orphaned encoding channel, session already has one")
		sess, err := p.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return sess.Channel, nil
	}
	if err != nil {
		return nil, err
	}
	return updated.Channel, nil
}

func hasEndpoint(ing *session.Ingest) bool {
	return ing != nil && ing.Endpoint != ""
}
