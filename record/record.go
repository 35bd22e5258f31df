package record

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/voc/session-api/encoder"
	"github.com/voc/session-api/errs"
	"github.com/voc/session-api/provision"
	"github.com/voc/session-api/session"
)

// Recorder switches the recording output of an encoding channel.
type Recorder struct {
	store   *session.Store
	encoder encoder.Encoder
	now     func() time.Time
	log     zerolog.Logger
}

func New(store *session.Store, enc encoder.Encoder) *Recorder {
	return &Recorder{
		store:   store,
		encoder: enc,
		now:     time.Now,
		log:     log.With().Str("context", "record").Logger(),
	}
}

func actionName(id string) string {
	return "start-recording-" + id
}

// Start schedules the recording output of the session channel to start now.
func (r *Recorder) Start(ctx context.Context, id string) (*session.Session, error) {
	sess, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Channel == nil {
		return nil, errs.Precondition("Encoding channel not found")
	}

	action := encoder.ScheduleAction{
		Name:           actionName(id),
		ImmediateStart: true,
		OutputSettings: encoder.HLSOutputSettings{DestinationRef: provision.StorageDestination},
	}
	if err := r.encoder.CreateScheduleAction(ctx, sess.Channel.ChannelRef, action); err != nil {
		return nil, fmt.Errorf("start recording: %w", err)
	}
	r.log.Info().Str("session", id).Str("action", action.Name).Msg("recording started")

	startedAt := r.now().UTC()
	return r.store.Update(ctx, id, func(s *session.Session) error {
		s.Recording = &session.Recording{
			IsRecording: true,
			StartedAt:   startedAt,
			ActionRef:   action.Name,
		}
		return nil
	})
}

// Stop removes the schedule action created by Start.
func (r *Recorder) Stop(ctx context.Context, id string) (*session.Session, error) {
	sess, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Channel == nil || sess.Recording == nil || sess.Recording.ActionRef == "" {
		return nil, errs.Precondition("Recording not active")
	}

	actionRef := sess.Recording.ActionRef
	if err := r.encoder.DeleteScheduleAction(ctx, sess.Channel.ChannelRef, actionRef); err != nil {
		return nil, fmt.Errorf("stop recording: %w", err)
	}
	r.log.Info().Str("session", id).Str("action", actionRef).Msg("recording stopped")

	return r.store.Update(ctx, id, func(s *session.Session) error {
		if s.Recording == nil {
			s.Recording = &session.Recording{ActionRef: actionRef}
		}
		s.Recording.IsRecording = false
		return nil
	})
}
