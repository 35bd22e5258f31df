package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/voc/session-api/errs"
	"github.com/voc/session-api/session"
)

type messageResponse struct {
	Message string `json:"message"`
}

type channelResponse struct {
	Message   string `json:"message"`
	ChannelID string `json:"channelId"`
	InputID   string `json:"inputId"`
	RTMPURL   string `json:"rtmpUrl"`
}

type streamResponse struct {
	Message     string `json:"message"`
	PlaybackURL string `json:"playbackUrl"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status code and writes it as error body
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var verr *errs.ValidationError
	var perr *errs.PreconditionError
	switch {
	case errors.Is(err, errs.ErrSessionNotFound):
		status = http.StatusNotFound
		err = errs.ErrSessionNotFound
	case errors.As(err, &verr):
		status = http.StatusBadRequest
		err = verr
	case errors.As(err, &perr):
		status = http.StatusBadRequest
		err = perr
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// sessionID returns the path session id, writing a 400 if it is blank
func sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(mux.Vars(r)["sessionId"])
	if id == "" {
		writeError(w, r, errs.Validation("Missing sessionId"))
		return "", false
	}
	return id, true
}

// HandleCreateChannel creates the encoding channel of a session pushing to its
// existing ingest. Unlike stream start it never creates the ingest.
func HandleCreateChannel(store *session.Store, prov Provisioner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := sessionID(w, r)
		if !ok {
			return
		}
		ctx := r.Context()
		sess, err := store.Get(ctx, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		channel, err := prov.EnsureChannel(ctx, id, sess.Ingest)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, channelResponse{
			Message:   "Channel created",
			ChannelID: channel.ChannelRef,
			InputID:   channel.InputRef,
			RTMPURL:   channel.PushURL,
		})
	}
}

// responders build the success body of a start operation
func streamStarted(sess *session.Session) interface{} {
	return streamResponse{Message: "Streaming started", PlaybackURL: sess.PlaybackURL()}
}

func recordingStarted(*session.Session) interface{} {
	return messageResponse{Message: "Recording started"}
}

func HandleStart(ctrl Controller, respond func(*session.Session) interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := sessionID(w, r)
		if !ok {
			return
		}
		sess, err := ctrl.Start(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, respond(sess))
	}
}

func HandleStop(ctrl Controller, message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := sessionID(w, r)
		if !ok {
			return
		}
		if _, err := ctrl.Stop(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: message})
	}
}

type pinger interface {
	Ping(ctx context.Context) error
}

func HandleHealth(store pinger, checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := healthResponse{Status: "ok", Checks: map[string]string{"store": "ok"}}
		status := http.StatusOK
		fail := func(name string, err error) {
			zerolog.Ctx(r.Context()).Warn().Err(err).Str("check", name).Msg("health check failed")
			res.Checks[name] = err.Error()
			res.Status = "unavailable"
			status = http.StatusServiceUnavailable
		}
		if err := store.Ping(r.Context()); err != nil {
			fail("store", err)
		}
		for name, check := range checks {
			if err := check.Health(r.Context()); err != nil {
				fail(name, err)
				continue
			}
			res.Checks[name] = "ok"
		}
		writeJSON(w, status, res)
	}
}

func handlePreflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorResponse{Error: "Not found"})
}

func handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed"})
}
