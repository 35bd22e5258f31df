package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/voc/session-api/client"
	"github.com/voc/session-api/config"
	"github.com/voc/session-api/session"
	"github.com/voc/session-api/util"
)

// session-seed creates session records for local testing against a shared store.
func main() {
	configPath := flag.String("config", "config.yml", "path to configuration file")
	debug := flag.Bool("debug", false, "sets log level to debug")
	id := flag.String("id", "", "session id (random if empty)")
	endpoint := flag.String("ingest-endpoint", "", "pre-provisioned ingest endpoint, e.g. rtmps://host:443/app/")
	playback := flag.String("playback-url", "", "playback url of the pre-provisioned ingest")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// only the store section is needed here
	cfg, err := config.Load(*configPath)
	if err == nil {
		err = cfg.Store.Validate()
	}
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	var cli client.StoreAPI
	switch cfg.Store.Backend {
	case config.BackendRedis:
		cli, err = client.NewRedisClient(cfg.Store.Redis, "session-seed", cfg.Store.LockWait)
	case config.BackendConsul:
		cli, err = client.NewConsulClient(cfg.Store.Consul, "session-seed", cfg.Store.LockWait)
	default:
		log.Fatal().Str("backend", cfg.Store.Backend).Msg("seeding needs a shared store backend")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("client")
	}
	defer cli.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	util.HandleSignal(ctx, cancel)

	sess := &session.Session{ID: *id}
	if sess.ID == "" {
		sess.ID = ulid.Make().String()
	}
	if *endpoint != "" {
		sess.Ingest = &session.Ingest{Endpoint: *endpoint, PlaybackURL: *playback}
	}

	store := session.NewStore(cli, cfg.Store.Prefix, cfg.Store.UpdateAttempts)
	if err := store.Create(ctx, sess); err != nil {
		log.Fatal().Err(err).Str("session", sess.ID).Msg("create session")
	}
	log.Info().Str("session", sess.ID).Msg("created")
	json.NewEncoder(os.Stdout).Encode(sess)
}
