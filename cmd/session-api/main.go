package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"

	"github.com/Showmax/go-fqdn"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/voc/session-api/api"
	"github.com/voc/session-api/client"
	"github.com/voc/session-api/config"
	"github.com/voc/session-api/encoder"
	"github.com/voc/session-api/ingest"
	"github.com/voc/session-api/metrics"
	"github.com/voc/session-api/provision"
	"github.com/voc/session-api/record"
	"github.com/voc/session-api/rest"
	"github.com/voc/session-api/session"
	"github.com/voc/session-api/stream"
	"github.com/voc/session-api/util"
)

func getHostname() string {
	name, err := fqdn.FqdnHostname()
	if err != nil {
		log.Error().Err(err).Msg("fqdn")
		if err != fqdn.ErrFqdnNotFound {
			return name
		}

		name, err = os.Hostname()
		if err != nil {
			log.Fatal().Err(err).Msg("hostname")
		}
	}
	return name
}

func newStoreClient(cfg config.StoreConfig, name string) (client.StoreAPI, error) {
	switch cfg.Backend {
	case config.BackendRedis:
		return client.NewRedisClient(cfg.Redis, name, cfg.LockWait)
	case config.BackendMemory:
		log.Warn().Msg("using in-memory store, sessions are lost on exit")
		return client.NewMemoryClient(cfg.LockWait), nil
	default:
		return client.NewConsulClient(cfg.Consul, name, cfg.LockWait)
	}
}

func main() {
	configPath := flag.String("config", "config.yml", "path to configuration file")
	debug := flag.Bool("debug", false, "sets log level to debug")
	jsonLog := flag.Bool("json", false, "log json instead of console output")
	addr := flag.String("addr", "", "override api listen address")
	name := flag.String("name", "", "set instance name (defaults to fqdn)")
	flag.Parse()

	if !*jsonLog {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if *name == "" {
		*name = getHostname()
	}

	// parse config
	cfg, err := config.Parse(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	if *addr != "" {
		cfg.API.Address = *addr
	}

	// connect to store
	log.Debug().Str("backend", cfg.Store.Backend).Msg("Creating client")
	cli, err := newStoreClient(cfg.Store, *name)
	if err != nil {
		log.Fatal().Err(err).Msg("client")
	}
	defer cli.Close()
	store := session.NewStore(cli, cfg.Store.Prefix, cfg.Store.UpdateAttempts)

	var m *metrics.Metrics
	if cfg.Metrics.Enable {
		m = metrics.New()
		m.Register(metrics.NewStoreCollector(store, cfg.Store.LockWait))
	}
	observe := func(service string) rest.Option {
		if m == nil {
			return func(*rest.Client) {}
		}
		return rest.WithObserver(m.Upstream(service))
	}

	encoderAPI, err := rest.New("encoder", cfg.Encoder.API, observe("encoder"))
	if err != nil {
		log.Fatal().Err(err).Msg("encoder")
	}
	ingestAPI, err := rest.New("ingest", cfg.Ingest.API, observe("ingest"))
	if err != nil {
		log.Fatal().Err(err).Msg("ingest")
	}
	enc := encoder.NewHTTPEncoder(encoderAPI)
	ing := ingest.NewHTTPIngest(ingestAPI)

	prov := provision.New(store, cli, enc, ing, cfg.Provision, cfg.Store.Prefix)
	router := api.NewRouter(store, prov, stream.New(store, prov, enc, ing), record.New(store, enc), api.Options{
		AllowedOrigins: cfg.API.AllowedOrigins,
		Metrics:        m,
		ServeMetrics:   cfg.Metrics.Address == "",
		Checks: map[string]api.HealthChecker{
			"encoder": enc,
			"ingest":  ing,
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	servers := []*http.Server{{Addr: cfg.API.Address, Handler: router}}
	if m != nil && cfg.Metrics.Address != "" {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", m.Handler())
		servers = append(servers, &http.Server{Addr: cfg.Metrics.Address, Handler: metricsMux})
	}
	for _, srv := range servers {
		listener, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			log.Fatal().Err(err).Msgf("listen on %s", srv.Addr)
		}
		log.Info().Str("addr", listener.Addr().String()).Str("name", *name).Msg("serving")
		go func(srv *http.Server) {
			if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("serve")
				cancel()
			}
		}(srv)
	}

	util.GracefulShutdown(ctx, func(ctx context.Context) {
		for _, srv := range servers {
			if err := srv.Shutdown(ctx); err != nil {
				log.Error().Err(err).Msg("server shutdown")
			}
		}
	}, cfg.API.ShutdownTimeout)
}
