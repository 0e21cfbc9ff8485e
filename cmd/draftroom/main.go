package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gridironlabs/draftroom/internal/catalog"
	"github.com/gridironlabs/draftroom/internal/config"
	"github.com/gridironlabs/draftroom/internal/engine"
	"github.com/gridironlabs/draftroom/internal/events"
	"github.com/gridironlabs/draftroom/internal/gateway"
	"github.com/gridironlabs/draftroom/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	srvCfg := config.ServerConfigFromEnv()
	engineCfg, err := config.LoadEngineConfig(srvCfg.FormatPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", srvCfg.FormatPath).Msg("failed to load draft format")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cat, err := loadCatalog(srvCfg.PlayersPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", srvCfg.PlayersPath).Msg("failed to load player catalog")
	}
	log.Info().Int("players", cat.Len()).Str("path", srvCfg.PlayersPath).Msg("player catalog loaded")

	// Optional NATS connection; without it events stay in-process.
	var nc *nats.Conn
	if srvCfg.NATSURL != "" {
		nc, err = nats.Connect(srvCfg.NATSURL,
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
			nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
				log.Error().Err(err).Msg("NATS disconnected")
			}),
			nats.ReconnectHandler(func(nc *nats.Conn) {
				log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
			}),
		)
		if err != nil {
			log.Fatal().Err(err).Str("url", srvCfg.NATSURL).Msg("failed to connect to NATS")
		}
		defer nc.Close()
	}

	var (
		roomStore store.RoomStore
		pub       events.Publisher = events.NopPublisher{}
	)
	if srvCfg.UseMemory {
		log.Info().Msg("using in-memory room store")
		roomStore = store.NewMemory()
	} else {
		// The Postgres store signals changes over NATS; without it sessions
		// would never observe each other's writes.
		if nc == nil {
			log.Fatal().Msg("NATS_URL is required when using the postgres store")
		}
		dbCfg := config.DBConfigFromEnv()
		pool, err := pgxpool.New(ctx, dbCfg.DSN())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to ping database")
		}
		log.Info().Str("database", dbCfg.Database).Msg("connected to postgres")
		roomStore = store.NewPostgres(pool, nc)
	}
	if nc != nil {
		pub = events.NewNATSPublisher(nc)
	}

	manager := engine.NewManager(roomStore, cat, pub, clockwork.NewRealClock(), engineCfg)
	defer manager.Close()

	// WebSocket fan-out, fed by NATS when available.
	service := gateway.NewService(manager, roomStore, nil)
	conns := gateway.NewConnectionManager(gateway.DefaultConnectionConfig(), service)
	service.AttachConnections(conns)
	go conns.Start(ctx)

	if nc != nil {
		consumerCfg := gateway.DefaultConsumerConfig()
		consumerCfg.URL = srvCfg.NATSURL
		consumer, err := gateway.NewEventConsumer(conns, consumerCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to set up event consumer")
		}
		defer consumer.Stop()
		go func() {
			if err := consumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("event consumer failed")
			}
		}()
	}

	server := gateway.NewServer(srvCfg.Addr, service)
	go func() {
		log.Info().Str("addr", srvCfg.Addr).Msg("draft room server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	cancel()
	log.Info().Msg("draft room shutdown complete")
}

// loadCatalog picks the loader by file extension: .db/.sqlite use the SQLite
// loader, everything else is treated as CSV.
func loadCatalog(path string) (*catalog.Catalog, error) {
	if strings.HasSuffix(path, ".db") || strings.HasSuffix(path, ".sqlite") {
		players, err := catalog.LoadSQLite(path)
		if err != nil {
			return nil, err
		}
		return catalog.New(players), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	players, err := catalog.LoadCSV(f)
	if err != nil {
		return nil, err
	}
	return catalog.New(players), nil
}
