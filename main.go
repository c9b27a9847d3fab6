package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	zero "github.com/rs/zerolog/log"

	"github.com/kepler-social/kepler/internal/apub"
	"github.com/kepler-social/kepler/internal/client"
	"github.com/kepler-social/kepler/internal/config"
	db "github.com/kepler-social/kepler/internal/db/impl"
	"github.com/kepler-social/kepler/internal/federation"
	"github.com/kepler-social/kepler/internal/initialization"
	"github.com/kepler-social/kepler/internal/queue"
	"github.com/kepler-social/kepler/internal/web"
	"github.com/kepler-social/kepler/internal/wellknown"

	_ "github.com/mattn/go-sqlite3"
)

func main() {
	zero.Logger = zero.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	cfg, err := config.ReadConfig()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	d, err := initialization.OpenDB(cfg.DbUrl)
	if err != nil {
		log.Fatal(err)
	}
	zero.Info().Msg("database connection established")

	if os.Getenv("SETUP") != "" {
		if err = initialization.SetupDB(&cfg, d, cfg.MigrationsFolder, cfg.DbUrl); err != nil {
			log.Fatal(err)
		}
	}

	if err = initialization.EnsureInstance(d, &cfg); err != nil {
		log.Fatal(err)
	}

	dd := db.New(d)
	key, err := dd.PrivateKeyByIRI(context.Background(), cfg.Url)
	if err != nil {
		zero.Fatal().Err(err).Msg("instance actor has no key, run with SETUP=1 first")
	}

	fragment, _ := url.Parse("#main-key")
	keyId := cfg.Url.ResolveReference(fragment)
	httpClient, err := client.New(&http.Client{}, key, keyId)
	if err != nil {
		zero.Fatal().Err(err).Send()
	}

	backend, err := initialization.InitQueue(&cfg)
	if err != nil {
		zero.Fatal().Err(err).Msg("unable to set up the job transport")
	}
	defer backend.Close()

	deref := apub.NewDereferencer(httpClient, cfg.FetchCeiling)
	producer := queue.NewProducer(backend, dd)
	dispatcher := federation.New(dd, deref, producer, httpClient, &cfg)

	worker := queue.NewWorker(backend, dd, cfg.MaxJobFailures, federation.Permanent)
	worker.Register(queue.FederateActivityPub, dispatcher.FederateHandler())
	worker.Register(queue.DeliverActivity, queue.DeliveryHandler(dd, httpClient))
	worker.Register(queue.FanoutEvent, queue.EventHandler())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := worker.Run(ctx); err != nil && err != context.Canceled {
			zero.Error().Err(err).Msg("worker loop exited")
		}
	}()

	handler := web.New(&cfg, dd, producer)
	router := chi.NewRouter()
	handler.Mount(router)
	wellknown.Mount(dd, router)

	s := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	zero.Info().Uint16("port", cfg.Port).Msg("started server")
	if err = s.ListenAndServe(); err != nil {
		log.Fatal(err)
	}
}
