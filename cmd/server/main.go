package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/embedvm/session-broker/internal/api"
	"github.com/embedvm/session-broker/internal/config"
	"github.com/embedvm/session-broker/internal/credential"
	"github.com/embedvm/session-broker/internal/provider"
	"github.com/embedvm/session-broker/internal/storage"
	"github.com/embedvm/session-broker/internal/storage/memory"
	"github.com/embedvm/session-broker/internal/storage/postgres"
	"github.com/embedvm/session-broker/internal/task"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Set up zerolog to use pretty printing
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out: os.Stderr,
	})
	log.Info().Msg("starting up...")

	// Load the application configuration
	log.Info().Msg("loading configuration...")
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("could not load the configuration")
	}
	if cfg.IsEnvProduction() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Debug().Str("config", fmt.Sprintf("%+v", cfg)).Msg("")

	// Initialize the lease registry storage driver
	var driver storage.Driver
	if cfg.PostgresDSN != "" {
		log.Info().Msg("initializing database connection...")
		driver = postgres.New(cfg.PostgresDSN)
	} else {
		log.Info().Msg("initializing in-memory lease registry...")
		driver = memory.New()
	}
	if err := driver.Initialize(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("could not initialize the lease registry")
	}
	defer driver.Close()

	// Schedule a task that sweeps expired leases out of the registry
	sweepingTask := task.NewRepeating(func() {
		n, err := driver.Leases().DeleteExpired(context.Background())
		if err != nil {
			log.Error().Err(err).Msg("could not sweep expired session leases")
		} else if n > 0 {
			log.Info().Int("amount", n).Msg("swept expired session leases")
		}
	}, time.Minute)
	sweepingTask.Start()
	defer sweepingTask.Stop(true)

	// Choose the credential codec
	var codec credential.Codec = &credential.PlainCodec{}
	if cfg.CredentialSigningKey != "" {
		signed, err := credential.NewSignedCodec(cfg.CredentialSigningKey)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid credential signing key")
		}
		codec = signed
		log.Info().Msg("credential cookies are encrypted and signed")
	}

	if cfg.ProviderAPIKey == "" {
		log.Warn().Msg("no provider API key is configured; session creation will fail until one is set")
	}

	// Start up the broker API
	log.Info().Str("listen_address", cfg.ListenAddress).Msg("starting up the broker API...")
	apiService := &api.Service{
		Config:   cfg,
		Storage:  driver,
		Provider: provider.NewHTTPClient(cfg.ProviderBaseURL, cfg.ProviderAPIKey),
		Codec:    codec,
	}
	apiErrs := make(chan error, 1)
	apiService.Startup(apiErrs)
	go func() {
		err := <-apiErrs
		log.Fatal().Err(err).Msg("the API service raised an unexpected error")
	}()
	defer func() {
		log.Info().Msg("shutting down the broker API...")
		apiService.Shutdown()
	}()

	log.Info().Msg("done!")
	defer log.Info().Msg("shutting down...")

	// Wait for the application to be terminated
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt)
	<-shutdown
}
