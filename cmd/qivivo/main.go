package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/qivivo-client/db"
	"github.com/thatsimonsguy/qivivo-client/internal/config"
	"github.com/thatsimonsguy/qivivo-client/internal/datadog"
	"github.com/thatsimonsguy/qivivo-client/internal/device"
	"github.com/thatsimonsguy/qivivo-client/internal/logging"
	"github.com/thatsimonsguy/qivivo-client/internal/remote"
)

func main() {
	cfg := config.Load(os.Args[1:])
	logging.Init(cfg.LogLevel, cfg.LogFile)

	log.Info().
		Str("config_file", cfg.ConfigFile).
		Str("base_url", cfg.API.BaseURL).
		Msg("Starting Qivivo client")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Datadog.Enabled {
		datadog.InitMetrics(cfg.Datadog.AgentAddr, cfg.Datadog.Namespace, cfg.Datadog.Tags)
		defer datadog.Close()
	}

	opts := []device.Option{device.WithWarmUp(cfg.WarmUp())}
	if cfg.Journal.Path != "" {
		conn, err := db.Open(cfg.Journal.Path)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.Journal.Path).Msg("Failed to open reading journal")
		}
		defer conn.Close()
		opts = append(opts, device.WithRecorder(db.NewJournal(conn)))
	}

	client := remote.New(ctx, remote.Config{
		BaseURL:      cfg.API.BaseURL,
		TokenURL:     cfg.API.TokenURL,
		ClientID:     cfg.Credentials.ClientID,
		ClientSecret: cfg.Credentials.ClientSecret,
		Scopes:       cfg.API.Scopes,
		Timeout:      cfg.Timeout(),
		Location:     cfg.Location,
	})

	registry := device.NewRegistry(client, opts...)
	devices, err := registry.Discover(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Device discovery failed")
		os.Exit(1)
	}

	serials := make([]string, 0, len(devices))
	for s := range devices {
		serials = append(serials, s)
	}
	sort.Strings(serials)

	for _, s := range serials {
		for _, line := range describe(ctx, devices[s]) {
			fmt.Println(line)
		}
		fmt.Println()
	}
}
