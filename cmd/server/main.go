// RecService - Personalized News Recommendations for NewsShelf
// Copyright 2026 NewsShelf
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/newsshelf/recservice

// Command server runs the RecService HTTP API and the activity event
// worker. With -import it loads the news dataset into the catalog and
// exits.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/newsshelf/recservice/internal/api"
	"github.com/newsshelf/recservice/internal/config"
	"github.com/newsshelf/recservice/internal/database"
	"github.com/newsshelf/recservice/internal/embedding"
	"github.com/newsshelf/recservice/internal/importer"
	"github.com/newsshelf/recservice/internal/ingest"
	"github.com/newsshelf/recservice/internal/logging"
	"github.com/newsshelf/recservice/internal/recommend"
	"github.com/newsshelf/recservice/internal/supervisor"
	"github.com/newsshelf/recservice/internal/supervisor/services"
)

func main() {
	runImport := flag.Bool("import", false, "import the news dataset and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logger := logging.Logger()

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *runImport {
		if err := runCatalogImport(ctx, cfg, db); err != nil {
			logging.Fatal().Err(err).Msg("Catalog import failed")
		}
		return
	}

	engine := recommend.NewEngine(db, cfg.Recommend, logger)
	apiServer := api.NewServer(engine, db, cfg, logger)
	httpServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           apiServer.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       120 * time.Second,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddAPIService(services.NewHTTPServerService(httpServer, cfg.Server.Timeout))

	if cfg.NATS.Enabled {
		if cfg.NATS.EmbeddedServer {
			embedded, err := ingest.NewEmbeddedServer(&cfg.NATS)
			if err != nil {
				logging.Fatal().Err(err).Msg("Failed to start embedded NATS server")
			}
			defer embedded.Shutdown()
			logging.Info().Str("url", embedded.ClientURL()).Msg("Embedded NATS server started")
		}

		if err := ingest.WaitForTransport(ctx, &cfg.NATS); err != nil {
			logging.Fatal().Err(err).Msg("Activity stream transport unreachable")
		}
		if err := ingest.ProvisionStream(&cfg.NATS); err != nil {
			logging.Fatal().Err(err).Msg("Failed to provision activity stream")
		}

		subscriber, err := ingest.NewSubscriber(&cfg.NATS, ingest.NewWatermillLogger(logger))
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to create stream subscriber")
		}
		defer func() {
			if err := subscriber.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing subscriber")
			}
		}()

		worker := ingest.NewWorker(db, logger)
		tree.AddMessagingService(services.NewWorkerService(subscriber, worker))
	} else {
		logging.Warn().Msg("Activity stream disabled, running API only")
	}

	logging.Info().
		Str("addr", httpServer.Addr).
		Bool("stream", cfg.NATS.Enabled).
		Msg("RecService starting")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Fatal().Err(err).Msg("Supervisor tree failed")
	}

	if unstopped, err := tree.UnstoppedServiceReport(); err == nil && len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop before timeout")
		}
	}
	logging.Info().Msg("RecService stopped")
}

// runCatalogImport loads the dataset, with the embedding backfill when an
// encoder service is configured.
func runCatalogImport(ctx context.Context, cfg *config.Config, db *database.DB) error {
	var encoder embedding.Encoder
	if cfg.Import.GenerateEmbeddings && cfg.Embedding.URL != "" {
		encoder = embedding.NewHTTPEncoder(&cfg.Embedding)
	}
	imp := importer.New(db, encoder, &cfg.Import, logging.Logger())
	return imp.Run(ctx)
}
