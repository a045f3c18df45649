// The escrowd command serves the document escrow API.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/docvault/document-escrow-backend/aggsig"
	"github.com/docvault/document-escrow-backend/cryptoutils"
	"github.com/docvault/document-escrow-backend/escrow"
	"github.com/docvault/document-escrow-backend/httpserver"
	"github.com/docvault/document-escrow-backend/interfaces"
	"github.com/docvault/document-escrow-backend/secretshare"
	"github.com/docvault/document-escrow-backend/storage"

	flagutils "github.com/docvault/document-escrow-backend/cmd/flags"
)

func main() {
	app := &cli.App{
		Name:  "escrowd",
		Usage: "Serve the dispute-proof document escrow API",
		Flags: flagutils.CommonFlags,
		Action: func(cCtx *cli.Context) error {
			logger := flagutils.SetupLogger(cCtx)

			// Resolve the configured blob backends into one redundant unit.
			var locations []interfaces.StorageBackendLocation
			for _, uri := range cCtx.StringSlice(flagutils.StorageFlag.Name) {
				loc, err := interfaces.NewStorageBackendLocation(uri)
				if err != nil {
					logger.Error("Invalid storage URI", "uri", uri, "err", err)
					return err
				}
				locations = append(locations, loc)
			}

			factory := storage.NewFactory(logger)
			blobs, err := factory.CreateMultiBackend(locations)
			if err != nil {
				logger.Error("Failed to create storage backends", "err", err)
				return err
			}
			logger.Info("Storage configured", "location", blobs.LocationURI())

			service, err := escrow.NewService(&escrow.Config{
				Repository:  storage.NewRepository(),
				Engine:      aggsig.NewEngine(),
				Envelopes:   cryptoutils.NewEnvelopeCipher(),
				Splitter:    secretshare.NewSplitter(),
				Commitments: cryptoutils.NewCommitter(),
				Blobs:       blobs,
				Log:         logger,
			})
			if err != nil {
				logger.Error("Failed to create escrow service", "err", err)
				return err
			}

			cfg := flagutils.ConfigureServer(cCtx, logger)
			server, err := httpserver.New(cfg, httpserver.NewHandler(service, logger))
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			server.RunInBackground()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
			<-exit

			logger.Info("Shutting down")
			server.Shutdown()
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
