package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"wedding-rsvp/internal/app"
	"wedding-rsvp/internal/config"
	"wedding-rsvp/internal/importer"
	"wedding-rsvp/internal/logging"
)

func main() {
	file := pflag.StringP("file", "f", "guests.xlsx", "guest list workbook")
	sheet := pflag.String("sheet", "", "sheet name (defaults to the first sheet)")
	pflag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	deps, err := app.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up storage")
	}
	defer deps.Close()

	res, err := importer.New(deps.Store, cfg.DefaultCountryCode, log).Import(ctx, *file, *sheet)
	if err != nil {
		log.Error().Err(err).Str("file", *file).Msg("Import failed")
		deps.Close()
		os.Exit(1)
	}

	fmt.Printf("✅ Imported %d of %d guests (%d without phone, %d failed)\n", res.Imported, res.Rows, res.Skipped, res.Failed)
}
