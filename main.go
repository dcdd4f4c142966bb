package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"ricardo-scout/bot"
	"ricardo-scout/config"
	"ricardo-scout/models"
	"ricardo-scout/scraper/ricardo"
	"ricardo-scout/services"
	"ricardo-scout/storage"
	"ricardo-scout/utils"
)

func main() {
	var (
		name   = flag.String("name", "", "run a single search for this name and exit")
		format = flag.String("format", "txt", "output format for -name mode: json or txt")
	)
	flag.Parse()

	cfg := config.Load()
	log := utils.NewLogger(cfg.LogLevel)
	mgr := ricardo.NewManager(cfg, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *name != "" {
		runOnce(ctx, cfg, log, mgr, *name, *format)
		return
	}

	if cfg.TelegramToken == "" {
		log.Error("TELEGRAM_TOKEN is not set; either configure the bot or use -name for a one-shot search")
		os.Exit(1)
	}

	b, err := bot.New(cfg, log, mgr)
	if err != nil {
		log.Error("could not start bot", "error", err)
		os.Exit(1)
	}
	if err := b.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error("bot stopped", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

// runOnce executes the pipeline without the chat layer and writes the
// result file to the output directory.
func runOnce(ctx context.Context, cfg *config.Config, log *slog.Logger, mgr *ricardo.Manager, name, format string) {
	q := models.SearchQuery{RawName: name, Format: models.ParseFormat(format)}

	rs, err := services.RunSearch(ctx, cfg, log, mgr, q)
	if err != nil {
		log.Error("search failed", "error", err)
		os.Exit(1)
	}

	path, err := storage.NewResultWriter(cfg.OutputDir).Write(rs)
	if err != nil {
		log.Error("could not save results", "error", err)
		os.Exit(1)
	}

	log.Info("results saved", "matches", len(rs.Listings), "file", path)
}
