package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/legit-games/oauth2-core/config"
	"github.com/legit-games/oauth2-core/migrate"
)

func main() {
	command := flag.String("cmd", "up", "up, down, status, version, up-to, down-to, redo, reset")
	target := flag.Int64("target", 0, "version for up-to/down-to")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrate failed: %v\n", err)
		os.Exit(1)
	}
	logger := cfg.Logger().With("component", "migrate")

	if err := migrate.Run(migrate.Options{
		DSN:     cfg.Store.DSN,
		Command: *command,
		Target:  *target,
		Logger:  slog.NewLogLogger(logger.Handler(), slog.LevelInfo),
	}); err != nil {
		fmt.Fprintf(os.Stderr, "migrate failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("migrate completed successfully")
}
