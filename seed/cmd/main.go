package main

import (
	"context"
	"fmt"
	"os"

	"github.com/legit-games/oauth2-core/config"
	"github.com/legit-games/oauth2-core/seed"
	"github.com/legit-games/oauth2-core/store"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Provisions the configured clients and users into the Postgres stores.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	if cfg.Store.DSN == "" {
		fmt.Fprintln(os.Stderr, "seed failed: store.dsn is not set")
		os.Exit(1)
	}
	db, err := gorm.Open(postgres.Open(cfg.Store.DSN), &gorm.Config{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}

	logger := cfg.Logger().With("component", "seed")
	if err := seed.Provision(context.Background(), cfg, store.NewDBClientStore(db), store.NewDBUserStore(db), logger); err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("seed completed successfully")
}
