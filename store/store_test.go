package store

import (
	"log"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/legit-games/oauth2-core/migrate"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	migrateOnce sync.Once
	migrateErr  error
)

// getTestGormDB opens the Postgres database named by AUTH_TEST_DSN and runs
// the migrations once per test binary. Tests skip without it.
func getTestGormDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("AUTH_TEST_DSN"))
	if dsn == "" {
		t.Skip("AUTH_TEST_DSN not set")
	}
	migrateOnce.Do(func() {
		migrateErr = migrate.Run(migrate.Options{
			DSN:    dsn,
			Logger: log.New(os.Stdout, "[store-migrate] ", log.LstdFlags),
		})
	})
	if migrateErr != nil {
		t.Fatalf("migrate: %v", migrateErr)
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func getTestValkey(t *testing.T) *ValkeyTokenStore {
	t.Helper()
	addr := strings.TrimSpace(os.Getenv("AUTH_TEST_VALKEY_ADDR"))
	if addr == "" {
		t.Skip("AUTH_TEST_VALKEY_ADDR not set")
	}
	ts, err := NewValkeyTokenStore(addr, "oauth2test:")
	if err != nil {
		t.Fatalf("valkey: %v", err)
	}
	t.Cleanup(ts.Close)
	return ts
}
