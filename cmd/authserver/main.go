package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-session/session/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/legit-games/oauth2-core"
	"github.com/legit-games/oauth2-core/config"
	"github.com/legit-games/oauth2-core/generates"
	"github.com/legit-games/oauth2-core/manage"
	"github.com/legit-games/oauth2-core/migrate"
	"github.com/legit-games/oauth2-core/seed"
	"github.com/legit-games/oauth2-core/server"
	"github.com/legit-games/oauth2-core/store"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := cfg.Logger()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("authserver stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager := manage.NewDefaultManager()
	manager.SetLogger(logger.With("component", "manage"))
	manager.SetAuthorizeCodeExp(cfg.Token.CodeTTL)
	manager.SetAuthorizeCodeTokenCfg(&manage.Config{AccessTokenExp: cfg.Token.AccessTTL, RefreshTokenExp: cfg.Token.RefreshTTL, IsGenerateRefresh: true})
	manager.SetPasswordTokenCfg(&manage.Config{AccessTokenExp: cfg.Token.AccessTTL, RefreshTokenExp: cfg.Token.RefreshTTL, IsGenerateRefresh: true})
	manager.SetClientTokenCfg(&manage.Config{AccessTokenExp: cfg.Token.AccessTTL})
	manager.SetRefreshTokenCfg(&manage.RefreshingConfig{
		AccessTokenExp:     cfg.Token.AccessTTL,
		RefreshTokenExp:    cfg.Token.RefreshTTL,
		IsResetRefreshTime: true,
	})

	signer, err := newSigner(cfg.Token)
	if err != nil {
		return err
	}
	manager.MapAccessGenerate(generates.NewJWTAccessGenerate(signer))

	var (
		clients seed.ClientUpserter
		users   seed.UserUpserter
	)
	switch cfg.Store.Driver {
	case "postgres":
		if cfg.Migrate.OnStart {
			if err := migrate.Run(migrate.Options{
				DSN:     cfg.Store.DSN,
				Command: "up",
				Logger:  slog.NewLogLogger(logger.With("component", "migrate").Handler(), slog.LevelInfo),
			}); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}
		db, err := gorm.Open(postgres.Open(cfg.Store.DSN), &gorm.Config{})
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		tokens := store.NewDBTokenStore(db)
		manager.MapTokenStorage(tokens)
		cs, us := store.NewDBClientStore(db), store.NewDBUserStore(db)
		manager.MapClientStorage(cs)
		manager.MapUserStorage(us)
		clients, users = cs, us

		reaper := store.NewReaper(tokens, logger.With("component", "reaper"), cfg.Store.ReaperInterval)
		reaper.Start()
		defer reaper.Stop()
	default:
		var tokens oauth2.TokenStore
		if cfg.Store.Driver == "valkey" {
			vs, err := store.NewValkeyTokenStore(cfg.Store.ValkeyAddr, cfg.Store.Prefix)
			if err != nil {
				return fmt.Errorf("connect valkey: %w", err)
			}
			defer vs.Close()
			tokens = vs
		} else if tokens, err = store.NewMemoryTokenStore(); err != nil {
			return err
		}
		manager.MapTokenStorage(tokens)
		cs, us := store.NewClientStore(), store.NewUserStore()
		manager.MapClientStorage(cs)
		manager.MapUserStorage(us)
		clients, users = cs, us
	}
	logger.Info("token store ready", "driver", cfg.Store.Driver)

	if err := seed.Provision(ctx, cfg, clients, users, logger.With("component", "seed")); err != nil {
		return fmt.Errorf("provision: %w", err)
	}

	scfg := server.NewConfig()
	scfg.AllowBearerTokensInQuery = cfg.Server.AllowBearerInQuery
	srv := server.NewServer(scfg, manager)
	srv.SetLogger(logger.With("component", "server"))

	opts := []session.Option{
		session.SetCookieName(cfg.Server.CookieName),
		session.SetSecure(cfg.Env != "local"),
	}
	if cfg.Server.SessionSecret != "" {
		opts = append(opts, session.SetSign([]byte(cfg.Server.SessionSecret)))
	}
	srv.SetSessionLogin(server.NewSessionLogin(manager, logger.With("component", "login"), opts...))

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.NewGinEngine(srv),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("oauth2 server listening", "addr", cfg.Server.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// newSigner picks a PEM key when one is configured, the shared secret otherwise.
func newSigner(cfg config.TokenConfig) (*generates.KeySigner, error) {
	method := jwt.GetSigningMethod(cfg.SigningMethod)
	if method == nil {
		return nil, fmt.Errorf("unknown signing method %q", cfg.SigningMethod)
	}
	if cfg.KeyFile != "" {
		pemKey, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("read key file: %w", err)
		}
		return generates.NewPEMSigner(cfg.KeyID, pemKey, method)
	}
	return generates.NewHMACSigner(cfg.KeyID, []byte(cfg.JWTSecret), method)
}
