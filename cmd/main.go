package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/filmstore/internal/config"
	"github.com/tinoosan/filmstore/internal/filmstore"
	"github.com/tinoosan/filmstore/internal/httpapi"
	"github.com/tinoosan/filmstore/internal/ratelimit"
	"github.com/tinoosan/filmstore/internal/service/account"
	"github.com/tinoosan/filmstore/internal/service/catalog"
	"github.com/tinoosan/filmstore/internal/service/purchase"
	"github.com/tinoosan/filmstore/internal/storage/memory"
	pgstore "github.com/tinoosan/filmstore/internal/storage/postgres"
)

// catalogStore is the storage surface the services need. Both the memory and
// postgres stores satisfy it.
type catalogStore interface {
	catalog.Repo
	catalog.Writer
	account.Repo
	account.Writer
	purchase.Repo
	purchase.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := buildLogger(cfg)
	slog.SetDefault(logger)

	var store catalogStore
	var readiness httpapi.ReadyChecker
	var closeFn func()

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "err", err)
			os.Exit(1)
		}
		store = pg
		readiness = pg
		closeFn = pg.Close
		logger.Info("storage backend: postgres")
	} else {
		mem := memory.New()
		if devSeedEnabled() {
			acct, films := seedDev(mem)
			logDevSeed(logger, acct, films)
			printDevSeedBanner(acct, films)
		}
		store = mem
		logger.Info("storage backend: memory")
	}

	defaultRL := ratelimit.New(ratelimit.Config{
		Window:  cfg.DefaultLimitWindow,
		Max:     cfg.DefaultLimitMax,
		Message: "too many requests, please try again later",
	})
	strictRL := ratelimit.New(ratelimit.Config{
		Window:  cfg.StrictLimitWindow,
		Max:     cfg.StrictLimitMax,
		Message: "too many requests, please slow down",
	})
	defaultRL.StartJanitor(ctx, 0)
	strictRL.StartJanitor(ctx, 0)

	srvMux := httpapi.New(httpapi.Config{
		Catalog:        catalog.New(store, store),
		Accounts:       account.New(store, store),
		Purchases:      purchase.New(store, store, store, store, store, cfg.AutoProvisionBuyers),
		DefaultLimiter: defaultRL,
		StrictLimiter:  strictRL,
		Readiness:      readiness,
		Logger:         logger,
		Development:    cfg.IsDevelopment(),
	}).Handler()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srvMux,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("film store listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error("server shutdown error", "err", err)
		}
	case err := <-errCh:
		logger.Error("server error", "err", err)
	}
	if closeFn != nil {
		closeFn()
	}
}

func devSeedEnabled() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEV_SEED"))) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// seedDev loads a registrant account and a couple of films so the API is
// usable straight away in compose/local setups.
func seedDev(store *memory.Store) (filmstore.Account, []filmstore.Film) {
	now := time.Now().UTC()
	acct := filmstore.Account{
		ID:        uuid.New(),
		Email:     "studio@filmstore.local",
		Name:      "Dev Studio",
		CreatedAt: now,
		UpdatedAt: now,
	}
	store.SeedAccount(acct)

	films := []filmstore.Film{
		{ID: uuid.New(), Title: "The Long Take", PriceMinor: 1299, Currency: "USD", ContentURL: "https://cdn.filmstore.local/films/the-long-take.mp4", RegistrantID: acct.ID, CreatedAt: now, UpdatedAt: now},
		{ID: uuid.New(), Title: "Second Reel", PriceMinor: 899, Currency: "USD", ContentURL: "https://cdn.filmstore.local/films/second-reel.mp4", RegistrantID: acct.ID, CreatedAt: now, UpdatedAt: now},
	}
	for _, f := range films {
		store.SeedFilm(f)
	}
	return acct, films
}

// logDevSeed emits structured logs with useful IDs
func logDevSeed(l *slog.Logger, acct filmstore.Account, films []filmstore.Film) {
	ids := map[string]string{"account_id": acct.ID.String()}
	for i, f := range films {
		ids[fmt.Sprintf("film_%d_id", i+1)] = f.ID.String()
	}
	l.Info("DEV seed (memory)", "ids", ids)
}

// printDevSeedBanner prints a simple banner to stdout for easy copy/paste of IDs
func printDevSeedBanner(acct filmstore.Account, films []filmstore.Film) {
	fmt.Println("==================== DEV SEED ====================")
	fmt.Printf("account_id: %s\n", acct.ID.String())
	for _, f := range films {
		fmt.Printf("film_id (%s): %s\n", f.Title, f.ID.String())
	}
	fmt.Println("==================================================")
}

// parseLogLevel maps env values to slog.Leveler
func parseLogLevel(s string) slog.Leveler {
	switch s {
	case "DEBUG", "debug":
		return slog.LevelDebug
	case "WARN", "WARNING", "warn", "warning":
		return slog.LevelWarn
	case "ERROR", "ERR", "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildLogger(cfg *config.Config) *slog.Logger {
	level := parseLogLevel(cfg.LogLevel)
	if strings.ToLower(cfg.LogFormat) == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
	// default to JSON
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
