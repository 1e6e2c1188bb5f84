// Command server runs the pack picker HTTP API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xtding233/packpicker/internal/api"
	"github.com/xtding233/packpicker/internal/catalog"
	"github.com/xtding233/packpicker/internal/config"
	"github.com/xtding233/packpicker/internal/gacha"
	"github.com/xtding233/packpicker/internal/logging"
	"github.com/xtding233/packpicker/internal/picker"
	"github.com/xtding233/packpicker/internal/snapshot"
	"github.com/xtding233/packpicker/internal/storage"
)

const seedWatchInterval = 500 * time.Millisecond

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbCfg := storage.DefaultConfig(cfg.Database.Path)
	dbCfg.MaxOpenConns = cfg.Database.MaxOpenConns
	dbCfg.BusyTimeout = cfg.Database.BusyTimeout
	dbCfg.AutoMigrate = cfg.Database.AutoMigrate
	db, err := storage.Open(dbCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("failed to close database")
		}
	}()
	store := storage.NewStore(db)

	if len(cfg.Catalog.SeedFiles) > 0 {
		loader := catalog.NewLoader(cfg.Catalog.SeedFiles...)
		if err := importSeed(ctx, store, loader); err != nil {
			return err
		}
		if cfg.Catalog.Watch {
			w := catalog.NewFileWatcher(loader.Paths(), seedWatchInterval, func(path string) {
				logging.Info().Str("path", path).Msg("catalog seed changed, re-importing")
				loader.Invalidate()
				if err := importSeed(ctx, store, loader); err != nil {
					logging.Error().Err(err).Msg("catalog re-import failed, keeping previous catalog")
				}
			})
			go func() {
				if err := w.Run(ctx); err != nil {
					logging.Error().Err(err).Msg("catalog watcher stopped")
				}
			}()
		}
	}

	engine := picker.NewEngine(store.Catalog, store.Collection, picker.Config{
		Trials:  cfg.Picker.Trials,
		Workers: cfg.Picker.Workers,
		Timeout: cfg.Picker.Timeout,
		Seed:    cfg.Picker.Seed,
	})
	svc := snapshot.NewService(store.Snapshots, engine, snapshot.Config{
		Cooldown:     cfg.Picker.Cooldown,
		RefreshRate:  cfg.Picker.RefreshRate,
		RefreshBurst: cfg.Picker.RefreshBurst,
	})

	var rng func() gacha.RandomSource
	if cfg.Picker.Seed != 0 {
		seed := cfg.Picker.Seed
		rng = func() gacha.RandomSource { return gacha.NewSeededRNG(seed) }
	}
	handler := api.NewHandler(svc, engine, store.Catalog, store, rng)
	router := api.NewRouter(handler, api.RouterConfig{
		RequestTimeout:    cfg.Server.RequestTimeout,
		CORSOrigins:       cfg.Server.CORSOrigins,
		RateLimitRequests: cfg.Server.RateLimitRequests,
		RateLimitWindow:   cfg.Server.RateLimitWindow,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", srv.Addr).Int("trials", cfg.Picker.Trials).Dur("cooldown", svc.Cooldown()).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func importSeed(ctx context.Context, store *storage.Store, loader *catalog.Loader) error {
	seed, err := loader.Load()
	if err != nil {
		return err
	}
	st, err := store.ImportSeed(ctx, seed)
	if err != nil {
		return err
	}
	logging.Info().
		Strs("files", loader.Paths()).
		Int("sets", st.Sets).
		Int("boosters", st.Boosters).
		Int("cards", st.Cards).
		Int("collections", st.Collections).
		Msg("catalog seed imported")
	return nil
}
