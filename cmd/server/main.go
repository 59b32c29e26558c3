package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diewo77/paintms/internal/config"
	"github.com/diewo77/paintms/internal/db"
	"github.com/diewo77/paintms/internal/lock"
	"github.com/diewo77/paintms/internal/logging"
	"github.com/diewo77/paintms/internal/policy"
	"github.com/diewo77/paintms/internal/services"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	seedOnlyFlag    = flag.Bool("seed-only", false, "Run DB seed and exit")
)

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg := config.Load()
	log := logging.New(cfg.App.LogLevel, cfg.App.LogFormat)
	if err := cfg.CheckSecrets(); err != nil {
		log.WithError(err).WithField("env", cfg.App.Env).Fatal("refusing to start with development secrets")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbConn, err := db.Open(ctx, cfg.Database, log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}

	if *migrateOnlyFlag {
		if err := db.Migrate(dbConn, cfg.Database, cfg.App.Migrations, log); err != nil {
			log.WithError(err).Fatal("migration failed")
		}
		log.Info("migrations completed successfully")
		return
	}

	if *seedOnlyFlag {
		if err := seed(ctx, dbConn, cfg, log); err != nil {
			log.WithError(err).Fatal("seeding failed")
		}
		log.Info("seeding completed successfully")
		return
	}

	if err := db.Migrate(dbConn, cfg.Database, cfg.App.Migrations, log); err != nil {
		log.WithError(err).Fatal("migration failed")
	}
	if cfg.App.Seed {
		if err := seed(ctx, dbConn, cfg, log); err != nil {
			log.WithError(err).Fatal("seeding failed")
		}
	}

	var locker services.Locker
	if cfg.Redis.URL != "" {
		rl, err := lock.NewRedisLocker(ctx, cfg.Redis.URL, log)
		if err != nil {
			log.WithError(err).Warn("redis unavailable; invoice numbers rely on the unique index")
		} else {
			defer rl.Close()
			locker = rl
		}
	}

	routerCfg, err := policy.NewRouterConfig(dbConn, cfg, log, locker)
	if err != nil {
		log.WithError(err).Fatal("failed to configure routes")
	}
	appHandler := NewApp(dbConn, routerCfg, log, cfg.Server.APIPrefix, cfg.Server.CORSOrigins)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      appHandler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"port":   cfg.Server.Port,
			"prefix": cfg.Server.APIPrefix,
			"env":    cfg.App.Env,
		}).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("error during shutdown")
	}
	if sqlDB, err := dbConn.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("server stopped gracefully")
}

// seed creates the admin account and loads the optional catalog file.
func seed(ctx context.Context, dbConn *gorm.DB, cfg *config.Config, log *logrus.Logger) error {
	if _, err := db.SeedAdmin(ctx, dbConn, cfg.Auth, log); err != nil {
		return err
	}
	if cfg.App.SeedCatalog == "" {
		return nil
	}
	if _, err := os.Stat(cfg.App.SeedCatalog); err != nil {
		log.WithError(err).WithField("path", cfg.App.SeedCatalog).Warn("catalog file not found; skipping")
		return nil
	}
	catalog, err := db.LoadCatalog(cfg.App.SeedCatalog)
	if err != nil {
		return err
	}
	n, err := db.SeedCatalog(ctx, dbConn, catalog, cfg.App.PhoneRegion)
	if err != nil {
		return err
	}
	log.WithField("created", n).Info("catalog seeded")
	return nil
}
