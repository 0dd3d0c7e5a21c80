package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"bakmon/internal/api"
	"bakmon/internal/collector"
	"bakmon/internal/config"
	"bakmon/internal/devapi"
	"bakmon/internal/lock"
	"bakmon/internal/objstore"
	"bakmon/internal/reconcile"
	"bakmon/internal/schema"
	"bakmon/internal/store"
	"bakmon/internal/util"
)

func runDaemon(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := util.SetupDirectories(cfg.BaseDir, util.RunDir(cfg.BaseDir)); err != nil {
		return err
	}

	logPath := filepath.Join(util.LogDir(cfg.BaseDir), fmt.Sprintf("%s.log", time.Now().Format("2006-01-02")))
	logger, logFile, err := util.SetupLogging(logPath)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer logFile.Close()
	slog.SetDefault(logger)

	lockPath := filepath.Join(util.RunDir(cfg.BaseDir), "bakmon.lock")
	release, err := lock.Acquire(lockPath, configPath)
	if err != nil {
		return fmt.Errorf("failed to acquire daemon lock: %w", err)
	}
	defer func() {
		if err := release(); err != nil {
			slog.Warn("Failed to release daemon lock", "error", err)
		}
	}()

	st, err := store.OpenSQLite(util.StorePath(cfg.BaseDir, cfg.Store.Path))
	if err != nil {
		return err
	}
	defer st.Close()

	registry := schema.Builtin()
	reconciler := reconcile.New(st, logger)

	var runners []*collector.Runner

	if cfg.DeviceAPI.Enabled {
		source := devapi.NewSource(devapi.Config{
			BaseURL:         cfg.DeviceAPI.BaseURL,
			TokenEndpoint:   cfg.DeviceAPI.TokenEndpoint,
			BackupsEndpoint: cfg.DeviceAPI.BackupsEndpoint,
			Key:             os.Getenv("DEVICE_API_KEY"),
			Secret:          os.Getenv("DEVICE_API_SECRET"),
			Region:          cfg.DeviceAPI.Region,
			PageSize:        cfg.DeviceAPI.PageSize,
			Vendor:          cfg.DeviceAPI.Vendor,
		}, logger)
		runners = append(runners, collector.NewRunner(
			source, registry, reconciler, cfg.DeviceAPIInterval(), 0, logger))
	}

	if cfg.S3.Enabled {
		source, err := objstore.NewSource(ctx, objstore.Config{
			Bucket:           cfg.S3.Bucket,
			Region:           cfg.S3.Region,
			Prefix:           cfg.S3.Prefix,
			Endpoint:         cfg.S3.Endpoint,
			RootDir:          cfg.S3.RootDir,
			Vendor:           cfg.S3.Vendor,
			MaxRetryAttempts: cfg.S3RetryAttempts(),
		}, st, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 source: %w", err)
		}
		if err := source.VerifyCredentials(ctx); err != nil {
			return fmt.Errorf("S3 credentials verification failed: %w", err)
		}
		runners = append(runners, collector.NewRunner(
			source, registry, reconciler, cfg.S3Interval(), 0, logger))
	}

	if cfg.API.Enabled {
		server := api.NewServer(cfg.API.Addr, st, st)
		if err := server.Start(); err != nil {
			return fmt.Errorf("failed to start API server: %w", err)
		}
		slog.Info("API server listening", "addr", cfg.API.Addr)
		defer func() {
			if err := server.Stop(); err != nil {
				slog.Warn("API server shutdown failed", "error", err)
			}
		}()
	}

	slog.Info("Daemon started", "collectors", len(runners))

	var wg sync.WaitGroup
	for _, r := range runners {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Run(ctx)
		}()
	}

	<-ctx.Done()
	wg.Wait()
	slog.Info("Daemon stopped")
	return nil
}
