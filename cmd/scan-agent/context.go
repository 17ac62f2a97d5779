package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/kubev2v/inventory-scan-agent/internal/config"
	"github.com/kubev2v/inventory-scan-agent/internal/services"
	"github.com/kubev2v/inventory-scan-agent/internal/store"
	"github.com/kubev2v/inventory-scan-agent/pkg/lock"
)

type commandContext struct {
	configFile string
	viper      *viper.Viper
	config     *config.Configuration
	logger     *zap.Logger
	bindErr    error
}

func newCommandContext() *commandContext {
	return &commandContext{viper: config.NewViper()}
}

func (c *commandContext) bindFlag(key string, flag *pflag.Flag) {
	if err := c.viper.BindPFlag(key, flag); err != nil && c.bindErr == nil {
		c.bindErr = fmt.Errorf("bind flag %s: %w", flag.Name, err)
	}
}

func (c *commandContext) init(cmd *cobra.Command) error {
	if c.bindErr != nil {
		return c.bindErr
	}

	cfg, err := config.Load(c.viper, c.configFile)
	if err != nil {
		return err
	}
	if noLock, _ := cmd.Flags().GetBool("no-lock"); noLock {
		cfg.Lock.Enabled = false
	}
	c.config = cfg

	logger, err := newLogger(cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(logger)
	c.logger = logger

	zap.S().Named("cli").Debugw("configuration loaded", "config", cfg.DebugMap())
	return nil
}

func (c *commandContext) syncLogger() {
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}

// withStore takes the instance lock, opens the store for fn and releases
// everything afterwards.
func (c *commandContext) withStore(ctx context.Context, fn func(st *store.Store) error) error {
	cfg := c.config

	if cfg.Lock.Enabled {
		l, err := lock.Acquire(ctx, cfg.LockPath(), cfg.Lock.Timeout)
		if err != nil {
			return err
		}
		defer func() {
			if err := l.Release(); err != nil {
				zap.S().Named("cli").Warnw("failed to release lock", "error", err)
			}
		}()
	}

	db, err := store.NewDB(cfg.Store.Path,
		store.WithBusyTimeout(cfg.Store.BusyTimeout),
		store.WithSynchronous(cfg.Store.Synchronous),
	)
	if err != nil {
		return err
	}

	st := store.NewStore(db, store.WithHistoryMaxItems(cfg.History.MaxItems))
	defer func() {
		if err := st.Close(); err != nil {
			zap.S().Named("cli").Warnw("failed to close store", "error", err)
		}
	}()

	return fn(st)
}

func (c *commandContext) withScanService(ctx context.Context, fn func(st *store.Store, srv *services.ScanService) error) error {
	return c.withStore(ctx, func(st *store.Store) error {
		return fn(st, services.NewScanService(st))
	})
}
