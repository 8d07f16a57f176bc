package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mkravets/unimarket/internal/backend/httpapi"
	"github.com/mkravets/unimarket/internal/config"
	"github.com/mkravets/unimarket/internal/logging"
	"github.com/mkravets/unimarket/internal/repo"
	"github.com/mkravets/unimarket/internal/store"
)

var (
	configPath string
	debugLog   bool
)

var rootCmd = &cobra.Command{
	Use:   "unimarket",
	Short: "Campus marketplace client with offline-first sync",
	Long: `unimarket is a campus marketplace client.

All reads come from a local SQLite cache and all writes are queued locally,
so the app keeps working without a network. A background worker replays the
queue against the backend whenever connectivity allows.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "enable debug logging")

	rootCmd.AddGroup(
		&cobra.Group{ID: "market", Title: "Marketplace Commands:"},
		&cobra.Group{ID: "sync", Title: "Sync Commands:"},
	)
}

// app bundles the pieces most commands need.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store
	client *httpapi.Client
	repo   *repo.Repository
}

// openApp loads config, opens the database, and wires the repository.
// Callers must call close when done.
func openApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := logging.New(logging.Options{File: cfg.LogFile, Debug: debugLog})

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	st, err := store.Open(cfg.DBPath())
	if err != nil {
		return nil, err
	}
	if err := st.InitSchema(); err != nil {
		st.Close()
		return nil, err
	}

	client := httpapi.New(cfg.BackendURL, logger)

	return &app{
		cfg:    cfg,
		logger: logger,
		store:  st,
		client: client,
		repo:   repo.New(st, client, logger),
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close store", zap.Error(err))
	}
	_ = a.logger.Sync()
}
