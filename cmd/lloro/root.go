package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lloro-ai/lloro/internal/config"
	"github.com/lloro-ai/lloro/internal/extract"
	"github.com/lloro-ai/lloro/internal/logging"
	"github.com/lloro-ai/lloro/internal/rpc"
	chatsvc "github.com/lloro-ai/lloro/internal/service/chat"
	"github.com/lloro-ai/lloro/internal/service/pin"
	"github.com/lloro-ai/lloro/internal/service/session"
	"github.com/lloro-ai/lloro/internal/storage"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "lloro",
	Short: "Chat with a language model about the pages you are reading",
	Long: `lloro keeps any number of independent chat sessions with a local
language-model backend (llorod) and lets you pin the readable content of
web pages into a session, to be delivered once with your next message.

Quick start:
  lloro sessions new            # start a fresh session
  lloro pin https://example.com # attach a page to it
  lloro chat                    # talk about it`,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
}

// app holds everything a command needs, wired once per invocation.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   *session.Store
	manager *session.Manager
	pinner  *pin.Pinner
	orch    *chatsvc.Orchestrator
	backend *rpc.Client
}

func newApp(ctx context.Context) (*app, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logCfg := logging.Config{Level: "warn"}
	if verbose {
		logCfg = logging.Config{Level: "debug", Development: true}
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, err
	}

	kv, err := storage.OpenSQLite(cfg.Client.StoragePath)
	if err != nil {
		return nil, err
	}

	store := session.NewStore(kv, logger.Named("store"))
	if err := store.Open(ctx); err != nil {
		kv.Close()
		return nil, err
	}

	backend := rpc.NewClient(cfg.Client.BackendURL, cfg.Client.HealthTimeout, logger.Named("rpc"))
	pinner := pin.NewPinner(store, extract.NewWebProvider(logger.Named("extract")), logger.Named("pin"))

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		manager: session.NewManager(store, backend, logger.Named("sessions")),
		pinner:  pinner,
		orch:    chatsvc.NewOrchestrator(store, pinner, backend, logger.Named("chat")),
		backend: backend,
	}, nil
}

func (a *app) Close() {
	_ = a.store.Close()
	_ = a.logger.Sync()
}
