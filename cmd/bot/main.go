package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"github.com/xaenox/cupid-bot/internal/bot"
	"github.com/xaenox/cupid-bot/internal/cupid"
	"github.com/xaenox/cupid-bot/internal/family"
	"github.com/xaenox/cupid-bot/internal/gifs"
	"github.com/xaenox/cupid-bot/internal/metrics"
	"github.com/xaenox/cupid-bot/internal/storage"
	"github.com/xaenox/cupid-bot/pkg/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "cupid-bot",
		Short:         "Telegram bot for marriage and adoption proposals",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configFile(cmd, configPath))
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the config file, empty to read the environment only")

	root.AddCommand(&cobra.Command{
		Use:   "check-config",
		Short: "Validate the configuration and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(configFile(cmd, configPath))
			if err != nil {
				return err
			}
			storageKind := "postgres"
			if cfg.Database.UseInMemory {
				storageKind = "memory"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config OK: chat %d, cupid %s, %s storage\n",
				cfg.Telegram.ChatID, cfg.Cupid.URL, storageKind)
			return nil
		},
	})
	return root
}

// configFile returns the config file to read. A missing default file means
// the configuration comes from the environment only; a file named with
// --config must exist.
func configFile(cmd *cobra.Command, path string) string {
	if cmd.Flags().Changed("config") {
		return path
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return ""
	}
	return path
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	if cfg.Development {
		zapConfig = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)
	return zapConfig.Build()
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	// Initialize storage
	var store storage.Storage
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory storage; proposal buttons stop working after a restart")
		store = storage.NewMemoryStorage()
	} else {
		logger.Info("Using PostgreSQL storage")
		store, err = storage.NewPostgresStorage(ctx, storage.DatabaseConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		}, logger)
		if err != nil {
			logger.Error("Failed to initialize storage", zap.Error(err))
			return err
		}
	}
	defer store.Close()

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}
	api.Debug = cfg.Telegram.Debug

	renderer := family.NewRenderer(cfg.Graphviz.Binary, logger)
	if !renderer.Available() {
		logger.Warn("Graphviz not found, /tree is disabled", zap.String("binary", cfg.Graphviz.Binary))
	}

	gifClient := gifs.New(gifs.Options{BaseURL: cfg.Tenor.URL, Token: cfg.Tenor.Token}, logger)
	if !gifClient.Enabled() {
		logger.Info("No Tenor token, proposals are sent without GIFs")
	}

	b := bot.New(bot.Options{
		ChatID:   cfg.Telegram.ChatID,
		Username: api.Self.UserName,
		Sender:   api,
		Cupid: cupid.New(cupid.Options{
			BaseURL:   cfg.Cupid.URL,
			Token:     cfg.Cupid.Token,
			Timeout:   cfg.Cupid.Timeout,
			RateLimit: cfg.Cupid.RateLimit,
		}, logger),
		Storage:  store,
		GIFs:     gifClient,
		Renderer: renderer,
	}, logger)

	go func() {
		if err := metrics.Serve(ctx, cfg.Metrics.Addr, logger); err != nil {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)
	defer api.StopReceivingUpdates()

	return b.Run(ctx, updates)
}
