// Package main provides the MovieNight CLI application entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"movienight/internal/chat/telegram"
	"movienight/internal/core"
	httpserver "movienight/internal/http"
	"movienight/internal/resolver"
	"movienight/internal/store"
	"movienight/internal/tmdb"
)

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "movienight",
	Short: "MovieNight - Telegram movie collection bot",
	Long: `MovieNight is a service that watches a Telegram group for movie links
(IMDb, Netflix, Rotten Tomatoes), resolves their metadata via TMDB and
collects them into a browsable movie night list.`,
	RunE: runMovieNight,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("telegram-bot-token", "", "Telegram bot token")
	rootCmd.PersistentFlags().Int64("telegram-group-id", 0, "Telegram group chat ID")
	rootCmd.PersistentFlags().String("tmdb-api-key", "", "TMDB API key")
	rootCmd.PersistentFlags().String("database-path", "./movienight.db", "SQLite database path")
	rootCmd.PersistentFlags().String("language", "en", "bot reply language (en, ch_be)")
	rootCmd.PersistentFlags().Int("server-port", 8080, "HTTP server port")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(".env")
		viper.SetConfigType("env")
	}

	viper.SetEnvPrefix("MOVIENIGHT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
			os.Exit(1)
		}
	}

	config = buildConfig()
	logger = buildLogger(config.Log.Level)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	cfg.Telegram.BotToken = viper.GetString("telegram-bot-token")
	cfg.Telegram.GroupID = viper.GetInt64("telegram-group-id")
	cfg.Telegram.Enabled = cfg.Telegram.BotToken != ""

	cfg.TMDB.APIKey = viper.GetString("tmdb-api-key")
	if baseURL := viper.GetString("tmdb-base-url"); baseURL != "" {
		cfg.TMDB.BaseURL = baseURL
	}
	if imageBaseURL := viper.GetString("tmdb-image-base-url"); imageBaseURL != "" {
		cfg.TMDB.ImageBaseURL = imageBaseURL
	}

	if path := viper.GetString("database-path"); path != "" {
		cfg.Database.Path = path
	}

	if host := viper.GetString("server-host"); host != "" {
		cfg.Server.Host = host
	}
	if port := viper.GetInt("server-port"); port != 0 {
		cfg.Server.Port = port
	}

	cfg.Log.Level = viper.GetString("log-level")

	if language := viper.GetString("language"); language != "" {
		cfg.App.Language = language
	}

	return cfg
}

func buildLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

func runMovieNight(_ *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting MovieNight",
		zap.String("language", config.App.Language),
		zap.Int64("telegram_group", config.Telegram.GroupID))

	if err := validateConfig(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	movieStore, err := store.NewSQLiteStore(config.Database.Path, logger.Named("store"))
	if err != nil {
		return fmt.Errorf("failed to open movie store: %w", err)
	}
	defer func() { _ = movieStore.Close() }()

	dedup := store.NewDedupCache(config.App.DedupCacheSize, config.App.DedupFalsePositiveRate)

	tmdbClient := tmdb.NewClient(&config.TMDB, logger.Named("tmdb"))
	movieResolver := resolver.New(tmdbClient, logger.Named("resolver"))

	frontend := telegram.NewFrontend(&config.Telegram, logger.Named("telegram"))

	httpServer := httpserver.NewServer(&config.Server, movieStore, dedup, logger.Named("http"))

	dispatcher := core.NewDispatcher(
		config,
		frontend,
		movieResolver,
		movieStore,
		dedup,
		httpServer,
		logger.Named("dispatcher"),
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return httpServer.Start(gCtx)
	})

	g.Go(func() error {
		return dispatcher.Start(gCtx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-ticker.C:
				count, err := movieStore.Count(gCtx)
				if err != nil {
					logger.Warn("Failed to refresh collection size", zap.Error(err))
					continue
				}
				httpServer.SetCollectionSize(count)
			}
		}
	})

	logger.Info("MovieNight started successfully",
		zap.String("http_addr", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)))

	if err := g.Wait(); err != nil {
		logger.Error("MovieNight stopped with error", zap.Error(err))
		return err
	}

	logger.Info("MovieNight stopped gracefully")
	return nil
}

func validateConfig() error {
	if config.TMDB.APIKey == "" {
		return fmt.Errorf("TMDB API key is required")
	}

	if config.Telegram.Enabled && config.Telegram.GroupID == 0 {
		return fmt.Errorf("telegram group ID is required when a bot token is set")
	}

	return nil
}
