package core

import (
	"time"
)

// Configuration defaults.
const (
	DefaultScanLimit         = 500
	DefaultScanMaxLimit      = 2000
	DefaultRecentLimit       = 5
	DefaultRecentMaxLimit    = 10
	DefaultDedupCacheSize    = 10000
	DefaultDedupFalsePosRate = 0.001
)

type Config struct {
	Telegram TelegramConfig
	TMDB     TMDBConfig
	Database DatabaseConfig
	Server   ServerConfig
	Log      LogConfig
	App      AppConfig
}

type TelegramConfig struct {
	BotToken string
	GroupID  int64
	Enabled  bool
}

type TMDBConfig struct {
	APIKey       string
	BaseURL      string
	ImageBaseURL string
}

type DatabaseConfig struct {
	Path string
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type AppConfig struct {
	Language               string
	ScanDefaultLimit       int
	ScanMaxLimit           int
	RecentDefaultLimit     int
	RecentMaxLimit         int
	DedupCacheSize         int
	DedupFalsePositiveRate float64
}

func DefaultConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{
			Enabled: true,
		},
		TMDB: TMDBConfig{
			BaseURL:      "https://api.themoviedb.org/3",
			ImageBaseURL: "https://image.tmdb.org/t/p/w500",
		},
		Database: DatabaseConfig{
			Path: "./movienight.db",
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		App: AppConfig{
			Language:               "en",
			ScanDefaultLimit:       DefaultScanLimit,
			ScanMaxLimit:           DefaultScanMaxLimit,
			RecentDefaultLimit:     DefaultRecentLimit,
			RecentMaxLimit:         DefaultRecentMaxLimit,
			DedupCacheSize:         DefaultDedupCacheSize,
			DedupFalsePositiveRate: DefaultDedupFalsePosRate,
		},
	}
}
