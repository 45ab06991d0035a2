// Package config loads engine configuration from defaults and CHARLA_*
// environment variables. Secrets (bot token, OpenAI key) come from the
// environment only; a .env file can be loaded by the caller before Load.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

type Config struct {
	Server   ServerConfig
	Telegram TelegramConfig
	OpenAI   OpenAIConfig
	Storage  StorageConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port int
}

type TelegramConfig struct {
	BotToken string
}

type OpenAIConfig struct {
	APIKey          string
	ChatModel       string
	TranscribeModel string
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 8080,
		},
		OpenAI: OpenAIConfig{
			ChatModel:       "gpt-4o-mini",
			TranscribeModel: "whisper-1",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds a Config from defaults plus CHARLA_* environment overrides.
// The bot token and OpenAI API key have no defaults and are required.
func Load() (Config, error) {
	cfg := defaults()
	applyEnvOverrides(&cfg)

	if cfg.Telegram.BotToken == "" {
		return Config{}, fmt.Errorf("missing required config: bot token. Set CHARLA_BOT_TOKEN")
	}
	if cfg.OpenAI.APIKey == "" {
		return Config{}, fmt.Errorf("missing required config: OpenAI API key. Set CHARLA_OPENAI_API_KEY")
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CHARLA_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("CHARLA_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("CHARLA_OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}
	if v := os.Getenv("CHARLA_CHAT_MODEL"); v != "" {
		cfg.OpenAI.ChatModel = v
	}
	if v := os.Getenv("CHARLA_TRANSCRIBE_MODEL"); v != "" {
		cfg.OpenAI.TranscribeModel = v
	}
	if v := os.Getenv("CHARLA_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("CHARLA_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".charla")
	}
	return filepath.Join(home, ".charla")
}
