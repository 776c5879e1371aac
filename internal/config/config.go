package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/subforge/srt-translator/internal/ollama"
	"github.com/subforge/srt-translator/internal/prompt"
)

// Config holds all application configuration.
// Supports environment variables with sensible defaults.
//
// Environment Variables:
// Ollama Configuration:
// - OLLAMA_CHAT_URL: Chat endpoint URL (default: http://localhost:11434/api/chat)
// - OLLAMA_MODEL: Model name to use (default: llama3)
// - OLLAMA_TIMEOUT: Request timeout in seconds (default: 30)
// - OLLAMA_RETRIES: Retries after the first failed attempt (default: 2)
// - OLLAMA_RETRY_DELAY: Delay between attempts in seconds (default: 5)
//
// Translate Configuration:
// - TARGET_LANG: Target language code, e.g. "de" (default: de)
// - TRANSLATE_STYLE: natural, formal or simple-clear (default: natural)
// - PROMPT_OVERRIDE: Full replacement system prompt (optional)
// - CRON_EXPR: Schedule for watch mode (default: 0 * * * *)
// - WATCH_DIR: Directory scanned in watch mode (default: /subtitles)
//
// System Configuration:
// - HISTORY_DB: SQLite path for run history, empty disables it (default: empty)
// - HTTP_LISTEN: Listen address for the HTTP API (default: :8080)
// - LOG_LEVEL: debug, info, warn or error (default: info)
// - LOG_FILE: Log file path, empty logs to stdout (default: empty)

type Config struct {
	Ollama    OllamaConfig    `json:"ollama"`
	Translate TranslateConfig `json:"translate"`
	System    SystemConfig    `json:"system"`
}

// OllamaConfig holds the configuration for the Ollama chat client.
type OllamaConfig struct {
	ChatURL    string        `json:"chat_url"`
	Model      string        `json:"model"`
	Timeout    time.Duration `json:"timeout"`
	Retries    int           `json:"retries"`
	RetryDelay time.Duration `json:"retry_delay"`
}

type TranslateConfig struct {
	TargetLang     string `json:"target_lang"`
	Style          string `json:"style"`
	PromptOverride string `json:"prompt_override"`
	CronExpr       string `json:"cron_expr"`
	WatchDir       string `json:"watch_dir"`
}

// SystemConfig holds history, server and logging settings.
type SystemConfig struct {
	HistoryDB  string `json:"history_db"`
	HTTPListen string `json:"http_listen"`
	LogLevel   string `json:"log_level"`
	LogFile    string `json:"log_file"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	config := &Config{
		Ollama: OllamaConfig{
			ChatURL:    getEnvString("OLLAMA_CHAT_URL", ollama.DefaultChatURL),
			Model:      getEnvString("OLLAMA_MODEL", "llama3"),
			Timeout:    time.Duration(getEnvInt("OLLAMA_TIMEOUT", 30)) * time.Second,
			Retries:    getEnvInt("OLLAMA_RETRIES", ollama.DefaultRetries),
			RetryDelay: time.Duration(getEnvInt("OLLAMA_RETRY_DELAY", 5)) * time.Second,
		},
		Translate: TranslateConfig{
			TargetLang:     getEnvString("TARGET_LANG", "de"),
			Style:          getEnvString("TRANSLATE_STYLE", "natural"),
			PromptOverride: getEnvString("PROMPT_OVERRIDE", ""),
			CronExpr:       getEnvString("CRON_EXPR", "0 * * * *"),
			WatchDir:       getEnvString("WATCH_DIR", "/subtitles"),
		},
		System: SystemConfig{
			HistoryDB:  getEnvString("HISTORY_DB", ""),
			HTTPListen: getEnvString("HTTP_LISTEN", ":8080"),
			LogLevel:   getEnvString("LOG_LEVEL", "info"),
			LogFile:    getEnvString("LOG_FILE", ""),
		},
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	// Validate required configuration
	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if c.Ollama.ChatURL == "" {
		return fmt.Errorf("OLLAMA_CHAT_URL is required")
	}
	if c.Ollama.Model == "" {
		return fmt.Errorf("OLLAMA_MODEL is required")
	}
	if _, err := prompt.LanguageByCode(c.Translate.TargetLang); err != nil {
		return fmt.Errorf("unsupported target language: %s", c.Translate.TargetLang)
	}
	return nil
}

// TargetLanguage resolves the configured language code against the known table.
// validate already guaranteed the code is known.
func (c *Config) TargetLanguage() prompt.Language {
	lang, _ := prompt.LanguageByCode(c.Translate.TargetLang)
	return lang
}

// StyleValue resolves the configured style name, falling back to natural.
func (c *Config) StyleValue() prompt.Style {
	return prompt.ParseStyle(c.Translate.Style)
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
