// Package config handles loading and validating the zenith configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the zenith backend.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Transports   TransportsConfig   `mapstructure:"transports"`
	Data         DataConfig         `mapstructure:"data"`
	Conversation ConversationConfig `mapstructure:"conversation"`
	Speech       SpeechConfig       `mapstructure:"speech"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig holds the health check server settings.
type ServerConfig struct {
	HealthPort int `mapstructure:"health_port"` // 0 disables the health server
}

// TransportsConfig holds the configuration for each transport layer.
type TransportsConfig struct {
	HTTP HTTPConfig `mapstructure:"http"`
	GRPC GRPCConfig `mapstructure:"grpc"`
}

// HTTPConfig configures the REST transport used by the desktop frontend.
type HTTPConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	Host        string   `mapstructure:"host"`
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
	Swagger     bool     `mapstructure:"swagger"`
	MaxBodyMB   int      `mapstructure:"max_body_mb"`
}

// Addr returns host:port.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// GRPCConfig configures the gRPC health transport.
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// DataConfig locates the persisted registries, note log and history.
type DataConfig struct {
	Dir     string `mapstructure:"dir"`
	Watch   bool   `mapstructure:"watch"`   // reload registries edited by hand
	History bool   `mapstructure:"history"` // record dispatched commands
}

// AppsFile is the known applications registry.
func (d DataConfig) AppsFile() string { return filepath.Join(d.Dir, "known_apps.json") }

// WebsitesFile is the known websites registry.
func (d DataConfig) WebsitesFile() string { return filepath.Join(d.Dir, "known_websites.json") }

// NotesFile is the append-only note log.
func (d DataConfig) NotesFile() string { return filepath.Join(d.Dir, "notes.txt") }

// HistoryFile is the SQLite command history.
func (d DataConfig) HistoryFile() string { return filepath.Join(d.Dir, "history.db") }

// ConversationConfig selects and configures the LLM backend.
type ConversationConfig struct {
	Backend      string          `mapstructure:"backend"` // "gemini", "openai", "anthropic" or "none"
	HistoryTurns int             `mapstructure:"history_turns"`
	SystemPrompt string          `mapstructure:"system_prompt"` // empty uses the built-in prompt
	Gemini       GeminiConfig    `mapstructure:"gemini"`
	OpenAI       OpenAIConfig    `mapstructure:"openai"`
	Anthropic    AnthropicConfig `mapstructure:"anthropic"`
}

// GeminiConfig holds Google Gemini API settings.
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// OpenAIConfig holds settings for OpenAI or any OpenAI-compatible server
// (Ollama, vLLM, llama.cpp) reached through BaseURL.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

// SpeechConfig selects and configures the speech-to-text backend.
type SpeechConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Backend string        `mapstructure:"backend"` // "whisper"
	Whisper WhisperConfig `mapstructure:"whisper"`
}

// WhisperConfig holds the Whisper-compatible endpoint settings.
type WhisperConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	Type      string `mapstructure:"type"` // "openai" (default) or "asr" (ahmetoner/whisper-asr-webservice)
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	Language  string `mapstructure:"language"` // ISO-639-1 default language
	VADFilter bool   `mapstructure:"vad_filter"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text, pretty
}

const envPrefix = "ZENITH"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.health_port", 5112)
	v.SetDefault("transports.http.enabled", true)
	v.SetDefault("transports.http.host", "127.0.0.1")
	v.SetDefault("transports.http.port", 5111)
	v.SetDefault("transports.http.cors_origins", []string{"null", "file://"})
	v.SetDefault("transports.http.swagger", true)
	v.SetDefault("transports.http.max_body_mb", 25)
	v.SetDefault("transports.grpc.enabled", false)
	v.SetDefault("transports.grpc.port", 50051)
	v.SetDefault("data.dir", "./data")
	v.SetDefault("data.watch", true)
	v.SetDefault("data.history", true)
	v.SetDefault("conversation.backend", "gemini")
	v.SetDefault("conversation.history_turns", 8)
	v.SetDefault("conversation.system_prompt", "")
	v.SetDefault("conversation.gemini.api_key", "${GEMINI_API_KEY}")
	v.SetDefault("conversation.gemini.model", "gemini-2.0-flash")
	v.SetDefault("conversation.openai.api_key", "${OPENAI_API_KEY}")
	v.SetDefault("conversation.openai.base_url", "")
	v.SetDefault("conversation.openai.model", "gpt-4o-mini")
	v.SetDefault("conversation.anthropic.api_key", "${ANTHROPIC_API_KEY}")
	v.SetDefault("conversation.anthropic.model", "claude-3-5-haiku-latest")
	v.SetDefault("conversation.anthropic.max_tokens", 1024)
	v.SetDefault("speech.enabled", false)
	v.SetDefault("speech.backend", "whisper")
	v.SetDefault("speech.whisper.endpoint", "http://localhost:8000/v1/audio/transcriptions")
	v.SetDefault("speech.whisper.type", "openai")
	v.SetDefault("speech.whisper.api_key", "")
	v.SetDefault("speech.whisper.model", "whisper-1")
	v.SetDefault("speech.whisper.language", "en")
	v.SetDefault("speech.whisper.vad_filter", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Load reads the configuration from file, environment variables, and defaults.
// A .env file in the working directory is loaded into the environment first.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./zenith.yaml, ./configs/zenith.yaml,
// $HOME/.config/zenith/zenith.yaml.
func Load(configFile string) (*Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("zenith")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "zenith"))
		}
	}

	// Environment variables: ZENITH_TRANSPORTS_HTTP_PORT, ZENITH_CONVERSATION_BACKEND, etc.
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Debug("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Resolve env var references in sensitive fields (e.g., "${GEMINI_API_KEY}")
	cfg.Conversation.Gemini.APIKey = resolveEnvRef(cfg.Conversation.Gemini.APIKey)
	cfg.Conversation.OpenAI.APIKey = resolveEnvRef(cfg.Conversation.OpenAI.APIKey)
	cfg.Conversation.Anthropic.APIKey = resolveEnvRef(cfg.Conversation.Anthropic.APIKey)
	cfg.Speech.Whisper.APIKey = resolveEnvRef(cfg.Speech.Whisper.APIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the backend cannot start with.
func (c *Config) Validate() error {
	switch c.Conversation.Backend {
	case "gemini", "openai", "anthropic", "none", "":
	default:
		return fmt.Errorf("unknown conversation backend %q", c.Conversation.Backend)
	}
	if c.Speech.Enabled && c.Speech.Backend != "whisper" {
		return fmt.Errorf("unknown speech backend %q", c.Speech.Backend)
	}
	switch c.Speech.Whisper.Type {
	case "openai", "asr", "":
	default:
		return fmt.Errorf("unknown whisper type %q", c.Speech.Whisper.Type)
	}
	if c.Transports.HTTP.Enabled && (c.Transports.HTTP.Port <= 0 || c.Transports.HTTP.Port > 65535) {
		return fmt.Errorf("invalid http port %d", c.Transports.HTTP.Port)
	}
	if c.Data.Dir == "" {
		return errors.New("data.dir must not be empty")
	}
	if c.Conversation.HistoryTurns < 0 {
		return errors.New("conversation.history_turns must not be negative")
	}
	return nil
}

// LoadDotEnv loads KEY=value pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading %s: %w", path, err)
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var
// value. An unset variable resolves to "".
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		return os.Getenv(val[2 : len(val)-1])
	}
	return val
}

// WriteDefault writes the default configuration as YAML to path. It refuses
// to overwrite an existing file unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}

	v := viper.New()
	setDefaults(v)
	data, err := yaml.Marshal(v.AllSettings())
	if err != nil {
		return fmt.Errorf("encoding default config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	slog.SetDefault(newLogger(cfg, os.Stderr))
}

func newLogger(cfg LoggingConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "pretty":
		handler = log.NewWithOptions(w, log.Options{
			Level:           log.Level(level),
			ReportTimestamp: true,
			TimeFormat:      "15:04:05",
		})
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}
