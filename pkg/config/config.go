package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Storage     StorageConfig     `yaml:"storage"`
	Transcriber TranscriberConfig `yaml:"transcriber"`
	LLM         LLMConfig         `yaml:"llm"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Logging     LoggingConfig     `yaml:"logging"`
	Tracing     TracingConfig     `yaml:"tracing"`
	Watcher     WatcherConfig     `yaml:"watcher"`
}

type ServerConfig struct {
	Address      string        `yaml:"address"`
	BasePath     string        `yaml:"base_path"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	MaxUploadMB  int64         `yaml:"max_upload_mb"`
}

type StorageConfig struct {
	Backend  string `yaml:"backend"`
	DataDir  string `yaml:"data_dir"`
	AudioDir string `yaml:"audio_dir"`
}

type TranscriberConfig struct {
	Backend    string        `yaml:"backend"`
	BaseURL    string        `yaml:"base_url"`
	Model      string        `yaml:"model"`
	Language   string        `yaml:"language"`
	APIKey     string        `yaml:"api_key"`
	BinaryPath string        `yaml:"binary_path"`
	ModelPath  string        `yaml:"model_path"`
	FFmpegPath string        `yaml:"ffmpeg_path"`
	Threads    int           `yaml:"threads"`
	Timeout    time.Duration `yaml:"timeout"`
}

type LLMConfig struct {
	Backend   string        `yaml:"backend"`
	BaseURL   string        `yaml:"base_url"`
	ModelName string        `yaml:"model_name"`
	Timeout   time.Duration `yaml:"timeout"`
}

type PipelineConfig struct {
	MaxConcurrentTranscriptions int `yaml:"max_concurrent_transcriptions"`
	MaxConcurrentGenerations    int `yaml:"max_concurrent_generations"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	Mode  string `yaml:"mode"`
}

type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Exporter    string  `yaml:"exporter"`
	Endpoint    string  `yaml:"endpoint"`
	SampleRatio float64 `yaml:"sample_ratio"`
	ServiceName string  `yaml:"service_name"`
}

type WatcherConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Dir           string `yaml:"dir"`
	ArchiveDir    string `yaml:"archive_dir"`
	MaxConcurrent int    `yaml:"max_concurrent"`
}

// Load reads .env (when present), then the YAML file at path (skipped when
// path is empty), then environment overrides, and finally validates.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Address, "SERVER_ADDRESS")
	setString(&cfg.Storage.Backend, "STORAGE_BACKEND")
	setString(&cfg.Storage.DataDir, "DATA_DIR")
	setString(&cfg.Storage.AudioDir, "AUDIO_DIR")
	setString(&cfg.Transcriber.Backend, "TRANSCRIBER_BACKEND")
	setString(&cfg.Transcriber.BaseURL, "WHISPER_BASE_URL")
	setString(&cfg.Transcriber.Model, "WHISPER_MODEL")
	setString(&cfg.Transcriber.Language, "WHISPER_LANGUAGE")
	setString(&cfg.Transcriber.APIKey, "WHISPER_API_KEY")
	setString(&cfg.Transcriber.BinaryPath, "WHISPER_BINARY_PATH")
	setString(&cfg.Transcriber.ModelPath, "WHISPER_MODEL_PATH")
	setString(&cfg.Transcriber.FFmpegPath, "FFMPEG_PATH")
	setString(&cfg.LLM.Backend, "LLM_BACKEND")
	setString(&cfg.LLM.BaseURL, "LLM_API_BASE_URL")
	setString(&cfg.LLM.ModelName, "LLM_MODEL_NAME")
	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Mode, "LOG_MODE")
	setBool(&cfg.Tracing.Enabled, "OTEL_ENABLED")
	setString(&cfg.Tracing.Exporter, "OTEL_EXPORTER")
	setString(&cfg.Tracing.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	if v := strings.TrimSpace(os.Getenv("WATCH_DIR")); v != "" {
		cfg.Watcher.Dir = v
		cfg.Watcher.Enabled = true
	}
}

func setString(dst *string, name string) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, name string) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return
	}
	if b, err := strconv.ParseBool(v); err == nil {
		*dst = b
	}
}

// Validate fills defaults and rejects values no component can run with.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		c.Server.Address = ":8000"
	}
	if c.Server.BasePath == "" {
		c.Server.BasePath = "/api"
	}
	if !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("server.base_path must start with /")
	}
	c.Server.BasePath = strings.TrimRight(c.Server.BasePath, "/")
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 60 * time.Second
	}
	// Transcription and note generation hold the response open.
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Minute
	}
	if c.Server.MaxUploadMB == 0 {
		c.Server.MaxUploadMB = 512
	}
	if c.Server.MaxUploadMB < 0 {
		return fmt.Errorf("server.max_upload_mb must be positive")
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = "badger"
	}
	switch c.Storage.Backend {
	case "badger", "memory":
	default:
		return fmt.Errorf("storage.backend %q is not supported (badger, memory)", c.Storage.Backend)
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "data"
	}
	if c.Storage.AudioDir == "" {
		c.Storage.AudioDir = c.Storage.DataDir + "/audio"
	}

	if c.Transcriber.Backend == "" {
		c.Transcriber.Backend = "http"
	}
	switch c.Transcriber.Backend {
	case "http":
		if c.Transcriber.BaseURL == "" {
			c.Transcriber.BaseURL = "http://localhost:9000"
		}
		if err := checkBaseURL(c.Transcriber.BaseURL); err != nil {
			return fmt.Errorf("transcriber.base_url: %w", err)
		}
		if c.Transcriber.Model == "" {
			c.Transcriber.Model = "small"
		}
	case "cli":
		if c.Transcriber.ModelPath == "" {
			return fmt.Errorf("transcriber.model_path is required for the cli backend")
		}
		if c.Transcriber.BinaryPath == "" {
			c.Transcriber.BinaryPath = "whisper-cli"
		}
		if c.Transcriber.FFmpegPath == "" {
			c.Transcriber.FFmpegPath = "ffmpeg"
		}
		if c.Transcriber.Threads == 0 {
			c.Transcriber.Threads = 4
		}
	default:
		return fmt.Errorf("transcriber.backend %q is not supported (http, cli)", c.Transcriber.Backend)
	}
	if c.Transcriber.Timeout < 0 {
		return fmt.Errorf("transcriber.timeout must not be negative")
	}

	if c.LLM.Backend == "" {
		c.LLM.Backend = "ollama"
	}
	if c.LLM.Backend != "ollama" {
		return fmt.Errorf("llm.backend %q is not supported (ollama)", c.LLM.Backend)
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "http://localhost:11434"
	}
	if err := checkBaseURL(c.LLM.BaseURL); err != nil {
		return fmt.Errorf("llm.base_url: %w", err)
	}
	if c.LLM.ModelName == "" {
		c.LLM.ModelName = "tinyllama"
	}
	if c.LLM.Timeout < 0 {
		return fmt.Errorf("llm.timeout must not be negative")
	}

	if c.Pipeline.MaxConcurrentTranscriptions == 0 {
		c.Pipeline.MaxConcurrentTranscriptions = 2
	}
	if c.Pipeline.MaxConcurrentGenerations == 0 {
		c.Pipeline.MaxConcurrentGenerations = 2
	}
	if c.Pipeline.MaxConcurrentTranscriptions < 0 || c.Pipeline.MaxConcurrentGenerations < 0 {
		return fmt.Errorf("pipeline concurrency limits must be positive")
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Mode == "" {
		c.Logging.Mode = "development"
	}

	if c.Tracing.Exporter == "" {
		c.Tracing.Exporter = "stdout"
	}
	if c.Tracing.Exporter != "stdout" && c.Tracing.Exporter != "otlp" {
		return fmt.Errorf("tracing.exporter %q is not supported (stdout, otlp)", c.Tracing.Exporter)
	}
	if c.Tracing.SampleRatio == 0 {
		c.Tracing.SampleRatio = 1
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be within [0, 1]")
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "lecture-notes"
	}

	if c.Watcher.Enabled && c.Watcher.Dir == "" {
		return fmt.Errorf("watcher.dir is required when the watcher is enabled")
	}
	if c.Watcher.ArchiveDir == "" && c.Watcher.Dir != "" {
		c.Watcher.ArchiveDir = c.Watcher.Dir + "/archived"
	}
	if c.Watcher.MaxConcurrent == 0 {
		c.Watcher.MaxConcurrent = 1
	}

	return nil
}

func checkBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host", raw)
	}
	return nil
}
