// Package config provides centralized configuration for the playbookd
// server. Values come from defaults, then an optional YAML file, then
// environment variables, with the environment winning.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all server configuration values.
type Config struct {
	// Port is the HTTP server listen port.
	Port string `yaml:"port"`

	// DBPath is the path to the SQLite session database.
	DBPath string `yaml:"db_path"`

	// OutputsDir is the root directory for per-session artifacts, backups,
	// transcripts and rendered playbooks.
	OutputsDir string `yaml:"outputs_dir"`

	// LogLevel is the minimum slog level: "debug", "info", "warn", "error".
	LogLevel string `yaml:"log_level"`

	// LLMProvider selects the model backend: "openai", "claude", "gemini",
	// "ollama". Stubs are used when the selected provider has no key.
	LLMProvider string `yaml:"llm_provider"`

	// StubTranscript makes the stub engine emit a transcript instead of
	// artifacts, exercising the log-extraction path end to end.
	StubTranscript bool `yaml:"stub_transcript"`

	OpenAIKey     string `yaml:"openai_key"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
	OpenAIModel   string `yaml:"openai_model"`

	AnthropicKey   string `yaml:"anthropic_key"`
	AnthropicModel string `yaml:"anthropic_model"`

	GeminiKey   string `yaml:"gemini_key"`
	GeminiModel string `yaml:"gemini_model"`

	OllamaURL   string `yaml:"ollama_url"`
	OllamaModel string `yaml:"ollama_model"`

	// WorkerInterval is the polling interval for the claim loop.
	WorkerInterval time.Duration `yaml:"worker_interval"`

	// SweepInterval is how often expired sessions are swept.
	SweepInterval time.Duration `yaml:"sweep_interval"`

	// RetentionWindow is how long a session may live before the sweeper
	// removes it.
	RetentionWindow time.Duration `yaml:"retention_window"`

	// PurgeDelay is how long after a successful download the session and
	// its files are kept.
	PurgeDelay time.Duration `yaml:"purge_delay"`

	// PipelineTimeout bounds a single pipeline run. Zero disables the bound.
	PipelineTimeout time.Duration `yaml:"pipeline_timeout"`

	// CORSOrigin is the allowed CORS origin. Defaults to "*".
	CORSOrigin string `yaml:"cors_origin"`
}

func defaults() Config {
	return Config{
		Port:            "8080",
		DBPath:          "playbookd.db",
		OutputsDir:      "outputs",
		LogLevel:        "info",
		LLMProvider:     "openai",
		OpenAIBaseURL:   "https://api.openai.com/v1",
		OpenAIModel:     "gpt-4o-mini",
		AnthropicModel:  "claude-sonnet-4-20250514",
		GeminiModel:     "gemini-2.0-flash",
		OllamaURL:       "http://localhost:11434",
		OllamaModel:     "llama3",
		WorkerInterval:  3 * time.Second,
		SweepInterval:   10 * time.Minute,
		RetentionWindow: 4 * time.Hour,
		PurgeDelay:      10 * time.Second,
		PipelineTimeout: 0,
		CORSOrigin:      "*",
	}
}

// Load reads configuration from an optional YAML file and the environment.
// An empty path skips the file stage.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Port, "PORT")
	setString(&cfg.DBPath, "DB_PATH")
	setString(&cfg.OutputsDir, "OUTPUTS_DIR")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.LLMProvider, "LLM_PROVIDER")
	setBool(&cfg.StubTranscript, "STUB_TRANSCRIPT")
	setString(&cfg.OpenAIKey, "OPENAI_API_KEY")
	setString(&cfg.OpenAIBaseURL, "OPENAI_BASE_URL")
	setString(&cfg.OpenAIModel, "OPENAI_MODEL")
	setString(&cfg.AnthropicKey, "ANTHROPIC_API_KEY")
	setString(&cfg.AnthropicModel, "ANTHROPIC_MODEL")
	setString(&cfg.GeminiKey, "GEMINI_API_KEY")
	setString(&cfg.GeminiModel, "GEMINI_MODEL")
	setString(&cfg.OllamaURL, "OLLAMA_URL")
	setString(&cfg.OllamaModel, "OLLAMA_MODEL")
	setDuration(&cfg.WorkerInterval, "WORKER_INTERVAL")
	setDuration(&cfg.SweepInterval, "SWEEP_INTERVAL")
	setDuration(&cfg.RetentionWindow, "RETENTION_WINDOW")
	setDuration(&cfg.PurgeDelay, "PURGE_DELAY")
	setDuration(&cfg.PipelineTimeout, "PIPELINE_TIMEOUT")
	setString(&cfg.CORSOrigin, "CORS_ORIGIN")
}

// UseStubs returns true when no API key is configured for the selected
// provider.
func (c Config) UseStubs() bool {
	switch c.LLMProvider {
	case "claude":
		return c.AnthropicKey == ""
	case "gemini":
		return c.GeminiKey == ""
	case "ollama":
		return false // Ollama runs locally, no key needed
	default:
		return c.OpenAIKey == ""
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	switch os.Getenv(key) {
	case "1", "true", "yes":
		*dst = true
	case "0", "false", "no":
		*dst = false
	}
}

func setDuration(dst *time.Duration, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return
	}
	*dst = d
}
