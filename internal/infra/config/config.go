package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	HTTPClient HTTPClientConfig `yaml:"http_client"`
	Limiter    LimiterConfig    `yaml:"limiter"`
	LLM        LLMConfig        `yaml:"llm"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Storage    StorageConfig    `yaml:"storage"`
}

type ServerConfig struct {
	Addr                string `yaml:"addr"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
	// PublicBaseURL is the externally visible URL prefix for deck links.
	PublicBaseURL string `yaml:"public_base_url"`
	// InternalSecret guards the image-upload endpoint called by the bot.
	InternalSecret string `yaml:"internal_secret"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type HTTPClientConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
	MaxRetries     int `yaml:"max_retries"`
}

type LimiterConfig struct {
	MaxConcurrent int     `yaml:"max_concurrent"`
	RatePerSecond float64 `yaml:"rate_per_second"`
}

type LLMConfig struct {
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	FastModel       string `yaml:"fast_model"`
	QualityModel    string `yaml:"quality_model"`
	// OpenRouter fallback, used only on rate-limit/overload from Anthropic.
	OpenRouterAPIKey string `yaml:"openrouter_api_key"`
	OpenRouterModel  string `yaml:"openrouter_model"`
}

type OpenAIConfig struct {
	// APIKey enables Whisper voice transcription; leave empty to disable.
	APIKey string `yaml:"api_key"`
}

type TelegramConfig struct {
	BotToken      string `yaml:"bot_token"`
	WebhookSecret string `yaml:"webhook_secret"`
}

type StorageConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
	UploadDir  string `yaml:"upload_dir"`
	// FilesBaseURL is the URL prefix under which uploads are served.
	FilesBaseURL string `yaml:"files_base_url"`
}

func Load() (*Config, error) {
	cfg := defaultConfig()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return applyEnvOverrides(cfg), nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return applyEnvOverrides(cfg), nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:                ":8080",
			ReadTimeoutSeconds:  30,
			WriteTimeoutSeconds: 120,
			PublicBaseURL:       "http://localhost:8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		HTTPClient: HTTPClientConfig{
			TimeoutSeconds: 60,
			MaxRetries:     2,
		},
		Limiter: LimiterConfig{
			MaxConcurrent: 10,
			RatePerSecond: 5,
		},
		LLM: LLMConfig{
			FastModel:       "claude-3-haiku-20240307",
			QualityModel:    "claude-sonnet-4-20250514",
			OpenRouterModel: "minimax/minimax-01",
		},
		Storage: StorageConfig{
			SQLitePath:   "./data/speaktoslides.sqlite",
			UploadDir:    "./data/uploads",
			FilesBaseURL: "/files",
		},
	}
}

func applyEnvOverrides(cfg *Config) *Config {
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("PUBLIC_BASE_URL"); v != "" {
		cfg.Server.PublicBaseURL = v
	}
	if v := os.Getenv("INTERNAL_API_SECRET"); v != "" {
		cfg.Server.InternalSecret = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.LLM.AnthropicAPIKey = v
	}
	if v := os.Getenv("ANTHROPIC_FAST_MODEL"); v != "" {
		cfg.LLM.FastModel = v
	}
	if v := os.Getenv("ANTHROPIC_QUALITY_MODEL"); v != "" {
		cfg.LLM.QualityModel = v
	}
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		cfg.LLM.OpenRouterAPIKey = v
	}
	if v := os.Getenv("OPENROUTER_MODEL"); v != "" {
		cfg.LLM.OpenRouterModel = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_WEBHOOK_SECRET"); v != "" {
		cfg.Telegram.WebhookSecret = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("UPLOAD_DIR"); v != "" {
		cfg.Storage.UploadDir = v
	}
	return cfg
}
