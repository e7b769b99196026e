package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const maxFetchTimeout = 10 * time.Second

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	TelegramToken      string        `mapstructure:"telegram_token" json:"-"`
	TelegramAPIBase    string        `mapstructure:"telegram_api_base"`
	TargetChatIDRaw    string        `mapstructure:"target_chat_id" json:"-"`
	TargetChatID       int64         `mapstructure:"-"`
	PollTimeoutSeconds int           `mapstructure:"poll_timeout_seconds"`
	PollTimeout        time.Duration `mapstructure:"-"`

	SummarizerType        string  `mapstructure:"summarizer_type"`
	SummarizerModel       string  `mapstructure:"summarizer_model"`
	SummarizerTemperature float64 `mapstructure:"summarizer_temperature"`
	SummarizerEndpoint    string  `mapstructure:"summarizer_endpoint"`
	SummaryConcurrency    int     `mapstructure:"summary_concurrency"`
	GeminiAPIKey          string  `mapstructure:"gemini_api_key" json:"-"`
	OpenAIAPIKey          string  `mapstructure:"openai_api_key" json:"-"`
	CohereAPIKey          string  `mapstructure:"cohere_api_key" json:"-"`

	SourcesFile        string         `mapstructure:"sources_file"`
	MaxPerSource       int            `mapstructure:"max_per_source"`
	RecencyWindowHours int64          `mapstructure:"recency_window_hours"`
	RecencyWindow      time.Duration  `mapstructure:"-"`
	BriefingTimesRaw   string         `mapstructure:"briefing_times"`
	BriefingTimes      []string       `mapstructure:"-"`
	Timezone           string         `mapstructure:"timezone"`
	Location           *time.Location `mapstructure:"-" json:"-"`

	FetchTimeoutSeconds int           `mapstructure:"fetch_timeout_seconds"`
	FetchTimeout        time.Duration `mapstructure:"-"`
	FetchWorkers        int           `mapstructure:"fetch_workers"`
	Extractor           string        `mapstructure:"extractor"`
	UserAgent           string        `mapstructure:"user_agent"`

	StorageType string `mapstructure:"storage_type"`
	BBoltPath   string `mapstructure:"bbolt_path"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn" json:"-"`
	RedisURL    string `mapstructure:"redis_url" json:"-"`

	HTTPAddr string `mapstructure:"http_addr"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "samvad-briefing")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")

	v.SetDefault("telegram_token", "")
	v.SetDefault("telegram_api_base", "")
	v.SetDefault("target_chat_id", "")
	v.SetDefault("poll_timeout_seconds", 30)

	v.SetDefault("summarizer_type", "gemini")
	v.SetDefault("summarizer_model", "")
	v.SetDefault("summarizer_temperature", 0.2)
	v.SetDefault("summarizer_endpoint", "")
	v.SetDefault("summary_concurrency", 2)
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("openai_api_key", "")
	v.SetDefault("cohere_api_key", "")

	v.SetDefault("sources_file", "")
	v.SetDefault("max_per_source", 5)
	v.SetDefault("recency_window_hours", 48)
	v.SetDefault("briefing_times", "08:00,20:00")
	v.SetDefault("timezone", "Asia/Kolkata")

	v.SetDefault("fetch_timeout_seconds", 10)
	v.SetDefault("fetch_workers", 1)
	v.SetDefault("extractor", "paragraphs")
	v.SetDefault("user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64)")

	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/seen.db")
	v.SetDefault("sqlite_path", "./data/seen_articles.db")
	v.SetDefault("postgres_dsn", "")
	v.SetDefault("redis_url", "")

	v.SetDefault("http_addr", "")
}

// finalize validates raw values and derives typed fields.
func (c *Config) finalize() error {
	c.TelegramToken = strings.TrimSpace(c.TelegramToken)
	if c.TelegramToken == "" {
		return fmt.Errorf("telegram_token is required")
	}

	rawChat := strings.TrimSpace(c.TargetChatIDRaw)
	if rawChat == "" {
		return fmt.Errorf("target_chat_id is required")
	}
	chatID, err := strconv.ParseInt(rawChat, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid target_chat_id %q: %w", rawChat, err)
	}
	c.TargetChatID = chatID

	if c.PollTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid poll_timeout_seconds (must be positive seconds)")
	}
	c.PollTimeout = time.Duration(c.PollTimeoutSeconds) * time.Second

	c.SummarizerType = strings.ToLower(strings.TrimSpace(c.SummarizerType))
	if c.SummarizerAPIKey() == "" {
		return fmt.Errorf("api key for summarizer_type %q is required", c.SummarizerType)
	}
	if c.SummarizerTemperature < 0 || c.SummarizerTemperature > 2 {
		return fmt.Errorf("invalid summarizer_temperature %v (expected 0..2)", c.SummarizerTemperature)
	}
	if c.SummaryConcurrency <= 0 {
		return fmt.Errorf("invalid summary_concurrency (must be positive)")
	}

	if c.MaxPerSource <= 0 {
		return fmt.Errorf("invalid max_per_source (must be positive)")
	}
	if c.RecencyWindowHours <= 0 {
		return fmt.Errorf("invalid recency_window_hours (must be positive hours)")
	}
	c.RecencyWindow = time.Duration(c.RecencyWindowHours) * time.Hour

	c.BriefingTimes = splitList(c.BriefingTimesRaw)
	if len(c.BriefingTimes) == 0 {
		return fmt.Errorf("briefing_times must list at least one HH:MM entry")
	}

	loc, err := time.LoadLocation(strings.TrimSpace(c.Timezone))
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	c.Location = loc

	if c.FetchTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid fetch_timeout_seconds (must be positive seconds)")
	}
	c.FetchTimeout = time.Duration(c.FetchTimeoutSeconds) * time.Second
	if c.FetchTimeout > maxFetchTimeout {
		c.FetchTimeout = maxFetchTimeout
	}
	if c.FetchWorkers <= 0 {
		c.FetchWorkers = 1
	}
	c.Extractor = strings.ToLower(strings.TrimSpace(c.Extractor))

	c.StorageType = strings.ToLower(strings.TrimSpace(c.StorageType))
	return nil
}

// SummarizerAPIKey returns the credential matching the configured summarizer type.
func (c *Config) SummarizerAPIKey() string {
	switch c.SummarizerType {
	case "gemini":
		return strings.TrimSpace(c.GeminiAPIKey)
	case "openai":
		return strings.TrimSpace(c.OpenAIAPIKey)
	case "cohere":
		return strings.TrimSpace(c.CohereAPIKey)
	default:
		return ""
	}
}

// StorageLocation returns the path or DSN used by the configured storage type.
func (c *Config) StorageLocation() string {
	switch c.StorageType {
	case "bbolt":
		return c.BBoltPath
	case "sqlite", "sqlite3":
		return c.SQLitePath
	case "postgres", "postgresql":
		return c.PostgresDSN
	case "redis":
		return c.RedisURL
	default:
		return ""
	}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
