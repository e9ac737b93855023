package common

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string         `toml:"environment"` // "development" or "production"
	Cycle       CycleConfig    `toml:"cycle"`
	Storage     StorageConfig  `toml:"storage"`
	Market      MarketConfig   `toml:"market"`
	Tickers     TickersConfig  `toml:"tickers"`
	News        NewsConfig     `toml:"news"`
	LLM         LLMConfig      `toml:"llm"`
	Gemini      GeminiConfig   `toml:"gemini"`
	Claude      ClaudeConfig   `toml:"claude"`
	EODHD       EODHDConfig    `toml:"eodhd"`
	Telegram    TelegramConfig `toml:"telegram"`
	Ntfy        NtfyConfig     `toml:"ntfy"`
	Mail        MailConfig     `toml:"mail"`
	Schedule    ScheduleConfig `toml:"schedule"`
	Logging     LoggingConfig  `toml:"logging"`
}

// CycleConfig controls a single engine run
type CycleConfig struct {
	Timeout      string `toml:"timeout" validate:"required"`     // Whole-cycle deadline, e.g. "10m"
	HistoryLimit int    `toml:"history_limit" validate:"min=1"`  // Entries kept in the history log
	MessageLimit int    `toml:"message_limit" validate:"min=64"` // Notification length cap in runes
}

type StorageConfig struct {
	StatePath   string      `toml:"state_path" validate:"required"`   // Current dashboard JSON
	HistoryPath string      `toml:"history_path" validate:"required"` // Rolling history JSON
	Cache       CacheConfig `toml:"cache"`
}

// CacheConfig configures the Badger response cache for market data
type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path" validate:"required_if=Enabled true"`
	TTL     string `toml:"ttl"` // e.g. "30m"
}

type MarketConfig struct {
	Provider       string           `toml:"provider" validate:"oneof=yahoo eodhd"`
	Concurrency    int              `toml:"concurrency" validate:"min=1,max=32"` // Parallel price lookups
	RequestTimeout string           `toml:"request_timeout" validate:"required"` // Per-lookup timeout
	LookbackDays   int              `toml:"lookback_days" validate:"min=2"`
	RateLimit      int              `toml:"rate_limit" validate:"min=1"` // Requests per second
	Indices        []ExchangeConfig `toml:"indices" validate:"dive"`
}

// ExchangeConfig describes one tracked index and the hours of its exchange
type ExchangeConfig struct {
	Name     string `toml:"name" validate:"required"`
	Symbol   string `toml:"symbol" validate:"required"`
	Timezone string `toml:"timezone" validate:"required"`
	Open     string `toml:"open" validate:"required"`  // Local "HH:MM"
	Close    string `toml:"close" validate:"required"` // Local "HH:MM"
}

type TickersConfig struct {
	HomeSuffix     string `toml:"home_suffix"`                     // Suffix for bare numeric home-market codes
	HomeCodeDigits int    `toml:"home_code_digits" validate:"min=1"` // Length of a bare home-market code
	AliasesFile    string `toml:"aliases_file"`                    // Optional YAML display name -> symbol table
}

type NewsConfig struct {
	Feeds        []FeedConfig `toml:"feeds" validate:"dive"`
	ItemsPerFeed int          `toml:"items_per_feed" validate:"min=1"`
	Timeout      string       `toml:"timeout" validate:"required"`
	UserAgent    string       `toml:"user_agent"`
}

type FeedConfig struct {
	Label string `toml:"label"` // Prefix shown to the model, e.g. "국내"
	URL   string `toml:"url" validate:"required,url"`
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider" validate:"oneof=gemini claude"`
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey         string   `toml:"api_key"`
	Model          string   `toml:"model"`
	FallbackModels []string `toml:"fallback_models"` // Tried in order when Model fails
	Timeout        string   `toml:"timeout"`
	Temperature    float32  `toml:"temperature"`
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Timeout     string  `toml:"timeout"`
	Temperature float32 `toml:"temperature"`
}

type EODHDConfig struct {
	APIKey  string `toml:"api_key" validate:"required_if=Enabled true"`
	BaseURL string `toml:"base_url"`
	Enabled bool   `toml:"-"`
}

type TelegramConfig struct {
	Enabled bool   `toml:"enabled"`
	Token   string `toml:"token" validate:"required_if=Enabled true"`
	ChatID  string `toml:"chat_id" validate:"required_if=Enabled true"`
	BaseURL string `toml:"base_url"`
}

// NtfyConfig configures push delivery through an ntfy topic URL
type NtfyConfig struct {
	Enabled  bool   `toml:"enabled"`
	TopicURL string `toml:"topic_url" validate:"required_if=Enabled true"`
	Token    string `toml:"token"`
}

type MailConfig struct {
	Enabled  bool     `toml:"enabled"`
	Host     string   `toml:"host" validate:"required_if=Enabled true"`
	Port     int      `toml:"port"`
	Username string   `toml:"username"`
	Password string   `toml:"password"`
	From     string   `toml:"from" validate:"required_if=Enabled true"`
	FromName string   `toml:"from_name"`
	To       []string `toml:"to"`
	UseTLS   bool     `toml:"use_tls"`
}

// ScheduleConfig drives the optional in-process trigger (daemon mode)
type ScheduleConfig struct {
	Cron     string `toml:"cron"`     // Standard 5-field cron expression
	Timezone string `toml:"timezone"` // IANA zone the expression is evaluated in
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
	Dir    string   `toml:"dir"`    // Log directory for file output
}

// DefaultIndices returns the indices tracked when none are configured.
func DefaultIndices() []ExchangeConfig {
	return []ExchangeConfig{
		{Name: "S&P 500", Symbol: "^GSPC", Timezone: "America/New_York", Open: "09:30", Close: "16:00"},
		{Name: "나스닥", Symbol: "^IXIC", Timezone: "America/New_York", Open: "09:30", Close: "16:00"},
		{Name: "코스피", Symbol: "^KS11", Timezone: "Asia/Seoul", Open: "09:00", Close: "15:30"},
		{Name: "상해종합", Symbol: "000001.SS", Timezone: "Asia/Shanghai", Open: "09:30", Close: "15:00"},
		{Name: "닛케이225", Symbol: "^N225", Timezone: "Asia/Tokyo", Open: "09:00", Close: "15:30"},
		{Name: "유로스톡스", Symbol: "^STOXX50E", Timezone: "Europe/Berlin", Open: "09:00", Close: "17:30"},
	}
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Cycle: CycleConfig{
			Timeout:      "10m",
			HistoryLimit: 30,
			MessageLimit: 3800, // Stays under Telegram's 4096 limit with the truncation marker
		},
		Storage: StorageConfig{
			StatePath:   "./data/recommendations.json",
			HistoryPath: "./data/history.json",
			Cache: CacheConfig{
				Enabled: false,
				Path:    "./data/cache",
				TTL:     "30m",
			},
		},
		Market: MarketConfig{
			Provider:       "yahoo",
			Concurrency:    4,
			RequestTimeout: "15s",
			LookbackDays:   7, // Enough calendar days to span two trading bars over a long weekend
			RateLimit:      5,
			Indices:        DefaultIndices(),
		},
		Tickers: TickersConfig{
			HomeSuffix:     ".KS",
			HomeCodeDigits: 6,
		},
		News: NewsConfig{
			Feeds: []FeedConfig{
				{Label: "국내", URL: "https://news.google.com/rss/headlines/section/topic/BUSINESS?hl=ko&gl=KR&ceid=KR:ko"},
				{Label: "글로벌", URL: "https://news.google.com/rss/headlines/section/topic/BUSINESS?hl=en-US&gl=US&ceid=US:en"},
			},
			ItemsPerFeed: 5,
			Timeout:      "20s",
			UserAgent:    "Mozilla/5.0 (compatible; prism/1.0)",
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
		},
		Gemini: GeminiConfig{
			Model:          "gemini-2.0-flash",
			FallbackModels: []string{"gemini-1.5-flash"},
			Timeout:        "2m",
			Temperature:    0.7,
		},
		Claude: ClaudeConfig{
			Model:       "claude-3-5-haiku-latest",
			MaxTokens:   4096,
			Timeout:     "2m",
			Temperature: 0.7,
		},
		EODHD: EODHDConfig{
			BaseURL: "https://eodhd.com/api",
		},
		Telegram: TelegramConfig{
			BaseURL: "https://api.telegram.org",
		},
		Mail: MailConfig{
			Port:     587,
			FromName: "Prism",
			UseTLS:   true,
		},
		Schedule: ScheduleConfig{
			Cron:     "",
			Timezone: "Asia/Seoul",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
			Dir:    "./logs",
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> env
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if len(config.Market.Indices) == 0 {
		config.Market.Indices = DefaultIndices()
	}
	config.EODHD.Enabled = config.Market.Provider == "eodhd"

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config.
// PRISM_ prefixed variables take priority over the bare legacy names.
func applyEnvOverrides(config *Config) {
	if env := firstEnv("PRISM_ENV", "GO_ENV"); env != "" {
		config.Environment = env
	}

	// Cycle
	if timeout := os.Getenv("PRISM_CYCLE_TIMEOUT"); timeout != "" {
		config.Cycle.Timeout = timeout
	}
	if limit := os.Getenv("PRISM_HISTORY_LIMIT"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil {
			config.Cycle.HistoryLimit = l
		}
	}

	// Storage
	if path := os.Getenv("PRISM_STATE_PATH"); path != "" {
		config.Storage.StatePath = path
	}
	if path := os.Getenv("PRISM_HISTORY_PATH"); path != "" {
		config.Storage.HistoryPath = path
	}
	if path := os.Getenv("PRISM_CACHE_PATH"); path != "" {
		config.Storage.Cache.Path = path
		config.Storage.Cache.Enabled = true
	}

	// Market data
	if provider := os.Getenv("PRISM_MARKET_PROVIDER"); provider != "" {
		config.Market.Provider = strings.ToLower(provider)
	}
	if concurrency := os.Getenv("PRISM_MARKET_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil {
			config.Market.Concurrency = c
		}
	}
	if apiKey := firstEnv("PRISM_EODHD_API_KEY", "EODHD_API_KEY"); apiKey != "" {
		config.EODHD.APIKey = apiKey
	}
	if aliases := os.Getenv("PRISM_TICKER_ALIASES"); aliases != "" {
		config.Tickers.AliasesFile = aliases
	}

	// LLM
	if provider := os.Getenv("PRISM_LLM_DEFAULT_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(strings.ToLower(provider))
	}
	if apiKey := firstEnv("PRISM_GEMINI_API_KEY", "GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("PRISM_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}
	if apiKey := firstEnv("PRISM_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if model := os.Getenv("PRISM_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}

	// Delivery
	if token := firstEnv("PRISM_TELEGRAM_TOKEN", "TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
		config.Telegram.Enabled = true
	}
	if chatID := firstEnv("PRISM_TELEGRAM_CHAT_ID", "TELEGRAM_CHAT_ID"); chatID != "" {
		config.Telegram.ChatID = chatID
	}
	if topic := firstEnv("PRISM_NTFY_TOPIC_URL", "NTFY_TOPIC_URL"); topic != "" {
		config.Ntfy.TopicURL = topic
		config.Ntfy.Enabled = true
	}
	if token := firstEnv("PRISM_NTFY_TOKEN", "NTFY_TOKEN"); token != "" {
		config.Ntfy.Token = token
	}
	if host := os.Getenv("PRISM_SMTP_HOST"); host != "" {
		config.Mail.Host = host
		config.Mail.Enabled = true
	}
	if port := os.Getenv("PRISM_SMTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Mail.Port = p
		}
	}
	if username := os.Getenv("PRISM_SMTP_USERNAME"); username != "" {
		config.Mail.Username = username
	}
	if password := os.Getenv("PRISM_SMTP_PASSWORD"); password != "" {
		config.Mail.Password = password
	}
	if from := os.Getenv("PRISM_SMTP_FROM"); from != "" {
		config.Mail.From = from
	}
	if to := os.Getenv("PRISM_MAIL_TO"); to != "" {
		config.Mail.To = splitList(to)
	}

	// Schedule
	if schedule := os.Getenv("PRISM_SCHEDULE"); schedule != "" {
		config.Schedule.Cron = schedule
	}

	// Logging
	if level := os.Getenv("PRISM_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("PRISM_LOG_OUTPUT"); output != "" {
		config.Logging.Output = splitList(output)
	}
}

// Validate checks struct constraints, duration strings and the cron schedule.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	var errs []error
	durations := map[string]string{
		"cycle.timeout":          c.Cycle.Timeout,
		"market.request_timeout": c.Market.RequestTimeout,
		"news.timeout":           c.News.Timeout,
	}
	if c.Storage.Cache.Enabled && c.Storage.Cache.TTL != "" {
		durations["storage.cache.ttl"] = c.Storage.Cache.TTL
	}
	for name, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid duration %q: %w", name, value, err))
		}
	}

	for _, idx := range c.Market.Indices {
		if _, err := time.LoadLocation(idx.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("market.indices %s: invalid timezone %q: %w", idx.Name, idx.Timezone, err))
		}
		if _, err := ParseClock(idx.Open); err != nil {
			errs = append(errs, fmt.Errorf("market.indices %s: open: %w", idx.Name, err))
		}
		if _, err := ParseClock(idx.Close); err != nil {
			errs = append(errs, fmt.Errorf("market.indices %s: close: %w", idx.Name, err))
		}
	}

	if c.Schedule.Cron != "" {
		if err := ValidateSchedule(c.Schedule.Cron); err != nil {
			errs = append(errs, fmt.Errorf("schedule.cron: %w", err))
		}
	}

	return errors.Join(errs...)
}

// ValidateSchedule validates a cron schedule expression and ensures at most one run per hour
func ValidateSchedule(schedule string) error {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	parts := strings.Fields(schedule)
	if len(parts) == 5 && (parts[0] == "*" || strings.HasPrefix(parts[0], "*/")) {
		return fmt.Errorf("schedule must not run more than once per hour (minute field %q)", parts[0])
	}

	return nil
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// ParseDurationOr parses value, returning fallback when it is empty or invalid.
func ParseDurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
