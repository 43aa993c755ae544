package common

import (
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
	Environment string          `toml:"environment" validate:"omitempty,oneof=development production dev prod"`
	Logging     LoggingConfig   `toml:"logging"`
	Schedule    ScheduleConfig  `toml:"schedule"`
	Kalshi      KalshiConfig    `toml:"kalshi"`
	Selection   SelectionConfig `toml:"selection"`
	Research    ResearchConfig  `toml:"research"`
	Mailer      MailerConfig    `toml:"mailer"`
	Metrics     MetricsConfig   `toml:"metrics"`
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=debug info warn error"` // "debug", "info", "warn", "error"
	Output     []string `toml:"output" validate:"dive,oneof=stdout console file"`
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05")
}

// ScheduleConfig controls the cron trigger for pipeline runs
type ScheduleConfig struct {
	Enabled    bool   `toml:"enabled"`
	Cron       string `toml:"cron"`         // Standard 5-field cron expression (default: "0 21 * * *")
	RunOnStart bool   `toml:"run_on_start"` // Execute one run immediately when the scheduler starts
}

// KalshiConfig contains the market source configuration
type KalshiConfig struct {
	BaseURL           string `toml:"base_url" validate:"required,url"`
	MarketURLTemplate string `toml:"market_url_template" validate:"required,contains=%s"` // Detail page link, %s receives the ticker
	APIKey            string `toml:"api_key"`
	Status            string `toml:"status"`     // Market status filter, e.g. "open" (empty = no filter)
	PageLimit         int    `toml:"page_limit" validate:"min=1,max=1000"`
	MaxPages          int    `toml:"max_pages" validate:"min=1"`
	Timeout           string `toml:"timeout"`    // Duration string (default: "30s")
	RateLimit         int    `toml:"rate_limit" validate:"min=1"` // Requests per second
	Retries           int    `toml:"retries" validate:"min=0,max=1"`
}

type SelectionConfig struct {
	TopK int `toml:"top_k" validate:"min=1"`
}

// ResearchConfig contains configuration for per-pick LLM summaries
type ResearchConfig struct {
	Provider    string            `toml:"provider" validate:"oneof=huggingface claude gemini none"`
	Timeout     string            `toml:"timeout"`    // Per-call timeout (default: "20s")
	MaxTokens   int               `toml:"max_tokens" validate:"min=1"`
	HuggingFace HuggingFaceConfig `toml:"huggingface"`
	Claude      ClaudeConfig      `toml:"claude"`
	Gemini      GeminiConfig      `toml:"gemini"`
}

type HuggingFaceConfig struct {
	APIKey string `toml:"api_key"`
	URL    string `toml:"url" validate:"omitempty,url"`
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Temperature float32 `toml:"temperature"`
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Temperature float32 `toml:"temperature"`
}

// MailerConfig contains report delivery configuration
type MailerConfig struct {
	Channel       string      `toml:"channel" validate:"oneof=brevo smtp log"`
	Recipient     string      `toml:"recipient" validate:"required,email"`
	RecipientName string      `toml:"recipient_name"`
	FromName      string      `toml:"from_name"`
	FromEmail     string      `toml:"from_email" validate:"required,email"`
	Timeout       string      `toml:"timeout"`
	Brevo         BrevoConfig `toml:"brevo"`
	SMTP          SMTPConfig  `toml:"smtp"`
}

type BrevoConfig struct {
	APIKey string `toml:"api_key"`
	URL    string `toml:"url" validate:"omitempty,url"`
}

type SMTPConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port" validate:"min=0,max=65535"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	UseTLS   bool   `toml:"use_tls"`
}

// MetricsConfig controls the optional Prometheus Pushgateway export
type MetricsConfig struct {
	PushgatewayURL string `toml:"pushgateway_url" validate:"omitempty,url"`
	Job            string `toml:"job"`
	Timeout        string `toml:"timeout"` // Push deadline (default: "10s")
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
		Schedule: ScheduleConfig{
			Enabled:    false,        // One-shot by default
			Cron:       "0 21 * * *", // Nightly at 21:00
			RunOnStart: false,
		},
		Kalshi: KalshiConfig{
			BaseURL:           "https://demo-api.kalshi.co/trade-api/v2",
			MarketURLTemplate: "https://demo.kalshi.co/market/%s",
			Status:            "open",
			PageLimit:         200,
			MaxPages:          5,
			Timeout:           "30s",
			RateLimit:         10,
			Retries:           0,
		},
		Selection: SelectionConfig{
			TopK: 3,
		},
		Research: ResearchConfig{
			Provider:  "huggingface",
			Timeout:   "20s",
			MaxTokens: 80,
			HuggingFace: HuggingFaceConfig{
				URL: "https://router.huggingface.co/meta-llama/Llama-3-8B-Instruct",
			},
			Claude: ClaudeConfig{
				Model:       "claude-haiku-4-5",
				Temperature: 0.3,
			},
			Gemini: GeminiConfig{
				Model:       "gemini-2.5-flash",
				Temperature: 0.3,
			},
		},
		Mailer: MailerConfig{
			Channel:       "brevo",
			RecipientName: "Architect",
			FromName:      "Kalshi Bot",
			FromEmail:     "bot@example.com",
			Timeout:       "30s",
			Brevo: BrevoConfig{
				URL: "https://api.brevo.com/v3/smtp/email",
			},
			SMTP: SMTPConfig{
				Port:   587,
				UseTLS: true,
			},
		},
		Metrics: MetricsConfig{
			Job:     "alphapicks",
			Timeout: "10s",
		},
	}
}

// LoadFromFiles loads configuration with priority: default -> file1 -> file2 -> ... -> env
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

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config.
// Credential variables keep their conventional names; everything else uses the ALPHAPICKS_ prefix.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("ALPHAPICKS_ENV"); env != "" {
		config.Environment = env
	}

	// Logging
	if level := os.Getenv("ALPHAPICKS_LOG_LEVEL"); level != "" {
		config.Logging.Level = strings.ToLower(level)
	}
	if output := os.Getenv("ALPHAPICKS_LOG_OUTPUT"); output != "" {
		config.Logging.Output = splitList(output)
	}

	// Schedule
	if cronExpr := os.Getenv("ALPHAPICKS_SCHEDULE"); cronExpr != "" {
		config.Schedule.Cron = cronExpr
		config.Schedule.Enabled = true
	}

	// Kalshi
	if key := os.Getenv("KALSHI_KEY"); key != "" {
		config.Kalshi.APIKey = strings.TrimSpace(key)
	}
	if baseURL := os.Getenv("ALPHAPICKS_KALSHI_BASE_URL"); baseURL != "" {
		config.Kalshi.BaseURL = baseURL
	}
	if status := os.Getenv("ALPHAPICKS_KALSHI_STATUS"); status != "" {
		config.Kalshi.Status = status
	}

	// Selection
	if topK := os.Getenv("ALPHAPICKS_TOP_K"); topK != "" {
		if k, err := strconv.Atoi(topK); err == nil {
			config.Selection.TopK = k
		}
	}

	// Research
	if provider := os.Getenv("ALPHAPICKS_RESEARCH_PROVIDER"); provider != "" {
		config.Research.Provider = strings.ToLower(provider)
	}
	if token := os.Getenv("HF_TOKEN"); token != "" {
		config.Research.HuggingFace.APIKey = strings.TrimSpace(token)
	}
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Research.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.Research.Gemini.APIKey = apiKey
	}

	// Mailer
	if channel := os.Getenv("ALPHAPICKS_MAILER_CHANNEL"); channel != "" {
		config.Mailer.Channel = strings.ToLower(channel)
	}
	if recipient := os.Getenv("RECIPIENT"); recipient != "" {
		config.Mailer.Recipient = strings.TrimSpace(recipient)
	}
	if apiKey := os.Getenv("BREVO_API_KEY"); apiKey != "" {
		config.Mailer.Brevo.APIKey = strings.TrimSpace(apiKey)
	}
	if host := os.Getenv("ALPHAPICKS_SMTP_HOST"); host != "" {
		config.Mailer.SMTP.Host = host
	}
	if port := os.Getenv("ALPHAPICKS_SMTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Mailer.SMTP.Port = p
		}
	}
	if username := os.Getenv("ALPHAPICKS_SMTP_USERNAME"); username != "" {
		config.Mailer.SMTP.Username = username
	}
	if password := os.Getenv("ALPHAPICKS_SMTP_PASSWORD"); password != "" {
		config.Mailer.SMTP.Password = password
	}

	// Metrics
	if url := os.Getenv("ALPHAPICKS_PUSHGATEWAY_URL"); url != "" {
		config.Metrics.PushgatewayURL = url
	}
}

// Validate checks struct constraints, the cron expression and the credentials
// required by the selected research provider and mail channel.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	for name, value := range map[string]string{
		"kalshi.timeout":   c.Kalshi.Timeout,
		"research.timeout": c.Research.Timeout,
		"mailer.timeout":   c.Mailer.Timeout,
		"metrics.timeout":  c.Metrics.Timeout,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration for %s '%s': %w", name, value, err)
		}
	}

	if c.Schedule.Enabled {
		if err := ValidateSchedule(c.Schedule.Cron); err != nil {
			return err
		}
	}

	switch c.Research.Provider {
	case "huggingface":
		if c.Research.HuggingFace.APIKey == "" {
			return fmt.Errorf("research provider 'huggingface' requires an API key (HF_TOKEN or research.huggingface.api_key)")
		}
	case "claude":
		if c.Research.Claude.APIKey == "" {
			return fmt.Errorf("research provider 'claude' requires an API key (ANTHROPIC_API_KEY or research.claude.api_key)")
		}
	case "gemini":
		if c.Research.Gemini.APIKey == "" {
			return fmt.Errorf("research provider 'gemini' requires an API key (GEMINI_API_KEY or research.gemini.api_key)")
		}
	}

	switch c.Mailer.Channel {
	case "brevo":
		if c.Mailer.Brevo.APIKey == "" {
			return fmt.Errorf("mail channel 'brevo' requires an API key (BREVO_API_KEY or mailer.brevo.api_key)")
		}
	case "smtp":
		if c.Mailer.SMTP.Host == "" || c.Mailer.SMTP.Username == "" || c.Mailer.SMTP.Password == "" {
			return fmt.Errorf("mail channel 'smtp' requires mailer.smtp.host, username and password")
		}
	case "log":
		if c.IsProduction() {
			return fmt.Errorf("mail channel 'log' is a dry run and cannot be used in production")
		}
	}

	return nil
}

// ValidateSchedule validates a cron schedule expression and ensures minimum 5-minute interval
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	parts := strings.Fields(schedule)
	if len(parts) < 5 {
		return fmt.Errorf("invalid cron format: expected 5 fields")
	}

	minuteField := parts[0]
	if minuteField == "*" {
		return fmt.Errorf("schedule must have minimum 5-minute interval (every minute is not allowed)")
	}

	if strings.HasPrefix(minuteField, "*/") {
		interval, err := strconv.Atoi(strings.TrimPrefix(minuteField, "*/"))
		if err == nil && interval < 5 {
			return fmt.Errorf("schedule interval must be at least 5 minutes, got %d", interval)
		}
	}

	return nil
}

// ParseDuration parses a duration string, returning fallback when empty or invalid
func ParseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

func splitList(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
