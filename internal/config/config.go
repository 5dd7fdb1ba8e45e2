package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// MinDispatchDelay is the shortest pause allowed between two outbound invitations.
const MinDispatchDelay = 3 * time.Second

// Config holds the application configuration
type Config struct {
	WhatsAppDataDir string `env:"WHATSAPP_DATA_DIR" envDefault:"data"`

	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"file"`
	DatabaseURL   string `env:"DATABASE_URL"`

	RedisAddr       string        `env:"REDIS_ADDR"`
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	RedisDB         int           `env:"REDIS_DB" envDefault:"0"`
	SummaryCacheTTL time.Duration `env:"SUMMARY_CACHE_TTL" envDefault:"30s"`

	HTTPAddr    string   `env:"HTTP_ADDR" envDefault:":5000"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`

	DefaultCountryCode string `env:"DEFAULT_COUNTRY_CODE" envDefault:"972"`

	Wedding Wedding

	InvitationImagePath string        `env:"INVITATION_IMAGE_PATH"`
	DispatchDelay       time.Duration `env:"DISPATCH_DELAY" envDefault:"3s"`
	MaxAttendees        int           `env:"MAX_ATTENDEES" envDefault:"7"`
	ResetKeyword        string        `env:"RESET_KEYWORD" envDefault:"התחלה"`

	LLM LLM

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
}

// Wedding describes the event the invitation is about.
type Wedding struct {
	BrideName     string `env:"WEDDING_BRIDE_NAME" envDefault:"Bride"`
	GroomName     string `env:"WEDDING_GROOM_NAME" envDefault:"Groom"`
	Date          string `env:"WEDDING_DATE" envDefault:"01.01.2026"`
	Location      string `env:"WEDDING_LOCATION" envDefault:"Venue TBD"`
	CalendarStart string `env:"WEDDING_CALENDAR_START"`
	CalendarEnd   string `env:"WEDDING_CALENDAR_END"`
}

// LLM configures the optional fuzzy classifier.
type LLM struct {
	Enabled bool          `env:"LLM_ENABLED" envDefault:"false"`
	BaseURL string        `env:"LLM_BASE_URL" envDefault:"http://localhost:11434/v1/"`
	APIKey  string        `env:"LLM_API_KEY" envDefault:"ollama"`
	Model   string        `env:"LLM_MODEL" envDefault:"mistral"`
	Timeout time.Duration `env:"LLM_TIMEOUT" envDefault:"5s"`
}

// LoadConfig loads configuration from environment variables or defaults
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DispatchDelay < MinDispatchDelay {
		cfg.DispatchDelay = MinDispatchDelay
	}
	if cfg.MaxAttendees <= 0 {
		cfg.MaxAttendees = 7
	}
	switch cfg.StorageDriver {
	case "file", "postgres":
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	if cfg.StorageDriver == "postgres" && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required when STORAGE_DRIVER=postgres")
	}
	return cfg, nil
}

// GuestFilePath is where the file storage driver keeps guest records.
func (c *Config) GuestFilePath() string {
	return fmt.Sprintf("%s/guests.json", c.WhatsAppDataDir)
}
