package app

import (
	"errors"
	"log/slog"

	"github.com/kelseyhightower/envconfig"

	"github.com/jecastrom/lager-build-sub000/internal/tickets"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv    string `envconfig:"APP_ENV" default:"development"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	// RedisAddr selects the key-value blob store. Empty means the
	// workspace runs on the in-memory store only.
	RedisAddr      string `envconfig:"REDIS_ADDR" default:""`
	StoreNamespace string `envconfig:"STORE_NAMESPACE" default:"lager"`

	AuditTrailCap    int    `envconfig:"AUDIT_TRAIL_CAP" default:"500"`
	DefaultWarehouse string `envconfig:"DEFAULT_WAREHOUSE" default:"Hauptlager"`

	TicketOnDamage   bool `envconfig:"TICKET_ON_DAMAGE" default:"true"`
	TicketOnWrong    bool `envconfig:"TICKET_ON_WRONG" default:"true"`
	TicketOnRejected bool `envconfig:"TICKET_ON_REJECTED" default:"true"`
	TicketOnShortage bool `envconfig:"TICKET_ON_SHORTAGE" default:"true"`
	TicketOnOverage  bool `envconfig:"TICKET_ON_OVERAGE" default:"true"`

	TimelineDamage   bool `envconfig:"TIMELINE_DAMAGE" default:"false"`
	TimelineWrong    bool `envconfig:"TIMELINE_WRONG" default:"false"`
	TimelineShortage bool `envconfig:"TIMELINE_SHORTAGE" default:"false"`
	TimelineOverage  bool `envconfig:"TIMELINE_OVERAGE" default:"false"`
	TimelineOther    bool `envconfig:"TIMELINE_OTHER" default:"false"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.AuditTrailCap <= 0 {
		return nil, errors.New("audit trail cap must be positive")
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// Level maps LOG_LEVEL onto a slog level. Unknown values read as info.
func (c *Config) Level() slog.Level {
	if c == nil {
		return slog.LevelInfo
	}
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// AutomationDefaults maps the TICKET_ON_* and TIMELINE_* fields onto the
// generator's trigger configuration. These are startup defaults; a config
// already persisted in the workspace wins over them.
func (c *Config) AutomationDefaults() tickets.TriggerConfig {
	if c == nil {
		return tickets.DefaultTriggerConfig()
	}
	return tickets.TriggerConfig{
		TicketOnDamage:   c.TicketOnDamage,
		TicketOnWrong:    c.TicketOnWrong,
		TicketOnRejected: c.TicketOnRejected,
		TicketOnShortage: c.TicketOnShortage,
		TicketOnOverage:  c.TicketOnOverage,
		TimelineDamage:   c.TimelineDamage,
		TimelineWrong:    c.TimelineWrong,
		TimelineShortage: c.TimelineShortage,
		TimelineOverage:  c.TimelineOverage,
		TimelineOther:    c.TimelineOther,
	}
}
