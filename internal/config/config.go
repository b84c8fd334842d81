package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"timeslot-service/internal/catalog"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	StaticTokens      string `mapstructure:"STATIC_TOKENS"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`
	AllowedOrigins    string `mapstructure:"ALLOWED_ORIGINS"`
	TrustedProxies    string `mapstructure:"TRUSTED_PROXIES"`

	// Scheduling policy.
	SchedulingTimezone  string        `mapstructure:"SCHEDULING_TIMEZONE"`
	OverrideWeekday     string        `mapstructure:"OVERRIDE_WEEKDAY"`
	LegacyPrefixMatch   bool          `mapstructure:"LEGACY_PREFIX_MATCH"`
	GlobalMeetingTypes  string        `mapstructure:"GLOBAL_MEETING_TYPES"`
	RuleRefreshInterval time.Duration `mapstructure:"RULE_REFRESH_INTERVAL"`

	// Redis rule snapshot cache.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	RuleCacheKey  string `mapstructure:"RULE_CACHE_KEY"`

	// Google Calendar / Sheets.
	GoogleCredentialsFile  string `mapstructure:"GOOGLE_CREDENTIALS_FILE"`
	GoogleCalendarID       string `mapstructure:"GOOGLE_CALENDAR_ID"`
	GoogleClientID         string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret     string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL      string `mapstructure:"GOOGLE_REDIRECT_URL"`
	RulesSpreadsheetID     string `mapstructure:"RULES_SPREADSHEET_ID"`
	RulesSheetRange        string `mapstructure:"RULES_SHEET_RANGE"`
	MeetingTypesSheetRange string `mapstructure:"MEETING_TYPES_SHEET_RANGE"`

	// Kafka booking events.
	KafkaBrokers      string `mapstructure:"KAFKA_BROKERS"`
	KafkaBookingTopic string `mapstructure:"KAFKA_BOOKING_TOPIC"`
}

var keys = []string{
	"APP_PORT", "ENV", "LOG_LEVEL", "DATABASE_URL", "JWT_SECRET", "STATIC_TOKENS",
	"MAX_REQUESTS_PER_MIN", "ALLOWED_ORIGINS", "TRUSTED_PROXIES", "SCHEDULING_TIMEZONE", "OVERRIDE_WEEKDAY",
	"LEGACY_PREFIX_MATCH", "GLOBAL_MEETING_TYPES", "RULE_REFRESH_INTERVAL", "REDIS_ADDR",
	"REDIS_PASSWORD", "REDIS_DB", "RULE_CACHE_KEY", "GOOGLE_CREDENTIALS_FILE",
	"GOOGLE_CALENDAR_ID", "GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "GOOGLE_REDIRECT_URL",
	"RULES_SPREADSHEET_ID", "RULES_SHEET_RANGE", "MEETING_TYPES_SHEET_RANGE", "KAFKA_BROKERS",
	"KAFKA_BOOKING_TOPIC",
}

// Load reads config.yaml (from . or ./config) when present, then the environment.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()
	// OVERRIDE_WEEKDAY="" disables the override rather than restoring the default.
	v.AllowEmptyEnv(true)

	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	v.SetDefault("ALLOWED_ORIGINS", "*")
	v.SetDefault("SCHEDULING_TIMEZONE", "Asia/Jerusalem")
	v.SetDefault("OVERRIDE_WEEKDAY", "Saturday")
	v.SetDefault("LEGACY_PREFIX_MATCH", true)
	v.SetDefault("GLOBAL_MEETING_TYPES", "phone:15,video:30,in_person:60")
	v.SetDefault("RULE_REFRESH_INTERVAL", "0s")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("RULE_CACHE_KEY", "timeslot:rules")
	v.SetDefault("GOOGLE_CALENDAR_ID", "primary")
	v.SetDefault("RULES_SHEET_RANGE", "Rules!A1:Z")
	v.SetDefault("KAFKA_BOOKING_TOPIC", "bookings.created")
	// AutomaticEnv only covers keys viper already knows about.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: read file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var missing, invalid []string

	if strings.TrimSpace(c.DatabaseURL) == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if _, err := time.LoadLocation(c.SchedulingTimezone); err != nil {
		invalid = append(invalid, "SCHEDULING_TIMEZONE")
	}
	if _, _, err := c.OverrideDay(); err != nil {
		invalid = append(invalid, "OVERRIDE_WEEKDAY")
	}
	if _, err := c.MeetingTypes(); err != nil {
		invalid = append(invalid, "GLOBAL_MEETING_TYPES")
	}
	if c.RuleRefreshInterval < 0 {
		invalid = append(invalid, "RULE_REFRESH_INTERVAL")
	}
	if c.MaxRequestsPerMin <= 0 {
		invalid = append(invalid, "MAX_REQUESTS_PER_MIN")
	}

	if len(missing) > 0 {
		return fmt.Errorf("config: missing required settings: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return fmt.Errorf("config: invalid settings: %s", strings.Join(invalid, ", "))
	}
	return nil
}

// OverrideDay parses OVERRIDE_WEEKDAY. ok is false when the override is disabled.
func (c Config) OverrideDay() (day time.Weekday, ok bool, err error) {
	name := strings.TrimSpace(c.OverrideWeekday)
	if name == "" {
		return 0, false, nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), name) {
			return d, true, nil
		}
	}
	return 0, false, fmt.Errorf("config: unknown weekday %q", name)
}

func (c Config) MeetingTypes() ([]catalog.MeetingTypeDefinition, error) {
	return catalog.ParseMeetingTypes(c.GlobalMeetingTypes)
}

// AdminTokens splits STATIC_TOKENS, dropping blanks.
func (c Config) AdminTokens() []string {
	var out []string
	for _, t := range strings.Split(c.StaticTokens, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func (c Config) Origins() []string {
	return splitList(c.AllowedOrigins)
}

// Proxies lists the proxy addresses or CIDRs whose forwarding headers are
// trusted. Empty means none: the client IP is the connection's peer.
func (c Config) Proxies() []string {
	return splitList(c.TrustedProxies)
}

func splitList(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}
