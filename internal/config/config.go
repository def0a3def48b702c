package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	AuthIssuer     string `mapstructure:"AUTH_ISSUER"`
	AuthAudience   string `mapstructure:"AUTH_AUDIENCE"`
	AuthSigningKey string `mapstructure:"AUTH_SIGNING_KEY"`

	// Working-hours grid used to enumerate candidate appointment times.
	WorkDayStart        string `mapstructure:"WORK_DAY_START"`
	WorkDayEnd          string `mapstructure:"WORK_DAY_END"`
	SlotIntervalMinutes int    `mapstructure:"SLOT_INTERVAL_MINUTES"`

	// Capacity defaults applied when a provider has no stored override.
	DefaultDailyCapacity int    `mapstructure:"DEFAULT_DAILY_CAPACITY"`
	WeekendDays          string `mapstructure:"WEEKEND_DAYS"`

	// Outbound notification settings.
	NotifyTimeoutSeconds     int    `mapstructure:"NOTIFY_TIMEOUT_SECONDS"`
	NotifyDedupWindowSeconds int    `mapstructure:"NOTIFY_DEDUP_WINDOW_SECONDS"`
	SMSGatewayURL            string `mapstructure:"SMS_GATEWAY_URL"`
	SMSAPIKey                string `mapstructure:"SMS_API_KEY"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("WORK_DAY_START", "09:00")
	v.SetDefault("WORK_DAY_END", "17:00")
	v.SetDefault("SLOT_INTERVAL_MINUTES", 30)
	v.SetDefault("DEFAULT_DAILY_CAPACITY", 10)
	v.SetDefault("WEEKEND_DAYS", "Saturday,Sunday")
	v.SetDefault("NOTIFY_TIMEOUT_SECONDS", 5)
	v.SetDefault("NOTIFY_DEDUP_WINDOW_SECONDS", 120)
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("AUTH_AUDIENCE")
	v.BindEnv("AUTH_SIGNING_KEY")
	v.BindEnv("WORK_DAY_START")
	v.BindEnv("WORK_DAY_END")
	v.BindEnv("SLOT_INTERVAL_MINUTES")
	v.BindEnv("DEFAULT_DAILY_CAPACITY")
	v.BindEnv("WEEKEND_DAYS")
	v.BindEnv("NOTIFY_TIMEOUT_SECONDS")
	v.BindEnv("NOTIFY_DEDUP_WINDOW_SECONDS")
	v.BindEnv("SMS_GATEWAY_URL")
	v.BindEnv("SMS_API_KEY")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active; all requests get worker access.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// NotifyTimeout returns the bounded timeout applied to notification sends.
func (c *Config) NotifyTimeout() time.Duration {
	return time.Duration(c.NotifyTimeoutSeconds) * time.Second
}

// NotifyDedupWindow returns the rolling window during which identical
// notifications to the same destination are suppressed.
func (c *Config) NotifyDedupWindow() time.Duration {
	return time.Duration(c.NotifyDedupWindowSeconds) * time.Second
}

// WeekendWeekdays parses WEEKEND_DAYS into weekday values. Unknown names are
// an error so a typo cannot silently open a closed day.
func (c *Config) WeekendWeekdays() (map[time.Weekday]bool, error) {
	names := map[string]time.Weekday{
		"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
		"wednesday": time.Wednesday, "thursday": time.Thursday,
		"friday": time.Friday, "saturday": time.Saturday,
	}
	out := make(map[time.Weekday]bool)
	for _, part := range strings.Split(c.WeekendDays, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		wd, ok := names[strings.ToLower(part)]
		if !ok {
			return nil, fmt.Errorf("WEEKEND_DAYS: unknown weekday %q", part)
		}
		out[wd] = true
	}
	return out, nil
}

// Validate checks that the configuration is safe to run. In non-development
// modes either AUTH_ISSUER or AUTH_SIGNING_KEY must be set so that real JWT
// authentication is enforced.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthIssuer == "" && c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_ISSUER or AUTH_SIGNING_KEY must be set when ENV=%q; refusing to start without authentication configuration", c.Env)
	}

	if _, err := time.Parse("15:04", c.WorkDayStart); err != nil {
		return fmt.Errorf("WORK_DAY_START must be HH:MM, got %q", c.WorkDayStart)
	}
	if _, err := time.Parse("15:04", c.WorkDayEnd); err != nil {
		return fmt.Errorf("WORK_DAY_END must be HH:MM, got %q", c.WorkDayEnd)
	}
	if c.WorkDayStart >= c.WorkDayEnd {
		return fmt.Errorf("WORK_DAY_START %q must be before WORK_DAY_END %q", c.WorkDayStart, c.WorkDayEnd)
	}
	if c.SlotIntervalMinutes <= 0 {
		return fmt.Errorf("SLOT_INTERVAL_MINUTES must be positive, got %d", c.SlotIntervalMinutes)
	}
	if c.DefaultDailyCapacity <= 0 {
		return fmt.Errorf("DEFAULT_DAILY_CAPACITY must be positive, got %d", c.DefaultDailyCapacity)
	}
	if _, err := c.WeekendWeekdays(); err != nil {
		return err
	}
	if c.NotifyTimeoutSeconds <= 0 {
		return fmt.Errorf("NOTIFY_TIMEOUT_SECONDS must be positive, got %d", c.NotifyTimeoutSeconds)
	}
	if c.NotifyDedupWindowSeconds < 0 {
		return fmt.Errorf("NOTIFY_DEDUP_WINDOW_SECONDS must not be negative, got %d", c.NotifyDedupWindowSeconds)
	}
	return nil
}
