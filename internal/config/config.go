package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the portal service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	LogLevel               string
	UpstreamBaseURL        string
	UpstreamTimeout        time.Duration
	UpstreamRPS            float64
	UpstreamBurst          int
	RedisURL               string
	DatabaseURL            string
	NATSURL                string
	EventsChannel          string
	CacheTTL               time.Duration
	SessionTTL             time.Duration
	PollInterval           time.Duration
	WorkspaceIdleTTL       time.Duration
	JWTSecret              string
	ExplanationLanguage    string
	ExplanationMinLength   int
	CookieSecure           bool
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	UploadMaxMB            int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// CloudinaryEnabled reports whether shop image uploads can be hosted.
func (c Config) CloudinaryEnabled() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("ARENA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "GEMA Arena")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("upstream.base_url", "http://localhost:3000")
	v.SetDefault("upstream.timeout", "15s")
	v.SetDefault("upstream.rps", 20)
	v.SetDefault("upstream.burst", 40)
	v.SetDefault("events.channel", "arena")
	v.SetDefault("cache.ttl", "30s")
	v.SetDefault("session.ttl", "168h")
	v.SetDefault("poll.interval", "5s")
	v.SetDefault("workspace.idle_ttl", "30m")
	v.SetDefault("explanation.language", "Bicol")
	v.SetDefault("explanation.min_length", 50)
	v.SetDefault("cookie.secure", false)
	v.SetDefault("cloudinary.folder", "gema/arena/shop")
	v.SetDefault("upload.max_mb", 5)
}

func fromViper(v *viper.Viper) (Config, error) {
	durations := map[string]time.Duration{}
	for _, key := range []string{"upstream.timeout", "cache.ttl", "session.ttl", "poll.interval", "workspace.idle_ttl"} {
		parsed, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", key, err)
		}
		if parsed <= 0 {
			return Config{}, fmt.Errorf("invalid %s: must be positive", key)
		}
		durations[key] = parsed
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		LogLevel:               strings.ToLower(v.GetString("log.level")),
		UpstreamBaseURL:        strings.TrimRight(strings.TrimSpace(v.GetString("upstream.base_url")), "/"),
		UpstreamTimeout:        durations["upstream.timeout"],
		UpstreamRPS:            v.GetFloat64("upstream.rps"),
		UpstreamBurst:          v.GetInt("upstream.burst"),
		RedisURL:               v.GetString("redis.url"),
		DatabaseURL:            v.GetString("database.url"),
		NATSURL:                v.GetString("nats.url"),
		EventsChannel:          v.GetString("events.channel"),
		CacheTTL:               durations["cache.ttl"],
		SessionTTL:             durations["session.ttl"],
		PollInterval:           durations["poll.interval"],
		WorkspaceIdleTTL:       durations["workspace.idle_ttl"],
		JWTSecret:              v.GetString("jwt.secret"),
		ExplanationLanguage:    strings.TrimSpace(v.GetString("explanation.language")),
		ExplanationMinLength:   v.GetInt("explanation.min_length"),
		CookieSecure:           v.GetBool("cookie.secure"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		UploadMaxMB:            v.GetInt("upload.max_mb"),
	}

	if cfg.UpstreamBaseURL == "" {
		return Config{}, fmt.Errorf("upstream base url must be provided")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("redis url must be provided")
	}

	if cfg.UpstreamRPS <= 0 {
		cfg.UpstreamRPS = 20
	}
	if cfg.UpstreamBurst <= 0 {
		cfg.UpstreamBurst = 40
	}
	if cfg.ExplanationLanguage == "" {
		cfg.ExplanationLanguage = "Bicol"
	}
	if cfg.ExplanationMinLength <= 0 {
		cfg.ExplanationMinLength = 50
	}
	if cfg.UploadMaxMB <= 0 {
		cfg.UploadMaxMB = 5
	}

	return cfg, nil
}
