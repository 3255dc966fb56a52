package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig is the typed process configuration, read from the environment.
type AppConfig struct {
	Env                string        `mapstructure:"APP_ENV"`
	Port               int           `mapstructure:"PORT"`
	AllowedOrigins     []string      `mapstructure:"ALLOWED_ORIGINS"`
	RequestTimeout     time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	JWTSecret          string        `mapstructure:"JWT_SECRET"`
	JWTTTL             time.Duration `mapstructure:"JWT_TTL"`
	PlatformFeePercent float64       `mapstructure:"PLATFORM_FEE_PERCENT"`
	MongoURI           string        `mapstructure:"MONGO_URI"`
	MongoDatabase      string        `mapstructure:"MONGO_DATABASE"`
	CloudinaryURL      string        `mapstructure:"CLOUDINARY_URL"`
	UploadFolder       string        `mapstructure:"UPLOAD_FOLDER"`
	ResendAPIKey       string        `mapstructure:"RESEND_API_KEY"`
	FromEmail          string        `mapstructure:"FROM_EMAIL"`
	AuthRateLimit      float64       `mapstructure:"AUTH_RATE_LIMIT"`
}

var defaults = map[string]any{
	"APP_ENV":              "dev",
	"PORT":                 8080,
	"ALLOWED_ORIGINS":      "http://localhost:5173",
	"REQUEST_TIMEOUT":      "10s",
	"JWT_SECRET":           "",
	"JWT_TTL":              "24h",
	"PLATFORM_FEE_PERCENT": 10.0,
	"MONGO_URI":            "",
	"MONGO_DATABASE":       "sahaaya",
	"CLOUDINARY_URL":       "",
	"UPLOAD_FOLDER":        "sahaaya",
	"RESEND_API_KEY":       "",
	"FROM_EMAIL":           "",
	"AUTH_RATE_LIMIT":      5.0,
}

// NewAppConfig loads the configuration. Every key must have a default so
// viper knows to look it up in the environment.
func NewAppConfig() (*AppConfig, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.AllowedOrigins = splitOrigins(cfg.AllowedOrigins)

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}
	if cfg.MongoURI == "" {
		return nil, errors.New("MONGO_URI is not set")
	}
	return &cfg, nil
}

// IsProduction reports whether the process runs with APP_ENV=production.
func (c *AppConfig) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func splitOrigins(raw []string) []string {
	var origins []string
	for _, entry := range raw {
		for _, origin := range strings.Split(entry, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
	}
	return origins
}
