package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

type Config struct {
	Port                     string
	DatabaseURL              string
	DBDriver                 string
	SQLitePath               string
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeSeconds int
	DBConnMaxIdleTimeSeconds int
	PollIntervalMillis       int
	DefaultTimeLimitSeconds  int
	ImageMaxWidth            int
	ImageQuality             int
	MaxImageBytes            int
	StoreURL                 string
	StoreTimeoutSeconds      int
	RateLimitPerSecond       float64
	RateLimitBurst           int
	LogLevel                 string
	LogPretty                bool
	CORSOrigins              []string
}

func Default() Config {
	return Config{
		Port:                     "8080",
		DBDriver:                 "postgres",
		SQLitePath:               "doodle.sqlite",
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           10,
		DBConnMaxLifetimeSeconds: 300,
		DBConnMaxIdleTimeSeconds: 60,
		PollIntervalMillis:       2000,
		DefaultTimeLimitSeconds:  60,
		ImageMaxWidth:            1000,
		ImageQuality:             40,
		MaxImageBytes:            2 * 1024 * 1024,
		StoreURL:                 "http://localhost:8080",
		StoreTimeoutSeconds:      10,
		RateLimitPerSecond:       20,
		RateLimitBurst:           40,
		LogLevel:                 "info",
		LogPretty:                true,
	}
}

func Load() Config {
	cfg := Default()
	if raw := os.Getenv("PORT"); raw != "" {
		cfg.Port = raw
	}
	if raw := os.Getenv("DATABASE_URL"); raw != "" {
		cfg.DatabaseURL = raw
	}
	if raw := os.Getenv("DB_DRIVER"); raw != "" {
		cfg.DBDriver = strings.ToLower(strings.TrimSpace(raw))
	}
	if raw := os.Getenv("SQLITE_PATH"); raw != "" {
		cfg.SQLitePath = raw
	}
	if raw := os.Getenv("DB_MAX_OPEN_CONNS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBMaxOpenConns = value
		}
	}
	if raw := os.Getenv("DB_MAX_IDLE_CONNS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBMaxIdleConns = value
		}
	}
	if raw := os.Getenv("DB_CONN_MAX_LIFETIME_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBConnMaxLifetimeSeconds = value
		}
	}
	if raw := os.Getenv("DB_CONN_MAX_IDLE_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBConnMaxIdleTimeSeconds = value
		}
	}
	if raw := os.Getenv("POLL_INTERVAL_MS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.PollIntervalMillis = value
		}
	}
	if raw := os.Getenv("DEFAULT_TIME_LIMIT_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DefaultTimeLimitSeconds = value
		}
	}
	if raw := os.Getenv("IMAGE_MAX_WIDTH"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.ImageMaxWidth = value
		}
	}
	if raw := os.Getenv("IMAGE_QUALITY"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 && value <= 100 {
			cfg.ImageQuality = value
		}
	}
	if raw := os.Getenv("MAX_IMAGE_BYTES"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.MaxImageBytes = value
		}
	}
	if raw := os.Getenv("STORE_URL"); raw != "" {
		cfg.StoreURL = strings.TrimRight(raw, "/")
	}
	if raw := os.Getenv("STORE_TIMEOUT_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.StoreTimeoutSeconds = value
		}
	}
	if raw := os.Getenv("RATE_LIMIT_PER_SECOND"); raw != "" {
		if value, err := strconv.ParseFloat(raw, 64); err == nil && value > 0 {
			cfg.RateLimitPerSecond = value
		}
	}
	if raw := os.Getenv("RATE_LIMIT_BURST"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.RateLimitBurst = value
		}
	}
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(raw))
	}
	if raw := os.Getenv("LOG_PRETTY"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.LogPretty = value
		}
	}
	if raw := os.Getenv("CORS_ORIGINS"); raw != "" {
		for _, origin := range strings.Split(raw, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
			}
		}
	}
	return cfg
}
