// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jason-s-yu/forty/internal/game"
	"github.com/sirupsen/logrus"
)

// Config holds process-wide settings read from the environment (and .env, via
// godotenv/autoload in the entrypoints).
type Config struct {
	Port           string
	Env            string
	AllowedOrigins []string
	LogLevel       logrus.Level

	SweepInterval     time.Duration
	GameOverRetention time.Duration
	LobbyIdleTimeout  time.Duration

	Rules game.Rules

	RequireToken    bool
	TokenExpireTime time.Duration // 0 means tokens never expire

	WSRateLimit float64 // inbound frames per second per connection
	WSRateBurst int
	WSOutBuffer int

	RedisAddr          string
	RedisDB            int
	HistorianQueueName string
	HistorianBatchSize int
	HistorianFlush     time.Duration

	Postgres PostgresConfig
}

// PostgresConfig is enough to build a pgx connection string. An empty Host disables the
// archive store.
type PostgresConfig struct {
	User     string
	Password string
	Host     string
	Port     string
	Database string
}

// Enabled reports whether a database host was configured.
func (p PostgresConfig) Enabled() bool {
	return p.Host != ""
}

// Production reports whether FORTY_ENV=production.
func (c Config) Production() bool {
	return c.Env == "production"
}

// Load reads the configuration. Malformed values fall back to their defaults so a typo never
// keeps the server from starting; the returned warnings say which ones.
func Load() (Config, []string) {
	var warnings []string
	warn := func(key, val string) {
		warnings = append(warnings, "ignoring invalid "+key+"="+val)
	}

	rules := game.DefaultRules()
	rules.JokerCount = getEnvInt("JOKER_COUNT", rules.JokerCount, warn)
	rules.AdvanceHostOnly = getEnvBool("ADVANCE_HOST_ONLY", rules.AdvanceHostOnly, warn)
	rules.UniqueNames = getEnvBool("UNIQUE_NAMES", rules.UniqueNames, warn)
	if err := rules.Validate(); err != nil {
		warnings = append(warnings, "ignoring rule overrides: "+err.Error())
		rules = game.DefaultRules()
	}

	level, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		warn("LOG_LEVEL", os.Getenv("LOG_LEVEL"))
		level = logrus.InfoLevel
	}

	cfg := Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("FORTY_ENV", "development"),
		LogLevel: level,

		SweepInterval:     getEnvDuration("SWEEP_INTERVAL", time.Minute, warn),
		GameOverRetention: getEnvDuration("GAMEOVER_RETENTION", 10*time.Minute, warn),
		LobbyIdleTimeout:  getEnvDuration("LOBBY_IDLE_TIMEOUT", 30*time.Minute, warn),

		Rules: rules,

		RequireToken:    getEnvBool("REQUIRE_TOKEN", false, warn),
		TokenExpireTime: getEnvDuration("TOKEN_EXPIRE_TIME", 0, warn),

		WSRateLimit: getEnvFloat("WS_RATE_LIMIT", 10, warn),
		WSRateBurst: getEnvInt("WS_RATE_BURST", 20, warn),
		WSOutBuffer: getEnvInt("WS_OUT_BUFFER", game.DefaultOutBuffer, warn),

		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisDB:            getEnvInt("REDIS_DB", 0, warn),
		HistorianQueueName: getEnv("HISTORIAN_QUEUE_NAME", "forty_actions"),
		HistorianBatchSize: getEnvInt("HISTORIAN_BATCH_SIZE", 20, warn),
		HistorianFlush:     time.Duration(getEnvInt("HISTORIAN_FLUSH_MS", 500, warn)) * time.Millisecond,

		Postgres: PostgresConfig{
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Host:     getEnv("PG_HOST", ""),
			Port:     getEnv("PG_PORT", "5432"),
			Database: getEnv("PG_DATABASE", "forty"),
		},
	}

	// allow only origins specified in the environment in production mode
	if cfg.Production() {
		cfg.AllowedOrigins = splitList(os.Getenv("ALLOWED_ORIGINS"))
	} else {
		cfg.AllowedOrigins = []string{"https://*", "http://*"}
	}
	return cfg, warnings
}

// getEnv retrieves an environment variable's value or returns a default.
func getEnv(key, defVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defVal
}

// getEnvInt retrieves an integer value from an environment variable or returns a default value.
func getEnvInt(key string, defVal int, warn func(key, val string)) int {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		warn(key, v)
		return defVal
	}
	return i
}

func getEnvFloat(key string, defVal float64, warn func(key, val string)) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		warn(key, v)
		return defVal
	}
	return f
}

func getEnvBool(key string, defVal bool, warn func(key, val string)) bool {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		warn(key, v)
		return defVal
	}
	return b
}

// getEnvDuration accepts Go durations ("90s", "10m"); "never" and "0" mean zero.
func getEnvDuration(key string, defVal time.Duration, warn func(key, val string)) time.Duration {
	v := os.Getenv(key)
	switch v {
	case "":
		return defVal
	case "never", "0":
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		warn(key, v)
		return defVal
	}
	return d
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
