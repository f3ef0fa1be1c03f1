package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerURL      string
	Port           int
	LogLevel       string
	LogFile        string
	NatsURL        string
	NatsToken      string
	GatewayTimeout time.Duration
	SessionIdle    time.Duration
}

// Load reads the dotenv file named by SHERPA_ENV_FILE (default .env), if it
// exists, and then builds the config from the environment. Variables already
// set in the environment win over the file.
func Load() Config {
	_ = godotenv.Load(envStr("SHERPA_ENV_FILE", ".env"))

	return Config{
		ServerURL:      envStr("SHERPA_SERVER_URL", envStr("VITE_SERVER_URL", "")),
		Port:           envInt("SHERPA_PORT", 8760),
		LogLevel:       envStr("LOG_LEVEL", "info"),
		LogFile:        envStr("SHERPA_LOG_FILE", ""),
		NatsURL:        envStr("NATS_URL", ""),
		NatsToken:      envStr("NATS_TOKEN", ""),
		GatewayTimeout: time.Duration(envInt("SHERPA_GATEWAY_TIMEOUT", 0)) * time.Second,
		SessionIdle:    time.Duration(envInt("SHERPA_SESSION_IDLE_TIMEOUT", 1800)) * time.Second,
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
