package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// loadDotEnv is a seam for tests.
var loadDotEnv = func() error { return godotenv.Load() }

// parseEnv reads an optional .env file into the process environment and then
// overlays the recognised variables. Variables already exported take
// precedence over .env, which is godotenv's behaviour.
func parseEnv(config *Config) {
	// a missing .env is fine
	_ = loadDotEnv()

	setString(&config.AccessSecret, "JWT_SECRET")
	setString(&config.RefreshSecret, "JWT_REFRESH_SECRET")
	setString(&config.StorageDir, "DATA_DIR")
	setString(&config.StorageBackend, "STORAGE_BACKEND")
	setString(&config.DatabaseDSN, "DATABASE_DSN")
	setString(&config.EndpointAddrGRPC, "GRPC_ADDR")
	setString(&config.EndpointAddrHTTP, "HTTP_ADDR")
	setString(&config.BackupTarget, "BACKUP_TARGET")
	setString(&config.S3Bucket, "S3_BUCKET")
	setString(&config.SentryDSN, "SENTRY_DSN")
	setString(&config.Environment, "APP_ENV")
	setString(&config.LogLevel, "LOG_LEVEL")

	setDuration(&config.AccessTokenValidityDuration, "ACCESS_TOKEN_TTL")
	setDuration(&config.RefreshTokenValidityDuration, "REFRESH_TOKEN_TTL")
	setDuration(&config.SessionFlushInterval, "SESSION_FLUSH_INTERVAL")

	if v, ok := os.LookupEnv("BCRYPT_COST"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			panic(err)
		}
		config.BcryptCost = n
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(err)
	}
	*dst = d
}
