package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/polvault/internal/flagx"
	"github.com/dmitrijs2005/polvault/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations accept
// either "15m" style strings or integer nanoseconds.
type JsonConfig struct {
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	StorageBackend               string         `json:"storage_backend"`
	StorageDir                   string         `json:"storage_dir"`
	DatabaseDSN                  string         `json:"database_dsn"`
	AccessSecret                 string         `json:"access_secret"`
	RefreshSecret                string         `json:"refresh_secret"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	SessionFlushInterval         timex.Duration `json:"session_flush_interval"`
	BcryptCost                   int            `json:"bcrypt_cost"`
	RateLimitRequests            int            `json:"rate_limit_requests"`
	RateLimitWindow              timex.Duration `json:"rate_limit_window"`
	BackupTarget                 string         `json:"backup_target"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
	SentryDSN                    string         `json:"sentry_dsn"`
	Environment                  string         `json:"environment"`
	LogLevel                     string         `json:"log_level"`
}

// parseJson overlays values from the file named by -c / -config. Only keys
// present with non-zero values replace what is already in config. An
// unreadable or malformed file panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigPath(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	overlay(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	overlay(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	overlay(&config.StorageBackend, c.StorageBackend)
	overlay(&config.StorageDir, c.StorageDir)
	overlay(&config.DatabaseDSN, c.DatabaseDSN)
	overlay(&config.AccessSecret, c.AccessSecret)
	overlay(&config.RefreshSecret, c.RefreshSecret)
	overlay(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration.Duration)
	overlay(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration.Duration)
	overlay(&config.SessionFlushInterval, c.SessionFlushInterval.Duration)
	overlay(&config.BcryptCost, c.BcryptCost)
	overlay(&config.RateLimitRequests, c.RateLimitRequests)
	overlay(&config.RateLimitWindow, c.RateLimitWindow.Duration)
	overlay(&config.BackupTarget, c.BackupTarget)
	overlay(&config.S3RootUser, c.S3RootUser)
	overlay(&config.S3RootPassword, c.S3RootPassword)
	overlay(&config.S3Bucket, c.S3Bucket)
	overlay(&config.S3Region, c.S3Region)
	overlay(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	overlay(&config.SentryDSN, c.SentryDSN)
	overlay(&config.Environment, c.Environment)
	overlay(&config.LogLevel, c.LogLevel)
}

func overlay[T comparable](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
}
