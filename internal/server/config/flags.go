package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/polvault/internal/flagx"
)

var serverFlags = []string{
	"-a", "-w", "-k", "-f", "-d", "-s", "-x", "-t", "-r", "-i", "-o",
	"-u", "-p", "-b", "-g", "-e", "-l",
}

// parseFlags applies command-line flags:
//
//	-a string   gRPC bind address
//	-w string   HTTP bind address
//	-k string   storage backend (file|postgres)
//	-f string   storage directory
//	-d string   PostgreSQL DSN
//	-s string   access token signing secret
//	-x string   refresh token signing secret
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-i int      session flush interval, seconds
//	-o string   backup target (file|s3)
//	-u/-p/-b/-g/-e  S3 user, password, bucket, region, endpoint
//	-l string   log level
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], serverFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "gRPC address and port")
	fs.StringVar(&config.EndpointAddrHTTP, "w", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.StorageBackend, "k", config.StorageBackend, "storage backend (file|postgres)")
	fs.StringVar(&config.StorageDir, "f", config.StorageDir, "storage directory")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.AccessSecret, "s", config.AccessSecret, "access token secret")
	fs.StringVar(&config.RefreshSecret, "x", config.RefreshSecret, "refresh token secret")

	accessTTL := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	refreshTTL := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh token validity (in minutes)")
	flushInterval := fs.Int("i", int(config.SessionFlushInterval.Seconds()), "session flush interval (in seconds)")

	fs.StringVar(&config.BackupTarget, "o", config.BackupTarget, "backup target (file|s3)")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// durations are only touched when given, so sub-minute values from
	// earlier layers survive
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*accessTTL) * time.Minute
		case "r":
			config.RefreshTokenValidityDuration = time.Duration(*refreshTTL) * time.Minute
		case "i":
			config.SessionFlushInterval = time.Duration(*flushInterval) * time.Second
		}
	})
}
