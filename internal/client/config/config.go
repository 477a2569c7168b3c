package config

import (
	"errors"
	"os"
	"time"
)

type Config struct {
	ServerEndpointAddr  string
	LocalDBPath         string
	RequestTimeout      time.Duration
	OnlineCheckInterval time.Duration
}

// OwnedFlags are consumed here; every other argument belongs to the
// command tree.
var OwnedFlags = []string{"-a", "-d", "-t", "-i", "-c", "-config"}

func (c *Config) LoadDefaults() {
	*c = Config{
		ServerEndpointAddr:  "127.0.0.1:50051",
		LocalDBPath:         "vault.db",
		RequestTimeout:      10 * time.Second,
		OnlineCheckInterval: 3 * time.Second,
	}
}

// Load layers defaults, the JSON file named by -c/-config and the owned
// flags found in args, in that order.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := applyJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := applyFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig reads os.Args and panics on a malformed config file or flag.
func LoadConfig() *Config {
	cfg, err := Load(os.Args[1:])
	if err != nil {
		panic(err)
	}
	return cfg
}

func (c *Config) Validate() error {
	var errs []error
	if c.ServerEndpointAddr == "" {
		errs = append(errs, errors.New("server address must be set"))
	}
	if c.LocalDBPath == "" {
		errs = append(errs, errors.New("local database path must be set"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if c.OnlineCheckInterval <= 0 {
		errs = append(errs, errors.New("online check interval must be positive"))
	}
	return errors.Join(errs...)
}
