package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/polvault/internal/flagx"
	"github.com/dmitrijs2005/polvault/internal/timex"
)

type fileConfig struct {
	ServerEndpointAddr  string         `json:"server_endpoint_addr"`
	LocalDBPath         string         `json:"local_db_path"`
	RequestTimeout      timex.Duration `json:"request_timeout"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
}

// applyJSON overlays the non-zero fields of the config file, if one is named.
func applyJSON(cfg *Config, args []string) error {
	path := flagx.JsonConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("client config: %w", err)
	}

	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("client config %s: %w", path, err)
	}

	overlay(&cfg.ServerEndpointAddr, fc.ServerEndpointAddr)
	overlay(&cfg.LocalDBPath, fc.LocalDBPath)
	overlay(&cfg.RequestTimeout, fc.RequestTimeout.Duration)
	overlay(&cfg.OnlineCheckInterval, fc.OnlineCheckInterval.Duration)
	return nil
}

func overlay[T comparable](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
}
