package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/polvault/internal/flagx"
)

func applyFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("polvault", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "vault server address (host:port)")
	fs.StringVar(&cfg.LocalDBPath, "d", cfg.LocalDBPath, "local database file")
	fs.DurationVar(&cfg.RequestTimeout, "t", cfg.RequestTimeout, "per-request timeout, e.g. 10s")
	fs.DurationVar(&cfg.OnlineCheckInterval, "i", cfg.OnlineCheckInterval, "server reachability check interval")

	if err := fs.Parse(flagx.FilterArgs(args, []string{"-a", "-d", "-t", "-i"})); err != nil {
		return fmt.Errorf("client flags: %w", err)
	}
	return nil
}
