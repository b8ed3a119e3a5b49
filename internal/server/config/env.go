package config

import (
	"context"

	"github.com/sethvargo/go-envconfig"
)

var osLookuper = envconfig.OsLookuper()

// parseEnv overlays variables found by lookuper. Every field is tagged with
// "overwrite", so a variable that is set wins over defaults and JSON while an
// unset one leaves the field untouched.
func parseEnv(config *Config, lookuper envconfig.Lookuper) {
	if err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   config,
		Lookuper: lookuper,
	}); err != nil {
		panic(err)
	}
}
