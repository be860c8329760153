// Package config loads the optional TOML file read by the fluentchain CLI.
//
//	strict_proxy = false
//	prefix       = "fc_"
//	db           = "./chain.db"
//	format       = "json"
//	session      = "nightly"
//
// Keys that are absent keep their defaults. Unknown keys are rejected.
package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/roach88/fluentchain/internal/chain"
)

// Config holds settings shared by the CLI commands.
type Config struct {
	// StrictProxy is the default strictness for scenarios that do not set
	// options.strict_proxy. Nil keeps the chain default.
	StrictProxy *bool

	// Prefix is the default meta-operation prefix. Empty keeps the chain
	// default.
	Prefix string

	// Database is the default SQLite path for run and trace.
	Database string

	// Format is the default output format ("text" or "json").
	Format string

	// Session is the default session token for scenario runs.
	Session string
}

type fileConfig struct {
	StrictProxy bool   `toml:"strict_proxy"`
	Prefix      string `toml:"prefix"`
	Database    string `toml:"db"`
	Format      string `toml:"format"`
	Session     string `toml:"session"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{Format: "text"}
}

// Load reads the TOML file at path on top of Default.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return Config{}, fmt.Errorf("load config: unknown keys: %s", strings.Join(keys, ", "))
	}

	if meta.IsDefined("strict_proxy") {
		strict := raw.StrictProxy
		cfg.StrictProxy = &strict
	}

	if meta.IsDefined("prefix") {
		prefix := strings.TrimSpace(raw.Prefix)
		if prefix == "" {
			return Config{}, fmt.Errorf("load config: prefix must not be empty")
		}
		cfg.Prefix = prefix
	}

	if meta.IsDefined("db") {
		cfg.Database = strings.TrimSpace(raw.Database)
	}

	if meta.IsDefined("format") {
		cfg.Format = strings.TrimSpace(raw.Format)
	}

	if meta.IsDefined("session") {
		cfg.Session = strings.TrimSpace(raw.Session)
	}

	return cfg, nil
}

// ChainOptions converts the chain settings into engine options.
func (c Config) ChainOptions() []chain.Option {
	var opts []chain.Option
	if c.StrictProxy != nil {
		opts = append(opts, chain.WithStrictProxy(*c.StrictProxy))
	}
	if c.Prefix != "" {
		opts = append(opts, chain.WithPrefix(c.Prefix))
	}
	return opts
}
