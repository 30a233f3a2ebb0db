package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"

	"gregoryjjb/grove/mixing"
)

const (
	DefaultConfigPath  = "grove.toml"
	DefaultHost        = "127.0.0.1"
	DefaultPort        = "2022"
	DefaultHistorySize = 32
)

// Flags are the command line options. Anything set here wins over the
// environment and the config file.
type Flags struct {
	ConfigPath string
	InputPath  string
	Serve      bool
	Host       string
	Port       string
	Verbose    bool
}

type tomlConfig struct {
	DecryptionKey *int64 `toml:"decryption_key"`
	Rounds        *int   `toml:"rounds"`
	Offsets       []int  `toml:"offsets"`
	Sentinel      *int64 `toml:"sentinel"`
	MaxRounds     *int   `toml:"max_rounds"`
	HistorySize   int    `toml:"history_size"`
	Host          string `toml:"host"`
	Port          string `toml:"port"`
}

type Config struct {
	flags Flags
	toml  tomlConfig
	host  string
	port  string
}

// NewConfig reads the config file from fsys (a missing file is fine) and
// layers the environment and flags on top.
func NewConfig(fsys afero.Fs, flags Flags, getenv func(string) string) (*Config, error) {
	path := flags.ConfigPath
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath
	}

	var tc tomlConfig
	data, err := afero.ReadFile(fsys, path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &tc); err != nil {
			return nil, fmt.Errorf("parsing config %q: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// Defaults only
	default:
		return nil, fmt.Errorf("reading config %q: %w", path, err)
	}

	c := &Config{
		flags: flags,
		toml:  tc,
	}

	c.host = firstNonEmpty(flags.Host, getenv("HOST"), tc.Host, DefaultHost)
	c.port = firstNonEmpty(flags.Port, getenv("PORT"), tc.Port, DefaultPort)

	if err := c.DecryptOptions().Validate(); err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	if tc.HistorySize < 0 {
		return nil, fmt.Errorf("config %q: history_size cannot be negative", path)
	}

	return c, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (c *Config) Flags() Flags {
	return c.flags
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.host, c.port)
}

func (c *Config) HistorySize() int {
	if c.toml.HistorySize == 0 {
		return DefaultHistorySize
	}
	return c.toml.HistorySize
}

// MixOptions is a single round without a key, with the configured offsets
// and sentinel.
func (c *Config) MixOptions() mixing.Options {
	o := mixing.DefaultOptions()
	c.applyLookup(&o)
	return o
}

// DecryptOptions is the full decryption routine, with every configured
// override applied.
func (c *Config) DecryptOptions() mixing.Options {
	o := mixing.Decrypt()
	if c.toml.DecryptionKey != nil {
		o.DecryptionKey = *c.toml.DecryptionKey
	}
	if c.toml.Rounds != nil {
		o.Rounds = *c.toml.Rounds
	}
	c.applyLookup(&o)
	return o
}

func (c *Config) applyLookup(o *mixing.Options) {
	if len(c.toml.Offsets) > 0 {
		o.Offsets = append([]int(nil), c.toml.Offsets...)
	}
	if c.toml.Sentinel != nil {
		o.Sentinel = *c.toml.Sentinel
	}
	if c.toml.MaxRounds != nil {
		o.MaxRounds = *c.toml.MaxRounds
	}
}
