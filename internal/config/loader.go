package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables.
const (
	EnvAPIURL   = "OCHOTONA_API_URL"
	EnvTimeout  = "OCHOTONA_TIMEOUT"
	EnvJSON     = "OCHOTONA_JSON"
	EnvMockAddr = "OCHOTONA_MOCK_ADDR"
	EnvConfig   = "OCHOTONA_CONFIG"
	EnvLogLevel = "LOG_LEVEL"
	EnvAppEnv   = "APP_ENV"
)

// DefaultEnvFile is read when present.
const DefaultEnvFile = ".env"

// LoadOptions selects the sources Load reads.
type LoadOptions struct {
	// ConfigFile is an optional YAML file; OCHOTONA_CONFIG is used when empty
	ConfigFile string

	// EnvFile is the dotenv file; DefaultEnvFile when empty. A missing file is ignored.
	EnvFile string

	// Lookup reads the process environment; os.LookupEnv when nil
	Lookup func(string) (string, bool)
}

// Load resolves defaults, the YAML file, the dotenv file and the environment, in that order.
// Flags are merged by the caller afterwards.
func Load(opts LoadOptions) (*Config, error) {
	lookup := opts.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	cfg := NewDefault()

	path := opts.ConfigFile
	if path == "" {
		path, _ = lookup(EnvConfig)
	}
	if path != "" {
		fileCfg, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg.Merge(fileCfg, SourceFile)
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	dotenv, err := godotenv.Read(envFile)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", envFile, err)
	}
	if len(dotenv) > 0 {
		dotCfg, err := fromEnv(func(key string) (string, bool) {
			v, ok := dotenv[key]
			return v, ok
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", envFile, err)
		}
		cfg.Merge(dotCfg, SourceDotEnv)
	}

	envCfg, err := fromEnv(lookup)
	if err != nil {
		return nil, err
	}
	cfg.Merge(envCfg, SourceEnv)
	if raw, ok := lookup(EnvJSON); ok && raw != "" {
		v, _ := strconv.ParseBool(raw)
		cfg.SetJSON(v, SourceEnv)
	}

	return cfg, nil
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

func fromEnv(lookup func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}
	if v, ok := lookup(EnvAPIURL); ok {
		cfg.APIURL = v
	}
	if v, ok := lookup(EnvTimeout); ok && v != "" {
		d, err := parseTimeout(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		cfg.Timeout = d
	}
	if v, ok := lookup(EnvLogLevel); ok {
		cfg.LogLevel = v
	}
	if v, ok := lookup(EnvAppEnv); ok {
		cfg.Env = v
	}
	if v, ok := lookup(EnvMockAddr); ok {
		cfg.MockAddr = v
	}
	if v, ok := lookup(EnvJSON); ok {
		cfg.JSON, _ = strconv.ParseBool(v)
	}
	return cfg, nil
}

// parseTimeout accepts a Go duration ("15s") or a whole number of seconds.
func parseTimeout(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}
