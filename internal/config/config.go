// Package config loads the ochotona client configuration.
// Precedence: flags > environment > .env file > YAML file > defaults.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"ochotona/internal/core/apperror"
)

// Config is the resolved client configuration.
type Config struct {
	// APIURL is the server root; entity collections live under {APIURL}/api
	APIURL string `yaml:"apiUrl"`

	// Timeout bounds a single HTTP round trip
	Timeout time.Duration `yaml:"timeout"`

	LogLevel string `yaml:"logLevel"`

	// Env is the deployment environment; "development" enables the console logger
	Env string `yaml:"env"`

	// JSON switches CLI output from tables to JSON
	JSON bool `yaml:"json"`

	// MockAddr is the listen address of the mock-api command
	MockAddr string `yaml:"mockAddr"`

	// Sources records where each value came from
	Sources map[string]string `yaml:"-"`
}

// Value sources.
const (
	SourceDefault = "default"
	SourceFile    = "file"
	SourceDotEnv  = "dotenv"
	SourceEnv     = "env"
	SourceFlag    = "flag"
)

// Defaults.
const (
	DefaultAPIURL   = "http://localhost:8080"
	DefaultTimeout  = 30 * time.Second
	DefaultLogLevel = "info"
	DefaultEnv      = "development"
	DefaultMockAddr = ":8080"
)

// NewDefault returns the configuration used when nothing else is set.
func NewDefault() *Config {
	cfg := &Config{
		APIURL:   DefaultAPIURL,
		Timeout:  DefaultTimeout,
		LogLevel: DefaultLogLevel,
		Env:      DefaultEnv,
		MockAddr: DefaultMockAddr,
		Sources:  make(map[string]string),
	}
	for _, key := range []string{"apiUrl", "timeout", "logLevel", "env", "json", "mockAddr"} {
		cfg.Sources[key] = SourceDefault
	}
	return cfg
}

// IsDevelopment reports whether the development logger should be used.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Merge applies the non-zero values of src onto c. Booleans only merge when true;
// use SetJSON to force an explicit false.
func (c *Config) Merge(src *Config, source string) {
	if src == nil {
		return
	}
	if c.Sources == nil {
		c.Sources = make(map[string]string)
	}
	if src.APIURL != "" {
		c.APIURL = src.APIURL
		c.Sources["apiUrl"] = source
	}
	if src.Timeout != 0 {
		c.Timeout = src.Timeout
		c.Sources["timeout"] = source
	}
	if src.LogLevel != "" {
		c.LogLevel = src.LogLevel
		c.Sources["logLevel"] = source
	}
	if src.Env != "" {
		c.Env = src.Env
		c.Sources["env"] = source
	}
	if src.JSON {
		c.JSON = true
		c.Sources["json"] = source
	}
	if src.MockAddr != "" {
		c.MockAddr = src.MockAddr
		c.Sources["mockAddr"] = source
	}
}

// SetJSON sets the output mode explicitly.
func (c *Config) SetJSON(v bool, source string) {
	c.JSON = v
	if c.Sources == nil {
		c.Sources = make(map[string]string)
	}
	c.Sources["json"] = source
}

var validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate checks the final configuration.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperror.NewValidation(fmt.Sprintf("invalid api url %q", c.APIURL)).
			WithDetail("field", "apiUrl")
	}
	if c.Timeout <= 0 {
		return apperror.NewValidation("timeout must be positive").WithDetail("field", "timeout")
	}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return apperror.NewValidation(fmt.Sprintf("invalid log level %q", c.LogLevel)).
			WithDetail("field", "logLevel")
	}
	return nil
}
