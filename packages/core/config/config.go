package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config represents the httpcst configuration
type Config struct {
	DefaultEnvironment string            `json:"defaultEnvironment,omitempty" yaml:"defaultEnvironment,omitempty" toml:"defaultEnvironment,omitempty"`
	EnvDir             string            `json:"envDir,omitempty" yaml:"envDir,omitempty" toml:"envDir,omitempty"`     // directory holding http-client.env.json
	EnvFile            string            `json:"envFile,omitempty" yaml:"envFile,omitempty" toml:"envFile,omitempty"`  // .env file
	Format             string            `json:"format,omitempty" yaml:"format,omitempty" toml:"format,omitempty"`     // tree, json or yaml
	Extensions         []string          `json:"extensions,omitempty" yaml:"extensions,omitempty" toml:"extensions,omitempty"`
	Include            []string          `json:"include,omitempty" yaml:"include,omitempty" toml:"include,omitempty"` // glob patterns
	Exclude            []string          `json:"exclude,omitempty" yaml:"exclude,omitempty" toml:"exclude,omitempty"` // glob patterns
	Headers            map[string]string `json:"headers,omitempty" yaml:"headers,omitempty" toml:"headers,omitempty"` // default headers for emitted requests
	Memoize            *bool             `json:"memoize,omitempty" yaml:"memoize,omitempty" toml:"memoize,omitempty"`
	CheckScripts       *bool             `json:"checkScripts,omitempty" yaml:"checkScripts,omitempty" toml:"checkScripts,omitempty"`
	CacheSize          int               `json:"cacheSize,omitempty" yaml:"cacheSize,omitempty" toml:"cacheSize,omitempty"` // parsed files kept in watch mode
	Catalog            string            `json:"catalog,omitempty" yaml:"catalog,omitempty" toml:"catalog,omitempty"`       // request catalog database
	Bench              BenchConfig       `json:"bench,omitempty" yaml:"bench,omitempty" toml:"bench,omitempty"`
	Timeout            string            `json:"timeout,omitempty" yaml:"timeout,omitempty" toml:"timeout,omitempty"` // per request, e.g. "30s"
	Proxy              string            `json:"proxy,omitempty" yaml:"proxy,omitempty" toml:"proxy,omitempty"`
	ValidateSSL        *bool             `json:"validateSSL,omitempty" yaml:"validateSSL,omitempty" toml:"validateSSL,omitempty"`
	FollowRedirects    *bool             `json:"followRedirects,omitempty" yaml:"followRedirects,omitempty" toml:"followRedirects,omitempty"`
	LogLevel           string            `json:"logLevel,omitempty" yaml:"logLevel,omitempty" toml:"logLevel,omitempty"`
	Verbose            *bool             `json:"verbose,omitempty" yaml:"verbose,omitempty" toml:"verbose,omitempty"`
	NoColor            *bool             `json:"noColor,omitempty" yaml:"noColor,omitempty" toml:"noColor,omitempty"`
}

// BenchConfig holds the defaults of the bench command. Durations use
// time.ParseDuration syntax.
type BenchConfig struct {
	Duration    string  `json:"duration,omitempty" yaml:"duration,omitempty" toml:"duration,omitempty"`
	Rate        float64 `json:"rate,omitempty" yaml:"rate,omitempty" toml:"rate,omitempty"` // requests per second
	VUs         int     `json:"vus,omitempty" yaml:"vus,omitempty" toml:"vus,omitempty"`    // selects virtual-user mode when set
	MaxInFlight int     `json:"maxInFlight,omitempty" yaml:"maxInFlight,omitempty" toml:"maxInFlight,omitempty"`
	ThinkTime   string  `json:"thinkTime,omitempty" yaml:"thinkTime,omitempty" toml:"thinkTime,omitempty"`
	RampUp      string  `json:"rampUp,omitempty" yaml:"rampUp,omitempty" toml:"rampUp,omitempty"`
	Thresholds  string  `json:"thresholds,omitempty" yaml:"thresholds,omitempty" toml:"thresholds,omitempty"` // e.g. "p95<200ms,errors<1%"
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetMemoize returns the memoize setting, defaulting to false
func (c *Config) GetMemoize() bool {
	return getBool(c.Memoize, false)
}

// GetCheckScripts returns the handler script check setting, defaulting to true
func (c *Config) GetCheckScripts() bool {
	return getBool(c.CheckScripts, true)
}

// GetValidateSSL returns the TLS verification setting, defaulting to true
func (c *Config) GetValidateSSL() bool {
	return getBool(c.ValidateSSL, true)
}

// GetFollowRedirects returns the redirect setting, defaulting to true
func (c *Config) GetFollowRedirects() bool {
	return getBool(c.FollowRedirects, true)
}

// GetVerbose returns the verbose setting, defaulting to false
func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// ConfigFilenames contains the possible config file names, in lookup order
var ConfigFilenames = []string{
	".httpcst.config.json",
	"httpcst.config.json",
	".httpcstrc",
	".httpcst.yaml",
	".httpcst.yml",
	".httpcst.toml",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	// Return defaults if no config file found
	return DefaultConfig(), nil
}

type format int

const (
	formatJSON format = iota
	formatYAML
	formatTOML
)

func formatOf(path string) format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML
	case ".toml":
		return formatTOML
	default:
		return formatJSON
	}
}

// loadConfigFromFile loads configuration from a specific file. The format
// follows the extension; anything else is read as JSON.
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	switch formatOf(path) {
	case formatYAML:
		err = yaml.Unmarshal(data, config)
	case formatTOML:
		err = toml.Unmarshal(data, config)
	default:
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return config, nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.DefaultEnvironment != "" {
		result.DefaultEnvironment = other.DefaultEnvironment
	}
	if other.EnvDir != "" {
		result.EnvDir = other.EnvDir
	}
	if other.EnvFile != "" {
		result.EnvFile = other.EnvFile
	}
	if other.Format != "" {
		result.Format = other.Format
	}
	if other.CacheSize > 0 {
		result.CacheSize = other.CacheSize
	}
	if other.Catalog != "" {
		result.Catalog = other.Catalog
	}
	if other.LogLevel != "" {
		result.LogLevel = other.LogLevel
	}
	if other.Timeout != "" {
		result.Timeout = other.Timeout
	}
	if other.Proxy != "" {
		result.Proxy = other.Proxy
	}
	result.Bench = result.Bench.merge(other.Bench)

	// Boolean flags - only override if explicitly set in other config
	if other.Memoize != nil {
		result.Memoize = other.Memoize
	}
	if other.CheckScripts != nil {
		result.CheckScripts = other.CheckScripts
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}
	if other.ValidateSSL != nil {
		result.ValidateSSL = other.ValidateSSL
	}
	if other.FollowRedirects != nil {
		result.FollowRedirects = other.FollowRedirects
	}

	if len(other.Headers) > 0 {
		headers := make(map[string]string, len(result.Headers)+len(other.Headers))
		for k, v := range result.Headers {
			headers[k] = v
		}
		for k, v := range other.Headers {
			headers[k] = v
		}
		result.Headers = headers
	}

	if len(other.Extensions) > 0 {
		result.Extensions = other.Extensions
	}
	if len(other.Include) > 0 {
		result.Include = other.Include
	}
	if len(other.Exclude) > 0 {
		result.Exclude = other.Exclude
	}

	return &result
}

func (b BenchConfig) merge(other BenchConfig) BenchConfig {
	if other.Duration != "" {
		b.Duration = other.Duration
	}
	if other.Rate > 0 {
		b.Rate = other.Rate
	}
	if other.VUs > 0 {
		b.VUs = other.VUs
	}
	if other.MaxInFlight > 0 {
		b.MaxInFlight = other.MaxInFlight
	}
	if other.ThinkTime != "" {
		b.ThinkTime = other.ThinkTime
	}
	if other.RampUp != "" {
		b.RampUp = other.RampUp
	}
	if other.Thresholds != "" {
		b.Thresholds = other.Thresholds
	}
	return b
}

// SaveConfig saves the configuration to a file in the format its extension
// names.
func (c *Config) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)
	switch formatOf(path) {
	case formatYAML:
		data, err = yaml.Marshal(c)
	case formatTOML:
		data, err = toml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
