package config

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		DefaultEnvironment: "dev",
		Format:             "tree",
		Extensions:         []string{".http", ".rest"},
		CacheSize:          128,
		Catalog:            ".httpcst/catalog.db",
		Bench: BenchConfig{
			Duration:    "10s",
			Rate:        10,
			MaxInFlight: 100,
		},
		Timeout:  "30s",
		LogLevel: "warn",
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.DefaultEnvironment == defaults.DefaultEnvironment &&
		c.EnvDir == defaults.EnvDir &&
		c.EnvFile == defaults.EnvFile &&
		c.Format == defaults.Format &&
		equalStrings(c.Extensions, defaults.Extensions) &&
		len(c.Include) == 0 &&
		len(c.Exclude) == 0 &&
		len(c.Headers) == 0 &&
		c.Memoize == nil &&
		c.CheckScripts == nil &&
		c.CacheSize == defaults.CacheSize &&
		c.Catalog == defaults.Catalog &&
		c.Bench == defaults.Bench &&
		c.Timeout == defaults.Timeout &&
		c.Proxy == "" &&
		c.ValidateSSL == nil &&
		c.FollowRedirects == nil &&
		c.LogLevel == defaults.LogLevel &&
		c.Verbose == nil &&
		c.NoColor == nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
