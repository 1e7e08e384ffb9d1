package config

import (
	"errors"
	"io/fs"
	"os"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "EUSSIROR_"

// DefaultPath is the config file Load reads when given an empty path.
const DefaultPath = "eussiror.yaml"

const (
	defaultAPIBaseURL = "https://api.github.com"
	defaultTimeout    = 10 * time.Second
)

// Config holds the reporting guards and tracker settings.
type Config struct {
	// Token is the GitHub token used as a bearer credential.
	Token string `koanf:"token"`
	// Repository is the "owner/name" the issues are filed in.
	Repository string `koanf:"repository"`
	// Environments where reporting is active.
	Environments []string `koanf:"environments"`
	Labels       []string `koanf:"labels"`
	Assignees    []string `koanf:"assignees"`
	// IgnoredKinds lists failure kind names never reported, subtypes included.
	IgnoredKinds []string `koanf:"ignored_kinds"`
	// Async reports from a background goroutine when true.
	Async bool `koanf:"async"`

	APIBaseURL      string        `koanf:"api_base_url"`
	Timeout         time.Duration `koanf:"timeout"`
	LibraryPatterns []string      `koanf:"library_patterns"`
}

// Default returns the configuration used before anything is configured:
// production only, asynchronous, no labels, assignees or ignored kinds.
func Default() *Config {
	return &Config{
		Environments: []string{"production"},
		Labels:       []string{},
		Assignees:    []string{},
		IgnoredKinds: []string{},
		Async:        true,
		APIBaseURL:   defaultAPIBaseURL,
		Timeout:      defaultTimeout,
	}
}

// Valid reports whether both the token and the repository are non-blank.
func (c *Config) Valid() bool {
	return strings.TrimSpace(c.Token) != "" && strings.TrimSpace(c.Repository) != ""
}

// ReportingEnabled reports whether c is valid and environment is one of the active environments.
func (c *Config) ReportingEnabled(environment string) bool {
	return c.Valid() && slices.Contains(c.Environments, environment)
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	out := *c
	out.Environments = slices.Clone(c.Environments)
	out.Labels = slices.Clone(c.Labels)
	out.Assignees = slices.Clone(c.Assignees)
	out.IgnoredKinds = slices.Clone(c.IgnoredKinds)
	out.LibraryPatterns = slices.Clone(c.LibraryPatterns)
	return &out
}

var sliceKeys = map[string]bool{
	"environments":     true,
	"labels":           true,
	"assignees":        true,
	"ignored_kinds":    true,
	"library_patterns": true,
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads path (DefaultPath when empty) if it exists, then applies
// EUSSIROR_* environment variables on top. List settings given through the
// environment are comma separated.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	k := koanf.New(".")

	// A missing file is fine, the environment may carry everything
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		if sliceKeys[key] {
			return key, splitList(value)
		}
		return key, value
	}), nil); err != nil {
		return nil, err
	}

	// Default values
	defaults := Default()
	if !k.Exists("environments") {
		k.Set("environments", defaults.Environments)
	}
	if !k.Exists("async") {
		k.Set("async", defaults.Async)
	}
	if !k.Exists("api_base_url") {
		k.Set("api_base_url", defaults.APIBaseURL)
	}
	if !k.Exists("timeout") {
		k.Set("timeout", defaults.Timeout)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	cfg.Token = substituteEnvVars(cfg.Token)
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// CurrentEnvironment returns the runtime environment name from EUSSIROR_ENV,
// then APP_ENV, defaulting to "development".
func CurrentEnvironment() string {
	for _, key := range []string{EnvPrefix + "ENV", "APP_ENV"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return "development"
}
