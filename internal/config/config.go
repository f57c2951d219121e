package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/dshills/branchreview/internal/redact"
)

// EnvPrefix prefixes every tool-specific environment variable.
const EnvPrefix = "BRANCHREVIEW_"

// Config represents the branchreview configuration.
type Config struct {
	Provider   string `toml:"provider"`
	Model      string `toml:"model"`
	Endpoint   string `toml:"endpoint,omitempty"`
	APIVersion string `toml:"api_version,omitempty"`
	// APIKey is only ever read from the environment.
	APIKey string `toml:"-"`

	Tokenizer  string `toml:"tokenizer"`
	TokenLimit int    `toml:"token_limit"`

	Baseline     string   `toml:"baseline"`
	Remote       string   `toml:"remote"`
	DiffBase     string   `toml:"diff_base"`
	ContextLines int      `toml:"context_lines"`
	Include      []string `toml:"include,omitempty"`
	Exclude      []string `toml:"exclude,omitempty"`

	OutDir   string `toml:"out_dir"`
	HTML     bool   `toml:"html"`
	LogLevel string `toml:"log_level"`

	Review  ReviewConfig  `toml:"review"`
	Privacy PrivacyConfig `toml:"privacy"`
}

// ReviewConfig controls requests to the completion service.
type ReviewConfig struct {
	Framing           string   `toml:"framing"`
	PromptFile        string   `toml:"prompt_file,omitempty"`
	MaxTokens         int      `toml:"max_tokens"`
	Temperature       float64  `toml:"temperature"`
	TopP              float64  `toml:"top_p"`
	Retries           int      `toml:"retries"`
	RetryBackoff      Duration `toml:"retry_backoff"`
	Concurrency       int      `toml:"concurrency"`
	RequestsPerMinute int      `toml:"requests_per_minute"`
	Timeout           Duration `toml:"timeout"`
}

// PrivacyConfig controls privacy/redaction behavior.
type PrivacyConfig struct {
	RedactSecrets bool     `toml:"redact_secrets"`
	RedactPaths   []string `toml:"redact_paths"`
}

// Duration is a time.Duration written as a string such as "90s".
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Provider:     "azure",
		Model:        "gpt-4",
		Tokenizer:    "gpt-4",
		TokenLimit:   6000,
		Baseline:     "main",
		Remote:       "origin",
		DiffBase:     "merge-base",
		ContextLines: 3,
		OutDir:       ".",
		LogLevel:     "info",
		Review: ReviewConfig{
			Framing:      "system",
			MaxTokens:    4096,
			Temperature:  1,
			TopP:         1,
			Retries:      2,
			RetryBackoff: Duration(time.Second),
			Concurrency:  4,
			Timeout:      Duration(120 * time.Second),
		},
		Privacy: PrivacyConfig{
			RedactSecrets: true,
			RedactPaths:   slices.Clone(redact.DefaultPaths),
		},
	}
}

// ConfigDir returns the platform-appropriate config directory for branchreview.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "branchreview"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "branchreview"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "branchreview"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "branchreview"), nil
	default:
		return filepath.Join(home, ".config", "branchreview"), nil
	}
}

// ConfigPath returns the full path to the default config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// LoadOptions selects the sources Load reads.
type LoadOptions struct {
	// File is the config file; empty means ConfigPath(). A missing file
	// is not an error.
	File string
	// DotEnv is a .env file whose variables fill in, but never replace,
	// the process environment. Empty skips it.
	DotEnv string
	// Overrides come from CLI flags, keyed like SetField.
	Overrides map[string]string
}

// Load builds the effective config by merging:
// defaults <- file <- .env / env <- overrides.
func Load(opts LoadOptions) (Config, error) {
	cfg := Default()

	path := opts.File
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = p
	}
	if err := mergeFile(&cfg, path, opts.File != ""); err != nil {
		return Config{}, err
	}

	if opts.DotEnv != "" {
		if err := godotenv.Load(opts.DotEnv); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", opts.DotEnv, err)
		}
	}
	if err := mergeEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := mergeOverrides(&cfg, opts.Overrides); err != nil {
		return Config{}, err
	}

	cfg.resolveCredentials()
	return cfg, nil
}

// mergeFile decodes path on top of cfg; keys absent from the file keep
// their current value. An explicitly requested file must exist.
func mergeFile(cfg *Config, path string, required bool) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("config file %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// envKeys maps BRANCHREVIEW_* suffixes to SetField keys.
var envKeys = map[string]string{
	"PROVIDER":            "provider",
	"MODEL":               "model",
	"ENDPOINT":            "endpoint",
	"API_VERSION":         "api_version",
	"TOKENIZER":           "tokenizer",
	"TOKEN_LIMIT":         "token_limit",
	"BASELINE":            "baseline",
	"REMOTE":              "remote",
	"DIFF_BASE":           "diff_base",
	"CONTEXT_LINES":       "context_lines",
	"OUT_DIR":             "out_dir",
	"HTML":                "html",
	"LOG_LEVEL":           "log_level",
	"FRAMING":             "review.framing",
	"PROMPT_FILE":         "review.prompt_file",
	"MAX_TOKENS":          "review.max_tokens",
	"TEMPERATURE":         "review.temperature",
	"TOP_P":               "review.top_p",
	"RETRIES":             "review.retries",
	"RETRY_BACKOFF":       "review.retry_backoff",
	"CONCURRENCY":         "review.concurrency",
	"REQUESTS_PER_MINUTE": "review.requests_per_minute",
	"TIMEOUT":             "review.timeout",
	"REDACT_SECRETS":      "privacy.redact_secrets",
}

func mergeEnv(cfg *Config) error {
	var errs []error
	for suffix, key := range envKeys {
		v := os.Getenv(EnvPrefix + suffix)
		if v == "" {
			continue
		}
		if err := SetField(cfg, key, v); err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, suffix, err))
		}
	}
	if v := os.Getenv(EnvPrefix + "API_KEY"); v != "" {
		cfg.APIKey = v
	}
	return errors.Join(errs...)
}

func mergeOverrides(cfg *Config, overrides map[string]string) error {
	for key, v := range overrides {
		if v == "" {
			continue
		}
		if err := SetField(cfg, key, v); err != nil {
			return fmt.Errorf("flag %s: %w", key, err)
		}
	}
	return nil
}

// providerEnv lists, per provider, the variables holding its credential,
// endpoint and API version.
var providerEnv = map[string]struct {
	key, endpoint, version string
}{
	"azure":     {"AZUREAI_KEY", "AZUREAI_ENDPOINT", "AZUREAI_API_VERSION"},
	"openai":    {"OPENAI_API_KEY", "OPENAI_BASE_URL", ""},
	"github":    {"GITHUB_TOKEN", "", ""},
	"anthropic": {"ANTHROPIC_API_KEY", "", ""},
	"ollama":    {"OLLAMA_API_KEY", "OLLAMA_HOST", ""},
}

// resolveCredentials fills provider-specific settings from the
// environment once the provider is final.
func (c *Config) resolveCredentials() {
	env, ok := providerEnv[c.Provider]
	if !ok {
		return
	}
	if c.APIKey == "" && env.key != "" {
		c.APIKey = os.Getenv(env.key)
	}
	if c.Endpoint == "" && env.endpoint != "" {
		c.Endpoint = os.Getenv(env.endpoint)
	}
	if c.APIVersion == "" && env.version != "" {
		c.APIVersion = os.Getenv(env.version)
	}
}

// KeyVar names the environment variable holding the provider credential.
func KeyVar(provider string) string {
	if env, ok := providerEnv[provider]; ok && env.key != "" {
		return env.key
	}
	return EnvPrefix + "API_KEY"
}

// Save writes the config to path, or to ConfigPath() when path is empty.
func Save(cfg Config, path string) (string, error) {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return "", err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return "", fmt.Errorf("encoding config: %w", err)
	}
	return path, f.Close()
}

// SetField sets a single config field by its TOML key. Returns error if
// key is unknown or value does not parse.
func SetField(cfg *Config, key, value string) error {
	switch key {
	case "provider":
		cfg.Provider = value
	case "model":
		cfg.Model = value
	case "endpoint":
		cfg.Endpoint = value
	case "api_version":
		cfg.APIVersion = value
	case "tokenizer":
		cfg.Tokenizer = value
	case "token_limit":
		return setInt(&cfg.TokenLimit, key, value)
	case "baseline":
		cfg.Baseline = value
	case "remote":
		cfg.Remote = value
	case "diff_base":
		cfg.DiffBase = value
	case "context_lines":
		return setInt(&cfg.ContextLines, key, value)
	case "include":
		cfg.Include = splitList(value)
	case "exclude":
		cfg.Exclude = splitList(value)
	case "out_dir":
		cfg.OutDir = value
	case "html":
		return setBool(&cfg.HTML, key, value)
	case "log_level":
		cfg.LogLevel = value
	case "review.framing":
		cfg.Review.Framing = value
	case "review.prompt_file":
		cfg.Review.PromptFile = value
	case "review.max_tokens":
		return setInt(&cfg.Review.MaxTokens, key, value)
	case "review.temperature":
		return setFloat(&cfg.Review.Temperature, key, value)
	case "review.top_p":
		return setFloat(&cfg.Review.TopP, key, value)
	case "review.retries":
		return setInt(&cfg.Review.Retries, key, value)
	case "review.retry_backoff":
		return setDuration(&cfg.Review.RetryBackoff, key, value)
	case "review.concurrency":
		return setInt(&cfg.Review.Concurrency, key, value)
	case "review.requests_per_minute":
		return setInt(&cfg.Review.RequestsPerMinute, key, value)
	case "review.timeout":
		return setDuration(&cfg.Review.Timeout, key, value)
	case "privacy.redact_secrets":
		return setBool(&cfg.Privacy.RedactSecrets, key, value)
	case "privacy.redact_paths":
		cfg.Privacy.RedactPaths = splitList(value)
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s must be an integer: %w", key, err)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, key, value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("%s must be a number: %w", key, err)
	}
	*dst = f
	return nil
}

func setBool(dst *bool, key, value string) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("%s must be true or false: %w", key, err)
	}
	*dst = b
	return nil
}

func setDuration(dst *Duration, key, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s must be a duration such as 30s: %w", key, err)
	}
	*dst = Duration(d)
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// MaskedKey renders the credential for display.
func (c Config) MaskedKey() string {
	switch {
	case c.APIKey == "":
		return "(not set)"
	case len(c.APIKey) <= 8:
		return "****"
	default:
		return "****" + c.APIKey[len(c.APIKey)-4:]
	}
}
