// Package config loads quarry configuration from defaults, an optional
// TOML file, and QUARRY_* environment variable overrides, in that order
// of precedence (later wins).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration that unmarshals from TOML strings like
// "30s" or "500ms".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(data []byte) error {
	parsed, err := time.ParseDuration(string(data))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", string(data), err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds the static inputs to the scraper daemon. None of these
// are mutable mid-run.
type Config struct {
	// BaseURL is the Jira REST API root.
	BaseURL string `toml:"base_url"`

	// Projects are the project identifiers to scrape, in run order.
	Projects []string `toml:"projects"`

	// PageSize is the maxResults value for issue search pages.
	PageSize int `toml:"page_size"`

	// OutputPath is the append-only JSONL record stream.
	OutputPath string `toml:"output_path"`

	// TransformedPath receives the flattened training copy.
	TransformedPath string `toml:"transformed_path"`

	// CheckpointPath is the durable progress document.
	CheckpointPath string `toml:"checkpoint_path"`

	// ListenAddr is the HTTP control surface bind address.
	ListenAddr string `toml:"listen_addr"`

	// Username and APIToken are optional basic auth credentials.
	Username string `toml:"username"`
	APIToken string `toml:"api_token"`

	// RequestTimeout bounds each upstream HTTP request.
	RequestTimeout Duration `toml:"request_timeout"`

	// RequestRate is the proactive throttle in requests per second.
	RequestRate float64 `toml:"request_rate"`

	// PageDelay is the politeness pause between issue pages.
	PageDelay Duration `toml:"page_delay"`

	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string `toml:"log_level"`

	// LogFile receives JSON logs; empty means stderr.
	LogFile string `toml:"log_file"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		BaseURL:         "https://issues.apache.org/jira/rest/api/2",
		Projects:        []string{"SPARK", "HADOOP", "KAFKA"},
		PageSize:        10,
		OutputPath:      "output.jsonl",
		TransformedPath: "transformed_dataset.jsonl",
		CheckpointPath:  "checkpoint.json",
		ListenAddr:      ":8000",
		RequestTimeout:  Duration(30 * time.Second),
		RequestRate:     2.0,
		PageDelay:       Duration(time.Second),
		LogLevel:        "info",
	}
}

// Load builds the effective configuration. A missing file at path is not
// an error; env overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		} else if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("config: base_url must not be empty")
	}
	if len(c.Projects) == 0 {
		return fmt.Errorf("config: at least one project is required")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("config: page_size must be positive, got %d", c.PageSize)
	}
	if c.OutputPath == "" || c.CheckpointPath == "" {
		return fmt.Errorf("config: output_path and checkpoint_path must not be empty")
	}
	return nil
}

func (c *Config) applyEnv() {
	overrideString(&c.BaseURL, "QUARRY_BASE_URL")
	overrideString(&c.OutputPath, "QUARRY_OUTPUT_PATH")
	overrideString(&c.TransformedPath, "QUARRY_TRANSFORMED_PATH")
	overrideString(&c.CheckpointPath, "QUARRY_CHECKPOINT_PATH")
	overrideString(&c.ListenAddr, "QUARRY_LISTEN_ADDR")
	overrideString(&c.Username, "QUARRY_USERNAME")
	overrideString(&c.APIToken, "QUARRY_API_TOKEN")
	overrideString(&c.LogLevel, "QUARRY_LOG_LEVEL")
	overrideString(&c.LogFile, "QUARRY_LOG_FILE")
	overrideInt(&c.PageSize, "QUARRY_PAGE_SIZE")
	overrideDuration(&c.RequestTimeout, "QUARRY_REQUEST_TIMEOUT")
	overrideDuration(&c.PageDelay, "QUARRY_PAGE_DELAY")
	overrideFloat(&c.RequestRate, "QUARRY_REQUEST_RATE")

	if v := os.Getenv("QUARRY_PROJECTS"); v != "" {
		parts := strings.Split(v, ",")
		projects := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				projects = append(projects, p)
			}
		}
		if len(projects) > 0 {
			c.Projects = projects
		}
	}
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func overrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func overrideFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func overrideDuration(dst *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = Duration(d)
		}
	}
}
