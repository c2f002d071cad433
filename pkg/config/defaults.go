// Package config defines leastpriv settings and their defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/DrSkyle/leastpriv/pkg/engine/denial"
)

// Defaults.
const (
	DefaultRegion      = "us-east-1"
	DefaultLookback    = 24 * time.Hour
	DefaultMaxEvents   = 10000
	DefaultConcurrency = 4
	DefaultOutputDir   = "leastpriv-out"
)

// DefaultFilterPattern is the server-side CloudWatch Logs filter. It covers
// every phrase the denial parser accepts.
var DefaultFilterPattern = denial.FilterPattern()

// Report formats.
const (
	FormatJSON      = "json"
	FormatCSV       = "csv"
	FormatMarkdown  = "markdown"
	FormatTerraform = "terraform"
)

// Formats lists every supported report format.
var Formats = []string{FormatJSON, FormatCSV, FormatMarkdown, FormatTerraform}

// SourceConfig controls what is read and how much of it.
type SourceConfig struct {
	// LogGroupPrefix limits discovered log groups when no stack is given.
	LogGroupPrefix string `mapstructure:"log_group_prefix"`
	// Lookback is how far back events are fetched.
	Lookback time.Duration `mapstructure:"lookback"`
	// MaxEvents caps events fetched per source. Zero means unlimited.
	MaxEvents int `mapstructure:"max_events"`
	// FilterPattern is the CloudWatch Logs filter applied server side.
	FilterPattern string `mapstructure:"filter_pattern"`
	// CloudTrail adds the CloudTrail event history as one more source.
	CloudTrail bool `mapstructure:"cloudtrail"`
	// LambdaInventory derives an inventory from ListFunctions when no stack is set.
	LambdaInventory bool `mapstructure:"lambda_inventory"`
}

// OutputConfig controls artifacts and notifications.
type OutputConfig struct {
	// Dir is a local directory or an s3://bucket/prefix target.
	Dir          string   `mapstructure:"output_dir"`
	Formats      []string `mapstructure:"formats"`
	SlackWebhook string   `mapstructure:"slack_webhook"`
	SlackChannel string   `mapstructure:"slack_channel"`
}

// Config is the full run configuration.
type Config struct {
	Region  string `mapstructure:"region"`
	Profile string `mapstructure:"profile"`
	// Stack is a CloudFormation stack whose resources scope the run.
	Stack string `mapstructure:"stack"`

	Sources SourceConfig `mapstructure:"sources"`
	Output  OutputConfig `mapstructure:"output"`

	Concurrency int    `mapstructure:"concurrency"`
	RulesFile   string `mapstructure:"rules_file"`

	Verify         bool `mapstructure:"verify"`
	PublishMetrics bool `mapstructure:"publish_metrics"`

	// StrictMode forces a non-zero exit code on partial failures.
	StrictMode bool `mapstructure:"strict"`

	OtelEndpoint string `mapstructure:"otel_endpoint"`
	JSONLogs     bool   `mapstructure:"json_logs"`
	LogLevel     string `mapstructure:"log_level"`
	Verbose      bool   `mapstructure:"verbose"`
}

// Default returns a configuration with sensible default values.
func Default() Config {
	return Config{
		Region: DefaultRegion,
		Sources: SourceConfig{
			Lookback:      DefaultLookback,
			MaxEvents:     DefaultMaxEvents,
			FilterPattern: DefaultFilterPattern,
		},
		Output: OutputConfig{
			Dir:     DefaultOutputDir,
			Formats: []string{FormatJSON, FormatMarkdown},
		},
		Concurrency: DefaultConcurrency,
		LogLevel:    "info",
	}
}

// Validate rejects settings no run could use.
func (c Config) Validate() error {
	var errs []error
	if c.Sources.Lookback < 0 {
		errs = append(errs, fmt.Errorf("lookback must not be negative, got %s", c.Sources.Lookback))
	}
	if c.Sources.MaxEvents < 0 {
		errs = append(errs, fmt.Errorf("max_events must not be negative, got %d", c.Sources.MaxEvents))
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency))
	}
	for _, f := range c.Output.Formats {
		if !knownFormat(f) {
			errs = append(errs, fmt.Errorf("unknown output format %q (want one of %s)", f, strings.Join(Formats, ", ")))
		}
	}
	return errors.Join(errs...)
}

func knownFormat(f string) bool {
	for _, known := range Formats {
		if f == known {
			return true
		}
	}
	return false
}
