package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. LEASTPRIV_REGION.
const EnvPrefix = "LEASTPRIV"

// FileName is the default config file in the user's home directory.
const FileName = ".leastpriv.yaml"

// NewViper returns a viper instance seeded with Default() and wired to the
// environment. cfgFile overrides the home directory file.
func NewViper(cfgFile string) *viper.Viper {
	v := viper.New()
	setDefaults(v, Default())

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		v.SetConfigFile(filepath.Join(home, FileName))
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file if present and decodes the merged settings.
// A missing default file is not an error; a missing explicit file is.
func Load(v *viper.Viper, explicit bool) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !(errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("region", d.Region)
	v.SetDefault("profile", d.Profile)
	v.SetDefault("stack", d.Stack)
	v.SetDefault("sources.log_group_prefix", d.Sources.LogGroupPrefix)
	v.SetDefault("sources.lookback", d.Sources.Lookback)
	v.SetDefault("sources.max_events", d.Sources.MaxEvents)
	v.SetDefault("sources.filter_pattern", d.Sources.FilterPattern)
	v.SetDefault("sources.cloudtrail", d.Sources.CloudTrail)
	v.SetDefault("sources.lambda_inventory", d.Sources.LambdaInventory)
	v.SetDefault("output.output_dir", d.Output.Dir)
	v.SetDefault("output.formats", d.Output.Formats)
	v.SetDefault("output.slack_webhook", d.Output.SlackWebhook)
	v.SetDefault("output.slack_channel", d.Output.SlackChannel)
	v.SetDefault("concurrency", d.Concurrency)
	v.SetDefault("rules_file", d.RulesFile)
	v.SetDefault("verify", d.Verify)
	v.SetDefault("publish_metrics", d.PublishMetrics)
	v.SetDefault("strict", d.StrictMode)
	v.SetDefault("otel_endpoint", d.OtelEndpoint)
	v.SetDefault("json_logs", d.JSONLogs)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("verbose", d.Verbose)
}
