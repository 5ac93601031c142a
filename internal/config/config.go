// Package config loads sqldiff settings from an optional YAML file, SQLDIFF_*
// environment variables and command line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultName      = "sqldiff"
	defaultExtension = "yaml"
	defaultTagName   = "yaml"
	envPrefix        = "SQLDIFF"

	FormatText     = "text"
	FormatMarkdown = "markdown"
)

type Config struct {
	Tables        []string `yaml:"tables"`
	ExcludeTables []string `yaml:"exclude_tables"`
	Charset       string   `yaml:"charset"`
	Format        string   `yaml:"format"`
	Output        string   `yaml:"output"`
	OutputDir     string   `yaml:"output_dir"`
	StoreURL      string   `yaml:"store_url"`
	LogLevel      string   `yaml:"log_level"`
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Charset, validation.Required),
		validation.Field(&c.Format, validation.Required, validation.In(FormatText, FormatMarkdown)),
		validation.Field(&c.StoreURL, validation.Required),
		validation.Field(&c.LogLevel, validation.Required, validation.By(validLogLevel)),
		validation.Field(&c.OutputDir, validation.When(c.Output != "", validation.Empty.Error("cannot be combined with output"))),
	)
}

func validLogLevel(value interface{}) error {
	s, _ := value.(string)
	if _, err := zerolog.ParseLevel(s); err != nil {
		return fmt.Errorf("unknown log level %q", s)
	}
	return nil
}

// Level returns the configured zerolog level
func (c Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.WarnLevel
	}
	return level
}

// flagKeys maps config keys to the flag names that override them
var flagKeys = map[string]string{
	"tables":         "tables",
	"exclude_tables": "exclude-tables",
	"charset":        "charset",
	"format":         "format",
	"output":         "output",
	"output_dir":     "output-dir",
	"store_url":      "store",
	"log_level":      "log-level",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("tables", []string{})
	v.SetDefault("exclude_tables", []string{})
	v.SetDefault("charset", "utf8")
	v.SetDefault("format", FormatText)
	v.SetDefault("output", "")
	v.SetDefault("output_dir", "")
	v.SetDefault("store_url", "sqlite://sqldiff.db")
	v.SetDefault("log_level", "warn")
}

// Load reads configuration. configFile may be empty, in which case
// sqldiff.yaml is looked up in the working directory and skipped when absent.
// Only flags that were set on the command line override file and environment.
func Load(configFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(defaultName)
		v.SetConfigType(defaultExtension)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_")) // So that env vars are translated properly
	v.AutomaticEnv()

	if flags != nil {
		for key, name := range flagKeys {
			f := flags.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return Config{}, fmt.Errorf("bind flag %s to key %s: %w", name, key, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = defaultTagName // We use yaml tags in the config structs so we can marshal to yaml
	})
	if err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}
