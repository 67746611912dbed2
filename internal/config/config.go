// Package config loads the runtime configuration from an optional YAML file
// and COURSEKIT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the runtime configuration of the platform process. Site
// appearance settings live in the data store instead; these are the knobs an
// operator sets before the process starts.
type Config struct {
	ListenAddr string `mapstructure:"listen_addr"`
	DataDir    string `mapstructure:"data_dir"`
	LogLevel   string `mapstructure:"log_level"`

	Fetch FetchConfig `mapstructure:"fetch"`
}

// FetchConfig bounds the outbound import fetches.
type FetchConfig struct {
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
	MaxRedirects    int    `mapstructure:"max_redirects"`
	MaxDocumentSize int64  `mapstructure:"max_document_size"`
	MaxImageSize    int64  `mapstructure:"max_image_size"`
	MaxImages       int    `mapstructure:"max_images"`
	UserAgent       string `mapstructure:"user_agent"`
}

// Load reads the named YAML config file, falling back to defaults when the
// file does not exist. Environment variables such as COURSEKIT_LISTEN_ADDR
// override both.
func Load(filename string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(filename)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("data_dir", ".")
	v.SetDefault("log_level", "info")
	v.SetDefault("fetch.timeout_seconds", 15)
	v.SetDefault("fetch.max_redirects", 5)
	v.SetDefault("fetch.max_document_size", 5*1024*1024)
	v.SetDefault("fetch.max_image_size", 2*1024*1024)
	v.SetDefault("fetch.max_images", 10)
	v.SetDefault("fetch.user_agent", "coursekit/1.0")

	v.SetEnvPrefix("coursekit")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("cannot read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file: %w", err)
	}
	return &cfg, nil
}
