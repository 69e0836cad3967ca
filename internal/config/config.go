// Package config loads process configuration for the flowserver
// entrypoint from a config file, environment variables, and defaults,
// using spf13/viper. Grounded on the teacher's root
// config/config.go (LoadConfig/setViperDefaults/applyEnvOverrides),
// trimmed to the sub-configs this module's components actually use.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/spf13/viper"
)

// Config is the root configuration object unmarshaled by Load.
type Config struct {
	Environment   string              `mapstructure:"environment"`
	Server        ServerConfig        `mapstructure:"server"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Plugins       PluginsConfig       `mapstructure:"plugins"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Engine        EngineConfig        `mapstructure:"engine"`
}

// ServerConfig configures the HTTP reference sink (internal/httpsink).
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// LoggingConfig configures internal/logging's base logger.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// PluginsConfig configures internal/plugins discovery.
type PluginsConfig struct {
	Root           string `mapstructure:"root"`
	DiscoverOnBoot bool   `mapstructure:"discover_on_boot"`
}

// ObservabilityConfig configures Prometheus metrics and OpenTelemetry
// tracing (internal/observability).
type ObservabilityConfig struct {
	MetricsAddr    string `mapstructure:"metrics_addr"`
	TracingEnabled bool   `mapstructure:"tracing_enabled"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	ServiceName    string `mapstructure:"service_name"`
}

// EngineConfig holds engine-wide defaults not carried per-workflow.
// DefaultMaxIterations is loaded but not read by the engine: loop
// iteration counts are clamped to the loop.MaxIterations constant.
type EngineConfig struct {
	DefaultMaxIterations int `mapstructure:"default_max_iterations"`
}

// Default returns the configuration used when no file, flag, or
// environment variable overrides a value.
func Default() *Config {
	return &Config{
		Environment: "development",
		Server:      ServerConfig{Host: "0.0.0.0", Port: 8088},
		Logging:     LoggingConfig{Level: "info"},
		Plugins:     PluginsConfig{Root: "./plugins", DiscoverOnBoot: true},
		Observability: ObservabilityConfig{
			MetricsAddr:    ":9090",
			TracingEnabled: false,
			OTLPEndpoint:   "localhost:4317",
			ServiceName:    "flowgraph",
		},
		Engine: EngineConfig{DefaultMaxIterations: 10000},
	}
}

// Load reads configuration from configPath (if non-empty), then
// environment variables prefixed FLOWGRAPH_, layered over Default().
// A missing config file is not an error; an unreadable or malformed
// one is.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("flowgraph")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/flowgraph/")
		v.AddConfigPath("$HOME/.flowgraph")
	}

	if err := v.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !notFound && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("FLOWGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

// setDefaults walks cfg's fields via reflection and registers each leaf
// value as a viper default under its mapstructure-tag-derived dotted
// key, the same recursive-defaults idiom the teacher's
// setViperDefaults/setDefaultsRecursive uses.
func setDefaults(v *viper.Viper, cfg any) {
	setDefaultsRecursive(v, reflect.ValueOf(cfg).Elem(), reflect.TypeOf(cfg).Elem(), "")
}

func setDefaultsRecursive(v *viper.Viper, val reflect.Value, typ reflect.Type, prefix string) {
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		fieldVal := val.Field(i)
		if !fieldVal.CanInterface() {
			continue
		}

		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(field.Name)
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if fieldVal.Kind() == reflect.Struct {
			setDefaultsRecursive(v, fieldVal, fieldVal.Type(), key)
			continue
		}
		v.SetDefault(key, fieldVal.Interface())
	}
}
