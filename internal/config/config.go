// Package config loads application settings from flags, environment and an
// optional sitebuilder.{yaml,toml,json} file.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. SITEBUILDER_BUILD_DIR.
const EnvPrefix = "SITEBUILDER"

// Config is the complete application configuration.
type Config struct {
	Widgets    WidgetsConfig    `mapstructure:"widgets"`
	Build      BuildConfig      `mapstructure:"build"`
	Server     ServerConfig     `mapstructure:"server"`
	Templating TemplatingConfig `mapstructure:"templating"`
	Log        LogConfig        `mapstructure:"log"`
}

// WidgetsConfig locates widget definition files.
type WidgetsConfig struct {
	Dir   string `mapstructure:"dir"`
	Watch bool   `mapstructure:"watch"` // Reload definitions when files change
}

// BuildConfig controls publishing.
type BuildConfig struct {
	Dir     string   `mapstructure:"dir"`
	Scripts []string `mapstructure:"scripts"`
	LibDir  string   `mapstructure:"lib_dir"`
	Workers int      `mapstructure:"workers"`
	// EmbedData adds data-widget-data to rendered widgets so pages can be read back.
	EmbedData bool `mapstructure:"embed_data"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// TemplatingConfig configures the widget renderer.
type TemplatingConfig struct {
	Nested bool `mapstructure:"nested"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn or error
	Format string `mapstructure:"format"` // text or json
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"widgets-dir":       "widgets.dir",
	"watch":             "widgets.watch",
	"build-dir":         "build.dir",
	"scripts":           "build.scripts",
	"lib-dir":           "build.lib_dir",
	"workers":           "build.workers",
	"embed-data":        "build.embed_data",
	"port":              "server.port",
	"nested-templating": "templating.nested",
	"log-level":         "log.level",
	"log-format":        "log.format",
}

// RegisterFlags adds the configuration flags to fs. Only flags that are set
// explicitly override the environment and the config file.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to a config file (default: ./sitebuilder.{yaml,toml,json})")
	fs.String("widgets-dir", "", "Directory of widget definition files")
	fs.Bool("watch", false, "Reload widget definitions when their files change")
	fs.String("build-dir", "", "Directory pages are published to")
	fs.StringSlice("scripts", nil, "Script files linked from every published page")
	fs.String("lib-dir", "", "Directory copied into the build as scripts/")
	fs.Int("workers", 0, "Number of pages published concurrently")
	fs.Bool("embed-data", false, "Embed instance data in rendered widget markup")
	fs.Int("port", 0, "HTTP server port")
	fs.Bool("nested-templating", false, "Allow nested {{#if}}/{{#each}} blocks in widget templates")
	fs.String("log-level", "", "Log level: debug, info, warn, error")
	fs.String("log-format", "", "Log format: text, json")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("widgets.dir", "widgets")
	v.SetDefault("widgets.watch", false)
	v.SetDefault("build.dir", "public/build")
	v.SetDefault("build.scripts", []string{})
	v.SetDefault("build.lib_dir", "")
	v.SetDefault("build.workers", 4)
	v.SetDefault("build.embed_data", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("templating.nested", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load resolves the configuration. Precedence: explicitly set flags, environment,
// config file, defaults. fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configFile := ""
	if fs != nil {
		if f := fs.Lookup("config"); f != nil {
			configFile = f.Value.String()
		}
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("sitebuilder")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if fs != nil {
		for name, key := range flagKeys {
			f := fs.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Widgets.Dir == "" {
		return errors.New("widgets.dir cannot be empty")
	}
	if c.Build.Dir == "" {
		return errors.New("build.dir cannot be empty")
	}
	if c.Build.Workers < 1 {
		return fmt.Errorf("build.workers must be at least 1, got %d", c.Build.Workers)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("unknown log.format %q", c.Log.Format)
	}
	return nil
}

// NewLogger builds the application logger described by c.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log.level %q", s)
	}
	return level, nil
}
