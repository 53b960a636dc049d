package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"go2tv.app/scapsrc/scapsrc"
)

const (
	BackendPortal  = "portal"
	BackendPattern = "pattern"
)

type PatternConfig struct {
	Width  uint32 `mapstructure:"width"`
	Height uint32 `mapstructure:"height"`
	Format string `mapstructure:"format"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Config struct {
	FPS                    uint32        `mapstructure:"fps"`
	ShowCursor             bool          `mapstructure:"show_cursor"`
	PerformInternalPreroll bool          `mapstructure:"perform_internal_preroll"`
	Backend                string        `mapstructure:"backend"`
	Pattern                PatternConfig `mapstructure:"pattern"`
	Output                 string        `mapstructure:"output"`
	NumBuffers             int           `mapstructure:"num_buffers"`
	AcceptCaps             string        `mapstructure:"accept_caps"`
	StatsInterval          time.Duration `mapstructure:"stats_interval"`
	FrameTimeout           time.Duration `mapstructure:"frame_timeout"`
	Log                    LogConfig     `mapstructure:"log"`
}

func Default() *Config {
	return &Config{
		FPS:                    scapsrc.DefaultFPS,
		ShowCursor:             scapsrc.DefaultShowCursor,
		PerformInternalPreroll: scapsrc.DefaultPerformInternalPreroll,
		Backend:                BackendPortal,
		Pattern: PatternConfig{
			Width:  1280,
			Height: 720,
			Format: "BGR0",
		},
		StatsInterval: 5 * time.Second,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Settings returns the element properties the config carries.
func (c *Config) Settings() scapsrc.Settings {
	return scapsrc.Settings{
		FPS:                    c.FPS,
		ShowCursor:             c.ShowCursor,
		PerformInternalPreroll: c.PerformInternalPreroll,
	}
}

// Loader reads the config file, SCAPSRC_* environment variables and
// defaults, in that order of precedence after explicit Set calls.
type Loader struct {
	v   *viper.Viper
	log *slog.Logger

	watchOnce sync.Once
}

// NewLoader prepares a loader. A nil log means whatever slog.Default is at
// the time something is logged.
func NewLoader(cfgFile string, log *slog.Logger) *Loader {
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("scapsrc")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SCAPSRC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, Default())
	return &Loader{v: v, log: log}
}

// Viper exposes the underlying instance so command flags can be bound to it.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// ConfigFile is the file that was read, empty when running on defaults.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

func (l *Loader) logger() *slog.Logger {
	if l.log != nil {
		return l.log
	}
	return slog.Default()
}

func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		l.logger().Debug("config: no config file found, using defaults")
	}
	return l.decode()
}

func (l *Loader) decode() (*Config, error) {
	cfg := Default()
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Watch calls fn with the re-read config every time the config file
// changes. Invalid configs are logged and skipped.
func (l *Loader) Watch(fn func(*Config)) {
	l.watchOnce.Do(func() {
		l.v.OnConfigChange(func(e fsnotify.Event) {
			if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
				return
			}
			cfg, err := l.decode()
			if err == nil {
				err = cfg.Validate()
			}
			if err != nil {
				l.logger().Warn("config: ignoring invalid update", "file", e.Name, "error", err)
				return
			}
			l.logger().Info("config: reloaded", "file", e.Name)
			fn(cfg)
		})
		l.v.WatchConfig()
	})
}

// Load reads the config the way the CLI does.
func Load(cfgFile string) (*Config, error) {
	return NewLoader(cfgFile, nil).Load()
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("fps", d.FPS)
	v.SetDefault("show_cursor", d.ShowCursor)
	v.SetDefault("perform_internal_preroll", d.PerformInternalPreroll)
	v.SetDefault("backend", d.Backend)
	v.SetDefault("pattern.width", d.Pattern.Width)
	v.SetDefault("pattern.height", d.Pattern.Height)
	v.SetDefault("pattern.format", d.Pattern.Format)
	v.SetDefault("output", d.Output)
	v.SetDefault("num_buffers", d.NumBuffers)
	v.SetDefault("accept_caps", d.AcceptCaps)
	v.SetDefault("stats_interval", d.StatsInterval)
	v.SetDefault("frame_timeout", d.FrameTimeout)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

func configDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "scapsrc")
	}
	return "/etc/scapsrc"
}
