// Package config loads service settings from defaults, an optional YAML file
// and FISHVIEW_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "FISHVIEW"

// DefaultFileName is looked up in the working directory and ./config.
const DefaultFileName = "fishview"

// AppConfig is the root configuration.
type AppConfig struct {
	Server   ServerConfig   `mapstructure:"server"`
	Tracker  TrackerConfig  `mapstructure:"tracker"`
	Display  DisplayConfig  `mapstructure:"display"`
	Journal  JournalConfig  `mapstructure:"journal"`
	Advanced AdvancedConfig `mapstructure:"advanced"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	BindAddress       string        `mapstructure:"bind_address"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	EnableCORS        bool          `mapstructure:"enable_cors"`
	AllowOrigins      []string      `mapstructure:"allow_origins"`
	BodyLimit         string        `mapstructure:"body_limit"`
	EnableCompression bool          `mapstructure:"enable_compression"`
	CompressionLevel  int           `mapstructure:"compression_level"`
}

// TrackerConfig points at the remote tracking service.
type TrackerConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// DisplayConfig tunes the map and table surfaces.
type DisplayConfig struct {
	CenterLat   float64 `mapstructure:"center_lat"`
	CenterLon   float64 `mapstructure:"center_lon"`
	Zoom        int     `mapstructure:"zoom"`
	TileURL     string  `mapstructure:"tile_url"`
	Attribution string  `mapstructure:"attribution"`
	LegendFile  string  `mapstructure:"legend_file"`
	// TimeZone is an IANA name used for the footer clock; empty means local.
	TimeZone string `mapstructure:"time_zone"`
}

// JournalConfig controls the in-memory sync journal.
type JournalConfig struct {
	Enabled bool `mapstructure:"enabled"`
	MaxRows int  `mapstructure:"max_rows"`
}

// AdvancedConfig contains logging and websocket tuning.
type AdvancedConfig struct {
	LogLevel             string `mapstructure:"log_level"`
	EnableRequestLogging bool   `mapstructure:"enable_request_logging"`
	ErrorDetails         bool   `mapstructure:"error_details"`
	WSReadBufferSize     int    `mapstructure:"ws_read_buffer_size"`
	WSWriteBufferSize    int    `mapstructure:"ws_write_buffer_size"`
	WSSendQueue          int    `mapstructure:"ws_send_queue"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.bind_address", "0.0.0.0")
	v.SetDefault("server.port", 8089)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("server.enable_cors", true)
	v.SetDefault("server.allow_origins", []string{"*"})
	v.SetDefault("server.body_limit", "64K")
	v.SetDefault("server.enable_compression", true)
	v.SetDefault("server.compression_level", 5)

	v.SetDefault("tracker.base_url", "http://localhost:8088")

	v.SetDefault("display.center_lat", 44.692661)
	v.SetDefault("display.center_lon", -63.639532)
	v.SetDefault("display.zoom", 14)
	v.SetDefault("display.tile_url", "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png")
	v.SetDefault("display.attribution", `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`)
	v.SetDefault("display.legend_file", "")
	v.SetDefault("display.time_zone", "")

	v.SetDefault("journal.enabled", true)
	v.SetDefault("journal.max_rows", 5000)

	v.SetDefault("advanced.log_level", "info")
	v.SetDefault("advanced.enable_request_logging", true)
	v.SetDefault("advanced.error_details", false)
	v.SetDefault("advanced.ws_read_buffer_size", 1024)
	v.SetDefault("advanced.ws_write_buffer_size", 16*1024)
	v.SetDefault("advanced.ws_send_queue", 8)
}

// Load reads configuration. An empty path searches for fishview.yaml in the
// working directory and ./config; a missing file is not an error then.
// An explicit path must exist.
func Load(path string) (*AppConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The tracker URL is commonly provided as API_URL by the deployment.
	if err := v.BindEnv("tracker.base_url", EnvPrefix+"_TRACKER_BASE_URL", EnvPrefix+"_API_URL", "API_URL"); err != nil {
		return nil, err
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(DefaultFileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	cfg.Server.AllowOrigins = splitOrigins(cfg.Server.AllowOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c *AppConfig) Validate() error {
	u, err := url.Parse(strings.TrimSpace(c.Tracker.BaseURL))
	if err != nil {
		return fmt.Errorf("tracker.base_url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("tracker.base_url must be an absolute http(s) URL, got %q", c.Tracker.BaseURL)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("server.shutdown_timeout must be > 0")
	}

	if c.Display.Zoom < 0 || c.Display.Zoom > 19 {
		return fmt.Errorf("display.zoom must be within [0,19], got %d", c.Display.Zoom)
	}
	if c.Display.CenterLat < -90 || c.Display.CenterLat > 90 {
		return fmt.Errorf("display.center_lat out of range: %v", c.Display.CenterLat)
	}
	if c.Display.CenterLon < -180 || c.Display.CenterLon > 180 {
		return fmt.Errorf("display.center_lon out of range: %v", c.Display.CenterLon)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("display.time_zone: %w", err)
	}

	if c.Journal.MaxRows < 0 {
		return fmt.Errorf("journal.max_rows must be >= 0, got %d", c.Journal.MaxRows)
	}
	return nil
}

// ServerAddr returns host:port for the listener.
func (c *AppConfig) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// Location resolves the footer time zone.
func (c *AppConfig) Location() (*time.Location, error) {
	if c.Display.TimeZone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Display.TimeZone)
}

// AllowAllOrigins reports whether CORS and websocket origin checks are open.
func (c *AppConfig) AllowAllOrigins() bool {
	for _, o := range c.Server.AllowOrigins {
		if o == "*" {
			return true
		}
	}
	return len(c.Server.AllowOrigins) == 0
}

func splitOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, o := range strings.Split(item, ",") {
			if o = strings.TrimSpace(o); o != "" {
				out = append(out, o)
			}
		}
	}
	return out
}
