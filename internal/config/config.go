// Package config manages btmgrd's configuration using koanf/v2.
//
// Supports YAML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// -------------------------------------------------------------------------
// Configuration Structures
// -------------------------------------------------------------------------

// Config holds the complete btmgrd configuration.
type Config struct {
	DBus    DBusConfig    `koanf:"dbus"`
	Metrics MetricsConfig `koanf:"metrics"`
	Log     LogConfig     `koanf:"log"`
	OPP     OPPConfig     `koanf:"opp"`
	Pairing PairingConfig `koanf:"pairing"`
}

// DBusConfig holds the D-Bus transport configuration.
type DBusConfig struct {
	// BusName is the well-known name btmgrd requests on the system bus,
	// e.g. "org.anttech.btmgr".
	BusName string `koanf:"bus_name"`
}

// MetricsConfig holds the Prometheus metrics endpoint configuration.
type MetricsConfig struct {
	// Addr is the HTTP listen address for the metrics endpoint (e.g., ":9100").
	Addr string `koanf:"addr"`
	// Path is the URL path for the metrics endpoint (e.g., "/metrics").
	Path string `koanf:"path"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `koanf:"level"`
	// Format is the log output format: "json" or "text".
	Format string `koanf:"format"`
}

// OPPConfig holds Object Push Profile settings.
type OPPConfig struct {
	// StorageRoot bounds OPP pushFile: a sourceFile that resolves outside
	// it is rejected.
	StorageRoot string `koanf:"storage_root"`
}

// PairingConfig holds pairing-related defaults.
type PairingConfig struct {
	// DefaultIOCapability is the I/O capability advertised to the stack
	// for adapters that don't override it: "display_only",
	// "display_yes_no", "keyboard_only", "no_input_no_output",
	// "keyboard_display".
	DefaultIOCapability string `koanf:"default_io_capability"`
	// DisplayAssignmentPath points at the JSON file mapping stack
	// interface names (e.g. "hci0") to display tags (e.g. "RSE-L").
	DisplayAssignmentPath string `koanf:"display_assignment_path"`
}

// -------------------------------------------------------------------------
// Defaults
// -------------------------------------------------------------------------

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DBus: DBusConfig{
			BusName: "org.anttech.btmgr",
		},
		Metrics: MetricsConfig{
			Addr: ":9100",
			Path: "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		OPP: OPPConfig{
			StorageRoot: "/var/lib/btmgrd/opp",
		},
		Pairing: PairingConfig{
			DefaultIOCapability:   "no_input_no_output",
			DisplayAssignmentPath: "/etc/btmgrd/displays.json",
		},
	}
}

// -------------------------------------------------------------------------
// Loader
// -------------------------------------------------------------------------

// envPrefix is the environment variable prefix for btmgrd configuration.
// Variables are named BTMGRD_<section>_<key>, e.g., BTMGRD_DBUS_BUS_NAME.
const envPrefix = "BTMGRD_"

// Load reads configuration from a YAML file at path, overlays environment
// variable overrides (BTMGRD_ prefix), and merges on top of DefaultConfig().
// Missing fields inherit defaults.
//
// Environment variable mapping:
//
//	BTMGRD_DBUS_BUS_NAME  -> dbus.bus_name
//	BTMGRD_METRICS_ADDR   -> metrics.addr
//	BTMGRD_METRICS_PATH   -> metrics.path
//	BTMGRD_LOG_LEVEL      -> log.level
//	BTMGRD_LOG_FORMAT     -> log.format
//
// Uses koanf/v2 with file + env providers and YAML parser.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Load defaults first.
	defaults := DefaultConfig()
	if err := loadDefaults(k, defaults); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	// Load YAML file on top of defaults.
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load config from %s: %w", path, err)
	}

	// Load environment variable overrides on top of YAML.
	// BTMGRD_DBUS_BUS_NAME -> dbus.bus_name (strip prefix, lowercase, first _ -> .).
	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config from %s: %w", path, err)
	}

	return cfg, nil
}

// envKeyMapper transforms BTMGRD_DBUS_BUS_NAME -> dbus.bus_name.
// Strips the BTMGRD_ prefix, lowercases, and replaces the first _ (the
// section separator) with ., keeping underscores inside the key name.
func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	return strings.Replace(s, "_", ".", 1)
}

// loadDefaults marshals the default config into koanf as the base layer.
func loadDefaults(k *koanf.Koanf, defaults *Config) error {
	defaultMap := map[string]any{
		"dbus.bus_name":                    defaults.DBus.BusName,
		"metrics.addr":                     defaults.Metrics.Addr,
		"metrics.path":                     defaults.Metrics.Path,
		"log.level":                        defaults.Log.Level,
		"log.format":                       defaults.Log.Format,
		"opp.storage_root":                 defaults.OPP.StorageRoot,
		"pairing.default_io_capability":    defaults.Pairing.DefaultIOCapability,
		"pairing.display_assignment_path":  defaults.Pairing.DisplayAssignmentPath,
	}

	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

// -------------------------------------------------------------------------
// Validation
// -------------------------------------------------------------------------

// Validation errors.
var (
	// ErrEmptyBusName indicates the D-Bus bus name is empty.
	ErrEmptyBusName = errors.New("dbus.bus_name must not be empty")

	// ErrEmptyStorageRoot indicates the OPP storage root is empty.
	ErrEmptyStorageRoot = errors.New("opp.storage_root must not be empty")

	// ErrInvalidIOCapability indicates an unrecognized I/O capability string.
	ErrInvalidIOCapability = errors.New("pairing.default_io_capability is not recognized")
)

// ValidIOCapabilities lists the recognized I/O capability strings.
var ValidIOCapabilities = map[string]bool{
	"display_only":       true,
	"display_yes_no":     true,
	"keyboard_only":      true,
	"no_input_no_output": true,
	"keyboard_display":   true,
}

// Validate checks the configuration for logical errors.
// Returns the first validation error encountered.
func Validate(cfg *Config) error {
	if cfg.DBus.BusName == "" {
		return ErrEmptyBusName
	}

	if cfg.OPP.StorageRoot == "" {
		return ErrEmptyStorageRoot
	}

	if cfg.Pairing.DefaultIOCapability != "" && !ValidIOCapabilities[cfg.Pairing.DefaultIOCapability] {
		return fmt.Errorf("%w: %q", ErrInvalidIOCapability, cfg.Pairing.DefaultIOCapability)
	}

	return nil
}

// -------------------------------------------------------------------------
// Log Level Parsing
// -------------------------------------------------------------------------

// ParseLogLevel maps a configuration log level string to the corresponding
// slog.Level. Unknown values default to slog.LevelInfo.
//
// Recognized values: "debug", "info", "warn", "error" (case-insensitive).
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
