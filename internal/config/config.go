package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rcarmo/go-fbtile/internal/fbtile"
	"github.com/rcarmo/go-fbtile/internal/logging"
)

// globalConfig stores the configuration loaded with command-line overrides
// This allows other packages to access the same configuration that was loaded by the server
var (
	globalConfig *Config
	configMutex  sync.Mutex
)

// ConfigFileEnv names the environment variable holding the YAML config path.
const ConfigFileEnv = "FBTILE_CONFIG"

// Config holds the application configuration
type Config struct {
	Server  ServerConfig  `json:"server" yaml:"server"`
	Tiling  TilingConfig  `json:"tiling" yaml:"tiling"`
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// LoadOptions holds command-line override options
type LoadOptions struct {
	Host       string
	Port       string
	LogLevel   string
	ConfigFile string
	Layout     string
	Op         string
	Walker     string
	Workers    int
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Host            string        `json:"host" yaml:"host" env:"SERVER_HOST" default:"0.0.0.0"`
	Port            string        `json:"port" yaml:"port" env:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `json:"readTimeout" yaml:"readTimeout" env:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `json:"writeTimeout" yaml:"writeTimeout" env:"SERVER_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `json:"idleTimeout" yaml:"idleTimeout" env:"SERVER_IDLE_TIMEOUT" default:"120s"`
	AllowedOrigins  []string      `json:"allowedOrigins" yaml:"allowedOrigins" env:"ALLOWED_ORIGINS" default:""`
	MaxConnections  int           `json:"maxConnections" yaml:"maxConnections" env:"MAX_CONNECTIONS" default:"100"`
	MaxMessageBytes int           `json:"maxMessageBytes" yaml:"maxMessageBytes" env:"MAX_MESSAGE_BYTES" default:"67108864"`
}

// TilingConfig holds the defaults applied to conversions
type TilingConfig struct {
	Layout    string `json:"layout" yaml:"layout" env:"TILING_LAYOUT" default:"intely"`
	Op        string `json:"op" yaml:"op" env:"TILING_OP" default:"detile"`
	Walker    string `json:"walker" yaml:"walker" env:"TILING_WALKER" default:"opti"`
	Auto      bool   `json:"auto" yaml:"auto" env:"TILING_AUTO" default:"false"`
	Workers   int    `json:"workers" yaml:"workers" env:"TILING_WORKERS" default:"1"`
	MaxWidth  int    `json:"maxWidth" yaml:"maxWidth" env:"TILING_MAX_WIDTH" default:"7680"`
	MaxHeight int    `json:"maxHeight" yaml:"maxHeight" env:"TILING_MAX_HEIGHT" default:"4320"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `json:"level" yaml:"level" env:"LOG_LEVEL" default:"info"`
	File  string `json:"file" yaml:"file" env:"LOG_FILE" default:""`
}

// Defaults returns the built-in configuration
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			AllowedOrigins:  []string{},
			MaxConnections:  100,
			MaxMessageBytes: 64 << 20,
		},
		Tiling: TilingConfig{
			Layout:    "intely",
			Op:        "detile",
			Walker:    "opti",
			Workers:   1,
			MaxWidth:  7680,
			MaxHeight: 4320,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from environment variables with defaults
func Load() (*Config, error) {
	return LoadWithOverrides(LoadOptions{})
}

// LoadWithOverrides loads configuration with command-line overrides.
// Values are layered: defaults, then the YAML file, then environment
// variables, then the overrides.
func LoadWithOverrides(opts LoadOptions) (*Config, error) {
	config := Defaults()

	file := getOverrideOrEnv(opts.ConfigFile, ConfigFileEnv, "")
	if file != "" {
		if err := config.loadFile(file); err != nil {
			return nil, err
		}
		logging.Debug("config: loaded %s", file)
	}

	// Server config
	config.Server.Host = getOverrideOrEnv(opts.Host, "SERVER_HOST", config.Server.Host)
	config.Server.Port = getOverrideOrEnv(opts.Port, "SERVER_PORT", config.Server.Port)
	config.Server.ReadTimeout = getDurationWithDefault("SERVER_READ_TIMEOUT", config.Server.ReadTimeout)
	config.Server.WriteTimeout = getDurationWithDefault("SERVER_WRITE_TIMEOUT", config.Server.WriteTimeout)
	config.Server.IdleTimeout = getDurationWithDefault("SERVER_IDLE_TIMEOUT", config.Server.IdleTimeout)
	config.Server.AllowedOrigins = getStringSliceWithDefault("ALLOWED_ORIGINS", config.Server.AllowedOrigins)
	config.Server.MaxConnections = getIntWithDefault("MAX_CONNECTIONS", config.Server.MaxConnections)
	config.Server.MaxMessageBytes = getIntWithDefault("MAX_MESSAGE_BYTES", config.Server.MaxMessageBytes)

	// Tiling config
	config.Tiling.Layout = getOverrideOrEnv(opts.Layout, "TILING_LAYOUT", config.Tiling.Layout)
	config.Tiling.Op = getOverrideOrEnv(opts.Op, "TILING_OP", config.Tiling.Op)
	config.Tiling.Walker = getOverrideOrEnv(opts.Walker, "TILING_WALKER", config.Tiling.Walker)
	config.Tiling.Auto = getBoolWithDefault("TILING_AUTO", config.Tiling.Auto)
	config.Tiling.Workers = getIntWithDefault("TILING_WORKERS", config.Tiling.Workers)
	if opts.Workers > 0 {
		config.Tiling.Workers = opts.Workers
	}
	config.Tiling.MaxWidth = getIntWithDefault("TILING_MAX_WIDTH", config.Tiling.MaxWidth)
	config.Tiling.MaxHeight = getIntWithDefault("TILING_MAX_HEIGHT", config.Tiling.MaxHeight)

	// Logging config
	config.Logging.Level = getOverrideOrEnv(opts.LogLevel, "LOG_LEVEL", config.Logging.Level)
	config.Logging.File = getEnvWithDefault("LOG_FILE", config.Logging.File)

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Store the configuration globally so other packages can access it
	configMutex.Lock()
	globalConfig = config
	configMutex.Unlock()

	return config, nil
}

// loadFile overlays the YAML file at path on c. Keys missing from the file
// keep their current values.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// GetGlobalConfig returns the globally stored configuration
// This should be used by packages that need access to the configuration
// loaded by the server with command-line overrides
func GetGlobalConfig() *Config {
	configMutex.Lock()
	defer configMutex.Unlock()
	return globalConfig
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}

	if port, err := strconv.Atoi(c.Server.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid server port: %s", c.Server.Port)
	}

	if c.Server.MaxConnections <= 0 {
		return fmt.Errorf("max connections must be positive")
	}

	if c.Server.MaxMessageBytes <= 0 {
		return fmt.Errorf("max message bytes must be positive")
	}

	// Validate tiling config
	if _, _, _, err := c.Tiling.Resolve(); err != nil {
		return err
	}

	if c.Tiling.Workers <= 0 {
		return fmt.Errorf("tiling workers must be positive")
	}

	if c.Tiling.MaxWidth <= 0 || c.Tiling.MaxHeight <= 0 {
		return fmt.Errorf("max dimensions must be positive")
	}

	// Validate logging config
	if _, ok := logging.ParseLevel(c.Logging.Level); !ok {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	return nil
}

// Resolve parses the layout, operation and walker names.
func (t TilingConfig) Resolve() (fbtile.Layout, fbtile.Op, fbtile.Walker, error) {
	layout, err := fbtile.ParseLayout(t.Layout)
	if err != nil {
		return layout, fbtile.OpNone, fbtile.WalkerOpti, fmt.Errorf("invalid tiling layout: %s", t.Layout)
	}
	op, err := fbtile.ParseOp(t.Op)
	if err != nil {
		return layout, op, fbtile.WalkerOpti, fmt.Errorf("invalid tiling op: %s", t.Op)
	}
	walker, err := fbtile.ParseWalker(t.Walker)
	if err != nil {
		return layout, op, walker, fmt.Errorf("invalid tiling walker: %s", t.Walker)
	}
	return layout, op, walker, nil
}

// Helper functions for environment variable parsing
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getStringSliceWithDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return splitString(value, ",")
	}
	return defaultValue
}

// getOverrideOrEnv returns command-line override value, env value, or default
func getOverrideOrEnv(override, envKey, defaultValue string) string {
	if override != "" {
		return override
	}
	return getEnvWithDefault(envKey, defaultValue)
}

func splitString(s, sep string) []string {
	if s == "" {
		return []string{}
	}

	var result []string
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
