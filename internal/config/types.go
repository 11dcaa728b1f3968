package config

import "time"

// Config represents the main configuration structure
type Config struct {
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Detection   DetectionConfig   `yaml:"detection" mapstructure:"detection"`
	Upload      UploadConfig      `yaml:"upload" mapstructure:"upload"`
	Database    DatabaseConfig    `yaml:"database" mapstructure:"database"`
	ObjectStore ObjectStoreConfig `yaml:"object_store" mapstructure:"object_store"`
	History     HistoryConfig     `yaml:"history" mapstructure:"history"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit" mapstructure:"rate_limit"`
	Logging     LoggingConfig     `yaml:"logging" mapstructure:"logging"`
	WebSocket   WebSocketConfig   `yaml:"websocket" mapstructure:"websocket"`
	Tracing     TracingConfig     `yaml:"tracing" mapstructure:"tracing"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// DetectionConfig selects which detectors are active
type DetectionConfig struct {
	Detectors []string `yaml:"detectors" mapstructure:"detectors"`
}

// UploadConfig controls how uploaded files are spooled
type UploadConfig struct {
	TempDir  string `yaml:"temp_dir" mapstructure:"temp_dir"`
	MaxBytes int64  `yaml:"max_bytes" mapstructure:"max_bytes"`
}

// DatabaseConfig controls live database scans
type DatabaseConfig struct {
	Driver         string        `yaml:"driver" mapstructure:"driver"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout"`
}

// ObjectStoreConfig controls bucket scans
type ObjectStoreConfig struct {
	DefaultRegion string `yaml:"default_region" mapstructure:"default_region"`
	Endpoint      string `yaml:"endpoint" mapstructure:"endpoint"`
}

// HistoryConfig selects and configures the scan history backend
type HistoryConfig struct {
	Backend      string `yaml:"backend" mapstructure:"backend"` // memory, postgres or redis
	DatabaseURL  string `yaml:"database_url" mapstructure:"database_url"`
	RedisURL     string `yaml:"redis_url" mapstructure:"redis_url"`
	KeyPrefix    string `yaml:"key_prefix" mapstructure:"key_prefix"`
	RecentLimit  int    `yaml:"recent_limit" mapstructure:"recent_limit"`
	MaxRecords   int    `yaml:"max_records" mapstructure:"max_records"`
	MaxOpenConns int    `yaml:"max_open_conns" mapstructure:"max_open_conns"`
}

// RateLimitConfig contains per-client limits for scan endpoints
type RateLimitConfig struct {
	Enabled        bool `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerMin int  `yaml:"requests_per_min" mapstructure:"requests_per_min"`
	Burst          int  `yaml:"burst" mapstructure:"burst"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
	File   struct {
		Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
		Path    string `yaml:"path" mapstructure:"path"`
	} `yaml:"file" mapstructure:"file"`
}

// WebSocketConfig contains live event configuration
type WebSocketConfig struct {
	Enabled              bool     `yaml:"enabled" mapstructure:"enabled"`
	Path                 string   `yaml:"path" mapstructure:"path"`
	AllowedOrigins       []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	BroadcastScans       bool     `yaml:"broadcast_scans" mapstructure:"broadcast_scans"`
	BroadcastConnections bool     `yaml:"broadcast_connections" mapstructure:"broadcast_connections"`
}

// TracingConfig names the service in emitted spans
type TracingConfig struct {
	ServiceName string `yaml:"service_name" mapstructure:"service_name"`
}

// GetDefaults returns a configuration with sensible defaults
func GetDefaults() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:         8000,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 5 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		Detection: DetectionConfig{
			Detectors: []string{"all"},
		},
		Upload: UploadConfig{
			TempDir:  "",
			MaxBytes: 512 << 20,
		},
		Database: DatabaseConfig{
			Driver:         "postgres",
			ConnectTimeout: 10 * time.Second,
		},
		ObjectStore: ObjectStoreConfig{
			DefaultRegion: "ap-south-1",
		},
		History: HistoryConfig{
			Backend:      "memory",
			KeyPrefix:    "dpdp:",
			RecentLimit:  10,
			MaxRecords:   1000,
			MaxOpenConns: 5,
		},
		RateLimit: RateLimitConfig{
			Enabled:        true,
			RequestsPerMin: 30,
			Burst:          5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		WebSocket: WebSocketConfig{
			Enabled:              true,
			Path:                 "/ws",
			AllowedOrigins:       []string{"*"},
			BroadcastScans:       true,
			BroadcastConnections: false,
		},
		Tracing: TracingConfig{
			ServiceName: "dpdp-scanner",
		},
	}
	cfg.Logging.File.Path = "logs/dpdp-scanner.log"

	return cfg
}
