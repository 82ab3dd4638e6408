package config

import "time"

// Config holds relay server configuration values.
type Config struct {
	// Addr is the TCP address of the line-protocol listener.
	Addr string `mapstructure:"addr" yaml:"addr"`
	// HTTPAddr enables the ops HTTP server (health, presence, audit, /ws) when non-empty.
	HTTPAddr string `mapstructure:"http_addr" yaml:"http_addr"`

	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout" yaml:"handshake_timeout"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`

	QueueSize          int    `mapstructure:"queue_size" yaml:"queue_size"`
	MaxLineBytes       int    `mapstructure:"max_line_bytes" yaml:"max_line_bytes"`
	RateLimitPerMinute int    `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`
	AdminName          string `mapstructure:"admin_name" yaml:"admin_name"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	// AuditDBPath enables the SQLite audit trail when non-empty.
	AuditDBPath string `mapstructure:"audit_db_path" yaml:"audit_db_path"`
	// PresenceSchedule is a cron spec for the periodic online-count report; empty disables it.
	PresenceSchedule string `mapstructure:"presence_schedule" yaml:"presence_schedule"`

	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":5555",
		HandshakeTimeout:  10 * time.Second,
		IdleTimeout:       300 * time.Second,
		WriteTimeout:      10 * time.Second,
		QueueSize:         64,
		MaxLineBytes:      64 * 1024,
		AdminName:         "admin",
		LogLevel:          "info",
		LogFormat:         "console",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.HTTPAddr != "" {
		c.HTTPAddr = other.HTTPAddr
	}
	if other.HandshakeTimeout != 0 {
		c.HandshakeTimeout = other.HandshakeTimeout
	}
	if other.IdleTimeout != 0 {
		c.IdleTimeout = other.IdleTimeout
	}
	if other.WriteTimeout != 0 {
		c.WriteTimeout = other.WriteTimeout
	}
	if other.QueueSize != 0 {
		c.QueueSize = other.QueueSize
	}
	if other.MaxLineBytes != 0 {
		c.MaxLineBytes = other.MaxLineBytes
	}
	if other.RateLimitPerMinute != 0 {
		c.RateLimitPerMinute = other.RateLimitPerMinute
	}
	if other.AdminName != "" {
		c.AdminName = other.AdminName
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.AuditDBPath != "" {
		c.AuditDBPath = other.AuditDBPath
	}
	if other.PresenceSchedule != "" {
		c.PresenceSchedule = other.PresenceSchedule
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
}
