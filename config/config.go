package config

import "fmt"

// Config represents the box coordination service's configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Timer      TimerConfig      `mapstructure:"timer"`
	Heartbeat  HeartbeatConfig  `mapstructure:"heartbeat"`
	Hub        HubConfig        `mapstructure:"hub"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Spectator  SpectatorConfig  `mapstructure:"spectator_token"`
	Command    CommandConfig    `mapstructure:"command"`
}

// ServerConfig configures the HTTP/WebSocket server.
type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	LogTheme       string   `mapstructure:"log_theme"`
}

// Server port constants
const (
	DefaultServerPort = 8877
)

// AuthConfig configures operator bearer-token verification.
type AuthConfig struct {
	JWTSecret     string `mapstructure:"jwt_secret"`     // HMAC secret for verifying operator tokens (auto-generated if empty)
	JWTIssuer     string `mapstructure:"jwt_issuer"`     // expected "iss" claim
	TokenLeewaySec int   `mapstructure:"token_leeway_sec"` // clock-skew leeway applied to exp/nbf checks
}

// TimerConfig configures the per-box timer engine (component A).
type TimerConfig struct {
	DefaultPresetSec int  `mapstructure:"default_preset_sec"`
	AllowNegative    bool `mapstructure:"allow_negative"`
	SyncToleranceSec int  `mapstructure:"sync_tolerance_sec"`
}

// HeartbeatConfig configures WebSocket ping/pong discipline (component E).
type HeartbeatConfig struct {
	PingIntervalSec int `mapstructure:"ping_interval_sec"`
	PongTimeoutSec  int `mapstructure:"pong_timeout_sec"`
}

// HubConfig configures fan-out behavior (component E, H).
type HubConfig struct {
	SubscriberQueueDepth int `mapstructure:"subscriber_queue_depth"`
}

// RateLimitConfig configures per-box command rate limits, one allowance for
// PROGRESS_UPDATE and one for every other command type (component C).
type RateLimitConfig struct {
	ProgressPerMin int `mapstructure:"progress_per_min"`
	OtherPerMin    int `mapstructure:"other_per_min"`
}

// SpectatorConfig configures public read-only token issuance (component H).
type SpectatorConfig struct {
	TTLSec int `mapstructure:"ttl_sec"`
}

// CommandConfig configures dispatcher-wide processing limits (component C).
type CommandConfig struct {
	ProcessingDeadlineMS int `mapstructure:"processing_deadline_ms"`
	WriteDeadlineSec     int `mapstructure:"write_deadline_sec"`
}

// File system constants
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)

// String returns a string representation of the config, safe to log.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Server: {Port: %d}, Timer: {DefaultPresetSec: %d}}",
		c.Server.Port, c.Timer.DefaultPresetSec)
}
