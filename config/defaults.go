package config

import "github.com/spf13/viper"

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.allowed_origins", []string{
		"http://localhost",
		"https://localhost",
		"http://127.0.0.1",
		"https://127.0.0.1",
	})
	v.SetDefault("server.log_theme", "everforest")

	v.SetDefault("auth.token_leeway_sec", 5)

	v.SetDefault("timer.default_preset_sec", 300) // 05:00
	v.SetDefault("timer.allow_negative", true)
	v.SetDefault("timer.sync_tolerance_sec", 2)

	v.SetDefault("heartbeat.ping_interval_sec", 30)
	v.SetDefault("heartbeat.pong_timeout_sec", 60)

	v.SetDefault("hub.subscriber_queue_depth", 64)

	v.SetDefault("rate_limit.progress_per_min", 120)
	v.SetDefault("rate_limit.other_per_min", 60)

	v.SetDefault("spectator_token.ttl_sec", 86400)

	v.SetDefault("command.processing_deadline_ms", 2000)
	v.SetDefault("command.write_deadline_sec", 5)
}

// BindSensitiveEnvVars explicitly binds sensitive configuration to environment variables
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("auth.jwt_secret", "BOXHUB_AUTH_JWT_SECRET")
}

// GetServerPort returns the configured server port, or DefaultServerPort if not configured.
func GetServerPort() int {
	cfg, err := Load()
	if err != nil || cfg.Server.Port == 0 {
		return DefaultServerPort
	}
	return cfg.Server.Port
}

// GetServerAllowedOrigins returns the allowed CORS/WebSocket origins, merging configured
// origins with the secure localhost defaults so local judge/operator tooling always works
// even if a deployment's config omits them.
func (c *Config) GetServerAllowedOrigins() []string {
	defaults := []string{
		"http://localhost",
		"https://localhost",
		"http://127.0.0.1",
		"https://127.0.0.1",
	}
	if len(c.Server.AllowedOrigins) == 0 {
		return defaults
	}
	originSet := make(map[string]bool)
	for _, origin := range defaults {
		originSet[origin] = true
	}
	for _, origin := range c.Server.AllowedOrigins {
		originSet[origin] = true
	}
	merged := make([]string, 0, len(originSet))
	for origin := range originSet {
		merged = append(merged, origin)
	}
	return merged
}

// GetServerLogTheme returns the log theme (default: everforest)
func (c *Config) GetServerLogTheme() string {
	if c.Server.LogTheme == "" {
		return "everforest"
	}
	return c.Server.LogTheme
}
