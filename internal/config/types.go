package config

// Config is the top-level epub-reader configuration, corresponding to
// .epub-reader.yml.
type Config struct {
	// ServerURL is the base URL of the epub-translator server.
	ServerURL string `yaml:"server_url" koanf:"server_url"`
	// TargetLanguage preselects the language used for translation
	// requests. Empty means the user picks one per run.
	TargetLanguage string `yaml:"target_language" koanf:"target_language"`
	// SectionLimit caps the section listing request.
	SectionLimit int `yaml:"section_limit" koanf:"section_limit"`
	// PollIntervalMS is the status-poll period in milliseconds.
	PollIntervalMS int `yaml:"poll_interval_ms" koanf:"poll_interval_ms"`
	// ReconnectBaseDelayMS is multiplied by the attempt count between
	// push-channel reconnection attempts.
	ReconnectBaseDelayMS int `yaml:"reconnect_base_delay_ms" koanf:"reconnect_base_delay_ms"`
	// MaxReconnectAttempts bounds consecutive failed reconnections;
	// past it the connection stays down until the next run.
	MaxReconnectAttempts int `yaml:"max_reconnect_attempts" koanf:"max_reconnect_attempts"`
	// LogBufferSize bounds the in-memory log panel.
	LogBufferSize int `yaml:"log_buffer_size" koanf:"log_buffer_size"`
	// ViewerPort is the local port used by the serve command.
	ViewerPort int `yaml:"viewer_port" koanf:"viewer_port"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ServerURL:            "http://localhost:8080",
		SectionLimit:         50,
		PollIntervalMS:       2000,
		ReconnectBaseDelayMS: 3000,
		MaxReconnectAttempts: 5,
		LogBufferSize:        1000,
		ViewerPort:           8091,
	}
}
