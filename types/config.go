package types

// AppConfig represents the application configuration loaded from config file
type AppConfig struct {
	ListenAddr      string `yaml:"listenAddr"`      // address the transport server binds, e.g. "0.0.0.0:9021"
	Root            string `yaml:"root"`            // filesystem root all clients are sandboxed to
	Transport       string `yaml:"transport"`       // "tcp" (stream) or "udp" (datagram)
	IdleTimeoutSecs int    `yaml:"idleTimeoutSecs"` // datagram session eviction threshold
	AdminEnabled    bool   `yaml:"adminEnabled"`    // serve the local admin API
	AdminPort       int    `yaml:"adminPort"`       // admin API port (loopback only)
}

// Config holds runtime overrides from CLI flags.
type Config struct {
	Log             string
	UseConfigPath   string
	UseListenAddr   string
	UseRoot         string
	UseTransport    string
	UseIdleTimeout  int  // seconds, 0 means keep config value
	UseAdmin        bool // if true, enable the admin API regardless of config
	UseAdminPort    int
	SkipAdmin       bool // if true, never start the admin API
}
