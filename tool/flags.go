package tool

import (
	"flag"

	"github.com/shellbox-go/shellbox/types"
)

// SetFlags parses CLI flags and returns the override config.
func SetFlags() types.Config {
	var cfg types.Config
	flag.StringVar(&cfg.Log, "log", "", "log mode: dev|prod|none")
	flag.StringVar(&cfg.UseConfigPath, "useConfigPath", "", "override config file path")
	flag.StringVar(&cfg.UseListenAddr, "addr", "", "address to bind the transport server, e.g. 0.0.0.0:9021")
	flag.StringVar(&cfg.UseRoot, "root", "", "filesystem root directory served to clients")
	flag.StringVar(&cfg.UseTransport, "transport", "", "transport to serve: tcp|udp")
	flag.IntVar(&cfg.UseIdleTimeout, "idleTimeout", 0, "datagram session idle eviction threshold in seconds")
	flag.BoolVar(&cfg.UseAdmin, "admin", false, "enable the local admin API")
	flag.IntVar(&cfg.UseAdminPort, "adminPort", 0, "override admin API port")
	flag.BoolVar(&cfg.SkipAdmin, "skipAdmin", false, "never start the admin API, even if enabled in config")
	flag.Parse()
	return cfg
}
