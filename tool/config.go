package tool

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/shellbox-go/shellbox/types"
)

var (
	ConfigPath    = "config.yaml" // be aware that it can be changed, default to ./config.yaml
	CurrentConfig types.AppConfig
)

func defaultConfig() types.AppConfig {
	return types.AppConfig{
		ListenAddr:      "0.0.0.0:9021",
		Root:            ".",
		Transport:       "tcp",
		IdleTimeoutSecs: 300,
		AdminEnabled:    false,
		AdminPort:       9022,
	}
}

// GetCurrentConfig returns the config loaded by the last LoadConfig call.
func GetCurrentConfig() types.AppConfig {
	return CurrentConfig
}

// LoadConfig reads the yaml config at path, creating it with defaults when it
// does not exist. Flag overrides are applied by the caller, not here.
func LoadConfig(path string) (types.AppConfig, error) {
	if path == "" {
		path = ConfigPath
	}
	ConfigPath = path

	cfg := defaultConfig()

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			if writeErr := writeDefaultConfig(path, cfg); writeErr != nil {
				return cfg, fmt.Errorf("config file not found, and failed to generate default config: %v", writeErr)
			}
			DefaultLogger.Infof("Created new config file at %s", path)
			CurrentConfig = cfg
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %v", err)
	}
	if info.IsDir() {
		return cfg, fmt.Errorf("config file path is a directory: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %v", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %v", err)
	}
	if cfg.IdleTimeoutSecs <= 0 {
		cfg.IdleTimeoutSecs = 300
	}
	CurrentConfig = cfg
	return cfg, nil
}

func writeDefaultConfig(path string, cfg types.AppConfig) error {
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
