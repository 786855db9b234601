package monitor

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultSocket = "/var/run/sntpmond.sock"

const defaultInterval = 64 * time.Second
const defaultTimeout = 1 * time.Second

// Duration parses YAML scalars like "64s" or "1m30s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

type Config struct {
	Servers  []string `yaml:"servers"`
	Port     int      `yaml:"port"`
	Interval Duration `yaml:"interval"`
	Timeout  Duration `yaml:"timeout"`
	Socket   string   `yaml:"socket"`
}

// ParseConfig reads the monitor configuration file and fills in defaults
// for everything but the server list, which is required.
func ParseConfig(path string) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	config := Config{}
	if err := yaml.Unmarshal(contents, &config); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if len(config.Servers) == 0 {
		return Config{}, fmt.Errorf("config %s: no servers listed", path)
	}
	if config.Interval <= 0 {
		config.Interval = Duration(defaultInterval)
	}
	if config.Timeout <= 0 {
		config.Timeout = Duration(defaultTimeout)
	}
	if config.Socket == "" {
		config.Socket = DefaultSocket
	}

	return config, nil
}
