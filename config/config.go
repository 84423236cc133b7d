/*
File Name:  config.go
Copyright:  vl1mesh contributors

Config is the YAML-backed runtime configuration, ported from the
teacher's Config.go: Load parses the named YAML file into a new Config,
falling back to an embedded default file when the named file is absent
or empty.
*/

package config

import (
	_ "embed" // required for embedding the default config file
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the settings needed to bring up a local VL1 endpoint.
type Config struct {
	LogFile string `yaml:"LogFile"`

	Listen        []string `yaml:"Listen"`        // IP:Port combinations to bind
	ListenWorkers int      `yaml:"ListenWorkers"` // count of goroutines processing inbound packets; not read by vl1demo, which runs one read loop

	PrivateKeyP521      string `yaml:"PrivateKeyP521"`      // hex-encoded P-521 private scalar
	PrivateKeyCurve25519 string `yaml:"PrivateKeyCurve25519"` // hex-encoded X25519 private scalar

	MTU int `yaml:"MTU"` // default link MTU; 0 means use the built-in default

	FIPSMode bool `yaml:"FIPSMode"` // adds 'F' to the HELLO flags string; cipher selection does not depend on it
	WimpMode bool `yaml:"WimpMode"` // low-power mode: adds 'w' to the HELLO flags string; nothing else reads it

	RootPeers []RootPeerSeed `yaml:"RootPeers"`
}

// RootPeerSeed is one bootstrap root entry from the config's seed list.
type RootPeerSeed struct {
	PublicKeyP521      string   `yaml:"PublicKeyP521"`
	PublicKeyCurve25519 string  `yaml:"PublicKeyCurve25519"`
	Address             []string `yaml:"Address"` // IP:Port
}

//go:embed "default.yaml"
var defaultConfig []byte

// Load reads the YAML configuration file at filename. If filename does
// not exist or is empty, the embedded default configuration is used
// instead.
func Load(filename string) (*Config, error) {
	var data []byte

	stats, err := os.Stat(filename)
	switch {
	case err != nil && os.IsNotExist(err):
		data = defaultConfig
	case err != nil:
		return nil, err
	case stats.Size() == 0:
		data = defaultConfig
	default:
		data, err = os.ReadFile(filename)
		if err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg back to filename in YAML form.
func Save(cfg *Config, filename string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}

// InitLog redirects the standard logger to the file named in cfg.LogFile,
// when set.
func InitLog(cfg *Config) error {
	if cfg.LogFile == "" {
		return nil
	}
	logFile, err := os.OpenFile(cfg.LogFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return err
	}
	log.SetOutput(logFile)
	return nil
}
