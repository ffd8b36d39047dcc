package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
)

// Config holds the node configuration for dexd.
type Config struct {
	RPCAddress                string  `toml:"RPCAddress"`
	DataDir                   string  `toml:"DataDir"`
	NetworkName               string  `toml:"NetworkName"`
	Environment               string  `toml:"Environment"`
	FeeController             string  `toml:"FeeController"`
	RegistryAddress           string  `toml:"RegistryAddress"`
	OracleUpdatePeriodSeconds uint64  `toml:"OracleUpdatePeriodSeconds"`
	RPCRequestsPerMinute      float64 `toml:"RPCRequestsPerMinute"`
	RPCBurst                  int     `toml:"RPCBurst"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists. Unknown keys are rejected so that typos fail loudly.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s contains unknown key %q", path, undecoded[0].String())
	}

	cfg.applyDefaults()
	if _, err := cfg.FeeControllerAddress(); err != nil {
		return nil, err
	}
	if _, err := cfg.Registry(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.RPCAddress) == "" {
		c.RPCAddress = ":8080"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./dex-data"
	}
	if strings.TrimSpace(c.NetworkName) == "" {
		c.NetworkName = "dex-local"
	}
	if c.OracleUpdatePeriodSeconds == 0 {
		c.OracleUpdatePeriodSeconds = 1800
	}
	if c.RPCRequestsPerMinute <= 0 {
		c.RPCRequestsPerMinute = 600
	}
	if c.RPCBurst <= 0 {
		c.RPCBurst = 20
	}
}

// OracleUpdatePeriod returns the configured oracle throttle window.
func (c *Config) OracleUpdatePeriod() time.Duration {
	return time.Duration(c.OracleUpdatePeriodSeconds) * time.Second
}

// FeeControllerAddress parses the configured fee controller identity.
func (c *Config) FeeControllerAddress() (common.Address, error) {
	return parseAddress("FeeController", c.FeeController)
}

// Registry parses the configured registry identity.
func (c *Config) Registry() (common.Address, error) {
	return parseAddress("RegistryAddress", c.RegistryAddress)
}

func parseAddress(field, raw string) (common.Address, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("config: %s is not a valid address: %q", field, raw)
	}
	return common.HexToAddress(trimmed), nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		RPCAddress:  ":8080",
		DataDir:     "./dex-data",
		NetworkName: "dex-local",
	}
	cfg.applyDefaults()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return toml.NewEncoder(file).Encode(cfg)
}
