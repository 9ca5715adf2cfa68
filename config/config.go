package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"agentpay/core/genesis"
	"agentpay/crypto"
)

type Config struct {
	RPCAddress   string `toml:"RPCAddress"`
	DataDir      string `toml:"DataDir"`
	Env          string `toml:"Env"`
	LogFile      string `toml:"LogFile"`
	LogLevel     string `toml:"LogLevel"`
	AdminKeyFile string `toml:"AdminKeyFile"`
	// GenesisFile points at a JSON genesis spec. When empty the embedded
	// [Genesis] table is used.
	GenesisFile string `toml:"GenesisFile"`

	RPC       RPC                  `toml:"RPC"`
	RateLimit RateLimit            `toml:"RateLimit"`
	Telemetry Telemetry            `toml:"Telemetry"`
	Genesis   *genesis.GenesisSpec `toml:"Genesis"`
}

// Load loads the configuration from the given path. A default configuration
// with a freshly generated administrator key is written when the file does
// not exist.
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
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("config file %s: unknown keys %s", path, strings.Join(keys, ", "))
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// GenesisSpec resolves the genesis spec from GenesisFile or the embedded
// table.
func (c *Config) GenesisSpec() (*genesis.GenesisSpec, error) {
	if strings.TrimSpace(c.GenesisFile) != "" {
		return genesis.LoadGenesisSpec(c.GenesisFile)
	}
	if c.Genesis == nil {
		return nil, fmt.Errorf("no genesis configured")
	}
	if err := c.Genesis.Validate(); err != nil {
		return nil, err
	}
	return c.Genesis, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.RPCAddress) == "" {
		c.RPCAddress = ":8080"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./agentpay-data"
	}
	if strings.TrimSpace(c.Env) == "" {
		c.Env = "local"
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = "info"
	}
	c.RPC.applyDefaults()
	c.RateLimit.applyDefaults()
	c.Telemetry.applyDefaults()
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	keyPath := defaultAdminKeyPath(path)
	if err := crypto.SaveKeyFile(keyPath, key); err != nil {
		return nil, err
	}
	admin := key.PubKey().Address().String()

	cfg := &Config{
		RPCAddress:   ":8080",
		DataDir:      "./agentpay-data",
		Env:          "local",
		AdminKeyFile: keyPath,
		Genesis: &genesis.GenesisSpec{
			Admin:    admin,
			Operator: admin,
		},
	}
	cfg.applyDefaults()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultAdminKeyPath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "admin.key")
}
