package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. PUMPBUNDLER_RPC_URL.
const EnvPrefix = "PUMPBUNDLER"

const (
	DefaultKeypairsDir   = "keypairs"
	DefaultPoolInfoFile  = "keyInfo.json"
	DefaultWalletCount   = 24
	DefaultSlippageBps   = 1000
	DefaultVanitySuffix  = "pump"
	DefaultVanityTimeout = 10 * time.Minute
)

// LaunchConfig locates the on-disk launch state and the operator keys.
type LaunchConfig struct {
	DataDir       string        `mapstructure:"data_dir"`
	KeypairsDir   string        `mapstructure:"keypairs_dir"`
	PoolInfoFile  string        `mapstructure:"pool_info_file"`
	Wallets       int           `mapstructure:"wallets"`
	WalletKeypair string        `mapstructure:"wallet_keypair"`
	PayerKeypair  string        `mapstructure:"payer_keypair"`
	SlippageBps   uint64        `mapstructure:"slippage_bps"`
	VanitySuffix  string        `mapstructure:"vanity_suffix"`
	VanityTimeout time.Duration `mapstructure:"vanity_timeout"`
}

// KeypairsPath resolves the wallet directory against DataDir.
func (c LaunchConfig) KeypairsPath() string {
	return resolve(c.DataDir, c.KeypairsDir)
}

// PoolInfoPath resolves the metadata record against DataDir.
func (c LaunchConfig) PoolInfoPath() string {
	return resolve(c.DataDir, c.PoolInfoFile)
}

func resolve(dir, name string) string {
	if filepath.IsAbs(name) || dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}

// JitoConfig selects block engine endpoints.
type JitoConfig struct {
	Endpoints []string `mapstructure:"endpoints"`
	UUID      string   `mapstructure:"uuid"`
}

// Config is the file/env view of every setting the CLI needs.
type Config struct {
	Network    string       `mapstructure:"network"`
	RPCURL     string       `mapstructure:"rpc_url"`
	Commitment string       `mapstructure:"commitment"`
	LogLevel   string       `mapstructure:"log_level"`
	Launch     LaunchConfig `mapstructure:"launch"`
	Jito       JitoConfig   `mapstructure:"jito"`
}

func setDefaults(v *viper.Viper) {
	defaults := map[string]interface{}{
		"network":               string(NetworkMainnet),
		"rpc_url":               "",
		"commitment":            "finalized",
		"log_level":             "info",
		"launch.data_dir":       ".",
		"launch.keypairs_dir":   DefaultKeypairsDir,
		"launch.pool_info_file": DefaultPoolInfoFile,
		"launch.wallets":        DefaultWalletCount,
		"launch.wallet_keypair": "",
		"launch.payer_keypair":  "",
		"launch.slippage_bps":   DefaultSlippageBps,
		"launch.vanity_suffix":  DefaultVanitySuffix,
		"launch.vanity_timeout": DefaultVanityTimeout,
		"jito.endpoints":        []string{},
		"jito.uuid":             "",
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// Load reads an optional config file (empty path skips it) and applies
// PUMPBUNDLER_* environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, cfg.Validate()
}

// Validate rejects settings the launch flow cannot work with.
func (c *Config) Validate() error {
	if c.Launch.Wallets <= 0 {
		return errors.New("launch.wallets must be greater than 0")
	}
	if c.Launch.SlippageBps > 10000 {
		return errors.New("launch.slippage_bps must be <= 10000")
	}
	if c.Launch.KeypairsDir == "" || c.Launch.PoolInfoFile == "" {
		return errors.New("launch.keypairs_dir and launch.pool_info_file are required")
	}
	if _, err := ParseNetwork(c.Network); err != nil {
		return err
	}
	return c.RPC().Validate()
}

// RPC maps the file settings onto the RPC client defaults.
func (c *Config) RPC() RPCConfig {
	out := DefaultRPCConfig()
	if n, err := ParseNetwork(c.Network); err == nil {
		out.Network = n
		out.RPCURL = DefaultRPCURL(n)
	}
	if c.RPCURL != "" {
		out.RPCURL = c.RPCURL
		out.Network = NetworkCustom
	}
	if c.Commitment != "" {
		out.Commitment = c.Commitment
	}
	return out
}
