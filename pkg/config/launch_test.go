package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "finalized", cfg.Commitment)
	assert.Equal(t, DefaultWalletCount, cfg.Launch.Wallets)
	assert.Equal(t, uint64(DefaultSlippageBps), cfg.Launch.SlippageBps)
	assert.Equal(t, DefaultVanityTimeout, cfg.Launch.VanityTimeout)
	assert.Equal(t, filepath.Join(".", "keypairs"), cfg.Launch.KeypairsPath())
	assert.Equal(t, DefaultRPCURL(NetworkMainnet), cfg.RPC().ResolveRPCURL())
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bundler.yaml")
	content := `
rpc_url: https://rpc.example.org
launch:
  data_dir: /var/launch
  wallets: 12
  vanity_timeout: 30s
jito:
  endpoints:
    - https://ny.mainnet.block-engine.jito.wtf/api/v1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("PUMPBUNDLER_LAUNCH_SLIPPAGE_BPS", "250")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Launch.Wallets)
	assert.Equal(t, uint64(250), cfg.Launch.SlippageBps)
	assert.Equal(t, 30*time.Second, cfg.Launch.VanityTimeout)
	assert.Equal(t, "/var/launch/keyInfo.json", cfg.Launch.PoolInfoPath())
	assert.Len(t, cfg.Jito.Endpoints, 1)

	rpcCfg := cfg.RPC()
	assert.Equal(t, NetworkCustom, rpcCfg.Network)
	assert.Equal(t, "https://rpc.example.org", rpcCfg.ResolveRPCURL())
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("PUMPBUNDLER_LAUNCH_WALLETS", "0")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadNetwork(t *testing.T) {
	t.Setenv("PUMPBUNDLER_NETWORK", "devnet")
	cfg, err := Load("")
	require.NoError(t, err)

	rpcCfg := cfg.RPC()
	assert.Equal(t, NetworkDevnet, rpcCfg.Network)
	assert.Equal(t, "https://api.devnet.solana.com", rpcCfg.ResolveRPCURL())
}

func TestLoadRejectsCustomNetworkWithoutURL(t *testing.T) {
	t.Setenv("PUMPBUNDLER_NETWORK", "custom")
	_, err := Load("")
	assert.ErrorContains(t, err, "no rpc url")
}
