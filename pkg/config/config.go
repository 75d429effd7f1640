package config

import (
	"fmt"
	"io"
	"strings"
	"time"

	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
)

// Network names the cluster the launch runs against.
type Network string

const (
	NetworkMainnet  Network = "mainnet"
	NetworkDevnet   Network = "devnet"
	NetworkTestnet  Network = "testnet"
	NetworkLocalnet Network = "localnet"
	// NetworkCustom means RPCURL was given explicitly.
	NetworkCustom Network = "custom"
)

var clusterURLs = map[Network]string{
	NetworkMainnet:  solanarpc.MainNetBeta_RPC,
	NetworkDevnet:   solanarpc.DevNet_RPC,
	NetworkTestnet:  solanarpc.TestNet_RPC,
	NetworkLocalnet: solanarpc.LocalNet_RPC,
}

// ParseNetwork accepts a cluster name; "" and "mainnet-beta" mean mainnet.
func ParseNetwork(s string) (Network, error) {
	switch n := Network(strings.ToLower(strings.TrimSpace(s))); n {
	case "", "mainnet-beta":
		return NetworkMainnet, nil
	case NetworkMainnet, NetworkDevnet, NetworkTestnet, NetworkLocalnet, NetworkCustom:
		return n, nil
	default:
		return "", fmt.Errorf("unknown network %q", s)
	}
}

// DefaultRPCURL is the public endpoint of a known cluster, or "".
func DefaultRPCURL(network Network) string {
	return clusterURLs[network]
}

// RetryConfig controls RPC retry behavior.
type RetryConfig struct {
	Enabled        bool
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Jitter         bool
}

// RateLimitConfig throttles outbound RPC calls. RPS <= 0 disables it.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// RPCConfig is everything the RPC client needs.
type RPCConfig struct {
	Network    Network
	RPCURL     string
	Commitment string
	Timeout    time.Duration
	Retry      RetryConfig
	RateLimit  RateLimitConfig
	Logger     zerolog.Logger
}

// DefaultRPCConfig targets public mainnet. Lookup tables are only usable once
// their creation slot is finalized, so finalized is the default commitment.
func DefaultRPCConfig() RPCConfig {
	return RPCConfig{
		Network:    NetworkMainnet,
		RPCURL:     DefaultRPCURL(NetworkMainnet),
		Commitment: string(solanarpc.CommitmentFinalized),
		Timeout:    20 * time.Second,
		Retry: RetryConfig{
			Enabled:        true,
			MaxAttempts:    3,
			InitialBackoff: 150 * time.Millisecond,
			MaxBackoff:     2 * time.Second,
			Jitter:         true,
		},
		RateLimit: RateLimitConfig{RPS: 8, Burst: 16},
		Logger:    zerolog.New(io.Discard),
	}
}

// ResolveRPCURL prefers the explicit URL over the cluster default.
func (c RPCConfig) ResolveRPCURL() string {
	if c.RPCURL != "" {
		return c.RPCURL
	}
	return DefaultRPCURL(c.Network)
}

// Validate checks the endpoint and commitment before any client is built.
func (c RPCConfig) Validate() error {
	if c.ResolveRPCURL() == "" {
		return fmt.Errorf("no rpc url for network %q", c.Network)
	}
	switch solanarpc.CommitmentType(c.Commitment) {
	case solanarpc.CommitmentProcessed, solanarpc.CommitmentConfirmed, solanarpc.CommitmentFinalized:
	default:
		return fmt.Errorf("commitment must be processed, confirmed or finalized, got %q", c.Commitment)
	}
	if c.Retry.Enabled && c.Retry.MaxBackoff > 0 && c.Retry.MaxBackoff < c.Retry.InitialBackoff {
		return fmt.Errorf("retry max backoff %s is below initial backoff %s", c.Retry.MaxBackoff, c.Retry.InitialBackoff)
	}
	return nil
}
