package rpc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninja0404/pump-bundler/pkg/config"
)

func TestRetryable(t *testing.T) {
	assert.False(t, retryable(context.Canceled))
	assert.False(t, retryable(fmt.Errorf("wrap: %w", context.DeadlineExceeded)))
	assert.False(t, retryable(solanarpc.ErrNotFound))
	assert.True(t, retryable(errors.New("connection reset by peer")))
}

func TestPolicy(t *testing.T) {
	cfg := config.DefaultRPCConfig()
	cfg.Retry.Jitter = false
	b := NewClient(cfg).policy()

	assert.Equal(t, 150*time.Millisecond, b.NextBackOff())
	assert.Equal(t, 300*time.Millisecond, b.NextBackOff())
	for range 10 {
		b.NextBackOff()
	}
	assert.Equal(t, 2*time.Second, b.NextBackOff())
}

func TestCallRetriesTransientErrors(t *testing.T) {
	cfg := config.DefaultRPCConfig()
	cfg.RateLimit.RPS = 0
	cfg.Retry.MaxAttempts = 3
	cfg.Retry.InitialBackoff = time.Millisecond
	cfg.Retry.MaxBackoff = 2 * time.Millisecond
	c := NewClient(cfg)

	calls := 0
	err := c.call(context.Background(), "getSlot", func(context.Context) error {
		calls++
		return errors.New("connection reset by peer")
	})
	assert.ErrorContains(t, err, "getSlot failed after 3 attempts")
	assert.Equal(t, 3, calls)

	calls = 0
	err = c.call(context.Background(), "getSlot", func(context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("503")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCallStopsOnPermanentError(t *testing.T) {
	cfg := config.DefaultRPCConfig()
	cfg.RateLimit.RPS = 0
	c := NewClient(cfg)

	calls := 0
	err := c.call(context.Background(), "getAccountInfo", func(context.Context) error {
		calls++
		return solanarpc.ErrNotFound
	})
	assert.ErrorIs(t, err, solanarpc.ErrNotFound)
	assert.Equal(t, 1, calls)
}

func TestGetMultipleAccountsEmpty(t *testing.T) {
	c := NewClient(config.DefaultRPCConfig())
	out, err := c.GetMultipleAccounts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, out)
}

// TestGetSlotLive hits a real cluster; set PUMPBUNDLER_TEST_RPC_URL to run it.
func TestGetSlotLive(t *testing.T) {
	url := os.Getenv("PUMPBUNDLER_TEST_RPC_URL")
	if url == "" {
		t.Skip("PUMPBUNDLER_TEST_RPC_URL not set, skipping integration test")
	}
	cfg := config.DefaultRPCConfig()
	cfg.RPCURL = url
	c := NewClient(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	slot, err := c.GetSlot(ctx)
	require.NoError(t, err)
	assert.NotZero(t, slot)

	accounts, err := c.GetMultipleAccounts(ctx, solana.SystemProgramID)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}
