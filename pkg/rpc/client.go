package rpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	addresslookuptable "github.com/gagliardetto/solana-go/programs/address-lookup-table"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ninja0404/pump-bundler/pkg/config"
	"github.com/ninja0404/pump-bundler/pkg/types"
)

// maxMultipleAccounts is the getMultipleAccounts per-request key limit.
const maxMultipleAccounts = 100

// Client wraps solana-go rpc.Client with retry, timeout, and rate limiting.
type Client struct {
	raw     *solanarpc.Client
	cfg     config.RPCConfig
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewClient builds a configured Client.
func NewClient(cfg config.RPCConfig) *Client {
	endpoint := cfg.ResolveRPCURL()
	rpcClient := solanarpc.New(endpoint)

	var limiter *rate.Limiter
	if cfg.RateLimit.RPS > 0 {
		burst := cfg.RateLimit.Burst
		if burst == 0 {
			burst = int(cfg.RateLimit.RPS * 2)
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), burst)
	}

	log := cfg.Logger
	if log.GetLevel() == zerolog.NoLevel {
		log = zerolog.Nop()
	}

	return &Client{
		raw:     rpcClient,
		cfg:     cfg,
		limiter: limiter,
		log:     log,
	}
}

// GetLatestBlockhash fetches the latest blockhash at the configured commitment.
func (c *Client) GetLatestBlockhash(ctx context.Context) (*solanarpc.GetLatestBlockhashResult, error) {
	var out *solanarpc.GetLatestBlockhashResult
	err := c.call(ctx, "getLatestBlockhash", func(ctx context.Context) error {
		var err error
		out, err = c.raw.GetLatestBlockhash(ctx, solanarpc.CommitmentType(c.cfg.Commitment))
		return err
	})
	return out, err
}

// GetSlot returns the latest finalized slot, the anchor a new lookup table is derived from.
func (c *Client) GetSlot(ctx context.Context) (uint64, error) {
	var slot uint64
	err := c.call(ctx, "getSlot", func(ctx context.Context) error {
		var err error
		slot, err = c.raw.GetSlot(ctx, solanarpc.CommitmentFinalized)
		return err
	})
	return slot, err
}

// GetAddressLookupTable fetches and decodes a lookup table account.
// A missing account maps to types.ErrLookupTableNotFound.
func (c *Client) GetAddressLookupTable(ctx context.Context, table solana.PublicKey) (*addresslookuptable.AddressLookupTableState, error) {
	var state *addresslookuptable.AddressLookupTableState
	err := c.call(ctx, "getAddressLookupTable", func(ctx context.Context) error {
		var err error
		state, err = addresslookuptable.GetAddressLookupTable(ctx, c.raw, table)
		return err
	})
	if errors.Is(err, solanarpc.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", types.ErrLookupTableNotFound, table)
	}
	return state, err
}

// GetMultipleAccounts fetches accounts in request-sized batches. The result is
// index-aligned with addrs; missing accounts are nil.
func (c *Client) GetMultipleAccounts(ctx context.Context, addrs ...solana.PublicKey) ([]*solanarpc.Account, error) {
	out := make([]*solanarpc.Account, 0, len(addrs))
	for start := 0; start < len(addrs); start += maxMultipleAccounts {
		end := min(start+maxMultipleAccounts, len(addrs))
		batch := addrs[start:end]

		var res *solanarpc.GetMultipleAccountsResult
		err := c.call(ctx, "getMultipleAccounts", func(ctx context.Context) error {
			var err error
			res, err = c.raw.GetMultipleAccountsWithOpts(ctx, batch, &solanarpc.GetMultipleAccountsOpts{
				Commitment: solanarpc.CommitmentConfirmed,
			})
			return err
		})
		if err != nil {
			return nil, types.RPCError{Op: "getMultipleAccounts", Err: err}
		}
		if len(res.Value) != len(batch) {
			return nil, fmt.Errorf("getMultipleAccounts: got %d accounts for %d keys", len(res.Value), len(batch))
		}
		out = append(out, res.Value...)
	}
	return out, nil
}

// GetBalance returns the lamport balance of an account.
func (c *Client) GetBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	var lamports uint64
	err := c.call(ctx, "getBalance", func(ctx context.Context) error {
		res, err := c.raw.GetBalance(ctx, account, solanarpc.CommitmentConfirmed)
		if err != nil {
			return err
		}
		lamports = res.Value
		return nil
	})
	return lamports, err
}

// SimulateTransaction simulates a transaction for dry runs.
func (c *Client) SimulateTransaction(ctx context.Context, tx *solana.Transaction, opts *solanarpc.SimulateTransactionOpts) (*solanarpc.SimulateTransactionResponse, error) {
	var res *solanarpc.SimulateTransactionResponse
	err := c.call(ctx, "simulateTransaction", func(ctx context.Context) error {
		var err error
		res, err = c.raw.SimulateTransactionWithOpts(ctx, tx, opts)
		return err
	})
	return res, err
}

func (c *Client) call(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	if !c.cfg.Retry.Enabled {
		return fn(ctx)
	}

	tries := max(c.cfg.Retry.MaxAttempts, 1)
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := fn(ctx)
		if err != nil && !retryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(c.policy()),
		backoff.WithMaxTries(uint(tries)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			c.log.Debug().Str("op", op).Dur("backoff", wait).Err(err).Msg("rpc retry")
		}),
	)
	if err != nil && retryable(err) {
		return fmt.Errorf("%s failed after %d attempts: %w", op, tries, err)
	}
	return err
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.cfg.Timeout)
}

// policy doubles the wait from Retry.InitialBackoff up to Retry.MaxBackoff.
func (c *Client) policy() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.Multiplier = 2
	if c.cfg.Retry.InitialBackoff > 0 {
		b.InitialInterval = c.cfg.Retry.InitialBackoff
	}
	if c.cfg.Retry.MaxBackoff > 0 {
		b.MaxInterval = c.cfg.Retry.MaxBackoff
	}
	if !c.cfg.Retry.Jitter {
		b.RandomizationFactor = 0
	}
	b.Reset()
	return b
}

func retryable(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	// missing accounts are an answer, not a transport failure
	if errors.Is(err, solanarpc.ErrNotFound) {
		return false
	}
	return true
}
