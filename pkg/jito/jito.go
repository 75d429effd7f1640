// Package jito submits transaction bundles to the Jito Block Engine.
//
// A bundle is an ordered list of at most five signed transactions that the
// block engine forwards to the current leader to be executed all together or
// not at all. Each bundle must pay a tip to one of the tip accounts.
//
// For more information, see: https://github.com/jito-labs/jito-go-rpc
package jito

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	jitorpc "github.com/jito-labs/jito-go-rpc"
)

// Default Jito Block Engine endpoints
const (
	MainnetBlockEngine = "https://mainnet.block-engine.jito.wtf/api/v1"
	TestnetBlockEngine = "https://testnet.block-engine.jito.wtf/api/v1"
)

// MainnetBlockEngines contains all available Jito mainnet endpoints.
var MainnetBlockEngines = []string{
	"https://mainnet.block-engine.jito.wtf/api/v1",
	"https://amsterdam.mainnet.block-engine.jito.wtf/api/v1",
	"https://frankfurt.mainnet.block-engine.jito.wtf/api/v1",
	"https://ny.mainnet.block-engine.jito.wtf/api/v1",
	"https://tokyo.mainnet.block-engine.jito.wtf/api/v1",
}

// MainnetTipAccounts are the official tip accounts. They rarely change, so
// tips are sent to one of them without asking the block engine first.
var MainnetTipAccounts = []solana.PublicKey{
	solana.MustPublicKeyFromBase58("96gYZGLnJYVFmbjzopPSU6QiEV5fGqZNyN9nmNhvrZU5"),
	solana.MustPublicKeyFromBase58("HFqU5x63VTqvQss8hp11i4wVV8bD44PvwucfZ2bU7gRe"),
	solana.MustPublicKeyFromBase58("Cw8CFyM9FkoMi7K7Crf6HNQqf4uEMzpKw6QNghXLvLkY"),
	solana.MustPublicKeyFromBase58("ADaUMid9yfUytqMBgopwjb2DTLSokTSzL1zt6iGPaS49"),
	solana.MustPublicKeyFromBase58("DfXygSm4jCyNCybVYYK6DwvWqjKee8pbDmJGcLWNDXjh"),
	solana.MustPublicKeyFromBase58("ADuUkR4vqLUMWXxW9gh6D6L8pMSawimctcNZ5pGwDcEt"),
	solana.MustPublicKeyFromBase58("DttWaMuVvTiduZRnguLF7jNxTgiMBZ1hyAumKUiL2KRL"),
	solana.MustPublicKeyFromBase58("3AVi9Tg9Uo68tJfuvoKvqKNWKkC5wPdSSdeBnizKZ6jT"),
}

// RandomTipAccount picks one of MainnetTipAccounts.
func RandomTipAccount() solana.PublicKey {
	return MainnetTipAccounts[rand.Intn(len(MainnetTipAccounts))]
}

// Relay failure kinds. SendBundle wraps every error in exactly one of these.
var (
	ErrLeaderUnavailable = errors.New("no connected leader up soon")
	ErrRateLimited       = errors.New("block engine rate limited")
	ErrRejected          = errors.New("bundle rejected by block engine")
	ErrTransport         = errors.New("block engine unreachable")
)

// Client talks to one or more block engines. Requests go round robin, and a
// rate limited request is retried on the next endpoint.
type Client struct {
	endpoints []string
	uuid      string
	next      atomic.Uint32
	tries     uint
	delay     time.Duration
}

// NewClient targets a single block engine; "" means MainnetBlockEngine.
// uuid may be empty.
func NewClient(endpoint string, uuid string) *Client {
	if endpoint == "" {
		endpoint = MainnetBlockEngine
	}
	return &Client{endpoints: []string{endpoint}, uuid: uuid, tries: 3, delay: 200 * time.Millisecond}
}

// NewClientWithEndpoints spreads requests over endpoints, MainnetBlockEngines
// when none are given.
//
//	client := jito.NewClientWithEndpoints(jito.MainnetBlockEngines, "")
func NewClientWithEndpoints(endpoints []string, uuid string) *Client {
	if len(endpoints) == 0 {
		endpoints = MainnetBlockEngines
	}
	return &Client{endpoints: endpoints, uuid: uuid, tries: uint(len(endpoints) + 2), delay: 100 * time.Millisecond}
}

// WithRetries sets how many endpoints a rate limited request may try and the
// pause between them.
func (c *Client) WithRetries(tries int, delay time.Duration) *Client {
	c.tries = uint(max(tries, 1))
	c.delay = delay
	return c
}

func (c *Client) Endpoints() []string {
	return c.endpoints
}

func (c *Client) engine() *jitorpc.JitoJsonRpcClient {
	i := c.next.Add(1)
	return jitorpc.NewJitoJsonRpcClient(c.endpoints[int(i)%len(c.endpoints)], c.uuid)
}

// rotate runs op against successive endpoints until it succeeds or fails
// with anything other than ErrRateLimited.
func rotate[T any](ctx context.Context, c *Client, op func(*jitorpc.JitoJsonRpcClient) (T, error)) (T, error) {
	res, err := backoff.Retry(ctx, func() (T, error) {
		if err := ctx.Err(); err != nil {
			var zero T
			return zero, backoff.Permanent(fmt.Errorf("%w: %v", ErrTransport, err))
		}
		v, err := op(c.engine())
		if err == nil {
			return v, nil
		}
		err = classify(err)
		if !errors.Is(err, ErrRateLimited) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(c.delay)),
		backoff.WithMaxTries(c.tries),
	)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		if !errors.Is(err, ErrTransport) {
			err = fmt.Errorf("%w: %v", ErrTransport, err)
		}
	}
	return res, err
}

// SendBundle submits txs as one bundle and returns its id. Every error wraps
// exactly one of the relay failure kinds.
func (c *Client) SendBundle(ctx context.Context, txs []*solana.Transaction) (string, error) {
	if len(txs) == 0 {
		return "", fmt.Errorf("%w: empty bundle", ErrRejected)
	}

	encoded := make([]string, len(txs))
	for i, tx := range txs {
		raw, err := tx.MarshalBinary()
		if err != nil {
			return "", fmt.Errorf("%w: encode transaction %d: %v", ErrRejected, i, err)
		}
		encoded[i] = base64.StdEncoding.EncodeToString(raw)
	}

	resp, err := rotate(ctx, c, func(engine *jitorpc.JitoJsonRpcClient) ([]byte, error) {
		raw, err := engine.SendBundle([][]string{encoded})
		return []byte(raw), err
	})
	if err != nil {
		return "", err
	}
	var id string
	if err := json.Unmarshal(resp, &id); err != nil {
		return "", fmt.Errorf("%w: unexpected response %s", ErrRejected, string(resp))
	}
	return id, nil
}

// GetBundleStatuses asks the block engine whether bundles landed.
func (c *Client) GetBundleStatuses(ctx context.Context, bundleIDs []string) (*jitorpc.BundleStatusResponse, error) {
	statuses, err := rotate(ctx, c, func(engine *jitorpc.JitoJsonRpcClient) (*jitorpc.BundleStatusResponse, error) {
		return engine.GetBundleStatuses(bundleIDs)
	})
	if err != nil {
		return nil, fmt.Errorf("get bundle statuses: %w", err)
	}
	return statuses, nil
}

// classify maps a raw block engine error onto one of the relay error kinds.
func classify(err error) error {
	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "no connected leader up soon"):
		return fmt.Errorf("%w: %s", ErrLeaderUnavailable, msg)
	case strings.Contains(lower, "rate limit"),
		strings.Contains(lower, "congested"),
		strings.Contains(lower, "429"):
		return fmt.Errorf("%w: %s", ErrRateLimited, msg)
	case isTransport(err, lower):
		return fmt.Errorf("%w: %s", ErrTransport, msg)
	default:
		return fmt.Errorf("%w: %s", ErrRejected, msg)
	}
}

func isTransport(err error, lower string) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	for _, s := range []string{"connection refused", "no such host", "i/o timeout", "eof", "tls handshake", "error sending request"} {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
