// Package vanity grinds keypairs whose base58 address carries a chosen
// prefix or suffix, such as pump.fun style mints ending in "pump".
package vanity

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// ErrInvalidPattern reports a pattern no address can ever match.
var ErrInvalidPattern = errors.New("invalid vanity pattern")

// Result represents a vanity address search result.
type Result struct {
	PrivateKey solana.PrivateKey
	PublicKey  solana.PublicKey
	Attempts   uint64
	Duration   time.Duration
}

// Options configures a search.
type Options struct {
	Prefix          string
	Suffix          string
	Workers         int           // default: NumCPU
	Timeout         time.Duration // 0 = until ctx is done
	CaseInsensitive bool
	// ProgressEvery logs the attempt count at this interval; 0 disables it.
	ProgressEvery time.Duration
	Logger        zerolog.Logger
}

// Validate rejects empty patterns and characters outside the base58 alphabet.
func (o Options) Validate() error {
	if o.Prefix == "" && o.Suffix == "" {
		return fmt.Errorf("%w: prefix or suffix is required", ErrInvalidPattern)
	}
	alphabet := base58Alphabet
	pattern := o.Prefix + o.Suffix
	if o.CaseInsensitive {
		alphabet = strings.ToLower(alphabet)
		pattern = strings.ToLower(pattern)
	}
	for _, r := range pattern {
		if !strings.ContainsRune(alphabet, r) {
			return fmt.Errorf("%w: %q is not a base58 character", ErrInvalidPattern, r)
		}
	}
	return nil
}

// Matches reports whether addr satisfies the pattern.
func (o Options) Matches(addr string) bool {
	prefix, suffix := o.Prefix, o.Suffix
	if o.CaseInsensitive {
		addr = strings.ToLower(addr)
		prefix = strings.ToLower(prefix)
		suffix = strings.ToLower(suffix)
	}
	return strings.HasPrefix(addr, prefix) && strings.HasSuffix(addr, suffix)
}

// Generate searches for a keypair matching opts on parallel workers.
//
// Example:
//
//	result, err := vanity.Generate(ctx, vanity.Options{Suffix: "pump", Timeout: 10 * time.Minute})
//	if err != nil {
//	    return err
//	}
//	log.Info().Str("mint", result.PublicKey.String()).Uint64("attempts", result.Attempts).Msg("mint found")
func Generate(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	searchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if opts.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		searchCtx, cancelTimeout = context.WithTimeout(searchCtx, opts.Timeout)
		defer cancelTimeout()
	}

	var (
		attempts atomic.Uint64
		once     sync.Once
		result   *Result
	)
	start := time.Now()

	g, gctx := errgroup.WithContext(searchCtx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for gctx.Err() == nil {
				key, err := solana.NewRandomPrivateKey()
				if err != nil {
					return fmt.Errorf("generate keypair: %w", err)
				}
				n := attempts.Add(1)
				pub := key.PublicKey()
				if !opts.Matches(pub.String()) {
					continue
				}
				once.Do(func() {
					result = &Result{PrivateKey: key, PublicKey: pub, Attempts: n, Duration: time.Since(start)}
					cancel()
				})
				return nil
			}
			return nil
		})
	}
	if opts.ProgressEvery > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(opts.ProgressEvery)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					opts.Logger.Info().Uint64("attempts", attempts.Load()).Dur("elapsed", time.Since(start)).Msg("grinding vanity address")
				}
			}
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if result != nil {
		return result, nil
	}
	if err := searchCtx.Err(); err != nil {
		return nil, fmt.Errorf("search cancelled after %d attempts: %w", attempts.Load(), err)
	}
	return nil, fmt.Errorf("search failed after %d attempts", attempts.Load())
}

// EstimateDifficulty estimates the average attempts needed for a pattern of
// the given length: each base58 character matches with probability 1/58.
func EstimateDifficulty(prefixLen, suffixLen int) uint64 {
	total := prefixLen + suffixLen
	result := uint64(1)
	for i := 0; i < total; i++ {
		result *= 58
	}
	return result
}
