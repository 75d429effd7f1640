// Package bundle hands signed transactions to the block engine relay and
// reports what the relay said about them.
//
// Submission is fire-and-forget: an Accepted outcome means the relay took the
// bundle, not that it landed.
package bundle

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"github.com/ninja0404/pump-bundler/pkg/constants"
	"github.com/ninja0404/pump-bundler/pkg/jito"
	"github.com/ninja0404/pump-bundler/pkg/types"
)

// Outcome is the relay's verdict on one bundle.
type Outcome int

const (
	Accepted Outcome = iota
	// RejectedTransient covers refusals that may clear on their own, such as
	// no leader being scheduled soon or rate limiting.
	RejectedTransient
	RejectedPermanent
	TransportError
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case RejectedTransient:
		return "rejected (transient)"
	case RejectedPermanent:
		return "rejected"
	case TransportError:
		return "transport error"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result of one submission. Err is nil exactly when Outcome is Accepted.
type Result struct {
	Outcome  Outcome
	BundleID string
	Err      error
}

// Sender is the relay surface; *jito.Client satisfies it.
type Sender interface {
	SendBundle(ctx context.Context, txs []*solana.Transaction) (string, error)
}

// Submitter is what the transaction builders depend on.
type Submitter interface {
	SubmitAll(ctx context.Context, bundles [][]*solana.Transaction) ([]Result, error)
}

// Assembler submits bundles through a Sender.
type Assembler struct {
	sender Sender
	log    zerolog.Logger
}

// New returns an Assembler over sender.
func New(sender Sender, log zerolog.Logger) *Assembler {
	return &Assembler{sender: sender, log: log}
}

// Submit sends txs as one bundle. A bundle that is empty or longer than the
// relay allows is a fatal error, not an outcome.
func (a *Assembler) Submit(ctx context.Context, txs []*solana.Transaction) (Result, error) {
	if len(txs) == 0 {
		return Result{}, types.Fatal("submit bundle", types.ErrEmptyBundle)
	}
	if len(txs) > constants.MaxBundleTransactions {
		return Result{}, types.Fatal("submit bundle",
			fmt.Errorf("%w: %d transactions", types.ErrBundleTooLarge, len(txs)))
	}

	id, err := a.sender.SendBundle(ctx, txs)
	if err != nil {
		res := Result{Outcome: outcomeOf(err), Err: err}
		a.log.Warn().Err(err).Str("outcome", res.Outcome.String()).Int("txs", len(txs)).Msg("bundle not accepted")
		return res, nil
	}
	a.log.Info().Str("bundle_id", id).Int("txs", len(txs)).Msg("bundle accepted")
	return Result{Outcome: Accepted, BundleID: id}, nil
}

// SubmitAll submits bundles in order and stops at the first one the relay
// does not accept. The returned results cover every bundle attempted; the
// error describes the one that stopped the run.
func (a *Assembler) SubmitAll(ctx context.Context, bundles [][]*solana.Transaction) ([]Result, error) {
	results := make([]Result, 0, len(bundles))
	for i, txs := range bundles {
		res, err := a.Submit(ctx, txs)
		if err != nil {
			return results, err
		}
		results = append(results, res)
		if res.Outcome != Accepted {
			return results, fmt.Errorf("bundle %d/%d %s: %w", i+1, len(bundles), res.Outcome, res.Err)
		}
	}
	return results, nil
}

func outcomeOf(err error) Outcome {
	switch {
	case errors.Is(err, jito.ErrLeaderUnavailable), errors.Is(err, jito.ErrRateLimited):
		return RejectedTransient
	case errors.Is(err, jito.ErrTransport):
		return TransportError
	default:
		return RejectedPermanent
	}
}
