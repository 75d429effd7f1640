package bundle

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninja0404/pump-bundler/pkg/jito"
	"github.com/ninja0404/pump-bundler/pkg/types"
)

type fakeSender struct {
	errs  []error
	calls int
	sizes []int
}

func (f *fakeSender) SendBundle(_ context.Context, txs []*solana.Transaction) (string, error) {
	f.sizes = append(f.sizes, len(txs))
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	return fmt.Sprintf("bundle-%d", i), nil
}

func txs(n int) []*solana.Transaction {
	out := make([]*solana.Transaction, n)
	for i := range out {
		out[i] = &solana.Transaction{}
	}
	return out
}

func TestSubmitOutcomes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Outcome
	}{
		{"accepted", nil, Accepted},
		{"leader", fmt.Errorf("%w: dropped", jito.ErrLeaderUnavailable), RejectedTransient},
		{"rate limited", fmt.Errorf("send bundle failed after 3 attempts: %w", jito.ErrRateLimited), RejectedTransient},
		{"transport", fmt.Errorf("%w: eof", jito.ErrTransport), TransportError},
		{"rejected", fmt.Errorf("%w: bad tip", jito.ErrRejected), RejectedPermanent},
		{"unclassified", errors.New("marshal transaction: missing signature"), RejectedPermanent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(&fakeSender{errs: []error{tt.err}}, zerolog.Nop())
			res, err := a.Submit(context.Background(), txs(2))
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Outcome)
			if tt.want == Accepted {
				assert.Equal(t, "bundle-0", res.BundleID)
				assert.NoError(t, res.Err)
			} else {
				assert.Empty(t, res.BundleID)
				assert.ErrorIs(t, res.Err, tt.err)
			}
		})
	}
}

func TestSubmitRejectsBadSizes(t *testing.T) {
	sender := &fakeSender{}
	a := New(sender, zerolog.Nop())

	_, err := a.Submit(context.Background(), nil)
	assert.True(t, types.IsFatal(err))
	assert.ErrorIs(t, err, types.ErrEmptyBundle)

	_, err = a.Submit(context.Background(), txs(6))
	assert.True(t, types.IsFatal(err))
	assert.ErrorIs(t, err, types.ErrBundleTooLarge)

	assert.Zero(t, sender.calls)
}

func TestSubmitAllStopsAtFirstFailure(t *testing.T) {
	sender := &fakeSender{errs: []error{nil, fmt.Errorf("%w: busy", jito.ErrLeaderUnavailable), nil}}
	a := New(sender, zerolog.Nop())

	results, err := a.SubmitAll(context.Background(), [][]*solana.Transaction{txs(5), txs(5), txs(1)})
	require.Error(t, err)
	assert.ErrorIs(t, err, jito.ErrLeaderUnavailable)
	assert.False(t, types.IsFatal(err))
	require.Len(t, results, 2)
	assert.Equal(t, Accepted, results[0].Outcome)
	assert.Equal(t, RejectedTransient, results[1].Outcome)
	assert.Equal(t, []int{5, 5}, sender.sizes)
}

func TestSubmitAllAccepted(t *testing.T) {
	sender := &fakeSender{}
	results, err := New(sender, zerolog.Nop()).SubmitAll(context.Background(), [][]*solana.Transaction{txs(3), txs(1)})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "bundle-1", results[1].BundleID)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "accepted", Accepted.String())
	assert.Equal(t, "transport error", TransportError.String())
	assert.Equal(t, "outcome(9)", Outcome(9).String())
}
