// Package sell sells a share of every launch wallet's tokens in as few
// bundled transactions as fit.
package sell

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/gagliardetto/solana-go"
	addresslookuptable "github.com/gagliardetto/solana-go/programs/address-lookup-table"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"

	"github.com/ninja0404/pump-bundler/pkg/autofill"
	"github.com/ninja0404/pump-bundler/pkg/bundle"
	"github.com/ninja0404/pump-bundler/pkg/poolinfo"
	"github.com/ninja0404/pump-bundler/pkg/quote"
	"github.com/ninja0404/pump-bundler/pkg/txbuilder"
	"github.com/ninja0404/pump-bundler/pkg/types"
	"github.com/ninja0404/pump-bundler/pkg/wallet"
)

// Chain is the RPC surface a Seller needs.
type Chain interface {
	txbuilder.Chain
	autofill.AccountFetcher
	GetAddressLookupTable(ctx context.Context, table solana.PublicKey) (*addresslookuptable.AddressLookupTableState, error)
}

// Config wires a Seller.
type Config struct {
	Chain   Chain
	Bundles bundle.Submitter
	Info    *poolinfo.Store
	// Payer pays fees and tips for every sell transaction.
	Payer   wallet.Signer
	Wallets []wallet.Signer
	Logger  zerolog.Logger
}

// Request is one sell run.
type Request struct {
	// Percent of each wallet's balance to sell, in (0, 100].
	Percent     float64
	SlippageBps uint64
	TipLamports uint64
	// DryRun simulates the signed transactions instead of submitting them.
	DryRun bool
}

// Validate checks the operator supplied values.
func (r Request) Validate() error {
	if err := types.ValidateSellPercent(r.Percent); err != nil {
		return err
	}
	return types.ValidateSlippage(r.SlippageBps)
}

// WalletSell is the planned sell of one wallet.
type WalletSell struct {
	Wallet      solana.PublicKey
	Balance     uint64
	Amount      uint64
	ExpectedOut uint64
	MinOut      uint64
}

// Report summarizes a run.
type Report struct {
	Mint         solana.PublicKey
	Sells        []WalletSell
	Transactions int
	Results      []bundle.Result
	Simulations  []*solanarpc.SimulateTransactionResult
}

// Seller sells launch wallet balances on pump.fun or the pump AMM.
type Seller struct {
	cfg Config
	tx  *txbuilder.Builder
	log zerolog.Logger
}

// New validates cfg and returns a Seller.
func New(cfg Config) (*Seller, error) {
	if cfg.Chain == nil {
		return nil, types.ErrNilRPC
	}
	if cfg.Payer == nil {
		return nil, types.ErrNilFeePayer
	}
	if len(cfg.Wallets) == 0 {
		return nil, types.ErrNoWallets
	}
	if cfg.Bundles == nil || cfg.Info == nil {
		return nil, fmt.Errorf("sell: bundle submitter and pool info store are required")
	}
	return &Seller{cfg: cfg, tx: txbuilder.NewBuilder(cfg.Chain), log: cfg.Logger}, nil
}

// market abstracts the two venues: it quotes and builds one wallet's sell.
type market interface {
	Reserves() quote.Reserves
	tokenProgram() solana.PublicKey
	quote(r quote.Reserves, amount, slippageBps uint64) quote.Result
	sell(user solana.PublicKey, amount, minOut uint64) ([]solana.Instruction, error)
}

type pumpVenue struct{ *autofill.PumpMarket }

func (v pumpVenue) tokenProgram() solana.PublicKey { return v.TokenProgram }

func (v pumpVenue) quote(r quote.Reserves, amount, slippageBps uint64) quote.Result {
	return quote.CurveSell(r, amount, v.FeeBps, slippageBps)
}

func (v pumpVenue) sell(user solana.PublicKey, amount, minOut uint64) ([]solana.Instruction, error) {
	ix, err := v.Sell(user, amount, minOut)
	if err != nil {
		return nil, err
	}
	return []solana.Instruction{ix}, nil
}

type ammVenue struct{ *autofill.AmmMarket }

func (v ammVenue) tokenProgram() solana.PublicKey { return v.BaseTokenProgram }

func (v ammVenue) quote(r quote.Reserves, amount, slippageBps uint64) quote.Result {
	return quote.AmmSell(r, amount, v.FeeBps(), slippageBps)
}

func (v ammVenue) sell(user solana.PublicKey, amount, minOut uint64) ([]solana.Instruction, error) {
	return v.Sell(user, amount, minOut)
}

// SellPump sells on the mint's bonding curve.
func (s *Seller) SellPump(ctx context.Context, req Request) (*Report, error) {
	return s.run(ctx, req, "pump", func(mint solana.PublicKey) (market, error) {
		m, err := autofill.LoadPumpMarket(ctx, s.cfg.Chain, mint)
		if err != nil {
			return nil, err
		}
		if m.Curve.Complete {
			return nil, fmt.Errorf("%w: sell on the AMM instead", types.ErrBondingCurveComplete)
		}
		return pumpVenue{m}, nil
	})
}

// SellAMM sells into the canonical pump AMM pool of the mint.
func (s *Seller) SellAMM(ctx context.Context, req Request) (*Report, error) {
	return s.run(ctx, req, "amm", func(mint solana.PublicKey) (market, error) {
		m, err := autofill.LoadAmmMarket(ctx, s.cfg.Chain, mint)
		if err != nil {
			return nil, err
		}
		return ammVenue{m}, nil
	})
}

func (s *Seller) run(ctx context.Context, req Request, venue string, load func(solana.PublicKey) (market, error)) (*Report, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	rec, err := s.cfg.Info.Load()
	if err != nil {
		return nil, err
	}
	mint, err := rec.Mint()
	if err != nil {
		return nil, err
	}
	tables, err := s.lookupTables(ctx, rec)
	if err != nil {
		return nil, err
	}
	m, err := load(mint)
	if err != nil {
		return nil, err
	}

	owners := wallet.PublicKeys(s.cfg.Wallets)
	balances, _, err := autofill.TokenBalances(ctx, s.cfg.Chain, mint, m.tokenProgram(), owners)
	if err != nil {
		return nil, err
	}

	report := &Report{Mint: mint}
	var groups []group
	reserves := m.Reserves()
	for i, signer := range s.cfg.Wallets {
		amount := shareOf(balances[i], req.Percent)
		if amount == 0 {
			continue
		}
		// each sell moves the price for the next one in the same bundle
		q := m.quote(reserves, amount, req.SlippageBps)
		reserves.Base += amount
		reserves.Quote -= min(reserves.Quote, q.ExpectedOut)

		instrs, err := m.sell(signer.PublicKey(), amount, q.MinOut)
		if err != nil {
			return nil, fmt.Errorf("build sell for %s: %w", signer.PublicKey(), err)
		}
		groups = append(groups, group{signer: signer, instrs: instrs})
		report.Sells = append(report.Sells, WalletSell{
			Wallet:      signer.PublicKey(),
			Balance:     balances[i],
			Amount:      amount,
			ExpectedOut: q.ExpectedOut,
			MinOut:      q.MinOut,
		})
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("%w: no wallet holds %s", types.ErrNothingToSell, mint)
	}

	hash, err := s.tx.LatestBlockhash(ctx)
	if err != nil {
		return nil, err
	}
	bundles, err := pack(ctx, packInput{
		payer:       s.cfg.Payer,
		groups:      groups,
		tables:      tables,
		blockhash:   hash,
		tipLamports: req.TipLamports,
	})
	if err != nil {
		return nil, err
	}
	for _, txs := range bundles {
		report.Transactions += len(txs)
	}
	s.log.Info().
		Str("venue", venue).
		Str("mint", mint.String()).
		Int("wallets", len(groups)).
		Int("transactions", report.Transactions).
		Int("bundles", len(bundles)).
		Bool("dry_run", req.DryRun).
		Msg("sell built")

	if req.DryRun {
		for _, txs := range bundles {
			for _, tx := range txs {
				res, err := s.tx.Simulate(ctx, tx)
				if res != nil {
					report.Simulations = append(report.Simulations, res)
				}
				if err != nil {
					return report, err
				}
			}
		}
		return report, nil
	}

	report.Results, err = s.cfg.Bundles.SubmitAll(ctx, bundles)
	return report, err
}

// lookupTables loads the launch table when one is recorded. Selling works
// without it, only with fewer wallets per transaction.
func (s *Seller) lookupTables(ctx context.Context, rec *poolinfo.Record) (txbuilder.Tables, error) {
	table, err := rec.LookupTable()
	if errors.Is(err, types.ErrLookupTableNotFound) {
		s.log.Warn().Msg("no lookup table recorded, building without one")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	state, err := s.cfg.Chain.GetAddressLookupTable(ctx, table)
	if errors.Is(err, types.ErrLookupTableNotFound) {
		s.log.Warn().Str("table", table.String()).Msg("recorded lookup table not found on chain, building without it")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return txbuilder.Tables{table: state.Addresses}, nil
}

// shareOf returns floor(balance * percent / 100) with percent kept to two
// decimals.
func shareOf(balance uint64, percent float64) uint64 {
	if balance == 0 || percent <= 0 {
		return 0
	}
	if percent >= 100 {
		return balance
	}
	hundredths := uint64(math.Round(percent * 100))
	v := new(big.Int).Mul(new(big.Int).SetUint64(balance), new(big.Int).SetUint64(hundredths))
	return v.Div(v, big.NewInt(100*100)).Uint64()
}
