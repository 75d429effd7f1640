package alt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	addresslookuptable "github.com/gagliardetto/solana-go/programs/address-lookup-table"
	"github.com/rs/zerolog"

	"github.com/ninja0404/pump-bundler/pkg/bundle"
	"github.com/ninja0404/pump-bundler/pkg/constants"
	"github.com/ninja0404/pump-bundler/pkg/poolinfo"
	"github.com/ninja0404/pump-bundler/pkg/txbuilder"
	"github.com/ninja0404/pump-bundler/pkg/types"
	"github.com/ninja0404/pump-bundler/pkg/wallet"
)

// DefaultTableWait bounds how long Extend waits for a new table to appear.
const DefaultTableWait = 30 * time.Second

// Chain is the RPC surface the lookup table builder needs.
type Chain interface {
	txbuilder.Chain
	GetSlot(ctx context.Context) (uint64, error)
	GetAddressLookupTable(ctx context.Context, table solana.PublicKey) (*addresslookuptable.AddressLookupTableState, error)
}

// Config wires a Builder.
type Config struct {
	Chain   Chain
	Bundles bundle.Submitter
	Info    *poolinfo.Store
	// Payer funds the table and is its authority.
	Payer wallet.Signer
	// Signer is the primary launch wallet; its token account is collected.
	Signer    solana.PublicKey
	TableWait time.Duration
	Logger    zerolog.Logger
}

// Builder creates the launch lookup table and fills it.
type Builder struct {
	cfg Config
	tx  *txbuilder.Builder
	log zerolog.Logger
}

// NewBuilder validates cfg and returns a Builder.
func NewBuilder(cfg Config) (*Builder, error) {
	if cfg.Chain == nil {
		return nil, types.ErrNilRPC
	}
	if cfg.Payer == nil {
		return nil, types.ErrNilFeePayer
	}
	if cfg.Signer.IsZero() {
		return nil, types.ErrNilSigner
	}
	if cfg.Bundles == nil || cfg.Info == nil {
		return nil, fmt.Errorf("alt: bundle submitter and pool info store are required")
	}
	if cfg.TableWait <= 0 {
		cfg.TableWait = DefaultTableWait
	}
	return &Builder{cfg: cfg, tx: txbuilder.NewBuilder(cfg.Chain), log: cfg.Logger}, nil
}

// CreateResult describes a submitted create transaction.
type CreateResult struct {
	Table   solana.PublicKey
	Slot    uint64
	Size    int
	Results []bundle.Result
}

// Create derives a new table from the latest finalized slot, records its
// address and submits the create transaction with a tip.
func (b *Builder) Create(ctx context.Context, tipLamports uint64) (*CreateResult, error) {
	slot, err := b.cfg.Chain.GetSlot(ctx)
	if err != nil {
		return nil, err
	}
	payer := b.cfg.Payer.PublicKey()
	ix, table, err := NewCreateLookupTableInstruction(payer, payer, slot)
	if err != nil {
		return nil, err
	}
	hash, err := b.tx.LatestBlockhash(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := txbuilder.Build(hash, payer, nil, ix, txbuilder.TipInstruction(payer, tipLamports, solana.PublicKey{}))
	if err != nil {
		return nil, err
	}
	size, err := txbuilder.SignChecked(ctx, tx, b.cfg.Payer)
	if err != nil {
		return nil, err
	}

	if _, err := b.cfg.Info.Update(func(r *poolinfo.Record) error {
		r.SetLookupTable(table)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("record lookup table: %w", err)
	}
	b.log.Info().Str("table", table.String()).Uint64("slot", slot).Int("size", size).Msg("lookup table create built")

	results, err := b.cfg.Bundles.SubmitAll(ctx, [][]*solana.Transaction{{tx}})
	return &CreateResult{Table: table, Slot: slot, Size: size, Results: results}, err
}

// ExtendOptions selects what Extend writes.
type ExtendOptions struct {
	TipLamports uint64
	// Mint is the launch mint keypair; it is recorded before the table is filled.
	Mint    solana.PrivateKey
	Wallets []solana.PublicKey
}

// ExtendResult describes the submitted extend bundles.
type ExtendResult struct {
	Table        solana.PublicKey
	Mint         solana.PublicKey
	Addresses    int
	Skipped      int
	Transactions int
	Results      []bundle.Result
}

// Extend fills the recorded table with every address of the launch.
// Addresses already in the table are skipped so a rerun only adds what is
// missing.
func (b *Builder) Extend(ctx context.Context, opts ExtendOptions) (*ExtendResult, error) {
	if len(opts.Mint) != 64 {
		return nil, types.NewValidationError("mint", "a 64 byte mint keypair is required")
	}
	if len(opts.Wallets) == 0 {
		return nil, types.ErrNoWallets
	}
	rec, err := b.cfg.Info.Load()
	if err != nil {
		return nil, err
	}
	table, err := rec.LookupTable()
	if err != nil {
		return nil, types.Fatal("extend lookup table", err)
	}
	state, err := b.waitForTable(ctx, table)
	if err != nil {
		return nil, err
	}

	mint := opts.Mint.PublicKey()
	if _, err := b.cfg.Info.Update(func(r *poolinfo.Record) error {
		r.SetMint(opts.Mint)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("record mint: %w", err)
	}

	all, err := Collect(CollectInput{
		Mint:        mint,
		Wallets:     opts.Wallets,
		Signer:      b.cfg.Signer,
		Payer:       b.cfg.Payer.PublicKey(),
		LookupTable: table,
	})
	if err != nil {
		return nil, err
	}
	missing := without(all, state.Addresses)
	res := &ExtendResult{Table: table, Mint: mint, Addresses: len(missing), Skipped: len(all) - len(missing)}
	if len(missing) == 0 {
		b.log.Info().Str("table", table.String()).Msg("lookup table already holds every address")
		return res, nil
	}

	hash, err := b.tx.LatestBlockhash(ctx)
	if err != nil {
		return nil, err
	}
	bundles, err := ExtendTransactions(ctx, ExtendPlan{
		Table:       table,
		Existing:    state.Addresses,
		Accounts:    missing,
		Authority:   b.cfg.Payer,
		Blockhash:   hash,
		TipLamports: opts.TipLamports,
	})
	if err != nil {
		return nil, err
	}
	for _, txs := range bundles {
		res.Transactions += len(txs)
	}
	b.log.Info().
		Str("table", table.String()).
		Str("mint", mint.String()).
		Int("addresses", len(missing)).
		Int("transactions", res.Transactions).
		Int("bundles", len(bundles)).
		Msg("lookup table extend built")

	res.Results, err = b.cfg.Bundles.SubmitAll(ctx, bundles)
	return res, err
}

// waitForTable polls until table is visible. A freshly created table lags
// behind the slot it was derived from.
func (b *Builder) waitForTable(ctx context.Context, table solana.PublicKey) (*addresslookuptable.AddressLookupTableState, error) {
	op := func() (*addresslookuptable.AddressLookupTableState, error) {
		state, err := b.cfg.Chain.GetAddressLookupTable(ctx, table)
		if err != nil {
			return nil, err
		}
		if state == nil {
			return nil, types.ErrLookupTableNotFound
		}
		return state, nil
	}
	state, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(b.cfg.TableWait),
		backoff.WithNotify(func(err error, next time.Duration) {
			b.log.Debug().Err(err).Dur("retry_in", next).Str("table", table.String()).Msg("lookup table not visible yet")
		}),
	)
	if errors.Is(err, types.ErrLookupTableNotFound) {
		return nil, types.Fatal("fetch lookup table", err)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch lookup table %s: %w", table, err)
	}
	return state, nil
}

// ExtendPlan is everything needed to build the extend transactions.
type ExtendPlan struct {
	Table solana.PublicKey
	// Existing is the table's current content; messages are compiled against it.
	Existing    solana.PublicKeySlice
	Accounts    solana.PublicKeySlice
	Authority   wallet.Signer
	Blockhash   solana.Hash
	TipLamports uint64
	TipAccount  solana.PublicKey
}

// ExtendTransactions builds one signed transaction per chunk of addresses
// and groups them into relay-sized bundles. Each bundle's last transaction
// carries the tip. Chunks start at LookupTableChunkSize addresses and shrink
// only if a transaction would not fit in a packet; a full chunk plus the tip
// transfer is just over the limit.
func ExtendTransactions(ctx context.Context, plan ExtendPlan) ([][]*solana.Transaction, error) {
	if plan.Authority == nil {
		return nil, types.ErrNilFeePayer
	}
	if len(plan.Accounts) == 0 {
		return nil, types.ErrNoInstructions
	}
	if total := len(plan.Existing) + len(plan.Accounts); total > constants.MaxLookupTableAddresses {
		return nil, types.Fatal("extend lookup table",
			fmt.Errorf("%w: %d addresses", types.ErrLookupTableFull, total))
	}

	var err error
	for size := constants.LookupTableChunkSize; size > 0; size-- {
		var txs []*solana.Transaction
		txs, err = extendChunks(ctx, plan, size)
		if err == nil {
			return Chunk(txs, constants.MaxBundleTransactions), nil
		}
		if !errors.Is(err, types.ErrTransactionTooLarge) {
			return nil, err
		}
	}
	return nil, err
}

func extendChunks(ctx context.Context, plan ExtendPlan, size int) ([]*solana.Transaction, error) {
	authority := plan.Authority.PublicKey()
	var tables txbuilder.Tables
	if len(plan.Existing) > 0 {
		tables = txbuilder.Tables{plan.Table: plan.Existing}
	}

	chunks := Chunk(plan.Accounts, size)
	txs := make([]*solana.Transaction, 0, len(chunks))
	for i, chunk := range chunks {
		ix, err := NewExtendLookupTableInstruction(plan.Table, authority, authority, chunk)
		if err != nil {
			return nil, err
		}
		instrs := []solana.Instruction{ix}
		if closesBundle(i, len(chunks)) {
			instrs = append(instrs, txbuilder.TipInstruction(authority, plan.TipLamports, plan.TipAccount))
		}
		tx, err := txbuilder.Build(plan.Blockhash, authority, tables, instrs...)
		if err != nil {
			return nil, err
		}
		if _, err := txbuilder.SignChecked(ctx, tx, plan.Authority); err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i+1, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func closesBundle(i, total int) bool {
	return i == total-1 || (i+1)%constants.MaxBundleTransactions == 0
}

func without(keys, present solana.PublicKeySlice) solana.PublicKeySlice {
	if len(present) == 0 {
		return keys
	}
	have := make(map[solana.PublicKey]struct{}, len(present))
	for _, k := range present {
		have[k] = struct{}{}
	}
	out := make(solana.PublicKeySlice, 0, len(keys))
	for _, k := range keys {
		if _, ok := have[k]; !ok {
			out = append(out, k)
		}
	}
	return out
}
