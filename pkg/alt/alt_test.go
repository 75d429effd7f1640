package alt

import (
	"context"
	"encoding/binary"
	"path/filepath"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	addresslookuptable "github.com/gagliardetto/solana-go/programs/address-lookup-table"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninja0404/pump-bundler/pkg/bundle"
	"github.com/ninja0404/pump-bundler/pkg/constants"
	"github.com/ninja0404/pump-bundler/pkg/poolinfo"
	"github.com/ninja0404/pump-bundler/pkg/txbuilder"
	"github.com/ninja0404/pump-bundler/pkg/types"
	"github.com/ninja0404/pump-bundler/pkg/wallet"
)

func newSigner(t *testing.T) wallet.Local {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return wallet.NewLocalFromPrivateKey(key)
}

func randomKeys(t *testing.T, n int) solana.PublicKeySlice {
	t.Helper()
	out := make(solana.PublicKeySlice, n)
	for i := range out {
		out[i] = newSigner(t).PublicKey()
	}
	return out
}

func TestChunk(t *testing.T) {
	tests := []struct {
		name string
		n    int
		size int
		want []int
	}{
		{"empty", 0, 30, nil},
		{"single short", 5, 30, []int{5}},
		{"exact", 60, 30, []int{30, 30}},
		{"remainder", 50, 30, []int{30, 20}},
		{"size zero", 3, 0, []int{1, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := make([]int, tt.n)
			for i := range items {
				items[i] = i
			}
			chunks := Chunk(items, tt.size)

			var lens []int
			var joined []int
			for _, c := range chunks {
				lens = append(lens, len(c))
				joined = append(joined, c...)
			}
			assert.Equal(t, tt.want, lens)
			if tt.n > 0 {
				assert.Equal(t, items, joined)
			}
		})
	}
}

func TestCollectOrder(t *testing.T) {
	mint := newSigner(t).PublicKey()
	wallets := randomKeys(t, 3)
	signer, payer, table := newSigner(t).PublicKey(), newSigner(t).PublicKey(), newSigner(t).PublicKey()

	got, err := Collect(CollectInput{Mint: mint, Wallets: wallets, Signer: signer, Payer: payer, LookupTable: table})
	require.NoError(t, err)
	require.Len(t, got, 14+2*len(wallets)+4+2)

	launch, err := DeriveLaunchAccounts(mint)
	require.NoError(t, err)
	assert.Equal(t, constants.AssociatedTokenProgramID, got[0])
	assert.Equal(t, launch.Metadata, got[6])
	assert.Equal(t, launch.AssociatedBondingCurve, got[7])
	assert.Equal(t, launch.BondingCurve, got[8])
	assert.Equal(t, mint, got[12])
	assert.Equal(t, constants.PumpFeeRecipient, got[13])

	ata, _, err := solana.FindAssociatedTokenAddress(wallets[1], mint)
	require.NoError(t, err)
	assert.Equal(t, wallets[1], got[16])
	assert.Equal(t, ata, got[17])

	assert.Equal(t, signer, got[20])
	assert.Equal(t, payer, got[21])
	assert.Equal(t, table, got[len(got)-2])
	assert.Equal(t, constants.WSOLMint, got[len(got)-1])
}

func TestCollectDedupes(t *testing.T) {
	mint := newSigner(t).PublicKey()
	wallets := randomKeys(t, 2)

	got, err := Collect(CollectInput{
		Mint:        mint,
		Wallets:     append(wallets, wallets[0]),
		Signer:      wallets[0],
		Payer:       wallets[0],
		LookupTable: newSigner(t).PublicKey(),
	})
	require.NoError(t, err)

	seen := make(map[solana.PublicKey]bool)
	for _, k := range got {
		assert.False(t, seen[k], "duplicate %s", k)
		seen[k] = true
	}
	assert.Len(t, got, 14+4+2)
	assert.Equal(t, wallets[0], got[14])
}

func TestCreateInstruction(t *testing.T) {
	authority := newSigner(t).PublicKey()
	ix, table, err := NewCreateLookupTableInstruction(authority, authority, 123456)
	require.NoError(t, err)

	want, bump, err := DeriveLookupTableAddress(authority, 123456)
	require.NoError(t, err)
	assert.Equal(t, want, table)

	data, err := ix.Data()
	require.NoError(t, err)
	require.Len(t, data, 13)
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(data[:4]))
	assert.Equal(t, uint64(123456), binary.LittleEndian.Uint64(data[4:12]))
	assert.Equal(t, bump, data[12])

	accounts := ix.Accounts()
	require.Len(t, accounts, 4)
	assert.Equal(t, table, accounts[0].PublicKey)
	assert.True(t, accounts[0].IsWritable)
	assert.False(t, accounts[1].IsSigner)
	assert.True(t, accounts[2].IsSigner)
}

func TestExtendInstruction(t *testing.T) {
	authority := newSigner(t).PublicKey()
	addrs := randomKeys(t, 3)
	ix, err := NewExtendLookupTableInstruction(newSigner(t).PublicKey(), authority, authority, addrs)
	require.NoError(t, err)

	data, err := ix.Data()
	require.NoError(t, err)
	require.Len(t, data, 12+3*32)
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(data[:4]))
	assert.Equal(t, uint64(3), binary.LittleEndian.Uint64(data[4:12]))
	assert.Equal(t, addrs[2][:], data[12+64:])
	assert.True(t, ix.Accounts()[1].IsSigner)

	_, err = NewExtendLookupTableInstruction(newSigner(t).PublicKey(), authority, authority, nil)
	assert.Error(t, err)
}

// tipCount counts system program instructions; the tip transfer is the only one.
func tipCount(tx *solana.Transaction) int {
	n := 0
	for _, ix := range tx.Message.Instructions {
		if tx.Message.AccountKeys[ix.ProgramIDIndex].Equals(solana.SystemProgramID) {
			n++
		}
	}
	return n
}

func TestExtendTransactionsTipOnLast(t *testing.T) {
	bundles, err := ExtendTransactions(context.Background(), ExtendPlan{
		Table:       newSigner(t).PublicKey(),
		Accounts:    randomKeys(t, 50),
		Authority:   newSigner(t),
		Blockhash:   solana.Hash{7},
		TipLamports: 1_000_000,
	})
	require.NoError(t, err)
	require.Len(t, bundles, 1)
	require.Len(t, bundles[0], 2)

	assert.Equal(t, 0, tipCount(bundles[0][0]))
	assert.Equal(t, 1, tipCount(bundles[0][1]))
	for _, tx := range bundles[0] {
		assert.Equal(t, solana.Hash{7}, tx.Message.RecentBlockhash)
		size, err := txbuilder.Size(tx)
		require.NoError(t, err)
		assert.LessOrEqual(t, size, constants.MaxTransactionSize)
	}
}

func TestExtendTransactionsSplitsBundles(t *testing.T) {
	bundles, err := ExtendTransactions(context.Background(), ExtendPlan{
		Table:       newSigner(t).PublicKey(),
		Accounts:    randomKeys(t, 180),
		Authority:   newSigner(t),
		Blockhash:   solana.Hash{8},
		TipLamports: 1_000_000,
	})
	require.NoError(t, err)
	require.Len(t, bundles, 2)
	assert.Len(t, bundles[0], 5)

	total := 0
	for _, txs := range bundles {
		for i, tx := range txs {
			want := 0
			if i == len(txs)-1 {
				want = 1
			}
			assert.Equal(t, want, tipCount(tx))
			total++
		}
	}
	assert.GreaterOrEqual(t, total, 6)
}

func TestExtendTransactionsRejectsOverCapacity(t *testing.T) {
	_, err := ExtendTransactions(context.Background(), ExtendPlan{
		Table:     newSigner(t).PublicKey(),
		Existing:  randomKeys(t, 200),
		Accounts:  randomKeys(t, 57),
		Authority: newSigner(t),
	})
	assert.True(t, types.IsFatal(err))
	assert.ErrorIs(t, err, types.ErrLookupTableFull)
}

type fakeChain struct {
	slot   uint64
	tables map[solana.PublicKey]*addresslookuptable.AddressLookupTableState
}

func (f *fakeChain) GetLatestBlockhash(context.Context) (*solanarpc.GetLatestBlockhashResult, error) {
	return &solanarpc.GetLatestBlockhashResult{Value: &solanarpc.LatestBlockhashResult{Blockhash: solana.Hash{1}}}, nil
}

func (f *fakeChain) SimulateTransaction(context.Context, *solana.Transaction, *solanarpc.SimulateTransactionOpts) (*solanarpc.SimulateTransactionResponse, error) {
	return &solanarpc.SimulateTransactionResponse{Value: &solanarpc.SimulateTransactionResult{}}, nil
}

func (f *fakeChain) GetSlot(context.Context) (uint64, error) {
	return f.slot, nil
}

func (f *fakeChain) GetAddressLookupTable(_ context.Context, table solana.PublicKey) (*addresslookuptable.AddressLookupTableState, error) {
	state, ok := f.tables[table]
	if !ok {
		return nil, types.ErrLookupTableNotFound
	}
	return state, nil
}

type fakeSubmitter struct {
	bundles [][]*solana.Transaction
}

func (f *fakeSubmitter) SubmitAll(_ context.Context, bundles [][]*solana.Transaction) ([]bundle.Result, error) {
	f.bundles = append(f.bundles, bundles...)
	out := make([]bundle.Result, len(bundles))
	for i := range out {
		out[i] = bundle.Result{Outcome: bundle.Accepted, BundleID: "id"}
	}
	return out, nil
}

func newTestBuilder(t *testing.T, chain *fakeChain) (*Builder, *fakeSubmitter, *poolinfo.Store, wallet.Local) {
	t.Helper()
	payer := newSigner(t)
	sub := &fakeSubmitter{}
	store := poolinfo.NewStore(filepath.Join(t.TempDir(), "keyInfo.json"), zerolog.Nop())
	b, err := NewBuilder(Config{
		Chain:     chain,
		Bundles:   sub,
		Info:      store,
		Payer:     payer,
		Signer:    newSigner(t).PublicKey(),
		TableWait: 20 * time.Millisecond,
		Logger:    zerolog.Nop(),
	})
	require.NoError(t, err)
	return b, sub, store, payer
}

func TestBuilderCreate(t *testing.T) {
	b, sub, store, payer := newTestBuilder(t, &fakeChain{slot: 42})

	res, err := b.Create(context.Background(), 5_000_000)
	require.NoError(t, err)

	want, _, err := DeriveLookupTableAddress(payer.PublicKey(), 42)
	require.NoError(t, err)
	assert.Equal(t, want, res.Table)

	rec, err := store.Load()
	require.NoError(t, err)
	got, err := rec.LookupTable()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.Len(t, sub.bundles, 1)
	require.Len(t, sub.bundles[0], 1)
	assert.Equal(t, 1, tipCount(sub.bundles[0][0]))
}

func TestBuilderExtendWithoutTableIsFatal(t *testing.T) {
	b, sub, _, _ := newTestBuilder(t, &fakeChain{})
	mint, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	_, err = b.Extend(context.Background(), ExtendOptions{Mint: mint, Wallets: randomKeys(t, 2)})
	assert.True(t, types.IsFatal(err))
	assert.ErrorIs(t, err, types.ErrLookupTableNotFound)
	assert.Empty(t, sub.bundles)
}

func TestBuilderExtendTableNeverVisibleIsFatal(t *testing.T) {
	b, _, store, _ := newTestBuilder(t, &fakeChain{})
	_, err := store.Update(func(r *poolinfo.Record) error {
		r.SetLookupTable(newSigner(t).PublicKey())
		return nil
	})
	require.NoError(t, err)
	mint, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	_, err = b.Extend(context.Background(), ExtendOptions{Mint: mint, Wallets: randomKeys(t, 2)})
	assert.True(t, types.IsFatal(err))
	assert.ErrorIs(t, err, types.ErrLookupTableNotFound)
}

func TestBuilderExtend(t *testing.T) {
	table := newSigner(t).PublicKey()
	chain := &fakeChain{tables: map[solana.PublicKey]*addresslookuptable.AddressLookupTableState{
		table: {Addresses: solana.PublicKeySlice{constants.TokenProgramID, constants.PumpProgramID}},
	}}
	b, sub, store, _ := newTestBuilder(t, chain)
	_, err := store.Update(func(r *poolinfo.Record) error {
		r.SetLookupTable(table)
		return nil
	})
	require.NoError(t, err)

	mint, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	wallets := randomKeys(t, 3)

	res, err := b.Extend(context.Background(), ExtendOptions{TipLamports: 1_000_000, Mint: mint, Wallets: wallets})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 14+6+4+2-2, res.Addresses)
	assert.Equal(t, 1, res.Transactions)
	require.Len(t, sub.bundles, 1)
	assert.Equal(t, 1, tipCount(sub.bundles[0][0]))

	rec, err := store.Load()
	require.NoError(t, err)
	recorded, err := rec.Mint()
	require.NoError(t, err)
	assert.Equal(t, mint.PublicKey(), recorded)
}

func TestCollectRequiresParties(t *testing.T) {
	_, err := Collect(CollectInput{Mint: newSigner(t).PublicKey(), Signer: newSigner(t).PublicKey(), Payer: newSigner(t).PublicKey()})
	var verr types.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "lookup_table", verr.Field)
}

func TestCollectDeterministic(t *testing.T) {
	in := CollectInput{
		Mint:        newSigner(t).PublicKey(),
		Wallets:     randomKeys(t, 4),
		Signer:      newSigner(t).PublicKey(),
		Payer:       newSigner(t).PublicKey(),
		LookupTable: newSigner(t).PublicKey(),
	}
	first, err := Collect(in)
	require.NoError(t, err)
	second, err := Collect(in)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	reordered := in
	reordered.Wallets = []solana.PublicKey{in.Wallets[3], in.Wallets[2], in.Wallets[1], in.Wallets[0]}
	third, err := Collect(reordered)
	require.NoError(t, err)
	require.Len(t, third, len(first))

	walletEnd := 14 + 2*len(in.Wallets)
	assert.Equal(t, first[:14], third[:14])
	assert.Equal(t, first[walletEnd:], third[walletEnd:])
	assert.NotEqual(t, first[14:walletEnd], third[14:walletEnd])
	assert.ElementsMatch(t, first[14:walletEnd], third[14:walletEnd])
}
