package autofill

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninja0404/pump-bundler/pkg/constants"
	"github.com/ninja0404/pump-bundler/pkg/types"
)

type fakeFetcher map[solana.PublicKey]*solanarpc.Account

func (f fakeFetcher) GetMultipleAccounts(_ context.Context, addrs ...solana.PublicKey) ([]*solanarpc.Account, error) {
	out := make([]*solanarpc.Account, len(addrs))
	for i, a := range addrs {
		out[i] = f[a]
	}
	return out, nil
}

func newKey(t *testing.T) solana.PublicKey {
	t.Helper()
	k, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return k.PublicKey()
}

func borshAccount(t *testing.T, owner solana.PublicKey, v interface{}) *solanarpc.Account {
	t.Helper()
	buf := new(bytes.Buffer)
	require.NoError(t, bin.NewBorshEncoder(buf).Encode(v))
	return &solanarpc.Account{Owner: owner, Data: solanarpc.DataBytesOrJSONFromBytes(buf.Bytes())}
}

func tokenAccount(mint, owner solana.PublicKey, amount uint64) *solanarpc.Account {
	data := make([]byte, 165)
	copy(data[0:32], mint[:])
	copy(data[32:64], owner[:])
	binary.LittleEndian.PutUint64(data[64:72], amount)
	data[108] = 1 // initialized
	return &solanarpc.Account{Owner: constants.TokenProgramID, Data: solanarpc.DataBytesOrJSONFromBytes(data)}
}

func mintAccount(owner solana.PublicKey) *solanarpc.Account {
	return &solanarpc.Account{Owner: owner, Data: solanarpc.DataBytesOrJSONFromBytes(make([]byte, 82))}
}

func pumpFixture(t *testing.T, complete bool) (fakeFetcher, solana.PublicKey, solana.PublicKey, solana.PublicKey) {
	t.Helper()
	mint, creator, recipient := newKey(t), newKey(t), newKey(t)
	curve, _, err := solana.FindProgramAddress([][]byte{[]byte(constants.SeedBondingCurve), mint[:]}, constants.PumpProgramID)
	require.NoError(t, err)

	global := PumpGlobal{FeeBasisPoints: 95, CreatorFeeBasisPoints: 5}
	global.FeeRecipients[0] = recipient
	bc := BondingCurve{
		VirtualTokenReserves: 1_073_000_000_000_000,
		VirtualSolReserves:   30_000_000_000,
		Complete:             complete,
		Creator:              creator,
	}
	return fakeFetcher{
		constants.PumpGlobal: borshAccount(t, constants.PumpProgramID, &global),
		curve:                borshAccount(t, constants.PumpProgramID, &bc),
		mint:                 mintAccount(constants.TokenProgramID),
	}, mint, creator, recipient
}

func TestLoadPumpMarket(t *testing.T) {
	fetcher, mint, creator, recipient := pumpFixture(t, false)

	m, err := LoadPumpMarket(context.Background(), fetcher, mint)
	require.NoError(t, err)
	assert.Equal(t, recipient, m.FeeRecipient)
	assert.Equal(t, uint64(100), m.FeeBps)
	assert.Equal(t, constants.TokenProgramID, m.TokenProgram)

	vault, _, err := solana.FindProgramAddress([][]byte{[]byte(constants.SeedCreatorVault), creator[:]}, constants.PumpProgramID)
	require.NoError(t, err)
	assert.Equal(t, vault, m.CreatorVault)

	user := newKey(t)
	ix, err := m.Sell(user, 1_000_000, 10)
	require.NoError(t, err)
	accounts := ix.Accounts()
	require.Len(t, accounts, 14)
	assert.Equal(t, user, accounts[6].PublicKey)
	assert.True(t, accounts[6].IsSigner)
	assert.Equal(t, recipient, accounts[1].PublicKey)
	assert.Equal(t, constants.PumpFeeProgramID, accounts[13].PublicKey)

	data, err := ix.Data()
	require.NoError(t, err)
	require.Len(t, data, 24)
	assert.Equal(t, sellDiscriminator[:], data[:8])
	assert.Equal(t, uint64(1_000_000), binary.LittleEndian.Uint64(data[8:16]))
	assert.Equal(t, uint64(10), binary.LittleEndian.Uint64(data[16:24]))

	q := m.Quote(10_000_000_000_000, 0)
	assert.Greater(t, q.ExpectedOut, uint64(0))
}

func TestPumpMarketRefusesCompletedCurve(t *testing.T) {
	fetcher, mint, _, _ := pumpFixture(t, true)
	m, err := LoadPumpMarket(context.Background(), fetcher, mint)
	require.NoError(t, err)

	_, err = m.Sell(newKey(t), 1, 0)
	assert.ErrorIs(t, err, types.ErrBondingCurveComplete)
}

func TestLoadPumpMarketMissingAccounts(t *testing.T) {
	fetcher, mint, _, _ := pumpFixture(t, false)

	_, err := LoadPumpMarket(context.Background(), fetcher, newKey(t))
	assert.ErrorIs(t, err, types.ErrMintNotFound)

	curve, _, err := solana.FindProgramAddress([][]byte{[]byte(constants.SeedBondingCurve), mint[:]}, constants.PumpProgramID)
	require.NoError(t, err)
	delete(fetcher, curve)
	_, err = LoadPumpMarket(context.Background(), fetcher, mint)
	assert.ErrorIs(t, err, types.ErrBondingCurveNotFound)
}

func TestLoadPumpMarketFallsBackToDefaultRecipient(t *testing.T) {
	fetcher, mint, _, _ := pumpFixture(t, false)
	delete(fetcher, constants.PumpGlobal)

	m, err := LoadPumpMarket(context.Background(), fetcher, mint)
	require.NoError(t, err)
	assert.Equal(t, constants.PumpFeeRecipient, m.FeeRecipient)
}

func ammFixture(t *testing.T) (fakeFetcher, solana.PublicKey, Pool) {
	t.Helper()
	mint := newKey(t)
	poolAddr, err := CanonicalPool(mint)
	require.NoError(t, err)
	globalConfig, _, err := solana.FindProgramAddress([][]byte{[]byte(constants.SeedGlobalConfig)}, constants.PumpAmmProgramID)
	require.NoError(t, err)

	pool := Pool{
		BaseMint:              mint,
		QuoteMint:             constants.WSOLMint,
		PoolBaseTokenAccount:  newKey(t),
		PoolQuoteTokenAccount: newKey(t),
		CoinCreator:           newKey(t),
	}
	cfg := GlobalConfig{LpFeeBasisPoints: 20, ProtocolFeeBasisPoints: 5, CoinCreatorFeeBasisPoints: 5}
	cfg.ProtocolFeeRecipients[2] = newKey(t)

	return fakeFetcher{
		poolAddr:                   borshAccount(t, constants.PumpAmmProgramID, &pool),
		globalConfig:               borshAccount(t, constants.PumpAmmProgramID, &cfg),
		mint:                       mintAccount(constants.TokenProgramID),
		constants.WSOLMint:         mintAccount(constants.TokenProgramID),
		pool.PoolBaseTokenAccount:  tokenAccount(mint, poolAddr, 200_000_000_000_000),
		pool.PoolQuoteTokenAccount: tokenAccount(constants.WSOLMint, poolAddr, 85_000_000_000),
	}, mint, pool
}

func TestLoadAmmMarket(t *testing.T) {
	fetcher, mint, pool := ammFixture(t)

	m, err := LoadAmmMarket(context.Background(), fetcher, mint)
	require.NoError(t, err)
	assert.Equal(t, uint64(200_000_000_000_000), m.BaseReserve)
	assert.Equal(t, uint64(85_000_000_000), m.QuoteReserve)
	assert.Equal(t, uint64(30), m.FeeBps())
	assert.Equal(t, pool.CoinCreator, m.Pool.CoinCreator)

	user := newKey(t)
	instrs, err := m.Sell(user, 1_000_000, 1)
	require.NoError(t, err)
	require.Len(t, instrs, 3)
	assert.Equal(t, constants.AssociatedTokenProgramID, instrs[0].ProgramID())
	assert.Equal(t, constants.PumpAmmProgramID, instrs[1].ProgramID())
	assert.Equal(t, constants.TokenProgramID, instrs[2].ProgramID())

	accounts := instrs[1].Accounts()
	require.Len(t, accounts, 21)
	assert.Equal(t, user, accounts[1].PublicKey)
	assert.True(t, accounts[1].IsSigner)

	wsolATA, _, err := solana.FindAssociatedTokenAddress(user, constants.WSOLMint)
	require.NoError(t, err)
	assert.Equal(t, wsolATA, accounts[6].PublicKey)
}

func TestLoadAmmMarketMissingPool(t *testing.T) {
	_, err := LoadAmmMarket(context.Background(), fakeFetcher{}, newKey(t))
	assert.ErrorIs(t, err, types.ErrPoolNotFound)
}

func TestTokenBalances(t *testing.T) {
	mint := newKey(t)
	owners := []solana.PublicKey{newKey(t), newKey(t)}
	ata, _, err := solana.FindAssociatedTokenAddress(owners[1], mint)
	require.NoError(t, err)

	balances, atas, err := TokenBalances(context.Background(), fakeFetcher{ata: tokenAccount(mint, owners[1], 42)}, mint, constants.TokenProgramID, owners)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 42}, balances)
	assert.Equal(t, ata, atas[1])
}

func TestDecodeAccount(t *testing.T) {
	creator := newKey(t)
	acc := borshAccount(t, constants.PumpProgramID, &BondingCurve{
		Discriminator:        BondingCurveDiscriminator,
		VirtualTokenReserves: 5,
		Creator:              creator,
	})

	name, v, err := DecodeAccount(acc.Data.GetBinary())
	require.NoError(t, err)
	assert.Equal(t, "pump.BondingCurve", name)
	bc, ok := v.(*BondingCurve)
	require.True(t, ok)
	assert.Equal(t, uint64(5), bc.VirtualTokenReserves)
	assert.Equal(t, creator, bc.Creator)

	_, _, err = DecodeAccount(make([]byte, 16))
	assert.Error(t, err)
	_, _, err = DecodeAccount([]byte{1})
	assert.Error(t, err)
}
