package keystore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninja0404/pump-bundler/pkg/poolinfo"
	"github.com/ninja0404/pump-bundler/pkg/types"
	"github.com/ninja0404/pump-bundler/pkg/wallet"
)

func newTestKeyStore(t *testing.T) (*KeyStore, *poolinfo.Store) {
	t.Helper()
	dir := t.TempDir()
	info := poolinfo.NewStore(filepath.Join(dir, "keyInfo.json"), zerolog.Nop())
	return New(filepath.Join(dir, "keypairs"), info, zerolog.Nop()), info
}

func TestGenerateThenLoadAll(t *testing.T) {
	for _, n := range []int{0, 1, 3, 24} {
		ks, _ := newTestKeyStore(t)
		generated, err := ks.Generate(n)
		require.NoError(t, err)
		require.Len(t, generated, n)

		loaded, err := ks.LoadAll()
		require.NoError(t, err)
		assert.ElementsMatch(t, wallet.PublicKeys(generated), wallet.PublicKeys(loaded))
	}
}

func TestGenerateRejectsNegative(t *testing.T) {
	ks, _ := newTestKeyStore(t)
	_, err := ks.Generate(-1)
	assert.True(t, types.IsOperatorError(err))
}

func TestGenerateReplacesLargerPool(t *testing.T) {
	ks, info := newTestKeyStore(t)
	_, err := ks.Generate(24)
	require.NoError(t, err)

	generated, err := ks.Generate(5)
	require.NoError(t, err)
	require.NoError(t, ks.UpdateMetadata(generated))
	require.NoError(t, os.WriteFile(filepath.Join(ks.Dir(), "payer.json"), []byte("[]"), 0o600))

	loaded, err := ks.LoadAll()
	require.NoError(t, err)
	require.Len(t, loaded, 5)
	assert.ElementsMatch(t, wallet.PublicKeys(generated), wallet.PublicKeys(loaded))

	rec, err := info.Load()
	require.NoError(t, err)
	assert.Equal(t, 5, rec.NumOfWallets())
	assert.FileExists(t, filepath.Join(ks.Dir(), "payer.json"))
}

func TestLoadAllIgnoresOtherFiles(t *testing.T) {
	ks, _ := newTestKeyStore(t)
	_, err := ks.Generate(2)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(ks.Dir(), "payer.json"), []byte("[]"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(ks.Dir(), "keypair1.json.bak"), []byte("[]"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(ks.Dir(), "keypair9.json"), 0o700))

	loaded, err := ks.LoadAll()
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
}

func TestLoadAllEmpty(t *testing.T) {
	ks, _ := newTestKeyStore(t)
	loaded, err := ks.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, loaded)

	_, err = ks.MustLoadAll()
	assert.ErrorIs(t, err, types.ErrNoWallets)
}

func TestUpdateMetadataMergesIntoPoolInfo(t *testing.T) {
	ks, info := newTestKeyStore(t)
	mint, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	_, err = info.Update(func(r *poolinfo.Record) error {
		r.SetMint(mint)
		return nil
	})
	require.NoError(t, err)

	generated, err := ks.Generate(24)
	require.NoError(t, err)
	require.NoError(t, ks.UpdateMetadata(generated))

	rec, err := info.Load()
	require.NoError(t, err)
	assert.Equal(t, 24, rec.NumOfWallets())
	keys, err := rec.Wallets()
	require.NoError(t, err)
	assert.Equal(t, wallet.PublicKeys(generated), keys)

	gotMint, err := rec.Mint()
	require.NoError(t, err)
	assert.Equal(t, mint.PublicKey(), gotMint)
}

func TestImportBase58(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	got, err := ImportBase58(base58.Encode(key))
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), got.PublicKey())

	_, err = ImportBase58("0OIl")
	assert.Error(t, err)

	_, err = ImportBase58(base58.Encode(key[:32]))
	assert.Error(t, err)

	tampered := append(solana.PrivateKey{}, key...)
	copy(tampered[32:], solana.SystemProgramID[:])
	_, err = ImportBase58(base58.Encode(tampered))
	assert.Error(t, err)
}
