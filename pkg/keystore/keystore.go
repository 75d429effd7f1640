// Package keystore manages the pool of launch wallets on disk. Each wallet is
// a solana-keygen compatible JSON file named keypair{N}.json.
package keystore

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/rs/zerolog"

	"github.com/ninja0404/pump-bundler/pkg/poolinfo"
	"github.com/ninja0404/pump-bundler/pkg/types"
	"github.com/ninja0404/pump-bundler/pkg/wallet"
)

var keypairFile = regexp.MustCompile(`^keypair\d+\.json$`)

// KeyStore owns the keypairs directory.
type KeyStore struct {
	dir  string
	info *poolinfo.Store
	log  zerolog.Logger
}

// New binds a KeyStore to dir, recording wallet metadata in info.
func New(dir string, info *poolinfo.Store, log zerolog.Logger) *KeyStore {
	return &KeyStore{dir: dir, info: info, log: log}
}

// Dir returns the keypairs directory.
func (k *KeyStore) Dir() string {
	return k.dir
}

// Generate replaces the pool with n fresh wallets written to
// keypair1..n.json. Keypair files of the previous pool are removed first.
func (k *KeyStore) Generate(n int) ([]wallet.Local, error) {
	if err := types.ValidateWalletCount(n); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(k.dir, 0o700); err != nil {
		return nil, fmt.Errorf("create keypairs dir: %w", err)
	}
	if err := k.clear(); err != nil {
		return nil, err
	}

	out := make([]wallet.Local, 0, n)
	for i := 0; i < n; i++ {
		key, err := solana.NewRandomPrivateKey()
		if err != nil {
			return nil, fmt.Errorf("generate keypair %d: %w", i+1, err)
		}
		path := filepath.Join(k.dir, fmt.Sprintf("keypair%d.json", i+1))
		if err := writeKeygenFile(path, key); err != nil {
			return nil, err
		}
		out = append(out, wallet.NewLocalFromPrivateKey(key))
	}
	k.log.Info().Int("count", n).Str("dir", k.dir).Msg("wallets generated")
	return out, nil
}

func (k *KeyStore) clear() error {
	entries, err := os.ReadDir(k.dir)
	if err != nil {
		return fmt.Errorf("read keypairs dir: %w", err)
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !keypairFile.MatchString(e.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(k.dir, e.Name())); err != nil {
			return fmt.Errorf("remove old keypair: %w", err)
		}
		removed++
	}
	if removed > 0 {
		k.log.Warn().Int("count", removed).Str("dir", k.dir).Msg("previous wallets removed")
	}
	return nil
}

// LoadAll reads every keypair file in directory order. An empty or missing
// directory yields an empty slice; callers decide whether that is an error.
func (k *KeyStore) LoadAll() ([]wallet.Local, error) {
	entries, err := os.ReadDir(k.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read keypairs dir: %w", err)
	}

	var out []wallet.Local
	for _, e := range entries {
		if e.IsDir() || !keypairFile.MatchString(e.Name()) {
			continue
		}
		local, err := wallet.NewLocalFromKeygen(filepath.Join(k.dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, local)
	}
	return out, nil
}

// MustLoadAll is LoadAll with an empty pool reported as types.ErrNoWallets.
func (k *KeyStore) MustLoadAll() ([]wallet.Local, error) {
	wallets, err := k.LoadAll()
	if err != nil {
		return nil, err
	}
	if len(wallets) == 0 {
		return nil, fmt.Errorf("%w in %s", types.ErrNoWallets, k.dir)
	}
	return wallets, nil
}

// UpdateMetadata records numOfWallets and pubkey{i} in the pool info,
// leaving every other field untouched.
func (k *KeyStore) UpdateMetadata(wallets []wallet.Local) error {
	_, err := k.info.Update(func(r *poolinfo.Record) error {
		r.SetWallets(wallet.PublicKeys(wallets))
		return nil
	})
	if err != nil {
		return fmt.Errorf("update pool info: %w", err)
	}
	return nil
}

// ImportBase58 decodes a base58 secret key as exported by browser wallets.
func ImportBase58(encoded string) (solana.PrivateKey, error) {
	raw, err := base58.Decode(encoded)
	if err != nil {
		return nil, types.NewValidationError("privateKey", "not valid base58")
	}
	if len(raw) != 64 {
		return nil, types.NewValidationError("privateKey", fmt.Sprintf("expected 64 bytes, got %d", len(raw)))
	}
	// the trailing 32 bytes must be the public half of the seed
	derived := ed25519.NewKeyFromSeed(raw[:32])
	if !bytes.Equal(derived[32:], raw[32:]) {
		return nil, types.NewValidationError("privateKey", "public key does not match secret")
	}
	return solana.PrivateKey(raw), nil
}

func writeKeygenFile(path string, key solana.PrivateKey) error {
	ints := make([]int, len(key))
	for i, b := range key {
		ints[i] = int(b)
	}
	data, err := json.Marshal(ints)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
