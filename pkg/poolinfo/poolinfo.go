// Package poolinfo persists the launch metadata shared by every stage: the
// wallet public keys, the mint identity and the lookup table address.
//
// The record is rewritten whole on every update. Fields this package does not
// know about are carried through unchanged, and a revision counter lets a
// writer detect that another process rewrote the file since it was read.
package poolinfo

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/rs/zerolog"

	"github.com/ninja0404/pump-bundler/pkg/types"
)

// Record keys.
const (
	KeyNumOfWallets = "numOfWallets"
	KeyMint         = "mint"
	KeyMintPk       = "mintPk"
	KeyAddressALT   = "addressALT"
	KeyRevision     = "revision"

	walletKeyPrefix = "pubkey"
)

// Record is the whole metadata document.
type Record struct {
	fields map[string]json.RawMessage
}

// NewRecord returns an empty record at revision 0.
func NewRecord() *Record {
	return &Record{fields: make(map[string]json.RawMessage)}
}

func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.fields)
}

func (r *Record) UnmarshalJSON(data []byte) error {
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	// a literal null leaves the map nil
	if fields == nil {
		fields = make(map[string]json.RawMessage)
	}
	r.fields = fields
	return nil
}

// Get returns the raw value stored under key.
func (r *Record) Get(key string) (json.RawMessage, bool) {
	v, ok := r.fields[key]
	return v, ok
}

// Set stores any JSON-encodable value under key.
func (r *Record) Set(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	r.fields[key] = raw
	return nil
}

// Keys lists the stored keys in sorted order.
func (r *Record) Keys() []string {
	keys := make([]string, 0, len(r.fields))
	for k := range r.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (r *Record) getString(key string) (string, bool) {
	raw, ok := r.fields[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, s != ""
}

func (r *Record) setString(key, value string) {
	raw, _ := json.Marshal(value)
	r.fields[key] = raw
}

func (r *Record) getUint(key string) uint64 {
	raw, ok := r.fields[key]
	if !ok {
		return 0
	}
	var n uint64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0
	}
	return n
}

// Revision is bumped on every successful Store.Update.
func (r *Record) Revision() uint64 {
	return r.getUint(KeyRevision)
}

// NumOfWallets is the recorded wallet pool size.
func (r *Record) NumOfWallets() int {
	return int(r.getUint(KeyNumOfWallets))
}

// Wallets returns pubkey1..pubkeyN in index order.
func (r *Record) Wallets() ([]solana.PublicKey, error) {
	n := r.NumOfWallets()
	out := make([]solana.PublicKey, 0, n)
	for i := 1; i <= n; i++ {
		key := walletKey(i)
		s, ok := r.getString(key)
		if !ok {
			return nil, fmt.Errorf("%s missing from pool info", key)
		}
		pk, err := solana.PublicKeyFromBase58(s)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out = append(out, pk)
	}
	return out, nil
}

// SetWallets records the wallet pool. Entries left over from a larger
// previous pool are dropped; every other field is kept.
func (r *Record) SetWallets(keys []solana.PublicKey) {
	for k := range r.fields {
		if idx, ok := walletIndex(k); ok && idx > len(keys) {
			delete(r.fields, k)
		}
	}
	raw, _ := json.Marshal(len(keys))
	r.fields[KeyNumOfWallets] = raw
	for i, pk := range keys {
		r.setString(walletKey(i+1), pk.String())
	}
}

// Mint returns the recorded token mint.
func (r *Record) Mint() (solana.PublicKey, error) {
	s, ok := r.getString(KeyMint)
	if !ok {
		return solana.PublicKey{}, types.ErrMintNotRecorded
	}
	return solana.PublicKeyFromBase58(s)
}

// MintKey decodes the recorded base58 mint secret key.
func (r *Record) MintKey() (solana.PrivateKey, error) {
	s, ok := r.getString(KeyMintPk)
	if !ok {
		return nil, types.ErrMintNotRecorded
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", KeyMintPk, err)
	}
	if len(raw) != 64 {
		return nil, fmt.Errorf("%s: invalid key length %d", KeyMintPk, len(raw))
	}
	return solana.PrivateKey(raw), nil
}

// SetMint records both the mint address and its secret key.
func (r *Record) SetMint(key solana.PrivateKey) {
	r.setString(KeyMint, key.PublicKey().String())
	r.setString(KeyMintPk, base58.Encode(key))
}

// LookupTable returns the recorded lookup table address.
func (r *Record) LookupTable() (solana.PublicKey, error) {
	s, ok := r.getString(KeyAddressALT)
	if !ok {
		return solana.PublicKey{}, types.ErrLookupTableNotFound
	}
	return solana.PublicKeyFromBase58(s)
}

// SetLookupTable records the lookup table address.
func (r *Record) SetLookupTable(table solana.PublicKey) {
	r.setString(KeyAddressALT, table.String())
}

func walletKey(i int) string {
	return walletKeyPrefix + strconv.Itoa(i)
}

func walletIndex(key string) (int, bool) {
	rest, ok := strings.CutPrefix(key, walletKeyPrefix)
	if !ok || rest == "" {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// Store reads and writes the record at a fixed path.
type Store struct {
	path string
	log  zerolog.Logger
}

// NewStore binds a store to path.
func NewStore(path string, log zerolog.Logger) *Store {
	return &Store{path: path, log: log}
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Load reads the record. A missing file yields an empty record.
func (s *Store) Load() (*Record, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return NewRecord(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read pool info: %w", err)
	}
	rec := NewRecord()
	if len(data) == 0 {
		return rec, nil
	}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("parse pool info %s: %w", s.path, err)
	}
	return rec, nil
}

// Update loads the record, applies fn and writes the result back. It fails
// with types.ErrConcurrentUpdate when the file's revision moved while fn ran.
func (s *Store) Update(fn func(*Record) error) (*Record, error) {
	rec, err := s.Load()
	if err != nil {
		return nil, err
	}
	base := rec.Revision()

	if err := fn(rec); err != nil {
		return nil, err
	}

	current, err := s.Load()
	if err != nil {
		return nil, err
	}
	if current.Revision() != base {
		return nil, fmt.Errorf("%w: revision %d, expected %d", types.ErrConcurrentUpdate, current.Revision(), base)
	}

	if err := rec.Set(KeyRevision, base+1); err != nil {
		return nil, err
	}
	if err := s.write(rec); err != nil {
		return nil, err
	}
	s.log.Debug().Str("path", s.path).Uint64("revision", base+1).Msg("pool info saved")
	return rec, nil
}

// Save replaces the stored document with rec, under the same revision check
// as Update.
func (s *Store) Save(rec *Record) error {
	_, err := s.Update(func(cur *Record) error {
		rev := cur.Revision()
		cur.fields = maps.Clone(rec.fields)
		if cur.fields == nil {
			cur.fields = make(map[string]json.RawMessage)
		}
		return cur.Set(KeyRevision, rev)
	})
	return err
}

func (s *Store) write(rec *Record) error {
	data, err := json.MarshalIndent(rec.fields, "", "  ")
	if err != nil {
		return fmt.Errorf("encode pool info: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".keyinfo-*")
	if err != nil {
		return fmt.Errorf("write pool info: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write pool info: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write pool info: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace pool info: %w", err)
	}
	return nil
}
