package main

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/ninja0404/pump-bundler/internal/menu"
)

// parsePubkey converts base58 string to PublicKey.
func parsePubkey(label, v string) (solana.PublicKey, error) {
	if v == "" {
		return solana.PublicKey{}, fmt.Errorf("%s is required", label)
	}
	pk, err := solana.PublicKeyFromBase58(v)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%s invalid pubkey: %w", label, err)
	}
	return pk, nil
}

// parseSOL converts a --flag given in SOL to lamports.
func parseSOL(label, v string) (uint64, error) {
	lamports, err := menu.ParseSOL(v)
	if err != nil {
		return 0, fmt.Errorf("--%s: %w", label, err)
	}
	return lamports, nil
}
