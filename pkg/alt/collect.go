package alt

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/ninja0404/pump-bundler/pkg/constants"
	"github.com/ninja0404/pump-bundler/pkg/types"
)

// CollectInput names every party of a launch.
type CollectInput struct {
	Mint        solana.PublicKey
	Wallets     []solana.PublicKey
	Signer      solana.PublicKey
	Payer       solana.PublicKey
	LookupTable solana.PublicKey
}

// LaunchAccounts are the pump.fun accounts derived from a mint.
type LaunchAccounts struct {
	BondingCurve           solana.PublicKey
	AssociatedBondingCurve solana.PublicKey
	Metadata               solana.PublicKey
}

// DeriveLaunchAccounts derives the bonding curve, its token account and the
// metaplex metadata account for mint.
func DeriveLaunchAccounts(mint solana.PublicKey) (LaunchAccounts, error) {
	var out LaunchAccounts

	curve, _, err := solana.FindProgramAddress([][]byte{[]byte(constants.SeedBondingCurve), mint[:]}, constants.PumpProgramID)
	if err != nil {
		return out, fmt.Errorf("derive bonding curve: %w", err)
	}
	out.BondingCurve = curve

	assoc, _, err := solana.FindAssociatedTokenAddress(curve, mint)
	if err != nil {
		return out, fmt.Errorf("derive bonding curve token account: %w", err)
	}
	out.AssociatedBondingCurve = assoc

	metadata, _, err := solana.FindProgramAddress([][]byte{
		[]byte(constants.SeedMetadata),
		constants.MetadataProgramID[:],
		mint[:],
	}, constants.MetadataProgramID)
	if err != nil {
		return out, fmt.Errorf("derive metadata: %w", err)
	}
	out.Metadata = metadata
	return out, nil
}

// Collect lists every address the launch transactions touch, in a fixed
// order: program and pump accounts, then each wallet with its token account,
// then signer and payer with theirs, then the table itself and WSOL.
// Repeated addresses keep their first position.
func Collect(in CollectInput) (solana.PublicKeySlice, error) {
	if err := types.ValidatePublicKeys(map[string]solana.PublicKey{
		"mint":         in.Mint,
		"signer":       in.Signer,
		"payer":        in.Payer,
		"lookup_table": in.LookupTable,
	}); err != nil {
		return nil, err
	}
	launch, err := DeriveLaunchAccounts(in.Mint)
	if err != nil {
		return nil, err
	}

	set := newOrderedSet(len(in.Wallets)*2 + 20)
	set.add(
		constants.AssociatedTokenProgramID,
		constants.TokenProgramID,
		constants.MetadataProgramID,
		constants.PumpMintAuthority,
		constants.PumpGlobal,
		constants.PumpProgramID,
		launch.Metadata,
		launch.AssociatedBondingCurve,
		launch.BondingCurve,
		constants.PumpEventAuthority,
		constants.SystemProgramID,
		constants.SysvarRentProgramID,
		in.Mint,
		constants.PumpFeeRecipient,
	)

	for _, w := range in.Wallets {
		ata, _, err := solana.FindAssociatedTokenAddress(w, in.Mint)
		if err != nil {
			return nil, fmt.Errorf("derive token account of %s: %w", w, err)
		}
		set.add(w, ata)
	}

	signerATA, _, err := solana.FindAssociatedTokenAddress(in.Signer, in.Mint)
	if err != nil {
		return nil, fmt.Errorf("derive signer token account: %w", err)
	}
	payerATA, _, err := solana.FindAssociatedTokenAddress(in.Payer, in.Mint)
	if err != nil {
		return nil, fmt.Errorf("derive payer token account: %w", err)
	}
	set.add(in.Signer, in.Payer, signerATA, payerATA)
	set.add(in.LookupTable, constants.WSOLMint)

	return set.keys, nil
}

type orderedSet struct {
	seen map[solana.PublicKey]struct{}
	keys solana.PublicKeySlice
}

func newOrderedSet(capacity int) *orderedSet {
	return &orderedSet{
		seen: make(map[solana.PublicKey]struct{}, capacity),
		keys: make(solana.PublicKeySlice, 0, capacity),
	}
}

func (s *orderedSet) add(keys ...solana.PublicKey) {
	for _, k := range keys {
		if _, ok := s.seen[k]; ok {
			continue
		}
		s.seen[k] = struct{}{}
		s.keys = append(s.keys, k)
	}
}
