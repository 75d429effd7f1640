// Package autofill resolves every account a pump.fun or pump AMM sell needs
// from the mint alone, and builds the sell instructions.
package autofill

import (
	"bytes"
	"context"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/ninja0404/pump-bundler/pkg/constants"
	"github.com/ninja0404/pump-bundler/pkg/quote"
	"github.com/ninja0404/pump-bundler/pkg/types"
)

// sellDiscriminator is the anchor discriminator of "sell", shared by the
// pump and pump AMM programs.
var sellDiscriminator = [8]byte{51, 230, 133, 164, 1, 127, 131, 173}

// PumpSellAccounts are the accounts of a pump.fun sell, in instruction order.
type PumpSellAccounts struct {
	Global                 solana.PublicKey
	FeeRecipient           solana.PublicKey
	Mint                   solana.PublicKey
	BondingCurve           solana.PublicKey
	AssociatedBondingCurve solana.PublicKey
	AssociatedUser         solana.PublicKey
	User                   solana.PublicKey
	SystemProgram          solana.PublicKey
	CreatorVault           solana.PublicKey
	TokenProgram           solana.PublicKey
	EventAuthority         solana.PublicKey
	Program                solana.PublicKey
	FeeConfig              solana.PublicKey
	FeeProgram             solana.PublicKey
}

// PumpMarket is the bonding curve state of one mint plus the accounts every
// seller shares.
type PumpMarket struct {
	Mint                   solana.PublicKey
	TokenProgram           solana.PublicKey
	Curve                  BondingCurve
	BondingCurve           solana.PublicKey
	AssociatedBondingCurve solana.PublicKey
	FeeRecipient           solana.PublicKey
	CreatorVault           solana.PublicKey
	FeeConfig              solana.PublicKey
	// FeeBps is the protocol plus creator fee charged on the SOL out.
	FeeBps uint64
}

// LoadPumpMarket fetches the global, bonding curve and mint accounts in one
// batch and derives the shared sell accounts.
func LoadPumpMarket(ctx context.Context, fetcher AccountFetcher, mint solana.PublicKey) (*PumpMarket, error) {
	if fetcher == nil {
		return nil, types.ErrNilRPC
	}
	if err := types.ValidatePublicKey("mint", mint); err != nil {
		return nil, err
	}

	curve, _, err := solana.FindProgramAddress([][]byte{[]byte(constants.SeedBondingCurve), mint[:]}, constants.PumpProgramID)
	if err != nil {
		return nil, fmt.Errorf("derive bonding curve: %w", err)
	}

	amap, err := fetchAccountsBatch(ctx, fetcher, constants.PumpGlobal, curve, mint)
	if err != nil {
		return nil, err
	}

	mintAcc := amap[mint]
	if mintAcc == nil {
		return nil, fmt.Errorf("%w: %s", types.ErrMintNotFound, mint)
	}
	m := &PumpMarket{
		Mint:         mint,
		TokenProgram: mintAcc.Owner,
		BondingCurve: curve,
		FeeRecipient: constants.PumpFeeRecipient,
		FeeBps:       100,
	}

	data := accountData(amap[curve])
	if data == nil {
		return nil, fmt.Errorf("%w: %s", types.ErrBondingCurveNotFound, mint)
	}
	if err := decodeBorsh("bonding curve", data, &m.Curve); err != nil {
		return nil, err
	}

	if data := accountData(amap[constants.PumpGlobal]); data != nil {
		var global PumpGlobal
		if err := decodeBorsh("global", data, &global); err == nil {
			if recipient := firstNonZeroPK(append(global.FeeRecipients[:], global.FeeRecipient)); !isZeroPK(recipient) {
				m.FeeRecipient = recipient
			}
			m.FeeBps = global.FeeBasisPoints
			if !isZeroPK(m.Curve.Creator) {
				m.FeeBps += global.CreatorFeeBasisPoints
			}
		}
	}

	if m.AssociatedBondingCurve, err = findATAWithProgram(curve, mint, m.TokenProgram); err != nil {
		return nil, fmt.Errorf("derive bonding curve token account: %w", err)
	}
	if m.CreatorVault, _, err = solana.FindProgramAddress([][]byte{[]byte(constants.SeedCreatorVault), m.Curve.Creator[:]}, constants.PumpProgramID); err != nil {
		return nil, fmt.Errorf("derive creator vault: %w", err)
	}
	if m.FeeConfig, err = deriveFeeConfig(constants.PumpProgramID); err != nil {
		return nil, err
	}
	return m, nil
}

// Reserves returns the curve's virtual reserves.
func (m *PumpMarket) Reserves() quote.Reserves {
	return quote.Reserves{Base: m.Curve.VirtualTokenReserves, Quote: m.Curve.VirtualSolReserves}
}

// Quote prices selling amount tokens.
func (m *PumpMarket) Quote(amount, slippageBps uint64) quote.Result {
	return quote.CurveSell(m.Reserves(), amount, m.FeeBps, slippageBps)
}

// SellAccounts fills the sell accounts for user.
func (m *PumpMarket) SellAccounts(user solana.PublicKey) (PumpSellAccounts, error) {
	ata, err := findATAWithProgram(user, m.Mint, m.TokenProgram)
	if err != nil {
		return PumpSellAccounts{}, fmt.Errorf("derive user token account: %w", err)
	}
	return PumpSellAccounts{
		Global:                 constants.PumpGlobal,
		FeeRecipient:           m.FeeRecipient,
		Mint:                   m.Mint,
		BondingCurve:           m.BondingCurve,
		AssociatedBondingCurve: m.AssociatedBondingCurve,
		AssociatedUser:         ata,
		User:                   user,
		SystemProgram:          constants.SystemProgramID,
		CreatorVault:           m.CreatorVault,
		TokenProgram:           m.TokenProgram,
		EventAuthority:         constants.PumpEventAuthority,
		Program:                constants.PumpProgramID,
		FeeConfig:              m.FeeConfig,
		FeeProgram:             constants.PumpFeeProgramID,
	}, nil
}

// Sell builds the sell of amount tokens by user, refusing once the curve has
// migrated.
func (m *PumpMarket) Sell(user solana.PublicKey, amount, minSolOutput uint64) (solana.Instruction, error) {
	if m.Curve.Complete {
		return nil, fmt.Errorf("%w: %s", types.ErrBondingCurveComplete, m.Mint)
	}
	if amount == 0 {
		return nil, types.ErrZeroAmount
	}
	accts, err := m.SellAccounts(user)
	if err != nil {
		return nil, err
	}
	return BuildPumpSell(accts, amount, minSolOutput)
}

// BuildPumpSell encodes a pump.fun sell instruction.
func BuildPumpSell(a PumpSellAccounts, amount, minSolOutput uint64) (solana.Instruction, error) {
	data, err := encodeSellArgs(amount, minSolOutput)
	if err != nil {
		return nil, err
	}
	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(a.Global, false, false),
		solana.NewAccountMeta(a.FeeRecipient, true, false),
		solana.NewAccountMeta(a.Mint, false, false),
		solana.NewAccountMeta(a.BondingCurve, true, false),
		solana.NewAccountMeta(a.AssociatedBondingCurve, true, false),
		solana.NewAccountMeta(a.AssociatedUser, true, false),
		solana.NewAccountMeta(a.User, true, true),
		solana.NewAccountMeta(a.SystemProgram, false, false),
		solana.NewAccountMeta(a.CreatorVault, true, false),
		solana.NewAccountMeta(a.TokenProgram, false, false),
		solana.NewAccountMeta(a.EventAuthority, false, false),
		solana.NewAccountMeta(a.Program, false, false),
		solana.NewAccountMeta(a.FeeConfig, false, false),
		solana.NewAccountMeta(a.FeeProgram, false, false),
	}
	return solana.NewInstruction(constants.PumpProgramID, metas, data), nil
}

// encodeSellArgs writes the discriminator and the two u64 arguments both
// sell instructions take.
func encodeSellArgs(amount, limit uint64) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteBytes(sellDiscriminator[:], false); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(amount, bin.LE); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(limit, bin.LE); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// deriveFeeConfig returns the fee program's config account for program.
func deriveFeeConfig(program solana.PublicKey) (solana.PublicKey, error) {
	pk, _, err := solana.FindProgramAddress([][]byte{[]byte(constants.SeedFeeConfig), program[:]}, constants.PumpFeeProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive fee config: %w", err)
	}
	return pk, nil
}
