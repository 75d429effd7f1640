// Package alt builds and fills the address lookup table used by the launch
// transactions.
package alt

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/ninja0404/pump-bundler/pkg/constants"
)

// Lookup table program instruction indices.
const (
	instructionCreate uint32 = 0
	instructionExtend uint32 = 2
)

// DeriveLookupTableAddress returns the table address authority gets when it
// creates a table at recentSlot.
func DeriveLookupTableAddress(authority solana.PublicKey, recentSlot uint64) (solana.PublicKey, uint8, error) {
	var slot [8]byte
	binary.LittleEndian.PutUint64(slot[:], recentSlot)
	return solana.FindProgramAddress([][]byte{authority[:], slot[:]}, constants.AddressLookupTableID)
}

// NewCreateLookupTableInstruction creates the table owned by authority and
// funded by payer. It returns the table address with the instruction.
func NewCreateLookupTableInstruction(authority, payer solana.PublicKey, recentSlot uint64) (solana.Instruction, solana.PublicKey, error) {
	table, bump, err := DeriveLookupTableAddress(authority, recentSlot)
	if err != nil {
		return nil, solana.PublicKey{}, fmt.Errorf("derive lookup table address: %w", err)
	}

	buf := new(bytes.Buffer)
	enc := bin.NewBinEncoder(buf)
	if err := enc.WriteUint32(instructionCreate, bin.LE); err != nil {
		return nil, solana.PublicKey{}, err
	}
	if err := enc.WriteUint64(recentSlot, bin.LE); err != nil {
		return nil, solana.PublicKey{}, err
	}
	if err := enc.WriteUint8(bump); err != nil {
		return nil, solana.PublicKey{}, err
	}

	return solana.NewInstruction(constants.AddressLookupTableID, tableMetas(table, authority, payer, false), buf.Bytes()), table, nil
}

// NewExtendLookupTableInstruction appends addresses to table.
func NewExtendLookupTableInstruction(table, authority, payer solana.PublicKey, addresses solana.PublicKeySlice) (solana.Instruction, error) {
	if len(addresses) == 0 {
		return nil, fmt.Errorf("extend lookup table: no addresses")
	}
	buf := new(bytes.Buffer)
	enc := bin.NewBinEncoder(buf)
	if err := enc.WriteUint32(instructionExtend, bin.LE); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(uint64(len(addresses)), bin.LE); err != nil {
		return nil, err
	}
	for _, a := range addresses {
		if err := enc.WriteBytes(a[:], false); err != nil {
			return nil, err
		}
	}
	return solana.NewInstruction(constants.AddressLookupTableID, tableMetas(table, authority, payer, true), buf.Bytes()), nil
}

// Creating a table does not need the authority's signature; extending does.
func tableMetas(table, authority, payer solana.PublicKey, authoritySigns bool) solana.AccountMetaSlice {
	return solana.AccountMetaSlice{
		solana.NewAccountMeta(table, true, false),
		solana.NewAccountMeta(authority, false, authoritySigns),
		solana.NewAccountMeta(payer, true, true),
		solana.NewAccountMeta(constants.SystemProgramID, false, false),
	}
}
