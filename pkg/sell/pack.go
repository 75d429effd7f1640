package sell

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/ninja0404/pump-bundler/pkg/alt"
	"github.com/ninja0404/pump-bundler/pkg/constants"
	"github.com/ninja0404/pump-bundler/pkg/txbuilder"
	"github.com/ninja0404/pump-bundler/pkg/types"
	"github.com/ninja0404/pump-bundler/pkg/wallet"
)

// group is the instructions of one wallet's sell. A group never spans two
// transactions.
type group struct {
	signer wallet.Signer
	instrs []solana.Instruction
}

type packInput struct {
	payer       wallet.Signer
	groups      []group
	tables      txbuilder.Tables
	blockhash   solana.Hash
	tipLamports uint64
	tipAccount  solana.PublicKey
}

// pack fills transactions greedily with whole groups, sizing every candidate
// as if it carried the tip, then splits them into bundles whose last
// transaction pays the tip. Every returned transaction is signed.
func pack(ctx context.Context, in packInput) ([][]*solana.Transaction, error) {
	if len(in.groups) == 0 {
		return nil, types.ErrNoInstructions
	}
	payer := in.payer.PublicKey()
	tip := txbuilder.TipInstruction(payer, in.tipLamports, in.tipAccount)

	var (
		filled  [][]group
		current []group
	)
	for _, g := range in.groups {
		candidate := append(append([]group{}, current...), g)
		fits, err := fitsWithTip(in, candidate, tip)
		if err != nil {
			return nil, err
		}
		if fits {
			current = candidate
			continue
		}
		if len(current) == 0 {
			return nil, types.Fatal("pack sell", fmt.Errorf("%w: sell of %s alone", types.ErrTransactionTooLarge, g.signer.PublicKey()))
		}
		filled = append(filled, current)
		current = []group{g}
		if fits, err = fitsWithTip(in, current, tip); err != nil {
			return nil, err
		} else if !fits {
			return nil, types.Fatal("pack sell", fmt.Errorf("%w: sell of %s alone", types.ErrTransactionTooLarge, g.signer.PublicKey()))
		}
	}
	filled = append(filled, current)

	txs := make([]*solana.Transaction, 0, len(filled))
	for i, groups := range filled {
		instrs, signers := flatten(in.payer, groups)
		if closesBundle(i, len(filled)) {
			instrs = append(instrs, tip)
		}
		tx, err := txbuilder.Build(in.blockhash, payer, in.tables, instrs...)
		if err != nil {
			return nil, err
		}
		if _, err := txbuilder.SignChecked(ctx, tx, signers...); err != nil {
			return nil, fmt.Errorf("sell transaction %d: %w", i+1, err)
		}
		txs = append(txs, tx)
	}
	return alt.Chunk(txs, constants.MaxBundleTransactions), nil
}

func fitsWithTip(in packInput, groups []group, tip solana.Instruction) (bool, error) {
	instrs, _ := flatten(in.payer, groups)
	tx, err := txbuilder.Build(in.blockhash, in.payer.PublicKey(), in.tables, append(instrs, tip)...)
	if err != nil {
		return false, err
	}
	size, err := txbuilder.Size(tx)
	if err != nil {
		return false, err
	}
	return size <= constants.MaxTransactionSize, nil
}

func flatten(payer wallet.Signer, groups []group) ([]solana.Instruction, []wallet.Signer) {
	var instrs []solana.Instruction
	signers := []wallet.Signer{payer}
	for _, g := range groups {
		instrs = append(instrs, g.instrs...)
		signers = append(signers, g.signer)
	}
	return instrs, signers
}

func closesBundle(i, total int) bool {
	return i == total-1 || (i+1)%constants.MaxBundleTransactions == 0
}
