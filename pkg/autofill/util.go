package autofill

import (
	"context"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	solanarpc "github.com/gagliardetto/solana-go/rpc"

	"github.com/ninja0404/pump-bundler/pkg/constants"
)

// AccountFetcher loads accounts in one round trip. The result is aligned
// with addrs and holds nil for missing accounts; *rpc.Client satisfies it.
type AccountFetcher interface {
	GetMultipleAccounts(ctx context.Context, addrs ...solana.PublicKey) ([]*solanarpc.Account, error)
}

func isZeroPK(pk solana.PublicKey) bool {
	return pk == (solana.PublicKey{})
}

func firstNonZeroPK(list []solana.PublicKey) solana.PublicKey {
	for _, pk := range list {
		if !isZeroPK(pk) {
			return pk
		}
	}
	return solana.PublicKey{}
}

// fetchAccountsBatch pulls multiple accounts in one call, keyed by address.
func fetchAccountsBatch(ctx context.Context, fetcher AccountFetcher, addrs ...solana.PublicKey) (map[solana.PublicKey]*solanarpc.Account, error) {
	if len(addrs) == 0 {
		return map[solana.PublicKey]*solanarpc.Account{}, nil
	}
	res, err := fetcher.GetMultipleAccounts(ctx, addrs...)
	if err != nil {
		return nil, err
	}
	out := make(map[solana.PublicKey]*solanarpc.Account, len(addrs))
	for i, v := range res {
		if v == nil || i >= len(addrs) {
			continue
		}
		out[addrs[i]] = v
	}
	return out, nil
}

func accountData(acc *solanarpc.Account) []byte {
	if acc == nil || acc.Data == nil {
		return nil
	}
	return acc.Data.GetBinary()
}

func findATAWithProgram(wallet, mint, tokenProgram solana.PublicKey) (solana.PublicKey, error) {
	pk, _, err := solana.FindProgramAddress([][]byte{
		wallet[:],
		tokenProgram[:],
		mint[:],
	}, constants.AssociatedTokenProgramID)
	return pk, err
}

// TokenBalances returns the balance of each owner's associated token account
// for mint, aligned with owners. Missing accounts count as zero.
func TokenBalances(ctx context.Context, fetcher AccountFetcher, mint, tokenProgram solana.PublicKey, owners []solana.PublicKey) ([]uint64, []solana.PublicKey, error) {
	atas := make([]solana.PublicKey, len(owners))
	for i, owner := range owners {
		ata, err := findATAWithProgram(owner, mint, tokenProgram)
		if err != nil {
			return nil, nil, fmt.Errorf("derive token account of %s: %w", owner, err)
		}
		atas[i] = ata
	}
	accounts, err := fetcher.GetMultipleAccounts(ctx, atas...)
	if err != nil {
		return nil, nil, err
	}
	balances := make([]uint64, len(owners))
	for i := range owners {
		if i < len(accounts) {
			balances[i] = tokenAmount(accounts[i])
		}
	}
	return balances, atas, nil
}

func tokenAmount(acc *solanarpc.Account) uint64 {
	data := accountData(acc)
	if len(data) == 0 {
		return 0
	}
	var tokAcc token.Account
	if err := bin.NewBinDecoder(data).Decode(&tokAcc); err != nil {
		return 0
	}
	return tokAcc.Amount
}

// buildCreateATAIdempotent creates owner's token account for mint unless it
// already exists.
func buildCreateATAIdempotent(payer, ata, owner, mint, tokenProgram solana.PublicKey) solana.Instruction {
	metas := []*solana.AccountMeta{
		solana.NewAccountMeta(payer, true, true),
		solana.NewAccountMeta(ata, true, false),
		solana.NewAccountMeta(owner, false, false),
		solana.NewAccountMeta(mint, false, false),
		solana.NewAccountMeta(constants.SystemProgramID, false, false),
		solana.NewAccountMeta(tokenProgram, false, false),
	}
	// CreateIdempotent = 1
	return solana.NewInstruction(constants.AssociatedTokenProgramID, metas, []byte{1})
}

// buildCloseAccount constructs a CloseAccount instruction for any Token Program (SPL or Token-2022).
func buildCloseAccount(account, destination, owner, tokenProgram solana.PublicKey) solana.Instruction {
	// CloseAccount instruction discriminator = 9
	data := []byte{9}
	metas := []*solana.AccountMeta{
		solana.NewAccountMeta(account, true, false),     // account to close (writable)
		solana.NewAccountMeta(destination, true, false), // destination for rent (writable)
		solana.NewAccountMeta(owner, false, true),       // owner (signer)
	}
	return solana.NewInstruction(tokenProgram, metas, data)
}
