package txbuilder

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	solanarpc "github.com/gagliardetto/solana-go/rpc"

	"github.com/ninja0404/pump-bundler/pkg/constants"
	"github.com/ninja0404/pump-bundler/pkg/jito"
	"github.com/ninja0404/pump-bundler/pkg/types"
	"github.com/ninja0404/pump-bundler/pkg/wallet"
)

// Chain is the RPC surface the builder needs.
type Chain interface {
	GetLatestBlockhash(ctx context.Context) (*solanarpc.GetLatestBlockhashResult, error)
	SimulateTransaction(ctx context.Context, tx *solana.Transaction, opts *solanarpc.SimulateTransactionOpts) (*solanarpc.SimulateTransactionResponse, error)
}

// Tables maps a lookup table address to the addresses it currently holds.
type Tables map[solana.PublicKey]solana.PublicKeySlice

// Builder compiles v0 transactions against lookup tables.
type Builder struct {
	chain Chain
}

// NewBuilder constructs a builder over chain.
func NewBuilder(chain Chain) *Builder {
	return &Builder{chain: chain}
}

// LatestBlockhash fetches the blockhash every transaction of one bundle shares.
func (b *Builder) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	if b.chain == nil {
		return solana.Hash{}, types.ErrNilRPC
	}
	latest, err := b.chain.GetLatestBlockhash(ctx)
	if err != nil {
		return solana.Hash{}, types.RPCError{Op: "getLatestBlockhash", Err: err}
	}
	if latest == nil || latest.Value == nil {
		return solana.Hash{}, fmt.Errorf("getLatestBlockhash: empty result")
	}
	return latest.Value.Blockhash, nil
}

// Build compiles instructions into a v0 transaction paid by feePayer. Accounts
// found in tables are referenced by index instead of by key.
func Build(blockhash solana.Hash, feePayer solana.PublicKey, tables Tables, instructions ...solana.Instruction) (*solana.Transaction, error) {
	if len(instructions) == 0 {
		return nil, types.ErrNoInstructions
	}
	opts := []solana.TransactionOption{solana.TransactionPayer(feePayer)}
	if len(tables) > 0 {
		opts = append(opts, solana.TransactionAddressTables(tables))
	}
	tx, err := solana.NewTransaction(instructions, blockhash, opts...)
	if err != nil {
		return nil, fmt.Errorf("build transaction: %w", err)
	}
	tx.Message.SetVersion(solana.MessageVersionV0)
	return tx, nil
}

// TipInstruction transfers lamports from payer to a block engine tip account.
// A zero tipAccount picks one of the known accounts at random.
func TipInstruction(payer solana.PublicKey, lamports uint64, tipAccount solana.PublicKey) solana.Instruction {
	if tipAccount.IsZero() {
		tipAccount = jito.RandomTipAccount()
	}
	return system.NewTransferInstruction(lamports, payer, tipAccount).Build()
}

// Size returns the wire size of tx once fully signed. Signatures already
// present are not required; every slot is counted at 64 bytes.
func Size(tx *solana.Transaction) (int, error) {
	msg, err := tx.Message.MarshalBinary()
	if err != nil {
		return 0, fmt.Errorf("encode message: %w", err)
	}
	sigs := int(tx.Message.Header.NumRequiredSignatures)
	return compactU16Len(sigs) + sigs*solana.SignatureLength + len(msg), nil
}

// CheckSize fails with a fatal error when tx would not fit in one packet.
func CheckSize(tx *solana.Transaction) (int, error) {
	size, err := Size(tx)
	if err != nil {
		return 0, err
	}
	if size > constants.MaxTransactionSize {
		return size, types.Fatal("check transaction size",
			fmt.Errorf("%w: %d > %d bytes", types.ErrTransactionTooLarge, size, constants.MaxTransactionSize))
	}
	return size, nil
}

// SignTransaction signs using the provided signers in account-key order.
func SignTransaction(ctx context.Context, tx *solana.Transaction, signers ...wallet.Signer) error {
	if tx == nil {
		return fmt.Errorf("transaction is nil")
	}
	required := int(tx.Message.Header.NumRequiredSignatures)
	if required == 0 {
		return nil
	}
	if len(tx.Message.AccountKeys) < required {
		return fmt.Errorf("not enough account keys for required signatures")
	}

	signerMap := make(map[solana.PublicKey]wallet.Signer, len(signers))
	for _, s := range signers {
		signerMap[s.PublicKey()] = s
	}

	messageBytes, err := tx.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	tx.Signatures = make([]solana.Signature, required)
	for i := 0; i < required; i++ {
		pk := tx.Message.AccountKeys[i]
		signer, ok := signerMap[pk]
		if !ok {
			return fmt.Errorf("missing signer for %s", pk)
		}
		sig, err := signer.SignMessage(ctx, messageBytes)
		if err != nil {
			return fmt.Errorf("sign message for %s: %w", pk, err)
		}
		tx.Signatures[i] = sig
	}
	return nil
}

// SignChecked signs tx and enforces the packet limit. Both failures are fatal:
// neither goes away by retrying with the same inputs.
func SignChecked(ctx context.Context, tx *solana.Transaction, signers ...wallet.Signer) (int, error) {
	if err := SignTransaction(ctx, tx, signers...); err != nil {
		return 0, types.Fatal("sign transaction", fmt.Errorf("%w: %v", types.ErrSignFailed, err))
	}
	return CheckSize(tx)
}

// Simulate runs tx through simulateTransaction and converts a program
// failure into a types.SimulationError carrying the logs.
func (b *Builder) Simulate(ctx context.Context, tx *solana.Transaction) (*solanarpc.SimulateTransactionResult, error) {
	if b.chain == nil {
		return nil, types.ErrNilRPC
	}
	res, err := b.chain.SimulateTransaction(ctx, tx, &solanarpc.SimulateTransactionOpts{
		SigVerify:              true,
		ReplaceRecentBlockhash: false,
	})
	if err != nil {
		return nil, types.RPCError{Op: "simulateTransaction", Err: err}
	}
	if res == nil || res.Value == nil {
		return nil, fmt.Errorf("simulate: empty result")
	}
	if res.Value.Err != nil {
		return res.Value, types.SimulationError{Err: res.Value.Err, Logs: res.Value.Logs}
	}
	return res.Value, nil
}

func compactU16Len(n int) int {
	switch {
	case n < 0x80:
		return 1
	case n < 0x4000:
		return 2
	default:
		return 3
	}
}
