package autofill

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/ninja0404/pump-bundler/pkg/constants"
	"github.com/ninja0404/pump-bundler/pkg/quote"
	"github.com/ninja0404/pump-bundler/pkg/types"
)

// AmmSellAccounts are the accounts of a pump AMM sell, in instruction order.
type AmmSellAccounts struct {
	Pool                             solana.PublicKey
	User                             solana.PublicKey
	GlobalConfig                     solana.PublicKey
	BaseMint                         solana.PublicKey
	QuoteMint                        solana.PublicKey
	UserBaseTokenAccount             solana.PublicKey
	UserQuoteTokenAccount            solana.PublicKey
	PoolBaseTokenAccount             solana.PublicKey
	PoolQuoteTokenAccount            solana.PublicKey
	ProtocolFeeRecipient             solana.PublicKey
	ProtocolFeeRecipientTokenAccount solana.PublicKey
	BaseTokenProgram                 solana.PublicKey
	QuoteTokenProgram                solana.PublicKey
	SystemProgram                    solana.PublicKey
	AssociatedTokenProgram           solana.PublicKey
	EventAuthority                   solana.PublicKey
	Program                          solana.PublicKey
	CoinCreatorVaultAta              solana.PublicKey
	CoinCreatorVaultAuthority        solana.PublicKey
	FeeConfig                        solana.PublicKey
	FeeProgram                       solana.PublicKey
}

// AmmMarket is the canonical pump AMM pool a graduated mint trades in.
type AmmMarket struct {
	Address           solana.PublicKey
	Pool              Pool
	GlobalConfig      solana.PublicKey
	Config            GlobalConfig
	BaseTokenProgram  solana.PublicKey
	QuoteTokenProgram solana.PublicKey
	BaseReserve       uint64
	QuoteReserve      uint64

	protocolFeeRecipient      solana.PublicKey
	protocolFeeRecipientATA   solana.PublicKey
	eventAuthority            solana.PublicKey
	coinCreatorVaultAuthority solana.PublicKey
	coinCreatorVaultAta       solana.PublicKey
	feeConfig                 solana.PublicKey
}

// CanonicalPool derives the pool the bonding curve migrates mint into.
func CanonicalPool(mint solana.PublicKey) (solana.PublicKey, error) {
	authority, _, err := solana.FindProgramAddress([][]byte{[]byte(constants.SeedPoolAuthority), mint[:]}, constants.PumpProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive pool authority: %w", err)
	}
	var index [2]byte
	binary.LittleEndian.PutUint16(index[:], 0)
	pool, _, err := solana.FindProgramAddress([][]byte{
		[]byte(constants.SeedPool),
		index[:],
		authority[:],
		mint[:],
		constants.WSOLMint[:],
	}, constants.PumpAmmProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive pool: %w", err)
	}
	return pool, nil
}

// LoadAmmMarket resolves the canonical pool of mint and its reserves with
// two batched fetches.
func LoadAmmMarket(ctx context.Context, fetcher AccountFetcher, mint solana.PublicKey) (*AmmMarket, error) {
	if fetcher == nil {
		return nil, types.ErrNilRPC
	}
	if err := types.ValidatePublicKey("mint", mint); err != nil {
		return nil, err
	}
	poolAddr, err := CanonicalPool(mint)
	if err != nil {
		return nil, err
	}
	globalConfig, _, err := solana.FindProgramAddress([][]byte{[]byte(constants.SeedGlobalConfig)}, constants.PumpAmmProgramID)
	if err != nil {
		return nil, fmt.Errorf("derive global config: %w", err)
	}

	amap, err := fetchAccountsBatch(ctx, fetcher, poolAddr, globalConfig)
	if err != nil {
		return nil, err
	}
	m := &AmmMarket{Address: poolAddr, GlobalConfig: globalConfig}

	data := accountData(amap[poolAddr])
	if data == nil {
		return nil, fmt.Errorf("%w: %s", types.ErrPoolNotFound, poolAddr)
	}
	if err := decodeBorsh("pool", data, &m.Pool); err != nil {
		return nil, err
	}
	data = accountData(amap[globalConfig])
	if data == nil {
		return nil, fmt.Errorf("%w: %s", types.ErrGlobalConfigNotFound, globalConfig)
	}
	if err := decodeBorsh("global config", data, &m.Config); err != nil {
		return nil, err
	}

	// second batch: token programs from the mint owners, reserves from the pool vaults
	p := m.Pool
	second, err := fetcher.GetMultipleAccounts(ctx, p.BaseMint, p.QuoteMint, p.PoolBaseTokenAccount, p.PoolQuoteTokenAccount)
	if err != nil {
		return nil, err
	}
	if len(second) != 4 || second[0] == nil || second[1] == nil {
		return nil, fmt.Errorf("%w: pool mints of %s", types.ErrMintNotFound, poolAddr)
	}
	m.BaseTokenProgram = second[0].Owner
	m.QuoteTokenProgram = second[1].Owner
	m.BaseReserve = tokenAmount(second[2])
	m.QuoteReserve = tokenAmount(second[3])

	if err := m.derive(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *AmmMarket) derive() error {
	m.protocolFeeRecipient = firstNonZeroPK(m.Config.ProtocolFeeRecipients[:])
	if isZeroPK(m.protocolFeeRecipient) {
		return fmt.Errorf("%w: protocol fee recipient of pool %s", types.ErrFeeRecipientNotFound, m.Address)
	}

	var err error
	if m.protocolFeeRecipientATA, err = findATAWithProgram(m.protocolFeeRecipient, m.Pool.QuoteMint, m.QuoteTokenProgram); err != nil {
		return fmt.Errorf("derive protocol fee token account: %w", err)
	}
	if m.eventAuthority, _, err = solana.FindProgramAddress([][]byte{[]byte(constants.SeedEventAuthority)}, constants.PumpAmmProgramID); err != nil {
		return fmt.Errorf("derive event authority: %w", err)
	}
	if m.coinCreatorVaultAuthority, _, err = solana.FindProgramAddress([][]byte{[]byte(constants.SeedCreatorVaultAmm), m.Pool.CoinCreator[:]}, constants.PumpAmmProgramID); err != nil {
		return fmt.Errorf("derive coin creator vault authority: %w", err)
	}
	if m.coinCreatorVaultAta, err = findATAWithProgram(m.coinCreatorVaultAuthority, m.Pool.QuoteMint, m.QuoteTokenProgram); err != nil {
		return fmt.Errorf("derive coin creator vault: %w", err)
	}
	if m.feeConfig, err = deriveFeeConfig(constants.PumpAmmProgramID); err != nil {
		return err
	}
	return nil
}

// FeeBps is the total fee taken from the quote out.
func (m *AmmMarket) FeeBps() uint64 {
	fee := m.Config.LpFeeBasisPoints + m.Config.ProtocolFeeBasisPoints
	if !isZeroPK(m.Pool.CoinCreator) {
		fee += m.Config.CoinCreatorFeeBasisPoints
	}
	return fee
}

// Reserves returns the pool vault balances.
func (m *AmmMarket) Reserves() quote.Reserves {
	return quote.Reserves{Base: m.BaseReserve, Quote: m.QuoteReserve}
}

// Quote prices selling baseIn tokens into the pool.
func (m *AmmMarket) Quote(baseIn, slippageBps uint64) quote.Result {
	return quote.AmmSell(m.Reserves(), baseIn, m.FeeBps(), slippageBps)
}

// SellAccounts fills the sell accounts for user.
func (m *AmmMarket) SellAccounts(user solana.PublicKey) (AmmSellAccounts, error) {
	baseATA, err := findATAWithProgram(user, m.Pool.BaseMint, m.BaseTokenProgram)
	if err != nil {
		return AmmSellAccounts{}, fmt.Errorf("derive user base token account: %w", err)
	}
	quoteATA, err := findATAWithProgram(user, m.Pool.QuoteMint, m.QuoteTokenProgram)
	if err != nil {
		return AmmSellAccounts{}, fmt.Errorf("derive user quote token account: %w", err)
	}
	return AmmSellAccounts{
		Pool:                             m.Address,
		User:                             user,
		GlobalConfig:                     m.GlobalConfig,
		BaseMint:                         m.Pool.BaseMint,
		QuoteMint:                        m.Pool.QuoteMint,
		UserBaseTokenAccount:             baseATA,
		UserQuoteTokenAccount:            quoteATA,
		PoolBaseTokenAccount:             m.Pool.PoolBaseTokenAccount,
		PoolQuoteTokenAccount:            m.Pool.PoolQuoteTokenAccount,
		ProtocolFeeRecipient:             m.protocolFeeRecipient,
		ProtocolFeeRecipientTokenAccount: m.protocolFeeRecipientATA,
		BaseTokenProgram:                 m.BaseTokenProgram,
		QuoteTokenProgram:                m.QuoteTokenProgram,
		SystemProgram:                    constants.SystemProgramID,
		AssociatedTokenProgram:           constants.AssociatedTokenProgramID,
		EventAuthority:                   m.eventAuthority,
		Program:                          constants.PumpAmmProgramID,
		CoinCreatorVaultAta:              m.coinCreatorVaultAta,
		CoinCreatorVaultAuthority:        m.coinCreatorVaultAuthority,
		FeeConfig:                        m.feeConfig,
		FeeProgram:                       constants.PumpFeeProgramID,
	}, nil
}

// Sell builds the instructions for user to sell baseIn tokens for SOL: open
// the WSOL account if needed, sell into it, then close it to unwrap.
func (m *AmmMarket) Sell(user solana.PublicKey, baseIn, minQuoteOut uint64) ([]solana.Instruction, error) {
	if baseIn == 0 {
		return nil, types.ErrZeroAmount
	}
	accts, err := m.SellAccounts(user)
	if err != nil {
		return nil, err
	}
	ix, err := BuildAmmSell(accts, baseIn, minQuoteOut)
	if err != nil {
		return nil, err
	}
	if !isWSOL(accts.QuoteMint, accts.QuoteTokenProgram) {
		return []solana.Instruction{ix}, nil
	}
	return []solana.Instruction{
		buildCreateATAIdempotent(user, accts.UserQuoteTokenAccount, user, accts.QuoteMint, accts.QuoteTokenProgram),
		ix,
		buildCloseAccount(accts.UserQuoteTokenAccount, user, user, accts.QuoteTokenProgram),
	}, nil
}

// BuildAmmSell encodes a pump AMM sell instruction.
func BuildAmmSell(a AmmSellAccounts, baseAmountIn, minQuoteAmountOut uint64) (solana.Instruction, error) {
	data, err := encodeSellArgs(baseAmountIn, minQuoteAmountOut)
	if err != nil {
		return nil, err
	}
	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(a.Pool, false, false),
		solana.NewAccountMeta(a.User, true, true),
		solana.NewAccountMeta(a.GlobalConfig, false, false),
		solana.NewAccountMeta(a.BaseMint, false, false),
		solana.NewAccountMeta(a.QuoteMint, false, false),
		solana.NewAccountMeta(a.UserBaseTokenAccount, true, false),
		solana.NewAccountMeta(a.UserQuoteTokenAccount, true, false),
		solana.NewAccountMeta(a.PoolBaseTokenAccount, true, false),
		solana.NewAccountMeta(a.PoolQuoteTokenAccount, true, false),
		solana.NewAccountMeta(a.ProtocolFeeRecipient, false, false),
		solana.NewAccountMeta(a.ProtocolFeeRecipientTokenAccount, true, false),
		solana.NewAccountMeta(a.BaseTokenProgram, false, false),
		solana.NewAccountMeta(a.QuoteTokenProgram, false, false),
		solana.NewAccountMeta(a.SystemProgram, false, false),
		solana.NewAccountMeta(a.AssociatedTokenProgram, false, false),
		solana.NewAccountMeta(a.EventAuthority, false, false),
		solana.NewAccountMeta(a.Program, false, false),
		solana.NewAccountMeta(a.CoinCreatorVaultAta, true, false),
		solana.NewAccountMeta(a.CoinCreatorVaultAuthority, false, false),
		solana.NewAccountMeta(a.FeeConfig, false, false),
		solana.NewAccountMeta(a.FeeProgram, false, false),
	}
	return solana.NewInstruction(constants.PumpAmmProgramID, metas, data), nil
}

func isWSOL(mint, tokenProgram solana.PublicKey) bool {
	return mint == constants.WSOLMint && tokenProgram == constants.TokenProgramID
}
