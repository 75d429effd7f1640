package constants

import "github.com/gagliardetto/solana-go"

// Well-known program IDs
var (
	// SPL Programs
	SystemProgramID          = solana.SystemProgramID
	TokenProgramID           = solana.TokenProgramID
	AssociatedTokenProgramID = solana.SPLAssociatedTokenAccountProgramID
	SysvarRentProgramID      = solana.SysVarRentPubkey
	MetadataProgramID        = solana.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")
	AddressLookupTableID     = solana.MustPublicKeyFromBase58("AddressLookupTab1e1111111111111111111111111")

	// Pump.fun Program
	PumpProgramID    = solana.MustPublicKeyFromBase58("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")
	PumpFeeProgramID = solana.MustPublicKeyFromBase58("pfeeUxB6jkeY1Hxd7CsFCAjcbHA9rWtchMGdZ6VojVZ")

	// Pump AMM Program
	PumpAmmProgramID = solana.MustPublicKeyFromBase58("pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA")
)

// Mainnet pump.fun accounts that are fixed for every launch.
var (
	PumpMintAuthority  = solana.MustPublicKeyFromBase58("TSLvdd1pWpHVjahSpsvCXUbgwsL3JAcvokwaKt1eokM")
	PumpGlobal         = solana.MustPublicKeyFromBase58("4wTV1YmiEkRvAtNtsSGPtUrqRYQMe5SKy2uB4Jjaxnjf")
	PumpEventAuthority = solana.MustPublicKeyFromBase58("Ce6TQqeHC9p8KetsN6JsjHK7UTZk7nasjjnr7XxXp9F1")
	PumpFeeRecipient   = solana.MustPublicKeyFromBase58("CebN5WGQ4jvEPvsVU4EoHEpgzq1VV7AbicfhtW4xC9iM")

	// WSOL (Native Mint)
	WSOLMint = solana.WrappedSol
)

// PDA seeds
const (
	SeedGlobal          = "global"
	SeedBondingCurve    = "bonding-curve"
	SeedCreatorVault    = "creator-vault"
	SeedMintAuthority   = "mint-authority"
	SeedEventAuthority  = "__event_authority"
	SeedMetadata        = "metadata"
	SeedFeeConfig       = "fee_config"
	SeedGlobalConfig    = "global_config"
	SeedCreatorVaultAmm = "creator_vault"
	SeedPool            = "pool"
	SeedPoolAuthority   = "pool-authority"
)

// Packet and capacity limits.
const (
	// MaxTransactionSize is the serialized size limit of a signed transaction.
	MaxTransactionSize = 1232
	// LookupTableChunkSize is the number of addresses written by one extend instruction.
	LookupTableChunkSize = 30
	// MaxLookupTableAddresses is the capacity of a single lookup table.
	MaxLookupTableAddresses = 256
	// MaxBundleTransactions is the block engine's per-bundle transaction limit.
	MaxBundleTransactions = 5

	LamportsPerSOL uint64 = 1_000_000_000
)
