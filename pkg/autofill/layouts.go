package autofill

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// PumpGlobal is the leading part of the pump.fun global account.
type PumpGlobal struct {
	Discriminator               [8]byte
	Initialized                 bool
	Authority                   solana.PublicKey
	FeeRecipient                solana.PublicKey
	InitialVirtualTokenReserves uint64
	InitialVirtualSolReserves   uint64
	InitialRealTokenReserves    uint64
	TokenTotalSupply            uint64
	FeeBasisPoints              uint64
	WithdrawAuthority           solana.PublicKey
	EnableMigrate               bool
	PoolMigrationFee            uint64
	CreatorFeeBasisPoints       uint64
	FeeRecipients               [7]solana.PublicKey
}

// BondingCurve is a pump.fun bonding curve account.
type BondingCurve struct {
	Discriminator        [8]byte
	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
	RealTokenReserves    uint64
	RealSolReserves      uint64
	TokenTotalSupply     uint64
	Complete             bool
	Creator              solana.PublicKey
}

// Pool is a pump AMM pool account.
type Pool struct {
	Discriminator         [8]byte
	PoolBump              uint8
	Index                 uint16
	Creator               solana.PublicKey
	BaseMint              solana.PublicKey
	QuoteMint             solana.PublicKey
	LpMint                solana.PublicKey
	PoolBaseTokenAccount  solana.PublicKey
	PoolQuoteTokenAccount solana.PublicKey
	LpSupply              uint64
	CoinCreator           solana.PublicKey
}

// GlobalConfig is the pump AMM fee configuration.
type GlobalConfig struct {
	Discriminator             [8]byte
	Admin                     solana.PublicKey
	LpFeeBasisPoints          uint64
	ProtocolFeeBasisPoints    uint64
	DisableFlags              uint8
	ProtocolFeeRecipients     [8]solana.PublicKey
	CoinCreatorFeeBasisPoints uint64
}

// decodeBorsh decodes the fixed prefix of an anchor account into v. Bytes
// past the fields of v are ignored, so newer account versions still decode.
func decodeBorsh(name string, data []byte, v interface{}) error {
	if len(data) < 8 {
		return fmt.Errorf("decode %s: account data too short (%d bytes)", name, len(data))
	}
	if err := bin.NewBorshDecoder(data).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// Anchor account discriminators, sha256("account:<Name>")[:8].
var (
	PumpGlobalDiscriminator   = [8]byte{167, 232, 232, 177, 200, 108, 114, 127}
	BondingCurveDiscriminator = [8]byte{23, 183, 248, 55, 96, 216, 172, 96}
	PoolDiscriminator         = [8]byte{241, 154, 109, 4, 17, 177, 109, 188}
	GlobalConfigDiscriminator = [8]byte{149, 8, 156, 202, 160, 252, 176, 217}
)

// DecodeAccount decodes any of the known pump or pump AMM accounts by its
// discriminator and returns the layout name with the decoded value.
func DecodeAccount(data []byte) (string, interface{}, error) {
	if len(data) < 8 {
		return "", nil, fmt.Errorf("account data too short (%d bytes)", len(data))
	}
	var disc [8]byte
	copy(disc[:], data[:8])

	var (
		name string
		v    interface{}
	)
	switch disc {
	case PumpGlobalDiscriminator:
		name, v = "pump.Global", &PumpGlobal{}
	case BondingCurveDiscriminator:
		name, v = "pump.BondingCurve", &BondingCurve{}
	case PoolDiscriminator:
		name, v = "pumpamm.Pool", &Pool{}
	case GlobalConfigDiscriminator:
		name, v = "pumpamm.GlobalConfig", &GlobalConfig{}
	default:
		return "", nil, fmt.Errorf("unknown discriminator %v", disc)
	}
	if err := decodeBorsh(name, data, v); err != nil {
		return name, nil, err
	}
	return name, v, nil
}
