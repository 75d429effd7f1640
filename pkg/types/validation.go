package types

import (
	"github.com/gagliardetto/solana-go"
)

// ValidateSellPercent validates the share of each wallet balance to sell.
func ValidateSellPercent(percent float64) error {
	if percent <= 0 || percent > 100 {
		return ValidationError{Field: "percent", Message: "must be in (0, 100]", Err: ErrInvalidPercent}
	}
	return nil
}

// ValidateSlippage validates slippage basis points.
func ValidateSlippage(slippageBps uint64) error {
	if slippageBps > 10000 {
		return ValidationError{Field: "slippageBps", Message: "must be <= 10000 (100%)", Err: ErrInvalidSlippage}
	}
	return nil
}

// ValidateWalletCount rejects a negative keypair pool size. An empty pool is
// allowed; the launch config requires at least one wallet on its own.
func ValidateWalletCount(n int) error {
	if n < 0 {
		return NewValidationError("wallets", "must not be negative")
	}
	return nil
}

// ValidatePublicKey validates a public key is not zero.
func ValidatePublicKey(name string, key solana.PublicKey) error {
	if key.IsZero() {
		return NewValidationError(name, "cannot be zero")
	}
	return nil
}

// ValidatePublicKeys validates multiple public keys.
func ValidatePublicKeys(keys map[string]solana.PublicKey) error {
	for name, key := range keys {
		if err := ValidatePublicKey(name, key); err != nil {
			return err
		}
	}
	return nil
}
