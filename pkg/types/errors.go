package types

import (
	"errors"
	"fmt"
)

// Common launch errors
var (
	// Parameter validation errors
	ErrNilRPC           = errors.New("rpc client is nil")
	ErrNilSigner        = errors.New("signer is nil")
	ErrNilFeePayer      = errors.New("fee payer is nil")
	ErrZeroAmount       = errors.New("amount must be greater than 0")
	ErrInvalidSlippage  = errors.New("slippage bps must be <= 10000")
	ErrInvalidPercent   = errors.New("percent must be in (0, 100]")
	ErrInvalidPublicKey = errors.New("invalid public key")
	ErrNoInstructions   = errors.New("requires at least one instruction")
	ErrNoWallets        = errors.New("no wallets found, create keypairs first")

	// Account errors
	ErrAccountNotFound      = errors.New("account not found")
	ErrMintNotFound         = errors.New("mint account not found")
	ErrMintNotRecorded      = errors.New("mint not recorded in pool info")
	ErrPoolNotFound         = errors.New("pool account not found")
	ErrBondingCurveNotFound = errors.New("bonding curve not found")
	ErrBondingCurveComplete = errors.New("bonding curve complete, token migrated to amm")
	ErrGlobalConfigNotFound = errors.New("global config not found")
	ErrFeeRecipientNotFound = errors.New("fee recipient not found")

	// Lookup table and bundle errors
	ErrLookupTableNotFound  = errors.New("lookup table not found")
	ErrLookupTableFull      = errors.New("account set exceeds lookup table capacity")
	ErrTransactionTooLarge  = errors.New("transaction exceeds maximum size")
	ErrSignFailed           = errors.New("sign transaction failed")
	ErrEmptyBundle          = errors.New("bundle requires at least one transaction")
	ErrBundleTooLarge       = errors.New("bundle exceeds transaction limit")
	ErrNothingToSell        = errors.New("no wallet holds a sellable balance")
	ErrConcurrentUpdate     = errors.New("pool info changed on disk since it was read")
	ErrInvalidOperatorInput = errors.New("invalid input")
)

// FatalError marks a structural defect that retrying with the same inputs cannot fix.
// Components return it; only the top-level driver decides to exit.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal: %s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Fatal wraps err as a FatalError. A nil err stays nil.
func Fatal(op string, err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Op: op, Err: err}
}

// IsFatal reports whether any error in the chain is a FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// RPCError wraps RPC failures with operation context.
type RPCError struct {
	Op  string
	Err error
}

func (e RPCError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e RPCError) Unwrap() error {
	return e.Err
}

// ValidationError represents input validation failures.
type ValidationError struct {
	Field   string
	Message string
	// Err is the sentinel behind the failure, if any.
	Err error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

func (e ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) ValidationError {
	return ValidationError{Field: field, Message: message}
}

// SimulationError contains simulation failure details.
type SimulationError struct {
	Err  interface{}
	Logs []string
}

func (e SimulationError) Error() string {
	return fmt.Sprintf("simulation failed: %v", e.Err)
}

// IsOperatorError reports whether err came from bad operator input and the menu should reprompt.
func IsOperatorError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInvalidOperatorInput) {
		return true
	}
	var ve ValidationError
	return errors.As(err, &ve)
}
