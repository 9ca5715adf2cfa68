package common

import "errors"

var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrNotFound            = errors.New("not found")
	ErrAlreadyRegistered   = errors.New("already registered")
	ErrDuplicateContent    = errors.New("duplicate content")
	ErrNameTaken           = errors.New("name taken")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrIncorrectAmount     = errors.New("incorrect amount")
	ErrInsufficientFee     = errors.New("insufficient fee")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInsufficientPayment = errors.New("insufficient payment")
	ErrPriceOutOfRange     = errors.New("price out of range")
	ErrInvalidBudget       = errors.New("invalid budget")
	ErrInvalidPerformance  = errors.New("invalid performance")
	ErrContentInactive     = errors.New("content inactive")
	ErrNotActive           = errors.New("not active")
	ErrAlreadyCompleted    = errors.New("already completed")
	ErrReentrantCall       = errors.New("reentrant call")
	ErrTransferFailed      = errors.New("transfer failed")
	ErrInvalidNonce        = errors.New("invalid nonce")
)

// ReasonInternal is reported for errors outside the ledger taxonomy, such as
// storage failures.
const ReasonInternal = "Internal"

var reasons = []struct {
	err    error
	reason string
}{
	// A failed transfer wraps the receiver's error; report the transfer.
	{ErrTransferFailed, "TransferFailed"},
	{ErrReentrantCall, "ReentrantCall"},
	{ErrModulePaused, "ModulePaused"},
	{ErrUnauthorized, "Unauthorized"},
	{ErrNotFound, "NotFound"},
	{ErrAlreadyRegistered, "AlreadyRegistered"},
	{ErrDuplicateContent, "DuplicateContent"},
	{ErrNameTaken, "NameTaken"},
	{ErrInvalidInput, "InvalidInput"},
	{ErrInvalidAmount, "InvalidAmount"},
	{ErrIncorrectAmount, "IncorrectAmount"},
	{ErrInsufficientFee, "InsufficientFee"},
	{ErrInsufficientBalance, "InsufficientBalance"},
	{ErrInsufficientPayment, "InsufficientPayment"},
	{ErrPriceOutOfRange, "PriceOutOfRange"},
	{ErrInvalidBudget, "InvalidBudget"},
	{ErrInvalidPerformance, "InvalidPerformance"},
	{ErrContentInactive, "ContentInactive"},
	{ErrNotActive, "NotActive"},
	{ErrAlreadyCompleted, "AlreadyCompleted"},
	{ErrInvalidNonce, "InvalidNonce"},
}

// Reason maps an error to its stable reason code. Nil maps to the empty
// string.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return ReasonInternal
}
