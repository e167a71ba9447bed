package errors

import "errors"

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrAlreadyProcessed    = errors.New("transaction already processed")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrRequestNotFound     = errors.New("request not found")
	ErrTransferNotFound    = errors.New("transfer not found")
	ErrEntryAlreadyApplied = errors.New("ledger entry already applied")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrSignatureMismatch   = errors.New("webhook signature mismatch")
	ErrMalformedPayload    = errors.New("malformed webhook payload")
	ErrCardAlreadyStored   = errors.New("card already stored for email")
	ErrInvalidStatus       = errors.New("invalid transaction status")
	ErrInvalidKind         = errors.New("invalid transaction kind")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrNilTransaction      = errors.New("transaction is nil")
	ErrNilCard             = errors.New("card authorization is nil")
	ErrGateway             = errors.New("payment gateway error")
	ErrInvalidClaim        = errors.New("invalid verification claim")
	ErrInvalidInput        = errors.New("invalid input")
)
