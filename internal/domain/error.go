package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrUserNotFound       = errors.New("user not found")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid executor context")

	// Ledger errors
	ErrInsufficientCredit     = errors.New("insufficient credit")
	ErrRefundExceedsDeduction = errors.New("refund exceeds prior deduction")
	ErrLockTimeout            = errors.New("timed out waiting for user lock")
	ErrSubscriptionNotActive  = errors.New("subscription is not active")

	// Cost calculation errors
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrDurationProbeFailed = errors.New("could not determine media duration")
)
