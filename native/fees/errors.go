package fees

import (
	"errors"
	"fmt"

	nativecommon "plasmavault/native/common"
)

var (
	errNilState = errors.New("fees: state not configured")

	ErrNotInitialized             = errors.New("fees: not initialized")
	ErrAlreadyInitialized         = errors.New("fees: already initialized")
	ErrAlreadyDeployed            = errors.New("fees: fee manager storage already populated")
	ErrInvalidFeeRecipientAddress = errors.New("fees: invalid fee recipient address")
	ErrInvalidAddress             = errors.New("fees: invalid address")
	ErrWrongAddress               = errors.New("fees: wrong address")
	ErrDuplicateFeeRecipient      = errors.New("fees: duplicate fee recipient")
	ErrFeeRecipientNotFound       = errors.New("fees: fee recipient not found")
	ErrEmptyFeeRecipients         = errors.New("fees: cannot remove the last fee recipient")
	ErrReentrantCall              = errors.New("fees: reentrant call")

	// ErrUnauthorized is returned when a fee account is asked to grant its
	// allowance by anyone other than its owning fee manager.
	ErrUnauthorized = fmt.Errorf("fees: caller is not the fee manager: %w", nativecommon.ErrUnauthorized)
)
