package loppet

import (
	"errors"
	"fmt"
)

// Domain-level error values returned by the marketplace services.
var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrUsernameTaken        = errors.New("username taken")
	ErrNeedsUsername        = errors.New("username required for signup")
	ErrListingNotFound      = errors.New("listing not found")
	ErrNotOwner             = errors.New("not the owner")
	ErrFavoriteExists       = errors.New("favorite already exists")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrConversationExists   = errors.New("conversation already exists")
	ErrSelfMessage          = errors.New("cannot message own listing")
	ErrProjectNotFound      = errors.New("project not found")
	ErrAlreadyReviewed      = errors.New("project already reviewed")
	ErrReasonRequired       = errors.New("rejection reason required")
	ErrAlreadyMember        = errors.New("already a member")
	ErrNotMember            = errors.New("not a member")
	ErrRaceNotFound         = errors.New("race not found")

	ErrInvalidAccountID      = errors.New("invalid account id")
	ErrInvalidUsername       = errors.New("invalid username")
	ErrInvalidListingID      = errors.New("invalid listing id")
	ErrInvalidConversationID = errors.New("invalid conversation id")
	ErrInvalidProjectID      = errors.New("invalid project id")
	ErrInvalidRaceID         = errors.New("invalid race id")
	ErrInvalidListingStatus  = errors.New("invalid listing status")
	ErrInvalidProjectStatus  = errors.New("invalid project status")
	ErrInvalidCategory       = errors.New("invalid category")
	ErrInvalidCondition      = errors.New("invalid condition")
	ErrInvalidMessageText    = errors.New("invalid message text")
	ErrInvalidPrice          = errors.New("invalid price")
	ErrInvalidListingInput   = errors.New("invalid listing input")
	ErrInvalidProjectInput   = errors.New("invalid project input")
	ErrInvalidPageRequest    = errors.New("invalid page request")
	ErrInvalidServiceConfig  = errors.New("invalid service config")
)

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}
