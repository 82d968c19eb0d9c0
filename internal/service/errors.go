package service

import (
	"errors"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("you do not have permission to perform this action")
	ErrAlreadyExists      = errors.New("already exists")
	ErrNotInList          = errors.New("not in list")
	ErrSelfSubscription   = errors.New("cannot subscribe to yourself")
	ErrInvalidCredentials = errors.New("unable to log in with provided credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// RelationError is a client error about a user/recipe or user/author pair.
// It unwraps to one of the sentinel errors above.
type RelationError struct {
	Kind    error
	Message string
}

func (e *RelationError) Error() string {
	return e.Message
}

func (e *RelationError) Unwrap() error {
	return e.Kind
}

func relationError(kind error, message string) error {
	return &RelationError{Kind: kind, Message: message}
}
