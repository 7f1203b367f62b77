package feed

import "errors"

var (
	ErrDuplicateIdentifier = errors.New("identifier already present")
	ErrUnknownIdentifier   = errors.New("unknown identifier")
	ErrRetiredIdentifier   = errors.New("identifier was removed and cannot be reused")
	ErrOutOfRange          = errors.New("position out of range")
	ErrInvalidArgument     = errors.New("invalid argument")
)
