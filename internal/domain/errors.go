package domain

import "errors"

// Sentinel error kinds, surfaced per the error-kind taxonomy: every
// operation-level error wraps one of these so callers can branch with
// errors.Is regardless of the offending path or inner message.
var (
	ErrPathIO        = errors.New("path i/o failed")
	ErrArchive       = errors.New("archive operation failed")
	ErrParse         = errors.New("parse failed")
	ErrDuplicatePath = errors.New("duplicate path")
	ErrUnknownType   = errors.New("unknown type")
	ErrCryptography  = errors.New("cryptography operation failed")
	ErrNoSuchItem    = errors.New("no such item")
	ErrValidation    = errors.New("validation failed")
)
