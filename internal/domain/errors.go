package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrUnclassified      = errors.New("message could not be classified")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrOracleEmpty       = errors.New("oracle returned no choices")
)
