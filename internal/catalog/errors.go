package catalog

import "errors"

var (
	ErrNotFound         = errors.New("question set not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidCatalog   = errors.New("invalid catalog")
	ErrDefaultImmutable = errors.New("default question set cannot be modified")
)
