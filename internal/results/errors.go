package results

import "errors"

var (
	ErrNotFound     = errors.New("result not found")
	ErrInvalidInput = errors.New("invalid result")
)
