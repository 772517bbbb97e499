package cli

import "errors"

var (
	ErrInvalidPayload = errors.New("payload must be a JSON object")
	ErrEmptyOwner     = errors.New("owner must not be empty")
	ErrUnknownSealer  = errors.New("unknown sealer")
)
