package shuttle

import "errors"

var (
	// Address errors
	ErrMalformedAddress = errors.New("malformed address")
	ErrNotPrefix        = errors.New("address is not a prefix")

	// Transport errors
	ErrBusClosed      = errors.New("bus closed")
	ErrPrefixMismatch = errors.New("destination does not match shuttle prefix")
)
