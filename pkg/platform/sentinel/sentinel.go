package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally wrapped)
// and services translate them into coded domain errors:
//   - ErrNotFound: row does not exist
//   - ErrAlreadyUsed: a unique key is taken (participant already enrolled, voucher already issued)
//   - ErrInvalidState: a conditional update matched no row because the status moved on
//   - ErrCapacity: a conditional reservation found no free slot
//   - ErrUnavailable: backing service temporarily unavailable
var (
	ErrNotFound     = errors.New("not found")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrCapacity     = errors.New("capacity exhausted")
	ErrUnavailable  = errors.New("unavailable")
)
