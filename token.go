package casreg

import "github.com/google/uuid"

// NewWriteID mints a fresh, globally unique write-id as a UUIDv7 string.
// The checker itself never requires write-ids to be UUIDs — any
// comparable Go value works as W — but a harness generating a new write
// on the fly needs some way to pick a token that is unique across the
// whole history, and UUIDv7 gives it one for free.
func NewWriteID() string {
	return uuid.Must(uuid.NewV7()).String()
}
