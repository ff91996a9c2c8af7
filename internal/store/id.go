package store

import "github.com/oklog/ulid/v2"

// NewID returns a ULID. ulid.Make is monotonic within a millisecond, so ids
// minted by one process sort in creation order.
func NewID() string {
	return ulid.Make().String()
}
