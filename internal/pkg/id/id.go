package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string. Seller ids sort by registration time,
// which keeps archive keys and table scans in chronological order.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
