// Package revocation records admin token ids revoked by logout until the
// token would have expired anyway.
package revocation

import "time"

// Clock returns the current time.
type Clock func() time.Time
