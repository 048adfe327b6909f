package lease

import "time"

// Lease represents the bounded-duration right to use one provisioned remote VM session.
// The registry entry is advisory bookkeeping: the cookie-held credential remains the authoritative
// client state and the external provider remains the authoritative expiry enforcer.
type Lease struct {
	ID        string
	SessionID string
	Expires   int64
}

// Expired returns whether the lease expiry has passed
func (lease *Lease) Expired() bool {
	return lease.Expires <= time.Now().Unix()
}
