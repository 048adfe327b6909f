package credential

import "errors"

// ErrMalformed is returned whenever an encoded credential cannot be decoded back into a valid credential.
// The broker treats it exactly like an absent credential; it never surfaces to the client as an internal error.
var ErrMalformed = errors.New("malformed session credential")

// Credential represents the authority to operate on exactly one externally provisioned VM session.
// It is only ever transmitted to the browser inside an encoded, HttpOnly cookie and must never be logged.
type Credential struct {
	SessionID  string `json:"session_id"`
	AdminToken string `json:"admin_token"`
}

// Codec defines the reversible transformation between a credential and its cookie representation
type Codec interface {
	// Encode serializes a credential into its transportable cookie value
	Encode(cred *Credential) (string, error)

	// Decode is the inverse of Encode.
	// It returns ErrMalformed if the given value cannot be decoded or misses a required field.
	Decode(raw string) (*Credential, error)
}
