package credential

import (
	"encoding/base64"
	"encoding/json"
)

// PlainCodec encodes credentials as base64-encoded JSON.
// The cookie value is readable by anyone holding it; forging a foreign credential still requires
// guessing the high-entropy admin token issued by the provider. Use SignedCodec to rule that out entirely.
type PlainCodec struct{}

var _ Codec = (*PlainCodec)(nil)

// Encode serializes a credential into base64-encoded JSON
func (codec *PlainCodec) Encode(cred *Credential) (string, error) {
	data, err := json.Marshal(cred)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Decode restores a credential out of its base64-encoded JSON representation
func (codec *PlainCodec) Decode(raw string) (*Credential, error) {
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, ErrMalformed
	}
	cred := new(Credential)
	if err := json.Unmarshal(data, cred); err != nil {
		return nil, ErrMalformed
	}
	if cred.SessionID == "" || cred.AdminToken == "" {
		return nil, ErrMalformed
	}
	return cred, nil
}
