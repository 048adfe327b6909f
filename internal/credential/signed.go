package credential

import (
	"encoding/json"

	"github.com/fernet/fernet-go"
)

// SignedCodec encrypts and signs credentials using a fernet key.
// A holder of the cookie can neither read nor tamper with the credential.
// Expiry is not enforced at the codec level; the cookie's Max-Age and the provider's own lease handle that.
type SignedCodec struct {
	key *fernet.Key
}

var _ Codec = (*SignedCodec)(nil)

// NewSignedCodec creates a new signed codec out of a base64-encoded fernet key
func NewSignedCodec(encodedKey string) (*SignedCodec, error) {
	key, err := fernet.DecodeKey(encodedKey)
	if err != nil {
		return nil, err
	}
	return &SignedCodec{key: key}, nil
}

// Encode serializes a credential into an encrypted and signed fernet token
func (codec *SignedCodec) Encode(cred *Credential) (string, error) {
	data, err := json.Marshal(cred)
	if err != nil {
		return "", err
	}
	token, err := fernet.EncryptAndSign(data, codec.key)
	if err != nil {
		return "", err
	}
	return string(token), nil
}

// Decode verifies and decrypts a fernet token back into a credential
func (codec *SignedCodec) Decode(raw string) (*Credential, error) {
	data := fernet.VerifyAndDecrypt([]byte(raw), 0, []*fernet.Key{codec.key})
	if data == nil {
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
