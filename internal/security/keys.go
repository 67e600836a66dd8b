package security

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// SessionKeys are the cookie signing and encryption keys.
type SessionKeys struct {
	Auth  []byte
	Block []byte
}

// DeriveSessionKeys expands one secret into two independent 32-byte keys so
// the session store gets AES-256 encryption regardless of the secret's length.
func DeriveSessionKeys(secret string) (SessionKeys, error) {
	if secret == "" {
		return SessionKeys{}, fmt.Errorf("secret must not be empty")
	}
	auth, err := expand(secret, "rawsite session auth")
	if err != nil {
		return SessionKeys{}, err
	}
	block, err := expand(secret, "rawsite session encryption")
	if err != nil {
		return SessionKeys{}, err
	}
	return SessionKeys{Auth: auth, Block: block}, nil
}

func expand(secret, info string) ([]byte, error) {
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(info))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive %s key: %w", info, err)
	}
	return key, nil
}
