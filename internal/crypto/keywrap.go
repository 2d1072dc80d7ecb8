package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"

	streamerr "github.com/mausctl/maus/internal/errors"
)

// WrapKey wraps a content-encryption key under an RSA public key using
// RSA-OAEP(SHA-256), per the glossary's "Wrapped key" and SPEC_FULL's
// supplemented key-wrap procedure. The wrapped key is carried as an option
// value in the primary option list.
func WrapKey(pub *rsa.PublicKey, key []byte) ([]byte, error) {
	wrapped, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, key, nil)
	if err != nil {
		return nil, streamerr.NewCryptoError("keywrap", err)
	}
	return wrapped, nil
}

// UnwrapKey recovers a content-encryption key wrapped by WrapKey.
func UnwrapKey(priv *rsa.PrivateKey, wrapped []byte) ([]byte, error) {
	key, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, wrapped, nil)
	if err != nil {
		return nil, streamerr.NewCryptoError("keyunwrap", err)
	}
	return key, nil
}
