// Package crypto implements the cryptographic layer of a .maus stream:
// PBKDF2 password-based key derivation, an HKDF subkey split, AES-CBC with
// PKCS#7 padding, HMAC integrity tags, RSA key-wrap, and RSA/DSA/ECDSA
// signatures. This is AUDIT-CRITICAL code: the wire format depends on every
// byte this package produces matching what the decoder expects.
package crypto

import (
	"crypto/sha256"
	"crypto/sha512"
	"hash"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"

	streamerr "github.com/mausctl/maus/internal/errors"
)

// HashID identifies a digest algorithm by its wire id (§6). The table is
// part of the format's compatibility surface: implementations MUST
// preserve ids they cannot execute when rewriting a stream without
// modification, rather than renumbering them.
type HashID uint16

const (
	HashSha256     HashID = 0
	HashSha512     HashID = 1
	HashSha3_256   HashID = 2
	HashSha3_512   HashID = 3
	HashBlake2b512 HashID = 4 // extensibility point beyond the base table
)

// newHashFunc returns a constructor for the given hash id, suitable for
// passing to pbkdf2.Key or hmac.New.
func newHashFunc(id HashID) (func() hash.Hash, error) {
	switch id {
	case HashSha256:
		return sha256.New, nil
	case HashSha512:
		return sha512.New, nil
	case HashSha3_256:
		return sha3.New256, nil
	case HashSha3_512:
		return sha3.New512, nil
	case HashBlake2b512:
		return func() hash.Hash {
			h, _ := blake2b.New512(nil)
			return h
		}, nil
	default:
		return nil, streamerr.Wrap(streamerr.ErrUnsupportedFeature, "hash-fn id")
	}
}

// Digest computes hashFn(data) for the given hash id.
func Digest(id HashID, data []byte) ([]byte, error) {
	ctor, err := newHashFunc(id)
	if err != nil {
		return nil, err
	}
	h := ctor()
	h.Write(data)
	return h.Sum(nil), nil
}
