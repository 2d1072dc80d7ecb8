package crypto

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"

	streamerr "github.com/mausctl/maus/internal/errors"
)

// CycleOffset is the constant the wire-level PBKDF2 iteration count field is
// offset by (§4.1.2 step 5, §6, glossary "Cycle count"). A user-visible
// cycle count of n is stored on the wire as n - CycleOffset, and decoding
// reverses the subtraction. This value MUST NOT change: it is part of the
// on-disk format, not an implementation detail.
const CycleOffset = 9001

// MinWireIterations is the smallest total_iterations value write paths are
// permitted to encode (§6: "total_iterations >= 9001 enforced on write").
const MinWireIterations = CycleOffset

// EncodeCycleCount converts a user-visible PBKDF2 cycle count to its wire
// representation.
func EncodeCycleCount(userVisible int64) int64 {
	return userVisible - CycleOffset
}

// DecodeCycleCount converts a wire-stored cycle count field back to the
// total PBKDF2 iteration count actually used, returning ErrInvalidFormat if
// the stored value implies a total of zero or fewer iterations.
func DecodeCycleCount(stored int64) (int64, error) {
	total := stored + CycleOffset
	if total <= 0 {
		return 0, streamerr.NewFormatError("pbkdf2-iter-count", streamerr.ErrInvalidFormat)
	}
	return total, nil
}

// DerivePasswordKey derives a master secret from password and salt via
// PBKDF2-HMAC-<hashID> with the given total iteration count, per §4.1.2
// step 5. keyLen is the digest size of hashID (PBKDF2's natural output
// width); the cipher/MAC subkeys are split out of this master secret by
// DeriveSubkeys, not produced directly by PBKDF2.
func DerivePasswordKey(password, salt []byte, totalIterations int64, hashID HashID) ([]byte, error) {
	ctor, err := newHashFunc(hashID)
	if err != nil {
		return nil, streamerr.NewCryptoError("derive", err)
	}
	if totalIterations <= 0 {
		return nil, streamerr.NewCryptoError("derive", streamerr.ErrInvalidFormat)
	}
	keyLen := len(ctor().Sum(nil))
	return pbkdf2.Key(password, salt, int(totalIterations), keyLen, ctor), nil
}

// DeriveSubkeys splits a PBKDF2 master secret into independent cipher and
// MAC subkeys via HKDF-SHA-256, so that a weakness in one never crosses
// into the other's keyspace. This generalizes the teacher's SubkeyReader
// idiom (sequential HKDF reads, consumed-once) to a fixed two-subkey split
// appropriate for the whole-buffer AES-CBC + HMAC construction of §4.1.2.
func DeriveSubkeys(master, hkdfSalt []byte, cipherKeyLen, macKeyLen int) (cipherKey, macKey []byte, err error) {
	reader := hkdf.New(sha256.New, master, hkdfSalt, []byte("maus-subkeys-v1"))
	cipherKey = make([]byte, cipherKeyLen)
	if _, err := io.ReadFull(reader, cipherKey); err != nil {
		return nil, nil, streamerr.NewCryptoError("hkdf", err)
	}
	macKey = make([]byte, macKeyLen)
	if _, err := io.ReadFull(reader, macKey); err != nil {
		return nil, nil, streamerr.NewCryptoError("hkdf", err)
	}
	return cipherKey, macKey, nil
}
