package crypto

import (
	"crypto/hmac"

	"github.com/mausctl/maus/internal/bitio"
	streamerr "github.com/mausctl/maus/internal/errors"
)

// ComputeHMAC computes HMAC(macKey, data) under the given hash-fn id.
// Per §4.1.2 step 5 the MAC'd data is iv‖ciphertext‖primary-header-bytes;
// callers assemble that pre-image before calling ComputeHMAC.
func ComputeHMAC(macKey []byte, id HashID, data []byte) ([]byte, error) {
	ctor, err := newHashFunc(id)
	if err != nil {
		return nil, streamerr.NewCryptoError("hmac", err)
	}
	mac := hmac.New(ctor, macKey)
	mac.Write(data)
	return mac.Sum(nil), nil
}

// VerifyHMAC recomputes HMAC(macKey, data) and compares it against want in
// constant time, per §4.1.3 step 5. A mismatch is ErrIntegrityFailure,
// which also covers the wrong-password/wrong-key case.
func VerifyHMAC(macKey []byte, id HashID, data, want []byte) error {
	got, err := ComputeHMAC(macKey, id, data)
	if err != nil {
		return err
	}
	if !bitio.ConstantTimeCompare(got, want) {
		return streamerr.ErrIntegrityFailure
	}
	return nil
}
