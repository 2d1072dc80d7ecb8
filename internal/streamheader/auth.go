package streamheader

import (
	"github.com/mausctl/maus/internal/crypto"
	streamerr "github.com/mausctl/maus/internal/errors"
)

// ⚠️ AUDIT-CRITICAL INVARIANT: integrity pre-image composition
//
// Per §4.1.2 step 5 / §4.1.3 step 5, the HMAC covers exactly:
//
//	iv || ciphertext || primary-header-bytes
//
// where primary-header-bytes is the byte-exact encoding of magic, version,
// compression-id, encryption-id, hash-fn-id, and the primary option list, as
// emitted by Writer.WriteHeader / consumed by Reader.ReadHeader. Signatures
// in turn cover the HMAC (encrypted entries) or the plaintext hash
// (unencrypted entries) — never both; ValidateSignatureKind enforces this.

// BuildIntegrityPreimage assembles the byte sequence the HMAC is computed
// over: iv, then ciphertext, then the exact primary header bytes.
func BuildIntegrityPreimage(iv, ciphertext, primaryHeaderBytes []byte) []byte {
	buf := make([]byte, 0, len(iv)+len(ciphertext)+len(primaryHeaderBytes))
	buf = append(buf, iv...)
	buf = append(buf, ciphertext...)
	buf = append(buf, primaryHeaderBytes...)
	return buf
}

// ComputeIntegrityTag computes HMAC(macKey, iv‖ciphertext‖primary-header-bytes).
func ComputeIntegrityTag(macKey []byte, hashID crypto.HashID, iv, ciphertext, primaryHeaderBytes []byte) ([]byte, error) {
	preimage := BuildIntegrityPreimage(iv, ciphertext, primaryHeaderBytes)
	return crypto.ComputeHMAC(macKey, hashID, preimage)
}

// VerifyIntegrityTag recomputes the HMAC over the same pre-image and
// constant-time compares it against the stored tag, per §4.1.3 step 5.
// A mismatch — including the case of a wrong key — is reported as
// ErrIntegrityFailure and is explicitly retryable (§7).
func VerifyIntegrityTag(macKey []byte, hashID crypto.HashID, iv, ciphertext, primaryHeaderBytes, storedTag []byte) error {
	preimage := BuildIntegrityPreimage(iv, ciphertext, primaryHeaderBytes)
	return crypto.VerifyHMAC(macKey, hashID, preimage, storedTag)
}

// SignaturePreimageKind distinguishes what a signature was computed over, so
// a decoder can reject a decode that mixes the two (§4.1.2 ordering
// guarantees: "Decoding MUST reject mixing").
type SignaturePreimageKind int

const (
	// SignatureOverHMAC is used whenever the entry is encrypted.
	SignatureOverHMAC SignaturePreimageKind = iota
	// SignatureOverPlaintextHash is used whenever the entry is unencrypted.
	SignatureOverPlaintextHash
)

// SignaturePreimage selects the signature pre-image per §4.1.2 step 6: the
// HMAC when encryption is active, the plaintext hash otherwise.
func SignaturePreimage(encrypted bool, hmacTag, plaintextHash []byte) ([]byte, SignaturePreimageKind) {
	if encrypted {
		return hmacTag, SignatureOverHMAC
	}
	return plaintextHash, SignatureOverPlaintextHash
}

// ValidateSignatureKind rejects a decoded entry whose declared encryption
// state doesn't match the signature pre-image kind the encoder claims to
// have used, preventing the HMAC/plaintext-hash mixing the format forbids.
func ValidateSignatureKind(encrypted bool, kind SignaturePreimageKind) error {
	wantEncrypted := kind == SignatureOverHMAC
	if encrypted != wantEncrypted {
		return streamerr.NewFormatError("signature-preimage-kind", streamerr.ErrInvalidFormat)
	}
	return nil
}
