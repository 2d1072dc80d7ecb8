package crypto

import (
	"crypto"
	"crypto/dsa"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"math/big"

	streamerr "github.com/mausctl/maus/internal/errors"
)

// SignatureAlgorithm identifies the asymmetric signature scheme bound at
// StreamCodec/ArchiveFramer construction (§1, §9 "capability composition").
// These are external primitives per §1 — this file only frames stdlib RSA,
// DSA, and ECDSA as sign/verify pairs over a precomputed digest.
type SignatureAlgorithm uint16

const (
	SignatureNone  SignatureAlgorithm = 0
	SignatureRSA   SignatureAlgorithm = 1
	SignatureDSA   SignatureAlgorithm = 2
	SignatureECDSA SignatureAlgorithm = 3
)

// cryptoHashFor maps a HashID to the stdlib crypto.Hash identifying the
// same digest, for use with rsa.SignPKCS1v15/VerifyPKCS1v15.
func cryptoHashFor(id HashID) (crypto.Hash, error) {
	switch id {
	case HashSha256:
		return crypto.SHA256, nil
	case HashSha512:
		return crypto.SHA512, nil
	case HashSha3_256:
		return crypto.SHA3_256, nil
	case HashSha3_512:
		return crypto.SHA3_512, nil
	default:
		return 0, streamerr.Wrap(streamerr.ErrUnsupportedFeature, "signature digest")
	}
}

// SignRSA signs digest (the HMAC for an encrypted entry, or the plaintext
// hash otherwise — §4.1.2 step 6) with PKCS#1 v1.5 padding.
func SignRSA(priv *rsa.PrivateKey, id HashID, digest []byte) ([]byte, error) {
	h, err := cryptoHashFor(id)
	if err != nil {
		return nil, err
	}
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, h, digest)
	if err != nil {
		return nil, streamerr.NewCryptoError("sign", err)
	}
	return sig, nil
}

// VerifyRSA verifies an RSA signature produced by SignRSA. A failed
// verification is reported as ErrSignatureUnverified, which §4.1.3 step 8
// treats as non-fatal unless the caller requires verification.
func VerifyRSA(pub *rsa.PublicKey, id HashID, digest, sig []byte) error {
	h, err := cryptoHashFor(id)
	if err != nil {
		return err
	}
	if err := rsa.VerifyPKCS1v15(pub, h, digest, sig); err != nil {
		return streamerr.ErrSignatureUnverified
	}
	return nil
}

// dsaSignature holds a DSA (r, s) pair. SignDSA and VerifyDSA do not use it;
// they use the fixed-width r||s concatenation described below.
type dsaSignature struct {
	R, S []byte
}

// SignDSA signs digest with the given DSA private key, returning a
// concatenated fixed-width (r, s) encoding sized to the key's Q.
func SignDSA(priv *dsa.PrivateKey, digest []byte) ([]byte, error) {
	r, s, err := dsa.Sign(rand.Reader, priv, digest)
	if err != nil {
		return nil, streamerr.NewCryptoError("sign", err)
	}
	qLen := (priv.Q.BitLen() + 7) / 8
	out := make([]byte, 2*qLen)
	r.FillBytes(out[:qLen])
	s.FillBytes(out[qLen:])
	return out, nil
}

// VerifyDSA verifies a signature produced by SignDSA.
func VerifyDSA(pub *dsa.PublicKey, digest, sig []byte) error {
	qLen := (pub.Q.BitLen() + 7) / 8
	if len(sig) != 2*qLen {
		return streamerr.ErrSignatureUnverified
	}
	r := new(big.Int).SetBytes(sig[:qLen])
	s := new(big.Int).SetBytes(sig[qLen:])
	if !dsa.Verify(pub, digest, r, s) {
		return streamerr.ErrSignatureUnverified
	}
	return nil
}

// SignECDSA signs digest with the given ECDSA private key using the ASN.1
// DER encoding of (r, s).
func SignECDSA(priv *ecdsa.PrivateKey, digest []byte) ([]byte, error) {
	sig, err := ecdsa.SignASN1(rand.Reader, priv, digest)
	if err != nil {
		return nil, streamerr.NewCryptoError("sign", err)
	}
	return sig, nil
}

// VerifyECDSA verifies a signature produced by SignECDSA.
func VerifyECDSA(pub *ecdsa.PublicKey, digest, sig []byte) error {
	if !ecdsa.VerifyASN1(pub, digest, sig) {
		return streamerr.ErrSignatureUnverified
	}
	return nil
}
