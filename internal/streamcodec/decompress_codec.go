package streamcodec

import (
	"bytes"
	"crypto/rsa"
	"fmt"
	"io"

	"github.com/mausctl/maus/internal/bitio"
	mauscrypto "github.com/mausctl/maus/internal/crypto"
	streamerr "github.com/mausctl/maus/internal/errors"
	"github.com/mausctl/maus/internal/log"
	"github.com/mausctl/maus/internal/optionlist"
	"github.com/mausctl/maus/internal/progressbus"
	"github.com/mausctl/maus/internal/streamheader"
)

// OpenOptions carries the key material and verification keys a
// DecompressCodec is opened with; unlike Config, this is decode-time-only
// and is never itself part of the wire format.
type OpenOptions struct {
	Password []byte
	RawKey   []byte

	// RSAPrivateKey unwraps a wrapped content-encryption key when the entry
	// was encrypted for a recipient instead of (or in addition to) a
	// password (the supplemented key-wrap procedure).
	RSAPrivateKey *rsa.PrivateKey

	Verifiers []Verifier
}

// DecodedEntry is everything a successful decode of one .maus stream
// recovers.
type DecodedEntry struct {
	Header           *streamheader.StreamHeader
	Plaintext        []byte
	Path             string
	CreatedTime      *int64
	ModifiedTime     *int64
	Comment          string
	Integrity        []byte // plaintext hash (unencrypted) or HMAC (encrypted)
	VerifiedKeyIDs   []string
	UnverifiedKeyIDs []string
}

// DecompressCodec runs the read path of a single .maus entry:
// HeaderParsed → (EncryptedWaitingKey)? → PayloadLoaded → Decrypted? →
// Decompressed → Verified → Closed (§4.1.1).
type DecompressCodec struct {
	bus   *progressbus.Bus
	state State
}

// NewDecompressCodec returns a codec ready to decode one entry.
func NewDecompressCodec(bus *progressbus.Bus) *DecompressCodec {
	return &DecompressCodec{bus: bus, state: StateOpen}
}

// Decode runs the full §4.1.3 read path against r, which must contain
// exactly one framed .maus entry: header, payload, integrity value, and any
// trailing signature blocks.
func (c *DecompressCodec) Decode(r io.Reader, opts OpenOptions) (*DecodedEntry, error) {
	log.Debug("decoding entry")
	h, headerLen, err := streamheader.NewReader(r).ReadHeader()
	if err != nil {
		c.state = StateFailed
		return nil, err
	}
	c.state = StateHeaderParsed
	c.bus.HeaderWritten(-1, "")

	encrypted := h.Encryption == streamheader.EncryptionAES
	hashID := mauscrypto.HashID(h.HashFn)
	digestSize, err := digestLen(hashID)
	if err != nil {
		c.state = StateFailed
		return nil, err
	}

	rest, err := io.ReadAll(r)
	if err != nil {
		c.state = StateFailed
		return nil, fmt.Errorf("read payload: %w", err)
	}

	payloadLen, ok := streamheader.GetInt64(h, streamheader.OptPayloadLen)
	if !ok || payloadLen < 0 || int64(len(rest)) < payloadLen+int64(digestSize) {
		c.state = StateFailed
		return nil, streamerr.NewFormatError("payload-len", streamerr.ErrInvalidFormat)
	}
	onWirePayload := rest[:payloadLen]
	integrity := append([]byte(nil), rest[payloadLen:payloadLen+int64(digestSize)]...)
	sigStream := bytes.NewReader(rest[payloadLen+int64(digestSize):])
	c.state = StatePayloadLoaded
	c.bus.PayloadChunk(-1, payloadLen, payloadLen)

	var (
		plaintext     []byte
		path          string
		createdTime   *int64
		modifiedTime  *int64
		comment       string
		sigDigestKind streamheader.SignaturePreimageKind
	)

	if !encrypted {
		sigDigestKind = streamheader.SignatureOverPlaintextHash

		plaintext, err = decompressAll(h.Compression, onWirePayload)
		if err != nil {
			c.state = StateFailed
			return nil, err
		}
		c.state = StateDecompressed

		gotHash, err := mauscrypto.Digest(hashID, plaintext)
		if err != nil {
			c.state = StateFailed
			return nil, err
		}
		if !bitio.ConstantTimeCompare(gotHash, integrity) {
			c.state = StateFailed
			log.Warn("plaintext hash mismatch, entry rejected")
			return nil, streamerr.ErrIntegrityFailure
		}

		path, _ = streamheader.GetString(h, streamheader.OptFilename)
		if v, ok := streamheader.GetInt64(h, streamheader.OptCreatedTime); ok {
			createdTime = &v
		}
		if v, ok := streamheader.GetInt64(h, streamheader.OptModifiedTime); ok {
			modifiedTime = &v
		}
		comment, _ = streamheader.GetString(h, streamheader.OptComment)
	} else {
		c.state = StateEncryptedWaitingKey
		sigDigestKind = streamheader.SignatureOverHMAC

		salt, _ := streamheader.GetBytes(h, streamheader.OptSalt)
		iv, _ := streamheader.GetBytes(h, streamheader.OptIV)
		wireIterCount, _ := streamheader.GetInt64(h, streamheader.OptIterCount)

		keys, err := c.deriveKey(h, opts, salt, wireIterCount, hashID, digestSize)
		if err != nil {
			c.state = StateFailed
			return nil, err
		}
		defer keys.Close()
		c.state = StatePayloadLoaded

		primaryHeaderBytes, err := reencodeHeader(h, headerLen)
		if err != nil {
			c.state = StateFailed
			return nil, err
		}
		if err := streamheader.VerifyIntegrityTag(keys.MacKey, hashID, iv, onWirePayload, primaryHeaderBytes, integrity); err != nil {
			c.state = StateFailed
			return nil, err
		}
		c.bus.HMACComputed(-1, "")

		interior, err := mauscrypto.DecryptCBC(keys.CipherKey, iv, onWirePayload)
		if err != nil {
			c.state = StateFailed
			return nil, err
		}
		c.state = StateDecrypted

		interiorReader := bytes.NewReader(interior)
		secondary, err := optionlist.Decode(interiorReader, 0)
		if err != nil {
			c.state = StateFailed
			return nil, err
		}
		rem := interior[len(interior)-interiorReader.Len():]
		if len(rem) < 8 {
			c.state = StateFailed
			return nil, streamerr.NewFormatError("compressed-payload-len", streamerr.ErrInvalidFormat)
		}
		compressedLen, err := bitio.ReadUint64(bytes.NewReader(rem[:8]))
		if err != nil {
			c.state = StateFailed
			return nil, err
		}
		rem = rem[8:]
		if uint64(len(rem)) < compressedLen+uint64(digestSize) {
			c.state = StateFailed
			return nil, streamerr.NewFormatError("compressed-payload", streamerr.ErrInvalidFormat)
		}
		compressedPayload := rem[:compressedLen]
		plaintextHash := rem[compressedLen : compressedLen+uint64(digestSize)]

		plaintext, err = decompressAll(h.Compression, compressedPayload)
		if err != nil {
			c.state = StateFailed
			return nil, err
		}
		c.state = StateDecompressed

		gotHash, err := mauscrypto.Digest(hashID, plaintext)
		if err != nil {
			c.state = StateFailed
			return nil, err
		}
		if !bitio.ConstantTimeCompare(gotHash, plaintextHash) {
			c.state = StateFailed
			log.Warn("plaintext hash mismatch after decryption, entry rejected")
			return nil, streamerr.ErrIntegrityFailure
		}

		mask := byte(0)
		if maskBytes, ok := streamheader.GetBytes(h, streamheader.OptEncryptedOptions); ok && len(maskBytes) == 1 {
			mask = maskBytes[0]
		}
		path = lookupString(h, secondary, streamheader.OptFilename, mask, encryptedOptionBit(EncryptFilename))
		if v, ok := lookupInt64(h, secondary, streamheader.OptCreatedTime, mask, encryptedOptionBit(EncryptCreatedTime)); ok {
			createdTime = &v
		}
		if v, ok := lookupInt64(h, secondary, streamheader.OptModifiedTime, mask, encryptedOptionBit(EncryptModifiedTime)); ok {
			modifiedTime = &v
		}
		comment = lookupString(h, secondary, streamheader.OptComment, mask, encryptedOptionBit(EncryptComment))
	}

	c.state = StateVerified

	if err := streamheader.ValidateSignatureKind(encrypted, sigDigestKind); err != nil {
		c.state = StateFailed
		return nil, err
	}

	verifiedIDs, unverifiedIDs, err := c.verifySignatures(sigStream, opts.Verifiers, hashID, integrity)
	if err != nil {
		c.state = StateFailed
		return nil, err
	}

	c.state = StateClosed
	log.Debug("entry decoded", log.String("path", path), log.Int("plaintext-bytes", len(plaintext)))
	return &DecodedEntry{
		Header:           h,
		Plaintext:        plaintext,
		Path:             path,
		CreatedTime:      createdTime,
		ModifiedTime:     modifiedTime,
		Comment:          comment,
		Integrity:        integrity,
		VerifiedKeyIDs:   verifiedIDs,
		UnverifiedKeyIDs: unverifiedIDs,
	}, nil
}

// deriveKey recovers the content-encryption subkeys for an encrypted entry,
// preferring an RSA-unwrapped key over password-based derivation when both
// a wrapped key and a private key are available. The returned context owns
// all recovered key material; the caller must Close it.
func (c *DecompressCodec) deriveKey(h *streamheader.StreamHeader, opts OpenOptions, salt []byte, wireIterCount int64, hashID mauscrypto.HashID, digestSize int) (*mauscrypto.CryptoContext, error) {
	wrapped, hasWrapped := streamheader.GetBytes(h, streamheader.OptWrappedKey)

	if hasWrapped && opts.RSAPrivateKey != nil {
		contentKey, err := mauscrypto.UnwrapKey(opts.RSAPrivateKey, wrapped)
		if err != nil {
			return nil, err
		}
		keyBits, _ := streamheader.GetUint16(h, streamheader.OptAESKeyBits)
		if wantLen, err := mauscrypto.AESKeySize(int(keyBits)); err != nil || len(contentKey) != wantLen {
			mauscrypto.SecureZero(contentKey)
			return nil, streamerr.NewFormatError("aes-key-bits", streamerr.ErrInvalidFormat)
		}
		// The unwrapped key is the cipher key directly; only the MAC key
		// still needs an HKDF split, so it never doubles as the cipher key.
		_, macKey, err := mauscrypto.DeriveSubkeys(contentKey, nil, 0, digestSize)
		if err != nil {
			mauscrypto.SecureZero(contentKey)
			return nil, err
		}
		return &mauscrypto.CryptoContext{CipherKey: contentKey, MacKey: macKey, WrappedKey: append([]byte(nil), wrapped...)}, nil
	}

	var master []byte
	if len(opts.Password) > 0 {
		total, err := mauscrypto.DecodeCycleCount(wireIterCount)
		if err != nil {
			return nil, err
		}
		master, err = mauscrypto.DerivePasswordKey(opts.Password, salt, total, hashID)
		if err != nil {
			return nil, err
		}
	} else if len(opts.RawKey) > 0 {
		master = opts.RawKey
	} else {
		return nil, streamerr.Wrap(streamerr.ErrInvalidState, "no password, raw key, or private key available to open entry")
	}

	keyBits, _ := streamheader.GetUint16(h, streamheader.OptAESKeyBits)
	cipherKeyLen, err := mauscrypto.AESKeySize(int(keyBits))
	if err != nil {
		mauscrypto.SecureZero(master)
		return nil, err
	}
	cipherKey, macKey, err := mauscrypto.DeriveSubkeys(master, nil, cipherKeyLen, digestSize)
	if err != nil {
		mauscrypto.SecureZero(master)
		return nil, err
	}
	return &mauscrypto.CryptoContext{Master: master, CipherKey: cipherKey, MacKey: macKey}, nil
}

// verifySignatures reads the trailing signature blocks written by
// writeSignatures and checks each against its matching configured
// Verifier, per §7 ("non-fatal" signature handling). digest is the HMAC or
// plaintext hash, per kind.
func (c *DecompressCodec) verifySignatures(r io.Reader, verifiers []Verifier, hashID mauscrypto.HashID, digest []byte) (verified, unverified []string, err error) {
	count, err := bitio.ReadUint16(r)
	if err != nil {
		if err == io.EOF {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("read signature count: %w", err)
	}
	for i := uint16(0); i < count; i++ {
		alg, err := bitio.ReadUint16(r)
		if err != nil {
			return verified, unverified, fmt.Errorf("read signature algorithm: %w", err)
		}
		keyIDBytes, err := bitio.ReadBytes16(r, 0)
		if err != nil {
			return verified, unverified, fmt.Errorf("read signature key-id: %w", err)
		}
		sig, err := bitio.ReadBytes16(r, 0)
		if err != nil {
			return verified, unverified, fmt.Errorf("read signature bytes: %w", err)
		}
		keyID := string(keyIDBytes)

		v, ok := findVerifier(verifiers, mauscrypto.SignatureAlgorithm(alg), keyID)
		if !ok {
			log.Warn("no verifier configured for signature", log.String("key-id", keyID))
			unverified = append(unverified, keyID)
			continue
		}
		if verifyDigest(v, hashID, digest, sig) != nil {
			log.Warn("signature failed verification", log.String("key-id", keyID))
			unverified = append(unverified, keyID)
			continue
		}
		verified = append(verified, keyID)
		c.bus.SignatureVerified(-1, keyID)
	}
	return verified, unverified, nil
}

func findVerifier(verifiers []Verifier, alg mauscrypto.SignatureAlgorithm, keyID string) (Verifier, bool) {
	for _, v := range verifiers {
		if v.Algorithm == alg && (v.KeyID == "" || v.KeyID == keyID) {
			return v, true
		}
	}
	return Verifier{}, false
}

func verifyDigest(v Verifier, hashID mauscrypto.HashID, digest, sig []byte) error {
	switch v.Algorithm {
	case mauscrypto.SignatureRSA:
		return mauscrypto.VerifyRSA(v.RSAPublicKey, hashID, digest, sig)
	case mauscrypto.SignatureDSA:
		return mauscrypto.VerifyDSA(v.DSAPublicKey, digest, sig)
	case mauscrypto.SignatureECDSA:
		return mauscrypto.VerifyECDSA(v.ECDSAPublicKey, digest, sig)
	default:
		return streamerr.Wrap(streamerr.ErrUnsupportedFeature, "signature algorithm")
	}
}

func digestLen(id mauscrypto.HashID) (int, error) {
	d, err := mauscrypto.Digest(id, nil)
	if err != nil {
		return 0, err
	}
	return len(d), nil
}

func decompressAll(id streamheader.CompressionID, compressed []byte) ([]byte, error) {
	dr, err := NewDecompressReader(id, bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	out, err := io.ReadAll(dr)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	return out, nil
}

// reencodeHeader re-serializes h exactly as Writer.WriteHeader produced it,
// so the integrity tag's pre-image matches byte-for-byte (§4.1.2 step 5's
// "primary-header-bytes"). wantLen is the byte count ReadHeader reported
// consuming, used only as a sanity check.
func reencodeHeader(h *streamheader.StreamHeader, wantLen int) ([]byte, error) {
	var buf bytes.Buffer
	n, err := streamheader.NewWriter(&buf).WriteHeader(h)
	if err != nil {
		return nil, err
	}
	if n != wantLen {
		return nil, streamerr.NewFormatError("primary-header-bytes", streamerr.ErrInvalidFormat)
	}
	return buf.Bytes(), nil
}

func lookupString(h *streamheader.StreamHeader, secondary *optionlist.List, key string, mask, bit byte) string {
	if mask&bit != 0 {
		if opt, ok := secondary.Get(key); ok && len(opt.Values) > 0 {
			s, _ := optionlist.AsString(opt.Values[0])
			return s
		}
		return ""
	}
	s, _ := streamheader.GetString(h, key)
	return s
}

func lookupInt64(h *streamheader.StreamHeader, secondary *optionlist.List, key string, mask, bit byte) (int64, bool) {
	if mask&bit != 0 {
		if opt, ok := secondary.Get(key); ok && len(opt.Values) > 0 {
			return optionlist.AsInt64(opt.Values[0])
		}
		return 0, false
	}
	return streamheader.GetInt64(h, key)
}
