package streamcodec

import (
	"bytes"
	"fmt"

	"github.com/mausctl/maus/internal/bitio"
	"github.com/mausctl/maus/internal/crypto"
	streamerr "github.com/mausctl/maus/internal/errors"
	"github.com/mausctl/maus/internal/log"
	"github.com/mausctl/maus/internal/optionlist"
	"github.com/mausctl/maus/internal/payload"
	"github.com/mausctl/maus/internal/progressbus"
	"github.com/mausctl/maus/internal/streamheader"
	"github.com/mausctl/maus/internal/util"
)

// aesBlockSize is the AES block length in bytes (IV length = block length
// per §6's key-size table).
const aesBlockSize = 16

// encryptedOptionBit returns the bitmask position an EncryptedOption
// occupies inside the primary header's OptEncryptedOptions byte.
func encryptedOptionBit(opt EncryptedOption) byte {
	switch opt {
	case EncryptFilename:
		return 1 << 0
	case EncryptCreatedTime:
		return 1 << 1
	case EncryptModifiedTime:
		return 1 << 2
	case EncryptComment:
		return 1 << 3
	default:
		return 0
	}
}

// CompressCodec is a StreamCodec in compress-mode: Open → Configured →
// Writing → Finalizing → Emitted → Closed (§4.1.1). It is single-use: once
// Finish has run, construct a new codec for the next entry.
type CompressCodec struct {
	cfg   Config
	state State
	bus   *progressbus.Bus

	plaintext *payload.BufferedPayload

	// keys holds the content-encryption/MAC subkeys and wrapped-key bytes
	// for an encrypted entry; nil for an unencrypted one. Close zeroes it.
	keys *crypto.CryptoContext

	// Integrity is populated after Finish: the plaintext hash for an
	// unencrypted entry, or the HMAC tag for an encrypted one.
	Integrity []byte
}

// NewCompressCodec validates cfg and returns a codec ready to receive
// plaintext via Write. bus may be nil for headless operation.
func NewCompressCodec(cfg Config, bus *progressbus.Bus) (*CompressCodec, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.EncryptedOptions == nil {
		cfg.EncryptedOptions = map[EncryptedOption]bool{}
	}
	return &CompressCodec{
		cfg:       cfg,
		state:     StateConfigured,
		bus:       bus,
		plaintext: payload.New(),
	}, nil
}

// Write appends plaintext bytes to the codec's buffered payload. The first
// call transitions Configured → Writing, after which the configuration is
// immutable (§4.1.1: "config mutations allowed until first byte written").
func (c *CompressCodec) Write(p []byte) (int, error) {
	if c.state != StateConfigured && c.state != StateWriting {
		return 0, streamerr.Wrap(streamerr.ErrInvalidState, "write called outside Configured/Writing")
	}
	c.state = StateWriting
	if err := c.plaintext.Append(p); err != nil {
		c.state = StateFailed
		return 0, err
	}
	// Total size isn't known until Finish, since Write may be called
	// incrementally; -1 signals "total unknown" to the sink.
	c.bus.PayloadChunk(-1, c.plaintext.Len(), -1)
	return len(p), nil
}

// Finish runs the write path to completion (§4.1.2) and appends the full
// framed entry to sink: magic, version, primary option list, ciphertext (or
// cleartext), HMAC (or plaintext-hash), and any signature blocks.
func (c *CompressCodec) Finish(sink *bytes.Buffer) error {
	if c.state != StateConfigured && c.state != StateWriting {
		return streamerr.Wrap(streamerr.ErrInvalidState, "finish called outside Configured/Writing")
	}
	c.state = StateFinalizing
	log.Debug("encoding entry", log.String("path", c.cfg.Path))

	plaintextBytes, err := readAll(c.plaintext)
	if err != nil {
		c.state = StateFailed
		return err
	}

	var compressed bytes.Buffer
	cw, err := NewCompressWriter(c.cfg.Compression, &compressed)
	if err != nil {
		c.state = StateFailed
		return err
	}
	if _, err := cw.Write(plaintextBytes); err != nil {
		c.state = StateFailed
		return fmt.Errorf("compress: %w", err)
	}
	if err := cw.Close(); err != nil {
		c.state = StateFailed
		return fmt.Errorf("compress: %w", err)
	}

	plaintextHash, err := crypto.Digest(c.cfg.HashFn, plaintextBytes)
	if err != nil {
		c.state = StateFailed
		return err
	}

	h := streamheader.New(c.cfg.Version, c.cfg.Compression, c.cfg.Encryption, uint16(c.cfg.HashFn))
	encrypted := c.cfg.isEncrypted()

	var hmacTag []byte
	if !encrypted {
		if err := c.populateUnencryptedOptions(h, len(compressed.Bytes())); err != nil {
			c.state = StateFailed
			return err
		}
		if _, err := streamheader.NewWriter(sink).WriteHeader(h); err != nil {
			c.state = StateFailed
			return err
		}
		sink.Write(compressed.Bytes())
		sink.Write(plaintextHash)
		c.Integrity = plaintextHash
	} else {
		ciphertext, iv, primaryHeaderBytes, err := c.encryptEntry(sink, h, compressed.Bytes(), plaintextHash)
		if err != nil {
			c.state = StateFailed
			return err
		}
		tag, err := streamheader.ComputeIntegrityTag(c.keys.MacKey, c.cfg.HashFn, iv, ciphertext, primaryHeaderBytes)
		if err != nil {
			c.state = StateFailed
			return err
		}
		hmacTag = tag
		sink.Write(ciphertext)
		sink.Write(hmacTag)
		c.Integrity = hmacTag
		c.bus.HMACComputed(-1, c.cfg.Path)
	}

	c.bus.HeaderWritten(-1, c.cfg.Path)

	if err := c.writeSignatures(sink, encrypted, plaintextHash, hmacTag); err != nil {
		c.state = StateFailed
		return err
	}

	c.state = StateEmitted
	log.Debug("entry encoded", log.String("path", c.cfg.Path), log.Bool("encrypted", encrypted), log.Int("plaintext-bytes", len(plaintextBytes)))
	return nil
}

// Close releases the codec's buffered payload and any key material. Safe
// to call more than once.
func (c *CompressCodec) Close() {
	if c.state == StateClosed {
		return
	}
	if c.plaintext != nil {
		c.plaintext.Close()
	}
	if c.keys != nil {
		c.keys.Close()
	}
	c.state = StateClosed
}

func readAll(p *payload.BufferedPayload) ([]byte, error) {
	if err := p.Reset(); err != nil {
		return nil, err
	}
	buf := make([]byte, p.Len())
	if p.Len() > 0 {
		if _, err := p.Read(buf); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// populateUnencryptedOptions fills the primary option list for an
// unencrypted entry: every option lives in the clear, since there is no
// secondary list to hide anything in.
func (c *CompressCodec) populateUnencryptedOptions(h *streamheader.StreamHeader, payloadLen int) error {
	if err := streamheader.SetString(h, streamheader.OptFilename, c.cfg.Path); err != nil {
		return err
	}
	if c.cfg.CreatedTime != nil {
		if err := streamheader.SetInt64(h, streamheader.OptCreatedTime, c.cfg.CreatedTime.Unix()); err != nil {
			return err
		}
	}
	if c.cfg.ModifiedTime != nil {
		if err := streamheader.SetInt64(h, streamheader.OptModifiedTime, c.cfg.ModifiedTime.Unix()); err != nil {
			return err
		}
	}
	if c.cfg.Comment != "" {
		if err := streamheader.SetString(h, streamheader.OptComment, c.cfg.Comment); err != nil {
			return err
		}
	}
	if err := streamheader.SetInt64(h, streamheader.OptPayloadLen, int64(payloadLen)); err != nil {
		return err
	}
	return mergeUserOptions(h, c.cfg.UserOptions)
}

// encryptEntry derives the content-encryption key, builds the secondary
// (encrypted) option list, AES-CBC encrypts it alongside the compressed
// payload and plaintext hash, and writes the primary header (with
// everything the decoder needs to locate and decrypt that blob) to sink.
// It returns the ciphertext, the IV, and the exact primary-header bytes so
// the caller can compute the integrity tag over them.
func (c *CompressCodec) encryptEntry(sink *bytes.Buffer, h *streamheader.StreamHeader, compressedPayload, plaintextHash []byte) (ciphertext, iv, primaryHeaderBytes []byte, err error) {
	salt, err := util.RandomBytes(16)
	if err != nil {
		return nil, nil, nil, err
	}
	iv, err = util.RandomBytes(aesBlockSize)
	if err != nil {
		return nil, nil, nil, err
	}

	var master []byte
	wireIterCount := int64(0)
	if len(c.cfg.Password) > 0 {
		if c.cfg.PBKDF2Cycles < crypto.MinWireIterations {
			return nil, nil, nil, streamerr.NewFormatError("pbkdf2-iter-count", streamerr.ErrInvalidFormat)
		}
		master, err = crypto.DerivePasswordKey(c.cfg.Password, salt, c.cfg.PBKDF2Cycles, c.cfg.HashFn)
		if err != nil {
			return nil, nil, nil, err
		}
		wireIterCount = crypto.EncodeCycleCount(c.cfg.PBKDF2Cycles)
	} else {
		master = append([]byte(nil), c.cfg.RawKey...)
	}
	defer crypto.SecureZero(master)

	cipherKeyLen, err := crypto.AESKeySize(c.cfg.AESKeyBits)
	if err != nil {
		return nil, nil, nil, err
	}
	cipherKey, macKey, err := crypto.DeriveSubkeys(master, nil, cipherKeyLen, len(plaintextHash))
	if err != nil {
		return nil, nil, nil, err
	}
	c.keys = &crypto.CryptoContext{CipherKey: cipherKey, MacKey: macKey}

	secondary := optionlist.New()
	if c.cfg.encrypts(EncryptFilename) {
		if err := secondary.Set(streamheader.OptFilename, 1, []byte(c.cfg.Path)); err != nil {
			return nil, nil, nil, err
		}
	} else if err := streamheader.SetString(h, streamheader.OptFilename, c.cfg.Path); err != nil {
		return nil, nil, nil, err
	}
	if c.cfg.encrypts(EncryptCreatedTime) && c.cfg.CreatedTime != nil {
		if err := secondary.Set(streamheader.OptCreatedTime, 1, optionlist.Int64Value(c.cfg.CreatedTime.Unix())); err != nil {
			return nil, nil, nil, err
		}
	} else if c.cfg.CreatedTime != nil {
		if err := streamheader.SetInt64(h, streamheader.OptCreatedTime, c.cfg.CreatedTime.Unix()); err != nil {
			return nil, nil, nil, err
		}
	}
	if c.cfg.encrypts(EncryptModifiedTime) && c.cfg.ModifiedTime != nil {
		if err := secondary.Set(streamheader.OptModifiedTime, 1, optionlist.Int64Value(c.cfg.ModifiedTime.Unix())); err != nil {
			return nil, nil, nil, err
		}
	} else if c.cfg.ModifiedTime != nil {
		if err := streamheader.SetInt64(h, streamheader.OptModifiedTime, c.cfg.ModifiedTime.Unix()); err != nil {
			return nil, nil, nil, err
		}
	}
	if c.cfg.encrypts(EncryptComment) && c.cfg.Comment != "" {
		if err := secondary.Set(streamheader.OptComment, 1, []byte(c.cfg.Comment)); err != nil {
			return nil, nil, nil, err
		}
	} else if c.cfg.Comment != "" {
		if err := streamheader.SetString(h, streamheader.OptComment, c.cfg.Comment); err != nil {
			return nil, nil, nil, err
		}
	}
	if err := mergeUserOptions2(secondary, c.cfg.UserOptions); err != nil {
		return nil, nil, nil, err
	}

	var secondaryBuf bytes.Buffer
	if err := secondary.Encode(&secondaryBuf); err != nil {
		return nil, nil, nil, err
	}

	var interior bytes.Buffer
	interior.Write(secondaryBuf.Bytes())
	if err := bitio.WriteUint64(&interior, uint64(len(compressedPayload))); err != nil {
		return nil, nil, nil, err
	}
	interior.Write(compressedPayload)
	interior.Write(plaintextHash)

	ciphertext, err = crypto.EncryptCBC(c.keys.CipherKey, iv, interior.Bytes())
	if err != nil {
		return nil, nil, nil, err
	}

	if err := streamheader.SetBytes(h, streamheader.OptSalt, salt); err != nil {
		return nil, nil, nil, err
	}
	if err := streamheader.SetBytes(h, streamheader.OptIV, iv); err != nil {
		return nil, nil, nil, err
	}
	if err := streamheader.SetInt64(h, streamheader.OptIterCount, wireIterCount); err != nil {
		return nil, nil, nil, err
	}
	if err := streamheader.SetUint16(h, streamheader.OptAESKeyBits, uint16(c.cfg.AESKeyBits)); err != nil {
		return nil, nil, nil, err
	}
	if err := streamheader.SetInt64(h, streamheader.OptPayloadLen, int64(len(ciphertext))); err != nil {
		return nil, nil, nil, err
	}

	var mask byte
	for opt, on := range c.cfg.EncryptedOptions {
		if on {
			mask |= encryptedOptionBit(opt)
		}
	}
	if err := streamheader.SetBytes(h, streamheader.OptEncryptedOptions, []byte{mask}); err != nil {
		return nil, nil, nil, err
	}

	if c.cfg.RecipientPublicKey != nil {
		wrapped, err := crypto.WrapKey(c.cfg.RecipientPublicKey, c.keys.CipherKey)
		if err != nil {
			return nil, nil, nil, err
		}
		c.keys.WrappedKey = wrapped
		if err := streamheader.SetBytes(h, streamheader.OptWrappedKey, wrapped); err != nil {
			return nil, nil, nil, err
		}
	}

	var headerBuf bytes.Buffer
	if _, err := streamheader.NewWriter(&headerBuf).WriteHeader(h); err != nil {
		return nil, nil, nil, err
	}
	sink.Write(headerBuf.Bytes())

	return ciphertext, iv, headerBuf.Bytes(), nil
}

// writeSignatures appends one signature block per configured Signer, each
// computed over the HMAC (encrypted entries) or the plaintext hash
// (unencrypted entries) per §4.1.2 step 6 — never both.
func (c *CompressCodec) writeSignatures(sink *bytes.Buffer, encrypted bool, plaintextHash, hmacTag []byte) error {
	digest, _ := streamheader.SignaturePreimage(encrypted, hmacTag, plaintextHash)

	if err := bitio.WriteUint16(sink, uint16(len(c.cfg.Signers))); err != nil {
		return err
	}
	for _, s := range c.cfg.Signers {
		sig, err := signDigest(s, c.cfg.HashFn, digest)
		if err != nil {
			return err
		}
		if err := bitio.WriteUint16(sink, uint16(s.Algorithm)); err != nil {
			return err
		}
		if err := bitio.WriteBytes16(sink, []byte(s.KeyID)); err != nil {
			return err
		}
		if err := bitio.WriteBytes16(sink, sig); err != nil {
			return err
		}
	}
	return nil
}

func signDigest(s Signer, hashFn crypto.HashID, digest []byte) ([]byte, error) {
	switch s.Algorithm {
	case crypto.SignatureRSA:
		return crypto.SignRSA(s.RSAPrivateKey, hashFn, digest)
	case crypto.SignatureDSA:
		return crypto.SignDSA(s.DSAPrivateKey, digest)
	case crypto.SignatureECDSA:
		return crypto.SignECDSA(s.ECDSAPrivateKey, digest)
	default:
		return nil, streamerr.Wrap(streamerr.ErrUnsupportedFeature, "signature algorithm")
	}
}

func mergeUserOptions(h *streamheader.StreamHeader, user *optionlist.List) error {
	if user == nil {
		return nil
	}
	for _, opt := range user.Entries() {
		if err := h.Options.Set(opt.Key, opt.Version, opt.Values...); err != nil {
			return err
		}
	}
	return nil
}

func mergeUserOptions2(dst *optionlist.List, user *optionlist.List) error {
	if user == nil {
		return nil
	}
	for _, opt := range user.Entries() {
		if err := dst.Set(opt.Key, opt.Version, opt.Values...); err != nil {
			return err
		}
	}
	return nil
}
