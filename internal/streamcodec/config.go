package streamcodec

import (
	"crypto/dsa"
	"crypto/ecdsa"
	"crypto/rsa"
	"time"

	"github.com/mausctl/maus/internal/crypto"
	streamerr "github.com/mausctl/maus/internal/errors"
	"github.com/mausctl/maus/internal/optionlist"
	"github.com/mausctl/maus/internal/streamheader"
)

// EncryptedOption names a primary-list field that, when AES encryption is
// active, is carried in the secondary (encrypted) option list instead.
type EncryptedOption string

const (
	EncryptFilename     EncryptedOption = streamheader.OptFilename
	EncryptCreatedTime  EncryptedOption = streamheader.OptCreatedTime
	EncryptModifiedTime EncryptedOption = streamheader.OptModifiedTime
	EncryptComment      EncryptedOption = streamheader.OptComment
)

// Signer configures one asymmetric signature to attach on Finish.
type Signer struct {
	Algorithm crypto.SignatureAlgorithm
	KeyID     string // optional, embedded alongside the signature block

	RSAPrivateKey   *rsa.PrivateKey
	DSAPrivateKey   *dsa.PrivateKey
	ECDSAPrivateKey *ecdsa.PrivateKey
}

// Verifier configures one public key available to check a signature block
// encountered during decode.
type Verifier struct {
	Algorithm crypto.SignatureAlgorithm
	KeyID     string

	RSAPublicKey   *rsa.PublicKey
	DSAPublicKey   *dsa.PublicKey
	ECDSAPublicKey *ecdsa.PublicKey
}

// Config is the capability composition a StreamCodec is constructed with
// (§9): CompressionTransform, HashFn, Cipher, and Signer variants, bound
// once at construction and immutable after the codec leaves StateConfigured.
type Config struct {
	Version     uint16
	Compression streamheader.CompressionID
	Encryption  streamheader.EncryptionID
	HashFn      crypto.HashID

	// AESKeyBits selects the AES key size (128/192/256) when Encryption is
	// EncryptionAES.
	AESKeyBits int

	// PBKDF2Cycles is the user-visible PBKDF2 iteration count; the wire
	// value stored is PBKDF2Cycles-crypto.CycleOffset (§6).
	PBKDF2Cycles int64

	// Password derives the content-encryption key via PBKDF2-HMAC-SHA*
	// when set. RawKey, if set instead, takes the place of the PBKDF2
	// output as the master secret the cipher and MAC subkeys are
	// HKDF-derived from; its length is not checked against AESKeyBits.
	Password []byte
	RawKey   []byte

	// RecipientPublicKey, if set, wraps the content-encryption key under
	// RSA-OAEP and stores it as a primary-list option (the supplemented
	// "wrapped key" procedure).
	RecipientPublicKey *rsa.PublicKey

	Signers []Signer

	// Path is the entry's logical path; EncryptedOptions lists which of
	// Path/CreatedTime/ModifiedTime/Comment move into the secondary list
	// when encryption is active.
	Path             string
	EncryptedOptions map[EncryptedOption]bool
	CreatedTime      *time.Time
	ModifiedTime     *time.Time
	Comment          string
	UserOptions      *optionlist.List
}

// isEncrypted reports whether this config encrypts the payload.
func (cfg *Config) isEncrypted() bool {
	return cfg.Encryption == streamheader.EncryptionAES
}

// encrypts reports whether opt is configured to live in the secondary list.
func (cfg *Config) encrypts(opt EncryptedOption) bool {
	if !cfg.isEncrypted() {
		return false
	}
	return cfg.EncryptedOptions[opt]
}

// Validate checks the configuration is internally consistent before a
// codec is constructed from it.
func (cfg *Config) Validate() error {
	if !streamheader.IsRecognizedVersion(cfg.Version) {
		return streamerr.NewFormatError("version", streamerr.ErrInvalidFormat)
	}
	if cfg.Path == "" {
		return streamerr.NewFormatError("path", streamerr.ErrInvalidFormat)
	}
	if cfg.isEncrypted() {
		if _, err := crypto.AESKeySize(cfg.AESKeyBits); err != nil {
			return err
		}
		if len(cfg.Password) == 0 && len(cfg.RawKey) == 0 {
			return streamerr.Wrap(streamerr.ErrInvalidState, "encryption requires a password or raw key")
		}
		if len(cfg.Password) > 0 && cfg.PBKDF2Cycles < crypto.MinWireIterations {
			return streamerr.NewFormatError("pbkdf2-iter-count", streamerr.ErrInvalidFormat)
		}
	}
	if len(cfg.Path) > streamheader.MaxFilenameLen(cfg.Version) {
		return streamerr.Wrap(streamerr.ErrCapacityExceeded, "path exceeds max filename length")
	}
	return nil
}
