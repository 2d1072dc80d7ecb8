// Package streamheader handles .maus stream header reading, writing, and
// authentication. This is AUDIT-CRITICAL code - changes here directly affect
// file format compatibility.
package streamheader

import (
	"github.com/mausctl/maus/internal/optionlist"
)

// Version constants. Only these two wire versions are recognized; cross-version
// negotiation beyond them is out of scope.
const (
	VersionV92 uint16 = 92
	VersionV93 uint16 = 93

	CurrentVersion = VersionV93
)

// MaxFilenameLenV92 and MaxFilenameLenV93 bound a path's UTF-8 byte length,
// per version.
const (
	MaxFilenameLenV92 = 254
	MaxFilenameLenV93 = 255
)

// Magic tags. Entry and archive streams use distinct 4-byte magics so a
// decoder can reject a `.mauz` archive fed to the single-entry decoder and
// vice versa.
var (
	EntryMagic   = [4]byte{'M', 'A', 'U', 'S'}
	ArchiveMagic = [4]byte{'M', 'A', 'U', 'Z'}
)

// CompressionID identifies the payload compression transform.
type CompressionID uint16

const (
	CompressionNone CompressionID = 0
	CompressionDeflate CompressionID = 1
	CompressionLzma CompressionID = 2
)

// EncryptionID identifies the payload encryption algorithm.
type EncryptionID uint16

const (
	EncryptionNone EncryptionID = 0
	EncryptionAES  EncryptionID = 1
)

// Primary option list keys. Values are the opaque byte-string encodings
// produced by internal/optionlist (AsString/AsUint16/AsInt64 and their
// inverse Uint16Value/Int64Value helpers).
const (
	OptSalt             = "salt"
	OptIV               = "iv"
	OptIterCount        = "iter"
	OptWrappedKey        = "wrapped-key"
	OptPayloadLen        = "payload-len"
	OptAESKeyBits        = "aes-key-bits"
	OptFilename          = "filename"
	OptCreatedTime       = "ctime"
	OptModifiedTime      = "mtime"
	OptComment           = "comment"
	OptEncryptedOptions  = "encrypted-options"
	OptKeyID             = "key-id"
)

// optionVersion is the fixed per-key version tag written into every option
// entry (§4.3 requires version ≠ 0; this format does not yet define multiple
// revisions of any key, so every key uses version 1).
const optionVersion uint16 = 1

// StreamHeader is the on-wire header of a single .maus entry, per §3's
// StreamHeader data model.
type StreamHeader struct {
	Magic       [4]byte
	Version     uint16
	Compression CompressionID
	Encryption  EncryptionID
	HashFn      uint16 // crypto.HashID value, stored as its raw wire id
	Options     *optionlist.List
}

// New builds a header for a fresh entry, with an empty primary option list.
func New(version uint16, compression CompressionID, encryption EncryptionID, hashFn uint16) *StreamHeader {
	return &StreamHeader{
		Magic:       EntryMagic,
		Version:     version,
		Compression: compression,
		Encryption:  encryption,
		HashFn:      hashFn,
		Options:     optionlist.New(),
	}
}

// IsRecognizedVersion reports whether v is one of the two wire versions this
// format recognizes.
func IsRecognizedVersion(v uint16) bool {
	return v == VersionV92 || v == VersionV93
}

// MaxFilenameLen returns the maximum filename byte length for the given wire
// version.
func MaxFilenameLen(version uint16) int {
	if version == VersionV92 {
		return MaxFilenameLenV92
	}
	return MaxFilenameLenV93
}
