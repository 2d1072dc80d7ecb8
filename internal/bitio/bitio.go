// Package bitio provides the low-level wire primitives shared by every
// maus/mauz decoder and encoder: little-endian fixed-width integers,
// length-prefixed byte strings, a strict UTF-8 decoder, and a constant-time
// byte compare. Nothing in this package allocates more than the bytes it is
// asked to produce or consume.
package bitio

import (
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"
)

// MaxFieldLength is the largest length a 16-bit length-prefixed field can
// declare. A wire value of 0 means this maximum, not zero (see DecodeLength16).
const MaxFieldLength = 65536

// WriteUint16 writes v as a little-endian uint16.
func WriteUint16(w io.Writer, v uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

// ReadUint16 reads a little-endian uint16.
func ReadUint16(r io.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

// WriteUint64 writes v as a little-endian uint64.
func WriteUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

// ReadUint64 reads a little-endian uint64.
func ReadUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// WriteInt64 writes v as a little-endian int64.
func WriteInt64(w io.Writer, v int64) error {
	return WriteUint64(w, uint64(v))
}

// ReadInt64 reads a little-endian int64.
func ReadInt64(r io.Reader) (int64, error) {
	v, err := ReadUint64(r)
	if err != nil {
		return 0, err
	}
	return int64(v), nil
}

// EncodeLength16 converts an actual length in [1, 65536] to its wire
// representation, where 65536 is encoded as the wire value 0. Lengths
// outside that range cannot be represented by a 16-bit length-prefixed
// field and return an error.
func EncodeLength16(n int) (uint16, error) {
	if n <= 0 || n > MaxFieldLength {
		return 0, fmt.Errorf("bitio: length %d out of range [1, %d]", n, MaxFieldLength)
	}
	if n == MaxFieldLength {
		return 0, nil
	}
	return uint16(n), nil
}

// DecodeLength16 converts a wire-encoded 16-bit length back to its actual
// value, applying the "0 means 65536" dialect convention.
func DecodeLength16(wire uint16) int {
	if wire == 0 {
		return MaxFieldLength
	}
	return int(wire)
}

// WriteBytes16 writes a 16-bit-length-prefixed byte string using the
// "0 means 65536" convention.
func WriteBytes16(w io.Writer, data []byte) error {
	wireLen, err := EncodeLength16(len(data))
	if err != nil {
		return err
	}
	if err := WriteUint16(w, wireLen); err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// ReadBytes16 reads a 16-bit-length-prefixed byte string. maxLen bounds how
// many bytes this call will allocate/read, guarding against a hostile length
// field; pass 0 to accept up to MaxFieldLength.
func ReadBytes16(r io.Reader, maxLen int) ([]byte, error) {
	wire, err := ReadUint16(r)
	if err != nil {
		return nil, err
	}
	n := DecodeLength16(wire)
	if maxLen > 0 && n > maxLen {
		return nil, fmt.Errorf("bitio: length %d exceeds limit %d", n, maxLen)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteVarint7 writes v as a 7-bit-per-byte varint (LEB128-style, least
// significant group first, continuation bit set on every byte but the last).
// Exposed as a BitPrimitives capability for variable-length fields; the
// fixed wire grammars of OptionList, StreamHeader, and ArchiveManifest all
// use fixed-width fields instead, so this is currently only exercised by its
// own tests and future extension points.
func WriteVarint7(w io.Writer, v uint64) error {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		if _, err := w.Write([]byte{b}); err != nil {
			return err
		}
		if v == 0 {
			return nil
		}
	}
}

// ReadVarint7 reads a 7-bit-per-byte varint written by WriteVarint7.
func ReadVarint7(r io.Reader) (uint64, error) {
	var result uint64
	var shift uint
	var b [1]byte
	for {
		if shift >= 64 {
			return 0, fmt.Errorf("bitio: varint overflows 64 bits")
		}
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, err
		}
		result |= uint64(b[0]&0x7f) << shift
		if b[0]&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
}

// DecodeUTF8Strict validates that b is well-formed UTF-8 and returns it as a
// string. Unlike a bare string(b) conversion, it rejects malformed sequences
// instead of substituting the replacement character.
func DecodeUTF8Strict(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", fmt.Errorf("bitio: invalid UTF-8 sequence")
	}
	return string(b), nil
}

// ConstantTimeCompare reports whether a and b are equal using a
// constant-time algorithm, so the comparison's timing does not leak the
// position of the first mismatching byte. Unequal lengths are rejected
// immediately (length is not considered secret).
func ConstantTimeCompare(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}
