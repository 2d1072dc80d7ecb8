// Package optionlist implements the typed key/value option list used for
// both the primary (plaintext) and secondary (encrypted) header fields of a
// .maus stream: an ordered sequence of (key, version, value-sequence)
// entries, wire-compatible across the option lists of every entry and the
// archive-level options of a .mauz container.
package optionlist

import (
	"encoding/binary"
	"io"

	"github.com/mausctl/maus/internal/bitio"
	streamerr "github.com/mausctl/maus/internal/errors"
)

// MaxEntries is the largest number of options a single List may hold.
const MaxEntries = 65535

// Option is one (key, version, values) entry. Keys are short UTF-8
// identifiers; values are opaque byte strings a caller may additionally
// interpret as UTF-8, uint16-LE, or int64-LE via the AsXxx helpers below.
type Option struct {
	Key     string
	Version uint16
	Values  [][]byte
}

// List is an ordered option list. The zero value is an empty, usable list.
type List struct {
	entries []Option
}

// New returns an empty option list.
func New() *List {
	return &List{}
}

// Len returns the number of entries currently in the list.
func (l *List) Len() int {
	return len(l.entries)
}

// Entries returns the list's entries in insertion order. The caller must
// not mutate the returned slice.
func (l *List) Entries() []Option {
	return l.entries
}

// Add appends an option entry. version must be non-zero and key non-empty,
// per the wire invariants of §4.3; adding past MaxEntries fails with
// ErrCapacityExceeded.
func (l *List) Add(key string, version uint16, values ...[]byte) error {
	if key == "" {
		return streamerr.NewFormatError("option-key", streamerr.ErrInvalidFormat)
	}
	if version == 0 {
		return streamerr.NewFormatError("option-version", streamerr.ErrInvalidFormat)
	}
	if len(l.entries) >= MaxEntries {
		return streamerr.Wrap(streamerr.ErrCapacityExceeded, "option list full")
	}
	l.entries = append(l.entries, Option{Key: key, Version: version, Values: values})
	return nil
}

// Set replaces the first entry with the given key, or appends a new one if
// no entry with that key exists yet. Used by header builders that assign an
// option more than once as configuration mutates (§4.1.1: "config mutations
// allowed until first byte written").
func (l *List) Set(key string, version uint16, values ...[]byte) error {
	if key == "" {
		return streamerr.NewFormatError("option-key", streamerr.ErrInvalidFormat)
	}
	if version == 0 {
		return streamerr.NewFormatError("option-version", streamerr.ErrInvalidFormat)
	}
	for i := range l.entries {
		if l.entries[i].Key == key {
			l.entries[i] = Option{Key: key, Version: version, Values: values}
			return nil
		}
	}
	return l.Add(key, version, values...)
}

// Get returns the first entry with the given key, and whether it was found.
// A key with an unrecognized version is still returned; callers decide
// whether an unexpected version is itself an error.
func (l *List) Get(key string) (Option, bool) {
	for _, e := range l.entries {
		if e.Key == key {
			return e, true
		}
	}
	return Option{}, false
}

// AsString interprets a value as a UTF-8 string.
func AsString(v []byte) (string, error) {
	return bitio.DecodeUTF8Strict(v)
}

// AsUint16 interprets a 2-byte value as a little-endian uint16.
func AsUint16(v []byte) (uint16, bool) {
	if len(v) != 2 {
		return 0, false
	}
	return binary.LittleEndian.Uint16(v), true
}

// AsInt64 interprets an 8-byte value as a little-endian int64.
func AsInt64(v []byte) (int64, bool) {
	if len(v) != 8 {
		return 0, false
	}
	return int64(binary.LittleEndian.Uint64(v)), true
}

// Uint16Value encodes v as a 2-byte little-endian value suitable for Add.
func Uint16Value(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

// Int64Value encodes v as an 8-byte little-endian value suitable for Add.
func Int64Value(v int64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(v))
	return b
}

// Encode writes the list to w using the wire grammar of §4.3:
//
//	count: uint16
//	repeated count times:
//	  key-len: uint16      (0 means 65536)
//	  key-bytes: UTF-8
//	  version: uint16      (MUST be != 0)
//	  value-count: uint16
//	  repeated value-count times:
//	    val-len: uint16    (0 means 65536)
//	    val-bytes
func (l *List) Encode(w io.Writer) error {
	if len(l.entries) > MaxEntries {
		return streamerr.Wrap(streamerr.ErrCapacityExceeded, "option list full")
	}
	if err := bitio.WriteUint16(w, uint16(len(l.entries))); err != nil {
		return err
	}
	for _, e := range l.entries {
		if err := bitio.WriteBytes16(w, []byte(e.Key)); err != nil {
			return err
		}
		if err := bitio.WriteUint16(w, e.Version); err != nil {
			return err
		}
		if len(e.Values) > MaxEntries {
			return streamerr.Wrap(streamerr.ErrCapacityExceeded, "option value count")
		}
		if err := bitio.WriteUint16(w, uint16(len(e.Values))); err != nil {
			return err
		}
		for _, v := range e.Values {
			if err := bitio.WriteBytes16(w, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// Decode reads a list from r using the same grammar Encode writes.
// maxFieldLen bounds the size of any single key/value byte string the
// decoder will allocate, guarding against a hostile length field; pass 0 to
// accept the full 65536-byte dialect range.
func Decode(r io.Reader, maxFieldLen int) (*List, error) {
	count, err := bitio.ReadUint16(r)
	if err != nil {
		return nil, err
	}
	l := &List{entries: make([]Option, 0, count)}
	for i := uint16(0); i < count; i++ {
		keyBytes, err := bitio.ReadBytes16(r, maxFieldLen)
		if err != nil {
			return nil, streamerr.NewFormatError("option-key", err)
		}
		key, err := bitio.DecodeUTF8Strict(keyBytes)
		if err != nil {
			return nil, streamerr.NewFormatError("option-key", err)
		}
		if key == "" {
			return nil, streamerr.NewFormatError("option-key", streamerr.ErrInvalidFormat)
		}
		version, err := bitio.ReadUint16(r)
		if err != nil {
			return nil, streamerr.NewFormatError("option-version", err)
		}
		if version == 0 {
			return nil, streamerr.NewFormatError("option-version", streamerr.ErrInvalidFormat)
		}
		valueCount, err := bitio.ReadUint16(r)
		if err != nil {
			return nil, streamerr.NewFormatError("option-value-count", err)
		}
		values := make([][]byte, 0, valueCount)
		for j := uint16(0); j < valueCount; j++ {
			v, err := bitio.ReadBytes16(r, maxFieldLen)
			if err != nil {
				return nil, streamerr.NewFormatError("option-value", err)
			}
			values = append(values, v)
		}
		l.entries = append(l.entries, Option{Key: key, Version: version, Values: values})
	}
	return l, nil
}
