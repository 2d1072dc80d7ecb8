package streamheader

import (
	"fmt"
	"io"

	"github.com/mausctl/maus/internal/bitio"
	"github.com/mausctl/maus/internal/optionlist"
)

// Writer writes a StreamHeader to an output stream, accumulating the exact
// byte count written so callers can compute the HMAC/signature pre-image
// over "primary-header-bytes" per §4.1.2 step 5.
type Writer struct {
	w io.Writer
}

// NewWriter creates a header writer for the given output stream.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteHeader writes magic, version, compression-id, encryption-id,
// hash-fn-id, and the primary option list, in that order. Returns the total
// number of bytes written.
func (w *Writer) WriteHeader(h *StreamHeader) (int, error) {
	var totalWritten int

	n, err := w.w.Write(h.Magic[:])
	totalWritten += n
	if err != nil {
		return totalWritten, fmt.Errorf("write magic: %w", err)
	}

	if err := bitio.WriteUint16(w.w, h.Version); err != nil {
		return totalWritten, fmt.Errorf("write version: %w", err)
	}
	totalWritten += 2

	if err := bitio.WriteUint16(w.w, uint16(h.Compression)); err != nil {
		return totalWritten, fmt.Errorf("write compression-id: %w", err)
	}
	totalWritten += 2

	if err := bitio.WriteUint16(w.w, uint16(h.Encryption)); err != nil {
		return totalWritten, fmt.Errorf("write encryption-id: %w", err)
	}
	totalWritten += 2

	if err := bitio.WriteUint16(w.w, h.HashFn); err != nil {
		return totalWritten, fmt.Errorf("write hash-fn-id: %w", err)
	}
	totalWritten += 2

	cw := &countingWriter{w: w.w}
	if err := h.Options.Encode(cw); err != nil {
		return totalWritten, fmt.Errorf("write primary option list: %w", err)
	}
	totalWritten += cw.n

	return totalWritten, nil
}

// countingWriter tracks bytes written through it without altering the
// underlying writer's behavior.
type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}

// SetString sets (or replaces) a string-valued option under key.
func SetString(h *StreamHeader, key string, value string) error {
	return h.Options.Set(key, optionVersion, []byte(value))
}

// SetUint16 sets (or replaces) a uint16-valued option under key.
func SetUint16(h *StreamHeader, key string, value uint16) error {
	return h.Options.Set(key, optionVersion, optionlist.Uint16Value(value))
}

// SetInt64 sets (or replaces) an int64-valued option under key.
func SetInt64(h *StreamHeader, key string, value int64) error {
	return h.Options.Set(key, optionVersion, optionlist.Int64Value(value))
}

// SetBytes sets (or replaces) a raw byte-string option under key.
func SetBytes(h *StreamHeader, key string, value []byte) error {
	return h.Options.Set(key, optionVersion, value)
}
