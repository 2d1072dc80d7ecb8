package streamheader

import (
	"fmt"
	"io"

	"github.com/mausctl/maus/internal/bitio"
	streamerr "github.com/mausctl/maus/internal/errors"
	"github.com/mausctl/maus/internal/optionlist"
)

// Reader handles reading StreamHeaders from an input stream.
type Reader struct {
	r io.Reader
}

// NewReader creates a header reader for the given input stream.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// maxOptionFieldLen bounds the key/value byte strings the primary option
// list decoder will allocate for a single entry stream header.
const maxOptionFieldLen = 65536

// ReadHeader reads and validates magic + version (§4.1.3 step 1), then
// parses the primary option list (step 2). A magic or version mismatch is
// reported as ErrInvalidFormat.
func (r *Reader) ReadHeader() (*StreamHeader, int, error) {
	var totalRead int
	h := &StreamHeader{}

	n, err := io.ReadFull(r.r, h.Magic[:])
	totalRead += n
	if err != nil {
		return nil, totalRead, fmt.Errorf("read magic: %w", err)
	}
	if h.Magic != EntryMagic {
		return nil, totalRead, streamerr.NewFormatError("magic", streamerr.ErrInvalidFormat)
	}

	h.Version, err = bitio.ReadUint16(r.r)
	if err != nil {
		return nil, totalRead, fmt.Errorf("read version: %w", err)
	}
	totalRead += 2
	if !IsRecognizedVersion(h.Version) {
		return nil, totalRead, streamerr.NewFormatError("version", streamerr.ErrInvalidFormat)
	}

	compID, err := bitio.ReadUint16(r.r)
	if err != nil {
		return nil, totalRead, fmt.Errorf("read compression-id: %w", err)
	}
	totalRead += 2
	h.Compression = CompressionID(compID)

	encID, err := bitio.ReadUint16(r.r)
	if err != nil {
		return nil, totalRead, fmt.Errorf("read encryption-id: %w", err)
	}
	totalRead += 2
	h.Encryption = EncryptionID(encID)

	h.HashFn, err = bitio.ReadUint16(r.r)
	if err != nil {
		return nil, totalRead, fmt.Errorf("read hash-fn-id: %w", err)
	}
	totalRead += 2

	cr := &countingReader{r: r.r}
	h.Options, err = optionlist.Decode(cr, maxOptionFieldLen)
	if err != nil {
		return nil, totalRead, fmt.Errorf("read primary option list: %w", err)
	}
	totalRead += cr.n

	return h, totalRead, nil
}

// countingReader tracks bytes read through it so ReadHeader can report the
// exact primary-header-bytes length the HMAC/signature pre-image needs.
type countingReader struct {
	r io.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}

// GetString returns the string value of a primary option, if present.
func GetString(h *StreamHeader, key string) (string, bool) {
	opt, ok := h.Options.Get(key)
	if !ok || len(opt.Values) == 0 {
		return "", false
	}
	s, err := optionlist.AsString(opt.Values[0])
	if err != nil {
		return "", false
	}
	return s, true
}

// GetUint16 returns the uint16 value of a primary option, if present.
func GetUint16(h *StreamHeader, key string) (uint16, bool) {
	opt, ok := h.Options.Get(key)
	if !ok || len(opt.Values) == 0 {
		return 0, false
	}
	return optionlist.AsUint16(opt.Values[0])
}

// GetInt64 returns the int64 value of a primary option, if present.
func GetInt64(h *StreamHeader, key string) (int64, bool) {
	opt, ok := h.Options.Get(key)
	if !ok || len(opt.Values) == 0 {
		return 0, false
	}
	return optionlist.AsInt64(opt.Values[0])
}

// GetBytes returns the raw bytes of a primary option, if present.
func GetBytes(h *StreamHeader, key string) ([]byte, bool) {
	opt, ok := h.Options.Get(key)
	if !ok || len(opt.Values) == 0 {
		return nil, false
	}
	return opt.Values[0], true
}
