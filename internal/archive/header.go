// Package archive implements ArchiveFramer: a .mauz container of multiple
// .maus entry streams bound together by a manifest whose integrity covers
// every entry. This is AUDIT-CRITICAL code - changes here directly affect
// the container format's compatibility and its tamper-evidence guarantees.
package archive

import (
	"fmt"
	"io"

	"github.com/mausctl/maus/internal/bitio"
	streamerr "github.com/mausctl/maus/internal/errors"
	"github.com/mausctl/maus/internal/optionlist"
	"github.com/mausctl/maus/internal/streamheader"
)

// OptEntryCount is the archive-level option carrying a redundant copy of
// the entry count, alongside the manifest's own count, so a reader can
// size its entry table before decoding the manifest stream.
const OptEntryCount = "entry-count"

// header is the on-wire archive header: magic, version, and an archive-
// level option list. It precedes the manifest entry stream.
type header struct {
	Magic   [4]byte
	Version uint16
	Options *optionlist.List
}

func newHeader(version uint16, entryCount int64) *header {
	opts := optionlist.New()
	opts.Add(OptEntryCount, 1, optionlist.Int64Value(entryCount))
	return &header{Magic: streamheader.ArchiveMagic, Version: version, Options: opts}
}

func writeHeader(w io.Writer, h *header) error {
	if _, err := w.Write(h.Magic[:]); err != nil {
		return fmt.Errorf("write archive magic: %w", err)
	}
	if err := bitio.WriteUint16(w, h.Version); err != nil {
		return fmt.Errorf("write archive version: %w", err)
	}
	if err := h.Options.Encode(w); err != nil {
		return fmt.Errorf("write archive options: %w", err)
	}
	return nil
}

func readHeader(r io.Reader) (*header, error) {
	h := &header{}
	if _, err := io.ReadFull(r, h.Magic[:]); err != nil {
		return nil, fmt.Errorf("read archive magic: %w", err)
	}
	if h.Magic != streamheader.ArchiveMagic {
		return nil, streamerr.NewFormatError("archive-magic", streamerr.ErrInvalidFormat)
	}
	var err error
	h.Version, err = bitio.ReadUint16(r)
	if err != nil {
		return nil, fmt.Errorf("read archive version: %w", err)
	}
	if !streamheader.IsRecognizedVersion(h.Version) {
		return nil, streamerr.NewFormatError("archive-version", streamerr.ErrInvalidFormat)
	}
	h.Options, err = optionlist.Decode(r, 65536)
	if err != nil {
		return nil, fmt.Errorf("read archive options: %w", err)
	}
	return h, nil
}
