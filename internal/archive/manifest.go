package archive

import (
	"bytes"
	"fmt"
	"io"

	"github.com/mausctl/maus/internal/bitio"
	streamerr "github.com/mausctl/maus/internal/errors"
)

// sigAll and sigCur are the manifest's record marker tags, preserved
// exactly as the format declares them (§6): the literal 4-byte sequences
// that read as the big-endian integers 0x03534947 and 0x03736967.
var (
	sigAll = [4]byte{0x03, 0x53, 0x49, 0x47}
	sigCur = [4]byte{0x03, 0x73, 0x69, 0x67}
)

// manifestRow is one decoded manifest record.
type manifestRow struct {
	Index     int64
	Path      string
	Integrity []byte
}

// encodeManifest builds the manifest's plaintext per §4.2.1 step 3:
// sigAll ‖ entry-count(8B LE), then for each row sigCur ‖ index(8B LE) ‖
// path-len(1B) ‖ path-bytes ‖ integrity-bytes.
func encodeManifest(rows []manifestRow) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(sigAll[:])
	if err := bitio.WriteUint64(&buf, uint64(len(rows))); err != nil {
		return nil, err
	}
	for _, row := range rows {
		buf.Write(sigCur[:])
		if err := bitio.WriteUint64(&buf, uint64(row.Index)); err != nil {
			return nil, err
		}
		pathBytes := []byte(row.Path)
		if len(pathBytes) > 255 {
			return nil, streamerr.NewFormatError("manifest-path", streamerr.ErrCapacityExceeded)
		}
		buf.WriteByte(byte(len(pathBytes)))
		buf.Write(pathBytes)
		buf.Write(row.Integrity)
	}
	return buf.Bytes(), nil
}

// decodeManifest parses plaintext produced by encodeManifest. integrityLen
// is the fixed digest/tag length of the archive's configured hash
// function, needed because integrity-bytes is not itself length-prefixed.
func decodeManifest(plaintext []byte, integrityLen int) ([]manifestRow, error) {
	r := bytes.NewReader(plaintext)

	var gotSigAll [4]byte
	if _, err := io.ReadFull(r, gotSigAll[:]); err != nil {
		return nil, streamerr.NewManifestError(-1, fmt.Errorf("read sigAll: %w", err))
	}
	if gotSigAll != sigAll {
		return nil, streamerr.NewManifestError(-1, streamerr.ErrInvalidFormat)
	}
	count, err := bitio.ReadUint64(r)
	if err != nil {
		return nil, streamerr.NewManifestError(-1, fmt.Errorf("read entry-count: %w", err))
	}

	rows := make([]manifestRow, 0, count)
	seen := make(map[int64]bool, count)
	for i := uint64(0); i < count; i++ {
		var tag [4]byte
		if _, err := io.ReadFull(r, tag[:]); err != nil {
			return nil, streamerr.NewManifestError(int64(i), fmt.Errorf("read sigCur: %w", err))
		}
		if tag != sigCur {
			return nil, streamerr.NewManifestError(int64(i), streamerr.ErrInvalidFormat)
		}
		index, err := bitio.ReadUint64(r)
		if err != nil {
			return nil, streamerr.NewManifestError(int64(i), fmt.Errorf("read index: %w", err))
		}
		pathLen, err := r.ReadByte()
		if err != nil {
			return nil, streamerr.NewManifestError(int64(i), fmt.Errorf("read path-len: %w", err))
		}
		pathBytes := make([]byte, pathLen)
		if _, err := io.ReadFull(r, pathBytes); err != nil {
			return nil, streamerr.NewManifestError(int64(i), fmt.Errorf("read path-bytes: %w", err))
		}
		integrity := make([]byte, integrityLen)
		if _, err := io.ReadFull(r, integrity); err != nil {
			return nil, streamerr.NewManifestError(int64(i), fmt.Errorf("read integrity: %w", err))
		}
		idx := int64(index)
		if seen[idx] {
			return nil, streamerr.NewManifestError(idx, streamerr.ErrInvalidFormat)
		}
		seen[idx] = true
		rows = append(rows, manifestRow{Index: idx, Path: string(pathBytes), Integrity: integrity})
	}
	return rows, nil
}
