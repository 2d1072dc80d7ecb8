package archive

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/mausctl/maus/internal/bitio"
	mauscrypto "github.com/mausctl/maus/internal/crypto"
	streamerr "github.com/mausctl/maus/internal/errors"
	"github.com/mausctl/maus/internal/log"
	"github.com/mausctl/maus/internal/progressbus"
	"github.com/mausctl/maus/internal/streamcodec"
	"github.com/mausctl/maus/internal/streamheader"
)

// ManifestPath is the reserved path the manifest's own entry stream is
// framed under. It never collides with a caller-supplied path because
// duplicate-path checking only runs over caller entries.
const ManifestPath = "\x00MANIFEST\x00"

// EntryKind distinguishes the three entry variants an archive may hold
// (§9 "inheritance of entry types").
type EntryKind int

const (
	EntryFile EntryKind = iota
	EntryDir
	EntryUnknown
)

// WriteEntry is one caller-supplied archive member: a fully configured
// StreamCodec config (compression/encryption/hash/signers/encrypted-options)
// plus its plaintext payload.
type WriteEntry struct {
	Config    streamcodec.Config
	Plaintext []byte
}

// ArchiveEntry is one decoded (or not-yet-decoded) archive member.
type ArchiveEntry struct {
	Kind      EntryKind
	Index     int64
	Path      string // empty until an Unknown entry is resolved
	Plaintext []byte // nil until an Unknown entry is resolved
	Integrity []byte
	Header    *streamheader.StreamHeader

	raw []byte // framed entry bytes, retained only while Kind == EntryUnknown
}

// Archive is the result of ReadArchive: an ordered, index-addressable entry
// table plus the manifest rows it was validated against.
type Archive struct {
	Version uint16
	Entries []*ArchiveEntry

	rows   []manifestRow
	hashFn mauscrypto.HashID
	bus    *progressbus.Bus
}

// WriteArchive runs the §4.2.1 write path: assigns ordinals, rejects
// duplicate paths, frames each entry, builds and frames the manifest, and
// emits the full .mauz byte stream. Every entry (and the manifest) must
// share one HashFn, since the manifest's integrity column is fixed-width.
func WriteArchive(version uint16, entries []WriteEntry, manifestSigners []streamcodec.Signer, bus *progressbus.Bus) ([]byte, error) {
	log.Debug("packing archive", log.Int("entries", len(entries)))
	seenPaths := make(map[string]bool, len(entries))
	var hashFn mauscrypto.HashID
	if len(entries) > 0 {
		hashFn = entries[0].Config.HashFn
	} else {
		hashFn = mauscrypto.HashSha256
	}

	rows := make([]manifestRow, len(entries))
	entryStreams := make([][]byte, len(entries))

	for i := range entries {
		cfg := entries[i].Config
		if seenPaths[cfg.Path] {
			return nil, streamerr.Wrap(streamerr.ErrDuplicatePath, cfg.Path)
		}
		seenPaths[cfg.Path] = true
		if cfg.HashFn != hashFn {
			return nil, streamerr.Wrap(streamerr.ErrInvalidState, "all archive entries must share one hash function")
		}

		bus.EntryStart(int64(i), cfg.Path)
		cc, err := streamcodec.NewCompressCodec(cfg, bus)
		if err != nil {
			return nil, err
		}
		if _, err := cc.Write(entries[i].Plaintext); err != nil {
			cc.Close()
			return nil, err
		}
		var buf bytes.Buffer
		if err := cc.Finish(&buf); err != nil {
			cc.Close()
			return nil, err
		}
		entryStreams[i] = buf.Bytes()
		rows[i] = manifestRow{Index: int64(i), Path: cfg.Path, Integrity: cc.Integrity}
		cc.Close()
		bus.EntryDone(int64(i), cfg.Path)
	}

	manifestPlaintext, err := encodeManifest(rows)
	if err != nil {
		return nil, err
	}
	manifestCfg := streamcodec.Config{
		Version:     version,
		Compression: streamheader.CompressionNone,
		Encryption:  streamheader.EncryptionNone,
		HashFn:      hashFn,
		Path:        ManifestPath,
		Signers:     manifestSigners,
	}
	manifestCC, err := streamcodec.NewCompressCodec(manifestCfg, bus)
	if err != nil {
		return nil, err
	}
	defer manifestCC.Close()
	if _, err := manifestCC.Write(manifestPlaintext); err != nil {
		return nil, err
	}
	var manifestBuf bytes.Buffer
	if err := manifestCC.Finish(&manifestBuf); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := writeHeader(&out, newHeader(version, int64(len(entries)))); err != nil {
		return nil, err
	}
	out.Write(manifestBuf.Bytes())
	for _, es := range entryStreams {
		out.Write(es)
	}
	bus.ManifestWritten(int64(len(entries)))
	log.Debug("archive packed", log.Int("entries", len(entries)), log.Int("bytes", out.Len()))

	return out.Bytes(), nil
}

// ReadArchive runs the §4.2.2 read path against r. hashFn is the hash
// function every entry (and the manifest) was written with — the format
// does not redundantly declare it at the archive level, so callers supply
// it from context (e.g. the first entry's own header, inspected out of
// band, or simply "the hash function this tool always uses").
func ReadArchive(r io.Reader, hashFn mauscrypto.HashID, bus *progressbus.Bus) (*Archive, error) {
	log.Debug("unpacking archive")
	h, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	manifestRaw, _, err := readFramedEntry(r, hashFn)
	if err != nil {
		return nil, fmt.Errorf("read manifest stream: %w", err)
	}
	manifestDecoded, err := streamcodec.NewDecompressCodec(bus).Decode(bytes.NewReader(manifestRaw), streamcodec.OpenOptions{})
	if err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	digestSize, err := digestLen(hashFn)
	if err != nil {
		return nil, err
	}
	rows, err := decodeManifest(manifestDecoded.Plaintext, digestSize)
	if err != nil {
		return nil, err
	}

	entries := make([]*ArchiveEntry, len(rows))
	for i := range rows {
		row := rows[i]
		if int(row.Index) != i || row.Index < 0 || int(row.Index) >= len(rows) {
			return nil, streamerr.NewManifestError(row.Index, streamerr.ErrInvalidFormat)
		}

		raw, eh, err := readFramedEntry(r, hashFn)
		if err != nil {
			return nil, fmt.Errorf("read entry %d stream: %w", row.Index, err)
		}

		mask := byte(0)
		if maskBytes, ok := streamheader.GetBytes(eh, streamheader.OptEncryptedOptions); ok && len(maskBytes) == 1 {
			mask = maskBytes[0]
		}
		filenameHidden := eh.Encryption == streamheader.EncryptionAES && mask&encryptedOptionBitFilename != 0

		if filenameHidden {
			entries[row.Index] = &ArchiveEntry{
				Kind:   EntryUnknown,
				Index:  row.Index,
				Header: eh,
				raw:    raw,
			}
			continue
		}

		path, _ := streamheader.GetString(eh, streamheader.OptFilename)
		if path != row.Path {
			return nil, streamerr.NewManifestError(row.Index, streamerr.ErrInvalidFormat)
		}
		decoded, err := streamcodec.NewDecompressCodec(bus).Decode(bytes.NewReader(raw), streamcodec.OpenOptions{})
		if err != nil {
			return nil, err
		}
		if !bytes.Equal(decoded.Integrity, row.Integrity) {
			log.Warn("manifest integrity mismatch", log.Int("entry", int(row.Index)))
			return nil, streamerr.NewManifestError(row.Index, streamerr.ErrIntegrityFailure)
		}
		if err := validateShape(path, decoded.Plaintext); err != nil {
			return nil, err
		}
		entries[row.Index] = &ArchiveEntry{
			Kind:      classify(path),
			Index:     row.Index,
			Path:      path,
			Plaintext: decoded.Plaintext,
			Integrity: decoded.Integrity,
			Header:    eh,
		}
	}

	log.Debug("archive unpacked", log.Int("entries", len(entries)))
	return &Archive{Version: h.Version, Entries: entries, rows: rows, hashFn: hashFn, bus: bus}, nil
}

// Resolve runs the deferred decrypt for an Unknown placeholder at index,
// per §4.2.3: the placeholder is atomically replaced in-place by a
// concrete file or empty-directory entry, and its backing buffer is
// released. Callers holding the old *ArchiveEntry observe it unchanged
// (it is simply no longer reachable from a.Entries).
func (a *Archive) Resolve(index int64, opts streamcodec.OpenOptions) (*ArchiveEntry, error) {
	if index < 0 || int(index) >= len(a.Entries) {
		return nil, streamerr.NewManifestError(index, streamerr.ErrInvalidFormat)
	}
	placeholder := a.Entries[index]
	if placeholder == nil || placeholder.Kind != EntryUnknown {
		return nil, streamerr.Wrap(streamerr.ErrInvalidState, "entry is not an unresolved placeholder")
	}

	decoded, err := streamcodec.NewDecompressCodec(a.bus).Decode(bytes.NewReader(placeholder.raw), opts)
	if err != nil {
		return nil, err
	}

	var row *manifestRow
	for i := range a.rows {
		if a.rows[i].Index == index {
			row = &a.rows[i]
			break
		}
	}
	if row == nil {
		return nil, streamerr.NewManifestError(index, streamerr.ErrInvalidFormat)
	}
	if !bytes.Equal(decoded.Integrity, row.Integrity) {
		log.Warn("manifest integrity mismatch on resolve", log.Int("entry", int(index)))
		return nil, streamerr.NewManifestError(index, streamerr.ErrIntegrityFailure)
	}
	if err := validateShape(decoded.Path, decoded.Plaintext); err != nil {
		return nil, err
	}

	resolved := &ArchiveEntry{
		Kind:      classify(decoded.Path),
		Index:     index,
		Path:      decoded.Path,
		Plaintext: decoded.Plaintext,
		Integrity: decoded.Integrity,
		Header:    placeholder.Header,
	}
	placeholder.raw = nil
	a.Entries[index] = resolved
	return resolved, nil
}

// encryptedOptionBitFilename mirrors streamcodec's internal bit layout for
// the filename entry of the encrypted-options mask; archive decode needs
// it without importing streamcodec's unexported helper.
const encryptedOptionBitFilename = 1 << 0

func classify(path string) EntryKind {
	if strings.HasSuffix(path, "/") {
		return EntryDir
	}
	return EntryFile
}

// validateShape enforces §4.1.4: an empty-directory entry's payload MUST
// be exactly the single byte '/'; decoders reject any deviation.
func validateShape(path string, plaintext []byte) error {
	if !strings.HasSuffix(path, "/") {
		return nil
	}
	if len(plaintext) != 1 || plaintext[0] != '/' {
		return streamerr.NewFormatError("empty-directory-payload", streamerr.ErrInvalidFormat)
	}
	return nil
}

func digestLen(id mauscrypto.HashID) (int, error) {
	d, err := mauscrypto.Digest(id, nil)
	if err != nil {
		return 0, err
	}
	return len(d), nil
}

// readFramedEntry reads exactly one framed .maus entry stream (header,
// payload, integrity value, and any signature blocks) from r, returning
// its raw bytes and parsed header. A io.TeeReader captures every byte the
// header/payload/signature readers actually consume, so the raw slice is
// always exactly the entry's own span regardless of encryption or
// signature count.
func readFramedEntry(r io.Reader, hashFn mauscrypto.HashID) ([]byte, *streamheader.StreamHeader, error) {
	var captured bytes.Buffer
	tee := io.TeeReader(r, &captured)

	h, _, err := streamheader.NewReader(tee).ReadHeader()
	if err != nil {
		return nil, nil, err
	}

	payloadLen, ok := streamheader.GetInt64(h, streamheader.OptPayloadLen)
	if !ok || payloadLen < 0 {
		return nil, nil, streamerr.NewFormatError("payload-len", streamerr.ErrInvalidFormat)
	}
	digestSize, err := digestLen(hashFn)
	if err != nil {
		return nil, nil, err
	}
	if _, err := io.CopyN(io.Discard, tee, payloadLen+int64(digestSize)); err != nil {
		return nil, nil, fmt.Errorf("read entry payload: %w", err)
	}

	if err := skipSignatureBlocks(tee); err != nil {
		return nil, nil, err
	}

	return captured.Bytes(), h, nil
}

// skipSignatureBlocks consumes (and discards, since only the raw bytes
// matter to the caller) the signature-count-prefixed block list written by
// the compress-mode codec's writeSignatures. A missing count field (clean
// EOF) is tolerated as zero signatures, mirroring streamcodec's own reader.
func skipSignatureBlocks(r io.Reader) error {
	count, err := bitio.ReadUint16(r)
	if err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("read signature count: %w", err)
	}
	for i := uint16(0); i < count; i++ {
		if _, err := bitio.ReadUint16(r); err != nil {
			return fmt.Errorf("read signature algorithm: %w", err)
		}
		if _, err := bitio.ReadBytes16(r, 0); err != nil {
			return fmt.Errorf("read signature key-id: %w", err)
		}
		if _, err := bitio.ReadBytes16(r, 0); err != nil {
			return fmt.Errorf("read signature bytes: %w", err)
		}
	}
	return nil
}
