// Package progressbus provides a typed progress event bus emitted at named
// lifecycle points during StreamCodec and ArchiveFramer operations. Events
// are emitted synchronously, in the order the codec/framer reaches each
// point (§5's ordering guarantee) — there is no internal buffering or
// goroutine hand-off here, matching the single-threaded-per-codec model.
package progressbus

// Kind names a lifecycle point at which a Bus emits an Event.
type Kind string

const (
	// HeaderWritten fires once a StreamCodec has emitted its primary header.
	HeaderWritten Kind = "HeaderWritten"
	// PayloadChunk fires as payload bytes are written or read: one event per
	// CompressCodec.Write call (running total, total unknown), and one per
	// decoded entry (the full on-wire payload length).
	PayloadChunk Kind = "PayloadChunk"
	// HMACComputed fires once the integrity tag has been computed (write) or
	// verified (read).
	HMACComputed Kind = "HMACComputed"
	// SignatureVerified fires once a configured signature has been checked.
	SignatureVerified Kind = "SignatureVerified"
	// EntryStart fires when an ArchiveFramer begins processing one entry.
	EntryStart Kind = "EntryStart"
	// EntryDone fires when an ArchiveFramer finishes one entry.
	EntryDone Kind = "EntryDone"
	// ManifestWritten fires once an ArchiveFramer has emitted its manifest
	// stream.
	ManifestWritten Kind = "ManifestWritten"
)

// Event is one progress notification. EntryIndex is -1 when the event is not
// scoped to a particular archive entry (e.g. a standalone stream).
type Event struct {
	Kind       Kind
	EntryIndex int64
	EntryPath  string
	BytesDone  int64
	BytesTotal int64
	Info       string
}

// Sink receives emitted events. Implementations must not block the caller
// for long — the codec emits synchronously inline with its own progress.
type Sink interface {
	Emit(Event)
}

// Bus wraps an optional Sink; a nil Bus or a Bus with a nil Sink is a
// no-op, mirroring the teacher's "Reporter may be nil for headless
// operation" convention.
type Bus struct {
	sink Sink
}

// New returns a Bus that forwards events to sink. sink may be nil.
func New(sink Sink) *Bus {
	return &Bus{sink: sink}
}

// Emit forwards e to the underlying sink, if any.
func (b *Bus) Emit(e Event) {
	if b == nil || b.sink == nil {
		return
	}
	b.sink.Emit(e)
}

// HeaderWritten emits a HeaderWritten event for entryIndex (-1 if not
// archive-scoped).
func (b *Bus) HeaderWritten(entryIndex int64, path string) {
	b.Emit(Event{Kind: HeaderWritten, EntryIndex: entryIndex, EntryPath: path})
}

// PayloadChunk emits a PayloadChunk event describing progress through the
// payload.
func (b *Bus) PayloadChunk(entryIndex int64, done, total int64) {
	b.Emit(Event{Kind: PayloadChunk, EntryIndex: entryIndex, BytesDone: done, BytesTotal: total})
}

// HMACComputed emits an HMACComputed event.
func (b *Bus) HMACComputed(entryIndex int64, path string) {
	b.Emit(Event{Kind: HMACComputed, EntryIndex: entryIndex, EntryPath: path})
}

// SignatureVerified emits a SignatureVerified event; info carries a short
// description such as the key-id, when known.
func (b *Bus) SignatureVerified(entryIndex int64, info string) {
	b.Emit(Event{Kind: SignatureVerified, EntryIndex: entryIndex, Info: info})
}

// EntryStart emits an EntryStart event.
func (b *Bus) EntryStart(entryIndex int64, path string) {
	b.Emit(Event{Kind: EntryStart, EntryIndex: entryIndex, EntryPath: path})
}

// EntryDone emits an EntryDone event.
func (b *Bus) EntryDone(entryIndex int64, path string) {
	b.Emit(Event{Kind: EntryDone, EntryIndex: entryIndex, EntryPath: path})
}

// ManifestWritten emits a ManifestWritten event.
func (b *Bus) ManifestWritten(entryCount int64) {
	b.Emit(Event{Kind: ManifestWritten, EntryIndex: -1, BytesTotal: entryCount})
}
