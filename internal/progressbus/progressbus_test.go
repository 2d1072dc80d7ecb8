package progressbus

import "testing"

func TestNilBusIsNoop(t *testing.T) {
	var b *Bus
	b.Emit(Event{Kind: HeaderWritten}) // must not panic
}

func TestBusWithNilSinkIsNoop(t *testing.T) {
	b := New(nil)
	b.HeaderWritten(0, "a.txt") // must not panic
}

func TestBusForwardsToSink(t *testing.T) {
	rec := &RecordingSink{}
	b := New(rec)

	b.EntryStart(0, "a.txt")
	b.HeaderWritten(0, "a.txt")
	b.PayloadChunk(0, 10, 100)
	b.HMACComputed(0, "a.txt")
	b.EntryDone(0, "a.txt")
	b.ManifestWritten(2)

	want := []Kind{EntryStart, HeaderWritten, PayloadChunk, HMACComputed, EntryDone, ManifestWritten}
	got := rec.Kinds()
	if len(got) != len(want) {
		t.Fatalf("got %d events; want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %s; want %s", i, got[i], want[i])
		}
	}
}

func TestCallbackSinkInvokesCallback(t *testing.T) {
	var count int
	sink := NewCallbackSink(func(e Event) { count++ })
	b := New(sink)

	b.EntryStart(0, "x")
	b.EntryDone(0, "x")

	if count != 2 {
		t.Errorf("callback invoked %d times; want 2", count)
	}
}

func TestCallbackSinkSetCallback(t *testing.T) {
	sink := NewCallbackSink(nil)
	b := New(sink)
	b.HeaderWritten(0, "x") // no callback set yet, must not panic

	var got Event
	sink.SetCallback(func(e Event) { got = e })
	b.HeaderWritten(1, "y")

	if got.Kind != HeaderWritten || got.EntryIndex != 1 {
		t.Errorf("got %+v; want HeaderWritten at index 1", got)
	}
}
