package optionlist

import (
	"bytes"
	"testing"

	streamerr "github.com/mausctl/maus/internal/errors"
)

func TestAddAndGet(t *testing.T) {
	l := New()
	if err := l.Add("filename", 1, []byte("hello.txt")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := l.Add("modified", 1, Int64Value(1700000000)); err != nil {
		t.Fatalf("Add: %v", err)
	}

	opt, ok := l.Get("filename")
	if !ok {
		t.Fatal("Get(filename) not found")
	}
	name, err := AsString(opt.Values[0])
	if err != nil || name != "hello.txt" {
		t.Fatalf("AsString = %q, %v; want hello.txt", name, err)
	}

	opt, ok = l.Get("modified")
	if !ok {
		t.Fatal("Get(modified) not found")
	}
	ts, ok := AsInt64(opt.Values[0])
	if !ok || ts != 1700000000 {
		t.Fatalf("AsInt64 = %d, %v; want 1700000000", ts, ok)
	}
}

func TestAddRejectsEmptyKeyAndZeroVersion(t *testing.T) {
	l := New()
	if err := l.Add("", 1); err == nil {
		t.Error("Add with empty key should fail")
	}
	if err := l.Add("k", 0); err == nil {
		t.Error("Add with zero version should fail")
	}
}

func TestAddCapacityExceeded(t *testing.T) {
	l := New()
	for i := 0; i < MaxEntries; i++ {
		if err := l.Add("k", 1); err != nil {
			t.Fatalf("Add #%d: %v", i, err)
		}
	}
	err := l.Add("k", 1)
	if !streamerr.IsInvalidFormat(err) && err == nil {
		t.Fatal("Add beyond MaxEntries should fail")
	}
	if !streamerr.Is(err, streamerr.ErrCapacityExceeded) {
		t.Errorf("expected ErrCapacityExceeded, got %v", err)
	}
}

func TestSetReplacesExistingEntry(t *testing.T) {
	l := New()
	if err := l.Set("filename", 1, []byte("a.txt")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := l.Set("filename", 1, []byte("b.txt")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if l.Len() != 1 {
		t.Fatalf("Len = %d; want 1 (Set should replace, not append)", l.Len())
	}
	opt, _ := l.Get("filename")
	name, _ := AsString(opt.Values[0])
	if name != "b.txt" {
		t.Errorf("AsString = %q; want b.txt", name)
	}
}

func TestSetAppendsWhenKeyAbsent(t *testing.T) {
	l := New()
	_ = l.Set("a", 1, []byte("1"))
	_ = l.Set("b", 1, []byte("2"))
	if l.Len() != 2 {
		t.Fatalf("Len = %d; want 2", l.Len())
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	l := New()
	_ = l.Add("filename", 1, []byte("report.txt"))
	_ = l.Add("comment", 1, []byte("quarterly figures"))
	_ = l.Add("tags", 2, []byte("a"), []byte("b"), []byte("c"))

	var buf bytes.Buffer
	if err := l.Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, err := Decode(&buf, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if decoded.Len() != l.Len() {
		t.Fatalf("Len = %d; want %d", decoded.Len(), l.Len())
	}

	for i, want := range l.Entries() {
		got := decoded.Entries()[i]
		if got.Key != want.Key || got.Version != want.Version {
			t.Errorf("entry %d = %+v; want %+v", i, got, want)
		}
		if len(got.Values) != len(want.Values) {
			t.Fatalf("entry %d value count = %d; want %d", i, len(got.Values), len(want.Values))
		}
		for j := range want.Values {
			if !bytes.Equal(got.Values[j], want.Values[j]) {
				t.Errorf("entry %d value %d = %q; want %q", i, j, got.Values[j], want.Values[j])
			}
		}
	}
}

func TestEncodeDecodeEmptyList(t *testing.T) {
	l := New()
	var buf bytes.Buffer
	if err := l.Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(&buf, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Len() != 0 {
		t.Errorf("Len = %d; want 0", decoded.Len())
	}
}

func TestDecodeRejectsZeroVersion(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{1, 0}) // count = 1
	// key-len=1, key="k", version=0, value-count=0
	buf.Write([]byte{1, 0, 'k', 0, 0, 0, 0})

	if _, err := Decode(&buf, 0); err == nil {
		t.Error("Decode should reject a zero version field")
	}
}

func TestLargeValueRoundTrip(t *testing.T) {
	l := New()
	big := bytes.Repeat([]byte{0x42}, 65536)
	if err := l.Add("blob", 1, big); err != nil {
		t.Fatalf("Add: %v", err)
	}

	var buf bytes.Buffer
	if err := l.Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(&buf, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	opt, _ := decoded.Get("blob")
	if !bytes.Equal(opt.Values[0], big) {
		t.Error("large 65536-byte value did not round-trip")
	}
}
