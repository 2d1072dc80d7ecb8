package bitio

import (
	"bytes"
	"testing"
)

func TestUint16RoundTrip(t *testing.T) {
	cases := []uint16{0, 1, 255, 256, 65535}
	for _, v := range cases {
		var buf bytes.Buffer
		if err := WriteUint16(&buf, v); err != nil {
			t.Fatalf("WriteUint16(%d): %v", v, err)
		}
		got, err := ReadUint16(&buf)
		if err != nil {
			t.Fatalf("ReadUint16(%d): %v", v, err)
		}
		if got != v {
			t.Errorf("round-trip uint16 = %d; want %d", got, v)
		}
	}
}

func TestUint64RoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 1<<32 - 1, 1<<63 + 7}
	for _, v := range cases {
		var buf bytes.Buffer
		if err := WriteUint64(&buf, v); err != nil {
			t.Fatalf("WriteUint64(%d): %v", v, err)
		}
		got, err := ReadUint64(&buf)
		if err != nil {
			t.Fatalf("ReadUint64(%d): %v", v, err)
		}
		if got != v {
			t.Errorf("round-trip uint64 = %d; want %d", got, v)
		}
	}
}

func TestInt64RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteInt64(&buf, -9001); err != nil {
		t.Fatalf("WriteInt64: %v", err)
	}
	got, err := ReadInt64(&buf)
	if err != nil {
		t.Fatalf("ReadInt64: %v", err)
	}
	if got != -9001 {
		t.Errorf("round-trip int64 = %d; want -9001", got)
	}
}

func TestEncodeDecodeLength16(t *testing.T) {
	cases := []struct {
		n    int
		wire uint16
	}{
		{1, 1},
		{255, 255},
		{65535, 65535},
		{65536, 0}, // the "0 means 65536" convention
	}
	for _, tc := range cases {
		wire, err := EncodeLength16(tc.n)
		if err != nil {
			t.Fatalf("EncodeLength16(%d): %v", tc.n, err)
		}
		if wire != tc.wire {
			t.Errorf("EncodeLength16(%d) = %d; want %d", tc.n, wire, tc.wire)
		}
		if got := DecodeLength16(wire); got != tc.n {
			t.Errorf("DecodeLength16(%d) = %d; want %d", wire, got, tc.n)
		}
	}
}

func TestEncodeLength16OutOfRange(t *testing.T) {
	if _, err := EncodeLength16(0); err == nil {
		t.Error("EncodeLength16(0) should fail: zero-length fields are unrepresentable")
	}
	if _, err := EncodeLength16(65537); err == nil {
		t.Error("EncodeLength16(65537) should fail: exceeds the 16-bit dialect's range")
	}
}

func TestBytes16RoundTrip(t *testing.T) {
	cases := [][]byte{
		{0x01},
		bytes.Repeat([]byte{0xAB}, 65535),
		bytes.Repeat([]byte{0xCD}, 65536),
	}
	for _, data := range cases {
		var buf bytes.Buffer
		if err := WriteBytes16(&buf, data); err != nil {
			t.Fatalf("WriteBytes16(len=%d): %v", len(data), err)
		}
		got, err := ReadBytes16(&buf, 0)
		if err != nil {
			t.Fatalf("ReadBytes16(len=%d): %v", len(data), err)
		}
		if !bytes.Equal(got, data) {
			t.Errorf("round-trip bytes16 length = %d; want %d", len(got), len(data))
		}
	}
}

func TestReadBytes16RejectsOverLimit(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteBytes16(&buf, bytes.Repeat([]byte{0x01}, 1000)); err != nil {
		t.Fatalf("WriteBytes16: %v", err)
	}
	if _, err := ReadBytes16(&buf, 10); err == nil {
		t.Error("ReadBytes16 should reject a length exceeding the caller's limit")
	}
}

func TestVarint7RoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 127, 128, 300, 1 << 20, 1<<64 - 1}
	for _, v := range cases {
		var buf bytes.Buffer
		if err := WriteVarint7(&buf, v); err != nil {
			t.Fatalf("WriteVarint7(%d): %v", v, err)
		}
		got, err := ReadVarint7(&buf)
		if err != nil {
			t.Fatalf("ReadVarint7(%d): %v", v, err)
		}
		if got != v {
			t.Errorf("round-trip varint7 = %d; want %d", got, v)
		}
	}
}

func TestDecodeUTF8Strict(t *testing.T) {
	s, err := DecodeUTF8Strict([]byte("hello.txt"))
	if err != nil || s != "hello.txt" {
		t.Fatalf("DecodeUTF8Strict valid input: s=%q err=%v", s, err)
	}

	invalid := []byte{0xff, 0xfe, 0xfd}
	if _, err := DecodeUTF8Strict(invalid); err == nil {
		t.Error("DecodeUTF8Strict should reject invalid UTF-8")
	}
}

func TestConstantTimeCompare(t *testing.T) {
	a := []byte("integrity-value-0123456789abcdef")
	b := append([]byte(nil), a...)
	if !ConstantTimeCompare(a, b) {
		t.Error("ConstantTimeCompare should report equal for identical slices")
	}

	c := append([]byte(nil), a...)
	c[len(c)-1] ^= 0xff
	if ConstantTimeCompare(a, c) {
		t.Error("ConstantTimeCompare should report unequal for differing slices")
	}

	if ConstantTimeCompare(a, a[:len(a)-1]) {
		t.Error("ConstantTimeCompare should report unequal for differing lengths")
	}
}
