package streamheader

import (
	"bytes"
	"testing"
)

func TestWriteReadHeaderRoundTrip(t *testing.T) {
	h := New(VersionV93, CompressionDeflate, EncryptionAES, 0)
	if err := SetBytes(h, OptSalt, bytes.Repeat([]byte{0x01}, 16)); err != nil {
		t.Fatalf("SetBytes salt: %v", err)
	}
	if err := SetBytes(h, OptIV, bytes.Repeat([]byte{0x02}, 16)); err != nil {
		t.Fatalf("SetBytes iv: %v", err)
	}
	if err := SetInt64(h, OptIterCount, 1000); err != nil {
		t.Fatalf("SetInt64: %v", err)
	}
	if err := SetString(h, OptFilename, "report.txt"); err != nil {
		t.Fatalf("SetString: %v", err)
	}

	var buf bytes.Buffer
	n, err := NewWriter(&buf).WriteHeader(h)
	if err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	if n != buf.Len() {
		t.Errorf("WriteHeader reported %d bytes; buffer has %d", n, buf.Len())
	}

	got, bytesRead, err := NewReader(&buf).ReadHeader()
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if bytesRead != n {
		t.Errorf("ReadHeader consumed %d bytes; want %d", bytesRead, n)
	}
	if got.Version != h.Version || got.Compression != h.Compression || got.Encryption != h.Encryption {
		t.Fatalf("header mismatch: got %+v; want %+v", got, h)
	}

	name, ok := GetString(got, OptFilename)
	if !ok || name != "report.txt" {
		t.Errorf("GetString(filename) = %q, %v; want report.txt, true", name, ok)
	}
	iterCount, ok := GetInt64(got, OptIterCount)
	if !ok || iterCount != 1000 {
		t.Errorf("GetInt64(iter) = %d, %v; want 1000, true", iterCount, ok)
	}
	salt, ok := GetBytes(got, OptSalt)
	if !ok || !bytes.Equal(salt, bytes.Repeat([]byte{0x01}, 16)) {
		t.Error("GetBytes(salt) mismatch")
	}
}

func TestReadHeaderRejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{'X', 'X', 'X', 'X'})
	buf.Write([]byte{93, 0})       // version
	buf.Write([]byte{0, 0})        // compression
	buf.Write([]byte{0, 0})        // encryption
	buf.Write([]byte{0, 0})        // hash-fn
	buf.Write([]byte{0, 0})        // option count = 0

	if _, _, err := NewReader(&buf).ReadHeader(); err == nil {
		t.Error("ReadHeader should reject a bad magic")
	}
}

func TestReadHeaderRejectsUnrecognizedVersion(t *testing.T) {
	h := New(91, CompressionNone, EncryptionNone, 0)
	var buf bytes.Buffer
	if _, err := NewWriter(&buf).WriteHeader(h); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	if _, _, err := NewReader(&buf).ReadHeader(); err == nil {
		t.Error("ReadHeader should reject version 91")
	}
}

func TestArchiveMagicDiffersFromEntryMagic(t *testing.T) {
	if ArchiveMagic == EntryMagic {
		t.Error("archive and entry magics must be distinct")
	}
}
