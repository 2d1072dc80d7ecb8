package streamheader

import (
	"bytes"
	"testing"
)

// FuzzReadHeader exercises the header decoder against arbitrary byte
// sequences; it must never panic, regardless of how malformed the input is.
func FuzzReadHeader(f *testing.F) {
	h := New(VersionV93, CompressionLzma, EncryptionAES, 2)
	_ = SetString(h, OptFilename, "seed.txt")
	var seed bytes.Buffer
	_, _ = NewWriter(&seed).WriteHeader(h)
	f.Add(seed.Bytes())
	f.Add([]byte{})
	f.Add([]byte{'M', 'A', 'U', 'S'})

	f.Fuzz(func(t *testing.T, data []byte) {
		_, _, _ = NewReader(bytes.NewReader(data)).ReadHeader()
	})
}
