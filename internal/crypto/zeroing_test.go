package crypto

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"testing"
)

func TestSecureZero(t *testing.T) {
	// Test that SecureZero actually zeros the buffer
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	SecureZero(data)

	for i, b := range data {
		if b != 0 {
			t.Errorf("SecureZero: byte %d = %d; want 0", i, b)
		}
	}
}

func TestSecureZeroEmpty(t *testing.T) {
	// Should not panic on empty slice
	SecureZero(nil)
	SecureZero([]byte{})
}

func TestSecureZeroLarge(t *testing.T) {
	// Test with a larger buffer
	data := make([]byte, 1024*1024) // 1 MiB
	for i := range data {
		data[i] = byte(i % 256)
	}

	SecureZero(data)

	// Verify all zeros
	zeros := make([]byte, len(data))
	if !bytes.Equal(data, zeros) {
		t.Error("SecureZero did not zero all bytes in large buffer")
	}
}

func TestSecureZeroMultiple(t *testing.T) {
	slice1 := []byte{1, 2, 3}
	slice2 := []byte{4, 5, 6, 7}
	slice3 := []byte{8, 9}

	SecureZeroMultiple(slice1, slice2, slice3)

	for i, b := range slice1 {
		if b != 0 {
			t.Errorf("slice1[%d] = %d; want 0", i, b)
		}
	}
	for i, b := range slice2 {
		if b != 0 {
			t.Errorf("slice2[%d] = %d; want 0", i, b)
		}
	}
	for i, b := range slice3 {
		if b != 0 {
			t.Errorf("slice3[%d] = %d; want 0", i, b)
		}
	}
}

func TestSecureZeroMultipleEmpty(t *testing.T) {
	// Should not panic on empty or nil slices
	SecureZeroMultiple()
	SecureZeroMultiple(nil)
	SecureZeroMultiple(nil, []byte{}, nil)
}

func TestSecureZeroHash(t *testing.T) {
	// SecureZeroHash should not panic on nil
	SecureZeroHash(nil)

	// Test with an actual hash (just check it doesn't panic)
	mac := hmac.New(sha256.New, make([]byte, 32))
	mac.Write([]byte("test data"))
	SecureZeroHash(mac)
}

func TestKeyMaterial(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	km := NewKeyMaterial(data)

	// Bytes should return the data
	if !bytes.Equal(km.Bytes(), data) {
		t.Error("Bytes() should return equivalent data")
	}

	// Data should be a copy, not the same slice
	if &km.Bytes()[0] == &data[0] {
		t.Error("KeyMaterial should make a copy of data")
	}

	// Len should match
	if km.Len() != len(data) {
		t.Errorf("Len() = %d; want %d", km.Len(), len(data))
	}

	// IsClosed should be false
	if km.IsClosed() {
		t.Error("IsClosed() should be false before Close()")
	}
}

func TestKeyMaterialClose(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}

	km := NewKeyMaterial(data)
	internalData := km.Bytes()

	km.Close()

	// After close:
	// - IsClosed should be true
	if !km.IsClosed() {
		t.Error("IsClosed() should be true after Close()")
	}

	// - Bytes should return nil
	if km.Bytes() != nil {
		t.Error("Bytes() should return nil after Close()")
	}

	// - Len should be 0
	if km.Len() != 0 {
		t.Errorf("Len() = %d; want 0 after Close()", km.Len())
	}

	// - Original data slice should be zeroed
	zeros := make([]byte, len(internalData))
	if !bytes.Equal(internalData, zeros) {
		t.Error("Internal data should be zeroed after Close()")
	}
}

func TestKeyMaterialCloseIdempotent(t *testing.T) {
	km := NewKeyMaterial([]byte{1, 2, 3, 4})

	// Multiple Close() calls should be safe
	km.Close()
	km.Close()
	km.Close()

	if !km.IsClosed() {
		t.Error("Should remain closed after multiple Close() calls")
	}
}

func TestKeyMaterialNil(t *testing.T) {
	km := NewKeyMaterial(nil)

	if km.Bytes() != nil {
		t.Error("Bytes() should return nil for nil input")
	}

	if km.Len() != 0 {
		t.Error("Len() should be 0 for nil input")
	}

	// Close should not panic
	km.Close()
}

func TestCryptoContext(t *testing.T) {
	cc := &CryptoContext{
		Master:     []byte{1, 2, 3, 4},
		CipherKey:  []byte{5, 6, 7, 8},
		MacKey:     []byte{9, 10, 11, 12},
		WrappedKey: []byte{13, 14, 15, 16},
	}

	// Save references to check zeroing
	masterRef := cc.Master
	cipherRef := cc.CipherKey
	macRef := cc.MacKey
	wrappedRef := cc.WrappedKey

	cc.Close()

	// All fields should be nil
	if cc.Master != nil {
		t.Error("Master should be nil after Close()")
	}
	if cc.CipherKey != nil {
		t.Error("CipherKey should be nil after Close()")
	}
	if cc.MacKey != nil {
		t.Error("MacKey should be nil after Close()")
	}
	if cc.WrappedKey != nil {
		t.Error("WrappedKey should be nil after Close()")
	}

	// Original slices should be zeroed
	zeros4 := make([]byte, 4)
	if !bytes.Equal(masterRef, zeros4) {
		t.Error("Master data should be zeroed")
	}
	if !bytes.Equal(cipherRef, zeros4) {
		t.Error("CipherKey data should be zeroed")
	}
	if !bytes.Equal(macRef, zeros4) {
		t.Error("MacKey data should be zeroed")
	}
	if !bytes.Equal(wrappedRef, zeros4) {
		t.Error("WrappedKey data should be zeroed")
	}
}

func TestCryptoContextCloseIdempotent(t *testing.T) {
	cc := &CryptoContext{
		Master: []byte{1, 2, 3, 4},
	}

	// Multiple Close() calls should be safe
	cc.Close()
	cc.Close()
	cc.Close()
}

func TestCryptoContextNilFields(t *testing.T) {
	// Close should handle nil fields gracefully
	cc := &CryptoContext{}
	cc.Close() // Should not panic
}
