package crypto

import (
	"bytes"
	"testing"
)

func TestDerivePasswordKeyDeterministic(t *testing.T) {
	password := []byte("test-password")
	salt := make([]byte, 16)
	for i := range salt {
		salt[i] = byte(i)
	}

	key1, err := DerivePasswordKey(password, salt, 10001, HashSha256)
	if err != nil {
		t.Fatalf("DerivePasswordKey failed: %v", err)
	}
	if len(key1) != 32 {
		t.Errorf("key length = %d; want 32", len(key1))
	}

	key1b, err := DerivePasswordKey(password, salt, 10001, HashSha256)
	if err != nil {
		t.Fatalf("DerivePasswordKey failed: %v", err)
	}
	if !bytes.Equal(key1, key1b) {
		t.Error("same inputs should produce the same key")
	}

	key2, err := DerivePasswordKey([]byte("Password"), salt, 10001, HashSha256)
	if err != nil {
		t.Fatalf("DerivePasswordKey failed: %v", err)
	}
	if bytes.Equal(key1, key2) {
		t.Error("different passwords should derive different keys")
	}
}

func TestCycleCountRoundTrip(t *testing.T) {
	stored := EncodeCycleCount(10001)
	if stored != 1000 {
		t.Errorf("EncodeCycleCount(10001) = %d; want 1000", stored)
	}

	total, err := DecodeCycleCount(stored)
	if err != nil {
		t.Fatalf("DecodeCycleCount: %v", err)
	}
	if total != 10001 {
		t.Errorf("DecodeCycleCount(1000) = %d; want 10001", total)
	}
}

func TestDecodeCycleCountRejectsBelowMinimum(t *testing.T) {
	if _, err := DecodeCycleCount(-9001); err == nil {
		t.Error("a stored value implying 0 total iterations should be rejected")
	}
	if _, err := DecodeCycleCount(-20000); err == nil {
		t.Error("a stored value implying a negative iteration count should be rejected")
	}
}

func TestDeriveSubkeysIndependent(t *testing.T) {
	master := make([]byte, 32)
	for i := range master {
		master[i] = byte(i)
	}
	hkdfSalt := make([]byte, 32)

	cipherKey, macKey, err := DeriveSubkeys(master, hkdfSalt, 32, 32)
	if err != nil {
		t.Fatalf("DeriveSubkeys: %v", err)
	}
	if len(cipherKey) != 32 || len(macKey) != 32 {
		t.Fatalf("subkey lengths = %d, %d; want 32, 32", len(cipherKey), len(macKey))
	}
	if bytes.Equal(cipherKey, macKey) {
		t.Error("cipher and MAC subkeys must not collide")
	}

	cipherKey2, macKey2, err := DeriveSubkeys(master, hkdfSalt, 32, 32)
	if err != nil {
		t.Fatalf("DeriveSubkeys: %v", err)
	}
	if !bytes.Equal(cipherKey, cipherKey2) || !bytes.Equal(macKey, macKey2) {
		t.Error("DeriveSubkeys should be deterministic for the same master/salt")
	}
}

func TestAESCBCRoundTrip(t *testing.T) {
	for _, keyBits := range []int{128, 192, 256} {
		keyLen, err := AESKeySize(keyBits)
		if err != nil {
			t.Fatalf("AESKeySize(%d): %v", keyBits, err)
		}
		key := bytes.Repeat([]byte{0x42}, keyLen)
		iv := bytes.Repeat([]byte{0x24}, 16)
		plaintext := []byte("secret")

		ciphertext, err := EncryptCBC(key, iv, plaintext)
		if err != nil {
			t.Fatalf("EncryptCBC(%d-bit): %v", keyBits, err)
		}
		if bytes.Equal(ciphertext, plaintext) {
			t.Error("ciphertext should differ from plaintext")
		}

		decrypted, err := DecryptCBC(key, iv, ciphertext)
		if err != nil {
			t.Fatalf("DecryptCBC(%d-bit): %v", keyBits, err)
		}
		if !bytes.Equal(decrypted, plaintext) {
			t.Errorf("decrypted = %q; want %q", decrypted, plaintext)
		}
	}
}

func TestAESKeySizeRejectsUnknownBits(t *testing.T) {
	if _, err := AESKeySize(64); err == nil {
		t.Error("AESKeySize(64) should fail: not in the §6 key-size table")
	}
}

func TestHMACRoundTrip(t *testing.T) {
	macKey := bytes.Repeat([]byte{0x01}, 32)
	data := []byte("iv-ciphertext-header-bytes")

	tag, err := ComputeHMAC(macKey, HashSha256, data)
	if err != nil {
		t.Fatalf("ComputeHMAC: %v", err)
	}

	if err := VerifyHMAC(macKey, HashSha256, data, tag); err != nil {
		t.Errorf("VerifyHMAC should accept a freshly computed tag: %v", err)
	}

	tampered := append([]byte(nil), data...)
	tampered[0] ^= 0xff
	if err := VerifyHMAC(macKey, HashSha256, tampered, tag); err == nil {
		t.Error("VerifyHMAC should reject a tag computed over different data")
	}
}

func TestDigestAllHashIDs(t *testing.T) {
	for _, id := range []HashID{HashSha256, HashSha512, HashSha3_256, HashSha3_512, HashBlake2b512} {
		d, err := Digest(id, []byte("hello"))
		if err != nil {
			t.Fatalf("Digest(%d): %v", id, err)
		}
		if len(d) == 0 {
			t.Errorf("Digest(%d) returned empty digest", id)
		}
	}
}

func TestDigestUnsupportedID(t *testing.T) {
	if _, err := Digest(HashID(99), []byte("x")); err == nil {
		t.Error("Digest with an unrecognized hash-fn id should fail")
	}
}
