package crypto

import (
	"crypto/aes"
	"crypto/cipher"

	streamerr "github.com/mausctl/maus/internal/errors"
)

// AESKeySize validates a key-bits value against §6's key-size table and
// returns the corresponding byte length (16/24/32).
func AESKeySize(keyBits int) (int, error) {
	switch keyBits {
	case 128:
		return 16, nil
	case 192:
		return 24, nil
	case 256:
		return 32, nil
	default:
		return 0, streamerr.Wrap(streamerr.ErrUnsupportedFeature, "AES key-bits")
	}
}

// EncryptCBC encrypts plaintext with AES-CBC under (key, iv) after applying
// PKCS#7 padding to an AES block boundary, per §4.1.2 step 5. plaintext is
// not modified; the returned slice is newly allocated.
func EncryptCBC(key, iv, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, streamerr.NewCryptoError("cipher", err)
	}
	if len(iv) != block.BlockSize() {
		return nil, streamerr.NewCryptoError("cipher", streamerr.ErrInvalidFormat)
	}
	padded := Pad(plaintext, block.BlockSize())
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	return ciphertext, nil
}

// DecryptCBC decrypts ciphertext with AES-CBC under (key, iv) and strips
// the PKCS#7 padding, per §4.1.3 step 5. ciphertext's length must be a
// positive multiple of the AES block size.
func DecryptCBC(key, iv, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, streamerr.NewCryptoError("cipher", err)
	}
	if len(iv) != block.BlockSize() {
		return nil, streamerr.NewCryptoError("cipher", streamerr.ErrInvalidFormat)
	}
	if len(ciphertext) == 0 || len(ciphertext)%block.BlockSize() != 0 {
		return nil, streamerr.NewFormatError("ciphertext-length", streamerr.ErrInvalidFormat)
	}
	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)
	return Unpad(padded, block.BlockSize())
}
