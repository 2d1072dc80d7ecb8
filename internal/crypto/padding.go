package crypto

import (
	"bytes"

	streamerr "github.com/mausctl/maus/internal/errors"
)

// Pad applies PKCS#7 padding so that len(data)+padLen is a multiple of
// blockSize. A full block of padding is appended when data is already
// block-aligned, so the padding is always unambiguous to strip.
func Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

// Unpad strips and validates PKCS#7 padding, rejecting a padding length of
// zero, a length exceeding blockSize, or padding bytes that aren't all
// equal to the declared length.
func Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, streamerr.NewFormatError("pkcs7-padding", streamerr.ErrInvalidFormat)
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize || padLen > len(data) {
		return nil, streamerr.NewFormatError("pkcs7-padding", streamerr.ErrInvalidFormat)
	}
	if !bytes.Equal(data[len(data)-padLen:], bytes.Repeat([]byte{byte(padLen)}, padLen)) {
		return nil, streamerr.NewFormatError("pkcs7-padding", streamerr.ErrInvalidFormat)
	}
	return data[:len(data)-padLen], nil
}
