package cli

import (
	"fmt"
	"strings"

	"github.com/mausctl/maus/internal/crypto"
	"github.com/mausctl/maus/internal/streamheader"
)

// DefaultPBKDF2Cycles is the iteration count used when a caller does not
// override it with --pbkdf2-cycles.
const DefaultPBKDF2Cycles = crypto.MinWireIterations + 300000

func parseCompression(s string) (streamheader.CompressionID, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return streamheader.CompressionNone, nil
	case "deflate":
		return streamheader.CompressionDeflate, nil
	case "lzma":
		return streamheader.CompressionLzma, nil
	default:
		return 0, fmt.Errorf("invalid compression %q (want none, deflate, or lzma)", s)
	}
}

func parseHashFn(s string) (crypto.HashID, error) {
	switch strings.ToLower(s) {
	case "", "sha256":
		return crypto.HashSha256, nil
	case "sha512":
		return crypto.HashSha512, nil
	case "sha3-256":
		return crypto.HashSha3_256, nil
	case "sha3-512":
		return crypto.HashSha3_512, nil
	case "blake2b-512":
		return crypto.HashBlake2b512, nil
	default:
		return 0, fmt.Errorf("invalid hash function %q", s)
	}
}

func parseAESKeyBits(n int) (int, error) {
	switch n {
	case 128, 192, 256:
		return n, nil
	default:
		return 0, fmt.Errorf("invalid --aes-bits %d (want 128, 192, or 256)", n)
	}
}
