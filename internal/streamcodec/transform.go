package streamcodec

import (
	"compress/flate"
	"io"

	streamerr "github.com/mausctl/maus/internal/errors"
	"github.com/mausctl/maus/internal/streamheader"
	"github.com/ulikunitz/xz/lzma"
)

// NewCompressWriter wraps w with the configured compression transform. The
// returned WriteCloser's Close flushes any buffered output; it does not
// close w.
func NewCompressWriter(id streamheader.CompressionID, w io.Writer) (io.WriteCloser, error) {
	switch id {
	case streamheader.CompressionNone:
		return nopWriteCloser{w}, nil
	case streamheader.CompressionDeflate:
		return flate.NewWriter(w, flate.DefaultCompression)
	case streamheader.CompressionLzma:
		return lzma.NewWriter(w)
	default:
		return nil, streamerr.Wrap(streamerr.ErrUnsupportedFeature, "compression-id")
	}
}

// NewDecompressReader wraps r with the configured decompression transform.
func NewDecompressReader(id streamheader.CompressionID, r io.Reader) (io.Reader, error) {
	switch id {
	case streamheader.CompressionNone:
		return r, nil
	case streamheader.CompressionDeflate:
		return flate.NewReader(r), nil
	case streamheader.CompressionLzma:
		return lzma.NewReader(r)
	default:
		return nil, streamerr.Wrap(streamerr.ErrUnsupportedFeature, "compression-id")
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
