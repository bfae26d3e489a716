package popgen

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"

	"github.com/carbocation/pfx"
	"github.com/krolaw/zipstream"
	"github.com/xi2/xz"
)

type DataType byte

const (
	DataTypeInvalid DataType = iota
	DataTypeNoCompression
	DataTypeGzip
	DataTypeZip
	DataTypeXZ
	DataTypeZlib
	DataTypeBZip2
)

func (dt DataType) String() string {
	switch dt {
	case DataTypeNoCompression:
		return "uncompressed"
	case DataTypeGzip:
		return "gzip"
	case DataTypeZip:
		return "zip"
	case DataTypeXZ:
		return "xz"
	case DataTypeZlib:
		return "zlib"
	case DataTypeBZip2:
		return "bzip2"
	}

	return "invalid"
}

// Checked in this order. Byte code signatures from
// https://stackoverflow.com/a/19127748/199475
var byteCodeSigs = []struct {
	DataType
	Sig []byte
}{
	{DataTypeXZ, []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}},
	{DataTypeZip, []byte{0x50, 0x4b, 0x03, 0x04}},
	{DataTypeGzip, []byte{0x1f, 0x8b, 0x08}},
	{DataTypeBZip2, []byte{0x42, 0x5a, 0x68}},
	{DataTypeZlib, []byte{0x78, 0x9c}},
}

// DetectDataType identifies the compression of a stream from its first bytes.
// Headers shorter than every signature are reported as uncompressed.
func DetectDataType(head []byte) DataType {
	for _, v := range byteCodeSigs {
		if bytes.HasPrefix(head, v.Sig) {
			return v.DataType
		}
	}

	return DataTypeNoCompression
}

// MaybeDecompress peeks at the head of rc and, if it carries a known
// compression signature, wraps it in the matching decompressor. Closing the
// result closes rc. BGZF files are multi-member gzip and are read whole.
func MaybeDecompress(rc io.ReadCloser) (io.ReadCloser, DataType, error) {
	br := bufio.NewReaderSize(rc, BufferSize)

	// Short files peek fewer bytes along with io.EOF
	head, peekErr := br.Peek(6)
	if peekErr != nil && peekErr != io.EOF && peekErr != bufio.ErrBufferFull {
		rc.Close()
		return nil, DataTypeInvalid, pfx.Err(peekErr)
	}

	dt := DetectDataType(head)

	var inner io.Reader
	var err error
	switch dt {
	case DataTypeGzip:
		inner, err = gzip.NewReader(br)
	case DataTypeZip:
		// Only the first member of an archive is read
		zr := zipstream.NewReader(br)
		if _, err = zr.Next(); err == nil {
			inner = zr
		}
	case DataTypeBZip2:
		inner = bzip2.NewReader(br)
	case DataTypeXZ:
		inner, err = xz.NewReader(br, 0)
	case DataTypeZlib:
		inner, err = zlib.NewReader(br)
	default:
		inner = br
	}
	if err != nil {
		rc.Close()
		return nil, DataTypeInvalid, pfx.Err(fmt.Errorf("opening %s stream: %w", dt, err))
	}

	return &stackedCloser{Reader: inner, closers: closersOf(inner, rc)}, dt, nil
}

func closersOf(inner io.Reader, base io.Closer) []io.Closer {
	if c, ok := inner.(io.Closer); ok {
		return []io.Closer{c, base}
	}

	return []io.Closer{base}
}

// stackedCloser closes the decompressor before the underlying file
type stackedCloser struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedCloser) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}

	return first
}
