package store

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// A stored blob is framed as
//
//	magic "STSF" | compression (1 byte) | uncompressed length (uvarint) | payload
var frameMagic = []byte("STSF")

// maxBlobSize bounds the uncompressed length read from a frame so a
// corrupt header cannot trigger a huge allocation.
const maxBlobSize = math.MaxInt32

func encodeFrame(c Compression, size int, payload []byte) []byte {
	buf := make([]byte, 0, len(frameMagic)+1+binary.MaxVarintLen64+len(payload))
	buf = append(buf, frameMagic...)
	buf = append(buf, byte(c))
	buf = binary.AppendUvarint(buf, uint64(size))
	return append(buf, payload...)
}

func decodeFrame(data []byte) (Compression, int, []byte, error) {
	if !bytes.HasPrefix(data, frameMagic) {
		return 0, 0, nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	rest := data[len(frameMagic):]
	if len(rest) < 1 {
		return 0, 0, nil, fmt.Errorf("%w: truncated header", ErrCorrupt)
	}
	c := Compression(rest[0])
	size, n := binary.Uvarint(rest[1:])
	if n <= 0 {
		return 0, 0, nil, fmt.Errorf("%w: bad length", ErrCorrupt)
	}
	if size > maxBlobSize {
		return 0, 0, nil, fmt.Errorf("%w: length %d exceeds limit", ErrCorrupt, size)
	}
	return c, int(size), rest[1+n:], nil
}
