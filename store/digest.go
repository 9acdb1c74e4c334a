package store

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Digest is the BLAKE3 content address of an uncompressed checkpoint.
type Digest [32]byte

// checkpointDomainKey keys the hash so that checkpoint digests never
// collide with BLAKE3 digests of the same bytes computed elsewhere. It is
// the ASCII domain name, zero-padded to 32 bytes.
var checkpointDomainKey = [32]byte{
	's', 't', 'a', 's', 'i', 's', '.', 'c', 'h', 'e', 'c', 'k', 'p', 'o', 'i', 'n',
	't', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// DigestOf computes the content address of data.
func DigestOf(data []byte) Digest {
	hasher, err := blake3.NewKeyed(checkpointDomainKey[:])
	if err != nil {
		// only returned for a key of the wrong length
		panic("store: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	var d Digest
	copy(d[:], hasher.Sum(nil))
	return d
}

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// Short returns the first 12 hex digits, for display.
func (d Digest) Short() string { return d.String()[:12] }

// ParseDigest parses a 64-digit hex digest.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	if len(s) != 2*len(d) {
		return d, fmt.Errorf("digest %q: want %d hex digits, got %d", s, 2*len(d), len(s))
	}
	if _, err := hex.Decode(d[:], []byte(s)); err != nil {
		return d, fmt.Errorf("digest %q: %w", s, err)
	}
	return d, nil
}
