package types

import (
	"encoding/hex"
	"fmt"
)

// Hash28Size is the size of blake2b-224 digests: key hashes, script hashes
// and policy ids.
const Hash28Size = 28

// Hash28 is a blake2b-224 digest.
type Hash28 [Hash28Size]byte

// ParseHash28 decodes a hex-encoded 28-byte hash.
func ParseHash28(s string) (Hash28, error) {
	var h Hash28
	bz, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	return Hash28FromBytes(bz)
}

// Hash28FromBytes copies bz into a Hash28, failing on a length mismatch.
func Hash28FromBytes(bz []byte) (Hash28, error) {
	var h Hash28
	if len(bz) != Hash28Size {
		return h, fmt.Errorf("invalid hash length: expected %d bytes, got %d", Hash28Size, len(bz))
	}
	copy(h[:], bz)
	return h, nil
}

func (h Hash28) String() string { return hex.EncodeToString(h[:]) }

// Bytes returns a copy of the digest.
func (h Hash28) Bytes() []byte {
	bz := make([]byte, Hash28Size)
	copy(bz, h[:])
	return bz
}

// IsZero reports whether h is the zero hash.
func (h Hash28) IsZero() bool { return h == Hash28{} }

// MarshalText encodes the hash as lowercase hex.
func (h Hash28) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText decodes a hex-encoded hash.
func (h *Hash28) UnmarshalText(data []byte) error {
	parsed, err := ParseHash28(string(data))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
