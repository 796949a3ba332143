package bytes

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

// HexBytes is a wrapper around []byte that encodes data as lowercase
// hexadecimal strings for use in JSON, the way chain tooling prints hashes,
// datums and policy ids.
type HexBytes []byte

// MarshalText encodes a HexBytes value as hexadecimal digits.
// This method is used by json.Marshal.
func (bz HexBytes) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(bz)), nil
}

// UnmarshalText handles decoding of HexBytes from JSON strings.
// This method is used by json.Unmarshal.
func (bz *HexBytes) UnmarshalText(data []byte) error {
	input := string(data)
	if input == "" || input == "null" {
		return nil
	}
	dec, err := hex.DecodeString(input)
	if err != nil {
		return fmt.Errorf("decoding hex bytes: %w", err)
	}
	*bz = HexBytes(dec)
	return nil
}

// Bytes returns the wrapped slice.
func (bz HexBytes) Bytes() []byte {
	return bz
}

func (bz HexBytes) String() string {
	return hex.EncodeToString(bz)
}

// Copy creates a deep copy of HexBytes. It allocates new buffer and copies data into it.
func (bz HexBytes) Copy() HexBytes {
	if bz == nil {
		return nil
	}
	copied := make(HexBytes, len(bz))
	copy(copied, bz)
	return copied
}

func (bz HexBytes) Equal(b []byte) bool {
	return bytes.Equal(bz, b)
}
