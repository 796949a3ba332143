package types

import (
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// PolicyIDSize is the size in bytes of a minting policy id.
	PolicyIDSize = Hash28Size
	// MaxAssetNameSize is the maximum size in bytes of an asset name.
	MaxAssetNameSize = 32
)

// Unit identifies a native asset: the hex-encoded policy id followed by the
// hex-encoded asset name.
type Unit string

// NewUnit builds a Unit from its policy id and asset name.
func NewUnit(policy Hash28, name []byte) Unit {
	return Unit(policy.String() + hex.EncodeToString(name))
}

// ParseUnit validates and normalizes a hex-encoded unit.
func ParseUnit(s string) (Unit, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	bz, err := hex.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("invalid unit %q: %w", s, err)
	}
	if len(bz) < PolicyIDSize || len(bz) > PolicyIDSize+MaxAssetNameSize {
		return "", fmt.Errorf("invalid unit %q: expected %d to %d bytes, got %d",
			s, PolicyIDSize, PolicyIDSize+MaxAssetNameSize, len(bz))
	}
	return Unit(s), nil
}

// UnmarshalText parses and normalizes a hex-encoded unit, so that units
// read from JSON compare equal to those built by ParseUnit.
func (u *Unit) UnmarshalText(text []byte) error {
	parsed, err := ParseUnit(string(text))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// validate reports an error unless u is a well-formed unit in normalized
// form.
func (u Unit) validate() error {
	parsed, err := ParseUnit(string(u))
	if err != nil {
		return err
	}
	if parsed != u {
		return fmt.Errorf("unit %q is not in normalized lowercase form", string(u))
	}
	return nil
}

// PolicyID returns the policy id part of the unit.
func (u Unit) PolicyID() string {
	if len(u) < 2*PolicyIDSize {
		return string(u)
	}
	return string(u[:2*PolicyIDSize])
}

// AssetName returns the hex-encoded asset name part of the unit.
func (u Unit) AssetName() string {
	if len(u) < 2*PolicyIDSize {
		return ""
	}
	return string(u[2*PolicyIDSize:])
}
