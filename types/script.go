package types

import (
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/blake2b"

	psbytes "github.com/protocolindex/projectsink/libs/bytes"
)

// ScriptLanguage is the language tag prefixed to a script before hashing.
type ScriptLanguage byte

const (
	ScriptNative   ScriptLanguage = 0
	ScriptPlutusV1 ScriptLanguage = 1
	ScriptPlutusV2 ScriptLanguage = 2
	ScriptPlutusV3 ScriptLanguage = 3
)

var scriptLanguageNames = map[ScriptLanguage]string{
	ScriptNative:   "native",
	ScriptPlutusV1: "plutus:v1",
	ScriptPlutusV2: "plutus:v2",
	ScriptPlutusV3: "plutus:v3",
}

func (l ScriptLanguage) String() string {
	if name, ok := scriptLanguageNames[l]; ok {
		return name
	}
	return fmt.Sprintf("ScriptLanguage(%d)", byte(l))
}

func (l ScriptLanguage) MarshalText() ([]byte, error) {
	if _, ok := scriptLanguageNames[l]; !ok {
		return nil, fmt.Errorf("unknown script language %d", byte(l))
	}
	return []byte(l.String()), nil
}

func (l *ScriptLanguage) UnmarshalText(data []byte) error {
	for lang, name := range scriptLanguageNames {
		if name == string(data) {
			*l = lang
			return nil
		}
	}
	return fmt.Errorf("unknown script language %q", data)
}

// Script is a reference script attached to an output.
type Script struct {
	Language ScriptLanguage   `json:"language"`
	Bytes    psbytes.HexBytes `json:"cbor"`
}

// Hash returns the script hash: blake2b-224 over the language tag followed
// by the script bytes.
func (s *Script) Hash() Hash28 {
	h, err := blake2b.New(Hash28Size, nil)
	if err != nil {
		// only fails for invalid sizes or keys
		panic(err)
	}
	h.Write([]byte{byte(s.Language)})
	h.Write(s.Bytes)

	var out Hash28
	copy(out[:], h.Sum(nil))
	return out
}

// UnmarshalJSON rejects scripts without bytes.
func (s *Script) UnmarshalJSON(data []byte) error {
	type script Script
	var raw script
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw.Bytes) == 0 {
		return fmt.Errorf("script %s: missing bytes", raw.Language)
	}
	*s = Script(raw)
	return nil
}
