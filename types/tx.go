package types

import (
	"errors"
	"fmt"

	psbytes "github.com/protocolindex/projectsink/libs/bytes"
)

// Tx is a confirmed transaction body as delivered by the chain-sync driver.
// Only the parts the indexer reads are modelled.
type Tx struct {
	// ID is the transaction hash.
	ID psbytes.HexBytes `json:"id"`

	// Outputs in the transaction's own ordering; indices into this slice are
	// what event batches refer to.
	Outputs []Output `json:"outputs"`

	// Mint holds the minted (positive) and burned (negative) quantities.
	Mint map[Unit]int64 `json:"mint,omitempty"`
}

// Output is an entry in a transaction's result set.
type Output struct {
	// ID is the surrogate id assigned by the output-storage layer. Rows
	// projected from this output use it as their primary key.
	ID int64 `json:"id"`

	Address string `json:"address"`
	Value   Value  `json:"value"`

	// Datum is the inline CBOR-encoded state payload, nil when absent.
	Datum psbytes.HexBytes `json:"datum,omitempty"`

	// Script is the reference script carried by the output, nil when absent.
	Script *Script `json:"script,omitempty"`
}

// Value is an output's coin amount and asset bundle.
type Value struct {
	Coins  uint64          `json:"coins"`
	Assets map[Unit]uint64 `json:"assets,omitempty"`
}

// Has reports whether the bundle holds a positive quantity of unit.
func (v Value) Has(unit Unit) bool {
	return v.Assets[unit] > 0
}

// Output returns the output at index, or an error if the index does not
// refer to one of the transaction's outputs.
func (tx *Tx) Output(index int) (*Output, error) {
	if index < 0 || index >= len(tx.Outputs) {
		return nil, fmt.Errorf("output index %d out of range [0, %d)", index, len(tx.Outputs))
	}
	return &tx.Outputs[index], nil
}

// ValidateBasic performs stateless validation of the transaction body.
func (tx *Tx) ValidateBasic() error {
	if len(tx.ID) == 0 {
		return errors.New("missing transaction id")
	}
	for i, out := range tx.Outputs {
		if out.ID <= 0 {
			return fmt.Errorf("output %d: missing surrogate id", i)
		}
		for unit := range out.Value.Assets {
			if err := unit.validate(); err != nil {
				return fmt.Errorf("output %d: %w", i, err)
			}
		}
	}
	for unit := range tx.Mint {
		if err := unit.validate(); err != nil {
			return fmt.Errorf("mint: %w", err)
		}
	}
	return nil
}

// String returns a short representation for logs.
func (tx *Tx) String() string {
	return fmt.Sprintf("Tx{%s outputs=%d}", tx.ID, len(tx.Outputs))
}
