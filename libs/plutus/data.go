// Package plutus implements the Plutus data model used by on-chain datums:
// constructors, integers, byte strings, lists and maps, together with their
// CBOR encoding.
package plutus

import (
	"errors"
	"fmt"
	"math/big"
)

// Data is a Plutus data value. It is implemented by Constr, Int, Bytes, List
// and Map only.
type Data interface {
	isData()
}

// Constr is a constructor application: the Index-th alternative of a sum
// type applied to Fields.
type Constr struct {
	Index  uint64
	Fields []Data
}

// Int is an arbitrary precision integer.
type Int struct {
	*big.Int
}

// Bytes is a byte string.
type Bytes []byte

// List is an ordered list of values.
type List []Data

// Pair is a single key/value entry of a Map.
type Pair struct {
	Key   Data
	Value Data
}

// Map is an association list; key order is preserved.
type Map []Pair

func (Constr) isData() {}
func (Int) isData()    {}
func (Bytes) isData()  {}
func (List) isData()   {}
func (Map) isData()    {}

// ErrUnexpectedShape is wrapped by every accessor failure.
var ErrUnexpectedShape = errors.New("unexpected plutus data shape")

func shapeErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrUnexpectedShape, fmt.Sprintf(format, args...))
}

// NewConstr builds a constructor value.
func NewConstr(index uint64, fields ...Data) Constr {
	if fields == nil {
		fields = []Data{}
	}
	return Constr{Index: index, Fields: fields}
}

// NewInt builds an integer value.
func NewInt(v int64) Int {
	return Int{big.NewInt(v)}
}

// NewBool encodes a boolean as False = Constr 0 [], True = Constr 1 [].
func NewBool(b bool) Constr {
	if b {
		return NewConstr(1)
	}
	return NewConstr(0)
}

// Some wraps d as Constr 0 [d].
func Some(d Data) Constr {
	return NewConstr(0, d)
}

// None is Constr 1 [].
func None() Constr {
	return NewConstr(1)
}

// AsConstr asserts d is a constructor with the given index and arity and
// returns its fields.
func AsConstr(d Data, index uint64, arity int) ([]Data, error) {
	c, ok := d.(Constr)
	if !ok {
		return nil, shapeErr("expected constr %d, got %T", index, d)
	}
	if c.Index != index {
		return nil, shapeErr("expected constr %d, got constr %d", index, c.Index)
	}
	if len(c.Fields) != arity {
		return nil, shapeErr("constr %d: expected %d fields, got %d", index, arity, len(c.Fields))
	}
	return c.Fields, nil
}

// AsInt asserts d is an integer.
func AsInt(d Data) (*big.Int, error) {
	i, ok := d.(Int)
	if !ok || i.Int == nil {
		return nil, shapeErr("expected int, got %T", d)
	}
	return new(big.Int).Set(i.Int), nil
}

// AsInt64 asserts d is an integer that fits in an int64.
func AsInt64(d Data) (int64, error) {
	i, err := AsInt(d)
	if err != nil {
		return 0, err
	}
	if !i.IsInt64() {
		return 0, shapeErr("int %s overflows int64", i)
	}
	return i.Int64(), nil
}

// AsBytes asserts d is a byte string.
func AsBytes(d Data) ([]byte, error) {
	b, ok := d.(Bytes)
	if !ok {
		return nil, shapeErr("expected bytes, got %T", d)
	}
	return []byte(b), nil
}

// AsBool decodes False = Constr 0 [], True = Constr 1 [].
func AsBool(d Data) (bool, error) {
	c, ok := d.(Constr)
	if !ok || len(c.Fields) != 0 || c.Index > 1 {
		return false, shapeErr("expected bool, got %#v", d)
	}
	return c.Index == 1, nil
}

// AsOption decodes Some = Constr 0 [x], None = Constr 1 []. The boolean
// reports presence.
func AsOption(d Data) (Data, bool, error) {
	c, ok := d.(Constr)
	if !ok {
		return nil, false, shapeErr("expected option, got %T", d)
	}
	switch {
	case c.Index == 0 && len(c.Fields) == 1:
		return c.Fields[0], true, nil
	case c.Index == 1 && len(c.Fields) == 0:
		return nil, false, nil
	default:
		return nil, false, shapeErr("expected option, got constr %d with %d fields", c.Index, len(c.Fields))
	}
}
