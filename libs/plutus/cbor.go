package plutus

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

const (
	// Constructors 0..6 use tags 121..127, 7..127 use 1280..1400, anything
	// else the general form tag 102 [index, fields].
	tagConstrSmall     = 121
	tagConstrSmallMax  = 127
	tagConstrLarge     = 1280
	tagConstrLargeMax  = 1400
	tagConstrGeneral   = 102
	tagPositiveBignum  = 2
	tagNegativeBignum  = 3
	maxSmallConstr     = tagConstrSmallMax - tagConstrSmall
	maxLargeConstr     = 7 + tagConstrLargeMax - tagConstrLarge
	cborMajorUnsigned  = 0
	cborMajorNegative  = 1
	cborMajorBytes     = 2
	cborMajorArray     = 4
	cborMajorMap       = 5
	cborMajorTag       = 6
	cborIndefiniteInfo = 31
	cborBreak          = 0xff
)

var (
	decMode cbor.DecMode
	encMode cbor.EncMode
)

func init() {
	var err error
	decMode, err = cbor.DecOptions{
		MaxNestedLevels: 256,
		IndefLength:     cbor.IndefLengthAllowed,
	}.DecMode()
	if err != nil {
		panic(err)
	}
	encMode, err = cbor.EncOptions{}.EncMode()
	if err != nil {
		panic(err)
	}
}

// Decode parses a CBOR-encoded Plutus data value.
func Decode(bz []byte) (Data, error) {
	if len(bz) == 0 {
		return nil, errors.New("empty plutus data")
	}
	if err := decMode.Valid(bz); err != nil {
		return nil, fmt.Errorf("invalid cbor: %w", err)
	}
	return decodeRaw(bz)
}

func decodeRaw(raw []byte) (Data, error) {
	if len(raw) == 0 {
		return nil, errors.New("unexpected end of cbor input")
	}

	switch raw[0] >> 5 {
	case cborMajorUnsigned, cborMajorNegative:
		var i big.Int
		if err := decMode.Unmarshal(raw, &i); err != nil {
			return nil, fmt.Errorf("decoding int: %w", err)
		}
		return Int{&i}, nil

	case cborMajorBytes:
		var b []byte
		if err := decMode.Unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("decoding bytes: %w", err)
		}
		return Bytes(b), nil

	case cborMajorArray:
		items, err := decodeList(raw)
		if err != nil {
			return nil, err
		}
		return List(items), nil

	case cborMajorMap:
		return decodeMap(raw)

	case cborMajorTag:
		return decodeTag(raw)

	default:
		return nil, fmt.Errorf("unsupported cbor major type %d in plutus data", raw[0]>>5)
	}
}

func decodeList(raw []byte) ([]Data, error) {
	var items []cbor.RawMessage
	if err := decMode.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decoding list: %w", err)
	}
	out := make([]Data, 0, len(items))
	for i, item := range items {
		d, err := decodeRaw(item)
		if err != nil {
			return nil, fmt.Errorf("list item %d: %w", i, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// decodeMap walks the map items one at a time since byte-string keys cannot
// be decoded into a Go map.
func decodeMap(raw []byte) (Data, error) {
	count, offset, indefinite, err := readHeader(raw)
	if err != nil {
		return nil, err
	}

	dec := decMode.NewDecoder(bytes.NewReader(raw[offset:]))
	out := Map{}
	next := func() (Data, error) {
		var item cbor.RawMessage
		if err := dec.Decode(&item); err != nil {
			return nil, err
		}
		return decodeRaw(item)
	}

	for i := uint64(0); indefinite || i < count; i++ {
		if indefinite && raw[offset+dec.NumBytesRead()] == cborBreak {
			break
		}
		k, err := next()
		if err != nil {
			return nil, fmt.Errorf("map key %d: %w", i, err)
		}
		v, err := next()
		if err != nil {
			return nil, fmt.Errorf("map value %d: %w", i, err)
		}
		out = append(out, Pair{Key: k, Value: v})
	}
	return out, nil
}

func readHeader(raw []byte) (count uint64, offset int, indefinite bool, err error) {
	info := raw[0] & 0x1f
	switch {
	case info < 24:
		return uint64(info), 1, false, nil
	case info == cborIndefiniteInfo:
		return 0, 1, true, nil
	case info > 27:
		return 0, 0, false, fmt.Errorf("invalid cbor length encoding %d", info)
	}

	size := 1 << (info - 24)
	if len(raw) < 1+size {
		return 0, 0, false, errors.New("truncated cbor header")
	}
	for _, b := range raw[1 : 1+size] {
		count = count<<8 | uint64(b)
	}
	return count, 1 + size, false, nil
}

func decodeTag(raw []byte) (Data, error) {
	var tag cbor.RawTag
	if err := decMode.Unmarshal(raw, &tag); err != nil {
		return nil, fmt.Errorf("decoding tag: %w", err)
	}

	switch n := tag.Number; {
	case n >= tagConstrSmall && n <= tagConstrSmallMax:
		fields, err := decodeList(tag.Content)
		if err != nil {
			return nil, err
		}
		return NewConstr(n-tagConstrSmall, fields...), nil

	case n >= tagConstrLarge && n <= tagConstrLargeMax:
		fields, err := decodeList(tag.Content)
		if err != nil {
			return nil, err
		}
		return NewConstr(n-tagConstrLarge+7, fields...), nil

	case n == tagConstrGeneral:
		var general []cbor.RawMessage
		if err := decMode.Unmarshal(tag.Content, &general); err != nil {
			return nil, fmt.Errorf("decoding general constr: %w", err)
		}
		if len(general) != 2 {
			return nil, fmt.Errorf("general constr: expected 2 items, got %d", len(general))
		}
		var index uint64
		if err := decMode.Unmarshal(general[0], &index); err != nil {
			return nil, fmt.Errorf("general constr index: %w", err)
		}
		fields, err := decodeList(general[1])
		if err != nil {
			return nil, err
		}
		return NewConstr(index, fields...), nil

	case n == tagPositiveBignum || n == tagNegativeBignum:
		var i big.Int
		if err := decMode.Unmarshal(raw, &i); err != nil {
			return nil, fmt.Errorf("decoding bignum: %w", err)
		}
		return Int{&i}, nil

	default:
		return nil, fmt.Errorf("unsupported cbor tag %d in plutus data", n)
	}
}

// Encode serializes d as CBOR.
func Encode(d Data) ([]byte, error) {
	v, err := toCBOR(d)
	if err != nil {
		return nil, err
	}
	return encMode.Marshal(v)
}

// MustEncode is Encode panicking on error; meant for fixtures.
func MustEncode(d Data) []byte {
	bz, err := Encode(d)
	if err != nil {
		panic(err)
	}
	return bz
}

// toCBOR maps d onto values the cbor package encodes natively.
func toCBOR(d Data) (interface{}, error) {
	switch v := d.(type) {
	case Constr:
		fields, err := toCBOR(List(v.Fields))
		if err != nil {
			return nil, err
		}
		switch {
		case v.Index <= maxSmallConstr:
			return cbor.Tag{Number: tagConstrSmall + v.Index, Content: fields}, nil
		case v.Index <= maxLargeConstr:
			return cbor.Tag{Number: tagConstrLarge + v.Index - 7, Content: fields}, nil
		default:
			return cbor.Tag{Number: tagConstrGeneral, Content: []interface{}{v.Index, fields}}, nil
		}
	case Int:
		if v.Int == nil {
			return nil, errors.New("nil plutus int")
		}
		return v.Int, nil
	case Bytes:
		return []byte(v), nil
	case List:
		items := make([]interface{}, 0, len(v))
		for _, item := range v {
			enc, err := toCBOR(item)
			if err != nil {
				return nil, err
			}
			items = append(items, enc)
		}
		return items, nil
	case Map:
		return orderedMap(v), nil
	default:
		return nil, fmt.Errorf("cannot encode %T as plutus data", d)
	}
}

// orderedMap keeps the pair order of a Map, which Go maps cannot.
type orderedMap Map

// MarshalCBOR implements cbor.Marshaler.
func (m orderedMap) MarshalCBOR() ([]byte, error) {
	// The length header of a map is that of an unsigned int with the
	// major type bits swapped.
	out, err := encMode.Marshal(uint64(len(m)))
	if err != nil {
		return nil, err
	}
	out[0] |= cborMajorMap << 5
	for _, p := range m {
		for _, d := range []Data{p.Key, p.Value} {
			v, err := toCBOR(d)
			if err != nil {
				return nil, err
			}
			bz, err := encMode.Marshal(v)
			if err != nil {
				return nil, err
			}
			out = append(out, bz...)
		}
	}
	return out, nil
}
