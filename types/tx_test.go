package types

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPolicy = Hash28{0xaa, 0xbb}

func TestParseUnit(t *testing.T) {
	unit := NewUnit(testPolicy, []byte("project"))

	parsed, err := ParseUnit(strings.ToUpper(string(unit)))
	require.NoError(t, err)
	assert.Equal(t, unit, parsed)
	assert.Equal(t, testPolicy.String(), parsed.PolicyID())
	assert.Equal(t, "70726f6a656374", parsed.AssetName())

	for _, bad := range []string{"zz", "aabb", strings.Repeat("00", 61)} {
		_, err := ParseUnit(bad)
		assert.Error(t, err, bad)
	}
}

func TestTxJSONAndValidation(t *testing.T) {
	unit := NewUnit(testPolicy, []byte("p"))
	raw := `{
		"id": "0a0b",
		"outputs": [
			{"id": 7, "address": "addr_test1xyz", "value": {"coins": 2000000, "assets": {"` + string(unit) + `": 1}}, "datum": "d87980"},
			{"id": 8, "address": "addr_test1xyz", "value": {"coins": 1000000}}
		],
		"mint": {"` + string(unit) + `": -1}
	}`

	var tx Tx
	require.NoError(t, json.Unmarshal([]byte(raw), &tx))
	require.NoError(t, tx.ValidateBasic())

	out, err := tx.Output(0)
	require.NoError(t, err)
	assert.True(t, out.Value.Has(unit))
	assert.Equal(t, []byte{0xd8, 0x79, 0x80}, out.Datum.Bytes())
	assert.EqualValues(t, -1, tx.Mint[unit])

	_, err = tx.Output(2)
	require.Error(t, err)

	tx.Outputs[1].ID = 0
	require.Error(t, tx.ValidateBasic())
}

func TestTxUnitsAreNormalized(t *testing.T) {
	unit := NewUnit(testPolicy, []byte("p"))
	upper := strings.ToUpper(string(unit))
	raw := `{
		"id": "0a0b",
		"outputs": [{"id": 7, "value": {"coins": 2000000, "assets": {"` + upper + `": 1}}}],
		"mint": {"` + upper + `": 1}
	}`

	var tx Tx
	require.NoError(t, json.Unmarshal([]byte(raw), &tx))
	require.NoError(t, tx.ValidateBasic())
	assert.True(t, tx.Outputs[0].Value.Has(unit))
	assert.EqualValues(t, 1, tx.Mint[unit])

	bad := `{"id": "0a0b", "outputs": [{"id": 7, "value": {"coins": 1, "assets": {"zz": 1}}}]}`
	require.Error(t, json.Unmarshal([]byte(bad), &tx))

	built := Tx{
		ID: []byte{0x0a},
		Outputs: []Output{{
			ID:    7,
			Value: Value{Coins: 1, Assets: map[Unit]uint64{Unit(upper): 1}},
		}},
	}
	require.Error(t, built.ValidateBasic())

	built.Outputs[0].Value.Assets = map[Unit]uint64{unit: 1}
	built.Mint = map[Unit]int64{Unit(upper): -1}
	require.Error(t, built.ValidateBasic())
}
