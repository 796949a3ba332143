package indexer

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/protocolindex/projectsink/types"
)

func testUnit(policy byte, name string) types.Unit {
	return types.NewUnit(types.Hash28{policy}, []byte(name))
}

var (
	projectUnit = testUnit(0x01, "project")
	detailUnit  = testUnit(0x02, "detail")
	scriptUnit  = testUnit(0x03, "script")
	otherUnit   = testUnit(0x04, "other")
)

func testTokenSets(t testing.TB) TokenSets {
	sets, err := NewTokenSets(
		[]string{string(projectUnit)},
		[]string{string(detailUnit)},
		[]string{string(scriptUnit)},
	)
	require.NoError(t, err)
	return sets
}

func outputWith(units ...types.Unit) types.Output {
	out := types.Output{ID: 1, Value: types.Value{Coins: 2_000_000, Assets: map[types.Unit]uint64{}}}
	for _, u := range units {
		out.Value.Assets[u] = 1
	}
	return out
}

func TestNewTokenSets(t *testing.T) {
	_, err := NewTokenSets([]string{"zz"}, nil, nil)
	require.Error(t, err)

	sets, err := NewTokenSets(
		[]string{string(projectUnit), string(projectUnit)},
		nil,
		[]string{"  " + string(scriptUnit) + " "},
	)
	require.NoError(t, err)
	assert.Equal(t, 1, sets.Project.Len())
	assert.Equal(t, 0, sets.Detail.Len())
	assert.True(t, sets.Script.Contains(scriptUnit))
	assert.Equal(t, []types.Unit{projectUnit}, sets.Project.Units())
}

func TestClassify(t *testing.T) {
	c := NewClassifier(testTokenSets(t))

	testCases := []struct {
		name string
		tx   *types.Tx
		want []Event
	}{
		{
			name: "no outputs",
			tx:   &types.Tx{},
			want: nil,
		},
		{
			name: "unrecognized tokens",
			tx:   &types.Tx{Outputs: []types.Output{outputWith(otherUnit), outputWith()}},
			want: nil,
		},
		{
			name: "one batch per kind in priority order",
			tx: &types.Tx{Outputs: []types.Output{
				outputWith(scriptUnit),
				outputWith(detailUnit),
				outputWith(projectUnit),
				outputWith(detailUnit, otherUnit),
				outputWith(scriptUnit),
			}},
			want: []Event{
				{Type: EventProject, Indices: []int{2}},
				{Type: EventProjectDetail, Indices: []int{1, 3}},
				{Type: EventProjectScript, Indices: []int{0, 4}},
			},
		},
		{
			name: "mixed tokens resolve to first match",
			tx: &types.Tx{Outputs: []types.Output{
				outputWith(scriptUnit, detailUnit),
				outputWith(detailUnit, projectUnit),
			}},
			want: []Event{
				{Type: EventProject, Indices: []int{1}},
				{Type: EventProjectDetail, Indices: []int{0}},
			},
		},
		{
			name: "zero quantity does not match",
			tx: &types.Tx{Outputs: []types.Output{{
				ID:    1,
				Value: types.Value{Assets: map[types.Unit]uint64{projectUnit: 0}},
			}}},
			want: nil,
		},
		{
			// A burned script token with no recognized outputs yields only
			// the ceased signal.
			name: "script burn",
			tx: &types.Tx{
				Outputs: []types.Output{outputWith(otherUnit)},
				Mint:    map[types.Unit]int64{scriptUnit: -1, otherUnit: 5},
			},
			want: []Event{{Type: EventProjectScriptCeased}},
		},
		{
			name: "script mint is not a burn",
			tx:   &types.Tx{Mint: map[types.Unit]int64{scriptUnit: 1, projectUnit: -1}},
			want: nil,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.Classify(tc.tx))
		})
	}
}

func TestClassifyUppercaseUnits(t *testing.T) {
	upper := strings.ToUpper(string(projectUnit))
	sets, err := NewTokenSets([]string{upper}, nil, nil)
	require.NoError(t, err)

	raw := `{"id": "01", "outputs": [{"id": 1, "value": {"coins": 2000000, "assets": {"` + upper + `": 1}}}]}`
	var tx types.Tx
	require.NoError(t, json.Unmarshal([]byte(raw), &tx))
	require.NoError(t, tx.ValidateBasic())

	events := NewClassifier(sets).Classify(&tx)
	assert.Equal(t, []Event{{Type: EventProject, Indices: []int{0}}}, events)
}

func TestClassifyProperties(t *testing.T) {
	sets := testTokenSets(t)
	c := NewClassifier(sets)
	units := []types.Unit{projectUnit, detailUnit, scriptUnit, otherUnit}

	rapid.Check(t, func(t *rapid.T) {
		tx := &types.Tx{Mint: map[types.Unit]int64{}}
		n := rapid.IntRange(0, 12).Draw(t, "outputs").(int)
		for i := 0; i < n; i++ {
			k := rapid.IntRange(0, 3).Draw(t, "tokens").(int)
			var carried []types.Unit
			for j := 0; j < k; j++ {
				carried = append(carried, rapid.SampledFrom(units).Draw(t, "unit").(types.Unit))
			}
			tx.Outputs = append(tx.Outputs, outputWith(carried...))
		}
		for _, u := range units {
			if rapid.Bool().Draw(t, "minted").(bool) {
				tx.Mint[u] = rapid.Int64Range(-3, 3).Draw(t, "delta").(int64)
			}
		}

		events := c.Classify(tx)
		if len(events) > 4 {
			t.Fatalf("got %d events", len(events))
		}

		// Each output index appears in at most one batch, batches are
		// non-empty and ascending, and the ceased signal is unique.
		seen := map[int]bool{}
		ceased := 0
		for _, ev := range events {
			if ev.Type == EventProjectScriptCeased {
				ceased++
				if len(ev.Indices) != 0 {
					t.Fatalf("ceased event carries indices: %v", ev)
				}
				continue
			}
			if len(ev.Indices) == 0 {
				t.Fatalf("empty batch: %v", ev)
			}
			for i, idx := range ev.Indices {
				if seen[idx] {
					t.Fatalf("index %d classified twice", idx)
				}
				seen[idx] = true
				if i > 0 && ev.Indices[i-1] >= idx {
					t.Fatalf("indices out of order: %v", ev)
				}
			}
		}
		if ceased > 1 {
			t.Fatalf("ceased emitted %d times", ceased)
		}
		if tx.Mint[scriptUnit] < 0 && ceased != 1 {
			t.Fatalf("script burn not signalled")
		}

		// An output is classified iff it carries a recognized token.
		for i, out := range tx.Outputs {
			recognized := out.Value.Has(projectUnit) || out.Value.Has(detailUnit) || out.Value.Has(scriptUnit)
			if recognized != seen[i] {
				t.Fatalf("output %d: recognized=%v classified=%v", i, recognized, seen[i])
			}
		}
	})
}

func TestCollect(t *testing.T) {
	tx := &types.Tx{Outputs: []types.Output{
		{ID: 10, Datum: []byte{1}},
		{ID: 11},
		{ID: 12, Datum: []byte{2}, Script: &types.Script{Language: types.ScriptPlutusV2, Bytes: []byte{0x4e}}},
		{ID: 13, Datum: []byte{1}},
	}}

	var sawHash []*types.Hash28
	decode := func(out Output) (Row, bool) {
		sawHash = append(sawHash, out.ScriptHash)
		if len(out.Datum) == 0 {
			return Row{}, false
		}
		return Row{Key: string(rune('a' + out.Datum[0])), OutputID: out.ID}, true
	}

	rows := Collect(tx, []int{0, 1, 2, 3, 7}, false, decode)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(13), rows[0].OutputID, "later duplicate replaces earlier one in place")
	assert.Equal(t, int64(12), rows[1].OutputID)
	for _, h := range sawHash {
		assert.Nil(t, h)
	}

	sawHash = nil
	Collect(tx, []int{2}, true, decode)
	require.Len(t, sawHash, 1)
	require.NotNil(t, sawHash[0])
	assert.Equal(t, tx.Outputs[2].Script.Hash(), *sawHash[0])
}
