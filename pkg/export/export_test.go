package export

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/raymyers/regcheck/pkg/alloc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *alloc.Result {
	r := alloc.NewResult("main", 1)
	r.Add(1, 5, "X5", 1.25, false)
	r.Add(2, alloc.NoPhysReg, "", 3.25, true)
	return r
}

func TestTextPrinter(t *testing.T) {
	var buf bytes.Buffer
	NewTextPrinter(&buf).PrintResult(sampleResult())

	want := `Function: main
Round: 1
Total Cost: 4.50
VRegs: 2, Spilled: 1
---
VReg1 -> X5 (5) (cost: 1.25)
VReg2 -> SPILLED (cost: 3.25)
`
	assert.Equal(t, want, buf.String())
}

func TestTextPrinterEmpty(t *testing.T) {
	var buf bytes.Buffer
	NewTextPrinter(&buf).PrintResult(alloc.NewResult("empty", 0))

	assert.Equal(t, "Function: empty\nRound: 0\nTotal Cost: 0.00\nVRegs: 0, Spilled: 0\n---\n", buf.String())
}

func TestTextPrinterCostFormat(t *testing.T) {
	var buf bytes.Buffer
	NewTextPrinter(&buf, WithCostFormat(alloc.CostFormat{Precision: 3})).PrintResult(sampleResult())

	out := buf.String()
	assert.Contains(t, out, "Total Cost: 4.500\n")
	assert.Contains(t, out, "(cost: 1.250)")
}

func TestJSONPrinterExactOutput(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONPrinter(&buf).PrintResult(sampleResult()))

	want := `{
  "function": "main",
  "round": 1,
  "total_cost": 4.50,
  "num_vregs": 2,
  "num_spilled": 1,
  "allocations": [
    {
      "vreg": 1,
      "physreg": 5,
      "reg_name": "X5",
      "cost": 1.25,
      "spilled": false
    },
    {
      "vreg": 2,
      "physreg": 0,
      "reg_name": "",
      "cost": 3.25,
      "spilled": true
    }
  ]
}
`
	assert.Equal(t, want, buf.String())
}

func TestJSONPrinterEmptyAllocationsIsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONPrinter(&buf).PrintResult(alloc.NewResult("empty", 0)))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	allocs, ok := doc["allocations"].([]any)
	require.True(t, ok, "allocations should be an array, got %T", doc["allocations"])
	assert.Empty(t, allocs)
}

func TestJSONPrinterEscapesNames(t *testing.T) {
	r := alloc.NewResult(`odd"name`, 0)
	r.Add(1, 2, `R<2>`, 0, false)

	var buf bytes.Buffer
	require.NoError(t, NewJSONPrinter(&buf).PrintResult(r))
	assert.True(t, json.Valid(buf.Bytes()))
	assert.Contains(t, buf.String(), `"reg_name": "R<2>"`)

	back, err := ReadJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, `odd"name`, back.Function)
	assert.Equal(t, "R<2>", back.At(0).RegName)
}

func TestJSONPrinterRejectsNaN(t *testing.T) {
	r := alloc.NewResult("nan", 0)
	r.Add(1, 1, "R1", math.NaN(), false)

	var buf bytes.Buffer
	assert.Error(t, NewJSONPrinter(&buf).PrintResult(r))
}

func TestJSONRoundTrip(t *testing.T) {
	orig := sampleResult()

	var buf bytes.Buffer
	require.NoError(t, NewJSONPrinter(&buf).PrintResult(orig))

	back, err := ReadJSON(&buf)
	require.NoError(t, err)

	assert.Equal(t, orig.Function, back.Function)
	assert.Equal(t, orig.Round, back.Round)
	assert.InDelta(t, orig.TotalCost(), back.TotalCost(), 0.005)
	assert.Equal(t, orig.NumVRegs(), back.NumVRegs())
	assert.Equal(t, orig.NumSpilled(), back.NumSpilled())
	require.Equal(t, orig.Len(), back.Len())
	for i := 0; i < orig.Len(); i++ {
		want, got := orig.At(i), back.At(i)
		assert.Equal(t, want.VReg, got.VReg, "record %d", i)
		assert.Equal(t, want.PhysReg, got.PhysReg, "record %d", i)
		assert.Equal(t, want.RegName, got.RegName, "record %d", i)
		assert.InDelta(t, want.Cost, got.Cost, 0.005, "record %d", i)
		assert.Equal(t, want.Spilled, got.Spilled, "record %d", i)
	}
}

func TestJSONRoundTripGeneric(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONPrinter(&buf).PrintResult(sampleResult()))

	var doc struct {
		Function    string  `json:"function"`
		Round       int     `json:"round"`
		TotalCost   float64 `json:"total_cost"`
		Allocations []struct {
			VReg    int     `json:"vreg"`
			PhysReg int     `json:"physreg"`
			RegName string  `json:"reg_name"`
			Cost    float64 `json:"cost"`
			Spilled bool    `json:"spilled"`
		} `json:"allocations"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, "main", doc.Function)
	assert.Equal(t, 1, doc.Round)
	assert.InDelta(t, 4.5, doc.TotalCost, 1e-9)
	require.Len(t, doc.Allocations, 2)
	assert.Equal(t, 1, doc.Allocations[0].VReg)
	assert.Equal(t, 5, doc.Allocations[0].PhysReg)
	assert.Equal(t, "X5", doc.Allocations[0].RegName)
	assert.Equal(t, 2, doc.Allocations[1].VReg)
	assert.True(t, doc.Allocations[1].Spilled)
}

func TestReadJSONAggregateMismatch(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"vregs", `{"function":"f","round":0,"num_vregs":3,"num_spilled":0,"allocations":[{"vreg":1,"physreg":1,"reg_name":"R1","cost":1,"spilled":false}]}`},
		{"spilled", `{"function":"f","round":0,"num_vregs":1,"num_spilled":1,"allocations":[{"vreg":1,"physreg":1,"reg_name":"R1","cost":1,"spilled":false}]}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadJSON(strings.NewReader(tc.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrAggregateMismatch)
		})
	}
}

func smallCosts(cost float64) *alloc.Result {
	r := alloc.NewResult("small", 0)
	for i := 0; i < 300; i++ {
		r.Add(alloc.VReg(i), 1, "R1", cost, false)
	}
	return r
}

func TestReadJSONRejectsRoundedCosts(t *testing.T) {
	for _, cost := range []float64{0.006, 0.004} {
		var buf bytes.Buffer
		require.NoError(t, NewJSONPrinter(&buf).PrintResult(smallCosts(cost)))

		_, err := ReadJSON(&buf)
		require.Error(t, err, "cost %v", cost)
		assert.ErrorIs(t, err, ErrAggregateMismatch)
		assert.Contains(t, err.Error(), "total_cost")
	}
}

func TestReadJSONKeepsTotalWithEnoughDecimals(t *testing.T) {
	opt := WithCostFormat(alloc.CostFormat{Precision: 3})
	for _, tc := range []struct {
		cost  float64
		total float64
	}{
		{0.006, 1.8},
		{0.004, 1.2},
	} {
		var buf bytes.Buffer
		require.NoError(t, NewJSONPrinter(&buf, opt).PrintResult(smallCosts(tc.cost)))

		r, err := ReadJSON(&buf)
		require.NoError(t, err)
		assert.InDelta(t, tc.total, r.TotalCost(), 1e-9)
	}
}

func TestReadJSONTotalCost(t *testing.T) {
	tests := []struct {
		name  string
		total string
		ok    bool
	}{
		{"exact", "3.5", true},
		{"within rounding", "3.50", true},
		{"integer", "4", true},
		{"exponent", "35e-1", true},
		{"off by a cent", "3.51", false},
		{"off in third decimal", "3.504", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			doc := `{"function":"g","round":0,"total_cost":` + tc.total + `,"allocations":[
				{"vreg":4,"physreg":0,"reg_name":"","cost":2.5,"spilled":true},
				{"vreg":5,"physreg":3,"reg_name":"R3","cost":1,"spilled":false}]}`

			_, err := ReadJSON(strings.NewReader(doc))
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrAggregateMismatch)
			}
		})
	}
}

func TestReadJSONWithoutAggregates(t *testing.T) {
	doc := `{"function":"g","round":2,"allocations":[
		{"vreg":4,"physreg":0,"reg_name":"","cost":2.5,"spilled":true},
		{"vreg":5,"physreg":3,"reg_name":"R3","cost":1,"spilled":false}]}`

	r, err := ReadJSON(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "g", r.Function)
	assert.Equal(t, uint(2), r.Round)
	assert.Equal(t, 2, r.NumVRegs())
	assert.Equal(t, 1, r.NumSpilled())
	assert.Equal(t, 3.5, r.TotalCost())
}

func TestReadJSONMalformed(t *testing.T) {
	_, err := ReadJSON(strings.NewReader(`{"function": "f", "allocations": [`))
	assert.Error(t, err)
}
