package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/raymyers/regcheck/pkg/alloc"
)

// ErrAggregateMismatch is returned by ReadJSON when a document's counts or
// total cost disagree with its allocations
var ErrAggregateMismatch = errors.New("aggregate counts do not match allocations")

// Field order here is the order of the JSON output
type jsonResult struct {
	Function    string           `json:"function"`
	Round       uint             `json:"round"`
	TotalCost   json.Number      `json:"total_cost"`
	NumVRegs    int              `json:"num_vregs"`
	NumSpilled  int              `json:"num_spilled"`
	Allocations []jsonAllocation `json:"allocations"`
}

type jsonAllocation struct {
	VReg    alloc.VReg    `json:"vreg"`
	PhysReg alloc.PhysReg `json:"physreg"`
	RegName string        `json:"reg_name"`
	Cost    json.Number   `json:"cost"`
	Spilled bool          `json:"spilled"`
}

// JSONPrinter writes an allocation result as a JSON object
type JSONPrinter struct {
	w    io.Writer
	opts options
}

// NewJSONPrinter creates a JSON printer
func NewJSONPrinter(w io.Writer, opts ...Option) *JSONPrinter {
	return &JSONPrinter{w: w, opts: buildOptions(opts)}
}

// PrintResult writes the result as an indented JSON object followed by a newline.
// Costs are numbers rendered with the printer's cost format.
func (p *JSONPrinter) PrintResult(r *alloc.Result) error {
	costs := p.opts.costs
	doc := jsonResult{
		Function:    r.Function,
		Round:       r.Round,
		TotalCost:   json.Number(costs.Format(r.TotalCost())),
		NumVRegs:    r.NumVRegs(),
		NumSpilled:  r.NumSpilled(),
		Allocations: make([]jsonAllocation, 0, r.Len()),
	}
	for i := 0; i < r.Len(); i++ {
		rec := r.At(i)
		doc.Allocations = append(doc.Allocations, jsonAllocation{
			VReg:    rec.VReg,
			PhysReg: rec.PhysReg,
			RegName: rec.RegName,
			Cost:    json.Number(costs.Format(rec.Cost)),
			Spilled: rec.Spilled,
		})
	}

	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding %s round %d: %w", r.Function, r.Round, err)
	}
	return nil
}

// readResult mirrors jsonResult for decoding; absent aggregates stay nil
type readResult struct {
	Function    string       `json:"function"`
	Round       uint         `json:"round"`
	TotalCost   *json.Number `json:"total_cost"`
	NumVRegs    *int         `json:"num_vregs"`
	NumSpilled  *int         `json:"num_spilled"`
	Allocations []struct {
		VReg    alloc.VReg    `json:"vreg"`
		PhysReg alloc.PhysReg `json:"physreg"`
		RegName string        `json:"reg_name"`
		Cost    float64       `json:"cost"`
		Spilled bool          `json:"spilled"`
	} `json:"allocations"`
}

// ReadJSON parses a document written by JSONPrinter.
//
// Allocations are replayed through Add, so the aggregates of the returned
// result are derived from the records. When num_vregs or num_spilled are
// present they must agree with the records. When total_cost is present the
// record costs must sum to it within half a unit of its last decimal; costs
// rounded too coarsely to reproduce the total are rejected rather than
// allowed to shift a cost verdict.
func ReadJSON(r io.Reader) (*alloc.Result, error) {
	var doc readResult
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding allocation result: %w", err)
	}

	res := alloc.NewResult(doc.Function, doc.Round)
	for _, a := range doc.Allocations {
		res.Add(a.VReg, a.PhysReg, a.RegName, a.Cost, a.Spilled)
	}

	if doc.NumVRegs != nil && *doc.NumVRegs != res.NumVRegs() {
		return nil, fmt.Errorf("%s: num_vregs is %d but %d allocations listed: %w",
			doc.Function, *doc.NumVRegs, res.NumVRegs(), ErrAggregateMismatch)
	}
	if doc.NumSpilled != nil && *doc.NumSpilled != res.NumSpilled() {
		return nil, fmt.Errorf("%s: num_spilled is %d but %d allocations are spilled: %w",
			doc.Function, *doc.NumSpilled, res.NumSpilled(), ErrAggregateMismatch)
	}
	if doc.TotalCost != nil {
		if err := checkTotalCost(*doc.TotalCost, res.TotalCost()); err != nil {
			return nil, fmt.Errorf("%s: %w", doc.Function, err)
		}
	}
	return res, nil
}

func checkTotalCost(declared json.Number, sum float64) error {
	total, err := declared.Float64()
	if err != nil {
		return fmt.Errorf("total_cost %q: %w", declared, err)
	}
	slack := roundingSlack(declared) + 1e-9*math.Max(1, math.Abs(total))
	if math.Abs(total-sum) > slack {
		return fmt.Errorf("total_cost is %s but allocation costs sum to %s; re-export with more decimals: %w",
			declared, strconv.FormatFloat(sum, 'f', -1, 64), ErrAggregateMismatch)
	}
	return nil
}

// roundingSlack is half a unit in the last decimal place of n
func roundingSlack(n json.Number) float64 {
	s := string(n)
	exp := 0
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		exp, _ = strconv.Atoi(s[i+1:])
		s = s[:i]
	}
	decimals := 0
	if i := strings.IndexByte(s, '.'); i >= 0 {
		decimals = len(s) - i - 1
	}
	return 0.5 * math.Pow10(exp-decimals)
}
