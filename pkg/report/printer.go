// Package report renders comparison results for humans
package report

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/raymyers/regcheck/pkg/alloc"
	"github.com/raymyers/regcheck/pkg/compare"
	"github.com/raymyers/regcheck/pkg/export"
)

const (
	passMark = "✓"
	failMark = "✗"

	ansiGreen = "\x1b[32m"
	ansiRed   = "\x1b[31m"
	ansiReset = "\x1b[0m"
)

// Option configures a Printer
type Option func(*Printer)

// WithColor enables ANSI colors on the pass/fail marks
func WithColor(on bool) Option {
	return func(p *Printer) {
		p.color = on
	}
}

// WithCostFormat overrides the default two-decimal cost rendering
func WithCostFormat(f alloc.CostFormat) Option {
	return func(p *Printer) {
		p.costs = f
	}
}

// Printer writes comparison reports
type Printer struct {
	w     io.Writer
	color bool
	costs alloc.CostFormat
}

// NewPrinter creates a report printer
func NewPrinter(w io.Writer, opts ...Option) *Printer {
	p := &Printer{w: w, costs: alloc.DefaultCostFormat}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PrintResult prints a comparison result.
//
// An equivalent result gets a single success line. Otherwise each check gets a
// pass/fail line, followed by details for the failed checks that have any; a
// positional length mismatch therefore prints no allocation details.
func (p *Printer) PrintResult(res *compare.Result) {
	fmt.Fprintln(p.w, "=== Allocation Comparison Results ===")
	if res.Mode != compare.Positional {
		fmt.Fprintf(p.w, "Mode: %s\n", res.Mode)
	}

	if res.Equivalent() {
		fmt.Fprintf(p.w, "%s All checks PASSED - Implementations are equivalent\n", p.mark(true))
		return
	}

	fmt.Fprintln(p.w, "\nCheck Results:")
	fmt.Fprintf(p.w, "%s Allocation matches\n", p.mark(res.AllocationMatches))
	fmt.Fprintf(p.w, "%s Cost matches\n", p.mark(res.CostMatches))
	fmt.Fprintf(p.w, "%s Spill decisions match\n", p.mark(res.SpillMatches))

	if !res.AllocationMatches && len(res.AllocationDiffs) > 0 {
		fmt.Fprintln(p.w, "\nAllocation Differences:")
		for _, d := range res.AllocationDiffs {
			fmt.Fprintf(p.w, "  VReg %d: expected %d\n", d.VReg, d.Got)
		}
	}

	if !res.CostMatches {
		fmt.Fprintf(p.w, "\nCost Difference: %s\n", p.costs.Format(res.CostDifference))
	}

	if !res.SpillMatches && len(res.SpillDiffs) > 0 {
		fmt.Fprintln(p.w, "\nSpill Differences:")
		for _, vreg := range res.SpillDiffs {
			fmt.Fprintf(p.w, "  VReg %d\n", vreg)
		}
	}
}

func (p *Printer) mark(ok bool) string {
	m, c := passMark, ansiGreen
	if !ok {
		m, c = failMark, ansiRed
	}
	if !p.color {
		return m
	}
	return c + m + ansiReset
}

// PrintDiff prints a unified diff between the text exports of the two results.
// Nothing is printed when the exports are identical.
func (p *Printer) PrintDiff(reference, candidate *alloc.Result) error {
	var a, b bytes.Buffer
	export.NewTextPrinter(&a, export.WithCostFormat(p.costs)).PrintResult(reference)
	export.NewTextPrinter(&b, export.WithCostFormat(p.costs)).PrintResult(candidate)

	if bytes.Equal(a.Bytes(), b.Bytes()) {
		return nil
	}

	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(a.String()),
		B:        difflib.SplitLines(b.String()),
		FromFile: "reference",
		ToFile:   "candidate",
		Context:  3,
	}
	if err := difflib.WriteUnifiedDiff(p.w, ud); err != nil {
		return fmt.Errorf("writing allocation diff: %w", err)
	}
	return nil
}
