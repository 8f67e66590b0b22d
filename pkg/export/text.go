// Package export serializes allocation results as plain text or JSON, and
// reads the JSON form back.
package export

import (
	"fmt"
	"io"

	"github.com/raymyers/regcheck/pkg/alloc"
)

// Option configures a printer
type Option func(*options)

type options struct {
	costs alloc.CostFormat
}

// WithCostFormat overrides the default two-decimal cost rendering
func WithCostFormat(f alloc.CostFormat) Option {
	return func(o *options) {
		o.costs = f
	}
}

func buildOptions(opts []Option) options {
	o := options{costs: alloc.DefaultCostFormat}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// TextPrinter writes an allocation result in a human-readable form
type TextPrinter struct {
	w    io.Writer
	opts options
}

// NewTextPrinter creates a text printer
func NewTextPrinter(w io.Writer, opts ...Option) *TextPrinter {
	return &TextPrinter{w: w, opts: buildOptions(opts)}
}

// PrintResult prints the header and one line per record.
// Names are written verbatim.
func (p *TextPrinter) PrintResult(r *alloc.Result) {
	costs := p.opts.costs
	fmt.Fprintf(p.w, "Function: %s\n", r.Function)
	fmt.Fprintf(p.w, "Round: %d\n", r.Round)
	fmt.Fprintf(p.w, "Total Cost: %s\n", costs.Format(r.TotalCost()))
	fmt.Fprintf(p.w, "VRegs: %d, Spilled: %d\n", r.NumVRegs(), r.NumSpilled())
	fmt.Fprintln(p.w, "---")

	for i := 0; i < r.Len(); i++ {
		p.printRecord(r.At(i))
	}
}

func (p *TextPrinter) printRecord(rec alloc.Record) {
	fmt.Fprintf(p.w, "VReg%d -> ", rec.VReg)
	if rec.Spilled {
		fmt.Fprint(p.w, "SPILLED")
	} else {
		fmt.Fprintf(p.w, "%s (%d)", rec.RegName, rec.PhysReg)
	}
	fmt.Fprintf(p.w, " (cost: %s)\n", p.opts.costs.Format(rec.Cost))
}
