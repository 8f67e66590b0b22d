package alloc

import "strconv"

// DefaultPrecision is the number of decimals used for costs unless overridden
const DefaultPrecision = 2

// CostFormat controls how costs are rendered by the exporters and the reporter
type CostFormat struct {
	Precision int
}

// DefaultCostFormat renders costs with two decimals
var DefaultCostFormat = CostFormat{Precision: DefaultPrecision}

// Format renders a cost with a fixed number of decimals
func (f CostFormat) Format(cost float64) string {
	prec := f.Precision
	if prec < 0 {
		prec = 0
	}
	return strconv.FormatFloat(cost, 'f', prec, 64)
}
