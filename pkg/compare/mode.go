package compare

import (
	"fmt"

	"github.com/raymyers/regcheck/pkg/alloc"
)

// Mode selects how records of the two results are paired up
type Mode int

const (
	Positional Mode = iota // pair records by index
	ByVReg                 // pair records by virtual register
)

var modeNames = map[Mode]string{
	Positional: "positional",
	ByVReg:     "by-vreg",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode converts a mode name ("positional" or "by-vreg") to a Mode
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return Positional, fmt.Errorf("unknown comparison mode %q (want positional or by-vreg)", s)
}

// Options configures Run
type Options struct {
	Tolerance float64
	Mode      Mode
}

// DefaultOptions returns positional comparison with DefaultTolerance
func DefaultOptions() Options {
	return Options{Tolerance: DefaultTolerance, Mode: Positional}
}

// Run compares the two results using the mode named in opts
func Run(reference, candidate *alloc.Result, opts Options) *Result {
	switch opts.Mode {
	case ByVReg:
		return CompareByVReg(reference, candidate, opts.Tolerance)
	default:
		return Compare(reference, candidate, opts.Tolerance)
	}
}
