// Package compare checks a candidate register allocation against a reference.
//
// Two modes exist. Positional (the default) walks both results in lock-step
// and assumes they list virtual registers in the same order; a length
// difference is reported only as a failed allocation verdict. ByVReg matches
// records by virtual register instead and tolerates reordering.
package compare

import (
	"math"

	"github.com/raymyers/regcheck/pkg/alloc"
)

// DefaultTolerance is the largest total-cost difference still counted as a match
const DefaultTolerance = 1.0

// Mismatch is one allocation difference.
//
// VReg is the reference's virtual register and Got is the physical register
// the candidate holds at the same position (ByVReg: for the same virtual
// register, or NoPhysReg when the candidate lacks it). The pairing is
// deliberately asymmetric: the report reads "VReg <VReg>: expected <Got>".
type Mismatch struct {
	VReg alloc.VReg
	Got  alloc.PhysReg
}

// Result is the outcome of one comparison
type Result struct {
	AllocationMatches bool
	CostMatches       bool
	SpillMatches      bool

	AllocationDiffs []Mismatch
	CostDifference  float64 // absolute, set only when CostMatches is false
	SpillDiffs      []alloc.VReg

	Mode         Mode
	ReferenceLen int
	CandidateLen int
}

// Equivalent reports whether all three checks passed
func (r *Result) Equivalent() bool {
	return r.AllocationMatches && r.CostMatches && r.SpillMatches
}

func newResult(mode Mode, reference, candidate *alloc.Result) *Result {
	return &Result{
		AllocationMatches: true,
		CostMatches:       true,
		SpillMatches:      true,
		Mode:              mode,
		ReferenceLen:      reference.Len(),
		CandidateLen:      candidate.Len(),
	}
}

// Compare compares two results position by position.
// Neither argument is modified. A cost difference equal to tolerance matches.
func Compare(reference, candidate *alloc.Result, tolerance float64) *Result {
	res := newResult(Positional, reference, candidate)

	if reference.Len() != candidate.Len() {
		// no positional correspondence, so no itemized differences
		res.AllocationMatches = false
	} else {
		for i := 0; i < reference.Len(); i++ {
			ref := reference.At(i)
			cand := candidate.At(i)

			if ref.VReg != cand.VReg {
				res.addAllocationDiff(ref.VReg, cand.PhysReg)
				continue
			}

			if ref.PhysReg != cand.PhysReg {
				res.addAllocationDiff(ref.VReg, cand.PhysReg)
			}

			if ref.Spilled != cand.Spilled {
				res.addSpillDiff(ref.VReg)
			}
		}
	}

	res.compareCost(reference, candidate, tolerance)
	return res
}

// CompareByVReg compares two results keyed by virtual register.
//
// Reference records are visited in order. A virtual register the candidate
// lacks is reported as a Mismatch with Got == NoPhysReg; candidate-only
// virtual registers follow in candidate order. If the candidate repeats a
// virtual register, its first record is used. Duplicate reference virtual
// registers are not detected: each copy is checked against that same
// candidate record, so reference [1, 1] against candidate [1] can match.
func CompareByVReg(reference, candidate *alloc.Result, tolerance float64) *Result {
	res := newResult(ByVReg, reference, candidate)

	byVReg := make(map[alloc.VReg]alloc.Record, candidate.Len())
	for i := 0; i < candidate.Len(); i++ {
		rec := candidate.At(i)
		if _, dup := byVReg[rec.VReg]; !dup {
			byVReg[rec.VReg] = rec
		}
	}

	seen := make(map[alloc.VReg]bool, reference.Len())
	for i := 0; i < reference.Len(); i++ {
		ref := reference.At(i)
		seen[ref.VReg] = true

		cand, ok := byVReg[ref.VReg]
		if !ok {
			res.addAllocationDiff(ref.VReg, alloc.NoPhysReg)
			continue
		}
		if ref.PhysReg != cand.PhysReg {
			res.addAllocationDiff(ref.VReg, cand.PhysReg)
		}
		if ref.Spilled != cand.Spilled {
			res.addSpillDiff(ref.VReg)
		}
	}

	for i := 0; i < candidate.Len(); i++ {
		cand := candidate.At(i)
		if seen[cand.VReg] {
			continue
		}
		seen[cand.VReg] = true
		res.addAllocationDiff(cand.VReg, cand.PhysReg)
	}

	res.compareCost(reference, candidate, tolerance)
	return res
}

func (r *Result) addAllocationDiff(vreg alloc.VReg, got alloc.PhysReg) {
	r.AllocationMatches = false
	r.AllocationDiffs = append(r.AllocationDiffs, Mismatch{VReg: vreg, Got: got})
}

func (r *Result) addSpillDiff(vreg alloc.VReg) {
	r.SpillMatches = false
	r.SpillDiffs = append(r.SpillDiffs, vreg)
}

func (r *Result) compareCost(reference, candidate *alloc.Result, tolerance float64) {
	diff := math.Abs(reference.TotalCost() - candidate.TotalCost())
	if diff > tolerance {
		r.CostMatches = false
		r.CostDifference = diff
	}
}
