// Package alloc defines the allocation result model shared by the comparator,
// exporters and reporter. A Result records, for one function at one round,
// which physical register (if any) each virtual register received.
package alloc

// VReg identifies a virtual register (unique within a function/round)
type VReg int

// PhysReg identifies a physical register slot. The value is opaque except for NoPhysReg.
type PhysReg uint

// NoPhysReg is the sentinel meaning no physical register was assigned
const NoPhysReg PhysReg = 0

// Record is the outcome of allocating one virtual register
type Record struct {
	VReg    VReg
	PhysReg PhysReg
	RegName string  // display name, may be empty when spilled
	Cost    float64 // marginal cost of this decision
	Spilled bool
}

// Consistent reports whether Spilled agrees with the NoPhysReg sentinel.
// Nothing enforces this; producers are expected to keep the two in sync.
func (r Record) Consistent() bool {
	return r.Spilled == (r.PhysReg == NoPhysReg)
}

// Result is the complete allocation outcome for one function at one round.
// Records keep insertion order, which is the order the allocator reported them.
//
// The aggregates are maintained by Add and never recomputed, so records are
// only reachable read-only. The zero value is an empty result for round 0.
type Result struct {
	Function string
	Round    uint

	records    []Record
	totalCost  float64
	numVRegs   int
	numSpilled int
}

// NewResult creates an empty result for the given function and round
func NewResult(function string, round uint) *Result {
	return &Result{Function: function, Round: round}
}

// Add appends the allocation of one virtual register and updates the aggregates.
// The arguments are not checked against each other.
func (r *Result) Add(vreg VReg, physreg PhysReg, name string, cost float64, spilled bool) {
	r.records = append(r.records, Record{
		VReg:    vreg,
		PhysReg: physreg,
		RegName: name,
		Cost:    cost,
		Spilled: spilled,
	})
	if spilled {
		r.numSpilled++
	}
	r.totalCost += cost
	r.numVRegs++
}

// Clear drops all records and zeroes the aggregates. Function and Round are kept.
func (r *Result) Clear() {
	r.records = nil
	r.totalCost = 0
	r.numVRegs = 0
	r.numSpilled = 0
}

// Len returns the number of records
func (r *Result) Len() int {
	return len(r.records)
}

// At returns the i-th record in insertion order
func (r *Result) At(i int) Record {
	return r.records[i]
}

// Records returns a copy of the records in insertion order
func (r *Result) Records() []Record {
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// TotalCost returns the sum of all record costs
func (r *Result) TotalCost() float64 {
	return r.totalCost
}

// NumVRegs returns the number of virtual registers added
func (r *Result) NumVRegs() int {
	return r.numVRegs
}

// NumSpilled returns the number of spilled virtual registers
func (r *Result) NumSpilled() int {
	return r.numSpilled
}

// Inconsistent returns the virtual registers whose records break the
// spill/sentinel convention, in insertion order
func (r *Result) Inconsistent() []VReg {
	var bad []VReg
	for _, rec := range r.records {
		if !rec.Consistent() {
			bad = append(bad, rec.VReg)
		}
	}
	return bad
}
