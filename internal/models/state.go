package models

import "sort"

// ConstructionState is one of the six buckets a product can be in
type ConstructionState string

// ConstructionState constants
const (
	StateToBuild        ConstructionState = "TO_BUILD"
	StateInConstruction ConstructionState = "IN_CONSTRUCTION"
	StateCompleted      ConstructionState = "COMPLETED"
	StateToDemolish     ConstructionState = "TO_DEMOLISH"
	StateInDemolition   ConstructionState = "IN_DEMOLITION"
	StateDemolished     ConstructionState = "DEMOLISHED"
)

// AllStates in reporting order
var AllStates = []ConstructionState{
	StateToBuild, StateInConstruction, StateCompleted,
	StateToDemolish, StateInDemolition, StateDemolished,
}

// TaskPhase is where a task sits relative to a date
type TaskPhase string

// TaskPhase constants
const (
	PhasePending TaskPhase = "pending"
	PhaseActive  TaskPhase = "active"
	PhaseDone    TaskPhase = "done"
)

// OutputState maps a task phase to the bucket of the products it builds
func (p TaskPhase) OutputState() ConstructionState {
	switch p {
	case PhasePending:
		return StateToBuild
	case PhaseActive:
		return StateInConstruction
	}
	return StateCompleted
}

// InputState maps a task phase to the bucket of the products it removes
func (p TaskPhase) InputState() ConstructionState {
	switch p {
	case PhasePending:
		return StateToDemolish
	case PhaseActive:
		return StateInDemolition
	}
	return StateDemolished
}

// IDSet is a set of product ids
type IDSet map[int64]struct{}

// Add inserts ids
func (s IDSet) Add(ids ...int64) {
	for _, id := range ids {
		s[id] = struct{}{}
	}
}

// Has reports membership
func (s IDSet) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the ids in ascending order
func (s IDSet) Sorted() []int64 {
	out := make([]int64, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// StateBuckets is the classifier output. A product may appear in several
// buckets when more than one task references it.
type StateBuckets struct {
	Buckets map[ConstructionState]IDSet
	Tasks   map[int64]TaskPhase // phase of every classified task
}

// NewStateBuckets returns six empty buckets
func NewStateBuckets() *StateBuckets {
	b := &StateBuckets{
		Buckets: make(map[ConstructionState]IDSet, len(AllStates)),
		Tasks:   make(map[int64]TaskPhase),
	}
	for _, s := range AllStates {
		b.Buckets[s] = IDSet{}
	}
	return b
}

// Assign records a task phase and adds its products to the matching buckets
func (b *StateBuckets) Assign(taskID int64, phase TaskPhase, outputs, inputs []int64) {
	b.Tasks[taskID] = phase
	b.Buckets[phase.OutputState()].Add(outputs...)
	b.Buckets[phase.InputState()].Add(inputs...)
}

// Bucket returns the set for a state
func (b *StateBuckets) Bucket(s ConstructionState) IDSet {
	return b.Buckets[s]
}

// Equal compares bucket contents and task phases
func (b *StateBuckets) Equal(o *StateBuckets) bool {
	if b == nil || o == nil {
		return b == o
	}
	for _, s := range AllStates {
		x, y := b.Buckets[s], o.Buckets[s]
		if len(x) != len(y) {
			return false
		}
		for id := range x {
			if !y.Has(id) {
				return false
			}
		}
	}
	if len(b.Tasks) != len(o.Tasks) {
		return false
	}
	for id, p := range b.Tasks {
		if o.Tasks[id] != p {
			return false
		}
	}
	return true
}

// Summary returns sorted product ids per state, suitable for JSON
func (b *StateBuckets) Summary() map[ConstructionState][]int64 {
	out := make(map[ConstructionState][]int64, len(AllStates))
	for _, s := range AllStates {
		out[s] = b.Buckets[s].Sorted()
	}
	return out
}
