package clock

import (
	"testing"
)

// TestVectorClock_Property_CompareInverse tests that Compare is inverse
// under argument swap: Before<->After, Equal<->Equal, Concurrent<->Concurrent.
func TestVectorClock_Property_CompareInverse(t *testing.T) {
	pairs := []struct {
		name string
		vc1  VectorClock
		vc2  VectorClock
	}{
		{"ordered", VectorClock{"n1": 1, "n2": 1}, VectorClock{"n1": 2, "n2": 1}},
		{"equal", VectorClock{"n1": 3}, VectorClock{"n1": 3}},
		{"concurrent", VectorClock{"n1": 2, "n2": 1}, VectorClock{"n1": 1, "n2": 2}},
		{"empty vs nonempty", New(), VectorClock{"n1": 1}},
		{"disjoint nodes", VectorClock{"n1": 1}, VectorClock{"n2": 1}},
	}

	inverse := map[CompareResult]CompareResult{
		Before:     After,
		After:      Before,
		Equal:      Equal,
		Concurrent: Concurrent,
	}

	for _, p := range pairs {
		t.Run(p.name, func(t *testing.T) {
			comp12 := p.vc1.Compare(p.vc2)
			comp21 := p.vc2.Compare(p.vc1)
			if comp21 != inverse[comp12] {
				t.Errorf("Compare not inverse: vc1.Compare(vc2)=%v but vc2.Compare(vc1)=%v", comp12, comp21)
			}
		})
	}
}

// TestVectorClock_Property_MergeDominatesBoth tests that merge(a,b) dominates both a and b
func TestVectorClock_Property_MergeDominatesBoth(t *testing.T) {
	vc1 := New()
	vc1.Set("n1", 1)
	vc1.Set("n2", 1)

	vc2 := New()
	vc2.Set("n1", 2)
	vc2.Set("n3", 1)

	merged := vc1.Merged(vc2)

	// Merged should dominate vc1
	comp1 := merged.Compare(vc1)
	if comp1 != After && comp1 != Equal {
		t.Errorf("Merged clock should dominate or equal vc1, got %v", comp1)
	}

	// Merged should dominate vc2
	comp2 := merged.Compare(vc2)
	if comp2 != After && comp2 != Equal {
		t.Errorf("Merged clock should dominate or equal vc2, got %v", comp2)
	}

	// Merged should have max of each node
	if merged.Get("n1") != 2 {
		t.Errorf("Merged should have n1=max(1,2)=2, got %d", merged.Get("n1"))
	}
	if merged.Get("n2") != 1 {
		t.Errorf("Merged should have n2=1, got %d", merged.Get("n2"))
	}
	if merged.Get("n3") != 1 {
		t.Errorf("Merged should have n3=1, got %d", merged.Get("n3"))
	}
}

// TestVectorClock_Property_MergeCommutative tests a.Merged(b) == b.Merged(a)
func TestVectorClock_Property_MergeCommutative(t *testing.T) {
	vc1 := VectorClock{"n1": 4, "n2": 1}
	vc2 := VectorClock{"n2": 3, "n3": 2}

	ab := vc1.Merged(vc2)
	ba := vc2.Merged(vc1)

	if !ab.Equal(ba) {
		t.Errorf("Merge should be commutative: %v vs %v", ab, ba)
	}
}

// TestVectorClock_Property_MergeIsIdempotent tests that merging with self doesn't change
func TestVectorClock_Property_MergeIsIdempotent(t *testing.T) {
	vc := New()
	vc.Set("n1", 1)
	vc.Set("n2", 2)

	if !vc.Merged(vc).Equal(vc) {
		t.Error("Merging clock with itself should not change it")
	}

	original := vc.Copy()
	vc.Merge(original)
	if !vc.Equal(original) {
		t.Error("In-place merge with a copy of self should not change the clock")
	}
}

// TestVectorClock_Property_IncrementIncreasesCounter tests that increment increases counter
func TestVectorClock_Property_IncrementIncreasesCounter(t *testing.T) {
	vc := New()
	vc.Set("n1", 5)

	vc.Increment("n1")
	if vc.Get("n1") != 6 {
		t.Errorf("Increment should increase counter from 5 to 6, got %d", vc.Get("n1"))
	}

	vc.Increment("n1")
	if vc.Get("n1") != 7 {
		t.Errorf("Increment should increase counter from 6 to 7, got %d", vc.Get("n1"))
	}
}

// TestVectorClock_Property_IncrementDominatesPrior tests that a single
// increment always produces a clock strictly after the prior one.
func TestVectorClock_Property_IncrementDominatesPrior(t *testing.T) {
	vc := VectorClock{"n1": 2, "n2": 7}
	prior := vc.Copy()

	vc.Increment("n1")

	if got := vc.Compare(prior); got != After {
		t.Errorf("Clock after increment should be After the prior clock, got %v", got)
	}
}

// TestVectorClock_Property_Transitivity tests transitivity of Before relation
func TestVectorClock_Property_Transitivity(t *testing.T) {
	vc1 := VectorClock{"n1": 1, "n2": 1}
	vc2 := VectorClock{"n1": 2, "n2": 1}
	vc3 := VectorClock{"n1": 3, "n2": 2}

	if vc1.Compare(vc2) != Before || vc2.Compare(vc3) != Before {
		t.Fatal("Test setup requires vc1 < vc2 < vc3")
	}
	if got := vc1.Compare(vc3); got != Before {
		t.Errorf("Transitivity: if vc1 < vc2 and vc2 < vc3, then vc1 < vc3, got %v", got)
	}
}
