package vegrid

import (
	"errors"
	"strings"
	"testing"
)

func TestAssertAligned_Identical(t *testing.T) {
	a := NewGrid([]int{1000, 2000}, []int{20, 40})
	b := NewGrid([]int{1000, 2000}, []int{20, 40})
	if err := AssertAligned(a, b); err != nil {
		t.Fatalf("aligned grids rejected: %v", err)
	}
}

func TestAssertAligned_RPMAxisMismatch(t *testing.T) {
	a := NewGrid([]int{1000, 2000}, []int{20, 40})
	b := NewGrid([]int{1000, 2500}, []int{20, 40})

	err := AssertAligned(a, b)
	var alignErr *AlignmentError
	if !errors.As(err, &alignErr) {
		t.Fatalf("expected *AlignmentError, got %v", err)
	}
	if alignErr.Axis != "rpm" {
		t.Errorf("Axis = %q, want rpm", alignErr.Axis)
	}
	if !strings.Contains(err.Error(), "rpm axis mismatch") {
		t.Errorf("error does not name the axis: %v", err)
	}
}

func TestAssertAligned_LoadAxisShifted(t *testing.T) {
	// Second load bin shifted by +2 relative to the baseline.
	a := NewGrid([]int{1000, 2000}, []int{20, 40})
	b := NewGrid([]int{1000, 2000}, []int{20, 42})

	err := AssertAligned(a, b)
	var alignErr *AlignmentError
	if !errors.As(err, &alignErr) {
		t.Fatalf("expected *AlignmentError, got %v", err)
	}
	if alignErr.Axis != "load" {
		t.Errorf("Axis = %q, want load", alignErr.Axis)
	}
}

func TestAssertAligned_LengthMismatch(t *testing.T) {
	a := NewGrid([]int{1000, 2000}, []int{20, 40, 60})
	b := NewGrid([]int{1000, 2000}, []int{20, 40})
	if err := AssertAligned(a, b); err == nil {
		t.Fatal("expected error for differing axis lengths")
	}
}
