package nn

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
)

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// TestSinusoidTableShape verifies the table dimensions for several sizes
func TestSinusoidTableShape(t *testing.T) {
	for _, tc := range []struct{ n, dim int }{
		{1, 1}, {5, 4}, {10, 7}, {64, 128},
	} {
		table := SinusoidEncodingTableN(tc.n, tc.dim, 0)
		if table.Shape[0] != tc.n || table.Shape[1] != tc.dim {
			t.Errorf("n=%d dim=%d: got shape %v", tc.n, tc.dim, table.Shape)
		}
		if len(table.Data) != tc.n*tc.dim {
			t.Errorf("n=%d dim=%d: got %d values", tc.n, tc.dim, len(table.Data))
		}
	}
}

// TestSinusoidTableRowZero verifies position 0 is the alternating
// sin(0)=0 / cos(0)=1 pattern
func TestSinusoidTableRowZero(t *testing.T) {
	table := SinusoidEncodingTableN(3, 6, 1000)
	for j := 0; j < 6; j++ {
		want := float32(0)
		if j%2 == 1 {
			want = 1
		}
		if table.Data[j] != want {
			t.Errorf("row 0 col %d: expected %v, got %v", j, want, table.Data[j])
		}
	}
}

// TestSinusoidTableFirstColumns verifies columns 0 and 1, whose frequency
// exponent reduces to 0, hold sin(pos) and cos(pos) directly
func TestSinusoidTableFirstColumns(t *testing.T) {
	const dim = 8
	table := SinusoidEncodingTableN(12, dim, 1000)

	var gotSin, gotCos, wantSin, wantCos []float64
	for p := 0; p < 12; p++ {
		gotSin = append(gotSin, float64(table.Data[p*dim]))
		gotCos = append(gotCos, float64(table.Data[p*dim+1]))
		wantSin = append(wantSin, math.Sin(float64(p)))
		wantCos = append(wantCos, math.Cos(float64(p)))
	}

	if !floats.EqualApprox(gotSin, wantSin, 1e-6) {
		t.Errorf("column 0 should be sin(pos): got %v", gotSin)
	}
	if !floats.EqualApprox(gotCos, wantCos, 1e-6) {
		t.Errorf("column 1 should be cos(pos): got %v", gotCos)
	}
}

// TestSinusoidTableExplicitPositions verifies an explicit position list is
// encoded row by row in the given order
func TestSinusoidTableExplicitPositions(t *testing.T) {
	const dim = 4
	explicit := SinusoidEncodingTable([]int{7, 0, 3}, dim, 1000)
	full := SinusoidEncodingTableN(8, dim, 1000)

	for r, pos := range []int{7, 0, 3} {
		got := explicit.Data[r*dim : (r+1)*dim]
		want := full.Data[pos*dim : (pos+1)*dim]
		if !floats.EqualApprox(toFloat64(got), toFloat64(want), 1e-9) {
			t.Errorf("row %d (position %d): got %v, want %v", r, pos, got, want)
		}
	}
}

// TestSinusoidTableDeterministic verifies two builds produce identical values
func TestSinusoidTableDeterministic(t *testing.T) {
	a := SinusoidEncodingTableN(20, 16, 1000)
	b := SinusoidEncodingTableN(20, 16, 1000)
	if MaxAbsDiff(a.Data, b.Data) != 0 {
		t.Errorf("table construction is not deterministic")
	}
}

// TestPositionTableLookup verifies bounds checking and aliasing of the
// frozen lookup
func TestPositionTableLookup(t *testing.T) {
	table := NewPositionTable(SinusoidEncodingTableN(5, 4, 1000))

	if table.Rows() != 5 || table.Dim() != 4 {
		t.Fatalf("expected 5x4 table, got %dx%d", table.Rows(), table.Dim())
	}

	row, err := table.Lookup(4)
	if err != nil {
		t.Fatalf("Lookup(4) failed: %v", err)
	}
	if len(row) != 4 {
		t.Errorf("expected row of 4 values, got %d", len(row))
	}

	if _, err := table.Lookup(5); !errors.Is(err, ErrShape) {
		t.Errorf("Lookup(5) should fail with ErrShape, got %v", err)
	}
	if _, err := table.Lookup(-1); !errors.Is(err, ErrShape) {
		t.Errorf("Lookup(-1) should fail with ErrShape, got %v", err)
	}
}

// TestPositionTableFrozen verifies the table copies its source so later
// writes to the source tensor cannot leak in
func TestPositionTableFrozen(t *testing.T) {
	src := SinusoidEncodingTableN(3, 2, 1000)
	table := NewPositionTable(src)

	before, _ := table.Lookup(1)
	want := append([]float32(nil), before...)

	for i := range src.Data {
		src.Data[i] = 99
	}

	after, _ := table.Lookup(1)
	if MaxAbsDiff(want, after) != 0 {
		t.Errorf("frozen table changed after source mutation")
	}
}
