package numeric

import (
	"math"
	"math/rand"
	"testing"
)

func TestVectorAddRow(t *testing.T) {
	m := NewMatrix(2, 3)
	m.Data = []float32{1, 2, 3, 4, 5, 6}
	v := NewVector(3)
	v.AddRow(m, 1, 2.0)
	want := []float32{8, 10, 12}
	for i, x := range want {
		if v.Data[i] != x {
			t.Fatalf("AddRow[%d] = %v, want %v", i, v.Data[i], x)
		}
	}
}

func TestMatrixDotRow(t *testing.T) {
	m := NewMatrix(1, 3)
	m.Data = []float32{1, 2, 3}
	v := &Vector{Data: []float32{1, 1, 1}}
	if got := m.DotRow(v, 0); got != 6 {
		t.Fatalf("DotRow = %v, want 6", got)
	}
}

func TestMatrixCellIndexing(t *testing.T) {
	m := NewMatrix(2, 3)
	m.UpdateCell(1, 2, 9)
	if got := m.GetCell(1, 2); got != 9 {
		t.Fatalf("GetCell = %v, want 9", got)
	}
	if m.Data[1*3+2] != 9 {
		t.Fatalf("expected i*n+j indexing, row stride should be n=3")
	}
}

func TestTablesSigmoidSaturates(t *testing.T) {
	tb := NewTables()
	if tb.Sigmoid(-100) != 0 {
		t.Fatalf("sigmoid should saturate to 0 for very negative input")
	}
	if tb.Sigmoid(100) != 1 {
		t.Fatalf("sigmoid should saturate to 1 for very positive input")
	}
	mid := tb.Sigmoid(0)
	if math.Abs(float64(mid)-0.5) > 0.02 {
		t.Fatalf("sigmoid(0) = %v, want ~0.5", mid)
	}
}

func TestTablesLogAboveOneIsZero(t *testing.T) {
	tb := NewTables()
	if tb.Log(1.5) != 0 {
		t.Fatalf("log(x>1) must return 0 per spec guard")
	}
}

func TestSampleBetaRange(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		v := SampleBeta(rng, 2, 5)
		if v < 0 || v > 1 {
			t.Fatalf("beta sample out of (0,1): %v", v)
		}
	}
}

func TestBetaPDFUnimodal(t *testing.T) {
	// Beta(2,2) peaks at 0.5
	if BetaPDF(0.5, 2, 2) < BetaPDF(0.1, 2, 2) {
		t.Fatalf("Beta(2,2) should be larger at 0.5 than at 0.1")
	}
}
