package loss

import (
	"math/rand"
	"testing"

	"github.com/lab/med2vec/pkg/model"
	"github.com/lab/med2vec/pkg/numeric"
)

func newTestState(dim int, counts []int64) *State {
	rng := rand.New(rand.NewSource(1))
	nt := model.BuildNegativeTable(counts)
	wt := nt.Shuffled(rng)
	return NewState(dim, rng, wt)
}

func TestComputeHiddenIsMean(t *testing.T) {
	win := numeric.NewMatrix(2, 2)
	win.Data = []float32{1, 1, 3, 3}
	st := newTestState(2, []int64{1, 1})
	ComputeHidden(st, win, []int32{0, 1})
	if st.Hidden.Data[0] != 2 || st.Hidden.Data[1] != 2 {
		t.Fatalf("hidden = %v, want mean [2,2]", st.Hidden.Data)
	}
}

func TestComputeHiddenEmptyIsZero(t *testing.T) {
	win := numeric.NewMatrix(2, 2)
	st := newTestState(2, []int64{1, 1})
	st.Hidden.Data[0] = 9
	ComputeHidden(st, win, nil)
	if st.Hidden.Data[0] != 0 {
		t.Fatalf("hidden should be reset to zero for an empty id list")
	}
}

func TestBinaryLogisticMovesScoreTowardLabel(t *testing.T) {
	tables := numeric.NewTables()
	wout := numeric.NewMatrix(1, 4)
	st := newTestState(4, []int64{1})
	st.Hidden.Data = []float32{1, 0, 0, 0}

	before := tables.Sigmoid(wout.DotRow(st.Hidden, 0))
	BinaryLogistic(st, tables, wout, 0, true, 0.5)
	after := tables.Sigmoid(wout.DotRow(st.Hidden, 0))
	if after <= before {
		t.Fatalf("positive update should raise the score: before=%v after=%v", before, after)
	}
}

func TestNegativeSamplingNeverDrawsTarget(t *testing.T) {
	tables := numeric.NewTables()
	wout := numeric.NewMatrix(3, 2)
	st := newTestState(2, []int64{5, 5, 5})
	st.Hidden.Data = []float32{1, 1}
	for i := 0; i < 200; i++ {
		NegativeSampling(st, tables, wout, 1, 4, 0.05)
		if n := st.Neg.Next(1); n == 1 {
			t.Fatalf("draw %d returned the target id 1", i)
		}
	}
}

func TestHierarchicalSoftmaxWalksFullPath(t *testing.T) {
	tables := numeric.NewTables()
	counts := []int64{4, 3, 2, 1}
	tree := model.BuildHuffmanTree(counts)
	wout := numeric.NewMatrix(2*len(counts)-1, 2)
	st := newTestState(2, counts)
	st.Hidden.Data = []float32{1, 1}
	loss := HierarchicalSoftmax(st, tables, wout, tree, 0, 0.1)
	if loss <= 0 {
		t.Fatalf("hierarchical softmax loss should be positive, got %v", loss)
	}
}

func TestSoftmaxPicksOutTarget(t *testing.T) {
	wout := numeric.NewMatrix(3, 2)
	st := newTestState(2, []int64{1, 1, 1})
	st.Hidden.Data = []float32{1, 0}
	loss := Softmax(st, wout, 1, 0.1)
	if loss <= 0 {
		t.Fatalf("softmax -log(p) should be positive before convergence")
	}
}

func TestThetaPositiveGuardsNearZeroP(t *testing.T) {
	tables := numeric.NewTables()
	wout := numeric.NewMatrix(1, 2)
	theta := numeric.NewMatrix(1, 3)
	theta.UpdateCell(0, 1, 0) // th=0 forces p toward delta
	st := newTestState(2, []int64{1})
	st.Hidden.Data = []float32{0, 0}
	cfg := ThetaConfig{Delta: 0}
	loss, score := ThetaPositive(st, tables, wout, theta, 0, 0, 1, cfg, 0.1)
	if loss < 0 {
		t.Fatalf("theta loss should be non-negative, got %v", loss)
	}
	_ = score
}

func TestBetaWeightForOffsetMirrorsAroundCenter(t *testing.T) {
	ws := 5
	for dst := 0; dst <= 2*ws; dst++ {
		got := BetaWeightForOffset(dst, ws)
		mirrored := BetaWeightForOffset(2*ws-dst, ws)
		if got != mirrored {
			t.Fatalf("offset %d weight %v should mirror offset %d weight %v", dst, got, 2*ws-dst, mirrored)
		}
	}
}

func TestGaussianPriorLossPeaksAtOrigin(t *testing.T) {
	origin := numeric.NewVector(3)
	far := &numeric.Vector{Data: []float32{5, 5, 5}}
	if GaussianPriorLoss(origin) >= GaussianPriorLoss(far) {
		t.Fatalf("loss at origin should be lower than far from origin")
	}
}

func TestComputeAttnHiddenWeightsBySoftmax(t *testing.T) {
	win := numeric.NewMatrix(2, 2)
	win.Data = []float32{1, 0, 0, 1}
	attn := numeric.NewMatrix(2, 3)
	attn.UpdateCell(0, 1, 10) // token 0 at offset 1 dominates
	bias := numeric.NewVector(3)

	pairs := []ContextPair{{Token: 0, Offset: 1}, {Token: 1, Offset: 1}}
	ah := ComputeAttnHidden(win, attn, bias, pairs)
	if ah.Alpha[0] <= ah.Alpha[1] {
		t.Fatalf("token 0 should dominate the softmax weight: alpha=%v", ah.Alpha)
	}
}

func TestComputeAttnHidden2SymmetricInputsGiveEqualWeights(t *testing.T) {
	win := numeric.NewMatrix(2, 2)
	win.Data = []float32{1, 1, 1, 1} // identical rows: bilinear term is equal for both
	attn := numeric.NewMatrix(2, 3)
	bias := numeric.NewVector(3)
	pairs := []ContextPair{{Token: 0, Offset: 0}, {Token: 1, Offset: 0}}

	v1 := ComputeAttnHidden(win, attn, bias, pairs)
	v2 := ComputeAttnHidden2(win, attn, bias, 0, pairs)
	if v1.Alpha[0] != v1.Alpha[1] || v2.Alpha[0] != v2.Alpha[1] {
		t.Fatalf("symmetric inputs should produce equal weights in both variants")
	}
}
