// Package loss implements the update kernels shared by every training
// mode: classical binary-logistic/negative-sampling/hierarchical-
// softmax/softmax updates, and the two time-aware kernels this system
// exists for (theta-gated negative sampling and attention-weighted
// negative sampling). Every kernel reads and writes the shared
// parameter matrices directly (Hogwild discipline, see pkg/train) and
// returns the scalar loss contribution for progress reporting only.
package loss

import (
	"math"
	"math/rand"

	"github.com/lab/med2vec/pkg/model"
	"github.com/lab/med2vec/pkg/numeric"
)

// State is the per-worker scratch a loss kernel needs: the hidden and
// gradient accumulators (both length dim, reused across calls to
// avoid per-token allocation) and this worker's own RNG and negative-
// sampling table.
type State struct {
	Hidden *numeric.Vector
	Grad   *numeric.Vector
	RNG    *rand.Rand
	Neg    *model.WorkerTable
}

func NewState(dim int, rng *rand.Rand, neg *model.WorkerTable) *State {
	return &State{
		Hidden: numeric.NewVector(dim),
		Grad:   numeric.NewVector(dim),
		RNG:    rng,
		Neg:    neg,
	}
}

// ComputeHidden sets st.Hidden to the mean of W_in rows listed in ids
// (spec §4.D: "hidden = (1/|I|) * sum W_in[i,:]").
func ComputeHidden(st *State, win *numeric.Matrix, ids []int32) {
	st.Hidden.Zero()
	if len(ids) == 0 {
		return
	}
	for _, id := range ids {
		st.Hidden.AddRow(win, int(id), 1)
	}
	st.Hidden.Mul(1.0 / float32(len(ids)))
}

// BinaryLogistic performs one binary-logistic update against output
// row t with label y, accumulating alpha*W_out[t,:] into st.Grad and
// alpha*hidden into W_out[t,:] (spec §4.D.i). Returns -ln(score) for
// y=1, -ln(1-score) for y=0.
func BinaryLogistic(st *State, tables *numeric.Tables, wout *numeric.Matrix, t int32, y bool, lr float32) float32 {
	score := tables.Sigmoid(wout.DotRow(st.Hidden, int(t)))
	var label float32
	if y {
		label = 1
	}
	alpha := lr * (label - score)
	st.Grad.AddRow(wout, int(t), alpha)
	wout.AddRow(st.Hidden, int(t), alpha)
	if y {
		return -tables.Log(score)
	}
	return -tables.Log(1 - score)
}

// NegativeSampling runs one positive update on target plus `neg`
// negative updates on draws from st.Neg (spec §4.D.ii).
func NegativeSampling(st *State, tables *numeric.Tables, wout *numeric.Matrix, target int32, negCount int, lr float32) float32 {
	st.Grad.Zero()
	loss := BinaryLogistic(st, tables, wout, target, true, lr)
	for i := 0; i < negCount; i++ {
		n := st.Neg.Next(target)
		loss += BinaryLogistic(st, tables, wout, n, false, lr)
	}
	return loss
}

// HierarchicalSoftmax walks the root-to-leaf path of target, invoking
// BinaryLogistic per internal node with the bit-code as label (spec
// §4.D.v).
func HierarchicalSoftmax(st *State, tables *numeric.Tables, wout *numeric.Matrix, tree *model.HuffmanTree, target int32, lr float32) float32 {
	st.Grad.Zero()
	var loss float32
	path := tree.Paths[target]
	code := tree.Codes[target]
	for i, node := range path {
		loss += BinaryLogistic(st, tables, wout, node, code[i] != 0, lr)
	}
	return loss
}

// Softmax computes the full softmax(W_out . hidden) with max
// subtraction for stability, accumulates the cross-entropy gradient
// into st.Grad and W_out in one pass, and returns -ln p[target]
// (spec §4.D.vi).
func Softmax(st *State, wout *numeric.Matrix, target int32, lr float32) float32 {
	n := wout.M
	scores := make([]float32, n)
	var max float32 = -1e30
	for i := 0; i < n; i++ {
		s := wout.DotRow(st.Hidden, i)
		scores[i] = s
		if s > max {
			max = s
		}
	}
	var z float32
	for i := range scores {
		scores[i] = float32(math.Exp(float64(scores[i] - max)))
		z += scores[i]
	}
	st.Grad.Zero()
	for i := 0; i < n; i++ {
		p := scores[i] / z
		label := float32(0)
		if int32(i) == target {
			label = 1
		}
		alpha := lr * (label - p)
		st.Grad.AddRow(wout, i, alpha)
		wout.AddRow(st.Hidden, i, alpha)
	}
	p := scores[target] / z
	return -float32(math.Log(float64(p)))
}
