package loss

import (
	"math"

	"github.com/lab/med2vec/pkg/numeric"
)

// ContextPair is one (context_token, offset_index) entry of an
// attention window (spec §4.D.iv).
type ContextPair struct {
	Token  int32
	Offset int32
}

// AttnHidden is the result of computeAttnHidden: the weighted-sum
// context vector plus the softmax weights used again in the backward
// pass.
type AttnHidden struct {
	Hidden *numeric.Vector
	Alpha  []float32
}

// ComputeAttnHidden implements spec §4.D.iv's simplified formulation,
// z_k = attn[tok_k, off_k] + bias[off_k], alpha = softmax(z), hidden
// = sum_k alpha_k * W_in[tok_k,:]. ComputeAttnHidden2 builds the same
// score plus v2's bilinear term; both variants share one
// softmax/weighted-sum implementation (softmaxWeightedSum).
func ComputeAttnHidden(win, attn *numeric.Matrix, bias *numeric.Vector, pairs []ContextPair) *AttnHidden {
	z := make([]float32, len(pairs))
	for k, pr := range pairs {
		z[k] = attn.GetCell(int(pr.Token), int(pr.Offset)) + bias.Data[pr.Offset]
	}
	return softmaxWeightedSum(win, pairs, z)
}

// ComputeAttnHidden2 implements attention-v2 (spec §4.D.iv's open
// question, resolved per DESIGN.md): z_k gets an additional additive
// bilinear term <W_in[target,:], W_in[tok_k,:]> on top of v1's score.
func ComputeAttnHidden2(win, attn *numeric.Matrix, bias *numeric.Vector, target int32, pairs []ContextPair) *AttnHidden {
	targetVec := &numeric.Vector{Data: winRow(win, target)}
	z := make([]float32, len(pairs))
	for k, pr := range pairs {
		bilinear := targetVec.Dot(&numeric.Vector{Data: winRow(win, pr.Token)})
		z[k] = attn.GetCell(int(pr.Token), int(pr.Offset)) + bias.Data[pr.Offset] + bilinear
	}
	return softmaxWeightedSum(win, pairs, z)
}

func winRow(m *numeric.Matrix, i int32) []float32 {
	off := int(i) * m.N
	return m.Data[off : off+m.N]
}

func softmaxWeightedSum(win *numeric.Matrix, pairs []ContextPair, z []float32) *AttnHidden {
	n := len(pairs)
	alpha := make([]float32, n)
	if n == 0 {
		return &AttnHidden{Hidden: numeric.NewVector(win.N), Alpha: alpha}
	}
	max := z[0]
	for _, v := range z {
		if v > max {
			max = v
		}
	}
	var sum float32
	for k, v := range z {
		alpha[k] = float32(math.Exp(float64(v - max)))
		sum += alpha[k]
	}
	for k := range alpha {
		alpha[k] /= sum
	}
	hidden := numeric.NewVector(win.N)
	for k, pr := range pairs {
		hidden.AddRow(win, int(pr.Token), alpha[k])
	}
	return &AttnHidden{Hidden: hidden, Alpha: alpha}
}

// UpdateAttn runs attention-v1's forward/backward pass: negative
// sampling against target using ah.Hidden, fan the NS gradient back
// into each context token's W_in weighted by alpha_k, and accumulate
// the attn/bias gradient by backpropagating through the softmax
// (spec §4.D, "Attention-v1 (updateAttn)"):
//
//	dL/dz_k = <grad_hidden, W_in[tok_k,:]> * alpha_k
//	        - alpha_k * sum_j alpha_j * <grad_hidden, W_in[tok_j,:]>
func UpdateAttn(st *State, tables *numeric.Tables, win, wout, attn *numeric.Matrix, bias *numeric.Vector, ah *AttnHidden, pairs []ContextPair, target int32, negCount int, lr float32) float32 {
	prevHidden := st.Hidden
	st.Hidden = ah.Hidden
	loss := NegativeSampling(st, tables, wout, target, negCount, lr)
	gradHidden := st.Grad
	st.Hidden = prevHidden

	dot := make([]float32, len(pairs))
	var weightedSum float32
	for k, pr := range pairs {
		dot[k] = gradHidden.Dot(&numeric.Vector{Data: winRow(win, pr.Token)})
		weightedSum += ah.Alpha[k] * dot[k]
	}
	for k, pr := range pairs {
		win.AddRow(gradHidden, int(pr.Token), ah.Alpha[k])

		dz := ah.Alpha[k]*dot[k] - ah.Alpha[k]*weightedSum
		attn.UpdateCell(int(pr.Token), int(pr.Offset), attn.GetCell(int(pr.Token), int(pr.Offset))+lr*dz)
		bias.Data[pr.Offset] += lr * dz
	}
	return loss
}

// UpdateAttn2 is UpdateAttn's v2 counterpart: identical backward pass
// over z, plus the bilinear term's own gradient flowing into
// W_in[target,:] and W_in[tok_k,:] (dz_k/dW_in[target,:] =
// W_in[tok_k,:], and symmetrically for tok_k), per spec's "treat v2 as
// v1 with an additional additive term" resolution.
func UpdateAttn2(st *State, tables *numeric.Tables, win, wout, attn *numeric.Matrix, bias *numeric.Vector, ah *AttnHidden, pairs []ContextPair, target int32, negCount int, lr float32) float32 {
	prevHidden := st.Hidden
	st.Hidden = ah.Hidden
	loss := NegativeSampling(st, tables, wout, target, negCount, lr)
	gradHidden := st.Grad
	st.Hidden = prevHidden

	dot := make([]float32, len(pairs))
	var weightedSum float32
	for k, pr := range pairs {
		dot[k] = gradHidden.Dot(&numeric.Vector{Data: winRow(win, pr.Token)})
		weightedSum += ah.Alpha[k] * dot[k]
	}
	for k, pr := range pairs {
		win.AddRow(gradHidden, int(pr.Token), ah.Alpha[k])

		dz := ah.Alpha[k]*dot[k] - ah.Alpha[k]*weightedSum
		attn.UpdateCell(int(pr.Token), int(pr.Offset), attn.GetCell(int(pr.Token), int(pr.Offset))+lr*dz)
		bias.Data[pr.Offset] += lr * dz

		// bilinear term gradient: z_k also depends on
		// <W_in[target,:], W_in[tok_k,:]>.
		win.AddRow(&numeric.Vector{Data: winRow(win, pr.Token)}, int(target), lr*dz)
		win.AddRow(&numeric.Vector{Data: winRow(win, target)}, int(pr.Token), lr*dz)
	}
	return loss
}
