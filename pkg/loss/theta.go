package loss

import (
	"math"

	"github.com/lab/med2vec/pkg/numeric"
)

// ThetaConfig carries the scalar the theta-gated kernel needs beyond
// the shared State: the random-context floor delta (spec §4.D.iii).
type ThetaConfig struct {
	Delta float32
}

// thetaGuard is the numeric guard threshold on the blended probability p.
const thetaGuard = 1e-4

// ThetaPositive applies the theta-gated positive update (blContext)
// for input token inputTok against target t at theta-matrix offset
// dst, given the already-computed st.Hidden. Returns (loss, score)
// where score is s = sigma(<W_out[t,:], hidden>), the caller
// accumulates it into pContext.
func ThetaPositive(st *State, tables *numeric.Tables, wout, theta *numeric.Matrix, inputTok, t, dst int32, cfg ThetaConfig, lr float32) (loss float32, score float32) {
	s := tables.Sigmoid(wout.DotRow(st.Hidden, int(t)))
	th := theta.GetCell(int(inputTok), int(dst))
	p := th*s + (1-th)*cfg.Delta

	var alpha float32
	if float32(math.Abs(float64(p))) < thetaGuard {
		alpha = lr * (1 - s)
	} else {
		alpha = lr * th * (1 - s) * s / p
	}
	st.Grad.AddRow(wout, int(t), alpha)
	wout.AddRow(st.Hidden, int(t), alpha)

	if p <= 0 {
		p = 1e-7
	}
	return -tables.Log(clamp01(p)), s
}

// ThetaNegative applies the classical alpha = lr*(0-s) update for one
// negative draw (spec §4.D.iii, "for each negative sample ... same
// update as 4.D.i").
func ThetaNegative(st *State, tables *numeric.Tables, wout *numeric.Matrix, t int32, lr float32) float32 {
	return BinaryLogistic(st, tables, wout, t, false, lr)
}

func clamp01(x float32) float32 {
	if x > 1 {
		return 1
	}
	if x < 1e-7 {
		return 1e-7
	}
	return x
}

// NSContext runs the full theta-gated negative-sampling update for
// one (inputTok, target) pair: the positive update against target
// plus negCount negative draws, matching 4.D.iii's combination of
// blContext with the classical negative loop. Returns the summed loss
// and the positive score to let the caller accumulate pContext.
func NSContext(st *State, tables *numeric.Tables, wout, theta *numeric.Matrix, inputTok, target, dst int32, negCount int, cfg ThetaConfig, lr float32) (loss float32, posScore float32) {
	st.Grad.Zero()
	l, s := ThetaPositive(st, tables, wout, theta, inputTok, target, dst, cfg, lr)
	loss = l
	for i := 0; i < negCount; i++ {
		n := st.Neg.Next(target)
		loss += ThetaNegative(st, tables, wout, n, lr)
	}
	return loss, s
}

// GaussianPriorLoss reports -ln N(v; 0, I), the regularizing term
// spec §4.F accumulates on every center-group input vector. Reporting
// only, never differentiated (spec §4.A).
func GaussianPriorLoss(v *numeric.Vector) float32 {
	p := numeric.MVNPdf(v)
	if p <= 0 {
		p = 1e-300
	}
	return float32(-math.Log(p))
}

// BetaPriorLoss reports -ln Beta(theta; a, betaBase), the regularizer
// spec §4.F accumulates once per (x, dst) pair before the theta
// updates for that offset.
func BetaPriorLoss(theta float32, a, betaBase float64) float32 {
	p := numeric.BetaPDF(float64(theta), a, betaBase)
	if p <= 0 {
		p = 1e-300
	}
	return float32(-math.Log(p))
}

// BetaWeightForOffset mirrors spec §4.F's "a = dst+1 if dst<=ws, else
// a = 2ws+1-dst" rule used both at init time (model.betaColumnA) and
// for the reported prior loss during training.
func BetaWeightForOffset(dst, ws int) float64 {
	if dst <= ws {
		return float64(dst + 1)
	}
	return float64(2*ws + 1 - dst)
}
