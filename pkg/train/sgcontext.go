package train

import (
	"github.com/lab/med2vec/pkg/corpus"
	"github.com/lab/med2vec/pkg/loss"
	"github.com/lab/med2vec/pkg/model"
	"github.com/lab/med2vec/pkg/numeric"
)

// SGContext runs the time-weighted theta-gated skip-gram update over
// one record's time-ordered groups (spec §4.F). Returns the
// accumulated loss (Gaussian prior + Beta prior + theta-NS
// cross-entropy, reporting only) and the number of word tokens
// consumed, for the scheduler's global token counter.
func SGContext(st *loss.State, tables *numeric.Tables, p *model.Params, groups []corpus.WordTime, ws int, negCount int, cfg loss.ThetaConfig, betaBase float64, lr float32) (lossSum float32, tokens int) {
	for v, gv := range groups {
		for _, x := range gv.Words {
			tokens++
			loss.ComputeHidden(st, p.Win, []int32{x})
			lossSum += loss.GaussianPriorLoss(st.Hidden)

			// forward: c >= v, time-ascending, break once out of window
			for c := v; c < len(groups); c++ {
				if groups[c].Time-gv.Time > int64(ws) {
					break
				}
				lossSum += sgOffset(st, tables, p, groups[c], v, c, x, int(groups[c].Time-gv.Time), ws, negCount, cfg, betaBase, lr)
			}
			// backward: c < v, time-descending, break once out of window
			for c := v - 1; c >= 0; c-- {
				if gv.Time-groups[c].Time > int64(ws) {
					break
				}
				lossSum += sgOffset(st, tables, p, groups[c], v, c, x, int(groups[c].Time-gv.Time), ws, negCount, cfg, betaBase, lr)
			}
		}
	}
	return lossSum, tokens
}

// sgOffset is the "for each group c with |t_c-t_v|<=ws" body of spec
// §4.F: compute dst and its Beta-prior weight, run the theta-gated
// update against every y != x in group c, and write back the
// offset's averaged pContext into Theta[x,dst].
func sgOffset(st *loss.State, tables *numeric.Tables, p *model.Params, gc corpus.WordTime, v, c int, x int32, delta, ws, negCount int, cfg loss.ThetaConfig, betaBase float64, lr float32) float32 {
	nc := len(gc.Words)
	if c == v {
		nc--
	}
	if nc <= 0 {
		return 0
	}
	dst := int32(delta + ws)
	a := betaWeightForOffset(int(dst), ws)
	theta := p.Theta.GetCell(int(x), int(dst))
	lossSum := loss.BetaPriorLoss(theta, a, betaBase)

	var pContext float32
	for _, y := range gc.Words {
		if c == v && y == x {
			continue
		}
		l, s := loss.NSContext(st, tables, p.Wout, p.Theta, x, y, dst, negCount, cfg, lr)
		lossSum += l
		pContext += s
		// Finalization (spec §4.D): W_in[i,:] += grad for i in I={x}.
		p.Win.AddRow(st.Grad, int(x), 1)
	}
	p.Theta.UpdateCell(int(x), int(dst), pContext/float32(nc))
	return lossSum
}

func betaWeightForOffset(dst, ws int) float64 {
	if dst <= ws {
		return float64(dst + 1)
	}
	return float64(2*ws + 1 - dst)
}
