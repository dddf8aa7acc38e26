package train

import (
	"github.com/lab/med2vec/pkg/corpus"
	"github.com/lab/med2vec/pkg/loss"
	"github.com/lab/med2vec/pkg/model"
	"github.com/lab/med2vec/pkg/numeric"
)

// seqEntry is one flattened (token, time) position built by
// flattenGroups, the positional sequence spec §4.G's attnContext
// operates over.
type seqEntry struct {
	Token int32
	Time  int64
}

func flattenGroups(groups []corpus.WordTime) []seqEntry {
	var seq []seqEntry
	for _, g := range groups {
		for _, tok := range g.Words {
			seq = append(seq, seqEntry{Token: tok, Time: g.Time})
		}
	}
	return seq
}

// AttnContext runs the attention training update over one record
// (spec §4.G): flatten groups into a positional sequence, and for
// every focus position draw a random window boundary (from ws, the
// same draw skipgram's theta-gated kernel uses), build the
// (context_token, offset_index) pairs within it, and dispatch to the
// v1 or v2 attention kernel against the focus token.
func AttnContext(st *loss.State, tables *numeric.Tables, p *model.Params, groups []corpus.WordTime, ws, attnws, negCount int, v2 bool, lr float32) (lossSum float32, tokens int) {
	seq := flattenGroups(groups)
	tokens = len(seq)
	if len(seq) < 2 {
		return 0, tokens
	}
	for f := range seq {
		boundary := 1 + st.RNG.Intn(maxInt(ws, 1))
		pairs := buildAttnPairs(seq, f, boundary, attnws)
		if len(pairs) == 0 {
			continue
		}
		var ah *loss.AttnHidden
		if v2 {
			ah = loss.ComputeAttnHidden2(p.Win, p.Attn, p.Bias, seq[f].Token, pairs)
		} else {
			ah = loss.ComputeAttnHidden(p.Win, p.Attn, p.Bias, pairs)
		}
		if v2 {
			lossSum += loss.UpdateAttn2(st, tables, p.Win, p.Wout, p.Attn, p.Bias, ah, pairs, seq[f].Token, negCount, lr)
		} else {
			lossSum += loss.UpdateAttn(st, tables, p.Win, p.Wout, p.Attn, p.Bias, ah, pairs, seq[f].Token, negCount, lr)
		}
	}
	return lossSum, tokens
}

// buildAttnPairs builds the [-boundary,+boundary] (excluding 0)
// context window around focus position f, filtering out positions
// outside the sequence and offset indices outside [0,2*attnws] (spec
// §4.G step 2).
func buildAttnPairs(seq []seqEntry, f, boundary, attnws int) []loss.ContextPair {
	var pairs []loss.ContextPair
	for c := -boundary; c <= boundary; c++ {
		if c == 0 {
			continue
		}
		idx := f + c
		if idx < 0 || idx >= len(seq) {
			continue
		}
		off := seq[idx].Time - seq[f].Time + int64(attnws)
		if off < 0 || off > int64(2*attnws) {
			continue
		}
		pairs = append(pairs, loss.ContextPair{Token: seq[idx].Token, Offset: int32(off)})
	}
	return pairs
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
