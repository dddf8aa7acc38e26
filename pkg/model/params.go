package model

import (
	"fmt"
	"math/rand"

	"github.com/lab/med2vec/pkg/numeric"
)

// Params holds every matrix jointly owned by the training workers for
// the duration of one run. Exactly one of (Theta) or (Attn, Bias) is
// populated, selected by Args.Mode.
type Params struct {
	Win  *numeric.Matrix // (nwords+bucket) x dim, trainable embeddings
	Wout *numeric.Matrix // nwords (or nlabels, supervised) x dim

	Theta *numeric.Matrix // nwords x (2*ws+1), skipgram/cbow/supervised modes
	Attn  *numeric.Matrix // nwords x (2*attnws+1), attention models only
	Bias  *numeric.Vector // len 2*attnws+1, attention models only

	Tables *numeric.Tables
	Tree   *HuffmanTree // hs loss only; NewParams and Load leave it nil
	Neg    *NegativeTable
}

// betaColumnA mirrors spec §3's Theta initialization: column a_j rises
// 1..ws+1 across [0,ws] then mirrors back down across [ws,2ws].
func betaColumnA(ws int) func(col int) float32 {
	return func(col int) float32 {
		if col <= ws {
			return float32(col + 1)
		}
		return float32(2*ws + 1 - col)
	}
}

// NewParams allocates and initializes every matrix Args.Mode needs.
// outRows is nwords in every mode except supervised, where it is
// nlabels (the supervised classifier predicts over labels). Win is
// sized nwords+bucket rows: rows [0,nwords) back plain word lookups,
// rows [nwords,nwords+bucket) back the hashed subword ngrams that
// GetNgramsByID/AddNgrams return (spec S4's input matrix shape),
// matching the original's loadVectors/createTrainRecord sizing.
func NewParams(nwords, outRows int, a Args, rng *rand.Rand) (*Params, error) {
	if nwords <= 0 {
		return nil, fmt.Errorf("model: cannot allocate parameters for empty vocabulary")
	}
	p := &Params{
		Win:    numeric.NewMatrix(nwords+int(a.Bucket), int(a.Dim)),
		Wout:   numeric.NewMatrix(outRows, int(a.Dim)),
		Tables: numeric.NewTables(),
	}
	p.Win.Uniform(1.0/float32(a.Dim), rng)
	// Wout stays zero per spec §3.

	switch a.Mode {
	case ModeSkipgram, ModeCBOW, ModeSupervised:
		ws := int(a.WS)
		p.Theta = numeric.NewMatrix(nwords, 2*ws+1)
		p.Theta.BetaColumns(float32(a.BetaBase), betaColumnA(ws), rng)
	case ModeAttn1, ModeAttn2:
		aws := int(a.AttnWS)
		p.Attn = numeric.NewMatrix(nwords, 2*aws+1)
		p.Bias = numeric.NewVector(2*aws + 1)
	}
	return p, nil
}

// WarmStart overwrites rows of Win with vectors read from a
// previously saved `.vec` file (the -pretrainedVectors flag); rows
// for words absent from the pretrained file keep their uniform
// initialization untouched. Returns an error on dimension mismatch
// per spec §7's "dimension mismatch against pretrained vectors".
func (p *Params) WarmStart(vecs map[string][]float32, lookup func(word string) (id int32, ok bool)) error {
	for word, vals := range vecs {
		if len(vals) != p.Win.N {
			return fmt.Errorf("model: pretrained vector dimension %d does not match -dim %d", len(vals), p.Win.N)
		}
		id, ok := lookup(word)
		if !ok {
			continue
		}
		for j, v := range vals {
			p.Win.UpdateCell(int(id), j, v)
		}
	}
	return nil
}
