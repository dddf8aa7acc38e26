package train

import (
	"github.com/lab/med2vec/pkg/corpus"
	"github.com/lab/med2vec/pkg/dictionary"
	"github.com/lab/med2vec/pkg/loss"
	"github.com/lab/med2vec/pkg/model"
	"github.com/lab/med2vec/pkg/numeric"
)

// CBOW runs the classical (non-temporal) continuous-bag-of-words
// update: flatten the record's groups into one word sequence ignoring
// time, and for each position predict the center word from its fixed
// window of ngram-expanded neighbors (spec's component table keeps
// "the classical non-temporal skip-gram/CBOW ... paths in scope
// because the parameter matrices and loss toolkit are shared").
func CBOW(st *loss.State, tables *numeric.Tables, p *model.Params, dict *dictionary.Dictionary, groups []corpus.WordTime, ws, negCount, wordNgrams int, lr float32) (lossSum float32, tokens int) {
	seq := flattenWords(groups)
	tokens = len(seq)
	for i, target := range seq {
		lo, hi := i-ws, i+ws
		if lo < 0 {
			lo = 0
		}
		if hi >= len(seq) {
			hi = len(seq) - 1
		}
		var ctx []int32
		for j := lo; j <= hi; j++ {
			if j == i {
				continue
			}
			ctx = append(ctx, dict.GetNgramsByID(seq[j])...)
		}
		if wordNgrams > 1 {
			ctx = dict.AddNgrams(ctx, wordNgrams)
		}
		if len(ctx) == 0 {
			continue
		}
		loss.ComputeHidden(st, p.Win, ctx)
		lossSum += loss.NegativeSampling(st, tables, p.Wout, target, negCount, lr)
		scale := 1.0 / float32(len(ctx))
		for _, id := range ctx {
			p.Win.AddRow(st.Grad, int(id), scale)
		}
	}
	return lossSum, tokens
}

// Supervised runs the classifier path directly on the record's
// flattened groups (ngram-expanded bag of word/phrase ids) predicting
// every accumulated label, disconnected from the time-aware scheduler
// per spec's "supervised mode ... appears disconnected from the
// time-aware training loop" characterization, but still exercising
// the shared loss kernels.
func Supervised(st *loss.State, tables *numeric.Tables, p *model.Params, tree *model.HuffmanTree, dict *dictionary.Dictionary, lossKind model.Loss, groups []corpus.WordTime, labels []int32, wordNgrams, negCount int, lr float32) (lossSum float32, tokens int) {
	if len(labels) == 0 {
		return 0, 0
	}
	seq := flattenWords(groups)
	tokens = len(seq)
	var ctx []int32
	for _, w := range seq {
		ctx = append(ctx, dict.GetNgramsByID(w)...)
	}
	if wordNgrams > 1 {
		ctx = dict.AddNgrams(ctx, wordNgrams)
	}
	if len(ctx) == 0 {
		return 0, tokens
	}
	loss.ComputeHidden(st, p.Win, ctx)
	for _, label := range labels {
		switch lossKind {
		case model.LossHS:
			lossSum += loss.HierarchicalSoftmax(st, tables, p.Wout, tree, label, lr)
		case model.LossSoftmax:
			lossSum += loss.Softmax(st, p.Wout, label, lr)
		default:
			lossSum += loss.NegativeSampling(st, tables, p.Wout, label, negCount, lr)
		}
		scale := 1.0 / float32(len(ctx)*len(labels))
		for _, id := range ctx {
			p.Win.AddRow(st.Grad, int(id), scale)
		}
	}
	return lossSum, tokens
}

func flattenWords(groups []corpus.WordTime) []int32 {
	var seq []int32
	for _, g := range groups {
		seq = append(seq, g.Words...)
	}
	return seq
}
