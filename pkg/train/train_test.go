package train

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lab/med2vec/pkg/corpus"
	"github.com/lab/med2vec/pkg/dictionary"
	"github.com/lab/med2vec/pkg/loss"
	"github.com/lab/med2vec/pkg/model"
	"github.com/lab/med2vec/pkg/numeric"
)

func newTestKernelState(t *testing.T, dim int, nrows int) (*loss.State, *numeric.Tables, *model.Params) {
	rng := rand.New(rand.NewSource(7))
	counts := make([]int64, nrows)
	for i := range counts {
		counts[i] = 1
	}
	nt := model.BuildNegativeTable(counts)
	wt := nt.Shuffled(rng)
	tables := numeric.NewTables()
	st := loss.NewState(dim, rng, wt)

	a := model.Default(model.ModeSkipgram)
	a.Dim = dim
	a.WS = 2
	a.AttnWS = 2
	a.Bucket = 0
	p, err := model.NewParams(nrows, nrows, a, rng)
	require.NoError(t, err)
	return st, tables, p
}

func TestSGContextConsumesEveryWord(t *testing.T) {
	st, tables, p := newTestKernelState(t, 4, 5)
	groups := []corpus.WordTime{
		{Time: 0, Words: []int32{0, 1}},
		{Time: 1, Words: []int32{2}},
		{Time: 3, Words: []int32{3, 4}},
	}
	cfg := loss.ThetaConfig{Delta: 0.2}
	_, tokens := SGContext(st, tables, p, groups, 2, 2, cfg, 10, 0.05)
	require.Equal(t, 5, tokens, "total words across groups")
}

func TestSGContextRespectsWindow(t *testing.T) {
	// A group far outside the window (delta > ws) must never reach
	// sgOffset's Theta.UpdateCell with an out-of-range offset column;
	// the forward/backward loops must break before it's considered.
	st, tables, p := newTestKernelState(t, 4, 5)
	groups := []corpus.WordTime{
		{Time: 0, Words: []int32{0, 1}},
		{Time: 100, Words: []int32{2}},
	}
	cfg := loss.ThetaConfig{Delta: 0.2}
	_, tokens := SGContext(st, tables, p, groups, 2, 1, cfg, 10, 0.05)
	require.Equal(t, 3, tokens)
}

func TestAttnContextConsumesFlattenedSequence(t *testing.T) {
	st, tables, p := newTestKernelState(t, 4, 5)
	groups := []corpus.WordTime{
		{Time: 0, Words: []int32{0, 1}},
		{Time: 1, Words: []int32{2, 3, 4}},
	}
	_, tokens := AttnContext(st, tables, p, groups, 2, 2, 2, false, 0.05)
	require.Equal(t, 5, tokens)
}

func TestAttnContextShortSequenceNoOp(t *testing.T) {
	st, tables, p := newTestKernelState(t, 4, 5)
	groups := []corpus.WordTime{{Time: 0, Words: []int32{0}}}
	lossSum, tokens := AttnContext(st, tables, p, groups, 2, 2, 2, false, 0.05)
	require.Equal(t, 1, tokens)
	require.Zero(t, lossSum)
}

func TestCBOWConsumesEveryWord(t *testing.T) {
	cfg := dictionary.Config{Bucket: 0, Minn: 3, Maxn: 6, MinCount: 1}
	d := dictionary.NewWithCapacity(64, cfg)
	for _, w := range []string{"a", "b", "c", "a", "b"} {
		d.Add(w)
	}
	d.Threshold(1, 0)
	require.NoError(t, d.Finalize())

	st, tables, p := newTestKernelState(t, 4, int(d.NWords()))
	groups := []corpus.WordTime{
		{Time: 0, Words: []int32{0, 1}},
		{Time: 1, Words: []int32{2}},
	}
	_, tokens := CBOW(st, tables, p, d, groups, 2, 2, 1, 0.05)
	require.Equal(t, 3, tokens)
}

func TestBuildAttnPairsExcludesOutOfRangeOffsets(t *testing.T) {
	seq := []seqEntry{{Token: 0, Time: 0}, {Token: 1, Time: 0}, {Token: 2, Time: 10}}
	pairs := buildAttnPairs(seq, 0, 2, 2)
	for _, pr := range pairs {
		require.NotEqual(t, int32(2), pr.Token, "token 2's offset is far outside the window")
	}
}

func TestConfigProjections(t *testing.T) {
	c := Config{Dim: 50, WS: 3, Label: "__label__", Mode: model.ModeAttn2, Loss: model.LossNS}
	dc := c.DictionaryConfig()
	require.Equal(t, "__label__", dc.LabelPrefix)

	ma := c.ModelArgs()
	require.Equal(t, int64(50), ma.Dim)
	require.Equal(t, model.ModeAttn2, ma.Mode)
}
