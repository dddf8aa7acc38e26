package model

import (
	"math/rand"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lab/med2vec/pkg/dictionary"
)

func TestHuffmanTreePathsReachRoot(t *testing.T) {
	counts := []int64{5, 4, 3, 2, 1}
	tree := BuildHuffmanTree(counts)
	for leaf := range counts {
		require.NotEmpty(t, tree.Paths[leaf], "leaf %d", leaf)
		require.Len(t, tree.Codes[leaf], len(tree.Paths[leaf]), "leaf %d", leaf)
	}
}

func TestNegativeTableExcludesTarget(t *testing.T) {
	counts := []int64{10, 5, 1}
	nt := BuildNegativeTable(counts)
	rng := rand.New(rand.NewSource(1))
	wt := nt.Shuffled(rng)
	for i := 0; i < 1000; i++ {
		require.NotEqual(t, int32(0), wt.Next(0), "draw %d", i)
	}
}

func TestNewParamsRejectsEmptyVocab(t *testing.T) {
	_, err := NewParams(0, 0, Default(ModeSkipgram), rand.New(rand.NewSource(1)))
	require.Error(t, err)
}

func TestNewParamsShapesByMode(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	a := Default(ModeAttn1)
	a.Dim, a.AttnWS, a.Bucket = 8, 3, 0
	p, err := NewParams(5, 5, a, rng)
	require.NoError(t, err)
	require.NotNil(t, p.Attn)
	require.NotNil(t, p.Bias)
	require.Nil(t, p.Theta)
	require.Equal(t, 2*3+1, p.Attn.N)
}

func TestNewParamsSizesWinForNgramBuckets(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	a := Default(ModeSkipgram)
	a.Dim, a.Bucket = 4, 100
	p, err := NewParams(5, 5, a, rng)
	require.NoError(t, err)
	require.Equal(t, 5+100, p.Win.M, "Win must hold both word rows and the hashed ngram bucket rows")
}

func TestWarmStartDimensionMismatch(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	a := Default(ModeSkipgram)
	a.Dim, a.Bucket = 4, 0
	p, err := NewParams(2, 2, a, rng)
	require.NoError(t, err)
	err = p.WarmStart(map[string][]float32{"x": {1, 2, 3}}, func(string) (int32, bool) { return 0, true })
	require.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	cfg := dictionary.Config{Bucket: 0, Minn: 3, Maxn: 6, MinCount: 1}
	d := dictionary.NewWithCapacity(64, cfg)
	d.Add("alpha")
	d.Add("beta")
	d.Add("alpha")
	d.Threshold(1, 0)
	require.NoError(t, d.Finalize())

	rng := rand.New(rand.NewSource(1))
	a := Default(ModeSkipgram)
	a.Dim = 4
	a.WS = 2
	a.Bucket = 0
	p, err := NewParams(int(d.NWords()), int(d.NWords()), a, rng)
	require.NoError(t, err)

	path := t.TempDir() + "/model.bin"
	require.NoError(t, Save(path, a, d, p))
	defer os.Remove(path)

	loaded, err := Load(path, 1000)
	require.NoError(t, err)
	require.Equal(t, d.NWords(), loaded.Dict.NWords())
	require.Equal(t, p.Win.M, loaded.Params.Win.M)
	require.Equal(t, p.Win.N, loaded.Params.Win.N)
	require.Equal(t, p.Win.Data, loaded.Params.Win.Data)
}

func TestParseModeAndLoss(t *testing.T) {
	m, ok := ParseMode("attn2")
	require.True(t, ok)
	require.Equal(t, ModeAttn2, m)

	_, ok = ParseMode("bogus")
	require.False(t, ok)

	l, ok := ParseLoss("hs")
	require.True(t, ok)
	require.Equal(t, LossHS, l)

	require.True(t, ModeSkipgram.IsTimeAware())
	require.False(t, ModeCBOW.IsTimeAware())
}
