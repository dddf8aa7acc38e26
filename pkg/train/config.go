// Package train is the training scheduler and the two time-aware loss
// drivers built on top of pkg/loss: the thread pool, per-worker file
// partitioning, global token counter, learning-rate decay and the
// sgContext/attnContext context builders of spec §§4.E-4.G.
package train

import (
	"github.com/lab/med2vec/pkg/corpus"
	"github.com/lab/med2vec/pkg/dictionary"
	"github.com/lab/med2vec/pkg/model"
)

// Config collects every CLI flag spec §6 names, resolved into the
// typed values the scheduler and dictionary/model builders need.
type Config struct {
	Input, Output, Test   string
	PretrainedVectors     string
	LR                    float64
	LRUpdateRate          int
	Dim                   int
	WS, AttnWS            int
	Epoch                 int
	MinCount, MinCountLbl int64
	Neg                   int
	WordNgrams            int
	Loss                  model.Loss
	Bucket                int
	Minn, Maxn            int
	Thread                int
	SubsampleT            float64
	Label                 string
	Verbose               int
	BetaBase              float64
	Delta                 float64
	Nrand                 int
	TimeUnit              corpus.TimeUnit
	OffsetScheme          corpus.OffsetScheme
	Mode                  model.Mode

	// ResumeDB, when non-empty, enables the optional bbolt resume
	// ledger (pkg/checkpoint); off by default.
	ResumeDB string
}

// DictionaryConfig projects the fields dictionary.Config needs.
func (c Config) DictionaryConfig() dictionary.Config {
	return dictionary.Config{
		LabelPrefix: c.Label,
		SubsampleT:  c.SubsampleT,
		Bucket:      c.Bucket,
		Minn:        c.Minn,
		Maxn:        c.Maxn,
		WordNgrams:  c.WordNgrams,
		MinCount:    c.MinCount,
		MinCountLbl: c.MinCountLbl,
	}
}

// ModelArgs projects the fields persisted in the binary model header.
func (c Config) ModelArgs() model.Args {
	return model.Args{
		Dim:           int64(c.Dim),
		WS:            int64(c.WS),
		AttnWS:        int64(c.AttnWS),
		Epoch:         int64(c.Epoch),
		MinCount:      c.MinCount,
		MinCountLabel: c.MinCountLbl,
		Neg:           int64(c.Neg),
		WordNgrams:    int64(c.WordNgrams),
		Bucket:        int64(c.Bucket),
		Minn:          int64(c.Minn),
		Maxn:          int64(c.Maxn),
		Thread:        int64(c.Thread),
		Nrand:         int64(c.Nrand),
		LR:            c.LR,
		SubsampleT:    c.SubsampleT,
		BetaBase:      c.BetaBase,
		Delta:         c.Delta,
		LRUpdateRate:  int64(c.LRUpdateRate),
		Mode:          c.Mode,
		Loss:          c.Loss,
		TimeUnit:      string(c.TimeUnit),
		Label:         c.Label,
	}
}
