// Package model owns the trained artifact: the shared parameter
// matrices (W_in, W_out, Theta or Attn/Bias), the Huffman tree used by
// hierarchical softmax, the negative-sampling table, and the binary/
// text persistence formats described in spec §6.
package model

// Mode selects which of the five training subcommands is running.
type Mode int8

const (
	ModeSkipgram Mode = iota
	ModeCBOW
	ModeSupervised
	ModeAttn1
	ModeAttn2
)

func (m Mode) String() string {
	switch m {
	case ModeSkipgram:
		return "skipgram"
	case ModeCBOW:
		return "cbow"
	case ModeSupervised:
		return "supervised"
	case ModeAttn1:
		return "attn1"
	case ModeAttn2:
		return "attn2"
	default:
		return "unknown"
	}
}

func ParseMode(s string) (Mode, bool) {
	switch s {
	case "skipgram":
		return ModeSkipgram, true
	case "cbow":
		return ModeCBOW, true
	case "supervised":
		return ModeSupervised, true
	case "attn1":
		return ModeAttn1, true
	case "attn2":
		return ModeAttn2, true
	}
	return 0, false
}

// IsTimeAware reports whether a mode runs through the temporal
// scheduler (sgContext/attnContext) rather than the classical,
// non-temporal update loop.
func (m Mode) IsTimeAware() bool {
	switch m {
	case ModeSkipgram, ModeAttn1, ModeAttn2:
		return true
	}
	return false
}

// Loss selects the classification loss of the supervised path (ns, hs
// or softmax). CBOW and the time-aware modes always use negative
// sampling, whatever Loss is set to.
type Loss int8

const (
	LossNS Loss = iota
	LossHS
	LossSoftmax
)

func ParseLoss(s string) (Loss, bool) {
	switch s {
	case "ns":
		return LossNS, true
	case "hs":
		return LossHS, true
	case "softmax":
		return LossSoftmax, true
	}
	return 0, false
}

func (l Loss) String() string {
	switch l {
	case LossNS:
		return "ns"
	case LossHS:
		return "hs"
	case LossSoftmax:
		return "softmax"
	}
	return "unknown"
}

// Args is the fixed-field argument block persisted at the head of the
// binary model file (spec §6): every flag that changes the shape or
// semantics of the trained matrices.
type Args struct {
	Dim           int64
	WS            int64
	AttnWS        int64
	Epoch         int64
	MinCount      int64
	MinCountLabel int64
	Neg           int64
	WordNgrams    int64
	Bucket        int64
	Minn, Maxn    int64
	Thread        int64
	Nrand         int64
	LR            float64
	SubsampleT    float64
	BetaBase      float64
	Delta         float64
	LRUpdateRate  int64
	Mode          Mode
	Loss          Loss
	TimeUnit      string
	Label         string
}

// Default mirrors the CLI flag table of spec §6; supervised mode
// overrides LR to 0.1 the way the table documents.
func Default(mode Mode) Args {
	lr := 0.05
	if mode == ModeSupervised {
		lr = 0.1
	}
	return Args{
		Dim:           100,
		WS:            5,
		AttnWS:        5,
		Epoch:         5,
		MinCount:      5,
		MinCountLabel: 0,
		Neg:           5,
		WordNgrams:    1,
		Bucket:        2_000_000,
		Minn:          3,
		Maxn:          6,
		Thread:        12,
		Nrand:         16,
		LR:            lr,
		SubsampleT:    1e-4,
		BetaBase:      10,
		Delta:         0.2,
		LRUpdateRate:  100,
		Mode:          mode,
		Loss:          LossNS,
		TimeUnit:      "week",
		Label:         "__label__",
	}
}
