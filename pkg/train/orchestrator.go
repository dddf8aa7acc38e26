package train

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/lab/med2vec/internal/logging"
	"github.com/lab/med2vec/pkg/checkpoint"
	"github.com/lab/med2vec/pkg/corpus"
	"github.com/lab/med2vec/pkg/dictionary"
	"github.com/lab/med2vec/pkg/loss"
	"github.com/lab/med2vec/pkg/model"
)

// Orchestrator ties args -> dictionary -> matrix initialization ->
// training -> persistence (spec's component F). It owns the shared,
// jointly-borrowed parameter matrices for the lifetime of one Run.
type Orchestrator struct {
	cfg    Config
	logger *logging.Logger

	dict   *dictionary.Dictionary
	params *model.Params
	ledger *checkpoint.Ledger

	tokenCount int64 // atomic, spec §5's global token counter
	totalGoal  int64
}

func New(cfg Config, logger *logging.Logger) *Orchestrator {
	return &Orchestrator{cfg: cfg, logger: logger}
}

// Progress reports the fraction of totalGoal tokens consumed so far,
// for an external progress bar (cmd/trainer's -verbose 1 display).
func (o *Orchestrator) Progress() float64 {
	if o.totalGoal == 0 {
		return 0
	}
	return float64(atomic.LoadInt64(&o.tokenCount)) / float64(o.totalGoal)
}

// Run builds the dictionary and parameter matrices, spawns the
// worker pool, blocks until every worker's local token counter has
// pushed the shared total past epoch*ntokens, then persists the
// model and its text exports.
func (o *Orchestrator) Run() error {
	o.dict = dictionary.New(o.cfg.DictionaryConfig())
	o.logger.Info("reading corpus %s to build vocabulary", o.cfg.Input)
	if err := o.dict.ReadFromFile(o.cfg.Input); err != nil {
		return err
	}
	if err := o.dict.Finalize(); err != nil {
		return err
	}
	o.logger.Info("vocabulary: %d words, %d labels, %d tokens", o.dict.NWords(), o.dict.NLabels(), o.dict.NTokens())

	outRows := int(o.dict.NWords())
	if o.cfg.Mode == model.ModeSupervised {
		outRows = int(o.dict.NLabels())
		if outRows == 0 {
			return fmt.Errorf("train: supervised mode requires at least one label")
		}
	}

	initRNG := rand.New(rand.NewSource(1))
	params, err := model.NewParams(int(o.dict.NWords()), outRows, o.cfg.ModelArgs(), initRNG)
	if err != nil {
		return err
	}
	o.params = params

	if o.cfg.PretrainedVectors != "" {
		if err := o.warmStart(); err != nil {
			return err
		}
	}

	counts := o.counts(outRows)
	negTable := model.BuildNegativeTable(counts)
	var tree *model.HuffmanTree
	if o.cfg.Loss == model.LossHS {
		tree = model.BuildHuffmanTree(append([]int64(nil), counts...))
	}

	o.totalGoal = int64(o.cfg.Epoch) * o.dict.NTokens()
	atomic.StoreInt64(&o.tokenCount, 0)

	if o.cfg.ResumeDB != "" {
		ledger, err := checkpoint.Open(o.cfg.ResumeDB)
		if err != nil {
			return err
		}
		o.ledger = ledger
		defer o.ledger.Close()
		if last, ok := o.ledger.LastProgress("global"); ok {
			o.logger.Info("resume ledger %s: last recorded token count %d/%d", o.cfg.ResumeDB, last, o.totalGoal)
		}
	}

	fi, err := os.Stat(o.cfg.Input)
	if err != nil {
		return fmt.Errorf("train: stat %q: %w", o.cfg.Input, err)
	}
	fileSize := fi.Size()

	var wg sync.WaitGroup
	var firstErr error
	var errMu sync.Mutex
	for t := 0; t < o.cfg.Thread; t++ {
		wg.Add(1)
		go func(threadID int) {
			defer wg.Done()
			if err := o.worker(threadID, fileSize, negTable, tree); err != nil {
				errMu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				errMu.Unlock()
			}
		}(t)
	}
	wg.Wait()
	if firstErr != nil {
		return firstErr
	}

	return o.persist()
}

// counts returns, per output row, the token count negative sampling
// and hierarchical softmax should weight by: word counts in every
// mode except supervised, where output rows are labels.
func (o *Orchestrator) counts(outRows int) []int64 {
	entries := o.dict.Entries()
	counts := make([]int64, outRows)
	if o.cfg.Mode == model.ModeSupervised {
		for i := 0; i < outRows; i++ {
			counts[i] = entries[int(o.dict.NWords())+i].Count
		}
		return counts
	}
	for i := 0; i < outRows; i++ {
		counts[i] = entries[i].Count
	}
	return counts
}

// worker is one thread's training loop (spec §4.E): open an
// independent file handle, seek to this thread's partition start,
// then repeatedly read one record and dispatch to the configured
// mode until the shared token counter reaches the epoch goal.
func (o *Orchestrator) worker(threadID int, fileSize int64, negTable *model.NegativeTable, tree *model.HuffmanTree) error {
	f, err := os.Open(o.cfg.Input)
	if err != nil {
		return fmt.Errorf("train: worker %d: opening corpus: %w", threadID, err)
	}
	defer f.Close()

	startPos := int64(threadID) * fileSize / int64(o.cfg.Thread)
	if _, err := corpus.SeekToBOS(f, startPos); err != nil {
		return fmt.Errorf("train: worker %d: seek: %w", threadID, err)
	}

	rng := rand.New(rand.NewSource(int64(threadID) + 1))
	workerNeg := negTable.Shuffled(rng)
	st := loss.NewState(int(o.cfg.Dim), rng, workerNeg)
	tables := o.params.Tables

	tc, err := corpus.NewTimeConverter(o.cfg.TimeUnit, o.cfg.OffsetScheme)
	if err != nil {
		return err
	}
	sc := corpus.NewScanner(bufio.NewReaderSize(f, 1<<16))

	var localTokenCount int64
	for atomic.LoadInt64(&o.tokenCount) < o.totalGoal {
		groups, labels, err := corpus.GetLineContext(sc, o.dict, tc, rng)
		if err == io.EOF {
			if _, serr := f.Seek(0, 0); serr != nil {
				return serr
			}
			sc = corpus.NewScanner(bufio.NewReaderSize(f, 1<<16))
			continue
		}
		if err != nil {
			return fmt.Errorf("train: worker %d: %w", threadID, err)
		}

		progress := float64(atomic.LoadInt64(&o.tokenCount)) / float64(o.totalGoal)
		lr := float32(o.cfg.LR * (1 - progress))
		if lr < float32(o.cfg.LR)*1e-4 {
			lr = float32(o.cfg.LR) * 1e-4
		}

		var consumed int
		switch o.cfg.Mode {
		case model.ModeSkipgram:
			thetaCfg := loss.ThetaConfig{Delta: float32(o.cfg.Delta)}
			_, consumed = SGContext(st, tables, o.params, groups, o.cfg.WS, o.cfg.Neg, thetaCfg, o.cfg.BetaBase, lr)
		case model.ModeAttn1:
			_, consumed = AttnContext(st, tables, o.params, groups, o.cfg.WS, o.cfg.AttnWS, o.cfg.Neg, false, lr)
		case model.ModeAttn2:
			_, consumed = AttnContext(st, tables, o.params, groups, o.cfg.WS, o.cfg.AttnWS, o.cfg.Neg, true, lr)
		case model.ModeCBOW:
			_, consumed = CBOW(st, tables, o.params, o.dict, groups, o.cfg.WS, o.cfg.Neg, o.cfg.WordNgrams, lr)
		case model.ModeSupervised:
			_, consumed = Supervised(st, tables, o.params, tree, o.dict, o.cfg.Loss, groups, labels, o.cfg.WordNgrams, o.cfg.Neg, lr)
		}

		localTokenCount += int64(consumed)
		if localTokenCount >= int64(o.cfg.LRUpdateRate) {
			newTotal := atomic.AddInt64(&o.tokenCount, localTokenCount)
			localTokenCount = 0
			if threadID == 0 {
				if o.cfg.Verbose > 1 {
					o.logger.Info("progress %.2f%% tokens %d/%d lr %.6f", 100*float64(newTotal)/float64(o.totalGoal), newTotal, o.totalGoal, lr)
				}
				if o.ledger != nil {
					if err := o.ledger.RecordProgress("global", newTotal); err != nil {
						o.logger.Warn("resume ledger write failed: %v", err)
					}
				}
			}
		}
	}
	if localTokenCount > 0 {
		atomic.AddInt64(&o.tokenCount, localTokenCount)
	}
	return nil
}

func (o *Orchestrator) warmStart() error {
	f, err := os.Open(o.cfg.PretrainedVectors)
	if err != nil {
		return fmt.Errorf("train: opening pretrained vectors %q: %w", o.cfg.PretrainedVectors, err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	var n, dim int
	if _, err := fmt.Fscanf(r, "%d %d\n", &n, &dim); err != nil {
		return fmt.Errorf("train: reading pretrained vectors header: %w", err)
	}
	if dim != int(o.cfg.Dim) {
		return fmt.Errorf("train: pretrained vectors dim %d does not match -dim %d", dim, o.cfg.Dim)
	}

	vecs := make(map[string][]float32, n)
	for i := 0; i < n; i++ {
		line, err := r.ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("train: reading pretrained vectors: %w", err)
		}
		fields := strings.Fields(line)
		if len(fields) < dim+1 {
			continue
		}
		vals := make([]float32, dim)
		for j := 0; j < dim; j++ {
			v, err := strconv.ParseFloat(fields[j+1], 32)
			if err != nil {
				return fmt.Errorf("train: parsing pretrained vector for %q: %w", fields[0], err)
			}
			vals[j] = float32(v)
		}
		vecs[fields[0]] = vals
	}
	return o.params.WarmStart(vecs, func(word string) (int32, bool) {
		id := o.dict.GetId(word)
		return id, id != dictionary.NotFound
	})
}

func (o *Orchestrator) persist() error {
	args := o.cfg.ModelArgs()
	if err := model.Save(o.cfg.Output+".bin", args, o.dict, o.params); err != nil {
		return err
	}
	if err := model.WriteVec(o.cfg.Output+".vec", o.dict, o.params.Win); err != nil {
		return err
	}
	switch o.cfg.Mode {
	case model.ModeSkipgram, model.ModeCBOW, model.ModeSupervised:
		if err := model.WriteTheta(o.cfg.Output+".theta", o.dict, o.params.Theta); err != nil {
			return err
		}
	case model.ModeAttn1, model.ModeAttn2:
		if err := model.WriteAttn(o.cfg.Output+".attn", o.dict, o.params.Attn); err != nil {
			return err
		}
		if err := model.WriteBias(o.cfg.Output+".bias", o.params.Bias); err != nil {
			return err
		}
	}
	o.logger.Info("wrote model to %s.bin", o.cfg.Output)
	return nil
}

// Dictionary exposes the built vocabulary, e.g. for diagnostic
// exports (-exportParquet/-exportArrow) invoked after Run completes.
func (o *Orchestrator) Dictionary() *dictionary.Dictionary { return o.dict }
