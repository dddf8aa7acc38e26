// Package dictionary builds and serves the trainer's vocabulary: a
// fixed-capacity open-addressed hash table mapping surface strings to
// dense entry ids, the subsampling table, and the subword-ngram index.
package dictionary

import (
	"bufio"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"strings"

	"github.com/lab/med2vec/pkg/corpus"
)

// MaxVocab is the hash table's fixed capacity.
const MaxVocab = 30_000_000

const loadFactor = 0.75

// fnvOffset/fnvPrime are the FNV-1a-style hashing constants the word2int
// probe sequence is built on.
const (
	fnvOffset uint32 = 2166136261
	fnvPrime  uint32 = 16777619
)

// Config carries the vocabulary-shaping flags: label prefix, subsampling
// threshold, ngram bucket count and length bounds.
type Config struct {
	LabelPrefix  string
	SubsampleT   float64
	Bucket       int
	Minn, Maxn   int
	WordNgrams   int
	MinCount     int64
	MinCountLbl  int64
}

// Dictionary is the vocabulary: an open-addressed hash index over a
// dense entry slice, built once during ReadFromFile and read-only for
// the remainder of training.
type Dictionary struct {
	cfg Config

	capacity int32
	word2int []int32
	entries  []Entry

	nwords, nlabels int32
	ntokens         int64

	pdiscard []float32

	minThreshold      int64
	minThresholdLabel int64
}

// New allocates a dictionary with the spec's fixed MaxVocab capacity.
func New(cfg Config) *Dictionary {
	return NewWithCapacity(MaxVocab, cfg)
}

// NewWithCapacity allocates a dictionary with an explicit hash-table
// capacity; production code should use New, tests a far smaller table.
func NewWithCapacity(capacity int, cfg Config) *Dictionary {
	d := &Dictionary{cfg: cfg, capacity: int32(capacity)}
	d.word2int = make([]int32, capacity)
	for i := range d.word2int {
		d.word2int[i] = NotFound
	}
	d.minThreshold = 1
	d.minThresholdLabel = 0
	return d
}

func hashString(s string) uint32 {
	h := fnvOffset
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}

// find returns the linear-probe slot for word: either the slot already
// holding it, or the first empty slot on its probe sequence.
func (d *Dictionary) find(word string) int32 {
	h := int32(hashString(word) % uint32(d.capacity))
	for d.word2int[h] != NotFound && d.entries[d.word2int[h]].Word != word {
		h = (h + 1) % d.capacity
	}
	return h
}

func (d *Dictionary) typeOf(word string) EntryType {
	if d.cfg.LabelPrefix != "" && strings.HasPrefix(word, d.cfg.LabelPrefix) {
		return EntryLabel
	}
	return EntryWord
}

// Add inserts word with count 1 or increments its existing count,
// triggering a threshold-and-compact pass once the table crosses 75%
// load.
func (d *Dictionary) Add(word string) {
	h := d.find(word)
	if d.word2int[h] == NotFound {
		idx := int32(len(d.entries))
		d.entries = append(d.entries, Entry{Word: word, Count: 1, Type: d.typeOf(word)})
		d.word2int[h] = idx
	} else {
		d.entries[d.word2int[h]].Count++
	}
	d.ntokens++
	if float64(len(d.entries)) > loadFactor*float64(d.capacity) {
		d.minThreshold++
		d.minThresholdLabel++
		d.Threshold(d.minThreshold, d.minThresholdLabel)
	}
}

// Threshold sorts entries by (kind asc, count desc), drops entries
// below minCount/minCountLabel for their kind, and rebuilds the hash
// index from scratch.
func (d *Dictionary) Threshold(minCount, minCountLabel int64) {
	sort.SliceStable(d.entries, func(i, j int) bool {
		if d.entries[i].Type != d.entries[j].Type {
			return d.entries[i].Type < d.entries[j].Type
		}
		return d.entries[i].Count > d.entries[j].Count
	})

	kept := d.entries[:0:0]
	for _, e := range d.entries {
		thresh := minCount
		if e.Type == EntryLabel {
			thresh = minCountLabel
		}
		if e.Count >= thresh {
			kept = append(kept, e)
		}
	}
	d.entries = kept

	for i := range d.word2int {
		d.word2int[i] = NotFound
	}
	d.nwords, d.nlabels = 0, 0
	for i := range d.entries {
		h := d.find(d.entries[i].Word)
		d.word2int[h] = int32(i)
		if d.entries[i].Type == EntryWord {
			d.nwords++
		} else {
			d.nlabels++
		}
	}
}

// Finalize applies the final threshold pass, then builds the
// subsampling table and the ngram index; callers must call this once
// after streaming the corpus, before training begins.
func (d *Dictionary) Finalize() error {
	d.Threshold(d.cfg.MinCount, d.cfg.MinCountLbl)
	if d.nwords == 0 {
		return fmt.Errorf("dictionary: empty vocabulary after thresholding (minCount=%d)", d.cfg.MinCount)
	}
	d.initTableDiscard()
	d.initNgrams()
	return nil
}

// ReadFromFile streams path once, routing every word/label/EOS token
// from the raw scanner into Add. Time tokens are not part of the
// vocabulary and are skipped.
func (d *Dictionary) ReadFromFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("dictionary: cannot open corpus %q: %w", path, err)
	}
	defer f.Close()

	sc := corpus.NewScanner(bufio.NewReaderSize(f, 1<<20))
	for {
		tok, kind, err := sc.Next()
		if err != nil {
			return fmt.Errorf("dictionary: reading corpus %q: %w", path, err)
		}
		if kind == corpus.TokenEOF {
			break
		}
		if kind == corpus.TokenTime {
			continue
		}
		d.Add(tok)
	}
	return nil
}

// NWords, NLabels, NTokens expose the post-threshold vocabulary shape.
func (d *Dictionary) NWords() int32  { return d.nwords }
func (d *Dictionary) NLabels() int32 { return d.nlabels }
func (d *Dictionary) NTokens() int64 { return d.ntokens }
func (d *Dictionary) Size() int32    { return int32(len(d.entries)) }
func (d *Dictionary) Bucket() int    { return d.cfg.Bucket }
func (d *Dictionary) Config() Config { return d.cfg }

// Entries returns the admitted, post-threshold entries in their
// stored (kind asc, count desc) order, for model persistence.
func (d *Dictionary) Entries() []Entry { return d.entries }

// FromEntries rebuilds a finalized Dictionary from a previously
// persisted entry list (model-file load path): rebuilds the hash
// index, then the subsampling and ngram tables exactly as Finalize
// would, skipping the streaming/thresholding pass.
func FromEntries(cfg Config, entries []Entry, ntokens int64, capacity int) *Dictionary {
	d := NewWithCapacity(capacity, cfg)
	d.entries = entries
	d.ntokens = ntokens
	for i := range d.entries {
		h := d.find(d.entries[i].Word)
		d.word2int[h] = int32(i)
		if d.entries[i].Type == EntryWord {
			d.nwords++
		} else {
			d.nlabels++
		}
	}
	d.initTableDiscard()
	d.initNgrams()
	return d
}

// GetId returns the entry id for word, or NotFound.
func (d *Dictionary) GetId(word string) int32 {
	h := d.find(word)
	return d.word2int[h]
}

func (d *Dictionary) GetType(id int32) EntryType { return d.entries[id].Type }
func (d *Dictionary) GetWord(id int32) string     { return d.entries[id].Word }
func (d *Dictionary) GetCounts(t EntryType) int64 {
	var s int64
	for _, e := range d.entries {
		if e.Type == t {
			s += e.Count
		}
	}
	return s
}

// GetLabel returns the label text for a label-kind id (its prefix
// stripped), used when reporting classical supervised predictions.
func (d *Dictionary) GetLabel(id int32) string {
	return strings.TrimPrefix(d.entries[id].Word, d.cfg.LabelPrefix)
}

// initTableDiscard builds pdiscard[i] = sqrt(t/f_i) + t/f_i over word
// ids only; labels are never subsampled.
func (d *Dictionary) initTableDiscard() {
	d.pdiscard = make([]float32, len(d.entries))
	t := d.cfg.SubsampleT
	for i, e := range d.entries {
		if e.Type != EntryWord || d.ntokens == 0 {
			d.pdiscard[i] = 1
			continue
		}
		f := float64(e.Count) / float64(d.ntokens)
		if f <= 0 {
			d.pdiscard[i] = 1
			continue
		}
		d.pdiscard[i] = float32(math.Sqrt(t/f) + t/f)
	}
}

// Discard reports whether a draw u ~ Uniform[0,1) should drop word id
// under subsampling: true iff u > pdiscard[id].
func (d *Dictionary) Discard(id int32, u float64) bool {
	if id < 0 || int(id) >= len(d.pdiscard) {
		return false
	}
	return u > float64(d.pdiscard[id])
}

// LookupWord implements corpus.Resolver: resolve a raw token to its
// dictionary id and kind.
func (d *Dictionary) LookupWord(word string) (id int32, isLabel bool, ok bool) {
	id = d.GetId(word)
	if id == NotFound {
		return NotFound, false, false
	}
	return id, d.entries[id].Type == EntryLabel, true
}

// DiscardWord implements corpus.Resolver, drawing its own uniform
// sample from rng.
func (d *Dictionary) DiscardWord(id int32, rng *rand.Rand) bool {
	return d.Discard(id, rng.Float64())
}
