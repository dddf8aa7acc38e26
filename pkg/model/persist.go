package model

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/lab/med2vec/pkg/dictionary"
	"github.com/lab/med2vec/pkg/numeric"
)

func writeI64(w io.Writer, v int64) error {
	return binary.Write(w, binary.LittleEndian, v)
}

func writeF64(w io.Writer, v float64) error {
	return binary.Write(w, binary.LittleEndian, v)
}

func readI64(r io.Reader) (int64, error) {
	var v int64
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readF64(r io.Reader) (float64, error) {
	var v float64
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

// saveArgs writes the fixed-field args block (spec §6).
func saveArgs(w io.Writer, a Args) error {
	ints := []int64{
		a.Dim, a.WS, a.AttnWS, a.Epoch, a.MinCount, a.MinCountLabel, a.Neg,
		a.WordNgrams, a.Bucket, a.Minn, a.Maxn, a.Thread, a.Nrand,
		a.LRUpdateRate, int64(a.Mode), int64(a.Loss),
	}
	for _, v := range ints {
		if err := writeI64(w, v); err != nil {
			return err
		}
	}
	floats := []float64{a.LR, a.SubsampleT, a.BetaBase, a.Delta}
	for _, v := range floats {
		if err := writeF64(w, v); err != nil {
			return err
		}
	}
	if err := writeString(w, a.TimeUnit); err != nil {
		return err
	}
	return writeString(w, a.Label)
}

func loadArgs(r io.Reader) (Args, error) {
	var a Args
	vals := make([]int64, 16)
	for i := range vals {
		v, err := readI64(r)
		if err != nil {
			return a, err
		}
		vals[i] = v
	}
	a.Dim, a.WS, a.AttnWS, a.Epoch = vals[0], vals[1], vals[2], vals[3]
	a.MinCount, a.MinCountLabel, a.Neg, a.WordNgrams = vals[4], vals[5], vals[6], vals[7]
	a.Bucket, a.Minn, a.Maxn, a.Thread = vals[8], vals[9], vals[10], vals[11]
	a.Nrand, a.LRUpdateRate = vals[12], vals[13]
	a.Mode = Mode(vals[14])
	a.Loss = Loss(vals[15])

	fvals := make([]float64, 4)
	for i := range fvals {
		v, err := readF64(r)
		if err != nil {
			return a, err
		}
		fvals[i] = v
	}
	a.LR, a.SubsampleT, a.BetaBase, a.Delta = fvals[0], fvals[1], fvals[2], fvals[3]

	var err error
	if a.TimeUnit, err = readString(r); err != nil {
		return a, err
	}
	if a.Label, err = readString(r); err != nil {
		return a, err
	}
	return a, nil
}

func writeString(w io.Writer, s string) error {
	if err := writeI64(w, int64(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

func readString(r io.Reader) (string, error) {
	n, err := readI64(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// saveDictionary writes size/nwords/nlabels/ntokens followed by one
// NUL-terminated word plus its count and kind per entry (spec §6).
func saveDictionary(w io.Writer, d *dictionary.Dictionary) error {
	entries := d.Entries()
	if err := writeI64(w, int64(len(entries))); err != nil {
		return err
	}
	if err := writeI64(w, int64(d.NWords())); err != nil {
		return err
	}
	if err := writeI64(w, int64(d.NLabels())); err != nil {
		return err
	}
	if err := writeI64(w, d.NTokens()); err != nil {
		return err
	}
	for _, e := range entries {
		if _, err := w.Write([]byte(e.Word)); err != nil {
			return err
		}
		if _, err := w.Write([]byte{0}); err != nil {
			return err
		}
		if err := writeI64(w, e.Count); err != nil {
			return err
		}
		if err := writeI64(w, int64(e.Type)); err != nil {
			return err
		}
	}
	return nil
}

func loadDictionaryEntries(r *bufio.Reader) ([]dictionary.Entry, int64, error) {
	size, err := readI64(r)
	if err != nil {
		return nil, 0, err
	}
	if _, err := readI64(r); err != nil { // nwords, recomputed by FromEntries
		return nil, 0, err
	}
	if _, err := readI64(r); err != nil { // nlabels
		return nil, 0, err
	}
	ntokens, err := readI64(r)
	if err != nil {
		return nil, 0, err
	}
	entries := make([]dictionary.Entry, size)
	for i := int64(0); i < size; i++ {
		word, err := r.ReadString(0)
		if err != nil {
			return nil, 0, err
		}
		word = word[:len(word)-1] // drop the NUL
		count, err := readI64(r)
		if err != nil {
			return nil, 0, err
		}
		kind, err := readI64(r)
		if err != nil {
			return nil, 0, err
		}
		entries[i] = dictionary.Entry{Word: word, Count: count, Type: dictionary.EntryType(kind)}
	}
	return entries, ntokens, nil
}

// Save persists args, the dictionary, W_in, W_out, and the
// mode-dependent theta/attn+bias matrices as one concatenated binary
// file (spec §6).
func Save(path string, a Args, d *dictionary.Dictionary, p *Params) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("model: creating %q: %w", path, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	if err := saveArgs(w, a); err != nil {
		return fmt.Errorf("model: writing args: %w", err)
	}
	if err := saveDictionary(w, d); err != nil {
		return fmt.Errorf("model: writing dictionary: %w", err)
	}
	if err := p.Win.Save(w); err != nil {
		return fmt.Errorf("model: writing W_in: %w", err)
	}
	if err := p.Wout.Save(w); err != nil {
		return fmt.Errorf("model: writing W_out: %w", err)
	}
	switch a.Mode {
	case ModeSkipgram, ModeCBOW, ModeSupervised:
		if err := p.Theta.Save(w); err != nil {
			return fmt.Errorf("model: writing theta: %w", err)
		}
	case ModeAttn1, ModeAttn2:
		if err := p.Attn.Save(w); err != nil {
			return fmt.Errorf("model: writing attn: %w", err)
		}
		if err := p.Bias.Save(w); err != nil {
			return fmt.Errorf("model: writing bias: %w", err)
		}
	}
	return w.Flush()
}

// Loaded bundles a loaded model's args, reconstructed dictionary, and
// parameter matrices for print-vectors and warm-start callers.
type Loaded struct {
	Args   Args
	Dict   *dictionary.Dictionary
	Params *Params
}

// Load reads a file written by Save back into memory (spec §8
// testable property 9: save-then-load round trips bitwise).
func Load(path string, dictCapacity int) (*Loaded, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("model: opening %q: %w", path, err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	a, err := loadArgs(r)
	if err != nil {
		return nil, fmt.Errorf("model: reading args: %w", err)
	}
	entries, ntokens, err := loadDictionaryEntries(r)
	if err != nil {
		return nil, fmt.Errorf("model: reading dictionary: %w", err)
	}
	cfg := dictionary.Config{
		LabelPrefix: a.Label,
		SubsampleT:  a.SubsampleT,
		Bucket:      int(a.Bucket),
		Minn:        int(a.Minn),
		Maxn:        int(a.Maxn),
		WordNgrams:  int(a.WordNgrams),
		MinCount:    a.MinCount,
		MinCountLbl: a.MinCountLabel,
	}
	d := dictionary.FromEntries(cfg, entries, ntokens, dictCapacity)

	p := &Params{Win: &numeric.Matrix{}, Wout: &numeric.Matrix{}, Tables: numeric.NewTables()}
	if err := p.Win.Load(r); err != nil {
		return nil, fmt.Errorf("model: reading W_in: %w", err)
	}
	if err := p.Wout.Load(r); err != nil {
		return nil, fmt.Errorf("model: reading W_out: %w", err)
	}
	switch a.Mode {
	case ModeSkipgram, ModeCBOW, ModeSupervised:
		p.Theta = &numeric.Matrix{}
		if err := p.Theta.Load(r); err != nil {
			return nil, fmt.Errorf("model: reading theta: %w", err)
		}
	case ModeAttn1, ModeAttn2:
		p.Attn = &numeric.Matrix{}
		if err := p.Attn.Load(r); err != nil {
			return nil, fmt.Errorf("model: reading attn: %w", err)
		}
		p.Bias = numeric.NewVector(2*int(a.AttnWS) + 1)
		if err := p.Bias.Load(r); err != nil {
			return nil, fmt.Errorf("model: reading bias: %w", err)
		}
	}
	return &Loaded{Args: a, Dict: d, Params: p}, nil
}

// WriteVec writes the `.vec` text dump: header "nwords dim" then one
// "word f1 f2 ... fdim" line per word-kind entry.
func WriteVec(path string, d *dictionary.Dictionary, win *numeric.Matrix) error {
	return writeMatrixText(path, d, win, fmt.Sprintf("%d %d\n", d.NWords(), win.N))
}

// WriteTheta writes the `.theta` text dump: header "nwords (2*ws+1)"
// then one row per word.
func WriteTheta(path string, d *dictionary.Dictionary, theta *numeric.Matrix) error {
	return writeMatrixText(path, d, theta, fmt.Sprintf("%d %d\n", d.NWords(), theta.N))
}

// WriteAttn writes the `.attn` text dump, analogous to WriteTheta.
func WriteAttn(path string, d *dictionary.Dictionary, attn *numeric.Matrix) error {
	return writeMatrixText(path, d, attn, fmt.Sprintf("%d %d\n", d.NWords(), attn.N))
}

// WriteBias writes the `.bias` text dump: the shared per-offset
// attention bias vector, one float per line in order.
func WriteBias(path string, bias *numeric.Vector) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("model: creating %q: %w", path, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for _, v := range bias.Data {
		if _, err := fmt.Fprintf(w, "%v\n", v); err != nil {
			return err
		}
	}
	return w.Flush()
}

func writeMatrixText(path string, d *dictionary.Dictionary, m *numeric.Matrix, header string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("model: creating %q: %w", path, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if _, err := w.WriteString(header); err != nil {
		return err
	}
	var line bytes.Buffer
	for i := int32(0); i < d.NWords(); i++ {
		line.Reset()
		line.WriteString(d.GetWord(i))
		for j := 0; j < m.N; j++ {
			fmt.Fprintf(&line, " %v", m.GetCell(int(i), j))
		}
		line.WriteByte('\n')
		if _, err := w.Write(line.Bytes()); err != nil {
			return err
		}
	}
	return w.Flush()
}
