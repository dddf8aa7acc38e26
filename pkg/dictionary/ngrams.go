package dictionary

const (
	bow = "<"
	eow = ">"
)

// computeSubwordNgrams hashes every contiguous byte substring of
// length n in [minn,maxn] of the BOW/EOW-framed word into the range
// [nwords, nwords+bucket), skipping continuation bytes and length-1
// ngrams that sit at the word boundary.
func (d *Dictionary) computeSubwordNgrams(word string) []int32 {
	if d.cfg.Bucket <= 0 {
		return nil
	}
	framed := bow + word + eow
	var out []int32
	for start := 0; start < len(framed); start++ {
		if isContinuation(framed[start]) {
			continue
		}
		runeLen := 0
		for end := start; end < len(framed) && runeLen < d.cfg.Maxn; end++ {
			if end > start && isContinuation(framed[end]) {
				continue
			}
			runeLen++
			if runeLen < d.cfg.Minn {
				continue
			}
			if runeLen == 1 && (start == 0 || end == len(framed)-1) {
				continue
			}
			ngram := framed[start : end+1]
			h := hash64(ngram)
			out = append(out, int32(d.nwords)+int32(h%uint64(d.cfg.Bucket)))
		}
	}
	return out
}

func isContinuation(b byte) bool { return b&0xC0 == 0x80 }

// hash64 is the FNV-1a hash over 64 bits, used for the subword-ngram
// bucket assignment (kept distinct from the 32-bit dictionary hash so
// ngram collisions and vocabulary-slot collisions are independent).
func hash64(s string) uint64 {
	const offset64 uint64 = 14695981039346656037
	const prime64 uint64 = 1099511628211
	h := offset64
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime64
	}
	return h
}

// initNgrams populates Ngrams for every word-kind entry: its own id
// followed by its hashed subword ngrams.
func (d *Dictionary) initNgrams() {
	for i := range d.entries {
		if d.entries[i].Type != EntryWord {
			continue
		}
		ngrams := append([]int32{int32(i)}, d.computeSubwordNgrams(d.entries[i].Word)...)
		d.entries[i].Ngrams = ngrams
	}
}

// GetNgramsByID returns the precomputed ngram id list for a word id
// (its own id prepended), per testable property 2.
func (d *Dictionary) GetNgramsByID(id int32) []int32 {
	return d.entries[id].Ngrams
}

// GetNgramsByWord recomputes the ngram id list for an arbitrary
// string, used by print-vectors for out-of-vocabulary words.
func (d *Dictionary) GetNgramsByWord(word string) []int32 {
	id := d.GetId(word)
	if id != NotFound {
		return d.entries[id].Ngrams
	}
	return d.computeSubwordNgrams(word)
}

// AddNgrams extends ids in place with hashed multi-word ngram ids
// (the -wordNgrams phrase feature), folding consecutive token ids with
// the 64-bit multiplicative hash h = h*116049371 + token.
func (d *Dictionary) AddNgrams(ids []int32, n int) []int32 {
	if n <= 1 || len(ids) == 0 {
		return ids
	}
	out := append([]int32(nil), ids...)
	line := ids
	for k := 2; k <= n && k <= len(line); k++ {
		for i := 0; i+k <= len(line); i++ {
			var h uint64
			for j := i; j < i+k; j++ {
				h = h*116049371 + uint64(uint32(line[j]))
			}
			if d.cfg.Bucket > 0 {
				out = append(out, int32(d.nwords)+int32(h%uint64(d.cfg.Bucket)))
			}
		}
	}
	return out
}
