package corpus

import (
	"fmt"
	"io"
	"math/rand"
	"strconv"
)

// WordTime is one time-stamp group of a record: the time index
// (relative to the record's first timestamp) and the word ids
// observed at that index, already subsampled.
type WordTime struct {
	Time  int64
	Words []int32
}

// Resolver is the dictionary-side contract GetLineContext needs:
// resolve a raw token to its vocabulary id and kind, and decide
// whether a word id should be dropped by subsampling. Implemented by
// *dictionary.Dictionary; kept as an interface here so this package
// never imports the dictionary package.
type Resolver interface {
	LookupWord(word string) (id int32, isLabel bool, ok bool)
	DiscardWord(id int32, rng *rand.Rand) bool
}

// GetLineContext reads one record from sc into an ordered list of
// WordTime groups plus the record's accumulated labels. Unknown
// tokens are dropped; known word tokens are subsampled via res;
// label tokens bypass subsampling and accumulate across the whole
// record. Returns io.EOF when the stream is exhausted with no record
// read (callers reopen/reseek to loop the corpus across epochs).
func GetLineContext(sc *Scanner, res Resolver, tc *TimeConverter, rng *rand.Rand) ([]WordTime, []int32, error) {
	tc.Reset()
	var groups []WordTime
	var labels []int32
	var cur *WordTime

	for {
		tok, kind, err := sc.Next()
		if err != nil {
			return nil, nil, err
		}

		switch kind {
		case TokenEOF:
			if cur != nil {
				groups = append(groups, *cur)
			}
			if len(groups) == 0 && len(labels) == 0 {
				return nil, nil, io.EOF
			}
			return groups, labels, nil

		case TokenEOS:
			if cur != nil {
				groups = append(groups, *cur)
			}
			return groups, labels, nil

		case TokenTime:
			seconds, perr := strconv.ParseInt(tok, 10, 64)
			if perr != nil {
				return nil, nil, fmt.Errorf("corpus: malformed time token %q: %w", tok, perr)
			}
			idx := tc.Index(seconds)
			if cur == nil || cur.Time != idx {
				if cur != nil {
					groups = append(groups, *cur)
				}
				cur = &WordTime{Time: idx}
			}

		case TokenWord:
			id, isLabel, ok := res.LookupWord(tok)
			if !ok {
				continue
			}
			if isLabel {
				labels = append(labels, id)
				continue
			}
			if res.DiscardWord(id, rng) {
				continue
			}
			if cur == nil {
				cur = &WordTime{}
			}
			cur.Words = append(cur.Words, id)
		}
	}
}

// ReadWord returns the next raw word/label token, skipping time
// tokens and the end-of-record sentinel, or io.EOF at stream end.
func ReadWord(sc *Scanner) (string, error) {
	for {
		tok, kind, err := sc.Next()
		if err != nil {
			return "", err
		}
		switch kind {
		case TokenEOF:
			return "", io.EOF
		case TokenWord:
			return tok, nil
		default:
			continue
		}
	}
}

// WordTimeReader pairs ReadWordTime's running "most recent time
// token" state with a Scanner, since a word's timestamp is whatever
// time token preceded it in the stream.
type WordTimeReader struct {
	sc       *Scanner
	lastTime int64
}

func NewWordTimeReader(sc *Scanner) *WordTimeReader {
	return &WordTimeReader{sc: sc}
}

// Next returns the next word/label token paired with the Unix-seconds
// timestamp of its enclosing group.
func (wr *WordTimeReader) Next() (word string, seconds int64, err error) {
	for {
		tok, kind, err2 := wr.sc.Next()
		if err2 != nil {
			return "", 0, err2
		}
		switch kind {
		case TokenEOF:
			return "", 0, io.EOF
		case TokenTime:
			t, perr := strconv.ParseInt(tok, 10, 64)
			if perr != nil {
				return "", 0, fmt.Errorf("corpus: malformed time token %q: %w", tok, perr)
			}
			wr.lastTime = t
			continue
		case TokenWord:
			return tok, wr.lastTime, nil
		default:
			continue
		}
	}
}
