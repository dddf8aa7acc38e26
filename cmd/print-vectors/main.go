// Command print-vectors loads a saved med2vec model and, for each word
// read from stdin, prints the mean of its ngram vectors, replicating
// the teacher-family pattern of shipping one thin query binary per
// on-disk artifact rather than folding every post-train operation into
// the trainer itself.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/lab/med2vec/pkg/dictionary"
	"github.com/lab/med2vec/pkg/model"
	"github.com/lab/med2vec/pkg/numeric"
)

func main() {
	modelPath := flag.String("model", "", "path to a .bin model file written by the trainer (mandatory)")
	flag.Parse()

	if *modelPath == "" {
		fmt.Fprintln(os.Stderr, "print-vectors: -model is mandatory")
		os.Exit(1)
	}

	loaded, err := model.Load(*modelPath, dictionary.MaxVocab)
	if err != nil {
		log.Fatalf("print-vectors: %v", err)
	}

	in := bufio.NewScanner(os.Stdin)
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	for in.Scan() {
		word := in.Text()
		if word == "" {
			continue
		}
		v := meanVector(loaded.Dict, loaded.Params.Win, word)
		fmt.Fprint(out, word)
		for _, x := range v.Data {
			fmt.Fprintf(out, " %v", x)
		}
		fmt.Fprintln(out)
	}
	if err := in.Err(); err != nil {
		log.Fatalf("print-vectors: reading stdin: %v", err)
	}
}

// meanVector averages W_in rows over a word's ngram id list (its own
// id, if known, plus hashed subword ngrams), the same representation
// the CBOW and supervised paths feed to loss.ComputeHidden during
// training (spec §4.D's finalization over I). sgContext reads only the
// word's own row and attnContext builds an attention-weighted hidden.
func meanVector(d *dictionary.Dictionary, win *numeric.Matrix, word string) *numeric.Vector {
	ids := d.GetNgramsByWord(word)
	v := numeric.NewVector(win.N)
	if len(ids) == 0 {
		return v
	}
	for _, id := range ids {
		v.AddRow(win, int(id), 1)
	}
	v.Mul(1.0 / float32(len(ids)))
	return v
}
