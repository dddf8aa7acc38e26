package dictionary

import (
	"os"
	"path/filepath"
	"testing"
)

func testConfig() Config {
	return Config{
		LabelPrefix: "__label__",
		SubsampleT:  1e-4,
		Bucket:      1000,
		Minn:        3,
		Maxn:        6,
		WordNgrams:  1,
		MinCount:    1,
		MinCountLbl: 1,
	}
}

func TestDictionaryIdentity(t *testing.T) {
	d := NewWithCapacity(101, testConfig())
	for _, w := range []string{"a", "b", "c", "a", "b", "a"} {
		d.Add(w)
	}
	if err := d.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	for _, w := range []string{"a", "b", "c"} {
		id := d.GetId(w)
		if id == NotFound {
			t.Fatalf("GetId(%q) = NotFound", w)
		}
		if got := d.GetWord(id); got != w {
			t.Fatalf("GetWord(GetId(%q)) = %q, want %q", w, got, w)
		}
	}
	if id := d.GetId("__nonexistent__"); id != NotFound {
		t.Fatalf("GetId on unknown word = %v, want NotFound", id)
	}
}

func TestNgramIdempotence(t *testing.T) {
	d := NewWithCapacity(101, testConfig())
	for i := 0; i < 5; i++ {
		d.Add("hello")
	}
	if err := d.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	id := d.GetId("hello")
	byID := d.GetNgramsByID(id)
	byWord := d.GetNgramsByWord(d.GetWord(id))

	if len(byID) != len(byWord) {
		t.Fatalf("ngram lists differ in length: %d vs %d", len(byID), len(byWord))
	}
	set := map[int32]bool{}
	for _, v := range byID {
		set[v] = true
	}
	for _, v := range byWord {
		if !set[v] {
			t.Fatalf("ngram %d present in byWord but not byID", v)
		}
	}
}

func TestSubsamplingMonotonicity(t *testing.T) {
	d := NewWithCapacity(101, testConfig())
	for i := 0; i < 100; i++ {
		d.Add("frequent")
	}
	for i := 0; i < 2; i++ {
		d.Add("rare")
	}
	if err := d.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	a := d.GetId("frequent")
	b := d.GetId("rare")
	if d.pdiscard[a] > d.pdiscard[b] {
		t.Fatalf("pdiscard[frequent]=%v should be <= pdiscard[rare]=%v (frequent words are kept less often)", d.pdiscard[a], d.pdiscard[b])
	}
}

func TestThresholdingScenarioS3(t *testing.T) {
	cfg := testConfig()
	cfg.MinCount = 4
	cfg.MinCountLbl = 2
	d := NewWithCapacity(101, cfg)

	add := func(w string, n int) {
		for i := 0; i < n; i++ {
			d.Add(w)
		}
	}
	add("a", 6)
	add("b", 6)
	add("c", 3)
	add("d", 3)
	add("__label__p", 2)
	add("__label__q", 1)

	if err := d.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if d.NWords() != 2 {
		t.Fatalf("NWords = %d, want 2", d.NWords())
	}
	if d.NLabels() != 1 {
		t.Fatalf("NLabels = %d, want 1", d.NLabels())
	}
	if id := d.GetId("a"); id != 0 {
		t.Fatalf("id(a) = %d, want 0", id)
	}
	if id := d.GetId("b"); id != 1 {
		t.Fatalf("id(b) = %d, want 1", id)
	}
	if id := d.GetId("__label__p"); id != 2 {
		t.Fatalf("id(__label__p) = %d, want 2", id)
	}
	for _, w := range []string{"c", "d", "__label__q"} {
		if d.GetId(w) != NotFound {
			t.Fatalf("%q should have been pruned by thresholding", w)
		}
	}
}

func TestReadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corpus.txt")
	content := "[[[100],[x,y]]]\n[[[200],[x,z]]]\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := testConfig()
	cfg.MinCount = 1
	d := NewWithCapacity(101, cfg)
	if err := d.ReadFromFile(path); err != nil {
		t.Fatalf("ReadFromFile: %v", err)
	}
	if err := d.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	for _, w := range []string{"x", "y", "z"} {
		if d.GetId(w) == NotFound {
			t.Fatalf("expected %q in vocabulary", w)
		}
	}
}

func TestEmptyVocabularyFinalizeErrors(t *testing.T) {
	cfg := testConfig()
	cfg.MinCount = 100
	d := NewWithCapacity(101, cfg)
	d.Add("only-once")
	if err := d.Finalize(); err == nil {
		t.Fatalf("expected error for empty vocabulary after thresholding")
	}
}
