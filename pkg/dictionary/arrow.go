package dictionary

import (
	"fmt"
	"os"

	"github.com/apache/arrow/go/arrow"
	"github.com/apache/arrow/go/arrow/array"
	"github.com/apache/arrow/go/arrow/ipc"
	"github.com/apache/arrow/go/arrow/memory"
)

// vocabArrowSchema describes the per-entry stats the optional
// diagnostic export writes: surface string, kind, count, and the
// subsampling probability assigned to word-kind entries.
func vocabArrowSchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "word", Type: arrow.BinaryTypes.String, Nullable: false},
		{Name: "id", Type: arrow.PrimitiveTypes.Int32, Nullable: false},
		{Name: "kind", Type: arrow.PrimitiveTypes.Int32, Nullable: false},
		{Name: "count", Type: arrow.PrimitiveTypes.Int64, Nullable: false},
		{Name: "pdiscard", Type: arrow.PrimitiveTypes.Float32, Nullable: false},
	}, nil)
}

// ExportArrowStats writes the post-threshold vocabulary as a single
// Arrow IPC stream batch, an alternative to ExportParquet for callers
// already wired to Arrow tooling. Neither export is read by training.
func (d *Dictionary) ExportArrowStats(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dictionary: creating arrow export %q: %w", path, err)
	}
	defer file.Close()

	schema := vocabArrowSchema()
	w := ipc.NewWriter(file, ipc.WithSchema(schema))
	defer w.Close()

	mem := memory.NewGoAllocator()
	wordB := array.NewStringBuilder(mem)
	defer wordB.Release()
	idB := array.NewInt32Builder(mem)
	defer idB.Release()
	kindB := array.NewInt32Builder(mem)
	defer kindB.Release()
	countB := array.NewInt64Builder(mem)
	defer countB.Release()
	discardB := array.NewFloat32Builder(mem)
	defer discardB.Release()

	for i, e := range d.entries {
		wordB.Append(e.Word)
		idB.Append(int32(i))
		kindB.Append(int32(e.Type))
		countB.Append(e.Count)
		var p float32
		if i < len(d.pdiscard) {
			p = d.pdiscard[i]
		}
		discardB.Append(p)
	}

	cols := []array.Interface{
		wordB.NewArray(), idB.NewArray(), kindB.NewArray(), countB.NewArray(), discardB.NewArray(),
	}
	batch := array.NewRecord(schema, cols, int64(len(d.entries)))
	defer batch.Release()

	if err := w.Write(batch); err != nil {
		return fmt.Errorf("dictionary: writing arrow batch: %w", err)
	}
	return nil
}
