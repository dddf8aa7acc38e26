package dictionary

import (
	"fmt"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/writer"
)

// VocabRow is one row of the optional vocabulary diagnostic export:
// the admitted entries, their counts and discard probabilities, for
// offline inspection with any parquet-aware tool.
type VocabRow struct {
	Word     string  `parquet:"name=word, type=BYTE_ARRAY, convertedtype=UTF8"`
	Id       int32   `parquet:"name=id, type=INT32"`
	Kind     int32   `parquet:"name=kind, type=INT32"`
	Count    int64   `parquet:"name=count, type=INT64"`
	Pdiscard float32 `parquet:"name=pdiscard, type=FLOAT"`
}

// ExportParquet writes the post-threshold vocabulary to a parquet file
// for diagnostics; it is never read back by training itself.
func (d *Dictionary) ExportParquet(path string) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("dictionary: opening parquet export %q: %w", path, err)
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, new(VocabRow), 4)
	if err != nil {
		return fmt.Errorf("dictionary: creating parquet writer: %w", err)
	}

	for i, e := range d.entries {
		row := VocabRow{
			Word:  e.Word,
			Id:    int32(i),
			Kind:  int32(e.Type),
			Count: e.Count,
		}
		if i < len(d.pdiscard) {
			row.Pdiscard = d.pdiscard[i]
		}
		if err := pw.Write(row); err != nil {
			return fmt.Errorf("dictionary: writing parquet row for %q: %w", e.Word, err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("dictionary: finalizing parquet export: %w", err)
	}
	return nil
}
