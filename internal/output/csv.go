// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package output writes a finalized crawl result to disk: the CSV table, its
// no-abstract companion and the YAML run manifest.
package output

import (
	"encoding/csv"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pdiddy/venue-harvest/pkg/types"
)

// ErrOutputWriteFailed wraps every failure to persist the result set. It is
// fatal to a crawl run.
var ErrOutputWriteFailed = errors.New("output write failed")

const abstractColumn = "abstract"

// WriteCSV writes records to path with a header row, replacing any existing
// file. An empty sequence yields a header-only file.
func WriteCSV(path string, records iter.Seq[types.PaperRecord]) error {
	return writeTable(path, types.Columns, records)
}

// WriteNoAbstractCSV writes records to path without the abstract column.
func WriteNoAbstractCSV(path string, records iter.Seq[types.PaperRecord]) error {
	cols := slices.DeleteFunc(slices.Clone(types.Columns), func(c string) bool { return c == abstractColumn })
	return writeTable(path, cols, records)
}

// NoAbstractPath derives the companion path: "out/harvest.csv" becomes
// "out/harvest_noabs.csv".
func NoAbstractPath(csvPath string) string {
	ext := filepath.Ext(csvPath)
	if !strings.EqualFold(ext, ".csv") {
		return csvPath + "_noabs.csv"
	}
	return strings.TrimSuffix(csvPath, ext) + "_noabs" + ext
}

func writeTable(path string, columns []string, records iter.Seq[types.PaperRecord]) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: creating directory for %s: %v", ErrOutputWriteFailed, path, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOutputWriteFailed, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: closing %s: %v", ErrOutputWriteFailed, path, cerr)
		}
	}()

	keep := columnIndexes(columns)
	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return fmt.Errorf("%w: writing header to %s: %v", ErrOutputWriteFailed, path, err)
	}

	row := make([]string, len(keep))
	for rec := range records {
		full := rec.Row()
		for i, idx := range keep {
			row[i] = full[idx]
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("%w: writing %s to %s: %v", ErrOutputWriteFailed, rec.ID, path, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("%w: flushing %s: %v", ErrOutputWriteFailed, path, err)
	}
	return nil
}

// columnIndexes maps each output column to its position in PaperRecord.Row.
func columnIndexes(columns []string) []int {
	idx := make([]int, len(columns))
	for i, c := range columns {
		idx[i] = slices.Index(types.Columns, c)
	}
	return idx
}
