// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dataset

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/gorse-io/mofuse/base"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

var missingTokens = []string{"", "NA", "N/A", "NaN", "nan", "null", "NULL", "None"}

// CSVOptions describes the layout of a view file.
type CSVOptions struct {
	// IDColumn names the column holding sample identifiers. Empty means the first column.
	IDColumn string
	// Transposed files hold one feature per row and one sample per column.
	Transposed bool
}

// DefaultCSVOptions returns the layout of the public TCGA exports: omics matrices are
// stored features by samples, clinical data is keyed by patientID.
func DefaultCSVOptions(view View) CSVOptions {
	switch view {
	case Proteins, MRNA, MiRNA:
		return CSVOptions{Transposed: true}
	case Phenotype:
		return CSVOptions{IDColumn: "patientID"}
	default:
		return CSVOptions{}
	}
}

// LoadCSVFile loads a view from a comma separated file.
func LoadCSVFile(path string, view View, opts CSVOptions) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer f.Close()
	d, err := LoadCSV(f, view, opts)
	if err != nil {
		return nil, errors.Annotatef(err, "load %s", path)
	}
	return d, nil
}

// LoadCSV parses a view. Columns whose non-missing cells all parse as floats become
// numeric features, the rest are categorical. Unnamed columns are dropped.
func LoadCSV(r io.Reader, view View, opts CSVOptions) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(records) == 0 {
		return nil, base.Validationf("empty file for %s", view)
	}
	header := records[0]
	for i, record := range records[1:] {
		if len(record) != len(header) {
			return nil, base.Validationf("line %d has %d fields, header has %d", i+2, len(record), len(header))
		}
	}
	if opts.Transposed {
		records = transpose(records)
		header = records[0]
	}

	idColumn := 0
	if opts.IDColumn != "" && !opts.Transposed {
		idColumn = lo.IndexOf(header, opts.IDColumn)
		if idColumn < 0 {
			return nil, base.Validationf("identifier column %q not found in %s", opts.IDColumn, view)
		}
	}
	body := records[1:]
	ids := lo.Map(body, func(record []string, _ int) string { return strings.TrimSpace(record[idColumn]) })

	var columns []*Column
	for j, name := range header {
		name = strings.TrimSpace(name)
		if j == idColumn || name == "" || strings.HasPrefix(name, "Unnamed:") {
			continue
		}
		cells := lo.Map(body, func(record []string, _ int) string { return strings.TrimSpace(record[j]) })
		columns = append(columns, parseColumn(name, cells))
	}
	return New(view, ids, columns)
}

func parseColumn(name string, cells []string) *Column {
	values := make([]float64, len(cells))
	numeric := true
	for i, cell := range cells {
		if lo.Contains(missingTokens, cell) {
			values[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			numeric = false
			break
		}
		values[i] = v
	}
	if numeric {
		return NewNumericColumn(name, values)
	}
	labels := lo.Map(cells, func(cell string, _ int) string {
		if lo.Contains(missingTokens, cell) {
			return ""
		}
		return cell
	})
	return NewCategoricalColumn(name, labels)
}

func transpose(records [][]string) [][]string {
	if len(records) == 0 {
		return records
	}
	out := make([][]string, len(records[0]))
	for j := range out {
		out[j] = make([]string, len(records))
		for i := range records {
			out[j][i] = records[i][j]
		}
	}
	return out
}
