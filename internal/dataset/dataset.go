// Package dataset loads labeled feature data from CSV files. The expected
// layout is a header row followed by numeric feature columns and a final
// integer label column; header names (minus the label column) become feature
// names.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"neurosym/internal/tensor"
)

// Dataset is an in-memory labeled feature matrix.
type Dataset struct {
	Features     *tensor.Matrix
	Labels       []int
	FeatureNames []string
	NumClasses   int
}

// LoadCSV reads a dataset from a CSV file.
func LoadCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer f.Close()

	ds, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("dataset: %s: %w", path, err)
	}
	return ds, nil
}

// Read parses CSV data from r.
func Read(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 0

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("need at least one feature column and a label column, got %d columns", len(header))
	}
	featureCols := len(header) - 1

	var rows [][]float64
	var labels []int
	maxLabel := -1
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}
		line++

		row := make([]float64, featureCols)
		for i := 0; i < featureCols; i++ {
			v, err := strconv.ParseFloat(record[i], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d, column %s: %w", line, header[i], err)
			}
			row[i] = v
		}
		y, err := strconv.Atoi(record[featureCols])
		if err != nil {
			return nil, fmt.Errorf("row %d, label: %w", line, err)
		}
		if y < 0 {
			return nil, fmt.Errorf("row %d: negative label %d", line, y)
		}
		if y > maxLabel {
			maxLabel = y
		}

		rows = append(rows, row)
		labels = append(labels, y)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no data rows")
	}

	features, err := tensor.FromRows(rows)
	if err != nil {
		return nil, err
	}
	return &Dataset{
		Features:     features,
		Labels:       labels,
		FeatureNames: append([]string(nil), header[:featureCols]...),
		NumClasses:   maxLabel + 1,
	}, nil
}

// Split partitions the dataset into train and test subsets by a fraction of
// rows assigned to train. Order is preserved; shuffle upstream if needed.
func (d *Dataset) Split(trainFraction float64) (train, test *Dataset, err error) {
	if trainFraction <= 0 || trainFraction >= 1 {
		return nil, nil, fmt.Errorf("dataset: train fraction must be in (0, 1), got %g", trainFraction)
	}
	cut := int(float64(d.Features.Rows) * trainFraction)
	if cut == 0 || cut == d.Features.Rows {
		return nil, nil, fmt.Errorf("dataset: split leaves an empty partition (%d rows, fraction %g)", d.Features.Rows, trainFraction)
	}
	return d.slice(0, cut), d.slice(cut, d.Features.Rows), nil
}

func (d *Dataset) slice(from, to int) *Dataset {
	sub := tensor.New(to-from, d.Features.Cols)
	for i := from; i < to; i++ {
		copy(sub.Row(i-from), d.Features.Row(i))
	}
	return &Dataset{
		Features:     sub,
		Labels:       append([]int(nil), d.Labels[from:to]...),
		FeatureNames: d.FeatureNames,
		NumClasses:   d.NumClasses,
	}
}
