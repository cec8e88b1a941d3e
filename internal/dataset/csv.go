// Package dataset loads and generates point sets for clustering.
package dataset

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrInvalidRange is returned for a column range that selects nothing.
var ErrInvalidRange = errors.New("dataset: invalid column range")

// Columns selects the inclusive column range [Start, End] of a CSV row.
type Columns struct {
	Start, End int
}

// Width is the number of selected columns.
func (c Columns) Width() int { return c.End - c.Start + 1 }

func (c Columns) validate() error {
	if c.Start < 0 || c.End < c.Start {
		return fmt.Errorf("dataset: columns %d:%d: %w", c.Start, c.End, ErrInvalidRange)
	}
	return nil
}

// ParseColumns parses "start:end" or a single column index.
func ParseColumns(s string) (Columns, error) {
	startStr, endStr, found := strings.Cut(s, ":")
	if !found {
		endStr = startStr
	}
	start, err := strconv.Atoi(strings.TrimSpace(startStr))
	if err != nil {
		return Columns{}, fmt.Errorf("dataset: column range %q: %w", s, ErrInvalidRange)
	}
	end, err := strconv.Atoi(strings.TrimSpace(endStr))
	if err != nil {
		return Columns{}, fmt.Errorf("dataset: column range %q: %w", s, ErrInvalidRange)
	}
	c := Columns{Start: start, End: end}
	return c, c.validate()
}

// Import reads one point per CSV record from the selected columns. Rows
// that are too short or contain a non-numeric selected field, such as a
// header, are skipped.
func Import(r io.Reader, cols Columns) ([][]float64, error) {
	if err := cols.validate(); err != nil {
		return nil, err
	}

	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var points [][]float64
Rows:
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dataset: read csv: %w", err)
		}
		if len(record) <= cols.End {
			continue
		}

		p := make([]float64, 0, cols.Width())
		for j := cols.Start; j <= cols.End; j++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[j]), 64)
			if err != nil {
				continue Rows
			}
			p = append(p, v)
		}
		points = append(points, p)
	}
	return points, nil
}

// ImportFile opens path and calls Import.
func ImportFile(path string, cols Columns) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Import(f, cols)
}
