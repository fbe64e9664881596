package dataset

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/specialistvlad/gpfit/internal/errdefs"
)

// Columns are the parallel arrays read from a data file.
type Columns struct {
	Times  []float64
	Values []float64
	Errors []float64
}

// ReadFile reads a whitespace-delimited data file. See Read for the format.
func ReadFile(path, instrument string) (*Columns, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f, instrument)
}

// Read parses rows of `time value error [instrument]`. Blank lines and lines
// starting with '#' are skipped. When a row carries a fourth column only rows
// whose fourth column equals instrument are kept, so one file can hold
// several instruments.
func Read(r io.Reader, instrument string) (*Columns, error) {
	cols := &Columns{}
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 3 || len(fields) > 4 {
			return nil, &errdefs.ConfigurationError{Instrument: instrument, Msg: fmt.Sprintf("line %d: expected 3 or 4 columns, got %d", line, len(fields))}
		}
		if len(fields) == 4 && fields[3] != instrument {
			continue
		}
		var row [3]float64
		for i := 0; i < 3; i++ {
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, &errdefs.ConfigurationError{Instrument: instrument, Msg: fmt.Sprintf("line %d column %d", line, i+1), Err: err}
			}
			row[i] = v
		}
		cols.Times = append(cols.Times, row[0])
		cols.Values = append(cols.Values, row[1])
		cols.Errors = append(cols.Errors, row[2])
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return cols, nil
}
