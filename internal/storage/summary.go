package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/san-kum/mcsim/internal/analysis"
)

// SummaryPrecision is the number of decimals written for each statistic.
const SummaryPrecision = 6

var summaryHeader = []string{"step", "mean_x1", "mean_x2", "var_x1", "var_x2"}

// WriteSummary writes one CSV row per time step with the per-component
// mean and variance across trials.
func WriteSummary(w io.Writer, s analysis.Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(summaryHeader); err != nil {
		return err
	}

	for t, m := range s {
		row := []string{
			strconv.Itoa(t),
			formatFloat(m.Mean[0]),
			formatFloat(m.Mean[1]),
			formatFloat(m.Var[0]),
			formatFloat(m.Var[1]),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadSummary parses the format written by WriteSummary.
func ReadSummary(r io.Reader) (analysis.Summary, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(summaryHeader)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("storage: summary has no header")
	}
	for i, name := range summaryHeader {
		if records[0][i] != name {
			return nil, fmt.Errorf("storage: summary column %d is %q, want %q", i, records[0][i], name)
		}
	}

	out := make(analysis.Summary, 0, len(records)-1)
	for i, rec := range records[1:] {
		step, err := strconv.Atoi(rec[0])
		if err != nil || step != i {
			return nil, fmt.Errorf("storage: summary row %d has step %q", i+1, rec[0])
		}
		var vals [4]float64
		for j := range vals {
			v, err := strconv.ParseFloat(rec[j+1], 64)
			if err != nil {
				return nil, fmt.Errorf("storage: summary row %d column %s: %w", i+1, summaryHeader[j+1], err)
			}
			vals[j] = v
		}
		out = append(out, analysis.Moments{
			Mean: [2]float64{vals[0], vals[1]},
			Var:  [2]float64{vals[2], vals[3]},
		})
	}
	return out, nil
}

func SaveSummary(path string, s analysis.Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteSummary(f, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func LoadSummary(path string) (analysis.Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadSummary(f)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', SummaryPrecision, 64)
}
