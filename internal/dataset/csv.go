package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

// CSVProvider loads a dataset from a CSV file where one column holds the
// integer label and every other column is a feature. Scale divides features
// after parsing (255 for byte-valued pixels), bringing them into [0,1].
type CSVProvider struct {
	Path      string
	LabelCol  int
	HasHeader bool
	Scale     float64
}

// Load reads and parses the CSV file.
func (p *CSVProvider) Load() (*Dataset, error) {
	file, err := os.Open(p.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	startRow := 0
	if p.HasHeader {
		startRow = 1
	}
	if len(records) <= startRow {
		return nil, fmt.Errorf("csv file has no data rows")
	}

	numCols := len(records[startRow])
	if p.LabelCol < 0 || p.LabelCol >= numCols {
		return nil, fmt.Errorf("label column %d out of range for %d columns", p.LabelCol, numCols)
	}
	featureDim := numCols - 1

	scale := p.Scale
	if scale <= 0 {
		scale = 1
	}

	numSamples := len(records) - startRow
	inputs := mat.NewDense(numSamples, featureDim, nil)
	labels := make([]int, numSamples)

	for i := startRow; i < len(records); i++ {
		record := records[i]
		if len(record) != numCols {
			return nil, fmt.Errorf("inconsistent number of columns at row %d", i)
		}

		col := 0
		for j, valStr := range record {
			if j == p.LabelCol {
				label, err := strconv.Atoi(valStr)
				if err != nil {
					return nil, fmt.Errorf("failed to parse label at row %d: %w", i, err)
				}
				labels[i-startRow] = label
				continue
			}
			val, err := strconv.ParseFloat(valStr, 64)
			if err != nil {
				return nil, fmt.Errorf("failed to parse value at row %d, col %d: %w", i, j, err)
			}
			inputs.Set(i-startRow, col, val/scale)
			col++
		}
	}

	return &Dataset{Inputs: inputs, Labels: labels}, nil
}
