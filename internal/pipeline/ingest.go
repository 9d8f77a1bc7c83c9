package pipeline

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"telemetry-pipeline/internal/model"
	"telemetry-pipeline/internal/storage"
	"telemetry-pipeline/pkg/utils"
)

// ErrEmptyInput is returned when a CSV source has no header row
var ErrEmptyInput = errors.New("input has no header row")

// ------------------- CSV Ingestion -------------------

// ReadCSV materializes a whole CSV table.
//
// Header names are trimmed and stripped of quotes. Short rows are padded with
// missing cells and long rows are truncated to the header width. A column is
// numeric when every non-missing cell parses as a number, otherwise it stays
// categorical and keeps its raw text.
func ReadCSV(r io.Reader) (*model.Dataset, error) {
	csvReader := csv.NewReader(r)
	csvReader.LazyQuotes = true
	csvReader.FieldsPerRecord = -1
	csvReader.ReuseRecord = true

	headers, err := csvReader.Read()
	if err == io.EOF {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	names := make([]string, len(headers))
	for i, h := range headers {
		// Clean header names: trim whitespace and remove ALL quotes
		cleanHeader := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		cleanHeader = strings.ReplaceAll(cleanHeader, `"`, "")
		names[i] = cleanHeader
	}

	cells := make([][]string, len(names))
	line := 1
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("CSV read error at line %d: %w", line, err)
		}
		for i := range names {
			v := ""
			if i < len(record) {
				v = record[i]
			}
			cells[i] = append(cells[i], v)
		}
	}

	columns := make([]*model.Column, len(names))
	for i, name := range names {
		columns[i] = inferColumn(name, cells[i])
	}
	return model.NewDataset(columns...)
}

// LoadCSV reads key from an object store and parses it with ReadCSV
func LoadCSV(ctx context.Context, src storage.ObjectStore, key string) (*model.Dataset, error) {
	rc, err := src.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	ds, err := ReadCSV(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", src.Location(key), err)
	}
	return ds, nil
}

func inferColumn(name string, raw []string) *model.Column {
	if raw == nil {
		raw = []string{}
	}
	num := make([]float64, len(raw))
	for i, cell := range raw {
		v, ok := utils.ParseFloat(cell)
		if !ok && !utils.IsMissingToken(cell) {
			return model.NewCategoricalColumn(name, raw)
		}
		num[i] = v
	}
	col := model.NewNumericColumn(name, num)
	col.Raw = raw
	return col
}
