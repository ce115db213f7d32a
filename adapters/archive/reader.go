package archive

import (
	"archive/zip"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"mcmcref/domain/core"
	"mcmcref/domain/draws"
)

// DataReader reads raw MCMC draw archives into a columnar table. Supported
// formats: .csv, .json.zip (chain-list payload) and .xlsx.
type DataReader struct {
	filePath string
	format   string
}

// NewDataReader creates a reader that dispatches on the file extension.
func NewDataReader(filePath string) (*DataReader, error) {
	format, err := detectFormat(filePath)
	if err != nil {
		return nil, err
	}
	return &DataReader{filePath: filePath, format: format}, nil
}

// Format returns the detected input format.
func (r *DataReader) Format() string {
	return r.format
}

// Read loads the archive into a table, synthesizing chain/draw index columns
// when the input does not carry them.
func (r *DataReader) Read() (*draws.Table, error) {
	if _, err := os.Stat(r.filePath); err != nil {
		return nil, fmt.Errorf("input not readable: %w", err)
	}

	var table *draws.Table
	var err error
	switch r.format {
	case "csv":
		table, err = r.readCSV()
	case "jsonzip":
		table, err = r.readJSONZip()
	case "xlsx":
		table, err = r.readXLSX()
	default:
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedFormat, r.filePath)
	}
	if err != nil {
		return nil, err
	}

	table.EnsureChainDraw()
	return table, nil
}

func detectFormat(filePath string) (string, error) {
	lower := strings.ToLower(filePath)
	switch {
	case strings.HasSuffix(lower, ".json.zip"):
		return "jsonzip", nil
	case strings.HasSuffix(lower, ".csv"):
		return "csv", nil
	case strings.HasSuffix(lower, ".xlsx"):
		return "xlsx", nil
	default:
		return "", fmt.Errorf("%w: %s", core.ErrUnsupportedFormat, filePath)
	}
}

func (r *DataReader) readCSV() (*draws.Table, error) {
	f, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV: %w", err)
	}
	defer f.Close()
	return tableFromRecords(csv.NewReader(f))
}

func (r *DataReader) readXLSX() (*draws.Table, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx has no sheets: %s", r.filePath)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return tableFromRows(rows)
}

// readJSONZip reads the chain-list format: a zip holding one JSON file whose
// payload is a list of chains, each chain a map of parameter name to draws.
func (r *DataReader) readJSONZip() (*draws.Table, error) {
	zr, err := zip.OpenReader(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip: %w", err)
	}
	defer zr.Close()

	if len(zr.File) == 0 {
		return nil, core.ErrEmptyArchive
	}
	entry, err := zr.File[0].Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open zip entry: %w", err)
	}
	defer entry.Close()

	payload, err := io.ReadAll(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to read zip entry: %w", err)
	}

	var chains []map[string][]float64
	if err := json.Unmarshal(payload, &chains); err != nil {
		return nil, fmt.Errorf("failed to decode chain-list payload: %w", err)
	}
	if len(chains) == 0 {
		return nil, core.ErrEmptyArchive
	}

	params := make([]string, 0, len(chains[0]))
	for p := range chains[0] {
		params = append(params, p)
	}
	sort.Strings(params)

	nDraws := 0
	for _, seq := range chains[0] {
		nDraws = len(seq)
		break
	}

	table := draws.NewTable(params)
	for chainIdx, chain := range chains {
		for drawIdx := 0; drawIdx < nDraws; drawIdx++ {
			values := make(map[string]float64, len(params))
			for _, p := range params {
				seq, ok := chain[p]
				if !ok || drawIdx >= len(seq) {
					return nil, fmt.Errorf("chain %d missing draw %d for parameter %s", chainIdx, drawIdx, p)
				}
				values[p] = seq[drawIdx]
			}
			if err := table.AppendRow(chainIdx, drawIdx, values); err != nil {
				return nil, err
			}
		}
	}
	return table, nil
}

type recordReader interface {
	Read() ([]string, error)
}

func tableFromRecords(r recordReader) (*draws.Table, error) {
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	var rows [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		rows = append(rows, record)
	}
	return tableFromRows(append([][]string{header}, rows...))
}

func tableFromRows(rows [][]string) (*draws.Table, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("input has no header row")
	}
	header := rows[0]

	chainCol, drawCol := -1, -1
	var params []string
	paramCols := make(map[string]int)
	for i, name := range header {
		name = strings.TrimSpace(name)
		switch name {
		case draws.ColChain:
			chainCol = i
		case draws.ColDraw:
			drawCol = i
		default:
			params = append(params, name)
			paramCols[name] = i
		}
	}

	table := draws.NewTable(params)
	for rowIdx, record := range rows[1:] {
		chain, draw := 0, rowIdx
		if chainCol >= 0 {
			v, err := strconv.Atoi(strings.TrimSpace(record[chainCol]))
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid chain index: %w", rowIdx+1, err)
			}
			chain = v
		}
		if drawCol >= 0 {
			v, err := strconv.Atoi(strings.TrimSpace(record[drawCol]))
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid draw index: %w", rowIdx+1, err)
			}
			draw = v
		}

		values := make(map[string]float64, len(params))
		for _, p := range params {
			col := paramCols[p]
			if col >= len(record) {
				return nil, fmt.Errorf("row %d: missing value for %s", rowIdx+1, p)
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid value for %s: %w", rowIdx+1, p, err)
			}
			values[p] = v
		}
		if err := table.AppendRow(chain, draw, values); err != nil {
			return nil, err
		}
	}
	return table, nil
}

// BaseName strips the recognized archive extensions from a path, yielding a
// default model name.
func BaseName(filePath string) string {
	base := filepath.Base(filePath)
	for _, suffix := range []string{".json.zip", ".csv", ".xlsx"} {
		if strings.HasSuffix(strings.ToLower(base), suffix) {
			return base[:len(base)-len(suffix)]
		}
	}
	return base
}
