package archive

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"mcmcref/domain/core"
)

func TestReadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "draws.csv")
	content := "chain,draw,mu,tau\n0,0,1.0,2.0\n0,1,1.1,2.1\n1,0,0.9,2.2\n1,1,1.2,2.3\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	reader, err := NewDataReader(path)
	if err != nil {
		t.Fatalf("NewDataReader: %v", err)
	}
	table, err := reader.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if table.NumRows() != 4 {
		t.Fatalf("expected 4 rows, got %d", table.NumRows())
	}
	if len(table.Params) != 2 {
		t.Fatalf("expected 2 parameters, got %v", table.Params)
	}
	nChains, nDraws := table.CountChainsDraws()
	if nChains != 2 || nDraws != 2 {
		t.Errorf("got %d chains x %d draws, want 2 x 2", nChains, nDraws)
	}
}

func TestReadCSV_NoIndexColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "draws.csv")
	content := "mu\n1.0\n1.1\n1.2\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	reader, err := NewDataReader(path)
	if err != nil {
		t.Fatalf("NewDataReader: %v", err)
	}
	table, err := reader.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	// A single implicit chain with sequential draw indices.
	nChains, nDraws := table.CountChainsDraws()
	if nChains != 1 || nDraws != 3 {
		t.Errorf("got %d chains x %d draws, want 1 x 3", nChains, nDraws)
	}
	chains, err := table.ChainsFor("mu")
	if err != nil {
		t.Fatalf("ChainsFor: %v", err)
	}
	if len(chains) != 1 || chains[0][2] != 1.2 {
		t.Errorf("unexpected chains: %v", chains)
	}
}

func TestReadJSONZip(t *testing.T) {
	payload := []map[string][]float64{
		{"mu": {1.0, 1.1}, "tau": {2.0, 2.1}},
		{"mu": {0.9, 1.2}, "tau": {2.2, 2.3}},
	}
	path := writeJSONZip(t, payload)

	reader, err := NewDataReader(path)
	if err != nil {
		t.Fatalf("NewDataReader: %v", err)
	}
	table, err := reader.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	// Parameters come out sorted.
	if len(table.Params) != 2 || table.Params[0] != "mu" || table.Params[1] != "tau" {
		t.Fatalf("unexpected params: %v", table.Params)
	}
	chains, err := table.ChainsFor("mu")
	if err != nil {
		t.Fatalf("ChainsFor: %v", err)
	}
	if len(chains) != 2 || chains[1][0] != 0.9 {
		t.Errorf("unexpected chains: %v", chains)
	}
}

func TestReadJSONZip_EmptyPayload(t *testing.T) {
	path := writeJSONZip(t, []map[string][]float64{})

	reader, err := NewDataReader(path)
	if err != nil {
		t.Fatalf("NewDataReader: %v", err)
	}
	if _, err := reader.Read(); err == nil {
		t.Error("expected error for empty chain list")
	}
}

func TestReadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "draws.xlsx")

	f := excelize.NewFile()
	rows := [][]any{
		{"chain", "draw", "mu"},
		{0, 0, 1.0},
		{0, 1, 1.1},
		{1, 0, 0.9},
		{1, 1, 1.2},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}

	reader, err := NewDataReader(path)
	if err != nil {
		t.Fatalf("NewDataReader: %v", err)
	}
	table, err := reader.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	nChains, nDraws := table.CountChainsDraws()
	if nChains != 2 || nDraws != 2 {
		t.Errorf("got %d chains x %d draws, want 2 x 2", nChains, nDraws)
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := NewDataReader("draws.parquet"); !errors.Is(err, core.ErrUnsupportedFormat) {
		t.Errorf("expected unsupported-format error, got %v", err)
	}
}

func TestBaseName(t *testing.T) {
	cases := map[string]string{
		"eight_schools.json.zip": "eight_schools",
		"/tmp/radon.csv":         "radon",
		"draws/funnel.xlsx":      "funnel",
		"already-stripped":       "already-stripped",
	}
	for input, want := range cases {
		if got := BaseName(input); got != want {
			t.Errorf("BaseName(%q) = %q, want %q", input, got, want)
		}
	}
}

func writeJSONZip(t *testing.T, payload any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "draws.json.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	entry, err := zw.Create("draws.json")
	if err != nil {
		t.Fatal(err)
	}
	if err := json.NewEncoder(entry).Encode(payload); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}
