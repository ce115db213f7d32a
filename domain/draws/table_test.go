package draws

import (
	"testing"
)

func buildTable(t *testing.T) *Table {
	t.Helper()
	table := NewTable([]string{"mu", "tau"})
	rows := []struct {
		chain, draw int
		mu, tau     float64
	}{
		{1, 0, 1.0, 2.0},
		{0, 1, 1.1, 2.1},
		{0, 0, 0.9, 2.2},
		{1, 1, 1.2, 2.3},
	}
	for _, row := range rows {
		if err := table.AppendRow(row.chain, row.draw, map[string]float64{"mu": row.mu, "tau": row.tau}); err != nil {
			t.Fatalf("AppendRow: %v", err)
		}
	}
	return table
}

func TestChainsFor_OrdersByChainAndDraw(t *testing.T) {
	table := buildTable(t)

	chains, err := table.ChainsFor("mu")
	if err != nil {
		t.Fatalf("ChainsFor: %v", err)
	}
	if len(chains) != 2 {
		t.Fatalf("expected 2 chains, got %d", len(chains))
	}
	// Chain 0 ordered by draw index despite shuffled row order.
	if chains[0][0] != 0.9 || chains[0][1] != 1.1 {
		t.Errorf("chain 0 = %v, want [0.9 1.1]", chains[0])
	}
	if chains[1][0] != 1.0 || chains[1][1] != 1.2 {
		t.Errorf("chain 1 = %v, want [1.0 1.2]", chains[1])
	}
}

func TestChainsFor_UnknownParam(t *testing.T) {
	table := buildTable(t)
	if _, err := table.ChainsFor("sigma"); err == nil {
		t.Error("expected error for unknown parameter")
	}
}

func TestCountChainsDraws(t *testing.T) {
	table := buildTable(t)

	nChains, nDraws := table.CountChainsDraws()
	if nChains != 2 || nDraws != 2 {
		t.Errorf("got %d chains x %d draws, want 2 x 2", nChains, nDraws)
	}

	// Unequal chains count at the minimum.
	if err := table.AppendRow(0, 2, map[string]float64{"mu": 1.3, "tau": 2.4}); err != nil {
		t.Fatalf("AppendRow: %v", err)
	}
	nChains, nDraws = table.CountChainsDraws()
	if nChains != 2 || nDraws != 2 {
		t.Errorf("got %d chains x %d draws, want 2 x 2 after unequal append", nChains, nDraws)
	}
}

func TestEnsureChainDraw_SynthesizesIndices(t *testing.T) {
	table := NewTable([]string{"mu"})
	table.Values["mu"] = []float64{1.0, 2.0, 3.0}

	table.EnsureChainDraw()

	if len(table.Chain) != 3 || len(table.Draw) != 3 {
		t.Fatalf("expected synthesized index columns of length 3, got %d and %d", len(table.Chain), len(table.Draw))
	}
	for i := range table.Chain {
		if table.Chain[i] != 0 {
			t.Errorf("chain[%d] = %d, want 0", i, table.Chain[i])
		}
		if table.Draw[i] != i {
			t.Errorf("draw[%d] = %d, want %d", i, table.Draw[i], i)
		}
	}
}

func TestFilterChains(t *testing.T) {
	table := buildTable(t)

	filtered := table.FilterChains([]int{1})
	if filtered.NumRows() != 2 {
		t.Fatalf("expected 2 rows after filtering, got %d", filtered.NumRows())
	}
	for _, c := range filtered.Chain {
		if c != 1 {
			t.Errorf("unexpected chain id %d after filter", c)
		}
	}

	if table.FilterChains(nil) != table {
		t.Error("nil filter should return the table unchanged")
	}
}

func TestSelectParams(t *testing.T) {
	table := buildTable(t)

	selected, err := table.SelectParams([]string{"tau"})
	if err != nil {
		t.Fatalf("SelectParams: %v", err)
	}
	if len(selected.Params) != 1 || selected.Params[0] != "tau" {
		t.Errorf("unexpected params: %v", selected.Params)
	}
	if _, ok := selected.Values["mu"]; ok {
		t.Error("mu should not survive selection")
	}

	if _, err := table.SelectParams([]string{"nope"}); err == nil {
		t.Error("expected error for unknown parameter")
	}
}

func TestDrawsRowsAndMatrix(t *testing.T) {
	table := buildTable(t)
	d := &Draws{Table: table, Params: table.Params}

	rows := d.Rows()
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	if rows[0][ColChain] != 1 || rows[0]["mu"] != 1.0 {
		t.Errorf("unexpected first row: %v", rows[0])
	}

	matrix := d.Matrix()
	if len(matrix) != 4 || len(matrix[0]) != 2 {
		t.Fatalf("unexpected matrix shape: %dx%d", len(matrix), len(matrix[0]))
	}
	if matrix[0][0] != 1.0 || matrix[0][1] != 2.0 {
		t.Errorf("unexpected first matrix row: %v", matrix[0])
	}
}
