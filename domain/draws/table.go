package draws

import (
	"fmt"
	"sort"
)

// Reserved column names carrying chain structure rather than draws.
const (
	ColChain = "chain"
	ColDraw  = "draw"
)

// Table is a columnar view of MCMC output: a chain index column, a draw
// index column, and one float64 column per model parameter.
type Table struct {
	Chain  []int
	Draw   []int
	Params []string
	Values map[string][]float64
}

// NewTable creates an empty table for the given parameter names.
func NewTable(params []string) *Table {
	values := make(map[string][]float64, len(params))
	for _, p := range params {
		values[p] = nil
	}
	return &Table{Params: append([]string(nil), params...), Values: values}
}

// NumRows returns the row count.
func (t *Table) NumRows() int {
	return len(t.Chain)
}

// AppendRow adds one (chain, draw, values...) row. Values are matched to
// parameters by name; missing parameters are an error.
func (t *Table) AppendRow(chain, draw int, values map[string]float64) error {
	for _, p := range t.Params {
		v, ok := values[p]
		if !ok {
			return fmt.Errorf("row missing value for parameter %s", p)
		}
		t.Values[p] = append(t.Values[p], v)
	}
	t.Chain = append(t.Chain, chain)
	t.Draw = append(t.Draw, draw)
	return nil
}

// EnsureChainDraw synthesizes missing chain/draw index columns: a missing
// draw column becomes the row index, a missing chain column becomes all
// zeros (single implicit chain).
func (t *Table) EnsureChainDraw() {
	n := 0
	for _, p := range t.Params {
		if len(t.Values[p]) > n {
			n = len(t.Values[p])
		}
	}
	if len(t.Chain) > n {
		n = len(t.Chain)
	}
	if len(t.Draw) > n {
		n = len(t.Draw)
	}

	if len(t.Chain) == 0 {
		t.Chain = make([]int, n)
	}
	if len(t.Draw) == 0 {
		t.Draw = make([]int, n)
		for i := range t.Draw {
			t.Draw[i] = i
		}
	}
}

// CountChainsDraws returns the number of distinct chains and the minimum
// draws-per-chain across chains. Unequal chains count at the minimum, which
// is the effective n the diagnostics use.
func (t *Table) CountChainsDraws() (nChains, nDraws int) {
	perChain := make(map[int]int)
	for _, c := range t.Chain {
		perChain[c]++
	}
	if len(perChain) == 0 {
		return 0, 0
	}
	minDraws := -1
	for _, count := range perChain {
		if minDraws < 0 || count < minDraws {
			minDraws = count
		}
	}
	return len(perChain), minDraws
}

// ChainsFor regroups one parameter's column into per-chain sequences ordered
// by draw index, with chains ordered by chain id. This is the shape the
// diagnostics engine consumes.
func (t *Table) ChainsFor(param string) ([][]float64, error) {
	col, ok := t.Values[param]
	if !ok {
		return nil, fmt.Errorf("unknown parameter: %s", param)
	}

	type indexedDraw struct {
		draw  int
		value float64
	}
	buckets := make(map[int][]indexedDraw)
	for i, c := range t.Chain {
		buckets[c] = append(buckets[c], indexedDraw{draw: t.Draw[i], value: col[i]})
	}

	chainIDs := make([]int, 0, len(buckets))
	for c := range buckets {
		chainIDs = append(chainIDs, c)
	}
	sort.Ints(chainIDs)

	chains := make([][]float64, 0, len(chainIDs))
	for _, c := range chainIDs {
		bucket := buckets[c]
		sort.SliceStable(bucket, func(i, j int) bool { return bucket[i].draw < bucket[j].draw })
		seq := make([]float64, len(bucket))
		for i, d := range bucket {
			seq[i] = d.value
		}
		chains = append(chains, seq)
	}
	return chains, nil
}

// FilterChains returns a copy containing only rows from the given chain ids.
// A nil filter returns the table unchanged.
func (t *Table) FilterChains(chains []int) *Table {
	if chains == nil {
		return t
	}
	keep := make(map[int]bool, len(chains))
	for _, c := range chains {
		keep[c] = true
	}

	out := NewTable(t.Params)
	for i, c := range t.Chain {
		if !keep[c] {
			continue
		}
		out.Chain = append(out.Chain, c)
		out.Draw = append(out.Draw, t.Draw[i])
		for _, p := range t.Params {
			out.Values[p] = append(out.Values[p], t.Values[p][i])
		}
	}
	return out
}

// SelectParams returns a copy limited to the given parameters. A nil
// selection returns the table unchanged.
func (t *Table) SelectParams(params []string) (*Table, error) {
	if params == nil {
		return t, nil
	}
	out := NewTable(params)
	out.Chain = t.Chain
	out.Draw = t.Draw
	for _, p := range params {
		col, ok := t.Values[p]
		if !ok {
			return nil, fmt.Errorf("unknown parameter: %s", p)
		}
		out.Values[p] = col
	}
	return out, nil
}
