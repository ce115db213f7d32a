package draws

// Draws wraps a Table with the parameter and chain selection it was loaded
// under, plus optional source metadata.
type Draws struct {
	Table  *Table
	Params []string
	Chains []int
	Meta   map[string]any
}

// Rows materializes the draws as ordered row maps, including the chain and
// draw index columns.
func (d *Draws) Rows() []map[string]any {
	t := d.Table
	rows := make([]map[string]any, t.NumRows())
	for i := range rows {
		row := make(map[string]any, len(t.Params)+2)
		row[ColChain] = t.Chain[i]
		row[ColDraw] = t.Draw[i]
		for _, p := range t.Params {
			row[p] = t.Values[p][i]
		}
		rows[i] = row
	}
	return rows
}

// Matrix materializes the draws as a rows x params matrix in parameter
// declaration order.
func (d *Draws) Matrix() [][]float64 {
	t := d.Table
	out := make([][]float64, t.NumRows())
	for i := range out {
		row := make([]float64, len(t.Params))
		for j, p := range t.Params {
			row[j] = t.Values[p][i]
		}
		out[i] = row
	}
	return out
}
