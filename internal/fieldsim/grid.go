package fieldsim

// grid holds the per-plot statuses in row-major order.
type grid struct {
	rows, cols int
	cells      []CellStatus
}

func newGrid(rows, cols int) *grid {
	return &grid{rows: rows, cols: cols, cells: make([]CellStatus, rows*cols)}
}

func (g *grid) inRange(row, col int) bool {
	return row >= 0 && row < g.rows && col >= 0 && col < g.cols
}

func (g *grid) at(row, col int) (CellStatus, error) {
	if !g.inRange(row, col) {
		return CellHealthy, ErrOutOfRange
	}
	return g.cells[row*g.cols+col], nil
}

func (g *grid) set(row, col int, s CellStatus) error {
	if !g.inRange(row, col) {
		return ErrOutOfRange
	}
	g.cells[row*g.cols+col] = s
	return nil
}

func (g *grid) fill(s CellStatus) {
	for i := range g.cells {
		g.cells[i] = s
	}
}

// snapshot copies the cells into a rows x cols matrix.
func (g *grid) snapshot() [][]CellStatus {
	out := make([][]CellStatus, g.rows)
	for r := 0; r < g.rows; r++ {
		row := make([]CellStatus, g.cols)
		copy(row, g.cells[r*g.cols:(r+1)*g.cols])
		out[r] = row
	}
	return out
}
