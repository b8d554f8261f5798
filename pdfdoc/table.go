package pdfdoc

import (
	"math"
	"sort"
	"strings"
)

// Table is a detected table: a grid of cell texts plus the table's
// bounding box in PDF points.
type Table struct {
	Cells          [][]string
	X0, Y0, X1, Y1 float64
	Confidence     float64
}

// tableConfig holds the geometric detection thresholds.
type tableConfig struct {
	minRows            int
	minCols            int
	minConfidence      float64
	alignmentTolerance float64 // points, for clustering edges and baselines
	clusterGap         float64 // vertical gap that splits fragment clusters
}

func defaultTableConfig() tableConfig {
	return tableConfig{
		minRows:            2,
		minCols:            2,
		minConfidence:      0.5,
		alignmentTolerance: 2.0,
		clusterGap:         50,
	}
}

// detectTables finds tabular structures among a page's text fragments
// using geometric heuristics: fragments are clustered by vertical
// proximity, and each cluster is checked for row/column alignment
// patterns.
func detectTables(frags []Fragment, cfg tableConfig) []Table {
	var tables []Table
	for _, cluster := range clusterFragments(frags, cfg.clusterGap) {
		if t := detectTableInCluster(cluster, cfg); t != nil {
			tables = append(tables, *t)
		}
	}
	return tables
}

// clusterFragments groups fragments that are vertically close. A gap larger
// than maxGap points starts a new cluster.
func clusterFragments(frags []Fragment, maxGap float64) [][]Fragment {
	if len(frags) == 0 {
		return nil
	}

	sorted := make([]Fragment, len(frags))
	copy(sorted, frags)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Y > sorted[j].Y })

	var clusters [][]Fragment
	current := []Fragment{sorted[0]}
	for _, frag := range sorted[1:] {
		prev := current[len(current)-1]
		if prev.Y-frag.Y > maxGap {
			clusters = append(clusters, current)
			current = []Fragment{frag}
		} else {
			current = append(current, frag)
		}
	}
	return append(clusters, current)
}

// detectTableInCluster builds a candidate grid for one cluster and accepts
// it when the confidence score clears the threshold.
func detectTableInCluster(frags []Fragment, cfg tableConfig) *Table {
	if len(frags) < cfg.minRows*cfg.minCols {
		return nil
	}

	rows := clusterValues(baselines(frags), cfg.alignmentTolerance)
	if len(rows) < cfg.minRows {
		return nil
	}

	cols := columnEdges(frags, cfg.alignmentTolerance*2.5)
	if len(cols) < cfg.minCols {
		return nil
	}

	grid := buildGrid(rows, cols, frags)
	cells, occupancy := assignCells(grid, frags)

	confidence := scoreGrid(cells, occupancy, rows)
	if confidence < cfg.minConfidence {
		return nil
	}

	t := &Table{Cells: cells, Confidence: confidence}
	t.X0, t.Y0, t.X1, t.Y1 = fragmentExtent(frags)
	return t
}

// baselines collects each fragment's baseline Y, sorted descending.
func baselines(frags []Fragment) []float64 {
	ys := make([]float64, len(frags))
	for i, f := range frags {
		ys[i] = f.Y
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(ys)))
	return ys
}

// clusterValues merges values within tolerance of the running cluster
// center, averaging members.
func clusterValues(sorted []float64, tolerance float64) []float64 {
	if len(sorted) == 0 {
		return nil
	}
	clustered := []float64{sorted[0]}
	count := 1
	for _, v := range sorted[1:] {
		last := clustered[len(clustered)-1]
		if math.Abs(v-last) > tolerance {
			clustered = append(clustered, v)
			count = 1
		} else {
			clustered[len(clustered)-1] = (last*float64(count) + v) / float64(count+1)
			count++
		}
	}
	return clustered
}

// columnEdges clusters fragment left edges and keeps clusters shared by at
// least two fragments. A column is only real when text aligns to it across
// rows.
func columnEdges(frags []Fragment, tolerance float64) []float64 {
	lefts := make([]float64, len(frags))
	for i, f := range frags {
		lefts[i] = f.X
	}
	sort.Float64s(lefts)

	var edges []float64
	var members int
	for idx, x := range lefts {
		if idx == 0 || x-edges[len(edges)-1] > tolerance {
			if idx > 0 && members < 2 {
				edges = edges[:len(edges)-1]
			}
			edges = append(edges, x)
			members = 1
		} else {
			last := edges[len(edges)-1]
			edges[len(edges)-1] = (last*float64(members) + x) / float64(members+1)
			members++
		}
	}
	if members < 2 && len(edges) > 0 {
		edges = edges[:len(edges)-1]
	}
	return edges
}

// gridLayout carries cell boundaries: rowBounds has len(rows)+1 entries
// descending, colBounds has len(cols)+1 entries ascending.
type gridLayout struct {
	rowBounds []float64
	colBounds []float64
}

func buildGrid(rows, cols []float64, frags []Fragment) gridLayout {
	minY, maxX, maxY := math.Inf(1), math.Inf(-1), math.Inf(-1)
	for _, f := range frags {
		minY = math.Min(minY, f.Y-f.Height*0.25)
		maxY = math.Max(maxY, f.Y+f.Height*0.75)
		maxX = math.Max(maxX, f.X+f.Width)
	}

	rowBounds := make([]float64, 0, len(rows)+1)
	rowBounds = append(rowBounds, maxY+1)
	for i := 0; i+1 < len(rows); i++ {
		rowBounds = append(rowBounds, (rows[i]+rows[i+1])/2)
	}
	rowBounds = append(rowBounds, minY-1)

	colBounds := make([]float64, 0, len(cols)+1)
	for _, x := range cols {
		colBounds = append(colBounds, x-1)
	}
	colBounds = append(colBounds, maxX+1)

	return gridLayout{rowBounds: rowBounds, colBounds: colBounds}
}

// assignCells places each fragment into the cell containing its baseline
// start point. Fragments landing in the same cell concatenate with a space.
func assignCells(grid gridLayout, frags []Fragment) (cells [][]string, occupancy float64) {
	numRows := len(grid.rowBounds) - 1
	numCols := len(grid.colBounds) - 1
	cells = make([][]string, numRows)
	for i := range cells {
		cells[i] = make([]string, numCols)
	}

	ordered := make([]Fragment, len(frags))
	copy(ordered, frags)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Y != ordered[j].Y {
			return ordered[i].Y > ordered[j].Y
		}
		return ordered[i].X < ordered[j].X
	})

	occupied := 0
	for _, f := range ordered {
		row, col := -1, -1
		for i := 0; i < numRows; i++ {
			if f.Y <= grid.rowBounds[i] && f.Y >= grid.rowBounds[i+1] {
				row = i
				break
			}
		}
		x := f.X + 0.1
		for j := 0; j < numCols; j++ {
			if x >= grid.colBounds[j] && x < grid.colBounds[j+1] {
				col = j
				break
			}
		}
		if row < 0 || col < 0 {
			continue
		}
		if cells[row][col] == "" {
			occupied++
			cells[row][col] = f.Text
		} else {
			cells[row][col] += " " + f.Text
		}
	}

	total := numRows * numCols
	if total > 0 {
		occupancy = float64(occupied) / float64(total)
	}
	return cells, occupancy
}

// scoreGrid combines row fill (rows with at least two occupied cells),
// overall cell occupancy, and row spacing regularity into a 0..1 score.
func scoreGrid(cells [][]string, occupancy float64, rows []float64) float64 {
	if len(cells) == 0 {
		return 0
	}

	filledRows := 0
	for _, row := range cells {
		n := 0
		for _, cell := range row {
			if cell != "" {
				n++
			}
		}
		if n >= 2 {
			filledRows++
		}
	}
	rowFill := float64(filledRows) / float64(len(cells))

	regularity := 1.0
	if len(rows) > 2 {
		gaps := make([]float64, len(rows)-1)
		for i := 0; i+1 < len(rows); i++ {
			gaps[i] = rows[i] - rows[i+1]
		}
		m := mean(gaps)
		if m > 0 {
			cv := math.Sqrt(variance(gaps)) / m
			regularity = math.Max(0, 1-cv)
		}
	}

	return rowFill*0.5 + occupancy*0.3 + regularity*0.2
}

func fragmentExtent(frags []Fragment) (x0, y0, x1, y1 float64) {
	x0, y0 = math.Inf(1), math.Inf(1)
	x1, y1 = math.Inf(-1), math.Inf(-1)
	for _, f := range frags {
		x0 = math.Min(x0, f.X)
		y0 = math.Min(y0, f.Y-f.Height*0.25)
		x1 = math.Max(x1, f.X+f.Width)
		y1 = math.Max(y1, f.Y+f.Height*0.75)
	}
	return x0, y0, x1, y1
}

// renderTableMarkdown renders the cell grid as a markdown pipe table with
// the first row as header.
func renderTableMarkdown(t Table) string {
	if len(t.Cells) == 0 {
		return ""
	}

	var sb strings.Builder
	for rowIdx, row := range t.Cells {
		sb.WriteByte('|')
		for _, cell := range row {
			sb.WriteByte(' ')
			sb.WriteString(strings.ReplaceAll(cell, "|", "\\|"))
			sb.WriteString(" |")
		}
		sb.WriteByte('\n')

		if rowIdx == 0 {
			sb.WriteByte('|')
			for range row {
				sb.WriteString(" --- |")
			}
			sb.WriteByte('\n')
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// mean computes the arithmetic mean of a slice of float64 values.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// variance computes the population variance of a slice of float64 values.
func variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		diff := v - m
		sum += diff * diff
	}
	return sum / float64(len(values))
}
