package pdfdoc

import (
	"testing"
)

// gridFrags builds fragments laid out as a 2x3 table with a shared-cell
// header in the last column.
func gridFrags() []Fragment {
	return []Fragment{
		{Text: "Name", X: 72, Y: 700, Width: 25, Height: 10, FontSize: 10},
		{Text: "Qty", X: 200, Y: 700, Width: 18, Height: 10, FontSize: 10},
		{Text: "Unit", X: 330, Y: 700, Width: 22, Height: 10, FontSize: 10},
		{Text: "Price", X: 356, Y: 700, Width: 30, Height: 10, FontSize: 10},
		{Text: "Widget", X: 72, Y: 680, Width: 36, Height: 10, FontSize: 10},
		{Text: "2", X: 200, Y: 680, Width: 6, Height: 10, FontSize: 10},
		{Text: "9.99", X: 330, Y: 680, Width: 24, Height: 10, FontSize: 10},
	}
}

func TestDetectTablesGrid(t *testing.T) {
	tables := detectTables(gridFrags(), defaultTableConfig())
	if len(tables) != 1 {
		t.Fatalf("tables = %d, want 1", len(tables))
	}

	got := tables[0]
	want := [][]string{
		{"Name", "Qty", "Unit Price"},
		{"Widget", "2", "9.99"},
	}
	if len(got.Cells) != len(want) {
		t.Fatalf("rows = %d, want %d", len(got.Cells), len(want))
	}
	for r := range want {
		if len(got.Cells[r]) != len(want[r]) {
			t.Fatalf("row %d cols = %d, want %d", r, len(got.Cells[r]), len(want[r]))
		}
		for c := range want[r] {
			if got.Cells[r][c] != want[r][c] {
				t.Errorf("cell [%d][%d] = %q, want %q", r, c, got.Cells[r][c], want[r][c])
			}
		}
	}

	if got.Confidence < defaultTableConfig().minConfidence {
		t.Errorf("Confidence = %v, want >= %v", got.Confidence, defaultTableConfig().minConfidence)
	}
	if !near(got.X0, 72) || !near(got.Y0, 677.5) || !near(got.X1, 386) || !near(got.Y1, 707.5) {
		t.Errorf("extent = (%v,%v)-(%v,%v), want (72,677.5)-(386,707.5)", got.X0, got.Y0, got.X1, got.Y1)
	}
}

func TestDetectTablesRejectsProse(t *testing.T) {
	// Staggered left edges: no column is shared by two fragments.
	frags := []Fragment{
		{Text: "The", X: 72, Y: 700, Width: 20, Height: 10, FontSize: 10},
		{Text: "quick", X: 150, Y: 700, Width: 30, Height: 10, FontSize: 10},
		{Text: "brown", X: 90, Y: 685, Width: 32, Height: 10, FontSize: 10},
		{Text: "fox", X: 160, Y: 685, Width: 18, Height: 10, FontSize: 10},
		{Text: "jumps", X: 115, Y: 670, Width: 33, Height: 10, FontSize: 10},
		{Text: "over", X: 185, Y: 670, Width: 24, Height: 10, FontSize: 10},
	}
	if tables := detectTables(frags, defaultTableConfig()); len(tables) != 0 {
		t.Errorf("tables = %v, want none for prose", tables)
	}
}

func TestDetectTablesTooFewFragments(t *testing.T) {
	frags := []Fragment{
		{Text: "A", X: 72, Y: 700, Width: 6, Height: 10, FontSize: 10},
		{Text: "B", X: 200, Y: 700, Width: 6, Height: 10, FontSize: 10},
	}
	if tables := detectTables(frags, defaultTableConfig()); len(tables) != 0 {
		t.Errorf("tables = %v, want none below the minimum grid", tables)
	}
}

func TestDetectTablesSplitsDistantClusters(t *testing.T) {
	frags := []Fragment{
		{Text: "A heading far above the table", X: 72, Y: 770, Width: 150, Height: 12, FontSize: 12},
	}
	frags = append(frags, gridFrags()...)

	tables := detectTables(frags, defaultTableConfig())
	if len(tables) != 1 {
		t.Fatalf("tables = %d, want 1", len(tables))
	}
	// The heading sits in its own vertical cluster and stays out of the
	// grid.
	if tables[0].Cells[0][0] != "Name" {
		t.Errorf("first cell = %q, want Name", tables[0].Cells[0][0])
	}
}

func TestClusterValues(t *testing.T) {
	got := clusterValues([]float64{700, 700, 699.5, 680, 680}, 2.0)
	if len(got) != 2 {
		t.Fatalf("clusters = %v, want 2", got)
	}
	if !near(got[0], (700+700+699.5)/3) {
		t.Errorf("clusters[0] = %v, want averaged center", got[0])
	}
	if !near(got[1], 680) {
		t.Errorf("clusters[1] = %v, want 680", got[1])
	}

	if got := clusterValues(nil, 2.0); got != nil {
		t.Errorf("clusterValues(nil) = %v, want nil", got)
	}
}

func TestColumnEdgesRequireTwoMembers(t *testing.T) {
	frags := []Fragment{
		{X: 72}, {X: 72.5}, {X: 200}, {X: 200}, {X: 450},
	}
	got := columnEdges(frags, 5)
	if len(got) != 2 {
		t.Fatalf("edges = %v, want 2 (singleton at 450 dropped)", got)
	}
	if !near(got[0], 72.25) || !near(got[1], 200) {
		t.Errorf("edges = %v, want [72.25 200]", got)
	}
}
