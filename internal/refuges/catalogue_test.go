package refuges

import (
	"errors"
	"testing"
)

func testCatalogue() *Catalogue {
	return NewCatalogue([]Refuge{
		{ID: 32378, Name: "Auberge la Boerne"},
		{ID: 32367, Name: "Auberge-Refuge de la Nova"},
		{ID: 32380, Name: "Refuge Bonatti"},
		{ID: LacBlancID, Name: "Refuge du Lac Blanc", Special: true},
	})
}

func TestCatalogue_ByName(t *testing.T) {
	c := testCatalogue()

	tests := []struct {
		query  string
		wantID int
	}{
		{"Refuge Bonatti", 32380},
		{"de la Nova", 32367},
		{"BONATTI", 32380},
		{"lac blanc", LacBlancID},
	}
	for _, tt := range tests {
		r, err := c.ByName(tt.query)
		if err != nil {
			t.Errorf("ByName(%q) error: %v", tt.query, err)
			continue
		}
		if r.ID != tt.wantID {
			t.Errorf("ByName(%q) = %d, want %d", tt.query, r.ID, tt.wantID)
		}
	}

	if _, err := c.ByName("Elisabetta"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCatalogue_ExactMatchBeatsSubstring(t *testing.T) {
	c := NewCatalogue([]Refuge{
		{ID: 1, Name: "Refuge de la Balme Haute"},
		{ID: 2, Name: "Balme"},
	})
	r, err := c.ByName("Balme")
	if err != nil {
		t.Fatal(err)
	}
	if r.ID != 2 {
		t.Errorf("exact match should win, got %d", r.ID)
	}
}

func TestCatalogue_ByIDUnknown(t *testing.T) {
	r := testCatalogue().ByID(99)
	if r.Name != "Unknown Refuge (99)" || r.ID != 99 {
		t.Errorf("ByID(99) = %+v", r)
	}
}

func TestCatalogue_Resolve(t *testing.T) {
	c := testCatalogue()

	r, err := c.Resolve("32367")
	if err != nil || r.Name != "Auberge-Refuge de la Nova" {
		t.Errorf("Resolve id = %+v, %v", r, err)
	}
	r, err = c.Resolve("Boerne")
	if err != nil || r.ID != 32378 {
		t.Errorf("Resolve name = %+v, %v", r, err)
	}

	list, err := c.ResolveAll([]string{"32367", "Bonatti"})
	if err != nil || len(list) != 2 {
		t.Errorf("ResolveAll = %v, %v", list, err)
	}
	if _, err := c.ResolveAll([]string{"32367", "nowhere"}); err == nil {
		t.Error("ResolveAll should fail on unknown name")
	}
}

func TestCatalogue_Match(t *testing.T) {
	c := testCatalogue()

	renamed := c.Match(Refuge{ID: 32380, Name: "Old Bonatti name"})
	if renamed.Name != "Refuge Bonatti" {
		t.Errorf("match by id should refresh name, got %q", renamed.Name)
	}
	moved := c.Match(Refuge{ID: 1, Name: "Refuge Bonatti"})
	if moved.ID != 32380 {
		t.Errorf("match by name should refresh id, got %d", moved.ID)
	}
	gone := Refuge{ID: 5, Name: "Gone"}
	if c.Match(gone) != gone {
		t.Error("unmatched refuge should be returned unchanged")
	}
}

func TestCatalogue_InRegions(t *testing.T) {
	c := testCatalogue()
	regions := []Region{
		{Name: "Val Ferret", RefugeIDs: []int{32380}},
		{Name: "Les Contamines", RefugeIDs: []int{32367, 32378}},
	}
	got := c.InRegions(regions, "Contamines")
	if len(got) != 2 || got[0].ID != 32367 {
		t.Errorf("InRegions = %+v", got)
	}
	if len(c.InRegions(regions, "Zermatt")) != 0 {
		t.Error("no region should match")
	}
}

func TestCatalogue_LongestName(t *testing.T) {
	if n := testCatalogue().LongestName(); n != len("Auberge-Refuge de la Nova") {
		t.Errorf("LongestName = %d", n)
	}
}
