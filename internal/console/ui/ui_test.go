package ui

import (
	"strings"
	"testing"

	"sitedesk.org/internal/registry"
)

func TestTableRendersRows(t *testing.T) {
	records := []struct{ ID, Status string }{
		{"rev-1", "Pending Review"},
		{"rev-2", "Under Review"},
	}
	table := Table{
		Columns: []Column{
			{Header: "ID", Cell: func(i int) string { return records[i].ID }},
			{Header: "STATUS", Cell: func(i int) string { return records[i].Status }},
		},
		Empty: "No pending reviews.",
	}

	var buf strings.Builder
	if err := table.Render(&buf, len(records)); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"ID", "STATUS", "rev-1", "rev-2", "Under Review"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTableEmptyState(t *testing.T) {
	table := Table{Empty: "No pending reviews."}
	var buf strings.Builder
	if err := table.Render(&buf, 0); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "No pending reviews." {
		t.Fatalf("unexpected empty state: %q", buf.String())
	}
}

func TestFilterOptions(t *testing.T) {
	options := []Option{
		{ID: 1, Name: "Gulshan East"},
		{ID: 2, Name: "Model Town"},
		{ID: 3, Name: "Canal View"},
	}
	tests := []struct {
		name  string
		query string
		want  []int
	}{
		{name: "empty query returns all", query: "", want: []int{1, 2, 3}},
		{name: "case-insensitive substring", query: "gULsh", want: []int{1}},
		{name: "mid-word match", query: "own", want: []int{2}},
		{name: "no match", query: "zanzibar", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterOptions(options, tt.query)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d options, want %d", len(got), len(tt.want))
			}
			for i, o := range got {
				if o.ID != tt.want[i] {
					t.Fatalf("option %d = %d, want %d", i, o.ID, tt.want[i])
				}
			}
		})
	}
}

func TestSelectLifecycle(t *testing.T) {
	s := NewSelect([]Option{{ID: 1, Name: "Block A"}, {ID: 2, Name: "Block B"}})
	s.Open()
	s.Search("b")
	if got := len(s.Visible()); got != 2 {
		t.Fatalf("visible = %d, want 2", got)
	}
	s.Search("Block A")
	if got := len(s.Visible()); got != 1 {
		t.Fatalf("visible = %d, want 1", got)
	}

	if !s.Choose(1) {
		t.Fatal("Choose failed for existing option")
	}
	if s.IsOpen() {
		t.Fatal("dropdown still open after selection")
	}
	if len(s.Visible()) != 2 {
		t.Fatal("search not cleared after selection")
	}
	if s.Chosen() == nil || s.Chosen().ID != 1 {
		t.Fatalf("chosen = %+v", s.Chosen())
	}

	// Replacing options drops a selection that no longer exists.
	s.SetOptions([]Option{{ID: 7, Name: "Phase 1"}})
	if s.Chosen() != nil {
		t.Fatal("stale selection kept after options change")
	}
}

func TestBadges(t *testing.T) {
	if got := StatusBadge(registry.StatusPendingReview); got != "Pending Review" {
		t.Fatalf("StatusBadge = %q", got)
	}
	if got := StatusBadge("SOMETHING_ELSE"); got != "Something Else" {
		t.Fatalf("fallback badge = %q", got)
	}
	if got := PriorityBadge(registry.PriorityUrgent); got != "Urgent" {
		t.Fatalf("PriorityBadge = %q", got)
	}
}
