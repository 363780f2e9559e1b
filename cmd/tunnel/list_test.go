package tunnel

import (
	"testing"

	"frp-manager/internal/models"
)

func TestFilterRecords(t *testing.T) {
	records := []models.ConfigRecord{
		{ID: "1", OwnerName: "alice", NodeID: 1},
		{ID: "2", OwnerName: "bob", NodeID: 1},
		{ID: "3", OwnerName: "alice", NodeID: 2},
	}
	cases := []struct {
		owner string
		node  int
		want  []string
	}{
		{"", 0, []string{"1", "2", "3"}},
		{"alice", 0, []string{"1", "3"}},
		{"", 1, []string{"1", "2"}},
		{"alice", 2, []string{"3"}},
		{"carol", 0, nil},
	}
	for _, c := range cases {
		got := filterRecords(records, c.owner, c.node)
		if len(got) != len(c.want) {
			t.Errorf("filter(%q,%d) = %d records, want %d", c.owner, c.node, len(got), len(c.want))
			continue
		}
		for i := range got {
			if got[i].ID != c.want[i] {
				t.Errorf("filter(%q,%d)[%d] = %s, want %s", c.owner, c.node, i, got[i].ID, c.want[i])
			}
		}
	}
}
