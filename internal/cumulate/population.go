package cumulate

import (
	"strings"

	"biathlonstats/internal/results"
)

// Population is a fixed set of athletes, typically the top of a standings
// list, matched by federation id or by name.
type Population struct {
	ids   map[string]bool
	names map[string]bool
}

func NewPopulation() *Population {
	return &Population{ids: make(map[string]bool), names: make(map[string]bool)}
}

// Add registers a member. Either field may be empty.
func (p *Population) Add(id, name string) {
	if id != "" {
		p.ids[id] = true
	}
	if name = foldName(name); name != "" {
		p.names[name] = true
	}
}

func (p *Population) Len() int {
	if p == nil {
		return 0
	}
	return max(len(p.ids), len(p.names))
}

// Contains reports whether row belongs to the population. A nil population
// contains everyone.
func (p *Population) Contains(row results.Row) bool {
	if p == nil {
		return true
	}
	if row.ID != "" && p.ids[row.ID] {
		return true
	}
	return p.names[foldName(row.Name)]
}

// Filter returns the rows that belong to the population.
func (p *Population) Filter(rows []results.Row) []results.Row {
	if p == nil {
		return rows
	}
	out := make([]results.Row, 0, len(rows))
	for _, r := range rows {
		if p.Contains(r) {
			out = append(out, r)
		}
	}
	return out
}

func foldName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
