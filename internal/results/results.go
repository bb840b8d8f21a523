package results

import (
	"sort"
	"strings"

	"biathlonstats/internal/payload"
	"biathlonstats/internal/racetime"
)

// DidNotFinishRank is the largest real rank; anything above it is a
// placeholder for athletes without a finish position.
const DidNotFinishRank = 500

const unranked = 1_000_000_000

// Row is one competitor line of a race result.
type Row struct {
	ID            string
	Bib           string
	Name          string
	Nation        string
	Rank          int
	Ranked        bool
	Order         int
	Result        string
	Shootings     string
	ShootingTotal string
	StartOrder    int
	HasStartOrder bool
	StartDelay    string
	IRM           string
	Team          bool
	Leg           int

	Record payload.Record
}

// FromRecord reads a Row out of a result-list entry.
func FromRecord(rec payload.Record) Row {
	row := Row{
		ID:            rec.String("IBUId"),
		Bib:           rec.String("Bib"),
		Name:          rec.String("Name", "ShortName"),
		Nation:        rec.String("Nat", "Nation"),
		Result:        rec.String("Result", "TotalTime"),
		Shootings:     rec.String("Shootings"),
		ShootingTotal: rec.String("ShootingTotal"),
		StartDelay:    rec.String("StartInfo"),
		IRM:           strings.ToUpper(rec.String("IRM")),
		Team:          rec.Bool("IsTeam"),
		Record:        rec,
	}
	row.Rank, row.Ranked = rec.Int("Rank")
	row.Order, _ = rec.Int("ResultOrder")
	row.StartOrder, row.HasStartOrder = rec.Int("StartOrder", "StartPosition", "StartRow")
	row.Leg, _ = rec.Int("Leg")
	return row
}

// Finished reports whether the row carries a real finishing position.
func (r Row) Finished() bool {
	return r.Ranked && r.Rank > 0 && r.Rank <= DidNotFinishRank && r.Status() == ""
}

// FinishRank is the rank used for position comparisons: the numeric rank,
// else the result order.
func (r Row) FinishRank() (int, bool) {
	if r.Ranked && r.Rank > 0 {
		return r.Rank, true
	}
	if r.Order > 0 {
		return r.Order, true
	}
	return 0, false
}

// Status returns the non-finish marker of the row (DNS, DNF, LAP, ...) or ""
// for a normal result.
func (r Row) Status() string {
	if r.IRM != "" && r.IRM != "OK" {
		return r.IRM
	}
	switch s := strings.ToUpper(r.Result); s {
	case "DNS", "DNF", "DSQ", "LAP", "LPD", "OTL", "DNQ":
		return s
	}
	return ""
}

// Options controls Extract.
type Options struct {
	IncludeTeams bool
}

var listKeys = []string{"Results", "ResultList", "Competitors", "Data"}

// Extract returns the competitor rows of a race payload sorted by rank.
// Rows without a numeric rank go last in result order.
func Extract(rec payload.Record, opts Options) []Row {
	list, ok := rec.List(listKeys...)
	if !ok {
		return nil
	}
	rows := make([]Row, 0, len(list))
	for _, item := range list {
		row := FromRecord(item)
		if row.Team && !opts.IncludeTeams {
			continue
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		ri, rj := sortRank(rows[i]), sortRank(rows[j])
		if ri != rj {
			return ri < rj
		}
		return rows[i].Order < rows[j].Order
	})
	return rows
}

func sortRank(r Row) int {
	if r.Ranked {
		return r.Rank
	}
	return unranked
}

// LeaderTime returns the first absolute, measurable finish time in rows.
func LeaderTime(rows []Row) racetime.Duration {
	for _, r := range rows {
		text := r.Record.String("TotalTime", "Result")
		if text == "" {
			text = r.Result
		}
		c := racetime.Parse(text)
		if !c.Relative && c.Value.Measurable() {
			return c.Value
		}
	}
	return racetime.Unmeasurable
}

// HasCompletedResults reports whether at least one row has a real finish.
func HasCompletedResults(rows []Row) bool {
	for _, r := range rows {
		if r.Finished() {
			return true
		}
	}
	return false
}
