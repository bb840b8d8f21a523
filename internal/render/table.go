// Package render turns run reports into display tables and writes them as
// aligned text, TSV, Markdown, XLSX or a PNG bar chart.
package render

import (
	"fmt"
	"strconv"

	"biathlonstats/internal/cumulate"
	"biathlonstats/internal/derive"
	"biathlonstats/internal/discipline"
	"biathlonstats/internal/pipeline"
	"biathlonstats/internal/racetime"
	"biathlonstats/internal/relay"
)

type Column struct {
	Name  string `json:"name"`
	Right bool   `json:"right,omitempty"`
}

// Cell is one table value. Delta, when set, colours the cell green or red by
// its sign and size.
type Cell struct {
	Text     string `json:"text"`
	Delta    int    `json:"delta,omitempty"`
	HasDelta bool   `json:"has_delta,omitempty"`
}

type Row struct {
	// Rank drives the row colour; 0 leaves the row uncoloured.
	Rank  int    `json:"rank,omitempty"`
	Cells []Cell `json:"cells"`
	// Value is the row's primary number, plotted by Chart.
	Value    float64 `json:"value,omitempty"`
	HasValue bool    `json:"has_value,omitempty"`
}

// Table is a rendered report, independent of the output format.
type Table struct {
	Title   string   `json:"title"`
	Columns []Column `json:"columns"`
	Rows    []Row    `json:"rows"`
	Notes   []string `json:"notes,omitempty"`
	// ValueLabel names the plotted value.
	ValueLabel string `json:"value_label,omitempty"`
}

func (t *Table) col(name string, right bool) {
	t.Columns = append(t.Columns, Column{Name: name, Right: right})
}

func text(cells ...string) []Cell {
	out := make([]Cell, len(cells))
	for i, c := range cells {
		out[i] = Cell{Text: c}
	}
	return out
}

func pct(misses, shots int) string {
	acc, ok := derive.Accuracy(misses, shots)
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", acc)
}

func gainCell(g int) Cell {
	s := strconv.Itoa(g)
	if g > 0 {
		s = "+" + s
	}
	return Cell{Text: s, Delta: g, HasDelta: true}
}

// detailCell colours a per-race gain value such as "+3", "-2" or "DNF".
func detailCell(s string) Cell {
	if s == "" {
		return Cell{Text: "-"}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return Cell{Text: s}
	}
	return Cell{Text: s, Delta: n, HasDelta: true}
}

// Cumulate lays out a cumulation report. Columns depend on the run mode: the
// summed time or the average position, shooting columns when the metric
// carries them, the standings rank when standings were fetched, and one gain
// column per pursuit in remontada mode.
func Cumulate(rep pipeline.Report) Table {
	plan := rep.Plan
	mode := rep.Table.Mode
	t := Table{Title: rep.Title}

	t.col("#", true)
	t.col("Name", false)
	t.col("Nation", false)
	if rep.Standings {
		t.col("WCRank", true)
	}
	t.col("Races", true)
	shooting := false
	switch mode {
	case cumulate.TimeSum:
		t.col(plan.Column, true)
		shooting = plan.WithShooting()
		t.ValueLabel = plan.Column + " (s)"
	case cumulate.PositionAvg:
		t.col("AvgPos", true)
		shooting = plan.WithShooting()
		t.ValueLabel = "average position"
	case cumulate.MissSum:
		t.col("Misses", true)
		t.col("Shots", true)
		t.ValueLabel = "misses"
	case cumulate.PursuitGain:
		t.col("Gain", true)
		t.ValueLabel = "places gained"
	}
	if shooting {
		t.col("Misses", true)
	}
	if shooting || mode == cumulate.MissSum {
		t.col("Acc", true)
		t.col("Prone", true)
		t.col("Standing", true)
	}
	if mode == cumulate.PursuitGain {
		for _, race := range rep.Table.Races {
			t.col(race.Label, true)
		}
	}

	lowConfidence := false
	for _, r := range rep.Table.Rows {
		row := Row{Rank: r.Rank}
		row.Cells = text(strconv.Itoa(r.Rank), r.Name, r.Nation)
		if rep.Standings {
			row.Cells = append(row.Cells, Cell{Text: r.StandingsRank})
		}
		row.Cells = append(row.Cells, Cell{Text: strconv.Itoa(r.Races)})

		misses := strconv.Itoa(r.Misses)
		if r.LowConfidence {
			misses += "*"
			lowConfidence = true
		}
		switch mode {
		case cumulate.TimeSum:
			row.Cells = append(row.Cells, Cell{Text: r.Time.String()})
			row.Value, row.HasValue = r.Time.Seconds()
		case cumulate.PositionAvg:
			row.Cells = append(row.Cells, Cell{Text: fmt.Sprintf("%.2f", r.AvgPosition)})
			row.Value, row.HasValue = r.AvgPosition, true
		case cumulate.MissSum:
			row.Cells = append(row.Cells, text(misses, strconv.Itoa(r.Shots))...)
			row.Value, row.HasValue = float64(r.Misses), true
		case cumulate.PursuitGain:
			row.Cells = append(row.Cells, gainCell(r.Gain))
			row.Value, row.HasValue = float64(r.Gain), true
		}
		if shooting {
			row.Cells = append(row.Cells, Cell{Text: misses})
		}
		if shooting || mode == cumulate.MissSum {
			row.Cells = append(row.Cells, text(
				pct(r.Misses, r.Shots),
				pct(r.Prone, r.ShotsProne),
				pct(r.Standing, r.ShotsStanding),
			)...)
		}
		if mode == cumulate.PursuitGain {
			for _, race := range rep.Table.Races {
				row.Cells = append(row.Cells, detailCell(r.Detail[race.ID]))
			}
		}
		t.Rows = append(t.Rows, row)
	}

	t.Notes = append(t.Notes, fmt.Sprintf("%d of %d races used", rep.Table.RacesUsed, rep.Table.RacesFound))
	if lowConfidence {
		t.Notes = append(t.Notes, "* shooting split inferred from incomplete stage data")
	}
	return t
}

// Race lays out the single-race table.
func Race(rep pipeline.RaceReport) Table {
	t := Table{
		Title:      rep.Race.Title(),
		ValueLabel: "result (s)",
	}
	standings := len(rep.Lines) > 0 && rep.Lines[0].StandingsRank != ""
	pursuit := rep.Race.Discipline == discipline.Pursuit

	t.col("#", true)
	t.col("Name", false)
	t.col("Nation", false)
	if standings {
		t.col("WCRank", true)
	}
	for _, name := range []string{"Result", "Course", "Ski", "Range", "Shooting", "Penalty", "Misses"} {
		t.col(name, true)
	}
	if pursuit {
		t.col("Gain", true)
	}

	for _, l := range rep.Lines {
		m := l.Metrics
		rank := l.Row.Status()
		row := Row{}
		if rank == "" {
			if n, ok := l.Row.FinishRank(); ok {
				rank = strconv.Itoa(n)
				row.Rank = n
			}
		}
		row.Cells = text(rank, l.Row.Name, l.Row.Nation)
		if standings {
			row.Cells = append(row.Cells, Cell{Text: l.StandingsRank})
		}
		misses := "-"
		if m.Misses.Known {
			misses = strconv.Itoa(m.Misses.Total)
			if m.Misses.LowConfidence {
				misses += "*"
			}
		}
		row.Cells = append(row.Cells, text(
			m.Result.String(), m.Course.String(), m.Ski.String(),
			m.Range.String(), m.ShootingTime.String(), m.Penalty.String(), misses,
		)...)
		if pursuit {
			if m.Gain.Known {
				row.Cells = append(row.Cells, gainCell(m.Gain.Value))
			} else {
				row.Cells = append(row.Cells, Cell{Text: m.Gain.String()})
			}
		}
		row.Value, row.HasValue = m.Result.Seconds()
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Relay lays out one relay race: a line per team followed by its legs.
func Relay(rep pipeline.RelayReport) Table {
	t := Table{
		Title:      rep.Race.Title(),
		ValueLabel: "result (s)",
	}
	t.Columns = []Column{
		{"#", true}, {"Team", false}, {"Nation", false}, {"Time", true},
		{"Course", true}, {"Range", true}, {"Shooting", true}, {"Penalty", true},
		{"Prone", true}, {"Standing", true},
	}

	for _, team := range rep.Teams {
		rank := team.Status
		row := Row{}
		if rank == "" && team.Ranked {
			rank = strconv.Itoa(team.Rank)
			row.Rank = team.Rank
		}
		row.Cells = text(rank, team.Name, team.Nation, timeOr(team.Result, team.ResultText),
			team.Course.String(), team.Range.String(), team.ShootingTime.String(), team.Penalty.String(),
			team.Prone.String(), team.Standing.String())
		row.Value, row.HasValue = team.Result.Seconds()
		t.Rows = append(t.Rows, row)

		for _, leg := range team.Legs {
			prone, standing := "-", "-"
			if leg.HasShooting {
				prone, standing = leg.Prone.String(), leg.Standing.String()
			}
			t.Rows = append(t.Rows, Row{Cells: text(
				"", fmt.Sprintf("  %d. %s", leg.Number, legName(leg)), "", leg.Split.String(),
				leg.Course.String(), leg.Range.String(), leg.ShootingTime.String(), "",
				prone, standing,
			)})
		}
	}
	t.Notes = append(t.Notes, "shooting columns are penalty loops + spare rounds")
	return t
}

func timeOr(d racetime.Duration, fallback string) string {
	if d.Measurable() || fallback == "" {
		return d.String()
	}
	return fallback
}

func legName(l relay.Leg) string {
	if l.Name == "" {
		return "?"
	}
	return l.Name
}
