package render

import (
	"fmt"
	"strconv"

	"biathlonstats/internal/discipline"
	"biathlonstats/internal/pipeline"
	"biathlonstats/internal/scope"
)

var cupColumns = map[discipline.Code]string{
	discipline.Sprint:     "Sprint",
	discipline.Pursuit:    "Pursuit",
	discipline.Individual: "Individual",
	discipline.MassStart:  "MassStart",
}

func score(n int) string {
	if n == 0 {
		return "-"
	}
	return strconv.Itoa(n)
}

// Standings lays out a cup table: overall position and score, then one
// column per discipline cup.
func Standings(rep pipeline.StandingsReport) Table {
	cup := rep.Cup
	gender := "women"
	if cup.Category == discipline.Men {
		gender = "men"
	}
	t := Table{
		Title:      fmt.Sprintf("%s standings, %s, season %s", scope.LevelName(cup.Level), gender, cup.Season),
		ValueLabel: "points",
	}
	t.col("#", true)
	if cup.SortedBy != "" {
		t.col(cupColumns[cup.SortedBy]+"#", true)
	}
	t.col("Name", false)
	t.col("Nation", false)
	t.col("Total", true)
	for _, code := range scope.CupDisciplines {
		t.col(cupColumns[code], true)
	}

	for _, r := range cup.Rows {
		row := Row{Rank: r.Position}
		row.Cells = text(strconv.Itoa(r.Position))
		row.Value, row.HasValue = float64(r.Total), true
		if cup.SortedBy != "" {
			row.Rank = r.SortPosition
			row.Cells = append(row.Cells, Cell{Text: strconv.Itoa(r.SortPosition)})
			row.Value = float64(r.Scores[cup.SortedBy])
		}
		row.Cells = append(row.Cells, text(r.Name, r.Nation, strconv.Itoa(r.Total))...)
		for _, code := range scope.CupDisciplines {
			row.Cells = append(row.Cells, Cell{Text: score(r.Scores[code])})
		}
		t.Rows = append(t.Rows, row)
	}
	if cup.SortedBy != "" {
		t.ValueLabel = cupColumns[cup.SortedBy] + " points"
	}
	return t
}

func day(ev scope.EventInfo, end bool) string {
	d := ev.Start
	if end {
		d = ev.End
	}
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

// Events lays out an event listing.
func Events(rep pipeline.EventsReport) Table {
	t := Table{Title: fmt.Sprintf("Events, %s, season %s", scope.LevelName(rep.Level), rep.Season)}
	t.Columns = []Column{
		{"Season", false}, {"Level", false}, {"Event", false}, {"Location", false},
		{"Country", false}, {"Start", false}, {"End", false}, {"Races", true}, {"EventId", false},
	}
	for _, ev := range rep.Events {
		races := "?"
		if ev.Races >= 0 {
			races = strconv.Itoa(ev.Races)
		}
		t.Rows = append(t.Rows, Row{Cells: text(
			ev.Season, scope.LevelName(ev.Level), ev.Description, ev.Location,
			ev.Nation, day(ev, false), day(ev, true), races, ev.ID,
		)})
	}
	return t
}

// Seasons lays out the season listing; the current season is starred.
func Seasons(seasons []scope.SeasonInfo) Table {
	t := Table{Title: "Seasons"}
	t.col("Season", false)
	t.col("Description", false)
	for _, s := range seasons {
		desc := s.Description
		if s.Current {
			desc += " *"
		}
		t.Rows = append(t.Rows, Row{Cells: text(s.ID, desc)})
	}
	return t
}
