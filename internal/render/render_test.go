package render

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"biathlonstats/internal/cumulate"
	"biathlonstats/internal/pipeline"
	"biathlonstats/internal/racetime"
	"biathlonstats/internal/ranking"
	"biathlonstats/internal/scope"
)

var now = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

func rangeReport() pipeline.Report {
	plan, _ := pipeline.Request{Metric: pipeline.MetricRange}.Validate(now)
	return pipeline.Report{
		Plan:  plan,
		Title: "Cumulative range time",
		Table: ranking.Table{
			Mode:       cumulate.TimeSum,
			RacesUsed:  2,
			RacesFound: 3,
			Rows: []ranking.Row{
				{Rank: 1, Name: "Alma", Nation: "NOR", Races: 2, Time: racetime.Of(150), Misses: 1, Prone: 1, Shots: 20, ShotsProne: 10, ShotsStanding: 10},
				{Rank: 2, Name: "Beth", Nation: "SWE", Races: 2, Time: racetime.Of(155.5), Misses: 4, Standing: 4, Shots: 20, ShotsProne: 10, ShotsStanding: 10, LowConfidence: true},
			},
		},
	}
}

func TestCumulate_TimeColumns(t *testing.T) {
	tbl := Cumulate(rangeReport())

	var names []string
	for _, c := range tbl.Columns {
		names = append(names, c.Name)
	}
	want := []string{"#", "Name", "Nation", "Races", "RangeTime", "Misses", "Acc", "Prone", "Standing"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, "2:30.0", tbl.Rows[0].Cells[4].Text)
	assert.Equal(t, "95.0%", tbl.Rows[0].Cells[6].Text)
	assert.Equal(t, "90.0%", tbl.Rows[0].Cells[7].Text)
	assert.Equal(t, "4*", tbl.Rows[1].Cells[5].Text)
	assert.Equal(t, []string{"2 of 3 races used", "* shooting split inferred from incomplete stage data"}, tbl.Notes)
	assert.InDelta(t, 155.5, tbl.Rows[1].Value, 1e-9)
}

func TestCumulate_PositionRangeShowsShooting(t *testing.T) {
	plan, err := pipeline.Request{Metric: pipeline.MetricRange, Position: true, Sort: "accuracy"}.Validate(now)
	require.NoError(t, err)
	rep := rangeReport()
	rep.Plan = plan
	rep.Table.Mode = cumulate.PositionAvg
	rep.Table.Rows[0].AvgPosition = 1.5

	tbl := Cumulate(rep)
	var names []string
	for _, c := range tbl.Columns {
		names = append(names, c.Name)
	}
	want := []string{"#", "Name", "Nation", "Races", "AvgPos", "Misses", "Acc", "Prone", "Standing"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, "1.50", tbl.Rows[0].Cells[4].Text)
	assert.Equal(t, "95.0%", tbl.Rows[0].Cells[6].Text)
}

func TestCumulate_RemontadaDetail(t *testing.T) {
	plan, err := pipeline.Request{Metric: pipeline.MetricRemontada}.Validate(now)
	require.NoError(t, err)
	rep := pipeline.Report{
		Plan:      plan,
		Standings: true,
		Table: ranking.Table{
			Mode:  cumulate.PursuitGain,
			Races: []cumulate.RaceRef{{ID: "P1", Label: "Oslo", Used: true}, {ID: "P2", Label: "Ruhpolding", Used: true}},
			Rows: []ranking.Row{
				{Rank: 1, Name: "Alma", Races: 2, Gain: 5, StandingsRank: "12", Detail: map[string]string{"P1": "+6", "P2": "-1"}},
				{Rank: 2, Name: "Beth", Races: 1, Gain: -2, StandingsRank: "-", Detail: map[string]string{"P1": "-2", "P2": "DNF"}},
			},
		},
	}
	tbl := Cumulate(rep)
	require.Len(t, tbl.Columns, 8)
	assert.Equal(t, "WCRank", tbl.Columns[3].Name)
	assert.Equal(t, "Ruhpolding", tbl.Columns[7].Name)

	alma := tbl.Rows[0].Cells
	assert.Equal(t, "+5", alma[5].Text)
	assert.True(t, alma[6].HasDelta)
	assert.Equal(t, 6, alma[6].Delta)
	beth := tbl.Rows[1].Cells
	assert.Equal(t, "DNF", beth[7].Text)
	assert.False(t, beth[7].HasDelta)
}

func TestText_Plain(t *testing.T) {
	tbl := Table{
		Title:   "Title",
		Columns: []Column{{"#", true}, {"Name", false}, {"Time", true}},
		Rows: []Row{
			{Rank: 1, Cells: text("1", "Alma", "2:30.0")},
			{Rank: 10, Cells: text("10", "Bo", "12:30.0")},
		},
		Notes: []string{"note"},
	}
	var buf bytes.Buffer
	require.NoError(t, Text(&buf, tbl, false))
	want := "Title\n\n" +
		" #  Name     Time\n" +
		" 1  Alma   2:30.0\n" +
		"10  Bo    12:30.0\n" +
		"\nnote\n"
	if got := buf.String(); got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
}

func TestText_Colors(t *testing.T) {
	tbl := Table{
		Columns: []Column{{"#", true}, {"Gain", true}},
		Rows: []Row{
			{Rank: 1, Cells: []Cell{{Text: "1"}, {Text: "+3", Delta: 3, HasDelta: true}}},
			{Rank: 5, Cells: text("5", "0")},
			{Rank: 9, Cells: []Cell{{Text: "9"}, {Text: "-2", Delta: -2, HasDelta: true}}},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, Text(&buf, tbl, true))
	out := buf.String()
	assert.Contains(t, out, "\x1b[1;38;2;255;215;0m")
	assert.Contains(t, out, "\x1b[38;2;255;182;108m")
	assert.Contains(t, out, "\x1b[2m")
	assert.Contains(t, out, "\x1b[38;2;60;152;60m  +3")
	assert.Contains(t, out, "\x1b[38;2;138;60;60m  -2")
}

func TestColorEnabled_NotATerminal(t *testing.T) {
	var buf bytes.Buffer
	assert.False(t, ColorEnabled(&buf, false))
	assert.False(t, ColorEnabled(nil, true))
}

func TestMarkdown(t *testing.T) {
	tbl := Table{
		Title:   "A|B",
		Columns: []Column{{"#", true}, {"Name", false}},
		Rows:    []Row{{Cells: text("1", "Alma")}},
	}
	var buf bytes.Buffer
	require.NoError(t, Markdown(&buf, tbl))
	want := "**A\\|B**\n\n| # | Name |\n|---:|---|\n| 1 | Alma |\n"
	assert.Equal(t, want, buf.String())
}

func TestTSV(t *testing.T) {
	tbl := Table{
		Columns: []Column{{"#", true}, {"Name", false}},
		Rows:    []Row{{Cells: text("", "  1. Alma")}},
	}
	var buf bytes.Buffer
	require.NoError(t, TSV(&buf, tbl))
	assert.Equal(t, "#\tName\n\t1. Alma\n", buf.String())
}

func TestXLSX_RoundTrip(t *testing.T) {
	tbl := Cumulate(rangeReport())
	var buf bytes.Buffer
	require.NoError(t, XLSX(&buf, tbl))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetList()[0])
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, "Cumulative range time", rows[0][0])
	assert.Equal(t, "RangeTime", rows[2][4])
	assert.Equal(t, "Beth", rows[4][1])
}

func TestChart(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Chart(&buf, Cumulate(rangeReport())))
	assert.True(t, strings.HasPrefix(buf.String(), "\x89PNG"))

	err := Chart(&buf, Table{Rows: []Row{{Cells: text("1", "x")}}})
	assert.True(t, errors.Is(err, ErrNothingToPlot))
}

func TestRace_Columns(t *testing.T) {
	rep := pipeline.RaceReport{Race: scope.RaceInfo{Label: "Sprint", EventLabel: "Oslo"}}
	tbl := Race(rep)
	assert.Equal(t, "Oslo / Sprint", tbl.Title)
	assert.Len(t, tbl.Columns, 10)
}
