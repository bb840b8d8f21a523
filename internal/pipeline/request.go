// Package pipeline turns a validated cumulation request into a ranked table:
// scope enumeration, per-race loading, accumulation and ranking.
package pipeline

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"biathlonstats/internal/cumulate"
	"biathlonstats/internal/derive"
	"biathlonstats/internal/discipline"
	"biathlonstats/internal/ranking"
	"biathlonstats/internal/scope"
)

// ErrInvalidArgument is returned for requests rejected before any fetching.
var ErrInvalidArgument = errors.New("invalid argument")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// Metric names a cumulation table.
type Metric string

const (
	MetricCourse    Metric = "course"
	MetricSki       Metric = "ski"
	MetricRange     Metric = "range"
	MetricShooting  Metric = "shooting"
	MetricPenalty   Metric = "penalty"
	MetricMiss      Metric = "miss"
	MetricRemontada Metric = "remontada"
)

type metricSpec struct {
	label        string
	column       string
	kind         derive.TimeKind
	segments     []derive.Segment
	withShooting bool
}

var metricSpecs = map[Metric]metricSpec{
	MetricCourse:    {label: "course time", column: "TotalTime", kind: derive.TimeResult},
	MetricSki:       {label: "ski time", column: "SkiTime", kind: derive.TimeSki, segments: []derive.Segment{derive.Ski, derive.Course}},
	MetricRange:     {label: "range time", column: "RangeTime", kind: derive.TimeRange, segments: []derive.Segment{derive.Range}, withShooting: true},
	MetricShooting:  {label: "shooting time", column: "ShootingTime", kind: derive.TimeShooting, segments: []derive.Segment{derive.Shooting}, withShooting: true},
	MetricPenalty:   {label: "penalty time", column: "PenaltyTime", kind: derive.TimePenalty, segments: []derive.Segment{derive.Ski, derive.Range, derive.Course}},
	MetricMiss:      {label: "missed targets", column: "Misses"},
	MetricRemontada: {label: "remontada", column: "Gain"},
}

// Metrics lists the known cumulation tables in display order.
func Metrics() []Metric {
	return []Metric{MetricCourse, MetricSki, MetricRange, MetricShooting, MetricPenalty, MetricMiss, MetricRemontada}
}

// Request is a user's cumulation query as given on the command line or in a
// POST /runs body.
type Request struct {
	Metric       Metric `json:"metric"`
	Men          bool   `json:"men,omitempty"`
	Discipline   string `json:"discipline,omitempty"`
	Season       string `json:"season,omitempty"`
	Event        string `json:"event,omitempty"`
	Position     bool   `json:"position,omitempty"`
	NoStartDelay bool   `json:"no_start_delay,omitempty"`
	MinRaces     int    `json:"min_races,omitempty"`
	Top          int    `json:"top,omitempty"`
	Limit        int    `json:"limit,omitempty"`
	Sort         string `json:"sort,omitempty"`
	Reverse      bool   `json:"reverse,omitempty"`
	Since        string `json:"since,omitempty"`
}

// Plan is a validated request, ready to run.
type Plan struct {
	Request  Request
	Label    string
	Column   string
	Filter   scope.Filter
	Segments []derive.Segment
	Engine   cumulate.Options
	Ranking  ranking.Options
	// Standings asks for the standings column even without a top-N filter.
	Standings bool
}

// WithShooting reports whether the table carries accuracy columns.
func (p Plan) WithShooting() bool {
	return p.Engine.WithShooting || p.Engine.Mode == cumulate.MissSum
}

// Validate checks a request and derives its plan. now anchors --since
// expressions and the future-race cutoff.
func (r Request) Validate(now time.Time) (Plan, error) {
	ms, ok := metricSpecs[r.Metric]
	if !ok {
		return Plan{}, invalid("unknown metric %q", r.Metric)
	}
	if r.Season != "" && r.Event != "" {
		return Plan{}, invalid("--event and --season cannot be combined")
	}
	if r.MinRaces < 0 || r.Top < 0 || r.Limit < 0 {
		return Plan{}, invalid("--min-race, --top and --limit must not be negative")
	}
	if r.Position && (r.Metric == MetricMiss || r.Metric == MetricRemontada) {
		return Plan{}, invalid("--position does not apply to %s", r.Metric)
	}

	selection := r.Discipline
	if selection == "" {
		selection = "all"
	}
	disciplines, err := discipline.ParseSelection(selection)
	if err != nil {
		return Plan{}, invalid("%v", err)
	}
	if r.Metric == MetricRemontada {
		if r.Discipline != "" && !slices.Contains(disciplines, discipline.Pursuit) {
			return Plan{}, invalid("remontada only uses pursuit races")
		}
		disciplines = []discipline.Code{discipline.Pursuit}
	}

	since, err := scope.ParseSince(r.Since, now)
	if err != nil {
		return Plan{}, invalid("--since: %v", err)
	}

	p := Plan{
		Request:  r,
		Label:    ms.label,
		Column:   ms.column,
		Segments: ms.segments,
		Filter: scope.Filter{
			Season:      r.Season,
			Event:       r.Event,
			Level:       scope.WorldCup,
			Disciplines: disciplines,
			Category:    discipline.Category(r.Men),
			Since:       since,
			Now:         now,
		},
		Engine: cumulate.Options{
			Mode:         cumulate.TimeSum,
			Metric:       ms.kind,
			WithShooting: ms.withShooting,
			NetPursuit:   r.NoStartDelay,
		},
		Ranking: ranking.Options{
			Reverse:  r.Reverse,
			Limit:    r.Limit,
			MinRaces: r.MinRaces,
		},
		Standings: r.Top > 0 || r.Metric == MetricRemontada,
	}
	switch {
	case r.Metric == MetricMiss:
		p.Engine.Mode = cumulate.MissSum
		p.Engine.Metric = ""
	case r.Metric == MetricRemontada:
		p.Engine.Mode = cumulate.PursuitGain
		p.Engine.Metric = ""
	case r.Position:
		p.Engine.Mode = cumulate.PositionAvg
		p.Label = "average position by " + ms.label
	}

	col, err := ranking.ParseSort(r.Sort)
	if err != nil {
		return Plan{}, invalid("%v", err)
	}
	if col != "" && !slices.Contains(sortColumns(p), col) {
		return Plan{}, invalid("cannot sort %s by %s", p.Label, col)
	}
	p.Ranking.Sort = col
	return p, nil
}

// sortColumns lists the columns a plan's table can be sorted by.
func sortColumns(p Plan) []ranking.SortColumn {
	cols := []ranking.SortColumn{ranking.DefaultSort(p.Engine.Mode)}
	switch p.Engine.Mode {
	case cumulate.MissSum:
		cols = append(cols, ranking.SortAccuracy)
	case cumulate.TimeSum, cumulate.PositionAvg:
		if p.Engine.WithShooting {
			cols = append(cols, ranking.SortMisses, ranking.SortAccuracy)
		}
	}
	return cols
}

// Scope describes what a plan covers, for table headers.
func (p Plan) Scope(season string) string {
	if p.Request.Event != "" {
		return "event " + p.Request.Event
	}
	s := "season " + season
	if !p.Filter.Since.IsZero() {
		s += " since " + p.Filter.Since.Format("2006-01-02")
	}
	return s
}

// Title is the table heading of a finished run.
func (p Plan) Title(season string, racesUsed int) string {
	gender := "women"
	if p.Request.Men {
		gender = "men"
	}
	disc := strings.ToLower(p.Request.Discipline)
	if disc == "" {
		disc = "all"
	}
	if p.Engine.Mode == cumulate.PursuitGain {
		disc = "pursuit"
	}
	title := fmt.Sprintf("Cumulative %s, %s, %s, %s", p.Label, disc, gender, p.Scope(season))
	if p.Engine.Mode == cumulate.TimeSum || p.Engine.Mode == cumulate.MissSum {
		title += fmt.Sprintf(" (must start all %d races)", racesUsed)
	}
	return title
}
