package pipeline

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"biathlonstats/internal/derive"
	"biathlonstats/internal/discipline"
	"biathlonstats/internal/ranking"
	"biathlonstats/internal/relay"
	"biathlonstats/internal/results"
	"biathlonstats/internal/scope"
)

// Race table sort columns.
const (
	RaceSortResult   = "result"
	RaceSortCourse   = "course"
	RaceSortSki      = "ski"
	RaceSortRange    = "range"
	RaceSortShooting = "shooting"
	RaceSortPenalty  = "penalty"
	RaceSortMisses   = "misses"
	RaceSortGain     = "gain"
)

var raceSorts = []string{RaceSortResult, RaceSortCourse, RaceSortSki, RaceSortRange, RaceSortShooting, RaceSortPenalty, RaceSortMisses, RaceSortGain}

// RaceRequest asks for one race's result table with derived columns. An
// empty RaceID selects the latest completed race.
type RaceRequest struct {
	RaceID     string
	Men        bool
	Discipline string
	Country    string
	First      int
	Top        int
	Limit      int
	Sort       string
	Now        time.Time
}

func (r RaceRequest) validate() ([]discipline.Code, error) {
	if r.First < 0 || r.Top < 0 || r.Limit < 0 {
		return nil, invalid("--first, --top and --limit must not be negative")
	}
	if r.Sort != "" && !slices.Contains(raceSorts, strings.ToLower(r.Sort)) {
		return nil, invalid("unknown sort column %q", r.Sort)
	}
	selection := r.Discipline
	if selection == "" {
		selection = "all"
	}
	codes, err := discipline.ParseSelection(selection)
	if err != nil {
		return nil, invalid("%v", err)
	}
	return codes, nil
}

// RaceLine is one competitor with its derived metrics.
type RaceLine struct {
	Row           results.Row
	Metrics       derive.Metrics
	StandingsRank string
}

type RaceReport struct {
	Race  scope.RaceInfo
	Lines []RaceLine
}

var allSegments = []derive.Segment{derive.Course, derive.Ski, derive.Range, derive.Shooting}

// Race builds the single-race table.
func (r *Runner) Race(ctx context.Context, req RaceRequest) (RaceReport, error) {
	codes, err := req.validate()
	if err != nil {
		return RaceReport{}, err
	}
	ctx, span := r.tracer.Start(ctx, "pipeline.Race", trace.WithAttributes(attribute.String("race.id", req.RaceID)))
	defer span.End()

	category := discipline.Category(req.Men)
	var out scope.Outcome
	if req.RaceID != "" {
		out, err = r.walker.Race(ctx, req.RaceID, scope.LoadOptions{Segments: allSegments})
	} else {
		out, err = r.walker.Latest(ctx, scope.Filter{Disciplines: codes, Category: category, Now: req.Now},
			scope.LoadOptions{Category: category, Segments: allSegments})
	}
	if err != nil {
		return RaceReport{}, err
	}

	var ranks map[string]string
	var top func(results.Row) bool
	if req.Top > 0 {
		if st, err := r.standingsFor(ctx, out.Race, category); err == nil {
			ranks = st.Ranks()
			pop := st.Top(req.Top)
			top = pop.Contains
		}
	}

	rep := RaceReport{Race: out.Race}
	for _, row := range out.Rows {
		if req.Country != "" && !strings.EqualFold(row.Nation, req.Country) {
			continue
		}
		if req.First > 0 {
			if rank, ok := row.FinishRank(); !ok || rank > req.First {
				continue
			}
		}
		if top != nil && !top(row) {
			continue
		}
		line := RaceLine{Row: row, Metrics: derive.Derive(row, out.Context)}
		if ranks != nil {
			line.StandingsRank = standingsRank(ranks, row)
		}
		rep.Lines = append(rep.Lines, line)
	}
	sortLines(rep.Lines, strings.ToLower(req.Sort))
	if req.Limit > 0 && len(rep.Lines) > req.Limit {
		rep.Lines = rep.Lines[:req.Limit]
	}
	return rep, nil
}

func (r *Runner) standingsFor(ctx context.Context, race scope.RaceInfo, category string) (scope.Standings, error) {
	if race.Category != "" {
		category = race.Category
	}
	season, err := r.walker.Season(ctx, scope.Filter{})
	if err != nil {
		return scope.Standings{}, err
	}
	return r.walker.Standings(ctx, season, category)
}

func standingsRank(ranks map[string]string, row results.Row) string {
	if v, ok := ranks[row.ID]; ok && row.ID != "" {
		return v
	}
	if v, ok := ranks[ranking.FoldName(row.Name)]; ok {
		return v
	}
	return "-"
}

func sortLines(lines []RaceLine, col string) {
	if col == "" || col == RaceSortResult {
		return
	}
	slices.SortStableFunc(lines, func(a, b RaceLine) int {
		switch col {
		case RaceSortMisses:
			return compareOpt(a.Metrics.Misses.Total, a.Metrics.Misses.Known, b.Metrics.Misses.Total, b.Metrics.Misses.Known)
		case RaceSortGain:
			// descending
			return compareOpt(-a.Metrics.Gain.Value, a.Metrics.Gain.Known, -b.Metrics.Gain.Value, b.Metrics.Gain.Known)
		}
		kind := map[string]derive.TimeKind{
			RaceSortCourse:   derive.TimeCourse,
			RaceSortSki:      derive.TimeSki,
			RaceSortRange:    derive.TimeRange,
			RaceSortShooting: derive.TimeShooting,
			RaceSortPenalty:  derive.TimePenalty,
		}[col]
		ta, okA := a.Metrics.Time(kind).Seconds()
		tb, okB := b.Metrics.Time(kind).Seconds()
		return compareOpt(ta, okA, tb, okB)
	})
}

// compareOpt orders known values ascending, unknown ones last.
func compareOpt[T cmp.Ordered](a T, okA bool, b T, okB bool) int {
	switch {
	case okA && okB:
		return cmp.Compare(a, b)
	case okA:
		return -1
	case okB:
		return 1
	}
	return 0
}

// RelayRequest asks for one relay race. Mixed selects mixed and single mixed
// relays; otherwise Men picks the category.
type RelayRequest struct {
	RaceID string
	Men    bool
	Mixed  bool
	Limit  int
	Now    time.Time
}

type RelayReport struct {
	Race  scope.RaceInfo
	Teams []relay.Team
}

// Relay rebuilds leg splits and team totals of one relay race.
func (r *Runner) Relay(ctx context.Context, req RelayRequest) (RelayReport, error) {
	if req.Limit < 0 {
		return RelayReport{}, invalid("--limit must not be negative")
	}
	ctx, span := r.tracer.Start(ctx, "pipeline.Relay", trace.WithAttributes(attribute.String("race.id", req.RaceID)))
	defer span.End()

	category := discipline.Category(req.Men)
	codes := []discipline.Code{discipline.Relay}
	if req.Mixed {
		category = discipline.Mixed
		codes = append(codes, discipline.SingleMixedRelay)
	}

	var out scope.Outcome
	var err error
	load := scope.LoadOptions{Category: category, IncludeTeams: true}
	if req.RaceID != "" {
		out, err = r.walker.Race(ctx, req.RaceID, load)
	} else {
		out, err = r.walker.Latest(ctx, scope.Filter{Disciplines: codes, Category: category, Now: req.Now}, load)
	}
	if err != nil {
		return RelayReport{}, err
	}

	profile := out.Context.Profile
	if !profile.IsRelay() {
		profile, _ = discipline.Lookup(string(discipline.Relay))
	}
	segs := relay.Segments{
		Course:   r.legTimes(ctx, out.Race.ID, derive.Course),
		Range:    r.legTimes(ctx, out.Race.ID, derive.Range),
		Shooting: r.legTimes(ctx, out.Race.ID, derive.Shooting),
	}
	teams := relay.Build(out.Rows, profile, segs)
	if req.Limit > 0 && len(teams) > req.Limit {
		teams = teams[:req.Limit]
	}
	return RelayReport{Race: out.Race, Teams: teams}, nil
}

func (r *Runner) legTimes(ctx context.Context, raceID string, seg derive.Segment) relay.LegTimes {
	rec, err := r.walker.Analytic(ctx, raceID, seg)
	if err != nil {
		return nil
	}
	return relay.ParseLegTimes(rec)
}
