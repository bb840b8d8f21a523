package pipeline

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"biathlonstats/internal/discipline"
	"biathlonstats/internal/scope"
)

var ErrNothingListed = errors.New("nothing to list")

// StandingsRequest asks for a cup table. Sort is "total" or a discipline
// cup ("sprint", "pursuit", "individual", "mass-start").
type StandingsRequest struct {
	Season string
	Men    bool
	Level  int
	Sort   string
	Limit  int
}

func (r StandingsRequest) validate() (discipline.Code, error) {
	if r.Limit < 0 {
		return "", invalid("--limit must not be negative")
	}
	if r.Level < 0 {
		return "", invalid("--level must not be negative")
	}
	if r.Sort == "" || strings.EqualFold(r.Sort, "total") {
		return "", nil
	}
	id, ok := discipline.ScoreType(r.Sort)
	if !ok || !slices.Contains(scope.CupDisciplines, discipline.Code(id)) {
		return "", invalid("unknown standings sort %q", r.Sort)
	}
	return discipline.Code(id), nil
}

type StandingsReport struct {
	Cup scope.CupTable
}

// Standings builds the cup table of a season, optionally sorted by one
// discipline cup.
func (r *Runner) Standings(ctx context.Context, req StandingsRequest) (StandingsReport, error) {
	code, err := req.validate()
	if err != nil {
		return StandingsReport{}, err
	}
	ctx, span := r.tracer.Start(ctx, "pipeline.Standings", trace.WithAttributes(attribute.String("season", req.Season)))
	defer span.End()

	season, err := r.walker.Season(ctx, scope.Filter{Season: req.Season})
	if err != nil {
		return StandingsReport{}, err
	}
	level := req.Level
	if level == 0 {
		level = scope.WorldCup
	}
	cup, err := r.walker.CupTable(ctx, season, discipline.Category(req.Men), level)
	if err != nil {
		return StandingsReport{}, err
	}
	if len(cup.Rows) == 0 {
		return StandingsReport{}, ErrNothingListed
	}
	if code != "" {
		cup = cup.SortBy(code)
	}
	if req.Limit > 0 && len(cup.Rows) > req.Limit {
		cup.Rows = cup.Rows[:req.Limit]
	}
	return StandingsReport{Cup: cup}, nil
}

// Event listing orders.
const (
	EventSortStart   = "startdate"
	EventSortEvent   = "event"
	EventSortCountry = "country"
)

// EventsRequest asks for the events of a season, or of every season when
// Season is "all".
type EventsRequest struct {
	Season    string
	Level     int
	Search    string
	Completed bool
	Sort      string
	Now       time.Time
}

type EventsReport struct {
	Season string
	Level  int
	Events []scope.EventInfo
}

// Events lists events with their race counts.
func (r *Runner) Events(ctx context.Context, req EventsRequest) (EventsReport, error) {
	sortBy := strings.ToLower(req.Sort)
	switch sortBy {
	case "":
		sortBy = EventSortStart
	case EventSortStart, EventSortEvent, EventSortCountry:
	default:
		return EventsReport{}, invalid("unknown event sort %q", req.Sort)
	}
	level := req.Level
	if level == 0 {
		level = scope.WorldCup
	}
	if level < -1 || level > 6 {
		return EventsReport{}, invalid("--level must be between -1 and 6")
	}
	ctx, span := r.tracer.Start(ctx, "pipeline.Events", trace.WithAttributes(attribute.String("season", req.Season)))
	defer span.End()

	rep := EventsReport{Season: req.Season, Level: level}
	var seasons []string
	if strings.EqualFold(req.Season, "all") {
		list, err := r.walker.Seasons(ctx)
		if err != nil {
			return rep, err
		}
		for _, s := range list {
			seasons = append(seasons, s.ID)
		}
	} else {
		season, err := r.walker.Season(ctx, scope.Filter{Season: req.Season})
		if err != nil {
			return rep, err
		}
		rep.Season = season
		seasons = []string{season}
	}

	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	needle := strings.ToLower(strings.TrimSpace(req.Search))
	for _, season := range seasons {
		events, err := r.walker.Events(ctx, scope.Filter{Season: season, Level: level})
		if err != nil {
			return rep, err
		}
		for _, ev := range events {
			if req.Completed && !ev.Completed(now) {
				continue
			}
			if needle != "" && !strings.Contains(strings.ToLower(ev.Location), needle) &&
				!strings.Contains(strings.ToLower(ev.Description), needle) {
				continue
			}
			rep.Events = append(rep.Events, ev)
		}
	}
	if len(rep.Events) == 0 {
		return rep, ErrNothingListed
	}

	slices.SortStableFunc(rep.Events, func(a, b scope.EventInfo) int {
		start := a.Start.Compare(b.Start)
		location := strings.Compare(strings.ToLower(a.Location), strings.ToLower(b.Location))
		nation := strings.Compare(a.Nation, b.Nation)
		switch sortBy {
		case EventSortEvent:
			return cmp.Or(location, start, nation)
		case EventSortCountry:
			return cmp.Or(nation, start, location)
		}
		return cmp.Or(start, location, nation)
	})
	return rep, nil
}

// Seasons lists the seasons of the results service, newest first.
func (r *Runner) Seasons(ctx context.Context, limit int) ([]scope.SeasonInfo, error) {
	if limit < 0 {
		return nil, invalid("--limit must not be negative")
	}
	seasons, err := r.walker.Seasons(ctx)
	if err != nil {
		return nil, err
	}
	if len(seasons) == 0 {
		return nil, ErrNothingListed
	}
	if limit > 0 && len(seasons) > limit {
		seasons = seasons[:limit]
	}
	return seasons, nil
}
