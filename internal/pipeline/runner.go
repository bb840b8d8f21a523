package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"biathlonstats/internal/cumulate"
	"biathlonstats/internal/events"
	"biathlonstats/internal/ibu"
	"biathlonstats/internal/ranking"
	"biathlonstats/internal/scope"
)

var _ scope.Source = (*ibu.Client)(nil)

// Progress receives one event per race in scope, in processing order.
type Progress func(events.RaceProgress)

// Runner executes plans against a results source. One runner may serve many
// runs; each run owns its own engine.
type Runner struct {
	walker *scope.Walker
	logger *slog.Logger
	tracer trace.Tracer
}

func NewRunner(src scope.Source, logger *slog.Logger, tracer trace.Tracer) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = otel.Tracer("biathlonstats/pipeline")
	}
	return &Runner{
		walker: scope.NewWalker(src, logger),
		logger: logger,
		tracer: tracer,
	}
}

// Report is the outcome of one run.
type Report struct {
	Plan   Plan
	Season string
	Title  string
	Table  ranking.Table
	// Standings is set when a standings list was fetched.
	Standings bool
}

// Race statuses reported through Progress.
const (
	StatusUsed        = "used"
	StatusSkipped     = "SKIPPED"
	StatusOutOfScope  = "out of scope"
	StatusUnavailable = "unavailable"
)

// Run walks the plan's scope one race at a time. A race that fails to load is
// skipped; only failing to enumerate the scope aborts the run. The empty
// result sentinels of package ranking are returned together with a report.
func (r *Runner) Run(ctx context.Context, plan Plan, runID string, progress Progress) (Report, error) {
	ctx, span := r.tracer.Start(ctx, "pipeline.Run", trace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.String("run.metric", string(plan.Request.Metric)),
	))
	defer span.End()

	rep := Report{Plan: plan}
	season, err := r.walker.Season(ctx, plan.Filter)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return rep, err
	}
	rep.Season = season

	engineOpts := plan.Engine
	rankOpts := plan.Ranking
	if plan.Standings {
		st, err := r.walker.Standings(ctx, season, plan.Filter.Category)
		if err != nil {
			r.logger.WarnContext(ctx, "standings unavailable, continuing without",
				slog.String("run_id", runID),
				slog.Any("error", err))
		} else {
			rep.Standings = true
			rankOpts.Standings = st.Ranks()
			if plan.Request.Top > 0 {
				engineOpts.Population = st.Top(plan.Request.Top)
			}
		}
	}

	filter := plan.Filter
	if filter.Event == "" {
		filter.Season = season
	}
	races, err := r.walker.Races(ctx, filter)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return rep, err
	}
	span.SetAttributes(attribute.Int("run.races_found", len(races)))

	engine := cumulate.New(engineOpts)
	opts := scope.LoadOptions{Category: filter.Category, Segments: plan.Segments}
	for i, race := range races {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		out := r.walker.Load(ctx, race, opts)
		ev := events.RaceProgress{
			RunID:  runID,
			RaceID: race.ID,
			Title:  out.Race.Title(),
			Index:  i + 1,
			Total:  len(races),
		}
		label := raceLabel(plan, out.Race)
		switch out.Status {
		case scope.OutOfScope:
			ev.Status = StatusOutOfScope
		case scope.Unavailable:
			ev.Status = StatusUnavailable
			engine.Skip(race.ID, label, out.Err.Error())
		case scope.Empty:
			ev.Status = StatusSkipped
			engine.Skip(race.ID, label, "no results")
		default:
			o := engine.Add(cumulate.Race{ID: race.ID, Label: label, Context: out.Context, Rows: out.Rows})
			ev.Counted = o.Counted
			ev.Status = StatusSkipped
			if o.Used {
				ev.Status = StatusUsed
			}
			if o.Unresolved > 0 {
				r.logger.DebugContext(ctx, "rows without a resolvable identity",
					slog.String("race_id", race.ID),
					slog.Int("rows", o.Unresolved))
			}
		}
		r.logger.DebugContext(ctx, "race processed",
			slog.String("run_id", runID),
			slog.String("race_id", race.ID),
			slog.String("title", ev.Title),
			slog.String("status", ev.Status))
		if progress != nil {
			progress(ev)
		}
	}

	table, err := ranking.Build(engine.Summary(), rankOpts)
	rep.Table = table
	rep.Title = plan.Title(season, table.RacesUsed)
	span.SetAttributes(
		attribute.Int("run.races_used", table.RacesUsed),
		attribute.Int("run.rows", len(table.Rows)),
	)
	if err != nil && !IsEmpty(err) {
		span.SetStatus(codes.Error, err.Error())
	}
	return rep, err
}

// raceLabel is the column heading of a race in per-race detail tables.
func raceLabel(plan Plan, race scope.RaceInfo) string {
	if plan.Engine.Mode == cumulate.PursuitGain && race.EventLabel != "" {
		return race.EventLabel
	}
	return race.Title()
}

// IsEmpty reports whether err is one of the empty-result outcomes.
func IsEmpty(err error) bool {
	return errors.Is(err, ranking.ErrNoRacesFound) ||
		errors.Is(err, ranking.ErrNoUsableRaces) ||
		errors.Is(err, ranking.ErrNoEligibleAthletes)
}
