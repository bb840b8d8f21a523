// Package scope enumerates the races a query covers (season, events, races)
// and loads each one into the shape the cumulation engine consumes.
package scope

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"biathlonstats/internal/derive"
	"biathlonstats/internal/discipline"
	"biathlonstats/internal/payload"
	"biathlonstats/internal/results"
)

// WorldCup is the results service level of World Cup events.
const WorldCup = 1

// Source is the subset of the results service the walker needs.
type Source interface {
	Seasons(ctx context.Context) ([]payload.Record, error)
	CurrentSeason(ctx context.Context) (string, error)
	Events(ctx context.Context, seasonID string, level int) ([]payload.Record, error)
	Competitions(ctx context.Context, eventID string) ([]payload.Record, error)
	Results(ctx context.Context, raceID string) (payload.Record, error)
	Analytic(ctx context.Context, raceID, typeID string) (payload.Record, error)
	Cups(ctx context.Context, seasonID string) ([]payload.Record, error)
	CupResults(ctx context.Context, cupID string) (payload.Record, error)
}

// Filter selects races. Zero values mean "no restriction", except Level which
// defaults to WorldCup and Now which defaults to the wall clock.
type Filter struct {
	Season      string
	Event       string
	Level       int
	Disciplines []discipline.Code
	Category    string
	Since       time.Time
	Now         time.Time
}

func (f Filter) level() int {
	if f.Level == 0 {
		return WorldCup
	}
	return f.Level
}

func (f Filter) now() time.Time {
	if f.Now.IsZero() {
		return time.Now()
	}
	return f.Now
}

// RaceInfo is one race listing entry.
type RaceInfo struct {
	ID         string
	Discipline discipline.Code
	Category   string
	Label      string
	EventID    string
	EventLabel string
	StartKey   string
	Start      time.Time
}

// Title is the "event / race" label used in traces and headers.
func (r RaceInfo) Title() string {
	label := r.Label
	if label == "" {
		label = string(r.Discipline)
	}
	if r.EventLabel == "" {
		return label
	}
	return r.EventLabel + " / " + label
}

func raceInfo(event, race payload.Record) RaceInfo {
	info := RaceInfo{
		ID:         race.String("RaceId", "Id"),
		Discipline: discipline.Code(strings.ToUpper(race.String("DisciplineId"))),
		Category:   strings.ToUpper(race.String("catId", "CatId")),
		Label:      race.String("RaceName", "ShortDescription", "Description"),
		EventID:    event.String("EventId"),
		EventLabel: event.String("ShortDescription", "Organizer"),
		StartKey:   race.String("StartTime", "StartDate", "FirstStart"),
	}
	info.Start, _ = parseStart(info.StartKey)
	return info
}

var startLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseStart(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range startLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

type Walker struct {
	src    Source
	logger *slog.Logger
}

func NewWalker(src Source, logger *slog.Logger) *Walker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Walker{src: src, logger: logger}
}

// Season returns f.Season, or the current season when none was given.
func (w *Walker) Season(ctx context.Context, f Filter) (string, error) {
	if f.Season != "" {
		return f.Season, nil
	}
	season, err := w.src.CurrentSeason(ctx)
	if err != nil {
		return "", fmt.Errorf("resolving current season: %w", err)
	}
	return season, nil
}

// Races lists the races in scope, in event then listing order. Races of
// another category, of an unselected discipline, not yet started or before
// f.Since are not part of the scope at all.
func (w *Walker) Races(ctx context.Context, f Filter) ([]RaceInfo, error) {
	events, err := w.events(ctx, f)
	if err != nil {
		return nil, err
	}
	now := f.now()
	var races []RaceInfo
	for _, ev := range events {
		eventID := ev.String("EventId")
		if eventID == "" {
			continue
		}
		comps, err := w.src.Competitions(ctx, eventID)
		if err != nil {
			w.logger.WarnContext(ctx, "skipping event",
				slog.String("event_id", eventID),
				slog.Any("error", err))
			continue
		}
		for _, c := range comps {
			info := raceInfo(ev, c)
			if info.ID == "" {
				continue
			}
			if len(f.Disciplines) > 0 && !slices.Contains(f.Disciplines, info.Discipline) {
				continue
			}
			if f.Category != "" && info.Category != "" && !strings.EqualFold(info.Category, f.Category) {
				continue
			}
			if !info.Start.IsZero() {
				if info.Start.After(now) {
					continue
				}
				if !f.Since.IsZero() && info.Start.Before(f.Since) {
					continue
				}
			}
			races = append(races, info)
		}
	}
	return races, nil
}

func (w *Walker) events(ctx context.Context, f Filter) ([]payload.Record, error) {
	if f.Event != "" {
		return []payload.Record{payload.FromMap(map[string]any{"EventId": f.Event})}, nil
	}
	season, err := w.Season(ctx, f)
	if err != nil {
		return nil, err
	}
	events, err := w.src.Events(ctx, season, f.level())
	if err != nil {
		return nil, fmt.Errorf("listing events of season %s: %w", season, err)
	}
	return events, nil
}

// Status is what loading one race produced.
type Status int

const (
	Loaded Status = iota
	// OutOfScope races belong to another category; they are not counted.
	OutOfScope
	// Unavailable races failed to fetch or decode.
	Unavailable
	// Empty races returned no competitor rows.
	Empty
)

func (s Status) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case OutOfScope:
		return "out of scope"
	case Unavailable:
		return "unavailable"
	case Empty:
		return "empty"
	}
	return "unknown"
}

// LoadOptions controls what Load fetches for a race.
type LoadOptions struct {
	Category     string
	Segments     []derive.Segment
	IncludeTeams bool
}

// Outcome is one loaded race.
type Outcome struct {
	Race    RaceInfo
	Status  Status
	Record  payload.Record
	Rows    []results.Row
	Context derive.Context
	Err     error
}

// Load fetches one race and, when asked, its analytic segment times. A failed
// segment fetch leaves that segment to the row-level fallbacks.
func (w *Walker) Load(ctx context.Context, race RaceInfo, opts LoadOptions) Outcome {
	out := Outcome{Race: race}
	rec, err := w.src.Results(ctx, race.ID)
	if err != nil {
		out.Status, out.Err = Unavailable, err
		return out
	}
	out.Record = rec
	out.Race = describe(race, rec)
	if opts.Category != "" && out.Race.Category != "" && !strings.EqualFold(out.Race.Category, opts.Category) {
		out.Status = OutOfScope
		return out
	}

	out.Rows = results.Extract(rec, results.Options{IncludeTeams: opts.IncludeTeams})
	if len(out.Rows) == 0 {
		out.Status = Empty
		return out
	}

	profile, _ := discipline.Lookup(string(out.Race.Discipline))
	out.Context = derive.Context{
		Profile:  profile,
		Leader:   results.LeaderTime(out.Rows),
		Segments: w.segments(ctx, race.ID, opts.Segments),
	}
	return out
}

func (w *Walker) segments(ctx context.Context, raceID string, segs []derive.Segment) derive.Segments {
	if len(segs) == 0 {
		return nil
	}
	out := derive.Segments{}
	for _, seg := range segs {
		rec, err := w.src.Analytic(ctx, raceID, string(seg))
		if err != nil {
			w.logger.DebugContext(ctx, "analytic segment unavailable",
				slog.String("race_id", raceID),
				slog.String("segment", string(seg)),
				slog.Any("error", err))
			continue
		}
		out.Add(seg, rec)
	}
	return out
}

// Analytic fetches one analytic segment payload of a race.
func (w *Walker) Analytic(ctx context.Context, raceID string, seg derive.Segment) (payload.Record, error) {
	rec, err := w.src.Analytic(ctx, raceID, string(seg))
	if err != nil {
		return nil, fmt.Errorf("fetching %s of race %s: %w", seg, raceID, err)
	}
	return rec, nil
}

// describe completes listing info with the race payload's own competition
// block, which wins over the listing.
func describe(race RaceInfo, rec payload.Record) RaceInfo {
	comp, ok := rec.Object("Competition")
	if !ok {
		return race
	}
	if cat := comp.String("catId", "CatId"); cat != "" {
		race.Category = strings.ToUpper(cat)
	}
	if d := comp.String("DisciplineId"); d != "" {
		race.Discipline = discipline.Code(strings.ToUpper(d))
	}
	if race.Label == "" {
		race.Label = comp.String("ShortDescription", "Description")
	}
	if race.StartKey == "" {
		race.StartKey = comp.String("StartTime")
		race.Start, _ = parseStart(race.StartKey)
	}
	if race.EventLabel == "" {
		if ev, ok := rec.Object("SportEvt"); ok {
			race.EventLabel = ev.String("ShortDescription", "Organizer")
		}
	}
	return race
}

// ErrNoCompletedRace is returned by Latest when nothing in scope has results.
var ErrNoCompletedRace = errors.New("no completed race with results found")

// Race loads a race addressed directly by id.
func (w *Walker) Race(ctx context.Context, raceID string, opts LoadOptions) (Outcome, error) {
	out := w.Load(ctx, RaceInfo{ID: raceID}, LoadOptions{Segments: opts.Segments, IncludeTeams: opts.IncludeTeams})
	if out.Status == Unavailable {
		return out, fmt.Errorf("loading race %s: %w", raceID, out.Err)
	}
	return out, nil
}

// Latest returns the most recently started race in scope with completed
// results.
func (w *Walker) Latest(ctx context.Context, f Filter, opts LoadOptions) (Outcome, error) {
	f.Since = time.Time{}
	races, err := w.Races(ctx, f)
	if err != nil {
		return Outcome{}, err
	}
	slices.SortStableFunc(races, func(a, b RaceInfo) int {
		return strings.Compare(b.StartKey, a.StartKey)
	})
	now := f.now()
	for _, r := range races {
		out := w.Load(ctx, r, LoadOptions{Category: opts.Category, IncludeTeams: opts.IncludeTeams})
		if out.Status != Loaded {
			continue
		}
		if !out.Race.Start.IsZero() && out.Race.Start.After(now) {
			continue
		}
		if !results.HasCompletedResults(out.Rows) {
			continue
		}
		out.Context.Segments = w.segments(ctx, r.ID, opts.Segments)
		return out, nil
	}
	return Outcome{}, ErrNoCompletedRace
}
