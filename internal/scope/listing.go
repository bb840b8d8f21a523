package scope

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"
)

// SeasonInfo is one season of the results service.
type SeasonInfo struct {
	ID          string
	Description string
	Current     bool
	Order       int
}

// Seasons lists the seasons of the results service, newest first.
func (w *Walker) Seasons(ctx context.Context) ([]SeasonInfo, error) {
	recs, err := w.src.Seasons(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing seasons: %w", err)
	}
	seasons := make([]SeasonInfo, 0, len(recs))
	for _, r := range recs {
		id := r.String("SeasonId")
		if id == "" {
			continue
		}
		order, _ := r.Int("SortOrder")
		seasons = append(seasons, SeasonInfo{
			ID:          id,
			Description: r.String("Description"),
			Current:     r.Bool("IsCurrent"),
			Order:       order,
		})
	}
	slices.SortStableFunc(seasons, func(a, b SeasonInfo) int {
		return cmp.Or(cmp.Compare(b.Order, a.Order), strings.Compare(b.ID, a.ID))
	})
	return seasons, nil
}

var levelNames = map[int]string{
	-1: "All levels",
	0:  "Mixed levels",
	1:  "World Cup",
	2:  "IBU Cup",
	3:  "IBU Cup Junior",
	4:  "Other",
	5:  "Regional",
	6:  "Para-biathlon",
}

// LevelName is the display name of a competition level.
func LevelName(level int) string {
	if name, ok := levelNames[level]; ok {
		return name
	}
	return strconv.Itoa(level)
}

// EventInfo is one event listing entry.
type EventInfo struct {
	ID          string
	Season      string
	Level       int
	Description string
	Location    string
	Nation      string
	Start       time.Time
	End         time.Time
	// Races is -1 when the race list of the event could not be fetched.
	Races int
}

// Completed reports whether the event had started by now.
func (e EventInfo) Completed(now time.Time) bool {
	return !e.Start.IsZero() && !e.Start.After(now)
}

// Events lists the events of f's season and level with their race counts,
// in the order the service returns them.
func (w *Walker) Events(ctx context.Context, f Filter) ([]EventInfo, error) {
	if f.Event == "" {
		season, err := w.Season(ctx, f)
		if err != nil {
			return nil, err
		}
		f.Season = season
	}
	recs, err := w.events(ctx, f)
	if err != nil {
		return nil, err
	}
	events := make([]EventInfo, 0, len(recs))
	for _, r := range recs {
		ev := EventInfo{
			ID:          r.String("EventId"),
			Season:      r.String("SeasonId"),
			Description: r.String("Description"),
			Location:    r.String("ShortDescription", "Organizer"),
			Nation:      r.String("Nat", "Nation", "CountryId", "Country"),
			Races:       -1,
		}
		if ev.ID == "" {
			continue
		}
		if ev.Season == "" {
			ev.Season = f.Season
		}
		ev.Level, _ = r.Int("Level")
		ev.Start, _ = parseStart(r.String("StartDate", "FirstCompetitionDate"))
		ev.End, _ = parseStart(r.String("EndDate"))

		comps, err := w.src.Competitions(ctx, ev.ID)
		if err != nil {
			w.logger.WarnContext(ctx, "counting races",
				slog.String("event_id", ev.ID),
				slog.Any("error", err))
		} else {
			ev.Races = len(comps)
		}
		events = append(events, ev)
	}
	return events, nil
}
