package scope

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"biathlonstats/internal/cumulate"
	"biathlonstats/internal/discipline"
	"biathlonstats/internal/ranking"
)

var ErrNoCup = errors.New("no matching cup")

// StandingsRow is one athlete of a cup standings list.
type StandingsRow struct {
	ID   string
	Name string
	Rank string
}

// Standings is a cup standings list in published order.
type Standings struct {
	CupID string
	Rows  []StandingsRow
}

// FindCup returns the id of the cup matching category, level and standings
// type ("total", "sprint", ...).
func (w *Walker) FindCup(ctx context.Context, season, category string, level int, scoreType string) (string, error) {
	disc, ok := discipline.ScoreType(scoreType)
	if !ok {
		return "", fmt.Errorf("%w: unknown standings type %q", ErrNoCup, scoreType)
	}
	cups, err := w.src.Cups(ctx, season)
	if err != nil {
		return "", fmt.Errorf("listing cups of season %s: %w", season, err)
	}
	for _, c := range cups {
		lvl, _ := c.Int("Level")
		if strings.EqualFold(c.String("CatId"), category) && lvl == level && strings.EqualFold(c.String("DisciplineId"), disc) {
			if id := c.String("CupId"); id != "" {
				return id, nil
			}
		}
	}
	return "", fmt.Errorf("%w: season %s, category %s, level %d, type %s", ErrNoCup, season, category, level, scoreType)
}

// Standings fetches the overall World Cup standings of a category.
func (w *Walker) Standings(ctx context.Context, season, category string) (Standings, error) {
	cupID, err := w.FindCup(ctx, season, category, WorldCup, "total")
	if err != nil {
		return Standings{}, err
	}
	rec, err := w.src.CupResults(ctx, cupID)
	if err != nil {
		return Standings{}, fmt.Errorf("fetching cup %s: %w", cupID, err)
	}
	list, _ := rec.List("Rows", "Results")
	s := Standings{CupID: cupID, Rows: make([]StandingsRow, 0, len(list))}
	for i, r := range list {
		rank := r.String("Rank", "ResultOrder")
		if rank == "" {
			rank = strconv.Itoa(i + 1)
		}
		s.Rows = append(s.Rows, StandingsRow{
			ID:   r.String("IBUId", "IbuId"),
			Name: r.String("Name", "ShortName"),
			Rank: rank,
		})
	}
	return s, nil
}

// Top returns the first n athletes of the list as a population.
func (s Standings) Top(n int) *cumulate.Population {
	p := cumulate.NewPopulation()
	for i, r := range s.Rows {
		if i >= n {
			break
		}
		p.Add(r.ID, r.Name)
	}
	return p
}

// Ranks maps federation ids and folded names to the published rank, the
// lookup form ranking.Options.Standings expects.
func (s Standings) Ranks() map[string]string {
	m := make(map[string]string, 2*len(s.Rows))
	for _, r := range s.Rows {
		if r.ID != "" {
			m[r.ID] = r.Rank
		}
		if name := ranking.FoldName(r.Name); name != "" {
			if _, taken := m[name]; !taken {
				m[name] = r.Rank
			}
		}
	}
	return m
}

// CupRow is one athlete of a cup table with the scores of the discipline
// cups.
type CupRow struct {
	ID     string
	Name   string
	Nation string
	// Position is the rank in the overall cup.
	Position int
	// SortPosition is the rank by the discipline the table is sorted by.
	SortPosition int
	Total        int
	Scores       map[discipline.Code]int
}

// CupTable is the overall cup of a category joined with its discipline cups.
type CupTable struct {
	Season   string
	Category string
	Level    int
	SortedBy discipline.Code // empty when in overall order
	Rows     []CupRow
}

// CupDisciplines are the discipline cups joined into a CupTable.
var CupDisciplines = []discipline.Code{discipline.Sprint, discipline.Pursuit, discipline.Individual, discipline.MassStart}

// CupTable fetches the overall cup of category and level and adds each
// athlete's discipline cup scores. A discipline cup that cannot be fetched
// leaves its scores at zero.
func (w *Walker) CupTable(ctx context.Context, season, category string, level int) (CupTable, error) {
	cups, err := w.src.Cups(ctx, season)
	if err != nil {
		return CupTable{}, fmt.Errorf("listing cups of season %s: %w", season, err)
	}
	ids := make(map[string]string)
	for _, c := range cups {
		lvl, _ := c.Int("Level")
		if !strings.EqualFold(c.String("CatId"), category) || lvl != level {
			continue
		}
		disc, id := strings.ToUpper(c.String("DisciplineId")), c.String("CupId")
		if _, seen := ids[disc]; disc != "" && id != "" && !seen {
			ids[disc] = id
		}
	}
	totalID, ok := ids["TS"]
	if !ok {
		return CupTable{}, fmt.Errorf("%w: season %s, category %s, level %d, type total", ErrNoCup, season, category, level)
	}
	rec, err := w.src.CupResults(ctx, totalID)
	if err != nil {
		return CupTable{}, fmt.Errorf("fetching cup %s: %w", totalID, err)
	}

	t := CupTable{Season: season, Category: category, Level: level}
	index := make(map[string]int)
	list, _ := rec.List("Rows", "Results")
	for _, r := range list {
		key := cupKey(r.String("IBUId", "IbuId"), r.String("Name", "ShortName"))
		if _, dup := index[key]; key == "" || dup {
			continue
		}
		total, _ := r.Int("Score", "TotalScore")
		index[key] = len(t.Rows)
		t.Rows = append(t.Rows, CupRow{
			ID:     r.String("IBUId", "IbuId"),
			Name:   r.String("Name", "ShortName"),
			Nation: r.String("Nat", "Nation"),
			Total:  total,
			Scores: make(map[discipline.Code]int),
		})
	}

	for _, code := range CupDisciplines {
		id, ok := ids[string(code)]
		if !ok {
			continue
		}
		rec, err := w.src.CupResults(ctx, id)
		if err != nil {
			w.logger.WarnContext(ctx, "skipping discipline cup",
				slog.String("cup_id", id),
				slog.Any("error", err))
			continue
		}
		list, _ := rec.List("Rows", "Results")
		for _, r := range list {
			if i, ok := index[cupKey(r.String("IBUId", "IbuId"), r.String("Name", "ShortName"))]; ok {
				t.Rows[i].Scores[code], _ = r.Int("Score", "TotalScore")
			}
		}
	}

	slices.SortStableFunc(t.Rows, func(a, b CupRow) int { return cmp.Compare(b.Total, a.Total) })
	for i := range t.Rows {
		t.Rows[i].Position = i + 1
	}
	return t, nil
}

// SortBy returns a copy of t ordered by the score of one discipline cup,
// ties broken by the overall score.
func (t CupTable) SortBy(code discipline.Code) CupTable {
	out := t
	out.SortedBy = code
	out.Rows = slices.Clone(t.Rows)
	slices.SortStableFunc(out.Rows, func(a, b CupRow) int {
		return cmp.Or(cmp.Compare(b.Scores[code], a.Scores[code]), cmp.Compare(b.Total, a.Total))
	})
	for i := range out.Rows {
		out.Rows[i].SortPosition = i + 1
	}
	return out
}

func cupKey(id, name string) string {
	if id != "" {
		return id
	}
	if name = ranking.FoldName(name); name != "" {
		return "name:" + name
	}
	return ""
}
