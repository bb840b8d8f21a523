package ranking

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"biathlonstats/internal/cumulate"
	"biathlonstats/internal/derive"
	"biathlonstats/internal/racetime"
)

// Empty-result reasons. Each is a normal outcome, not a failure of the run.
var (
	ErrNoRacesFound       = errors.New("no races found in scope")
	ErrNoUsableRaces      = errors.New("no races yielded usable data")
	ErrNoEligibleAthletes = errors.New("no athletes met the eligibility rule")
)

var ErrUnknownSortColumn = errors.New("unknown sort column")

type SortColumn string

const (
	SortTime     SortColumn = "time"
	SortMisses   SortColumn = "misses"
	SortAccuracy SortColumn = "accuracy"
	SortPosition SortColumn = "position"
	SortGain     SortColumn = "gain"
)

// ParseSort validates a user-supplied sort column. Empty input selects the
// mode default.
func ParseSort(s string) (SortColumn, error) {
	switch c := SortColumn(strings.ToLower(strings.TrimSpace(s))); c {
	case "", SortTime, SortMisses, SortAccuracy, SortPosition, SortGain:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSortColumn, s)
}

// DefaultSort is the primary column of each accumulation mode.
func DefaultSort(mode cumulate.Mode) SortColumn {
	switch mode {
	case cumulate.MissSum:
		return SortMisses
	case cumulate.PositionAvg:
		return SortPosition
	case cumulate.PursuitGain:
		return SortGain
	}
	return SortTime
}

type Options struct {
	Sort     SortColumn
	Reverse  bool
	Limit    int // 0 keeps every row
	MinRaces int
	// Standings maps a folded athlete name or federation id to a standings
	// rank shown next to the row.
	Standings map[string]string
}

// Row is one ranked athlete.
type Row struct {
	Rank          int
	Key           string
	ID            string
	Name          string
	Nation        string
	Races         int
	Time          racetime.Duration
	Misses        int
	Prone         int
	Standing      int
	Shots         int
	ShotsProne    int
	ShotsStanding int
	AvgPosition   float64
	Gain          int
	Detail        map[string]string
	StandingsRank string
	LowConfidence bool
	WeakKey       bool
}

func (r Row) Accuracy() (float64, bool) { return derive.Accuracy(r.Misses, r.Shots) }

// Table is the ranked output of one run.
type Table struct {
	Mode       cumulate.Mode
	Rows       []Row
	Races      []cumulate.RaceRef
	RacesUsed  int
	RacesFound int
}

// Build applies the eligibility rule of the summary's mode, sorts, assigns
// dense ranks and truncates to the display limit, in that order.
func Build(s cumulate.Summary, opts Options) (Table, error) {
	t := Table{
		Mode:       s.Mode,
		Races:      s.UsedRaces(),
		RacesUsed:  s.RacesUsed,
		RacesFound: s.RacesFound(),
	}
	if t.RacesFound == 0 {
		return t, ErrNoRacesFound
	}
	if t.RacesUsed == 0 {
		return t, ErrNoUsableRaces
	}

	for _, a := range s.Accumulators {
		if !eligible(s, a, opts) {
			continue
		}
		t.Rows = append(t.Rows, rowFrom(a, opts))
	}
	if len(t.Rows) == 0 {
		return t, ErrNoEligibleAthletes
	}

	col := opts.Sort
	if col == "" {
		col = DefaultSort(s.Mode)
	}
	slices.SortStableFunc(t.Rows, func(a, b Row) int {
		c := primary(col, a, b)
		if opts.Reverse {
			c = -c
		}
		if c != 0 {
			return c
		}
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.Key, b.Key)
	})
	for i := range t.Rows {
		t.Rows[i].Rank = i + 1
	}
	if opts.Limit > 0 && len(t.Rows) > opts.Limit {
		t.Rows = t.Rows[:opts.Limit]
	}
	return t, nil
}

func eligible(s cumulate.Summary, a *cumulate.Accumulator, opts Options) bool {
	if a.Races == 0 {
		return false
	}
	switch s.Mode {
	case cumulate.PositionAvg, cumulate.PursuitGain:
		return a.Races >= opts.MinRaces
	}
	return a.Races == s.RacesUsed
}

func rowFrom(a *cumulate.Accumulator, opts Options) Row {
	r := Row{
		Key:           a.Key,
		ID:            a.ID,
		Name:          a.Name,
		Nation:        a.Nation,
		Races:         a.Races,
		Time:          a.Time(),
		Misses:        a.Misses,
		Prone:         a.Prone,
		Standing:      a.Standing,
		Shots:         a.Shots,
		ShotsProne:    a.ShotsProne,
		ShotsStanding: a.ShotsStanding,
		AvgPosition:   a.AveragePosition(),
		Gain:          a.Gain,
		Detail:        a.Detail,
		LowConfidence: a.LowConfidence,
		WeakKey:       a.WeakKey,
	}
	if opts.Standings != nil {
		r.StandingsRank = "-"
		if v, ok := opts.Standings[a.ID]; ok && a.ID != "" {
			r.StandingsRank = v
		} else if v, ok := opts.Standings[FoldName(a.Name)]; ok {
			r.StandingsRank = v
		}
	}
	return r
}

func primary(col SortColumn, a, b Row) int {
	switch col {
	case SortMisses:
		return cmp.Or(cmp.Compare(a.Misses, b.Misses), compareTime(a, b))
	case SortAccuracy:
		accA, _ := a.Accuracy()
		accB, _ := b.Accuracy()
		return cmp.Or(cmp.Compare(accB, accA), cmp.Compare(a.Misses, b.Misses))
	case SortPosition:
		return cmp.Or(cmp.Compare(a.AvgPosition, b.AvgPosition), cmp.Compare(b.Races, a.Races))
	case SortGain:
		return cmp.Or(cmp.Compare(b.Gain, a.Gain), cmp.Compare(b.Races, a.Races))
	}
	return compareTime(a, b)
}

// compareTime orders measured times ascending with unmeasured ones last.
func compareTime(a, b Row) int {
	ta, okA := a.Time.Seconds()
	tb, okB := b.Time.Seconds()
	switch {
	case okA && okB:
		return cmp.Compare(ta, tb)
	case okA:
		return -1
	case okB:
		return 1
	}
	return 0
}

// FoldName is the key form used for name lookups in Options.Standings.
func FoldName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
