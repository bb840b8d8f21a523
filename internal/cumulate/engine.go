package cumulate

import (
	"slices"
	"sort"
	"strconv"

	"biathlonstats/internal/derive"
	"biathlonstats/internal/discipline"
	"biathlonstats/internal/results"
)

type Mode int

const (
	TimeSum Mode = iota
	MissSum
	PositionAvg
	PursuitGain
)

func (m Mode) String() string {
	switch m {
	case TimeSum:
		return "time"
	case MissSum:
		return "miss"
	case PositionAvg:
		return "position"
	case PursuitGain:
		return "remontada"
	}
	return "unknown"
}

type Options struct {
	Mode Mode
	// Metric is the time summed in TimeSum mode and compared in PositionAvg
	// mode. Defaults to the result time.
	Metric derive.TimeKind
	// WithShooting also sums misses and shots in TimeSum mode.
	WithShooting bool
	// Population, when set, limits accumulation to its members.
	Population *Population
	// NetPursuit replaces the result time of pursuit races with the result
	// minus the start delay.
	NetPursuit bool
}

// Race is one race in scope, already fetched and extracted.
type Race struct {
	ID      string
	Label   string
	Context derive.Context
	Rows    []results.Row
}

// RaceRef identifies a race considered by the engine.
type RaceRef struct {
	ID     string
	Label  string
	Used   bool
	Reason string
}

// Outcome reports what one race contributed.
type Outcome struct {
	Used       bool
	Counted    int
	Unresolved int
	Duplicates int
}

// Engine folds per-race metrics into per-athlete accumulators. It is not safe
// for concurrent use; one engine belongs to one run.
type Engine struct {
	opts      Options
	resolver  *results.Resolver
	acc       map[string]*Accumulator
	races     []RaceRef
	racesUsed int
}

func New(opts Options) *Engine {
	if opts.Metric == "" {
		opts.Metric = derive.TimeResult
	}
	return &Engine{
		opts:     opts,
		resolver: results.NewResolver(),
		acc:      make(map[string]*Accumulator),
	}
}

// Skip records a race in scope that could not be used at all, for example
// because its payload was unavailable.
func (e *Engine) Skip(id, label, reason string) {
	e.races = append(e.races, RaceRef{ID: id, Label: label, Reason: reason})
}

// Add folds one race into the accumulators.
func (e *Engine) Add(race Race) Outcome {
	var out Outcome
	rows := e.opts.Population.Filter(race.Rows)
	e.resolver.Learn(rows)

	type entry struct {
		key string
		row results.Row
		m   derive.Metrics
	}
	entries := make([]entry, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		key, ok := e.resolver.Resolve(race.ID, row)
		if !ok {
			out.Unresolved++
			continue
		}
		if seen[key] {
			out.Duplicates++
			continue
		}
		seen[key] = true
		entries = append(entries, entry{key: key, row: row, m: derive.Derive(row, race.Context)})
	}

	metric := e.opts.Metric
	if e.opts.NetPursuit && metric == derive.TimeResult && race.Context.Profile.Code == discipline.Pursuit {
		metric = derive.TimePursuitNet
	}

	switch e.opts.Mode {
	case TimeSum:
		for _, en := range entries {
			t, ok := en.m.Time(metric).Seconds()
			if !ok {
				continue
			}
			a := e.accumulator(en.key, en.row)
			a.TimeSum += t
			a.Races++
			if e.opts.WithShooting {
				a.addMisses(en.m.Misses)
			}
			out.Counted++
		}
	case MissSum:
		for _, en := range entries {
			if !en.m.Misses.Known {
				continue
			}
			a := e.accumulator(en.key, en.row)
			a.addMisses(en.m.Misses)
			a.Races++
			out.Counted++
		}
	case PositionAvg:
		ranks := positions(entries, func(i int) (float64, bool) {
			return entries[i].m.Time(metric).Seconds()
		})
		for i, en := range entries {
			a := e.accumulator(en.key, en.row)
			a.PositionSum += ranks[i]
			a.Races++
			if e.opts.WithShooting {
				a.addMisses(en.m.Misses)
			}
			a.detail(race.ID, strconv.Itoa(ranks[i]))
			out.Counted++
		}
	case PursuitGain:
		if race.Context.Profile.Code != discipline.Pursuit {
			break
		}
		for _, en := range entries {
			g := en.m.Gain
			if !g.Recorded() {
				continue
			}
			a := e.accumulator(en.key, en.row)
			a.detail(race.ID, g.String())
			if g.Known {
				a.Gain += g.Value
				a.Races++
				out.Counted++
			}
		}
	}

	out.Used = out.Counted > 0
	ref := RaceRef{ID: race.ID, Label: race.Label, Used: out.Used}
	if out.Used {
		e.racesUsed++
	} else {
		ref.Reason = "no usable data"
	}
	e.races = append(e.races, ref)
	return out
}

// positions ranks entries by value; entries without a value get ranks after
// every measured one, in result order. When nobody has a value the result
// order itself is used.
func positions[T any](entries []T, value func(int) (float64, bool)) []int {
	ranks := make([]int, len(entries))
	measured := make([]int, 0, len(entries))
	for i := range entries {
		if _, ok := value(i); ok {
			measured = append(measured, i)
		}
	}
	if len(measured) == 0 {
		for i := range ranks {
			ranks[i] = i + 1
		}
		return ranks
	}
	sort.SliceStable(measured, func(a, b int) bool {
		va, _ := value(measured[a])
		vb, _ := value(measured[b])
		return va < vb
	})
	for pos, i := range measured {
		ranks[i] = pos + 1
	}
	next := len(measured)
	for i := range entries {
		if ranks[i] == 0 {
			next++
			ranks[i] = next
		}
	}
	return ranks
}

func (e *Engine) accumulator(key string, row results.Row) *Accumulator {
	a, ok := e.acc[key]
	if !ok {
		a = &Accumulator{
			Key:     key,
			ID:      row.ID,
			Name:    row.Name,
			Nation:  row.Nation,
			WeakKey: results.IsWeakKey(key),
		}
		e.acc[key] = a
	}
	if a.ID == "" && row.ID != "" {
		a.ID = row.ID
	}
	return a
}

// Summary is the state of the engine after the last race.
type Summary struct {
	Mode         Mode
	Races        []RaceRef
	RacesUsed    int
	Accumulators []*Accumulator
}

// RacesFound is the number of races in scope, used or not.
func (s Summary) RacesFound() int { return len(s.Races) }

// UsedRaces lists the races that counted, in processing order.
func (s Summary) UsedRaces() []RaceRef {
	var used []RaceRef
	for _, r := range s.Races {
		if r.Used {
			used = append(used, r)
		}
	}
	return used
}

func (e *Engine) Summary() Summary {
	keys := make([]string, 0, len(e.acc))
	for k := range e.acc {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	accs := make([]*Accumulator, len(keys))
	for i, k := range keys {
		accs[i] = e.acc[k]
	}
	return Summary{
		Mode:         e.opts.Mode,
		Races:        slices.Clone(e.races),
		RacesUsed:    e.racesUsed,
		Accumulators: accs,
	}
}
