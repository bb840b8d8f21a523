// Package relay rebuilds per-leg splits and team totals of relay races.
package relay

import (
	"sort"
	"strconv"
	"strings"

	"biathlonstats/internal/discipline"
	"biathlonstats/internal/payload"
	"biathlonstats/internal/racetime"
	"biathlonstats/internal/results"
)

// LegKey addresses one leg of one team.
type LegKey struct {
	Bib string
	Leg int
}

// LegTimes is one analytic segment (course, range or shooting time) per leg.
type LegTimes map[LegKey]racetime.Duration

// ParseLegTimes reads an analytic result payload keyed by team bib and leg.
func ParseLegTimes(rec payload.Record) LegTimes {
	times := LegTimes{}
	list, _ := rec.List("Results")
	for _, item := range list {
		if item.Bool("IsTeam") {
			continue
		}
		bib := item.String("Bib")
		leg, ok := item.Int("Leg")
		if bib == "" || !ok {
			continue
		}
		if d := racetime.Parse(item.String("TotalTime", "Result")).Value; d.Measurable() {
			times[LegKey{Bib: bib, Leg: leg}] = d
		}
	}
	return times
}

// Shooting is a relay shooting count: penalty loops and spare rounds used.
type Shooting struct {
	Penalties int
	Spares    int
}

func (s Shooting) Add(o Shooting) Shooting {
	return Shooting{Penalties: s.Penalties + o.Penalties, Spares: s.Spares + o.Spares}
}

func (s Shooting) String() string {
	return strconv.Itoa(s.Penalties) + "+" + strconv.Itoa(s.Spares)
}

// ParseShooting reads one "p+s" pair.
func ParseShooting(text string) (Shooting, bool) {
	p, s, ok := strings.Cut(strings.TrimSpace(text), "+")
	if !ok {
		return Shooting{}, false
	}
	pn, err1 := strconv.Atoi(strings.TrimSpace(p))
	sn, err2 := strconv.Atoi(strings.TrimSpace(s))
	if err1 != nil || err2 != nil || pn < 0 || sn < 0 {
		return Shooting{}, false
	}
	return Shooting{Penalties: pn, Spares: sn}, true
}

// ParseLegShootings reads the prone and standing stage of a leg, written as
// "0+1 0+3" or "0+1+0+3".
func ParseLegShootings(text string) (prone, standing Shooting, ok bool) {
	fields := strings.Fields(strings.ReplaceAll(text, ",", " "))
	if len(fields) == 1 {
		parts := strings.Split(fields[0], "+")
		if len(parts) != 4 {
			return Shooting{}, Shooting{}, false
		}
		fields = []string{parts[0] + "+" + parts[1], parts[2] + "+" + parts[3]}
	}
	if len(fields) != 2 {
		return Shooting{}, Shooting{}, false
	}
	prone, ok1 := ParseShooting(fields[0])
	standing, ok2 := ParseShooting(fields[1])
	if !ok1 || !ok2 {
		return Shooting{}, Shooting{}, false
	}
	return prone, standing, true
}

// Leg is one athlete's leg within a team.
type Leg struct {
	Number       int
	ID           string
	Name         string
	Cumulative   racetime.Duration
	Split        racetime.Duration
	Course       racetime.Duration
	Range        racetime.Duration
	ShootingTime racetime.Duration
	Prone        Shooting
	Standing     Shooting
	HasShooting  bool
}

// Team is one relay team with its reconstructed legs.
type Team struct {
	Rank         int
	Ranked       bool
	Bib          string
	Name         string
	Nation       string
	ResultText   string
	Result       racetime.Duration
	Status       string
	Legs         []Leg
	Course       racetime.Duration
	Range        racetime.Duration
	ShootingTime racetime.Duration
	Penalty      racetime.Duration
	Prone        Shooting
	Standing     Shooting
}

// Misses is the team's combined shooting count.
func (t Team) Misses() Shooting { return t.Prone.Add(t.Standing) }

// Segments are the per-leg analytic times of one relay race.
type Segments struct {
	Course   LegTimes
	Range    LegTimes
	Shooting LegTimes
}

// Build assembles teams from the rows of a relay race. rows must include team
// rows (results.Options{IncludeTeams: true}).
func Build(rows []results.Row, p discipline.Profile, segs Segments) []Team {
	legs := p.Legs
	if legs == 0 {
		legs = 4
	}
	byBib := make(map[string][]results.Row)
	var teams []results.Row
	for _, r := range rows {
		if r.Team {
			teams = append(teams, r)
			continue
		}
		if r.Bib != "" {
			byBib[r.Bib] = append(byBib[r.Bib], r)
		}
	}
	for bib := range byBib {
		sort.SliceStable(byBib[bib], func(i, j int) bool { return byBib[bib][i].Leg < byBib[bib][j].Leg })
	}

	out := make([]Team, 0, len(teams))
	for _, tr := range teams {
		t := Team{
			Rank:       tr.Rank,
			Ranked:     tr.Ranked,
			Bib:        tr.Bib,
			Name:       tr.Name,
			Nation:     tr.Nation,
			ResultText: tr.Record.String("TotalTime", "Result"),
			Status:     tr.Status(),
		}
		t.Result = racetime.Parse(t.ResultText).Value
		t.Legs = buildLegs(tr.Bib, legs, byBib[tr.Bib], segs)
		t.Course, t.Range, t.ShootingTime = racetime.Unmeasurable, racetime.Unmeasurable, racetime.Unmeasurable
		for _, l := range t.Legs {
			t.Course = sumKnown(t.Course, l.Course)
			t.Range = sumKnown(t.Range, l.Range)
			t.ShootingTime = sumKnown(t.ShootingTime, l.ShootingTime)
			if l.HasShooting {
				t.Prone = t.Prone.Add(l.Prone)
				t.Standing = t.Standing.Add(l.Standing)
			}
		}
		t.Penalty = t.Result.Sub(t.Course).Sub(t.Range)
		out = append(out, t)
	}
	return out
}

func buildLegs(bib string, n int, rows []results.Row, segs Segments) []Leg {
	legs := make([]Leg, n)
	prev := racetime.Unmeasurable
	for i := range legs {
		num := i + 1
		l := Leg{Number: num}
		if r, ok := legRow(rows, num); ok {
			l.ID = r.ID
			l.Name = r.Name
			l.Cumulative = racetime.Parse(r.Record.String("TotalTime", "Result")).Value
			l.Prone, l.Standing, l.HasShooting = ParseLegShootings(r.Shootings)
		}
		if num == 1 {
			l.Split = l.Cumulative
		} else {
			l.Split = l.Cumulative.Sub(prev)
		}
		prev = l.Cumulative

		l.Course = legTime(segs.Course, bib, num)
		l.Range = legTime(segs.Range, bib, num)
		l.ShootingTime = legTime(segs.Shooting, bib, num)
		legs[i] = l
	}
	return legs
}

func legRow(rows []results.Row, leg int) (results.Row, bool) {
	for _, r := range rows {
		if r.Leg == leg {
			return r, true
		}
	}
	return results.Row{}, false
}

func legTime(times LegTimes, bib string, leg int) racetime.Duration {
	if d, ok := times[LegKey{Bib: bib, Leg: leg}]; ok {
		return d
	}
	return racetime.Unmeasurable
}

func sumKnown(total, d racetime.Duration) racetime.Duration {
	if !d.Measurable() {
		return total
	}
	if !total.Measurable() {
		return d
	}
	return total.Add(d)
}
