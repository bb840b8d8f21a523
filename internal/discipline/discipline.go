package discipline

import (
	"errors"
	"fmt"
	"strings"
)

type Code string

const (
	Sprint           Code = "SP"
	Pursuit          Code = "PU"
	Individual       Code = "IN"
	MassStart        Code = "MS"
	Relay            Code = "RL"
	SingleMixedRelay Code = "SR"
)

// PenaltyRule says how penalty time is derived for a discipline.
type PenaltyRule int

const (
	PenaltyUnsupported PenaltyRule = iota
	PenaltyMinute                  // fixed 60s per miss
	PenaltyLoop                    // result - ski - range
	PenaltyLoopFromStart           // (result - start delay) - ski - range
)

const ShotsPerStage = 5

// Profile holds the fixed course layout of a discipline. Relay profiles
// describe a single leg.
type Profile struct {
	Code    Code
	Name    string
	SkiLaps int
	Stages  int
	Legs    int
	Penalty PenaltyRule
}

// Shots is the full number of shots fired in one race (one leg for relays).
func (p Profile) Shots() int { return p.Stages * ShotsPerStage }

func (p Profile) IsRelay() bool { return p.Legs > 1 }

var profiles = map[Code]Profile{
	Sprint:           {Code: Sprint, Name: "Sprint", SkiLaps: 3, Stages: 2, Legs: 1, Penalty: PenaltyLoop},
	Pursuit:          {Code: Pursuit, Name: "Pursuit", SkiLaps: 5, Stages: 4, Legs: 1, Penalty: PenaltyLoopFromStart},
	Individual:       {Code: Individual, Name: "Individual", SkiLaps: 5, Stages: 4, Legs: 1, Penalty: PenaltyMinute},
	MassStart:        {Code: MassStart, Name: "Mass Start", SkiLaps: 5, Stages: 4, Legs: 1, Penalty: PenaltyLoop},
	Relay:            {Code: Relay, Name: "Relay", SkiLaps: 3, Stages: 2, Legs: 4},
	SingleMixedRelay: {Code: SingleMixedRelay, Name: "Single Mixed Relay", SkiLaps: 3, Stages: 2, Legs: 4},
}

// Lookup returns the profile for code. Unknown codes report false so callers
// can fall back to "breakdown not supported".
func Lookup(code string) (Profile, bool) {
	p, ok := profiles[Code(strings.ToUpper(strings.TrimSpace(code)))]
	return p, ok
}

var ErrUnknownDiscipline = errors.New("unknown discipline")

var selections = map[string][]Code{
	"sprint":     {Sprint},
	"pursuit":    {Pursuit},
	"individual": {Individual},
	"mass-start": {MassStart},
	"massstart":  {MassStart},
	"all":        {Individual, Sprint, Pursuit, MassStart},
}

// ParseSelection maps a user-facing discipline name to the codes it covers.
func ParseSelection(name string) ([]Code, error) {
	codes, ok := selections[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDiscipline, name)
	}
	return append([]Code(nil), codes...), nil
}

// Category codes used by the results service.
const (
	Women = "SW"
	Men   = "SM"
	Mixed = "MX"
)

func Category(men bool) string {
	if men {
		return Men
	}
	return Women
}

var scoreTypes = map[string]string{
	"total":      "TS",
	"sprint":     string(Sprint),
	"pursuit":    string(Pursuit),
	"individual": string(Individual),
	"massstart":  string(MassStart),
	"mass-start": string(MassStart),
	"relay":      string(Relay),
	"nations":    "NC",
}

// ScoreType maps a standings type ("total", "sprint", ...) to the cup
// discipline id.
func ScoreType(name string) (string, bool) {
	id, ok := scoreTypes[strings.ToLower(name)]
	return id, ok
}
