package cumulate

import (
	"biathlonstats/internal/derive"
	"biathlonstats/internal/racetime"
)

// Accumulator is the running total of one athlete across the races of a run.
type Accumulator struct {
	Key     string
	ID      string
	Name    string
	Nation  string
	WeakKey bool // keyed by bib or name, not a federation id

	Races int

	TimeSum float64

	Misses        int
	Prone         int
	Standing      int
	Shots         int
	ShotsProne    int
	ShotsStanding int
	LowConfidence bool

	PositionSum int

	Gain int

	// Detail holds a per-race display value keyed by race id.
	Detail map[string]string
}

func (a *Accumulator) addMisses(ms derive.MissSplit) {
	if !ms.Known {
		return
	}
	a.Misses += ms.Total
	a.Prone += ms.Prone
	a.Standing += ms.Standing
	a.Shots += ms.Shots
	a.ShotsProne += ms.ShotsProne
	a.ShotsStanding += ms.ShotsStanding
	if ms.LowConfidence {
		a.LowConfidence = true
	}
}

func (a *Accumulator) detail(raceID, value string) {
	if a.Detail == nil {
		a.Detail = make(map[string]string)
	}
	a.Detail[raceID] = value
}

// Time is the summed time as a duration.
func (a *Accumulator) Time() racetime.Duration {
	if a.Races == 0 {
		return racetime.Unmeasurable
	}
	return racetime.Of(a.TimeSum)
}

// AveragePosition is PositionSum divided by the races counted.
func (a *Accumulator) AveragePosition() float64 {
	if a.Races == 0 {
		return 0
	}
	return float64(a.PositionSum) / float64(a.Races)
}
