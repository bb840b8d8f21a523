package derive

import (
	"regexp"
	"strconv"
	"strings"

	"biathlonstats/internal/discipline"
	"biathlonstats/internal/results"
)

// MissSplit is the shooting outcome of one competitor in one race.
type MissSplit struct {
	Known         bool // shooting data was present
	Stages        int
	Total         int
	Prone         int
	Standing      int
	ShotsProne    int
	ShotsStanding int
	Shots         int
	// LowConfidence marks splits inferred positionally from a stage count
	// that does not match the discipline, or from unreadable stage tokens.
	LowConfidence bool
}

var digitRuns = regexp.MustCompile(`\d+`)

// SplitMisses reads a "+"-joined per-stage string such as "0+1+0+2" and an
// optional total. The first half of the stages (rounded up) is prone, the
// rest standing.
func SplitMisses(stages, total string, ctx Context) MissSplit {
	var ms MissSplit
	parts := stageTokens(stages)
	if len(parts) == 0 {
		n, ok := sumDigits(total)
		if !ok {
			return ms
		}
		ms.Known = true
		ms.Total = n
		ms.Shots = ctx.Profile.Shots()
		ms.LowConfidence = true
		return ms
	}

	ms.Known = true
	ms.Stages = len(parts)
	proneStages := (len(parts) + 1) / 2
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			n = 0
			ms.LowConfidence = true
		}
		if i < proneStages {
			ms.Prone += n
		} else {
			ms.Standing += n
		}
	}
	ms.Total = ms.Prone + ms.Standing
	ms.ShotsProne = proneStages * discipline.ShotsPerStage
	ms.ShotsStanding = (len(parts) - proneStages) * discipline.ShotsPerStage
	ms.Shots = len(parts) * discipline.ShotsPerStage

	if len(parts) > 4 || !ctx.Supported() || len(parts) != ctx.Profile.Stages {
		ms.LowConfidence = true
	}
	if n, ok := sumDigits(total); ok && n != ms.Total {
		ms.LowConfidence = true
	}
	return ms
}

func stageTokens(s string) []string {
	var parts []string
	for _, p := range strings.Split(s, "+") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func sumDigits(s string) (int, bool) {
	runs := digitRuns.FindAllString(s, -1)
	if len(runs) == 0 {
		return 0, false
	}
	total := 0
	for _, r := range runs {
		n, _ := strconv.Atoi(r)
		total += n
	}
	return total, true
}

// Accuracy is the hit percentage, ok false when no shots were fired.
func Accuracy(misses, shots int) (float64, bool) {
	if shots <= 0 {
		return 0, false
	}
	return (1 - float64(misses)/float64(shots)) * 100, true
}

// Gain is the number of places won in a pursuit between start and finish.
type Gain struct {
	Known  bool
	Value  int
	Start  int
	Finish int
	// Status is the non-finish marker (DNS, DNF, LAP, ...) of competitors
	// that have no numeric gain.
	Status string
}

// Recorded reports whether the row belongs in a gain table at all.
func (g Gain) Recorded() bool { return g.Known || g.Status != "" }

func (g Gain) String() string {
	switch {
	case !g.Known && g.Status != "":
		return g.Status
	case !g.Known:
		return "-"
	case g.Value > 0:
		return "+" + strconv.Itoa(g.Value)
	}
	return strconv.Itoa(g.Value)
}

// PlacesGained computes start rank minus finish rank.
func PlacesGained(row results.Row) Gain {
	if status := row.Status(); status != "" {
		return Gain{Status: status, Start: row.StartOrder}
	}
	finish, ok := row.FinishRank()
	if !ok || !row.HasStartOrder {
		return Gain{}
	}
	if finish > results.DidNotFinishRank {
		return Gain{Status: "DNF", Start: row.StartOrder}
	}
	return Gain{
		Known:  true,
		Value:  row.StartOrder - finish,
		Start:  row.StartOrder,
		Finish: finish,
	}
}
