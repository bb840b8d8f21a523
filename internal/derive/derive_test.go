package derive

import (
	"fmt"
	"strings"
	"testing"

	"biathlonstats/internal/discipline"
	"biathlonstats/internal/payload"
	"biathlonstats/internal/racetime"
	"biathlonstats/internal/results"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func profile(t *testing.T, code string) discipline.Profile {
	t.Helper()
	p, ok := discipline.Lookup(code)
	require.True(t, ok, "profile %s", code)
	return p
}

func row(fields map[string]any) results.Row {
	return results.FromRecord(payload.FromMap(fields))
}

func TestDerive_IndividualShooting(t *testing.T) {
	ctx := Context{Profile: profile(t, "IN")}
	m := Derive(row(map[string]any{"Shootings": "1+0+2+1", "ShootingTotal": "4", "Result": "50:12.0"}), ctx)

	assert.Equal(t, 4, m.Misses.Total)
	assert.Equal(t, 1, m.Misses.Prone)
	assert.Equal(t, 3, m.Misses.Standing)
	assert.Equal(t, 20, m.Misses.Shots)
	assert.False(t, m.Misses.LowConfidence)
	assert.Equal(t, "4:00.0", racetime.Format(m.Penalty))
}

func TestDerive_SprintPenalty(t *testing.T) {
	ctx := Context{Profile: profile(t, "SP")}
	m := Derive(row(map[string]any{
		"Result":         "24:15.3",
		"TotalSkiTime":   "20:00.0",
		"TotalRangeTime": "3:00.0",
	}), ctx)
	assert.Equal(t, "1:15.3", racetime.Format(m.Penalty))
}

func TestDerive_NegativePenaltyIsUnmeasurable(t *testing.T) {
	ctx := Context{Profile: profile(t, "MS")}
	m := Derive(row(map[string]any{
		"Result":         "20:00.0",
		"TotalSkiTime":   "19:00.0",
		"TotalRangeTime": "2:00.0",
	}), ctx)
	if m.Penalty.Measurable() {
		t.Errorf("Penalty = %s, want unmeasurable", m.Penalty)
	}
}

func TestDerive_PursuitPenaltyNeedsStartDelay(t *testing.T) {
	ctx := Context{Profile: profile(t, "PU")}
	withDelay := Derive(row(map[string]any{
		"Result":         "30:00.0",
		"StartInfo":      "+0:30",
		"TotalSkiTime":   "25:00.0",
		"TotalRangeTime": "3:00.0",
	}), ctx)
	assert.Equal(t, "1:30.0", racetime.Format(withDelay.Penalty))
	assert.Equal(t, "29:30.0", racetime.Format(withDelay.PursuitNet))

	noDelay := Derive(row(map[string]any{
		"Result":         "30:00.0",
		"TotalSkiTime":   "25:00.0",
		"TotalRangeTime": "3:00.0",
	}), ctx)
	assert.False(t, noDelay.Penalty.Measurable())
	assert.False(t, noDelay.PursuitNet.Measurable())
}

func TestDerive_RelativeResult(t *testing.T) {
	ctx := Context{Profile: profile(t, "SP"), Leader: racetime.Parse("24:15.3").Value}
	m := Derive(row(map[string]any{"Result": "+12.1"}), ctx)
	assert.Equal(t, "24:27.4", racetime.Format(m.Result))

	m = Derive(row(map[string]any{"Result": "+12.1"}), Context{Profile: profile(t, "SP")})
	assert.False(t, m.Result.Measurable(), "no leader, relative result")
}

func TestDerive_SegmentsPreferredOverRowFields(t *testing.T) {
	analytic, err := payload.DecodeObject([]byte(`{"Results":[
		{"IBUId":"BT1","TotalTime":"21:00.0"},
		{"IBUId":"TEAM","IsTeam":true,"TotalTime":"1:00.0"}
	]}`))
	require.NoError(t, err)

	segs := Segments{}
	segs.Add(Ski, analytic)
	ctx := Context{Profile: profile(t, "SP"), Segments: segs}

	m := Derive(row(map[string]any{"IBUId": "BT1", "TotalSkiTime": "20:00.0"}), ctx)
	assert.Equal(t, "21:00.0", racetime.Format(m.Ski))

	other := Derive(row(map[string]any{"IBUId": "BT2", "TotalSkiTime": "20:00.0"}), ctx)
	assert.Equal(t, "20:00.0", racetime.Format(other.Ski))
	assert.Empty(t, segs[Ski]["TEAM"])
}

func TestDerive_SkiFallsBackToCourse(t *testing.T) {
	m := Derive(row(map[string]any{"CourseTime": "22:10.0"}), Context{Profile: profile(t, "SP")})
	assert.Equal(t, "22:10.0", racetime.Format(m.Ski))
	assert.Equal(t, "22:10.0", racetime.Format(m.Course))
}

func TestDerive_DNSHasNoResult(t *testing.T) {
	m := Derive(row(map[string]any{"IRM": "DNS", "Result": "24:00.0"}), Context{Profile: profile(t, "SP")})
	assert.False(t, m.Result.Measurable())
	assert.Equal(t, "DNS", m.Gain.Status)
}

func TestSplitMisses_StageRules(t *testing.T) {
	tests := []struct {
		name           string
		code           string
		stages         string
		prone, stand   int
		shotsP, shotsS int
		low            bool
	}{
		{"sprint", "SP", "1+2", 1, 2, 5, 5, false},
		{"three", "MS", "1+0+3", 1, 3, 10, 5, true},
		{"one", "SP", "2", 2, 0, 5, 0, true},
		{"relay-combined", "RL", "0+1+1+0+2+0", 2, 2, 15, 15, true},
		{"bad-token", "SP", "1+x", 1, 0, 5, 5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := SplitMisses(tt.stages, "", Context{Profile: profile(t, tt.code)})
			if ms.Prone != tt.prone || ms.Standing != tt.stand {
				t.Errorf("split = %d/%d, want %d/%d", ms.Prone, ms.Standing, tt.prone, tt.stand)
			}
			if ms.ShotsProne != tt.shotsP || ms.ShotsStanding != tt.shotsS {
				t.Errorf("shots = %d/%d, want %d/%d", ms.ShotsProne, ms.ShotsStanding, tt.shotsP, tt.shotsS)
			}
			if ms.LowConfidence != tt.low {
				t.Errorf("LowConfidence = %v, want %v", ms.LowConfidence, tt.low)
			}
		})
	}
}

func TestSplitMisses_TotalOnly(t *testing.T) {
	ms := SplitMisses("", "3", Context{Profile: profile(t, "PU")})
	assert.True(t, ms.Known)
	assert.Equal(t, 3, ms.Total)
	assert.Equal(t, 20, ms.Shots)

	none := SplitMisses("", "", Context{Profile: profile(t, "PU")})
	assert.False(t, none.Known)
}

func TestSplitMisses_TotalMismatchKeepsStageSum(t *testing.T) {
	ms := SplitMisses("1+0+2+1", "6", Context{Profile: profile(t, "IN")})
	assert.Equal(t, 4, ms.Total)
	assert.Equal(t, 1, ms.Prone)
	assert.Equal(t, 3, ms.Standing)
	assert.True(t, ms.LowConfidence)

	agree := SplitMisses("1+0+2+1", "4", Context{Profile: profile(t, "IN")})
	assert.Equal(t, 4, agree.Total)
	assert.False(t, agree.LowConfidence)
}

func TestSplitMisses_UnknownDiscipline(t *testing.T) {
	ms := SplitMisses("0+1", "", Context{})
	assert.True(t, ms.Known)
	assert.True(t, ms.LowConfidence)
	assert.Equal(t, 10, ms.Shots)
}

func TestSplitMisses_ProneStandingSumsToTotal(t *testing.T) {
	f := gofakeit.New(7)
	ctx := Context{Profile: profile(t, "IN")}
	for i := 0; i < 1000; i++ {
		n := f.IntRange(2, 8)
		parts := make([]string, n)
		for j := range parts {
			parts[j] = fmt.Sprint(f.IntRange(0, 5))
		}
		ms := SplitMisses(strings.Join(parts, "+"), "", ctx)
		if ms.Prone+ms.Standing != ms.Total {
			t.Fatalf("%v: prone %d + standing %d != total %d", parts, ms.Prone, ms.Standing, ms.Total)
		}
	}
}

func TestPlacesGained(t *testing.T) {
	up := PlacesGained(row(map[string]any{"StartOrder": 5, "Rank": "2"}))
	down := PlacesGained(row(map[string]any{"StartOrder": 2, "Rank": "5"}))
	assert.Equal(t, "+3", up.String())
	assert.Equal(t, "-3", down.String())

	lapped := PlacesGained(row(map[string]any{"StartOrder": 9, "IRM": "LAP"}))
	assert.False(t, lapped.Known)
	assert.True(t, lapped.Recorded())
	assert.Equal(t, "LAP", lapped.String())

	placeholder := PlacesGained(row(map[string]any{"StartOrder": 9, "Rank": "10000"}))
	assert.Equal(t, "DNF", placeholder.Status)

	noStart := PlacesGained(row(map[string]any{"Rank": "3"}))
	assert.False(t, noStart.Recorded())
}

func TestAccuracy(t *testing.T) {
	acc, ok := Accuracy(2, 20)
	assert.True(t, ok)
	assert.InDelta(t, 90.0, acc, 1e-9)

	_, ok = Accuracy(0, 0)
	assert.False(t, ok)
}
