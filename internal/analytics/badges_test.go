package analytics

import (
	"testing"

	"biathlonstats/internal/cumulate"
	"biathlonstats/internal/ranking"
)

func hasBadge(badges []Badge, id BadgeID) bool {
	for _, b := range badges {
		if b.ID == id {
			return true
		}
	}
	return false
}

func TestEvaluate_Sharpshooter(t *testing.T) {
	row := ranking.Row{Rank: 8, Races: 2, Misses: 2, Shots: 40}
	if !hasBadge(Evaluate(row, ranking.Table{RacesUsed: 2}), BadgeSharpshooter) {
		t.Error("should earn Sharpshooter with 38 of 40")
	}
}

func TestEvaluate_NoSharpshooterOnFewShots(t *testing.T) {
	row := ranking.Row{Rank: 8, Misses: 0, Shots: 20}
	badges := Evaluate(row, ranking.Table{})
	if hasBadge(badges, BadgeSharpshooter) {
		t.Error("should not earn Sharpshooter with 20 shots")
	}
	if !hasBadge(badges, BadgeFlawless) {
		t.Error("should earn Flawless with no misses")
	}
}

func TestEvaluate_NoSharpshooterBelowRate(t *testing.T) {
	row := ranking.Row{Rank: 8, Misses: 3, Shots: 40}
	if hasBadge(Evaluate(row, ranking.Table{}), BadgeSharpshooter) {
		t.Error("should not earn Sharpshooter with 37 of 40")
	}
}

func TestEvaluate_FlawlessNeedsShots(t *testing.T) {
	row := ranking.Row{Rank: 8}
	if hasBadge(Evaluate(row, ranking.Table{}), BadgeFlawless) {
		t.Error("should not earn Flawless without shooting data")
	}
}

func TestEvaluate_EverPresent(t *testing.T) {
	tbl := ranking.Table{RacesUsed: 3}
	if !hasBadge(Evaluate(ranking.Row{Races: 3}, tbl), BadgeEverPresent) {
		t.Error("should earn Ever Present in 3 of 3")
	}
	if hasBadge(Evaluate(ranking.Row{Races: 2}, tbl), BadgeEverPresent) {
		t.Error("should not earn Ever Present in 2 of 3")
	}
	if hasBadge(Evaluate(ranking.Row{Races: 2}, ranking.Table{RacesUsed: 2}), BadgeEverPresent) {
		t.Error("should not earn Ever Present with only 2 races used")
	}
}

func TestEvaluate_Climber(t *testing.T) {
	gain := ranking.Table{Mode: cumulate.PursuitGain}
	if !hasBadge(Evaluate(ranking.Row{Gain: 10}, gain), BadgeClimber) {
		t.Error("should earn Climber with 10 places")
	}
	if hasBadge(Evaluate(ranking.Row{Gain: 9}, gain), BadgeClimber) {
		t.Error("should not earn Climber with 9 places")
	}
	if hasBadge(Evaluate(ranking.Row{Gain: 12}, ranking.Table{Mode: cumulate.TimeSum}), BadgeClimber) {
		t.Error("should not earn Climber outside gain tables")
	}
}

func TestEvaluate_Podium(t *testing.T) {
	if !hasBadge(Evaluate(ranking.Row{Rank: 3}, ranking.Table{}), BadgePodium) {
		t.Error("should earn Podium at rank 3")
	}
	if hasBadge(Evaluate(ranking.Row{Rank: 4}, ranking.Table{}), BadgePodium) {
		t.Error("should not earn Podium at rank 4")
	}
}

func TestAwards_SkipsEmpty(t *testing.T) {
	tbl := ranking.Table{
		Mode: cumulate.TimeSum,
		Rows: []ranking.Row{
			{Rank: 1, Name: "Alma", Nation: "NOR"},
			{Rank: 7, Name: "Beth", Nation: "SWE"},
			{Rank: 9, Name: "Cara", Nation: "NOR", Shots: 20},
		},
	}
	awards := Awards(tbl)
	if len(awards) != 2 {
		t.Fatalf("len(Awards) = %d, want 2", len(awards))
	}
	if awards[0].Name != "Alma" || awards[1].Name != "Cara" {
		t.Errorf("Awards = %+v, want Alma then Cara", awards)
	}
	if awards[1].Badges[0].ID != BadgeFlawless {
		t.Errorf("Cara badge = %q, want %q", awards[1].Badges[0].ID, BadgeFlawless)
	}
}

func TestAllBadgesHaveMatchingIDs(t *testing.T) {
	for id, b := range AllBadges {
		if b.ID != id {
			t.Errorf("AllBadges[%q].ID = %q", id, b.ID)
		}
		if b.Name == "" || b.Description == "" {
			t.Errorf("AllBadges[%q] missing name or description", id)
		}
	}
}
