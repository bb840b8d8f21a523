// Package analytics awards badges to the athletes of a cumulation table.
package analytics

import (
	"biathlonstats/internal/cumulate"
	"biathlonstats/internal/ranking"
)

type BadgeID string

const (
	BadgeSharpshooter BadgeID = "sharpshooter"
	BadgeFlawless     BadgeID = "flawless"
	BadgeEverPresent  BadgeID = "ever_present"
	BadgeClimber      BadgeID = "climber"
	BadgePodium       BadgeID = "podium"
)

type Badge struct {
	ID          BadgeID `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
}

var AllBadges = map[BadgeID]Badge{
	BadgeSharpshooter: {ID: BadgeSharpshooter, Name: "Sharpshooter", Description: "95%+ hit rate over 40+ shots"},
	BadgeFlawless:     {ID: BadgeFlawless, Name: "Flawless", Description: "No missed target in the table"},
	BadgeEverPresent:  {ID: BadgeEverPresent, Name: "Ever Present", Description: "Counted in every race of 3+ used"},
	BadgeClimber:      {ID: BadgeClimber, Name: "Climber", Description: "Gained 10+ places in pursuits"},
	BadgePodium:       {ID: BadgePodium, Name: "Podium", Description: "Ranked in the top 3"},
}

// Thresholds of the badges.
const (
	sharpshooterAccuracy = 95.0
	sharpshooterShots    = 40
	everPresentRaces     = 3
	climberGain          = 10
)

// Evaluate checks which badges one row of t earned.
func Evaluate(row ranking.Row, t ranking.Table) []Badge {
	var earned []Badge

	if acc, ok := row.Accuracy(); ok && acc >= sharpshooterAccuracy && row.Shots >= sharpshooterShots {
		earned = append(earned, AllBadges[BadgeSharpshooter])
	}

	if row.Shots > 0 && row.Misses == 0 {
		earned = append(earned, AllBadges[BadgeFlawless])
	}

	if t.RacesUsed >= everPresentRaces && row.Races == t.RacesUsed {
		earned = append(earned, AllBadges[BadgeEverPresent])
	}

	if t.Mode == cumulate.PursuitGain && row.Gain >= climberGain {
		earned = append(earned, AllBadges[BadgeClimber])
	}

	if row.Rank >= 1 && row.Rank <= 3 {
		earned = append(earned, AllBadges[BadgePodium])
	}

	return earned
}

// Award is the badge list of one athlete.
type Award struct {
	Rank   int     `json:"rank"`
	Name   string  `json:"name"`
	Nation string  `json:"nation"`
	Badges []Badge `json:"badges"`
}

// Awards evaluates every row of t in table order and keeps the athletes who
// earned at least one badge.
func Awards(t ranking.Table) []Award {
	var out []Award
	for _, row := range t.Rows {
		badges := Evaluate(row, t)
		if len(badges) == 0 {
			continue
		}
		out = append(out, Award{Rank: row.Rank, Name: row.Name, Nation: row.Nation, Badges: badges})
	}
	return out
}
