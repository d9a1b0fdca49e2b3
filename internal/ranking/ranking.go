// Package ranking turns an in-memory set of agents into the three palmares
// leaderboards and the global statistics shown next to them.
//
// Every function here is pure: inputs are never mutated and there is no error
// path. Ties keep the input order, so callers that load agents by
// agent_number get agent_number as the implicit tie-break.
package ranking

import (
	"math"
	"slices"

	"github.com/bcrosbie/noose/internal/domain"
	"github.com/shopspring/decimal"
)

// DefaultSize is how many agents each leaderboard shows unless configured.
const DefaultSize = 5

type Tier string

const (
	TierGold    Tier = "gold"
	TierSilver  Tier = "silver"
	TierBronze  Tier = "bronze"
	TierDefault Tier = "default"
)

// TierFor maps a 1-based rank to its badge tier.
func TierFor(rank int) Tier {
	switch rank {
	case 1:
		return TierGold
	case 2:
		return TierSilver
	case 3:
		return TierBronze
	default:
		return TierDefault
	}
}

type Standing struct {
	Rank  int           `json:"rank"`
	Tier  Tier          `json:"tier"`
	Score domain.Amount `json:"score"`
	Agent domain.Agent  `json:"agent"`
}

type Summary struct {
	AgentCount               int           `json:"agent_count"`
	TotalAccidents           int64         `json:"total_accidents"`
	TotalCost                domain.Amount `json:"total_cost"`
	AverageAccidentsPerAgent float64       `json:"average_accidents_per_agent"`
}

type Leaderboard struct {
	Size       int        `json:"size"`
	ByAccident []Standing `json:"by_accidents"`
	ByCost     []Standing `json:"by_cost"`
	ByCombined []Standing `json:"by_combined"`
	Summary    Summary    `json:"summary"`
}

type scoreFunc func(domain.Agent) decimal.Decimal

func accidentScore(a domain.Agent) decimal.Decimal {
	return decimal.NewFromInt(a.TotalAccidents)
}

func costScore(a domain.Agent) decimal.Decimal {
	return a.TotalCost.Decimal
}

func combinedScore(a domain.Agent) decimal.Decimal {
	return a.CombinedScore()
}

// ByAccidents returns the n agents with the most accidents, highest first.
func ByAccidents(agents []domain.Agent, n int) []domain.Agent {
	return top(agents, n, accidentScore)
}

// ByCost returns the n agents with the highest total cost.
func ByCost(agents []domain.Agent, n int) []domain.Agent {
	return top(agents, n, costScore)
}

// ByCombined ranks on accidents multiplied by cost.
func ByCombined(agents []domain.Agent, n int) []domain.Agent {
	return top(agents, n, combinedScore)
}

func top(agents []domain.Agent, n int, score scoreFunc) []domain.Agent {
	if n <= 0 || len(agents) == 0 {
		return []domain.Agent{}
	}
	sorted := slices.Clone(agents)
	slices.SortStableFunc(sorted, func(a, b domain.Agent) int {
		return score(b).Cmp(score(a))
	})
	return sorted[:min(n, len(sorted))]
}

// Summarize computes the global statistics. The average is rounded to two
// decimals and is zero for an empty set.
func Summarize(agents []domain.Agent) Summary {
	summary := Summary{AgentCount: len(agents)}
	totalCost := decimal.Zero
	for _, agent := range agents {
		summary.TotalAccidents += agent.TotalAccidents
		totalCost = totalCost.Add(agent.TotalCost.Decimal)
	}
	summary.TotalCost = domain.NewAmount(totalCost)
	if summary.AgentCount > 0 {
		average := float64(summary.TotalAccidents) / float64(summary.AgentCount)
		summary.AverageAccidentsPerAgent = math.Round(average*100) / 100
	}
	return summary
}

// Build assembles the full palmares view for the top n agents per board.
func Build(agents []domain.Agent, n int) Leaderboard {
	return Leaderboard{
		Size:       max(n, 0),
		ByAccident: standings(ByAccidents(agents, n), accidentScore),
		ByCost:     standings(ByCost(agents, n), costScore),
		ByCombined: standings(ByCombined(agents, n), combinedScore),
		Summary:    Summarize(agents),
	}
}

func standings(ranked []domain.Agent, score scoreFunc) []Standing {
	out := make([]Standing, 0, len(ranked))
	for index, agent := range ranked {
		rank := index + 1
		out = append(out, Standing{
			Rank:  rank,
			Tier:  TierFor(rank),
			Score: domain.NewAmount(score(agent)),
			Agent: agent,
		})
	}
	return out
}

// CostBand classifies a single accident cost for display colouring.
type CostBand string

const (
	CostFree   CostBand = "free"
	CostLow    CostBand = "low"
	CostMedium CostBand = "medium"
	CostSevere CostBand = "severe"
)

const (
	lowCeiling    = 100
	mediumCeiling = 1000
)

func BandFor(cost domain.Amount) CostBand {
	switch {
	case cost.IsZero():
		return CostFree
	case cost.Cmp(decimal.NewFromInt(lowCeiling)) < 0:
		return CostLow
	case cost.Cmp(decimal.NewFromInt(mediumCeiling)) < 0:
		return CostMedium
	default:
		return CostSevere
	}
}
