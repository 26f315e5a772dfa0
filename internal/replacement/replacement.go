// Package replacement computes positional replacement baselines and turns
// raw fantasy output into Value Above Replacement (VAR).
package replacement

import (
	"log/slog"
	"sort"

	"github.com/albapepper/keeper-analytics/internal/league"
	"github.com/albapepper/keeper-analytics/internal/pricing"
	"github.com/albapepper/keeper-analytics/internal/stats"
)

// Baseline is the replacement-level output for a (season, position).
type Baseline struct {
	Season            int     `json:"season"`
	Position          string  `json:"position"`
	ReplacementRank   int     `json:"replacement_rank"`
	ReplacementPoints float64 `json:"replacement_points"`
	PlayersRanked     int     `json:"players_ranked"`
	FellBack          bool    `json:"fell_back_to_min"`
}

// Key identifies a baseline.
type Key struct {
	Season   int
	Position string
}

// PlayerKey identifies a player-season.
type PlayerKey struct {
	Season   int
	PlayerID string
}

// ValuedPick is a normalized pick with realized output and VAR.
type ValuedPick struct {
	pricing.NormalizedPick
	Points              *float64 `json:"fantasy_points_total"`
	GamesPlayed         *int     `json:"games_played,omitempty"`
	ReplacementBaseline *float64 `json:"replacement_baseline_points"`
	VAR                 *float64 `json:"VAR"`
	VARPerDollar        *float64 `json:"VAR_per_dollar"`
	DollarPerVAR        *float64 `json:"dollar_per_VAR"`
}

// PlayerValue is VAR for any player-season, drafted or not.
type PlayerValue struct {
	Season     int      `json:"season"`
	PlayerID   string   `json:"player_id"`
	PlayerName string   `json:"player_name"`
	Position   string   `json:"position"`
	Points     *float64 `json:"fantasy_points_total"`
	VAR        *float64 `json:"VAR"`
}

// Baselines ranks observed output per (season, position) and returns the
// replacement baseline for each scoring position plus a FLEX baseline when
// the season has flex slots.
func Baselines(results []league.PlayerResult, configs map[int]league.SeasonConfig, logger *slog.Logger) []Baseline {
	points := make(map[Key][]float64)
	seasons := make(map[int]bool)
	for _, r := range results {
		if r.Points == nil {
			continue
		}
		k := Key{r.Season, r.Position}
		points[k] = append(points[k], *r.Points)
		seasons[r.Season] = true
	}

	ordered := make([]int, 0, len(seasons))
	for s := range seasons {
		ordered = append(ordered, s)
	}
	sort.Ints(ordered)

	var out []Baseline
	for _, season := range ordered {
		cfg, ok := configs[season]
		if !ok {
			logger.Warn("Season has no configuration, using defaults for replacement ranks", "season", season)
			cfg = league.DefaultSeasonConfig(season)
		}

		perPos := make(map[string]float64)
		for _, pos := range league.ScoringPositions {
			pts := points[Key{season, pos}]
			if len(pts) == 0 {
				logger.Warn("No results with points at position", "season", season, "position", pos)
				continue
			}
			b := baselineFor(season, pos, pts, cfg.NumTeams*cfg.Starters(pos))
			perPos[pos] = b.ReplacementPoints
			out = append(out, b)
		}

		if cfg.Starters(league.Flex) > 0 {
			var best *float64
			for _, pos := range league.FlexEligible {
				if v, ok := perPos[pos]; ok && (best == nil || v > *best) {
					best = stats.Ptr(v)
				}
			}
			if best != nil {
				out = append(out, Baseline{
					Season:            season,
					Position:          league.Flex,
					ReplacementRank:   cfg.NumTeams * cfg.Starters(league.Flex),
					ReplacementPoints: *best,
				})
			}
		}
	}
	return out
}

func baselineFor(season int, pos string, pts []float64, rank int) Baseline {
	sorted := make([]float64, len(pts))
	copy(sorted, pts)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	b := Baseline{
		Season:          season,
		Position:        pos,
		ReplacementRank: rank,
		PlayersRanked:   len(sorted),
	}
	if rank >= 1 && rank <= len(sorted) {
		b.ReplacementPoints = sorted[rank-1]
	} else {
		b.ReplacementPoints = sorted[len(sorted)-1]
		b.FellBack = true
	}
	return b
}

// Index maps baselines by key.
func Index(baselines []Baseline) map[Key]float64 {
	idx := make(map[Key]float64, len(baselines))
	for _, b := range baselines {
		idx[Key{b.Season, b.Position}] = b.ReplacementPoints
	}
	return idx
}

// VAR returns points minus the baseline, nil when either is unknown.
func VAR(points *float64, baseline float64, ok bool) *float64 {
	if points == nil || !ok {
		return nil
	}
	return stats.Ptr(*points - baseline)
}

// Apply joins picks to results by (season, player) and computes VAR and
// dollar efficiency for each pick.
func Apply(picks []pricing.NormalizedPick, results []league.PlayerResult, baselines []Baseline) []ValuedPick {
	byPlayer := make(map[PlayerKey]league.PlayerResult, len(results))
	for _, r := range results {
		byPlayer[PlayerKey{r.Season, r.PlayerID}] = r
	}
	idx := Index(baselines)

	out := make([]ValuedPick, len(picks))
	for i, p := range picks {
		v := ValuedPick{NormalizedPick: p}
		if r, ok := byPlayer[PlayerKey{p.Season, p.PlayerID}]; ok {
			v.Points = r.Points
			v.GamesPlayed = r.GamesPlayed
		}
		base, ok := idx[Key{p.Season, p.Position}]
		if ok {
			v.ReplacementBaseline = stats.Ptr(base)
		}
		v.VAR = VAR(v.Points, base, ok)
		if v.VAR != nil {
			v.VARPerDollar = stats.Ratio(*v.VAR, p.NormalizedPrice)
			v.DollarPerVAR = stats.Ratio(p.NormalizedPrice, *v.VAR)
		}
		out[i] = v
	}
	return out
}

// PlayerValues computes VAR for every player-season result.
func PlayerValues(results []league.PlayerResult, baselines []Baseline) []PlayerValue {
	idx := Index(baselines)
	out := make([]PlayerValue, 0, len(results))
	for _, r := range results {
		base, ok := idx[Key{r.Season, r.Position}]
		out = append(out, PlayerValue{
			Season:     r.Season,
			PlayerID:   r.PlayerID,
			PlayerName: r.PlayerName,
			Position:   r.Position,
			Points:     r.Points,
			VAR:        VAR(r.Points, base, ok),
		})
	}
	return out
}

// ValueIndex maps player-seasons to VAR for joins in later stages.
func ValueIndex(values []PlayerValue) map[PlayerKey]PlayerValue {
	idx := make(map[PlayerKey]PlayerValue, len(values))
	for _, v := range values {
		idx[PlayerKey{v.Season, v.PlayerID}] = v
	}
	return idx
}
