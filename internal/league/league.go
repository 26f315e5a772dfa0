// Package league defines the source tables every analysis stage consumes:
// season economics, draft picks, roster transactions, player output,
// standings, team ownership and the optional weekly matchup and lineup
// splits. A Dataset is loaded once per run and never mutated afterwards.
package league

import (
	"sort"
	"time"
)

// --------------------------------------------------------------------------
// Positions
// --------------------------------------------------------------------------

const (
	QB   = "QB"
	RB   = "RB"
	WR   = "WR"
	TE   = "TE"
	Flex = "FLEX"
)

// ScoringPositions are the positions that receive a replacement baseline.
var ScoringPositions = []string{QB, RB, WR, TE}

// FlexEligible are the positions that may fill a FLEX slot.
var FlexEligible = []string{RB, WR, TE}

// Transaction player actions.
const (
	ActionAdd   = "ADD"
	ActionDrop  = "DROP"
	ActionTrade = "TRADE"
)

// --------------------------------------------------------------------------
// Season configuration
// --------------------------------------------------------------------------

// SeasonConfig holds league economics and roster shape for one season.
type SeasonConfig struct {
	Season         int            `json:"season" mapstructure:"season"`
	NumTeams       int            `json:"num_teams" mapstructure:"num_teams"`
	AuctionBudget  float64        `json:"auction_budget" mapstructure:"auction_budget"`
	StartingSlots  map[string]int `json:"starting_slots_by_position" mapstructure:"starting_slots"`
	BenchSlots     int            `json:"bench_slots" mapstructure:"bench_slots"`
	KeepersPerTeam int            `json:"keepers_per_team" mapstructure:"keepers_per_team"`
}

// DefaultSeasonConfig returns the values substituted when provider metadata
// is incomplete.
func DefaultSeasonConfig(season int) SeasonConfig {
	return SeasonConfig{
		Season:         season,
		NumTeams:       12,
		AuctionBudget:  200,
		StartingSlots:  map[string]int{QB: 1, RB: 2, WR: 2, TE: 1, Flex: 1},
		BenchSlots:     6,
		KeepersPerTeam: 2,
	}
}

// Starters returns the starting slot count at a position (0 if absent).
func (c SeasonConfig) Starters(pos string) int {
	return c.StartingSlots[pos]
}

// TotalStarters sums every starting slot, FLEX included.
func (c SeasonConfig) TotalStarters() int {
	n := 0
	for _, v := range c.StartingSlots {
		n += v
	}
	return n
}

// RosterSpots is the league-wide count of starting plus bench spots.
func (c SeasonConfig) RosterSpots() int {
	return c.NumTeams * (c.TotalStarters() + c.BenchSlots)
}

// Fill returns a copy with missing fields replaced from def. Team count,
// budget and slots are missing when zero or empty. Zero bench and keeper
// counts are real league settings and are kept; only negative ones are
// replaced.
func (c SeasonConfig) Fill(def SeasonConfig) SeasonConfig {
	out := c
	if out.NumTeams <= 0 {
		out.NumTeams = def.NumTeams
	}
	if out.AuctionBudget <= 0 {
		out.AuctionBudget = def.AuctionBudget
	}
	if len(out.StartingSlots) == 0 {
		out.StartingSlots = copySlots(def.StartingSlots)
	}
	if out.BenchSlots < 0 {
		out.BenchSlots = def.BenchSlots
	}
	if out.KeepersPerTeam < 0 {
		out.KeepersPerTeam = def.KeepersPerTeam
	}
	return out
}

// SeasonOverride is a partially specified SeasonConfig as read from a
// settings file, a season dump or a season_config row. A nil field was
// absent at the source and leaves the base value alone.
type SeasonOverride struct {
	Season         int            `mapstructure:"-"`
	NumTeams       *int           `mapstructure:"num_teams"`
	AuctionBudget  *float64       `mapstructure:"auction_budget"`
	StartingSlots  map[string]int `mapstructure:"starting_slots"`
	BenchSlots     *int           `mapstructure:"bench_slots"`
	KeepersPerTeam *int           `mapstructure:"keepers_per_team"`
}

// Apply returns base with every present field of o written over it.
// Non-positive team counts and budgets, and negative bench or keeper
// counts, are ignored.
func (o SeasonOverride) Apply(base SeasonConfig) SeasonConfig {
	out := base
	out.StartingSlots = copySlots(base.StartingSlots)
	if o.NumTeams != nil && *o.NumTeams > 0 {
		out.NumTeams = *o.NumTeams
	}
	if o.AuctionBudget != nil && *o.AuctionBudget > 0 {
		out.AuctionBudget = *o.AuctionBudget
	}
	if len(o.StartingSlots) > 0 {
		out.StartingSlots = copySlots(o.StartingSlots)
	}
	if o.BenchSlots != nil && *o.BenchSlots >= 0 {
		out.BenchSlots = *o.BenchSlots
	}
	if o.KeepersPerTeam != nil && *o.KeepersPerTeam >= 0 {
		out.KeepersPerTeam = *o.KeepersPerTeam
	}
	return out
}

func copySlots(in map[string]int) map[string]int {
	if in == nil {
		return nil
	}
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// --------------------------------------------------------------------------
// Source rows
// --------------------------------------------------------------------------

// DraftPick is one drafted player-season. Cost is always >= 0.
type DraftPick struct {
	Season     int      `json:"season"`
	PlayerID   string   `json:"player_id"`
	PlayerName string   `json:"player_name"`
	Position   string   `json:"position"`
	TeamID     string   `json:"team_id"`
	Cost       float64  `json:"cost"`
	IsKeeper   bool     `json:"is_keeper"`
	KeeperCost *float64 `json:"keeper_cost,omitempty"`
	Round      int      `json:"round,omitempty"`
	Pick       int      `json:"pick,omitempty"`
}

// LockedCost is the keeper-locked cost when recorded, else the paid cost.
func (p DraftPick) LockedCost() float64 {
	if p.KeeperCost != nil {
		return *p.KeeperCost
	}
	return p.Cost
}

// Transaction is one player movement inside a roster transaction. Rows that
// share TransactionID belong to the same transaction; Seq preserves the order
// rows were encountered in the source.
type Transaction struct {
	Season         int       `json:"season"`
	TransactionID  string    `json:"transaction_id"`
	Type           string    `json:"type"`
	Timestamp      time.Time `json:"timestamp"`
	Status         string    `json:"status,omitempty"`
	PlayerID       string    `json:"player_id,omitempty"`
	PlayerName     string    `json:"player_name,omitempty"`
	Action         string    `json:"action,omitempty"`
	FromTeam       string    `json:"from_team,omitempty"`
	ToTeam         string    `json:"to_team,omitempty"`
	BidAmount      *float64  `json:"bid_amount,omitempty"`
	WaiverPriority *int      `json:"waiver_priority,omitempty"`
	Seq            int       `json:"seq"`
}

// PlayerResult is season output for one player. Points is nil when
// unobserved, which is distinct from zero.
type PlayerResult struct {
	Season      int      `json:"season"`
	PlayerID    string   `json:"player_id"`
	PlayerName  string   `json:"player_name,omitempty"`
	Position    string   `json:"position"`
	Points      *float64 `json:"fantasy_points_total"`
	GamesPlayed *int     `json:"games_played,omitempty"`
}

// Standing is a team's final regular-season line.
type Standing struct {
	Season        int     `json:"season"`
	TeamID        string  `json:"team_id"`
	FinalRank     int     `json:"final_rank"`
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	PointsFor     float64 `json:"points_for"`
	PointsAgainst float64 `json:"points_against"`
}

// TeamOwner maps a team to its manager for one season.
type TeamOwner struct {
	Season  int    `json:"season"`
	TeamID  string `json:"team_id"`
	Manager string `json:"manager"`
}

// Matchup is one team's side of a weekly head-to-head result.
type Matchup struct {
	Season        int     `json:"season"`
	Week          int     `json:"week"`
	TeamID        string  `json:"team_id"`
	OpponentID    string  `json:"opponent_id,omitempty"`
	PointsFor     float64 `json:"points_for"`
	PointsAgainst float64 `json:"points_against"`
	Win           bool    `json:"win"`
}

// LineupEntry is one rostered player in a team-week.
type LineupEntry struct {
	Season   int      `json:"season"`
	Week     int      `json:"week"`
	TeamID   string   `json:"team_id"`
	PlayerID string   `json:"player_id"`
	Position string   `json:"position"`
	Points   *float64 `json:"points"`
	Started  bool     `json:"started"`
}

// --------------------------------------------------------------------------
// Dataset
// --------------------------------------------------------------------------

// Dataset is the full set of source tables for one league.
type Dataset struct {
	League         string               `json:"league,omitempty"`
	BaselineSeason int                  `json:"baseline_season"`
	Configs        map[int]SeasonConfig `json:"season_config"`
	Picks          []DraftPick          `json:"draft_picks"`
	Results        []PlayerResult       `json:"player_results"`
	Transactions   []Transaction        `json:"transactions"`
	Standings      []Standing           `json:"standings"`
	Owners         []TeamOwner          `json:"team_roster"`
	Matchups       []Matchup            `json:"matchups,omitempty"`
	Lineups        []LineupEntry        `json:"lineups,omitempty"`

	// Column presence as reported by the loader. A nil map means the loader
	// built typed rows directly and every column is present.
	Columns map[string][]string `json:"-"`
}

// Seasons returns every season that appears in any table, ascending.
func (d *Dataset) Seasons() []int {
	seen := make(map[int]bool)
	for s := range d.Configs {
		seen[s] = true
	}
	for _, p := range d.Picks {
		seen[p.Season] = true
	}
	for _, r := range d.Results {
		seen[r.Season] = true
	}
	for _, s := range d.Standings {
		seen[s.Season] = true
	}
	out := make([]int, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Ints(out)
	return out
}

// OwnerIndex resolves (season, team) to a manager.
type OwnerIndex map[SeasonTeam]string

// SeasonTeam keys per-season team lookups.
type SeasonTeam struct {
	Season int
	TeamID string
}

// NewOwnerIndex builds an OwnerIndex from team ownership rows.
func NewOwnerIndex(owners []TeamOwner) OwnerIndex {
	idx := make(OwnerIndex, len(owners))
	for _, o := range owners {
		idx[SeasonTeam{o.Season, o.TeamID}] = o.Manager
	}
	return idx
}

// Manager returns the owner of a team, or "" when unknown.
func (o OwnerIndex) Manager(season int, teamID string) string {
	return o[SeasonTeam{season, teamID}]
}
