package league

import (
	"fmt"
	"sort"
	"strings"
)

// Table names as they appear in source files and in SchemaViolation errors.
const (
	TableDraftPicks    = "draft_picks"
	TablePlayerResults = "player_results"
	TableTransactions  = "transactions"
	TableStandings     = "standings"
	TableTeamRoster    = "team_roster"
	TableMatchups      = "matchups"
	TableLineups       = "lineups"
)

// RequiredColumns lists the columns each table must carry.
var RequiredColumns = map[string][]string{
	TableDraftPicks:    {"season", "player_id", "position", "cost", "is_keeper", "team_id"},
	TablePlayerResults: {"season", "player_id", "position", "fantasy_points_total"},
	TableTransactions:  {"season", "transaction_id", "type", "timestamp"},
	TableStandings:     {"season", "team_id", "final_rank", "wins"},
	TableTeamRoster:    {"season", "team_id", "manager"},
	TableMatchups:      {"season", "week", "team_id", "points_for"},
	TableLineups:       {"season", "week", "team_id", "player_id", "started"},
}

// SchemaViolation reports required columns that are absent from an input
// table. It is fatal: no stage runs once one is found.
type SchemaViolation struct {
	Table   string
	Missing []string
}

func (e *SchemaViolation) Error() string {
	if len(e.Missing) == 0 {
		return fmt.Sprintf("schema violation in %s", e.Table)
	}
	return fmt.Sprintf("schema violation in %s: missing columns %s", e.Table, strings.Join(e.Missing, ", "))
}

// Validate checks column presence for every table the loader reported and
// that a baseline season is designated. Empty tables are not violations;
// stages treat them as missing data.
func Validate(d *Dataset) error {
	if d == nil {
		return &SchemaViolation{Table: "dataset", Missing: []string{"all"}}
	}
	if d.BaselineSeason == 0 {
		return &SchemaViolation{Table: "season_config", Missing: []string{"baseline_season"}}
	}

	tables := make([]string, 0, len(d.Columns))
	for t := range d.Columns {
		tables = append(tables, t)
	}
	sort.Strings(tables)

	for _, table := range tables {
		required, ok := RequiredColumns[table]
		if !ok {
			continue
		}
		have := make(map[string]bool, len(d.Columns[table]))
		for _, c := range d.Columns[table] {
			have[c] = true
		}
		var missing []string
		for _, c := range required {
			if !have[c] {
				missing = append(missing, c)
			}
		}
		if len(missing) > 0 {
			return &SchemaViolation{Table: table, Missing: missing}
		}
	}

	for i, p := range d.Picks {
		if p.Cost < 0 {
			return fmt.Errorf("%s row %d: negative cost %.2f for player %s", TableDraftPicks, i, p.Cost, p.PlayerID)
		}
	}
	return nil
}
