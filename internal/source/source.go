// Package source reads per-season league dumps (season_YYYY.json) into a
// league.Dataset.
package source

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/albapepper/keeper-analytics/internal/config"
	"github.com/albapepper/keeper-analytics/internal/league"
)

// FileName returns the dump file name for a season.
func FileName(season int) string {
	return fmt.Sprintf("season_%d.json", season)
}

// --------------------------------------------------------------------------
// File shapes
// --------------------------------------------------------------------------

type seasonFile struct {
	Settings      settingsBlock     `json:"settings"`
	Teams         []json.RawMessage `json:"teams"`
	Standings     []json.RawMessage `json:"standings"`
	DraftResults  []json.RawMessage `json:"draft_results"`
	PlayerResults []json.RawMessage `json:"player_results"`
	Transactions  []json.RawMessage `json:"transactions"`
	Matchups      []json.RawMessage `json:"matchups"`
	Lineups       []json.RawMessage `json:"lineups"`
}

type settingsBlock struct {
	Name          string `json:"name"`
	NumTeams      Number `json:"num_teams"`
	AuctionBudget Number `json:"auction_budget"`
	BenchSlots    Number `json:"bench_slots"`
	NumKeepers    Number `json:"num_keepers"`
}

// observed reports only the settings the dump actually carried.
func (b settingsBlock) observed(season, teamsSeen int) league.SeasonOverride {
	o := league.SeasonOverride{
		Season:         season,
		NumTeams:       b.NumTeams.IntPtr(),
		AuctionBudget:  b.AuctionBudget.Ptr(),
		BenchSlots:     b.BenchSlots.IntPtr(),
		KeepersPerTeam: b.NumKeepers.IntPtr(),
	}
	if (o.NumTeams == nil || *o.NumTeams <= 0) && teamsSeen > 0 {
		o.NumTeams = &teamsSeen
	}
	return o
}

type teamEntry struct {
	TeamKey string        `json:"team_key"`
	Name    string        `json:"name"`
	Manager string        `json:"manager"`
	Roster  []rosterEntry `json:"roster"`
}

type rosterEntry struct {
	PlayerID    ID     `json:"player_id"`
	Name        string `json:"name"`
	PlayerName  string `json:"player_name"`
	Position    string `json:"position"`
	Points      Number `json:"fantasy_points_total"`
	GamesPlayed Number `json:"games_played"`
}

type standingEntry struct {
	TeamKey       string `json:"team_key"`
	Rank          Number `json:"rank"`
	Wins          Number `json:"wins"`
	Losses        Number `json:"losses"`
	PointsFor     Number `json:"points_for"`
	PointsAgainst Number `json:"points_against"`
}

type draftEntry struct {
	PlayerID   ID     `json:"player_id"`
	PlayerName string `json:"player_name"`
	Position   string `json:"position"`
	TeamKey    string `json:"team_key"`
	Cost       Number `json:"cost"`
	IsKeeper   Flag   `json:"is_keeper"`
	KeeperCost Number `json:"keeper_cost"`
	Round      Number `json:"round"`
	Pick       Number `json:"pick"`
}

type transactionEntry struct {
	TransactionID string        `json:"transaction_id"`
	Type          string        `json:"type"`
	Timestamp     Timestamp     `json:"timestamp"`
	Status        string        `json:"status"`
	Players       []playerEntry `json:"involved_players"`
}

type playerEntry struct {
	PlayerID       ID     `json:"player_id"`
	PlayerName     string `json:"player_name"`
	Action         string `json:"transaction_type"`
	FromTeamKey    string `json:"from_team_key"`
	ToTeamKey      string `json:"to_team_key"`
	FAABBid        Number `json:"faab_bid"`
	WaiverPriority Number `json:"waiver_priority"`
}

type matchupEntry struct {
	Week        Number `json:"week"`
	Team1Key    string `json:"team1_key"`
	Team2Key    string `json:"team2_key"`
	Team1Points Number `json:"team1_points"`
	Team2Points Number `json:"team2_points"`
	WinnerKey   string `json:"winner"`
}

type lineupEntry struct {
	Week             Number `json:"week"`
	TeamKey          string `json:"team_key"`
	PlayerID         ID     `json:"player_id"`
	Position         string `json:"position"`
	Points           Number `json:"points"`
	SelectedPosition string `json:"selected_position"`
	Started          *Flag  `json:"started"`
}

// Column renames from dump keys to table columns.
var (
	draftColumns    = map[string]string{"team_key": "team_id"}
	resultColumns   = map[string]string{"name": "player_name"}
	standingColumns = map[string]string{"team_key": "team_id", "rank": "final_rank"}
	ownerColumns    = map[string]string{"team_key": "team_id", "name": "manager"}
)

// benchSlots never count as started.
var benchSlots = map[string]bool{"": true, "BN": true, "IR": true, "IR+": true}

// --------------------------------------------------------------------------
// Loading
// --------------------------------------------------------------------------

// LoadDir reads season_YYYY.json for every season in [from, to]. A missing
// season is logged and skipped; a file that cannot be parsed is an error.
// Entries carrying an "error" key are skipped.
func LoadDir(dir string, from, to int, settings *config.LeagueSettings, logger *slog.Logger) (*league.Dataset, error) {
	if from > to {
		return nil, fmt.Errorf("invalid season range %d-%d", from, to)
	}
	if settings == nil {
		settings = config.DefaultLeagueSettings()
	}

	ds := &league.Dataset{
		League:         settings.Name,
		BaselineSeason: settings.BaselineSeason,
		Configs:        make(map[int]league.SeasonConfig),
		Columns:        make(map[string][]string),
	}
	if ds.BaselineSeason == 0 {
		ds.BaselineSeason = from
	}

	cols := make(map[string]columnSet)
	loaded := 0
	for season := from; season <= to; season++ {
		path := filepath.Join(dir, FileName(season))
		b, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("Season data file not found, skipping", "season", season, "path", path)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		var f seasonFile
		if err := json.Unmarshal(b, &f); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		if err := addSeason(ds, cols, season, &f, settings); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
		loaded++
	}
	if loaded == 0 {
		return nil, fmt.Errorf("no season files in %s for %d-%d", dir, from, to)
	}

	for table, set := range cols {
		if len(set) == 0 {
			continue
		}
		ds.Columns[table] = set.list()
	}
	if ds.League == "" {
		ds.League = filepath.Base(filepath.Clean(dir))
	}

	logger.Info("Loaded league data",
		"dir", dir, "seasons", loaded,
		"picks", len(ds.Picks), "results", len(ds.Results),
		"transactions", len(ds.Transactions), "standings", len(ds.Standings),
		"matchups", len(ds.Matchups), "lineups", len(ds.Lineups),
	)
	return ds, nil
}

func addSeason(ds *league.Dataset, cols map[string]columnSet, season int, f *seasonFile, settings *config.LeagueSettings) error {
	if ds.League == "" && f.Settings.Name != "" {
		ds.League = f.Settings.Name
	}

	// Teams: ownership and end-of-season rosters.
	teams, err := decodeRows[teamEntry](f.Teams, colsFor(cols, league.TableTeamRoster), ownerColumns)
	if err != nil {
		return fmt.Errorf("teams: %w", err)
	}
	positions := make(map[string]string)
	var rosterResults []league.PlayerResult
	for _, t := range teams {
		manager := t.Manager
		if manager == "" {
			manager = t.Name
		}
		if manager == "" {
			manager = t.TeamKey
		}
		ds.Owners = append(ds.Owners, league.TeamOwner{Season: season, TeamID: t.TeamKey, Manager: manager})
		for _, p := range t.Roster {
			rosterResults = append(rosterResults, p.result(season))
		}
	}

	ds.Configs[season] = settings.Resolve(season, f.Settings.observed(season, len(teams)))

	// Player results: an explicit table wins over roster snapshots.
	results := rosterResults
	if len(f.PlayerResults) > 0 {
		entries, err := decodeRows[rosterEntry](f.PlayerResults, colsFor(cols, league.TablePlayerResults), resultColumns)
		if err != nil {
			return fmt.Errorf("player_results: %w", err)
		}
		results = make([]league.PlayerResult, 0, len(entries))
		for _, e := range entries {
			results = append(results, e.result(season))
		}
	} else if len(rosterResults) > 0 {
		set := colsFor(cols, league.TablePlayerResults)
		set.add("season", "player_id", "player_name", "position", "fantasy_points_total")
	}
	seen := make(map[string]bool)
	for _, r := range results {
		if r.PlayerID == "" || seen[r.PlayerID] {
			continue
		}
		seen[r.PlayerID] = true
		positions[r.PlayerID] = r.Position
		ds.Results = append(ds.Results, r)
	}

	standings, err := decodeRows[standingEntry](f.Standings, colsFor(cols, league.TableStandings), standingColumns)
	if err != nil {
		return fmt.Errorf("standings: %w", err)
	}
	for _, s := range standings {
		ds.Standings = append(ds.Standings, league.Standing{
			Season:        season,
			TeamID:        s.TeamKey,
			FinalRank:     s.Rank.Int(),
			Wins:          s.Wins.Int(),
			Losses:        s.Losses.Int(),
			PointsFor:     s.PointsFor.Or(0),
			PointsAgainst: s.PointsAgainst.Or(0),
		})
	}

	picks, err := decodeRows[draftEntry](f.DraftResults, colsFor(cols, league.TableDraftPicks), draftColumns)
	if err != nil {
		return fmt.Errorf("draft_results: %w", err)
	}
	if len(picks) > 0 {
		// Yahoo draft results omit position; it is filled from results.
		colsFor(cols, league.TableDraftPicks).add("position")
	}
	for _, p := range picks {
		pos := p.Position
		if pos == "" {
			pos = positions[string(p.PlayerID)]
		}
		ds.Picks = append(ds.Picks, league.DraftPick{
			Season:     season,
			PlayerID:   string(p.PlayerID),
			PlayerName: p.PlayerName,
			Position:   strings.ToUpper(pos),
			TeamID:     p.TeamKey,
			Cost:       p.Cost.Or(0),
			IsKeeper:   bool(p.IsKeeper),
			KeeperCost: p.KeeperCost.Ptr(),
			Round:      p.Round.Int(),
			Pick:       p.Pick.Int(),
		})
	}

	txns, err := decodeRows[transactionEntry](f.Transactions, colsFor(cols, league.TableTransactions), nil)
	if err != nil {
		return fmt.Errorf("transactions: %w", err)
	}
	for _, t := range txns {
		base := league.Transaction{
			Season:        season,
			TransactionID: t.TransactionID,
			Type:          t.Type,
			Timestamp:     t.Timestamp.Time,
			Status:        t.Status,
		}
		if len(t.Players) == 0 {
			base.Seq = len(ds.Transactions)
			ds.Transactions = append(ds.Transactions, base)
			continue
		}
		for _, p := range t.Players {
			row := base
			row.PlayerID = string(p.PlayerID)
			row.PlayerName = p.PlayerName
			row.Action = strings.ToUpper(p.Action)
			row.FromTeam = p.FromTeamKey
			row.ToTeam = p.ToTeamKey
			row.BidAmount = p.FAABBid.Ptr()
			if p.WaiverPriority.Valid {
				wp := p.WaiverPriority.Int()
				row.WaiverPriority = &wp
			}
			row.Seq = len(ds.Transactions)
			ds.Transactions = append(ds.Transactions, row)
		}
	}

	matchups, err := decodeRows[matchupEntry](f.Matchups, nil, nil)
	if err != nil {
		return fmt.Errorf("matchups: %w", err)
	}
	for _, m := range matchups {
		ds.Matchups = append(ds.Matchups, m.sides(season)...)
	}

	lineups, err := decodeRows[lineupEntry](f.Lineups, nil, nil)
	if err != nil {
		return fmt.Errorf("lineups: %w", err)
	}
	for _, l := range lineups {
		started := !benchSlots[strings.ToUpper(l.SelectedPosition)]
		if l.Started != nil {
			started = bool(*l.Started)
		}
		ds.Lineups = append(ds.Lineups, league.LineupEntry{
			Season:   season,
			Week:     l.Week.Int(),
			TeamID:   l.TeamKey,
			PlayerID: string(l.PlayerID),
			Position: strings.ToUpper(l.Position),
			Points:   l.Points.Ptr(),
			Started:  started,
		})
	}
	return nil
}

func (p rosterEntry) result(season int) league.PlayerResult {
	name := p.PlayerName
	if name == "" {
		name = p.Name
	}
	r := league.PlayerResult{
		Season:     season,
		PlayerID:   string(p.PlayerID),
		PlayerName: name,
		Position:   strings.ToUpper(p.Position),
		Points:     p.Points.Ptr(),
	}
	if p.GamesPlayed.Valid {
		gp := p.GamesPlayed.Int()
		r.GamesPlayed = &gp
	}
	return r
}

// sides splits a head-to-head matchup into one row per team. The recorded
// winner decides the result; without one the higher score wins.
func (m matchupEntry) sides(season int) []league.Matchup {
	if m.Team1Key == "" || m.Team2Key == "" {
		return nil
	}
	p1, p2 := m.Team1Points.Or(0), m.Team2Points.Or(0)
	win1, win2 := p1 > p2, p2 > p1
	if m.WinnerKey != "" {
		win1, win2 = m.WinnerKey == m.Team1Key, m.WinnerKey == m.Team2Key
	}
	week := m.Week.Int()
	return []league.Matchup{
		{Season: season, Week: week, TeamID: m.Team1Key, OpponentID: m.Team2Key, PointsFor: p1, PointsAgainst: p2, Win: win1},
		{Season: season, Week: week, TeamID: m.Team2Key, OpponentID: m.Team1Key, PointsFor: p2, PointsAgainst: p1, Win: win2},
	}
}

// --------------------------------------------------------------------------
// Row decoding and column tracking
// --------------------------------------------------------------------------

// columnSet records which columns appeared in at least one row of a table.
type columnSet map[string]bool

func (c columnSet) add(names ...string) {
	for _, n := range names {
		c[n] = true
	}
}

func (c columnSet) list() []string {
	out := make([]string, 0, len(c))
	for n := range c {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func colsFor(cols map[string]columnSet, table string) columnSet {
	set, ok := cols[table]
	if !ok {
		set = columnSet{}
		cols[table] = set
	}
	return set
}

// decodeRows decodes every entry that does not carry an "error" key. When
// set is non-nil the keys of kept entries are recorded, renamed through
// rename, along with the implicit season column.
func decodeRows[T any](raw []json.RawMessage, set columnSet, rename map[string]string) ([]T, error) {
	out := make([]T, 0, len(raw))
	for i, r := range raw {
		var keys map[string]json.RawMessage
		if err := json.Unmarshal(r, &keys); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if _, bad := keys["error"]; bad {
			continue
		}
		var row T
		if err := json.Unmarshal(r, &row); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out = append(out, row)

		if set == nil {
			continue
		}
		set.add("season")
		for k := range keys {
			if to, ok := rename[k]; ok {
				k = to
			}
			set.add(k)
		}
	}
	return out, nil
}
