package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/albapepper/keeper-analytics/internal/config"
	"github.com/albapepper/keeper-analytics/internal/league"
)

// Source table column lists, in COPY and SELECT order.
var (
	configColumns      = []string{"season", "num_teams", "auction_budget", "starting_slots", "bench_slots", "keepers_per_team"}
	rosterColumns      = []string{"season", "team_id", "manager"}
	draftColumns       = []string{"season", "player_id", "player_name", "position", "team_id", "cost", "is_keeper", "keeper_cost", "round", "pick"}
	resultColumns      = []string{"season", "player_id", "player_name", "position", "fantasy_points_total", "games_played"}
	transactionColumns = []string{"season", "seq", "transaction_id", "type", "timestamp", "status", "player_id", "player_name", "action", "from_team", "to_team", "bid_amount", "waiver_priority"}
	standingColumns    = []string{"season", "team_id", "final_rank", "wins", "losses", "points_for", "points_against"}
	matchupColumns     = []string{"season", "week", "team_id", "opponent_id", "points_for", "points_against", "win"}
	lineupColumns      = []string{"season", "week", "team_id", "player_id", "position", "points", "started"}
)

// selectSQL builds a season-range query over table.
func selectSQL(table string, columns []string, orderBy ...string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE season BETWEEN $1 AND $2",
		strings.Join(quoted, ", "), pgx.Identifier{table}.Sanitize())
	if len(orderBy) > 0 {
		sql += " ORDER BY " + strings.Join(orderBy, ", ")
	}
	return sql
}

// queryTable runs a season-range select and records the returned column
// names on the dataset when any row comes back.
func queryTable[T any](ctx context.Context, s *Store, ds *league.Dataset, table string, columns []string, from, to int, scan pgx.RowToFunc[T], orderBy ...string) ([]T, error) {
	rows, err := s.pool.Query(ctx, selectSQL(table, columns, orderBy...), from, to)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	fields := rows.FieldDescriptions()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	out, err := pgx.CollectRows(rows, scan)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", table, err)
	}
	if len(out) > 0 {
		ds.Columns[table] = names
	}
	return out, nil
}

// LoadDataset reads every source table for seasons in [from, to]. Seasons
// with no stored configuration resolve through settings.
func (s *Store) LoadDataset(ctx context.Context, from, to int, settings *config.LeagueSettings) (*league.Dataset, error) {
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

	configs, err := queryTable(ctx, s, ds, "season_config", configColumns, from, to, scanConfig, "season")
	if err != nil {
		return nil, err
	}
	if ds.Owners, err = queryTable(ctx, s, ds, league.TableTeamRoster, rosterColumns, from, to, scanOwner, "season", "team_id"); err != nil {
		return nil, err
	}
	if ds.Picks, err = queryTable(ctx, s, ds, league.TableDraftPicks, draftColumns, from, to, scanPick, "season", "round", "pick"); err != nil {
		return nil, err
	}
	if ds.Results, err = queryTable(ctx, s, ds, league.TablePlayerResults, resultColumns, from, to, scanResult, "season", "player_id"); err != nil {
		return nil, err
	}
	if ds.Transactions, err = queryTable(ctx, s, ds, league.TableTransactions, transactionColumns, from, to, scanTransaction, "season", "seq"); err != nil {
		return nil, err
	}
	if ds.Standings, err = queryTable(ctx, s, ds, league.TableStandings, standingColumns, from, to, scanStanding, "season", "final_rank"); err != nil {
		return nil, err
	}
	if ds.Matchups, err = queryTable(ctx, s, ds, league.TableMatchups, matchupColumns, from, to, scanMatchup, "season", "week", "team_id"); err != nil {
		return nil, err
	}
	if ds.Lineups, err = queryTable(ctx, s, ds, league.TableLineups, lineupColumns, from, to, scanLineup, "season", "week", "team_id"); err != nil {
		return nil, err
	}
	delete(ds.Columns, "season_config")

	resolveConfigs(ds, configs, settings)
	// Transactions are renumbered so Seq stays unique across seasons.
	for i := range ds.Transactions {
		ds.Transactions[i].Seq = i
	}

	s.logger.Info("Loaded league data from database",
		"from", from, "to", to, "seasons", len(ds.Configs),
		"picks", len(ds.Picks), "results", len(ds.Results),
		"transactions", len(ds.Transactions), "standings", len(ds.Standings),
	)
	return ds, nil
}

// resolveConfigs fills ds.Configs for every season present. Stored rows
// play the part of observed data: NULL columns are absent, a stored zero is
// kept, and the settings file's season override still wins. Seasons without
// a row use settings with the number of teams seen in team_roster.
func resolveConfigs(ds *league.Dataset, stored []league.SeasonOverride, settings *config.LeagueSettings) {
	teams := make(map[int]int)
	for _, o := range ds.Owners {
		teams[o.Season]++
	}
	for _, c := range stored {
		if n := teams[c.Season]; (c.NumTeams == nil || *c.NumTeams <= 0) && n > 0 {
			c.NumTeams = &n
		}
		ds.Configs[c.Season] = settings.Resolve(c.Season, c)
	}
	for _, season := range ds.Seasons() {
		if _, ok := ds.Configs[season]; !ok {
			ds.Configs[season] = settings.SeasonConfig(season, teams[season])
		}
	}
}

// --------------------------------------------------------------------------
// Row scanners
// --------------------------------------------------------------------------

func scanConfig(row pgx.CollectableRow) (league.SeasonOverride, error) {
	var c league.SeasonOverride
	err := row.Scan(&c.Season, &c.NumTeams, &c.AuctionBudget, &c.StartingSlots, &c.BenchSlots, &c.KeepersPerTeam)
	return c, err
}

func scanOwner(row pgx.CollectableRow) (league.TeamOwner, error) {
	var o league.TeamOwner
	err := row.Scan(&o.Season, &o.TeamID, &o.Manager)
	return o, err
}

func scanPick(row pgx.CollectableRow) (league.DraftPick, error) {
	var p league.DraftPick
	err := row.Scan(&p.Season, &p.PlayerID, &p.PlayerName, &p.Position, &p.TeamID,
		&p.Cost, &p.IsKeeper, &p.KeeperCost, &p.Round, &p.Pick)
	return p, err
}

func scanResult(row pgx.CollectableRow) (league.PlayerResult, error) {
	var r league.PlayerResult
	err := row.Scan(&r.Season, &r.PlayerID, &r.PlayerName, &r.Position, &r.Points, &r.GamesPlayed)
	return r, err
}

func scanTransaction(row pgx.CollectableRow) (league.Transaction, error) {
	var (
		t  league.Transaction
		ts *time.Time
	)
	err := row.Scan(&t.Season, &t.Seq, &t.TransactionID, &t.Type, &ts, &t.Status,
		&t.PlayerID, &t.PlayerName, &t.Action, &t.FromTeam, &t.ToTeam, &t.BidAmount, &t.WaiverPriority)
	if ts != nil {
		t.Timestamp = ts.UTC()
	}
	return t, err
}

func scanStanding(row pgx.CollectableRow) (league.Standing, error) {
	var s league.Standing
	err := row.Scan(&s.Season, &s.TeamID, &s.FinalRank, &s.Wins, &s.Losses, &s.PointsFor, &s.PointsAgainst)
	return s, err
}

func scanMatchup(row pgx.CollectableRow) (league.Matchup, error) {
	var m league.Matchup
	err := row.Scan(&m.Season, &m.Week, &m.TeamID, &m.OpponentID, &m.PointsFor, &m.PointsAgainst, &m.Win)
	return m, err
}

func scanLineup(row pgx.CollectableRow) (league.LineupEntry, error) {
	var l league.LineupEntry
	err := row.Scan(&l.Season, &l.Week, &l.TeamID, &l.PlayerID, &l.Position, &l.Points, &l.Started)
	return l, err
}

// --------------------------------------------------------------------------
// Import
// --------------------------------------------------------------------------

type copySource struct {
	table   string
	columns []string
	rows    [][]any
}

// copySources flattens a dataset into COPY rows, one source per table.
func copySources(ds *league.Dataset) []copySource {
	cfgs := copySource{table: "season_config", columns: configColumns}
	for _, season := range sortedSeasons(ds.Configs) {
		c := ds.Configs[season]
		cfgs.rows = append(cfgs.rows, []any{season, c.NumTeams, c.AuctionBudget, c.StartingSlots, c.BenchSlots, c.KeepersPerTeam})
	}

	owners := copySource{table: league.TableTeamRoster, columns: rosterColumns}
	for _, o := range ds.Owners {
		owners.rows = append(owners.rows, []any{o.Season, o.TeamID, o.Manager})
	}

	picks := copySource{table: league.TableDraftPicks, columns: draftColumns}
	for _, p := range ds.Picks {
		picks.rows = append(picks.rows, []any{p.Season, p.PlayerID, p.PlayerName, p.Position, p.TeamID, p.Cost, p.IsKeeper, p.KeeperCost, p.Round, p.Pick})
	}

	results := copySource{table: league.TablePlayerResults, columns: resultColumns}
	for _, r := range ds.Results {
		results.rows = append(results.rows, []any{r.Season, r.PlayerID, r.PlayerName, r.Position, r.Points, r.GamesPlayed})
	}

	txns := copySource{table: league.TableTransactions, columns: transactionColumns}
	for i, t := range ds.Transactions {
		var ts *time.Time
		if !t.Timestamp.IsZero() {
			v := t.Timestamp
			ts = &v
		}
		txns.rows = append(txns.rows, []any{t.Season, i, t.TransactionID, t.Type, ts, t.Status,
			t.PlayerID, t.PlayerName, t.Action, t.FromTeam, t.ToTeam, t.BidAmount, t.WaiverPriority})
	}

	standings := copySource{table: league.TableStandings, columns: standingColumns}
	for _, s := range ds.Standings {
		standings.rows = append(standings.rows, []any{s.Season, s.TeamID, s.FinalRank, s.Wins, s.Losses, s.PointsFor, s.PointsAgainst})
	}

	matchups := copySource{table: league.TableMatchups, columns: matchupColumns}
	for _, m := range ds.Matchups {
		matchups.rows = append(matchups.rows, []any{m.Season, m.Week, m.TeamID, m.OpponentID, m.PointsFor, m.PointsAgainst, m.Win})
	}

	lineups := copySource{table: league.TableLineups, columns: lineupColumns}
	for _, l := range ds.Lineups {
		lineups.rows = append(lineups.rows, []any{l.Season, l.Week, l.TeamID, l.PlayerID, l.Position, l.Points, l.Started})
	}

	return []copySource{cfgs, owners, picks, results, txns, standings, matchups, lineups}
}

// Import replaces the stored rows of every season in ds with its contents,
// using COPY inside one transaction. It returns rows written per table.
func (s *Store) Import(ctx context.Context, ds *league.Dataset) (map[string]int64, error) {
	seasons := ds.Seasons()
	if len(seasons) == 0 {
		return nil, fmt.Errorf("dataset has no seasons")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	counts := make(map[string]int64)
	for _, src := range copySources(ds) {
		del := fmt.Sprintf("DELETE FROM %s WHERE season = ANY($1)", pgx.Identifier{src.table}.Sanitize())
		if _, err := tx.Exec(ctx, del, seasons); err != nil {
			return nil, fmt.Errorf("clear %s: %w", src.table, err)
		}
		if len(src.rows) == 0 {
			continue
		}
		n, err := tx.CopyFrom(ctx, pgx.Identifier{src.table}, src.columns, pgx.CopyFromRows(src.rows))
		if err != nil {
			return nil, fmt.Errorf("copy %s: %w", src.table, err)
		}
		counts[src.table] = n
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	s.logger.Info("Imported league data", "seasons", len(seasons), "rows", counts)
	return counts, nil
}

func sortedSeasons(m map[int]league.SeasonConfig) []int {
	out := make([]int, 0, len(m))
	for s := range m {
		out = append(out, s)
	}
	sort.Ints(out)
	return out
}
