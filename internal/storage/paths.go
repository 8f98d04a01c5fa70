package storage

import "path/filepath"

// Layout resolves the persisted state paths rooted at a data directory.
type Layout struct {
	Root string
}

func NewLayout(root string) Layout { return Layout{Root: root} }

func (l Layout) leagueDir(leagueID string) string {
	return filepath.Join(l.Root, "leagues", leagueID)
}

func (l Layout) PlayersFile(leagueID string) string   { return filepath.Join(l.leagueDir(leagueID), "players.json") }
func (l Layout) RefereesFile(leagueID string) string  { return filepath.Join(l.leagueDir(leagueID), "referees.json") }
func (l Layout) ScheduleFile(leagueID string) string  { return filepath.Join(l.leagueDir(leagueID), "schedule.json") }
func (l Layout) StandingsFile(leagueID string) string { return filepath.Join(l.leagueDir(leagueID), "standings.json") }

func (l Layout) MatchFile(leagueID, roundID, matchID string) string {
	return filepath.Join(l.Root, "matches", leagueID, roundID, matchID+".json")
}

func (l Layout) playerDir(playerID string) string {
	return filepath.Join(l.Root, "players", playerID)
}

func (l Layout) ProfileFile(playerID string) string          { return filepath.Join(l.playerDir(playerID), "profile.json") }
func (l Layout) MatchHistoryFile(playerID string) string      { return filepath.Join(l.playerDir(playerID), "match_history.json") }
func (l Layout) OpponentProfilesFile(playerID string) string  { return filepath.Join(l.playerDir(playerID), "opponent_profiles.json") }

func (l Layout) LogFile(role, agentID string) string {
	return filepath.Join(l.Root, "logs", role, agentID, "agent.jsonl")
}
