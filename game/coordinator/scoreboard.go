package coordinator

import (
	"sort"

	"github.com/avfomichev/slovobot/catalog"
	"github.com/avfomichev/slovobot/game"
)

// rankPlayers orders players by (status DESC, score DESC), the same rule
// engine.scoreboard applies. Duplicated here, rather than
// exported from game/engine, because this path renders a finished game the
// coordinator loaded directly and never wrapped in an Engine.
func rankPlayers(players []game.Player) []catalog.ScoreboardEntry {
	sort.SliceStable(players, func(i, j int) bool {
		if players[i].Status != players[j].Status {
			return players[i].Status > players[j].Status
		}
		return players[i].Score > players[j].Score
	})
	entries := make([]catalog.ScoreboardEntry, len(players))
	for i, p := range players {
		entries[i] = catalog.ScoreboardEntry{Rank: i + 1, Name: p.Name, Score: p.Score}
	}
	return entries
}
