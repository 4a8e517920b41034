package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/avfomichev/slovobot/catalog"
	"github.com/avfomichev/slovobot/store"
)

// scoreboard renders list_player(game_id) ordered by (status DESC, score
// DESC), so a Winner always ranks first.
func scoreboard(ctx context.Context, s store.Store, gameID int64) ([]catalog.ScoreboardEntry, error) {
	players, err := s.ListPlayers(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("listing players for game %v: %w", gameID, err)
	}
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
	return entries, nil
}
