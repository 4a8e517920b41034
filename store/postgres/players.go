package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/avfomichev/slovobot/game"
	"github.com/avfomichev/slovobot/store"
)

// ListPlayers returns the players of a game, ordered so a Winner sorts
// first and higher scores sort first within a status.
func (p *Postgres) ListPlayers(ctx context.Context, gameID int64) ([]game.Player, error) {
	const q = `
SELECT id, game_id, user_id, name, status, online, score
FROM players WHERE game_id = $1
ORDER BY status DESC, score DESC, id`
	rows, cancel, err := p.queryRows(ctx, q, gameID)
	if err != nil {
		return nil, fmt.Errorf("listing players for game %v: %w", gameID, err)
	}
	defer cancel()
	defer rows.Close()
	var out []game.Player
	for rows.Next() {
		var pl game.Player
		var status string
		if err := rows.Scan(&pl.ID, &pl.GameID, &pl.UserID, &pl.Name, &status, &pl.Online, &pl.Score); err != nil {
			return nil, fmt.Errorf("scanning player: %w", translateErr(err))
		}
		pl.Status = parsePlayerStatus(status)
		out = append(out, pl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing players for game %v: %w", gameID, translateErr(err))
	}
	return out, nil
}

// CreatePlayer creates an active, online, zero-score player. It fails with
// store.ErrUniqueViolation on a duplicate (user_id, game_id) and
// store.ErrFKViolation if the game is absent.
func (p *Postgres) CreatePlayer(ctx context.Context, gameID int64, userID game.UserID, name string) (*game.Player, error) {
	const q = `
INSERT INTO players (game_id, user_id, name, status, online, score)
VALUES ($1, $2, $3, 'active', TRUE, 0) RETURNING id`
	row, cancel := p.query(ctx, q, gameID, int64(userID), name)
	defer cancel()
	var id int64
	if err := row.Scan(&id); err != nil {
		return nil, fmt.Errorf("creating player for game %v: %w", gameID, translateErr(err))
	}
	return &game.Player{
		ID:     id,
		GameID: gameID,
		UserID: userID,
		Name:   name,
		Status: game.PlayerActive,
		Online: true,
		Score:  0,
	}, nil
}

// PlayerScored atomically increments a player's score by one.
func (p *Postgres) PlayerScored(ctx context.Context, playerID int64) error {
	return p.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE players SET score = score + 1 WHERE id = $1`, playerID)
		if err != nil {
			return translateErr(err)
		}
		return expectOneRow(res, "player_scored")
	})
}

// PatchPlayer partially updates a player's online/status/score fields.
func (p *Postgres) PatchPlayer(ctx context.Context, id int64, patch store.PlayerPatch) (*game.Player, error) {
	sets := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)
	add := func(col string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Online != nil {
		add("online", *patch.Online)
	}
	if patch.Status != nil {
		add("status", patch.Status.String())
	}
	if patch.Score != nil {
		add("score", *patch.Score)
	}
	if len(sets) > 0 {
		args = append(args, id)
		q := fmt.Sprintf("UPDATE players SET %s WHERE id = $%d", joinComma(sets), len(args))
		err := p.withTx(ctx, func(tx *sql.Tx) error {
			res, err := tx.ExecContext(ctx, q, args...)
			if err != nil {
				return translateErr(err)
			}
			return expectOneRow(res, "patch_player")
		})
		if err != nil {
			return nil, fmt.Errorf("patching player %v: %w", id, err)
		}
	}
	const q = `SELECT id, game_id, user_id, name, status, online, score FROM players WHERE id = $1`
	row, cancel := p.query(ctx, q, id)
	defer cancel()
	var pl game.Player
	var status string
	if err := row.Scan(&pl.ID, &pl.GameID, &pl.UserID, &pl.Name, &status, &pl.Online, &pl.Score); err != nil {
		return nil, fmt.Errorf("reading player %v: %w", id, translateErr(err))
	}
	pl.Status = parsePlayerStatus(status)
	return &pl, nil
}

func parsePlayerStatus(s string) game.PlayerStatus {
	if s == game.PlayerWinner.String() {
		return game.PlayerWinner
	}
	return game.PlayerActive
}
