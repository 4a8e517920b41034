package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/avfomichev/slovobot/game"
)

// CreateUsedWord records a word as played in a game. Title uniqueness per
// game_id is enforced by the usedwords table's unique index.
func (p *Postgres) CreateUsedWord(ctx context.Context, gameID int64, title string) error {
	return p.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO usedwords (game_id, title) VALUES ($1, $2)`, gameID, title)
		return translateErr(err)
	})
}

// ListUsedWords returns every word already played in a game.
func (p *Postgres) ListUsedWords(ctx context.Context, gameID int64) ([]string, error) {
	const q = `SELECT title FROM usedwords WHERE game_id = $1`
	rows, cancel, err := p.queryRows(ctx, q, gameID)
	if err != nil {
		return nil, fmt.Errorf("listing used words for game %v: %w", gameID, err)
	}
	defer cancel()
	defer rows.Close()
	var out []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("scanning used word: %w", translateErr(err))
		}
		out = append(out, title)
	}
	return out, rows.Err()
}

// CreateVote records one player's ballot on a pending word. Unique on
// (player_id, title).
func (p *Postgres) CreateVote(ctx context.Context, gameID, playerID int64, title string, isCorrect bool) error {
	return p.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO votes (game_id, player_id, title, is_correct) VALUES ($1, $2, $3, $4)`,
			gameID, playerID, title, isCorrect)
		return translateErr(err)
	})
}

// ListVotes returns every vote cast on a given pending word in a game.
func (p *Postgres) ListVotes(ctx context.Context, gameID int64, title string) ([]game.Vote, error) {
	const q = `SELECT id, game_id, player_id, title, is_correct FROM votes WHERE game_id = $1 AND title = $2`
	rows, cancel, err := p.queryRows(ctx, q, gameID, title)
	if err != nil {
		return nil, fmt.Errorf("listing votes for game %v: %w", gameID, err)
	}
	defer cancel()
	defer rows.Close()
	var out []game.Vote
	for rows.Next() {
		var v game.Vote
		if err := rows.Scan(&v.ID, &v.GameID, &v.PlayerID, &v.Title, &v.IsCorrect); err != nil {
			return nil, fmt.Errorf("scanning vote: %w", translateErr(err))
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
