package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/avfomichev/slovobot/game"
	"github.com/avfomichev/slovobot/store"
)

// GetGameByID returns the game eagerly joined with its Setting and Players.
func (p *Postgres) GetGameByID(ctx context.Context, id int64) (*game.Record, error) {
	return p.loadGame(ctx, id)
}

func (p *Postgres) loadGame(ctx context.Context, id int64) (*game.Record, error) {
	const q = `
SELECT g.id, g.peer_id, g.setting_id, g.status, g.moves_order, g.current_move,
       g.last_word, g.vote_word, g.event_timestamp, g.elapsed_time,
       s.id, s.title, s.timeout
FROM games g JOIN settings s ON s.id = g.setting_id
WHERE g.id = $1`
	row, cancel := p.query(ctx, q, id)
	defer cancel()
	r, err := scanGame(row)
	if err != nil {
		return nil, fmt.Errorf("reading game %v: %w", id, translateErr(err))
	}
	players, err := p.ListPlayers(ctx, id)
	if err != nil {
		return nil, err
	}
	r.Players = players
	return r, nil
}

// CreateGame returns a new game in status init, with all optional fields
// empty.
func (p *Postgres) CreateGame(ctx context.Context, settingID int64, peerID game.PeerID) (*game.Record, error) {
	const q = `
INSERT INTO games (peer_id, setting_id, status, elapsed_time)
VALUES ($1, $2, 'init', 0) RETURNING id`
	row, cancel := p.query(ctx, q, int64(peerID), settingID)
	defer cancel()
	var id int64
	if err := row.Scan(&id); err != nil {
		return nil, fmt.Errorf("creating game for peer %v: %w", peerID, translateErr(err))
	}
	return p.loadGame(ctx, id)
}

// ListActiveGames returns every game whose status is not finished, each
// with Setting and Players eagerly loaded. This is a single correct
// status <> 'finished' predicate, resolving the AND-vs-and_() ambiguity
// kept for the later, correct source variant.
func (p *Postgres) ListActiveGames(ctx context.Context) ([]game.Record, error) {
	const q = `
SELECT g.id, g.peer_id, g.setting_id, g.status, g.moves_order, g.current_move,
       g.last_word, g.vote_word, g.event_timestamp, g.elapsed_time,
       s.id, s.title, s.timeout
FROM games g JOIN settings s ON s.id = g.setting_id
WHERE g.status <> 'finished'
ORDER BY g.id`
	return p.listGamesByQuery(ctx, q)
}

// ListGames returns games ordered by event_timestamp, optionally filtered
// by peer id and/or status.
func (p *Postgres) ListGames(ctx context.Context, peerID *game.PeerID, status *game.Status) ([]game.Record, error) {
	q := `
SELECT g.id, g.peer_id, g.setting_id, g.status, g.moves_order, g.current_move,
       g.last_word, g.vote_word, g.event_timestamp, g.elapsed_time,
       s.id, s.title, s.timeout
FROM games g JOIN settings s ON s.id = g.setting_id
WHERE ($1::BIGINT IS NULL OR g.peer_id = $1)
  AND ($2::TEXT IS NULL OR g.status = $2)
ORDER BY g.event_timestamp NULLS LAST, g.id`
	var peerArg interface{}
	if peerID != nil {
		peerArg = int64(*peerID)
	}
	var statusArg interface{}
	if status != nil {
		statusArg = status.String()
	}
	return p.listGamesByQuery(ctx, q, peerArg, statusArg)
}

func (p *Postgres) listGamesByQuery(ctx context.Context, q string, args ...interface{}) ([]game.Record, error) {
	rows, cancel, err := p.queryRows(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing games: %w", err)
	}
	defer cancel()
	defer rows.Close()
	var out []game.Record
	for rows.Next() {
		r, err := scanGameRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning game: %w", translateErr(err))
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing games: %w", translateErr(err))
	}
	for i := range out {
		players, err := p.ListPlayers(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Players = players
	}
	return out, nil
}

// ClearGame atomically deletes all Player and UsedWord rows for the game,
// then resets the game's mutable fields to their initial values.
func (p *Postgres) ClearGame(ctx context.Context, gameID int64) (*game.Record, error) {
	err := p.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM players WHERE game_id = $1`, gameID); err != nil {
			return translateErr(err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM usedwords WHERE game_id = $1`, gameID); err != nil {
			return translateErr(err)
		}
		const q = `
UPDATE games SET status = 'init', moves_order = NULL, current_move = NULL,
	last_word = NULL, vote_word = NULL, event_timestamp = NULL, elapsed_time = 0
WHERE id = $1`
		res, err := tx.ExecContext(ctx, q, gameID)
		if err != nil {
			return translateErr(err)
		}
		return expectOneRow(res, "clear_game")
	})
	if err != nil {
		return nil, fmt.Errorf("clearing game %v: %w", gameID, err)
	}
	return p.loadGame(ctx, gameID)
}

// PatchGame applies a partial update of any subset of a game's mutable
// fields and returns the refreshed row.
func (p *Postgres) PatchGame(ctx context.Context, id int64, patch store.GamePatch) (*game.Record, error) {
	sets := make([]string, 0, 8)
	args := make([]interface{}, 0, 8)
	add := func(col string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Status != nil {
		add("status", patch.Status.String())
	}
	if patch.SettingID != nil {
		add("setting_id", *patch.SettingID)
	}
	if patch.MovesOrder != nil {
		add("moves_order", encodeMovesOrder(*patch.MovesOrder))
	}
	if patch.CurrentMove != nil {
		if *patch.CurrentMove == nil {
			add("current_move", nil)
		} else {
			add("current_move", int64(**patch.CurrentMove))
		}
	}
	if patch.LastWord != nil {
		if *patch.LastWord == nil {
			add("last_word", nil)
		} else {
			add("last_word", **patch.LastWord)
		}
	}
	if patch.VoteWord != nil {
		if *patch.VoteWord == nil {
			add("vote_word", nil)
		} else {
			add("vote_word", **patch.VoteWord)
		}
	}
	if patch.EventTimestamp != nil {
		if *patch.EventTimestamp == nil {
			add("event_timestamp", nil)
		} else {
			add("event_timestamp", **patch.EventTimestamp)
		}
	}
	if patch.ElapsedTime != nil {
		add("elapsed_time", int64(patch.ElapsedTime.Seconds()))
	}
	if len(sets) == 0 {
		return p.loadGame(ctx, id)
	}
	args = append(args, id)
	q := fmt.Sprintf("UPDATE games SET %s WHERE id = $%d", joinComma(sets), len(args))
	err := p.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return translateErr(err)
		}
		return expectOneRow(res, "patch_game")
	})
	if err != nil {
		return nil, fmt.Errorf("patching game %v: %w", id, err)
	}
	return p.loadGame(ctx, id)
}

func scanGame(row *sql.Row) (*game.Record, error) {
	var r game.Record
	var s game.Setting
	var status string
	var movesOrder *string
	var currentMove *int64
	var lastWord, voteWord *string
	var eventTimestamp *time.Time
	var elapsedSeconds int64
	var peerID int64
	var timeoutSeconds int64
	if err := row.Scan(&r.ID, &peerID, &r.SettingID, &status, &movesOrder, &currentMove,
		&lastWord, &voteWord, &eventTimestamp, &elapsedSeconds,
		&s.ID, &s.Title, &timeoutSeconds); err != nil {
		return nil, err
	}
	return finishScanGame(&r, s, status, movesOrder, currentMove, lastWord, voteWord,
		eventTimestamp, elapsedSeconds, peerID, timeoutSeconds), nil
}

func scanGameRow(rows *sql.Rows) (*game.Record, error) {
	var r game.Record
	var s game.Setting
	var status string
	var movesOrder *string
	var currentMove *int64
	var lastWord, voteWord *string
	var eventTimestamp *time.Time
	var elapsedSeconds int64
	var peerID int64
	var timeoutSeconds int64
	if err := rows.Scan(&r.ID, &peerID, &r.SettingID, &status, &movesOrder, &currentMove,
		&lastWord, &voteWord, &eventTimestamp, &elapsedSeconds,
		&s.ID, &s.Title, &timeoutSeconds); err != nil {
		return nil, err
	}
	return finishScanGame(&r, s, status, movesOrder, currentMove, lastWord, voteWord,
		eventTimestamp, elapsedSeconds, peerID, timeoutSeconds), nil
}

func finishScanGame(r *game.Record, s game.Setting, status string, movesOrder *string,
	currentMove *int64, lastWord, voteWord *string, eventTimestamp *time.Time,
	elapsedSeconds int64, peerID int64, timeoutSeconds int64) *game.Record {
	s.Timeout = time.Duration(timeoutSeconds) * time.Second
	r.Setting = &s
	r.PeerID = game.PeerID(peerID)
	r.Status = parseStatus(status)
	r.MovesOrder = decodeMovesOrder(movesOrder)
	if currentMove != nil {
		u := game.UserID(*currentMove)
		r.CurrentMove = &u
	}
	r.LastWord = lastWord
	r.VoteWord = voteWord
	r.EventTimestamp = eventTimestamp
	r.ElapsedTime = time.Duration(elapsedSeconds) * time.Second
	return r
}

func parseStatus(s string) game.Status {
	switch s {
	case game.StatusInit.String():
		return game.StatusInit
	case game.StatusRegistration.String():
		return game.StatusRegistration
	case game.StatusStarted.String():
		return game.StatusStarted
	case game.StatusVoteWord.String():
		return game.StatusVoteWord
	case game.StatusFinished.String():
		return game.StatusFinished
	default:
		return game.StatusInit
	}
}

func expectOneRow(res sql.Result, name string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("wanted to update 1 row calling %s, updated %d", name, n)
	}
	return nil
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
