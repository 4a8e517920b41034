package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/avfomichev/slovobot/catalog"
	"github.com/avfomichev/slovobot/game"
	"github.com/avfomichev/slovobot/store"
)

// Reinit re-arms a timer for a game resumed after a restart, using
// timeout-elapsed_time rather than the nominal timeout, then resets
// elapsed_time to zero. Called once per
// engine right after the coordinator constructs it from a persisted row;
// init and finished games need no re-init.
func (e *Engine) Reinit(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, err := e.store.GetGameByID(ctx, e.gameID)
	if err != nil {
		return fmt.Errorf("engine: reinit: loading game %v: %w", e.gameID, err)
	}
	st := game.BuildState(*r, e.now())
	switch s := st.(type) {
	case game.RegistrationState:
		e.armNamed(remainingUntil(s.Deadline, e.now()), e.onRegistrationTimeout)
		e.send(ctx, catalog.RegistrationPrompt(s.Setting.Title, s.Setting.Timeout))
	case game.StartedState:
		e.armNamed(remainingUntil(s.Deadline, e.now()), e.onStartedTimeout)
		e.send(ctx, catalog.PlayerMove(playerName(r.Players, s.Current), s.LastWord, s.Setting.Timeout))
	case game.VoteWordState:
		e.armNamed(remainingUntil(s.Deadline, e.now()), e.onVoteTimeout)
		e.send(ctx, catalog.VotePrompt(s.VoteWord, s.Setting.Timeout))
	default:
		return nil
	}
	if _, err := e.store.PatchGame(ctx, r.ID, store.GamePatch{ElapsedTime: store.Ptr(time.Duration(0))}); err != nil {
		return fmt.Errorf("engine: reinit: resetting elapsed time for game %v: %w", r.ID, err)
	}
	return nil
}

func remainingUntil(deadline, now time.Time) time.Duration {
	d := deadline.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
