package engine

import (
	"context"
	"time"

	"github.com/avfomichev/slovobot/game"
	"github.com/avfomichev/slovobot/store"
)

// timerHandle is the cooperative task backing one armed timer. Exactly one
// is outstanding per engine at a time.
type timerHandle struct {
	cancel chan game.CancelReason
	done   chan struct{}
}

// armNamed starts a fresh timer, cancelling any timer already outstanding
// with CancelNormal first — an engine owns at most one.
// onFire runs with the engine's lock held, reached only if nothing
// cancelled the timer first; it races a concurrently dispatched update, and
// whichever gets there first wins.
func (e *Engine) armNamed(d time.Duration, onFire func(ctx context.Context)) {
	e.cancelLocked(game.CancelNormal)
	h := &timerHandle{
		cancel: make(chan game.CancelReason, 1),
		done:   make(chan struct{}),
	}
	e.timer = h
	go func() {
		defer close(h.done)
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
			e.fireTimer(h, onFire)
		case reason := <-h.cancel:
			if reason == game.CancelShutdown {
				e.persistElapsed(context.Background())
			}
		}
	}()
}

// fireTimer acquires the engine lock and, unless the timer was cancelled or
// replaced in the window between firing and acquiring the lock, runs onFire.
func (e *Engine) fireTimer(h *timerHandle, onFire func(ctx context.Context)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.timer != h {
		return
	}
	e.timer = nil
	onFire(context.Background())
}

// cancelLocked cancels the outstanding timer, if any. Must be called with
// e.mu held. Cancelling with CancelShutdown blocks until the timer's
// cancel handler has persisted elapsed time, so the caller can safely
// proceed as if the timer task has fully stopped; cancelling with
// CancelNormal does not wait, since the timer body does nothing observable
// on that path.
func (e *Engine) cancelLocked(reason game.CancelReason) {
	if e.timer == nil {
		return
	}
	h := e.timer
	e.timer = nil
	select {
	case h.cancel <- reason:
		if reason == game.CancelShutdown {
			<-h.done
		}
	default:
		// The timer already won the race and is running onFire independently.
	}
}

// persistElapsed computes elapsed = now - event_timestamp and stores it, so
// a restart can re-arm with timeout-elapsed_time instead of the full
// duration.
func (e *Engine) persistElapsed(ctx context.Context) {
	r, err := e.store.GetGameByID(ctx, e.gameID)
	if err != nil {
		e.log.Printf("engine: game %v: loading game to persist elapsed time: %v", e.gameID, err)
		return
	}
	if r.EventTimestamp == nil {
		return
	}
	elapsed := e.now().Sub(*r.EventTimestamp)
	if elapsed < 0 {
		elapsed = 0
	}
	if _, err := e.store.PatchGame(ctx, e.gameID, store.GamePatch{ElapsedTime: store.Ptr(elapsed)}); err != nil {
		e.log.Printf("engine: game %v: persisting elapsed time: %v", e.gameID, err)
	}
}
