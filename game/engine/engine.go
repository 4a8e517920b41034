// Package engine implements the per-room game state machine. One Engine
// owns one chat room's active game: a Config validates and builds an
// instance, and a dispatch table keyed by the inbound signal routes it
// through registration, play, and voting — but a room never runs its own
// goroutine loop. State reads always come from the Store so that a
// restart or a racing timer observes the same truth.
package engine

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/avfomichev/slovobot/catalog"
	"github.com/avfomichev/slovobot/chat"
	"github.com/avfomichev/slovobot/game"
	"github.com/avfomichev/slovobot/store"
)

// Recognized control keywords.
const (
	keywordYes    = "да"
	keywordNo     = "нет"
	keywordJoin   = "я"
	keywordStatus = "!статус"
)

// Engine runs the state machine for exactly one game. It holds no game state
// itself beyond the id needed to reload the authoritative row; every
// Dispatch call re-reads the Store so state reads always come from the
// persisted row rather than in-memory state.
type Engine struct {
	mu     sync.Mutex
	gameID int64
	peerID game.PeerID

	store store.Store
	chat  chat.Gateway
	log   *log.Logger
	debug bool
	now   func() time.Time
	rng   *rand.Rand

	timer *timerHandle
}

// Config creates Engines sharing the same collaborators.
type Config struct {
	// Store is the durable-state backend.
	Store store.Store
	// Chat is the outbound message gateway.
	Chat chat.Gateway
	// Log receives diagnostic output.
	Log *log.Logger
	// Debug causes every dispatched update to be logged.
	Debug bool
	// Now supplies the current time; defaults to time.Now.
	Now func() time.Time
	// Rand supplies randomness for move order and first-word selection;
	// defaults to a time-seeded source. Tests inject a seeded one for
	// deterministic scenarios.
	Rand *rand.Rand
}

func (cfg Config) validate() error {
	switch {
	case cfg.Store == nil:
		return fmt.Errorf("store required")
	case cfg.Chat == nil:
		return fmt.Errorf("chat gateway required")
	case cfg.Log == nil:
		return fmt.Errorf("log required")
	}
	return nil
}

// New builds an Engine bound to an existing game row.
func (cfg Config) New(gameID int64, peerID game.PeerID) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(now().UnixNano()))
	}
	return &Engine{
		gameID: gameID,
		peerID: peerID,
		store:  cfg.Store,
		chat:   cfg.Chat,
		log:    cfg.Log,
		debug:  cfg.Debug,
		now:    now,
		rng:    rng,
	}, nil
}

// GameID returns the game row this engine is bound to.
func (e *Engine) GameID() int64 { return e.gameID }

// send posts text to the engine's room, swallowing gateway failures.
func (e *Engine) send(ctx context.Context, text string) {
	e.chat.SendMessage(ctx, e.peerID, text)
}

// Dispatch processes exactly one update against the current persisted
// state. The mutex serializes Dispatch calls on the same engine with each
// other and with a concurrently firing timer, so a room never processes two
// updates simultaneously.
func (e *Engine) Dispatch(ctx context.Context, u game.Update) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dispatchLocked(ctx, u)
}

func (e *Engine) dispatchLocked(ctx context.Context, u game.Update) error {
	r, err := e.store.GetGameByID(ctx, e.gameID)
	if err != nil {
		return fmt.Errorf("engine: loading game %v: %w", e.gameID, err)
	}
	body := strings.ToLower(strings.TrimSpace(u.Body))
	if e.debug {
		e.log.Printf("engine: game %v status %v dispatching %q from user %v", e.gameID, r.Status, body, u.UserID)
	}
	if body == keywordStatus {
		return e.handleStatus(ctx, r)
	}
	switch r.Status {
	case game.StatusInit:
		return e.handleInit(ctx, r, body)
	case game.StatusRegistration:
		return e.handleRegistration(ctx, r, u, body)
	case game.StatusStarted:
		return e.handleStarted(ctx, r, u, body)
	case game.StatusVoteWord:
		return e.handleVoteWord(ctx, r, u, body)
	case game.StatusFinished:
		// The coordinator replaces a finished engine before dispatch
		// reaches here; nothing to do if it ever does.
		return nil
	default:
		return fmt.Errorf("engine: game %v has unrecognized status %v", e.gameID, r.Status)
	}
}

// handleInit handles the init state's two rows.
func (e *Engine) handleInit(ctx context.Context, r *game.Record, body string) error {
	title := game.SettingTitle(body)
	if title != game.SettingWords && title != game.SettingCities {
		e.send(ctx, catalog.StartHint())
		return nil
	}
	setting, err := e.store.GetSettingByTitle(ctx, title)
	if err != nil {
		return fmt.Errorf("engine: resolving setting %q: %w", title, err)
	}
	now := e.now()
	_, err = e.store.PatchGame(ctx, r.ID, store.GamePatch{
		Status:         store.Ptr(game.StatusRegistration),
		SettingID:      store.Ptr(setting.ID),
		EventTimestamp: store.PtrPtr(now),
		ElapsedTime:    store.Ptr(time.Duration(0)),
	})
	if err != nil {
		return fmt.Errorf("engine: starting registration for game %v: %w", r.ID, err)
	}
	e.armNamed(setting.Timeout, e.onRegistrationTimeout)
	e.send(ctx, catalog.RegistrationPrompt(setting.Title, setting.Timeout))
	return nil
}

// handleStatus builds and sends the scoreboard for the engine's own game.
// The coordinator additionally special-cases the init state by substituting
// the most recent finished game; that substitution happens above this
// engine, not here.
func (e *Engine) handleStatus(ctx context.Context, r *game.Record) error {
	entries, err := scoreboard(ctx, e.store, r.ID)
	if err != nil {
		return fmt.Errorf("engine: building scoreboard for game %v: %w", r.ID, err)
	}
	e.send(ctx, catalog.Status(r.Status, entries))
	return nil
}

// Scoreboard exposes the current game's status and scoreboard for callers
// outside the engine (the coordinator's status special-case).
func (e *Engine) Scoreboard(ctx context.Context) (game.Status, []catalog.ScoreboardEntry, error) {
	r, err := e.store.GetGameByID(ctx, e.gameID)
	if err != nil {
		return 0, nil, fmt.Errorf("engine: loading game %v: %w", e.gameID, err)
	}
	entries, err := scoreboard(ctx, e.store, r.ID)
	if err != nil {
		return 0, nil, err
	}
	return r.Status, entries, nil
}

// CancelTimer cancels the engine's outstanding timer, if any. Used by the
// coordinator on shutdown.
func (e *Engine) CancelTimer(reason game.CancelReason) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelLocked(reason)
}
