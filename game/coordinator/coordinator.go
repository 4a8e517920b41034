// Package coordinator owns the peer_id → Engine mapping and the process
// lifecycle around it, playing the role a lobby plays for a pool of
// concurrently running games. Unlike a goroutine-per-game lobby that reads
// from internal channels, Coordinator.Dispatch is a direct synchronous call:
// the update source calls it once per inbound event and the underlying
// Engine does its own internal locking.
package coordinator

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"

	"github.com/avfomichev/slovobot/catalog"
	"github.com/avfomichev/slovobot/chat"
	"github.com/avfomichev/slovobot/game"
	"github.com/avfomichev/slovobot/game/engine"
	"github.com/avfomichev/slovobot/store"
)

const statusKeyword = "!статус"

// Coordinator dispatches updates to per-peer engines, creating games lazily
// and replacing finished ones.
type Coordinator struct {
	mu      sync.Mutex
	engines map[game.PeerID]*engine.Engine

	store          store.Store
	chat           chat.Gateway
	log            *log.Logger
	debug          bool
	defaultSetting game.SettingTitle
	rand           *rand.Rand
}

// Config creates a Coordinator.
type Config struct {
	Store store.Store
	Chat  chat.Gateway
	Log   *log.Logger
	Debug bool
	// DefaultSetting names the setting a brand-new game is lazily created
	// with before any update names one explicitly.
	DefaultSetting game.SettingTitle
	// Rand seeds every Engine's randomness; nil uses a fresh source per
	// engine.
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
	case len(cfg.DefaultSetting) == 0:
		return fmt.Errorf("default setting required")
	}
	return nil
}

// New creates a Coordinator with no games loaded; call Boot to resume any
// persisted in-flight games.
func (cfg Config) New() (*Coordinator, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("creating coordinator: %w", err)
	}
	return &Coordinator{
		engines:        make(map[game.PeerID]*engine.Engine),
		store:          cfg.Store,
		chat:           cfg.Chat,
		log:            cfg.Log,
		debug:          cfg.Debug,
		defaultSetting: cfg.DefaultSetting,
		rand:           cfg.Rand,
	}, nil
}

func (c *Coordinator) newEngine(gameID int64, peerID game.PeerID) (*engine.Engine, error) {
	return engine.Config{
		Store: c.store,
		Chat:  c.chat,
		Log:   c.log,
		Debug: c.debug,
		Rand:  c.rand,
	}.New(gameID, peerID)
}

// Boot resumes every non-finished game.
func (c *Coordinator) Boot(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	records, err := c.store.ListActiveGames(ctx)
	if err != nil {
		return fmt.Errorf("coordinator: booting: listing active games: %w", err)
	}
	for _, r := range records {
		e, err := c.newEngine(r.ID, r.PeerID)
		if err != nil {
			return fmt.Errorf("coordinator: booting game %v: %w", r.ID, err)
		}
		c.engines[r.PeerID] = e
		if err := e.Reinit(ctx); err != nil {
			c.log.Printf("coordinator: reinitializing game %v: %v", r.ID, err)
		}
	}
	return nil
}

// Shutdown cancels every engine's outstanding timer with CancelShutdown, so
// elapsed time is persisted and Boot can resume correctly next run.
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.engines {
		e.CancelTimer(game.CancelShutdown)
	}
}

// Dispatch routes one inbound update to the appropriate engine, creating a
// game lazily if none is active for the peer.
func (c *Coordinator) Dispatch(ctx context.Context, u game.Update) error {
	e, err := c.engineFor(ctx, u.PeerID)
	if err != nil {
		return fmt.Errorf("coordinator: resolving engine for peer %v: %w", u.PeerID, err)
	}
	body := strings.ToLower(strings.TrimSpace(u.Body))
	if body == statusKeyword {
		return c.handleStatus(ctx, e, u.PeerID)
	}
	return e.Dispatch(ctx, u)
}

// engineFor returns the live engine for a peer, replacing it with a fresh
// game if none exists yet or the existing one has finished.
func (c *Coordinator) engineFor(ctx context.Context, peerID game.PeerID) (*engine.Engine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.engines[peerID]; ok {
		status, _, err := e.Scoreboard(ctx)
		if err == nil && status != game.StatusFinished {
			return e, nil
		}
	}
	setting, err := c.store.GetSettingByTitle(ctx, c.defaultSetting)
	if err != nil {
		return nil, fmt.Errorf("resolving default setting %q: %w", c.defaultSetting, err)
	}
	r, err := c.store.CreateGame(ctx, setting.ID, peerID)
	if err != nil {
		return nil, fmt.Errorf("creating game for peer %v: %w", peerID, err)
	}
	e, err := c.newEngine(r.ID, peerID)
	if err != nil {
		return nil, fmt.Errorf("installing engine for peer %v: %w", peerID, err)
	}
	c.engines[peerID] = e
	return e, nil
}

// handleStatus reports the current game's status, but when the peer's
// current game is still in init, substitutes the most recently finished
// game so "!статус" reports the last result instead of an empty board.
func (c *Coordinator) handleStatus(ctx context.Context, e *engine.Engine, peerID game.PeerID) error {
	status, entries, err := e.Scoreboard(ctx)
	if err != nil {
		return fmt.Errorf("coordinator: building status for peer %v: %w", peerID, err)
	}
	if status != game.StatusInit {
		c.chat.SendMessage(ctx, peerID, catalog.Status(status, entries))
		return nil
	}
	finished := game.StatusFinished
	games, err := c.store.ListGames(ctx, &peerID, &finished)
	if err != nil {
		return fmt.Errorf("coordinator: listing finished games for peer %v: %w", peerID, err)
	}
	if len(games) == 0 {
		c.chat.SendMessage(ctx, peerID, catalog.Status(game.StatusInit, nil))
		return nil
	}
	last := games[len(games)-1]
	players, err := c.store.ListPlayers(ctx, last.ID)
	if err != nil {
		return fmt.Errorf("coordinator: listing players for game %v: %w", last.ID, err)
	}
	entries = rankPlayers(players)
	c.chat.SendMessage(ctx, peerID, catalog.Status(game.StatusFinished, entries))
	return nil
}
