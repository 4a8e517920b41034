package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avfomichev/slovobot/catalog"
	"github.com/avfomichev/slovobot/chat"
	"github.com/avfomichev/slovobot/game"
	"github.com/avfomichev/slovobot/store"
)

// registrationTimeoutFallbackWord seeds the words table when it is empty so
// a game can always pick a first word in words mode.
const registrationTimeoutFallbackWord = "орел"

// handleRegistration handles the registration state's rows: joining with
// "я" and everything else.
func (e *Engine) handleRegistration(ctx context.Context, r *game.Record, u game.Update, body string) error {
	if body != keywordJoin {
		if r.Setting != nil {
			e.send(ctx, catalog.RegistrationPrompt(r.Setting.Title, r.Setting.Timeout))
		}
		return nil
	}
	if p, ok := r.PlayerByUserID(u.UserID); ok {
		e.send(ctx, catalog.RegistrationConflict(p.Name))
		return nil
	}
	members := e.chat.GetMembers(ctx, r.PeerID)
	name := chat.DisplayName(members, u.UserID)
	if _, err := e.store.CreatePlayer(ctx, r.ID, u.UserID, name); err != nil {
		if errors.Is(err, store.ErrUniqueViolation) {
			e.send(ctx, catalog.RegistrationConflict(name))
			return nil
		}
		e.send(ctx, catalog.RegistrationError(name))
		return fmt.Errorf("registering player %v in game %v: %w", u.UserID, r.ID, err)
	}
	e.send(ctx, catalog.RegistrationAck(name))
	return nil
}

// onRegistrationTimeout handles the registration timer firing: start play
// with enough players, or clear the game and announce failure.
func (e *Engine) onRegistrationTimeout(ctx context.Context) {
	r, err := e.store.GetGameByID(ctx, e.gameID)
	if err != nil {
		e.log.Printf("engine: game %v: loading for registration timeout: %v", e.gameID, err)
		return
	}
	if len(r.Players) >= 2 {
		if err := e.startPlay(ctx, r); err != nil {
			e.log.Printf("engine: game %v: starting play: %v", e.gameID, err)
		}
		return
	}
	if _, err := e.store.ClearGame(ctx, e.gameID); err != nil {
		e.log.Printf("engine: game %v: clearing after failed registration: %v", e.gameID, err)
		return
	}
	e.send(ctx, catalog.RegistrationFailed())
}

// startPlay implements the transition into play: a
// uniformly shuffled move order and a uniformly chosen first word.
func (e *Engine) startPlay(ctx context.Context, r *game.Record) error {
	if r.Setting == nil {
		return fmt.Errorf("game %v: missing setting", r.ID)
	}
	order := make([]game.UserID, len(r.Players))
	for i, p := range r.Players {
		order[i] = p.UserID
	}
	e.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	word, err := e.firstWord(ctx, *r.Setting)
	if err != nil {
		return fmt.Errorf("choosing first word: %w", err)
	}
	if err := e.store.CreateUsedWord(ctx, r.ID, word); err != nil {
		return fmt.Errorf("recording first word %q: %w", word, err)
	}
	now := e.now()
	current := order[0]
	if _, err := e.store.PatchGame(ctx, r.ID, store.GamePatch{
		Status:         store.Ptr(game.StatusStarted),
		MovesOrder:     store.Ptr(order),
		CurrentMove:    store.PtrPtr(current),
		LastWord:       store.PtrPtr(word),
		EventTimestamp: store.PtrPtr(now),
		ElapsedTime:    store.Ptr(time.Duration(0)),
	}); err != nil {
		return fmt.Errorf("persisting first move: %w", err)
	}
	e.armNamed(r.Setting.Timeout, e.onStartedTimeout)
	e.send(ctx, catalog.PlayerMove(playerName(r.Players, current), word, r.Setting.Timeout))
	return nil
}

// firstWord picks the game's opening word: a random city for города, a
// random confirmed word for слова, seeding the fallback "орел" the one
// time the words table is empty.
func (e *Engine) firstWord(ctx context.Context, setting game.Setting) (string, error) {
	if setting.Title == game.SettingCities {
		cities, err := e.store.ListCities(ctx)
		if err != nil {
			return "", fmt.Errorf("listing cities: %w", err)
		}
		if len(cities) == 0 {
			return "", fmt.Errorf("no cities available to start the game")
		}
		return cities[e.rng.Intn(len(cities))].Title, nil
	}
	isCorrect := true
	words, err := e.store.ListWords(ctx, &isCorrect)
	if err != nil {
		return "", fmt.Errorf("listing words: %w", err)
	}
	if len(words) == 0 {
		if err := e.store.CreateWord(ctx, registrationTimeoutFallbackWord, true); err != nil && !errors.Is(err, store.ErrUniqueViolation) {
			return "", fmt.Errorf("seeding fallback word: %w", err)
		}
		return registrationTimeoutFallbackWord, nil
	}
	return words[e.rng.Intn(len(words))].Title, nil
}

// playerName resolves a display name from a loaded player list, falling
// back to the synthetic id_<user_id> form.
func playerName(players []game.Player, userID game.UserID) string {
	for _, p := range players {
		if p.UserID == userID {
			return p.Name
		}
	}
	return fmt.Sprintf("id_%d", int64(userID))
}
