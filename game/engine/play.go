package engine

import (
	"context"
	"fmt"
	"time"
	"unicode"

	"github.com/avfomichev/slovobot/catalog"
	"github.com/avfomichev/slovobot/game"
	"github.com/avfomichev/slovobot/store"
)

// handleStarted handles the started state's rows: a
// move from the current player, a stray message from anyone else, or the
// turn timer firing (the latter via onStartedTimeout, armed separately).
func (e *Engine) handleStarted(ctx context.Context, r *game.Record, u game.Update, body string) error {
	current, ok := r.CurrentPlayer()
	if !ok {
		return fmt.Errorf("game %v: started with no current player", r.ID)
	}
	if u.UserID != current.UserID {
		if r.Setting != nil && r.LastWord != nil {
			e.send(ctx, catalog.PlayerMove(current.Name, *r.LastWord, r.Setting.Timeout))
		}
		return nil
	}
	// A move from the current player races the turn timer; defuse it
	// before evaluating the word.
	e.cancelLocked(game.CancelNormal)
	return e.handleWordSubmission(ctx, r, current, body)
}

// handleWordSubmission runs the word validation pipeline.
func (e *Engine) handleWordSubmission(ctx context.Context, r *game.Record, current game.Player, word string) error {
	used, err := e.store.ListUsedWords(ctx, r.ID)
	if err != nil {
		return fmt.Errorf("listing used words in game %v: %w", r.ID, err)
	}
	for _, w := range used {
		if w == word {
			e.send(ctx, catalog.PlayerUsedWord(current.Name, word))
			return e.nextPlayer(ctx, r, current, false, word)
		}
	}
	if err := e.store.CreateUsedWord(ctx, r.ID, word); err != nil {
		return fmt.Errorf("recording word %q in game %v: %w", word, r.ID, err)
	}
	if r.LastWord == nil {
		return fmt.Errorf("game %v: started with no last word", r.ID)
	}
	want := catalog.LastLetter(*r.LastWord)
	if got := firstRune(word); got != want {
		e.send(ctx, catalog.PlayerWordWrong(current.Name, word, *r.LastWord))
		return e.nextPlayer(ctx, r, current, false, word)
	}
	if r.Setting == nil {
		return fmt.Errorf("game %v: started with no setting", r.ID)
	}
	if r.Setting.Title == game.SettingCities {
		return e.checkCity(ctx, r, current, word)
	}
	return e.checkWord(ctx, r, current, word)
}

// checkCity resolves a города submission against the cities table.
func (e *Engine) checkCity(ctx context.Context, r *game.Record, current game.Player, word string) error {
	title := capitalize(word)
	_, err := e.store.GetCityByTitle(ctx, title)
	switch {
	case store.IsNotFound(err):
		e.send(ctx, catalog.CityDoesntExist(current.Name, word))
		return e.nextPlayer(ctx, r, current, false, word)
	case err != nil:
		return fmt.Errorf("looking up city %q: %w", title, err)
	}
	return e.nextPlayer(ctx, r, current, true, word)
}

// checkWord resolves a слова submission against the words table, entering
// a crowd vote when the word is unknown.
func (e *Engine) checkWord(ctx context.Context, r *game.Record, current game.Player, word string) error {
	w, err := e.store.GetWordByTitle(ctx, word)
	switch {
	case store.IsNotFound(err):
		now := e.now()
		if _, err := e.store.PatchGame(ctx, r.ID, store.GamePatch{
			Status:         store.Ptr(game.StatusVoteWord),
			VoteWord:       store.PtrPtr(word),
			EventTimestamp: store.PtrPtr(now),
		}); err != nil {
			return fmt.Errorf("entering vote on %q in game %v: %w", word, r.ID, err)
		}
		e.armNamed(r.Setting.Timeout, e.onVoteTimeout)
		e.send(ctx, catalog.VotePrompt(word, r.Setting.Timeout))
		return nil
	case err != nil:
		return fmt.Errorf("looking up word %q: %w", word, err)
	case !w.IsCorrect:
		e.send(ctx, catalog.PlayerWordBlacklisted(current.Name, word))
		return e.nextPlayer(ctx, r, current, false, word)
	default:
		return e.nextPlayer(ctx, r, current, true, word)
	}
}

// nextPlayer computes the next mover after a submission: the
// circular successor is computed from the move order as it stood before any
// elimination, so a failing player's own identity still resolves to the
// correct next mover.
func (e *Engine) nextPlayer(ctx context.Context, r *game.Record, current game.Player, success bool, word string) error {
	nextID := circularSuccessor(r.MovesOrder, current.UserID)
	order := r.MovesOrder
	if success {
		if err := e.store.PlayerScored(ctx, current.ID); err != nil {
			return fmt.Errorf("scoring player %v: %w", current.ID, err)
		}
	} else {
		order = removeUserID(order, current.UserID)
	}
	if len(order) == 1 {
		return e.finishGame(ctx, r, order[0])
	}
	lastWord := word
	if !success {
		if r.LastWord != nil {
			lastWord = *r.LastWord
		} else {
			lastWord = ""
		}
	}
	now := e.now()
	if _, err := e.store.PatchGame(ctx, r.ID, store.GamePatch{
		CurrentMove:    store.PtrPtr(nextID),
		LastWord:       store.PtrPtr(lastWord),
		MovesOrder:     store.Ptr(order),
		EventTimestamp: store.PtrPtr(now),
		ElapsedTime:    store.Ptr(time.Duration(0)),
	}); err != nil {
		return fmt.Errorf("advancing turn in game %v: %w", r.ID, err)
	}
	e.armNamed(r.Setting.Timeout, e.onStartedTimeout)
	e.send(ctx, catalog.PlayerMove(playerName(r.Players, nextID), lastWord, r.Setting.Timeout))
	return nil
}

// finishGame persists the terminal state and marks the sole remaining
// player a winner.
func (e *Engine) finishGame(ctx context.Context, r *game.Record, winner game.UserID) error {
	if _, err := e.store.PatchGame(ctx, r.ID, store.GamePatch{
		Status:     store.Ptr(game.StatusFinished),
		MovesOrder: store.Ptr([]game.UserID{winner}),
	}); err != nil {
		return fmt.Errorf("finishing game %v: %w", r.ID, err)
	}
	if p, ok := r.PlayerByUserID(winner); ok {
		if _, err := e.store.PatchPlayer(ctx, p.ID, store.PlayerPatch{Status: store.Ptr(game.PlayerWinner)}); err != nil {
			return fmt.Errorf("marking winner %v: %w", p.ID, err)
		}
	}
	e.send(ctx, catalog.GameFinished(playerName(r.Players, winner)))
	return nil
}

// onStartedTimeout handles a turn expiring: eliminate the current player
// and advance.
func (e *Engine) onStartedTimeout(ctx context.Context) {
	r, err := e.store.GetGameByID(ctx, e.gameID)
	if err != nil {
		e.log.Printf("engine: game %v: loading for turn timeout: %v", e.gameID, err)
		return
	}
	current, ok := r.CurrentPlayer()
	if !ok {
		return
	}
	e.send(ctx, catalog.PlayerTimeout(current.Name))
	if err := e.nextPlayer(ctx, r, current, false, ""); err != nil {
		e.log.Printf("engine: game %v: advancing after timeout: %v", e.gameID, err)
	}
}

// circularSuccessor returns the move-order entry immediately after current.
func circularSuccessor(order []game.UserID, current game.UserID) game.UserID {
	for i, id := range order {
		if id == current {
			return order[(i+1)%len(order)]
		}
	}
	return current
}

// removeUserID returns order with every occurrence of target removed.
func removeUserID(order []game.UserID, target game.UserID) []game.UserID {
	out := make([]game.UserID, 0, len(order))
	for _, id := range order {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

// firstRune returns a word's first rune, or a space for an empty word.
func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return ' '
}

// capitalize renders a city lookup key the way city names are stored:
// first rune upper, the rest lower.
func capitalize(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToUpper(runes[0])
	for i := 1; i < len(runes); i++ {
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}
