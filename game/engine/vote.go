package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/avfomichev/slovobot/catalog"
	"github.com/avfomichev/slovobot/game"
	"github.com/avfomichev/slovobot/store"
)

// handleVoteWord handles the vote_word state's rows: a ballot, a duplicate
// ballot, the proposer trying to vote, or
// anything else (re-announcing the prompt).
func (e *Engine) handleVoteWord(ctx context.Context, r *game.Record, u game.Update, body string) error {
	current, _ := r.CurrentPlayer()
	voter, ok := r.PlayerByUserID(u.UserID)
	if !ok {
		return nil
	}
	if body != keywordYes && body != keywordNo {
		if r.VoteWord != nil && r.Setting != nil {
			e.send(ctx, catalog.VotePrompt(*r.VoteWord, r.Setting.Timeout))
		}
		return nil
	}
	if u.UserID == current.UserID {
		e.send(ctx, catalog.VoteSelf(voter.Name))
		return nil
	}
	if r.VoteWord == nil {
		return nil
	}
	votes, err := e.store.ListVotes(ctx, r.ID, *r.VoteWord)
	if err != nil {
		return fmt.Errorf("listing votes for %q in game %v: %w", *r.VoteWord, r.ID, err)
	}
	for _, v := range votes {
		if v.PlayerID == voter.ID {
			e.send(ctx, catalog.VoteConflict(voter.Name))
			return nil
		}
	}
	if err := e.store.CreateVote(ctx, r.ID, voter.ID, *r.VoteWord, body == keywordYes); err != nil {
		if errors.Is(err, store.ErrUniqueViolation) {
			e.send(ctx, catalog.VoteConflict(voter.Name))
			return nil
		}
		return fmt.Errorf("recording vote from player %v in game %v: %w", voter.ID, r.ID, err)
	}
	e.send(ctx, catalog.VoteAck(voter.Name))
	return nil
}

// onVoteTimeout tallies the ballots on a pending word, persists the
// crowd's verdict, and resumes play.
func (e *Engine) onVoteTimeout(ctx context.Context) {
	r, err := e.store.GetGameByID(ctx, e.gameID)
	if err != nil {
		e.log.Printf("engine: game %v: loading for vote timeout: %v", e.gameID, err)
		return
	}
	if r.VoteWord == nil {
		return
	}
	word := *r.VoteWord
	votes, err := e.store.ListVotes(ctx, r.ID, word)
	if err != nil {
		e.log.Printf("engine: game %v: listing votes for %q: %v", r.ID, word, err)
		return
	}
	var pos, neg int
	for _, v := range votes {
		if v.IsCorrect {
			pos++
		} else {
			neg++
		}
	}
	// Ties favour the word.
	accepted := pos >= neg
	if err := e.store.CreateWord(ctx, word, accepted); err != nil && !errors.Is(err, store.ErrUniqueViolation) {
		e.log.Printf("engine: game %v: persisting voted word %q: %v", r.ID, word, err)
	}
	e.send(ctx, catalog.VoteResult(word, accepted))
	if _, err := e.store.PatchGame(ctx, r.ID, store.GamePatch{
		Status:   store.Ptr(game.StatusStarted),
		VoteWord: store.NullPtr[string](),
	}); err != nil {
		e.log.Printf("engine: game %v: restoring started status: %v", r.ID, err)
		return
	}
	current, ok := r.CurrentPlayer()
	if !ok {
		return
	}
	r.Status = game.StatusStarted
	if err := e.nextPlayer(ctx, r, current, accepted, word); err != nil {
		e.log.Printf("engine: game %v: advancing after vote: %v", r.ID, err)
	}
}
