package game

import "time"

// State is a tagged union over the nullable fields of Record, one concrete
// type per Status. The store round-trips the flat Record; callers that only
// care about "what can happen from here" (the engine's restart logic in
// Reinit) work against State instead of re-deriving meaning
// from which pointer fields happen to be non-nil.
type State interface {
	Status() Status
}

// InitState is a game waiting for a recognized setting title.
type InitState struct{}

// Status returns StatusInit.
func (InitState) Status() Status { return StatusInit }

// RegistrationState is a game collecting players before a deadline.
type RegistrationState struct {
	Setting  Setting
	Deadline time.Time
}

// Status returns StatusRegistration.
func (RegistrationState) Status() Status { return StatusRegistration }

// StartedState is a game awaiting a word from Current.
type StartedState struct {
	Setting    Setting
	MovesOrder []UserID
	Current    UserID
	LastWord   string
	Deadline   time.Time
}

// Status returns StatusStarted.
func (StartedState) Status() Status { return StatusStarted }

// VoteWordState is a game awaiting a crowd verdict on VoteWord.
type VoteWordState struct {
	Setting    Setting
	MovesOrder []UserID
	Current    UserID
	LastWord   string
	VoteWord   string
	Deadline   time.Time
}

// Status returns StatusVoteWord.
func (VoteWordState) Status() Status { return StatusVoteWord }

// FinishedState is a terminal game; Winner is absent if registration was
// aborted before anyone played.
type FinishedState struct {
	Winner *UserID
}

// Status returns StatusFinished.
func (FinishedState) Status() Status { return StatusFinished }

// BuildState derives the in-memory State from a persisted Record, applying
// the nominal timeout minus whatever elapsed time survived a restart.
func BuildState(r Record, now time.Time) State {
	switch r.Status {
	case StatusRegistration:
		var setting Setting
		if r.Setting != nil {
			setting = *r.Setting
		}
		return RegistrationState{
			Setting:  setting,
			Deadline: now.Add(remaining(setting.Timeout, r.ElapsedTime)),
		}
	case StatusStarted:
		var setting Setting
		if r.Setting != nil {
			setting = *r.Setting
		}
		current := UserID(0)
		if r.CurrentMove != nil {
			current = *r.CurrentMove
		}
		lastWord := ""
		if r.LastWord != nil {
			lastWord = *r.LastWord
		}
		return StartedState{
			Setting:    setting,
			MovesOrder: r.MovesOrder,
			Current:    current,
			LastWord:   lastWord,
			Deadline:   now.Add(remaining(setting.Timeout, r.ElapsedTime)),
		}
	case StatusVoteWord:
		var setting Setting
		if r.Setting != nil {
			setting = *r.Setting
		}
		current := UserID(0)
		if r.CurrentMove != nil {
			current = *r.CurrentMove
		}
		lastWord := ""
		if r.LastWord != nil {
			lastWord = *r.LastWord
		}
		voteWord := ""
		if r.VoteWord != nil {
			voteWord = *r.VoteWord
		}
		return VoteWordState{
			Setting:    setting,
			MovesOrder: r.MovesOrder,
			Current:    current,
			LastWord:   lastWord,
			VoteWord:   voteWord,
			Deadline:   now.Add(remaining(setting.Timeout, r.ElapsedTime)),
		}
	case StatusFinished:
		var winner *UserID
		if len(r.MovesOrder) == 1 {
			w := r.MovesOrder[0]
			winner = &w
		}
		return FinishedState{Winner: winner}
	default:
		return InitState{}
	}
}

// remaining computes the duration left on a timer after elapsed time
// survived a restart.
func remaining(timeout, elapsed time.Duration) time.Duration {
	d := timeout - elapsed
	if d < 0 {
		return 0
	}
	return d
}
