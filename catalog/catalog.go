// Package catalog formats the user-visible strings for every event the
// engine and coordinator can emit. Every function is pure: no I/O, no
// locale negotiation, just Russian-language templates, keeping formatting
// centralized in a single place instead of scattered across call sites.
package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/avfomichev/slovobot/game"
)

// StartHint is shown in the init state for any body that is not a
// recognized setting title.
func StartHint() string {
	return "Чтобы начать игру, напишите название режима: \"слова\" или \"города\""
}

// RegistrationPrompt announces that registration has begun.
func RegistrationPrompt(setting game.SettingTitle, timeout time.Duration) string {
	return fmt.Sprintf(
		"Режим %q. Регистрация открыта на %d сек. Чтобы участвовать, напишите \"я\"",
		setting, int(timeout.Seconds()),
	)
}

// RegistrationAck confirms a successful registration.
func RegistrationAck(name string) string {
	return fmt.Sprintf("%s, вы зарегистрированы", name)
}

// RegistrationConflict tells a player they are already registered.
func RegistrationConflict(name string) string {
	return fmt.Sprintf("%s, вы уже зарегистрированы", name)
}

// RegistrationError reports an unexpected failure while registering.
func RegistrationError(name string) string {
	return fmt.Sprintf("%s, не удалось зарегистрировать вас, попробуйте ещё раз", name)
}

// RegistrationFailed announces that registration closed with too few
// players.
func RegistrationFailed() string {
	return "Недостаточно участников для игры. Напишите название режима, чтобы начать заново"
}

// RegistrationSuccess announces that the game is about to begin.
func RegistrationSuccess() string {
	return "Регистрация окончена, игра начинается!"
}

// PlayerMove asks the named player for a word starting with the last
// letter of lastWord, with a per-turn deadline.
func PlayerMove(name, lastWord string, timeout time.Duration) string {
	return fmt.Sprintf(
		"%s, ваш ход. Последнее слово: %q. На слово с буквы %q у вас %d сек",
		name, lastWord, lastLetter(lastWord), int(timeout.Seconds()),
	)
}

// PlayerTimeout announces that a player was eliminated for not moving in
// time.
func PlayerTimeout(name string) string {
	return fmt.Sprintf("%s не успел(а) ответить и выбывает из игры", name)
}

// PlayerUsedWord tells a player their word was already played this game.
func PlayerUsedWord(name, word string) string {
	return fmt.Sprintf("%s, слово %q уже использовано в этой игре", name, word)
}

// PlayerWordWrong tells a player their word does not continue the chain.
func PlayerWordWrong(name, word, lastWord string) string {
	return fmt.Sprintf(
		"%s, слово %q должно начинаться на букву %q (последняя буква слова %q)",
		name, word, lastLetter(lastWord), lastWord,
	)
}

// PlayerWordBlacklisted tells a player their word is a confirmed non-word.
func PlayerWordBlacklisted(name, word string) string {
	return fmt.Sprintf("%s, слово %q не является словом", name, word)
}

// CityDoesntExist tells a player their submitted city is unknown.
func CityDoesntExist(name, word string) string {
	return fmt.Sprintf("%s, города %q не существует", name, word)
}

// VotePrompt asks every other player to vote on a word not found in the
// dictionary.
func VotePrompt(word string, timeout time.Duration) string {
	return fmt.Sprintf(
		"Слово %q не найдено в словаре. Голосуйте \"да\" или \"нет\" в течение %d сек",
		word, int(timeout.Seconds()),
	)
}

// VoteAck confirms a recorded vote.
func VoteAck(name string) string {
	return fmt.Sprintf("%s, ваш голос учтён", name)
}

// VoteConflict tells a player they already voted on this word.
func VoteConflict(name string) string {
	return fmt.Sprintf("%s, вы уже голосовали по этому слову", name)
}

// VoteSelf tells the proposing player they cannot vote on their own word.
func VoteSelf(name string) string {
	return fmt.Sprintf("%s, нельзя голосовать за своё слово", name)
}

// VoteResult announces the tally's outcome.
func VoteResult(word string, accepted bool) string {
	if accepted {
		return fmt.Sprintf("Слово %q принято", word)
	}
	return fmt.Sprintf("Слово %q отклонено", word)
}

// ScoreboardEntry is one rendered line of a scoreboard.
type ScoreboardEntry struct {
	Rank  int
	Name  string
	Score int
}

// Status renders a scoreboard beneath the named game status.
func Status(status game.Status, scoreboard []ScoreboardEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Статус игры: %s\n", status)
	if len(scoreboard) == 0 {
		b.WriteString("Игроков нет")
		return b.String()
	}
	for _, e := range scoreboard {
		fmt.Fprintf(&b, "%d. %s — %d\n", e.Rank, e.Name, e.Score)
	}
	return strings.TrimRight(b.String(), "\n")
}

// GameFinished announces the game's end. winnerName is empty when
// registration was aborted before anyone could win.
func GameFinished(winnerName string) string {
	if len(winnerName) == 0 {
		return "Игра окончена"
	}
	return fmt.Sprintf("Игра окончена! Победитель: %s", winnerName)
}

// lastLetter returns the letter a following word must start with: the
// word's final rune, or its second-to-last rune if the final rune is one
// of ь, ъ, ы. A word with no such letter (empty, or a lone ь, ъ or ы)
// yields a space.
func lastLetter(word string) rune {
	runes := []rune(word)
	if len(runes) == 0 {
		return ' '
	}
	last := runes[len(runes)-1]
	switch last {
	case 'ь', 'ъ', 'ы':
		if len(runes) >= 2 {
			return runes[len(runes)-2]
		}
		return ' '
	}
	return last
}

// LastLetter exposes lastLetter for the engine's letter-chain check so the
// rule lives in exactly one place.
func LastLetter(word string) rune { return lastLetter(word) }
