// Package store defines the durable-state contract that the engine and
// coordinator depend on: a narrow interface plus typed sentinel errors,
// implemented concretely by store/postgres and fakeable in tests.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/avfomichev/slovobot/game"
)

// Typed error conditions. Callers translate these into either a recovery
// action or a user-facing message; none of them should kill an engine.
var (
	// ErrNotFound means the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUniqueViolation means a unique constraint rejected the write.
	ErrUniqueViolation = errors.New("unique violation")
	// ErrFKViolation means a foreign key constraint rejected the write;
	// this is always a programming error in the engine (missing setting,
	// missing game) and should be logged and surfaced to the admin API,
	// never sent to chat.
	ErrFKViolation = errors.New("foreign key violation")
	// ErrTransient means the store or its network is temporarily
	// unavailable. The engine is not responsible for retrying; the
	// transport layer is.
	ErrTransient = errors.New("transient store error")
)

// GamePatch partially updates a Game row. A nil field leaves the column
// unchanged. The double-pointer fields distinguish "leave unchanged" (outer
// nil) from "set to NULL" (outer non-nil, inner nil) from "set a value"
// (outer and inner non-nil).
type GamePatch struct {
	Status         *game.Status
	SettingID      *int64
	MovesOrder     *[]game.UserID
	CurrentMove    **game.UserID
	LastWord       **string
	VoteWord       **string
	EventTimestamp **time.Time
	ElapsedTime    *time.Duration
}

// PlayerPatch partially updates a Player row.
type PlayerPatch struct {
	Online *bool
	Status *game.PlayerStatus
	Score  *int
}

// Store is the durable-state contract for games, players, and the
// dictionaries they're checked against. Every method runs in its own
// transaction; multi-step transitions (ClearGame) commit atomically.
type Store interface {
	GetGameByID(ctx context.Context, id int64) (*game.Record, error)
	CreateGame(ctx context.Context, settingID int64, peerID game.PeerID) (*game.Record, error)
	ListActiveGames(ctx context.Context) ([]game.Record, error)
	ListGames(ctx context.Context, peerID *game.PeerID, status *game.Status) ([]game.Record, error)
	ClearGame(ctx context.Context, gameID int64) (*game.Record, error)
	PatchGame(ctx context.Context, id int64, patch GamePatch) (*game.Record, error)

	CreatePlayer(ctx context.Context, gameID int64, userID game.UserID, name string) (*game.Player, error)
	PlayerScored(ctx context.Context, playerID int64) error
	PatchPlayer(ctx context.Context, id int64, patch PlayerPatch) (*game.Player, error)
	ListPlayers(ctx context.Context, gameID int64) ([]game.Player, error)

	CreateUsedWord(ctx context.Context, gameID int64, title string) error
	ListUsedWords(ctx context.Context, gameID int64) ([]string, error)

	CreateVote(ctx context.Context, gameID, playerID int64, title string, isCorrect bool) error
	ListVotes(ctx context.Context, gameID int64, title string) ([]game.Vote, error)

	CreateWord(ctx context.Context, title string, isCorrect bool) error
	GetWordByTitle(ctx context.Context, title string) (*game.Word, error)
	ListWords(ctx context.Context, isCorrect *bool) ([]game.Word, error)

	GetCityByTitle(ctx context.Context, title string) (*game.City, error)
	ListCities(ctx context.Context) ([]game.City, error)

	GetSettingByTitle(ctx context.Context, title game.SettingTitle) (*game.Setting, error)
}

// Ptr is a small helper for building GamePatch/PlayerPatch literals without
// a local variable for every field.
func Ptr[T any](v T) *T { return &v }

// PtrPtr builds the outer pointer of a double-pointer patch field that sets
// a concrete value.
func PtrPtr[T any](v T) **T {
	p := &v
	return &p
}

// NullPtr builds the outer pointer of a double-pointer patch field that
// clears the column to NULL.
func NullPtr[T any]() **T {
	var p *T
	return &p
}

// IsNotFound reports whether err represents a missing row.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
