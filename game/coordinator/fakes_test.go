package coordinator

import (
	"context"
	"fmt"
	"sync"

	"github.com/avfomichev/slovobot/chat"
	"github.com/avfomichev/slovobot/game"
	"github.com/avfomichev/slovobot/store"
)

// fakeStore is the same hand-rolled in-memory store.Store used by
// game/engine's tests, duplicated here rather than shared across package
// boundaries since both are unexported _test.go helpers.
type fakeStore struct {
	mu sync.Mutex

	nextGameID   int64
	nextPlayerID int64
	nextVoteID   int64

	games      map[int64]*game.Record
	playerGame map[int64]int64

	usedWords map[int64][]string
	votes     map[int64][]game.Vote

	words       map[string]game.Word
	cities      map[string]game.City
	settings    map[game.SettingTitle]game.Setting
	settingByID map[int64]game.Setting
}

func newFakeStore(settings []game.Setting) *fakeStore {
	fs := &fakeStore{
		games:       make(map[int64]*game.Record),
		playerGame:  make(map[int64]int64),
		usedWords:   make(map[int64][]string),
		votes:       make(map[int64][]game.Vote),
		words:       make(map[string]game.Word),
		cities:      make(map[string]game.City),
		settings:    make(map[game.SettingTitle]game.Setting),
		settingByID: make(map[int64]game.Setting),
	}
	for _, s := range settings {
		fs.settings[s.Title] = s
		fs.settingByID[s.ID] = s
	}
	return fs
}

func (fs *fakeStore) cloneRecord(r *game.Record) *game.Record {
	cp := *r
	cp.MovesOrder = append([]game.UserID(nil), r.MovesOrder...)
	cp.Players = append([]game.Player(nil), r.Players...)
	if r.CurrentMove != nil {
		v := *r.CurrentMove
		cp.CurrentMove = &v
	}
	if r.LastWord != nil {
		v := *r.LastWord
		cp.LastWord = &v
	}
	if r.VoteWord != nil {
		v := *r.VoteWord
		cp.VoteWord = &v
	}
	if r.EventTimestamp != nil {
		v := *r.EventTimestamp
		cp.EventTimestamp = &v
	}
	if r.Setting != nil {
		v := *r.Setting
		cp.Setting = &v
	}
	return &cp
}

func (fs *fakeStore) GetGameByID(ctx context.Context, id int64) (*game.Record, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	r, ok := fs.games[id]
	if !ok {
		return nil, fmt.Errorf("game %v: %w", id, store.ErrNotFound)
	}
	return fs.cloneRecord(r), nil
}

func (fs *fakeStore) CreateGame(ctx context.Context, settingID int64, peerID game.PeerID) (*game.Record, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.nextGameID++
	r := &game.Record{ID: fs.nextGameID, PeerID: peerID, SettingID: settingID, Status: game.StatusInit}
	fs.games[r.ID] = r
	return fs.cloneRecord(r), nil
}

func (fs *fakeStore) ListActiveGames(ctx context.Context) ([]game.Record, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var out []game.Record
	for _, r := range fs.games {
		if r.Status != game.StatusFinished {
			out = append(out, *fs.cloneRecord(r))
		}
	}
	return out, nil
}

func (fs *fakeStore) ListGames(ctx context.Context, peerID *game.PeerID, status *game.Status) ([]game.Record, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var out []game.Record
	for _, r := range fs.games {
		if peerID != nil && r.PeerID != *peerID {
			continue
		}
		if status != nil && r.Status != *status {
			continue
		}
		out = append(out, *fs.cloneRecord(r))
	}
	return out, nil
}

func (fs *fakeStore) ClearGame(ctx context.Context, gameID int64) (*game.Record, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	r, ok := fs.games[gameID]
	if !ok {
		return nil, fmt.Errorf("game %v: %w", gameID, store.ErrNotFound)
	}
	for _, p := range r.Players {
		delete(fs.playerGame, p.ID)
	}
	delete(fs.usedWords, gameID)
	delete(fs.votes, gameID)
	*r = game.Record{ID: r.ID, PeerID: r.PeerID, Status: game.StatusInit}
	return fs.cloneRecord(r), nil
}

func (fs *fakeStore) PatchGame(ctx context.Context, id int64, patch store.GamePatch) (*game.Record, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	r, ok := fs.games[id]
	if !ok {
		return nil, fmt.Errorf("game %v: %w", id, store.ErrNotFound)
	}
	if patch.Status != nil {
		r.Status = *patch.Status
	}
	if patch.SettingID != nil {
		r.SettingID = *patch.SettingID
		if s, ok := fs.settingByID[*patch.SettingID]; ok {
			v := s
			r.Setting = &v
		}
	}
	if patch.MovesOrder != nil {
		r.MovesOrder = append([]game.UserID(nil), (*patch.MovesOrder)...)
	}
	if patch.CurrentMove != nil {
		r.CurrentMove = *patch.CurrentMove
	}
	if patch.LastWord != nil {
		r.LastWord = *patch.LastWord
	}
	if patch.VoteWord != nil {
		r.VoteWord = *patch.VoteWord
	}
	if patch.EventTimestamp != nil {
		r.EventTimestamp = *patch.EventTimestamp
	}
	if patch.ElapsedTime != nil {
		r.ElapsedTime = *patch.ElapsedTime
	}
	return fs.cloneRecord(r), nil
}

func (fs *fakeStore) CreatePlayer(ctx context.Context, gameID int64, userID game.UserID, name string) (*game.Player, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	r, ok := fs.games[gameID]
	if !ok {
		return nil, fmt.Errorf("game %v: %w", gameID, store.ErrNotFound)
	}
	for _, p := range r.Players {
		if p.UserID == userID {
			return nil, fmt.Errorf("player %v already in game %v: %w", userID, gameID, store.ErrUniqueViolation)
		}
	}
	fs.nextPlayerID++
	p := game.Player{ID: fs.nextPlayerID, GameID: gameID, UserID: userID, Name: name, Status: game.PlayerActive, Online: true}
	r.Players = append(r.Players, p)
	fs.playerGame[p.ID] = gameID
	return &p, nil
}

func (fs *fakeStore) playerSlot(playerID int64) (*game.Player, error) {
	gameID, ok := fs.playerGame[playerID]
	if !ok {
		return nil, fmt.Errorf("player %v: %w", playerID, store.ErrNotFound)
	}
	r := fs.games[gameID]
	for i := range r.Players {
		if r.Players[i].ID == playerID {
			return &r.Players[i], nil
		}
	}
	return nil, fmt.Errorf("player %v: %w", playerID, store.ErrNotFound)
}

func (fs *fakeStore) PlayerScored(ctx context.Context, playerID int64) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	p, err := fs.playerSlot(playerID)
	if err != nil {
		return err
	}
	p.Score++
	return nil
}

func (fs *fakeStore) PatchPlayer(ctx context.Context, id int64, patch store.PlayerPatch) (*game.Player, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	p, err := fs.playerSlot(id)
	if err != nil {
		return nil, err
	}
	if patch.Online != nil {
		p.Online = *patch.Online
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.Score != nil {
		p.Score = *patch.Score
	}
	cp := *p
	return &cp, nil
}

func (fs *fakeStore) ListPlayers(ctx context.Context, gameID int64) ([]game.Player, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	r, ok := fs.games[gameID]
	if !ok {
		return nil, fmt.Errorf("game %v: %w", gameID, store.ErrNotFound)
	}
	return append([]game.Player(nil), r.Players...), nil
}

func (fs *fakeStore) CreateUsedWord(ctx context.Context, gameID int64, title string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for _, w := range fs.usedWords[gameID] {
		if w == title {
			return fmt.Errorf("word %q already used in game %v: %w", title, gameID, store.ErrUniqueViolation)
		}
	}
	fs.usedWords[gameID] = append(fs.usedWords[gameID], title)
	return nil
}

func (fs *fakeStore) ListUsedWords(ctx context.Context, gameID int64) ([]string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]string(nil), fs.usedWords[gameID]...), nil
}

func (fs *fakeStore) CreateVote(ctx context.Context, gameID, playerID int64, title string, isCorrect bool) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for _, v := range fs.votes[gameID] {
		if v.PlayerID == playerID && v.Title == title {
			return fmt.Errorf("player %v already voted on %q: %w", playerID, title, store.ErrUniqueViolation)
		}
	}
	fs.nextVoteID++
	fs.votes[gameID] = append(fs.votes[gameID], game.Vote{ID: fs.nextVoteID, GameID: gameID, PlayerID: playerID, Title: title, IsCorrect: isCorrect})
	return nil
}

func (fs *fakeStore) ListVotes(ctx context.Context, gameID int64, title string) ([]game.Vote, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var out []game.Vote
	for _, v := range fs.votes[gameID] {
		if v.Title == title {
			out = append(out, v)
		}
	}
	return out, nil
}

func (fs *fakeStore) CreateWord(ctx context.Context, title string, isCorrect bool) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.words[title]; ok {
		return fmt.Errorf("word %q already exists: %w", title, store.ErrUniqueViolation)
	}
	fs.words[title] = game.Word{ID: int64(len(fs.words) + 1), Title: title, IsCorrect: isCorrect}
	return nil
}

func (fs *fakeStore) GetWordByTitle(ctx context.Context, title string) (*game.Word, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	w, ok := fs.words[title]
	if !ok {
		return nil, fmt.Errorf("word %q: %w", title, store.ErrNotFound)
	}
	return &w, nil
}

func (fs *fakeStore) ListWords(ctx context.Context, isCorrect *bool) ([]game.Word, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var out []game.Word
	for _, w := range fs.words {
		if isCorrect != nil && w.IsCorrect != *isCorrect {
			continue
		}
		out = append(out, w)
	}
	return out, nil
}

func (fs *fakeStore) GetCityByTitle(ctx context.Context, title string) (*game.City, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	c, ok := fs.cities[title]
	if !ok {
		return nil, fmt.Errorf("city %q: %w", title, store.ErrNotFound)
	}
	return &c, nil
}

func (fs *fakeStore) ListCities(ctx context.Context) ([]game.City, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var out []game.City
	for _, c := range fs.cities {
		out = append(out, c)
	}
	return out, nil
}

func (fs *fakeStore) GetSettingByTitle(ctx context.Context, title game.SettingTitle) (*game.Setting, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	s, ok := fs.settings[title]
	if !ok {
		return nil, fmt.Errorf("setting %q: %w", title, store.ErrNotFound)
	}
	return &s, nil
}

// fakeChat is an in-memory chat.Gateway that records every message sent.
type fakeChat struct {
	mu      sync.Mutex
	sent    []string
	members []chat.Member
}

func (fc *fakeChat) SendMessage(ctx context.Context, peerID game.PeerID, text string) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.sent = append(fc.sent, text)
}

func (fc *fakeChat) GetMembers(ctx context.Context, peerID game.PeerID) []chat.Member {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return append([]chat.Member(nil), fc.members...)
}

func (fc *fakeChat) last() string {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if len(fc.sent) == 0 {
		return ""
	}
	return fc.sent[len(fc.sent)-1]
}
