package postgres

import (
	"strconv"
	"strings"

	"github.com/avfomichev/slovobot/game"
)

// encodeMovesOrder serializes moves order as the space-separated user-id
// string stored in the games.moves_order column.
func encodeMovesOrder(order []game.UserID) *string {
	if len(order) == 0 {
		return nil
	}
	parts := make([]string, len(order))
	for i, u := range order {
		parts[i] = strconv.FormatInt(int64(u), 10)
	}
	s := strings.Join(parts, " ")
	return &s
}

// decodeMovesOrder parses the space-separated user-id string back into a
// moves order slice. A nil or empty column decodes to an empty slice.
func decodeMovesOrder(s *string) []game.UserID {
	if s == nil || len(*s) == 0 {
		return nil
	}
	fields := strings.Fields(*s)
	order := make([]game.UserID, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			continue
		}
		order = append(order, game.UserID(n))
	}
	return order
}
