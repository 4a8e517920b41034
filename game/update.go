package game

import "github.com/google/uuid"

// Update is a single inbound chat event, as delivered by the update source.
// Within a PeerID, updates arrive in platform order; across distinct
// PeerIDs no ordering is implied.
type Update struct {
	// ID correlates an update across logs even though delivery is
	// at-least-once; it is not used for deduplication since every handler
	// here is idempotent by construction (state reads come from the store).
	ID     uuid.UUID
	PeerID PeerID
	UserID UserID
	Body   string
}

// NewUpdate stamps a fresh correlation id onto an inbound update. Update
// sources call this once per platform event.
func NewUpdate(peerID PeerID, userID UserID, body string) Update {
	return Update{
		ID:     uuid.New(),
		PeerID: peerID,
		UserID: userID,
		Body:   body,
	}
}
