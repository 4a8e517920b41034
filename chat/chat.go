// Package chat defines the outbound boundary the engine and coordinator
// depend on. The real HTTP client that talks to the chat platform is an
// external collaborator; this package only owns the interface, a minimal
// reference HTTP implementation, and the display-name fallback helper.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/avfomichev/slovobot/game"
)

// Member is a conversation participant as reported by the chat platform.
type Member struct {
	UserID game.UserID
	Name   string
	Online bool
}

// Gateway is the outbound contract: fire-and-forget message delivery, and
// member lookup used only to resolve a display name on registration.
// Failures never propagate to the engine; an implementation logs them and
// returns a zero value so the caller can fall back.
type Gateway interface {
	SendMessage(ctx context.Context, peerID game.PeerID, text string)
	GetMembers(ctx context.Context, peerID game.PeerID) []Member
}

// HTTPGateway is a minimal Gateway that posts to a configurable base URL.
// It stands in for whatever platform-specific client (VK, Telegram, ...)
// is deployed in front of the core; the core only ever sees the Gateway
// interface.
type HTTPGateway struct {
	BaseURL string
	Client  *http.Client
	Log     *log.Logger
}

// NewHTTPGateway creates an HTTPGateway with sane defaults.
func NewHTTPGateway(baseURL string, log *log.Logger) *HTTPGateway {
	return &HTTPGateway{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 5 * time.Second},
		Log:     log,
	}
}

// SendMessage posts text to peerID. Failures are logged and swallowed: the
// engine must make forward progress even if messaging is degraded.
func (g *HTTPGateway) SendMessage(ctx context.Context, peerID game.PeerID, text string) {
	body := struct {
		PeerID int64  `json:"peer_id"`
		Text   string `json:"text"`
	}{int64(peerID), text}
	b, err := json.Marshal(body)
	if err != nil {
		g.Log.Printf("chat: encoding message for peer %v: %v", peerID, err)
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+"/send", bytes.NewReader(b))
	if err != nil {
		g.Log.Printf("chat: building request for peer %v: %v", peerID, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := g.Client.Do(req)
	if err != nil {
		g.Log.Printf("chat: sending message to peer %v: %v", peerID, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		g.Log.Printf("chat: peer %v rejected message: status %v", peerID, resp.StatusCode)
	}
}

// GetMembers returns an empty slice on any failure; the engine falls back
// to a synthetic name.
func (g *HTTPGateway) GetMembers(ctx context.Context, peerID game.PeerID) []Member {
	url := fmt.Sprintf("%s/conversations/%d/members", g.BaseURL, int64(peerID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		g.Log.Printf("chat: building members request for peer %v: %v", peerID, err)
		return nil
	}
	resp, err := g.Client.Do(req)
	if err != nil {
		g.Log.Printf("chat: fetching members for peer %v: %v", peerID, err)
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		g.Log.Printf("chat: peer %v members request failed: status %v", peerID, resp.StatusCode)
		return nil
	}
	var out []struct {
		UserID int64  `json:"user_id"`
		Name   string `json:"name"`
		Online bool   `json:"online"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		g.Log.Printf("chat: decoding members for peer %v: %v", peerID, err)
		return nil
	}
	members := make([]Member, len(out))
	for i, m := range out {
		members[i] = Member{UserID: game.UserID(m.UserID), Name: m.Name, Online: m.Online}
	}
	return members
}

// DisplayName resolves a player's display name from the gateway's member
// list, falling back to the synthetic "id_<user_id>" form used when the
// platform omits or cannot report the member.
func DisplayName(members []Member, userID game.UserID) string {
	for _, m := range members {
		if m.UserID == userID {
			return m.Name
		}
	}
	return fmt.Sprintf("id_%d", int64(userID))
}
