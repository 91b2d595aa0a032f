package backend

import (
	"context"
	"fmt"
	"net/http"
)

// UserNotesLimit is how many recent notes are requested per bulk lookup.
const UserNotesLimit = 100

// Engagement holds the public counters of one fediverse note.
type Engagement struct {
	RepliesCount  uint64 `json:"repliesCount"`
	ReactionCount uint64 `json:"reactionCount"`
}

// note is the subset of a Misskey note object the service reads.
type note struct {
	ID string `json:"id"`
	Engagement
}

// FediverseClient talks to a Misskey-compatible instance. Endpoints used here
// are public and need no credentials.
type FediverseClient struct {
	baseURL string
	pool    *Pool
}

// NoteEngagement fetches the reply and reaction counters for one note.
func (c *FediverseClient) NoteEngagement(ctx context.Context, noteID string) (Engagement, error) {
	var n note
	if err := c.pool.doJSON(ctx, request{
		method: http.MethodPost,
		url:    c.baseURL + "/api/notes/show",
		body:   map[string]string{"noteId": noteID},
	}, &n); err != nil {
		return Engagement{}, fmt.Errorf("fetching note %s: %w", noteID, err)
	}
	return n.Engagement, nil
}

// UserNotes fetches up to limit recent notes of a user, keyed by note ID.
// The call either returns every note of the page or an error.
func (c *FediverseClient) UserNotes(ctx context.Context, userID string, limit int) (map[string]Engagement, error) {
	var notes []note
	if err := c.pool.doJSON(ctx, request{
		method: http.MethodPost,
		url:    c.baseURL + "/api/users/notes",
		body: map[string]any{
			"userId": userID,
			"limit":  limit,
		},
	}, &notes); err != nil {
		return nil, fmt.Errorf("fetching notes of user %s: %w", userID, err)
	}
	out := make(map[string]Engagement, len(notes))
	for _, n := range notes {
		if n.ID == "" {
			continue
		}
		out[n.ID] = n.Engagement
	}
	return out, nil
}
