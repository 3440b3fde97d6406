package store

import (
	"errors"
	"slices"
	"time"

	"github.com/tartampluch/go-cardology/internal/config"
	"github.com/tartampluch/go-cardology/internal/engine"
)

var (
	ErrProfileNotFound      = errors.New(config.ErrProfileNotFound)
	ErrConversationNotFound = errors.New(config.ErrConvNotFound)
)

// Profile is a saved reading snapshot.
type Profile struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	BirthDate string           `json:"birthDate"` // YYYY-MM-DD
	BirthCard engine.BirthCard `json:"birthCard"`
	Forecast  engine.Forecast  `json:"forecast"`
	CreatedAt time.Time        `json:"createdAt"`
}

// clone returns p with its own forecast slice.
func (p Profile) clone() Profile {
	p.Forecast = slices.Clone(p.Forecast)
	return p
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"` // config.RoleUser or config.RoleAssistant
	Content string `json:"content"`
}

// Conversation belongs to exactly one profile and is deleted with it.
type Conversation struct {
	ID        string    `json:"id"`
	Messages  []Message `json:"messages"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c Conversation) clone() Conversation {
	c.Messages = slices.Clone(c.Messages)
	return c
}

// conversationIndex is the persisted shape: profile id -> conversation id -> conversation.
type conversationIndex map[string]map[string]Conversation

// withBucket returns a copy of idx where profileID's bucket is replaced by bucket.
// A nil bucket removes the profile's entry.
func (idx conversationIndex) withBucket(profileID string, bucket map[string]Conversation) conversationIndex {
	out := make(conversationIndex, len(idx)+1)
	for k, v := range idx {
		out[k] = v
	}
	if bucket == nil {
		delete(out, profileID)
	} else {
		out[profileID] = bucket
	}
	return out
}

func copyBucket(b map[string]Conversation) map[string]Conversation {
	out := make(map[string]Conversation, len(b)+1)
	for k, v := range b {
		out[k] = v
	}
	return out
}
