// Package chat maintains the live chat session state for the console:
// the session map, the agent claim set, and the push/poll update loop.
package chat

import (
	"sort"
	"sync"
	"time"

	"github.com/yonetim/opsdesk/internal/models"
)

// Session is the derived view of one customer conversation.
type Session struct {
	SessionID    string               `json:"session_id"`
	Messages     []models.ChatMessage `json:"messages"`
	MessageCount int                  `json:"message_count"`
	LastMessage  *models.ChatMessage  `json:"last_message,omitempty"`
	HasUnseen    bool                 `json:"has_unseen"`
	CreatedAt    time.Time            `json:"created_at"`
}

// Aggregator converts a flat stream of chat messages into the session map.
// All mutations are applied as whole-session patches under one lock; the
// dedup-by-id rule makes push and poll updates safe to interleave.
type Aggregator struct {
	mu       sync.Mutex
	sessions map[string]*Session
	open     string // session currently open in the console, if any
}

// NewAggregator creates an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{sessions: make(map[string]*Session)}
}

// RebuildFromSnapshot replaces the session map from a full store read.
// Deterministic and idempotent: the same input yields the same map.
// Unseen flags of surviving sessions are preserved; sessions absent from
// the snapshot are dropped (their messages were deleted).
func (a *Aggregator) RebuildFromSnapshot(msgs []models.ChatMessage) {
	grouped := make(map[string][]models.ChatMessage)
	for _, m := range msgs {
		if m.SessionID == "" {
			continue
		}
		grouped[m.SessionID] = append(grouped[m.SessionID], m)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	next := make(map[string]*Session, len(grouped))
	for id, group := range grouped {
		sortMessages(group)
		s := &Session{
			SessionID:    id,
			Messages:     group,
			MessageCount: len(group),
			LastMessage:  &group[len(group)-1],
			CreatedAt:    group[0].CreatedAt,
		}
		if prev, ok := a.sessions[id]; ok {
			s.HasUnseen = prev.HasUnseen
		}
		next[id] = s
	}
	a.sessions = next
}

// ApplyIncoming merges one store-confirmed message into the map. Messages
// already present (by id) are ignored; out-of-order arrivals are inserted
// at their sorted position, not appended.
func (a *Aggregator) ApplyIncoming(msg models.ChatMessage) {
	if msg.SessionID == "" || msg.ID == "" {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.sessions[msg.SessionID]
	if !ok {
		s = &Session{
			SessionID: msg.SessionID,
			CreatedAt: msg.CreatedAt,
			HasUnseen: msg.SessionID != a.open,
		}
		a.sessions[msg.SessionID] = s
	}

	for _, m := range s.Messages {
		if m.ID == msg.ID {
			return
		}
	}

	s.Messages = append(s.Messages, msg)
	sortMessages(s.Messages)
	s.MessageCount = len(s.Messages)
	s.LastMessage = &s.Messages[len(s.Messages)-1]
	if msg.SessionID != a.open {
		s.HasUnseen = true
	}
}

// MarkSeen clears the unseen flag for a session.
func (a *Aggregator) MarkSeen(sessionID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok := a.sessions[sessionID]; ok {
		s.HasUnseen = false
	}
}

// SetOpen records which session the console currently has open. New
// messages for the open session do not raise the unseen flag.
func (a *Aggregator) SetOpen(sessionID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.open = sessionID
}

// Open returns the currently open session id.
func (a *Aggregator) Open() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.open
}

// Remove drops a session from memory (after its messages were deleted).
func (a *Aggregator) Remove(sessionID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.sessions, sessionID)
}

// Session returns a copy of one session, if present.
func (a *Aggregator) Session(sessionID string) (Session, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.sessions[sessionID]
	if !ok {
		return Session{}, false
	}
	return copySession(s), true
}

// Sessions returns copies of all sessions, most recent activity first.
func (a *Aggregator) Sessions() []Session {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]Session, 0, len(a.sessions))
	for _, s := range a.sessions {
		out = append(out, copySession(s))
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].CreatedAt, out[j].CreatedAt
		if out[i].LastMessage != nil {
			ti = out[i].LastMessage.CreatedAt
		}
		if out[j].LastMessage != nil {
			tj = out[j].LastMessage.CreatedAt
		}
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return out[i].SessionID < out[j].SessionID
	})
	return out
}

// sortMessages orders ascending by created_at, breaking ties by id so the
// order is stable across rebuild and incremental paths.
func sortMessages(msgs []models.ChatMessage) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if !msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
		}
		return msgs[i].ID < msgs[j].ID
	})
}

func copySession(s *Session) Session {
	cp := *s
	cp.Messages = make([]models.ChatMessage, len(s.Messages))
	copy(cp.Messages, s.Messages)
	if len(cp.Messages) > 0 {
		cp.LastMessage = &cp.Messages[len(cp.Messages)-1]
	}
	return cp
}
