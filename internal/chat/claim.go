package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"sync"

	"github.com/yonetim/opsdesk/internal/models"
	"github.com/yonetim/opsdesk/internal/store"
)

// ClaimMarker is the substring that identifies a claim sentinel message.
// It must match what claimMessage contains.
const ClaimMarker = "تم استلام المحادثة"

// claimMessage is the sentinel sent to the customer when an agent takes
// over a session. It doubles as the durable claim marker.
const claimMessage = "🔔 تم استلام المحادثة من قبل ممثل خدمة العملاء. سيتم الرد عليك قريباً."

// ClaimTracker tracks which sessions a human agent has taken over. Claimed
// sessions suppress the automated responder. The state is the union of two
// monotonic sets: a locally persisted set (survives reloads) and the set of
// sessions holding a sentinel message in the store (survives storage reset
// and converges across devices). Neither set ever shrinks.
type ClaimTracker struct {
	gateway *store.Gateway
	path    string

	mu      sync.Mutex
	claimed map[string]struct{} // local persisted set
	durable map[string]struct{} // sessions with a confirmed sentinel
}

// NewClaimTracker creates a tracker persisting its local set at path.
// An unreadable or missing file starts the tracker empty.
func NewClaimTracker(gateway *store.Gateway, path string) (*ClaimTracker, error) {
	if gateway == nil {
		return nil, fmt.Errorf("chat: gateway is required")
	}
	if path == "" {
		return nil, fmt.Errorf("chat: claim file path is required")
	}

	t := &ClaimTracker{
		gateway: gateway,
		path:    path,
		claimed: make(map[string]struct{}),
		durable: make(map[string]struct{}),
	}

	data, err := os.ReadFile(path)
	if err == nil {
		var ids []string
		if err := json.Unmarshal(data, &ids); err != nil {
			log.Printf("chat: claim file %s is corrupt, starting empty: %v", path, err)
		} else {
			for _, id := range ids {
				t.claimed[id] = struct{}{}
			}
		}
	}

	return t, nil
}

// IsClaimed reports whether a session is claimed, checking the local set
// first and falling back to the durable sentinel in the store. A store
// failure on the fallback degrades to the local answer.
func (t *ClaimTracker) IsClaimed(ctx context.Context, sessionID string) bool {
	t.mu.Lock()
	_, local := t.claimed[sessionID]
	_, durable := t.durable[sessionID]
	t.mu.Unlock()
	if local || durable {
		return true
	}

	claimed, err := t.gateway.SessionHasAdminMarker(ctx, sessionID, ClaimMarker)
	if err != nil {
		log.Printf("chat: claim check for %s: %v", sessionID, err)
		return false
	}
	if claimed {
		t.mu.Lock()
		t.claimed[sessionID] = struct{}{}
		t.durable[sessionID] = struct{}{}
		t.mu.Unlock()
		t.persist()
	}
	return claimed
}

// Claim marks a session as taken over by an agent. Idempotent. The local
// set is updated optimistically before the sentinel write; if the write
// fails the local claim is kept (automation suppression wins over
// durability) and the error is surfaced.
func (t *ClaimTracker) Claim(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("chat: session id is required")
	}

	t.mu.Lock()
	_, hadDurable := t.durable[sessionID]
	t.claimed[sessionID] = struct{}{}
	t.mu.Unlock()
	t.persist()

	if hadDurable {
		return nil
	}

	if _, err := t.gateway.InsertMessage(ctx, sessionID, models.SenderAdmin, claimMessage); err != nil {
		return fmt.Errorf("chat: claim sentinel for %s: %w", sessionID, err)
	}

	t.mu.Lock()
	t.durable[sessionID] = struct{}{}
	t.mu.Unlock()
	return nil
}

// Reconcile scans the store for sentinel messages and unions the result
// into both sets. It never removes entries: claims are monotonic.
func (t *ClaimTracker) Reconcile(ctx context.Context) error {
	ids, err := t.gateway.SessionsWithAdminMarker(ctx, ClaimMarker)
	if err != nil {
		return fmt.Errorf("chat: reconcile claims: %w", err)
	}

	t.mu.Lock()
	for _, id := range ids {
		t.claimed[id] = struct{}{}
		t.durable[id] = struct{}{}
	}
	t.mu.Unlock()
	t.persist()
	return nil
}

// Claimed returns the claimed session ids, sorted (for testing and the
// dashboard).
func (t *ClaimTracker) Claimed() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.claimed))
	for id := range t.claimed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// persist writes the local set to the claim file. Best-effort: the local
// in-memory set already suppresses automation.
func (t *ClaimTracker) persist() {
	ids := t.Claimed()
	data, err := json.Marshal(ids)
	if err != nil {
		log.Printf("chat: marshal claim set: %v", err)
		return
	}
	if err := os.WriteFile(t.path, data, 0644); err != nil {
		log.Printf("chat: write claim file %s: %v", t.path, err)
	}
}
