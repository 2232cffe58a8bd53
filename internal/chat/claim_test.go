package chat

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/yonetim/opsdesk/internal/models"
	"github.com/yonetim/opsdesk/internal/store"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testGateway creates a store gateway over an in-memory SQLite database.
func testGateway(t *testing.T) *store.Gateway {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := store.AutoMigrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	g, err := store.NewGateway(db)
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	return g
}

func claimFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "claims.json")
}

func TestClaimWritesSentinelOnce(t *testing.T) {
	g := testGateway(t)
	ctx := context.Background()

	tr, err := NewClaimTracker(g, claimFile(t))
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}

	if err := tr.Claim(ctx, "s1"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !tr.IsClaimed(ctx, "s1") {
		t.Error("s1 should be claimed")
	}

	// Second claim is idempotent: no second sentinel.
	if err := tr.Claim(ctx, "s1"); err != nil {
		t.Fatalf("repeat claim: %v", err)
	}
	msgs, err := g.MessagesBySession(ctx, "s1")
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d sentinel messages, want 1", len(msgs))
	}
	if msgs[0].Sender != models.SenderAdmin {
		t.Errorf("sentinel sender = %q, want admin", msgs[0].Sender)
	}
}

func TestClaimRequiresSessionID(t *testing.T) {
	tr, _ := NewClaimTracker(testGateway(t), claimFile(t))
	if err := tr.Claim(context.Background(), ""); err == nil {
		t.Error("empty session id should be rejected")
	}
}

func TestClaimSurvivesReload(t *testing.T) {
	g := testGateway(t)
	path := claimFile(t)
	ctx := context.Background()

	tr, _ := NewClaimTracker(g, path)
	if err := tr.Claim(ctx, "s1"); err != nil {
		t.Fatalf("claim: %v", err)
	}

	reloaded, err := NewClaimTracker(g, path)
	if err != nil {
		t.Fatalf("reload tracker: %v", err)
	}
	if !reloaded.IsClaimed(ctx, "s1") {
		t.Error("claim should survive a tracker reload")
	}
}

func TestCorruptClaimFileStartsEmpty(t *testing.T) {
	path := claimFile(t)
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	tr, err := NewClaimTracker(testGateway(t), path)
	if err != nil {
		t.Fatalf("corrupt file should not fail construction: %v", err)
	}
	if got := tr.Claimed(); len(got) != 0 {
		t.Errorf("corrupt file should start empty, got %v", got)
	}
}

func TestClaimKeepsLocalOnStoreFailure(t *testing.T) {
	g := testGateway(t)
	tr, _ := NewClaimTracker(g, claimFile(t))

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	if err := tr.Claim(cancelled, "s1"); err == nil {
		t.Fatal("expected error when the sentinel write fails")
	}
	// The local claim holds regardless; automation stays suppressed.
	if !tr.IsClaimed(context.Background(), "s1") {
		t.Error("local claim should survive a failed sentinel write")
	}

	// A later claim retries the sentinel.
	ctx := context.Background()
	if err := tr.Claim(ctx, "s1"); err != nil {
		t.Fatalf("retry claim: %v", err)
	}
	msgs, _ := g.MessagesBySession(ctx, "s1")
	if len(msgs) != 1 {
		t.Errorf("retry should write exactly one sentinel, got %d", len(msgs))
	}
}

func TestIsClaimedFallsBackToStore(t *testing.T) {
	g := testGateway(t)
	ctx := context.Background()

	// Another device claimed s1: only the sentinel exists.
	if _, err := g.InsertMessage(ctx, "s1", models.SenderAdmin, claimMessage); err != nil {
		t.Fatalf("insert sentinel: %v", err)
	}

	tr, _ := NewClaimTracker(g, claimFile(t))
	if !tr.IsClaimed(ctx, "s1") {
		t.Error("sentinel in store should make the session claimed")
	}
	// The answer is cached into the local set.
	if got := tr.Claimed(); len(got) != 1 || got[0] != "s1" {
		t.Errorf("claimed set = %v, want [s1]", got)
	}

	if tr.IsClaimed(ctx, "s2") {
		t.Error("s2 should not be claimed")
	}
}

func TestReconcileUnions(t *testing.T) {
	g := testGateway(t)
	ctx := context.Background()

	g.InsertMessage(ctx, "s1", models.SenderAdmin, claimMessage)
	g.InsertMessage(ctx, "s2", models.SenderAdmin, claimMessage)

	tr, _ := NewClaimTracker(g, claimFile(t))
	if err := tr.Claim(ctx, "s3"); err != nil {
		t.Fatalf("claim: %v", err)
	}

	if err := tr.Reconcile(ctx); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	got := tr.Claimed()
	want := []string{"s1", "s2", "s3"}
	if len(got) != len(want) {
		t.Fatalf("claimed = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("claimed = %v, want %v", got, want)
		}
	}
}
