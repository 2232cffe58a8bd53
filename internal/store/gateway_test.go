package store

import (
	"context"
	"testing"
	"time"

	"github.com/yonetim/opsdesk/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testDB creates an in-memory SQLite database with all tables migrated.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func testGateway(t *testing.T) *Gateway {
	t.Helper()
	g, err := NewGateway(testDB(t))
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	return g
}

func TestNewGatewayRequiresDB(t *testing.T) {
	if _, err := NewGateway(nil); err == nil {
		t.Fatal("expected error for nil db")
	}
}

func TestInsertAndListMessages(t *testing.T) {
	g := testGateway(t)
	ctx := context.Background()

	first, err := g.InsertMessage(ctx, "sess-1", models.SenderUser, "hello")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if first.ID == "" {
		t.Error("inserted message should get an ID")
	}
	if _, err := g.InsertMessage(ctx, "sess-1", models.SenderBot, "hi there"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := g.InsertMessage(ctx, "sess-2", models.SenderUser, "other"); err != nil {
		t.Fatalf("insert: %v", err)
	}

	all, err := g.AllMessages(ctx)
	if err != nil {
		t.Fatalf("all messages: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d messages, want 3", len(all))
	}

	sess, err := g.MessagesBySession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("messages by session: %v", err)
	}
	if len(sess) != 2 {
		t.Fatalf("got %d messages for sess-1, want 2", len(sess))
	}
	if sess[0].Content != "hello" {
		t.Errorf("session messages should be ascending, first = %q", sess[0].Content)
	}
}

func TestDeleteSession(t *testing.T) {
	g := testGateway(t)
	ctx := context.Background()

	g.InsertMessage(ctx, "sess-1", models.SenderUser, "a")
	g.InsertMessage(ctx, "sess-1", models.SenderUser, "b")
	g.InsertMessage(ctx, "sess-2", models.SenderUser, "c")

	if err := g.DeleteSession(ctx, "sess-1"); err != nil {
		t.Fatalf("delete session: %v", err)
	}

	all, _ := g.AllMessages(ctx)
	if len(all) != 1 {
		t.Fatalf("got %d messages after delete, want 1", len(all))
	}
	if all[0].SessionID != "sess-2" {
		t.Errorf("surviving message belongs to %q, want sess-2", all[0].SessionID)
	}
}

func TestSessionHasAdminMarker(t *testing.T) {
	g := testGateway(t)
	ctx := context.Background()
	marker := "تم استلام المحادثة"

	g.InsertMessage(ctx, "sess-1", models.SenderAdmin, "🔔 "+marker+" من قبل ممثل خدمة العملاء.")
	// Same text from a non-admin sender must not count.
	g.InsertMessage(ctx, "sess-2", models.SenderUser, marker)

	got, err := g.SessionHasAdminMarker(ctx, "sess-1", marker)
	if err != nil {
		t.Fatalf("marker check: %v", err)
	}
	if !got {
		t.Error("sess-1 should have the admin marker")
	}

	got, err = g.SessionHasAdminMarker(ctx, "sess-2", marker)
	if err != nil {
		t.Fatalf("marker check: %v", err)
	}
	if got {
		t.Error("user message must not count as an admin marker")
	}
}

func TestSessionsWithAdminMarker(t *testing.T) {
	g := testGateway(t)
	ctx := context.Background()
	marker := "تم استلام المحادثة"

	g.InsertMessage(ctx, "sess-1", models.SenderAdmin, marker)
	g.InsertMessage(ctx, "sess-1", models.SenderAdmin, marker) // duplicate sentinel
	g.InsertMessage(ctx, "sess-3", models.SenderAdmin, marker)
	g.InsertMessage(ctx, "sess-2", models.SenderUser, "unrelated")

	ids, err := g.SessionsWithAdminMarker(ctx, marker)
	if err != nil {
		t.Fatalf("sessions with marker: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("got %d sessions, want 2: %v", len(ids), ids)
	}
}

func TestCancelledContextIsTimeout(t *testing.T) {
	g := testGateway(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.AllMessages(ctx)
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
	if !IsTimeout(err) {
		t.Errorf("cancelled context should classify as timeout, got %v", err)
	}
}

func TestActiveRecipients(t *testing.T) {
	g := testGateway(t)
	ctx := context.Background()
	db := g.DB()

	db.Create(&models.Recipient{FullName: "Aylin", ChatID: "100", Active: true, CreatedAt: time.Now()})
	db.Create(&models.Recipient{FullName: "Omar", ChatID: "", Active: true, CreatedAt: time.Now()})
	db.Create(&models.Recipient{FullName: "Sara", ChatID: "300", Active: false, CreatedAt: time.Now()})

	got, err := g.ActiveRecipients(ctx)
	if err != nil {
		t.Fatalf("active recipients: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d recipients, want 1", len(got))
	}
	if got[0].ChatID != "100" {
		t.Errorf("recipient chat id = %q, want 100", got[0].ChatID)
	}
}

func TestNotificationAudit(t *testing.T) {
	g := testGateway(t)
	ctx := context.Background()

	rec := models.NotificationRecord{
		RequestType: "chat_support",
		SessionID:   "sess-1",
		Body:        "hello",
		Priority:    "normal",
		Attempted:   3,
		Succeeded:   2,
	}
	if err := g.SaveNotification(ctx, rec); err != nil {
		t.Fatalf("save notification: %v", err)
	}

	recs, err := g.NotificationsSince(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("notifications since: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	if recs[0].Succeeded != 2 || recs[0].Attempted != 3 {
		t.Errorf("record accounting = %d/%d, want 2/3", recs[0].Succeeded, recs[0].Attempted)
	}

	old, err := g.NotificationsSince(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("notifications since: %v", err)
	}
	if len(old) != 0 {
		t.Errorf("future cutoff should return nothing, got %d", len(old))
	}
}
