package store

import (
	"testing"

	"github.com/ewhitfield/tend/internal/database"
	"github.com/ewhitfield/tend/internal/model"
)

func setupPushTestDB(t *testing.T) *PushStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPushStore(db)
}

func TestSubscriptionUpsertByEndpoint(t *testing.T) {
	ps := setupPushTestDB(t)

	first, err := ps.CreateSubscription("m1", "h1", "https://push.example/abc", "p256-old", "auth-old", "phone")
	if err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	if first.ID == "" {
		t.Fatal("expected generated id")
	}

	second, err := ps.CreateSubscription("m1", "h1", "https://push.example/abc", "p256-new", "auth-new", "phone")
	if err != nil {
		t.Fatalf("re-subscribe: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("re-subscribe created new row: id %q, want %q", second.ID, first.ID)
	}
	if second.P256dhKey != "p256-new" {
		t.Errorf("p256dh key = %q, want refreshed key", second.P256dhKey)
	}

	subs, err := ps.ListByMember("m1")
	if err != nil {
		t.Fatalf("list by member: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("got %d subscriptions, want 1", len(subs))
	}
}

func TestSubscriptionDeleteAndHouseholds(t *testing.T) {
	ps := setupPushTestDB(t)

	if _, err := ps.CreateSubscription("m1", "h1", "https://push.example/1", "k", "a", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := ps.CreateSubscription("m2", "h2", "https://push.example/2", "k", "a", ""); err != nil {
		t.Fatalf("create: %v", err)
	}

	ids, err := ps.ListHouseholdIDs()
	if err != nil {
		t.Fatalf("list household ids: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("got %d household ids, want 2", len(ids))
	}

	if err := ps.DeleteByEndpoint("https://push.example/1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	gone, err := ps.GetByEndpoint("https://push.example/1")
	if err != nil {
		t.Fatalf("get deleted: %v", err)
	}
	if gone != nil {
		t.Error("expected nil after delete")
	}

	// Deleting an unknown endpoint is a no-op
	if err := ps.DeleteByEndpoint("https://push.example/nope"); err != nil {
		t.Errorf("delete unknown endpoint: %v", err)
	}
}

func TestPrefsDefaultsWhenUnsaved(t *testing.T) {
	ps := setupPushTestDB(t)

	p, err := ps.GetPrefs("m1")
	if err != nil {
		t.Fatalf("get prefs: %v", err)
	}
	want := model.DefaultPrefs()
	if p != want {
		t.Errorf("prefs = %+v, want defaults %+v", p, want)
	}
}

func TestPrefsSaveAndReload(t *testing.T) {
	ps := setupPushTestDB(t)

	p := model.DefaultPrefs()
	p.Tasks.LeadMinutes = 15
	p.Events.Enabled = false
	p.QuietHoursStart = "21:00"
	p.Sound = false

	if err := ps.SavePrefs("m1", "h1", p); err != nil {
		t.Fatalf("save prefs: %v", err)
	}
	got, err := ps.GetPrefs("m1")
	if err != nil {
		t.Fatalf("reload prefs: %v", err)
	}
	if got != p {
		t.Errorf("prefs = %+v, want %+v", got, p)
	}

	// Second save updates in place
	p.Enabled = false
	if err := ps.SavePrefs("m1", "h1", p); err != nil {
		t.Fatalf("re-save prefs: %v", err)
	}
	got, err = ps.GetPrefs("m1")
	if err != nil {
		t.Fatalf("reload prefs: %v", err)
	}
	if got.Enabled {
		t.Error("master toggle not updated on re-save")
	}
}

func TestSentLogDedup(t *testing.T) {
	ps := setupPushTestDB(t)

	sent, err := ps.WasSent("h1", model.NotifTypeTaskDue, "task-1", 60)
	if err != nil {
		t.Fatalf("check sent: %v", err)
	}
	if sent {
		t.Error("fresh log should report not sent")
	}

	if err := ps.RecordSent("h1", model.NotifTypeTaskDue, "task-1", 60); err != nil {
		t.Fatalf("record sent: %v", err)
	}
	// Recording twice is harmless
	if err := ps.RecordSent("h1", model.NotifTypeTaskDue, "task-1", 60); err != nil {
		t.Fatalf("record sent again: %v", err)
	}

	sent, err = ps.WasSent("h1", model.NotifTypeTaskDue, "task-1", 60)
	if err != nil {
		t.Fatalf("check sent: %v", err)
	}
	if !sent {
		t.Error("expected sent after record")
	}

	// Different lead time is a distinct notification
	sent, err = ps.WasSent("h1", model.NotifTypeTaskDue, "task-1", 30)
	if err != nil {
		t.Fatalf("check sent: %v", err)
	}
	if sent {
		t.Error("different lead minutes should not be deduped")
	}
}
