package observability

import (
	"bytes"
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/kadry/dbopen"
)

func setupObsDB(t *testing.T) *sql.DB {
	t.Helper()
	db := dbopen.OpenMemory(t)
	if err := Init(db); err != nil {
		t.Fatal(err)
	}
	return db
}

func TestInit_Idempotent(t *testing.T) {
	db := setupObsDB(t)
	if err := Init(db); err != nil {
		t.Fatalf("second Init: %v", err)
	}
	var count int
	db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='business_event_logs'").Scan(&count)
	if count != 1 {
		t.Fatal("business_event_logs not found")
	}
}

func TestEventLogger_LogEvent(t *testing.T) {
	db := setupObsDB(t)
	el := NewEventLogger(db)

	el.LogEvent(context.Background(), BusinessEvent{
		EventType:  EventDossierBatch,
		EntityType: "officer_profile",
		EntityID:   "7",
		Action:     "create",
		Success:    true,
	})

	var eventType, service, action, id string
	db.QueryRow("SELECT event_id, event_type, service_name, action FROM business_event_logs LIMIT 1").
		Scan(&id, &eventType, &service, &action)
	if eventType != EventDossierBatch {
		t.Fatalf("event_type: got %q", eventType)
	}
	if service != "kadry" {
		t.Fatalf("service_name default: got %q", service)
	}
	if action != "create" {
		t.Fatalf("action: got %q", action)
	}
	if !strings.HasPrefix(id, "evt_") {
		t.Fatalf("event_id: got %q", id)
	}
}

func TestEventLogger_WithIDGenerator(t *testing.T) {
	db := setupObsDB(t)
	gen := func() string { return "evt_custom" }
	el := NewEventLogger(db, WithEventIDGenerator(gen), WithServiceName("kadry-test"))

	el.LogEvent(context.Background(), BusinessEvent{EventType: "test", Action: "test", Success: true})

	var eventID, service string
	db.QueryRow("SELECT event_id, service_name FROM business_event_logs LIMIT 1").Scan(&eventID, &service)
	if eventID != "evt_custom" || service != "kadry-test" {
		t.Fatalf("got id=%q service=%q", eventID, service)
	}
}

func TestEventLogger_FailureIsLoggedNotReturned(t *testing.T) {
	db := dbopen.OpenMemory(t) // no schema
	var buf bytes.Buffer
	el := NewEventLogger(db, WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	el.LogEvent(context.Background(), BusinessEvent{EventType: "x", Action: "y"})
	if !strings.Contains(buf.String(), "observability event log failed") {
		t.Fatalf("log output = %q", buf.String())
	}
}

func TestEventLogger_NilIsNoop(t *testing.T) {
	var el *EventLogger
	el.LogEvent(context.Background(), BusinessEvent{EventType: "x"})
}

func TestRecentEvents(t *testing.T) {
	db := setupObsDB(t)
	el := NewEventLogger(db)
	ctx := context.Background()

	el.LogEvent(ctx, BusinessEvent{EventType: EventQualificationImport, Action: "import", Success: true,
		Details: Details(map[string]int{"count": 3})})
	el.LogEvent(ctx, BusinessEvent{EventType: EventDossierBatch, Action: "import", Success: false})
	el.LogEvent(ctx, BusinessEvent{EventType: EventDossierBatch, Action: "import", Success: true})

	all, err := RecentEvents(ctx, db, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("all events = %d, want 3", len(all))
	}
	if all[0].EventType != EventDossierBatch || !all[0].Success {
		t.Fatalf("newest event = %+v", all[0])
	}

	batch, err := RecentEvents(ctx, db, EventDossierBatch, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(batch) != 1 || batch[0].EventType != EventDossierBatch {
		t.Fatalf("filtered = %+v", batch)
	}

	quals, _ := RecentEvents(ctx, db, EventQualificationImport, 10)
	if len(quals) != 1 || quals[0].Details != `{"count":3}` {
		t.Fatalf("qualification events = %+v", quals)
	}
}

func TestCleanup_Retention(t *testing.T) {
	db := setupObsDB(t)

	oldTs := time.Now().Add(-40 * 24 * time.Hour).Unix()
	db.Exec("INSERT INTO business_event_logs (event_id, event_type, service_name, action, success, created_at) VALUES ('e1', 'test', 'svc', 'act', 1, ?)", oldTs)
	db.Exec("INSERT INTO business_event_logs (event_id, event_type, service_name, action, success, created_at) VALUES ('e2', 'test', 'svc', 'act', 1, ?)", time.Now().Unix())

	deleted, err := Cleanup(context.Background(), db, 30)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Fatalf("deleted = %d, want 1", deleted)
	}
}

func TestCleanup_SkipsZeroDays(t *testing.T) {
	db := setupObsDB(t)

	oldTs := time.Now().Add(-40 * 24 * time.Hour).Unix()
	db.Exec("INSERT INTO business_event_logs (event_id, event_type, service_name, action, success, created_at) VALUES ('e1', 'test', 'svc', 'act', 1, ?)", oldTs)

	if _, err := Cleanup(context.Background(), db, 0); err != nil {
		t.Fatal(err)
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM business_event_logs").Scan(&count)
	if count != 1 {
		t.Fatalf("should not clean when days=0: got %d", count)
	}
}
