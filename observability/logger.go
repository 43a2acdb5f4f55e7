// CLAUDE:SUMMARY Business event trail for imports: non-blocking inserts into business_event_logs, recent-event queries and retention cleanup.
package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/kadry/idgen"
)

// Event types written by the importers.
const (
	EventQualificationImport = "qualification_import"
	EventDossierBatch        = "dossier_batch"
)

// BusinessEvent represents a domain-level event to record.
type BusinessEvent struct {
	EventID     string    `json:"event_id"`
	EventType   string    `json:"event_type"`
	ServiceName string    `json:"service_name"`
	EntityType  string    `json:"entity_type,omitempty"`
	EntityID    string    `json:"entity_id,omitempty"`
	UserID      string    `json:"user_id,omitempty"`
	Action      string    `json:"action"`
	Details     string    `json:"details,omitempty"` // optional JSON
	Success     bool      `json:"success"`
	CreatedAt   time.Time `json:"created_at"`
}

// EventLogger writes business events.
type EventLogger struct {
	db      *sql.DB
	newID   idgen.Generator
	service string
	logger  *slog.Logger
}

// EventLoggerOption configures an EventLogger.
type EventLoggerOption func(*EventLogger)

// WithEventIDGenerator sets a custom ID generator for event IDs.
func WithEventIDGenerator(gen idgen.Generator) EventLoggerOption {
	return func(l *EventLogger) { l.newID = gen }
}

// WithServiceName sets the service_name column. Default: "kadry".
func WithServiceName(name string) EventLoggerOption {
	return func(l *EventLogger) { l.service = name }
}

// WithLogger sets the slog logger used to report failed inserts.
func WithLogger(logger *slog.Logger) EventLoggerOption {
	return func(l *EventLogger) { l.logger = logger }
}

// NewEventLogger creates a logger backed by db, which must carry Schema.
func NewEventLogger(db *sql.DB, opts ...EventLoggerOption) *EventLogger {
	l := &EventLogger{
		db:      db,
		newID:   idgen.Prefixed("evt_", idgen.Default),
		service: "kadry",
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// LogEvent records a business event. Errors are logged via slog and never
// returned: a failing event trail must not fail the import it describes.
// A nil receiver is a no-op.
func (l *EventLogger) LogEvent(ctx context.Context, event BusinessEvent) {
	if l == nil {
		return
	}
	if event.ServiceName == "" {
		event.ServiceName = l.service
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO business_event_logs (
			event_id, event_type, service_name, entity_type, entity_id,
			user_id, action, details, success, created_at
		) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		l.newID(), event.EventType, event.ServiceName, event.EntityType, event.EntityID,
		event.UserID, event.Action, event.Details, event.Success, time.Now().Unix())
	if err != nil {
		l.logger.Error("observability event log failed", "error", err, "event_type", event.EventType)
	}
}

// Details marshals v for BusinessEvent.Details, returning "" on failure.
func Details(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// RecentEvents returns up to limit events, newest first. An empty eventType
// matches all types.
func RecentEvents(ctx context.Context, db *sql.DB, eventType string, limit int) ([]BusinessEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, `
		SELECT event_id, event_type, service_name, COALESCE(entity_type,''), COALESCE(entity_id,''),
		       COALESCE(user_id,''), action, COALESCE(details,''), success, created_at
		FROM business_event_logs
		WHERE ? = '' OR event_type = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, eventType, eventType, limit)
	if err != nil {
		return nil, fmt.Errorf("observability: query events: %w", err)
	}
	defer rows.Close()

	var out []BusinessEvent
	for rows.Next() {
		var e BusinessEvent
		var created int64
		if err := rows.Scan(&e.EventID, &e.EventType, &e.ServiceName, &e.EntityType, &e.EntityID,
			&e.UserID, &e.Action, &e.Details, &e.Success, &created); err != nil {
			return nil, fmt.Errorf("observability: scan event: %w", err)
		}
		e.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// Cleanup deletes events older than retentionDays. Zero or less keeps
// everything.
func Cleanup(ctx context.Context, db *sql.DB, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Unix() - int64(retentionDays*86400)
	res, err := db.ExecContext(ctx, `DELETE FROM business_event_logs WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("observability: cleanup: %w", err)
	}
	return res.RowsAffected()
}
