package qualification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/kadry/catalog"
	"github.com/hazyhaar/kadry/observability"
)

// Importer writes extracted rows into the position catalog of a unit.
type Importer struct {
	store  *catalog.Store
	events *observability.EventLogger
	logger *slog.Logger
}

// Option configures an Importer.
type Option func(*Importer)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option { return func(i *Importer) { i.logger = l } }

// WithEvents records one business event per import run.
func WithEvents(e *observability.EventLogger) Option { return func(i *Importer) { i.events = e } }

// NewImporter returns an Importer over store.
func NewImporter(store *catalog.Store, opts ...Option) *Importer {
	i := &Importer{store: store, logger: slog.Default()}
	for _, o := range opts {
		o(i)
	}
	return i
}

// Import resolves or creates each row's position in unitID (keyed by
// MakeCode of its title) and replaces the qualification at
// (position, category, order). All rows are written in one transaction: any
// failure leaves the catalog untouched. An empty source keeps each row's own.
// Returns the number of rows written.
//
// Re-importing the same rows leaves the catalog unchanged in size.
func (i *Importer) Import(ctx context.Context, unitID int64, rows []Row, source string) (int, error) {
	if _, err := i.store.GetUnit(ctx, unitID); err != nil {
		return 0, err
	}

	written := 0
	created := 0
	err := i.store.Update(ctx, func(tx *catalog.Tx) error {
		written, created = 0, 0
		for _, r := range rows {
			pos, isNew, err := tx.EnsurePosition(ctx, unitID, MakeCode(r.PositionTitle), r.PositionTitle)
			if err != nil {
				return err
			}
			if isNew {
				created++
			}
			src := source
			if src == "" {
				src = r.Source
			}
			if err := tx.ReplaceQualification(ctx, &catalog.Qualification{
				PositionID: pos.ID,
				Category:   string(r.Category),
				Order:      r.Order,
				Text:       r.Text,
				Source:     src,
			}); err != nil {
				return fmt.Errorf("qualification: row %q %s #%d: %w", r.PositionTitle, r.Category, r.Order, err)
			}
			written++
		}
		return nil
	})

	i.events.LogEvent(ctx, observability.BusinessEvent{
		EventType:  observability.EventQualificationImport,
		EntityType: "unit",
		EntityID:   fmt.Sprint(unitID),
		Action:     "import",
		Details: observability.Details(map[string]any{
			"source": source, "rows": len(rows), "written": written, "positions_created": created,
		}),
		Success: err == nil,
	})
	if err != nil {
		return 0, fmt.Errorf("qualification: import: %w", err)
	}

	i.logger.Info("qualifications imported",
		"unit_id", unitID, "source", source, "rows", written, "positions_created", created)
	return written, nil
}
