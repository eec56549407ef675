package eventdb

import (
	"context"
	"fmt"
	"time"

	"github.com/NotCoffee418/serial_event_log/pkg/eventstore"
	"github.com/NotCoffee418/serial_event_log/pkg/types"
)

// Write inserts the batch in one transaction. Rows are keyed by this run's
// session and the store sequence, so a retried batch is skipped while a
// later run starting again at sequence 0 still lands.
func (e *EventDB) Write(ctx context.Context, d eventstore.Drain) error {
	if d.Empty() {
		return nil
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR IGNORE INTO events "+
			"(session_id, seq, controller_id, payload, timestamp, persisted_at) "+
			"VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for i, ev := range d.Events {
		if _, err := stmt.ExecContext(ctx,
			e.sessionID,
			d.Start+i,
			ev.ControllerID,
			ev.Payload,
			ev.Timestamp,
			now,
		); err != nil {
			return fmt.Errorf("failed to archive event %d: %w", d.Start+i, err)
		}
	}

	return tx.Commit()
}

// LoadAll returns every archived event in insertion order, across runs.
func (e *EventDB) LoadAll(ctx context.Context) ([]types.Event, error) {
	rows, err := e.db.QueryContext(ctx,
		"SELECT id, session_id, seq, controller_id, payload, timestamp, persisted_at "+
			"FROM events ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []types.Event
	for rows.Next() {
		var row EventDbRow
		if err := rows.Scan(&row.Id, &row.SessionID, &row.Seq, &row.ControllerID,
			&row.Payload, &row.Timestamp, &row.PersistedAt); err != nil {
			return nil, err
		}
		events = append(events, types.Event{
			ControllerID: row.ControllerID,
			Payload:      row.Payload,
			Timestamp:    row.Timestamp,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// Count returns the number of archived events.
func (e *EventDB) Count(ctx context.Context) (int, error) {
	var n int
	err := e.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&n)
	return n, err
}
