package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Writer appends audit events inside the caller's transaction so that a
// rollback of the originating intent also drops its events. The event log is
// the ledger's diary: equity grants, document transitions and deletions all
// leave a row here.
type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

// EventPayload is the free-form JSON detail attached to an event row.
type EventPayload map[string]any

// Append writes one event row. evtType follows the entity.verb convention
// (task.approved, document.signed); projectID and entityID may be empty for
// workspace-level events.
func (w Writer) Append(ctx context.Context, tx *sql.Tx, evtType, projectID, entityKind, entityID, actorID string, payload EventPayload) error {
	if evtType == "" {
		return fmt.Errorf("event type is required")
	}
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO events(ts,type,project_id,entity_kind,entity_id,actor_id,payload_json) VALUES (?,?,?,?,?,?,?)`,
		now().UTC().Format(time.RFC3339), evtType, nullable(projectID), entityKind, nullable(entityID), actorID, string(data))
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
