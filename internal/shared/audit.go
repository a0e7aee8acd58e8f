package shared

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TrailCapDefault bounds the persisted audit trail when no cap is configured.
const TrailCapDefault = 500

// AuditEntry records one command applied to the workspace.
type AuditEntry struct {
	ID       string         `json:"id"`
	Actor    string         `json:"actor"`
	Action   string         `json:"action"`
	Entity   string         `json:"entity"`
	EntityID string         `json:"entityId"`
	Meta     map[string]any `json:"meta,omitempty"`
	At       time.Time      `json:"at"`
}

// NewAuditEntry fills identifier and timestamp for a trail entry.
func NewAuditEntry(actor, action, entity, entityID string, meta map[string]any) AuditEntry {
	return AuditEntry{
		ID:       uuid.NewString(),
		Actor:    actor,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Meta:     meta,
		At:       time.Now(),
	}
}

// Validate checks the required trail fields.
func (e AuditEntry) Validate() error {
	if e.Action == "" || e.Entity == "" {
		return errors.New("audit entry requires action and entity")
	}
	return nil
}
