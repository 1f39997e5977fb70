package domain

import "time"

// Catalog event types published after a successful write commits.
const (
	EventDataModelReleased = "datamodel.released"
	EventFederationCreated = "federation.created"
	EventFederationUpdated = "federation.updated"
	EventFederationDeleted = "federation.deleted"
)

// CatalogEvent notifies downstream consumers that the set of released data
// models, or the membership of a federation, has changed.
type CatalogEvent struct {
	Type      string    `json:"type"`
	Subject   string    `json:"subject"` // data-model uuid or federation code
	Actor     string    `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
}
