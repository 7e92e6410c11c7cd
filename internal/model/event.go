package model

import "time"

// Change event types.
const (
	EventCreated     = "created"
	EventUpdated     = "updated"
	EventBulkUpdated = "bulk_updated"
	EventDeleted     = "deleted"
	EventImage       = "image"
	EventSeeded      = "seeded"
)

// ChangeEvent describes one mutation of the menu.
type ChangeEvent struct {
	Type      string    `json:"type"`
	ItemID    string    `json:"itemId,omitempty"`
	ItemName  string    `json:"itemName,omitempty"`
	Count     int       `json:"count,omitempty"`
	UpdatedBy string    `json:"updatedBy"`
	At        time.Time `json:"at"`
}

// Snapshot is the full ordered menu together with its metadata.
type Snapshot struct {
	Items    []MenuItem `json:"items"`
	Metadata *Metadata  `json:"metadata"`
}
