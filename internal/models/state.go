package models

import "time"

// StateEntry is a named blob of persisted application state.
type StateEntry struct {
	Key       string    `db:"key" json:"key"`
	Value     []byte    `db:"value" json:"-"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}
