// Package realtime implements the change-notification bridge. Writers publish
// a minimal signal (table + event type) to a per-table Redis channel; the
// listener reacts by re-fetching affected aggregates and dropping stale cache
// entries. Payloads deliberately carry no row data: the store stays the single
// source of truth and a missed delta can never corrupt derived state.
package realtime

// ChangeEvent is the wire payload published on rowchange channels.
type ChangeEvent struct {
	Table     string `json:"table"`
	EventType string `json:"event_type"`
}
