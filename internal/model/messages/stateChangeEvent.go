package messages

import "time"

// StateChangeEvent is emitted whenever the sprayer's system status changes
// (Idle -> Scanning -> Spraying -> Idle).
type StateChangeEvent struct {
	FieldID   string    `json:"field_id"`
	DeviceID  string    `json:"device_id"`
	NewStatus string    `json:"new_status"`
	Timestamp time.Time `json:"timestamp"`
}
