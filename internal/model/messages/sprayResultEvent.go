package messages

import "time"

// SprayResultEvent is published by the field agent when a spray operation
// finishes (or is rejected). Status is "OK" when every targeted plot was
// treated, "PARTIAL" when the tank ran out mid-pass, "FAIL" on rejection.
type SprayResultEvent struct {
	FieldID      string    `json:"field_id"`
	DeviceID     string    `json:"device_id"`
	TicketID     string    `json:"ticket_id"`
	Mode         string    `json:"mode"` // "autonomous" | "manual" | "blanket"
	Status       string    `json:"status"`
	PlotsTreated int       `json:"plots_treated"`
	LitersUsed   float64   `json:"liters_used"`
	TankLevelL   float64   `json:"tank_level_l"` // remaining after the pass
	Reason       string    `json:"reason,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	Timestamp    time.Time `json:"timestamp"`
}
