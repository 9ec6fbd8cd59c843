package messages

import "time"

// LevelsReading carries periodic tank/battery telemetry from a field agent.
type LevelsReading struct {
	FieldID    string    `json:"field_id"`
	DeviceID   string    `json:"device_id"`
	TankLevelL float64   `json:"tank_level_l"`
	BatteryPct float64   `json:"battery_pct"`
	Timestamp  time.Time `json:"timestamp"`
}
