package entities

// Field represents a tract of land monitored and treated by one spraying
// device. The grid divides the field into Rows x Cols plots.
type Field struct {
	ID            string  `json:"id" yaml:"id"`
	CropType      string  `json:"crop_type" yaml:"crop_type"` // e.g. "corn", "wheat"
	DeviceID      string  `json:"device_id" yaml:"device_id"` // sprayer unit serving this field
	Rows          int     `json:"rows" yaml:"rows"`
	Cols          int     `json:"cols" yaml:"cols"`
	TankCapacityL float64 `json:"tank_capacity_l" yaml:"tank_capacity_l"` // pesticide tank, liters
}
