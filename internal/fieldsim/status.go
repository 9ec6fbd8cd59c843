package fieldsim

import "fmt"

// CellStatus is the state of a single plot of the field grid. Transitions
// happen only through Session operations.
type CellStatus int

const (
	CellHealthy CellStatus = iota
	CellDiseased
	CellSpraying
	CellScanning
	CellSprayed
)

func (s CellStatus) String() string {
	switch s {
	case CellHealthy:
		return "Healthy"
	case CellDiseased:
		return "Diseased"
	case CellSpraying:
		return "Spraying"
	case CellScanning:
		return "Scanning"
	case CellSprayed:
		return "Sprayed"
	}
	return "Unknown"
}

func (s CellStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *CellStatus) UnmarshalText(b []byte) error {
	switch string(b) {
	case "Healthy":
		*s = CellHealthy
	case "Diseased":
		*s = CellDiseased
	case "Spraying":
		*s = CellSpraying
	case "Scanning":
		*s = CellScanning
	case "Sprayed":
		*s = CellSprayed
	default:
		return fmt.Errorf("unknown cell status %q", string(b))
	}
	return nil
}

// SystemStatus is the sprayer-wide state; only one operation may run at a
// time, so the status is Idle between operations.
type SystemStatus string

const (
	StatusIdle     SystemStatus = "Idle"
	StatusScanning SystemStatus = "Scanning"
	StatusSpraying SystemStatus = "Spraying"
)
