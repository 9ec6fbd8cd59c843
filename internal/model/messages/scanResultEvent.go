package messages

import (
	"time"

	"github.com/greenprotect/fieldops/internal/model/entities"
)

// Finding is one diseased plot detected by an autonomous scan.
type Finding struct {
	Row        int               `json:"row"`
	Col        int               `json:"col"`
	Disease    string            `json:"disease"`
	Severity   entities.Severity `json:"severity"`
	PesticideL float64           `json:"pesticide_l"` // dose required to treat
}

// ScanResultEvent is published by the field agent after the scan phase of an
// autonomous cycle.
type ScanResultEvent struct {
	FieldID       string    `json:"field_id"`
	DeviceID      string    `json:"device_id"`
	TicketID      string    `json:"ticket_id"`
	PlotsScanned  int       `json:"plots_scanned"`
	DiseasedFound int       `json:"diseased_found"`
	Findings      []Finding `json:"findings"`
	Timestamp     time.Time `json:"timestamp"`
}
