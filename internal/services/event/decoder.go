package event

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	msg "github.com/greenprotect/fieldops/internal/model/messages"
)

// CommonEvent is the normalized form every bus message is reduced to before
// persistence.
type CommonEvent struct {
	EventType     string // spray.result | scan.result | agent.state_change | agent.telemetry
	SourceService string
	FieldID       string
	DeviceID      string
	Severity      string // info|warning|error
	Fields        map[string]interface{}
	Timestamp     time.Time
}

// MQTTHandler turns MQTT messages into CommonEvents and hands them to sink
// (Influx).
type MQTTHandler struct{ sink func(CommonEvent) }

func NewMQTTHandler(sink func(CommonEvent)) *MQTTHandler { return &MQTTHandler{sink: sink} }

func (h *MQTTHandler) Handle(_ string, m mqtt.Message) error {
	topic := m.Topic()
	payload := m.Payload()

	var (
		evt CommonEvent
		err error
	)
	switch {
	case strings.HasPrefix(topic, "event/sprayResult/"):
		evt, err = decodeSprayResult(topic, payload)
	case strings.HasPrefix(topic, "event/scanResult/"):
		evt, err = decodeScanResult(topic, payload)
	case strings.HasPrefix(topic, "event/StateChange/"):
		evt, err = decodeStateChange(topic, payload)
	case strings.HasPrefix(topic, "telemetry/levels/"):
		evt, err = decodeLevels(topic, payload)
	default:
		return nil // ignore other topics
	}
	if err != nil {
		return err
	}
	if h.sink != nil {
		h.sink(evt)
	}
	return nil
}

func decodeSprayResult(topic string, payload []byte) (CommonEvent, error) {
	var r msg.SprayResultEvent
	if err := json.Unmarshal(payload, &r); err != nil {
		return CommonEvent{}, err
	}
	fieldID, deviceID := pickIDs(topic, r.FieldID, r.DeviceID, "event/sprayResult/")
	if fieldID == "" || deviceID == "" {
		return CommonEvent{}, errors.New("sprayResult: missing field/device")
	}
	sev := "info"
	if strings.EqualFold(r.Status, "FAIL") {
		sev = "warning"
	}
	return CommonEvent{
		EventType:     "spray.result",
		SourceService: "agent-service",
		FieldID:       fieldID,
		DeviceID:      deviceID,
		Severity:      sev,
		Fields: map[string]interface{}{
			"ticket_id":     r.TicketID,
			"mode":          r.Mode,
			"status":        r.Status,
			"plots_treated": int64(r.PlotsTreated),
			"liters_used":   r.LitersUsed,
			"tank_level_l":  r.TankLevelL,
			"reason":        r.Reason,
		},
		Timestamp: r.Timestamp,
	}, nil
}

func decodeScanResult(topic string, payload []byte) (CommonEvent, error) {
	var s msg.ScanResultEvent
	if err := json.Unmarshal(payload, &s); err != nil {
		return CommonEvent{}, err
	}
	fieldID, deviceID := pickIDs(topic, s.FieldID, s.DeviceID, "event/scanResult/")
	if fieldID == "" || deviceID == "" {
		return CommonEvent{}, errors.New("scanResult: missing field/device")
	}
	return CommonEvent{
		EventType:     "scan.result",
		SourceService: "agent-service",
		FieldID:       fieldID,
		DeviceID:      deviceID,
		Severity:      "info",
		Fields: map[string]interface{}{
			"ticket_id":      s.TicketID,
			"plots_scanned":  int64(s.PlotsScanned),
			"diseased_found": int64(s.DiseasedFound),
		},
		Timestamp: s.Timestamp,
	}, nil
}

func decodeStateChange(topic string, payload []byte) (CommonEvent, error) {
	var s msg.StateChangeEvent
	if err := json.Unmarshal(payload, &s); err != nil {
		return CommonEvent{}, err
	}
	fieldID, deviceID := pickIDs(topic, s.FieldID, s.DeviceID, "event/StateChange/")
	if fieldID == "" || deviceID == "" {
		return CommonEvent{}, errors.New("stateChange: missing field/device")
	}
	return CommonEvent{
		EventType:     "agent.state_change",
		SourceService: "agent-service",
		FieldID:       fieldID,
		DeviceID:      deviceID,
		Severity:      "info",
		Fields: map[string]interface{}{
			"new_status": s.NewStatus,
		},
		Timestamp: s.Timestamp,
	}, nil
}

func decodeLevels(topic string, payload []byte) (CommonEvent, error) {
	var l msg.LevelsReading
	if err := json.Unmarshal(payload, &l); err != nil {
		return CommonEvent{}, err
	}
	fieldID, deviceID := pickIDs(topic, l.FieldID, l.DeviceID, "telemetry/levels/")
	if fieldID == "" || deviceID == "" {
		return CommonEvent{}, errors.New("levels: missing field/device")
	}
	sev := "info"
	if l.BatteryPct < 20 {
		sev = "warning"
	}
	return CommonEvent{
		EventType:     "agent.telemetry",
		SourceService: "agent-service",
		FieldID:       fieldID,
		DeviceID:      deviceID,
		Severity:      sev,
		Fields: map[string]interface{}{
			"tank_level_l": l.TankLevelL,
			"battery_pct":  l.BatteryPct,
		},
		Timestamp: l.Timestamp,
	}, nil
}

// pickIDs uses the payload, falling back to topic "prefix/{field}/{device}".
func pickIDs(topic, fieldID, deviceID, prefix string) (string, string) {
	if strings.TrimSpace(fieldID) != "" && strings.TrimSpace(deviceID) != "" {
		return fieldID, deviceID
	}
	suffix := strings.TrimPrefix(topic, prefix)
	parts := strings.Split(suffix, "/")
	if len(parts) >= 2 {
		return parts[0], parts[1]
	}
	return fieldID, deviceID
}
