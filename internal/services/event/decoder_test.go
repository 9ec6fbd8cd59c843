package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

func collect(t *testing.T, topic string, payload string) []CommonEvent {
	t.Helper()
	var got []CommonEvent
	h := NewMQTTHandler(func(evt CommonEvent) { got = append(got, evt) })
	require.NoError(t, h.Handle("", fakeMessage{topic: topic, payload: []byte(payload)}))
	return got
}

func TestDecodeSprayResult(t *testing.T) {
	payload := `{"field_id":"field1","device_id":"unit-1","ticket_id":"t-1",` +
		`"mode":"manual","status":"OK","plots_treated":1,"liters_used":2.5,` +
		`"tank_level_l":97.5,"timestamp":"2026-08-30T12:00:00Z"}`
	got := collect(t, "event/sprayResult/field1/unit-1", payload)
	require.Len(t, got, 1)

	evt := got[0]
	assert.Equal(t, "spray.result", evt.EventType)
	assert.Equal(t, "field1", evt.FieldID)
	assert.Equal(t, "unit-1", evt.DeviceID)
	assert.Equal(t, "info", evt.Severity)
	assert.Equal(t, "manual", evt.Fields["mode"])
	assert.Equal(t, 2.5, evt.Fields["liters_used"])
	assert.Equal(t, int64(1), evt.Fields["plots_treated"])
	assert.Equal(t, time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC), evt.Timestamp)
}

func TestDecodeSprayResultFailIsWarning(t *testing.T) {
	payload := `{"field_id":"field1","device_id":"unit-1","status":"FAIL",` +
		`"reason":"insufficient pesticide","timestamp":"2026-08-30T12:00:00Z"}`
	got := collect(t, "event/sprayResult/field1/unit-1", payload)
	require.Len(t, got, 1)
	assert.Equal(t, "warning", got[0].Severity)
	assert.Equal(t, "insufficient pesticide", got[0].Fields["reason"])
}

func TestDecodeIDsFallBackToTopic(t *testing.T) {
	got := collect(t, "event/StateChange/field7/unit-9",
		`{"new_status":"Spraying","timestamp":"2026-08-30T12:00:00Z"}`)
	require.Len(t, got, 1)
	assert.Equal(t, "field7", got[0].FieldID)
	assert.Equal(t, "unit-9", got[0].DeviceID)
	assert.Equal(t, "Spraying", got[0].Fields["new_status"])
}

func TestDecodeScanResult(t *testing.T) {
	payload := `{"field_id":"field1","device_id":"unit-1","ticket_id":"t-2",` +
		`"plots_scanned":16,"diseased_found":4,"findings":[],"timestamp":"2026-08-30T12:00:00Z"}`
	got := collect(t, "event/scanResult/field1/unit-1", payload)
	require.Len(t, got, 1)
	assert.Equal(t, "scan.result", got[0].EventType)
	assert.Equal(t, int64(16), got[0].Fields["plots_scanned"])
	assert.Equal(t, int64(4), got[0].Fields["diseased_found"])
}

func TestDecodeLevelsLowBatteryIsWarning(t *testing.T) {
	got := collect(t, "telemetry/levels/field1/unit-1",
		`{"field_id":"field1","device_id":"unit-1","tank_level_l":40,"battery_pct":12,"timestamp":"2026-08-30T12:00:00Z"}`)
	require.Len(t, got, 1)
	assert.Equal(t, "agent.telemetry", got[0].EventType)
	assert.Equal(t, "warning", got[0].Severity)
}

func TestDecodeIgnoresUnknownTopics(t *testing.T) {
	got := collect(t, "event/somethingElse/f/d", `{}`)
	assert.Empty(t, got)
}

func TestDecodeRejectsMalformedPayload(t *testing.T) {
	var got []CommonEvent
	h := NewMQTTHandler(func(evt CommonEvent) { got = append(got, evt) })
	err := h.Handle("", fakeMessage{topic: "event/sprayResult/f/d", payload: []byte("{not json")})
	require.Error(t, err)
	assert.Empty(t, got)
}

func TestEventToPointAlwaysHasAField(t *testing.T) {
	p := EventToPoint(CommonEvent{
		EventType:     "agent.state_change",
		SourceService: "agent-service",
		FieldID:       "field1",
		DeviceID:      "unit-1",
		Severity:      "info",
		Timestamp:     time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	})
	require.NotNil(t, p)
	assert.Equal(t, "system_event", p.Name())

	fields := map[string]interface{}{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	assert.Equal(t, int64(1), fields["count"])

	tags := map[string]string{}
	for _, tg := range p.TagList() {
		tags[tg.Key] = tg.Value
	}
	assert.Equal(t, "field1", tags["field_id"])
	assert.Equal(t, "unit-1", tags["device_id"])
}
