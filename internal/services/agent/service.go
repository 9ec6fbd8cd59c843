// Package agent runs the in-memory spraying sessions for the configured
// fields, serves the operator HTTP API and publishes operation events and
// telemetry on the MQTT bus.
package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/greenprotect/fieldops/internal/fieldsim"
	"github.com/greenprotect/fieldops/internal/model"
	"github.com/greenprotect/fieldops/pkg/mqttbus"
)

// ErrUnknownField is returned for operations on an unconfigured field.
var ErrUnknownField = errors.New("unknown field")

// PublisherFactory builds a publisher bound to one topic.
type PublisherFactory func(topic string) mqttbus.IPublisher

// Options carries the topic templates; zero values use the defaults below.
type Options struct {
	StateTopicTmpl     string // "event/StateChange/{field}/{device}"
	SprayTopicTmpl     string // "event/sprayResult/{field}/{device}"
	ScanTopicTmpl      string // "event/scanResult/{field}/{device}"
	TelemetryTopicTmpl string // "telemetry/levels/{field}/{device}"
	BatteryDrainPerMin float64
	OperationDrainPct  float64
}

// Service owns one fieldsim.Session per configured field. The maps are
// built once in NewService and never mutated afterwards, so handlers and
// the telemetry loop read them without locking; per-session serialization
// lives in fieldsim.
type Service struct {
	sessions  map[string]*fieldsim.Session
	fields    map[string]model.Field
	batteries map[string]*BatterySim

	makePublisher PublisherFactory
	opts          Options
	metrics       *Metrics
}

func NewService(cfg Config, factory PublisherFactory, opts Options, metrics *Metrics) (*Service, error) {
	if factory == nil {
		return nil, errors.New("publisher factory is nil")
	}
	if opts.StateTopicTmpl == "" {
		opts.StateTopicTmpl = "event/StateChange/{field}/{device}"
	}
	if opts.SprayTopicTmpl == "" {
		opts.SprayTopicTmpl = "event/sprayResult/{field}/{device}"
	}
	if opts.ScanTopicTmpl == "" {
		opts.ScanTopicTmpl = "event/scanResult/{field}/{device}"
	}
	if opts.TelemetryTopicTmpl == "" {
		opts.TelemetryTopicTmpl = "telemetry/levels/{field}/{device}"
	}
	if opts.BatteryDrainPerMin == 0 {
		opts.BatteryDrainPerMin = 0.05
	}
	if opts.OperationDrainPct == 0 {
		opts.OperationDrainPct = 0.5
	}

	s := &Service{
		sessions:      make(map[string]*fieldsim.Session, len(cfg.Fields)),
		fields:        make(map[string]model.Field, len(cfg.Fields)),
		batteries:     make(map[string]*BatterySim, len(cfg.Fields)),
		makePublisher: factory,
		opts:          opts,
		metrics:       metrics,
	}

	for _, f := range cfg.Fields {
		f := f
		sess, err := fieldsim.NewSession(fieldsim.Config{
			FieldID:       f.ID,
			Rows:          f.Rows,
			Cols:          f.Cols,
			TankCapacityL: f.TankCapacityL,
			Catalog:       cfg.Catalog,
			Observer:      s.statusWatcher(f),
		})
		if err != nil {
			return nil, fmt.Errorf("session for field %s: %w", f.ID, err)
		}
		// pick up the session's grid dims when the config left them zero
		grid := sess.Snapshot().Grid
		f.Rows, f.Cols = len(grid), len(grid[0])
		s.sessions[f.ID] = sess
		s.fields[f.ID] = f
		s.batteries[f.ID] = NewBatterySim(opts.BatteryDrainPerMin, nil)
		tank, batt := sess.Levels()
		metrics.setLevels(f.ID, tank, batt)
	}
	return s, nil
}

// statusWatcher turns the session's per-step snapshots into StateChange
// events, one per status transition.
func (s *Service) statusWatcher(f model.Field) func(fieldsim.Snapshot) {
	last := fieldsim.StatusIdle
	return func(snap fieldsim.Snapshot) {
		if snap.SystemStatus == last {
			return
		}
		last = snap.SystemStatus
		evt := model.StateChangeEvent{
			FieldID:   f.ID,
			DeviceID:  f.DeviceID,
			NewStatus: string(snap.SystemStatus),
			Timestamp: time.Now().UTC(),
		}
		b, _ := json.Marshal(evt)
		topic := formatTopic(s.opts.StateTopicTmpl, f.ID, f.DeviceID)
		if err := s.makePublisher(topic).Publish(string(b)); err != nil {
			log.Printf("agent: publish state change for %s: %v", f.ID, err)
		}
	}
}

// Fields lists the configured fields in no particular order.
func (s *Service) Fields() []model.Field {
	out := make([]model.Field, 0, len(s.fields))
	for _, f := range s.fields {
		out = append(out, f)
	}
	return out
}

// Snapshot returns the current state of one field's session.
func (s *Service) Snapshot(fieldID string) (fieldsim.Snapshot, error) {
	sess, ok := s.sessions[fieldID]
	if !ok {
		return fieldsim.Snapshot{}, ErrUnknownField
	}
	return sess.Snapshot(), nil
}

// Autonomous runs a scan-and-spray cycle and publishes the scan findings
// and the spray outcome.
func (s *Service) Autonomous(fieldID string) (string, fieldsim.CycleResult, error) {
	sess, ok := s.sessions[fieldID]
	if !ok {
		return "", fieldsim.CycleResult{}, ErrUnknownField
	}
	f := s.fields[fieldID]
	started := time.Now().UTC()

	res, err := sess.AutonomousCycle()
	if err != nil {
		s.metrics.countOperation("autonomous", "rejected")
		return "", fieldsim.CycleResult{}, err
	}
	s.batteries[fieldID].Drain(s.opts.OperationDrainPct)
	s.afterOperation(fieldID)

	ticket := uuid.New().String()
	s.publishScanResult(f, ticket, res)

	status := "OK"
	if res.Skipped > 0 {
		status = "PARTIAL"
	}
	s.publishSprayResult(f, model.SprayResultEvent{
		TicketID:     ticket,
		Mode:         "autonomous",
		Status:       status,
		PlotsTreated: res.Treated,
		LitersUsed:   res.LitersUsed,
		TankLevelL:   res.TankLevelL,
		StartedAt:    started,
	})
	s.metrics.countOperation("autonomous", strings.ToLower(status))
	return ticket, res, nil
}

// Manual treats a single plot with the operator-chosen amount.
func (s *Service) Manual(fieldID string, row, col int, amount float64) (string, fieldsim.SprayResult, error) {
	sess, ok := s.sessions[fieldID]
	if !ok {
		return "", fieldsim.SprayResult{}, ErrUnknownField
	}
	f := s.fields[fieldID]
	started := time.Now().UTC()

	res, err := sess.ManualSpray(row, col, amount)
	if errors.Is(err, fieldsim.ErrInsufficientResource) {
		tank, _ := sess.Levels()
		s.publishSprayResult(f, model.SprayResultEvent{
			TicketID:   uuid.New().String(),
			Mode:       "manual",
			Status:     "FAIL",
			TankLevelL: tank,
			Reason:     "insufficient pesticide",
			StartedAt:  started,
		})
		s.metrics.countOperation("manual", "fail")
		return "", fieldsim.SprayResult{}, err
	}
	if err != nil {
		s.metrics.countOperation("manual", "rejected")
		return "", fieldsim.SprayResult{}, err
	}
	s.batteries[fieldID].Drain(s.opts.OperationDrainPct)
	s.afterOperation(fieldID)

	ticket := uuid.New().String()
	s.publishSprayResult(f, model.SprayResultEvent{
		TicketID:     ticket,
		Mode:         "manual",
		Status:       "OK",
		PlotsTreated: 1,
		LitersUsed:   res.LitersUsed,
		TankLevelL:   res.TankLevelL,
		StartedAt:    started,
	})
	s.metrics.countOperation("manual", "ok")
	return ticket, res, nil
}

// Blanket applies the per-plot cost to the whole grid.
func (s *Service) Blanket(fieldID string, perCellCost float64) (string, fieldsim.BlanketResult, error) {
	sess, ok := s.sessions[fieldID]
	if !ok {
		return "", fieldsim.BlanketResult{}, ErrUnknownField
	}
	f := s.fields[fieldID]
	started := time.Now().UTC()

	res, err := sess.BlanketSpray(perCellCost)
	if err != nil {
		s.metrics.countOperation("blanket", "rejected")
		return "", fieldsim.BlanketResult{}, err
	}
	s.batteries[fieldID].Drain(s.opts.OperationDrainPct)
	s.afterOperation(fieldID)

	ticket := uuid.New().String()
	status := "OK"
	reason := ""
	if res.Exhausted {
		status = "PARTIAL"
		reason = "tank exhausted"
	}
	s.publishSprayResult(f, model.SprayResultEvent{
		TicketID:     ticket,
		Mode:         "blanket",
		Status:       status,
		PlotsTreated: res.Treated,
		LitersUsed:   res.LitersUsed,
		TankLevelL:   res.TankLevelL,
		Reason:       reason,
		StartedAt:    started,
	})
	s.metrics.countOperation("blanket", strings.ToLower(status))
	return ticket, res, nil
}

// Mark reclassifies a plot as diseased after a manual inspection.
func (s *Service) Mark(fieldID string, row, col int) (bool, error) {
	sess, ok := s.sessions[fieldID]
	if !ok {
		return false, ErrUnknownField
	}
	return sess.MarkDiseased(row, col)
}

// Reset restores one field's session to its defaults.
func (s *Service) Reset(fieldID string) error {
	sess, ok := s.sessions[fieldID]
	if !ok {
		return ErrUnknownField
	}
	sess.Reset()
	s.afterOperation(fieldID)
	return nil
}

func (s *Service) afterOperation(fieldID string) {
	sess := s.sessions[fieldID]
	tank, batt := sess.Levels()
	s.metrics.setLevels(fieldID, tank, batt)
	s.metrics.setSprayedPlots(fieldID, sess.Snapshot().SprayedPlots)
}

func (s *Service) publishScanResult(f model.Field, ticket string, res fieldsim.CycleResult) {
	findings := make([]model.Finding, len(res.Findings))
	for i, fd := range res.Findings {
		findings[i] = model.Finding{
			Row: fd.Row, Col: fd.Col,
			Disease:    fd.Disease,
			Severity:   fd.Severity,
			PesticideL: fd.PesticideL,
		}
	}
	evt := model.ScanResultEvent{
		FieldID:       f.ID,
		DeviceID:      f.DeviceID,
		TicketID:      ticket,
		PlotsScanned:  f.Rows * f.Cols,
		DiseasedFound: len(findings),
		Findings:      findings,
		Timestamp:     time.Now().UTC(),
	}
	b, _ := json.Marshal(evt)
	topic := formatTopic(s.opts.ScanTopicTmpl, f.ID, f.DeviceID)
	if err := s.makePublisher(topic).Publish(string(b)); err != nil {
		log.Printf("agent: publish scan result for %s: %v", f.ID, err)
	}
}

func (s *Service) publishSprayResult(f model.Field, evt model.SprayResultEvent) {
	evt.FieldID = f.ID
	evt.DeviceID = f.DeviceID
	evt.Timestamp = time.Now().UTC()
	b, _ := json.Marshal(evt)
	topic := formatTopic(s.opts.SprayTopicTmpl, f.ID, f.DeviceID)
	if err := s.makePublisher(topic).PublishQos(1, false, string(b)); err != nil {
		log.Printf("agent: publish spray result for %s: %v", f.ID, err)
	}
}

func formatTopic(tmpl, fieldID, deviceID string) string {
	return strings.NewReplacer("{field}", fieldID, "{device}", deviceID).Replace(tmpl)
}
