package agent

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/greenprotect/fieldops/internal/model"
)

// BatterySim keeps the simulated battery state of one sprayer unit. The
// battery drains slowly over time and a bit more per operation; the
// operation engine itself never reads it.
type BatterySim struct {
	mu          sync.Mutex
	pct         float64
	drainPerMin float64
	last        time.Time
	now         func() time.Time
}

func NewBatterySim(drainPerMin float64, now func() time.Time) *BatterySim {
	if now == nil {
		now = time.Now
	}
	return &BatterySim{pct: 100, drainPerMin: drainPerMin, last: now(), now: now}
}

// Next advances the drain model to the current time and returns the level.
func (b *BatterySim) Next() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := b.now()
	dtMin := t.Sub(b.last).Minutes()
	if dtMin > 0 {
		b.pct -= b.drainPerMin * dtMin
	}
	b.last = t
	if b.pct < 0 {
		b.pct = 0
	}
	return b.pct
}

// Drain applies a one-off cost, e.g. for a completed spray pass.
func (b *BatterySim) Drain(pct float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pct -= pct
	if b.pct < 0 {
		b.pct = 0
	}
}

// RunTelemetry publishes tank/battery readings for every field at the given
// interval until ctx is cancelled.
func (s *Service) RunTelemetry(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.publishTelemetry()
		}
	}
}

func (s *Service) publishTelemetry() {
	for id, sess := range s.sessions {
		field := s.fields[id]
		pct := s.batteries[id].Next()
		sess.SetBatteryLevel(pct)
		tank, _ := sess.Levels()
		s.metrics.setLevels(id, tank, pct)

		reading := model.LevelsReading{
			FieldID:    id,
			DeviceID:   field.DeviceID,
			TankLevelL: tank,
			BatteryPct: pct,
			Timestamp:  time.Now().UTC(),
		}
		b, err := json.Marshal(reading)
		if err != nil {
			log.Printf("agent: marshal telemetry for %s: %v", id, err)
			continue
		}
		topic := formatTopic(s.opts.TelemetryTopicTmpl, id, field.DeviceID)
		if err := s.makePublisher(topic).Publish(string(b)); err != nil {
			log.Printf("agent: publish telemetry for %s: %v", id, err)
		}
	}
}
