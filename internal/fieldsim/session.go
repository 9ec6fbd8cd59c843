// Package fieldsim implements the crop-monitoring simulation core: a field
// grid of plot statuses, the shared pesticide tank, and the operations that
// transition them (autonomous scan-and-spray cycles, manual sprays, blanket
// sprays, manual disease marking).
//
// The package has no timers and no sleeps. Presentation layers that want to
// animate intermediate states attach an Observer, which receives a snapshot
// after every discrete transition; the final state is the same with or
// without one.
package fieldsim

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/greenprotect/fieldops/internal/model/entities"
)

const (
	defaultRows     = 4
	defaultCols     = 4
	defaultCapacity = 100.0

	// Autonomous scans mark between minDiseased and maxDiseased plots,
	// capped at the grid size.
	minDiseased = 3
	maxDiseased = 5
)

// Finding is a detected disease instance tied to a plot and the pesticide
// dose required to treat it. Findings are read-only once stored.
type Finding struct {
	Row        int               `json:"row"`
	Col        int               `json:"col"`
	Disease    string            `json:"disease"`
	Severity   entities.Severity `json:"severity"`
	PesticideL float64           `json:"pesticide_l"`
}

// Snapshot is a deep copy of the whole session state at one instant.
type Snapshot struct {
	FieldID      string         `json:"field_id"`
	Grid         [][]CellStatus `json:"grid"`
	TankLevelL   float64        `json:"tank_level_l"`
	BatteryPct   float64        `json:"battery_pct"`
	SystemStatus SystemStatus   `json:"system_status"`
	SprayedPlots int            `json:"sprayed_plots"`
	LastScan     []Finding      `json:"last_scan"`
	EventLog     []LogEntry     `json:"event_log"`
}

// CycleResult is the outcome of an autonomous scan-and-spray cycle.
type CycleResult struct {
	Findings   []Finding `json:"findings"`
	Treated    int       `json:"treated"`
	Skipped    int       `json:"skipped"` // findings left untreated for lack of pesticide
	LitersUsed float64   `json:"liters_used"`
	TankLevelL float64   `json:"tank_level_l"`
}

// SprayResult is the outcome of a manual spray.
type SprayResult struct {
	LitersUsed float64 `json:"liters_used"`
	TankLevelL float64 `json:"tank_level_l"`
}

// BlanketResult is the outcome of a blanket spray over the whole grid.
type BlanketResult struct {
	Treated    int     `json:"treated"`
	Exhausted  bool    `json:"exhausted"` // tank ran out before covering every plot
	LitersUsed float64 `json:"liters_used"`
	TankLevelL float64 `json:"tank_level_l"`
}

// Config sets up a session. Zero values fall back to the 4x4 grid, a 100 L
// tank, the default disease catalog, wall-clock time and a time-seeded rand.
type Config struct {
	FieldID       string
	Rows, Cols    int
	TankCapacityL float64
	Catalog       []entities.Disease
	Rand          *rand.Rand       // injected for deterministic tests
	Now           func() time.Time // injected for deterministic log timestamps
	Observer      func(Snapshot)   // called after every discrete transition
}

// Session owns the mutable state of one field: grid, tank, battery, counters
// and the operator event log. All operations are serialized on an internal
// mutex so the session can be shared by an HTTP handler and a telemetry
// loop; only one spray/scan operation is ever in flight.
type Session struct {
	mu sync.Mutex

	fieldID      string
	grid         *grid
	tankCapacity float64
	tankLevel    float64
	batteryPct   float64
	sprayedPlots int
	status       SystemStatus
	lastScan     []Finding
	log          *eventLog

	catalog catalog
	rng     *rand.Rand
	now     func() time.Time
	observe func(Snapshot)
}

// NewSession creates a fresh session: all plots healthy, full tank, empty
// scan results.
func NewSession(cfg Config) (*Session, error) {
	rows, cols := cfg.Rows, cfg.Cols
	if rows == 0 && cols == 0 {
		rows, cols = defaultRows, defaultCols
	}
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("invalid grid size %dx%d", rows, cols)
	}
	capacity := cfg.TankCapacityL
	if capacity == 0 {
		capacity = defaultCapacity
	}
	if capacity < 0 {
		return nil, fmt.Errorf("invalid tank capacity %.2f", capacity)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	s := &Session{
		fieldID:      cfg.FieldID,
		grid:         newGrid(rows, cols),
		tankCapacity: capacity,
		tankLevel:    capacity,
		batteryPct:   100,
		status:       StatusIdle,
		log:          newEventLog(now),
		catalog:      newCatalog(cfg.Catalog),
		rng:          rng,
		now:          now,
		observe:      cfg.Observer,
	}
	s.log.record("System Initialized. Ready for operation.")
	return s, nil
}

// FieldID returns the configured field identifier.
func (s *Session) FieldID() string { return s.fieldID }

// Snapshot returns a deep copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	scan := make([]Finding, len(s.lastScan))
	copy(scan, s.lastScan)
	return Snapshot{
		FieldID:      s.fieldID,
		Grid:         s.grid.snapshot(),
		TankLevelL:   s.tankLevel,
		BatteryPct:   s.batteryPct,
		SystemStatus: s.status,
		SprayedPlots: s.sprayedPlots,
		LastScan:     scan,
		EventLog:     s.log.snapshot(),
	}
}

// step hands the current state to the observer, if any.
func (s *Session) step() {
	if s.observe != nil {
		s.observe(s.snapshotLocked())
	}
}

// CellAt returns the status of one plot.
func (s *Session) CellAt(row, col int) (CellStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grid.at(row, col)
}

// SetCell overrides the status of one plot. Intended for tests and
// presentation-layer tooling; operations normally own all transitions.
func (s *Session) SetCell(row, col int, status CellStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grid.set(row, col, status)
}

// SetBatteryLevel records the battery percentage reported by telemetry,
// clamped to [0, 100]. The operation logic never reads it.
func (s *Session) SetBatteryLevel(pct float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	s.batteryPct = pct
}

// Levels returns the current tank level (liters) and battery (percent).
func (s *Session) Levels() (tankL, batteryPct float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tankLevel, s.batteryPct
}

// Reset restores session defaults: healthy grid, full tank, cleared
// counters and a fresh log.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grid.fill(CellHealthy)
	s.tankLevel = s.tankCapacity
	s.batteryPct = 100
	s.sprayedPlots = 0
	s.status = StatusIdle
	s.lastScan = nil
	s.log = newEventLog(s.now)
	s.log.record("System Initialized. Ready for operation.")
	s.step()
}

// debitTank decreases the tank by amount, clamped at the zero floor. The
// caller must already have verified the tank covers the amount.
func (s *Session) debitTank(amount float64) error {
	if amount > s.tankLevel {
		return ErrInsufficientResource
	}
	s.tankLevel -= amount
	if s.tankLevel < 0 {
		s.tankLevel = 0
	}
	return nil
}

// AutonomousCycle scans the whole grid in row-major order, marking a random
// subset of plots diseased, then sprays each finding in discovery order
// while the tank covers its dose. Findings replace the previous scan
// results.
func (s *Session) AutonomousCycle() (CycleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusIdle {
		return CycleResult{}, ErrOperationRunning
	}

	s.status = StatusScanning
	s.log.record("Autonomous scan initiated...")
	s.step()

	total := s.grid.rows * s.grid.cols
	n := minDiseased + s.rng.Intn(maxDiseased-minDiseased+1)
	if n > total {
		n = total
	}
	diseased := make(map[int]bool, n)
	for _, idx := range s.rng.Perm(total)[:n] {
		diseased[idx] = true
	}

	findings := make([]Finding, 0, n)
	for i := 0; i < total; i++ {
		s.grid.cells[i] = CellScanning
		s.step()
		if diseased[i] {
			d := s.catalog.draw(s.rng)
			s.grid.cells[i] = CellDiseased
			findings = append(findings, Finding{
				Row:        i / s.grid.cols,
				Col:        i % s.grid.cols,
				Disease:    d.Name,
				Severity:   d.Severity,
				PesticideL: doseFor(d.Severity),
			})
		} else {
			s.grid.cells[i] = CellHealthy
		}
		s.step()
	}

	s.lastScan = findings
	s.log.record("Scan complete. Found %d diseased plots.", len(findings))

	s.status = StatusSpraying
	s.log.record("Initiating targeted spraying...")
	s.step()

	res := CycleResult{Findings: append([]Finding(nil), findings...)}
	for _, f := range findings {
		idx := f.Row*s.grid.cols + f.Col
		if s.tankLevel < f.PesticideL {
			// plot stays Diseased; later findings may still fit
			s.log.record("Treatment skipped at Grid (%d,%d): insufficient pesticide.", f.Row, f.Col)
			res.Skipped++
			continue
		}
		s.grid.cells[idx] = CellSpraying
		s.step()
		s.grid.cells[idx] = CellSprayed
		_ = s.debitTank(f.PesticideL)
		s.sprayedPlots++
		res.Treated++
		res.LitersUsed += f.PesticideL
		s.step()
	}
	s.log.record("%d grids have been treated.", res.Treated)

	s.status = StatusIdle
	s.step()
	res.TankLevelL = s.tankLevel
	return res, nil
}

// ManualSpray treats a single plot with an operator-chosen amount. An
// insufficient tank aborts before any cell transition.
func (s *Session) ManualSpray(row, col int, amount float64) (SprayResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if amount <= 0 {
		return SprayResult{}, ErrInvalidAmount
	}
	if !s.grid.inRange(row, col) {
		return SprayResult{}, ErrOutOfRange
	}
	if s.status != StatusIdle {
		return SprayResult{}, ErrOperationRunning
	}
	if s.tankLevel < amount {
		s.log.record("Manual spray for Grid (%d,%d) aborted: insufficient pesticide.", row, col)
		s.step()
		return SprayResult{}, ErrInsufficientResource
	}

	s.status = StatusSpraying
	s.log.record("Manual spray for Grid (%d,%d) with %.1f L pesticide.", row, col, amount)
	_ = s.grid.set(row, col, CellSpraying)
	s.step()

	_ = s.grid.set(row, col, CellSprayed)
	_ = s.debitTank(amount)
	s.sprayedPlots++
	s.log.record("Grid (%d,%d) has been treated.", row, col)

	s.status = StatusIdle
	s.step()
	return SprayResult{LitersUsed: amount, TankLevelL: s.tankLevel}, nil
}

// BlanketSpray applies a fixed per-plot dose to every plot in row-major
// order. Plots reached after the tank runs out revert to Healthy; any
// Diseased marker on them is discarded.
func (s *Session) BlanketSpray(perCellCost float64) (BlanketResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if perCellCost <= 0 {
		return BlanketResult{}, ErrInvalidAmount
	}
	if s.status != StatusIdle {
		return BlanketResult{}, ErrOperationRunning
	}

	s.status = StatusSpraying
	s.log.record("Blanket spray initiated for all grids.")
	s.grid.fill(CellSpraying)
	s.step()

	var res BlanketResult
	total := s.grid.rows * s.grid.cols
	for i := 0; i < total; i++ {
		if s.tankLevel >= perCellCost {
			s.grid.cells[i] = CellSprayed
			_ = s.debitTank(perCellCost)
			s.sprayedPlots++
			res.Treated++
			res.LitersUsed += perCellCost
		} else {
			s.grid.cells[i] = CellHealthy
		}
		s.step()
	}

	if res.Treated < total {
		res.Exhausted = true
		s.log.record("Tank empty. Only %d grids were treated.", res.Treated)
	}
	s.log.record("Blanket spray complete.")

	s.status = StatusIdle
	s.step()
	res.TankLevelL = s.tankLevel
	return res, nil
}

// MarkDiseased reclassifies a Healthy or Sprayed plot as Diseased after a
// manual inspection. Any other status is left untouched and reported as
// unchanged.
func (s *Session) MarkDiseased(row, col int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.grid.at(row, col)
	if err != nil {
		return false, err
	}
	if cur != CellHealthy && cur != CellSprayed {
		return false, nil
	}
	_ = s.grid.set(row, col, CellDiseased)
	s.log.record("Manual Inspection: Disease marked at Grid (%d,%d).", row, col)
	s.step()
	return true, nil
}
