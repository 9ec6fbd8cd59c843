package fieldsim

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession(t *testing.T, cfg Config) *Session {
	t.Helper()
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(42))
	}
	if cfg.Now == nil {
		base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
		n := 0
		cfg.Now = func() time.Time {
			n++
			return base.Add(time.Duration(n) * time.Second)
		}
	}
	s, err := NewSession(cfg)
	require.NoError(t, err)
	return s
}

func TestNewSessionDefaults(t *testing.T) {
	s := testSession(t, Config{FieldID: "field1"})
	snap := s.Snapshot()

	assert.Equal(t, StatusIdle, snap.SystemStatus)
	assert.Equal(t, 100.0, snap.TankLevelL)
	assert.Equal(t, 100.0, snap.BatteryPct)
	assert.Equal(t, 0, snap.SprayedPlots)
	require.Len(t, snap.Grid, 4)
	for _, row := range snap.Grid {
		require.Len(t, row, 4)
		for _, c := range row {
			assert.Equal(t, CellHealthy, c)
		}
	}
	require.Len(t, snap.EventLog, 1)
	assert.Equal(t, "System Initialized. Ready for operation.", snap.EventLog[0].Message)
}

func TestSetCellRoundTrip(t *testing.T) {
	s := testSession(t, Config{})
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			require.NoError(t, s.SetCell(row, col, CellDiseased))
			got, err := s.CellAt(row, col)
			require.NoError(t, err)
			assert.Equal(t, CellDiseased, got)
		}
	}
}

func TestCellBounds(t *testing.T) {
	s := testSession(t, Config{})
	for _, rc := range [][2]int{{-1, 0}, {0, -1}, {4, 0}, {0, 4}, {99, 99}} {
		_, err := s.CellAt(rc[0], rc[1])
		assert.ErrorIs(t, err, ErrOutOfRange)
		assert.ErrorIs(t, s.SetCell(rc[0], rc[1], CellSprayed), ErrOutOfRange)
	}
}

func TestAutonomousCycleFindings(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		s := testSession(t, Config{Rand: rand.New(rand.NewSource(seed))})
		res, err := s.AutonomousCycle()
		require.NoError(t, err)

		assert.GreaterOrEqual(t, len(res.Findings), 3)
		assert.LessOrEqual(t, len(res.Findings), 5)

		seen := map[[2]int]bool{}
		for _, f := range res.Findings {
			assert.False(t, seen[[2]int{f.Row, f.Col}], "finding repeated")
			seen[[2]int{f.Row, f.Col}] = true
			assert.NotEmpty(t, f.Disease)
			assert.True(t, f.Severity.Valid())
			assert.Contains(t, []float64{1.0, 1.5, 2.0}, f.PesticideL)
		}

		snap := s.Snapshot()
		assert.Equal(t, StatusIdle, snap.SystemStatus)
		assert.Equal(t, res.Findings, snap.LastScan)
	}
}

func TestAutonomousCycleSpraysFindings(t *testing.T) {
	s := testSession(t, Config{Rand: rand.New(rand.NewSource(7))})
	res, err := s.AutonomousCycle()
	require.NoError(t, err)

	// a full tank covers every possible finding (5 * 2.0 L max)
	assert.Equal(t, len(res.Findings), res.Treated)
	assert.Zero(t, res.Skipped)

	snap := s.Snapshot()
	assert.Equal(t, res.Treated, snap.SprayedPlots)
	assert.InDelta(t, 100.0-res.LitersUsed, snap.TankLevelL, 1e-9)
	for _, f := range res.Findings {
		got, err := s.CellAt(f.Row, f.Col)
		require.NoError(t, err)
		assert.Equal(t, CellSprayed, got)
	}
}

func TestAutonomousCycleTankExhaustion(t *testing.T) {
	// a 0.5 L tank covers no dose (the smallest is 1.0 L), so every
	// finding is skipped and stays Diseased
	s := testSession(t, Config{TankCapacityL: 0.5, Rand: rand.New(rand.NewSource(3))})
	res, err := s.AutonomousCycle()
	require.NoError(t, err)

	assert.Zero(t, res.Treated)
	assert.Equal(t, len(res.Findings), res.Skipped)

	snap := s.Snapshot()
	assert.Equal(t, 0.5, snap.TankLevelL, "tank untouched when nothing fits")
	diseased := 0
	for _, row := range snap.Grid {
		for _, c := range row {
			if c == CellDiseased {
				diseased++
			}
		}
	}
	assert.Equal(t, res.Skipped, diseased)

	found := false
	for _, e := range snap.EventLog {
		if strings.HasPrefix(e.Message, "Treatment skipped") {
			found = true
		}
	}
	assert.True(t, found, "expected a skipped-treatment log entry")
}

func TestManualSpray(t *testing.T) {
	s := testSession(t, Config{})
	res, err := s.ManualSpray(1, 2, 2.5)
	require.NoError(t, err)
	assert.Equal(t, 2.5, res.LitersUsed)
	assert.InDelta(t, 97.5, res.TankLevelL, 1e-9)

	got, err := s.CellAt(1, 2)
	require.NoError(t, err)
	assert.Equal(t, CellSprayed, got)

	snap := s.Snapshot()
	assert.Equal(t, 1, snap.SprayedPlots)
	assert.Equal(t, StatusIdle, snap.SystemStatus)
}

func TestManualSprayInsufficientTank(t *testing.T) {
	s := testSession(t, Config{TankCapacityL: 2})
	require.NoError(t, s.SetCell(0, 0, CellDiseased))

	_, err := s.ManualSpray(0, 0, 5)
	assert.ErrorIs(t, err, ErrInsufficientResource)

	got, err := s.CellAt(0, 0)
	require.NoError(t, err)
	assert.Equal(t, CellDiseased, got, "cell must be untouched")

	snap := s.Snapshot()
	assert.Equal(t, 2.0, snap.TankLevelL, "tank must be untouched")
	assert.Equal(t, 0, snap.SprayedPlots)
	assert.Equal(t, StatusIdle, snap.SystemStatus)
}

func TestManualSprayValidation(t *testing.T) {
	s := testSession(t, Config{})

	_, err := s.ManualSpray(0, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = s.ManualSpray(0, 0, -1)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = s.ManualSpray(9, 0, 1)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestOperationRejectedWhileRunning(t *testing.T) {
	s := testSession(t, Config{})
	s.status = StatusSpraying // simulate an operation in flight

	_, err := s.AutonomousCycle()
	assert.ErrorIs(t, err, ErrOperationRunning)
	_, err = s.ManualSpray(0, 0, 1)
	assert.ErrorIs(t, err, ErrOperationRunning)
	_, err = s.BlanketSpray(1.5)
	assert.ErrorIs(t, err, ErrOperationRunning)
}

func TestBlanketSprayFullTank(t *testing.T) {
	s := testSession(t, Config{})
	res, err := s.BlanketSpray(1.5)
	require.NoError(t, err)

	assert.Equal(t, 16, res.Treated)
	assert.False(t, res.Exhausted)
	assert.InDelta(t, 24.0, res.LitersUsed, 1e-9)

	snap := s.Snapshot()
	assert.Equal(t, 16, snap.SprayedPlots)
	assert.InDelta(t, 76.0, snap.TankLevelL, 1e-9)
	for _, row := range snap.Grid {
		for _, c := range row {
			assert.Equal(t, CellSprayed, c)
		}
	}
}

func TestBlanketSprayPartial(t *testing.T) {
	for k := 0; k < 16; k++ {
		cost := 1.5
		var s *Session
		if k == 0 {
			// zero liters left: fill the smallest tank and empty it
			s = testSession(t, Config{TankCapacityL: 1})
			_, err := s.ManualSpray(0, 0, 1)
			require.NoError(t, err)
		} else {
			s = testSession(t, Config{TankCapacityL: cost * float64(k)})
		}
		// diseased markers on untreated plots are silently cleared
		require.NoError(t, s.SetCell(3, 3, CellDiseased))

		res, err := s.BlanketSpray(cost)
		require.NoError(t, err)
		assert.Equal(t, k, res.Treated, "k=%d", k)
		assert.True(t, res.Exhausted)

		snap := s.Snapshot()
		sprayed, healthy := 0, 0
		for _, row := range snap.Grid {
			for _, c := range row {
				switch c {
				case CellSprayed:
					sprayed++
				case CellHealthy:
					healthy++
				}
			}
		}
		assert.Equal(t, k, sprayed)
		assert.Equal(t, 16-k, healthy, "untreated plots revert to Healthy")

		warned := false
		want := fmt.Sprintf("Tank empty. Only %d grids were treated.", k)
		for _, e := range snap.EventLog {
			if e.Message == want {
				warned = true
			}
		}
		assert.True(t, warned, "missing exhaustion warning for k=%d", k)
	}
}

func TestBlanketSprayWorkedExample(t *testing.T) {
	// 10 L tank at 1.5 L per plot covers exactly 6 plots with 1.0 L left
	s := testSession(t, Config{TankCapacityL: 10})
	res, err := s.BlanketSpray(1.5)
	require.NoError(t, err)

	assert.Equal(t, 6, res.Treated)
	assert.True(t, res.Exhausted)
	assert.InDelta(t, 1.0, res.TankLevelL, 1e-9)

	snap := s.Snapshot()
	healthy := 0
	for _, row := range snap.Grid {
		for _, c := range row {
			if c == CellHealthy {
				healthy++
			}
		}
	}
	assert.Equal(t, 10, healthy)
}

func TestTankNeverNegativeAcrossOperations(t *testing.T) {
	s := testSession(t, Config{TankCapacityL: 12, Rand: rand.New(rand.NewSource(11))})
	for i := 0; i < 6; i++ {
		_, _ = s.AutonomousCycle()
		_, _ = s.ManualSpray(i%4, (i*3)%4, 2.5)
		_, _ = s.BlanketSpray(1.5)

		tank, _ := s.Levels()
		assert.GreaterOrEqual(t, tank, 0.0)
		assert.LessOrEqual(t, tank, 12.0)
	}
}

func TestMarkDiseased(t *testing.T) {
	s := testSession(t, Config{})

	changed, err := s.MarkDiseased(2, 2)
	require.NoError(t, err)
	assert.True(t, changed)
	got, _ := s.CellAt(2, 2)
	assert.Equal(t, CellDiseased, got)

	// Sprayed plots may be re-marked
	require.NoError(t, s.SetCell(0, 1, CellSprayed))
	changed, err = s.MarkDiseased(0, 1)
	require.NoError(t, err)
	assert.True(t, changed)

	// Spraying, Scanning and Diseased plots are no-ops
	for _, st := range []CellStatus{CellSpraying, CellScanning, CellDiseased} {
		require.NoError(t, s.SetCell(1, 1, st))
		changed, err = s.MarkDiseased(1, 1)
		require.NoError(t, err)
		assert.False(t, changed)
		got, _ = s.CellAt(1, 1)
		assert.Equal(t, st, got, "status must be unchanged")
	}

	_, err = s.MarkDiseased(-1, 0)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestObserverSeesTransitions(t *testing.T) {
	var snaps []Snapshot
	s := testSession(t, Config{
		Rand:     rand.New(rand.NewSource(5)),
		Observer: func(sn Snapshot) { snaps = append(snaps, sn) },
	})

	res, err := s.AutonomousCycle()
	require.NoError(t, err)
	require.NotEmpty(t, snaps)

	// scanning phase first, spraying after, idle at the end
	assert.Equal(t, StatusScanning, snaps[0].SystemStatus)
	sawSpraying := false
	for _, sn := range snaps {
		if sn.SystemStatus == StatusSpraying {
			sawSpraying = true
		}
	}
	assert.True(t, sawSpraying)
	last := snaps[len(snaps)-1]
	assert.Equal(t, StatusIdle, last.SystemStatus)

	// final observed state matches the session state
	assert.Equal(t, s.Snapshot().Grid, last.Grid)
	assert.InDelta(t, res.TankLevelL, last.TankLevelL, 1e-9)

	// every scanned plot flashed Scanning at some point
	flashed := 0
	for _, sn := range snaps {
		for _, row := range sn.Grid {
			for _, c := range row {
				if c == CellScanning {
					flashed++
				}
			}
		}
	}
	assert.Greater(t, flashed, 0)
}

func TestResetRestoresDefaults(t *testing.T) {
	s := testSession(t, Config{Rand: rand.New(rand.NewSource(9))})
	_, err := s.AutonomousCycle()
	require.NoError(t, err)
	s.SetBatteryLevel(40)

	s.Reset()
	snap := s.Snapshot()
	assert.Equal(t, 100.0, snap.TankLevelL)
	assert.Equal(t, 100.0, snap.BatteryPct)
	assert.Equal(t, 0, snap.SprayedPlots)
	assert.Empty(t, snap.LastScan)
	for _, row := range snap.Grid {
		for _, c := range row {
			assert.Equal(t, CellHealthy, c)
		}
	}
	require.Len(t, snap.EventLog, 1)
}

func TestSetBatteryLevelClamps(t *testing.T) {
	s := testSession(t, Config{})
	s.SetBatteryLevel(-5)
	_, batt := s.Levels()
	assert.Equal(t, 0.0, batt)
	s.SetBatteryLevel(150)
	_, batt = s.Levels()
	assert.Equal(t, 100.0, batt)
}
