// Package dashboard aggregates the agent and event services behind a single
// read endpoint for the operator UI and proxies operation commands to the
// agent. Each upstream sits behind its own circuit breaker; spray history
// falls back to the last good response when the event service is down.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// Field mirrors the agent's field listing.
type Field struct {
	ID       string `json:"id"`
	CropType string `json:"crop_type"`
	DeviceID string `json:"device_id"`
	Rows     int    `json:"rows"`
	Cols     int    `json:"cols"`
}

// Spray mirrors the event service's trimmed spray record.
type Spray struct {
	FieldID  string  `json:"field_id,omitempty"`
	DeviceID string  `json:"device_id,omitempty"`
	Liters   float64 `json:"liters"`
	Time     string  `json:"time"`
}

// Stats summarizes the recent spray history for the UI header.
type Stats struct {
	SprayCount  int     `json:"spray_count"`
	TotalLiters float64 `json:"total_liters"`
	MeanLiters  float64 `json:"mean_liters"`
}

// Payload is the aggregated dashboard response.
type Payload struct {
	Fields   []Field         `json:"fields"`
	Snapshot json.RawMessage `json:"snapshot,omitempty"`
	Sprays   []Spray         `json:"sprays"`
	Stats    Stats           `json:"stats"`
}

// Config wires the upstream base URLs and the breaker thresholds.
type Config struct {
	AgentURL string // e.g. http://agent-service:8080
	EventURL string // e.g. http://event-service:8080

	Timeout time.Duration

	CBFails    int
	CBOpenFor  time.Duration
	CBInterval time.Duration
}

type Service struct {
	cfg Config
	up  *Upstream

	agentCB *gobreaker.CircuitBreaker
	eventCB *gobreaker.CircuitBreaker

	mu             sync.Mutex
	lastGoodSprays []Spray
}

func mkCB(name string, fails int, openFor, interval time.Duration) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     name,
		Interval: interval,
		Timeout:  openFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= uint32(fails)
		},
	})
}

func NewService(cfg Config) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.CBFails < 1 {
		cfg.CBFails = 3
	}
	if cfg.CBOpenFor <= 0 {
		cfg.CBOpenFor = 10 * time.Second
	}
	if cfg.CBInterval <= 0 {
		cfg.CBInterval = 60 * time.Second
	}
	return &Service{
		cfg:     cfg,
		up:      NewUpstream(cfg.Timeout),
		agentCB: mkCB("agent-service", cfg.CBFails, cfg.CBOpenFor, cfg.CBInterval),
		eventCB: mkCB("event-service", cfg.CBFails, cfg.CBOpenFor, cfg.CBInterval),
	}
}

func (s *Service) fetchFields(ctx context.Context) []Field {
	res, err := s.agentCB.Execute(func() (any, error) {
		var out []Field
		if err := s.up.getJSON(ctx, joinURL(s.cfg.AgentURL, "/fields"), &out); err != nil {
			return nil, err
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("empty field list")
		}
		return out, nil
	})
	if err != nil {
		return nil
	}
	return res.([]Field)
}

func (s *Service) fetchSnapshot(ctx context.Context, fieldID string) json.RawMessage {
	if fieldID == "" {
		return nil
	}
	res, err := s.agentCB.Execute(func() (any, error) {
		var out json.RawMessage
		if err := s.up.getJSON(ctx, joinURL(s.cfg.AgentURL, "/snapshot?field="+fieldID), &out); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return nil
	}
	return res.(json.RawMessage)
}

// fetchSprays goes through the event breaker and keeps the last good
// response as a fallback while the breaker is open.
func (s *Service) fetchSprays(ctx context.Context) []Spray {
	res, err := s.eventCB.Execute(func() (any, error) {
		var out []Spray
		if err := s.up.getJSON(ctx, joinURL(s.cfg.EventURL, "/events/spray/latest"), &out); err != nil {
			return nil, err
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("empty spray history")
		}
		return out, nil
	})
	if err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.lastGoodSprays
	}
	sprays := res.([]Spray)
	s.mu.Lock()
	s.lastGoodSprays = sprays
	s.mu.Unlock()
	return sprays
}

func sprayStats(sprays []Spray) Stats {
	st := Stats{SprayCount: len(sprays)}
	for _, sp := range sprays {
		st.TotalLiters += sp.Liters
	}
	if st.SprayCount > 0 {
		st.MeanLiters = st.TotalLiters / float64(st.SprayCount)
	}
	return st
}

// HandleData serves GET /dashboard/data[?field=...].
func (s *Service) HandleData(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Timeout)
	defer cancel()

	fieldID := r.URL.Query().Get("field")

	var (
		wg     sync.WaitGroup
		fields []Field
		snap   json.RawMessage
		sprays []Spray
	)
	wg.Add(3)
	go func() { defer wg.Done(); fields = s.fetchFields(ctx) }()
	go func() { defer wg.Done(); snap = s.fetchSnapshot(ctx, fieldID) }()
	go func() { defer wg.Done(); sprays = s.fetchSprays(ctx) }()
	wg.Wait()

	if fields == nil {
		fields = []Field{}
	}
	if sprays == nil {
		sprays = []Spray{}
	}
	resp := Payload{
		Fields:   fields,
		Snapshot: snap,
		Sprays:   sprays,
		Stats:    sprayStats(sprays),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)

	log.Printf("GET /dashboard/data [%dms] cb[agent]=%v cb[event]=%v fields=%d sprays=%d",
		time.Since(start).Milliseconds(), s.agentCB.State(), s.eventCB.State(),
		len(resp.Fields), len(resp.Sprays))
}

type commandRequest struct {
	Action      string  `json:"action"` // autonomous | spray | blanket | mark | reset
	FieldID     string  `json:"field_id"`
	Row         int     `json:"row"`
	Col         int     `json:"col"`
	Amount      float64 `json:"amount,omitempty"`
	PerCellCost float64 `json:"per_cell_cost,omitempty"`
}

var commandPaths = map[string]string{
	"autonomous": "/operations/autonomous",
	"spray":      "/operations/spray",
	"blanket":    "/operations/blanket",
	"mark":       "/operations/mark",
	"reset":      "/operations/reset",
}

// HandleCommand serves POST /dashboard/command, proxying the operation to
// the agent and passing its status code through.
func (s *Service) HandleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var cmd commandRequest
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, "bad request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	path, ok := commandPaths[cmd.Action]
	if !ok {
		http.Error(w, fmt.Sprintf("unknown action %q", cmd.Action), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Timeout)
	defer cancel()

	res, err := s.agentCB.Execute(func() (any, error) {
		var body json.RawMessage
		status, err := s.up.postJSON(ctx, joinURL(s.cfg.AgentURL, path), cmd, &body)
		if err != nil {
			return nil, err
		}
		return struct {
			status int
			body   json.RawMessage
		}{status, body}, nil
	})
	if err != nil {
		http.Error(w, "agent unavailable: "+err.Error(), http.StatusBadGateway)
		return
	}
	proxied := res.(struct {
		status int
		body   json.RawMessage
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(proxied.status)
	_, _ = w.Write(proxied.body)
}

// NewHTTPMux wires the dashboard routes.
func NewHTTPMux(s *Service) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) })
	mux.HandleFunc("/dashboard/data", s.HandleData)
	mux.HandleFunc("/dashboard/command", s.HandleCommand)
	return mux
}
