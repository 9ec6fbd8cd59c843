package agent

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/greenprotect/fieldops/internal/fieldsim"
)

// operationResponse is the discriminated result returned by every operation
// endpoint. Domain rejections (insufficient pesticide, busy sprayer) come
// back with success=false and a reason rather than an opaque 5xx.
type operationResponse struct {
	Success  bool                    `json:"success"`
	Message  string                  `json:"message,omitempty"`
	TicketID string                  `json:"ticket_id,omitempty"`
	Cycle    *fieldsim.CycleResult   `json:"cycle,omitempty"`
	Spray    *fieldsim.SprayResult   `json:"spray,omitempty"`
	Blanket  *fieldsim.BlanketResult `json:"blanket,omitempty"`
	Changed  *bool                   `json:"changed,omitempty"`
}

type operationRequest struct {
	FieldID     string  `json:"field_id"`
	Row         int     `json:"row"`
	Col         int     `json:"col"`
	Amount      float64 `json:"amount"`
	PerCellCost float64 `json:"per_cell_cost"`
}

// NewHTTPMux wires the operator API.
func NewHTTPMux(svc *Service) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) })

	// GET /snapshot?field=field1
	mux.HandleFunc("/snapshot", func(w http.ResponseWriter, r *http.Request) {
		snap, err := svc.Snapshot(r.URL.Query().Get("field"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	})

	// GET /fields
	mux.HandleFunc("/fields", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, svc.Fields())
	})

	mux.HandleFunc("/operations/autonomous", func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeOperation(w, r)
		if !ok {
			return
		}
		ticket, res, err := svc.Autonomous(req.FieldID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, operationResponse{Success: true, TicketID: ticket, Cycle: &res})
	})

	mux.HandleFunc("/operations/spray", func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeOperation(w, r)
		if !ok {
			return
		}
		ticket, res, err := svc.Manual(req.FieldID, req.Row, req.Col, req.Amount)
		if errors.Is(err, fieldsim.ErrInsufficientResource) {
			writeJSON(w, http.StatusOK, operationResponse{Success: false, Message: err.Error()})
			return
		}
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, operationResponse{Success: true, TicketID: ticket, Spray: &res})
	})

	mux.HandleFunc("/operations/blanket", func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeOperation(w, r)
		if !ok {
			return
		}
		ticket, res, err := svc.Blanket(req.FieldID, req.PerCellCost)
		if err != nil {
			writeError(w, err)
			return
		}
		msg := ""
		if res.Exhausted {
			msg = "tank exhausted before covering the whole field"
		}
		writeJSON(w, http.StatusOK, operationResponse{Success: true, Message: msg, TicketID: ticket, Blanket: &res})
	})

	mux.HandleFunc("/operations/mark", func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeOperation(w, r)
		if !ok {
			return
		}
		changed, err := svc.Mark(req.FieldID, req.Row, req.Col)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, operationResponse{Success: true, Changed: &changed})
	})

	mux.HandleFunc("/operations/reset", func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeOperation(w, r)
		if !ok {
			return
		}
		if err := svc.Reset(req.FieldID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, operationResponse{Success: true})
	})

	return mux
}

func decodeOperation(w http.ResponseWriter, r *http.Request) (operationRequest, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return operationRequest{}, false
	}
	var req operationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body: "+err.Error(), http.StatusBadRequest)
		return operationRequest{}, false
	}
	return req, true
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrUnknownField):
		status = http.StatusNotFound
	case errors.Is(err, fieldsim.ErrOutOfRange), errors.Is(err, fieldsim.ErrInvalidAmount):
		status = http.StatusBadRequest
	case errors.Is(err, fieldsim.ErrOperationRunning):
		status = http.StatusConflict
	}
	writeJSON(w, status, operationResponse{Success: false, Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
