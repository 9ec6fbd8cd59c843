package event

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
)

// Spray is the trimmed spray record exposed to the dashboard.
type Spray struct {
	FieldID  string  `json:"field_id,omitempty"`
	DeviceID string  `json:"device_id,omitempty"`
	Liters   float64 `json:"liters"` // mapped from liters_used
	Time     string  `json:"time"`   // RFC3339
}

type sprayQueryParams struct {
	Minutes   int
	Limit     int
	TimeoutMS int
}

func parseSpray(r *http.Request, defMin, defLim, defTOms int) sprayQueryParams {
	q := r.URL.Query()
	get := func(k string, def, min, max int) int {
		if v := strings.TrimSpace(q.Get(k)); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				if n < min {
					return min
				}
				if max > 0 && n > max {
					return max
				}
				return n
			}
		}
		return def
	}
	return sprayQueryParams{
		Minutes:   get("minutes", defMin, 1, 7*24*60),
		Limit:     get("limit", defLim, 1, 500),
		TimeoutMS: get("timeout_ms", defTOms, 200, 5000),
	}
}

func buildFlux(bucket string, minutes, limit int) string {
	return fmt.Sprintf(`
from(bucket: %q)
  |> range(start: -%dm)
  |> filter(fn: (r) => r._measurement == "system_event" and r.event_type == "spray.result")
  |> filter(fn: (r) => r._field == "liters_used")
  |> keep(columns: ["_time","_value","field_id","device_id"])
  |> sort(columns: ["_time"], desc: true)
  |> limit(n:%d)
`, bucket, minutes, limit)
}

func runSpray(w http.ResponseWriter, r *http.Request, influx influxdb2.Client, org, bucket string, defMin, defLim int) {
	p := parseSpray(r, defMin, defLim, 2000)

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(p.TimeoutMS)*time.Millisecond)
	defer cancel()

	api := influx.QueryAPI(org)
	res, err := api.Query(ctx, buildFlux(bucket, p.Minutes, p.Limit))
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Error", "influx-query-error")
		_, _ = w.Write([]byte("[]"))
		return
	}
	defer func() { _ = res.Close() }()

	out := make([]Spray, 0, p.Limit)
	for res.Next() {
		rec := res.Record()

		var liters float64
		switch v := rec.Value().(type) {
		case float64:
			liters = v
		case int64:
			liters = float64(v)
		case int:
			liters = float64(v)
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				liters = f
			}
		}

		tag := func(key string) string {
			if v := rec.ValueByKey(key); v != nil {
				if s, ok := v.(string); ok {
					return strings.TrimSpace(s)
				}
			}
			return ""
		}

		out = append(out, Spray{
			FieldID:  tag("field_id"),
			DeviceID: tag("device_id"),
			Liters:   liters,
			Time:     rec.Time().UTC().Format(time.RFC3339),
		})
	}
	if res.Err() != nil {
		w.Header().Set("X-Error", "influx-iter-error")
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

// GET /events/spray/latest?limit=20[&minutes=1440]
func NewSprayLatestHandler(influx influxdb2.Client, org, bucket string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		runSpray(w, r, influx, org, bucket, 1440, 20)
	})
}
