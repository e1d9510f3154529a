package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/einzel-data/focal.report/internal/db"
	"github.com/einzel-data/focal.report/internal/httputil"
	"github.com/einzel-data/focal.report/internal/lens"
)

// chipRequest carries the chip geometry and voltage configuration common to
// every lens query.
type chipRequest struct {
	Spacings    []float64 `json:"spacings"`
	Thicknesses []float64 `json:"thicknesses"`
	Diameter    *float64  `json:"diameter"`
	Voltages    []float64 `json:"voltages"`
}

// rayRequest adds the electron release parameters for trace queries.
type rayRequest struct {
	chipRequest
	Angle         *float64 `json:"angle"`
	Offset        *float64 `json:"offset"`
	Energy        *float64 `json:"energy"`
	NumDatapoints *int     `json:"num_datapoints"`
}

// decodeJSON parses a request body into dst, producing a client-facing
// message on failure.
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %v", err)
	}
	return nil
}

// stack validates the chip fields and builds the immutable lens stack.
// All messages are safe to return to the client.
func (cr *chipRequest) stack() (*lens.Stack, error) {
	if len(cr.Spacings) == 0 {
		return nil, fmt.Errorf("missing required field 'spacings'")
	}
	if len(cr.Thicknesses) == 0 {
		return nil, fmt.Errorf("missing required field 'thicknesses'")
	}
	if cr.Diameter == nil {
		return nil, fmt.Errorf("missing required field 'diameter'")
	}
	if len(cr.Voltages) == 0 {
		return nil, fmt.Errorf("missing required field 'voltages'")
	}
	s, err := lens.NewStack(cr.Spacings, cr.Thicknesses, *cr.Diameter)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// release validates the electron release parameters.
func (rr *rayRequest) release() (angle, offset, energy float64, err error) {
	if rr.Angle == nil {
		return 0, 0, 0, fmt.Errorf("missing required field 'angle'")
	}
	if rr.Offset == nil {
		return 0, 0, 0, fmt.Errorf("missing required field 'offset'")
	}
	if rr.Energy == nil {
		return 0, 0, 0, fmt.Errorf("missing required field 'energy'")
	}
	return *rr.Angle, *rr.Offset, *rr.Energy, nil
}

// tracePointAPI is one trace sample on the wire. JSONFloat keeps degenerate
// offsets (stopped electrons) encodable.
type tracePointAPI struct {
	Depth  httputil.JSONFloat `json:"depth"`
	Offset httputil.JSONFloat `json:"offset"`
}

// queryAPI controls the output shape of history records; without it the
// response would expose raw store fields.
type queryAPI struct {
	QueryID     string    `json:"query_id"`
	Kind        string    `json:"kind"`
	Spacings    []float64 `json:"spacings"`
	Thicknesses []float64 `json:"thicknesses"`
	Diameter    float64   `json:"diameter"`
	Voltages    []float64 `json:"voltages"`
	Result      string    `json:"result"`
	Warnings    int       `json:"warnings"`
	Timestamp   string    `json:"timestamp"`
}

func queryToAPI(rec db.QueryRecord) queryAPI {
	return queryAPI{
		QueryID:     rec.QueryID,
		Kind:        rec.Kind,
		Spacings:    rec.Spacings,
		Thicknesses: rec.Thicknesses,
		Diameter:    rec.Diameter,
		Voltages:    rec.Voltages,
		Result:      rec.Result,
		Warnings:    rec.Warnings,
		Timestamp:   rec.Timestamp.UTC().Format("2006-01-02T15:04:05Z"),
	}
}
