// Package api exposes the lens simulation over HTTP/JSON.
//
// The core never sees malformed input: every handler validates shape and
// presence of the numeric fields before constructing a stack, and structural
// problems come back as 400s with a descriptive message. Degenerate numeric
// outcomes (infinite or NaN focal lengths) are successful responses encoded
// with string sentinels, never errors.
package api

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/einzel-data/focal.report/internal/config"
	"github.com/einzel-data/focal.report/internal/db"
	"github.com/einzel-data/focal.report/internal/httputil"
	"github.com/einzel-data/focal.report/internal/lens"
	"github.com/einzel-data/focal.report/internal/render"
	"github.com/einzel-data/focal.report/internal/units"
	"github.com/einzel-data/focal.report/internal/version"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server handles lens simulation queries. The store may be nil, in which
// case history recording is disabled.
type Server struct {
	store *db.Store
	cfg   *config.ChipConfig
	units string
}

// NewServer creates an API server with the given history store, chip
// defaults and output units.
func NewServer(store *db.Store, cfg *config.ChipConfig, outputUnits string) *Server {
	if cfg == nil {
		cfg = config.EmptyChipConfig()
	}
	if !units.IsValid(outputUnits) {
		outputUnits = cfg.GetUnits()
	}
	return &Server{
		store: store,
		cfg:   cfg,
		units: outputUnits,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// ServeMux returns the route table for the API.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/focal_length", s.calculateFocalLength)
	mux.HandleFunc("/api/trace_ray", s.traceRay)
	mux.HandleFunc("/api/plot_ray", s.plotRay)
	mux.HandleFunc("/api/chart_ray", s.chartRay)
	mux.HandleFunc("/api/queries", s.listQueries)
	mux.HandleFunc("/api/config", s.showConfig)
	return mux
}

// record saves a query to the history store. Store failures are logged and
// swallowed: history is a convenience, not part of the request contract.
func (s *Server) record(rec *db.QueryRecord) string {
	if s.store == nil {
		return ""
	}
	if err := s.store.RecordQuery(rec); err != nil {
		log.Printf("failed to record %s query: %v", rec.Kind, err)
		return ""
	}
	return rec.QueryID
}

// badRequest maps validation and configuration errors to a 400 response.
func badRequest(w http.ResponseWriter, err error) {
	var cfgErr *lens.ConfigError
	if errors.As(err, &cfgErr) {
		httputil.BadRequest(w, cfgErr.Error())
		return
	}
	httputil.BadRequest(w, err.Error())
}

func (s *Server) calculateFocalLength(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	var req chipRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	stack, err := req.stack()
	if err != nil {
		badRequest(w, err)
		return
	}

	focals, err := stack.AllFocalLengths(req.Voltages)
	if err != nil {
		badRequest(w, err)
		return
	}
	total, err := stack.SystemFocalLength(req.Voltages)
	if err != nil {
		badRequest(w, err)
		return
	}

	queryID := s.record(&db.QueryRecord{
		Kind:        db.KindFocalLength,
		Spacings:    req.Spacings,
		Thicknesses: req.Thicknesses,
		Diameter:    *req.Diameter,
		Voltages:    req.Voltages,
		Result:      httputil.FormatFloat(total),
	})

	converted := make([]float64, len(focals))
	for i, f := range focals {
		converted[i] = units.ConvertLength(f, s.units)
	}

	httputil.WriteJSONOK(w, map[string]interface{}{
		"focal_length":  httputil.JSONFloat(units.ConvertLength(total, s.units)),
		"focal_lengths": httputil.Floats(converted),
		"units":         s.units,
		"query_id":      queryID,
	})
}

// runTrace decodes, validates and executes a ray trace request. The trace
// and warnings are returned in core units (metres).
func (s *Server) runTrace(r *http.Request) (*lens.Tracer, *rayRequest, *lens.TraceResult, []lens.TracePoint, error) {
	var req rayRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, nil, nil, nil, err
	}
	stack, err := req.stack()
	if err != nil {
		return nil, nil, nil, nil, err
	}
	angle, offset, energy, err := req.release()
	if err != nil {
		return nil, nil, nil, nil, err
	}

	numPoints := s.cfg.GetNumDatapoints()
	if req.NumDatapoints != nil {
		numPoints = *req.NumDatapoints
	}
	if numPoints < 1 {
		return nil, nil, nil, nil, fmt.Errorf("num_datapoints must be at least 1, got %d", numPoints)
	}
	if max := s.cfg.GetMaxNumDatapoints(); numPoints > max {
		return nil, nil, nil, nil, fmt.Errorf("num_datapoints too large: %d (max %d)", numPoints, max)
	}

	tracer := lens.NewTracer(stack)
	res, err := tracer.TraceRay(angle, offset, energy, req.Voltages)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return tracer, &req, res, tracer.LinearTrace(res, numPoints), nil
}

func diagnosticsToStrings(diags []lens.Diagnostic) []string {
	out := make([]string, len(diags))
	for i, d := range diags {
		out[i] = d.String()
	}
	return out
}

func (s *Server) traceRay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	_, req, res, points, err := s.runTrace(r)
	if err != nil {
		badRequest(w, err)
		return
	}

	queryID := s.record(&db.QueryRecord{
		Kind:        db.KindTraceRay,
		Spacings:    req.Spacings,
		Thicknesses: req.Thicknesses,
		Diameter:    *req.Diameter,
		Voltages:    req.Voltages,
		Result:      fmt.Sprintf("%d samples", len(points)),
		Warnings:    len(res.Diagnostics),
	})

	trace := make([]tracePointAPI, len(points))
	for i, pt := range points {
		trace[i] = tracePointAPI{
			Depth:  httputil.JSONFloat(units.ConvertLength(pt.Depth, s.units)),
			Offset: httputil.JSONFloat(units.ConvertLength(pt.Offset, s.units)),
		}
	}
	offsets := make([]float64, len(res.Offsets))
	for i, o := range res.Offsets {
		offsets[i] = units.ConvertLength(o, s.units)
	}

	httputil.WriteJSONOK(w, map[string]interface{}{
		"trace":       trace,
		"deflections": httputil.Floats(res.Deflections),
		"offsets":     httputil.Floats(offsets),
		"warnings":    diagnosticsToStrings(res.Diagnostics),
		"units":       s.units,
		"query_id":    queryID,
	})
}

func (s *Server) plotRay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	tracer, req, res, points, err := s.runTrace(r)
	if err != nil {
		badRequest(w, err)
		return
	}

	img, err := render.RayPlotPNG(tracer.Stack(), points, req.Voltages)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render ray plot: %v", err))
		return
	}

	s.record(&db.QueryRecord{
		Kind:        db.KindPlotRay,
		Spacings:    req.Spacings,
		Thicknesses: req.Thicknesses,
		Diameter:    *req.Diameter,
		Voltages:    req.Voltages,
		Result:      fmt.Sprintf("%d samples, %d byte png", len(points), len(img)),
		Warnings:    len(res.Diagnostics),
	})

	httputil.WriteJSONOK(w, map[string]interface{}{
		"image":    "data:image/png;base64," + base64.StdEncoding.EncodeToString(img),
		"warnings": diagnosticsToStrings(res.Diagnostics),
	})
}

func (s *Server) chartRay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	tracer, req, res, points, err := s.runTrace(r)
	if err != nil {
		badRequest(w, err)
		return
	}

	html, err := render.RayChartHTML(tracer.Stack(), points, req.Voltages)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render ray chart: %v", err))
		return
	}

	s.record(&db.QueryRecord{
		Kind:        db.KindChartRay,
		Spacings:    req.Spacings,
		Thicknesses: req.Thicknesses,
		Diameter:    *req.Diameter,
		Voltages:    req.Voltages,
		Result:      fmt.Sprintf("%d samples", len(points)),
		Warnings:    len(res.Diagnostics),
	})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(html)
}

func (s *Server) listQueries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.store == nil {
		httputil.NotFound(w, "query history is disabled")
		return
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			httputil.BadRequest(w, "invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	records, err := s.store.RecentQueries(limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to retrieve queries: %v", err))
		return
	}

	apiRecords := make([]queryAPI, len(records))
	for i, rec := range records {
		apiRecords[i] = queryToAPI(rec)
	}
	httputil.WriteJSONOK(w, apiRecords)
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	httputil.WriteJSONOK(w, map[string]interface{}{
		"units": s.units,
		"default_chip": map[string]interface{}{
			"spacings":    s.cfg.GetSpacings(),
			"thicknesses": s.cfg.GetThicknesses(),
			"diameter":    s.cfg.GetDiameter(),
		},
		"num_datapoints":     s.cfg.GetNumDatapoints(),
		"max_num_datapoints": s.cfg.GetMaxNumDatapoints(),
		"version":            version.Version,
	})
}
