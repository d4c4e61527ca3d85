// Package server runs merges on request over JSON-RPC 2.0, both as plain
// HTTP POSTs and over a WebSocket, and keeps a history of finished jobs.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"dualstrusion-go/pkg/errors"
	"dualstrusion-go/pkg/log"
	"dualstrusion-go/pkg/merge"
	"dualstrusion-go/pkg/metrics"
	"dualstrusion-go/pkg/pool"
)

// Version is reported by server.info.
const Version = "0.3.0"

// Server accepts merge requests.
type Server struct {
	httpServer *http.Server
	addr       string
	log        *log.Logger

	// defaults are the profile options each request starts from.
	defaults merge.Options
	history  *History
	metrics  *metrics.MergeMetrics

	wsUpgrader websocket.Upgrader
	wsClients  map[int64]*WSClient
	wsClientMu sync.RWMutex
	nextWSID   int64

	running   atomic.Bool
	startTime time.Time
}

// Config holds server configuration.
type Config struct {
	// HTTP address to listen on (e.g., ":7130")
	Addr string
	// Defaults are the merge options requests override.
	Defaults merge.Options
	// HistorySize bounds the job history. Zero means DefaultHistorySize.
	HistorySize int
	// Metrics receives per-merge accounting. Nil creates a fresh set.
	Metrics *metrics.MergeMetrics
	Logger  *log.Logger
}

// New creates a server.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Discard()
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.NewMergeMetrics()
	}
	s := &Server{
		addr:      cfg.Addr,
		log:       logger.WithPrefix("server"),
		defaults:  cfg.Defaults,
		history:   NewHistory(cfg.HistorySize),
		metrics:   m,
		wsClients: make(map[int64]*WSClient),
		startTime: time.Now(),
	}
	s.wsUpgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	return s
}

// History returns the job history.
func (s *Server) History() *History {
	return s.history
}

// Metrics returns the service metrics.
func (s *Server) Metrics() *metrics.MergeMetrics {
	return s.metrics
}

// Handler returns the HTTP handler serving every endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/jsonrpc", s.handleJSONRPC)
	mux.HandleFunc("/websocket", s.handleWebSocket)

	// REST-style endpoints (alternative to JSON-RPC)
	mux.HandleFunc("/server/info", s.handleServerInfo)
	mux.HandleFunc("/dualstrusion/merge", s.handleMerge)
	s.history.RegisterEndpoints(mux, s)
	mux.HandleFunc("/metrics", s.handleMetrics)

	return s.corsMiddleware(mux)
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.running.Store(true)
	s.log.Info("merge service listening on %s", s.addr)

	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop closes every WebSocket client and shuts the HTTP server down.
func (s *Server) Stop(ctx context.Context) error {
	s.running.Store(false)

	s.wsClientMu.Lock()
	for _, client := range s.wsClients {
		client.Close()
	}
	s.wsClients = make(map[int64]*WSClient)
	s.wsClientMu.Unlock()
	s.metrics.WebSocketClients.Set(nil, 0)

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// JSON-RPC 2.0 structures

type jsonRPCRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params,omitempty"`
	ID      any            `json:"id,omitempty"`
}

type jsonRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	Result  any           `json:"result,omitempty"`
	Error   *jsonRPCError `json:"error,omitempty"`
	ID      any           `json:"id,omitempty"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
)

// rpcError carries a JSON-RPC error code through dispatch.
type rpcError struct {
	code int
	msg  string
}

func (e *rpcError) Error() string { return e.msg }

func invalidParams(format string, args ...any) error {
	return &rpcError{code: codeInvalidParams, msg: fmt.Sprintf(format, args...)}
}

func errorCode(err error) int {
	if re, ok := err.(*rpcError); ok {
		return re.code
	}
	return codeServerError
}

// handleJSONRPC handles JSON-RPC 2.0 requests.
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req jsonRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONRPCError(w, nil, codeParseError, "Parse error")
		return
	}

	result, err := s.dispatchMethod(req.Method, req.Params)
	if err != nil {
		s.writeJSONRPCError(w, req.ID, errorCode(err), err.Error())
		return
	}
	s.writeJSONRPCResult(w, req.ID, result)
}

// dispatchMethod routes a method call. A panicking handler becomes an
// error response instead of taking the service down.
func (s *Server) dispatchMethod(method string, params map[string]any) (result any, err error) {
	defer func() {
		if perr := errors.RecoverPanic(recover()); perr != nil {
			s.log.WithField("method", method).Error(perr.Error())
			result, err = nil, perr
		}
	}()

	switch method {
	case "server.info":
		return s.methodServerInfo()
	case "dualstrusion.merge":
		return s.methodMerge(params)
	case "server.history.list":
		return s.methodHistoryList(params)
	case "server.history.get_job":
		return s.methodHistoryGetJob(params)
	case "server.history.totals":
		return s.history.Totals(), nil
	default:
		return nil, &rpcError{code: codeMethodNotFound, msg: "method not found: " + method}
	}
}

// Method implementations

func (s *Server) methodServerInfo() (any, error) {
	hostname, _ := os.Hostname()

	s.wsClientMu.RLock()
	wsCount := len(s.wsClients)
	s.wsClientMu.RUnlock()

	return map[string]any{
		"version":         Version,
		"hostname":        hostname,
		"uptime":          time.Since(s.startTime).Seconds(),
		"websocket_count": wsCount,
		"machine":         s.defaults.Machine.String(),
		"use_wipes":       s.defaults.UseWipes,
		"machines":        merge.MachineClasses,
		"methods": []string{
			"server.info",
			"dualstrusion.merge",
			"server.history.list",
			"server.history.get_job",
			"server.history.totals",
		},
	}, nil
}

// MergeResponse is the result of dualstrusion.merge.
type MergeResponse struct {
	JobID       string             `json:"job_id"`
	RunID       string             `json:"run_id"`
	GCode       string             `json:"gcode"`
	LineCount   int                `json:"line_count"`
	LayerCount  int                `json:"layer_count"`
	Toolchanges int                `json:"toolchanges"`
	Degradation *merge.Degradation `json:"degradation,omitempty"`
	Diagnostics []Diagnostic       `json:"diagnostics"`
}

// Diagnostic is the wire form of a recoverable merge problem.
type Diagnostic struct {
	Code     string `json:"code"`
	Category string `json:"category"`
	Source   string `json:"source,omitempty"`
	Line     int    `json:"line,omitempty"`
	Message  string `json:"message"`
}

func newDiagnostics(errs []*errors.MergeError) []Diagnostic {
	out := make([]Diagnostic, 0, len(errs))
	for _, e := range errs {
		out = append(out, Diagnostic{
			Code:     string(e.Code),
			Category: e.Category().String(),
			Source:   e.Source,
			Line:     e.Line,
			Message:  e.Message,
		})
	}
	return out
}

func (s *Server) methodMerge(params map[string]any) (any, error) {
	left, err := linesParam(params, "left")
	if err != nil {
		return nil, err
	}
	right, err := linesParam(params, "right")
	if err != nil {
		return nil, err
	}
	opts, err := s.requestOptions(params)
	if err != nil {
		return nil, err
	}
	name, _ := params["name"].(string)

	job := s.history.Start(name, len(left), len(right))
	opts.Logger = s.log.With(log.Fields{"job": job.JobID})
	started := time.Now()
	res := merge.Combine(left, right, opts)
	job = s.history.Finish(job.JobID, res)
	s.recordMerge(job, res, opts.Machine, time.Since(started))

	resp := &MergeResponse{
		JobID:       job.JobID,
		RunID:       res.RunID.String(),
		GCode:       pool.JoinLines(res.Lines),
		LineCount:   len(res.Lines),
		LayerCount:  len(res.Layers),
		Toolchanges: res.Toolchanges,
		Degradation: res.Degradation,
		Diagnostics: newDiagnostics(res.Diagnostics),
	}
	s.broadcast("notify_merge_complete", job)
	return resp, nil
}

func (s *Server) recordMerge(job MergeJob, res *merge.Result, machine merge.MachineClass, d time.Duration) {
	outcome := metrics.MergeOutcome{
		Status:      job.Status,
		Machine:     machine.String(),
		LeftLines:   job.LeftLines,
		RightLines:  job.RightLines,
		OutputLines: len(res.Lines),
		Layers:      len(res.Layers),
		Toolchanges: res.Toolchanges,
		Duration:    d,
	}
	for _, diag := range res.Diagnostics {
		outcome.Codes = append(outcome.Codes, string(diag.Code))
	}
	if res.Degradation != nil {
		outcome.Degradation = res.Degradation.Feature
	}
	s.metrics.RecordMerge(outcome)
}

// requestOptions applies per-request overrides to the profile defaults.
func (s *Server) requestOptions(params map[string]any) (merge.Options, error) {
	opts := s.defaults
	if v, ok := params["use_wipes"]; ok {
		b, ok := v.(bool)
		if !ok {
			return opts, invalidParams("'use_wipes' must be a boolean")
		}
		opts.UseWipes = b
	}
	if v, ok := params["pause_on_toolchange"]; ok {
		b, ok := v.(bool)
		if !ok {
			return opts, invalidParams("'pause_on_toolchange' must be a boolean")
		}
		opts.PauseOnToolchange = b
	}
	if v, ok := params["machine"]; ok {
		name, ok := v.(string)
		if !ok {
			return opts, invalidParams("'machine' must be a string")
		}
		m, err := merge.ParseMachineClass(name)
		if err != nil {
			return opts, invalidParams("%v", err)
		}
		opts.Machine = m
	}
	if v, ok := params["progress"]; ok {
		b, ok := v.(bool)
		if !ok {
			return opts, invalidParams("'progress' must be a boolean")
		}
		if !b {
			opts.Progress = merge.NoProgress
		}
	}
	return opts, nil
}

// linesParam accepts either the file text or an array of lines.
func linesParam(params map[string]any, key string) ([]string, error) {
	switch v := params[key].(type) {
	case string:
		text := strings.ReplaceAll(v, "\r\n", "\n")
		text = strings.TrimSuffix(text, "\n")
		if text == "" {
			return nil, nil
		}
		return strings.Split(text, "\n"), nil
	case []any:
		lines := make([]string, 0, len(v))
		for i, item := range v {
			line, ok := item.(string)
			if !ok {
				return nil, invalidParams("'%s'[%d] must be a string", key, i)
			}
			lines = append(lines, line)
		}
		return lines, nil
	case nil:
		return nil, invalidParams("missing '%s' parameter", key)
	default:
		return nil, invalidParams("'%s' must be a string or an array of strings", key)
	}
}

func (s *Server) methodHistoryList(params map[string]any) (any, error) {
	limit := 50
	if v, ok := params["limit"].(float64); ok && v > 0 {
		limit = int(v)
	}
	jobs := s.history.List(limit)
	return map[string]any{"count": len(jobs), "jobs": jobs}, nil
}

func (s *Server) methodHistoryGetJob(params map[string]any) (any, error) {
	uid, ok := params["uid"].(string)
	if !ok {
		return nil, invalidParams("missing 'uid' parameter")
	}
	job, err := s.history.Get(uid)
	if err != nil {
		return nil, err
	}
	return map[string]any{"job": job}, nil
}

// REST handlers

func (s *Server) handleServerInfo(w http.ResponseWriter, r *http.Request) {
	result, err := s.methodServerInfo()
	if err != nil {
		s.writeJSONError(w, err)
		return
	}
	s.writeJSON(w, map[string]any{"result": result})
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var params map[string]any
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		s.writeJSONError(w, err)
		return
	}

	result, err := s.dispatchMethod("dualstrusion.merge", params)
	if err != nil {
		s.writeJSONError(w, err)
		return
	}
	s.writeJSON(w, map[string]any{"result": result})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.Write([]byte(s.metrics.Gather()))
}

// corsMiddleware allows browser clients on other origins.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// JSON response helpers

func (s *Server) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeJSONError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    errorCode(err),
			"message": err.Error(),
		},
	})
}

func (s *Server) writeJSONRPCResult(w http.ResponseWriter, id any, result any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(jsonRPCResponse{
		JSONRPC: "2.0",
		Result:  result,
		ID:      id,
	})
}

func (s *Server) writeJSONRPCError(w http.ResponseWriter, id any, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(jsonRPCResponse{
		JSONRPC: "2.0",
		Error:   &jsonRPCError{Code: code, Message: message},
		ID:      id,
	})
}
