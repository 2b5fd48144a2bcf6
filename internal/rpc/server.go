// Package rpc is the request-handler boundary: it maps each wire method
// to a scheduler call, in the shape of the teacher's controlplane.Server
// (one http.ServeMux, one handler per method, JSON request/reply
// structs, every reply carrying an error code).
package rpc

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fentz26/interleave/internal/config"
	"github.com/fentz26/interleave/internal/errcode"
	"github.com/fentz26/interleave/internal/ids"
	"github.com/fentz26/interleave/internal/prng"
	"github.com/fentz26/interleave/internal/registry"
	"github.com/fentz26/interleave/internal/report"
	"github.com/fentz26/interleave/internal/scheduler"
	"github.com/fentz26/interleave/internal/strategy"
	"github.com/fentz26/interleave/internal/trace"
)

// Version is set at build time or defaults to "dev".
var Version = "dev"

// Server is the HTTP API the program under test, the CLI, and the live
// monitor TUI all talk to.
type Server struct {
	registry *registry.Registry
	reports  *report.Store
	cfg      *config.Config
	logger   *log.Logger

	addr   string
	server *http.Server
}

// NewServer constructs a Server backed by reg for live sessions and
// reports for historical session records.
func NewServer(reg *registry.Registry, reports *report.Store, cfg *config.Config, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		registry: reg,
		reports:  reports,
		cfg:      cfg,
		logger:   logger,
		addr:     cfg.ListenAddr,
	}
}

// Start runs the HTTP server. Blocks until the server stops.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/rpc/", s.handleRPC)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/sessions/", s.handleSessionStatus)
	mux.HandleFunc("/reports", s.handleReports)
	mux.HandleFunc("/reports/", s.handleReportByID)

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	s.logger.Printf("starting interleaved daemon on %s", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Request is the generic wire request body: every method populates only
// the fields it needs.
type Request struct {
	SchedulerID  string   `json:"schedulerId"`
	StrategyType string   `json:"strategyType,omitempty"`
	Trace        string   `json:"trace,omitempty"`
	OperationID  string   `json:"operationId,omitempty"`
	OperationIDs []string `json:"operationIds,omitempty"`
	WaitAll      bool     `json:"waitAll,omitempty"`
	ResourceID   string   `json:"resourceId,omitempty"`
	MaxValue     int      `json:"maxValue,omitempty"`
}

// Reply is the generic wire reply body: every method populates only the
// fields its table row promises, alongside errorCode.
type Reply struct {
	ErrorCode       int         `json:"errorCode"`
	ErrorMessage    string      `json:"errorMessage,omitempty"`
	SchedulerID     string      `json:"schedulerId,omitempty"`
	Iteration       int         `json:"iteration,omitempty"`
	MainOperationID string      `json:"mainOperationId,omitempty"`
	NextOperationID string      `json:"nextOperationId,omitempty"`
	Value           interface{} `json:"value,omitempty"`
	Trace           string      `json:"trace,omitempty"`
}

func writeReply(w http.ResponseWriter, code errcode.Code, msg string, body Reply) {
	body.ErrorCode = int(code)
	body.ErrorMessage = msg
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(body)
}

func writeErr(w http.ResponseWriter, err *errcode.Error) {
	if err == nil {
		writeReply(w, errcode.Success, "", Reply{})
		return
	}
	writeReply(w, err.Code, err.Msg, Reply{NextOperationID: ids.None.String()})
}

// getMethods accepts GET with query params, for convenience, alongside the
// usual POST+JSON body every other method requires.
var getMethods = map[string]bool{
	"GetTrace":       true,
	"GetNextBoolean": true,
	"GetNextInteger": true,
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	method := strings.TrimPrefix(r.URL.Path, "/rpc/")

	var req Request
	switch {
	case r.Method == http.MethodGet && getMethods[method]:
		req = requestFromQuery(r.URL.Query())
	case r.Method == http.MethodPost:
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
			return
		}
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch method {
	case "Initialize":
		s.rpcInitialize(w, req)
	case "Attach":
		s.rpcAttach(w, req)
	case "Detach":
		s.rpcDetach(w, req)
	case "CreateOperation":
		s.rpcCreateOperation(w, req)
	case "StartOperation":
		s.rpcStartOperation(w, req)
	case "WaitOperation":
		s.rpcWaitOperation(w, req)
	case "WaitOperationsAllAny":
		s.rpcWaitOperationsAllAny(w, req)
	case "CompleteOperation":
		s.rpcCompleteOperation(w, req)
	case "CreateResource":
		s.rpcCreateResource(w, req)
	case "DeleteResource":
		s.rpcDeleteResource(w, req)
	case "WaitResource":
		s.rpcWaitResource(w, req)
	case "SignalOperation":
		s.rpcSignalOperation(w, req)
	case "SignalOperations":
		s.rpcSignalOperations(w, req)
	case "ScheduleNext":
		s.rpcScheduleNext(w, req)
	case "GetNextBoolean":
		s.rpcGetNextBoolean(w, req)
	case "GetNextInteger":
		s.rpcGetNextInteger(w, req)
	case "GetTrace":
		s.rpcGetTrace(w, req)
	default:
		http.Error(w, "unknown method: "+method, http.StatusNotFound)
	}
}

// requestFromQuery builds a Request from URL query params, for the handful
// of read-only methods getMethods allows over GET.
func requestFromQuery(q url.Values) Request {
	maxValue, _ := strconv.Atoi(q.Get("maxValue"))
	return Request{
		SchedulerID: q.Get("schedulerId"),
		MaxValue:    maxValue,
	}
}

func (s *Server) lookup(w http.ResponseWriter, id string) (*scheduler.Scheduler, bool) {
	sch, ok := s.registry.Get(id)
	if !ok {
		writeReply(w, errcode.Failure, "unknown schedulerId", Reply{})
		return nil, false
	}
	return sch, true
}

func (s *Server) rpcInitialize(w http.ResponseWriter, req Request) {
	var replayTrace *trace.Trace
	if req.Trace != "" {
		tr, err := trace.Parse(req.Trace)
		if err != nil {
			writeReply(w, errcode.Failure, "invalid trace: "+err.Error(), Reply{})
			return
		}
		replayTrace = tr
	}

	sessionID := ids.New().String()
	opRnd := prng.New(s.cfg.RandomSeed)
	delayRnd := prng.New(s.cfg.RandomSeed + 1)

	kind := req.StrategyType
	if kind == "" {
		kind = s.cfg.OperationStrategy
	}
	opStrategy := strategy.NewOperationStrategy(kind, s.cfg, opRnd, replayTrace)
	delayStrategy := strategy.NewDelayStrategy(s.cfg.DelayStrategy, s.cfg, delayRnd)

	s.registry.GetOrCreate(sessionID, opStrategy, delayStrategy, s.logger)
	writeReply(w, errcode.Success, "", Reply{SchedulerID: sessionID})
}

func (s *Server) rpcAttach(w http.ResponseWriter, req Request) {
	sch, ok := s.lookup(w, req.SchedulerID)
	if !ok {
		return
	}
	mainID, iteration, err := sch.Attach()
	if err != nil {
		writeErr(w, err)
		return
	}
	writeReply(w, errcode.Success, "", Reply{Iteration: iteration, MainOperationID: mainID})
}

func (s *Server) rpcDetach(w http.ResponseWriter, req Request) {
	sch, ok := s.lookup(w, req.SchedulerID)
	if !ok {
		return
	}
	st := sch.Status()
	if err := sch.Detach(); err != nil {
		writeErr(w, err)
		return
	}
	if _, err := s.reports.Record(req.SchedulerID, st.Iteration, st.Trace, st.StrategyDescription, int(st.DisableCode)); err != nil {
		s.logger.Printf("failed to record report for scheduler %s: %v", req.SchedulerID, err)
	}
	writeReply(w, errcode.Success, "", Reply{})
}

func (s *Server) rpcCreateOperation(w http.ResponseWriter, req Request) {
	sch, ok := s.lookup(w, req.SchedulerID)
	if !ok {
		return
	}
	if err := sch.CreateOperation(req.OperationID); err != nil {
		writeErr(w, err)
		return
	}
	writeReply(w, errcode.Success, "", Reply{})
}

func (s *Server) rpcStartOperation(w http.ResponseWriter, req Request) {
	sch, ok := s.lookup(w, req.SchedulerID)
	if !ok {
		return
	}
	if err := sch.StartOperation(req.OperationID); err != nil {
		writeErr(w, err)
		return
	}
	writeReply(w, errcode.Success, "", Reply{})
}

func (s *Server) rpcWaitOperation(w http.ResponseWriter, req Request) {
	sch, ok := s.lookup(w, req.SchedulerID)
	if !ok {
		return
	}
	next, err := sch.WaitOperation(req.OperationID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeReply(w, errcode.Success, "", Reply{NextOperationID: next})
}

func (s *Server) rpcWaitOperationsAllAny(w http.ResponseWriter, req Request) {
	sch, ok := s.lookup(w, req.SchedulerID)
	if !ok {
		return
	}
	next, err := sch.WaitOperationsAllAny(req.OperationIDs, req.WaitAll)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeReply(w, errcode.Success, "", Reply{NextOperationID: next})
}

func (s *Server) rpcCompleteOperation(w http.ResponseWriter, req Request) {
	sch, ok := s.lookup(w, req.SchedulerID)
	if !ok {
		return
	}
	next, err := sch.CompleteOperation(req.OperationID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeReply(w, errcode.Success, "", Reply{NextOperationID: next})
}

func (s *Server) rpcCreateResource(w http.ResponseWriter, req Request) {
	sch, ok := s.lookup(w, req.SchedulerID)
	if !ok {
		return
	}
	if err := sch.CreateResource(req.ResourceID); err != nil {
		writeErr(w, err)
		return
	}
	writeReply(w, errcode.Success, "", Reply{})
}

func (s *Server) rpcDeleteResource(w http.ResponseWriter, req Request) {
	sch, ok := s.lookup(w, req.SchedulerID)
	if !ok {
		return
	}
	if err := sch.DeleteResource(req.ResourceID); err != nil {
		writeErr(w, err)
		return
	}
	writeReply(w, errcode.Success, "", Reply{})
}

func (s *Server) rpcWaitResource(w http.ResponseWriter, req Request) {
	sch, ok := s.lookup(w, req.SchedulerID)
	if !ok {
		return
	}
	next, err := sch.WaitResource(req.ResourceID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeReply(w, errcode.Success, "", Reply{NextOperationID: next})
}

func (s *Server) rpcSignalOperation(w http.ResponseWriter, req Request) {
	sch, ok := s.lookup(w, req.SchedulerID)
	if !ok {
		return
	}
	if err := sch.SignalOperation(req.ResourceID, req.OperationID); err != nil {
		writeErr(w, err)
		return
	}
	writeReply(w, errcode.Success, "", Reply{})
}

func (s *Server) rpcSignalOperations(w http.ResponseWriter, req Request) {
	sch, ok := s.lookup(w, req.SchedulerID)
	if !ok {
		return
	}
	if err := sch.SignalOperations(req.ResourceID); err != nil {
		writeErr(w, err)
		return
	}
	writeReply(w, errcode.Success, "", Reply{})
}

func (s *Server) rpcScheduleNext(w http.ResponseWriter, req Request) {
	sch, ok := s.lookup(w, req.SchedulerID)
	if !ok {
		return
	}
	next, err := sch.ScheduleNext()
	if err != nil {
		writeErr(w, err)
		return
	}
	writeReply(w, errcode.Success, "", Reply{NextOperationID: next})
}

func (s *Server) rpcGetNextBoolean(w http.ResponseWriter, req Request) {
	sch, ok := s.lookup(w, req.SchedulerID)
	if !ok {
		return
	}
	v, err := sch.GetNextBoolean()
	if err != nil {
		writeErr(w, err)
		return
	}
	writeReply(w, errcode.Success, "", Reply{Value: v})
}

func (s *Server) rpcGetNextInteger(w http.ResponseWriter, req Request) {
	sch, ok := s.lookup(w, req.SchedulerID)
	if !ok {
		return
	}
	v, err := sch.GetNextInteger(req.MaxValue)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeReply(w, errcode.Success, "", Reply{Value: v})
}

func (s *Server) rpcGetTrace(w http.ResponseWriter, req Request) {
	sch, ok := s.lookup(w, req.SchedulerID)
	if !ok {
		return
	}
	csv, err := sch.GetTrace()
	if err != nil {
		writeErr(w, err)
		return
	}
	writeReply(w, errcode.Success, "", Reply{Trace: csv})
}

// HealthResponse is the /health endpoint body.
type HealthResponse struct {
	OK      bool   `json:"ok"`
	Reports string `json:"reports"`
	Version string `json:"version"`
	Time    string `json:"time"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := HealthResponse{
		OK:      true,
		Reports: "ok",
		Version: Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.reports.Ping(ctx); err != nil {
		s.logger.Printf("health check: report db ping failed: %v", err)
		resp.OK = false
		resp.Reports = "unavailable"
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(resp)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// SessionStatus is what the live monitor TUI polls.
type SessionStatus struct {
	SchedulerID     string   `json:"schedulerId"`
	Attached        bool     `json:"attached"`
	Disabled        bool     `json:"disabled"`
	Iteration       int      `json:"iteration"`
	ScheduledOpID   string   `json:"scheduledOperationId"`
	EnabledOpIDs    []string `json:"enabledOperationIds"`
	MainOperationID string   `json:"mainOperationId"`
	Trace           string   `json:"trace"`
}

func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/sessions/")
	id := strings.TrimSuffix(path, "/status")
	id = strings.TrimSuffix(id, "/")
	sch, ok := s.registry.Get(id)
	if !ok {
		http.Error(w, "unknown schedulerId", http.StatusNotFound)
		return
	}

	st := sch.Status()
	status := SessionStatus{
		SchedulerID:     id,
		Attached:        st.Attached,
		Disabled:        st.Disabled,
		Iteration:       st.Iteration,
		ScheduledOpID:   st.ScheduledOp,
		EnabledOpIDs:    st.EnabledOps,
		MainOperationID: st.MainOperationID,
		Trace:           st.Trace,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sessionID := r.URL.Query().Get("sessionId")
	reports, err := s.reports.List(sessionID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if reports == nil {
		reports = []*report.Report{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(reports)
}

func (s *Server) handleReportByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/reports/")
	if id == "" {
		http.Error(w, "report id required", http.StatusBadRequest)
		return
	}
	rep, err := s.reports.Get(id)
	if err != nil {
		http.Error(w, "report not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rep)
}
