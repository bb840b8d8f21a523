package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"biathlonstats/internal/analytics"
	"biathlonstats/internal/pipeline"
	"biathlonstats/internal/runs"
	"biathlonstats/internal/wshub"
)

// maxBody bounds POST /runs request bodies.
const maxBody = 64 << 10

type Server struct {
	Runs   *runs.Store
	Logger *slog.Logger
	// Now anchors request validation. Nil means time.Now.
	Now func() time.Time

	registry *prometheus.Registry
	created  prometheus.Counter
	rejected prometheus.Counter
}

// New wires a server over store. Its collectors go to registry, which also
// backs /metrics; nil creates a private registry.
func New(store *runs.Store, logger *slog.Logger, registry *prometheus.Registry) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	s := &Server{
		Runs:     store,
		Logger:   logger,
		registry: registry,
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "biathlon_runs_created_total",
			Help: "Cumulation runs accepted by POST /runs.",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "biathlon_runs_rejected_total",
			Help: "POST /runs requests rejected as invalid.",
		}),
	}
	active := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "biathlon_runs_active",
		Help: "Runs still pending or running.",
	}, s.activeRuns)
	registry.MustRegister(s.created, s.rejected, active)
	return s
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Server) activeRuns() float64 {
	n := 0
	for _, run := range s.Runs.List() {
		if st := run.Status(); st == runs.Pending || st == runs.Running {
			n++
		}
	}
	return float64(n)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("[Server] encoding response", slog.Any("error", err))
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorBody{Error: msg})
}

// getRun resolves the {code} URL parameter, writing a 404 when it is unknown.
func (s *Server) getRun(w http.ResponseWriter, r *http.Request) *runs.Run {
	code := strings.ToUpper(chi.URLParam(r, "code"))
	run := s.Runs.Get(code)
	if run == nil {
		writeError(w, http.StatusNotFound, "run not found")
	}
	return run
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.rejected.Inc()
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	plan, err := req.Validate(s.now())
	if err != nil {
		if errors.Is(err, pipeline.ErrInvalidArgument) {
			s.rejected.Inc()
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	run, err := s.Runs.Create(plan)
	if errors.Is(err, runs.ErrClosed) {
		writeError(w, http.StatusServiceUnavailable, "server is shutting down")
		return
	}
	if err != nil {
		s.Logger.Error("[Handle:CreateRun] creating run", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to create run")
		return
	}
	s.created.Inc()
	s.Logger.InfoContext(r.Context(), "[Handle:CreateRun] run created",
		slog.String("code", run.Code),
		slog.String("run_id", run.ID),
		slog.String("metric", string(plan.Request.Metric)))

	w.Header().Set("Location", "/runs/"+run.Code)
	writeJSON(w, http.StatusCreated, run.Snapshot())
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	list := s.Runs.List()
	slices.SortFunc(list, func(a, b *runs.Run) int { return a.CreatedAt.Compare(b.CreatedAt) })
	out := make([]runs.Snapshot, 0, len(list))
	for _, run := range list {
		snap := run.Snapshot()
		snap.Table = nil
		snap.Badges = nil
		out = append(out, snap)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run := s.getRun(w, r)
	if run == nil {
		return
	}
	writeJSON(w, http.StatusOK, run.Snapshot())
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	run := s.getRun(w, r)
	if run == nil {
		return
	}
	s.Runs.Delete(run.Code)
	s.Logger.InfoContext(r.Context(), "[Handle:DeleteRun] run deleted", slog.String("code", run.Code))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBadges(w http.ResponseWriter, r *http.Request) {
	run := s.getRun(w, r)
	if run == nil {
		return
	}
	snap := run.Snapshot()
	if snap.Status != runs.Done {
		writeError(w, http.StatusConflict, fmt.Sprintf("run is %s", snap.Status))
		return
	}
	badges := snap.Badges
	if badges == nil {
		badges = []analytics.Award{}
	}
	writeJSON(w, http.StatusOK, badges)
}

// handleEvents streams the run's progress as server-sent events. The history
// is replayed first; the stream ends when the run does.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	run := s.getRun(w, r)
	if run == nil {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	msgChan := run.Broadcaster.Subscribe()
	defer run.Broadcaster.Unsubscribe(msgChan)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-msgChan:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\n", msg.Event)
			for _, line := range strings.Split(msg.Data, "\n") {
				fmt.Fprintf(w, "data: %s\n", line)
			}
			fmt.Fprint(w, "\n")
			flusher.Flush()
		}
	}
}

// handleWS upgrades to a websocket registered with the run's hub. Clients get
// the current status, then race, status and done messages; {"t":"ping"} is
// answered with a pong.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	run := s.getRun(w, r)
	if run == nil {
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.Logger.Warn("[Handle:WS] accept failed", slog.String("code", run.Code), slog.Any("error", err))
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	client := &wshub.Client{ID: uuid.NewString(), Conn: conn, Send: make(chan []byte, 32)}
	run.Hub.Register(client)
	defer run.Hub.Unregister(client.ID)
	run.Hub.SendTo(client.ID, wshub.ServerMessage{Type: "status", Status: string(run.Status())})

	go client.WritePump(ctx)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var msg wshub.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == "ping" {
			run.Hub.SendTo(client.ID, wshub.ServerMessage{Type: "pong"})
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, `{"status":"ok","runs":%d}`, s.Runs.Len())
}
