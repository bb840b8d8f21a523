package runs

import (
	"context"
	"sync"
	"time"

	"biathlonstats/internal/analytics"
	"biathlonstats/internal/broadcast"
	"biathlonstats/internal/events"
	"biathlonstats/internal/pipeline"
	"biathlonstats/internal/render"
	"biathlonstats/internal/wshub"
)

type Status string

const (
	Pending Status = "pending"
	Running Status = "running"
	Done    Status = "done"
	// Empty runs finished without a table: no races, no usable races or no
	// eligible athletes.
	Empty  Status = "empty"
	Failed Status = "failed"
)

// Run is one cumulation executing in the background of the server.
type Run struct {
	Code        string
	ID          string
	Plan        pipeline.Plan
	Bus         *events.Bus
	Broadcaster *broadcast.Broadcaster
	Hub         *wshub.Hub
	CreatedAt   time.Time

	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	status Status
	report pipeline.Report
	err    error
	races  int
}

// Snapshot is the JSON view of a run.
type Snapshot struct {
	Code      string            `json:"code"`
	ID        string            `json:"id"`
	Status    Status            `json:"status"`
	Request   pipeline.Request  `json:"request"`
	CreatedAt time.Time         `json:"created_at"`
	Processed int               `json:"races_processed"`
	Title     string            `json:"title,omitempty"`
	Table     *render.Table     `json:"table,omitempty"`
	Badges    []analytics.Award `json:"badges,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// Done is closed once the run has finished and its event stream is closed.
func (r *Run) Done() <-chan struct{} { return r.done }

func (r *Run) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Run) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := Snapshot{
		Code:      r.Code,
		ID:        r.ID,
		Status:    r.status,
		Request:   r.Plan.Request,
		CreatedAt: r.CreatedAt,
		Processed: r.races,
		Title:     r.report.Title,
	}
	if r.err != nil {
		s.Error = r.err.Error()
	}
	if r.status == Done {
		t := render.Cumulate(r.report)
		s.Table = &t
		s.Badges = analytics.Awards(r.report.Table)
	}
	return s
}

func (r *Run) progress(ev events.RaceProgress) {
	r.mu.Lock()
	r.races = ev.Index
	r.mu.Unlock()
	r.Bus.Races <- ev
}

func (r *Run) setStatus(s Status) {
	r.mu.Lock()
	r.status = s
	r.mu.Unlock()
	r.Hub.Broadcast(wshub.ServerMessage{Type: "status", Status: string(s)})
}

func (r *Run) finish(rep pipeline.Report, err error) {
	r.mu.Lock()
	r.report = rep
	r.err = err
	switch {
	case err == nil:
		r.status = Done
	case pipeline.IsEmpty(err):
		r.status = Empty
	default:
		r.status = Failed
	}
	status := r.status
	r.mu.Unlock()
	r.Hub.Broadcast(wshub.ServerMessage{Type: "status", Status: string(status)})
}
