package runs

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"biathlonstats/internal/broadcast"
	"biathlonstats/internal/events"
	"biathlonstats/internal/pipeline"
	"biathlonstats/internal/wshub"
)

// Run codes avoid characters that are easy to misread: 0, O, 1, I, L.
const (
	alphabet   = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	codeLength = 5
	// Random bytes at or above unbiased would favour the first letters.
	unbiased = 256 / len(alphabet) * len(alphabet)
)

var ErrClosed = errors.New("run store closed")

// GenerateCode returns a short run code that is easy to read out and type.
func GenerateCode() (string, error) {
	return codeFrom(rand.Reader)
}

func codeFrom(r io.Reader) (string, error) {
	var code strings.Builder
	buf := make([]byte, 2*codeLength)
	for code.Len() < codeLength {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", fmt.Errorf("reading random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= unbiased {
				continue
			}
			code.WriteByte(alphabet[int(b)%len(alphabet)])
			if code.Len() == codeLength {
				break
			}
		}
	}
	return code.String(), nil
}

// Store keeps the runs of a server process. Finished runs stay readable
// until they are older than the store's TTL.
type Store struct {
	mu     sync.Mutex
	runs   map[string]*Run
	closed bool
	runner *pipeline.Runner
	ttl    time.Duration
	logger *slog.Logger

	stop      chan struct{}
	swept     chan struct{} // closed when the sweeper returns
	closeOnce sync.Once
}

func NewStore(runner *pipeline.Runner, ttl time.Duration, logger *slog.Logger) *Store {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		runs:   make(map[string]*Run),
		runner: runner,
		ttl:    ttl,
		logger: logger,
		stop:   make(chan struct{}),
		swept:  make(chan struct{}),
	}
	go s.sweepStale(5 * time.Minute)
	return s
}

// Close stops the sweeper and cancels every run still in progress. Create
// fails with ErrClosed afterwards. Close may be called more than once.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		close(s.stop)
		s.mu.Lock()
		defer s.mu.Unlock()
		s.closed = true
		for _, run := range s.runs {
			run.cancel()
		}
		s.logger.Info("[Runs] store closed", slog.Int("runs", len(s.runs)))
	})
}

// Create registers a run for plan and starts it in the background.
func (s *Store) Create(plan pipeline.Plan) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	code, err := s.freeCode()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	bus := events.NewBus()
	hub := wshub.NewHub()
	run := &Run{
		Code:        code,
		ID:          uuid.NewString(),
		Plan:        plan,
		Bus:         bus,
		Broadcaster: broadcast.NewBroadcaster(bus, hub),
		Hub:         hub,
		CreatedAt:   time.Now(),
		cancel:      cancel,
		done:        make(chan struct{}),
		status:      Pending,
	}
	s.runs[code] = run
	go s.execute(ctx, run)
	return run, nil
}

// freeCode draws codes until one is not taken. Callers hold s.mu.
func (s *Store) freeCode() (string, error) {
	const attempts = 10
	for range attempts {
		code, err := GenerateCode()
		if err != nil {
			return "", fmt.Errorf("generating run code: %w", err)
		}
		if _, taken := s.runs[code]; !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("no free run code after %d attempts", attempts)
}

func (s *Store) execute(ctx context.Context, run *Run) {
	defer close(run.done)
	defer run.Bus.Close()
	defer run.cancel()

	run.setStatus(Running)
	rep, err := s.runner.Run(ctx, run.Plan, run.ID, run.progress)
	run.finish(rep, err)

	fin := events.RunFinished{
		RunID:     run.ID,
		Rows:      len(rep.Table.Rows),
		RacesUsed: rep.Table.RacesUsed,
	}
	if err != nil {
		fin.Error = err.Error()
	}
	run.Bus.Finished <- fin

	s.logger.InfoContext(ctx, "[Runs] run finished",
		slog.String("code", run.Code),
		slog.String("run_id", run.ID),
		slog.String("status", string(run.Status())),
		slog.Int("rows", fin.Rows))
}

func (s *Store) Get(code string) *Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[code]
}

// Delete cancels the run if it is still going and forgets it.
func (s *Store) Delete(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if run, ok := s.runs[code]; ok {
		run.cancel()
		delete(s.runs, code)
	}
}

func (s *Store) List() []*Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]*Run, 0, len(s.runs))
	for _, r := range s.runs {
		list = append(list, r)
	}
	return list
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runs)
}

func (s *Store) sweepStale(every time.Duration) {
	defer close(s.swept)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.sweep(now)
		}
	}
}

func (s *Store) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for code, run := range s.runs {
		if now.Sub(run.CreatedAt) > s.ttl {
			run.cancel()
			delete(s.runs, code)
		}
	}
}
