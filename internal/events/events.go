package events

// RaceProgress reports what happened to one race of a cumulation run.
type RaceProgress struct {
	RunID   string `json:"run_id"`
	RaceID  string `json:"race_id"`
	Title   string `json:"title"`
	Status  string `json:"status"`
	Index   int    `json:"index"`
	Total   int    `json:"total"`
	Counted int    `json:"counted"`
}

// RunFinished is emitted once when a run completes, successfully or not.
type RunFinished struct {
	RunID     string `json:"run_id"`
	Rows      int    `json:"rows"`
	RacesUsed int    `json:"races_used"`
	Error     string `json:"error,omitempty"`
}

type Bus struct {
	Races    chan RaceProgress
	Finished chan RunFinished
}

func NewBus() *Bus {
	return &Bus{
		Races:    make(chan RaceProgress, 10),
		Finished: make(chan RunFinished, 1),
	}
}

// Close ends the run's event stream. No sends may follow.
func (b *Bus) Close() {
	close(b.Races)
	close(b.Finished)
}
