package main

import (
	"context"
	"sync/atomic"
	"time"

	"gregoryjjb/grove/circularbuffer"
	"gregoryjjb/grove/mixing"
	"gregoryjjb/grove/pubsub"
)

type EventType string

const (
	EventRound EventType = "round"
	EventDone  EventType = "done"
	EventError EventType = "error"
)

// Event reports progress of a run to websocket listeners.
type Event struct {
	Type   EventType `json:"type"`
	RunID  int64     `json:"run_id"`
	Round  int       `json:"round,omitempty"`
	Rounds int       `json:"rounds,omitempty"`
	Sum    int64     `json:"sum,omitempty"`
	Error  string    `json:"error,omitempty"`
}

// Run is the record kept for every finished mix.
type Run struct {
	ID          int64          `json:"id"`
	Options     mixing.Options `json:"options"`
	Count       int            `json:"count"`
	Coordinates []int64        `json:"coordinates"`
	Sum         int64          `json:"sum"`
	StartedAt   time.Time      `json:"started_at"`
	DurationMS  float64        `json:"duration_ms"`
}

// Solver runs mixes, remembers the latest ones and announces their
// progress.
type Solver struct {
	nextID  atomic.Int64
	history *circularbuffer.CircularBuffer[Run]
	events  *pubsub.Pubsub[Event]
}

func NewSolver(historySize int) *Solver {
	return &Solver{
		history: circularbuffer.New[Run](historySize),
		events:  pubsub.New[Event](64),
	}
}

// Solve mixes values with opts. It returns ctx.Err() if ctx ends first.
func (s *Solver) Solve(ctx context.Context, values []int64, opts mixing.Options) (Run, error) {
	id := s.nextID.Add(1)
	log := solverLog.With().Int64("run_id", id).Logger()

	log.Debug().
		Int("count", len(values)).
		Int64("decryption_key", opts.DecryptionKey).
		Int("rounds", opts.Rounds).
		Msg("Mixing")

	start := time.Now()
	res, err := mixing.Run(ctx, values, opts, mixing.ObserverFunc(func(round, rounds int) {
		s.events.Publish(Event{
			Type:   EventRound,
			RunID:  id,
			Round:  round,
			Rounds: rounds,
		})
	}))
	if err != nil {
		log.Warn().Err(err).Msg("Mix failed")
		s.events.Publish(Event{Type: EventError, RunID: id, Error: err.Error()})
		return Run{}, err
	}

	run := Run{
		ID:          id,
		Options:     opts,
		Count:       len(values),
		Coordinates: res.Coordinates,
		Sum:         res.Sum,
		StartedAt:   start,
		DurationMS:  float64(time.Since(start).Nanoseconds()) / 1000000.0,
	}
	s.history.Push(run)
	s.events.Publish(Event{Type: EventDone, RunID: id, Sum: run.Sum})

	log.Info().
		Int64("sum", run.Sum).
		Float64("duration_ms", run.DurationMS).
		Msg("Mix finished")

	return run, nil
}

// Runs lists remembered runs, oldest first.
func (s *Solver) Runs() []Run {
	return s.history.Snapshot()
}

func (s *Solver) Run(id int64) (Run, bool) {
	return s.history.Find(func(r Run) bool { return r.ID == id })
}

func (s *Solver) Subscribe() (func(), <-chan Event) {
	handle, ch := s.events.Subscribe()
	return func() {
		s.events.Unsubscribe(handle)
	}, ch
}

func (s *Solver) Close() {
	s.events.Close()
}
