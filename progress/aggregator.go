// Package progress implements ProgressAggregator: a single 1 Hz clock
// that turns the chunk.ProgressEvent stream from every active transfer
// into a rendered multi-slot status, a weighted transfer-rate estimate,
// and an ETA.
package progress

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/marcboeker/s3xfer/chunk"
)

// TickInterval is the aggregator's render frequency, per spec.md §4.F.
const TickInterval = time.Second

// historyWindow is how far back the rate windows look; 30 one-second
// samples covers both the 1s and 30s windows with one ring buffer.
const historyWindow = 30

// Slot is one active transfer's displayed row.
type Slot struct {
	ID         uuid.UUID
	Label      string
	State      chunk.State
	TotalBytes int64
	DoneBytes  int64
}

// Status is rendered once per tick.
type Status struct {
	Slots     []Slot
	RateBytes float64 // bytes/sec, weighted across the 1s/30s/overall windows
	ETA       time.Duration
	Done      int64
	Total     int64
	Elapsed   time.Duration
}

// Aggregator owns the slot table and the event channel every
// chunk.Pipeline call posts ProgressEvents to.
type Aggregator struct {
	events chan chunk.ProgressEvent
	render func(Status)

	start   time.Time
	slots   map[uuid.UUID]*Slot
	total   int64
	done    int64
	history []sample
}

type sample struct {
	at   time.Time
	done int64
}

// NewAggregator builds an Aggregator. render is invoked once per tick
// from the goroutine running Run; it must not block.
func NewAggregator(render func(Status)) *Aggregator {
	return &Aggregator{
		events: make(chan chunk.ProgressEvent, 256),
		render: render,
		slots:  make(map[uuid.UUID]*Slot),
	}
}

// Channel is the chan<- to pass as chunk.PutInput.Progress /
// chunk.GetInput.Progress for any transfer this Aggregator should track.
func (a *Aggregator) Channel() chan<- chunk.ProgressEvent { return a.events }

// Register adds a slot for a transfer about to start. label is whatever
// the caller wants shown (typically the logical path); totalBytes seeds
// the ETA denominator and may be zero if unknown in advance.
func (a *Aggregator) Register(id uuid.UUID, label string, totalBytes int64) {
	a.slots[id] = &Slot{ID: id, Label: label, State: chunk.StateIdle, TotalBytes: totalBytes}
	a.total += totalBytes
}

// Remove drops a slot, e.g. on completion or cancellation, per spec.md
// §5 "a cancelled transfer's slot is removed from the aggregator."
func (a *Aggregator) Remove(id uuid.UUID) {
	delete(a.slots, id)
}

// Run drains events and renders a Status once per TickInterval until ctx
// is cancelled. It is meant to run on its own goroutine; the aggregator
// is the only writer of the slot table, matching spec.md §5's "mutated
// only by the aggregator thread/task; other tasks post events."
func (a *Aggregator) Run(ctx context.Context) {
	a.start = time.Now()
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-a.events:
			a.apply(ev)
		case <-ticker.C:
			a.tick()
		}
	}
}

func (a *Aggregator) apply(ev chunk.ProgressEvent) {
	slot, ok := a.slots[ev.TransferID]
	if !ok {
		return
	}
	slot.State = ev.State
	if ev.BytesDelta != 0 {
		slot.DoneBytes += ev.BytesDelta
		a.done += ev.BytesDelta
	}
}

func (a *Aggregator) tick() {
	now := time.Now()
	a.history = append(a.history, sample{at: now, done: a.done})
	if len(a.history) > historyWindow {
		a.history = a.history[len(a.history)-historyWindow:]
	}

	rate := a.weightedRate(now)
	status := Status{
		RateBytes: rate,
		Done:      a.done,
		Total:     a.total,
		Elapsed:   now.Sub(a.start),
	}
	if rate > 0 && a.total > a.done {
		status.ETA = time.Duration(float64(a.total-a.done) / rate * float64(time.Second))
	}
	for _, s := range a.slots {
		status.Slots = append(status.Slots, *s)
	}
	a.render(status)
}

// weightedRate implements spec.md §4.F's formula:
// 0.50·Δbytes_1s/Δt_1s + 0.30·Δbytes_30s/Δt_30s + 0.20·bytes_total/elapsed.
func (a *Aggregator) weightedRate(now time.Time) float64 {
	elapsed := now.Sub(a.start).Seconds()
	var overall float64
	if elapsed > 0 {
		overall = float64(a.done) / elapsed
	}

	rate1s := a.windowRate(now, time.Second)
	rate30s := a.windowRate(now, 30*time.Second)

	return 0.50*rate1s + 0.30*rate30s + 0.20*overall
}

// windowRate returns the byte rate over the most recent window, measured
// against the newest sample taken strictly before now-window (or the
// oldest sample in history, if no sample is that old yet).
func (a *Aggregator) windowRate(now time.Time, window time.Duration) float64 {
	if len(a.history) == 0 {
		return 0
	}
	cutoff := now.Add(-window)
	base := a.history[0]
	for _, s := range a.history {
		if s.at.Before(cutoff) {
			base = s
			continue
		}
		break
	}
	dt := now.Sub(base.at).Seconds()
	if dt <= 0 {
		return 0
	}
	return float64(a.done-base.done) / dt
}
