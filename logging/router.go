package logging

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock reads wall-clock time.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

type Sink interface {
	Write(Event) error
	Close(context.Context) error
}

type NamedSink struct {
	Name string
	Sink Sink
}

// Router fans published events out to every registered sink from a single
// dispatch goroutine. Publish never blocks the tick loop: a full queue drops
// the event and counts it.
type Router struct {
	queue       chan Event
	sinks       []NamedSink
	clock       Clock
	fallback    *log.Logger
	minSeverity Severity
	fields      map[string]any
	warnEvery   time.Duration

	stop     chan struct{}
	done     chan struct{}
	closed   atomic.Bool
	failures sync.Map // sink name -> *atomic.Uint64

	eventsTotal  atomic.Uint64
	droppedTotal atomic.Uint64
	lastDropLog  atomic.Int64
}

type RouterStats struct {
	EventsTotal  uint64            `json:"eventsTotal"`
	DroppedTotal uint64            `json:"droppedTotal"`
	SinkFailures map[string]uint64 `json:"sinkFailures,omitempty"`
}

// NewRouter starts dispatching to namedSinks. Sink names must be unique.
func NewRouter(clock Clock, cfg Config, namedSinks []NamedSink, fallback *log.Logger) (*Router, error) {
	if clock == nil {
		clock = SystemClock{}
	}
	if fallback == nil {
		fallback = log.New(os.Stderr, "[logging] ", log.LstdFlags)
	}
	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = 512
	}
	warnEvery := cfg.DropWarnInterval
	if warnEvery <= 0 {
		warnEvery = 5 * time.Second
	}

	seen := make(map[string]struct{}, len(namedSinks))
	var sinks []NamedSink
	for _, named := range namedSinks {
		if named.Sink == nil {
			continue
		}
		if _, dup := seen[named.Name]; dup {
			return nil, fmt.Errorf("logging: sink %q registered twice", named.Name)
		}
		seen[named.Name] = struct{}{}
		sinks = append(sinks, named)
	}

	r := &Router{
		queue:       make(chan Event, bufferSize),
		sinks:       sinks,
		clock:       clock,
		fallback:    fallback,
		minSeverity: cfg.MinimumSeverity,
		fields:      cfg.CloneFields(),
		warnEvery:   warnEvery,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	go r.dispatch()
	return r, nil
}

func (r *Router) dispatch() {
	defer close(r.done)
	for {
		select {
		case <-r.stop:
			for {
				select {
				case event := <-r.queue:
					r.forward(event)
				default:
					return
				}
			}
		case event := <-r.queue:
			r.forward(event)
		}
	}
}

func (r *Router) forward(event Event) {
	if event.Severity < r.minSeverity {
		return
	}
	if event.Time.IsZero() {
		event.Time = r.clock.Now()
	}
	event = mergeFields(event, r.fields)
	r.eventsTotal.Add(1)
	for _, named := range r.sinks {
		if err := named.Sink.Write(cloneEvent(event)); err != nil {
			if r.noteFailure(named.Name) == 1 {
				r.fallback.Printf("sink %s failed: %v", named.Name, err)
			}
		}
	}
}

// noteFailure counts a sink write error and returns the running total.
func (r *Router) noteFailure(name string) uint64 {
	counter, _ := r.failures.LoadOrStore(name, new(atomic.Uint64))
	return counter.(*atomic.Uint64).Add(1)
}

func (r *Router) Publish(ctx context.Context, event Event) {
	if event.Type == "" || r.closed.Load() {
		return
	}
	select {
	case r.queue <- event:
	default:
		r.handleDrop(event)
	}
}

func (r *Router) handleDrop(event Event) {
	r.droppedTotal.Add(1)
	now := r.clock.Now().UnixNano()
	next := r.lastDropLog.Load()
	if now >= next && r.lastDropLog.CompareAndSwap(next, now+r.warnEvery.Nanoseconds()) {
		r.fallback.Printf("dropping event type=%s tick=%d", event.Type, event.Tick)
	}
}

// Close drains queued events into the sinks and closes them. Calling Close
// twice waits for ctx instead.
func (r *Router) Close(ctx context.Context) error {
	if !r.closed.CompareAndSwap(false, true) {
		<-ctx.Done()
		return ctx.Err()
	}
	close(r.stop)
	select {
	case <-r.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	var firstErr error
	for _, named := range r.sinks {
		if err := named.Sink.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Router) Stats() RouterStats {
	stats := RouterStats{
		EventsTotal:  r.eventsTotal.Load(),
		DroppedTotal: r.droppedTotal.Load(),
	}
	r.failures.Range(func(key, value any) bool {
		if stats.SinkFailures == nil {
			stats.SinkFailures = make(map[string]uint64)
		}
		stats.SinkFailures[key.(string)] = value.(*atomic.Uint64).Load()
		return true
	})
	return stats
}
