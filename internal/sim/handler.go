package sim

// HandlerState summarises what a Handler is doing.
type HandlerState int

const (
	// StateIdle means no command is active.
	StateIdle HandlerState = iota
	// StateExecuting means a command is active and not finished.
	StateExecuting
	// StatePreempting means a queued command outranks the active one and
	// will replace it on the next HandleCommandQueue.
	StatePreempting
)

func (s HandlerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExecuting:
		return "executing"
	case StatePreempting:
		return "preempting"
	default:
		return "unknown"
	}
}

// DefaultCommandFunc builds the command an agent runs when it has nothing
// else to do.
type DefaultCommandFunc[A any] func(h *Handler[A]) *Command[A]

// Handler schedules the commands of a single agent. It is not safe for
// concurrent use; the world drives it from the tick goroutine.
type Handler[A any] struct {
	agent    A
	fallback DefaultCommandFunc[A]

	queue             PriorityQueue[*Command[A]]
	current           *Command[A]
	executing         bool
	preemptionPending bool
	preemptions       uint64
}

// NewHandler constructs a scheduler for agent. fallback may be nil, in which
// case an idle handler stays idle.
func NewHandler[A any](agent A, fallback DefaultCommandFunc[A]) *Handler[A] {
	return &Handler[A]{agent: agent, fallback: fallback}
}

func (h *Handler[A]) Agent() A { return h.agent }

// AddCommand queues cmd and transfers its ownership to h.
func (h *Handler[A]) AddCommand(cmd *Command[A]) {
	if cmd == nil {
		return
	}
	cmd.owner = h
	h.queue.Insert(cmd)
}

// HandleCommandQueue resolves preemption and runs the active command for one
// tick.
func (h *Handler[A]) HandleCommandQueue() {
	if h.queue.IsEmpty() {
		if !h.executing && h.fallback != nil {
			h.AddCommand(h.fallback(h))
		}
	} else if next, ok := h.queue.PeekMax(); ok && h.executing && h.current != nil && h.current.priority < next.priority {
		h.queue.Insert(h.current)
		h.preemptionPending = true
		h.preemptions++
	}

	if !h.executing || h.preemptionPending {
		h.current, _ = h.queue.PopMax()
		h.preemptionPending = false
	}

	if h.current != nil && !h.current.finished {
		h.current.Execute()
	}
}

// Clear drops the active command and everything queued. Cleared commands are
// never resumed.
func (h *Handler[A]) Clear() {
	h.queue.Clear()
	h.current = nil
	h.executing = false
	h.preemptionPending = false
}

// Current returns the active command, or nil.
func (h *Handler[A]) Current() *Command[A] {
	if h.current == nil || !h.executing {
		return nil
	}
	return h.current
}

func (h *Handler[A]) Executing() bool { return h.executing }

// Pending reports the number of queued commands.
func (h *Handler[A]) Pending() int { return h.queue.Len() }

// Queued returns the queued commands in the order they would run.
func (h *Handler[A]) Queued() []*Command[A] { return h.queue.Items() }

// Preemptions counts how many times an active command has been suspended.
func (h *Handler[A]) Preemptions() uint64 { return h.preemptions }

func (h *Handler[A]) State() HandlerState {
	if !h.executing || h.current == nil {
		return StateIdle
	}
	if next, ok := h.queue.PeekMax(); ok && next.priority > h.current.priority {
		return StatePreempting
	}
	return StateExecuting
}
