package sim

import "testing"

type traced struct {
	trace []string
}

func tracingCommand(t *testing.T, h *Handler[*traced], name string, priority, length int) *Command[*traced] {
	t.Helper()
	cmd, err := NewCommand[*traced](h, Funcs[*traced]{
		Name: name,
		StepFunc: func(a *traced, iteration int, _ any) {
			a.trace = append(a.trace, name)
		},
		FinishFunc: func(_ *traced, iteration int) bool {
			return iteration >= length
		},
	}, priority)
	if err != nil {
		t.Fatalf("unexpected error building %s: %v", name, err)
	}
	return cmd
}

func TestHandlerPreemptsLowerPriority(t *testing.T) {
	agent := &traced{}
	h := NewHandler(agent, nil)
	low := tracingCommand(t, h, "low", 2, 5)
	h.AddCommand(low)

	h.HandleCommandQueue()
	h.HandleCommandQueue()
	if h.Current() != low || low.Iteration() != 2 {
		t.Fatalf("expected low to run twice, iteration=%d", low.Iteration())
	}

	high := tracingCommand(t, h, "high", 5, 2)
	h.AddCommand(high)
	if h.State() != StatePreempting {
		t.Fatalf("expected preempting state, got %s", h.State())
	}

	h.HandleCommandQueue()
	if h.Current() != high {
		t.Fatalf("expected high to become active")
	}
	if h.Pending() != 1 {
		t.Fatalf("expected low to be requeued, pending=%d", h.Pending())
	}
	h.HandleCommandQueue()
	if !high.Done() {
		t.Fatalf("expected high to finish after two ticks")
	}

	for range 3 {
		h.HandleCommandQueue()
	}
	if !low.Done() {
		t.Fatalf("expected low to resume and finish, iteration=%d", low.Iteration())
	}

	want := []string{"low", "low", "high", "high", "low", "low", "low"}
	if len(agent.trace) != len(want) {
		t.Fatalf("expected trace %v, got %v", want, agent.trace)
	}
	for i := range want {
		if agent.trace[i] != want[i] {
			t.Fatalf("expected trace %v, got %v", want, agent.trace)
		}
	}
	if h.Preemptions() != 1 {
		t.Fatalf("expected one preemption, got %d", h.Preemptions())
	}
	if h.State() != StateIdle {
		t.Fatalf("expected idle state, got %s", h.State())
	}
}

func TestHandlerDoesNotPreemptEqualPriority(t *testing.T) {
	agent := &traced{}
	h := NewHandler(agent, nil)
	first := tracingCommand(t, h, "first", 3, 2)
	second := tracingCommand(t, h, "second", 3, 1)
	h.AddCommand(first)
	h.HandleCommandQueue()
	h.AddCommand(second)
	h.HandleCommandQueue()
	h.HandleCommandQueue()

	want := []string{"first", "first", "second"}
	for i := range want {
		if agent.trace[i] != want[i] {
			t.Fatalf("expected trace %v, got %v", want, agent.trace)
		}
	}
}

func TestHandlerSynthesizesDefaultCommand(t *testing.T) {
	agent := &traced{}
	built := 0
	h := NewHandler(agent, func(owner *Handler[*traced]) *Command[*traced] {
		built++
		return tracingCommand(t, owner, "idle", -1, 2)
	})

	for range 4 {
		h.HandleCommandQueue()
	}
	if built != 2 {
		t.Fatalf("expected two idle commands to be built, got %d", built)
	}

	order := tracingCommand(t, h, "order", 0, 1)
	h.AddCommand(order)
	h.HandleCommandQueue()
	if agent.trace[len(agent.trace)-1] != "order" {
		t.Fatalf("expected queued order to run before a new idle, got %v", agent.trace)
	}
}

func TestHandlerClearDropsEverything(t *testing.T) {
	agent := &traced{}
	h := NewHandler(agent, nil)
	h.AddCommand(tracingCommand(t, h, "a", 1, 10))
	h.AddCommand(tracingCommand(t, h, "b", 0, 10))
	h.HandleCommandQueue()

	h.Clear()
	if h.Executing() || h.Current() != nil || h.Pending() != 0 {
		t.Fatalf("expected handler to be empty after Clear")
	}
	h.HandleCommandQueue()
	if len(agent.trace) != 1 {
		t.Fatalf("expected no further steps after Clear, got %v", agent.trace)
	}
}

func TestHandlerStateStrings(t *testing.T) {
	for state, want := range map[HandlerState]string{
		StateIdle:        "idle",
		StateExecuting:   "executing",
		StatePreempting:  "preempting",
		HandlerState(42): "unknown",
	} {
		if got := state.String(); got != want {
			t.Fatalf("expected %s, got %s", want, got)
		}
	}
}
