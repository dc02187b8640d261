package sim

import "errors"

var (
	ErrMissingOwner    = errors.New("sim: command has no owner")
	ErrMissingBehavior = errors.New("sim: command has no behavior")
	ErrMissingStep     = errors.New("sim: command has no step callback")
	ErrMissingFinish   = errors.New("sim: command has no finish condition")
)

// Behavior is the per-kind logic of a Command. Step runs once per tick while
// the command is active; Finished is evaluated right after each Step with the
// already incremented iteration.
type Behavior[A any] interface {
	Step(agent A, iteration int, data any)
	Finished(agent A, iteration int) bool
}

// Initializer is implemented by behaviors that prepare data once per
// activation. The returned value is passed to every Step.
type Initializer[A any] interface {
	Init(agent A) any
}

// Funcs builds a Behavior from closures. StepFunc and FinishFunc are required;
// InitFunc is optional.
type Funcs[A any] struct {
	Name       string
	InitFunc   func(agent A) any
	StepFunc   func(agent A, iteration int, data any)
	FinishFunc func(agent A, iteration int) bool
}

func (f Funcs[A]) Step(agent A, iteration int, data any) {
	f.StepFunc(agent, iteration, data)
}

func (f Funcs[A]) Finished(agent A, iteration int) bool {
	return f.FinishFunc(agent, iteration)
}

func (f Funcs[A]) Kind() string {
	if f.Name == "" {
		return "custom"
	}
	return f.Name
}

// Command is a resumable unit of work bound to one agent's Handler.
type Command[A any] struct {
	owner       *Handler[A]
	behavior    Behavior[A]
	init        func(A) any
	priority    int
	iteration   int
	initialized bool
	finished    bool
	data        any
}

// NewCommand validates the wiring of a command. Every error is returned here so
// that a malformed command never reaches the scheduler.
func NewCommand[A any](owner *Handler[A], behavior Behavior[A], priority int) (*Command[A], error) {
	if owner == nil {
		return nil, ErrMissingOwner
	}
	if behavior == nil {
		return nil, ErrMissingBehavior
	}
	cmd := &Command[A]{owner: owner, behavior: behavior, priority: priority}
	switch b := behavior.(type) {
	case Funcs[A]:
		if b.StepFunc == nil {
			return nil, ErrMissingStep
		}
		if b.FinishFunc == nil {
			return nil, ErrMissingFinish
		}
		cmd.init = b.InitFunc
	case *Funcs[A]:
		if b == nil {
			return nil, ErrMissingBehavior
		}
		if b.StepFunc == nil {
			return nil, ErrMissingStep
		}
		if b.FinishFunc == nil {
			return nil, ErrMissingFinish
		}
		cmd.init = b.InitFunc
	case Initializer[A]:
		cmd.init = b.Init
	}
	return cmd, nil
}

// Priority implements Prioritized.
func (c *Command[A]) Priority() int { return c.priority }

// Iteration reports how many times the command has stepped since it was
// initialized.
func (c *Command[A]) Iteration() int { return c.iteration }

func (c *Command[A]) Initialized() bool { return c.initialized }

// Done reports whether the finish condition has been met.
func (c *Command[A]) Done() bool { return c.finished }

// Data returns the value produced by the initializer, or nil.
func (c *Command[A]) Data() any { return c.data }

// Kind names the behavior for diagnostics.
func (c *Command[A]) Kind() string {
	if named, ok := c.behavior.(interface{ Kind() string }); ok {
		return named.Kind()
	}
	return "custom"
}

// Execute advances the command by one tick. Initialization happens at most
// once per activation, before the first Step.
func (c *Command[A]) Execute() {
	h := c.owner
	agent := h.agent
	if !c.initialized && c.init != nil {
		c.data = c.init(agent)
		c.iteration = 0
		c.initialized = true
	}

	c.behavior.Step(agent, c.iteration, c.data)
	h.executing = true

	c.iteration++
	if c.behavior.Finished(agent, c.iteration) {
		c.finished = true
		h.executing = false
	}
}
