package procs

import (
	"errors"
	"time"
)

const (
	DefaultKillTimeout = time.Second
	exitPollInterval   = 50 * time.Millisecond
)

// Controller terminates, suspends and resumes processes by pid. Failures are
// reported in the ActionResult and never retried.
type Controller struct {
	source  Source
	timeout time.Duration
	poll    time.Duration
	now     func() time.Time
	sleep   func(time.Duration)
}

type ControllerOption func(*Controller)

// WithWaitClock replaces the clock and sleep used while waiting for a
// terminated process to exit.
func WithWaitClock(now func() time.Time, sleep func(time.Duration)) ControllerOption {
	return func(c *Controller) {
		c.now = now
		c.sleep = sleep
	}
}

func NewController(source Source, timeout time.Duration, opts ...ControllerOption) *Controller {
	if timeout <= 0 {
		timeout = DefaultKillTimeout
	}
	c := &Controller{
		source:  source,
		timeout: timeout,
		poll:    exitPollInterval,
		now:     time.Now,
		sleep:   time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Terminate asks pid to exit (SIGTERM), or kills it outright when force is
// set (SIGKILL), then waits up to the timeout for it to be gone.
func (c *Controller) Terminate(pid int32, force bool) ActionResult {
	h, name, res, ok := c.open(pid, "terminate")
	if !ok {
		return res
	}

	var err error
	if force {
		err = h.Kill()
	} else {
		err = h.Terminate()
	}
	if err != nil {
		return failed(pid, name, "terminate", classify(err))
	}

	if !c.waitExit(h) {
		if force {
			return failed(pid, name, "terminate", ErrForcedTimeout)
		}
		return failed(pid, name, "terminate", ErrGracefulTimeout)
	}
	return ActionResult{Success: true, PID: pid, Name: name}
}

// Suspend stops pid (SIGSTOP).
func (c *Controller) Suspend(pid int32) ActionResult {
	h, name, res, ok := c.open(pid, "suspend")
	if !ok {
		return res
	}
	if err := h.Suspend(); err != nil {
		return failed(pid, name, "suspend", classify(err))
	}
	return ActionResult{Success: true, PID: pid, Name: name}
}

// Resume continues a stopped pid (SIGCONT).
func (c *Controller) Resume(pid int32) ActionResult {
	h, name, res, ok := c.open(pid, "resume")
	if !ok {
		return res
	}
	if err := h.Resume(); err != nil {
		return failed(pid, name, "resume", classify(err))
	}
	return ActionResult{Success: true, PID: pid, Name: name}
}

// open resolves pid. The name is best effort: a process whose name cannot
// be read may still be signalled. A zombie has already exited and is
// reported as not found.
func (c *Controller) open(pid int32, action string) (Handle, string, ActionResult, bool) {
	h, err := c.source.Open(pid)
	if err != nil {
		return nil, "", failed(pid, "", action, classify(err)), false
	}
	name, err := h.Name()
	if err != nil {
		if err = classify(err); errors.Is(err, ErrNotFound) {
			return nil, "", failed(pid, "", action, err), false
		}
		name = ""
	}
	status, err := h.Status()
	switch {
	case err == nil && parseStatusList(status) == StatusZombie:
		return nil, "", failed(pid, name, action, ErrNotFound), false
	case err != nil && errors.Is(classify(err), ErrNotFound):
		return nil, "", failed(pid, name, action, ErrNotFound), false
	}
	return h, name, ActionResult{}, true
}

// waitExit polls until h is gone, or a zombie, or the timeout passes.
func (c *Controller) waitExit(h Handle) bool {
	deadline := c.now().Add(c.timeout)
	for {
		if exited(h) {
			return true
		}
		if !c.now().Before(deadline) {
			return false
		}
		c.sleep(c.poll)
	}
}

func exited(h Handle) bool {
	running, err := h.IsRunning()
	if err != nil {
		return errors.Is(classify(err), ErrNotFound)
	}
	if !running {
		return true
	}
	status, err := h.Status()
	if err != nil {
		return errors.Is(classify(err), ErrNotFound)
	}
	return parseStatusList(status) == StatusZombie
}

func failed(pid int32, name, action string, err error) ActionResult {
	return ActionResult{
		Success: false,
		PID:     pid,
		Name:    name,
		Error:   Reason(action, err),
	}
}
