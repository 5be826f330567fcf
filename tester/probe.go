package tester

import (
	"sync"
	"time"

	"github.com/RuiFG/streaming/streaming-polling/element"
)

type State int

const (
	// NoProgress means the job is still running after the wait.
	NoProgress State = iota
	Progress
	Valid
	Fail
)

func (s State) String() string {
	switch s {
	case NoProgress:
		return "NoProgress"
	case Progress:
		return "Progress"
	case Valid:
		return "Valid"
	case Fail:
		return "Fail"
	default:
		return "Unknown"
	}
}

// Probe sits in front of an Output and feeds every submission to the
// registered conditions before passing it downstream.
type Probe[OUT any] struct {
	mutex      sync.RWMutex
	downstream element.Output[OUT]
	conditions []Condition[OUT]
}

var _ element.Output[any] = &Probe[any]{}

func (p *Probe[OUT]) Register(condition Condition[OUT]) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.conditions = append(p.conditions, condition)
}

func (p *Probe[OUT]) Submit(value OUT) error {
	p.mutex.RLock()
	for _, condition := range p.conditions {
		condition.Observe(value)
	}
	p.mutex.RUnlock()
	if p.downstream != nil {
		return p.downstream.Submit(value)
	}
	return nil
}

// State evaluates the conditions of a job that may still be running.
func (p *Probe[OUT]) State() State {
	return p.fromConditions(false)
}

// CheckState waits up to wait for done. A job still running afterwards is
// NoProgress; a finished one is Valid only if every condition holds.
func (p *Probe[OUT]) CheckState(done <-chan struct{}, wait time.Duration) State {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-done:
		return p.fromConditions(true)
	case <-timer.C:
		return NoProgress
	}
}

func (p *Probe[OUT]) fromConditions(complete bool) State {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	allValid := true
	for _, condition := range p.conditions {
		if condition.Failed() {
			return Fail
		}
		if !condition.Valid() {
			allValid = false
		}
	}
	switch {
	case allValid:
		return Valid
	case complete:
		return Fail
	default:
		return Progress
	}
}

// NewProbe wraps downstream, which may be nil.
func NewProbe[OUT any](downstream element.Output[OUT]) *Probe[OUT] {
	return &Probe[OUT]{downstream: downstream}
}
