package status

import "sync/atomic"

// Status is the lifecycle state of a polling operator.
type Status int64

const (
	Created Status = iota
	Initializing
	Idle
	Polling
	Failed
	Shutdown
)

var names = [...]string{"created", "initializing", "idle", "polling", "failed", "shutdown"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(names) {
		return "unknown"
	}
	return names[s]
}

func (s Status) Terminal() bool {
	return s == Failed || s == Shutdown
}

// Load reads the status atomically.
func Load(statusPointer *Status) Status {
	return Status(atomic.LoadInt64((*int64)(statusPointer)))
}

// CAP moves the status from one state to another, compare and swap style.
func CAP(statusPointer *Status, from, to Status) bool {
	return atomic.CompareAndSwapInt64((*int64)(statusPointer), int64(from), int64(to))
}

// Swap unconditionally stores to and returns the previous status.
func Swap(statusPointer *Status, to Status) Status {
	return Status(atomic.SwapInt64((*int64)(statusPointer), int64(to)))
}
