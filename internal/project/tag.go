package project

import (
	"fmt"
)

// PendingAction is the work a record is waiting for.
type PendingAction uint8

const (
	PendingNone PendingAction = iota
	PendingPull
	PendingInstall
	PendingDelete
)

func (a PendingAction) String() string {
	switch a {
	case PendingNone:
		return "none"
	case PendingPull:
		return "pull"
	case PendingInstall:
		return "install"
	case PendingDelete:
		return "delete"
	default:
		return fmt.Sprintf("pending(%d)", uint8(a))
	}
}

// Backend is the build tool family used to install a project.
type Backend uint8

const (
	BackendNone Backend = iota
	BackendMake
	BackendPip
	BackendMeson
	BackendGo
)

func (b Backend) String() string {
	switch b {
	case BackendNone:
		return "none"
	case BackendMake:
		return "make"
	case BackendPip:
		return "pip"
	case BackendMeson:
		return "meson"
	case BackendGo:
		return "go"
	default:
		return fmt.Sprintf("backend(%d)", uint8(b))
	}
}

// Step names the action that produced an outcome.
type Step uint8

const (
	StepNone Step = iota
	StepClone
	StepPull
	StepInstall
	StepDelete
)

func (s Step) String() string {
	switch s {
	case StepNone:
		return "none"
	case StepClone:
		return "clone"
	case StepPull:
		return "pull"
	case StepInstall:
		return "install"
	case StepDelete:
		return "delete"
	default:
		return fmt.Sprintf("step(%d)", uint8(s))
	}
}

// OutcomeState is the result of the most recent step.
type OutcomeState uint8

const (
	OutcomePending OutcomeState = iota
	OutcomeSucceeded
	OutcomeFailed
)

// Outcome records how the most recent step ended. Changed is set when a clone
// or pull brought in new code; Reason is only set on failure.
type Outcome struct {
	State   OutcomeState
	Step    Step
	Changed bool
	Reason  string
}

// Tag holds the pending action, install backend, and last outcome of a record.
type Tag struct {
	Pending PendingAction
	Backend Backend
	Outcome Outcome
}

// MarkPending schedules action. It replaces any previous pending action and never fails.
func (t *Tag) MarkPending(action PendingAction) {
	t.Pending = action
}

// ClearPending drops action if it is the one pending.
func (t *Tag) ClearPending(action PendingAction) {
	if t.Pending == action {
		t.Pending = PendingNone
	}
}

// SetBackend records the install backend. Re-asserting the current backend is a
// no-op; claiming a different one is a *TagConflictError.
func (t *Tag) SetBackend(backend Backend) error {
	if t.Backend != BackendNone && backend != BackendNone && t.Backend != backend {
		return &TagConflictError{Existing: t.Backend, Requested: backend}
	}
	if backend != BackendNone {
		t.Backend = backend
	}
	return nil
}

// MarkSucceeded records a successful step.
func (t *Tag) MarkSucceeded(step Step, changed bool) {
	t.Outcome = Outcome{State: OutcomeSucceeded, Step: step, Changed: changed}
}

// MarkFailed records a failed step and clears the pending action it consumed.
func (t *Tag) MarkFailed(step Step, reason string) {
	t.Outcome = Outcome{State: OutcomeFailed, Step: step, Reason: reason}
	t.Pending = PendingNone
}

// Failed reports whether the last step failed.
func (t Tag) Failed() bool { return t.Outcome.State == OutcomeFailed }

// Persisted tag layout: the low nibble holds the pending action bit, the high
// nibble the backend. A failed action stores 0x0F minus its bit in the low
// nibble; a failed install stores 0xF0 minus the backend in the high nibble.
const (
	bitPull    = 0x01
	bitInstall = 0x02
	bitDelete  = 0x04
	lowMask    = 0x0F
	highMask   = 0xF0
	failLow    = 0x08
	failHigh   = 0xB0
)

func pendingBit(action PendingAction) int {
	switch action {
	case PendingPull:
		return bitPull
	case PendingInstall:
		return bitInstall
	case PendingDelete:
		return bitDelete
	default:
		return 0
	}
}

// Encode packs the tag into its persisted integer form. Success reasons and
// failure reasons are not retained.
func (t Tag) Encode() int {
	low := pendingBit(t.Pending)
	high := int(t.Backend) << 4
	if t.Outcome.State != OutcomeFailed {
		return high | low
	}
	switch t.Outcome.Step {
	case StepInstall:
		return (highMask - high) | bitInstall
	case StepDelete:
		return high | (lowMask - bitDelete)
	default:
		return high | (lowMask - bitPull)
	}
}

// DecodeTag reverses Encode.
func DecodeTag(value int) (Tag, error) {
	if value < 0 || value > 0xFF {
		return Tag{}, fmt.Errorf("tag %#x out of range", value)
	}
	low := value & lowMask
	high := value & highMask

	var tag Tag
	switch {
	case high >= failHigh:
		tag.Backend = Backend((highMask - high) >> 4)
		if low != bitInstall {
			return Tag{}, fmt.Errorf("tag %#x: failed install must carry the install bit", value)
		}
		tag.Outcome = Outcome{State: OutcomeFailed, Step: StepInstall}
		return tag, nil
	case high > int(BackendGo)<<4:
		return Tag{}, fmt.Errorf("tag %#x: unknown install backend", value)
	default:
		tag.Backend = Backend(high >> 4)
	}

	if low >= failLow {
		switch lowMask - low {
		case 0, bitPull:
			tag.Outcome = Outcome{State: OutcomeFailed, Step: StepPull}
		case bitDelete:
			tag.Outcome = Outcome{State: OutcomeFailed, Step: StepDelete}
		case bitInstall:
			tag.Outcome = Outcome{State: OutcomeFailed, Step: StepInstall}
		default:
			return Tag{}, fmt.Errorf("tag %#x: unknown failure code", value)
		}
		return tag, nil
	}

	switch low {
	case 0:
	case bitPull:
		tag.Pending = PendingPull
	case bitInstall:
		tag.Pending = PendingInstall
	case bitDelete:
		tag.Pending = PendingDelete
	default:
		return Tag{}, fmt.Errorf("tag %#x: more than one pending action", value)
	}
	return tag, nil
}

// Describe renders the tag for status lines and tables.
func (t Tag) Describe() string {
	switch t.Outcome.State {
	case OutcomeFailed:
		if t.Outcome.Step == StepInstall {
			return fmt.Sprintf("%s install failed", t.Backend)
		}
		return t.Outcome.Step.String() + " failed"
	}
	if t.Pending != PendingNone {
		return t.Pending.String() + " pending"
	}
	return "ok"
}
