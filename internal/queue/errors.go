package queue

import (
	"fmt"

	"pspman/internal/services"
)

// ClosedQueueError reports an Add after the queue stopped accepting input.
type ClosedQueueError struct {
	Queue   string
	Project string
}

func (e *ClosedQueueError) Error() string {
	return fmt.Sprintf("queue %s is closed; cannot add %s", e.Queue, e.Project)
}

func (e *ClosedQueueError) Is(target error) bool { return target == services.ErrValidation }
