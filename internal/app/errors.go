package app

import (
	"errors"
	"fmt"

	"outreach_scheduler/internal/domain/message"
	idb "outreach_scheduler/internal/infra/database"
)

// ErrDuplicateContact blocks a send because the recipient was contacted
// by the same user inside the spam-prevention window. It is never retried.
var ErrDuplicateContact = fmt.Errorf("recipient was contacted recently by this user")

// ErrQuotaExceeded rejects a direct send once the project has used its
// message_interval for the current window.
var ErrQuotaExceeded = errors.New("project send quota exhausted for the current interval")

// ErrInvalidState is matched by every *InvalidStateError.
var ErrInvalidState = errors.New("invalid message state")

var ErrInvalidInput = errors.New("invalid input")

// Absence is reported with the storage sentinels.
var (
	ErrMessageNotFound  = idb.ErrMessageNotFound
	ErrProjectNotFound  = idb.ErrProjectNotFound
	ErrTemplateNotFound = idb.ErrTemplateNotFound

	ErrDuplicateSequenceOrder = idb.ErrDuplicateSequenceOrder
)

// InvalidStateError reports a transition that is not legal from the message's current state.
type InvalidStateError struct {
	Op        string
	MessageID int64
	Status    message.Status
	Reason    string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s message %d in status %q: %s", e.Op, e.MessageID, e.Status, e.Reason)
}

func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidState
}

func invalidState(op string, m *message.Message, reason string) error {
	return &InvalidStateError{Op: op, MessageID: m.ID, Status: m.Status, Reason: reason}
}
