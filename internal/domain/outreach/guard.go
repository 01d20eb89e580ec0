// internal/domain/outreach/guard.go
package outreach

import (
	"context"
	"time"
)

// DefaultWindow is the spam-prevention window as a Postgres interval literal.
const DefaultWindow = "1 month"

// Contact identifies one outreach attempt. ThreadID is the id of the root
// message of the thread, so follow-ups share their parent's thread.
type Contact struct {
	UserID    int64
	Recipient string
	ThreadID  int64
}

// Entry is a row of the append-only outreach log.
type Entry struct {
	ID           int64
	UserID       int64
	Recipient    string
	ThreadID     int64
	OutreachDate time.Time
}

//go:generate mockgen -source=./guard.go -package=outreachmocks -destination=./mocks/guard.mock.go Guard

// Guard is the duplicate-contact ledger consulted before every send.
type Guard interface {
	RecordContact(ctx context.Context, c Contact) error
	// WasContactedRecently ignores log rows that belong to c.ThreadID.
	WasContactedRecently(ctx context.Context, c Contact) (bool, error)
}
