// Package lobby pairs waiting players into matches. The queue holds waiting
// tickets only; timers for bot fallback belong to the caller, which is told
// through the enqueue result whether it now owes one.
package lobby

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Ticket is one outstanding request to be paired.
type Ticket struct {
	Identity   string
	EnqueuedAt time.Time
}

// Result reports the outcome of an enqueue. When Paired is set, Player1 is
// the identity that was waiting longest and Player2 the newcomer; MatchID is
// a freshly minted token for the pair.
type Result struct {
	Paired  bool
	Player1 string
	Player2 string
	MatchID string
}

// Queue is a mutex-guarded waiting list. Pairing is atomic with respect to
// concurrent enqueues, so one ticket can never be matched twice.
type Queue struct {
	mu      sync.Mutex
	waiting []Ticket
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue registers identity for pairing. Any existing ticket for the same
// identity is cleared first, so re-joining replaces intent instead of
// duplicating it. If somebody else is already waiting, the earliest such
// ticket is consumed and both identities are returned as a pair.
func (q *Queue) Enqueue(identity string) Result {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.removeLocked(identity)

	if len(q.waiting) > 0 {
		opponent := q.waiting[0]
		q.waiting = q.waiting[1:]
		return Result{
			Paired:  true,
			Player1: opponent.Identity,
			Player2: identity,
			MatchID: uuid.NewString(),
		}
	}

	q.waiting = append(q.waiting, Ticket{Identity: identity, EnqueuedAt: time.Now()})
	return Result{}
}

// Cancel removes the identity's waiting ticket if present and reports
// whether one was removed. Idempotent.
func (q *Queue) Cancel(identity string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.removeLocked(identity)
}

// IsWaiting reports whether identity currently holds a ticket.
func (q *Queue) IsWaiting(identity string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, t := range q.waiting {
		if t.Identity == identity {
			return true
		}
	}
	return false
}

// Len returns the number of outstanding tickets.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiting)
}

func (q *Queue) removeLocked(identity string) bool {
	for i, t := range q.waiting {
		if t.Identity == identity {
			q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
			return true
		}
	}
	return false
}
