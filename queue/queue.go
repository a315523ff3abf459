// Package queue owns the shared clip queue: duplicate submissions of the same
// canonical URL fold into one entry whose vote count ranks it. All mutating
// access is serialized behind one mutex; consumers read snapshots or listen
// for coalesced change notifications.
package queue

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/onnwee/clip-queue/extract"
)

// Candidate is one clip sighting produced from a chat message.
type Candidate struct {
	URL         string
	Platform    extract.Platform
	Submitter   string
	SubmittedAt time.Time
}

// Entry is a queued clip. Identity for dedup is the canonical URL; Votes is
// the number of candidates folded in since the entry was created.
type Entry struct {
	ID               string           `json:"id"`
	URL              string           `json:"url"`
	Platform         extract.Platform `json:"platform"`
	Title            string           `json:"title,omitempty"`
	FirstSubmitter   string           `json:"first_submitter"`
	FirstSubmittedAt time.Time        `json:"first_submitted_at"`
	Votes            int              `json:"votes"`
}

// Aggregator is the exclusive owner of the queue. Methods are safe for
// concurrent use; each runs atomically with respect to the others.
type Aggregator struct {
	mu       sync.Mutex
	entries  []*Entry
	watchers map[int]chan struct{}
	nextWatch int
}

func NewAggregator() *Aggregator {
	return &Aggregator{watchers: make(map[int]chan struct{})}
}

// Submit folds a candidate into the queue: an existing entry for the same URL
// gains a vote and the queue re-ranks; otherwise a fresh entry is inserted
// with one vote. Returns the affected entry (a copy) and whether it was newly
// created.
func (a *Aggregator) Submit(c Candidate) (Entry, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range a.entries {
		if e.URL == c.URL {
			e.Votes++
			a.rank()
			a.notify()
			return *e, false
		}
	}
	e := &Entry{
		ID:               uuid.New().String(),
		URL:              c.URL,
		Platform:         c.Platform,
		FirstSubmitter:   c.Submitter,
		FirstSubmittedAt: c.SubmittedAt,
		Votes:            1,
	}
	a.entries = append(a.entries, e)
	a.rank()
	a.notify()
	return *e, true
}

// rank orders by votes descending, ties broken by earlier first submission.
// Callers hold the mutex.
func (a *Aggregator) rank() {
	sort.SliceStable(a.entries, func(i, j int) bool {
		if a.entries[i].Votes != a.entries[j].Votes {
			return a.entries[i].Votes > a.entries[j].Votes
		}
		return a.entries[i].FirstSubmittedAt.Before(a.entries[j].FirstSubmittedAt)
	})
}

// Remove deletes an entry by id. Removing an absent id is a no-op.
func (a *Aggregator) Remove(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, e := range a.entries {
		if e.ID == id {
			a.entries = append(a.entries[:i], a.entries[i+1:]...)
			a.notify()
			return true
		}
	}
	return false
}

// Clear empties the queue. A separately-held "now playing" entry is the
// consumer's business and is untouched.
func (a *Aggregator) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.entries) == 0 {
		return
	}
	a.entries = nil
	a.notify()
}

// PopNext removes and returns the highest-ranked entry. ok is false when the
// queue is empty, which is a normal idle state rather than an error. A URL
// resubmitted after its entry was popped starts over at one vote.
func (a *Aggregator) PopNext() (Entry, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.entries) == 0 {
		return Entry{}, false
	}
	head := *a.entries[0]
	a.entries = a.entries[1:]
	a.notify()
	return head, true
}

// SetTitle attaches a display title to an entry without affecting its rank.
// No-op if the entry has already left the queue.
func (a *Aggregator) SetTitle(id, title string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range a.entries {
		if e.ID == id {
			e.Title = title
			a.notify()
			return
		}
	}
}

// Snapshot returns the ordered queue as copies, safe for the caller to keep.
func (a *Aggregator) Snapshot() []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Entry, len(a.entries))
	for i, e := range a.entries {
		out[i] = *e
	}
	return out
}

// Len reports the number of pending entries.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

// Subscribe registers for change notifications. The channel carries coalesced
// wakeups (buffered by one; slow listeners never block mutations). cancel
// must be called when done.
func (a *Aggregator) Subscribe() (ch <-chan struct{}, cancel func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.nextWatch
	a.nextWatch++
	c := make(chan struct{}, 1)
	a.watchers[id] = c
	return c, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.watchers, id)
	}
}

// notify wakes subscribers without blocking. Callers hold the mutex.
func (a *Aggregator) notify() {
	for _, c := range a.watchers {
		select {
		case c <- struct{}{}:
		default:
		}
	}
}
