package queue

import (
	"testing"
	"time"

	"github.com/onnwee/clip-queue/extract"
)

func cand(url, submitter string, at time.Time) Candidate {
	return Candidate{URL: url, Platform: extract.PlatformYouTube, Submitter: submitter, SubmittedAt: at}
}

func TestSubmitCreatesThenFolds(t *testing.T) {
	a := NewAggregator()
	t0 := time.Now().UTC()

	e1, created := a.Submit(cand("https://www.youtube.com/watch?v=a", "alice", t0))
	if !created {
		t.Fatal("first submission should create an entry")
	}
	if e1.Votes != 1 || e1.FirstSubmitter != "alice" {
		t.Errorf("new entry = %+v, want votes=1 submitter=alice", e1)
	}

	e2, created := a.Submit(cand("https://www.youtube.com/watch?v=a", "bob", t0.Add(time.Second)))
	if created {
		t.Fatal("duplicate url should fold, not create")
	}
	if e2.Votes != 2 {
		t.Errorf("folded entry votes = %d, want 2", e2.Votes)
	}
	if e2.FirstSubmitter != "alice" {
		t.Errorf("first submitter must be preserved, got %q", e2.FirstSubmitter)
	}
	if e2.ID != e1.ID {
		t.Errorf("folding must keep entry identity: %q != %q", e2.ID, e1.ID)
	}
	if a.Len() != 1 {
		t.Errorf("Len() = %d, want 1", a.Len())
	}
}

func TestRankingVotesThenAge(t *testing.T) {
	a := NewAggregator()
	t0 := time.Now().UTC()

	a.Submit(cand("u1", "alice", t0))
	a.Submit(cand("u2", "bob", t0.Add(time.Second)))
	a.Submit(cand("u3", "carol", t0.Add(2*time.Second)))
	// Boost u2 above the rest.
	a.Submit(cand("u2", "dave", t0.Add(3*time.Second)))

	snap := a.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("Len = %d, want 3", len(snap))
	}
	if snap[0].URL != "u2" {
		t.Errorf("head = %q, want most-voted u2", snap[0].URL)
	}
	// Tie between u1 and u3 breaks by earlier first submission.
	if snap[1].URL != "u1" || snap[2].URL != "u3" {
		t.Errorf("tie order = [%q %q], want [u1 u3]", snap[1].URL, snap[2].URL)
	}
}

func TestRankingStableOnEqualVotes(t *testing.T) {
	a := NewAggregator()
	t0 := time.Now().UTC()
	for i, u := range []string{"a", "b", "c", "d"} {
		a.Submit(cand(u, "x", t0.Add(time.Duration(i)*time.Second)))
	}
	snap := a.Snapshot()
	for i, want := range []string{"a", "b", "c", "d"} {
		if snap[i].URL != want {
			t.Fatalf("order[%d] = %q, want %q (insertion order on equal votes)", i, snap[i].URL, want)
		}
	}
}

func TestPopNext(t *testing.T) {
	a := NewAggregator()
	t0 := time.Now().UTC()

	if _, ok := a.PopNext(); ok {
		t.Fatal("pop on empty queue must report ok=false")
	}

	a.Submit(cand("u1", "alice", t0))
	a.Submit(cand("u2", "bob", t0.Add(time.Second)))
	a.Submit(cand("u2", "carol", t0.Add(2*time.Second)))

	head, ok := a.PopNext()
	if !ok || head.URL != "u2" {
		t.Fatalf("PopNext = (%+v, %v), want highest-ranked u2", head, ok)
	}
	if a.Len() != 1 {
		t.Errorf("Len after pop = %d, want 1", a.Len())
	}
}

func TestResubmitAfterPopStartsFresh(t *testing.T) {
	a := NewAggregator()
	t0 := time.Now().UTC()

	first, _ := a.Submit(cand("u1", "alice", t0))
	a.Submit(cand("u1", "bob", t0.Add(time.Second)))
	popped, _ := a.PopNext()
	if popped.Votes != 2 {
		t.Fatalf("popped votes = %d, want 2", popped.Votes)
	}

	again, created := a.Submit(cand("u1", "carol", t0.Add(time.Minute)))
	if !created {
		t.Fatal("resubmission after pop must create a fresh entry")
	}
	if again.ID == first.ID {
		t.Error("fresh entry must not reuse the popped entry's id")
	}
	if again.Votes != 1 || again.FirstSubmitter != "carol" {
		t.Errorf("fresh entry = %+v, want votes=1 submitter=carol", again)
	}
}

func TestRemove(t *testing.T) {
	a := NewAggregator()
	e, _ := a.Submit(cand("u1", "alice", time.Now()))
	if !a.Remove(e.ID) {
		t.Error("removing a present id should report true")
	}
	if a.Remove(e.ID) {
		t.Error("removing an absent id should report false")
	}
	if a.Len() != 0 {
		t.Errorf("Len = %d, want 0", a.Len())
	}
}

func TestClear(t *testing.T) {
	a := NewAggregator()
	t0 := time.Now()
	a.Submit(cand("u1", "alice", t0))
	a.Submit(cand("u2", "bob", t0))
	a.Clear()
	if a.Len() != 0 {
		t.Errorf("Len after clear = %d, want 0", a.Len())
	}
	// Clearing an already-empty queue is a no-op.
	a.Clear()
}

func TestSetTitle(t *testing.T) {
	a := NewAggregator()
	e, _ := a.Submit(cand("u1", "alice", time.Now()))
	a.SetTitle(e.ID, "a great clip")
	snap := a.Snapshot()
	if snap[0].Title != "a great clip" {
		t.Errorf("title = %q, want set value", snap[0].Title)
	}
	// Titling a departed entry is a no-op.
	a.SetTitle("no-such-id", "whatever")
}

func TestSubscribeNotifies(t *testing.T) {
	a := NewAggregator()
	ch, cancel := a.Subscribe()
	defer cancel()

	a.Submit(cand("u1", "alice", time.Now()))
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected a change notification after submit")
	}

	// Notifications coalesce: many mutations, at least one wakeup, and a
	// slow listener never blocks mutations.
	for i := 0; i < 10; i++ {
		a.Submit(cand("u1", "bob", time.Now()))
	}
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected a coalesced notification")
	}

	cancel()
	a.Submit(cand("u2", "carol", time.Now()))
	// After cancel the channel stays quiet apart from an already-buffered
	// wakeup; nothing to assert beyond not panicking.
}
