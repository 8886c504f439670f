package casreg

import (
	"fmt"
	"log"
	"reflect"
)

// Seed is the genesis (write_id, value) pair the chain is rooted at:
// lts = 0, no predecessor.
type Seed[W comparable, V any] struct {
	WriteID W
	Value   V
}

// Verdict is the checker's final output: Valid, with Details set only
// when the history is not linearizable.
type Verdict struct {
	Valid   bool
	Details string
}

// Checker runs the incremental linearizability decision procedure over
// a single CAS register. Create one with NewChecker per history; it is
// not reusable across histories, the same way a fresh porcupine.Model
// is checked per call to CheckOperations rather than reused.
type Checker[W comparable, V any] struct {
	state  *CheckerState[W, V]
	equal  func(a, b V) bool
	render Renderer[W, V]
	logger *log.Logger
}

// Option configures a Checker at construction time.
type Option[W comparable, V any] func(*Checker[W, V])

// WithValuesEqual supplies a custom equality function for V, for values
// that aren't `comparable` (byte slices, structs holding slices, ...).
// Defaults to reflect.DeepEqual.
func WithValuesEqual[W comparable, V any](equal func(a, b V) bool) Option[W, V] {
	return func(c *Checker[W, V]) { c.equal = equal }
}

// WithRenderer supplies custom write-id/value rendering for diagnostics.
// Defaults to fmt.Sprint for both.
func WithRenderer[W comparable, V any](r Renderer[W, V]) Option[W, V] {
	return func(c *Checker[W, V]) { c.render = r }
}

// WithLogger supplies a logger that SafeCheck uses to log a one-line
// summary of any recovered InvalidHistoryError before returning it.
func WithLogger[W comparable, V any](l *log.Logger) Option[W, V] {
	return func(c *Checker[W, V]) { c.logger = l }
}

// NewChecker creates a Checker rooted at seed.
func NewChecker[W comparable, V any](seed Seed[W, V], opts ...Option[W, V]) *Checker[W, V] {
	c := &Checker[W, V]{
		state: newCheckerState[W, V](seed.WriteID, seed.Value),
		equal: func(a, b V) bool { return reflect.DeepEqual(a, b) },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run consumes an already-normalised event sequence and returns the
// final verdict. Processing stops at the first event that sets a
// linearizability violation; later events are not inspected.
func (c *Checker[W, V]) Run(events []Event) Verdict {
	for _, e := range events {
		if c.state.err != nil {
			break
		}
		switch ev := e.(type) {
		case InvokeRead:
			c.startRead(ev.Time, ev.Process)
		case OkRead[W, V]:
			c.endRead(ev.Time, ev.Process, ev.WriteID, ev.Value)
		case InvokeWrite[W, V]:
			c.startWrite(ev.Time, ev.PrevWriteID, ev.WriteID, ev.Value)
		case OkWrite[W]:
			c.endWrite(ev.Time, ev.WriteID)
		}
	}
	if c.state.err != nil {
		return Verdict{Valid: false, Details: c.state.err.Error()}
	}
	return Verdict{Valid: true}
}

// Check normalises events per cfg and runs the incremental checker
// seeded at seed, returning the final Verdict.
//
// It panics with InvalidHistoryError if the history itself is malformed
// (non-monotonic time, a duplicate write-id, a duplicate pending read,
// or an ok :read with no pending read on its process) — a harness bug, not a
// linearizability violation. Use SafeCheck to recover that into a
// returned error instead.
func Check[W comparable, V any](cfg Config, seed Seed[W, V], events []Event, opts ...Option[W, V]) Verdict {
	normalized := Normalize(events, cfg)
	c := NewChecker(seed, opts...)
	return c.Run(normalized)
}

// SafeCheck wraps Check, recovering any InvalidHistoryError panic into a
// returned error instead of propagating it to the caller's goroutine.
// This is the one place recovery happens in this package: it sits at
// the API boundary, not inside the state machine.
func SafeCheck[W comparable, V any](cfg Config, seed Seed[W, V], events []Event, opts ...Option[W, V]) (verdict Verdict, err error) {
	c := NewChecker(seed, opts...)
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		ihe, ok := r.(InvalidHistoryError)
		if !ok {
			panic(r)
		}
		if c.logger != nil {
			c.logger.Printf("invalid history: %v", ihe)
		}
		err = ihe
	}()
	normalized := Normalize(events, cfg)
	verdict = c.Run(normalized)
	return verdict, nil
}

// advanceTime enforces that last_ts is non-decreasing and updates it;
// every state transition below shares this precondition. A violation
// here is a harness bug (events delivered out of logical-time order),
// not a linearizability finding, so it panics rather than setting
// state.err.
func (c *Checker[W, V]) advanceTime(ts int64) {
	if ts < c.state.lastTS {
		panic(InvalidHistoryError{Cause: &NonMonotonicTimeError{Last: c.state.lastTS, Current: ts}})
	}
	c.state.lastTS = ts
}

// startWrite handles `invoke :write`.
func (c *Checker[W, V]) startWrite(ts int64, prev, wid W, value V) {
	c.advanceTime(ts)
	s := c.state
	if _, dup := s.writeIDs[wid]; dup {
		panic(InvalidHistoryError{Cause: &DuplicateWriteIDError{WriteID: c.render.renderWriteID(wid)}})
	}
	s.writeIDs[wid] = struct{}{}
	s.pending[wid] = pendingWrite[W, V]{PrevWriteID: prev, Value: value}
}

// endWrite handles `ok :write`.
func (c *Checker[W, V]) endWrite(ts int64, wid W) {
	c.advanceTime(ts)
	if _, ok := c.state.accepted[wid]; ok {
		// A read already observed and accepted this write.
		return
	}
	c.observeWrite(ts, wid)
}

// tailEntry is one link of the candidate chain being bridged to the
// accepted chain head, carrying the value its pendingWrite held so it
// survives the map delete in observeWrite's walk.
type tailEntry[W comparable, V any] struct {
	WriteID W
	Value   V
}

// observeWrite is the core acceptance procedure: it promotes a pending
// write, and transitively any unaccepted predecessors it depends on,
// into the accepted chain, or detects a conflict.
func (c *Checker[W, V]) observeWrite(ts int64, wid W) {
	s := c.state

	var tail []tailEntry[W, V]
	cur := wid
	for {
		pw, isPending := s.pending[cur]
		if !isPending {
			break
		}
		delete(s.pending, cur)
		tail = append([]tailEntry[W, V]{{WriteID: cur, Value: pw.Value}}, tail...)
		cur = pw.PrevWriteID
	}
	p := cur

	rec, isAccepted := s.accepted[p]
	if !isAccepted {
		s.err = &UnknownWriteError{WriteID: c.render.renderWriteID(wid)}
		return
	}

	if p != s.acceptedLatest {
		// rec.NextWriteID is guaranteed set: every accepted record other
		// than the current head has a successor, by the chain invariant.
		// The reported chain names the rejected candidate write(s), not
		// the shared predecessor p itself.
		chainIDs := make([]W, 0, len(tail))
		for _, t := range tail {
			chainIDs = append(chainIDs, t.WriteID)
		}
		s.err = &BranchingChainError{
			Chain:    c.render.renderChain(chainIDs),
			Opponent: c.render.renderWriteID(rec.NextWriteID),
		}
		return
	}

	// Bridge: promote tail in predecessor-to-successor order.
	lts := rec.LTS
	prev := p
	for _, t := range tail {
		lts++
		s.accepted[prev].NextWriteID = t.WriteID
		s.accepted[prev].HasNext = true
		s.accepted[t.WriteID] = &WriteRecord[W, V]{
			Value:       t.Value,
			PrevWriteID: prev,
			HasPrev:     true,
			LTS:         lts,
			ObservedAt:  ts,
		}
		prev = t.WriteID
	}
	s.acceptedLatest = wid
}

// startRead handles `invoke :read`.
func (c *Checker[W, V]) startRead(ts int64, process int) {
	c.advanceTime(ts)
	s := c.state
	if _, exists := s.pendingReads[process]; exists {
		panic(InvalidHistoryError{Cause: &DuplicatePendingReadError{Process: process}})
	}
	s.pendingReads[process] = pendingRead[W]{StartedAt: ts, SnapshotLatest: s.acceptedLatest}
}

// endRead handles `ok :read`.
func (c *Checker[W, V]) endRead(ts int64, process int, wid W, value V) {
	c.advanceTime(ts)
	s := c.state

	pr, exists := s.pendingReads[process]
	if !exists {
		panic(InvalidHistoryError{Cause: &MissingInvokeError{Process: process, Kind: Read}})
	}
	delete(s.pendingReads, process)

	if _, ok := s.accepted[wid]; ok {
		c.checkRead(pr, wid, value)
		return
	}
	if _, ok := s.pending[wid]; ok {
		c.observeWrite(ts, wid)
		if s.err != nil {
			return
		}
		if s.acceptedLatest != wid {
			panic(InvalidHistoryError{Cause: fmt.Errorf(
				"internal: observing write %s for a read did not make it the chain head",
				c.render.renderWriteID(wid),
			)})
		}
		c.checkRead(pr, wid, value)
		return
	}
	s.err = &UnknownWriteError{WriteID: c.render.renderWriteID(wid)}
}

// checkRead implements the staleness and value-agreement checks a read
// must satisfy against the chain state snapshotted at its invocation.
func (c *Checker[W, V]) checkRead(pr pendingRead[W], wid W, value V) {
	s := c.state
	known := s.accepted[pr.SnapshotLatest]
	seen := s.accepted[wid]

	if known.LTS > seen.LTS {
		s.err = &StaleReadError{
			WriteID:       c.render.renderWriteID(wid),
			FresherChain:  c.freshChain(pr.SnapshotLatest, wid),
			ObservedAt:    known.ObservedAt,
			ReadStartedAt: pr.StartedAt,
		}
		return
	}
	if !c.equal(seen.Value, value) {
		s.err = &ValueMismatchError{
			WriteID:  c.render.renderWriteID(wid),
			Expected: c.render.renderValue(seen.Value),
			Got:      c.render.renderValue(value),
		}
	}
}

// freshChain walks from known back through Prev links until wid is
// reached, rendering the evidence chain known -> ... -> wid.
func (c *Checker[W, V]) freshChain(known, wid W) []string {
	s := c.state
	var ids []W
	cur := known
	for {
		ids = append(ids, cur)
		if cur == wid {
			break
		}
		cur = s.accepted[cur].PrevWriteID
	}
	return c.render.renderChain(ids)
}
