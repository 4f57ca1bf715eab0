package tsubakuro

import "sync"

// slotState is one element of the response slot lifecycle:
// Free -> Pending -> (HeadReceived) -> Completed or Error, and back to Free
// once the awaiter consumes the slot.
type slotState int32

const (
	slotFree slotState = iota
	slotPending
	slotHeadReceived
	slotCompleted
	slotErrorState
)

// responseProcessor converts a decoded wireEvent into the caller's typed
// result. It is owned by the slot and invoked exactly once, under the
// slot's lock: a one-shot callable keyed by slot.
type responseProcessor func(wireEvent) (any, error)

// slotEntry is one element of the response box.
type slotEntry struct {
	mu        sync.Mutex
	state     slotState
	processor responseProcessor
	head      Frame // body-head payload, if any, observed before the terminal frame
	result    wireEvent
	done      chan struct{} // closed exactly once, on completion
	// processed/processedResult/processedErr cache the one-shot processor
	// invocation so repeat WaitResponse calls (e.g. after a timeout retry)
	// observe the same outcome instead of re-running it.
	processed       bool
	processedResult any
	processedErr    error
	// generation guards slotHandle against use-after-free: a handle from a
	// prior occupant of this index must not observe a later occupant's
	// completion.
	generation uint64
}

// slotHandle is the caller's reference into the response box: an index plus
// a generation stamp. original_source names the equivalent type
// response_box::SlotEntryHandle (see job/cancel_job.rs).
type slotHandle struct {
	index      int
	generation uint64
}

// responseBox is the fixed/growable mapping from slot index to slot entry.
// Acquisition scans for the lowest free index under a mutex, so that when
// multiple slots are free the lowest-index slot is allocated (deterministic
// for tests); capacity grows on demand rather than blocking the caller.
type responseBox struct {
	mu      sync.Mutex
	entries []*slotEntry
}

func newResponseBox() *responseBox {
	return &responseBox{}
}

// acquire finds (or grows into) the lowest-index free slot, marks it
// Pending with the given processor, and returns a handle to it.
func (b *responseBox) acquire(processor responseProcessor) *slotHandle {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, e := range b.entries {
		if e == nil {
			continue
		}
		e.mu.Lock()
		free := e.state == slotFree
		if free {
			e.state = slotPending
			e.processor = processor
			e.head = Frame{}
			e.result = wireEvent{}
			e.done = make(chan struct{})
			e.processed = false
			e.processedResult = nil
			e.processedErr = nil
			e.generation++
			gen := e.generation
			e.mu.Unlock()
			return &slotHandle{index: i, generation: gen}
		}
		e.mu.Unlock()
	}

	e := &slotEntry{
		state:     slotPending,
		processor: processor,
		done:      make(chan struct{}),
	}
	b.entries = append(b.entries, e)
	return &slotHandle{index: len(b.entries) - 1, generation: e.generation}
}

// lookup returns the slot entry at index, or nil if the index is out of
// range. The entry may be Free; storeHead and complete ignore a Free entry,
// so a frame for a released slot is dropped, not crashed on.
func (b *responseBox) lookup(index int32) *slotEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := int(index)
	if i < 0 || i >= len(b.entries) {
		return nil
	}
	return b.entries[i]
}

// entryFor resolves a handle back to its slot entry, verifying the
// generation still matches (i.e. the slot has not been released and
// reused since the handle was issued).
func (b *responseBox) entryFor(h *slotHandle) (*slotEntry, bool) {
	b.mu.Lock()
	if h.index < 0 || h.index >= len(b.entries) {
		b.mu.Unlock()
		return nil, false
	}
	e := b.entries[h.index]
	b.mu.Unlock()

	e.mu.Lock()
	ok := e.generation == h.generation
	e.mu.Unlock()
	if !ok {
		return nil, false
	}
	return e, true
}

// release transitions the slot back to Free, making it eligible for reuse
// by a future acquire. Callers release a slot once the awaiter has consumed
// its result, or while it is still Pending when its request frame could not
// be sent.
func (b *responseBox) release(h *slotHandle) {
	e, ok := b.entryFor(h)
	if !ok {
		return
	}
	e.mu.Lock()
	e.state = slotFree
	e.processor = nil
	e.head = Frame{}
	e.result = wireEvent{}
	e.processed = false
	e.processedResult = nil
	e.processedErr = nil
	e.mu.Unlock()
}

// storeHead records a body-head frame without signalling completion: the
// server may send a body head before a large payload.
func (e *slotEntry) storeHead(f Frame) {
	e.mu.Lock()
	if e.state != slotPending && e.state != slotHeadReceived {
		e.mu.Unlock()
		return
	}
	e.state = slotHeadReceived
	e.head = f
	e.mu.Unlock()
}

// complete stores the terminal event and wakes any waiter. It is
// safe to call at most meaningfully once per generation; subsequent calls
// before release/reacquire are no-ops because done is already closed, and
// a call on a Free (released) slot is a no-op as well.
func (e *slotEntry) complete(ev wireEvent) {
	e.mu.Lock()
	if e.state == slotFree || e.state == slotCompleted || e.state == slotErrorState {
		e.mu.Unlock()
		return
	}
	e.result = ev
	if ev.Err != nil {
		e.state = slotErrorState
	} else {
		e.state = slotCompleted
	}
	done := e.done
	e.mu.Unlock()
	close(done)
}

// waitChan returns the channel that closes when this slot completes, along
// with a snapshot of whether it is already done.
func (e *slotEntry) waitChan() (<-chan struct{}, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	isDone := e.state == slotCompleted || e.state == slotErrorState
	return e.done, isDone
}

func (e *slotEntry) snapshot() (result any, err error, isDone bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	isDone = e.state == slotCompleted || e.state == slotErrorState
	if e.processed {
		return e.processedResult, e.processedErr, isDone
	}
	return nil, e.result.Err, isDone
}

// headPayload returns any body-head payload observed before the terminal
// frame, or nil if none arrived.
func (e *slotEntry) headPayload() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.head.Payload
}

// runProcessor lazily runs the slot's processor exactly once, under the
// slot's lock, caching the outcome for any repeat callers.
func (e *slotEntry) runProcessor() (any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.processed {
		return e.processedResult, e.processedErr
	}

	var result any
	var err error
	if e.processor != nil {
		result, err = e.processor(e.result)
	} else {
		result, err = nil, e.result.Err
	}

	e.processed = true
	e.processedResult = result
	e.processedErr = err
	return result, err
}
